package service

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/google/uuid"

	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/cmd/interaction/dal/db"
	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/cmd/model"
	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/pkg/cache"
	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/pkg/constants"
	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/pkg/mq"
)

// CounterStore 计数的持久化入口，唯一写方
type CounterStore interface {
	ApplyEvent(ctx context.Context, event *mq.InteractionEvent) (*db.AppliedEvent, error)
	EnsureCounters(ctx context.Context, videoID int64) error
	DeleteCounters(ctx context.Context, videoID int64) error
	GetCounters(ctx context.Context, videoID int64) (*model.VideoCounters, error)
	VideoAuthor(ctx context.Context, videoID int64) (int64, error)
	PurgeProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// CacheInvalidator 缓存失效入口
type CacheInvalidator interface {
	Delete(ctx context.Context, keys ...string) error
	DeletePattern(ctx context.Context, pattern string) error
}

// CounterAggregator 消费互动/视频事件，把计数落库后失效相关缓存。
// 处理顺序固定：提交 -> 失效 -> 确认，失效失败不阻塞确认。
type CounterAggregator struct {
	store    CounterStore
	cache    CacheInvalidator
	producer mq.MessageProducer // 可为nil，通知尽力而为
}

func NewCounterAggregator(store CounterStore, cache CacheInvalidator, producer mq.MessageProducer) *CounterAggregator {
	return &CounterAggregator{store: store, cache: cache, producer: producer}
}

// Handle 应用单个互动事件。重复投递返回Skipped，按成功处理。
func (a *CounterAggregator) Handle(ctx context.Context, event *mq.InteractionEvent) (*db.AppliedEvent, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}

	applied, err := a.store.ApplyEvent(ctx, event)
	if err != nil {
		return nil, err
	}
	if applied.Skipped {
		hlog.CtxInfof(ctx, "Duplicate event skipped: key=%s video=%d",
			event.IdempotencyKey, event.VideoID)
		return applied, nil
	}

	a.invalidateCounter(ctx, event.VideoID, applied.Column)
	if crossedTrending(applied.OldValue, applied.NewValue) {
		a.invalidateFeedPages(ctx)
	}
	a.notify(ctx, event)

	hlog.CtxInfof(ctx, "Applied %s for video %d: %s %d -> %d",
		event.Kind, event.VideoID, applied.Column, applied.OldValue, applied.NewValue)
	return applied, nil
}

// HandleInteractionEvent 实现mq.InteractionEventHandler
func (a *CounterAggregator) HandleInteractionEvent(ctx context.Context, event *mq.InteractionEvent) error {
	_, err := a.Handle(ctx, event)
	return err
}

// HandleVideoEvent 实现mq.VideoEventHandler。
// 新视频可能改变feed排序，发布/删除都做有界的feed失效。
func (a *CounterAggregator) HandleVideoEvent(ctx context.Context, event *mq.VideoEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	switch event.Type {
	case mq.VideoEventPublish:
		if err := a.store.EnsureCounters(ctx, event.VideoID); err != nil {
			return err
		}
	case mq.VideoEventDelete:
		if err := a.store.DeleteCounters(ctx, event.VideoID); err != nil {
			return err
		}
		if err := a.cache.Delete(ctx, cache.VideoCounterKeys(event.VideoID)...); err != nil {
			hlog.CtxWarnf(ctx, "Failed to drop counter cache for video %d: %v", event.VideoID, err)
		}
	}

	a.invalidateFeedPages(ctx)
	hlog.CtxInfof(ctx, "Processed video event: type=%s video=%d", event.Type, event.VideoID)
	return nil
}

// invalidateCounter 删除后等读路径懒回填，不做写穿
func (a *CounterAggregator) invalidateCounter(ctx context.Context, videoID int64, column string) {
	key, ok := cache.VideoCounterKey(videoID, column)
	if !ok {
		return
	}
	if err := a.cache.Delete(ctx, key); err != nil {
		// 失效失败只记录，过期兜底由TTL保证
		hlog.CtxErrorf(ctx, "Cache invalidation failed for %s: %v", key, err)
	}
}

// invalidateFeedPages 有界失效：全量清理无上界，只清前几页
func (a *CounterAggregator) invalidateFeedPages(ctx context.Context) {
	for page := int64(1); page <= constants.FeedInvalidatePages; page++ {
		if err := a.cache.DeletePattern(ctx, cache.FeedPagePattern(page)); err != nil {
			hlog.CtxErrorf(ctx, "Feed cache invalidation failed for page %d: %v", page, err)
		}
	}
}

// notify 给视频作者发通知事件，尽力而为
func (a *CounterAggregator) notify(ctx context.Context, event *mq.InteractionEvent) {
	if a.producer == nil {
		return
	}
	if event.Kind != mq.EventLike && event.Kind != mq.EventComment {
		return
	}

	author, err := a.store.VideoAuthor(ctx, event.VideoID)
	if err != nil || author <= 0 || author == event.UserID {
		return
	}

	notification := &mq.NotificationEvent{
		ReceiverID: author,
		SenderID:   event.UserID,
		Type:       strings.ToLower(string(event.Kind)),
		VideoID:    event.VideoID,
		EventID:    uuid.New().String(),
	}
	if err := a.producer.PublishNotificationEvent(ctx, notification); err != nil {
		hlog.CtxWarnf(ctx, "Failed to publish notification for video %d: %v", event.VideoID, err)
	}
}

// StartJanitor 周期清理保留窗口外的幂等记录
func (a *CounterAggregator) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				hlog.Info("Dedup janitor stopped")
				return
			case <-ticker.C:
				cutoff := time.Now().Add(-constants.DedupRetention)
				n, err := a.store.PurgeProcessedBefore(ctx, cutoff)
				if err != nil {
					hlog.Errorf("Failed to purge processed events: %v", err)
					continue
				}
				if n > 0 {
					hlog.Infof("Purged %d processed events older than %s", n, cutoff.Format(constants.DataFormate))
				}
			}
		}
	}()
}

func crossedTrending(oldValue, newValue int64) bool {
	t := int64(constants.TrendingThreshold)
	return (oldValue < t && newValue >= t) || (oldValue >= t && newValue < t)
}

// DBCounterStore 生产实现，直接走dal/db
type DBCounterStore struct{}

func (DBCounterStore) ApplyEvent(ctx context.Context, event *mq.InteractionEvent) (*db.AppliedEvent, error) {
	return db.ApplyInteractionEvent(ctx, event)
}

func (DBCounterStore) EnsureCounters(ctx context.Context, videoID int64) error {
	return db.EnsureCounters(ctx, videoID)
}

func (DBCounterStore) DeleteCounters(ctx context.Context, videoID int64) error {
	return db.DeleteCounters(ctx, videoID)
}

func (DBCounterStore) GetCounters(ctx context.Context, videoID int64) (*model.VideoCounters, error) {
	return db.GetCounters(ctx, videoID)
}

func (DBCounterStore) VideoAuthor(ctx context.Context, videoID int64) (int64, error) {
	return db.GetVideoAuthor(ctx, videoID)
}

func (DBCounterStore) PurgeProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return db.PurgeProcessedBefore(ctx, cutoff)
}

var _ CounterStore = DBCounterStore{}
var _ mq.InteractionEventHandler = (*CounterAggregator)(nil)
var _ mq.VideoEventHandler = (*CounterAggregator)(nil)
