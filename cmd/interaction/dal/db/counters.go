package db

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/cmd/model"
	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/pkg/errno"
	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/pkg/mq"
)

// AppliedEvent 一次计数应用的结果
type AppliedEvent struct {
	Skipped  bool
	Column   string
	OldValue int64
	NewValue int64
}

// ApplyInteractionEvent 在单个事务内完成幂等检查与计数增量。
// 同一video_id的并发更新靠行锁串行化。
func ApplyInteractionEvent(ctx context.Context, event *mq.InteractionEvent) (*AppliedEvent, error) {
	column, delta := event.CounterDelta()
	if column == "" {
		return nil, errno.ParamErr.WithMessage("event has no counter effect: " + string(event.Kind))
	}

	applied := &AppliedEvent{Column: column}
	err := DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 幂等账本先行，插入冲突说明重复投递
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.ProcessedEvent{
			IdempotencyKey: event.IdempotencyKey,
			Kind:           string(event.Kind),
			VideoId:        event.VideoID,
			ProcessedAt:    time.Now(),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			applied.Skipped = true
			return nil
		}

		if err := ensureCountersTx(tx, event.VideoID); err != nil {
			return err
		}

		var counters model.VideoCounters
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("video_id = ?", event.VideoID).
			First(&counters).Error; err != nil {
			return err
		}

		applied.OldValue = counterValue(&counters, column)
		applied.NewValue = clampCounter(applied.OldValue + delta)

		return tx.Model(&model.VideoCounters{}).
			Where("video_id = ?", event.VideoID).
			UpdateColumns(map[string]interface{}{
				column:       applied.NewValue,
				"updated_at": time.Now(),
			}).Error
	})
	if err != nil {
		return nil, errors.Wrapf(err, "ApplyInteractionEvent failed, video=%d key=%s",
			event.VideoID, event.IdempotencyKey)
	}
	return applied, nil
}

func ensureCountersTx(tx *gorm.DB, videoID int64) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.VideoCounters{VideoId: videoID, UpdatedAt: time.Now()}).Error
}

// EnsureCounters 新视频发布时初始化计数行
func EnsureCounters(ctx context.Context, videoID int64) error {
	return ensureCountersTx(DB.WithContext(ctx), videoID)
}

func DeleteCounters(ctx context.Context, videoID int64) error {
	return DB.WithContext(ctx).Where("video_id = ?", videoID).
		Delete(&model.VideoCounters{}).Error
}

func GetCounters(ctx context.Context, videoID int64) (*model.VideoCounters, error) {
	counters := &model.VideoCounters{VideoId: videoID}
	err := DB.WithContext(ctx).Model(&model.VideoCounters{}).
		Where("video_id = ?", videoID).Find(counters).Error
	if err != nil {
		return nil, errors.Wrapf(err, "GetCounters failed, video=%d", videoID)
	}
	return counters, nil
}

// GetVideoAuthor 查视频作者，用于点赞/评论通知
func GetVideoAuthor(ctx context.Context, videoID int64) (int64, error) {
	var userID int64
	err := DB.WithContext(ctx).Model(&model.Video{}).
		Where("video_id = ?", videoID).
		Select("user_id").Find(&userID).Error
	if err != nil {
		return 0, err
	}
	return userID, nil
}

// PurgeProcessedBefore 清理保留窗口外的幂等记录
func PurgeProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := DB.WithContext(ctx).Where("processed_at < ?", cutoff).
		Delete(&model.ProcessedEvent{})
	return res.RowsAffected, res.Error
}

// clampCounter 计数不允许为负
func clampCounter(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

func counterValue(c *model.VideoCounters, column string) int64 {
	switch column {
	case "views":
		return c.Views
	case "likes":
		return c.Likes
	case "comments":
		return c.Comments
	}
	return 0
}
