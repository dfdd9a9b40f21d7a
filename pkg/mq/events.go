package mq

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/pkg/errno"
)

// EventKind 互动事件类型，封闭集合，队列边界处校验
type EventKind string

const (
	EventView      EventKind = "VIEW"
	EventLike      EventKind = "LIKE"
	EventUnlike    EventKind = "UNLIKE"
	EventComment   EventKind = "COMMENT"
	EventUncomment EventKind = "UNCOMMENT"
)

// InteractionEvent 互动事件，interaction_queue上的唯一载荷
type InteractionEvent struct {
	Kind           EventKind `json:"kind"`
	VideoID        int64     `json:"video_id"`
	UserID         int64     `json:"user_id,omitempty"` // 0表示匿名，仅VIEW允许
	Timestamp      int64     `json:"timestamp"`
	IdempotencyKey string    `json:"idempotency_key"`
}

// Validate 在消费入口处校验，非法事件直接拒绝，不入重试
func (e *InteractionEvent) Validate() error {
	switch e.Kind {
	case EventView, EventLike, EventUnlike, EventComment, EventUncomment:
	default:
		return errno.ParamErr.WithMessage(fmt.Sprintf("unknown event kind: %q", e.Kind))
	}
	if e.VideoID <= 0 {
		return errno.ParamErr.WithMessage(fmt.Sprintf("invalid video_id: %d", e.VideoID))
	}
	if e.UserID <= 0 && e.Kind != EventView {
		return errno.ParamErr.WithMessage(fmt.Sprintf("event %s requires user_id", e.Kind))
	}
	if e.IdempotencyKey == "" {
		return errno.ParamErr.WithMessage("missing idempotency_key")
	}
	return nil
}

// CounterDelta 返回事件影响的计数列与增量
func (e *InteractionEvent) CounterDelta() (column string, delta int64) {
	switch e.Kind {
	case EventView:
		return "views", 1
	case EventLike:
		return "likes", 1
	case EventUnlike:
		return "likes", -1
	case EventComment:
		return "comments", 1
	case EventUncomment:
		return "comments", -1
	}
	return "", 0
}

// Fill 补齐时间戳与幂等key，生产侧调用
func (e *InteractionEvent) Fill() {
	if e.Timestamp == 0 {
		e.Timestamp = time.Now().Unix()
	}
	if e.IdempotencyKey == "" {
		e.IdempotencyKey = uuid.New().String()
	}
}

// VideoEvent 视频生命周期事件，video_queue上的载荷
type VideoEvent struct {
	Type      string `json:"type"` // "publish" or "delete"
	VideoID   int64  `json:"video_id"`
	UserID    int64  `json:"user_id"`
	Timestamp int64  `json:"timestamp"`
	EventID   string `json:"event_id"`
}

const (
	VideoEventPublish = "publish"
	VideoEventDelete  = "delete"
)

func (e *VideoEvent) Validate() error {
	if e.Type != VideoEventPublish && e.Type != VideoEventDelete {
		return errno.ParamErr.WithMessage(fmt.Sprintf("unknown video event type: %q", e.Type))
	}
	if e.VideoID <= 0 {
		return errno.ParamErr.WithMessage(fmt.Sprintf("invalid video_id: %d", e.VideoID))
	}
	if e.EventID == "" {
		return errno.ParamErr.WithMessage("missing event_id")
	}
	return nil
}

// NotificationEvent 通知事件
type NotificationEvent struct {
	ReceiverID int64  `json:"receiver_id"`
	SenderID   int64  `json:"sender_id"`
	Type       string `json:"type"` // like, comment
	VideoID    int64  `json:"video_id"`
	Content    string `json:"content"`
	Timestamp  int64  `json:"timestamp"`
	EventID    string `json:"event_id"`
}
