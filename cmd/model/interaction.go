package model

import "time"

// VideoCounters 视频计数的权威记录，只由聚合器在事务内更新。
// 缓存里的副本只是读加速，其他服务不得以缓存值为准回写。
type VideoCounters struct {
	VideoId   int64     `gorm:"column:video_id;primaryKey"`
	Views     int64     `gorm:"column:views;not null;default:0"`
	Likes     int64     `gorm:"column:likes;not null;default:0"`
	Comments  int64     `gorm:"column:comments;not null;default:0"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (VideoCounters) TableName() string {
	return "video_counters"
}

// ProcessedEvent 幂等账本，idempotency_key唯一。
// 超过保留窗口的记录由清理任务删除。
type ProcessedEvent struct {
	Id             int64     `gorm:"column:id;primaryKey;autoIncrement"`
	IdempotencyKey string    `gorm:"column:idempotency_key;uniqueIndex;size:64;not null"`
	Kind           string    `gorm:"column:kind;size:16"`
	VideoId        int64     `gorm:"column:video_id;index"`
	ProcessedAt    time.Time `gorm:"column:processed_at;index"`
}

func (ProcessedEvent) TableName() string {
	return "processed_events"
}
