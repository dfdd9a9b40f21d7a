package mq

import "context"

// MessageProducer 消息生产者接口
type MessageProducer interface {
	PublishInteractionEvent(ctx context.Context, event *InteractionEvent) error
	PublishVideoEvent(ctx context.Context, event *VideoEvent) error
	PublishNotificationEvent(ctx context.Context, event *NotificationEvent) error
}

// 确保Producer实现MessageProducer接口
var _ MessageProducer = (*Producer)(nil)
