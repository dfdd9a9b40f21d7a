package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/rabbitmq/amqp091-go"

	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/pkg/constants"
)

type Producer struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

// 每个领域一条队列，绑定到同名direct交换机
var topology = []struct {
	exchange string
	queue    string
}{
	{constants.AuthEventExchange, constants.AuthQueue},
	{constants.VideoEventExchange, constants.VideoQueue},
	{constants.InteractionEventExchange, constants.InteractionQueue},
	{constants.NotificationEventExchange, constants.NotificationQueue},
}

func NewProducer(rabbitmqURL string) (*Producer, error) {
	conn, err := amqp091.Dial(rabbitmqURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	producer := &Producer{
		conn:    conn,
		channel: ch,
	}

	// 声明exchanges和queues
	if err := producer.setupTopology(); err != nil {
		producer.Close()
		return nil, fmt.Errorf("failed to setup topology: %w", err)
	}

	return producer, nil
}

func (p *Producer) setupTopology() error {
	return DeclareTopology(p.channel)
}

// DeclareTopology 声明全部队列拓扑，生产者和消费者共用，重复声明幂等
func DeclareTopology(ch *amqp091.Channel) error {
	for _, t := range topology {
		err := ch.ExchangeDeclare(
			t.exchange,
			"direct",
			true,  // durable
			false, // auto-delete
			false, // internal
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			return fmt.Errorf("failed to declare exchange %s: %w", t.exchange, err)
		}

		_, err = ch.QueueDeclare(
			t.queue,
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", t.queue, err)
		}

		// 每条队列配一条死信队列，保留处理失败的原始消息
		_, err = ch.QueueDeclare(
			t.queue+constants.DeadLetterSuffix,
			true,
			false,
			false,
			false,
			nil,
		)
		if err != nil {
			return fmt.Errorf("failed to declare dead letter queue for %s: %w", t.queue, err)
		}

		err = ch.QueueBind(
			t.queue,
			"", // routing key
			t.exchange,
			false,
			nil,
		)
		if err != nil {
			return fmt.Errorf("failed to bind queue %s: %w", t.queue, err)
		}
	}

	return nil
}

func (p *Producer) publish(ctx context.Context, exchange string, event interface{}) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.channel.PublishWithContext(
		ctx,
		exchange,
		"",
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", exchange, err)
	}
	return nil
}

func (p *Producer) PublishInteractionEvent(ctx context.Context, event *InteractionEvent) error {
	event.Fill()
	if err := event.Validate(); err != nil {
		return err
	}
	if err := p.publish(ctx, constants.InteractionEventExchange, event); err != nil {
		return err
	}
	hlog.CtxInfof(ctx, "Published interaction event: kind=%s video=%d key=%s",
		event.Kind, event.VideoID, event.IdempotencyKey)
	return nil
}

func (p *Producer) PublishVideoEvent(ctx context.Context, event *VideoEvent) error {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}
	if err := event.Validate(); err != nil {
		return err
	}
	if err := p.publish(ctx, constants.VideoEventExchange, event); err != nil {
		return err
	}
	hlog.CtxInfof(ctx, "Published video event: type=%s video=%d", event.Type, event.VideoID)
	return nil
}

func (p *Producer) PublishNotificationEvent(ctx context.Context, event *NotificationEvent) error {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}
	if err := p.publish(ctx, constants.NotificationEventExchange, event); err != nil {
		return err
	}
	hlog.CtxInfof(ctx, "Published notification event: type=%s receiver=%d", event.Type, event.ReceiverID)
	return nil
}

func (p *Producer) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
