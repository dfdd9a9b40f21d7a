package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/rabbitmq/amqp091-go"

	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/pkg/constants"
	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/pkg/errno"
)

// Consumer 单消费组消费者。同一videoId的事件路由到同一个分片worker，
// 保证按发布顺序串行处理；不同videoId之间不保证顺序。
type Consumer struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	dlq     dlqPublisher
	backoff func(attempt int) time.Duration
	pubMu   sync.Mutex
	wg      sync.WaitGroup
}

// dlqPublisher 死信投递通道，*amqp091.Channel直接满足
type dlqPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

type InteractionEventHandler interface {
	HandleInteractionEvent(ctx context.Context, event *InteractionEvent) error
}

type VideoEventHandler interface {
	HandleVideoEvent(ctx context.Context, event *VideoEvent) error
}

func NewConsumer(rabbitmqURL string) (*Consumer, error) {
	conn, err := amqp091.Dial(rabbitmqURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	// 设置QoS，限制未确认消息数量
	err = ch.Qos(
		constants.ConsumerPrefetch, // prefetch count
		0,                          // prefetch size
		false,                      // global
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	if err := DeclareTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &Consumer{conn: conn, channel: ch, dlq: ch, backoff: backoffDelay}, nil
}

func (c *Consumer) ConsumeInteractionEvents(ctx context.Context, handler InteractionEventHandler) error {
	return c.consume(ctx, constants.InteractionQueue,
		func(body []byte) (interface{}, int64, error) {
			var event InteractionEvent
			if err := json.Unmarshal(body, &event); err != nil {
				return nil, 0, errno.ParamErr.WithMessage(err.Error())
			}
			if err := event.Validate(); err != nil {
				return nil, 0, err
			}
			return &event, event.VideoID, nil
		},
		func(ctx context.Context, payload interface{}) error {
			return handler.HandleInteractionEvent(ctx, payload.(*InteractionEvent))
		})
}

func (c *Consumer) ConsumeVideoEvents(ctx context.Context, handler VideoEventHandler) error {
	return c.consume(ctx, constants.VideoQueue,
		func(body []byte) (interface{}, int64, error) {
			var event VideoEvent
			if err := json.Unmarshal(body, &event); err != nil {
				return nil, 0, errno.ParamErr.WithMessage(err.Error())
			}
			if err := event.Validate(); err != nil {
				return nil, 0, err
			}
			return &event, event.VideoID, nil
		},
		func(ctx context.Context, payload interface{}) error {
			return handler.HandleVideoEvent(ctx, payload.(*VideoEvent))
		})
}

type shardItem struct {
	delivery amqp091.Delivery
	payload  interface{}
}

func (c *Consumer) consume(ctx context.Context, queue string,
	decode func([]byte) (interface{}, int64, error),
	handle func(context.Context, interface{}) error) error {

	msgs, err := c.channel.Consume(
		queue,
		"",    // consumer
		false, // auto-ack (设置为false，手动确认)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to register a consumer on %s: %w", queue, err)
	}

	shards := make([]chan shardItem, constants.ConsumerShards)
	for i := range shards {
		shards[i] = make(chan shardItem, constants.ConsumerPrefetch)
		c.wg.Add(1)
		go c.shardWorker(ctx, queue, shards[i], handle)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			for _, s := range shards {
				close(s)
			}
		}()
		for {
			select {
			case <-ctx.Done():
				hlog.Infof("Consumer on %s: context cancelled", queue)
				return
			case d, ok := <-msgs:
				if !ok {
					hlog.Infof("Consumer on %s: delivery channel closed", queue)
					return
				}

				payload, key, err := decode(d.Body)
				if err != nil {
					// 非法事件直接拒绝，不重新入队
					hlog.Errorf("Rejecting malformed event on %s: %v", queue, err)
					d.Nack(false, false)
					continue
				}

				shards[shardFor(key, len(shards))] <- shardItem{delivery: d, payload: payload}
			}
		}
	}()

	return nil
}

// shardWorker 串行处理单个分片的事件，失败时退避重试，超限投递死信队列
func (c *Consumer) shardWorker(ctx context.Context, queue string, items <-chan shardItem,
	handle func(context.Context, interface{}) error) {
	defer c.wg.Done()

	for item := range items {
		c.processWithRetry(ctx, queue, item, handle)
	}
}

func (c *Consumer) processWithRetry(ctx context.Context, queue string, item shardItem,
	handle func(context.Context, interface{}) error) {

	var lastErr error
	for attempt := 1; attempt <= constants.MaxProcessRetries; attempt++ {
		lastErr = handle(ctx, item.payload)
		if lastErr == nil {
			item.delivery.Ack(false)
			return
		}
		if errno.IsParamErr(lastErr) {
			// 校验类错误重试无意义
			break
		}
		hlog.Errorf("Handler failed on %s (attempt %d/%d): %v",
			queue, attempt, constants.MaxProcessRetries, lastErr)
		if attempt < constants.MaxProcessRetries {
			select {
			case <-ctx.Done():
				// 关停时把消息还给broker
				item.delivery.Nack(false, true)
				return
			case <-time.After(c.backoff(attempt)):
			}
		}
	}

	// 超过重试上限，保留原始消息供人工回放
	if err := c.deadLetter(ctx, queue, item.delivery); err != nil {
		hlog.Errorf("Failed to dead-letter event on %s: %v", queue, err)
		item.delivery.Nack(false, true)
		return
	}
	hlog.Warnf("Event dead-lettered from %s after %d attempts: %v",
		queue, constants.MaxProcessRetries, lastErr)
	item.delivery.Ack(false)
}

func (c *Consumer) deadLetter(ctx context.Context, queue string, d amqp091.Delivery) error {
	headers := amqp091.Table{}
	for k, v := range d.Headers {
		headers[k] = v
	}
	headers["x-origin-queue"] = queue
	headers["x-dead-lettered-at"] = time.Now().Unix()

	c.pubMu.Lock()
	defer c.pubMu.Unlock()
	return c.dlq.PublishWithContext(
		ctx,
		"", // default exchange,按队列名直投
		queue+constants.DeadLetterSuffix,
		false,
		false,
		amqp091.Publishing{
			ContentType:  d.ContentType,
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Headers:      headers,
			Body:         d.Body,
		},
	)
}

func shardFor(key int64, shards int) int {
	if key < 0 {
		key = -key
	}
	return int(key % int64(shards))
}

// backoffDelay 指数退避，attempt从1开始
func backoffDelay(attempt int) time.Duration {
	d := constants.ProcessBackoffBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= constants.ProcessBackoffMax {
			return constants.ProcessBackoffMax
		}
	}
	return d
}

// Wait 等待所有worker退出，优雅关闭用
func (c *Consumer) Wait() {
	c.wg.Wait()
}

func (c *Consumer) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
