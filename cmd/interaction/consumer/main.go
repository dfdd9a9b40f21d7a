package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"

	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/cmd/interaction/dal"
	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/cmd/interaction/infras/redis"
	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/cmd/interaction/service"
	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/config"
	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/config/pprof"
	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/pkg/mq"
)

func main() {
	// 初始化日志
	hlog.SetLevel(hlog.LevelInfo)

	// 初始化配置和依赖
	config.Init()
	dal.Init()
	redis.Load()
	pprof.Load(":6060")
	hlog.Info("Dependencies initialized successfully")

	rabbitmqURL := config.RabbitMqURL()

	// 通知事件生产者
	producer, err := mq.NewProducer(rabbitmqURL)
	if err != nil {
		log.Fatalf("Failed to create producer: %v", err)
	}
	defer producer.Close()

	consumer, err := mq.NewConsumer(rabbitmqURL)
	if err != nil {
		log.Fatalf("Failed to create consumer: %v", err)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	aggregator := service.NewCounterAggregator(service.DBCounterStore{}, redis.Store, producer)
	aggregator.StartJanitor(ctx, time.Hour)

	// 计数引擎只消费interaction和video两条队列
	if err := consumer.ConsumeInteractionEvents(ctx, aggregator); err != nil {
		log.Fatalf("Failed to start interaction event consumer: %v", err)
	}
	hlog.Info("Interaction event consumer started")

	if err := consumer.ConsumeVideoEvents(ctx, aggregator); err != nil {
		log.Fatalf("Failed to start video event consumer: %v", err)
	}
	hlog.Info("Video event consumer started")

	hlog.Info("Counter aggregator started successfully, waiting for messages...")

	// 等待中断信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	hlog.Info("Shutting down counter aggregator...")

	// 优雅关闭
	cancel()

	done := make(chan struct{})
	go func() {
		consumer.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		hlog.Warn("Timed out waiting for in-flight events")
	}

	hlog.Info("Counter aggregator stopped")
}
