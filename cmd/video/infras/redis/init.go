package redis

import (
	"context"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	goredis "github.com/redis/go-redis/v9"

	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/config"
	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/pkg/cache"
)

var (
	client *goredis.Client

	// Store feed页缓存走共享缓存适配层
	Store *cache.Store
)

func Load() {
	client = goredis.NewClient(&goredis.Options{
		Addr:     config.ConfigInfo.Redis.Addr,
		Password: config.ConfigInfo.Redis.Password,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		hlog.Info("redis ping failed: ", err)
	}

	Store = cache.NewStore(client)
}
