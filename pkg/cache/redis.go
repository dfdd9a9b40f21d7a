package cache

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

const lockExpiry = 30 * time.Second

// NewStore 基于redis的缓存适配层，重建锁使用redsync
func NewStore(client redis.UniversalClient) *Store {
	rs := redsync.New(goredis.NewPool(client))
	return newStore(&redisKV{client: client}, &redsyncLocker{rs: rs})
}

type redisKV struct {
	client redis.UniversalClient
}

func (r *redisKV) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrMiss
	}
	return val, err
}

func (r *redisKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *redisKV) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

func (r *redisKV) Keys(ctx context.Context, pattern string) ([]string, error) {
	return r.client.Keys(ctx, pattern).Result()
}

type redsyncLocker struct {
	rs *redsync.Redsync
}

func (l *redsyncLocker) TryLock(ctx context.Context, name string) (func(), bool) {
	mu := l.rs.NewMutex(name,
		redsync.WithExpiry(lockExpiry),
		redsync.WithTries(1),
	)
	if err := mu.TryLockContext(ctx); err != nil {
		return nil, false
	}
	return func() {
		// 用后台context释放，调用方取消时锁也要还回去
		if _, err := mu.UnlockContext(context.Background()); err != nil {
			hlog.Warnf("Failed to release rebuild lock %s: %v", name, err)
		}
	}, true
}
