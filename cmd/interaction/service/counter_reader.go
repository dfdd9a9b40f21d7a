package service

import (
	"context"
	"strconv"
	"time"

	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/cmd/model"
	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/pkg/cache"
	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/pkg/constants"
)

// ComputeCache 带单次重建保证的读穿缓存
type ComputeCache interface {
	GetOrCompute(ctx context.Context, key string, ttl time.Duration,
		compute func(ctx context.Context) ([]byte, error)) ([]byte, error)
}

// CounterReader 同步读路径。缓存未命中时回源权威存储并回填，
// 缓存值只是读加速，最多落后TTL加传播延迟。
type CounterReader struct {
	cache ComputeCache
	store CounterStore
}

func NewCounterReader(cache ComputeCache, store CounterStore) *CounterReader {
	return &CounterReader{cache: cache, store: store}
}

func (r *CounterReader) Views(ctx context.Context, videoID int64) (int64, error) {
	return r.read(ctx, videoID, "views")
}

func (r *CounterReader) Likes(ctx context.Context, videoID int64) (int64, error) {
	return r.read(ctx, videoID, "likes")
}

func (r *CounterReader) Comments(ctx context.Context, videoID int64) (int64, error) {
	return r.read(ctx, videoID, "comments")
}

func (r *CounterReader) read(ctx context.Context, videoID int64, column string) (int64, error) {
	key, _ := cache.VideoCounterKey(videoID, column)
	val, err := r.cache.GetOrCompute(ctx, key, constants.CounterCacheExpire,
		func(ctx context.Context) ([]byte, error) {
			counters, err := r.store.GetCounters(ctx, videoID)
			if err != nil {
				return nil, err
			}
			return []byte(strconv.FormatInt(pickCounter(counters, column), 10)), nil
		})
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(string(val), 10, 64)
}

func pickCounter(c *model.VideoCounters, column string) int64 {
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
