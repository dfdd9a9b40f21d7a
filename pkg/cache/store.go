package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"
)

// ErrMiss 缓存未命中
var ErrMiss = errors.New("cache: key not found")

// kv 底层存取的最小接口
type kv interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Keys(ctx context.Context, pattern string) ([]string, error)
}

// locker 跨实例的重建锁，获取失败说明其他实例正在重建
type locker interface {
	TryLock(ctx context.Context, name string) (unlock func(), ok bool)
}

// Store 共享缓存适配层。GetOrCompute对同一key保证同时只有一次重建：
// 进程内用flight表合并并发请求，跨实例用分布式锁。
type Store struct {
	kv     kv
	locker locker

	mu      sync.Mutex
	flights map[string]*flight

	pollInterval time.Duration
	pollBudget   int
}

type flight struct {
	done chan struct{}
	val  []byte
	err  error
}

func newStore(kv kv, locker locker) *Store {
	return &Store{
		kv:           kv,
		locker:       locker,
		flights:      make(map[string]*flight),
		pollInterval: 100 * time.Millisecond,
		pollBudget:   20,
	}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	return s.kv.Get(ctx, key)
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.kv.Set(ctx, key, value, ttl)
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.kv.Del(ctx, keys...)
}

// DeletePattern 按模式失效缓存，只用于有界模式（如feed前几页）
func (s *Store) DeletePattern(ctx context.Context, pattern string) error {
	keys, err := s.kv.Keys(ctx, pattern)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.kv.Del(ctx, keys...)
}

// GetOrCompute 读穿缓存。未命中时重建并回填；缓存不可用时直接降级为
// 一次不落缓存的计算，错误只在计算本身失败时返回。
func (s *Store) GetOrCompute(ctx context.Context, key string, ttl time.Duration,
	compute func(ctx context.Context) ([]byte, error)) ([]byte, error) {

	val, err := s.kv.Get(ctx, key)
	if err == nil {
		return val, nil
	}
	if !errors.Is(err, ErrMiss) {
		hlog.CtxWarnf(ctx, "Cache read failed for %s, computing without cache: %v", key, err)
		return compute(ctx)
	}

	s.mu.Lock()
	if f, ok := s.flights[key]; ok {
		s.mu.Unlock()
		select {
		case <-f.done:
			return f.val, f.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f := &flight{done: make(chan struct{})}
	s.flights[key] = f
	s.mu.Unlock()

	f.val, f.err = s.computeAndFill(ctx, key, ttl, compute)

	s.mu.Lock()
	delete(s.flights, key)
	s.mu.Unlock()
	close(f.done)

	return f.val, f.err
}

func (s *Store) computeAndFill(ctx context.Context, key string, ttl time.Duration,
	compute func(ctx context.Context) ([]byte, error)) ([]byte, error) {

	unlock, ok := s.locker.TryLock(ctx, key+":lock")
	if !ok {
		// 其他实例正在重建，轮询等待结果
		if val, err := s.pollForValue(ctx, key); err == nil {
			return val, nil
		}
		// 等待超时后降级为不落缓存的计算，避免饿死
		return compute(ctx)
	}
	defer unlock()

	// 拿到锁后二次检查，可能已被其他实例回填
	if val, err := s.kv.Get(ctx, key); err == nil {
		return val, nil
	}

	val, err := compute(ctx)
	if err != nil {
		return nil, err
	}
	if setErr := s.kv.Set(ctx, key, val, ttl); setErr != nil {
		hlog.CtxWarnf(ctx, "Cache fill failed for %s: %v", key, setErr)
	}
	return val, nil
}

func (s *Store) pollForValue(ctx context.Context, key string) ([]byte, error) {
	for i := 0; i < s.pollBudget; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.pollInterval):
		}
		if val, err := s.kv.Get(ctx, key); err == nil {
			return val, nil
		}
	}
	return nil, ErrMiss
}
