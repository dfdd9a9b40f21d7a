package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeKV 内存kv，模拟redis行为
type fakeKV struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
	sets   int
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string][]byte)}
}

func (f *fakeKV) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	val, ok := f.data[key]
	if !ok {
		return nil, ErrMiss
	}
	return val, nil
}

func (f *fakeKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	f.sets++
	return nil
}

func (f *fakeKV) Del(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeKV) Keys(ctx context.Context, pattern string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix, suffix, ok := strings.Cut(pattern, "*")
	var keys []string
	for k := range f.data {
		if !ok {
			if k == pattern {
				keys = append(keys, k)
			}
			continue
		}
		if strings.HasPrefix(k, prefix) && strings.HasSuffix(k, suffix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

type fakeLocker struct {
	denied bool
}

func (f *fakeLocker) TryLock(ctx context.Context, name string) (func(), bool) {
	if f.denied {
		return nil, false
	}
	return func() {}, true
}

func testStore(kv *fakeKV, locker *fakeLocker) *Store {
	s := newStore(kv, locker)
	s.pollInterval = time.Millisecond
	s.pollBudget = 2
	return s
}

func TestGetOrComputeHit(t *testing.T) {
	kv := newFakeKV()
	kv.data["k"] = []byte("cached")
	s := testStore(kv, &fakeLocker{})

	val, err := s.GetOrCompute(context.Background(), "k", time.Minute,
		func(ctx context.Context) ([]byte, error) {
			t.Fatal("compute must not run on cache hit")
			return nil, nil
		})
	if err != nil || string(val) != "cached" {
		t.Fatalf("GetOrCompute = (%q, %v)", val, err)
	}
}

func TestGetOrComputeMissFills(t *testing.T) {
	kv := newFakeKV()
	s := testStore(kv, &fakeLocker{})

	val, err := s.GetOrCompute(context.Background(), "k", time.Minute,
		func(ctx context.Context) ([]byte, error) {
			return []byte("fresh"), nil
		})
	if err != nil || string(val) != "fresh" {
		t.Fatalf("GetOrCompute = (%q, %v)", val, err)
	}

	cached, err := s.Get(context.Background(), "k")
	if err != nil || string(cached) != "fresh" {
		t.Fatalf("value not filled back: (%q, %v)", cached, err)
	}
}

func TestGetOrComputeComputeError(t *testing.T) {
	kv := newFakeKV()
	s := testStore(kv, &fakeLocker{})

	wantErr := errors.New("db down")
	_, err := s.GetOrCompute(context.Background(), "k", time.Minute,
		func(ctx context.Context) ([]byte, error) {
			return nil, wantErr
		})
	if !errors.Is(err, wantErr) {
		t.Fatalf("GetOrCompute error = %v, want %v", err, wantErr)
	}
	if kv.sets != 0 {
		t.Error("failed compute must not fill cache")
	}
}

func TestGetOrComputeSingleFlight(t *testing.T) {
	kv := newFakeKV()
	s := testStore(kv, &fakeLocker{})

	const waiters = 16
	var computes int32
	release := make(chan struct{})

	var started, done sync.WaitGroup
	started.Add(waiters)
	done.Add(waiters)
	for i := 0; i < waiters; i++ {
		go func() {
			defer done.Done()
			started.Done()
			val, err := s.GetOrCompute(context.Background(), "hot", time.Minute,
				func(ctx context.Context) ([]byte, error) {
					atomic.AddInt32(&computes, 1)
					<-release
					return []byte("v"), nil
				})
			if err != nil || string(val) != "v" {
				t.Errorf("waiter got (%q, %v)", val, err)
			}
		}()
	}

	started.Wait()
	time.Sleep(20 * time.Millisecond) // 留时间让所有waiter挂到flight上
	close(release)
	done.Wait()

	if n := atomic.LoadInt32(&computes); n != 1 {
		t.Errorf("compute ran %d times for concurrent misses, want 1", n)
	}
}

func TestGetOrComputeDegradesOnCacheFailure(t *testing.T) {
	kv := newFakeKV()
	kv.getErr = errors.New("connection refused")
	s := testStore(kv, &fakeLocker{})

	val, err := s.GetOrCompute(context.Background(), "k", time.Minute,
		func(ctx context.Context) ([]byte, error) {
			return []byte("direct"), nil
		})
	if err != nil || string(val) != "direct" {
		t.Fatalf("GetOrCompute = (%q, %v), want direct compute", val, err)
	}
	if kv.sets != 0 {
		t.Error("degraded compute must not attempt cache fill")
	}
}

func TestGetOrComputeLockDeniedDegrades(t *testing.T) {
	kv := newFakeKV()
	s := testStore(kv, &fakeLocker{denied: true})

	// 锁被其他实例持有且值一直没出现，等待预算用完后直接计算
	val, err := s.GetOrCompute(context.Background(), "k", time.Minute,
		func(ctx context.Context) ([]byte, error) {
			return []byte("fallback"), nil
		})
	if err != nil || string(val) != "fallback" {
		t.Fatalf("GetOrCompute = (%q, %v)", val, err)
	}
	if kv.sets != 0 {
		t.Error("loser must not fill cache")
	}
}

func TestDeletePattern(t *testing.T) {
	kv := newFakeKV()
	kv.data["feed:1:2"] = []byte("a")
	kv.data["feed:9:2"] = []byte("b")
	kv.data["feed:1:3"] = []byte("c")
	s := testStore(kv, &fakeLocker{})

	if err := s.DeletePattern(context.Background(), "feed:*:2"); err != nil {
		t.Fatal(err)
	}
	if _, ok := kv.data["feed:1:2"]; ok {
		t.Error("feed:1:2 should be deleted")
	}
	if _, ok := kv.data["feed:9:2"]; ok {
		t.Error("feed:9:2 should be deleted")
	}
	if _, ok := kv.data["feed:1:3"]; !ok {
		t.Error("feed:1:3 should survive")
	}
}

func TestSessionRoundTrip(t *testing.T) {
	kv := newFakeKV()
	s := testStore(kv, &fakeLocker{})
	ctx := context.Background()

	if err := s.SaveSession(ctx, &SessionEntry{UserID: 7, Token: "tok"}); err != nil {
		t.Fatal(err)
	}

	entry, err := s.LoadSession(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	if entry == nil || entry.UserID != 7 || entry.Token != "tok" || entry.CreatedAt == 0 {
		t.Errorf("LoadSession = %+v", entry)
	}

	if err := s.DeleteSession(ctx, 7); err != nil {
		t.Fatal(err)
	}
	entry, err = s.LoadSession(ctx, 7)
	if err != nil || entry != nil {
		t.Errorf("after delete LoadSession = (%+v, %v), want (nil, nil)", entry, err)
	}
}

func TestSaveSessionRejectsInvalid(t *testing.T) {
	s := testStore(newFakeKV(), &fakeLocker{})
	if err := s.SaveSession(context.Background(), nil); err == nil {
		t.Error("nil entry should be rejected")
	}
	if err := s.SaveSession(context.Background(), &SessionEntry{UserID: 0}); err == nil {
		t.Error("zero user id should be rejected")
	}
}
