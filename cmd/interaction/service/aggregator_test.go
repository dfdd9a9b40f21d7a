package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/cmd/interaction/dal/db"
	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/cmd/model"
	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/pkg/constants"
	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/pkg/errno"
	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/pkg/mq"
)

type fakeCounterStore struct {
	applied   *db.AppliedEvent
	applyErr  error
	applyN    int
	ensured   []int64
	deleted   []int64
	author    int64
	authorErr error
}

func (f *fakeCounterStore) ApplyEvent(ctx context.Context, event *mq.InteractionEvent) (*db.AppliedEvent, error) {
	f.applyN++
	return f.applied, f.applyErr
}

func (f *fakeCounterStore) EnsureCounters(ctx context.Context, videoID int64) error {
	f.ensured = append(f.ensured, videoID)
	return nil
}

func (f *fakeCounterStore) DeleteCounters(ctx context.Context, videoID int64) error {
	f.deleted = append(f.deleted, videoID)
	return nil
}

func (f *fakeCounterStore) GetCounters(ctx context.Context, videoID int64) (*model.VideoCounters, error) {
	return &model.VideoCounters{VideoId: videoID}, nil
}

func (f *fakeCounterStore) VideoAuthor(ctx context.Context, videoID int64) (int64, error) {
	return f.author, f.authorErr
}

func (f *fakeCounterStore) PurgeProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type fakeInvalidator struct {
	deleted   []string
	patterns  []string
	deleteErr error
}

func (f *fakeInvalidator) Delete(ctx context.Context, keys ...string) error {
	f.deleted = append(f.deleted, keys...)
	return f.deleteErr
}

func (f *fakeInvalidator) DeletePattern(ctx context.Context, pattern string) error {
	f.patterns = append(f.patterns, pattern)
	return nil
}

type fakeProducer struct {
	notifications []*mq.NotificationEvent
}

func (f *fakeProducer) PublishInteractionEvent(ctx context.Context, event *mq.InteractionEvent) error {
	return nil
}

func (f *fakeProducer) PublishVideoEvent(ctx context.Context, event *mq.VideoEvent) error {
	return nil
}

func (f *fakeProducer) PublishNotificationEvent(ctx context.Context, event *mq.NotificationEvent) error {
	f.notifications = append(f.notifications, event)
	return nil
}

func likeEvent(videoID, userID int64) *mq.InteractionEvent {
	return &mq.InteractionEvent{
		Kind: mq.EventLike, VideoID: videoID, UserID: userID, IdempotencyKey: "k-1",
	}
}

func TestHandleAppliedLike(t *testing.T) {
	store := &fakeCounterStore{
		applied: &db.AppliedEvent{Column: "likes", OldValue: 1, NewValue: 2},
		author:  9,
	}
	inv := &fakeInvalidator{}
	producer := &fakeProducer{}
	a := NewCounterAggregator(store, inv, producer)

	applied, err := a.Handle(context.Background(), likeEvent(5, 2))
	if err != nil {
		t.Fatal(err)
	}
	if applied.Skipped {
		t.Fatal("event should not be skipped")
	}

	if len(inv.deleted) != 1 || inv.deleted[0] != "video:5:likes" {
		t.Errorf("deleted keys = %v, want [video:5:likes]", inv.deleted)
	}
	if len(inv.patterns) != 0 {
		t.Errorf("no feed invalidation expected below trending threshold, got %v", inv.patterns)
	}
	if len(producer.notifications) != 1 {
		t.Fatalf("want 1 notification, got %d", len(producer.notifications))
	}
	n := producer.notifications[0]
	if n.ReceiverID != 9 || n.SenderID != 2 || n.Type != "like" || n.VideoID != 5 {
		t.Errorf("notification = %+v", n)
	}
}

func TestHandleDuplicateSkipped(t *testing.T) {
	store := &fakeCounterStore{applied: &db.AppliedEvent{Skipped: true, Column: "likes"}}
	inv := &fakeInvalidator{}
	producer := &fakeProducer{}
	a := NewCounterAggregator(store, inv, producer)

	applied, err := a.Handle(context.Background(), likeEvent(5, 2))
	if err != nil {
		t.Fatal(err)
	}
	if !applied.Skipped {
		t.Fatal("duplicate must be reported as skipped")
	}
	if len(inv.deleted) != 0 || len(inv.patterns) != 0 {
		t.Error("duplicate must not touch cache")
	}
	if len(producer.notifications) != 0 {
		t.Error("duplicate must not notify")
	}
}

func TestHandleTrendingCrossInvalidatesFeed(t *testing.T) {
	store := &fakeCounterStore{
		applied: &db.AppliedEvent{Column: "likes", OldValue: 999, NewValue: 1000},
	}
	inv := &fakeInvalidator{}
	a := NewCounterAggregator(store, inv, nil)

	if _, err := a.Handle(context.Background(), likeEvent(5, 2)); err != nil {
		t.Fatal(err)
	}

	want := []string{"feed:*:1", "feed:*:2", "feed:*:3"}
	if len(inv.patterns) != len(want) {
		t.Fatalf("patterns = %v, want %v", inv.patterns, want)
	}
	for i := range want {
		if inv.patterns[i] != want[i] {
			t.Errorf("patterns[%d] = %q, want %q", i, inv.patterns[i], want[i])
		}
	}
}

func TestHandleRejectsInvalidEvent(t *testing.T) {
	store := &fakeCounterStore{}
	a := NewCounterAggregator(store, &fakeInvalidator{}, nil)

	_, err := a.Handle(context.Background(), &mq.InteractionEvent{Kind: "SHARE", VideoID: 1})
	if !errno.IsParamErr(err) {
		t.Fatalf("want parameter error, got %v", err)
	}
	if store.applyN != 0 {
		t.Error("invalid event must not reach the store")
	}
}

func TestHandleStoreFailurePropagates(t *testing.T) {
	wantErr := errors.New("deadlock")
	a := NewCounterAggregator(&fakeCounterStore{applyErr: wantErr}, &fakeInvalidator{}, nil)

	_, err := a.Handle(context.Background(), likeEvent(5, 2))
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}

func TestHandleCacheFailureDoesNotFailEvent(t *testing.T) {
	store := &fakeCounterStore{applied: &db.AppliedEvent{Column: "views", OldValue: 0, NewValue: 1}}
	inv := &fakeInvalidator{deleteErr: errors.New("redis down")}
	a := NewCounterAggregator(store, inv, nil)

	event := &mq.InteractionEvent{Kind: mq.EventView, VideoID: 5, IdempotencyKey: "k-2"}
	if _, err := a.Handle(context.Background(), event); err != nil {
		t.Fatalf("invalidation failure must not fail the event: %v", err)
	}
}

func TestSelfInteractionNoNotification(t *testing.T) {
	store := &fakeCounterStore{
		applied: &db.AppliedEvent{Column: "likes", OldValue: 0, NewValue: 1},
		author:  2,
	}
	producer := &fakeProducer{}
	a := NewCounterAggregator(store, &fakeInvalidator{}, producer)

	if _, err := a.Handle(context.Background(), likeEvent(5, 2)); err != nil {
		t.Fatal(err)
	}
	if len(producer.notifications) != 0 {
		t.Error("self interaction must not notify the author")
	}
}

func TestHandleVideoEvent(t *testing.T) {
	t.Run("publish", func(t *testing.T) {
		store := &fakeCounterStore{}
		inv := &fakeInvalidator{}
		a := NewCounterAggregator(store, inv, nil)

		event := &mq.VideoEvent{Type: mq.VideoEventPublish, VideoID: 7, EventID: "e1"}
		if err := a.HandleVideoEvent(context.Background(), event); err != nil {
			t.Fatal(err)
		}
		if len(store.ensured) != 1 || store.ensured[0] != 7 {
			t.Errorf("ensured = %v, want [7]", store.ensured)
		}
		if len(inv.patterns) != constants.FeedInvalidatePages {
			t.Errorf("feed pages invalidated = %d, want %d", len(inv.patterns), constants.FeedInvalidatePages)
		}
	})

	t.Run("delete", func(t *testing.T) {
		store := &fakeCounterStore{}
		inv := &fakeInvalidator{}
		a := NewCounterAggregator(store, inv, nil)

		event := &mq.VideoEvent{Type: mq.VideoEventDelete, VideoID: 7, EventID: "e2"}
		if err := a.HandleVideoEvent(context.Background(), event); err != nil {
			t.Fatal(err)
		}
		if len(store.deleted) != 1 || store.deleted[0] != 7 {
			t.Errorf("deleted = %v, want [7]", store.deleted)
		}
		wantKeys := []string{"video:7:views", "video:7:likes", "video:7:comments"}
		if len(inv.deleted) != len(wantKeys) {
			t.Fatalf("deleted keys = %v, want %v", inv.deleted, wantKeys)
		}
		for i := range wantKeys {
			if inv.deleted[i] != wantKeys[i] {
				t.Errorf("deleted[%d] = %q, want %q", i, inv.deleted[i], wantKeys[i])
			}
		}
	})

	t.Run("invalid", func(t *testing.T) {
		a := NewCounterAggregator(&fakeCounterStore{}, &fakeInvalidator{}, nil)
		err := a.HandleVideoEvent(context.Background(), &mq.VideoEvent{Type: "archive", VideoID: 7, EventID: "e3"})
		if !errno.IsParamErr(err) {
			t.Fatalf("want parameter error, got %v", err)
		}
	})
}

func TestCrossedTrending(t *testing.T) {
	cases := []struct {
		oldValue, newValue int64
		want               bool
	}{
		{999, 1000, true},
		{1000, 999, true},
		{0, 1, false},
		{1000, 1001, false},
		{999, 998, false},
	}
	for _, c := range cases {
		if got := crossedTrending(c.oldValue, c.newValue); got != c.want {
			t.Errorf("crossedTrending(%d, %d) = %v, want %v", c.oldValue, c.newValue, got, c.want)
		}
	}
}
