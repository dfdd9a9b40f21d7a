package mq

import (
	"testing"

	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/pkg/errno"
)

func TestInteractionEventValidate(t *testing.T) {
	cases := []struct {
		name    string
		event   InteractionEvent
		wantErr bool
	}{
		{"like", InteractionEvent{Kind: EventLike, VideoID: 1, UserID: 2, IdempotencyKey: "k1"}, false},
		{"anonymous view", InteractionEvent{Kind: EventView, VideoID: 1, IdempotencyKey: "k2"}, false},
		{"uncomment", InteractionEvent{Kind: EventUncomment, VideoID: 1, UserID: 2, IdempotencyKey: "k3"}, false},
		{"unknown kind", InteractionEvent{Kind: "SHARE", VideoID: 1, UserID: 2, IdempotencyKey: "k4"}, true},
		{"zero video", InteractionEvent{Kind: EventLike, VideoID: 0, UserID: 2, IdempotencyKey: "k5"}, true},
		{"negative video", InteractionEvent{Kind: EventView, VideoID: -3, IdempotencyKey: "k6"}, true},
		{"anonymous like", InteractionEvent{Kind: EventLike, VideoID: 1, IdempotencyKey: "k7"}, true},
		{"missing key", InteractionEvent{Kind: EventLike, VideoID: 1, UserID: 2}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.event.Validate()
			if (err != nil) != c.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, c.wantErr)
			}
			if err != nil && !errno.IsParamErr(err) {
				t.Errorf("Validate() should return a parameter error, got %v", err)
			}
		})
	}
}

func TestCounterDelta(t *testing.T) {
	cases := []struct {
		kind   EventKind
		column string
		delta  int64
	}{
		{EventView, "views", 1},
		{EventLike, "likes", 1},
		{EventUnlike, "likes", -1},
		{EventComment, "comments", 1},
		{EventUncomment, "comments", -1},
		{"SHARE", "", 0},
	}
	for _, c := range cases {
		e := InteractionEvent{Kind: c.kind}
		column, delta := e.CounterDelta()
		if column != c.column || delta != c.delta {
			t.Errorf("CounterDelta(%s) = (%q, %d), want (%q, %d)",
				c.kind, column, delta, c.column, c.delta)
		}
	}
}

func TestInteractionEventFill(t *testing.T) {
	e := &InteractionEvent{Kind: EventLike, VideoID: 1, UserID: 2}
	e.Fill()
	if e.Timestamp == 0 {
		t.Error("Fill should set timestamp")
	}
	if e.IdempotencyKey == "" {
		t.Error("Fill should set idempotency key")
	}

	filled := &InteractionEvent{Kind: EventLike, VideoID: 1, UserID: 2,
		Timestamp: 42, IdempotencyKey: "fixed"}
	filled.Fill()
	if filled.Timestamp != 42 || filled.IdempotencyKey != "fixed" {
		t.Error("Fill must not overwrite existing values")
	}
}

func TestVideoEventValidate(t *testing.T) {
	cases := []struct {
		name    string
		event   VideoEvent
		wantErr bool
	}{
		{"publish", VideoEvent{Type: VideoEventPublish, VideoID: 1, EventID: "e1"}, false},
		{"delete", VideoEvent{Type: VideoEventDelete, VideoID: 1, EventID: "e2"}, false},
		{"unknown type", VideoEvent{Type: "archive", VideoID: 1, EventID: "e3"}, true},
		{"zero video", VideoEvent{Type: VideoEventPublish, VideoID: 0, EventID: "e4"}, true},
		{"missing event id", VideoEvent{Type: VideoEventDelete, VideoID: 1}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.event.Validate()
			if (err != nil) != c.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, c.wantErr)
			}
		})
	}
}
