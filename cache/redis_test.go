package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/use-agent/regionscope/models"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	r := NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Hour)
	t.Cleanup(func() { _ = r.Close() })
	return r, mr
}

func TestRedis_RoundTrip(t *testing.T) {
	r, mr := newTestRedis(t)
	ctx := context.Background()

	r.Put(ctx, Key("abc"), success("abc"))

	got, ok := r.Get(ctx, Key("abc"))
	if !ok {
		t.Fatal("Get missed after Put")
	}
	if got.Identifier != "abc" || got.Data == nil || got.Data.Country != "Italy" {
		t.Errorf("Get = %+v, want abc/Italy", got)
	}
	if !got.Timestamp.Equal(t0) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, t0)
	}
	if ttl := mr.TTL(Key("abc")); ttl != time.Hour {
		t.Errorf("key ttl = %v, want 1h", ttl)
	}
}

func TestRedis_AgeRecheckedOnRead(t *testing.T) {
	r, _ := newTestRedis(t)
	now := t0
	r.now = func() time.Time { return now }
	ctx := context.Background()

	r.Put(ctx, Key("abc"), success("abc"))

	now = t0.Add(3599 * time.Second)
	if _, ok := r.Get(ctx, Key("abc")); !ok {
		t.Error("Get just under ttl missed")
	}
	now = t0.Add(3600 * time.Second)
	if _, ok := r.Get(ctx, Key("abc")); ok {
		t.Error("Get at exactly ttl hit")
	}
}

func TestRedis_KeyExpiry(t *testing.T) {
	r, mr := newTestRedis(t)
	ctx := context.Background()

	r.Put(ctx, Key("abc"), success("abc"))
	mr.FastForward(time.Hour)

	if _, ok := r.Get(ctx, Key("abc")); ok {
		t.Error("Get hit after redis expiry")
	}
}

func TestRedis_FailuresNotStored(t *testing.T) {
	r, mr := newTestRedis(t)
	ctx := context.Background()

	r.Put(ctx, Key("abc"), models.Failed("abc", errors.New("boom"), t0))

	if mr.Exists(Key("abc")) {
		t.Error("failure result was written to redis")
	}
}

func TestRedis_CorruptEntryIsMiss(t *testing.T) {
	r, mr := newTestRedis(t)
	if err := mr.Set(Key("abc"), "{not json"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if _, ok := r.Get(context.Background(), Key("abc")); ok {
		t.Error("corrupt entry was served")
	}
}

func TestRedis_ServerDownIsMiss(t *testing.T) {
	r, mr := newTestRedis(t)
	mr.Close()

	if _, ok := r.Get(context.Background(), Key("abc")); ok {
		t.Error("Get hit with server down")
	}
}
