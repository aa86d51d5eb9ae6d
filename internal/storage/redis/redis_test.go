package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Dzaakk/playtime-gateway/internal/limiter"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func record(identity string, ts time.Time) limiter.Record {
	return limiter.Record{Identity: identity, Timestamp: ts, ExpireAt: ts.Add(2 * time.Minute)}
}

func TestRedisStoreRecordAndCount(t *testing.T) {
	_, client := newTestRedis(t)
	s := NewRedisStore(client, "")
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 3; i++ {
		if err := s.Record(ctx, record("steam:1.2.3.4", now.Add(time.Duration(-i*20)*time.Second))); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	count, err := s.CountSince(ctx, "steam:1.2.3.4", now.Add(-30*time.Second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 got %d", count)
	}

	count, err = s.CountSince(ctx, "steam:9.9.9.9", now.Add(-time.Minute))
	if err != nil || count != 0 {
		t.Fatalf("expected 0 for unknown identity got %d (%v)", count, err)
	}
}

func TestRedisStoreSameMillisecond(t *testing.T) {
	_, client := newTestRedis(t)
	s := NewRedisStore(client, "")
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 5; i++ {
		s.Record(ctx, record("k", now))
	}

	count, _ := s.CountSince(ctx, "k", now)
	if count != 5 {
		t.Fatalf("expected 5 distinct members got %d", count)
	}
}

func TestRedisStoreKeyExpiry(t *testing.T) {
	mr, client := newTestRedis(t)
	s := NewRedisStore(client, "rl")
	ctx := context.Background()
	now := time.Now()

	if err := s.Record(ctx, record("k", now)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !mr.Exists("rl:k") {
		t.Fatal("expected key with custom prefix")
	}
	if ttl := mr.TTL("rl:k"); ttl <= 0 || ttl > 2*time.Minute {
		t.Fatalf("unexpected ttl %s", ttl)
	}

	mr.FastForward(3 * time.Minute)
	if mr.Exists("rl:k") {
		t.Fatal("expected key to expire")
	}
}

func TestRedisStoreTrimsExpiredMembers(t *testing.T) {
	mr, client := newTestRedis(t)
	s := NewRedisStore(client, "")
	ctx := context.Background()
	now := time.Now()

	s.Record(ctx, record("k", now.Add(-5*time.Minute)))
	s.Record(ctx, record("k", now))

	members, err := mr.ZMembers("ratelimit:k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("expected expired member to be trimmed, got %d members", len(members))
	}
}

func TestRedisStoreRecordIfBelow(t *testing.T) {
	_, client := newTestRedis(t)
	s := NewRedisStore(client, "")
	ctx := context.Background()
	now := time.Now()
	since := now.Add(-time.Minute)

	for i := 0; i < 3; i++ {
		ok, err := s.RecordIfBelow(ctx, record("k", now), since, 3)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok {
			t.Fatalf("expected record %d to be stored", i+1)
		}
	}

	ok, err := s.RecordIfBelow(ctx, record("k", now), since, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected 4th record to be rejected")
	}

	count, _ := s.CountSince(ctx, "k", since)
	if count != 3 {
		t.Fatalf("expected 3 got %d", count)
	}
}

func TestRedisStoreConnectionError(t *testing.T) {
	mr, client := newTestRedis(t)
	s := NewRedisStore(client, "")
	mr.Close()

	if _, err := s.CountSince(context.Background(), "k", time.Now()); err == nil {
		t.Fatal("expected error when redis is down")
	}
	if err := s.Record(context.Background(), record("k", time.Now())); err == nil {
		t.Fatal("expected error when redis is down")
	}
}

func TestRedisStoreWithLimiter(t *testing.T) {
	_, client := newTestRedis(t)
	l := limiter.NewLimiter(NewRedisStore(client, ""), limiter.Config{Window: time.Minute, MaxRequests: 10}, nil)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if !l.Allow(ctx, "riot:10.0.0.1") {
			t.Fatalf("expected allowed on request %d", i+1)
		}
	}
	if l.Allow(ctx, "riot:10.0.0.1") {
		t.Fatal("expected 11th request to be denied")
	}
}
