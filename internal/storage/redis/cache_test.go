package redis

import (
	"context"
	"testing"
	"time"

	"github.com/Dzaakk/playtime-gateway/internal/playtime"
)

func TestRedisCacheRoundTrip(t *testing.T) {
	mr, client := newTestRedis(t)
	c := NewRedisCache(client, "", time.Minute)
	ctx := context.Background()

	want := playtime.Success([]playtime.Game{
		{ID: "570", Name: "Dota 2", HoursPlayed: 12.5, CoverArt: "https://example.com/570.jpg", Platform: "steam"},
	})
	if err := c.Set(ctx, "steam:7656", want, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok, err := c.Get(ctx, "steam:7656")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if !got.Success || !got.Supported || len(got.Games) != 1 || got.Games[0] != want.Games[0] {
		t.Fatalf("unexpected response: %+v", got)
	}

	if ttl := mr.TTL("playtime:steam:7656"); ttl != time.Minute {
		t.Fatalf("expected default ttl of 1m got %s", ttl)
	}
}

func TestRedisCacheMissAndExpiry(t *testing.T) {
	mr, client := newTestRedis(t)
	c := NewRedisCache(client, "", 0)
	ctx := context.Background()

	if _, ok, err := c.Get(ctx, "riot:x"); ok || err != nil {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}

	c.Set(ctx, "riot:x", playtime.Failure("Failed to fetch Riot Games data"), 5*time.Second)
	mr.FastForward(6 * time.Second)

	if _, ok, _ := c.Get(ctx, "riot:x"); ok {
		t.Fatal("expected miss after ttl")
	}
}

func TestRedisCacheDelete(t *testing.T) {
	_, client := newTestRedis(t)
	c := NewRedisCache(client, "", time.Minute)
	ctx := context.Background()

	c.Set(ctx, "xbox:1", playtime.Success(nil), 0)
	if err := c.Delete(ctx, "xbox:1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "xbox:1"); ok {
		t.Fatal("expected miss after delete")
	}
}

func TestRedisCacheCorruptValue(t *testing.T) {
	mr, client := newTestRedis(t)
	c := NewRedisCache(client, "", time.Minute)

	mr.Set("playtime:epic:1", "{not json")
	if _, _, err := c.Get(context.Background(), "epic:1"); err == nil {
		t.Fatal("expected decode error")
	}
}
