package dynamo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"

	"github.com/Dzaakk/playtime-gateway/internal/limiter"
)

func TestDynamoStoreRecordAndCount(t *testing.T) {
	db := &fakeDynamo{}
	s := NewDynamoStore(db, "")
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		ts := now.Add(time.Duration(-i*20) * time.Second)
		if err := s.Record(ctx, limiter.Record{Identity: "xbox:1.2.3.4", Timestamp: ts, ExpireAt: ts.Add(2 * time.Minute)}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	count, err := s.CountSince(ctx, "xbox:1.2.3.4", now.Add(-30*time.Second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 got %d", count)
	}

	got := db.items[0]
	if aws.StringValue(got[attrTimestamp].N) != "1740830400000" {
		t.Fatalf("expected millisecond sort key, got %s", aws.StringValue(got[attrTimestamp].N))
	}
	if aws.StringValue(got[attrTTL].N) != "1740830520" {
		t.Fatalf("expected ttl in seconds, got %s", aws.StringValue(got[attrTTL].N))
	}
}

func TestDynamoStoreCountPaginates(t *testing.T) {
	db := &fakeDynamo{pageSize: 2}
	s := NewDynamoStore(db, "")
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 5; i++ {
		ts := now.Add(time.Duration(i) * time.Second)
		s.Record(ctx, limiter.Record{Identity: "k", Timestamp: ts, ExpireAt: ts.Add(time.Minute)})
	}

	count, err := s.CountSince(ctx, "k", now.Add(-time.Second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 5 {
		t.Fatalf("expected 5 got %d", count)
	}
	if db.queries != 3 {
		t.Fatalf("expected 3 pages got %d", db.queries)
	}
}

func TestDynamoStoreSameMillisecond(t *testing.T) {
	db := &fakeDynamo{}
	s := NewDynamoStore(db, "")
	ctx := context.Background()
	now := time.Now()
	rec := limiter.Record{Identity: "k", Timestamp: now, ExpireAt: now.Add(time.Minute)}

	for i := 0; i < 3; i++ {
		if err := s.Record(ctx, rec); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	count, _ := s.CountSince(ctx, "k", now)
	if count != 3 {
		t.Fatalf("expected 3 distinct items got %d", count)
	}
}

func TestDynamoStoreErrors(t *testing.T) {
	db := &fakeDynamo{err: errors.New("throttled")}
	s := NewDynamoStore(db, "")
	ctx := context.Background()

	if _, err := s.CountSince(ctx, "k", time.Now()); err == nil {
		t.Fatal("expected query error")
	}
	if err := s.Record(ctx, limiter.Record{Identity: "k", Timestamp: time.Now()}); err == nil {
		t.Fatal("expected put error")
	}

	l := limiter.NewLimiter(s, limiter.Config{}, nil)
	if !l.Allow(ctx, "k") {
		t.Fatal("expected limiter to fail open")
	}
}
