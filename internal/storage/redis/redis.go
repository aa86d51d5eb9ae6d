package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Dzaakk/playtime-gateway/internal/limiter"
)

const DefaultKeyPrefix = "ratelimit"

// recordIfBelow counts window members, and only when under the ceiling
// adds the new one, trims expired members and moves the key expiry.
var recordIfBelow = redis.NewScript(`
local count = redis.call('ZCOUNT', KEYS[1], ARGV[1], '+inf')
if count >= tonumber(ARGV[2]) then
	return 0
end
redis.call('ZADD', KEYS[1], ARGV[3], ARGV[4])
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', '(' .. ARGV[5])
redis.call('PEXPIREAT', KEYS[1], ARGV[6])
return 1
`)

// RedisStore keeps one sorted set per identity. Scores are record
// timestamps in milliseconds.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) key(identity string) string {
	return fmt.Sprintf("%s:%s", r.prefix, identity)
}

func (r *RedisStore) CountSince(ctx context.Context, identity string, since time.Time) (int, error) {
	min := strconv.FormatInt(since.UnixMilli(), 10)

	count, err := r.client.ZCount(ctx, r.key(identity), min, "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("redis zcount: %w", err)
	}
	return int(count), nil
}

func (r *RedisStore) Record(ctx context.Context, rec limiter.Record) error {
	key := r.key(rec.Identity)

	pipe := r.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(rec.Timestamp.UnixMilli()), Member: member(rec)})
	pipe.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatInt(expiredBefore(rec), 10))
	pipe.PExpireAt(ctx, key, rec.ExpireAt)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline error: %w", err)
	}
	return nil
}

func (r *RedisStore) RecordIfBelow(ctx context.Context, rec limiter.Record, since time.Time, max int) (bool, error) {
	stored, err := recordIfBelow.Run(ctx, r.client, []string{r.key(rec.Identity)},
		since.UnixMilli(),
		max,
		rec.Timestamp.UnixMilli(),
		member(rec),
		expiredBefore(rec),
		rec.ExpireAt.UnixMilli(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("redis record script: %w", err)
	}
	return stored == 1, nil
}

// member keeps records that share a millisecond distinct.
func member(rec limiter.Record) string {
	return strconv.FormatInt(rec.Timestamp.UnixMilli(), 10) + "-" + uuid.NewString()
}

// expiredBefore is the score below which members have outlived their
// retention, given that every record of an identity has the same one.
func expiredBefore(rec limiter.Record) int64 {
	retention := rec.ExpireAt.Sub(rec.Timestamp)
	return rec.Timestamp.Add(-retention).UnixMilli()
}

var _ limiter.CeilingStore = (*RedisStore)(nil)
