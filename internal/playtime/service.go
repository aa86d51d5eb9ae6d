package playtime

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const DefaultCacheTTL = 60 * time.Second

var ErrUnknownPlatform = errors.New("unknown platform")

// Cache stores normalized responses. Absent and expired keys both report
// ok=false. A ttl of zero means the implementation's default.
type Cache interface {
	Get(ctx context.Context, key string) (Response, bool, error)
	Set(ctx context.Context, key string, value Response, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Recorder receives cache and adapter outcomes, typically for metrics.
type Recorder interface {
	CacheLookup(platform string, hit bool)
	AdapterResult(platform string, resp Response, elapsed time.Duration)
}

func CacheKey(platform, subjectID string) string {
	return platform + ":" + subjectID
}

// Service is the read-through core of a playtime request: cache lookup,
// adapter call on miss, cache fill.
type Service struct {
	adapters map[string]Adapter
	cache    Cache
	ttl      time.Duration
	logger   *slog.Logger
	recorder Recorder
}

func NewService(cache Cache, ttl time.Duration, logger *slog.Logger, adapters ...Adapter) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	byName := make(map[string]Adapter, len(adapters))
	for _, a := range adapters {
		byName[a.Platform()] = a
	}

	return &Service{
		adapters: byName,
		cache:    cache,
		ttl:      ttl,
		logger:   logger,
	}
}

func (s *Service) WithRecorder(r Recorder) *Service {
	s.recorder = r
	return s
}

func (s *Service) Adapter(platform string) (Adapter, bool) {
	a, ok := s.adapters[platform]
	return a, ok
}

func (s *Service) Platforms() []string {
	out := make([]string, 0, len(s.adapters))
	for name := range s.adapters {
		out = append(out, name)
	}
	return out
}

// Lookup returns the cached response for platform:subjectID or fetches and
// caches a fresh one. Recoverable failures are cached like successes so a
// broken vendor path is not hammered within the TTL.
func (s *Service) Lookup(ctx context.Context, platform, subjectID string) (Response, error) {
	adapter, ok := s.adapters[platform]
	if !ok {
		return Response{}, ErrUnknownPlatform
	}

	key := CacheKey(platform, subjectID)

	if s.cache != nil {
		cached, hit, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("cache lookup failed", "key", key, "error", err)
		}
		if s.recorder != nil {
			s.recorder.CacheLookup(platform, hit && err == nil)
		}
		if err == nil && hit {
			return cached, nil
		}
	}

	start := time.Now()
	resp := adapter.FetchPlaytime(ctx, subjectID)
	if s.recorder != nil {
		s.recorder.AdapterResult(platform, resp, time.Since(start))
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, resp, s.ttl); err != nil {
			s.logger.Warn("cache fill failed", "key", key, "error", err)
		}
	}

	return resp, nil
}
