package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"admission-gateway/middleware/admission/domain"

	"github.com/redis/go-redis/v9"
)

// RedisAdmissionStats persists admission outcome counters in Redis.
// Per-minute buckets carry a TTL so they age out on their own;
// cumulative totals and per-route counters never expire.
type RedisAdmissionStats struct {
	rdb *redis.Client

	prefix string
	ttl    time.Duration
	bucket string // "minute" (default) or "none"
}

type RedisAdmissionStatsOption func(*RedisAdmissionStats)

func WithAdmissionStatsPrefix(prefix string) RedisAdmissionStatsOption {
	return func(s *RedisAdmissionStats) { s.prefix = strings.Trim(prefix, ":") }
}

func WithAdmissionStatsTTL(d time.Duration) RedisAdmissionStatsOption {
	return func(s *RedisAdmissionStats) { s.ttl = d }
}

func WithAdmissionStatsBucket(bucket string) RedisAdmissionStatsOption {
	return func(s *RedisAdmissionStats) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

func NewRedisAdmissionStats(rdb *redis.Client, opts ...RedisAdmissionStatsOption) *RedisAdmissionStats {
	s := &RedisAdmissionStats{
		rdb:    rdb,
		prefix: "admission:stats",
		ttl:    24 * time.Hour,
		bucket: "minute",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisAdmissionStats) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	field := outcomeField(ev)
	totalKey := s.prefix + ":total"

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, totalKey, field, 1)

	if s.bucket == "minute" {
		bucketKey := fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
		pipe.HIncrBy(ctx, bucketKey, field, 1)
		if s.ttl > 0 {
			pipe.Expire(ctx, bucketKey, s.ttl)
		}
	}

	if ev.Method != "" || ev.Path != "" {
		routeKey := s.prefix + ":route"
		routeField := strings.TrimSpace(strings.TrimSpace(ev.Method) + " " + strings.TrimSpace(ev.Path))
		if routeField != "" {
			pipe.HIncrBy(ctx, routeKey, routeField+":"+field, 1)
		}
	}

	_, err := pipe.Exec(ctx)
	return err
}

func outcomeField(ev domain.StatsEvent) string {
	switch {
	case ev.Rejected:
		return "rejected"
	case ev.Outcome == domain.TimedOut:
		return "timed_out"
	case ev.Outcome == domain.Failed:
		return "failed"
	case ev.Wait > 0:
		return "queued_done"
	default:
		return "direct"
	}
}
