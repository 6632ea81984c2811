package redis

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/alem-hub/course-hub/internal/application/query"
	"github.com/alem-hub/course-hub/pkg/circuitbreaker"
	"github.com/alem-hub/course-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// OUTLINE CACHE
// Course outlines keyed by course id. Each entry carries a blake2b
// fingerprint of its content so an unchanged outline only gets its TTL
// refreshed.
// ══════════════════════════════════════════════════════════════════════════════

// OutlineCache implements query.OutlineCache on top of Cache.
type OutlineCache struct {
	cache   *Cache
	ttl     time.Duration
	retrier *retry.Retrier
	breaker *circuitbreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewOutlineCache creates an outline cache. A non-positive ttl uses
// TTLCourseOutline.
func NewOutlineCache(cache *Cache, ttl time.Duration, logger *slog.Logger) *OutlineCache {
	if ttl <= 0 {
		ttl = TTLCourseOutline
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "outline_cache")
	return &OutlineCache{
		cache:   cache,
		ttl:     ttl,
		retrier: retry.RedisRetrier(),
		breaker: circuitbreaker.CacheBreaker(func(name string, from, to circuitbreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		}),
		logger: logger,
	}
}

// Breaker exposes the breaker guarding reads and writes.
func (c *OutlineCache) Breaker() *circuitbreaker.CircuitBreaker {
	return c.breaker
}

// Get implements query.OutlineCache.
func (c *OutlineCache) Get(ctx context.Context, courseID int64) (*query.CourseOutlineDTO, error) {
	var outline query.CourseOutlineDTO
	var err error
	// a miss is a healthy answer; only transport errors reach the breaker
	breakerErr := c.breaker.Execute(ctx, func(ctx context.Context) error {
		err = c.retrier.Do(ctx, func(ctx context.Context) error {
			err := c.cache.Get(ctx, CourseOutlineKey(courseID), &outline)
			if errors.Is(err, ErrCacheMiss) || errors.Is(err, ErrCacheSerialization) {
				return retry.Permanent(err)
			}
			return err
		})
		if errors.Is(err, ErrCacheMiss) || errors.Is(err, ErrCacheSerialization) {
			return nil
		}
		return err
	})
	if errors.Is(breakerErr, circuitbreaker.ErrCircuitOpen) || errors.Is(breakerErr, circuitbreaker.ErrTooManyRequests) {
		return nil, breakerErr
	}
	switch {
	case err == nil:
		return &outline, nil
	case errors.Is(err, ErrCacheMiss):
		return nil, query.ErrOutlineCacheMiss
	case errors.Is(err, ErrCacheSerialization):
		// stale layout from an older build
		c.logger.Warn("dropping undecodable outline", "course_id", courseID, "error", err)
		_ = c.Invalidate(ctx, courseID)
		return nil, query.ErrOutlineCacheMiss
	default:
		return nil, fmt.Errorf("get outline %d: %w", courseID, err)
	}
}

// Set implements query.OutlineCache.
func (c *OutlineCache) Set(ctx context.Context, outline *query.CourseOutlineDTO) error {
	if outline == nil {
		return ErrCacheNilValue
	}
	fp, err := Fingerprint(outline)
	if err != nil {
		return err
	}
	outlineKey := CourseOutlineKey(outline.CourseID)
	fpKey := CourseFingerprintKey(outline.CourseID)

	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.write(ctx, outline, outlineKey, fpKey, fp)
	})
}

func (c *OutlineCache) write(ctx context.Context, outline *query.CourseOutlineDTO, outlineKey, fpKey, fp string) error {
	return c.retrier.Do(ctx, func(ctx context.Context) error {
		current, err := c.cache.GetString(ctx, fpKey)
		if err != nil && !errors.Is(err, ErrCacheMiss) {
			return err
		}
		if current == fp {
			ok, err := c.cache.Client().Expire(ctx, outlineKey, c.ttl).Result()
			if err != nil {
				return err
			}
			if ok {
				_ = c.cache.Client().Expire(ctx, fpKey, c.ttl).Err()
				return nil
			}
		}

		pipe := c.cache.Client().TxPipeline()
		data, err := json.Marshal(outline)
		if err != nil {
			return retry.Permanent(fmt.Errorf("%w: %v", ErrCacheSerialization, err))
		}
		pipe.Set(ctx, outlineKey, data, c.ttl)
		pipe.Set(ctx, fpKey, fp, c.ttl)
		_, err = pipe.Exec(ctx)
		return err
	})
}

// Invalidate implements query.OutlineCache and command.OutlineInvalidator.
func (c *OutlineCache) Invalidate(ctx context.Context, courseID int64) error {
	return c.retrier.Do(ctx, func(ctx context.Context) error {
		return c.cache.Delete(ctx, CourseOutlineKey(courseID), CourseFingerprintKey(courseID))
	})
}

// InvalidateAll drops every cached outline. Used after a bulk import.
func (c *OutlineCache) InvalidateAll(ctx context.Context) error {
	n, err := c.cache.DeleteByPattern(ctx, PrefixCourseOutline+"*")
	if err != nil {
		return fmt.Errorf("invalidate outlines: %w", err)
	}
	if _, err := c.cache.DeleteByPattern(ctx, PrefixCourseFingerprint+"*"); err != nil {
		return fmt.Errorf("invalidate fingerprints: %w", err)
	}
	c.logger.Info("outline cache cleared", "entries", n)
	return nil
}

// Fingerprint hashes the content of an outline. GeneratedAt is left out so
// two renders of the same course state hash equally.
func Fingerprint(outline *query.CourseOutlineDTO) (string, error) {
	content := *outline
	content.GeneratedAt = time.Time{}
	data, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
