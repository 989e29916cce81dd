package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/alanpentz/course-platform/internal/data/repos"
	"github.com/alanpentz/course-platform/internal/observability"
	"github.com/alanpentz/course-platform/internal/pkg/dbctx"
	"github.com/alanpentz/course-platform/internal/platform/logger"
)

// CourseStructureProvider resolves the ordered lesson ids of a course.
type CourseStructureProvider interface {
	GetLessonIDs(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error)
	// RefreshLessonIDs reads the lesson set from storage, skipping any cache,
	// and stores the result for later GetLessonIDs calls.
	RefreshLessonIDs(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error)
	InvalidateCourse(ctx context.Context, courseID uuid.UUID) error
}

type courseStructureProvider struct {
	log     *logger.Logger
	courses repos.CourseRepo
}

func NewCourseStructureProvider(log *logger.Logger, courses repos.CourseRepo) CourseStructureProvider {
	return &courseStructureProvider{
		log:     log.With("service", "CourseStructureProvider"),
		courses: courses,
	}
}

func (p *courseStructureProvider) GetLessonIDs(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error) {
	if courseID == uuid.Nil {
		return nil, fmt.Errorf("course id required")
	}
	return p.courses.ListLessonIDs(dbctx.Context{Ctx: ctx}, courseID)
}

func (p *courseStructureProvider) RefreshLessonIDs(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error) {
	return p.GetLessonIDs(ctx, courseID)
}

func (p *courseStructureProvider) InvalidateCourse(context.Context, uuid.UUID) error {
	return nil
}

var errCacheMiss = errors.New("cache miss")

// structureCache is the slice of redis the course cache needs.
type structureCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

type redisStructureCache struct {
	rdb goredis.UniversalClient
}

func (c redisStructureCache) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, errCacheMiss
	}
	return raw, err
}

func (c redisStructureCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, val, ttl).Err()
}

func (c redisStructureCache) Del(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}

type cachedCourseStructure struct {
	log     *logger.Logger
	next    CourseStructureProvider
	cache   structureCache
	ttl     time.Duration
	metrics *observability.Metrics
	group   singleflight.Group
}

// NewCachedCourseStructureProvider wraps next with a redis read-through cache.
// Concurrent misses for one course share a single load. A nil client or a
// non-positive ttl disables the cache but keeps load coalescing.
func NewCachedCourseStructureProvider(log *logger.Logger, next CourseStructureProvider, rdb goredis.UniversalClient, ttl time.Duration, metrics *observability.Metrics) CourseStructureProvider {
	var cache structureCache
	if rdb != nil && ttl > 0 {
		cache = redisStructureCache{rdb: rdb}
	}
	return newCachedCourseStructure(log, next, cache, ttl, metrics)
}

func newCachedCourseStructure(log *logger.Logger, next CourseStructureProvider, cache structureCache, ttl time.Duration, metrics *observability.Metrics) *cachedCourseStructure {
	return &cachedCourseStructure{
		log:     log.With("service", "CachedCourseStructure"),
		next:    next,
		cache:   cache,
		ttl:     ttl,
		metrics: metrics,
	}
}

func courseStructureKey(courseID uuid.UUID) string {
	return "course_structure:v1:" + courseID.String()
}

func (c *cachedCourseStructure) GetLessonIDs(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error) {
	key := courseStructureKey(courseID)
	if c.cache != nil {
		raw, err := c.cache.Get(ctx, key)
		switch {
		case err == nil:
			var ids []uuid.UUID
			if jerr := json.Unmarshal(raw, &ids); jerr == nil {
				c.metrics.IncCourseCache("hit")
				return ids, nil
			}
			c.log.Warn("course structure cache entry unreadable", "course_id", courseID)
			c.metrics.IncCourseCache("error")
		case errors.Is(err, errCacheMiss):
			c.metrics.IncCourseCache("miss")
		default:
			c.log.Warn("course structure cache get failed", "course_id", courseID, "error", err)
			c.metrics.IncCourseCache("error")
		}
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		return c.load(ctx, courseID, c.next.GetLessonIDs)
	})
	if err != nil {
		return nil, err
	}
	ids, _ := v.([]uuid.UUID)
	return append([]uuid.UUID(nil), ids...), nil
}

// RefreshLessonIDs never joins an in-flight load: that load may have started
// before the caller's write and would hand back the old set.
func (c *cachedCourseStructure) RefreshLessonIDs(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error) {
	c.group.Forget(courseStructureKey(courseID))
	ids, err := c.load(ctx, courseID, c.next.RefreshLessonIDs)
	if err != nil {
		return nil, err
	}
	c.metrics.IncCourseCache("refresh")
	return ids, nil
}

func (c *cachedCourseStructure) load(ctx context.Context, courseID uuid.UUID, fetch func(context.Context, uuid.UUID) ([]uuid.UUID, error)) ([]uuid.UUID, error) {
	ids, err := fetch(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		if raw, jerr := json.Marshal(ids); jerr == nil {
			if serr := c.cache.Set(ctx, courseStructureKey(courseID), raw, c.ttl); serr != nil {
				c.log.Warn("course structure cache set failed", "course_id", courseID, "error", serr)
			}
		}
	}
	return ids, nil
}

func (c *cachedCourseStructure) InvalidateCourse(ctx context.Context, courseID uuid.UUID) error {
	key := courseStructureKey(courseID)
	c.group.Forget(key)
	if err := c.next.InvalidateCourse(ctx, courseID); err != nil {
		return err
	}
	if c.cache == nil {
		return nil
	}
	return c.cache.Del(ctx, key)
}
