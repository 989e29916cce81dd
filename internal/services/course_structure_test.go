package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	repotest "github.com/alanpentz/course-platform/internal/data/repos/testutil"
	"github.com/alanpentz/course-platform/internal/observability"
)

type mapStructureCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
	ttls   []time.Duration
}

func newMapStructureCache() *mapStructureCache {
	return &mapStructureCache{data: map[string][]byte{}}
}

func (c *mapStructureCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	v, ok := c.data[key]
	if !ok {
		return nil, errCacheMiss
	}
	return v, nil
}

func (c *mapStructureCache) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = val
	c.ttls = append(c.ttls, ttl)
	return nil
}

func (c *mapStructureCache) Del(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

type countingStructure struct {
	mu    sync.Mutex
	ids   map[uuid.UUID][]uuid.UUID
	loads int
}

func (p *countingStructure) GetLessonIDs(_ context.Context, courseID uuid.UUID) ([]uuid.UUID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loads++
	return append([]uuid.UUID(nil), p.ids[courseID]...), nil
}

func (p *countingStructure) RefreshLessonIDs(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error) {
	return p.GetLessonIDs(ctx, courseID)
}

func (p *countingStructure) InvalidateCourse(context.Context, uuid.UUID) error { return nil }

func TestCachedCourseStructureHitMissInvalidate(t *testing.T) {
	ctx := context.Background()
	courseID := uuid.New()
	l1, l2 := uuid.New(), uuid.New()
	inner := &countingStructure{ids: map[uuid.UUID][]uuid.UUID{courseID: {l1, l2}}}
	cache := newMapStructureCache()
	metrics := observability.New()
	p := newCachedCourseStructure(repotest.Logger(t), inner, cache, time.Minute, metrics)

	got, err := p.GetLessonIDs(ctx, courseID)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{l1, l2}, got)
	got, err = p.GetLessonIDs(ctx, courseID)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{l1, l2}, got)
	require.Equal(t, 1, inner.loads)
	require.Equal(t, []time.Duration{time.Minute}, cache.ttls)

	inner.ids[courseID] = []uuid.UUID{l1}
	require.NoError(t, p.InvalidateCourse(ctx, courseID))
	got, err = p.GetLessonIDs(ctx, courseID)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{l1}, got)
	require.Equal(t, 2, inner.loads)
}

func TestCachedCourseStructureRefreshSkipsCache(t *testing.T) {
	ctx := context.Background()
	courseID := uuid.New()
	l1, l2 := uuid.New(), uuid.New()
	inner := &countingStructure{ids: map[uuid.UUID][]uuid.UUID{courseID: {l1}}}
	cache := newMapStructureCache()
	p := newCachedCourseStructure(repotest.Logger(t), inner, cache, time.Minute, observability.New())

	_, err := p.GetLessonIDs(ctx, courseID)
	require.NoError(t, err)

	inner.ids[courseID] = []uuid.UUID{l1, l2}
	got, err := p.RefreshLessonIDs(ctx, courseID)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{l1, l2}, got)
	require.Equal(t, 2, inner.loads)

	got, err = p.GetLessonIDs(ctx, courseID)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{l1, l2}, got)
	require.Equal(t, 2, inner.loads)
}

func TestCachedCourseStructureFallsBackOnCacheError(t *testing.T) {
	ctx := context.Background()
	courseID := uuid.New()
	inner := &countingStructure{ids: map[uuid.UUID][]uuid.UUID{courseID: {uuid.New()}}}
	cache := newMapStructureCache()
	cache.getErr = errors.New("connection refused")
	p := newCachedCourseStructure(repotest.Logger(t), inner, cache, time.Minute, nil)

	got, err := p.GetLessonIDs(ctx, courseID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	got, err = p.GetLessonIDs(ctx, courseID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, 2, inner.loads)
}

func TestCachedCourseStructureDisabledWithoutClient(t *testing.T) {
	ctx := context.Background()
	courseID := uuid.New()
	inner := &countingStructure{ids: map[uuid.UUID][]uuid.UUID{courseID: {uuid.New()}}}
	p := NewCachedCourseStructureProvider(repotest.Logger(t), inner, nil, time.Minute, nil)

	for i := 0; i < 2; i++ {
		_, err := p.GetLessonIDs(ctx, courseID)
		require.NoError(t, err)
	}
	require.Equal(t, 2, inner.loads)
	require.NoError(t, p.InvalidateCourse(ctx, courseID))
}

func TestCourseStructureProviderReadsDatabase(t *testing.T) {
	db := repotest.Tx(t, repotest.DB(t))
	ctx := context.Background()
	course := repotest.SeedCourseWithLessons(t, ctx, db, 4, 2)
	h := newHarness(t, db)

	got, err := h.structure.GetLessonIDs(ctx, course.Course.ID)
	require.NoError(t, err)
	require.Equal(t, course.LessonIDs(), got)
}
