package memory

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/secmon-lab/noteflow/pkg/domain/model"
	"github.com/secmon-lab/noteflow/pkg/domain/types"
)

type taggingMetricsRepository struct {
	mu      sync.RWMutex
	buckets map[string]*model.TaggingMetrics
}

func newTaggingMetricsRepository() *taggingMetricsRepository {
	return &taggingMetricsRepository{
		buckets: make(map[string]*model.TaggingMetrics),
	}
}

func copyTaggingMetrics(m *model.TaggingMetrics) *model.TaggingMetrics {
	cp := *m
	cp.Errors = maps.Clone(m.Errors)
	if cp.Errors == nil {
		cp.Errors = map[string]int{}
	}
	return &cp
}

func (r *taggingMetricsRepository) Get(ctx context.Context, granularity types.Granularity, bucketStart time.Time) (*model.TaggingMetrics, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.buckets[model.TaggingMetricsID(granularity, bucketStart)]
	if !ok {
		return nil, nil
	}
	return copyTaggingMetrics(m), nil
}

func (r *taggingMetricsRepository) Put(ctx context.Context, metrics *model.TaggingMetrics) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := copyTaggingMetrics(metrics)
	stored.UpdatedAt = time.Now().UTC()
	r.buckets[model.TaggingMetricsID(metrics.Granularity, metrics.BucketStart)] = stored
	return nil
}

func (r *taggingMetricsRepository) List(ctx context.Context, granularity types.Granularity, since time.Time) ([]*model.TaggingMetrics, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.TaggingMetrics, 0)
	for _, m := range r.buckets {
		if m.Granularity == granularity && !m.BucketStart.Before(since) {
			result = append(result, copyTaggingMetrics(m))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].BucketStart.Before(result[j].BucketStart)
	})
	return result, nil
}

func (r *taggingMetricsRepository) DeleteBefore(ctx context.Context, granularity types.Granularity, t time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	deleted := 0
	for id, m := range r.buckets {
		if m.Granularity == granularity && m.BucketStart.Before(t) {
			delete(r.buckets, id)
			deleted++
		}
	}
	return deleted, nil
}
