package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/noteflow/pkg/domain/interfaces"
	"github.com/secmon-lab/noteflow/pkg/domain/model"
	"github.com/secmon-lab/noteflow/pkg/domain/types"
	"github.com/secmon-lab/noteflow/pkg/service/completion"
)

// MetricsUseCase aggregates tagging runs into hourly and daily buckets.
// Updates are serialised within the process only.
type MetricsUseCase struct {
	repo interfaces.Repository
	mu   sync.Mutex
	now  func() time.Time
}

func NewMetricsUseCase(repo interfaces.Repository) *MetricsUseCase {
	return &MetricsUseCase{repo: repo, now: time.Now}
}

var bucketGranularities = []types.Granularity{types.GranularityHourly, types.GranularityDaily}

// RecordTaggingRun folds outcome into its buckets and trims expired buckets.
func (uc *MetricsUseCase) RecordTaggingRun(ctx context.Context, outcome model.TaggingRunOutcome) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	at := outcome.At
	if at.IsZero() {
		at = uc.now()
	}

	for _, g := range bucketGranularities {
		start := g.Truncate(at)
		bucket, err := uc.repo.TaggingMetrics().Get(ctx, g, start)
		if err != nil {
			return goerr.Wrap(err, "failed to get metrics bucket", goerr.V("granularity", g))
		}
		if bucket == nil {
			bucket = &model.TaggingMetrics{Granularity: g, BucketStart: start}
		}

		bucket.Record(outcome)
		if err := uc.repo.TaggingMetrics().Put(ctx, bucket); err != nil {
			return goerr.Wrap(err, "failed to put metrics bucket", goerr.V("granularity", g))
		}

		if _, err := uc.repo.TaggingMetrics().DeleteBefore(ctx, g, start.Add(-g.Retention())); err != nil {
			return goerr.Wrap(err, "failed to trim metrics buckets", goerr.V("granularity", g))
		}
	}
	return nil
}

// TaggingSummary returns buckets of granularity starting at or after since.
// A zero since covers the whole retention window.
func (uc *MetricsUseCase) TaggingSummary(ctx context.Context, granularity types.Granularity, since time.Time) ([]*model.TaggingMetrics, error) {
	if since.IsZero() {
		since = granularity.Truncate(uc.now()).Add(-granularity.Retention())
	}

	buckets, err := uc.repo.TaggingMetrics().List(ctx, granularity, since)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list metrics buckets", goerr.V("granularity", granularity))
	}
	return buckets, nil
}

// classifyTaggingError maps an error of a tagging run to the metrics taxonomy
func classifyTaggingError(err error) types.TaggingErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, completion.ErrUnavailable):
		return types.TaggingErrorLLMUnavailable
	case errors.Is(err, ErrMissingResponseKey):
		return types.TaggingErrorMissingKey
	case errors.Is(err, ErrMalformedResponse):
		return types.TaggingErrorParse
	default:
		return types.TaggingErrorUnknown
	}
}
