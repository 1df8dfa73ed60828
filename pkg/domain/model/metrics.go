package model

import (
	"fmt"
	"time"

	"github.com/secmon-lab/noteflow/pkg/domain/types"
)

// TaggingMetrics aggregates tagging runs within one time bucket.
type TaggingMetrics struct {
	Granularity     types.Granularity `json:"granularity"`
	BucketStart     time.Time         `json:"bucket_start"`
	Runs            int               `json:"runs"`
	Successes       int               `json:"successes"`
	Failures        int               `json:"failures"`
	TaggedItems     int               `json:"tagged_items"`
	FailedUpdates   int               `json:"failed_updates"`
	TotalDurationMS int64             `json:"total_duration_ms"`
	MaxDurationMS   int64             `json:"max_duration_ms"`
	Errors          map[string]int    `json:"errors"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// TaggingMetricsID is the storage key of a bucket.
func TaggingMetricsID(g types.Granularity, bucketStart time.Time) string {
	return fmt.Sprintf("%s_%s", g, bucketStart.UTC().Format("20060102T15"))
}

// TaggingRunOutcome is what the tagger reports after each run.
type TaggingRunOutcome struct {
	UserID        string
	Success       bool
	TaggedItems   int
	FailedUpdates int
	Duration      time.Duration
	ErrorKinds    []types.TaggingErrorKind
	At            time.Time
}

// Record folds one run into the bucket.
func (m *TaggingMetrics) Record(o TaggingRunOutcome) {
	m.Runs++
	if o.Success {
		m.Successes++
	} else {
		m.Failures++
	}
	m.TaggedItems += o.TaggedItems
	m.FailedUpdates += o.FailedUpdates

	ms := o.Duration.Milliseconds()
	m.TotalDurationMS += ms
	if ms > m.MaxDurationMS {
		m.MaxDurationMS = ms
	}

	if m.Errors == nil {
		m.Errors = map[string]int{}
	}
	for _, k := range o.ErrorKinds {
		m.Errors[string(k)]++
	}
}
