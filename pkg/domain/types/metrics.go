package types

import (
	"fmt"
	"time"
)

// Granularity is the bucket width of aggregated metrics
type Granularity string

const (
	GranularityHourly Granularity = "hourly"
	GranularityDaily  Granularity = "daily"
)

// ParseGranularity parses a string into a Granularity
func ParseGranularity(s string) (Granularity, error) {
	g := Granularity(s)
	switch g {
	case GranularityHourly, GranularityDaily:
		return g, nil
	default:
		return "", fmt.Errorf("invalid granularity: %s", s)
	}
}

// Truncate returns the start of the bucket containing t (UTC).
func (g Granularity) Truncate(t time.Time) time.Time {
	t = t.UTC()
	if g == GranularityDaily {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	return t.Truncate(time.Hour)
}

// Retention is how long buckets of this granularity are kept.
func (g Granularity) Retention() time.Duration {
	if g == GranularityDaily {
		return 90 * 24 * time.Hour
	}
	return 7 * 24 * time.Hour
}

// TaggingErrorKind classifies why a tagging run, or part of it, failed
type TaggingErrorKind string

const (
	TaggingErrorLLMUnavailable TaggingErrorKind = "llm_unavailable"
	TaggingErrorLLM            TaggingErrorKind = "llm_error"
	TaggingErrorParse          TaggingErrorKind = "parse_error"
	TaggingErrorMissingKey     TaggingErrorKind = "missing_key"
	TaggingErrorUpdateFailed   TaggingErrorKind = "update_failed"
	TaggingErrorProjectSource  TaggingErrorKind = "project_source_unavailable"
	TaggingErrorFetchFailed    TaggingErrorKind = "fetch_failed"
	TaggingErrorUnknown        TaggingErrorKind = "unknown"
)
