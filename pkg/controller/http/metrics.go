package http

import (
	"net/http"
	"time"

	"github.com/secmon-lab/noteflow/pkg/domain/types"
	"github.com/secmon-lab/noteflow/pkg/usecase"
)

// taggingMetricsHandler returns tagging run buckets. granularity defaults to
// hourly; since is an optional RFC 3339 lower bound.
func taggingMetricsHandler(uc *usecase.MetricsUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		granularity := types.GranularityHourly
		if v := q.Get("granularity"); v != "" {
			g, err := types.ParseGranularity(v)
			if err != nil {
				handleError(w, r, badRequest("invalid granularity", err))
				return
			}
			granularity = g
		}

		var since time.Time
		if v := q.Get("since"); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				handleError(w, r, badRequest("since must be RFC 3339", err))
				return
			}
			since = t
		}

		buckets, err := uc.TaggingSummary(r.Context(), granularity, since)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeData(r.Context(), w, http.StatusOK, buckets)
	}
}
