package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/noteflow/pkg/domain/model"
	"github.com/secmon-lab/noteflow/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type taggingMetricsRepository struct {
	client *firestore.Client
	cols   collections
}

func newTaggingMetricsRepository(c collections) *taggingMetricsRepository {
	return &taggingMetricsRepository{client: c.client, cols: c}
}

func (r *taggingMetricsRepository) collection() *firestore.CollectionRef {
	return r.cols.top(collectionTaggingMetrics)
}

func (r *taggingMetricsRepository) Get(ctx context.Context, granularity types.Granularity, bucketStart time.Time) (*model.TaggingMetrics, error) {
	id := model.TaggingMetricsID(granularity, bucketStart)
	doc, err := r.collection().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get tagging metrics", goerr.V("id", id))
	}

	var m model.TaggingMetrics
	if err := doc.DataTo(&m); err != nil {
		return nil, goerr.Wrap(err, "failed to decode tagging metrics", goerr.V("id", id))
	}
	return &m, nil
}

func (r *taggingMetricsRepository) Put(ctx context.Context, metrics *model.TaggingMetrics) error {
	id := model.TaggingMetricsID(metrics.Granularity, metrics.BucketStart)
	stored := *metrics
	stored.BucketStart = metrics.BucketStart.UTC()
	stored.UpdatedAt = time.Now().UTC()

	if _, err := r.collection().Doc(id).Set(ctx, &stored); err != nil {
		return goerr.Wrap(err, "failed to put tagging metrics", goerr.V("id", id))
	}
	return nil
}

func (r *taggingMetricsRepository) List(ctx context.Context, granularity types.Granularity, since time.Time) ([]*model.TaggingMetrics, error) {
	iter := r.collection().
		Where("Granularity", "==", string(granularity)).
		Where("BucketStart", ">=", since.UTC()).
		OrderBy("BucketStart", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	result := make([]*model.TaggingMetrics, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate tagging metrics")
		}

		var m model.TaggingMetrics
		if err := doc.DataTo(&m); err != nil {
			return nil, goerr.Wrap(err, "failed to decode tagging metrics", goerr.V("doc_id", doc.Ref.ID))
		}
		result = append(result, &m)
	}
	return result, nil
}

func (r *taggingMetricsRepository) DeleteBefore(ctx context.Context, granularity types.Granularity, t time.Time) (int, error) {
	iter := r.collection().
		Where("Granularity", "==", string(granularity)).
		Where("BucketStart", "<", t.UTC()).
		Documents(ctx)
	defer iter.Stop()

	deleted := 0
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return deleted, goerr.Wrap(err, "failed to iterate tagging metrics")
		}
		if _, err := doc.Ref.Delete(ctx); err != nil {
			return deleted, goerr.Wrap(err, "failed to delete tagging metrics", goerr.V("doc_id", doc.Ref.ID))
		}
		deleted++
	}
	return deleted, nil
}
