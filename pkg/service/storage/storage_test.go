package storage_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/noteflow/pkg/domain/interfaces"
	"github.com/secmon-lab/noteflow/pkg/service/storage"
)

func runBlobStoreTest(t *testing.T, store interfaces.BlobStore) {
	t.Helper()
	ctx := context.Background()
	key := fmt.Sprintf("inputs/test/%d.csv", time.Now().UnixNano())

	t.Run("Put then Get", func(t *testing.T) {
		gt.NoError(t, store.Put(ctx, key, []byte("a,b\n1,2\n"), "text/csv")).Required()

		data, err := store.Get(ctx, key)
		gt.NoError(t, err).Required()
		gt.Value(t, string(data)).Equal("a,b\n1,2\n")
	})

	t.Run("SignedURL for existing key", func(t *testing.T) {
		url, err := store.SignedURL(ctx, key, time.Minute)
		gt.NoError(t, err).Required()
		gt.String(t, url).NotEqual("")
	})

	t.Run("Delete then Get fails", func(t *testing.T) {
		gt.NoError(t, store.Delete(ctx, key)).Required()

		_, err := store.Get(ctx, key)
		gt.Bool(t, errors.Is(err, storage.ErrObjectNotFound)).True()

		gt.NoError(t, store.Delete(ctx, key))
	})
}

func TestMemory(t *testing.T) {
	runBlobStoreTest(t, storage.NewMemory())

	url, err := storage.NewMemory().SignedURL(context.Background(), "missing", time.Minute)
	gt.Value(t, url).Equal("")
	gt.Bool(t, errors.Is(err, storage.ErrObjectNotFound)).True()
}

func TestGCS(t *testing.T) {
	bucket := os.Getenv("TEST_GCS_BUCKET")
	if bucket == "" {
		t.Skip("TEST_GCS_BUCKET not set")
	}

	store, err := storage.NewGCS(context.Background(), bucket, storage.WithObjectPrefix("noteflow-test/"))
	gt.NoError(t, err).Required()
	t.Cleanup(func() {
		gt.NoError(t, store.Close())
	})

	runBlobStoreTest(t, store)
}
