package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/noteflow/pkg/domain/interfaces"
	"google.golang.org/api/iterator"
)

// fetchPage runs q (already ordered) from the document after opts.Cursor and
// returns at most opts.Limit snapshots plus the next cursor.
func fetchPage(ctx context.Context, coll *firestore.CollectionRef, q firestore.Query, opts interfaces.ListOptions) ([]*firestore.DocumentSnapshot, string, error) {
	if opts.Cursor != "" {
		cursor, err := coll.Doc(opts.Cursor).Get(ctx)
		if err != nil {
			return nil, "", goerr.Wrap(err, "failed to resolve cursor", goerr.V("cursor", opts.Cursor))
		}
		q = q.StartAfter(cursor)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit + 1)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	docs := make([]*firestore.DocumentSnapshot, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, "", goerr.Wrap(err, "failed to iterate documents", goerr.V("collection", coll.ID))
		}
		docs = append(docs, doc)
	}

	if opts.Limit > 0 && len(docs) > opts.Limit {
		docs = docs[:opts.Limit]
		return docs, docs[len(docs)-1].Ref.ID, nil
	}
	return docs, "", nil
}
