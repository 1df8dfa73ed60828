package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/noteflow/pkg/domain/model"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type userRepository struct {
	client *firestore.Client
	cols   collections
}

func newUserRepository(c collections) *userRepository {
	return &userRepository{client: c.client, cols: c}
}

func (r *userRepository) Upsert(ctx context.Context, user *model.User) (*model.User, error) {
	ref := r.cols.top(collectionUsers).Doc(user.ID)

	var stored model.User
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		now := time.Now().UTC()
		stored = *user
		stored.CreatedAt = now
		stored.LastLoginAt = now

		doc, err := tx.Get(ref)
		switch {
		case err == nil:
			var existing model.User
			if err := doc.DataTo(&existing); err != nil {
				return goerr.Wrap(err, "failed to decode user", goerr.V("id", user.ID))
			}
			stored.CreatedAt = existing.CreatedAt
		case status.Code(err) != codes.NotFound:
			return goerr.Wrap(err, "failed to get user", goerr.V("id", user.ID))
		}

		return tx.Set(ref, &stored)
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to upsert user", goerr.V("id", user.ID))
	}
	return &stored, nil
}

func (r *userRepository) Get(ctx context.Context, id string) (*model.User, error) {
	doc, err := r.cols.top(collectionUsers).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "user not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get user", goerr.V("id", id))
	}

	var u model.User
	if err := doc.DataTo(&u); err != nil {
		return nil, goerr.Wrap(err, "failed to decode user", goerr.V("id", id))
	}
	return &u, nil
}
