package memory

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/noteflow/pkg/domain/model"
)

type userRepository struct {
	mu    sync.RWMutex
	users map[string]*model.User
}

func newUserRepository() *userRepository {
	return &userRepository{
		users: make(map[string]*model.User),
	}
}

func (r *userRepository) Upsert(ctx context.Context, user *model.User) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	stored := *user
	stored.LastLoginAt = now
	if existing, ok := r.users[user.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.CreatedAt = now
	}
	r.users[user.ID] = &stored

	out := stored
	return &out, nil
}

func (r *userRepository) Get(ctx context.Context, id string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "user not found", goerr.V("id", id))
	}
	out := *u
	return &out, nil
}
