package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/noteflow/pkg/domain/model"
	"github.com/secmon-lab/noteflow/pkg/domain/types"
)

type aiConfigRepository struct {
	mu      sync.Mutex
	configs map[types.UseCase]map[int]*model.AIConfig
}

func newAIConfigRepository() *aiConfigRepository {
	return &aiConfigRepository{
		configs: make(map[types.UseCase]map[int]*model.AIConfig),
	}
}

func copyAIConfig(c *model.AIConfig) *model.AIConfig {
	cp := *c
	return &cp
}

func (r *aiConfigRepository) sorted(useCase types.UseCase, filter func(*model.AIConfig) bool) []*model.AIConfig {
	result := make([]*model.AIConfig, 0)
	for _, c := range r.configs[useCase] {
		if filter == nil || filter(c) {
			result = append(result, copyAIConfig(c))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Version < result[j].Version
	})
	return result
}

func (r *aiConfigRepository) Get(ctx context.Context, useCase types.UseCase, version int) (*model.AIConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.configs[useCase][version]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "ai config not found",
			goerr.V("use_case", useCase), goerr.V("version", version))
	}
	return copyAIConfig(c), nil
}

func (r *aiConfigRepository) List(ctx context.Context, useCase types.UseCase) ([]*model.AIConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorted(useCase, nil), nil
}

func (r *aiConfigRepository) ListActive(ctx context.Context, useCase types.UseCase) ([]*model.AIConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorted(useCase, func(c *model.AIConfig) bool { return c.IsActive }), nil
}

func (r *aiConfigRepository) Create(ctx context.Context, cfg *model.AIConfig) (*model.AIConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	versions, ok := r.configs[cfg.UseCase]
	if !ok {
		versions = make(map[int]*model.AIConfig)
		r.configs[cfg.UseCase] = versions
	}

	maxVersion := 0
	for v := range versions {
		maxVersion = max(maxVersion, v)
	}

	created := copyAIConfig(cfg)
	created.Version = maxVersion + 1
	created.CreatedAt = time.Now().UTC()

	if created.IsActive {
		for _, c := range versions {
			c.IsActive = false
		}
	}
	versions[created.Version] = created

	return copyAIConfig(created), nil
}

func (r *aiConfigRepository) Activate(ctx context.Context, useCase types.UseCase, version int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	versions := r.configs[useCase]
	target, ok := versions[version]
	if !ok {
		return false, goerr.Wrap(ErrNotFound, "ai config not found",
			goerr.V("use_case", useCase), goerr.V("version", version))
	}

	changed := !target.IsActive
	for v, c := range versions {
		if v != version && c.IsActive {
			c.IsActive = false
			changed = true
		}
	}
	target.IsActive = true

	return changed, nil
}

func (r *aiConfigRepository) Delete(ctx context.Context, useCase types.UseCase, version int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.configs[useCase][version]
	if !ok || c.IsActive {
		return false, nil
	}
	delete(r.configs[useCase], version)
	return true, nil
}
