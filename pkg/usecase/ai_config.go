package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/patrickmn/go-cache"
	"github.com/secmon-lab/noteflow/pkg/domain/interfaces"
	"github.com/secmon-lab/noteflow/pkg/domain/model"
	"github.com/secmon-lab/noteflow/pkg/domain/types"
	"github.com/secmon-lab/noteflow/pkg/utils/logging"
	"golang.org/x/sync/singleflight"
)

// DefaultConfigCacheTTL bounds how long another process may serve a stale
// active configuration after an activation.
const DefaultConfigCacheTTL = time.Minute

// AIConfigUseCase is the configuration store of the LLM stages.
type AIConfigUseCase struct {
	repo     interfaces.Repository
	defaults map[types.UseCase]model.AIConfig
	active   *cache.Cache
	loading  singleflight.Group
}

// NewAIConfigUseCase creates the store. defaults supplies the bundled
// configuration per use case and falls back to model.BundledAIConfigs for
// missing entries.
func NewAIConfigUseCase(repo interfaces.Repository, defaults map[types.UseCase]model.AIConfig, ttl time.Duration) *AIConfigUseCase {
	merged := model.BundledAIConfigs()
	for u, cfg := range defaults {
		cfg.UseCase = u
		merged[u] = cfg
	}
	// go-cache treats zero as no expiration
	if ttl <= 0 {
		ttl = DefaultConfigCacheTTL
	}

	return &AIConfigUseCase{
		repo:     repo,
		defaults: merged,
		active:   cache.New(ttl, 10*time.Minute),
	}
}

func (uc *AIConfigUseCase) invalidate(useCase types.UseCase) {
	uc.active.Delete(string(useCase))
}

func validUseCase(useCase types.UseCase) error {
	if !useCase.IsValid() {
		return goerr.Wrap(ErrInvalidInput, "unknown use case", goerr.V(UseCaseKey, useCase))
	}
	return nil
}

// Get returns one version
func (uc *AIConfigUseCase) Get(ctx context.Context, useCase types.UseCase, version int) (*model.AIConfig, error) {
	if err := validUseCase(useCase); err != nil {
		return nil, err
	}

	cfg, err := uc.repo.AIConfig().Get(ctx, useCase, version)
	if err != nil {
		return nil, goerr.Wrap(ErrConfigNotFound, "ai config not found",
			goerr.V(UseCaseKey, useCase), goerr.V(VersionKey, version), goerr.V("cause", err.Error()))
	}
	return cfg, nil
}

// GetActive returns the active version. When none is active the bundled
// default is stored as the next version, activated and returned.
func (uc *AIConfigUseCase) GetActive(ctx context.Context, useCase types.UseCase) (*model.AIConfig, error) {
	if err := validUseCase(useCase); err != nil {
		return nil, err
	}

	if v, ok := uc.active.Get(string(useCase)); ok {
		cfg := v.(model.AIConfig)
		return &cfg, nil
	}

	// concurrent misses share one read, so a fresh store gets a single version
	v, err, _ := uc.loading.Do(string(useCase), func() (any, error) {
		return uc.loadActive(ctx, useCase)
	})
	if err != nil {
		return nil, err
	}
	cfg := v.(model.AIConfig)
	return &cfg, nil
}

func (uc *AIConfigUseCase) loadActive(ctx context.Context, useCase types.UseCase) (model.AIConfig, error) {
	active, err := uc.repo.AIConfig().ListActive(ctx, useCase)
	if err != nil {
		return model.AIConfig{}, goerr.Wrap(err, "failed to list active ai configs", goerr.V(UseCaseKey, useCase))
	}

	var cfg *model.AIConfig
	switch len(active) {
	case 0:
		def := uc.defaults[useCase]
		def.UseCase = useCase
		def.IsActive = true
		created, err := uc.repo.AIConfig().Create(ctx, &def)
		if err != nil {
			return model.AIConfig{}, goerr.Wrap(err, "failed to store default ai config", goerr.V(UseCaseKey, useCase))
		}
		logging.From(ctx).Info("stored bundled ai config as active",
			"use_case", useCase, "version", created.Version)
		cfg = created
	case 1:
		cfg = active[0]
	default:
		cfg = active[len(active)-1]
		versions := make([]int, len(active))
		for i, c := range active {
			versions[i] = c.Version
		}
		logging.From(ctx).Warn("multiple active ai configs, using the highest version",
			"use_case", useCase, "versions", versions, "selected", cfg.Version)
	}

	uc.active.Set(string(useCase), *cfg, cache.DefaultExpiration)
	return *cfg, nil
}

// Resolve returns the pinned version when version is set, the active one
// otherwise.
func (uc *AIConfigUseCase) Resolve(ctx context.Context, useCase types.UseCase, version *int) (*model.AIConfig, error) {
	if version != nil {
		return uc.Get(ctx, useCase, *version)
	}
	return uc.GetActive(ctx, useCase)
}

// GetAll lists every version ordered by version
func (uc *AIConfigUseCase) GetAll(ctx context.Context, useCase types.UseCase) ([]*model.AIConfig, error) {
	if err := validUseCase(useCase); err != nil {
		return nil, err
	}

	configs, err := uc.repo.AIConfig().List(ctx, useCase)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list ai configs", goerr.V(UseCaseKey, useCase))
	}
	return configs, nil
}

// ValidateConfig checks a configuration before it is stored.
func ValidateConfig(cfg *model.AIConfig) error {
	if err := validUseCase(cfg.UseCase); err != nil {
		return err
	}
	if err := cfg.UseCase.ValidateTemplate(cfg.UserPromptTemplate); err != nil {
		return goerr.Wrap(ErrInvalidTemplate, err.Error(), goerr.V(UseCaseKey, cfg.UseCase))
	}
	if err := cfg.Validate(); err != nil {
		return goerr.Wrap(ErrInvalidInput, err.Error(), goerr.V(UseCaseKey, cfg.UseCase))
	}
	return nil
}

// Create stores cfg as the next version. The version of cfg is ignored.
func (uc *AIConfigUseCase) Create(ctx context.Context, cfg *model.AIConfig) (*model.AIConfig, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	input := *cfg
	input.Version = 0
	created, err := uc.repo.AIConfig().Create(ctx, &input)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create ai config", goerr.V(UseCaseKey, cfg.UseCase))
	}
	uc.invalidate(cfg.UseCase)

	logging.From(ctx).Info("ai config created",
		"use_case", created.UseCase, "version", created.Version, "active", created.IsActive)
	return created, nil
}

// SetActive activates version and deactivates its siblings
func (uc *AIConfigUseCase) SetActive(ctx context.Context, useCase types.UseCase, version int) (*model.AIConfig, error) {
	if err := validUseCase(useCase); err != nil {
		return nil, err
	}

	changed, err := uc.repo.AIConfig().Activate(ctx, useCase, version)
	if err != nil {
		if _, getErr := uc.repo.AIConfig().Get(ctx, useCase, version); getErr != nil {
			return nil, goerr.Wrap(ErrConfigNotFound, "ai config not found",
				goerr.V(UseCaseKey, useCase), goerr.V(VersionKey, version))
		}
		return nil, goerr.Wrap(err, "failed to activate ai config",
			goerr.V(UseCaseKey, useCase), goerr.V(VersionKey, version))
	}
	uc.invalidate(useCase)

	if changed {
		logging.From(ctx).Info("ai config activated", "use_case", useCase, "version", version)
	}
	return uc.Get(ctx, useCase, version)
}

// Delete removes an inactive version. It returns false when the version is
// active or absent.
func (uc *AIConfigUseCase) Delete(ctx context.Context, useCase types.UseCase, version int) (bool, error) {
	if err := validUseCase(useCase); err != nil {
		return false, err
	}

	deleted, err := uc.repo.AIConfig().Delete(ctx, useCase, version)
	if err != nil {
		return false, goerr.Wrap(err, "failed to delete ai config",
			goerr.V(UseCaseKey, useCase), goerr.V(VersionKey, version))
	}
	uc.invalidate(useCase)
	return deleted, nil
}

// Seed makes sure every use case has an active configuration.
func (uc *AIConfigUseCase) Seed(ctx context.Context) ([]*model.AIConfig, error) {
	var errs []error
	seeded := make([]*model.AIConfig, 0, len(types.AllUseCases()))
	for _, u := range types.AllUseCases() {
		cfg, err := uc.GetActive(ctx, u)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		seeded = append(seeded, cfg)
	}
	if len(errs) > 0 {
		return seeded, goerr.Wrap(errors.Join(errs...), "failed to seed ai configs")
	}
	return seeded, nil
}
