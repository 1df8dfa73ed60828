package usecase

import (
	"time"

	"github.com/secmon-lab/noteflow/pkg/domain/interfaces"
	"github.com/secmon-lab/noteflow/pkg/domain/model"
	"github.com/secmon-lab/noteflow/pkg/domain/types"
	"github.com/secmon-lab/noteflow/pkg/service/completion"
	"github.com/secmon-lab/noteflow/pkg/utils/retry"
)

type UseCases struct {
	repo        interfaces.Repository
	completion  interfaces.CompletionClient
	blobs       interfaces.BlobStore
	queue       interfaces.WorkQueue
	policy      retry.Policy
	defaults    map[types.UseCase]model.AIConfig
	cacheTTL    time.Duration
	concurrency int
	linking     bool

	AIConfig   *AIConfigUseCase
	Metrics    *MetricsUseCase
	Relevance  *RelevanceExtractor
	Summary    *SummaryMerger
	Actions    *ActionManager
	Tagger     *ProjectTagger
	Project    *ProjectUseCase
	Note       *NoteUseCase
	ActionItem *ActionItemUseCase
	FileJob    *FileJobUseCase
	Auth       AuthUseCaseInterface
}

type Option func(*UseCases)

func WithCompletion(client interfaces.CompletionClient) Option {
	return func(uc *UseCases) {
		uc.completion = client
	}
}

func WithBlobStore(blobs interfaces.BlobStore) Option {
	return func(uc *UseCases) {
		uc.blobs = blobs
	}
}

func WithQueue(queue interfaces.WorkQueue) Option {
	return func(uc *UseCases) {
		uc.queue = queue
	}
}

func WithAuth(auth AuthUseCaseInterface) Option {
	return func(uc *UseCases) {
		uc.Auth = auth
	}
}

// WithRetryPolicy sets the retry of per-item tagging writes
func WithRetryPolicy(policy retry.Policy) Option {
	return func(uc *UseCases) {
		uc.policy = policy
	}
}

// WithAIConfigDefaults overrides bundled AI configurations per use case
func WithAIConfigDefaults(defaults map[types.UseCase]model.AIConfig) Option {
	return func(uc *UseCases) {
		uc.defaults = defaults
	}
}

func WithConfigCacheTTL(ttl time.Duration) Option {
	return func(uc *UseCases) {
		uc.cacheTTL = ttl
	}
}

func WithRelevanceConcurrency(n int) Option {
	return func(uc *UseCases) {
		uc.concurrency = n
	}
}

// WithRelevanceLinking enables or disables the note to project linking stage
func WithRelevanceLinking(enabled bool) Option {
	return func(uc *UseCases) {
		uc.linking = enabled
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:        repo,
		completion:  completion.Unavailable{},
		policy:      retry.DefaultPolicy,
		cacheTTL:    DefaultConfigCacheTTL,
		concurrency: DefaultRelevanceConcurrency,
		linking:     true,
	}

	for _, opt := range opts {
		opt(uc)
	}

	uc.AIConfig = NewAIConfigUseCase(repo, uc.defaults, uc.cacheTTL)
	uc.Metrics = NewMetricsUseCase(repo)
	uc.Relevance = NewRelevanceExtractor(uc.AIConfig, uc.completion)
	uc.Summary = NewSummaryMerger(uc.AIConfig, uc.completion)
	uc.Actions = NewActionManager(uc.AIConfig, uc.completion)
	uc.Tagger = NewProjectTagger(repo, uc.AIConfig, uc.completion, uc.Metrics, uc.policy)
	uc.Project = NewProjectUseCase(repo, uc.Tagger)
	uc.Tagger.SetProjectSource(uc.Project)
	uc.Note = NewNoteUseCase(repo, uc.Project, uc.Relevance, uc.Summary, uc.Actions, uc.Tagger, uc.concurrency, uc.linking)
	uc.ActionItem = NewActionItemUseCase(repo, uc.Project, uc.Tagger)
	uc.FileJob = NewFileJobUseCase(repo, uc.AIConfig, uc.completion, uc.blobs, uc.queue)

	return uc
}
