package usecase_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/secmon-lab/noteflow/pkg/domain/interfaces"
	"github.com/secmon-lab/noteflow/pkg/domain/model"
	"github.com/secmon-lab/noteflow/pkg/domain/types"
	"github.com/secmon-lab/noteflow/pkg/utils/retry"
)

const testUserID = "user-1"

var fastPolicy = retry.Policy{
	MaxAttempts: 3,
	BaseDelay:   time.Millisecond,
	Multiplier:  2,
	MaxDelay:    5 * time.Millisecond,
}

// mockCompletion is a mock CompletionClient for testing
type mockCompletion struct {
	mu    sync.Mutex
	calls []model.CompletionRequest
	fn    func(ctx context.Context, req model.CompletionRequest) (string, error)
}

func (m *mockCompletion) Complete(ctx context.Context, req model.CompletionRequest) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()

	if m.fn == nil {
		return "{}", nil
	}
	return m.fn(ctx, req)
}

func (m *mockCompletion) Available() bool {
	return true
}

func (m *mockCompletion) callsFor(u types.UseCase) []model.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.CompletionRequest
	for _, req := range m.calls {
		if useCaseOf(req) == u {
			out = append(out, req)
		}
	}
	return out
}

// useCaseOf tells which stage built the request from the response format
// instruction at the end of the prompt
func useCaseOf(req model.CompletionRequest) types.UseCase {
	for _, u := range types.AllUseCases() {
		info, _ := u.Info()
		if strings.HasSuffix(req.UserPrompt, info.ResponseFormatText) {
			return u
		}
	}
	return ""
}

type completionHandler func(req model.CompletionRequest) (string, error)

// routeCompletion dispatches requests per use case. Use cases without a
// handler fail.
func routeCompletion(handlers map[types.UseCase]completionHandler) *mockCompletion {
	return &mockCompletion{
		fn: func(ctx context.Context, req model.CompletionRequest) (string, error) {
			h, ok := handlers[useCaseOf(req)]
			if !ok {
				return "", errors.New("unexpected completion request")
			}
			return h(req)
		},
	}
}

func staticReply(reply string) completionHandler {
	return func(req model.CompletionRequest) (string, error) {
		return reply, nil
	}
}

// flakyRepository fails SetProjects of action items a configured number of
// times per item
type flakyRepository struct {
	interfaces.Repository
	items *flakyActionItems
}

func newFlakyRepository(inner interfaces.Repository, failures map[model.ActionItemID]int) *flakyRepository {
	return &flakyRepository{
		Repository: inner,
		items: &flakyActionItems{
			ActionItemRepository: inner.ActionItem(),
			failures:             failures,
			attempts:             map[model.ActionItemID]int{},
		},
	}
}

func (r *flakyRepository) ActionItem() interfaces.ActionItemRepository {
	return r.items
}

type flakyActionItems struct {
	interfaces.ActionItemRepository
	mu       sync.Mutex
	failures map[model.ActionItemID]int
	attempts map[model.ActionItemID]int
}

func (r *flakyActionItems) SetProjects(ctx context.Context, userID string, id model.ActionItemID, projectIDs []model.ProjectID) error {
	r.mu.Lock()
	r.attempts[id]++
	if r.failures[id] > 0 {
		r.failures[id]--
		r.mu.Unlock()
		return errors.New("temporary write failure")
	}
	r.mu.Unlock()
	return r.ActionItemRepository.SetProjects(ctx, userID, id, projectIDs)
}

func (r *flakyActionItems) attemptsOf(id model.ActionItemID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts[id]
}

func strPtr(s string) *string {
	return &s
}

// brokenProjectsRepository fails every project listing
type brokenProjectsRepository struct {
	interfaces.Repository
}

func (r *brokenProjectsRepository) Project() interfaces.ProjectRepository {
	return &brokenProjects{ProjectRepository: r.Repository.Project()}
}

type brokenProjects struct {
	interfaces.ProjectRepository
}

func (p *brokenProjects) List(ctx context.Context, userID string) ([]*model.Project, error) {
	return nil, errors.New("project listing unavailable")
}

// slowConfigRepository delays active config reads like a document store
// round trip
type slowConfigRepository struct {
	interfaces.Repository
	delay time.Duration
}

func (r *slowConfigRepository) AIConfig() interfaces.AIConfigRepository {
	return &slowConfigs{AIConfigRepository: r.Repository.AIConfig(), delay: r.delay}
}

type slowConfigs struct {
	interfaces.AIConfigRepository
	delay time.Duration
}

func (c *slowConfigs) ListActive(ctx context.Context, useCase types.UseCase) ([]*model.AIConfig, error) {
	active, err := c.AIConfigRepository.ListActive(ctx, useCase)
	time.Sleep(c.delay)
	return active, err
}
