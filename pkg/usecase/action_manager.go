package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/noteflow/pkg/domain/interfaces"
	"github.com/secmon-lab/noteflow/pkg/domain/model"
	"github.com/secmon-lab/noteflow/pkg/domain/types"
)

// ActionManagementInput is one note and the user's open action items
type ActionManagementInput struct {
	NoteContent       string
	ExistingOpenItems []*model.ActionItem
	UserID            string
	Version           *int
}

// ActionManager turns a note into action item directives
type ActionManager struct {
	configs    *AIConfigUseCase
	completion interfaces.CompletionClient
	now        func() time.Time
}

func NewActionManager(configs *AIConfigUseCase, completion interfaces.CompletionClient) *ActionManager {
	return &ActionManager{configs: configs, completion: completion, now: time.Now}
}

type openItemView struct {
	ID                string              `json:"id"`
	Task              string              `json:"task"`
	Doer              string              `json:"doer,omitempty"`
	Deadline          string              `json:"deadline,omitempty"`
	Theme             string              `json:"theme,omitempty"`
	Context           string              `json:"context,omitempty"`
	ExtractedEntities map[string][]string `json:"extracted_entities,omitempty"`
	Type              string              `json:"type"`
}

func (m *ActionManager) ManageActionItems(ctx context.Context, in ActionManagementInput) ([]model.ActionDirective, error) {
	cfg, err := m.configs.Resolve(ctx, types.UseCaseActionManagement, in.Version)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load action management config")
	}

	views := make([]openItemView, 0, len(in.ExistingOpenItems))
	for _, item := range in.ExistingOpenItems {
		views = append(views, openItemView{
			ID:                string(item.ID),
			Task:              item.Task,
			Doer:              item.Doer,
			Deadline:          item.Deadline,
			Theme:             item.Theme,
			Context:           item.Context,
			ExtractedEntities: item.ExtractedEntities,
			Type:              string(item.Type),
		})
	}

	obj, err := completeJSON(ctx, m.completion, cfg, map[string]string{
		"note_content":          in.NoteContent,
		"existing_action_items": mustJSON(views),
		"current_date":          m.now().UTC().Format("2006-01-02"),
	})
	if err != nil {
		return nil, goerr.Wrap(err, "action management failed", goerr.V(UserIDKey, in.UserID))
	}

	var directives []model.ActionDirective
	if err := requireKey(obj, "action_items", &directives); err != nil {
		return nil, goerr.Wrap(err, "invalid action management response", goerr.V(UserIDKey, in.UserID))
	}

	for i := range directives {
		directives[i].Action = strings.ToLower(strings.TrimSpace(directives[i].Action))
	}
	return directives, nil
}
