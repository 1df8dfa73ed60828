package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/noteflow/pkg/domain/model"
	"github.com/secmon-lab/noteflow/pkg/repository/memory"
	"github.com/secmon-lab/noteflow/pkg/usecase"
)

func TestActionManager_ManageActionItems(t *testing.T) {
	newManager := func(reply string) (*usecase.ActionManager, *mockCompletion) {
		client := &mockCompletion{fn: func(ctx context.Context, req model.CompletionRequest) (string, error) {
			return reply, nil
		}}
		m := usecase.NewActionManager(usecase.NewAIConfigUseCase(memory.New(), nil, time.Minute), client)
		m.SetNow(func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) })
		return m, client
	}

	existing := []*model.ActionItem{
		{ID: "item-1", Task: "Call the plumber", Type: "task", Status: "open"},
	}

	t.Run("directives are parsed", func(t *testing.T) {
		m, client := newManager(`{"action_items": [
			{"action": "NEW", "task": "Renew passport", "deadline": "2026-04-01", "type": "reminder"},
			{"action": "complete", "id": "item-1"}
		]}`)

		directives, err := m.ManageActionItems(context.Background(), usecase.ActionManagementInput{
			NoteContent:       "Plumber came today. Need to renew passport.",
			ExistingOpenItems: existing,
			UserID:            testUserID,
		})
		gt.NoError(t, err).Required()
		gt.Array(t, directives).Length(2)
		gt.Value(t, directives[0].Action).Equal("new")
		gt.Value(t, *directives[0].Task).Equal("Renew passport")
		gt.Value(t, directives[1].Action).Equal("complete")
		gt.Value(t, directives[1].ID).Equal("item-1")

		prompt := client.calls[0].UserPrompt
		gt.String(t, prompt).Contains("2026-03-14")
		gt.String(t, prompt).Contains("Call the plumber")
		gt.String(t, prompt).Contains(`"id":"item-1"`)
	})

	t.Run("empty list is valid", func(t *testing.T) {
		m, _ := newManager(`{"action_items": []}`)

		directives, err := m.ManageActionItems(context.Background(), usecase.ActionManagementInput{NoteContent: "nothing"})
		gt.NoError(t, err).Required()
		gt.Array(t, directives).Length(0)
	})

	t.Run("missing key fails", func(t *testing.T) {
		m, _ := newManager(`{"items": []}`)

		_, err := m.ManageActionItems(context.Background(), usecase.ActionManagementInput{NoteContent: "x"})
		gt.Error(t, err).Is(usecase.ErrMissingResponseKey)
	})
}
