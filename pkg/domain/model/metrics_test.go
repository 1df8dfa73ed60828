package model_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/noteflow/pkg/domain/model"
	"github.com/secmon-lab/noteflow/pkg/domain/types"
)

func TestTaggingMetrics_Record(t *testing.T) {
	var m model.TaggingMetrics

	m.Record(model.TaggingRunOutcome{Success: true, TaggedItems: 3, Duration: 120 * time.Millisecond})
	m.Record(model.TaggingRunOutcome{
		Success:       false,
		FailedUpdates: 2,
		Duration:      300 * time.Millisecond,
		ErrorKinds:    []types.TaggingErrorKind{types.TaggingErrorUpdateFailed},
	})

	gt.Number(t, m.Runs).Equal(2)
	gt.Number(t, m.Successes).Equal(1)
	gt.Number(t, m.Failures).Equal(1)
	gt.Number(t, m.TaggedItems).Equal(3)
	gt.Number(t, m.FailedUpdates).Equal(2)
	gt.Number(t, m.TotalDurationMS).Equal(int64(420))
	gt.Number(t, m.MaxDurationMS).Equal(int64(300))
	gt.Number(t, m.Errors["update_failed"]).Equal(1)
}

func TestAIConfig_Validate(t *testing.T) {
	for u, cfg := range model.BundledAIConfigs() {
		t.Run(string(u), func(t *testing.T) {
			gt.NoError(t, cfg.Validate())
		})
	}

	t.Run("rejects unknown placeholder", func(t *testing.T) {
		cfg := model.AIConfig{
			UseCase:            types.UseCaseProjectTagging,
			Model:              "m",
			UserPromptTemplate: "{note_content}",
		}
		gt.Error(t, cfg.Validate())
	})

	t.Run("doc id", func(t *testing.T) {
		cfg := model.AIConfig{UseCase: types.UseCaseProjectSummary, Version: 3}
		gt.Value(t, cfg.DocID()).Equal("PROJECT_SUMMARY_v3")
	})
}

func TestActionItemUpdate_Apply(t *testing.T) {
	item := &model.ActionItem{
		Task:     "Pay rent",
		Doer:     "me",
		Projects: []model.ProjectID{"p1"},
		Status:   types.ActionItemStatusOpen,
	}
	deadline := "2025-02-01"
	upd := model.ActionItemUpdate{Deadline: &deadline}
	gt.Bool(t, upd.IsEmpty()).False()
	upd.Apply(item)

	gt.Value(t, item.Deadline).Equal("2025-02-01")
	gt.Value(t, item.Task).Equal("Pay rent")
	gt.Value(t, item.Projects).Equal([]model.ProjectID{"p1"})
	gt.Bool(t, (&model.ActionItemUpdate{}).IsEmpty()).True()
}
