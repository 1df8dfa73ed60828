package usecase_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/noteflow/pkg/domain/interfaces"
	"github.com/secmon-lab/noteflow/pkg/domain/model"
	"github.com/secmon-lab/noteflow/pkg/domain/types"
	"github.com/secmon-lab/noteflow/pkg/repository/memory"
	"github.com/secmon-lab/noteflow/pkg/usecase"
)

const (
	noActions  = `{"action_items": []}`
	noMappings = `{"project_mappings": {}}`
)

func isProjectPrompt(req model.CompletionRequest, name string) bool {
	return strings.Contains(req.UserPrompt, "Project: "+name+"\n")
}

// relevantTo marks only the named projects relevant
func relevantTo(extracted string, names ...string) completionHandler {
	return func(req model.CompletionRequest) (string, error) {
		for _, name := range names {
			if isProjectPrompt(req, name) {
				return fmt.Sprintf(`{"is_relevant": true, "extracted_content": %q, "annotation": "match"}`, extracted), nil
			}
		}
		return `{"is_relevant": false, "extracted_content": ""}`, nil
	}
}

func newNoteTestUseCases(repo interfaces.Repository, client *mockCompletion) *usecase.UseCases {
	return usecase.New(repo,
		usecase.WithCompletion(client),
		usecase.WithRetryPolicy(fastPolicy),
	)
}

func createProject(t *testing.T, repo interfaces.Repository, name, description string) *model.Project {
	t.Helper()
	p, err := repo.Project().Create(context.Background(), testUserID, &model.Project{
		Name:        name,
		Description: description,
		Level:       1,
	})
	gt.NoError(t, err).Required()
	return p
}

func findRootProject(t *testing.T, repo interfaces.Repository, name string) *model.Project {
	t.Helper()
	p, err := repo.Project().FindByName(context.Background(), testUserID, nil, name)
	gt.NoError(t, err).Required()
	return p
}

func TestNoteUseCase_CreateNote_Linking(t *testing.T) {
	ctx := context.Background()

	t.Run("only the relevant project is updated", func(t *testing.T) {
		repo := memory.New()
		a := createProject(t, repo, "A", "first")
		b := createProject(t, repo, "B", "second")

		client := routeCompletion(map[types.UseCase]completionHandler{
			types.UseCaseRelevanceExtraction: relevantTo("about A", "A"),
			types.UseCaseProjectSummary:      staticReply(`{"summary": "merged A"}`),
			types.UseCaseActionManagement:    staticReply(noActions),
			types.UseCaseProjectTagging:      staticReply(noMappings),
		})
		uc := newNoteTestUseCases(repo, client)

		note, err := uc.Note.CreateNote(ctx, testUserID, "a note about A")
		gt.NoError(t, err).Required()
		gt.Value(t, note.Projects).Equal([]model.ProjectRef{{ID: a.ID, Name: "A"}})

		gotA, err := repo.Project().Get(ctx, testUserID, a.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, gotA.Summary).Equal("merged A")

		gotB, err := repo.Project().Get(ctx, testUserID, b.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, gotB.Summary).Equal("")

		gt.Array(t, client.callsFor(types.UseCaseRelevanceExtraction)).Length(2)
		merges := client.callsFor(types.UseCaseProjectSummary)
		gt.Array(t, merges).Length(1)
		gt.String(t, merges[0].UserPrompt).Contains("about A")

		gt.Value(t, findRootProject(t, repo, types.ProjectNameMiscellaneous)).Nil()
	})

	t.Run("no relevant project falls back to Miscellaneous with the full note", func(t *testing.T) {
		repo := memory.New()
		createProject(t, repo, "A", "first")

		client := routeCompletion(map[types.UseCase]completionHandler{
			types.UseCaseRelevanceExtraction: relevantTo("unused"),
			types.UseCaseProjectSummary:      staticReply(`{"summary": "misc summary"}`),
			types.UseCaseActionManagement:    staticReply(noActions),
			types.UseCaseProjectTagging:      staticReply(noMappings),
		})
		uc := newNoteTestUseCases(repo, client)

		content := "random thought about the weather"
		note, err := uc.Note.CreateNote(ctx, testUserID, content)
		gt.NoError(t, err).Required()

		misc := findRootProject(t, repo, types.ProjectNameMiscellaneous)
		gt.Value(t, misc).NotNil()
		gt.Value(t, misc.Summary).Equal("misc summary")
		gt.Value(t, note.Projects).Equal([]model.ProjectRef{{ID: misc.ID, Name: types.ProjectNameMiscellaneous}})

		merges := client.callsFor(types.UseCaseProjectSummary)
		gt.Array(t, merges).Length(1)
		gt.String(t, merges[0].UserPrompt).Contains(content)
	})

	t.Run("Miscellaneous is never a relevance candidate", func(t *testing.T) {
		repo := memory.New()
		createProject(t, repo, types.ProjectNameMiscellaneous, "fallback")
		createProject(t, repo, "A", "first")

		client := routeCompletion(map[types.UseCase]completionHandler{
			types.UseCaseRelevanceExtraction: relevantTo("x", "A"),
			types.UseCaseProjectSummary:      staticReply(`{"summary": "s"}`),
			types.UseCaseActionManagement:    staticReply(noActions),
			types.UseCaseProjectTagging:      staticReply(noMappings),
		})
		uc := newNoteTestUseCases(repo, client)

		_, err := uc.Note.CreateNote(ctx, testUserID, "note")
		gt.NoError(t, err).Required()

		calls := client.callsFor(types.UseCaseRelevanceExtraction)
		gt.Array(t, calls).Length(1)
		gt.Bool(t, isProjectPrompt(calls[0], "A")).True()
	})

	t.Run("failed relevance calls are skipped", func(t *testing.T) {
		repo := memory.New()
		a := createProject(t, repo, "A", "first")
		createProject(t, repo, "B", "second")

		client := routeCompletion(map[types.UseCase]completionHandler{
			types.UseCaseRelevanceExtraction: func(req model.CompletionRequest) (string, error) {
				if isProjectPrompt(req, "B") {
					return "", fmt.Errorf("timeout")
				}
				return `{"is_relevant": true, "extracted_content": "x"}`, nil
			},
			types.UseCaseProjectSummary:   staticReply(`{"summary": "s"}`),
			types.UseCaseActionManagement: staticReply(noActions),
			types.UseCaseProjectTagging:   staticReply(noMappings),
		})
		uc := newNoteTestUseCases(repo, client)

		note, err := uc.Note.CreateNote(ctx, testUserID, "note")
		gt.NoError(t, err).Required()
		gt.Value(t, note.Projects).Equal([]model.ProjectRef{{ID: a.ID, Name: "A"}})
	})

	t.Run("failed merge keeps the summary", func(t *testing.T) {
		repo := memory.New()
		a := createProject(t, repo, "A", "first")
		gt.NoError(t, repo.Project().UpdateSummary(ctx, testUserID, a.ID, "old")).Required()

		client := routeCompletion(map[types.UseCase]completionHandler{
			types.UseCaseRelevanceExtraction: relevantTo("x", "A"),
			types.UseCaseProjectSummary:      staticReply(`{"no_summary": true}`),
			types.UseCaseActionManagement:    staticReply(noActions),
			types.UseCaseProjectTagging:      staticReply(noMappings),
		})
		uc := newNoteTestUseCases(repo, client)

		note, err := uc.Note.CreateNote(ctx, testUserID, "note")
		gt.NoError(t, err).Required()
		gt.Array(t, note.Projects).Length(1)

		got, err := repo.Project().Get(ctx, testUserID, a.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Summary).Equal("old")
	})

	t.Run("linking can be disabled", func(t *testing.T) {
		repo := memory.New()
		createProject(t, repo, "A", "first")

		client := routeCompletion(map[types.UseCase]completionHandler{
			types.UseCaseActionManagement: staticReply(noActions),
			types.UseCaseProjectTagging:   staticReply(noMappings),
		})
		uc := usecase.New(repo,
			usecase.WithCompletion(client),
			usecase.WithRetryPolicy(fastPolicy),
			usecase.WithRelevanceLinking(false),
		)

		note, err := uc.Note.CreateNote(ctx, testUserID, "note")
		gt.NoError(t, err).Required()
		gt.Array(t, note.Projects).Length(0)
		gt.Array(t, client.callsFor(types.UseCaseRelevanceExtraction)).Length(0)
	})
}

func TestNoteUseCase_CreateNote_ActionItems(t *testing.T) {
	ctx := context.Background()

	newUC := func(repo interfaces.Repository, directives func() string) *usecase.UseCases {
		client := routeCompletion(map[types.UseCase]completionHandler{
			types.UseCaseRelevanceExtraction: relevantTo("x"),
			types.UseCaseProjectSummary:      staticReply(`{"summary": "s"}`),
			types.UseCaseActionManagement: func(req model.CompletionRequest) (string, error) {
				return directives(), nil
			},
			types.UseCaseProjectTagging: staticReply(noMappings),
		})
		return newNoteTestUseCases(repo, client)
	}

	t.Run("new items start open without projects", func(t *testing.T) {
		repo := memory.New()
		createProject(t, repo, "Travel", "")
		uc := newUC(repo, func() string {
			return `{"action_items": [
				{"action": "new", "task": "Renew passport", "doer": "me", "deadline": "2026-05-01",
				 "theme": "travel", "context": "trip in June", "extracted_entities": {"places": ["Lisbon"]},
				 "type": "something-else", "projects": ["Travel"]}
			]}`
		})

		note, err := uc.Note.CreateNote(ctx, testUserID, "Need to renew passport before Lisbon trip")
		gt.NoError(t, err).Required()

		items, _, err := repo.ActionItem().List(ctx, testUserID, interfaces.ActionItemFilter{})
		gt.NoError(t, err).Required()
		gt.Array(t, items).Length(1)

		item := items[0]
		gt.Value(t, item.Task).Equal("Renew passport")
		gt.Value(t, item.Doer).Equal("me")
		gt.Value(t, item.Deadline).Equal("2026-05-01")
		gt.Value(t, item.Status).Equal(types.ActionItemStatusOpen)
		gt.Value(t, item.Type).Equal(types.ActionItemTypeTask)
		gt.Value(t, item.SourceNoteID).Equal(note.ID)
		gt.Value(t, item.ExtractedEntities["places"]).Equal([]string{"Lisbon"})
		gt.Array(t, item.Projects).Length(0)
	})

	t.Run("complete changes only the status", func(t *testing.T) {
		repo := memory.New()
		existing, err := repo.ActionItem().Create(ctx, testUserID, &model.ActionItem{
			Task:     "Call the plumber",
			Doer:     "me",
			Deadline: "2026-03-01",
			Theme:    "home",
			Context:  "leaking sink",
			Status:   types.ActionItemStatusOpen,
			Type:     types.ActionItemTypeTask,
			Projects: []model.ProjectID{},
		})
		gt.NoError(t, err).Required()

		uc := newUC(repo, func() string {
			return fmt.Sprintf(`{"action_items": [{"action": "complete", "id": %q, "task": "ignored"}]}`, existing.ID)
		})

		_, err = uc.Note.CreateNote(ctx, testUserID, "The plumber fixed the sink")
		gt.NoError(t, err).Required()

		got, err := repo.ActionItem().Get(ctx, testUserID, existing.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Status).Equal(types.ActionItemStatusCompleted)
		gt.Value(t, got.Task).Equal("Call the plumber")
		gt.Value(t, got.Doer).Equal("me")
		gt.Value(t, got.Deadline).Equal("2026-03-01")
		gt.Value(t, got.Theme).Equal("home")
		gt.Value(t, got.Context).Equal("leaking sink")
	})

	t.Run("update applies the given fields only", func(t *testing.T) {
		repo := memory.New()
		existing, err := repo.ActionItem().Create(ctx, testUserID, &model.ActionItem{
			Task:     "Book flights",
			Doer:     "me",
			Status:   types.ActionItemStatusOpen,
			Type:     types.ActionItemTypeTask,
			Projects: []model.ProjectID{},
		})
		gt.NoError(t, err).Required()

		uc := newUC(repo, func() string {
			return fmt.Sprintf(`{"action_items": [{"action": "Update", "id": %q, "deadline": "2026-04-10", "type": "reminder"}]}`, existing.ID)
		})

		_, err = uc.Note.CreateNote(ctx, testUserID, "Flights must be booked by April 10")
		gt.NoError(t, err).Required()

		got, err := repo.ActionItem().Get(ctx, testUserID, existing.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Deadline).Equal("2026-04-10")
		gt.Value(t, got.Type).Equal(types.ActionItemTypeReminder)
		gt.Value(t, got.Task).Equal("Book flights")
		gt.Value(t, got.Doer).Equal("me")
		gt.Value(t, got.Status).Equal(types.ActionItemStatusOpen)
	})

	t.Run("invalid directives are skipped", func(t *testing.T) {
		repo := memory.New()
		uc := newUC(repo, func() string {
			return `{"action_items": [
				{"action": "complete", "id": "no-such-item"},
				{"action": "update"},
				{"action": "archive", "id": "x"},
				{"action": "new"},
				{"action": "new", "task": "Water plants"}
			]}`
		})

		_, err := uc.Note.CreateNote(ctx, testUserID, "note")
		gt.NoError(t, err).Required()

		items, _, err := repo.ActionItem().List(ctx, testUserID, interfaces.ActionItemFilter{})
		gt.NoError(t, err).Required()
		gt.Array(t, items).Length(1)
		gt.Value(t, items[0].Task).Equal("Water plants")
	})

	t.Run("items of other users are not touched", func(t *testing.T) {
		repo := memory.New()
		other, err := repo.ActionItem().Create(ctx, "user-2", &model.ActionItem{
			Task:   "Private",
			Status: types.ActionItemStatusOpen,
		})
		gt.NoError(t, err).Required()

		uc := newUC(repo, func() string {
			return fmt.Sprintf(`{"action_items": [{"action": "complete", "id": %q}]}`, other.ID)
		})
		_, err = uc.Note.CreateNote(ctx, testUserID, "note")
		gt.NoError(t, err).Required()

		got, err := repo.ActionItem().Get(ctx, "user-2", other.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Status).Equal(types.ActionItemStatusOpen)
	})

	t.Run("new items are tagged after creation", func(t *testing.T) {
		repo := memory.New()
		travel := createProject(t, repo, "Travel", "")

		client := routeCompletion(map[types.UseCase]completionHandler{
			types.UseCaseRelevanceExtraction: relevantTo("x", "Travel"),
			types.UseCaseProjectSummary:      staticReply(`{"summary": "s"}`),
			types.UseCaseActionManagement:    staticReply(`{"action_items": [{"action": "new", "task": "Pack bags"}]}`),
			types.UseCaseProjectTagging: func(req model.CompletionRequest) (string, error) {
				items, _, err := repo.ActionItem().List(ctx, testUserID, interfaces.ActionItemFilter{})
				if err != nil || len(items) == 0 {
					return noMappings, nil
				}
				return fmt.Sprintf(`{"project_mappings": {%q: [%q]}}`, items[0].ID, travel.ID), nil
			},
		})
		uc := newNoteTestUseCases(repo, client)

		_, err := uc.Note.CreateNote(ctx, testUserID, "Trip next week, pack bags")
		gt.NoError(t, err).Required()

		items, _, err := repo.ActionItem().List(ctx, testUserID, interfaces.ActionItemFilter{})
		gt.NoError(t, err).Required()
		gt.Array(t, items).Length(1)
		gt.Value(t, items[0].Projects).Equal([]model.ProjectID{travel.ID})
	})
}

func TestNoteUseCase_CreateNote_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("empty content is rejected", func(t *testing.T) {
		uc := newNoteTestUseCases(memory.New(), &mockCompletion{})
		_, err := uc.Note.CreateNote(ctx, testUserID, "   ")
		gt.Error(t, err).Is(usecase.ErrInvalidInput)
	})

	t.Run("note is stored when every LLM call fails", func(t *testing.T) {
		repo := memory.New()
		createProject(t, repo, "A", "first")
		uc := usecase.New(repo, usecase.WithRetryPolicy(fastPolicy))

		note, err := uc.Note.CreateNote(ctx, testUserID, "still saved")
		gt.NoError(t, err).Required()
		gt.Value(t, note.Content).Equal("still saved")

		stored, err := repo.Note().Get(ctx, testUserID, note.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, stored.Content).Equal("still saved")

		misc := findRootProject(t, repo, types.ProjectNameMiscellaneous)
		gt.Value(t, misc).NotNil()
		gt.Value(t, misc.Summary).Equal("")
	})

	t.Run("note is returned when project lookup fails after storing", func(t *testing.T) {
		inner := memory.New()
		repo := &brokenProjectsRepository{Repository: inner}
		uc := newNoteTestUseCases(repo, &mockCompletion{})

		note, err := uc.Note.CreateNote(ctx, testUserID, "hello")
		gt.NoError(t, err).Required()
		gt.Value(t, note).NotNil()
		gt.Value(t, note.Content).Equal("hello")
		gt.Array(t, note.Projects).Length(0)

		stored, err := inner.Note().Get(ctx, testUserID, note.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, stored.Content).Equal("hello")
	})
}

func TestNoteUseCase_CreateNote_FreshConfigStore(t *testing.T) {
	ctx := context.Background()
	inner := memory.New()
	for i := range 5 {
		createProject(t, inner, fmt.Sprintf("P%d", i), "project")
	}
	repo := &slowConfigRepository{Repository: inner, delay: 3 * time.Millisecond}

	client := routeCompletion(map[types.UseCase]completionHandler{
		types.UseCaseRelevanceExtraction: relevantTo("about P0", "P0"),
		types.UseCaseProjectSummary:      staticReply(`{"summary": "merged"}`),
		types.UseCaseActionManagement:    staticReply(noActions),
		types.UseCaseProjectTagging:      staticReply(noMappings),
	})
	uc := newNoteTestUseCases(repo, client)

	_, err := uc.Note.CreateNote(ctx, testUserID, "first note")
	gt.NoError(t, err).Required()
	gt.Array(t, client.callsFor(types.UseCaseRelevanceExtraction)).Length(5)

	versions, err := inner.AIConfig().List(ctx, types.UseCaseRelevanceExtraction)
	gt.NoError(t, err).Required()
	gt.Array(t, versions).Length(1)
	gt.Value(t, versions[0].Version).Equal(1)
	gt.Bool(t, versions[0].IsActive).True()
}

func TestNoteUseCase_FinanceScenario(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	client := routeCompletion(map[types.UseCase]completionHandler{
		types.UseCaseRelevanceExtraction: relevantTo("Paid rent $2000", "Finance"),
		types.UseCaseProjectSummary: func(req model.CompletionRequest) (string, error) {
			if !strings.Contains(req.UserPrompt, "Paid rent $2000") {
				return "", fmt.Errorf("unexpected merge input")
			}
			return `{"summary": "- Rent: paid $2000"}`, nil
		},
		types.UseCaseActionManagement: staticReply(noActions),
		types.UseCaseProjectTagging:   staticReply(noMappings),
	})
	uc := newNoteTestUseCases(repo, client)

	finance, err := uc.Project.CreateProject(ctx, testUserID, "Finance", "money tracking", nil)
	gt.NoError(t, err).Required()

	note, err := uc.Note.CreateNote(ctx, testUserID, "Paid rent $2000 today")
	gt.NoError(t, err).Required()
	gt.Value(t, note.Projects).Equal([]model.ProjectRef{{ID: finance.ID, Name: "Finance"}})

	got, err := uc.Project.GetProject(ctx, testUserID, finance.ID)
	gt.NoError(t, err).Required()
	gt.Value(t, got.Summary).Equal("- Rent: paid $2000")

	gt.Value(t, findRootProject(t, repo, types.ProjectNameMiscellaneous)).Nil()
}

func TestNoteUseCase_ReadAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	a := createProject(t, repo, "A", "")

	uc := usecase.New(repo, usecase.WithRelevanceLinking(false), usecase.WithRetryPolicy(fastPolicy))

	var ids []model.NoteID
	for i := range 3 {
		n, err := repo.Note().Create(ctx, testUserID, &model.Note{Content: fmt.Sprintf("note %d", i)})
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.Note().SetProjects(ctx, testUserID, n.ID, []model.ProjectID{a.ID, "deleted-project"})).Required()
		ids = append(ids, n.ID)
	}

	t.Run("get attaches existing projects", func(t *testing.T) {
		n, err := uc.Note.GetNote(ctx, testUserID, ids[0])
		gt.NoError(t, err).Required()
		gt.Value(t, n.Projects).Equal([]model.ProjectRef{{ID: a.ID, Name: "A"}})
	})

	t.Run("list pages through notes", func(t *testing.T) {
		page, next, err := uc.Note.ListNotes(ctx, testUserID, interfaces.ListOptions{Limit: 2})
		gt.NoError(t, err).Required()
		gt.Array(t, page).Length(2)
		gt.String(t, next).NotEqual("")
		gt.Array(t, page[0].Projects).Length(1)

		rest, next, err := uc.Note.ListNotes(ctx, testUserID, interfaces.ListOptions{Limit: 2, Cursor: next})
		gt.NoError(t, err).Required()
		gt.Array(t, rest).Length(1)
		gt.Value(t, next).Equal("")
	})

	t.Run("other users cannot read", func(t *testing.T) {
		_, err := uc.Note.GetNote(ctx, "user-2", ids[0])
		gt.Error(t, err).Is(usecase.ErrNoteNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		gt.NoError(t, uc.Note.DeleteNote(ctx, testUserID, ids[1])).Required()
		_, err := uc.Note.GetNote(ctx, testUserID, ids[1])
		gt.Error(t, err).Is(usecase.ErrNoteNotFound)

		err = uc.Note.DeleteNote(ctx, testUserID, ids[1])
		gt.Error(t, err).Is(usecase.ErrNoteNotFound)
	})
}
