package usecase_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/noteflow/pkg/domain/model"
	"github.com/secmon-lab/noteflow/pkg/domain/types"
	"github.com/secmon-lab/noteflow/pkg/repository/memory"
	"github.com/secmon-lab/noteflow/pkg/usecase"
)

func TestProjectUseCase_CreateProject(t *testing.T) {
	t.Run("levels follow the parent", func(t *testing.T) {
		uc := usecase.NewProjectUseCase(memory.New(), nil)
		ctx := context.Background()

		root, err := uc.CreateProject(ctx, testUserID, "Home", "House things", nil)
		gt.NoError(t, err).Required()
		gt.Value(t, root.Level).Equal(1)
		gt.Value(t, root.ParentID).Nil()

		child, err := uc.CreateProject(ctx, testUserID, "Garden", "", &root.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, child.Level).Equal(2)
		gt.Value(t, *child.ParentID).Equal(root.ID)

		leaf, err := uc.CreateProject(ctx, testUserID, "Tomatoes", "", &child.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, leaf.Level).Equal(3)

		_, err = uc.CreateProject(ctx, testUserID, "Too deep", "", &leaf.ID)
		gt.Error(t, err).Is(usecase.ErrMaxDepthExceeded)
	})

	t.Run("sibling names are unique", func(t *testing.T) {
		uc := usecase.NewProjectUseCase(memory.New(), nil)
		ctx := context.Background()

		home, err := uc.CreateProject(ctx, testUserID, "Home", "", nil)
		gt.NoError(t, err).Required()
		_, err = uc.CreateProject(ctx, testUserID, "Home", "", nil)
		gt.Error(t, err).Is(usecase.ErrDuplicateProjectName)

		// the same name under another parent is fine
		_, err = uc.CreateProject(ctx, testUserID, "Home", "", &home.ID)
		gt.NoError(t, err).Required()
	})

	t.Run("other users do not collide", func(t *testing.T) {
		uc := usecase.NewProjectUseCase(memory.New(), nil)
		ctx := context.Background()

		_, err := uc.CreateProject(ctx, testUserID, "Home", "", nil)
		gt.NoError(t, err).Required()
		_, err = uc.CreateProject(ctx, "user-2", "Home", "", nil)
		gt.NoError(t, err).Required()
	})

	t.Run("empty name fails", func(t *testing.T) {
		uc := usecase.NewProjectUseCase(memory.New(), nil)
		_, err := uc.CreateProject(context.Background(), testUserID, "  ", "", nil)
		gt.Error(t, err).Is(usecase.ErrInvalidInput)
	})

	t.Run("unknown parent fails", func(t *testing.T) {
		uc := usecase.NewProjectUseCase(memory.New(), nil)
		parent := model.ProjectID("missing")
		_, err := uc.CreateProject(context.Background(), testUserID, "Child", "", &parent)
		gt.Error(t, err).Is(usecase.ErrProjectNotFound)
	})
}

func TestProjectUseCase_UpdateProject(t *testing.T) {
	uc := usecase.NewProjectUseCase(memory.New(), nil)
	ctx := context.Background()

	home, err := uc.CreateProject(ctx, testUserID, "Home", "", nil)
	gt.NoError(t, err).Required()
	_, err = uc.CreateProject(ctx, testUserID, "Work", "", nil)
	gt.NoError(t, err).Required()

	t.Run("rename and describe", func(t *testing.T) {
		updated, err := uc.UpdateProject(ctx, testUserID, home.ID, "House", "Where I live")
		gt.NoError(t, err).Required()
		gt.Value(t, updated.Name).Equal("House")
		gt.Value(t, updated.Description).Equal("Where I live")
		gt.Value(t, updated.Level).Equal(1)
	})

	t.Run("rename onto a sibling fails", func(t *testing.T) {
		_, err := uc.UpdateProject(ctx, testUserID, home.ID, "Work", "")
		gt.Error(t, err).Is(usecase.ErrDuplicateProjectName)
	})

	t.Run("keeping the own name is fine", func(t *testing.T) {
		_, err := uc.UpdateProject(ctx, testUserID, home.ID, "House", "changed")
		gt.NoError(t, err).Required()
	})

	t.Run("unknown project fails", func(t *testing.T) {
		_, err := uc.UpdateProject(ctx, testUserID, "missing", "X", "")
		gt.Error(t, err).Is(usecase.ErrProjectNotFound)
	})
}

func TestProjectUseCase_DeleteProject(t *testing.T) {
	t.Run("project with sub-projects is kept", func(t *testing.T) {
		uc := usecase.NewProjectUseCase(memory.New(), nil)
		ctx := context.Background()

		root, err := uc.CreateProject(ctx, testUserID, "Home", "", nil)
		gt.NoError(t, err).Required()
		_, err = uc.CreateProject(ctx, testUserID, "Garden", "", &root.ID)
		gt.NoError(t, err).Required()

		err = uc.DeleteProject(ctx, testUserID, root.ID)
		gt.Error(t, err).Is(usecase.ErrProjectHasChildren)
	})

	t.Run("deleted project is removed from action items", func(t *testing.T) {
		repo := memory.New()
		uc := usecase.NewProjectUseCase(repo, nil)
		ctx := context.Background()

		home, err := uc.CreateProject(ctx, testUserID, "Home", "", nil)
		gt.NoError(t, err).Required()
		work, err := uc.CreateProject(ctx, testUserID, "Work", "", nil)
		gt.NoError(t, err).Required()

		item, err := repo.ActionItem().Create(ctx, testUserID, &model.ActionItem{
			Task:     "Fix desk",
			Status:   types.ActionItemStatusOpen,
			Projects: []model.ProjectID{home.ID, work.ID},
		})
		gt.NoError(t, err).Required()

		gt.NoError(t, uc.DeleteProject(ctx, testUserID, home.ID)).Required()

		_, err = uc.GetProject(ctx, testUserID, home.ID)
		gt.Error(t, err).Is(usecase.ErrProjectNotFound)

		got, err := repo.ActionItem().Get(ctx, testUserID, item.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Projects).Equal([]model.ProjectID{work.ID})
	})

	t.Run("unknown project fails", func(t *testing.T) {
		uc := usecase.NewProjectUseCase(memory.New(), nil)
		err := uc.DeleteProject(context.Background(), testUserID, "missing")
		gt.Error(t, err).Is(usecase.ErrProjectNotFound)
	})
}

func TestProjectUseCase_EnsureRootProject(t *testing.T) {
	repo := memory.New()
	uc := usecase.NewProjectUseCase(repo, nil)
	ctx := context.Background()

	first, err := uc.EnsureRootProject(ctx, testUserID, types.ProjectNameMiscellaneous, "fallback")
	gt.NoError(t, err).Required()
	second, err := uc.EnsureRootProject(ctx, testUserID, types.ProjectNameMiscellaneous, "fallback")
	gt.NoError(t, err).Required()
	gt.Value(t, second.ID).Equal(first.ID)

	projects, err := uc.ListProjects(ctx, testUserID)
	gt.NoError(t, err).Required()
	gt.Array(t, projects).Length(1)
}

func TestProjectUseCase_UpdateSummary(t *testing.T) {
	repo := memory.New()
	uc := usecase.NewProjectUseCase(repo, nil)
	ctx := context.Background()

	p, err := uc.CreateProject(ctx, testUserID, "Home", "", nil)
	gt.NoError(t, err).Required()

	gt.NoError(t, uc.UpdateSummary(ctx, testUserID, p.ID, "- moved in")).Required()
	gt.NoError(t, uc.UpdateSummary(ctx, testUserID, p.ID, usecase.SummaryMergeErrorPrefix+" boom")).Required()

	got, err := uc.GetProject(ctx, testUserID, p.ID)
	gt.NoError(t, err).Required()
	gt.Value(t, got.Summary).Equal("- moved in")
}
