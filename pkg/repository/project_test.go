package repository_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/noteflow/pkg/domain/interfaces"
	"github.com/secmon-lab/noteflow/pkg/domain/model"
)

func runProjectRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Create and Get", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := newUserID()

		created, err := repo.Project().Create(ctx, userID, &model.Project{
			Name:        "Finance",
			Description: "money",
			Level:       1,
		})
		gt.NoError(t, err).Required()
		gt.Value(t, created.ID).NotEqual(model.ProjectID(""))
		gt.Value(t, created.UserID).Equal(userID)

		got, err := repo.Project().Get(ctx, userID, created.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Name).Equal("Finance")
		gt.Bool(t, got.IsRoot()).True()
	})

	t.Run("projects are isolated per user", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Project().Create(ctx, newUserID(), &model.Project{Name: "Secret", Level: 1})
		gt.NoError(t, err).Required()

		_, err = repo.Project().Get(ctx, "someone-else", created.ID)
		gt.Bool(t, isNotFound(err)).True()
	})

	t.Run("ListChildren and FindByName follow the parent", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := newUserID()

		root, err := repo.Project().Create(ctx, userID, &model.Project{Name: "Home", Level: 1})
		gt.NoError(t, err).Required()
		child, err := repo.Project().Create(ctx, userID, &model.Project{Name: "Garden", Level: 2, ParentID: &root.ID})
		gt.NoError(t, err).Required()
		_, err = repo.Project().Create(ctx, userID, &model.Project{Name: "Garden", Level: 1})
		gt.NoError(t, err).Required()

		children, err := repo.Project().ListChildren(ctx, userID, root.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, children).Length(1)
		gt.Value(t, children[0].ID).Equal(child.ID)

		found, err := repo.Project().FindByName(ctx, userID, &root.ID, "Garden")
		gt.NoError(t, err).Required()
		gt.Value(t, found.ID).Equal(child.ID)

		rootGarden, err := repo.Project().FindByName(ctx, userID, nil, "Garden")
		gt.NoError(t, err).Required()
		gt.Value(t, rootGarden.Level).Equal(1)

		missing, err := repo.Project().FindByName(ctx, userID, nil, "Nothing")
		gt.NoError(t, err).Required()
		gt.Value(t, missing).Nil()

		all, err := repo.Project().List(ctx, userID)
		gt.NoError(t, err).Required()
		gt.Array(t, all).Length(3)
		gt.Value(t, all[2].Level).Equal(2)
	})

	t.Run("Update keeps CreatedAt and UpdateSummary writes summary", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := newUserID()

		created, err := repo.Project().Create(ctx, userID, &model.Project{Name: "Work", Level: 1})
		gt.NoError(t, err).Required()

		created.Description = "day job"
		updated, err := repo.Project().Update(ctx, userID, created)
		gt.NoError(t, err).Required()
		gt.Value(t, updated.Description).Equal("day job")
		gt.Bool(t, updated.CreatedAt.Equal(created.CreatedAt)).True()

		gt.NoError(t, repo.Project().UpdateSummary(ctx, userID, created.ID, "# Work")).Required()
		got, err := repo.Project().Get(ctx, userID, created.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Summary).Equal("# Work")
		gt.Value(t, got.Description).Equal("day job")
	})

	t.Run("Delete removes the project", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := newUserID()

		created, err := repo.Project().Create(ctx, userID, &model.Project{Name: "Tmp", Level: 1})
		gt.NoError(t, err).Required()

		gt.NoError(t, repo.Project().Delete(ctx, userID, created.ID)).Required()
		_, err = repo.Project().Get(ctx, userID, created.ID)
		gt.Bool(t, isNotFound(err)).True()

		err = repo.Project().Delete(ctx, userID, created.ID)
		gt.Bool(t, isNotFound(err)).True()
	})
}

func TestProjectRepository_Memory(t *testing.T) {
	runProjectRepositoryTest(t, newMemoryRepository)
}

func TestProjectRepository_Firestore(t *testing.T) {
	runProjectRepositoryTest(t, newFirestoreRepository)
}
