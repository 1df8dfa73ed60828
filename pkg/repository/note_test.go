package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/noteflow/pkg/domain/interfaces"
	"github.com/secmon-lab/noteflow/pkg/domain/model"
)

func runNoteRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Create starts without projects", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := newUserID()

		created, err := repo.Note().Create(ctx, userID, &model.Note{Content: "paid rent"})
		gt.NoError(t, err).Required()

		got, err := repo.Note().Get(ctx, userID, created.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Content).Equal("paid rent")
		gt.Array(t, got.ProjectIDs).Length(0)
	})

	t.Run("SetProjects replaces the project ids", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := newUserID()

		created, err := repo.Note().Create(ctx, userID, &model.Note{Content: "x"})
		gt.NoError(t, err).Required()

		ids := []model.ProjectID{model.NewProjectID(), model.NewProjectID()}
		gt.NoError(t, repo.Note().SetProjects(ctx, userID, created.ID, ids)).Required()

		got, err := repo.Note().Get(ctx, userID, created.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.ProjectIDs).Equal(ids)

		err = repo.Note().SetProjects(ctx, userID, model.NewNoteID(), ids)
		gt.Bool(t, isNotFound(err)).True()
	})

	t.Run("List pages newest first", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := newUserID()

		for i := range 5 {
			_, err := repo.Note().Create(ctx, userID, &model.Note{Content: fmt.Sprintf("note %d", i)})
			gt.NoError(t, err).Required()
			time.Sleep(2 * time.Millisecond)
		}

		page1, next, err := repo.Note().List(ctx, userID, interfaces.ListOptions{Limit: 2})
		gt.NoError(t, err).Required()
		gt.Array(t, page1).Length(2)
		gt.Value(t, page1[0].Content).Equal("note 4")
		gt.String(t, next).NotEqual("")

		page2, next, err := repo.Note().List(ctx, userID, interfaces.ListOptions{Limit: 2, Cursor: next})
		gt.NoError(t, err).Required()
		gt.Array(t, page2).Length(2)
		gt.Value(t, page2[0].Content).Equal("note 2")

		page3, next, err := repo.Note().List(ctx, userID, interfaces.ListOptions{Limit: 2, Cursor: next})
		gt.NoError(t, err).Required()
		gt.Array(t, page3).Length(1)
		gt.Value(t, next).Equal("")

		all, _, err := repo.Note().List(ctx, userID, interfaces.ListOptions{})
		gt.NoError(t, err).Required()
		gt.Array(t, all).Length(5)
	})

	t.Run("Delete removes the note", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := newUserID()

		created, err := repo.Note().Create(ctx, userID, &model.Note{Content: "bye"})
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.Note().Delete(ctx, userID, created.ID)).Required()

		_, err = repo.Note().Get(ctx, userID, created.ID)
		gt.Bool(t, isNotFound(err)).True()
	})
}

func TestNoteRepository_Memory(t *testing.T) {
	runNoteRepositoryTest(t, newMemoryRepository)
}

func TestNoteRepository_Firestore(t *testing.T) {
	runNoteRepositoryTest(t, newFirestoreRepository)
}
