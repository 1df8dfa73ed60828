package repository_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/noteflow/pkg/domain/interfaces"
	"github.com/secmon-lab/noteflow/pkg/domain/model"
	"github.com/secmon-lab/noteflow/pkg/domain/types"
)

func runFileJobRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	newJob := func(userID string) *model.FileJob {
		return &model.FileJob{
			UserID:       userID,
			UseCase:      types.UseCaseProjectSummary,
			FileName:     "in.csv",
			InputKey:     "inputs/" + userID + "/in.csv",
			Status:       types.FileJobStatusPending,
			TotalRecords: 12,
		}
	}

	t.Run("Create, Get and List", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := newUserID()

		created, err := repo.FileJob().Create(ctx, newJob(userID))
		gt.NoError(t, err).Required()

		got, err := repo.FileJob().Get(ctx, userID, created.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Status).Equal(types.FileJobStatusPending)
		gt.Value(t, got.TotalRecords).Equal(12)

		_, err = repo.FileJob().Get(ctx, "intruder", created.ID)
		gt.Bool(t, isNotFound(err)).True()

		jobs, err := repo.FileJob().List(ctx, userID)
		gt.NoError(t, err).Required()
		gt.Array(t, jobs).Length(1)
	})

	t.Run("Update keeps the interrupt flag", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := newUserID()

		created, err := repo.FileJob().Create(ctx, newJob(userID))
		gt.NoError(t, err).Required()

		gt.NoError(t, repo.FileJob().SetInterrupted(ctx, userID, created.ID)).Required()
		gt.NoError(t, repo.FileJob().UpdateProgress(ctx, userID, created.ID, 10)).Required()

		created.Status = types.FileJobStatusProcessing
		updated, err := repo.FileJob().Update(ctx, created)
		gt.NoError(t, err).Required()
		gt.Bool(t, updated.Interrupted).True()

		got, err := repo.FileJob().Get(ctx, userID, created.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Status).Equal(types.FileJobStatusProcessing)
		gt.Bool(t, got.Interrupted).True()
	})

	t.Run("UpdateProgress writes processed count", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := newUserID()

		created, err := repo.FileJob().Create(ctx, newJob(userID))
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.FileJob().UpdateProgress(ctx, userID, created.ID, 10)).Required()

		got, err := repo.FileJob().Get(ctx, userID, created.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.ProcessedRecords).Equal(10)

		err = repo.FileJob().UpdateProgress(ctx, "intruder", created.ID, 11)
		gt.Bool(t, isNotFound(err)).True()
	})
}

func TestFileJobRepository_Memory(t *testing.T) {
	runFileJobRepositoryTest(t, newMemoryRepository)
}

func TestFileJobRepository_Firestore(t *testing.T) {
	runFileJobRepositoryTest(t, newFirestoreRepository)
}
