package usecase

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/noteflow/pkg/domain/interfaces"
	"github.com/secmon-lab/noteflow/pkg/domain/model"
	"github.com/secmon-lab/noteflow/pkg/domain/types"
	"github.com/secmon-lab/noteflow/pkg/utils/logging"
)

const (
	// fileJobProgressInterval is the number of rows between progress writes
	fileJobProgressInterval = 10
	// DefaultDownloadURLTTL is the lifetime of signed output URLs
	DefaultDownloadURLTTL = 15 * time.Minute

	csvContentType = "text/csv"
)

// ErrFileJobsDisabled is returned when no blob store or queue is configured
var ErrFileJobsDisabled = goerr.New("file jobs are not configured")

// FileJobUseCase runs one AI configuration over every row of an uploaded CSV
// in the background worker.
type FileJobUseCase struct {
	repo       interfaces.Repository
	configs    *AIConfigUseCase
	completion interfaces.CompletionClient
	blobs      interfaces.BlobStore
	queue      interfaces.WorkQueue
	urlTTL     time.Duration
}

func NewFileJobUseCase(repo interfaces.Repository, configs *AIConfigUseCase, completion interfaces.CompletionClient, blobs interfaces.BlobStore, queue interfaces.WorkQueue) *FileJobUseCase {
	return &FileJobUseCase{
		repo:       repo,
		configs:    configs,
		completion: completion,
		blobs:      blobs,
		queue:      queue,
		urlTTL:     DefaultDownloadURLTTL,
	}
}

func inputKey(userID string, id model.FileJobID) string {
	return fmt.Sprintf("inputs/%s/%s.csv", userID, id)
}

func outputKey(userID string, id model.FileJobID) string {
	return fmt.Sprintf("outputs/%s/%s.csv", userID, id)
}

// missingParams returns the expected parameters of useCase absent from header
func missingParams(useCase types.UseCase, header []string) []string {
	info, _ := useCase.Info()
	var missing []string
	for _, p := range info.ExpectedParams {
		if !slices.Contains(header, p) {
			missing = append(missing, p)
		}
	}
	return missing
}

func readCSV(data []byte) ([]string, [][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = 0
	header, err := r.Read()
	if err == io.EOF {
		return nil, nil, goerr.Wrap(ErrInvalidInput, "csv has no header")
	}
	if err != nil {
		return nil, nil, goerr.Wrap(ErrInvalidInput, "failed to read csv header", goerr.V("error", err.Error()))
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, goerr.Wrap(ErrInvalidInput, "failed to read csv rows", goerr.V("error", err.Error()))
	}
	return header, rows, nil
}

// Upload validates the CSV, stores it, persists a pending job and enqueues it
func (uc *FileJobUseCase) Upload(ctx context.Context, userID string, useCase types.UseCase, version *int, fileName string, data []byte) (*model.FileJob, error) {
	if uc.blobs == nil || uc.queue == nil {
		return nil, ErrFileJobsDisabled
	}
	if !useCase.IsValid() {
		return nil, goerr.Wrap(ErrInvalidInput, "unknown use case", goerr.V(UseCaseKey, useCase))
	}
	if version != nil {
		if _, err := uc.configs.Get(ctx, useCase, *version); err != nil {
			return nil, err
		}
	}

	header, rows, err := readCSV(data)
	if err != nil {
		return nil, err
	}
	if missing := missingParams(useCase, header); len(missing) > 0 {
		return nil, goerr.Wrap(ErrInvalidInput, "csv header lacks template parameters",
			goerr.V("missing", missing), goerr.V(UseCaseKey, useCase))
	}

	id := model.NewFileJobID()
	key := inputKey(userID, id)
	if err := uc.blobs.Put(ctx, key, data, csvContentType); err != nil {
		return nil, goerr.Wrap(err, "failed to store input file", goerr.V(FileJobIDKey, id))
	}

	job, err := uc.repo.FileJob().Create(ctx, &model.FileJob{
		ID:           id,
		UserID:       userID,
		UseCase:      useCase,
		Version:      version,
		FileName:     fileName,
		InputKey:     key,
		Status:       types.FileJobStatusPending,
		TotalRecords: len(rows),
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create file job", goerr.V(FileJobIDKey, id))
	}

	payload, err := json.Marshal(model.FileJobMessage{JobID: job.ID, UserID: userID})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode file job message")
	}
	if err := uc.queue.Publish(ctx, payload); err != nil {
		return nil, goerr.Wrap(err, "failed to enqueue file job", goerr.V(FileJobIDKey, job.ID))
	}

	logging.From(ctx).Info("file job queued", "file_job_id", job.ID, "use_case", useCase, "rows", len(rows))
	return job, nil
}

func (uc *FileJobUseCase) GetFileJob(ctx context.Context, userID string, id model.FileJobID) (*model.FileJob, error) {
	job, err := uc.repo.FileJob().Get(ctx, userID, id)
	if err != nil {
		return nil, goerr.Wrap(ErrFileJobNotFound, "file job not found",
			goerr.V(FileJobIDKey, id), goerr.V("cause", err.Error()))
	}
	return job, nil
}

func (uc *FileJobUseCase) ListFileJobs(ctx context.Context, userID string) ([]*model.FileJob, error) {
	jobs, err := uc.repo.FileJob().List(ctx, userID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list file jobs", goerr.V(UserIDKey, userID))
	}
	return jobs, nil
}

// Interrupt asks the worker to stop the job. A job that has not started is
// interrupted at once.
func (uc *FileJobUseCase) Interrupt(ctx context.Context, userID string, id model.FileJobID) (*model.FileJob, error) {
	job, err := uc.GetFileJob(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return nil, goerr.Wrap(ErrFileJobFinished, "file job already finished",
			goerr.V(FileJobIDKey, id), goerr.V("status", job.Status))
	}

	if err := uc.repo.FileJob().SetInterrupted(ctx, userID, id); err != nil {
		return nil, goerr.Wrap(err, "failed to interrupt file job", goerr.V(FileJobIDKey, id))
	}

	job.Interrupted = true
	if job.Status == types.FileJobStatusPending {
		job.Status = types.FileJobStatusInterrupted
		updated, err := uc.repo.FileJob().Update(ctx, job)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to update file job", goerr.V(FileJobIDKey, id))
		}
		return updated, nil
	}
	return job, nil
}

// DownloadURL returns a signed URL of the job output
func (uc *FileJobUseCase) DownloadURL(ctx context.Context, userID string, id model.FileJobID) (string, error) {
	if uc.blobs == nil {
		return "", ErrFileJobsDisabled
	}
	job, err := uc.GetFileJob(ctx, userID, id)
	if err != nil {
		return "", err
	}
	if job.OutputKey == "" {
		return "", goerr.Wrap(ErrInvalidInput, "file job has no output yet",
			goerr.V(FileJobIDKey, id), goerr.V("status", job.Status))
	}

	url, err := uc.blobs.SignedURL(ctx, job.OutputKey, uc.urlTTL)
	if err != nil {
		return "", goerr.Wrap(err, "failed to sign output url", goerr.V(FileJobIDKey, id))
	}
	return url, nil
}

// Process runs a queued job to its end. keepalive is called with every
// progress write to extend the delivery. A returned error means the
// delivery should be retried; permanent failures are stored on the job and
// return nil.
func (uc *FileJobUseCase) Process(ctx context.Context, msg model.FileJobMessage, keepalive func(ctx context.Context) error) error {
	if uc.blobs == nil {
		return ErrFileJobsDisabled
	}

	job, err := uc.repo.FileJob().Get(ctx, msg.UserID, msg.JobID)
	if err != nil {
		logging.From(ctx).Warn("dropping message of unknown file job", "file_job_id", msg.JobID, "error", err.Error())
		return nil
	}
	if job.Status.IsTerminal() {
		return nil
	}

	ctx = logging.With(ctx, logging.From(ctx).With("file_job_id", job.ID, "user_id", job.UserID))

	if job.Interrupted {
		job.Status = types.FileJobStatusInterrupted
		if _, err := uc.repo.FileJob().Update(ctx, job); err != nil {
			return goerr.Wrap(err, "failed to mark file job interrupted")
		}
		return nil
	}

	// a redelivered job restarts from the first row
	job.Status = types.FileJobStatusProcessing
	job.ProcessedRecords = 0
	job.Error = ""
	if job, err = uc.repo.FileJob().Update(ctx, job); err != nil {
		return goerr.Wrap(err, "failed to mark file job processing")
	}

	fail := func(cause error) error {
		logging.From(ctx).Warn("file job failed", "error", cause.Error())
		job.Status = types.FileJobStatusFailed
		job.Error = cause.Error()
		if _, err := uc.repo.FileJob().Update(ctx, job); err != nil {
			return goerr.Wrap(err, "failed to mark file job failed")
		}
		return nil
	}

	data, err := uc.blobs.Get(ctx, job.InputKey)
	if err != nil {
		return fail(goerr.Wrap(err, "failed to read input file"))
	}
	header, rows, err := readCSV(data)
	if err != nil {
		return fail(err)
	}
	if missing := missingParams(job.UseCase, header); len(missing) > 0 {
		return fail(goerr.New("csv header lacks template parameters", goerr.V("missing", missing)))
	}
	cfg, err := uc.configs.Resolve(ctx, job.UseCase, job.Version)
	if err != nil {
		return fail(err)
	}

	var out bytes.Buffer
	w := csv.NewWriter(&out)
	if err := w.Write(append(slices.Clone(header), "result", "error")); err != nil {
		return fail(goerr.Wrap(err, "failed to write output header"))
	}

	interrupted := false
	processed := 0
	for _, row := range rows {
		current, err := uc.repo.FileJob().Get(ctx, job.UserID, job.ID)
		if err != nil {
			return goerr.Wrap(err, "failed to reload file job")
		}
		if current.Interrupted {
			interrupted = true
			break
		}

		result, rowErr := uc.processRow(ctx, cfg, header, row)
		if err := w.Write(append(slices.Clone(row), result, rowErr)); err != nil {
			return fail(goerr.Wrap(err, "failed to write output row"))
		}
		processed++

		if processed%fileJobProgressInterval == 0 {
			if err := uc.repo.FileJob().UpdateProgress(ctx, job.UserID, job.ID, processed); err != nil {
				return goerr.Wrap(err, "failed to store file job progress")
			}
			if keepalive != nil {
				if err := keepalive(ctx); err != nil {
					logging.From(ctx).Warn("failed to extend file job delivery", "error", err.Error())
				}
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fail(goerr.Wrap(err, "failed to flush output"))
	}

	key := outputKey(job.UserID, job.ID)
	if err := uc.blobs.Put(ctx, key, out.Bytes(), csvContentType); err != nil {
		return fail(goerr.Wrap(err, "failed to store output file"))
	}

	job.OutputKey = key
	job.ProcessedRecords = processed
	job.Status = types.FileJobStatusCompleted
	if interrupted {
		job.Status = types.FileJobStatusInterrupted
	}
	if _, err := uc.repo.FileJob().Update(ctx, job); err != nil {
		return goerr.Wrap(err, "failed to finish file job")
	}

	logging.From(ctx).Info("file job finished", "status", job.Status, "processed", processed, "total", job.TotalRecords)
	return nil
}

// processRow renders one row and returns the raw JSON reply or the error text
func (uc *FileJobUseCase) processRow(ctx context.Context, cfg *model.AIConfig, header, row []string) (string, string) {
	params := make(map[string]string, len(header))
	for i, name := range header {
		if i < len(row) {
			params[name] = row[i]
		}
	}

	info, _ := cfg.UseCase.Info()
	for _, p := range info.ExpectedParams {
		if _, ok := params[p]; !ok {
			return "", fmt.Sprintf("missing parameter %q", p)
		}
	}

	raw, err := uc.completion.Complete(ctx, model.CompletionRequest{
		Model:        cfg.Model,
		SystemPrompt: cfg.SystemPrompt,
		UserPrompt:   buildPrompt(cfg, params),
		MaxTokens:    cfg.MaxTokens,
		Temperature:  cfg.Temperature,
	})
	if err != nil {
		return "", err.Error()
	}

	trimmed := trimJSON(raw)
	if !json.Valid([]byte(trimmed)) {
		return raw, ErrMalformedResponse.Error()
	}
	return trimmed, ""
}
