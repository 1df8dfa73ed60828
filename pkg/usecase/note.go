package usecase

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/noteflow/pkg/domain/interfaces"
	"github.com/secmon-lab/noteflow/pkg/domain/model"
	"github.com/secmon-lab/noteflow/pkg/domain/types"
	"github.com/secmon-lab/noteflow/pkg/utils/errutil"
	"github.com/secmon-lab/noteflow/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

// DefaultRelevanceConcurrency bounds parallel relevance calls of one note
const DefaultRelevanceConcurrency = 4

// NoteUseCase stores notes and runs the ingestion pipeline
type NoteUseCase struct {
	repo        interfaces.Repository
	projects    *ProjectUseCase
	relevance   *RelevanceExtractor
	summary     *SummaryMerger
	actions     *ActionManager
	tagger      *ProjectTagger
	concurrency int
	linking     bool
}

func NewNoteUseCase(repo interfaces.Repository, projects *ProjectUseCase, relevance *RelevanceExtractor, summary *SummaryMerger, actions *ActionManager, tagger *ProjectTagger, concurrency int, linking bool) *NoteUseCase {
	if concurrency <= 0 {
		concurrency = DefaultRelevanceConcurrency
	}
	return &NoteUseCase{
		repo:        repo,
		projects:    projects,
		relevance:   relevance,
		summary:     summary,
		actions:     actions,
		tagger:      tagger,
		concurrency: concurrency,
		linking:     linking,
	}
}

// CreateNote stores the note and runs the pipeline stages in order. Only the
// write of the note itself can fail the call.
func (uc *NoteUseCase) CreateNote(ctx context.Context, userID, content string) (*model.Note, error) {
	if strings.TrimSpace(content) == "" {
		return nil, goerr.Wrap(ErrInvalidInput, "note content is required")
	}

	note, err := uc.repo.Note().Create(ctx, userID, &model.Note{Content: content})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create note", goerr.V(UserIDKey, userID))
	}

	ctx = logging.With(ctx, logging.From(ctx).With("note_id", note.ID, "user_id", userID))

	if uc.linking {
		if err := uc.linkProjects(ctx, note); err != nil {
			errutil.Handle(ctx, err, "project linking stage failed")
		}
	}

	if err := uc.manageActionItems(ctx, note); err != nil {
		errutil.Handle(ctx, err, "action item stage failed")
	}

	if result := uc.tagger.RunForUser(ctx, userID); !result.Success {
		logging.From(ctx).Warn("project tagging stage did not succeed",
			"error", result.Error, "failed_updates", len(result.FailedUpdates))
	}

	stored, err := uc.GetNote(ctx, userID, note.ID)
	if err != nil {
		errutil.Handle(ctx, err, "note finalization failed")
		note.Projects = []model.ProjectRef{}
		return note, nil
	}
	return stored, nil
}

type relevanceHit struct {
	project    *model.Project
	extraction *model.RelevanceExtraction
}

// linkProjects asks every candidate project for relevance, merges the
// relevant content into their summaries and stores the associations.
func (uc *NoteUseCase) linkProjects(ctx context.Context, note *model.Note) error {
	projects, err := uc.projects.ListProjects(ctx, note.UserID)
	if err != nil {
		return goerr.Wrap(err, "failed to list projects")
	}

	children := make(map[model.ProjectID][]model.ProjectHierarchyEntry)
	candidates := make([]*model.Project, 0, len(projects))
	for _, p := range projects {
		if p.ParentID != nil {
			children[*p.ParentID] = append(children[*p.ParentID], model.ProjectHierarchyEntry{
				Name:        p.Name,
				Description: p.Description,
			})
		}
		if p.Name == types.ProjectNameMiscellaneous && p.IsRoot() {
			continue
		}
		candidates = append(candidates, p)
	}

	results := make([]*model.RelevanceExtraction, len(candidates))
	var eg errgroup.Group
	eg.SetLimit(uc.concurrency)
	for i, p := range candidates {
		eg.Go(func() error {
			res, err := uc.relevance.ExtractRelevance(ctx, RelevanceInput{
				NoteContent:        note.Content,
				ProjectName:        p.Name,
				ProjectDescription: p.Description,
				ProjectHierarchy:   children[p.ID],
				UserID:             note.UserID,
			})
			if err != nil {
				errutil.Handle(ctx, goerr.Wrap(err, "skipping project", goerr.V(ProjectIDKey, p.ID)),
					"relevance extraction failed")
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = eg.Wait()

	var hits []relevanceHit
	for i, res := range results {
		if res != nil && res.IsRelevant {
			hits = append(hits, relevanceHit{project: candidates[i], extraction: res})
		}
	}

	if len(hits) == 0 {
		misc, err := uc.projects.EnsureRootProject(ctx, note.UserID, types.ProjectNameMiscellaneous, miscellaneousDescription)
		if err != nil {
			return goerr.Wrap(err, "failed to prepare fallback project")
		}
		hits = []relevanceHit{{
			project:    misc,
			extraction: &model.RelevanceExtraction{IsRelevant: true, ExtractedContent: note.Content},
		}}
	}

	linked := make([]model.ProjectID, 0, len(hits))
	for _, hit := range hits {
		linked = append(linked, hit.project.ID)

		summary := uc.summary.MergeSummary(ctx, SummaryInput{
			ProjectID:          hit.project.ID,
			ProjectName:        hit.project.Name,
			ProjectDescription: hit.project.Description,
			CurrentSummary:     hit.project.Summary,
			ExtractedContent:   hit.extraction.ExtractedContent,
		})
		if err := uc.projects.UpdateSummary(ctx, note.UserID, hit.project.ID, summary); err != nil {
			errutil.Handle(ctx, err, "failed to store merged summary")
		}
	}

	if err := uc.repo.Note().SetProjects(ctx, note.UserID, note.ID, linked); err != nil {
		return goerr.Wrap(err, "failed to store note projects")
	}

	logging.From(ctx).Info("note linked to projects", "projects", len(linked))
	return nil
}

func (uc *NoteUseCase) manageActionItems(ctx context.Context, note *model.Note) error {
	status := types.ActionItemStatusOpen
	open, _, err := uc.repo.ActionItem().List(ctx, note.UserID, interfaces.ActionItemFilter{Status: &status})
	if err != nil {
		return goerr.Wrap(err, "failed to list open action items")
	}

	directives, err := uc.actions.ManageActionItems(ctx, ActionManagementInput{
		NoteContent:       note.Content,
		ExistingOpenItems: open,
		UserID:            note.UserID,
	})
	if err != nil {
		return goerr.Wrap(err, "failed to get action item directives")
	}

	applied := 0
	for i, d := range directives {
		if err := uc.applyDirective(ctx, note, d); err != nil {
			errutil.Handle(ctx, goerr.Wrap(err, "skipping directive",
				goerr.V("index", i), goerr.V("action", d.Action), goerr.V("id", d.ID)),
				"action item directive failed")
			continue
		}
		applied++
	}

	logging.From(ctx).Info("action item directives applied", "total", len(directives), "applied", applied)
	return nil
}

func strValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func (uc *NoteUseCase) applyDirective(ctx context.Context, note *model.Note, d model.ActionDirective) error {
	switch types.DirectiveAction(d.Action) {
	case types.DirectiveActionNew:
		task := strings.TrimSpace(strValue(d.Task))
		if task == "" {
			return goerr.Wrap(ErrInvalidInput, "new action item without task")
		}
		_, err := uc.repo.ActionItem().Create(ctx, note.UserID, &model.ActionItem{
			Task:              task,
			Doer:              strValue(d.Doer),
			Deadline:          strValue(d.Deadline),
			Theme:             strValue(d.Theme),
			Context:           strValue(d.Context),
			ExtractedEntities: d.ExtractedEntities,
			Status:            types.ActionItemStatusOpen,
			Type:              types.NormalizeActionItemType(strValue(d.Type)),
			Projects:          []model.ProjectID{},
			SourceNoteID:      note.ID,
		})
		if err != nil {
			return goerr.Wrap(err, "failed to create action item")
		}
		return nil

	case types.DirectiveActionUpdate, types.DirectiveActionComplete:
		if d.ID == "" {
			return goerr.Wrap(ErrInvalidInput, "directive requires an action item id")
		}
		item, err := uc.repo.ActionItem().Get(ctx, note.UserID, model.ActionItemID(d.ID))
		if err != nil {
			return goerr.Wrap(ErrActionItemNotFound, "action item not found",
				goerr.V(ActionItemIDKey, d.ID), goerr.V("cause", err.Error()))
		}

		if types.DirectiveAction(d.Action) == types.DirectiveActionComplete {
			item.Status = types.ActionItemStatusCompleted
		} else {
			upd := model.ActionItemUpdate{
				Task:              d.Task,
				Doer:              d.Doer,
				Deadline:          d.Deadline,
				Theme:             d.Theme,
				Context:           d.Context,
				ExtractedEntities: d.ExtractedEntities,
			}
			if d.Type != nil {
				t := types.NormalizeActionItemType(*d.Type)
				upd.Type = &t
			}
			upd.Apply(item)
		}

		if _, err := uc.repo.ActionItem().Update(ctx, note.UserID, item); err != nil {
			return goerr.Wrap(err, "failed to update action item", goerr.V(ActionItemIDKey, item.ID))
		}
		return nil

	default:
		return goerr.Wrap(ErrInvalidInput, "unknown directive action", goerr.V("action", d.Action))
	}
}

// attachProjects fills the project refs of notes from their project ids
func (uc *NoteUseCase) attachProjects(ctx context.Context, userID string, notes ...*model.Note) error {
	projects, err := uc.projects.ListProjects(ctx, userID)
	if err != nil {
		return err
	}
	byID := make(map[model.ProjectID]*model.Project, len(projects))
	for _, p := range projects {
		byID[p.ID] = p
	}

	for _, n := range notes {
		n.Projects = make([]model.ProjectRef, 0, len(n.ProjectIDs))
		for _, id := range n.ProjectIDs {
			if p, ok := byID[id]; ok {
				n.Projects = append(n.Projects, model.ProjectRef{ID: p.ID, Name: p.Name})
			}
		}
	}
	return nil
}

func (uc *NoteUseCase) GetNote(ctx context.Context, userID string, id model.NoteID) (*model.Note, error) {
	note, err := uc.repo.Note().Get(ctx, userID, id)
	if err != nil {
		return nil, goerr.Wrap(ErrNoteNotFound, "note not found",
			goerr.V(NoteIDKey, id), goerr.V("cause", err.Error()))
	}
	if err := uc.attachProjects(ctx, userID, note); err != nil {
		return nil, goerr.Wrap(err, "failed to resolve note projects", goerr.V(NoteIDKey, id))
	}
	return note, nil
}

// ListNotes returns one page of notes, newest first, and the next cursor
func (uc *NoteUseCase) ListNotes(ctx context.Context, userID string, opts interfaces.ListOptions) ([]*model.Note, string, error) {
	notes, next, err := uc.repo.Note().List(ctx, userID, opts)
	if err != nil {
		return nil, "", goerr.Wrap(err, "failed to list notes", goerr.V(UserIDKey, userID))
	}
	if err := uc.attachProjects(ctx, userID, notes...); err != nil {
		return nil, "", goerr.Wrap(err, "failed to resolve note projects")
	}
	return notes, next, nil
}

func (uc *NoteUseCase) DeleteNote(ctx context.Context, userID string, id model.NoteID) error {
	if _, err := uc.repo.Note().Get(ctx, userID, id); err != nil {
		return goerr.Wrap(ErrNoteNotFound, "note not found",
			goerr.V(NoteIDKey, id), goerr.V("cause", err.Error()))
	}
	if err := uc.repo.Note().Delete(ctx, userID, id); err != nil {
		return goerr.Wrap(err, "failed to delete note", goerr.V(NoteIDKey, id))
	}
	return nil
}
