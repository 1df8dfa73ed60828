package firestore

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/noteflow/pkg/domain/model"
	"github.com/secmon-lab/noteflow/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// aiConfigDoc is the Firestore document representation of model.AIConfig.
type aiConfigDoc struct {
	UseCase            string    `firestore:"use_case"`
	Version            int       `firestore:"version"`
	Model              string    `firestore:"model"`
	SystemPrompt       string    `firestore:"system_prompt"`
	UserPromptTemplate string    `firestore:"user_prompt_template"`
	MaxTokens          int       `firestore:"max_tokens"`
	Temperature        float64   `firestore:"temperature"`
	Description        string    `firestore:"description"`
	CreatedAt          time.Time `firestore:"created_at"`
	IsActive           bool      `firestore:"is_active"`
}

func toAIConfigDoc(c *model.AIConfig) *aiConfigDoc {
	return &aiConfigDoc{
		UseCase:            string(c.UseCase),
		Version:            c.Version,
		Model:              c.Model,
		SystemPrompt:       c.SystemPrompt,
		UserPromptTemplate: c.UserPromptTemplate,
		MaxTokens:          c.MaxTokens,
		Temperature:        c.Temperature,
		Description:        c.Description,
		CreatedAt:          c.CreatedAt,
		IsActive:           c.IsActive,
	}
}

func fromAIConfigDoc(d *aiConfigDoc) *model.AIConfig {
	return &model.AIConfig{
		UseCase:            types.UseCase(d.UseCase),
		Version:            d.Version,
		Model:              d.Model,
		SystemPrompt:       d.SystemPrompt,
		UserPromptTemplate: d.UserPromptTemplate,
		MaxTokens:          d.MaxTokens,
		Temperature:        d.Temperature,
		Description:        d.Description,
		CreatedAt:          d.CreatedAt,
		IsActive:           d.IsActive,
	}
}

func docToAIConfig(doc *firestore.DocumentSnapshot) (*model.AIConfig, error) {
	var d aiConfigDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to decode ai config", goerr.V("doc_id", doc.Ref.ID))
	}
	return fromAIConfigDoc(&d), nil
}

type aiConfigRepository struct {
	client *firestore.Client
	cols   collections
}

func newAIConfigRepository(c collections) *aiConfigRepository {
	return &aiConfigRepository{client: c.client, cols: c}
}

func (r *aiConfigRepository) collection() *firestore.CollectionRef {
	return r.cols.top(collectionAIConfigs)
}

func (r *aiConfigRepository) useCaseQuery(useCase types.UseCase) firestore.Query {
	return r.collection().Where("use_case", "==", string(useCase))
}

func (r *aiConfigRepository) Get(ctx context.Context, useCase types.UseCase, version int) (*model.AIConfig, error) {
	doc, err := r.collection().Doc(model.AIConfigDocID(useCase, version)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "ai config not found",
				goerr.V("use_case", useCase), goerr.V("version", version))
		}
		return nil, goerr.Wrap(err, "failed to get ai config",
			goerr.V("use_case", useCase), goerr.V("version", version))
	}
	return docToAIConfig(doc)
}

func (r *aiConfigRepository) list(ctx context.Context, q firestore.Query) ([]*model.AIConfig, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	configs := make([]*model.AIConfig, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate ai configs")
		}

		c, err := docToAIConfig(doc)
		if err != nil {
			return nil, err
		}
		configs = append(configs, c)
	}

	sort.Slice(configs, func(i, j int) bool {
		return configs[i].Version < configs[j].Version
	})
	return configs, nil
}

func (r *aiConfigRepository) List(ctx context.Context, useCase types.UseCase) ([]*model.AIConfig, error) {
	return r.list(ctx, r.useCaseQuery(useCase))
}

func (r *aiConfigRepository) ListActive(ctx context.Context, useCase types.UseCase) ([]*model.AIConfig, error) {
	return r.list(ctx, r.useCaseQuery(useCase).Where("is_active", "==", true))
}

func (r *aiConfigRepository) Create(ctx context.Context, cfg *model.AIConfig) (*model.AIConfig, error) {
	var created *model.AIConfig

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		docs, err := tx.Documents(r.useCaseQuery(cfg.UseCase)).GetAll()
		if err != nil {
			return goerr.Wrap(err, "failed to read sibling ai configs")
		}

		maxVersion := 0
		var actives []*firestore.DocumentRef
		for _, doc := range docs {
			c, err := docToAIConfig(doc)
			if err != nil {
				return err
			}
			maxVersion = max(maxVersion, c.Version)
			if c.IsActive {
				actives = append(actives, doc.Ref)
			}
		}

		created = &model.AIConfig{}
		*created = *cfg
		created.Version = maxVersion + 1
		created.CreatedAt = time.Now().UTC()

		if created.IsActive {
			for _, ref := range actives {
				if err := tx.Update(ref, []firestore.Update{{Path: "is_active", Value: false}}); err != nil {
					return goerr.Wrap(err, "failed to deactivate ai config", goerr.V("doc_id", ref.ID))
				}
			}
		}

		ref := r.collection().Doc(created.DocID())
		if err := tx.Create(ref, toAIConfigDoc(created)); err != nil {
			return goerr.Wrap(err, "failed to create ai config", goerr.V("doc_id", ref.ID))
		}
		return nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create ai config", goerr.V("use_case", cfg.UseCase))
	}

	return created, nil
}

func (r *aiConfigRepository) Activate(ctx context.Context, useCase types.UseCase, version int) (bool, error) {
	targetID := model.AIConfigDocID(useCase, version)
	changed := false

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		changed = false

		docs, err := tx.Documents(r.useCaseQuery(useCase)).GetAll()
		if err != nil {
			return goerr.Wrap(err, "failed to read sibling ai configs")
		}

		var target *firestore.DocumentSnapshot
		var updates []*firestore.DocumentRef
		for _, doc := range docs {
			c, err := docToAIConfig(doc)
			if err != nil {
				return err
			}
			if doc.Ref.ID == targetID {
				target = doc
				if !c.IsActive {
					changed = true
				}
				continue
			}
			if c.IsActive {
				updates = append(updates, doc.Ref)
			}
		}
		if target == nil {
			return goerr.Wrap(ErrNotFound, "ai config not found",
				goerr.V("use_case", useCase), goerr.V("version", version))
		}

		for _, ref := range updates {
			changed = true
			if err := tx.Update(ref, []firestore.Update{{Path: "is_active", Value: false}}); err != nil {
				return goerr.Wrap(err, "failed to deactivate ai config", goerr.V("doc_id", ref.ID))
			}
		}
		if !changed {
			return nil
		}
		return tx.Update(target.Ref, []firestore.Update{{Path: "is_active", Value: true}})
	})
	if err != nil {
		return false, goerr.Wrap(err, "failed to activate ai config",
			goerr.V("use_case", useCase), goerr.V("version", version))
	}

	return changed, nil
}

func (r *aiConfigRepository) Delete(ctx context.Context, useCase types.UseCase, version int) (bool, error) {
	ref := r.collection().Doc(model.AIConfigDocID(useCase, version))
	deleted := false

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		deleted = false

		doc, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return nil
			}
			return goerr.Wrap(err, "failed to get ai config")
		}

		c, err := docToAIConfig(doc)
		if err != nil {
			return err
		}
		if c.IsActive {
			return nil
		}

		deleted = true
		return tx.Delete(ref)
	})
	if err != nil {
		return false, goerr.Wrap(err, "failed to delete ai config",
			goerr.V("use_case", useCase), goerr.V("version", version))
	}

	return deleted, nil
}
