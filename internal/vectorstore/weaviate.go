package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aerae/accelerator/internal/store/model"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
	"go.uber.org/zap"
)

// WeaviateIndex stores policies as objects of a vectorizer-less class and searches them with
// nearVector.
type WeaviateIndex struct {
	client    *weaviate.Client
	className string
}

var _ Index = (*WeaviateIndex)(nil)

// NewWeaviateIndex connects and makes sure the policy class exists.
func NewWeaviateIndex(ctx context.Context, scheme, host, className string) (*WeaviateIndex, error) {
	client, err := weaviate.NewClient(weaviate.Config{Host: host, Scheme: scheme})
	if err != nil {
		return nil, fmt.Errorf("creating weaviate client: %w", err)
	}

	idx := &WeaviateIndex{client: client, className: className}
	if err := idx.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return idx, nil
}

func (w *WeaviateIndex) ensureSchema(ctx context.Context) error {
	logger := zap.S().Named("weaviate")

	if _, err := w.client.Schema().ClassGetter().WithClassName(w.className).Do(ctx); err == nil {
		logger.Debugf("class %s already exists", w.className)
		return nil
	}

	logger.Infof("class %s not found, creating it", w.className)
	class := &models.Class{
		Class:       w.className,
		Description: "AI ethics and compliance policies",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{Name: "policy_id", DataType: []string{"text"}},
			{Name: "text", DataType: []string{"text"}},
		},
	}
	if err := w.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("creating weaviate class %s: %w", w.className, err)
	}
	return nil
}

func objectID(policyID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(policyID)).String()
}

func (w *WeaviateIndex) Upsert(ctx context.Context, policy model.PolicyDocument) error {
	id := objectID(policy.ID)

	exists, err := w.client.Data().Checker().WithID(id).WithClassName(w.className).Do(ctx)
	if err != nil {
		return fmt.Errorf("checking policy %s: %w", policy.ID, err)
	}
	if exists {
		if err := w.client.Data().Deleter().WithClassName(w.className).WithID(id).Do(ctx); err != nil {
			return fmt.Errorf("replacing policy %s: %w", policy.ID, err)
		}
	}

	_, err = w.client.Data().Creator().
		WithClassName(w.className).
		WithID(id).
		WithProperties(map[string]any{
			"policy_id": policy.ID,
			"text":      policy.Text,
		}).
		WithVector(policy.Embedding).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("storing policy %s: %w", policy.ID, err)
	}
	return nil
}

type searchResponse struct {
	Get map[string][]struct {
		PolicyID   string `json:"policy_id"`
		Text       string `json:"text"`
		Additional struct {
			Distance float64 `json:"distance"`
		} `json:"_additional"`
	} `json:"Get"`
}

func (w *WeaviateIndex) Search(ctx context.Context, vector []float32, topK int) ([]Hit, error) {
	if topK <= 0 {
		return []Hit{}, nil
	}

	nearVector := w.client.GraphQL().NearVectorArgBuilder().WithVector(vector)
	resp, err := w.client.GraphQL().Get().
		WithClassName(w.className).
		WithFields(
			graphql.Field{Name: "policy_id"},
			graphql.Field{Name: "text"},
			graphql.Field{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}}},
		).
		WithNearVector(nearVector).
		WithLimit(topK).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("searching policies: %w", err)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("searching policies: %s", resp.Errors[0].Message)
	}

	raw, err := json.Marshal(resp.Data)
	if err != nil {
		return nil, err
	}
	var parsed searchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	hits := []Hit{}
	for _, obj := range parsed.Get[w.className] {
		hits = append(hits, Hit{ID: obj.PolicyID, Document: obj.Text, Distance: obj.Additional.Distance})
	}
	return hits, nil
}
