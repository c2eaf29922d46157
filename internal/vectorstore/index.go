package vectorstore

import (
	"context"
	"fmt"

	"github.com/aerae/accelerator/internal/config"
	"github.com/aerae/accelerator/internal/store"
	"github.com/aerae/accelerator/internal/store/model"
)

const (
	BackendStore    = "store"
	BackendWeaviate = "weaviate"
)

// Hit is one policy returned by a similarity search. Lower distance means closer.
type Hit struct {
	ID       string  `json:"id"`
	Document string  `json:"document"`
	Distance float64 `json:"distance"`
}

// Index is a nearest neighbour search over the policy corpus.
type Index interface {
	Search(ctx context.Context, vector []float32, topK int) ([]Hit, error)
	Upsert(ctx context.Context, policy model.PolicyDocument) error
}

// NewIndex returns the index selected by the vector backend setting.
func NewIndex(ctx context.Context, cfg *config.Config, s store.Store) (Index, error) {
	switch cfg.Vector.Backend {
	case "", BackendStore:
		return NewStoreIndex(s), nil
	case BackendWeaviate:
		return NewWeaviateIndex(ctx, cfg.Vector.WeaviateScheme, cfg.Vector.WeaviateHost, cfg.Vector.WeaviateClass)
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.Vector.Backend)
	}
}
