package vectorstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/aerae/accelerator/internal/store"
	"github.com/aerae/accelerator/internal/store/model"
)

// StoreIndex keeps the policies in the database and searches them exhaustively with squared
// euclidean distance. Ties keep insertion order.
type StoreIndex struct {
	store store.Store
}

var _ Index = (*StoreIndex)(nil)

func NewStoreIndex(s store.Store) *StoreIndex {
	return &StoreIndex{store: s}
}

func (i *StoreIndex) Upsert(ctx context.Context, policy model.PolicyDocument) error {
	if len(policy.Embedding) == 0 {
		return fmt.Errorf("policy %s has no embedding", policy.ID)
	}
	_, err := i.store.Policy().Upsert(ctx, policy)
	return err
}

func (i *StoreIndex) Search(ctx context.Context, vector []float32, topK int) ([]Hit, error) {
	if topK <= 0 {
		return []Hit{}, nil
	}

	policies, err := i.store.Policy().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading policies: %w", err)
	}

	hits := make([]Hit, 0, len(policies))
	for _, p := range policies {
		d, err := squaredL2(vector, p.Embedding)
		if err != nil {
			return nil, fmt.Errorf("policy %s: %w", p.ID, err)
		}
		hits = append(hits, Hit{ID: p.ID, Document: p.Text, Distance: d})
	}

	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Distance < hits[b].Distance
	})

	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func squaredL2(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: query has %d, policy has %d", len(a), len(b))
	}
	var sum float64
	for k := range a {
		d := float64(a[k]) - float64(b[k])
		sum += d * d
	}
	return sum, nil
}
