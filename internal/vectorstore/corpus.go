package vectorstore

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aerae/accelerator/internal/llm"
	"github.com/aerae/accelerator/internal/store/model"
	"go.uber.org/zap"
	"sigs.k8s.io/yaml"
)

// Policy is one governance rule before it is embedded.
type Policy struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// BundledPolicies returns the default AI-ethics corpus.
func BundledPolicies() []Policy {
	return []Policy{
		{ID: "ethics-001", Text: "No PII allowed without encryption at rest and in transit."},
		{ID: "ethics-002", Text: "AI systems must be regularly audited for bias across all protected demographic groups before deployment."},
		{ID: "ethics-003", Text: "Training data should be representative and balanced to prevent discriminatory outcomes in model predictions."},
		{ID: "ethics-004", Text: "All AI-driven decisions must be explainable and auditable by non-technical stakeholders."},
		{ID: "ethics-005", Text: "Organisations must obtain informed consent before using personal data for AI model training."},
	}
}

// LoadPolicies reads a yaml (or json) list of policies. Ids must be unique and texts non blank.
func LoadPolicies(path string) ([]Policy, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy file: %w", err)
	}

	var policies []Policy
	if err := yaml.Unmarshal(content, &policies); err != nil {
		return nil, fmt.Errorf("decoding policy file %s: %w", path, err)
	}
	if len(policies) == 0 {
		return nil, fmt.Errorf("policy file %s holds no policy", path)
	}

	seen := make(map[string]struct{}, len(policies))
	for i, p := range policies {
		if strings.TrimSpace(p.ID) == "" {
			return nil, fmt.Errorf("policy #%d has no id", i+1)
		}
		if strings.TrimSpace(p.Text) == "" {
			return nil, fmt.Errorf("policy %s has no text", p.ID)
		}
		if _, ok := seen[p.ID]; ok {
			return nil, fmt.Errorf("policy %s is defined twice", p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return policies, nil
}

// Seed embeds every policy and upserts it into the index. It stops at the first failure and
// returns the number of policies written so far.
func Seed(ctx context.Context, embedder llm.Embedder, index Index, policies []Policy) (int, error) {
	logger := zap.S().Named("seed")

	for i, p := range policies {
		vector, err := embedder.Embed(ctx, p.Text)
		if err != nil {
			return i, fmt.Errorf("embedding policy %s: %w", p.ID, err)
		}
		if err := index.Upsert(ctx, model.PolicyDocument{ID: p.ID, Text: p.Text, Embedding: vector}); err != nil {
			return i, fmt.Errorf("storing policy %s: %w", p.ID, err)
		}
		logger.Infow("policy seeded", "id", p.ID, "dim", len(vector))
	}
	return len(policies), nil
}
