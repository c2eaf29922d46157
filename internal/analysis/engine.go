package analysis

import (
	"context"
	"fmt"
	"sort"

	"github.com/aerae/accelerator/internal/document"
	"github.com/aerae/accelerator/internal/llm"
	"github.com/aerae/accelerator/internal/store/model"
	"github.com/aerae/accelerator/internal/vectorstore"
	"go.uber.org/zap"
)

const DefaultTopK = 3

// Input is what the ingestion phase learned about a project.
type Input struct {
	RepositoryURL string
	FileCount     int
	SecretCount   *int
	Document      *document.Analysis
	// Project is sent verbatim to the model as the project context.
	Project map[string]any
}

type Analysis struct {
	Risks           model.RiskList
	PoliciesMatched []string
	Hits            []vectorstore.Hit
}

// Engine grounds a risk analysis on the policies closest to the project.
type Engine struct {
	embedder llm.Embedder
	index    vectorstore.Index
	provider llm.Provider
	topK     int
}

func NewEngine(embedder llm.Embedder, index vectorstore.Index, provider llm.Provider, topK int) *Engine {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Engine{embedder: embedder, index: index, provider: provider, topK: topK}
}

func (e *Engine) Analyze(ctx context.Context, in Input) (*Analysis, error) {
	logger := zap.S().Named("risk_engine")

	description := BuildProjectDescription(in.RepositoryURL, in.Document, in.FileCount, in.SecretCount)
	vector, err := e.embedder.Embed(ctx, description)
	if err != nil {
		return nil, fmt.Errorf("embedding project description: %w", err)
	}

	hits, err := e.index.Search(ctx, vector, e.topK)
	if err != nil {
		return nil, fmt.Errorf("searching policies: %w", err)
	}
	if len(hits) == 0 {
		logger.Warnw("No relevant policies retrieved from the vector store", "repository", in.RepositoryURL)
	}

	policies := make([]string, 0, len(hits))
	for _, h := range hits {
		policies = append(policies, h.Document)
	}

	project := in.Project
	if project == nil {
		project = map[string]any{"github_url": in.RepositoryURL}
	}
	user, err := buildUserContent(project, policies)
	if err != nil {
		return nil, err
	}

	raw, err := e.provider.Complete(ctx, llm.Request{System: riskSystemPrompt, User: user, JSONMode: true})
	if err != nil {
		return nil, fmt.Errorf("risk analysis: %w", err)
	}

	risks, err := ParseRisks(raw)
	if err != nil {
		return nil, err
	}

	logger.Infow("risk analysis complete", "repository", in.RepositoryURL, "policies", len(policies), "risks", len(risks))
	return &Analysis{Risks: risks, PoliciesMatched: policies, Hits: hits}, nil
}

var riskFields = []string{"category", "reason", "severity"}

// ParseRisks validates a risk analysis answer. Every risk must have exactly the category,
// severity and reason string fields and a known severity, which is returned lower-cased.
func ParseRisks(raw string) (model.RiskList, error) {
	obj, err := llm.ParseJSONObject(raw, "risks")
	if err != nil {
		return nil, err
	}

	items, ok := obj["risks"].([]any)
	if !ok {
		return nil, llm.NewErrParse("risks must be an array")
	}

	risks := make(model.RiskList, 0, len(items))
	for i, item := range items {
		fields, ok := item.(map[string]any)
		if !ok {
			return nil, llm.NewErrParse("risk %d is not an object", i)
		}

		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if len(keys) != len(riskFields) {
			return nil, llm.NewErrParse("risk %d must have exactly %v, got %v", i, riskFields, keys)
		}

		values := make(map[string]string, len(riskFields))
		for _, k := range riskFields {
			v, ok := fields[k].(string)
			if !ok {
				return nil, llm.NewErrParse("risk %d: %s must be a string", i, k)
			}
			values[k] = v
		}

		severity := model.NormalizeSeverity(values["severity"])
		if !severity.IsValid() {
			return nil, llm.NewErrParse("risk %d: unknown severity %q", i, values["severity"])
		}

		risks = append(risks, model.Risk{
			Category: values["category"],
			Severity: string(severity),
			Reason:   values["reason"],
		})
	}
	return risks, nil
}

