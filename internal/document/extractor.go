package document

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aerae/accelerator/internal/llm"
	"go.uber.org/zap"
)

const (
	// MaxTextLength bounds the document text sent to the model, in characters.
	MaxTextLength = 12000

	systemPrompt = "You are a helpful document analysis assistant."

	extractionPrompt = `You are a document analysis assistant. Analyse the following document text
and extract the information into **strict JSON** (no markdown fences, no extra keys):

{
  "project_purpose": "<concise summary of the project's purpose>",
  "data_types_used": ["<data type 1>", "<data type 2>", "..."],
  "potential_risks": ["<risk 1>", "<risk 2>", "..."]
}

Rules:
- "project_purpose" must be a single string (1-3 sentences).
- "data_types_used" must list every distinct data / data-type category mentioned.
- "potential_risks" must list concrete risks or concerns found in the document.
- If a section has no relevant info, use an empty list [] or "Not specified".
- Output ONLY the JSON object, nothing else.
`
)

// Analysis is the structured summary of a project document.
type Analysis struct {
	ProjectPurpose string   `json:"project_purpose"`
	DataTypesUsed  []string `json:"data_types_used"`
	PotentialRisks []string `json:"potential_risks"`
	Source         string   `json:"source"`
	FallbackUsed   bool     `json:"fallback_used"`
	FallbackReason *string  `json:"fallback_reason"`
}

type Extractor struct {
	fallback *llm.Fallback
	text     TextExtractor
}

func NewExtractor(primary, secondary llm.Provider) *Extractor {
	return &Extractor{
		fallback: llm.NewFallback("parse PDF", primary, secondary),
		text:     PlainText,
	}
}

// WithTextExtractor replaces the PDF text reader.
func (e *Extractor) WithTextExtractor(fn TextExtractor) *Extractor {
	e.text = fn
	return e
}

// Extract reads the PDF at path and asks the models for its purpose, data types and risks.
func (e *Extractor) Extract(ctx context.Context, path string) (*Analysis, error) {
	logger := zap.S().Named("document")

	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return nil, NewErrInvalidDocument("expected a .pdf file, got: %q", filepath.Ext(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewErrInvalidDocument("PDF not found: %s", filepath.Base(path))
		}
		return nil, fmt.Errorf("reading document: %w", err)
	}

	text, err := e.text(data)
	if err != nil {
		return nil, NewErrInvalidDocument("failed to read PDF: %v", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, NewErrInvalidDocument("PDF contains no extractable text.")
	}
	text = truncate(text, MaxTextLength)

	req := llm.Request{
		System: systemPrompt,
		User:   fmt.Sprintf("%s\n\n--- DOCUMENT TEXT ---\n%s", extractionPrompt, text),
	}

	var analysis *Analysis
	res, err := e.fallback.Generate(ctx, req, func(raw string) error {
		a, perr := parseAnalysis(raw)
		if perr != nil {
			return perr
		}
		analysis = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	analysis.Source = res.Provider
	analysis.FallbackUsed = res.FallbackUsed
	analysis.FallbackReason = res.FallbackReason

	logger.Infow("document analysed", "source", res.Provider, "fallback_used", res.FallbackUsed)
	return analysis, nil
}

func parseAnalysis(raw string) (*Analysis, error) {
	obj, err := llm.ParseJSONObject(raw, "project_purpose", "data_types_used", "potential_risks")
	if err != nil {
		return nil, err
	}

	purpose, ok := obj["project_purpose"].(string)
	if !ok {
		return nil, llm.NewErrParse("project_purpose must be a string")
	}

	// round trip the two lists through their typed form
	var lists struct {
		DataTypesUsed  []string `json:"data_types_used"`
		PotentialRisks []string `json:"potential_risks"`
	}
	b, _ := json.Marshal(map[string]any{
		"data_types_used": obj["data_types_used"],
		"potential_risks": obj["potential_risks"],
	})
	if err := json.Unmarshal(b, &lists); err != nil {
		return nil, llm.NewErrParse("data_types_used and potential_risks must be lists of strings: %v", err)
	}
	if lists.DataTypesUsed == nil || lists.PotentialRisks == nil {
		return nil, llm.NewErrParse("data_types_used and potential_risks must be lists")
	}

	return &Analysis{
		ProjectPurpose: purpose,
		DataTypesUsed:  lists.DataTypesUsed,
		PotentialRisks: lists.PotentialRisks,
	}, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
