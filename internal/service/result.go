package service

import (
	"encoding/json"

	"github.com/aerae/accelerator/internal/document"
	"github.com/aerae/accelerator/internal/ingestion"
	"github.com/aerae/accelerator/internal/opa"
	"github.com/aerae/accelerator/internal/scoring"
	"github.com/aerae/accelerator/internal/store/model"
)

// CodeMetadata is what the ingestion phase learned from the repository tree.
type CodeMetadata struct {
	Files                []string            `json:"files"`
	FilesCount           int                 `json:"files_count"`
	Extensions           map[string]int      `json:"extensions"`
	SecretsFound         *int                `json:"secrets_found"`
	SecretScanSuccessful bool                `json:"secret_scan_successful"`
	SecretFindings       []ingestion.Finding `json:"secret_findings"`
	SecretScanError      string              `json:"secret_scan_error,omitempty"`
}

// Result is the document persisted with a Complete job.
type Result struct {
	GithubURL       string             `json:"github_url"`
	CodeMetadata    CodeMetadata       `json:"code_metadata"`
	PdfAnalysis     *document.Analysis `json:"pdf_analysis"`
	PoliciesMatched []string           `json:"policies_matched"`
	Risks           model.RiskList     `json:"risks"`
	TrustScore      int                `json:"trust_score"`
	ScoreBreakdown  scoring.Result     `json:"score_breakdown"`
	Decision        string             `json:"decision"`
	OpaResult       *opa.Decision      `json:"opa_result"`
	DocumentObject  *string            `json:"document_object,omitempty"`
}

type failure struct {
	Error string `json:"error"`
}

// gatePayload is the input document of the ethical gates policy.
type gatePayload struct {
	GithubURL            string         `json:"github_url"`
	TrustScore           int            `json:"trust_score"`
	SecretsCount         int            `json:"secrets_count"`
	SecretScanSuccessful bool           `json:"secret_scan_successful"`
	Risks                model.RiskList `json:"risks"`
	PoliciesMatched      []string       `json:"policies_matched"`
	HasDocument          bool           `json:"has_document"`
}

func (p gatePayload) toMap() (map[string]any, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}
