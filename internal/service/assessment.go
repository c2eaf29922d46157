package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aerae/accelerator/internal/analysis"
	"github.com/aerae/accelerator/internal/document"
	"github.com/aerae/accelerator/internal/ingestion"
	"github.com/aerae/accelerator/internal/opa"
	"github.com/aerae/accelerator/internal/scoring"
	"github.com/aerae/accelerator/internal/store"
	"github.com/aerae/accelerator/internal/store/model"
	"github.com/aerae/accelerator/pkg/log"
	"github.com/aerae/accelerator/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultDocumentName = "uploaded.pdf"

const (
	PhaseIngestion = "ingestion"
	PhaseAnalysis  = "risk_analysis"
	PhaseScoring   = "scoring"
	PhaseGate      = "policy_gate"
)

type RepositoryFetcher interface {
	WithWorkspace(ctx context.Context, repoURL string, fn func(ws *ingestion.Workspace) error) error
}

type SecretScanner interface {
	Scan(ctx context.Context, dir string) (*ingestion.ScanResult, error)
}

type DocumentExtractor interface {
	Extract(ctx context.Context, path string) (*document.Analysis, error)
}

type RiskAnalyzer interface {
	Analyze(ctx context.Context, in analysis.Input) (*analysis.Analysis, error)
}

// DocumentArchiver keeps a copy of an uploaded document and returns its object key.
type DocumentArchiver interface {
	Archive(ctx context.Context, jobID uuid.UUID, path string) (string, error)
}

// Pipeline holds the collaborators of the four assessment phases.
type Pipeline struct {
	Fetcher   RepositoryFetcher
	Scanner   SecretScanner
	Documents DocumentExtractor
	Analyzer  RiskAnalyzer
	Gate      opa.Gatekeeper
	// Archive is optional.
	Archive DocumentArchiver
}

type CreateRequest struct {
	RepositoryURL string
	// DocumentPath is a temporary copy of the uploaded PDF. The service owns it from the
	// moment Create is called and removes it once the ingestion phase is over.
	DocumentPath string
	// DocumentName is the file name given by the client.
	DocumentName string
}

// JobView is a job as seen by a poller. Result is nil while the job is Processing.
type JobView struct {
	ID     uuid.UUID
	Status model.JobStatus
	Result json.RawMessage
}

type AssessmentService struct {
	store    store.Store
	pipeline Pipeline
	runner   *Runner
	logger   *log.StructuredLogger
}

func NewAssessmentService(store store.Store, pipeline Pipeline, runner *Runner) *AssessmentService {
	return &AssessmentService{
		store:    store,
		pipeline: pipeline,
		runner:   runner,
		logger:   log.NewDebugLogger("assessment_service"),
	}
}

// Create validates the request, persists a Processing job and starts the pipeline in the
// background. It returns as soon as the job is stored.
func (as *AssessmentService) Create(ctx context.Context, req CreateRequest) (*model.AssessmentJob, error) {
	tracer := as.logger.WithContext(ctx).
		Operation("create_assessment").
		WithString("repository_url", req.RepositoryURL).
		Build()

	if err := ingestion.ValidateURL(req.RepositoryURL); err != nil {
		removeDocument(req.DocumentPath)
		return nil, NewErrInvalidRequest(err.Error())
	}

	job := model.AssessmentJob{
		ID:            uuid.New(),
		Status:        model.JobStatusProcessing,
		RepositoryURL: req.RepositoryURL,
	}

	if req.DocumentPath != "" {
		name := filepath.Base(req.DocumentName)
		if req.DocumentName == "" {
			name = defaultDocumentName
		}
		job.DocumentName = &name
	}

	created, err := as.store.Job().Create(ctx, job)
	if err != nil {
		removeDocument(req.DocumentPath)
		tracer.Error(err).Log()
		return nil, fmt.Errorf("failed to create assessment job: %w", err)
	}
	metrics.IncreaseAssessmentJobsMetric(string(model.JobStatusProcessing))

	if err := as.runner.Go(func(runCtx context.Context) {
		as.run(runCtx, created.ID, req)
	}); err != nil {
		removeDocument(req.DocumentPath)
		as.fail(context.WithoutCancel(ctx), created.ID, err)
		tracer.Error(err).Log()
		return nil, NewErrServiceUnavailable(err)
	}

	tracer.Success().WithUUID("job_id", created.ID).Log()
	return created, nil
}

// Get returns the job identified by id. Malformed and unknown ids are both not found.
func (as *AssessmentService) Get(ctx context.Context, id string) (*JobView, error) {
	tracer := as.logger.WithContext(ctx).
		Operation("get_assessment").
		WithString("job_id", id).
		Build()

	jobID, err := uuid.Parse(id)
	if err != nil {
		return nil, NewErrJobNotFound(id)
	}

	job, err := as.store.Job().Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrJobNotFound(id)
		}
		tracer.Error(err).Log()
		return nil, fmt.Errorf("failed to get assessment job: %w", err)
	}

	view := &JobView{ID: job.ID, Status: job.Status}
	if job.Status.IsTerminal() && job.ResultJSON != nil {
		view.Result = json.RawMessage(*job.ResultJSON)
	}

	tracer.Success().WithString("status", string(job.Status)).Log()
	return view, nil
}

func (as *AssessmentService) run(ctx context.Context, id uuid.UUID, req CreateRequest) {
	logger := zap.S().Named("assessment_service").With("job_id", id)
	// terminal writes must land even when the runner is being cancelled
	writeCtx := context.WithoutCancel(ctx)

	defer removeDocument(req.DocumentPath)
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("assessment pipeline panicked: %v", r)
			as.fail(writeCtx, id, fmt.Errorf("internal error: %v", r))
		}
	}()

	documentObject := as.archive(ctx, id, req.DocumentPath)

	result, err := as.execute(ctx, req)
	if err != nil {
		logger.Errorf("assessment failed: %v", err)
		as.fail(writeCtx, id, err)
		return
	}
	result.DocumentObject = documentObject

	raw, err := json.Marshal(result)
	if err != nil {
		as.fail(writeCtx, id, fmt.Errorf("failed to encode result: %w", err))
		return
	}

	if err := as.store.Job().Finish(writeCtx, id, model.JobStatusComplete, raw); err != nil {
		as.logFinishError(id, err)
		if !errors.Is(err, store.ErrRecordNotFound) && !errors.Is(err, store.ErrJobNotProcessing) {
			as.fail(writeCtx, id, fmt.Errorf("failed to store result: %w", err))
		}
		return
	}
	metrics.IncreaseAssessmentJobsMetric(string(model.JobStatusComplete))
	logger.Infof("assessment complete: trust score %d, decision %s", result.TrustScore, result.Decision)
}

// archive keeps a copy of the uploaded document. A failed upload is logged and the job goes on
// without it.
func (as *AssessmentService) archive(ctx context.Context, id uuid.UUID, path string) *string {
	if path == "" || as.pipeline.Archive == nil {
		return nil
	}
	key, err := as.pipeline.Archive.Archive(ctx, id, path)
	if err != nil {
		zap.S().Named("assessment_service").Warnf("failed to archive document of job %s: %v", id, err)
		return nil
	}
	return &key
}

// execute runs the four phases in order and builds the result document.
func (as *AssessmentService) execute(ctx context.Context, req CreateRequest) (*Result, error) {
	result := &Result{GithubURL: req.RepositoryURL}

	// 1. ingestion
	start := time.Now()
	meta, err := as.ingest(ctx, req)
	removeDocument(req.DocumentPath)
	if err != nil {
		return nil, err
	}
	result.CodeMetadata = meta.code
	result.PdfAnalysis = meta.document
	metrics.ObservePhaseDuration(PhaseIngestion, time.Since(start))

	// 2. risk analysis
	start = time.Now()
	risks, err := as.pipeline.Analyzer.Analyze(ctx, analysis.Input{
		RepositoryURL: req.RepositoryURL,
		FileCount:     meta.code.FilesCount,
		SecretCount:   meta.code.SecretsFound,
		Document:      meta.document,
		Project:       projectContext(req.RepositoryURL, meta),
	})
	if err != nil {
		return nil, fmt.Errorf("risk analysis failed: %w", err)
	}
	result.Risks = risks.Risks
	if result.Risks == nil {
		result.Risks = model.RiskList{}
	}
	result.PoliciesMatched = risks.PoliciesMatched
	if result.PoliciesMatched == nil {
		result.PoliciesMatched = []string{}
	}
	metrics.ObservePhaseDuration(PhaseAnalysis, time.Since(start))

	// 3. scoring
	start = time.Now()
	secretCount := 0
	if meta.code.SecretsFound != nil {
		secretCount = *meta.code.SecretsFound
	}
	result.ScoreBreakdown = scoring.Breakdown(result.Risks, secretCount)
	result.TrustScore = result.ScoreBreakdown.Score
	metrics.ObservePhaseDuration(PhaseScoring, time.Since(start))

	// 4. policy gate
	start = time.Now()
	payload, err := gatePayload{
		GithubURL:            req.RepositoryURL,
		TrustScore:           result.TrustScore,
		SecretsCount:         secretCount,
		SecretScanSuccessful: meta.code.SecretScanSuccessful,
		Risks:                result.Risks,
		PoliciesMatched:      result.PoliciesMatched,
		HasDocument:          meta.document != nil,
	}.toMap()
	if err != nil {
		return nil, fmt.Errorf("failed to build policy input: %w", err)
	}

	decision, err := as.pipeline.Gate.Evaluate(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("policy evaluation failed: %w", err)
	}
	if decision.DenyReasons == nil {
		decision.DenyReasons = []string{}
	}
	result.OpaResult = decision
	result.Decision = decision.String()
	if decision.Unavailable {
		metrics.IncreaseGateDecisionMetric("unavailable")
	} else {
		metrics.IncreaseGateDecisionMetric(result.Decision)
	}
	metrics.ObservePhaseDuration(PhaseGate, time.Since(start))

	return result, nil
}

type ingested struct {
	code     CodeMetadata
	document *document.Analysis
}

func (as *AssessmentService) ingest(ctx context.Context, req CreateRequest) (*ingested, error) {
	logger := zap.S().Named("assessment_service")
	out := &ingested{}

	err := as.pipeline.Fetcher.WithWorkspace(ctx, req.RepositoryURL, func(ws *ingestion.Workspace) error {
		files, err := ingestion.ListFiles(ws.Dir)
		if err != nil {
			return fmt.Errorf("failed to list repository files: %w", err)
		}
		out.code.Files = files
		out.code.FilesCount = len(files)
		out.code.Extensions = ingestion.ExtensionHistogram(files)

		scan, err := as.pipeline.Scanner.Scan(ctx, ws.Dir)
		if err != nil {
			logger.Warnf("secret scan unavailable for %s: %v", req.RepositoryURL, err)
			scan = &ingestion.ScanResult{Error: err.Error()}
		}
		out.code.SecretScanSuccessful = scan.Success
		out.code.SecretFindings = scan.Findings
		if out.code.SecretFindings == nil {
			out.code.SecretFindings = []ingestion.Finding{}
		}
		if scan.Success {
			count := scan.SecretsFound
			out.code.SecretsFound = &count
		} else {
			out.code.SecretScanError = scan.Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if req.DocumentPath != "" {
		doc, err := as.pipeline.Documents.Extract(ctx, req.DocumentPath)
		if err != nil {
			return nil, fmt.Errorf("document analysis failed: %w", err)
		}
		out.document = doc
	}

	return out, nil
}

// projectContext is the project summary handed to the risk model.
func projectContext(repoURL string, in *ingested) map[string]any {
	project := map[string]any{
		"github_url": repoURL,
		"code_metadata": map[string]any{
			"files_count":            in.code.FilesCount,
			"extensions":             in.code.Extensions,
			"secrets_found":          in.code.SecretsFound,
			"secret_scan_successful": in.code.SecretScanSuccessful,
		},
	}
	if in.document != nil {
		project["pdf_analysis"] = map[string]any{
			"project_purpose": in.document.ProjectPurpose,
			"data_types_used": in.document.DataTypesUsed,
			"potential_risks": in.document.PotentialRisks,
		}
	}
	return project
}

func (as *AssessmentService) fail(ctx context.Context, id uuid.UUID, cause error) {
	raw, err := json.Marshal(failure{Error: cause.Error()})
	if err != nil {
		raw = []byte(`{"error":"assessment failed"}`)
	}
	if err := as.store.Job().Finish(ctx, id, model.JobStatusFailed, raw); err != nil {
		as.logFinishError(id, err)
		return
	}
	metrics.IncreaseAssessmentJobsMetric(string(model.JobStatusFailed))
}

func (as *AssessmentService) logFinishError(id uuid.UUID, err error) {
	logger := zap.S().Named("assessment_service")
	switch {
	case errors.Is(err, store.ErrRecordNotFound):
		logger.Debugf("job %s no longer exists, dropping its result", id)
	case errors.Is(err, store.ErrJobNotProcessing):
		logger.Warnf("job %s already finished, dropping its result", id)
	default:
		logger.Errorf("failed to finish job %s: %v", id, err)
	}
}

func removeDocument(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		zap.S().Named("assessment_service").Warnf("failed to remove uploaded document %s: %v", path, err)
	}
}
