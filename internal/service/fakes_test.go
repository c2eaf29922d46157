package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/aerae/accelerator/internal/analysis"
	"github.com/aerae/accelerator/internal/document"
	"github.com/aerae/accelerator/internal/ingestion"
	"github.com/aerae/accelerator/internal/llm"
	"github.com/aerae/accelerator/internal/opa"
	"github.com/aerae/accelerator/internal/store"
	"github.com/aerae/accelerator/internal/store/model"
	"github.com/google/uuid"
)

type fakeFetcher struct {
	files   []string
	err     error
	release chan struct{}
}

func (f *fakeFetcher) WithWorkspace(ctx context.Context, repoURL string, fn func(ws *ingestion.Workspace) error) error {
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return f.err
	}

	dir, err := os.MkdirTemp("", "fake_repo_")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	for _, name := range f.files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			return err
		}
	}
	return fn(&ingestion.Workspace{Dir: dir})
}

type fakeScanner struct {
	result *ingestion.ScanResult
	err    error
}

func (f *fakeScanner) Scan(ctx context.Context, dir string) (*ingestion.ScanResult, error) {
	return f.result, f.err
}

type fakeExtractor struct {
	analysis *document.Analysis
	err      error
	paths    []string
}

func (f *fakeExtractor) Extract(ctx context.Context, path string) (*document.Analysis, error) {
	f.paths = append(f.paths, path)
	return f.analysis, f.err
}

type fakeAnalyzer struct {
	risks    model.RiskList
	policies []string
	err      error
	panic bool

	mu    sync.Mutex
	input analysis.Input
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, in analysis.Input) (*analysis.Analysis, error) {
	f.mu.Lock()
	f.input = in
	f.mu.Unlock()

	if f.panic {
		panic("model client exploded")
	}
	if f.err != nil {
		return nil, f.err
	}
	return &analysis.Analysis{Risks: f.risks, PoliciesMatched: f.policies}, nil
}

func (f *fakeAnalyzer) lastInput() analysis.Input {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.input
}

type fakeGate struct {
	decision *opa.Decision
	err      error

	mu      sync.Mutex
	payload map[string]any
}

func (f *fakeGate) Evaluate(ctx context.Context, payload map[string]any) (*opa.Decision, error) {
	f.mu.Lock()
	f.payload = payload
	f.mu.Unlock()
	return f.decision, f.err
}

func (f *fakeGate) lastPayload() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.payload
}

type fakeArchive struct {
	err     error
	release chan struct{}
}

func (f *fakeArchive) Archive(ctx context.Context, jobID uuid.UUID, path string) (string, error) {
	if f.release != nil {
		<-f.release
	}
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	if f.err != nil {
		return "", f.err
	}
	return "documents/" + jobID.String() + ".pdf", nil
}

type fakeProvider struct {
	name string
	text string
	err  error
}

func (f *fakeProvider) Name() string {
	return f.name
}

func (f *fakeProvider) Complete(ctx context.Context, req llm.Request) (string, error) {
	return f.text, f.err
}

// failingJobs fails the Complete write with a store error and lets every other call through.
type failingJobs struct {
	store.Job
	completeErr error
}

func (f *failingJobs) Finish(ctx context.Context, id uuid.UUID, status model.JobStatus, result []byte) error {
	if status == model.JobStatusComplete && f.completeErr != nil {
		return f.completeErr
	}
	return f.Job.Finish(ctx, id, status, result)
}

type failingStore struct {
	store.Store
	jobs *failingJobs
}

func (f *failingStore) Job() store.Job {
	return f.jobs
}

var errBoom = errors.New("boom")
