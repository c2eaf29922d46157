package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/aerae/accelerator/internal/config"
	"github.com/aerae/accelerator/internal/document"
	"github.com/aerae/accelerator/internal/ingestion"
	"github.com/aerae/accelerator/internal/opa"
	"github.com/aerae/accelerator/internal/service"
	"github.com/aerae/accelerator/internal/store"
	"github.com/aerae/accelerator/internal/store/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

const repoURL = "https://github.com/owner/repo"

var _ = Describe("assessment service", Ordered, func() {
	var (
		s        store.Store
		gormdb   *gorm.DB
		runner   *service.Runner
		fetcher  *fakeFetcher
		scanner  *fakeScanner
		docs     *fakeExtractor
		analyzer *fakeAnalyzer
		gate     *fakeGate
		archive  *fakeArchive
	)

	BeforeAll(func() {
		db, err := store.InitDB(config.NewDefault())
		Expect(err).To(BeNil())

		s = store.NewStore(db)
		gormdb = db
		Expect(s.InitialMigration()).To(Succeed())
	})

	AfterAll(func() {
		s.Close()
	})

	BeforeEach(func() {
		runner = service.NewRunner()
		fetcher = &fakeFetcher{files: []string{"main.go", "pkg/util.go", "README.md"}}
		scanner = &fakeScanner{result: &ingestion.ScanResult{
			SecretsFound: 1,
			Findings:     []ingestion.Finding{{"RuleID": "aws-access-token", "Secret": "REDACTED", "Match": "REDACTED"}},
			Success:      true,
		}}
		docs = &fakeExtractor{analysis: &document.Analysis{
			ProjectPurpose: "Credit scoring",
			DataTypesUsed:  []string{"PII"},
			PotentialRisks: []string{"bias"},
			Source:         "azure-openai",
		}}
		analyzer = &fakeAnalyzer{
			risks: model.RiskList{
				{Category: "Privacy", Severity: "high", Reason: "PII"},
				{Category: "Fairness", Severity: "medium", Reason: "bias"},
			},
			policies: []string{"No PII without consent."},
		}
		gate = &fakeGate{decision: &opa.Decision{Allow: false, DenyReasons: []string{"1 secret(s) detected in the repository"}}}
		archive = nil
	})

	newService := func() *service.AssessmentService {
		p := service.Pipeline{
			Fetcher:   fetcher,
			Scanner:   scanner,
			Documents: docs,
			Analyzer:  analyzer,
			Gate:      gate,
		}
		if archive != nil {
			p.Archive = archive
		}
		return service.NewAssessmentService(s, p, runner)
	}

	waitTerminal := func(svc *service.AssessmentService, id string) *service.JobView {
		var view *service.JobView
		Eventually(func() model.JobStatus {
			v, err := svc.Get(context.TODO(), id)
			Expect(err).To(BeNil())
			view = v
			return v.Status
		}, 5*time.Second, 20*time.Millisecond).ShouldNot(Equal(model.JobStatusProcessing))
		return view
	}

	decode := func(raw json.RawMessage) map[string]any {
		var m map[string]any
		Expect(json.Unmarshal(raw, &m)).To(Succeed())
		return m
	}

	writeDocument := func() string {
		path := filepath.Join(GinkgoT().TempDir(), "upload.pdf")
		Expect(os.WriteFile(path, []byte("%PDF-1.4"), 0644)).To(Succeed())
		return path
	}

	Context("create", func() {
		It("rejects an invalid url without creating a job", func() {
			_, err := newService().Create(context.TODO(), service.CreateRequest{RepositoryURL: "http://github.com/owner/repo"})
			Expect(err).To(BeAssignableToTypeOf(&service.ErrInvalidRequest{}))

			count := 0
			Expect(gormdb.Raw("SELECT COUNT(*) FROM assessment_jobs;").Scan(&count).Error).To(BeNil())
			Expect(count).To(Equal(0))
		})

		It("returns a Processing job before the pipeline runs", func() {
			fetcher.release = make(chan struct{})
			svc := newService()

			job, err := svc.Create(context.TODO(), service.CreateRequest{RepositoryURL: repoURL})
			Expect(err).To(BeNil())
			Expect(job.Status).To(Equal(model.JobStatusProcessing))

			view, err := svc.Get(context.TODO(), job.ID.String())
			Expect(err).To(BeNil())
			Expect(view.Status).To(Equal(model.JobStatusProcessing))
			Expect(view.Result).To(BeNil())

			close(fetcher.release)
			Expect(waitTerminal(svc, job.ID.String()).Status).To(Equal(model.JobStatusComplete))
		})

		It("keeps the client file name", func() {
			svc := newService()
			job, err := svc.Create(context.TODO(), service.CreateRequest{
				RepositoryURL: repoURL,
				DocumentPath:  writeDocument(),
				DocumentName:  "design.pdf",
			})
			Expect(err).To(BeNil())
			Expect(*job.DocumentName).To(Equal("design.pdf"))

			stored, err := s.Job().Get(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(*stored.DocumentName).To(Equal("design.pdf"))
			waitTerminal(svc, job.ID.String())
		})

		It("does not wait for the document archive", func() {
			archive = &fakeArchive{release: make(chan struct{})}
			svc := newService()

			job, err := svc.Create(context.TODO(), service.CreateRequest{RepositoryURL: repoURL, DocumentPath: writeDocument()})
			Expect(err).To(BeNil())

			view, err := svc.Get(context.TODO(), job.ID.String())
			Expect(err).To(BeNil())
			Expect(view.Status).To(Equal(model.JobStatusProcessing))

			close(archive.release)
			view = waitTerminal(svc, job.ID.String())
			Expect(view.Status).To(Equal(model.JobStatusComplete))
			Expect(decode(view.Result)["document_object"]).To(Equal("documents/" + job.ID.String() + ".pdf"))
		})

		It("refuses new jobs once the runner is shut down", func() {
			path := writeDocument()
			Expect(runner.Shutdown(context.TODO())).To(Succeed())

			_, err := newService().Create(context.TODO(), service.CreateRequest{RepositoryURL: repoURL, DocumentPath: path})
			Expect(err).To(BeAssignableToTypeOf(&service.ErrServiceUnavailable{}))
			Expect(errors.Is(err, service.ErrRunnerClosed)).To(BeTrue())
			Expect(path).NotTo(BeAnExistingFile())

			jobs, err := s.Job().List(context.TODO(), nil, nil)
			Expect(err).To(BeNil())
			Expect(jobs).To(HaveLen(1))
			Expect(jobs[0].Status).To(Equal(model.JobStatusFailed))
			Expect(*jobs[0].ResultJSON).To(ContainSubstring("shutting down"))
		})
	})

	Context("pipeline", func() {
		It("completes with the aggregated result", func() {
			svc := newService()
			job, err := svc.Create(context.TODO(), service.CreateRequest{RepositoryURL: repoURL})
			Expect(err).To(BeNil())

			view := waitTerminal(svc, job.ID.String())
			Expect(view.Status).To(Equal(model.JobStatusComplete))

			result := decode(view.Result)
			Expect(result["github_url"]).To(Equal(repoURL))
			// 100 - 25 (high) - 10 (medium) - 15 (one secret)
			Expect(result["trust_score"]).To(BeNumerically("==", 50))
			Expect(result["decision"]).To(Equal("deny"))
			Expect(result["pdf_analysis"]).To(BeNil())
			Expect(result["policies_matched"]).To(ConsistOf("No PII without consent."))

			meta := result["code_metadata"].(map[string]any)
			Expect(meta["files_count"]).To(BeNumerically("==", 3))
			Expect(meta["files"]).To(ConsistOf("README.md", "main.go", "pkg/util.go"))
			Expect(meta["extensions"]).To(HaveKeyWithValue(".go", BeNumerically("==", 2)))
			Expect(meta["secrets_found"]).To(BeNumerically("==", 1))
			Expect(meta["secret_scan_successful"]).To(BeTrue())

			opaResult := result["opa_result"].(map[string]any)
			Expect(opaResult["allow"]).To(BeFalse())
			Expect(opaResult["deny_reasons"]).To(HaveLen(1))

			breakdown := result["score_breakdown"].(map[string]any)
			Expect(breakdown["score"]).To(BeNumerically("==", 50))

			payload := gate.lastPayload()
			Expect(payload["trust_score"]).To(BeNumerically("==", 50))
			Expect(payload["secrets_count"]).To(BeNumerically("==", 1))
			Expect(payload["risks"]).To(HaveLen(2))

			in := analyzer.lastInput()
			Expect(in.FileCount).To(Equal(3))
			Expect(*in.SecretCount).To(Equal(1))
		})

		It("degrades when the secret scanner is missing", func() {
			scanner.result = nil
			scanner.err = ingestion.ErrScannerNotInstalled
			gate.decision = &opa.Decision{Allow: true, DenyReasons: []string{}}

			svc := newService()
			job, err := svc.Create(context.TODO(), service.CreateRequest{RepositoryURL: repoURL})
			Expect(err).To(BeNil())

			view := waitTerminal(svc, job.ID.String())
			Expect(view.Status).To(Equal(model.JobStatusComplete))

			result := decode(view.Result)
			meta := result["code_metadata"].(map[string]any)
			Expect(meta).To(HaveKeyWithValue("secrets_found", BeNil()))
			Expect(meta["secret_scan_successful"]).To(BeFalse())
			Expect(meta["secret_scan_error"]).To(ContainSubstring("gitleaks"))
			Expect(result["trust_score"]).To(BeNumerically("==", 65))
			Expect(result["decision"]).To(Equal("allow"))

			Expect(gate.lastPayload()["secrets_count"]).To(BeNumerically("==", 0))
			Expect(analyzer.lastInput().SecretCount).To(BeNil())
		})

		It("completes with a deny when the gate is unreachable", func() {
			gate.decision = &opa.Decision{Allow: false, DenyReasons: []string{opa.UnavailableReason}, Unavailable: true}

			svc := newService()
			job, err := svc.Create(context.TODO(), service.CreateRequest{RepositoryURL: repoURL})
			Expect(err).To(BeNil())

			view := waitTerminal(svc, job.ID.String())
			Expect(view.Status).To(Equal(model.JobStatusComplete))

			result := decode(view.Result)
			Expect(result["decision"]).To(Equal("deny"))
			Expect(result["opa_result"]).To(HaveKeyWithValue("opa_unavailable", BeTrue()))
		})

		It("analyzes the uploaded document and removes it", func() {
			path := writeDocument()

			svc := newService()
			job, err := svc.Create(context.TODO(), service.CreateRequest{RepositoryURL: repoURL, DocumentPath: path})
			Expect(err).To(BeNil())

			view := waitTerminal(svc, job.ID.String())
			Expect(view.Status).To(Equal(model.JobStatusComplete))
			Expect(runner.Shutdown(context.TODO())).To(Succeed())
			Expect(docs.paths).To(Equal([]string{path}))
			Expect(path).NotTo(BeAnExistingFile())

			result := decode(view.Result)
			pdf := result["pdf_analysis"].(map[string]any)
			Expect(pdf["project_purpose"]).To(Equal("Credit scoring"))
			Expect(pdf["source"]).To(Equal("azure-openai"))
			Expect(analyzer.lastInput().Document).NotTo(BeNil())
		})

		It("records the archived document", func() {
			archive = &fakeArchive{}
			svc := newService()

			job, err := svc.Create(context.TODO(), service.CreateRequest{RepositoryURL: repoURL, DocumentPath: writeDocument()})
			Expect(err).To(BeNil())

			view := waitTerminal(svc, job.ID.String())
			Expect(decode(view.Result)["document_object"]).To(Equal("documents/" + job.ID.String() + ".pdf"))
		})

		It("completes with no matching policies", func() {
			analyzer.policies = nil

			svc := newService()
			job, err := svc.Create(context.TODO(), service.CreateRequest{RepositoryURL: repoURL})
			Expect(err).To(BeNil())

			view := waitTerminal(svc, job.ID.String())
			Expect(view.Status).To(Equal(model.JobStatusComplete))

			result := decode(view.Result)
			Expect(result).To(HaveKey("policies_matched"))
			Expect(result["policies_matched"]).NotTo(BeNil())
			Expect(result["policies_matched"]).To(BeEmpty())
			Expect(string(view.Result)).To(ContainSubstring(`"policies_matched":[]`))
			Expect(gate.lastPayload()["policies_matched"]).To(BeEmpty())
		})

		It("still runs when archiving fails", func() {
			archive = &fakeArchive{err: errBoom}
			svc := newService()

			job, err := svc.Create(context.TODO(), service.CreateRequest{RepositoryURL: repoURL, DocumentPath: writeDocument()})
			Expect(err).To(BeNil())

			view := waitTerminal(svc, job.ID.String())
			Expect(view.Status).To(Equal(model.JobStatusComplete))
			Expect(decode(view.Result)).NotTo(HaveKey("document_object"))
		})
	})

	Context("failures", func() {
		expectFailed := func(contains string) {
			svc := newService()
			job, err := svc.Create(context.TODO(), service.CreateRequest{RepositoryURL: repoURL})
			Expect(err).To(BeNil())

			view := waitTerminal(svc, job.ID.String())
			Expect(view.Status).To(Equal(model.JobStatusFailed))
			result := decode(view.Result)
			Expect(result).To(HaveLen(1))
			Expect(result["error"]).To(ContainSubstring(contains))
		}

		It("fails when the clone fails", func() {
			fetcher.err = ingestion.NewErrCloneFailed(repoURL, errBoom)
			expectFailed("failed to clone repository")
		})

		It("fails when the document cannot be analyzed", func() {
			docs.err = document.NewErrInvalidDocument("Could not extract text from PDF")
			docs.analysis = nil

			svc := newService()
			path := writeDocument()
			job, err := svc.Create(context.TODO(), service.CreateRequest{RepositoryURL: repoURL, DocumentPath: path})
			Expect(err).To(BeNil())

			view := waitTerminal(svc, job.ID.String())
			Expect(view.Status).To(Equal(model.JobStatusFailed))
			Expect(decode(view.Result)["error"]).To(ContainSubstring("Could not extract text"))
			Expect(path).NotTo(BeAnExistingFile())
		})

		It("fails when the risk analysis fails", func() {
			analyzer.err = errBoom
			expectFailed("risk analysis failed: boom")
		})

		It("fails when the pipeline panics", func() {
			analyzer.panic = true
			expectFailed("internal error")
		})

		It("fails on a gate error", func() {
			gate.decision = nil
			gate.err = errBoom
			expectFailed("policy evaluation failed")
		})

		It("marks the job failed when the result cannot be stored", func() {
			p := service.Pipeline{Fetcher: fetcher, Scanner: scanner, Documents: docs, Analyzer: analyzer, Gate: gate}
			svc := service.NewAssessmentService(&failingStore{
				Store: s,
				jobs:  &failingJobs{Job: s.Job(), completeErr: errBoom},
			}, p, runner)

			job, err := svc.Create(context.TODO(), service.CreateRequest{RepositoryURL: repoURL})
			Expect(err).To(BeNil())

			view := waitTerminal(svc, job.ID.String())
			Expect(view.Status).To(Equal(model.JobStatusFailed))
			Expect(decode(view.Result)["error"]).To(Equal("failed to store result: boom"))
		})
	})

	Context("get", func() {
		It("reports unknown and malformed ids as not found", func() {
			svc := newService()

			_, err := svc.Get(context.TODO(), "not-a-uuid")
			Expect(err).To(BeAssignableToTypeOf(&service.ErrJobNotFound{}))

			_, err = svc.Get(context.TODO(), "3fa85f64-5717-4562-b3fc-2c963f66afa6")
			Expect(err).To(BeAssignableToTypeOf(&service.ErrJobNotFound{}))
		})
	})

	AfterEach(func() {
		Expect(runner.Shutdown(context.TODO())).To(Succeed())
		gormdb.Exec("DELETE FROM assessment_jobs;")
	})
})
