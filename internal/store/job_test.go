package store_test

import (
	"context"
	"fmt"
	"time"

	"github.com/aerae/accelerator/internal/config"
	"github.com/aerae/accelerator/internal/store"
	"github.com/aerae/accelerator/internal/store/model"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

const insertJobStm = "INSERT INTO assessment_jobs (id, created_at, status, repository_url, result_json) VALUES ('%s', '%s', '%s', '%s', %s);"

var _ = Describe("job store", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
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

	insert := func(id uuid.UUID, status model.JobStatus, result string) {
		res := "NULL"
		if result != "" {
			res = fmt.Sprintf("'%s'", result)
		}
		tx := gormdb.Exec(fmt.Sprintf(insertJobStm, id, time.Now().Format("2006-01-02 15:04:05"), status, "https://github.com/owner/repo", res))
		Expect(tx.Error).To(BeNil())
	}

	Context("create", func() {
		It("defaults to Processing with no result", func() {
			id := uuid.New()
			job, err := s.Job().Create(context.TODO(), model.AssessmentJob{ID: id, RepositoryURL: "https://github.com/owner/repo"})
			Expect(err).To(BeNil())
			Expect(job.ID).To(Equal(id))
			Expect(job.Status).To(Equal(model.JobStatusProcessing))
			Expect(job.ResultJSON).To(BeNil())

			var status string
			Expect(gormdb.Raw("SELECT status FROM assessment_jobs WHERE id = ?", id).Scan(&status).Error).To(BeNil())
			Expect(status).To(Equal("Processing"))
		})

		It("refuses a duplicated id", func() {
			id := uuid.New()
			insert(id, model.JobStatusProcessing, "")

			_, err := s.Job().Create(context.TODO(), model.AssessmentJob{ID: id, RepositoryURL: "https://github.com/owner/repo"})
			Expect(err).To(MatchError(store.ErrDuplicateKey))
		})
	})

	Context("get", func() {
		It("returns the job", func() {
			id := uuid.New()
			insert(id, model.JobStatusComplete, `{"trust_score":75}`)

			job, err := s.Job().Get(context.TODO(), id)
			Expect(err).To(BeNil())
			Expect(job.Status).To(Equal(model.JobStatusComplete))
			Expect(job.ResultJSON).NotTo(BeNil())
			Expect(*job.ResultJSON).To(MatchJSON(`{"trust_score":75}`))
		})

		It("returns ErrRecordNotFound for an unknown id", func() {
			_, err := s.Job().Get(context.TODO(), uuid.New())
			Expect(err).To(MatchError(store.ErrRecordNotFound))
		})
	})

	Context("list", func() {
		It("filters by status", func() {
			insert(uuid.New(), model.JobStatusProcessing, "")
			insert(uuid.New(), model.JobStatusFailed, `{"error":"boom"}`)
			insert(uuid.New(), model.JobStatusComplete, `{}`)

			jobs, err := s.Job().List(context.TODO(), store.NewJobQueryFilter().ByStatus(model.JobStatusFailed, model.JobStatusComplete), nil)
			Expect(err).To(BeNil())
			Expect(jobs).To(HaveLen(2))

			jobs, err = s.Job().List(context.TODO(), store.NewJobQueryFilter(), store.NewJobQueryOptions().WithLimit(1))
			Expect(err).To(BeNil())
			Expect(jobs).To(HaveLen(1))
		})
	})

	Context("count", func() {
		It("groups jobs by status", func() {
			insert(uuid.New(), model.JobStatusProcessing, "")
			insert(uuid.New(), model.JobStatusProcessing, "")
			insert(uuid.New(), model.JobStatusFailed, `{"error":"boom"}`)

			counts, err := s.Job().CountByStatus(context.TODO())
			Expect(err).To(BeNil())
			Expect(counts).To(HaveKeyWithValue(model.JobStatusProcessing, int64(2)))
			Expect(counts).To(HaveKeyWithValue(model.JobStatusFailed, int64(1)))
			Expect(counts).NotTo(HaveKey(model.JobStatusComplete))
		})
	})

	Context("finish", func() {
		It("writes status and result together", func() {
			id := uuid.New()
			insert(id, model.JobStatusProcessing, "")

			err := s.Job().Finish(context.TODO(), id, model.JobStatusComplete, []byte(`{"trust_score":100}`))
			Expect(err).To(BeNil())

			job, err := s.Job().Get(context.TODO(), id)
			Expect(err).To(BeNil())
			Expect(job.Status).To(Equal(model.JobStatusComplete))
			Expect(*job.ResultJSON).To(MatchJSON(`{"trust_score":100}`))
			Expect(job.UpdatedAt).NotTo(BeNil())
		})

		It("never leaves a terminal state", func() {
			id := uuid.New()
			insert(id, model.JobStatusFailed, `{"error":"clone failed"}`)

			err := s.Job().Finish(context.TODO(), id, model.JobStatusComplete, []byte(`{}`))
			Expect(err).To(MatchError(store.ErrJobNotProcessing))

			job, err := s.Job().Get(context.TODO(), id)
			Expect(err).To(BeNil())
			Expect(job.Status).To(Equal(model.JobStatusFailed))
			Expect(*job.ResultJSON).To(MatchJSON(`{"error":"clone failed"}`))
		})

		It("reports a missing job", func() {
			err := s.Job().Finish(context.TODO(), uuid.New(), model.JobStatusFailed, []byte(`{"error":"x"}`))
			Expect(err).To(MatchError(store.ErrRecordNotFound))
		})

		It("rejects a non terminal status", func() {
			id := uuid.New()
			insert(id, model.JobStatusProcessing, "")

			err := s.Job().Finish(context.TODO(), id, model.JobStatusProcessing, nil)
			Expect(err).NotTo(BeNil())
		})
	})

	AfterEach(func() {
		gormdb.Exec("DELETE FROM assessment_jobs;")
	})
})
