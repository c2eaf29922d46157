package store_test

import (
	"context"

	"github.com/aerae/accelerator/internal/config"
	"github.com/aerae/accelerator/internal/store"
	"github.com/aerae/accelerator/internal/store/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("policy store", Ordered, func() {
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

	It("round trips the embedding", func() {
		p, err := s.Policy().Upsert(context.TODO(), model.PolicyDocument{
			ID:        "ethics-001",
			Text:      "No PII allowed without encryption at rest and in transit.",
			Embedding: model.Vector{0.25, -1.5, 3},
		})
		Expect(err).To(BeNil())
		Expect(p.Embedding).To(Equal(model.Vector{0.25, -1.5, 3}))
	})

	It("replaces text and embedding on upsert", func() {
		_, err := s.Policy().Upsert(context.TODO(), model.PolicyDocument{ID: "ethics-002", Text: "old", Embedding: model.Vector{1}})
		Expect(err).To(BeNil())

		p, err := s.Policy().Upsert(context.TODO(), model.PolicyDocument{ID: "ethics-002", Text: "new", Embedding: model.Vector{2, 2}})
		Expect(err).To(BeNil())
		Expect(p.Text).To(Equal("new"))
		Expect(p.Embedding).To(HaveLen(2))

		count, err := s.Policy().Count(context.TODO())
		Expect(err).To(BeNil())
		Expect(count).To(BeNumerically("==", 1))
	})

	It("lists in insertion order", func() {
		for _, id := range []string{"ethics-003", "ethics-001", "ethics-002"} {
			_, err := s.Policy().Upsert(context.TODO(), model.PolicyDocument{ID: id, Text: id, Embedding: model.Vector{0}})
			Expect(err).To(BeNil())
		}

		policies, err := s.Policy().List(context.TODO())
		Expect(err).To(BeNil())
		Expect(policies).To(HaveLen(3))
		Expect(policies[0].ID).To(Equal("ethics-003"))
	})

	It("deletes a policy", func() {
		_, err := s.Policy().Upsert(context.TODO(), model.PolicyDocument{ID: "ethics-004", Text: "x", Embedding: model.Vector{0}})
		Expect(err).To(BeNil())

		Expect(s.Policy().Delete(context.TODO(), "ethics-004")).To(Succeed())
		_, err = s.Policy().Get(context.TODO(), "ethics-004")
		Expect(err).To(MatchError(store.ErrRecordNotFound))
	})

	AfterEach(func() {
		gormdb.Exec("DELETE FROM policy_documents;")
	})
})
