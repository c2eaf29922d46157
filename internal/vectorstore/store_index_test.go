package vectorstore_test

import (
	"context"

	"github.com/aerae/accelerator/internal/config"
	"github.com/aerae/accelerator/internal/store"
	"github.com/aerae/accelerator/internal/store/model"
	"github.com/aerae/accelerator/internal/vectorstore"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("store index", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
		idx    *vectorstore.StoreIndex
	)

	BeforeAll(func() {
		db, err := store.InitDB(config.NewDefault())
		Expect(err).To(BeNil())
		gormdb = db
		s = store.NewStore(db)
		Expect(s.InitialMigration()).To(Succeed())
		idx = vectorstore.NewStoreIndex(s)
	})

	AfterAll(func() {
		s.Close()
	})

	seed := func() {
		for _, p := range []model.PolicyDocument{
			{ID: "ethics-001", Text: "encrypt PII", Embedding: model.Vector{1, 0}},
			{ID: "ethics-002", Text: "audit bias", Embedding: model.Vector{0, 1}},
			{ID: "ethics-003", Text: "balanced data", Embedding: model.Vector{0, -1}},
			{ID: "ethics-004", Text: "explainable", Embedding: model.Vector{3, 0}},
		} {
			Expect(idx.Upsert(context.TODO(), p)).To(Succeed())
		}
	}

	It("returns the closest policies in ascending distance", func() {
		seed()

		hits, err := idx.Search(context.TODO(), []float32{1, 0.1}, 2)
		Expect(err).To(BeNil())
		Expect(hits).To(HaveLen(2))
		Expect(hits[0].ID).To(Equal("ethics-001"))
		Expect(hits[0].Document).To(Equal("encrypt PII"))
		Expect(hits[0].Distance).To(BeNumerically("~", 0.01, 1e-6))
		Expect(hits[1].ID).To(Equal("ethics-002"))
		Expect(hits[1].Distance).To(BeNumerically("~", 1.81, 1e-6))
	})

	It("keeps insertion order on ties", func() {
		seed()

		// ethics-002 and ethics-003 are both at distance 1
		hits, err := idx.Search(context.TODO(), []float32{0, 0}, 3)
		Expect(err).To(BeNil())
		Expect(hits[0].ID).To(Equal("ethics-001"))
		Expect(hits[1].ID).To(Equal("ethics-002"))
		Expect(hits[2].ID).To(Equal("ethics-003"))
	})

	It("returns everything when the corpus is smaller than k", func() {
		seed()

		hits, err := idx.Search(context.TODO(), []float32{0, 0}, 10)
		Expect(err).To(BeNil())
		Expect(hits).To(HaveLen(4))
	})

	It("returns nothing on an empty corpus", func() {
		hits, err := idx.Search(context.TODO(), []float32{0, 0}, 3)
		Expect(err).To(BeNil())
		Expect(hits).To(BeEmpty())
	})

	It("rejects a query of another dimension", func() {
		seed()

		_, err := idx.Search(context.TODO(), []float32{0, 0, 0}, 3)
		Expect(err).To(HaveOccurred())
	})

	It("refuses a policy without embedding", func() {
		Expect(idx.Upsert(context.TODO(), model.PolicyDocument{ID: "x", Text: "x"})).NotTo(Succeed())
	})

	AfterEach(func() {
		gormdb.Exec("DELETE FROM policy_documents;")
	})
})
