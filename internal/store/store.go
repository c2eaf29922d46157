package store

import (
	"context"

	"github.com/aerae/accelerator/internal/store/model"
	"gorm.io/gorm"
)

type Store interface {
	NewTransactionContext(ctx context.Context) (context.Context, error)
	Job() Job
	Policy() Policy
	InitialMigration() error
	Statistics(ctx context.Context) (model.Statistics, error)
	Close() error
}

type DataStore struct {
	db     *gorm.DB
	job    Job
	policy Policy
}

func NewStore(db *gorm.DB) Store {
	return &DataStore{
		db:     db,
		job:    NewJobStore(db),
		policy: NewPolicyStore(db),
	}
}

func (s *DataStore) NewTransactionContext(ctx context.Context) (context.Context, error) {
	return newTransactionContext(ctx, s.db)
}

func (s *DataStore) Job() Job {
	return s.job
}

func (s *DataStore) Policy() Policy {
	return s.policy
}

func (s *DataStore) InitialMigration() error {
	return s.db.AutoMigrate(&model.AssessmentJob{}, &model.PolicyDocument{})
}

func (s *DataStore) Statistics(ctx context.Context) (model.Statistics, error) {
	jobs, err := s.Job().CountByStatus(ctx)
	if err != nil {
		return model.Statistics{}, err
	}
	policies, err := s.Policy().Count(ctx)
	if err != nil {
		return model.Statistics{}, err
	}
	return model.Statistics{JobsByStatus: jobs, Policies: policies}, nil
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
