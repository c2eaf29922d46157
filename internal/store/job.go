package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aerae/accelerator/internal/store/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Job persists assessment jobs. A job is created Processing and finished exactly once.
type Job interface {
	Create(ctx context.Context, job model.AssessmentJob) (*model.AssessmentJob, error)
	Get(ctx context.Context, id uuid.UUID) (*model.AssessmentJob, error)
	List(ctx context.Context, filter *JobQueryFilter, opts *JobQueryOptions) (model.AssessmentJobList, error)
	Finish(ctx context.Context, id uuid.UUID, status model.JobStatus, result []byte) error
	CountByStatus(ctx context.Context) (map[model.JobStatus]int64, error)
}

type JobStore struct {
	db *gorm.DB
}

// Make sure we conform to Job interface
var _ Job = (*JobStore)(nil)

func NewJobStore(db *gorm.DB) Job {
	return &JobStore{db: db}
}

func (s *JobStore) Create(ctx context.Context, job model.AssessmentJob) (*model.AssessmentJob, error) {
	if job.Status == "" {
		job.Status = model.JobStatusProcessing
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}

	result := s.getDB(ctx).Clauses(clause.Returning{}).Create(&job)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("creating job: %w", result.Error)
	}
	return &job, nil
}

func (s *JobStore) Get(ctx context.Context, id uuid.UUID) (*model.AssessmentJob, error) {
	var job model.AssessmentJob
	result := s.getDB(ctx).First(&job, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying job: %w", result.Error)
	}
	return &job, nil
}

func (s *JobStore) List(ctx context.Context, filter *JobQueryFilter, opts *JobQueryOptions) (model.AssessmentJobList, error) {
	var jobs model.AssessmentJobList
	tx := s.getDB(ctx).Model(&jobs).Order("created_at DESC")

	if filter != nil {
		for _, fn := range filter.QueryFn {
			tx = fn(tx)
		}
	}
	if opts != nil {
		for _, fn := range opts.QueryFn {
			tx = fn(tx)
		}
	}

	if err := tx.Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	return jobs, nil
}

// Finish writes the terminal status and result in a single statement guarded on the job still
// being Processing. It returns ErrRecordNotFound when the job does not exist and
// ErrJobNotProcessing when it already reached a terminal state.
func (s *JobStore) Finish(ctx context.Context, id uuid.UUID, status model.JobStatus, result []byte) error {
	if !status.IsTerminal() {
		return fmt.Errorf("finishing job %s: %q is not a terminal status", id, status)
	}

	now := time.Now()
	var resultJSON *string
	if result != nil {
		r := string(result)
		resultJSON = &r
	}

	tx := s.getDB(ctx).Model(&model.AssessmentJob{}).
		Where("id = ? AND status = ?", id, model.JobStatusProcessing).
		Updates(map[string]any{
			"status":      status,
			"result_json": resultJSON,
			"updated_at":  &now,
		})
	if tx.Error != nil {
		return fmt.Errorf("finishing job: %w", tx.Error)
	}
	if tx.RowsAffected > 0 {
		return nil
	}

	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return ErrJobNotProcessing
}

func (s *JobStore) CountByStatus(ctx context.Context) (map[model.JobStatus]int64, error) {
	var rows []struct {
		Status model.JobStatus
		Total  int64
	}
	err := s.getDB(ctx).Model(&model.AssessmentJob{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("counting jobs: %w", err)
	}

	counts := make(map[model.JobStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Total
	}
	return counts, nil
}

func (s *JobStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db.WithContext(ctx)
}
