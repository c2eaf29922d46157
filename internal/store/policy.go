package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aerae/accelerator/internal/store/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Policy holds the governance corpus used for retrieval. It is written by the seeder only.
type Policy interface {
	Upsert(ctx context.Context, policy model.PolicyDocument) (*model.PolicyDocument, error)
	Get(ctx context.Context, id string) (*model.PolicyDocument, error)
	List(ctx context.Context) (model.PolicyDocumentList, error)
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id string) error
}

type PolicyStore struct {
	db *gorm.DB
}

var _ Policy = (*PolicyStore)(nil)

func NewPolicyStore(db *gorm.DB) Policy {
	return &PolicyStore{db: db}
}

func (p *PolicyStore) Upsert(ctx context.Context, policy model.PolicyDocument) (*model.PolicyDocument, error) {
	now := time.Now()
	if policy.CreatedAt.IsZero() {
		policy.CreatedAt = now
	}
	policy.UpdatedAt = &now

	result := p.getDB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"text", "embedding", "updated_at"}),
	}).Create(&policy)
	if result.Error != nil {
		return nil, fmt.Errorf("upserting policy %s: %w", policy.ID, result.Error)
	}
	return p.Get(ctx, policy.ID)
}

func (p *PolicyStore) Get(ctx context.Context, id string) (*model.PolicyDocument, error) {
	var policy model.PolicyDocument
	if err := p.getDB(ctx).First(&policy, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &policy, nil
}

// List returns the corpus in insertion order.
func (p *PolicyStore) List(ctx context.Context) (model.PolicyDocumentList, error) {
	var policies model.PolicyDocumentList
	if err := p.getDB(ctx).Order("created_at, id").Find(&policies).Error; err != nil {
		return nil, err
	}
	return policies, nil
}

func (p *PolicyStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := p.getDB(ctx).Model(&model.PolicyDocument{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (p *PolicyStore) Delete(ctx context.Context, id string) error {
	result := p.getDB(ctx).Delete(&model.PolicyDocument{}, "id = ?", id)
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return result.Error
	}
	return nil
}

func (p *PolicyStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return p.db.WithContext(ctx)
}
