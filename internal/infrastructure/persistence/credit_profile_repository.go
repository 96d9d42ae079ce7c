package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arledger/backend/internal/domain/ar"
	"github.com/arledger/backend/internal/domain/shared"
	"github.com/arledger/backend/internal/infrastructure/persistence/models"
)

// GormCreditProfileRepository implements CreditProfileRepository using GORM
type GormCreditProfileRepository struct {
	db *gorm.DB
}

// NewGormCreditProfileRepository creates a new GormCreditProfileRepository
func NewGormCreditProfileRepository(db *gorm.DB) *GormCreditProfileRepository {
	return &GormCreditProfileRepository{db: db}
}

// FindByID finds a credit profile by its ID
func (r *GormCreditProfileRepository) FindByID(ctx context.Context, id uuid.UUID) (*ar.CreditProfile, error) {
	var model models.CreditProfileModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCustomer finds the credit profile for a customer
func (r *GormCreditProfileRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID) (*ar.CreditProfile, error) {
	var model models.CreditProfileModel
	if err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds credit profiles with filtering
func (r *GormCreditProfileRepository) FindAll(ctx context.Context, filter ar.CreditProfileFilter) ([]*ar.CreditProfile, error) {
	var profileModels []models.CreditProfileModel
	query := r.db.WithContext(ctx).Model(&models.CreditProfileModel{})
	query = r.applyFilter(query, filter)

	if err := query.Find(&profileModels).Error; err != nil {
		return nil, err
	}
	return toDomainCreditProfiles(profileModels), nil
}

// Count counts credit profiles matching the filter
func (r *GormCreditProfileRepository) Count(ctx context.Context, filter ar.CreditProfileFilter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.CreditProfileModel{})
	query = r.applyFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates a credit profile
func (r *GormCreditProfileRepository) Save(ctx context.Context, profile *ar.CreditProfile) error {
	model := models.CreditProfileModelFromDomain(profile)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock saves with optimistic locking
func (r *GormCreditProfileRepository) SaveWithLock(ctx context.Context, profile *ar.CreditProfile) error {
	model := models.CreditProfileModelFromDomain(profile)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", profile.ID, profile.Version-1).
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// FindDueForReview returns profiles whose next review date has passed, or
// which have never been reviewed
func (r *GormCreditProfileRepository) FindDueForReview(ctx context.Context, asOf time.Time) ([]*ar.CreditProfile, error) {
	var profileModels []models.CreditProfileModel
	if err := r.db.WithContext(ctx).
		Where("next_review_date IS NULL OR next_review_date <= ?", asOf).
		Order("next_review_date ASC").
		Find(&profileModels).Error; err != nil {
		return nil, err
	}
	return toDomainCreditProfiles(profileModels), nil
}

// applyFilter applies filter options to the query
func (r *GormCreditProfileRepository) applyFilter(query *gorm.DB, filter ar.CreditProfileFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.Limit())
	}

	orderBy := ValidateSortField(filter.OrderBy, CreditProfileSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	return query.Order(orderBy + " " + orderDir)
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormCreditProfileRepository) applyFilterWithoutPagination(query *gorm.DB, filter ar.CreditProfileFilter) *gorm.DB {
	if filter.CreditStatus != nil {
		query = query.Where("credit_status = ?", *filter.CreditStatus)
	}
	if filter.ReviewDueAsOf != nil {
		query = query.Where("next_review_date IS NULL OR next_review_date <= ?", *filter.ReviewDueAsOf)
	}
	if filter.MinDaysPastDue != nil {
		query = query.Where("days_past_due >= ?", *filter.MinDaysPastDue)
	}
	return query
}

func toDomainCreditProfiles(profileModels []models.CreditProfileModel) []*ar.CreditProfile {
	profiles := make([]*ar.CreditProfile, len(profileModels))
	for i := range profileModels {
		profiles[i] = profileModels[i].ToDomain()
	}
	return profiles
}

// Ensure GormCreditProfileRepository implements CreditProfileRepository
var _ ar.CreditProfileRepository = (*GormCreditProfileRepository)(nil)
