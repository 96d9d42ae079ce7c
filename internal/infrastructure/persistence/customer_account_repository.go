package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arledger/backend/internal/domain/ledger"
	"github.com/arledger/backend/internal/domain/shared"
	"github.com/arledger/backend/internal/infrastructure/persistence/models"
)

// GormCustomerRepository implements CustomerRepository using GORM
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewGormCustomerRepository creates a new GormCustomerRepository
func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// FindByID finds a customer account by its ID
func (r *GormCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.CustomerAccount, error) {
	var model models.CustomerAccountModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCode finds a customer account by its code
func (r *GormCustomerRepository) FindByCode(ctx context.Context, code string) (*ledger.CustomerAccount, error) {
	var model models.CustomerAccountModel
	if err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds customer accounts with filtering
func (r *GormCustomerRepository) FindAll(ctx context.Context, filter shared.Filter) ([]*ledger.CustomerAccount, error) {
	var customerModels []models.CustomerAccountModel
	query := r.db.WithContext(ctx).Model(&models.CustomerAccountModel{})

	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("code ILIKE ? OR name ILIKE ?", searchPattern, searchPattern)
	}
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.Limit())
	}
	orderBy := ValidateSortField(filter.OrderBy, CustomerAccountSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)

	if err := query.Order(orderBy + " " + orderDir).Find(&customerModels).Error; err != nil {
		return nil, err
	}
	customers := make([]*ledger.CustomerAccount, len(customerModels))
	for i := range customerModels {
		customers[i] = customerModels[i].ToDomain()
	}
	return customers, nil
}

// Save creates or updates a customer account
func (r *GormCustomerRepository) Save(ctx context.Context, customer *ledger.CustomerAccount) error {
	model := models.CustomerAccountModelFromDomain(customer)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock saves with optimistic locking
func (r *GormCustomerRepository) SaveWithLock(ctx context.Context, customer *ledger.CustomerAccount) error {
	model := models.CustomerAccountModelFromDomain(customer)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", customer.ID, customer.Version-1).
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Ensure GormCustomerRepository implements CustomerRepository
var _ ledger.CustomerRepository = (*GormCustomerRepository)(nil)
