package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arledger/backend/internal/domain/ar"
	"github.com/arledger/backend/internal/domain/shared"
	"github.com/arledger/backend/internal/infrastructure/persistence/models"
)

// GormPaymentReceiptRepository implements PaymentReceiptRepository using GORM
type GormPaymentReceiptRepository struct {
	db *gorm.DB
}

// NewGormPaymentReceiptRepository creates a new GormPaymentReceiptRepository
func NewGormPaymentReceiptRepository(db *gorm.DB) *GormPaymentReceiptRepository {
	return &GormPaymentReceiptRepository{db: db}
}

// FindByID finds a payment receipt by its ID
func (r *GormPaymentReceiptRepository) FindByID(ctx context.Context, id uuid.UUID) (*ar.PaymentReceipt, error) {
	var model models.PaymentReceiptModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNumber finds a payment receipt by its receipt number
func (r *GormPaymentReceiptRepository) FindByNumber(ctx context.Context, receiptNumber string) (*ar.PaymentReceipt, error) {
	var model models.PaymentReceiptModel
	if err := r.db.WithContext(ctx).
		Where("receipt_number = ?", receiptNumber).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds payment receipts with filtering
func (r *GormPaymentReceiptRepository) FindAll(ctx context.Context, filter ar.ReceiptFilter) ([]*ar.PaymentReceipt, error) {
	var receiptModels []models.PaymentReceiptModel
	query := r.db.WithContext(ctx).Model(&models.PaymentReceiptModel{})
	query = r.applyFilter(query, filter)

	if err := query.Find(&receiptModels).Error; err != nil {
		return nil, err
	}
	receipts := make([]*ar.PaymentReceipt, len(receiptModels))
	for i := range receiptModels {
		receipts[i] = receiptModels[i].ToDomain()
	}
	return receipts, nil
}

// Count counts payment receipts matching the filter
func (r *GormPaymentReceiptRepository) Count(ctx context.Context, filter ar.ReceiptFilter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.PaymentReceiptModel{})
	query = r.applyFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates a payment receipt
func (r *GormPaymentReceiptRepository) Save(ctx context.Context, receipt *ar.PaymentReceipt) error {
	model := models.PaymentReceiptModelFromDomain(receipt)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock saves with optimistic locking
func (r *GormPaymentReceiptRepository) SaveWithLock(ctx context.Context, receipt *ar.PaymentReceipt) error {
	model := models.PaymentReceiptModelFromDomain(receipt)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", receipt.ID, receipt.Version-1).
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Delete deletes a payment receipt
func (r *GormPaymentReceiptRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.PaymentReceiptModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// NextReceiptNumber generates the next sequential receipt number for the
// given day, formatted PR-YYYYMMDD-NNNNN.
func (r *GormPaymentReceiptRepository) NextReceiptNumber(ctx context.Context, date time.Time) (string, error) {
	prefix := fmt.Sprintf("PR-%s-", date.Format("20060102"))

	var maxNumber string
	if err := r.db.WithContext(ctx).
		Model(&models.PaymentReceiptModel{}).
		Select("receipt_number").
		Where("receipt_number LIKE ?", prefix+"%").
		Order("receipt_number DESC").
		Limit(1).
		Pluck("receipt_number", &maxNumber).Error; err != nil {
		return "", err
	}

	var nextNum int
	if maxNumber != "" {
		parts := strings.Split(maxNumber, "-")
		if len(parts) == 3 {
			fmt.Sscanf(parts[2], "%d", &nextNum)
		}
	}
	nextNum++

	return fmt.Sprintf("%s%05d", prefix, nextNum), nil
}

// PaymentDatesByCustomerSince returns payment dates of the customer's
// non-cancelled receipts since the given time, ascending
func (r *GormPaymentReceiptRepository) PaymentDatesByCustomerSince(ctx context.Context, customerID uuid.UUID, since time.Time) ([]time.Time, error) {
	var dates []time.Time
	if err := r.db.WithContext(ctx).
		Model(&models.PaymentReceiptModel{}).
		Where("customer_id = ? AND payment_date >= ? AND status <> ?",
			customerID, since, ar.ReceiptStatusCancelled).
		Order("payment_date ASC").
		Pluck("payment_date", &dates).Error; err != nil {
		return nil, err
	}
	return dates, nil
}

// applyFilter applies filter options to the query
func (r *GormPaymentReceiptRepository) applyFilter(query *gorm.DB, filter ar.ReceiptFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.Limit())
	}

	orderBy := ValidateSortField(filter.OrderBy, ReceiptSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	return query.Order(orderBy + " " + orderDir)
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormPaymentReceiptRepository) applyFilterWithoutPagination(query *gorm.DB, filter ar.ReceiptFilter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("receipt_number ILIKE ?", searchPattern)
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.WorkflowStatus != nil {
		query = query.Where("workflow_status = ?", *filter.WorkflowStatus)
	}
	if filter.PaymentMethod != nil {
		query = query.Where("payment_method = ?", *filter.PaymentMethod)
	}
	if filter.DateFrom != nil {
		query = query.Where("payment_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("payment_date <= ?", *filter.DateTo)
	}
	return query
}

// Ensure GormPaymentReceiptRepository implements PaymentReceiptRepository
var _ ar.PaymentReceiptRepository = (*GormPaymentReceiptRepository)(nil)
