package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/arledger/backend/internal/domain/ar"
	"github.com/arledger/backend/internal/domain/ledger"
	"github.com/arledger/backend/internal/domain/shared"
	"github.com/arledger/backend/internal/infrastructure/persistence/models"
)

// GormAllocationRepository implements AllocationRepository using GORM
type GormAllocationRepository struct {
	db *gorm.DB
}

// NewGormAllocationRepository creates a new GormAllocationRepository
func NewGormAllocationRepository(db *gorm.DB) *GormAllocationRepository {
	return &GormAllocationRepository{db: db}
}

// FindByID finds an allocation by its ID
func (r *GormAllocationRepository) FindByID(ctx context.Context, id uuid.UUID) (*ar.Allocation, error) {
	var model models.AllocationModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByReceipt finds all allocations against a receipt
func (r *GormAllocationRepository) FindByReceipt(ctx context.Context, receiptID uuid.UUID) ([]*ar.Allocation, error) {
	var allocationModels []models.AllocationModel
	if err := r.db.WithContext(ctx).
		Where("payment_receipt_id = ?", receiptID).
		Order("created_at ASC").
		Find(&allocationModels).Error; err != nil {
		return nil, err
	}
	return toDomainAllocations(allocationModels), nil
}

// FindByInvoice finds all allocations against an invoice
func (r *GormAllocationRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*ar.Allocation, error) {
	var allocationModels []models.AllocationModel
	if err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("created_at ASC").
		Find(&allocationModels).Error; err != nil {
		return nil, err
	}
	return toDomainAllocations(allocationModels), nil
}

// FindAll finds allocations with filtering
func (r *GormAllocationRepository) FindAll(ctx context.Context, filter ar.AllocationFilter) ([]*ar.Allocation, error) {
	var allocationModels []models.AllocationModel
	query := r.db.WithContext(ctx).Model(&models.AllocationModel{})
	query = r.applyFilter(query, filter)

	if err := query.Find(&allocationModels).Error; err != nil {
		return nil, err
	}
	return toDomainAllocations(allocationModels), nil
}

// Count counts allocations matching the filter
func (r *GormAllocationRepository) Count(ctx context.Context, filter ar.AllocationFilter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.AllocationModel{})
	query = r.applyFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates an allocation
func (r *GormAllocationRepository) Save(ctx context.Context, allocation *ar.Allocation) error {
	model := models.AllocationModelFromDomain(allocation)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindPendingByReceiptNewestFirst returns the receipt's pending
// allocations most recently created first
func (r *GormAllocationRepository) FindPendingByReceiptNewestFirst(ctx context.Context, receiptID uuid.UUID) ([]*ar.Allocation, error) {
	var allocationModels []models.AllocationModel
	if err := r.db.WithContext(ctx).
		Where("payment_receipt_id = ? AND status = ?", receiptID, ar.AllocationStatusPending).
		Order("created_at DESC").
		Find(&allocationModels).Error; err != nil {
		return nil, err
	}
	return toDomainAllocations(allocationModels), nil
}

// SumActiveByReceipt sums pending and applied allocation amounts against
// a receipt
func (r *GormAllocationRepository) SumActiveByReceipt(ctx context.Context, receiptID uuid.UUID) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&models.AllocationModel{}).
		Select("COALESCE(SUM(amount), 0) as total").
		Where("payment_receipt_id = ? AND status IN ?", receiptID,
			[]ar.AllocationStatus{ar.AllocationStatusPending, ar.AllocationStatusApplied}).
		Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

// CountActiveByReceipt counts pending and applied allocations against a
// receipt
func (r *GormAllocationRepository) CountActiveByReceipt(ctx context.Context, receiptID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.AllocationModel{}).
		Where("payment_receipt_id = ? AND status IN ?", receiptID,
			[]ar.AllocationStatus{ar.AllocationStatusPending, ar.AllocationStatusApplied}).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// PaidInvoiceStats counts the customer's invoices settled since the given
// time and how many were settled on or before their due date. An invoice
// counts as settled when it is fully paid; the settlement date is the
// latest applied allocation against it.
func (r *GormAllocationRepository) PaidInvoiceStats(ctx context.Context, customerID uuid.UUID, since time.Time) (int64, int64, error) {
	var result struct {
		Total  int64
		OnTime int64
	}
	if err := r.db.WithContext(ctx).
		Table("(?) as settled",
			r.db.Model(&models.AllocationModel{}).
				Select("payment_allocations.invoice_id, MAX(payment_allocations.applied_at) as settled_at, MAX(invoices.due_date) as due_date").
				Joins("JOIN invoices ON invoices.id = payment_allocations.invoice_id").
				Where("payment_allocations.customer_id = ? AND payment_allocations.status = ? AND invoices.payment_status = ?",
					customerID, ar.AllocationStatusApplied, ledger.PaymentStatusPaid).
				Group("payment_allocations.invoice_id").
				Having("MAX(payment_allocations.applied_at) >= ?", since)).
		Select("COUNT(*) as total, COALESCE(SUM(CASE WHEN due_date IS NULL OR settled_at <= due_date THEN 1 ELSE 0 END), 0) as on_time").
		Scan(&result).Error; err != nil {
		return 0, 0, err
	}
	return result.Total, result.OnTime, nil
}

// applyFilter applies filter options to the query
func (r *GormAllocationRepository) applyFilter(query *gorm.DB, filter ar.AllocationFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.Limit())
	}

	orderBy := ValidateSortField(filter.OrderBy, AllocationSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	return query.Order(orderBy + " " + orderDir)
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormAllocationRepository) applyFilterWithoutPagination(query *gorm.DB, filter ar.AllocationFilter) *gorm.DB {
	if filter.PaymentReceiptID != nil {
		query = query.Where("payment_receipt_id = ?", *filter.PaymentReceiptID)
	}
	if filter.InvoiceID != nil {
		query = query.Where("invoice_id = ?", *filter.InvoiceID)
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.AllocationType != nil {
		query = query.Where("allocation_type = ?", *filter.AllocationType)
	}
	return query
}

func toDomainAllocations(allocationModels []models.AllocationModel) []*ar.Allocation {
	allocations := make([]*ar.Allocation, len(allocationModels))
	for i := range allocationModels {
		allocations[i] = allocationModels[i].ToDomain()
	}
	return allocations
}

// Ensure GormAllocationRepository implements AllocationRepository
var _ ar.AllocationRepository = (*GormAllocationRepository)(nil)
