package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/arledger/backend/internal/domain/ledger"
	"github.com/arledger/backend/internal/domain/shared"
	"github.com/arledger/backend/internal/infrastructure/persistence/models"
)

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice by its ID
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNumber finds an invoice by its invoice number
func (r *GormInvoiceRepository) FindByNumber(ctx context.Context, invoiceNumber string) (*ledger.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("invoice_number = ?", invoiceNumber).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds invoices with filtering
func (r *GormInvoiceRepository) FindAll(ctx context.Context, filter ledger.InvoiceFilter) ([]*ledger.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{})
	query = r.applyFilter(query, filter)

	if err := query.Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	return toDomainInvoices(invoiceModels), nil
}

// Count counts invoices matching the filter
func (r *GormInvoiceRepository) Count(ctx context.Context, filter ledger.InvoiceFilter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{})
	query = r.applyFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates an invoice
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *ledger.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock saves with optimistic locking
func (r *GormInvoiceRepository) SaveWithLock(ctx context.Context, invoice *ledger.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", invoice.ID, invoice.Version-1).
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// FindOutstandingByCustomer returns invoices with outstanding > 0 in
// waterfall order: due date ascending with nulls last, then created date
// ascending
func (r *GormInvoiceRepository) FindOutstandingByCustomer(ctx context.Context, customerID uuid.UUID) ([]*ledger.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("customer_id = ? AND outstanding_amount > 0", customerID).
		Order("CASE WHEN due_date IS NULL THEN 1 ELSE 0 END, due_date ASC, created_at ASC").
		Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	return toDomainInvoices(invoiceModels), nil
}

// FindOutstanding returns all invoices with outstanding > 0
func (r *GormInvoiceRepository) FindOutstanding(ctx context.Context) ([]*ledger.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("outstanding_amount > 0").
		Order("customer_id, created_at ASC").
		Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	return toDomainInvoices(invoiceModels), nil
}

// SumOutstandingByCustomer calculates the customer's total outstanding
func (r *GormInvoiceRepository) SumOutstandingByCustomer(ctx context.Context, customerID uuid.UUID) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Select("COALESCE(SUM(outstanding_amount), 0) as total").
		Where("customer_id = ?", customerID).
		Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

// SumOverdueByCustomer calculates the customer's outstanding past due as
// of the given time
func (r *GormInvoiceRepository) SumOverdueByCustomer(ctx context.Context, customerID uuid.UUID, asOf time.Time) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Select("COALESCE(SUM(outstanding_amount), 0) as total").
		Where("customer_id = ? AND outstanding_amount > 0 AND due_date IS NOT NULL AND due_date < ?", customerID, asOf).
		Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

// MaxDaysOverdueByCustomer returns the customer's oldest overdue age in
// days as of the given time. Returns 0 when nothing is overdue.
func (r *GormInvoiceRepository) MaxDaysOverdueByCustomer(ctx context.Context, customerID uuid.UUID, asOf time.Time) (int, error) {
	var earliest *time.Time
	if err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Select("MIN(due_date)").
		Where("customer_id = ? AND outstanding_amount > 0 AND due_date IS NOT NULL AND due_date < ?", customerID, asOf).
		Scan(&earliest).Error; err != nil {
		return 0, err
	}
	if earliest == nil {
		return 0, nil
	}
	return int(asOf.Sub(*earliest).Hours() / 24), nil
}

// ListCustomerIDsWithOutstanding lists the distinct customers that have
// outstanding invoices
func (r *GormInvoiceRepository) ListCustomerIDsWithOutstanding(ctx context.Context) ([]uuid.UUID, error) {
	var customerIDs []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Distinct("customer_id").
		Where("outstanding_amount > 0").
		Pluck("customer_id", &customerIDs).Error; err != nil {
		return nil, err
	}
	return customerIDs, nil
}

// applyFilter applies filter options to the query
func (r *GormInvoiceRepository) applyFilter(query *gorm.DB, filter ledger.InvoiceFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.Limit())
	}

	orderBy := ValidateSortField(filter.OrderBy, InvoiceSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	return query.Order(orderBy + " " + orderDir)
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormInvoiceRepository) applyFilterWithoutPagination(query *gorm.DB, filter ledger.InvoiceFilter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("invoice_number ILIKE ?", searchPattern)
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *filter.PaymentStatus)
	}
	if filter.OutstandingOnly {
		query = query.Where("outstanding_amount > 0")
	}
	if filter.OverdueAsOf != nil {
		query = query.Where("due_date IS NOT NULL AND due_date < ?", *filter.OverdueAsOf)
	}
	if filter.DueBefore != nil {
		query = query.Where("due_date < ?", *filter.DueBefore)
	}
	if filter.DueAfter != nil {
		query = query.Where("due_date >= ?", *filter.DueAfter)
	}
	return query
}

func toDomainInvoices(invoiceModels []models.InvoiceModel) []*ledger.Invoice {
	invoices := make([]*ledger.Invoice, len(invoiceModels))
	for i := range invoiceModels {
		invoices[i] = invoiceModels[i].ToDomain()
	}
	return invoices
}

// Ensure GormInvoiceRepository implements InvoiceRepository
var _ ledger.InvoiceRepository = (*GormInvoiceRepository)(nil)
