package persistence

import (
	"context"

	"gorm.io/gorm"

	appar "github.com/arledger/backend/internal/application/ar"
	"github.com/arledger/backend/internal/domain/ar"
	"github.com/arledger/backend/internal/domain/ledger"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appar.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormTransactionalRepositories{tx: tx}
		return fn(repos)
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// ReceiptRepo returns the payment receipt repository scoped to the current transaction.
func (r *gormTransactionalRepositories) ReceiptRepo() ar.PaymentReceiptRepository {
	return NewGormPaymentReceiptRepository(r.tx)
}

// AllocationRepo returns the allocation repository scoped to the current transaction.
func (r *gormTransactionalRepositories) AllocationRepo() ar.AllocationRepository {
	return NewGormAllocationRepository(r.tx)
}

// InvoiceRepo returns the invoice repository scoped to the current transaction.
func (r *gormTransactionalRepositories) InvoiceRepo() ledger.InvoiceRepository {
	return NewGormInvoiceRepository(r.tx)
}

// CustomerRepo returns the customer account repository scoped to the current transaction.
func (r *gormTransactionalRepositories) CustomerRepo() ledger.CustomerRepository {
	return NewGormCustomerRepository(r.tx)
}

// CreditProfileRepo returns the credit profile repository scoped to the current transaction.
func (r *gormTransactionalRepositories) CreditProfileRepo() ar.CreditProfileRepository {
	return NewGormCreditProfileRepository(r.tx)
}

// SnapshotRepo returns the aging snapshot repository scoped to the current transaction.
func (r *gormTransactionalRepositories) SnapshotRepo() ar.AgingSnapshotRepository {
	return NewGormAgingSnapshotRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appar.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appar.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
