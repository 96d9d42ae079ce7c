package ar

import (
	"context"

	"github.com/arledger/backend/internal/domain/ar"
	"github.com/arledger/backend/internal/domain/ledger"
)

// TransactionScope provides transactional access to the settlement
// repositories. Every multi-row effect in the allocation engine runs
// inside one scope: either all participating rows commit or none do.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all settlement
// repositories within a transaction. All repositories returned share
// the same underlying database transaction.
type TransactionalRepositories interface {
	// ReceiptRepo returns the payment receipt repository scoped to the current transaction
	ReceiptRepo() ar.PaymentReceiptRepository
	// AllocationRepo returns the allocation repository scoped to the current transaction
	AllocationRepo() ar.AllocationRepository
	// InvoiceRepo returns the invoice repository scoped to the current transaction
	InvoiceRepo() ledger.InvoiceRepository
	// CustomerRepo returns the customer account repository scoped to the current transaction
	CustomerRepo() ledger.CustomerRepository
	// CreditProfileRepo returns the credit profile repository scoped to the current transaction
	CreditProfileRepo() ar.CreditProfileRepository
	// SnapshotRepo returns the aging snapshot repository scoped to the current transaction
	SnapshotRepo() ar.AgingSnapshotRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use
// transactions. This is useful for testing or when transaction support
// is not required.
type NoOpTransactionScope struct {
	receiptRepo    ar.PaymentReceiptRepository
	allocationRepo ar.AllocationRepository
	invoiceRepo    ledger.InvoiceRepository
	customerRepo   ledger.CustomerRepository
	profileRepo    ar.CreditProfileRepository
	snapshotRepo   ar.AgingSnapshotRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given
// repositories.
func NewNoOpTransactionScope(
	receiptRepo ar.PaymentReceiptRepository,
	allocationRepo ar.AllocationRepository,
	invoiceRepo ledger.InvoiceRepository,
	customerRepo ledger.CustomerRepository,
	profileRepo ar.CreditProfileRepository,
	snapshotRepo ar.AgingSnapshotRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		receiptRepo:    receiptRepo,
		allocationRepo: allocationRepo,
		invoiceRepo:    invoiceRepo,
		customerRepo:   customerRepo,
		profileRepo:    profileRepo,
		snapshotRepo:   snapshotRepo,
	}
}

// Execute runs the function without a real transaction (for testing/compatibility).
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// ReceiptRepo returns the payment receipt repository.
func (s *NoOpTransactionScope) ReceiptRepo() ar.PaymentReceiptRepository {
	return s.receiptRepo
}

// AllocationRepo returns the allocation repository.
func (s *NoOpTransactionScope) AllocationRepo() ar.AllocationRepository {
	return s.allocationRepo
}

// InvoiceRepo returns the invoice repository.
func (s *NoOpTransactionScope) InvoiceRepo() ledger.InvoiceRepository {
	return s.invoiceRepo
}

// CustomerRepo returns the customer account repository.
func (s *NoOpTransactionScope) CustomerRepo() ledger.CustomerRepository {
	return s.customerRepo
}

// CreditProfileRepo returns the credit profile repository.
func (s *NoOpTransactionScope) CreditProfileRepo() ar.CreditProfileRepository {
	return s.profileRepo
}

// SnapshotRepo returns the aging snapshot repository.
func (s *NoOpTransactionScope) SnapshotRepo() ar.AgingSnapshotRepository {
	return s.snapshotRepo
}

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
