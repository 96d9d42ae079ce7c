package ar

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/arledger/backend/internal/domain/ar"
	"github.com/arledger/backend/internal/domain/ledger"
	"github.com/arledger/backend/internal/domain/shared"
)

// CreditRefresher re-derives a customer's credit figures after a
// balance-affecting event. Implemented by CreditService.
type CreditRefresher interface {
	RefreshWithinTx(ctx context.Context, repos TransactionalRepositories, customerID uuid.UUID) error
}

// AllocationService is the allocation engine: it creates, applies,
// reverses and cancels allocations between payment receipts and
// invoices. Every balance effect runs inside one transaction scope and
// receipts and invoices are saved under optimistic locks.
type AllocationService struct {
	txScope       TransactionScope
	credit        CreditRefresher
	retryAttempts int
	events        shared.EventPublisher
	logger        *zap.Logger
}

// AllocationServiceOption configures an AllocationService
type AllocationServiceOption func(*AllocationService)

// WithCreditRefresher wires the credit profile cascade
func WithCreditRefresher(credit CreditRefresher) AllocationServiceOption {
	return func(s *AllocationService) {
		s.credit = credit
	}
}

// WithAllocationEventPublisher sets the domain event publisher
func WithAllocationEventPublisher(publisher shared.EventPublisher) AllocationServiceOption {
	return func(s *AllocationService) {
		s.events = publisher
	}
}

// WithAllocationLogger sets the logger
func WithAllocationLogger(logger *zap.Logger) AllocationServiceOption {
	return func(s *AllocationService) {
		s.logger = logger
	}
}

// WithAllocationConflictRetries overrides the bounded retry count for
// version conflicts
func WithAllocationConflictRetries(attempts int) AllocationServiceOption {
	return func(s *AllocationService) {
		s.retryAttempts = attempts
	}
}

// NewAllocationService creates a new allocation service
func NewAllocationService(txScope TransactionScope, opts ...AllocationServiceOption) *AllocationService {
	service := &AllocationService{
		txScope:       txScope,
		retryAttempts: DefaultConflictRetries,
		events:        shared.NoOpEventPublisher{},
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// AllocationItemRequest is one manual allocation line
type AllocationItemRequest struct {
	InvoiceID uuid.UUID       `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
	Notes     string          `json:"notes"`
}

// Allocate creates pending allocations from a receipt to the given
// invoices. Amounts are clamped down to each invoice's outstanding
// amount; balance effects are not posted until application.
func (s *AllocationService) Allocate(ctx context.Context, receiptID uuid.UUID, items []AllocationItemRequest, createdBy uuid.UUID) ([]AllocationResponse, error) {
	if len(items) == 0 {
		return nil, shared.NewValidationError("EMPTY_ALLOCATION", "At least one allocation line is required")
	}
	if createdBy == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_ACTOR", "Creating user is required")
	}
	// Each line is clamped against the invoice outstanding, so two lines
	// naming the same invoice could together reserve more than it carries.
	seen := make(map[uuid.UUID]struct{}, len(items))
	for _, item := range items {
		if _, dup := seen[item.InvoiceID]; dup {
			return nil, shared.NewValidationError("DUPLICATE_INVOICE",
				"Invoice "+item.InvoiceID.String()+" appears more than once in the allocation request")
		}
		seen[item.InvoiceID] = struct{}{}
	}

	var created []*ar.Allocation
	err := withConflictRetry(ctx, s.retryAttempts, func() error {
		created = nil
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			receipt, err := repos.ReceiptRepo().FindByID(ctx, receiptID)
			if err != nil {
				return err
			}
			if !receipt.CanAllocate() {
				return shared.NewPreconditionError("RECEIPT_NOT_ALLOCATABLE",
					"Receipt "+receipt.ReceiptNumber+" is not verified or approved for allocation")
			}

			for _, item := range items {
				allocation, err := s.createPending(ctx, repos, receipt, item.InvoiceID, item.Amount, ar.AllocationTypeManual, item.Notes, createdBy)
				if err != nil {
					return err
				}
				created = append(created, allocation)
			}

			return repos.ReceiptRepo().SaveWithLock(ctx, receipt)
		})
	})
	if err != nil {
		return nil, err
	}

	for _, allocation := range created {
		s.publish(allocation)
	}
	s.logger.Info("allocations created",
		zap.String("receipt_id", receiptID.String()),
		zap.Int("count", len(created)))
	return toAllocationResponses(created), nil
}

// createPending validates one allocation line against the receipt and
// invoice and reserves the amount on the receipt.
func (s *AllocationService) createPending(
	ctx context.Context,
	repos TransactionalRepositories,
	receipt *ar.PaymentReceipt,
	invoiceID uuid.UUID,
	amount decimal.Decimal,
	allocationType ar.AllocationType,
	notes string,
	createdBy uuid.UUID,
) (*ar.Allocation, error) {
	invoice, err := repos.InvoiceRepo().FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.CustomerID != receipt.CustomerID {
		return nil, shared.NewValidationError("CUSTOMER_MISMATCH",
			"Invoice "+invoice.InvoiceNumber+" belongs to a different customer than the receipt")
	}
	if invoice.PaymentStatus.IsSettled() {
		return nil, shared.NewValidationError("INVOICE_ALREADY_PAID",
			"Invoice "+invoice.InvoiceNumber+" is already fully paid")
	}
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("INVALID_AMOUNT", "Allocation amount must be positive")
	}
	if amount.GreaterThan(receipt.UnallocatedAmount) {
		return nil, shared.NewValidationError("EXCEEDS_UNALLOCATED",
			"Allocation amount exceeds unallocated amount of receipt "+receipt.ReceiptNumber)
	}

	// Over-asking against the invoice is tolerated: the amount is
	// clamped down to what is outstanding.
	if amount.GreaterThan(invoice.OutstandingAmount) {
		amount = invoice.OutstandingAmount
	}

	allocation, err := ar.NewAllocation(receipt.ID, invoice.ID, receipt.CustomerID, amount, allocationType, notes, createdBy)
	if err != nil {
		return nil, err
	}
	if err := receipt.ReserveAllocation(amount); err != nil {
		return nil, err
	}
	if err := repos.AllocationRepo().Save(ctx, allocation); err != nil {
		return nil, err
	}
	return allocation, nil
}

// ApplyAllocation posts the balance effects of a pending allocation:
// the invoice's paid and outstanding amounts, its payment status and
// the customer's AR balance all move together, atomically.
func (s *AllocationService) ApplyAllocation(ctx context.Context, allocationID uuid.UUID) (*AllocationResponse, error) {
	var allocation *ar.Allocation
	err := withConflictRetry(ctx, s.retryAttempts, func() error {
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			var err error
			allocation, err = repos.AllocationRepo().FindByID(ctx, allocationID)
			if err != nil {
				return err
			}

			receipt, err := repos.ReceiptRepo().FindByID(ctx, allocation.PaymentReceiptID)
			if err != nil {
				return err
			}
			if !receipt.WorkflowStatus.CanAllocate() {
				return shared.NewPreconditionError("RECEIPT_NOT_ALLOCATABLE",
					"Receipt "+receipt.ReceiptNumber+" is not verified or approved for allocation")
			}

			invoice, err := repos.InvoiceRepo().FindByID(ctx, allocation.InvoiceID)
			if err != nil {
				return err
			}
			customer, err := repos.CustomerRepo().FindByID(ctx, allocation.CustomerID)
			if err != nil {
				return err
			}

			if err := allocation.MarkApplied(); err != nil {
				return err
			}
			if err := invoice.ApplyPayment(allocation.Amount); err != nil {
				return err
			}
			if err := customer.RecordSettlement(allocation.Amount, receipt.PaymentDate); err != nil {
				return err
			}

			if err := repos.AllocationRepo().Save(ctx, allocation); err != nil {
				return err
			}
			if err := repos.InvoiceRepo().SaveWithLock(ctx, invoice); err != nil {
				return err
			}
			if err := repos.CustomerRepo().SaveWithLock(ctx, customer); err != nil {
				return err
			}

			return s.refreshCredit(ctx, repos, allocation.CustomerID)
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(allocation)
	s.logger.Info("allocation applied",
		zap.String("allocation_id", allocationID.String()),
		zap.String("amount", allocation.Amount.String()))
	return toAllocationResponse(allocation), nil
}

// ReverseAllocation undoes an applied allocation: the inverse of every
// balance effect is posted and the receipt status is re-derived from
// its unallocated amount.
func (s *AllocationService) ReverseAllocation(ctx context.Context, allocationID uuid.UUID, reason string) (*AllocationResponse, error) {
	var allocation *ar.Allocation
	err := withConflictRetry(ctx, s.retryAttempts, func() error {
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			var err error
			allocation, err = repos.AllocationRepo().FindByID(ctx, allocationID)
			if err != nil {
				return err
			}

			receipt, err := repos.ReceiptRepo().FindByID(ctx, allocation.PaymentReceiptID)
			if err != nil {
				return err
			}
			invoice, err := repos.InvoiceRepo().FindByID(ctx, allocation.InvoiceID)
			if err != nil {
				return err
			}
			customer, err := repos.CustomerRepo().FindByID(ctx, allocation.CustomerID)
			if err != nil {
				return err
			}

			if err := allocation.MarkReversed(reason); err != nil {
				return err
			}
			if err := receipt.ReleaseAllocation(allocation.Amount); err != nil {
				return err
			}
			if err := invoice.RevertPayment(allocation.Amount); err != nil {
				return err
			}
			if err := customer.RevertSettlement(allocation.Amount); err != nil {
				return err
			}

			if err := repos.AllocationRepo().Save(ctx, allocation); err != nil {
				return err
			}
			if err := repos.ReceiptRepo().SaveWithLock(ctx, receipt); err != nil {
				return err
			}
			if err := repos.InvoiceRepo().SaveWithLock(ctx, invoice); err != nil {
				return err
			}
			if err := repos.CustomerRepo().SaveWithLock(ctx, customer); err != nil {
				return err
			}

			return s.refreshCredit(ctx, repos, allocation.CustomerID)
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(allocation)
	s.logger.Info("allocation reversed",
		zap.String("allocation_id", allocationID.String()),
		zap.String("reason", reason))
	return toAllocationResponse(allocation), nil
}

// CancelAllocation withdraws a pending allocation. The reserved amount
// returns to the receipt; no ledger effects were posted, so none are
// undone.
func (s *AllocationService) CancelAllocation(ctx context.Context, allocationID uuid.UUID) (*AllocationResponse, error) {
	var allocation *ar.Allocation
	err := withConflictRetry(ctx, s.retryAttempts, func() error {
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			var err error
			allocation, err = repos.AllocationRepo().FindByID(ctx, allocationID)
			if err != nil {
				return err
			}
			receipt, err := repos.ReceiptRepo().FindByID(ctx, allocation.PaymentReceiptID)
			if err != nil {
				return err
			}

			if err := allocation.MarkCancelled(); err != nil {
				return err
			}
			if err := receipt.ReleaseAllocation(allocation.Amount); err != nil {
				return err
			}

			if err := repos.AllocationRepo().Save(ctx, allocation); err != nil {
				return err
			}
			return repos.ReceiptRepo().SaveWithLock(ctx, receipt)
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(allocation)
	return toAllocationResponse(allocation), nil
}

// AutoAllocate runs the waterfall: the receipt's unallocated amount is
// distributed over the customer's outstanding invoices, oldest due date
// first, and every created allocation is applied immediately.
func (s *AllocationService) AutoAllocate(ctx context.Context, receiptID, createdBy uuid.UUID) ([]AllocationResponse, error) {
	if createdBy == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_ACTOR", "Creating user is required")
	}

	var created []*ar.Allocation
	err := withConflictRetry(ctx, s.retryAttempts, func() error {
		created = nil
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			receipt, err := repos.ReceiptRepo().FindByID(ctx, receiptID)
			if err != nil {
				return err
			}
			if !receipt.CanAllocate() {
				return shared.NewPreconditionError("RECEIPT_NOT_ALLOCATABLE",
					"Receipt "+receipt.ReceiptNumber+" is not verified or approved for allocation")
			}
			if !receipt.UnallocatedAmount.IsPositive() {
				return shared.NewPreconditionError("NOTHING_TO_ALLOCATE",
					"Receipt "+receipt.ReceiptNumber+" has no unallocated amount")
			}

			invoices, err := repos.InvoiceRepo().FindOutstandingByCustomer(ctx, receipt.CustomerID)
			if err != nil {
				return err
			}
			plan, err := ar.PlanWaterfall(receipt.UnallocatedAmount, invoices)
			if err != nil {
				return err
			}

			customer, err := repos.CustomerRepo().FindByID(ctx, receipt.CustomerID)
			if err != nil {
				return err
			}

			byID := make(map[uuid.UUID]*ledger.Invoice, len(invoices))
			for _, invoice := range invoices {
				byID[invoice.ID] = invoice
			}

			for _, step := range plan.Allocations {
				invoice := byID[step.InvoiceID]

				allocation, err := ar.NewAllocation(receipt.ID, step.InvoiceID, receipt.CustomerID,
					step.Amount, ar.AllocationTypeAutomatic, "", createdBy)
				if err != nil {
					return err
				}
				if err := receipt.ReserveAllocation(step.Amount); err != nil {
					return err
				}
				if err := allocation.MarkApplied(); err != nil {
					return err
				}
				if err := invoice.ApplyPayment(step.Amount); err != nil {
					return err
				}
				if err := customer.RecordSettlement(step.Amount, receipt.PaymentDate); err != nil {
					return err
				}

				if err := repos.AllocationRepo().Save(ctx, allocation); err != nil {
					return err
				}
				if err := repos.InvoiceRepo().SaveWithLock(ctx, invoice); err != nil {
					return err
				}
				created = append(created, allocation)
			}

			if err := repos.ReceiptRepo().SaveWithLock(ctx, receipt); err != nil {
				return err
			}
			if err := repos.CustomerRepo().SaveWithLock(ctx, customer); err != nil {
				return err
			}

			return s.refreshCredit(ctx, repos, receipt.CustomerID)
		})
	})
	if err != nil {
		return nil, err
	}

	for _, allocation := range created {
		s.publish(allocation)
	}
	s.logger.Info("receipt auto-allocated",
		zap.String("receipt_id", receiptID.String()),
		zap.Int("allocations", len(created)))
	return toAllocationResponses(created), nil
}

// ReduceReceiptTotal lowers a receipt's total after allocations exist
// and releases pending allocations newest first until the allocated
// amount fits under the new total. Applied allocations are never
// touched.
func (s *AllocationService) ReduceReceiptTotal(ctx context.Context, receiptID uuid.UUID, newTotal decimal.Decimal) (*PaymentReceiptResponse, error) {
	var receipt *ar.PaymentReceipt
	err := withConflictRetry(ctx, s.retryAttempts, func() error {
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			var err error
			receipt, err = repos.ReceiptRepo().FindByID(ctx, receiptID)
			if err != nil {
				return err
			}
			if !newTotal.IsPositive() {
				return shared.NewValidationError("INVALID_AMOUNT", "New total must be positive")
			}

			excess := receipt.AllocatedAmount.Sub(newTotal)
			if excess.IsPositive() {
				pending, err := repos.AllocationRepo().FindPendingByReceiptNewestFirst(ctx, receiptID)
				if err != nil {
					return err
				}

				for _, allocation := range pending {
					if !excess.IsPositive() {
						break
					}
					if allocation.Amount.GreaterThan(excess) {
						// Partial cut on the last allocation touched.
						if err := allocation.Reduce(excess); err != nil {
							return err
						}
						if err := receipt.ReleaseAllocation(excess); err != nil {
							return err
						}
						excess = decimal.Zero
					} else {
						released := allocation.Amount
						if err := allocation.MarkCancelled(); err != nil {
							return err
						}
						if err := receipt.ReleaseAllocation(released); err != nil {
							return err
						}
						excess = excess.Sub(released)
					}
					if err := repos.AllocationRepo().Save(ctx, allocation); err != nil {
						return err
					}
				}

				if excess.IsPositive() {
					return shared.NewPreconditionError("APPLIED_EXCEEDS_TOTAL",
						"Applied allocations of receipt "+receipt.ReceiptNumber+" exceed the new total")
				}
			}

			if err := receipt.ReduceTotal(newTotal); err != nil {
				return err
			}
			return repos.ReceiptRepo().SaveWithLock(ctx, receipt)
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("receipt total reduced",
		zap.String("receipt_id", receiptID.String()),
		zap.String("new_total", newTotal.String()))
	return toPaymentReceiptResponse(receipt), nil
}

// GetSuggestions ranks the customer's outstanding invoices for manual
// allocation of the receipt's unallocated amount. Read-only.
func (s *AllocationService) GetSuggestions(ctx context.Context, receiptID uuid.UUID) ([]AllocationSuggestionResponse, error) {
	var suggestions []ar.AllocationSuggestion
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		receipt, err := repos.ReceiptRepo().FindByID(ctx, receiptID)
		if err != nil {
			return err
		}
		invoices, err := repos.InvoiceRepo().FindOutstandingByCustomer(ctx, receipt.CustomerID)
		if err != nil {
			return err
		}
		suggestions, err = ar.SuggestAllocations(receipt.UnallocatedAmount, invoices, time.Now())
		return err
	})
	if err != nil {
		return nil, err
	}

	responses := make([]AllocationSuggestionResponse, 0, len(suggestions))
	for _, suggestion := range suggestions {
		responses = append(responses, AllocationSuggestionResponse{
			InvoiceID:         suggestion.InvoiceID,
			InvoiceNumber:     suggestion.InvoiceNumber,
			OutstandingAmount: suggestion.OutstandingAmount,
			DueDate:           suggestion.DueDate,
			DaysOverdue:       suggestion.DaysOverdue,
			PriorityScore:     suggestion.PriorityScore,
			SuggestedAmount:   suggestion.SuggestedAmount,
		})
	}
	return responses, nil
}

// ListByReceipt returns all allocations of a receipt
func (s *AllocationService) ListByReceipt(ctx context.Context, receiptID uuid.UUID) ([]AllocationResponse, error) {
	var allocations []*ar.Allocation
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		allocations, err = repos.AllocationRepo().FindByReceipt(ctx, receiptID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toAllocationResponses(allocations), nil
}

// ListByInvoice returns all allocations against an invoice
func (s *AllocationService) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]AllocationResponse, error) {
	var allocations []*ar.Allocation
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		allocations, err = repos.AllocationRepo().FindByInvoice(ctx, invoiceID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toAllocationResponses(allocations), nil
}

func (s *AllocationService) refreshCredit(ctx context.Context, repos TransactionalRepositories, customerID uuid.UUID) error {
	if s.credit == nil {
		return nil
	}
	return s.credit.RefreshWithinTx(ctx, repos, customerID)
}

func (s *AllocationService) publish(aggregate shared.AggregateRoot) {
	events := aggregate.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	s.events.Publish(events...)
	aggregate.ClearDomainEvents()
}
