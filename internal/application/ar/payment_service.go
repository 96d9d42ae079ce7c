package ar

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/arledger/backend/internal/domain/ar"
	"github.com/arledger/backend/internal/domain/shared"
)

// DefaultApprovalThreshold is the receipt total above which a second
// pair of eyes is required before allocation.
var DefaultApprovalThreshold = decimal.NewFromInt(10_000_000)

// PaymentService drives the receipt intake and verify/approve/reject
// workflow. Allocation effects live in AllocationService.
type PaymentService struct {
	txScope           TransactionScope
	approvalThreshold decimal.Decimal
	retryAttempts     int
	events            shared.EventPublisher
	logger            *zap.Logger
}

// PaymentServiceOption configures a PaymentService
type PaymentServiceOption func(*PaymentService)

// WithApprovalThreshold overrides the approval threshold
func WithApprovalThreshold(threshold decimal.Decimal) PaymentServiceOption {
	return func(s *PaymentService) {
		s.approvalThreshold = threshold
	}
}

// WithPaymentEventPublisher sets the domain event publisher
func WithPaymentEventPublisher(publisher shared.EventPublisher) PaymentServiceOption {
	return func(s *PaymentService) {
		s.events = publisher
	}
}

// WithPaymentLogger sets the logger
func WithPaymentLogger(logger *zap.Logger) PaymentServiceOption {
	return func(s *PaymentService) {
		s.logger = logger
	}
}

// WithPaymentConflictRetries overrides the bounded retry count for
// version conflicts
func WithPaymentConflictRetries(attempts int) PaymentServiceOption {
	return func(s *PaymentService) {
		s.retryAttempts = attempts
	}
}

// NewPaymentService creates a new payment service
func NewPaymentService(txScope TransactionScope, opts ...PaymentServiceOption) *PaymentService {
	service := &PaymentService{
		txScope:           txScope,
		approvalThreshold: DefaultApprovalThreshold,
		retryAttempts:     DefaultConflictRetries,
		events:            shared.NoOpEventPublisher{},
		logger:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// CreateReceiptRequest carries the intake data for a payment receipt
type CreateReceiptRequest struct {
	CustomerID    uuid.UUID        `json:"customer_id"`
	PaymentMethod ar.PaymentMethod `json:"payment_method"`
	TotalAmount   decimal.Decimal  `json:"total_amount"`
	PaymentDate   time.Time        `json:"payment_date"`
	Notes         string           `json:"notes"`
}

// CreateReceipt takes in a payment receipt. The receipt number is
// generated per day; the approval requirement is derived from the
// configured threshold.
func (s *PaymentService) CreateReceipt(ctx context.Context, req CreateReceiptRequest, createdBy uuid.UUID) (*PaymentReceiptResponse, error) {
	if createdBy == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_ACTOR", "Creating user is required")
	}

	var receipt *ar.PaymentReceipt
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.CustomerRepo().FindByID(ctx, req.CustomerID); err != nil {
			return err
		}

		number, err := repos.ReceiptRepo().NextReceiptNumber(ctx, req.PaymentDate)
		if err != nil {
			return err
		}

		receipt, err = ar.NewPaymentReceipt(
			number,
			req.CustomerID,
			req.PaymentMethod,
			req.TotalAmount,
			req.PaymentDate,
			s.approvalThreshold,
			req.Notes,
			createdBy,
		)
		if err != nil {
			return err
		}

		return repos.ReceiptRepo().Save(ctx, receipt)
	})
	if err != nil {
		return nil, err
	}

	s.publish(receipt)
	s.logger.Info("payment receipt created",
		zap.String("receipt_number", receipt.ReceiptNumber),
		zap.String("customer_id", receipt.CustomerID.String()),
		zap.String("total_amount", receipt.TotalAmount.String()),
		zap.Bool("requires_approval", receipt.RequiresApproval))

	return toPaymentReceiptResponse(receipt), nil
}

// GetReceipt returns a receipt by ID
func (s *PaymentService) GetReceipt(ctx context.Context, id uuid.UUID) (*PaymentReceiptResponse, error) {
	var receipt *ar.PaymentReceipt
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		receipt, err = repos.ReceiptRepo().FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toPaymentReceiptResponse(receipt), nil
}

// GetReceiptByNumber returns a receipt by its receipt number
func (s *PaymentService) GetReceiptByNumber(ctx context.Context, number string) (*PaymentReceiptResponse, error) {
	var receipt *ar.PaymentReceipt
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		receipt, err = repos.ReceiptRepo().FindByNumber(ctx, number)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toPaymentReceiptResponse(receipt), nil
}

// ListReceipts returns receipts matching the filter, paginated
func (s *PaymentService) ListReceipts(ctx context.Context, filter ar.ReceiptFilter) (*shared.Paginated[PaymentReceiptResponse], error) {
	var (
		receipts []*ar.PaymentReceipt
		total    int64
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		receipts, err = repos.ReceiptRepo().FindAll(ctx, filter)
		if err != nil {
			return err
		}
		total, err = repos.ReceiptRepo().Count(ctx, filter)
		return err
	})
	if err != nil {
		return nil, err
	}

	responses := make([]PaymentReceiptResponse, 0, len(receipts))
	for _, receipt := range receipts {
		responses = append(responses, *toPaymentReceiptResponse(receipt))
	}
	page := shared.NewPaginated(responses, total, filter.Page, filter.PageSize)
	return &page, nil
}

// VerifyReceipt confirms a receipt against the bank record
func (s *PaymentService) VerifyReceipt(ctx context.Context, id, verifiedBy uuid.UUID) (*PaymentReceiptResponse, error) {
	return s.transition(ctx, id, func(receipt *ar.PaymentReceipt) error {
		return receipt.Verify(verifiedBy)
	})
}

// ApproveReceipt releases a large receipt for allocation
func (s *PaymentService) ApproveReceipt(ctx context.Context, id, approvedBy uuid.UUID) (*PaymentReceiptResponse, error) {
	return s.transition(ctx, id, func(receipt *ar.PaymentReceipt) error {
		return receipt.Approve(approvedBy)
	})
}

// RejectReceipt declines a receipt with a mandatory reason
func (s *PaymentService) RejectReceipt(ctx context.Context, id, rejectedBy uuid.UUID, reason string) (*PaymentReceiptResponse, error) {
	return s.transition(ctx, id, func(receipt *ar.PaymentReceipt) error {
		return receipt.Reject(rejectedBy, reason)
	})
}

// DeleteReceipt removes a receipt that was taken in by mistake. Only
// receipts without any active allocation and not yet completed can go.
func (s *PaymentService) DeleteReceipt(ctx context.Context, id, deletedBy uuid.UUID) error {
	if deletedBy == uuid.Nil {
		return shared.NewValidationError("INVALID_ACTOR", "Deleting user is required")
	}

	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		receipt, err := repos.ReceiptRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !receipt.CanDelete() {
			return shared.NewPreconditionError("RECEIPT_NOT_DELETABLE",
				"Receipt "+receipt.ReceiptNumber+" is allocated or completed and cannot be deleted")
		}

		active, err := repos.AllocationRepo().CountActiveByReceipt(ctx, id)
		if err != nil {
			return err
		}
		if active > 0 {
			return shared.NewPreconditionError("RECEIPT_NOT_DELETABLE",
				"Receipt "+receipt.ReceiptNumber+" still has active allocations")
		}

		return repos.ReceiptRepo().Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("payment receipt deleted",
		zap.String("receipt_id", id.String()),
		zap.String("deleted_by", deletedBy.String()))
	return nil
}

// transition loads the receipt, applies a workflow transition and saves
// with optimistic locking, retrying bounded on version conflicts.
func (s *PaymentService) transition(ctx context.Context, id uuid.UUID, apply func(*ar.PaymentReceipt) error) (*PaymentReceiptResponse, error) {
	var receipt *ar.PaymentReceipt
	err := withConflictRetry(ctx, s.retryAttempts, func() error {
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			var err error
			receipt, err = repos.ReceiptRepo().FindByID(ctx, id)
			if err != nil {
				return err
			}
			if err := apply(receipt); err != nil {
				return err
			}
			return repos.ReceiptRepo().SaveWithLock(ctx, receipt)
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(receipt)
	return toPaymentReceiptResponse(receipt), nil
}

func (s *PaymentService) publish(aggregate shared.AggregateRoot) {
	events := aggregate.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	s.events.Publish(events...)
	aggregate.ClearDomainEvents()
}
