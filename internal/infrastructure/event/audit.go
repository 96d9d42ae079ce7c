package event

import (
	"context"

	"go.uber.org/zap"

	"github.com/arledger/backend/internal/domain/ar"
	"github.com/arledger/backend/internal/domain/shared"
)

// AuditLogHandler writes a structured audit trail entry for every
// settlement lifecycle event. It subscribes to the receipt, allocation
// and credit profile event families.
type AuditLogHandler struct {
	logger *zap.Logger
}

// NewAuditLogHandler creates a new audit log handler
func NewAuditLogHandler(logger *zap.Logger) *AuditLogHandler {
	return &AuditLogHandler{logger: logger.Named("audit")}
}

// Handle logs the event
func (h *AuditLogHandler) Handle(_ context.Context, evt shared.DomainEvent) error {
	h.logger.Info("settlement event",
		zap.String("event_type", evt.EventType()),
		zap.String("event_id", evt.EventID().String()),
		zap.String("aggregate_type", evt.AggregateType()),
		zap.String("aggregate_id", evt.AggregateID().String()),
		zap.Time("occurred_at", evt.OccurredAt()),
	)
	return nil
}

// EventTypes returns the settlement event types audited
func (h *AuditLogHandler) EventTypes() []string {
	return []string{
		ar.EventPaymentReceiptCreated,
		ar.EventPaymentReceiptVerified,
		ar.EventPaymentReceiptApproved,
		ar.EventPaymentReceiptRejected,
		ar.EventAllocationCreated,
		ar.EventAllocationApplied,
		ar.EventAllocationReversed,
		ar.EventAllocationCancelled,
		ar.EventCreditProfileCreated,
		ar.EventCreditStatusChanged,
		ar.EventCreditLimitAdjusted,
	}
}

var _ Handler = (*AuditLogHandler)(nil)
