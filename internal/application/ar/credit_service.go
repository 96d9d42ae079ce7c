package ar

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/arledger/backend/internal/domain/ar"
	"github.com/arledger/backend/internal/domain/ledger"
	"github.com/arledger/backend/internal/domain/shared"
)

// historyWindow is the look-back period for reliability scoring
const historyWindow = 12 * 30 * 24 * time.Hour

// CreditService manages per-customer credit profiles: lazy creation,
// balance refresh, status evaluation, reliability scoring, the credit
// sale gate and periodic reviews.
type CreditService struct {
	txScope       TransactionScope
	retryAttempts int
	events        shared.EventPublisher
	logger        *zap.Logger
}

// CreditServiceOption configures a CreditService
type CreditServiceOption func(*CreditService)

// WithCreditEventPublisher sets the domain event publisher
func WithCreditEventPublisher(publisher shared.EventPublisher) CreditServiceOption {
	return func(s *CreditService) {
		s.events = publisher
	}
}

// WithCreditLogger sets the logger
func WithCreditLogger(logger *zap.Logger) CreditServiceOption {
	return func(s *CreditService) {
		s.logger = logger
	}
}

// WithCreditConflictRetries overrides the bounded retry count for
// version conflicts
func WithCreditConflictRetries(attempts int) CreditServiceOption {
	return func(s *CreditService) {
		s.retryAttempts = attempts
	}
}

// NewCreditService creates a new credit service
func NewCreditService(txScope TransactionScope, opts ...CreditServiceOption) *CreditService {
	service := &CreditService{
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

// GetProfile returns the customer's credit profile, creating it lazily
// with a limit derived from the customer type on first access.
func (s *CreditService) GetProfile(ctx context.Context, customerID uuid.UUID) (*CreditProfileResponse, error) {
	var profile *ar.CreditProfile
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		profile, err = s.getOrCreate(ctx, repos, customerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toCreditProfileResponse(profile), nil
}

// RefreshCustomerBalance recomputes the profile's balances from the
// invoice ledger and cascades into status and score updates.
func (s *CreditService) RefreshCustomerBalance(ctx context.Context, customerID uuid.UUID) (*CreditProfileResponse, error) {
	var profile *ar.CreditProfile
	err := withConflictRetry(ctx, s.retryAttempts, func() error {
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			if err := s.RefreshWithinTx(ctx, repos, customerID); err != nil {
				return err
			}
			var err error
			profile, err = repos.CreditProfileRepo().FindByCustomer(ctx, customerID)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return toCreditProfileResponse(profile), nil
}

// RefreshWithinTx re-derives the full credit picture inside an existing
// transaction scope: ledger balances, reliability and credit scores and
// the credit status, in that order.
func (s *CreditService) RefreshWithinTx(ctx context.Context, repos TransactionalRepositories, customerID uuid.UUID) error {
	profile, err := s.getOrCreate(ctx, repos, customerID)
	if err != nil {
		return err
	}

	now := time.Now()
	invoiceRepo := repos.InvoiceRepo()

	currentBalance, err := invoiceRepo.SumOutstandingByCustomer(ctx, customerID)
	if err != nil {
		return err
	}
	overdueAmount, err := invoiceRepo.SumOverdueByCustomer(ctx, customerID, now)
	if err != nil {
		return err
	}
	daysPastDue, err := invoiceRepo.MaxDaysOverdueByCustomer(ctx, customerID, now)
	if err != nil {
		return err
	}
	if err := profile.RefreshBalances(currentBalance, overdueAmount, daysPastDue); err != nil {
		return err
	}

	since := now.Add(-historyWindow)
	timeliness, lateCount, err := s.timelinessScore(ctx, repos, customerID, since)
	if err != nil {
		return err
	}
	consistency, err := s.consistencyScore(ctx, repos, customerID, since)
	if err != nil {
		return err
	}
	profile.UpdateReliability(timeliness, consistency)

	delayCount, err := s.overdueInvoiceCount(ctx, repos, customerID, now)
	if err != nil {
		return err
	}
	profile.SetPaymentCounters(delayCount, lateCount)
	profile.EvaluateStatus()

	if err := repos.CreditProfileRepo().SaveWithLock(ctx, profile); err != nil {
		return err
	}

	s.publish(profile)
	return nil
}

// CanMakeCreditSale runs the credit gate for a prospective sale. The
// profile is refreshed first so the decision reflects the ledger.
func (s *CreditService) CanMakeCreditSale(ctx context.Context, customerID uuid.UUID, amount decimal.Decimal) (*CreditSaleCheckResponse, error) {
	var decision ar.CreditSaleDecision
	err := withConflictRetry(ctx, s.retryAttempts, func() error {
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			if err := s.RefreshWithinTx(ctx, repos, customerID); err != nil {
				return err
			}
			profile, err := repos.CreditProfileRepo().FindByCustomer(ctx, customerID)
			if err != nil {
				return err
			}
			decision, err = profile.EvaluateCreditSale(amount)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	return &CreditSaleCheckResponse{
		CanProceed:       decision.CanProceed,
		Reason:           decision.Reason,
		RequiresApproval: decision.RequiresApproval,
		AvailableCredit:  decision.AvailableCredit,
		CreditStatus:     decision.CreditStatus,
	}, nil
}

// AdjustCreditLimit changes a customer's credit limit manually. The
// acting user and the reason are recorded on the profile's event.
func (s *CreditService) AdjustCreditLimit(ctx context.Context, customerID uuid.UUID, newLimit decimal.Decimal, reason string, adjustedBy uuid.UUID) (*CreditProfileResponse, error) {
	var profile *ar.CreditProfile
	err := withConflictRetry(ctx, s.retryAttempts, func() error {
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			var err error
			profile, err = s.getOrCreate(ctx, repos, customerID)
			if err != nil {
				return err
			}
			if err := profile.AdjustLimit(newLimit, adjustedBy, reason); err != nil {
				return err
			}
			return repos.CreditProfileRepo().SaveWithLock(ctx, profile)
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(profile)
	s.logger.Info("credit limit adjusted",
		zap.String("customer_id", customerID.String()),
		zap.String("new_limit", newLimit.String()),
		zap.String("adjusted_by", adjustedBy.String()))
	return toCreditProfileResponse(profile), nil
}

// RunAutomatedReview refreshes the customer's credit picture and
// produces a limit recommendation. The review window always advances.
func (s *CreditService) RunAutomatedReview(ctx context.Context, customerID uuid.UUID) (*CreditReviewResponse, error) {
	var review *CreditReviewResponse
	err := withConflictRetry(ctx, s.retryAttempts, func() error {
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			if err := s.RefreshWithinTx(ctx, repos, customerID); err != nil {
				return err
			}
			profile, err := repos.CreditProfileRepo().FindByCustomer(ctx, customerID)
			if err != nil {
				return err
			}

			recommendation, suggestedLimit := profile.RecommendReview()
			profile.AdvanceReview(time.Now())
			if err := repos.CreditProfileRepo().SaveWithLock(ctx, profile); err != nil {
				return err
			}

			review = &CreditReviewResponse{
				CustomerID:       customerID,
				Recommendation:   recommendation,
				CurrentLimit:     profile.CreditLimit,
				SuggestedLimit:   suggestedLimit,
				ReliabilityScore: profile.ReliabilityScore,
				CreditScore:      profile.CreditScore,
				DaysPastDue:      profile.DaysPastDue,
				NextReviewDate:   profile.NextReviewDate,
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("automated credit review completed",
		zap.String("customer_id", customerID.String()),
		zap.String("recommendation", review.Recommendation.String()))
	return review, nil
}

// RunDueReviews reviews every profile whose review window has passed.
// Failures are isolated per customer.
func (s *CreditService) RunDueReviews(ctx context.Context) ([]CreditReviewResponse, error) {
	var due []*ar.CreditProfile
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		due, err = repos.CreditProfileRepo().FindDueForReview(ctx, time.Now())
		return err
	})
	if err != nil {
		return nil, err
	}

	reviews := make([]CreditReviewResponse, 0, len(due))
	for _, profile := range due {
		review, err := s.RunAutomatedReview(ctx, profile.CustomerID)
		if err != nil {
			s.logger.Error("automated credit review failed",
				zap.String("customer_id", profile.CustomerID.String()),
				zap.Error(err))
			continue
		}
		reviews = append(reviews, *review)
	}
	return reviews, nil
}

// getOrCreate loads the profile or lazily initializes it from the
// customer's type.
func (s *CreditService) getOrCreate(ctx context.Context, repos TransactionalRepositories, customerID uuid.UUID) (*ar.CreditProfile, error) {
	profile, err := repos.CreditProfileRepo().FindByCustomer(ctx, customerID)
	if err == nil {
		return profile, nil
	}
	var domainErr *shared.DomainError
	if !errors.As(err, &domainErr) || domainErr.Kind != shared.KindNotFound {
		return nil, err
	}

	customer, err := repos.CustomerRepo().FindByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	profile, err = ar.NewCreditProfile(customerID, customer.CustomerType)
	if err != nil {
		return nil, err
	}
	if err := repos.CreditProfileRepo().Save(ctx, profile); err != nil {
		return nil, err
	}

	s.logger.Info("credit profile created",
		zap.String("customer_id", customerID.String()),
		zap.String("credit_limit", profile.CreditLimit.String()))
	return profile, nil
}

// timelinessScore is the percentage of the customer's recently settled
// invoices that were settled on or before their due date.
func (s *CreditService) timelinessScore(ctx context.Context, repos TransactionalRepositories, customerID uuid.UUID, since time.Time) (decimal.Decimal, int, error) {
	total, onTime, err := repos.AllocationRepo().PaidInvoiceStats(ctx, customerID, since)
	if err != nil {
		return decimal.Zero, 0, err
	}
	if total == 0 {
		// Nothing settled recently reads as a clean record.
		return decimal.NewFromInt(100), 0, nil
	}
	score := decimal.NewFromInt(onTime).Div(decimal.NewFromInt(total)).Mul(decimal.NewFromInt(100))
	return score, int(total - onTime), nil
}

// consistencyScore rewards regular payment intervals: 100 minus twice
// the standard deviation of the day gaps between consecutive payments,
// floored at zero.
func (s *CreditService) consistencyScore(ctx context.Context, repos TransactionalRepositories, customerID uuid.UUID, since time.Time) (decimal.Decimal, error) {
	dates, err := repos.ReceiptRepo().PaymentDatesByCustomerSince(ctx, customerID, since)
	if err != nil {
		return decimal.Zero, err
	}
	if len(dates) < 2 {
		return decimal.NewFromInt(100), nil
	}

	intervals := make([]float64, 0, len(dates)-1)
	for i := 1; i < len(dates); i++ {
		intervals = append(intervals, dates[i].Sub(dates[i-1]).Hours()/24)
	}

	mean := 0.0
	for _, interval := range intervals {
		mean += interval
	}
	mean /= float64(len(intervals))

	variance := 0.0
	for _, interval := range intervals {
		diff := interval - mean
		variance += diff * diff
	}
	variance /= float64(len(intervals))

	score := 100 - 2*math.Sqrt(variance)
	if score < 0 {
		score = 0
	}
	return decimal.NewFromFloat(score), nil
}

func (s *CreditService) overdueInvoiceCount(ctx context.Context, repos TransactionalRepositories, customerID uuid.UUID, asOf time.Time) (int, error) {
	filter := ledger.InvoiceFilter{
		CustomerID:      &customerID,
		OutstandingOnly: true,
		OverdueAsOf:     &asOf,
	}
	count, err := repos.InvoiceRepo().Count(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (s *CreditService) publish(aggregate shared.AggregateRoot) {
	events := aggregate.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	s.events.Publish(events...)
	aggregate.ClearDomainEvents()
}
