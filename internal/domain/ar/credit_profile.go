package ar

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arledger/backend/internal/domain/ledger"
	"github.com/arledger/backend/internal/domain/shared"
)

// CreditStatus is the categorical risk gate for new credit sales
type CreditStatus string

const (
	CreditStatusGood      CreditStatus = "GOOD"
	CreditStatusWarning   CreditStatus = "WARNING"
	CreditStatusBlocked   CreditStatus = "BLOCKED"
	CreditStatusSuspended CreditStatus = "SUSPENDED"
	CreditStatusDefaulted CreditStatus = "DEFAULTED"
)

// IsValid checks if the credit status is valid
func (s CreditStatus) IsValid() bool {
	switch s {
	case CreditStatusGood, CreditStatusWarning, CreditStatusBlocked,
		CreditStatusSuspended, CreditStatusDefaulted:
		return true
	}
	return false
}

// String returns the string representation
func (s CreditStatus) String() string {
	return string(s)
}

// BlocksCreditSale returns true when the status refuses new credit sales
func (s CreditStatus) BlocksCreditSale() bool {
	switch s {
	case CreditStatusBlocked, CreditStatusSuspended, CreditStatusDefaulted:
		return true
	}
	return false
}

// BaseCreditLimit is the starting credit limit for a regular customer
var BaseCreditLimit = decimal.NewFromInt(5_000_000)

var customerTypeMultipliers = map[ledger.CustomerType]decimal.Decimal{
	ledger.CustomerTypeRegular:   decimal.NewFromInt(1),
	ledger.CustomerTypeMember:    decimal.NewFromFloat(1.5),
	ledger.CustomerTypeWholesale: decimal.NewFromInt(2),
	ledger.CustomerTypeVIP:       decimal.NewFromInt(3),
}

// InitialCreditLimit derives the starting limit from the customer type
func InitialCreditLimit(customerType ledger.CustomerType) decimal.Decimal {
	multiplier, ok := customerTypeMultipliers[customerType]
	if !ok {
		multiplier = decimal.NewFromInt(1)
	}
	return BaseCreditLimit.Mul(multiplier)
}

// Auto-approval covers small credit sales without a manual check
var autoApprovalShare = decimal.NewFromFloat(0.1)

// CreditProfile tracks the credit standing of one customer. One profile
// exists per customer, created lazily on first access.
type CreditProfile struct {
	shared.BaseAggregateRoot
	CustomerID        uuid.UUID
	CreditLimit       decimal.Decimal
	CurrentBalance    decimal.Decimal
	AvailableCredit   decimal.Decimal
	OverdueAmount     decimal.Decimal
	DaysPastDue       int
	PaymentTermsDays  int
	CreditStatus      CreditStatus
	CreditScore       decimal.Decimal
	ReliabilityScore  decimal.Decimal
	PaymentDelayCount int
	LatePaymentCount  int
	AutoApprovalLimit decimal.Decimal
	LastReviewDate    *time.Time
	NextReviewDate    *time.Time
}

// NewCreditProfile lazily initializes a profile with a limit derived
// from the customer type. A new customer starts with a clean score.
func NewCreditProfile(customerID uuid.UUID, customerType ledger.CustomerType) (*CreditProfile, error) {
	if customerID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_CUSTOMER", "Customer ID is required")
	}

	limit := InitialCreditLimit(customerType)
	profile := &CreditProfile{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CustomerID:        customerID,
		CreditLimit:       limit,
		CurrentBalance:    decimal.Zero,
		AvailableCredit:   limit,
		OverdueAmount:     decimal.Zero,
		PaymentTermsDays:  30,
		CreditStatus:      CreditStatusGood,
		CreditScore:       decimal.NewFromInt(100),
		ReliabilityScore:  decimal.NewFromInt(100),
		AutoApprovalLimit: limit.Mul(autoApprovalShare),
	}

	profile.AddDomainEvent(NewCreditProfileCreatedEvent(profile))
	return profile, nil
}

// RefreshBalances replaces the ledger-derived figures. AvailableCredit
// never goes negative even when the balance exceeds the limit.
func (c *CreditProfile) RefreshBalances(currentBalance, overdueAmount decimal.Decimal, daysPastDue int) error {
	if currentBalance.IsNegative() || overdueAmount.IsNegative() {
		return shared.NewConsistencyViolation("NEGATIVE_BALANCE",
			"Ledger balances for a credit profile cannot be negative")
	}
	if daysPastDue < 0 {
		daysPastDue = 0
	}

	c.CurrentBalance = currentBalance
	c.OverdueAmount = overdueAmount
	c.DaysPastDue = daysPastDue

	c.AvailableCredit = c.CreditLimit.Sub(currentBalance)
	if c.AvailableCredit.IsNegative() {
		c.AvailableCredit = decimal.Zero
	}

	c.IncrementVersion()
	return nil
}

// UtilizationRatio returns current balance over credit limit as a
// percentage, zero when no limit is set
func (c *CreditProfile) UtilizationRatio() decimal.Decimal {
	if !c.CreditLimit.IsPositive() {
		return decimal.Zero
	}
	return c.CurrentBalance.Div(c.CreditLimit).Mul(decimal.NewFromInt(100))
}

// EvaluateStatus re-derives the credit status from days past due,
// utilization and reliability. Rules are checked from most to least
// severe; the first match wins.
func (c *CreditProfile) EvaluateStatus() bool {
	utilization := c.UtilizationRatio()
	reliability := c.ReliabilityScore

	var status CreditStatus
	switch {
	case c.DaysPastDue > 120 || reliability.LessThan(decimal.NewFromInt(30)):
		status = CreditStatusDefaulted
	case c.DaysPastDue > 90 || reliability.LessThan(decimal.NewFromInt(50)):
		status = CreditStatusSuspended
	case c.DaysPastDue > 60 || utilization.GreaterThan(decimal.NewFromInt(95)) || reliability.LessThan(decimal.NewFromInt(70)):
		status = CreditStatusBlocked
	case c.DaysPastDue > 30 || utilization.GreaterThan(decimal.NewFromInt(80)) || reliability.LessThan(decimal.NewFromInt(85)):
		status = CreditStatusWarning
	default:
		status = CreditStatusGood
	}

	if status == c.CreditStatus {
		return false
	}

	previous := c.CreditStatus
	c.CreditStatus = status
	c.AddDomainEvent(NewCreditStatusChangedEvent(c, previous))
	c.IncrementVersion()
	return true
}

// OverdueSeverityScore maps current days past due to a step score used
// in the reliability blend
func OverdueSeverityScore(daysPastDue int) decimal.Decimal {
	switch {
	case daysPastDue <= 0:
		return decimal.NewFromInt(100)
	case daysPastDue <= 30:
		return decimal.NewFromInt(80)
	case daysPastDue <= 60:
		return decimal.NewFromInt(60)
	case daysPastDue <= 90:
		return decimal.NewFromInt(40)
	case daysPastDue <= 120:
		return decimal.NewFromInt(20)
	default:
		return decimal.Zero
	}
}

// BlendReliabilityScore folds the sub-scores into a bounded composite.
// The blend is sequential, not a flat weighted sum: each step pulls the
// running score toward the next sub-score.
func BlendReliabilityScore(timeliness, consistency, overdueSeverity decimal.Decimal) decimal.Decimal {
	score := decimal.NewFromInt(100)
	score = score.Mul(decimal.NewFromFloat(0.6)).Add(timeliness.Mul(decimal.NewFromFloat(0.4)))
	score = score.Mul(decimal.NewFromFloat(0.7)).Add(consistency.Mul(decimal.NewFromFloat(0.3)))
	score = score.Mul(decimal.NewFromFloat(0.7)).Add(overdueSeverity.Mul(decimal.NewFromFloat(0.3)))
	return clampScore(score)
}

// UpdateReliability recomputes the reliability score from the payment
// history sub-scores and re-derives the credit score from it.
func (c *CreditProfile) UpdateReliability(timeliness, consistency decimal.Decimal) {
	overdue := OverdueSeverityScore(c.DaysPastDue)
	c.ReliabilityScore = BlendReliabilityScore(timeliness, consistency, overdue)
	c.CreditScore = c.deriveCreditScore()
	c.IncrementVersion()
}

// deriveCreditScore penalizes the reliability score for high utilization
// and for the overdue share of the balance
func (c *CreditProfile) deriveCreditScore() decimal.Decimal {
	score := c.ReliabilityScore
	utilization := c.UtilizationRatio()

	switch {
	case utilization.GreaterThan(decimal.NewFromInt(90)):
		score = score.Sub(decimal.NewFromInt(20))
	case utilization.GreaterThan(decimal.NewFromInt(75)):
		score = score.Sub(decimal.NewFromInt(10))
	case utilization.GreaterThan(decimal.NewFromInt(50)):
		score = score.Sub(decimal.NewFromInt(5))
	}

	if c.CurrentBalance.IsPositive() && c.OverdueAmount.IsPositive() {
		overdueRatioPct := c.OverdueAmount.Div(c.CurrentBalance).Mul(decimal.NewFromInt(100))
		score = score.Sub(overdueRatioPct.Mul(decimal.NewFromFloat(0.5)))
	}

	return clampScore(score)
}

// SetPaymentCounters records the observed delay and late payment counts
func (c *CreditProfile) SetPaymentCounters(delayCount, lateCount int) {
	if delayCount < 0 {
		delayCount = 0
	}
	if lateCount < 0 {
		lateCount = 0
	}
	c.PaymentDelayCount = delayCount
	c.LatePaymentCount = lateCount
}

// CreditSaleDecision is the outcome of a credit gate check
type CreditSaleDecision struct {
	CanProceed       bool
	Reason           string
	RequiresApproval bool
	AvailableCredit  decimal.Decimal
	CreditStatus     CreditStatus
}

// EvaluateCreditSale decides whether a credit sale of the given amount
// may proceed and whether it needs a manual approval.
func (c *CreditProfile) EvaluateCreditSale(amount decimal.Decimal) (CreditSaleDecision, error) {
	if !amount.IsPositive() {
		return CreditSaleDecision{}, shared.NewValidationError("INVALID_AMOUNT", "Sale amount must be positive")
	}

	decision := CreditSaleDecision{
		AvailableCredit: c.AvailableCredit,
		CreditStatus:    c.CreditStatus,
	}

	if c.CreditStatus.BlocksCreditSale() {
		decision.Reason = "Credit status " + c.CreditStatus.String() + " does not permit credit sales"
		return decision, nil
	}
	if amount.GreaterThan(c.AvailableCredit) {
		decision.Reason = "Requested amount exceeds available credit"
		return decision, nil
	}

	decision.CanProceed = true
	if amount.GreaterThan(c.AutoApprovalLimit) || c.ReliabilityScore.LessThan(decimal.NewFromInt(70)) {
		decision.RequiresApproval = true
	}
	return decision, nil
}

// AdjustLimit changes the credit limit manually. The acting user and a
// reason are always recorded.
func (c *CreditProfile) AdjustLimit(newLimit decimal.Decimal, adjustedBy uuid.UUID, reason string) error {
	if newLimit.IsNegative() {
		return shared.NewValidationError("INVALID_LIMIT", "Credit limit cannot be negative")
	}
	if adjustedBy == uuid.Nil {
		return shared.NewValidationError("INVALID_ACTOR", "Adjusting user is required")
	}
	if reason == "" {
		return shared.NewValidationError("INVALID_REASON", "Adjustment reason is required")
	}

	previous := c.CreditLimit
	c.CreditLimit = newLimit
	c.AutoApprovalLimit = newLimit.Mul(autoApprovalShare)
	c.AvailableCredit = newLimit.Sub(c.CurrentBalance)
	if c.AvailableCredit.IsNegative() {
		c.AvailableCredit = decimal.Zero
	}

	c.AddDomainEvent(NewCreditLimitAdjustedEvent(c, previous, adjustedBy, reason))
	c.IncrementVersion()
	return nil
}

// ReviewRecommendation is the outcome of an automated review
type ReviewRecommendation string

const (
	ReviewRecommendIncrease ReviewRecommendation = "increase_limit"
	ReviewRecommendDecrease ReviewRecommendation = "decrease_limit"
	ReviewRecommendMaintain ReviewRecommendation = "maintain"
)

// String returns the string representation
func (r ReviewRecommendation) String() string {
	return string(r)
}

// RecommendReview derives the limit recommendation from the current
// scores. The recommendation is advisory; applying it is a separate
// manual adjustment.
func (c *CreditProfile) RecommendReview() (ReviewRecommendation, decimal.Decimal) {
	switch {
	case c.ReliabilityScore.GreaterThanOrEqual(decimal.NewFromInt(90)) && c.DaysPastDue == 0:
		return ReviewRecommendIncrease, c.CreditLimit.Mul(decimal.NewFromFloat(1.2))
	case c.ReliabilityScore.LessThan(decimal.NewFromInt(70)) || c.DaysPastDue > 60:
		return ReviewRecommendDecrease, c.CreditLimit.Mul(decimal.NewFromFloat(0.7))
	default:
		return ReviewRecommendMaintain, c.CreditLimit
	}
}

// AdvanceReview moves the review window forward by six months
func (c *CreditProfile) AdvanceReview(now time.Time) {
	next := now.AddDate(0, 6, 0)
	c.LastReviewDate = &now
	c.NextReviewDate = &next
	c.IncrementVersion()
}

func clampScore(score decimal.Decimal) decimal.Decimal {
	if score.IsNegative() {
		return decimal.Zero
	}
	if score.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.NewFromInt(100)
	}
	return score
}
