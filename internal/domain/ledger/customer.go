package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arledger/backend/internal/domain/shared"
)

// CustomerType classifies a customer for pricing and credit purposes
type CustomerType string

const (
	CustomerTypeRegular   CustomerType = "REGULAR"
	CustomerTypeMember    CustomerType = "MEMBER"
	CustomerTypeWholesale CustomerType = "WHOLESALE"
	CustomerTypeVIP       CustomerType = "VIP"
)

// IsValid checks if the customer type is valid
func (t CustomerType) IsValid() bool {
	switch t {
	case CustomerTypeRegular, CustomerTypeMember, CustomerTypeWholesale, CustomerTypeVIP:
		return true
	}
	return false
}

// String returns the string representation
func (t CustomerType) String() string {
	return string(t)
}

// CustomerAccount is the settlement engine's view of a customer in the
// directory. ARBalance mirrors the sum of the customer's outstanding
// invoices and is maintained by the allocation engine.
type CustomerAccount struct {
	shared.BaseAggregateRoot
	Code            string
	Name            string
	CustomerType    CustomerType
	ARBalance       decimal.Decimal
	LastPaymentDate *time.Time
}

// NewCustomerAccount creates a customer account with a zero AR balance
func NewCustomerAccount(code, name string, customerType CustomerType) (*CustomerAccount, error) {
	if code == "" {
		return nil, shared.NewValidationError("INVALID_CUSTOMER_CODE", "Customer code is required")
	}
	if name == "" {
		return nil, shared.NewValidationError("INVALID_CUSTOMER_NAME", "Customer name is required")
	}
	if !customerType.IsValid() {
		return nil, shared.NewValidationError("INVALID_CUSTOMER_TYPE", "Invalid customer type: "+customerType.String())
	}

	return &CustomerAccount{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              code,
		Name:              name,
		CustomerType:      customerType,
		ARBalance:         decimal.Zero,
	}, nil
}

// RecordSettlement reduces the AR balance after a payment is applied and
// remembers the payment date for reliability scoring.
func (c *CustomerAccount) RecordSettlement(amount decimal.Decimal, paymentDate time.Time) error {
	if !amount.IsPositive() {
		return shared.NewValidationError("INVALID_AMOUNT", "Settlement amount must be positive")
	}
	if amount.GreaterThan(c.ARBalance) {
		return shared.NewConsistencyViolation("AR_BALANCE_UNDERFLOW",
			"Settlement exceeds AR balance of customer "+c.Code)
	}

	c.ARBalance = c.ARBalance.Sub(amount)
	if c.LastPaymentDate == nil || paymentDate.After(*c.LastPaymentDate) {
		d := paymentDate
		c.LastPaymentDate = &d
	}
	c.IncrementVersion()
	return nil
}

// RevertSettlement restores the AR balance after a payment reversal
func (c *CustomerAccount) RevertSettlement(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.NewValidationError("INVALID_AMOUNT", "Revert amount must be positive")
	}

	c.ARBalance = c.ARBalance.Add(amount)
	c.IncrementVersion()
	return nil
}

// CustomerRef is a lightweight projection used by reports
type CustomerRef struct {
	ID   uuid.UUID
	Code string
	Name string
}
