package ar

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arledger/backend/internal/domain/ledger"
	"github.com/arledger/backend/internal/domain/shared"
)

// PlannedAllocation is one step of a waterfall plan
type PlannedAllocation struct {
	InvoiceID     uuid.UUID
	InvoiceNumber string
	Amount        decimal.Decimal
}

// AllocationPlan is the outcome of running the waterfall over a set of
// outstanding invoices. Nothing is committed; the allocation engine
// turns the plan into allocations.
type AllocationPlan struct {
	Allocations        []PlannedAllocation
	TotalPlanned       decimal.Decimal
	RemainingAmount    decimal.Decimal
	FullyAllocated     bool
	InvoicesFullyPaid  []uuid.UUID
	InvoicesPartlyPaid []uuid.UUID
}

// SortInvoicesForWaterfall orders invoices oldest obligation first: due
// date ascending with missing due dates last, creation date as the
// tie-break. The input slice is not modified.
func SortInvoicesForWaterfall(invoices []*ledger.Invoice) []*ledger.Invoice {
	sorted := make([]*ledger.Invoice, len(invoices))
	copy(sorted, invoices)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].DueDate != nil && sorted[j].DueDate != nil {
			if !sorted[i].DueDate.Equal(*sorted[j].DueDate) {
				return sorted[i].DueDate.Before(*sorted[j].DueDate)
			}
		} else if sorted[i].DueDate != nil {
			return true
		} else if sorted[j].DueDate != nil {
			return false
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	return sorted
}

// PlanWaterfall distributes an amount across outstanding invoices,
// oldest due date first, allocating min(remaining, outstanding) at each
// step until the amount or the invoices run out.
func PlanWaterfall(amount decimal.Decimal, invoices []*ledger.Invoice) (*AllocationPlan, error) {
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("INVALID_AMOUNT", "Allocation amount must be positive")
	}

	plan := &AllocationPlan{
		Allocations:        make([]PlannedAllocation, 0),
		TotalPlanned:       decimal.Zero,
		RemainingAmount:    amount,
		InvoicesFullyPaid:  make([]uuid.UUID, 0),
		InvoicesPartlyPaid: make([]uuid.UUID, 0),
	}

	for _, invoice := range SortInvoicesForWaterfall(invoices) {
		if plan.RemainingAmount.IsZero() {
			break
		}
		if !invoice.OutstandingAmount.IsPositive() {
			continue
		}

		step := decimal.Min(plan.RemainingAmount, invoice.OutstandingAmount)
		plan.Allocations = append(plan.Allocations, PlannedAllocation{
			InvoiceID:     invoice.ID,
			InvoiceNumber: invoice.InvoiceNumber,
			Amount:        step,
		})
		plan.TotalPlanned = plan.TotalPlanned.Add(step)
		plan.RemainingAmount = plan.RemainingAmount.Sub(step)

		if step.GreaterThanOrEqual(invoice.OutstandingAmount) {
			plan.InvoicesFullyPaid = append(plan.InvoicesFullyPaid, invoice.ID)
		} else {
			plan.InvoicesPartlyPaid = append(plan.InvoicesPartlyPaid, invoice.ID)
		}
	}

	plan.FullyAllocated = plan.RemainingAmount.IsZero()
	return plan, nil
}

// AllocationSuggestion ranks one outstanding invoice for manual
// allocation
type AllocationSuggestion struct {
	InvoiceID         uuid.UUID
	InvoiceNumber     string
	OutstandingAmount decimal.Decimal
	DueDate           *time.Time
	DaysOverdue       int
	PriorityScore     decimal.Decimal
	SuggestedAmount   decimal.Decimal
}

// Priority score caps per component
var (
	maxOverdueScore    = decimal.NewFromInt(100)
	maxAgeScore        = decimal.NewFromInt(50)
	maxAmountScore     = decimal.NewFromInt(25)
	amountScoreDivisor = decimal.NewFromInt(1_000_000)
)

// PriorityScore ranks an invoice for allocation: heavily overdue, old,
// and large invoices first. Each component is capped so no single one
// dominates unboundedly.
func PriorityScore(invoice *ledger.Invoice, asOf time.Time) decimal.Decimal {
	overdue := decimal.NewFromInt(int64(invoice.DaysOverdue(asOf))).Mul(decimal.NewFromInt(2))
	if overdue.GreaterThan(maxOverdueScore) {
		overdue = maxOverdueScore
	}

	age := decimal.NewFromInt(int64(invoice.AgeDays(asOf))).Mul(decimal.NewFromFloat(0.5))
	if age.GreaterThan(maxAgeScore) {
		age = maxAgeScore
	}

	size := invoice.OutstandingAmount.Div(amountScoreDivisor)
	if size.GreaterThan(maxAmountScore) {
		size = maxAmountScore
	}

	return overdue.Add(age).Add(size)
}

// SuggestAllocations ranks outstanding invoices by priority score
// descending and distributes the unallocated amount greedily along the
// ranking. Pure computation, no side effects.
func SuggestAllocations(unallocated decimal.Decimal, invoices []*ledger.Invoice, asOf time.Time) ([]AllocationSuggestion, error) {
	if unallocated.IsNegative() {
		return nil, shared.NewValidationError("INVALID_AMOUNT", "Unallocated amount cannot be negative")
	}

	suggestions := make([]AllocationSuggestion, 0, len(invoices))
	for _, invoice := range invoices {
		if !invoice.OutstandingAmount.IsPositive() {
			continue
		}
		suggestions = append(suggestions, AllocationSuggestion{
			InvoiceID:         invoice.ID,
			InvoiceNumber:     invoice.InvoiceNumber,
			OutstandingAmount: invoice.OutstandingAmount,
			DueDate:           invoice.DueDate,
			DaysOverdue:       invoice.DaysOverdue(asOf),
			PriorityScore:     PriorityScore(invoice, asOf),
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].PriorityScore.GreaterThan(suggestions[j].PriorityScore)
	})

	remaining := unallocated
	for i := range suggestions {
		if remaining.IsZero() {
			break
		}
		step := decimal.Min(remaining, suggestions[i].OutstandingAmount)
		suggestions[i].SuggestedAmount = step
		remaining = remaining.Sub(step)
	}

	return suggestions, nil
}
