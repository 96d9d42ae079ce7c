package ar

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arledger/backend/internal/domain/ledger"
)

func createPlanInvoice(t *testing.T, number string, outstanding int64, dueDate *time.Time, createdAt time.Time) *ledger.Invoice {
	invoice, err := ledger.NewInvoice(number, uuid.New(), decimal.NewFromInt(outstanding), dueDate)
	require.NoError(t, err)
	invoice.CreatedAt = createdAt
	return invoice
}

func datePtr(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}

// ============================================
// Waterfall Ordering Tests
// ============================================

func TestSortInvoicesForWaterfall(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := createPlanInvoice(t, "INV-003", 100, datePtr(2024, 3, 1), base)
	older := createPlanInvoice(t, "INV-001", 100, datePtr(2024, 1, 15), base)
	noDue := createPlanInvoice(t, "INV-004", 100, nil, base)
	tieBreak := createPlanInvoice(t, "INV-002", 100, datePtr(2024, 1, 15), base.Add(-48*time.Hour))

	input := []*ledger.Invoice{newer, older, noDue, tieBreak}
	sorted := SortInvoicesForWaterfall(input)

	// Same due date sorts by creation date; no due date sorts last.
	assert.Equal(t, "INV-002", sorted[0].InvoiceNumber)
	assert.Equal(t, "INV-001", sorted[1].InvoiceNumber)
	assert.Equal(t, "INV-003", sorted[2].InvoiceNumber)
	assert.Equal(t, "INV-004", sorted[3].InvoiceNumber)

	// The input slice keeps its original order.
	assert.Equal(t, "INV-003", input[0].InvoiceNumber)
	assert.Equal(t, "INV-004", input[2].InvoiceNumber)
}

// ============================================
// Waterfall Planning Tests
// ============================================

func TestPlanWaterfall(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	first := createPlanInvoice(t, "INV-001", 400, datePtr(2024, 1, 10), base)
	second := createPlanInvoice(t, "INV-002", 300, datePtr(2024, 2, 10), base)
	third := createPlanInvoice(t, "INV-003", 500, datePtr(2024, 3, 10), base)

	plan, err := PlanWaterfall(decimal.NewFromInt(900), []*ledger.Invoice{third, first, second})
	require.NoError(t, err)

	require.Len(t, plan.Allocations, 3)
	assert.Equal(t, "INV-001", plan.Allocations[0].InvoiceNumber)
	assert.True(t, plan.Allocations[0].Amount.Equal(decimal.NewFromInt(400)))
	assert.Equal(t, "INV-002", plan.Allocations[1].InvoiceNumber)
	assert.True(t, plan.Allocations[1].Amount.Equal(decimal.NewFromInt(300)))
	assert.Equal(t, "INV-003", plan.Allocations[2].InvoiceNumber)
	assert.True(t, plan.Allocations[2].Amount.Equal(decimal.NewFromInt(200)))

	assert.True(t, plan.TotalPlanned.Equal(decimal.NewFromInt(900)))
	assert.True(t, plan.RemainingAmount.IsZero())
	assert.True(t, plan.FullyAllocated)
	assert.Equal(t, []uuid.UUID{first.ID, second.ID}, plan.InvoicesFullyPaid)
	assert.Equal(t, []uuid.UUID{third.ID}, plan.InvoicesPartlyPaid)
}

func TestPlanWaterfall_AmountExceedsOutstanding(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	only := createPlanInvoice(t, "INV-001", 250, datePtr(2024, 1, 10), base)

	plan, err := PlanWaterfall(decimal.NewFromInt(1000), []*ledger.Invoice{only})
	require.NoError(t, err)

	assert.True(t, plan.TotalPlanned.Equal(decimal.NewFromInt(250)))
	assert.True(t, plan.RemainingAmount.Equal(decimal.NewFromInt(750)))
	assert.False(t, plan.FullyAllocated)
	assert.Equal(t, []uuid.UUID{only.ID}, plan.InvoicesFullyPaid)
	assert.Empty(t, plan.InvoicesPartlyPaid)
}

func TestPlanWaterfall_SkipsSettledInvoices(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	settled := createPlanInvoice(t, "INV-001", 300, datePtr(2024, 1, 10), base)
	require.NoError(t, settled.ApplyPayment(decimal.NewFromInt(300)))
	open := createPlanInvoice(t, "INV-002", 300, datePtr(2024, 2, 10), base)

	plan, err := PlanWaterfall(decimal.NewFromInt(100), []*ledger.Invoice{settled, open})
	require.NoError(t, err)

	require.Len(t, plan.Allocations, 1)
	assert.Equal(t, open.ID, plan.Allocations[0].InvoiceID)
}

func TestPlanWaterfall_InvalidAmount(t *testing.T) {
	_, err := PlanWaterfall(decimal.Zero, nil)
	assert.Error(t, err)

	_, err = PlanWaterfall(decimal.NewFromInt(-10), nil)
	assert.Error(t, err)
}

// ============================================
// Priority Score Tests
// ============================================

func TestPriorityScore(t *testing.T) {
	asOf := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	// 10 days overdue, 20 days old, 500k outstanding:
	// 10*2 + 20*0.5 + 500000/1000000 = 20 + 10 + 0.5 = 30.5
	invoice := createPlanInvoice(t, "INV-001", 500_000, datePtr(2024, 5, 22), asOf.AddDate(0, 0, -20))
	assert.True(t, PriorityScore(invoice, asOf).Equal(decimal.NewFromFloat(30.5)))
}

func TestPriorityScore_ComponentsAreCapped(t *testing.T) {
	asOf := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	// 200 days overdue, 300 days old, 100M outstanding: every component
	// hits its cap, 100 + 50 + 25.
	invoice := createPlanInvoice(t, "INV-001", 100_000_000, datePtr(2023, 11, 14), asOf.AddDate(0, 0, -300))
	assert.True(t, PriorityScore(invoice, asOf).Equal(decimal.NewFromInt(175)))
}

func TestPriorityScore_NoDueDate(t *testing.T) {
	asOf := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	// Only the age and size components contribute: 10*0.5 + 1 = 6.
	invoice := createPlanInvoice(t, "INV-001", 1_000_000, nil, asOf.AddDate(0, 0, -10))
	assert.True(t, PriorityScore(invoice, asOf).Equal(decimal.NewFromInt(6)))
}

// ============================================
// Suggestion Tests
// ============================================

func TestSuggestAllocations(t *testing.T) {
	asOf := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	base := asOf.AddDate(0, 0, -30)

	urgent := createPlanInvoice(t, "INV-001", 400, datePtr(2024, 4, 1), base)
	mild := createPlanInvoice(t, "INV-002", 300, datePtr(2024, 5, 28), base)
	settled := createPlanInvoice(t, "INV-003", 200, datePtr(2024, 4, 1), base)
	require.NoError(t, settled.ApplyPayment(decimal.NewFromInt(200)))

	suggestions, err := SuggestAllocations(decimal.NewFromInt(500), []*ledger.Invoice{mild, settled, urgent}, asOf)
	require.NoError(t, err)

	// Settled invoices are dropped and the most overdue invoice ranks
	// first; the amount is distributed greedily along the ranking.
	require.Len(t, suggestions, 2)
	assert.Equal(t, "INV-001", suggestions[0].InvoiceNumber)
	assert.True(t, suggestions[0].PriorityScore.GreaterThan(suggestions[1].PriorityScore))
	assert.True(t, suggestions[0].SuggestedAmount.Equal(decimal.NewFromInt(400)))
	assert.Equal(t, "INV-002", suggestions[1].InvoiceNumber)
	assert.True(t, suggestions[1].SuggestedAmount.Equal(decimal.NewFromInt(100)))
}

func TestSuggestAllocations_ZeroUnallocated(t *testing.T) {
	asOf := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	invoice := createPlanInvoice(t, "INV-001", 400, datePtr(2024, 4, 1), asOf.AddDate(0, 0, -30))

	suggestions, err := SuggestAllocations(decimal.Zero, []*ledger.Invoice{invoice}, asOf)
	require.NoError(t, err)

	// Ranking still comes back, nothing is distributed.
	require.Len(t, suggestions, 1)
	assert.True(t, suggestions[0].SuggestedAmount.IsZero())
}

func TestSuggestAllocations_NegativeUnallocated(t *testing.T) {
	_, err := SuggestAllocations(decimal.NewFromInt(-1), nil, time.Now())
	assert.Error(t, err)
}
