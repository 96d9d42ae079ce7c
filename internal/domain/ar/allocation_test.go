package ar

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestAllocation(t *testing.T) *Allocation {
	allocation, err := NewAllocation(
		uuid.New(), uuid.New(), uuid.New(),
		decimal.NewFromInt(1000),
		AllocationTypeManual,
		"",
		uuid.New(),
	)
	require.NoError(t, err)
	return allocation
}

func createAppliedAllocation(t *testing.T) *Allocation {
	allocation := createTestAllocation(t)
	require.NoError(t, allocation.MarkApplied())
	return allocation
}

// ============================================
// AllocationStatus Tests
// ============================================

func TestAllocationStatus_IsActive(t *testing.T) {
	tests := []struct {
		status   AllocationStatus
		isActive bool
	}{
		{AllocationStatusPending, true},
		{AllocationStatusApplied, true},
		{AllocationStatusReversed, false},
		{AllocationStatusCancelled, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.isActive, tt.status.IsActive())
		})
	}
}

func TestAllocationType_IsValid(t *testing.T) {
	assert.True(t, AllocationTypeManual.IsValid())
	assert.True(t, AllocationTypeAutomatic.IsValid())
	assert.False(t, AllocationType("WATERFALL").IsValid())
}

// ============================================
// Allocation Creation Tests
// ============================================

func TestNewAllocation(t *testing.T) {
	allocation := createTestAllocation(t)

	assert.Equal(t, AllocationStatusPending, allocation.Status)
	assert.Nil(t, allocation.AppliedAt)
	assert.False(t, allocation.AllocationDate.IsZero())
	assert.Len(t, allocation.GetDomainEvents(), 1)
}

func TestNewAllocation_Validation(t *testing.T) {
	receiptID := uuid.New()
	invoiceID := uuid.New()
	customerID := uuid.New()
	amount := decimal.NewFromInt(500)
	createdBy := uuid.New()

	tests := []struct {
		name string
		fn   func() (*Allocation, error)
	}{
		{
			name: "nil receipt",
			fn: func() (*Allocation, error) {
				return NewAllocation(uuid.Nil, invoiceID, customerID, amount, AllocationTypeManual, "", createdBy)
			},
		},
		{
			name: "nil invoice",
			fn: func() (*Allocation, error) {
				return NewAllocation(receiptID, uuid.Nil, customerID, amount, AllocationTypeManual, "", createdBy)
			},
		},
		{
			name: "nil customer",
			fn: func() (*Allocation, error) {
				return NewAllocation(receiptID, invoiceID, uuid.Nil, amount, AllocationTypeManual, "", createdBy)
			},
		},
		{
			name: "zero amount",
			fn: func() (*Allocation, error) {
				return NewAllocation(receiptID, invoiceID, customerID, decimal.Zero, AllocationTypeManual, "", createdBy)
			},
		},
		{
			name: "invalid type",
			fn: func() (*Allocation, error) {
				return NewAllocation(receiptID, invoiceID, customerID, amount, AllocationType("X"), "", createdBy)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.fn()
			assert.Error(t, err)
		})
	}
}

// ============================================
// State Machine Tests
// ============================================

func TestAllocation_MarkApplied(t *testing.T) {
	allocation := createTestAllocation(t)

	require.NoError(t, allocation.MarkApplied())
	assert.Equal(t, AllocationStatusApplied, allocation.Status)
	assert.NotNil(t, allocation.AppliedAt)

	// Applying twice is refused.
	assert.Error(t, allocation.MarkApplied())
}

func TestAllocation_MarkReversed(t *testing.T) {
	allocation := createAppliedAllocation(t)

	require.NoError(t, allocation.MarkReversed("customer dispute"))
	assert.Equal(t, AllocationStatusReversed, allocation.Status)
	assert.NotNil(t, allocation.ReversedAt)
	assert.Equal(t, "customer dispute", allocation.ReversalReason)
}

func TestAllocation_MarkReversedRequiresApplied(t *testing.T) {
	allocation := createTestAllocation(t)
	assert.Error(t, allocation.MarkReversed("not applied yet"))
}

func TestAllocation_MarkReversedRequiresReason(t *testing.T) {
	allocation := createAppliedAllocation(t)
	assert.Error(t, allocation.MarkReversed(""))
}

func TestAllocation_MarkCancelled(t *testing.T) {
	allocation := createTestAllocation(t)

	require.NoError(t, allocation.MarkCancelled())
	assert.Equal(t, AllocationStatusCancelled, allocation.Status)
	assert.NotNil(t, allocation.CancelledAt)

	// Terminal states stay terminal.
	assert.Error(t, allocation.MarkApplied())
	assert.Error(t, allocation.MarkCancelled())
}

func TestAllocation_MarkCancelledAfterApplyFails(t *testing.T) {
	allocation := createAppliedAllocation(t)
	assert.Error(t, allocation.MarkCancelled())
}

// ============================================
// Reduce Tests
// ============================================

func TestAllocation_Reduce(t *testing.T) {
	allocation := createTestAllocation(t)

	require.NoError(t, allocation.Reduce(decimal.NewFromInt(400)))
	assert.True(t, allocation.Amount.Equal(decimal.NewFromInt(600)))
}

func TestAllocation_ReduceValidation(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) *Allocation
		by    decimal.Decimal
	}{
		{
			name:  "zero reduction",
			setup: createTestAllocation,
			by:    decimal.Zero,
		},
		{
			name:  "reduction to zero",
			setup: createTestAllocation,
			by:    decimal.NewFromInt(1000),
		},
		{
			name:  "reduction past zero",
			setup: createTestAllocation,
			by:    decimal.NewFromInt(1500),
		},
		{
			name:  "applied allocation",
			setup: createAppliedAllocation,
			by:    decimal.NewFromInt(100),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allocation := tt.setup(t)
			assert.Error(t, allocation.Reduce(tt.by))
		})
	}
}
