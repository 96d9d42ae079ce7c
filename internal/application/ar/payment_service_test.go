package ar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arledger/backend/internal/domain/ar"
	"github.com/arledger/backend/internal/domain/ledger"
	"github.com/arledger/backend/internal/domain/shared"
)

func seedCustomer(t *testing.T, f *testFixture) uuid.UUID {
	t.Helper()
	customer, err := ledger.NewCustomerAccount("CUST-001", "Acme Trading", ledger.CustomerTypeRegular)
	require.NoError(t, err)
	require.NoError(t, f.customers.Save(context.Background(), customer))
	return customer.ID
}

func createReceiptFor(t *testing.T, f *testFixture, service *PaymentService, customerID uuid.UUID, amount int64) *PaymentReceiptResponse {
	t.Helper()
	receipt, err := service.CreateReceipt(context.Background(), CreateReceiptRequest{
		CustomerID:    customerID,
		PaymentMethod: ar.PaymentMethodBankTransfer,
		TotalAmount:   decimal.NewFromInt(amount),
		PaymentDate:   time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
	}, uuid.New())
	require.NoError(t, err)
	return receipt
}

// ============================================
// Receipt Intake Tests
// ============================================

func TestPaymentService_CreateReceipt(t *testing.T) {
	f := newTestFixture()
	service := NewPaymentService(f.scope)
	customerID := seedCustomer(t, f)

	receipt := createReceiptFor(t, f, service, customerID, 500_000)

	assert.Equal(t, "PR-20240610-00001", receipt.ReceiptNumber)
	assert.Equal(t, ar.ReceiptStatusPending, receipt.Status)
	assert.Equal(t, ar.WorkflowPendingVerification, receipt.WorkflowStatus)
	assert.False(t, receipt.RequiresApproval)
	assert.True(t, receipt.UnallocatedAmount.Equal(receipt.TotalAmount))

	// Receipt numbers are sequential within the day.
	second := createReceiptFor(t, f, service, customerID, 100)
	assert.Equal(t, "PR-20240610-00002", second.ReceiptNumber)
}

func TestPaymentService_CreateReceiptAboveThresholdRequiresApproval(t *testing.T) {
	f := newTestFixture()
	service := NewPaymentService(f.scope, WithApprovalThreshold(decimal.NewFromInt(1_000_000)))
	customerID := seedCustomer(t, f)

	receipt := createReceiptFor(t, f, service, customerID, 1_000_001)
	assert.True(t, receipt.RequiresApproval)

	// At the threshold exactly no approval is needed.
	atThreshold := createReceiptFor(t, f, service, customerID, 1_000_000)
	assert.False(t, atThreshold.RequiresApproval)
}

func TestPaymentService_CreateReceiptUnknownCustomer(t *testing.T) {
	f := newTestFixture()
	service := NewPaymentService(f.scope)

	_, err := service.CreateReceipt(context.Background(), CreateReceiptRequest{
		CustomerID:    uuid.New(),
		PaymentMethod: ar.PaymentMethodCash,
		TotalAmount:   decimal.NewFromInt(100),
		PaymentDate:   time.Now(),
	}, uuid.New())
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestPaymentService_CreateReceiptRequiresActor(t *testing.T) {
	f := newTestFixture()
	service := NewPaymentService(f.scope)

	_, err := service.CreateReceipt(context.Background(), CreateReceiptRequest{}, uuid.Nil)
	assert.Error(t, err)
}

// ============================================
// Workflow Tests
// ============================================

func TestPaymentService_VerifyReceipt(t *testing.T) {
	f := newTestFixture()
	service := NewPaymentService(f.scope)
	customerID := seedCustomer(t, f)
	created := createReceiptFor(t, f, service, customerID, 500_000)

	verified, err := service.VerifyReceipt(context.Background(), created.ID, uuid.New())
	require.NoError(t, err)

	assert.Equal(t, ar.ReceiptStatusVerified, verified.Status)
	assert.Equal(t, ar.WorkflowVerified, verified.WorkflowStatus)
	assert.NotNil(t, verified.VerifiedBy)
	assert.NotNil(t, verified.VerifiedAt)
}

func TestPaymentService_ApprovalFlow(t *testing.T) {
	f := newTestFixture()
	service := NewPaymentService(f.scope, WithApprovalThreshold(decimal.NewFromInt(100)))
	customerID := seedCustomer(t, f)
	created := createReceiptFor(t, f, service, customerID, 500_000)

	verified, err := service.VerifyReceipt(context.Background(), created.ID, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, ar.WorkflowPendingApproval, verified.WorkflowStatus)

	approved, err := service.ApproveReceipt(context.Background(), created.ID, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, ar.WorkflowApproved, approved.WorkflowStatus)
	assert.NotNil(t, approved.ApprovedBy)
}

func TestPaymentService_RejectReceipt(t *testing.T) {
	f := newTestFixture()
	service := NewPaymentService(f.scope)
	customerID := seedCustomer(t, f)
	created := createReceiptFor(t, f, service, customerID, 500_000)

	rejected, err := service.RejectReceipt(context.Background(), created.ID, uuid.New(), "amount does not match bank statement")
	require.NoError(t, err)

	assert.Equal(t, ar.WorkflowRejected, rejected.WorkflowStatus)
	assert.Equal(t, ar.ReceiptStatusCancelled, rejected.Status)
	assert.Equal(t, "amount does not match bank statement", rejected.RejectReason)
}

func TestPaymentService_TransitionOnMissingReceipt(t *testing.T) {
	f := newTestFixture()
	service := NewPaymentService(f.scope)

	_, err := service.VerifyReceipt(context.Background(), uuid.New(), uuid.New())
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

// ============================================
// Deletion Tests
// ============================================

func TestPaymentService_DeleteReceipt(t *testing.T) {
	f := newTestFixture()
	service := NewPaymentService(f.scope)
	customerID := seedCustomer(t, f)
	created := createReceiptFor(t, f, service, customerID, 500_000)

	require.NoError(t, service.DeleteReceipt(context.Background(), created.ID, uuid.New()))

	_, err := service.GetReceipt(context.Background(), created.ID)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestPaymentService_DeleteAllocatedReceiptRefused(t *testing.T) {
	f := newTestFixture()
	service := NewPaymentService(f.scope)
	customerID := seedCustomer(t, f)
	created := createReceiptFor(t, f, service, customerID, 500_000)

	receipt := f.receipts.items[created.ID]
	require.NoError(t, receipt.Verify(uuid.New()))
	require.NoError(t, receipt.ReserveAllocation(decimal.NewFromInt(100)))

	err := service.DeleteReceipt(context.Background(), created.ID, uuid.New())
	assert.Error(t, err)
}

// ============================================
// Conflict Retry Tests
// ============================================

func TestPaymentService_TransitionRetriesOnConflict(t *testing.T) {
	f := newTestFixture()
	service := NewPaymentService(f.scope)
	customerID := seedCustomer(t, f)
	created := createReceiptFor(t, f, service, customerID, 500_000)

	// Two conflicts still succeed within the default retry attempts.
	f.receipts.conflicts = 2
	verified, err := service.VerifyReceipt(context.Background(), created.ID, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, ar.WorkflowVerified, verified.WorkflowStatus)
}

func TestPaymentService_TransitionSurfacesExhaustedConflict(t *testing.T) {
	f := newTestFixture()
	service := NewPaymentService(f.scope, WithPaymentConflictRetries(2))
	customerID := seedCustomer(t, f)
	created := createReceiptFor(t, f, service, customerID, 500_000)

	f.receipts.conflicts = 5
	_, err := service.VerifyReceipt(context.Background(), created.ID, uuid.New())
	assert.True(t, errors.Is(err, shared.ErrConcurrencyConflict))
}

// ============================================
// Lookup Tests
// ============================================

func TestPaymentService_GetReceiptByNumber(t *testing.T) {
	f := newTestFixture()
	service := NewPaymentService(f.scope)
	customerID := seedCustomer(t, f)
	created := createReceiptFor(t, f, service, customerID, 500_000)

	found, err := service.GetReceiptByNumber(context.Background(), created.ReceiptNumber)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = service.GetReceiptByNumber(context.Background(), "PR-19700101-00001")
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestPaymentService_ListReceipts(t *testing.T) {
	f := newTestFixture()
	service := NewPaymentService(f.scope)
	customerID := seedCustomer(t, f)
	createReceiptFor(t, f, service, customerID, 100)
	createReceiptFor(t, f, service, customerID, 200)

	page, err := service.ListReceipts(context.Background(), ar.ReceiptFilter{
		Filter:     shared.Filter{Page: 1, PageSize: 20},
		CustomerID: &customerID,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Len(t, page.Items, 2)
}
