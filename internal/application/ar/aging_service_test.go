package ar

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arledger/backend/internal/domain/ar"
	"github.com/arledger/backend/internal/domain/ledger"
)

func seedAgingCustomer(t *testing.T, f *testFixture, code string) uuid.UUID {
	t.Helper()
	customer, err := ledger.NewCustomerAccount(code, "Customer "+code, ledger.CustomerTypeRegular)
	require.NoError(t, err)
	require.NoError(t, f.customers.Save(context.Background(), customer))
	return customer.ID
}

func seedAgingInvoice(t *testing.T, f *testFixture, customerID uuid.UUID, amount int64, daysOverdue int) {
	t.Helper()
	due := time.Now().AddDate(0, 0, -daysOverdue)
	invoice, err := ledger.NewInvoice("INV-"+uuid.NewString()[:8], customerID, decimal.NewFromInt(amount), &due)
	require.NoError(t, err)
	require.NoError(t, f.invoices.Save(context.Background(), invoice))
}

// ============================================
// Outstanding and Live Aging Tests
// ============================================

func TestAgingService_GetCustomerOutstanding(t *testing.T) {
	f := newTestFixture()
	service := NewAgingService(f.scope)
	customerID := seedAgingCustomer(t, f, "CUST-001")
	seedAgingInvoice(t, f, customerID, 1000, 10)
	seedAgingInvoice(t, f, customerID, 2000, 45)

	response, err := service.GetCustomerOutstanding(context.Background(), customerID)
	require.NoError(t, err)

	assert.True(t, response.TotalOutstanding.Equal(decimal.NewFromInt(3000)))
	require.Len(t, response.Invoices, 2)

	// Waterfall order puts the more overdue invoice first.
	assert.Equal(t, 45, response.Invoices[0].DaysOverdue)
	assert.Equal(t, ar.BucketDays30, response.Invoices[0].AgingBucket)
	assert.Equal(t, ar.BucketCurrent, response.Invoices[1].AgingBucket)
}

func TestAgingService_GetCustomerOutstandingUnknownCustomer(t *testing.T) {
	f := newTestFixture()
	service := NewAgingService(f.scope)

	_, err := service.GetCustomerOutstanding(context.Background(), uuid.New())
	assert.Error(t, err)
}

func TestAgingService_GetCustomerAging(t *testing.T) {
	f := newTestFixture()
	service := NewAgingService(f.scope)
	customerID := seedAgingCustomer(t, f, "CUST-001")
	seedAgingInvoice(t, f, customerID, 600, 10)
	seedAgingInvoice(t, f, customerID, 400, 130)

	row, err := service.GetCustomerAging(context.Background(), customerID)
	require.NoError(t, err)

	assert.Equal(t, customerID, row.CustomerID)
	assert.Equal(t, "CUST-001", row.CustomerCode)
	assert.True(t, row.CurrentAmount.Equal(decimal.NewFromInt(600)))
	assert.True(t, row.Days120PlusAmount.Equal(decimal.NewFromInt(400)))
	assert.Equal(t, 2, row.InvoiceCount)

	// 0.6*10 + 0.4*100 = 46 lands in the medium band.
	assert.True(t, row.RiskScore.Equal(decimal.NewFromInt(46)))
	assert.Equal(t, ar.RiskBandMedium, row.RiskBand)
}

// ============================================
// Report Tests
// ============================================

func TestAgingService_GenerateAgingReport(t *testing.T) {
	f := newTestFixture()
	service := NewAgingService(f.scope)

	big := seedAgingCustomer(t, f, "CUST-001")
	seedAgingInvoice(t, f, big, 5000, 70)
	small := seedAgingCustomer(t, f, "CUST-002")
	seedAgingInvoice(t, f, small, 1000, 5)

	report, err := service.GenerateAgingReport(context.Background(), AgingReportFilter{})
	require.NoError(t, err)

	require.Len(t, report.Customers, 2)
	// Largest outstanding first.
	assert.Equal(t, big, report.Customers[0].CustomerID)
	assert.Equal(t, small, report.Customers[1].CustomerID)

	assert.True(t, report.Summary.TotalOutstanding.Equal(decimal.NewFromInt(6000)))
	assert.Equal(t, 2, report.Summary.CustomerCount)
	assert.True(t, report.Summary.BucketTotals[ar.BucketDays60.String()].Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, 1, report.Summary.RiskBandCounts[ar.RiskBandLow.String()])
}

func TestAgingService_GenerateAgingReportFilters(t *testing.T) {
	f := newTestFixture()
	service := NewAgingService(f.scope)

	wanted := seedAgingCustomer(t, f, "CUST-001")
	seedAgingInvoice(t, f, wanted, 5000, 70)
	other := seedAgingCustomer(t, f, "CUST-002")
	seedAgingInvoice(t, f, other, 1000, 5)

	report, err := service.GenerateAgingReport(context.Background(), AgingReportFilter{
		CustomerIDs: []uuid.UUID{wanted},
	})
	require.NoError(t, err)
	require.Len(t, report.Customers, 1)
	assert.Equal(t, wanted, report.Customers[0].CustomerID)

	minOutstanding := decimal.NewFromInt(2000)
	report, err = service.GenerateAgingReport(context.Background(), AgingReportFilter{
		MinOutstanding: &minOutstanding,
	})
	require.NoError(t, err)
	require.Len(t, report.Customers, 1)
	assert.Equal(t, wanted, report.Customers[0].CustomerID)
}

func TestAgingService_GetAgingSummary(t *testing.T) {
	f := newTestFixture()
	service := NewAgingService(f.scope)
	customerID := seedAgingCustomer(t, f, "CUST-001")
	seedAgingInvoice(t, f, customerID, 750, 5)
	seedAgingInvoice(t, f, customerID, 250, 50)

	summary, err := service.GetAgingSummary(context.Background())
	require.NoError(t, err)

	assert.True(t, summary.TotalOutstanding.Equal(decimal.NewFromInt(1000)))
	assert.True(t, summary.OverduePercentage.Equal(decimal.NewFromInt(25)))
	assert.True(t, summary.BucketPercentages[ar.BucketCurrent.String()].Equal(decimal.NewFromInt(75)))
}

// ============================================
// Snapshot Tests
// ============================================

func TestAgingService_UpdateCustomerAging(t *testing.T) {
	f := newTestFixture()
	service := NewAgingService(f.scope)
	customerID := seedAgingCustomer(t, f, "CUST-001")
	seedAgingInvoice(t, f, customerID, 1000, 40)

	date := time.Now()
	snapshot, err := service.UpdateCustomerAging(context.Background(), customerID, date)
	require.NoError(t, err)

	assert.True(t, snapshot.Days30Amount.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, ar.TruncateToDay(date), snapshot.SnapshotDate)

	// Re-running the same day replaces the snapshot instead of piling up.
	_, err = service.UpdateCustomerAging(context.Background(), customerID, date)
	require.NoError(t, err)
	assert.Equal(t, 2, f.snapshots.upserts)
	assert.Len(t, f.snapshots.items, 1)
}

func TestAgingService_GenerateDailySnapshots(t *testing.T) {
	f := newTestFixture()
	service := NewAgingService(f.scope)

	first := seedAgingCustomer(t, f, "CUST-001")
	seedAgingInvoice(t, f, first, 1000, 10)
	second := seedAgingCustomer(t, f, "CUST-002")
	seedAgingInvoice(t, f, second, 2000, 70)

	result, err := service.GenerateDailySnapshots(context.Background(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalCustomers)
	assert.Equal(t, 2, result.Successful)
	assert.Equal(t, 0, result.Failed)
	assert.Len(t, f.snapshots.items, 2)
}

func TestAgingService_GenerateDailySnapshotsIsolatesFailures(t *testing.T) {
	f := newTestFixture()
	service := NewAgingService(f.scope)

	healthy := seedAgingCustomer(t, f, "CUST-001")
	seedAgingInvoice(t, f, healthy, 1000, 10)

	// An invoice whose customer is missing from the directory fails its
	// snapshot without aborting the run.
	orphan := uuid.New()
	due := time.Now()
	invoice, err := ledger.NewInvoice("INV-ORPHAN", orphan, decimal.NewFromInt(500), &due)
	require.NoError(t, err)
	require.NoError(t, f.invoices.Save(context.Background(), invoice))

	result, err := service.GenerateDailySnapshots(context.Background(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalCustomers)
	assert.Equal(t, 1, result.Successful)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, orphan, result.Errors[0].CustomerID)
}

func TestAgingService_GetCustomerSnapshots(t *testing.T) {
	f := newTestFixture()
	service := NewAgingService(f.scope)
	customerID := seedAgingCustomer(t, f, "CUST-001")
	seedAgingInvoice(t, f, customerID, 1000, 10)

	_, err := service.UpdateCustomerAging(context.Background(), customerID, time.Now())
	require.NoError(t, err)

	snapshots, err := service.GetCustomerSnapshots(context.Background(), customerID,
		time.Now().AddDate(0, 0, -7), time.Now())
	require.NoError(t, err)
	assert.Len(t, snapshots, 1)
}

// ============================================
// Trend Tests
// ============================================

func TestAgingService_GetAgingTrends(t *testing.T) {
	f := newTestFixture()
	service := NewAgingService(f.scope)
	customerID := seedAgingCustomer(t, f, "CUST-001")
	seedAgingInvoice(t, f, customerID, 1000, 40)

	// Two snapshots in the current month; the later one stands in for
	// the month since no month-end snapshot exists.
	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	_, err := service.UpdateCustomerAging(context.Background(), customerID, monthStart)
	require.NoError(t, err)
	_, err = service.UpdateCustomerAging(context.Background(), customerID, now)
	require.NoError(t, err)

	points, err := service.GetAgingTrends(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, points, 1)
	assert.Equal(t, now.Format("2006-01"), points[0].Month)
	assert.Equal(t, 1, points[0].CustomerCount)
	assert.True(t, points[0].TotalOutstanding.Equal(decimal.NewFromInt(1000)))
	assert.True(t, points[0].OverduePercentage.Equal(decimal.NewFromInt(100)))
}

func TestAgingService_GetAgingTrendsValidation(t *testing.T) {
	f := newTestFixture()
	service := NewAgingService(f.scope)

	_, err := service.GetAgingTrends(context.Background(), 0)
	assert.Error(t, err)
}
