package ar

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/arledger/backend/internal/domain/ar"
	"github.com/arledger/backend/internal/domain/ledger"
	"github.com/arledger/backend/internal/domain/shared"
)

// AgingService produces aging reports, per-customer daily snapshots and
// monthly trend series. Reads dominate; only the snapshot job writes.
type AgingService struct {
	txScope TransactionScope
	logger  *zap.Logger
}

// AgingServiceOption configures an AgingService
type AgingServiceOption func(*AgingService)

// WithAgingLogger sets the logger
func WithAgingLogger(logger *zap.Logger) AgingServiceOption {
	return func(s *AgingService) {
		s.logger = logger
	}
}

// NewAgingService creates a new aging service
func NewAgingService(txScope TransactionScope, opts ...AgingServiceOption) *AgingService {
	service := &AgingService{
		txScope: txScope,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// AgingReportFilter narrows the aging report
type AgingReportFilter struct {
	CustomerIDs    []uuid.UUID
	RiskBand       *ar.RiskBand
	MinOutstanding *decimal.Decimal
}

// GetCustomerOutstanding lists a customer's open invoices in waterfall
// order with their aging buckets.
func (s *AgingService) GetCustomerOutstanding(ctx context.Context, customerID uuid.UUID) (*CustomerOutstandingResponse, error) {
	var invoices []*ledger.Invoice
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.CustomerRepo().FindByID(ctx, customerID); err != nil {
			return err
		}
		var err error
		invoices, err = repos.InvoiceRepo().FindOutstandingByCustomer(ctx, customerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	response := &CustomerOutstandingResponse{
		CustomerID:       customerID,
		TotalOutstanding: decimal.Zero,
		Invoices:         make([]OutstandingInvoice, 0, len(invoices)),
	}
	for _, invoice := range invoices {
		daysOverdue := invoice.DaysOverdue(now)
		response.Invoices = append(response.Invoices, OutstandingInvoice{
			InvoiceID:         invoice.ID,
			InvoiceNumber:     invoice.InvoiceNumber,
			TotalAmount:       invoice.TotalAmount,
			OutstandingAmount: invoice.OutstandingAmount,
			DueDate:           invoice.DueDate,
			DaysOverdue:       daysOverdue,
			AgingBucket:       ar.BucketForDaysOverdue(daysOverdue),
		})
		response.TotalOutstanding = response.TotalOutstanding.Add(invoice.OutstandingAmount)
	}
	return response, nil
}

// GetCustomerAging returns one customer's live aging position
func (s *AgingService) GetCustomerAging(ctx context.Context, customerID uuid.UUID) (*CustomerAgingResponse, error) {
	var (
		invoices []*ledger.Invoice
		customer *ledger.CustomerAccount
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		customer, err = repos.CustomerRepo().FindByID(ctx, customerID)
		if err != nil {
			return err
		}
		invoices, err = repos.InvoiceRepo().FindOutstandingByCustomer(ctx, customerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	row := buildCustomerAging(customer, invoices, time.Now())
	return &row, nil
}

// GenerateAgingReport groups all outstanding invoices by customer and
// bucket. Customers are sorted by total outstanding, largest first.
func (s *AgingService) GenerateAgingReport(ctx context.Context, filter AgingReportFilter) (*AgingReportResponse, error) {
	var invoices []*ledger.Invoice
	accounts := make(map[uuid.UUID]*ledger.CustomerAccount)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		invoices, err = repos.InvoiceRepo().FindOutstanding(ctx)
		if err != nil {
			return err
		}
		for _, invoice := range invoices {
			if _, ok := accounts[invoice.CustomerID]; ok {
				continue
			}
			customer, err := repos.CustomerRepo().FindByID(ctx, invoice.CustomerID)
			if err != nil {
				return err
			}
			accounts[invoice.CustomerID] = customer
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	byCustomer := make(map[uuid.UUID][]*ledger.Invoice)
	for _, invoice := range invoices {
		byCustomer[invoice.CustomerID] = append(byCustomer[invoice.CustomerID], invoice)
	}

	wanted := make(map[uuid.UUID]bool, len(filter.CustomerIDs))
	for _, id := range filter.CustomerIDs {
		wanted[id] = true
	}

	rows := make([]CustomerAgingResponse, 0, len(byCustomer))
	for customerID, customerInvoices := range byCustomer {
		if len(wanted) > 0 && !wanted[customerID] {
			continue
		}
		row := buildCustomerAging(accounts[customerID], customerInvoices, now)
		if row.CustomerID == uuid.Nil {
			row.CustomerID = customerID
		}
		if filter.MinOutstanding != nil && row.TotalOutstanding.LessThan(*filter.MinOutstanding) {
			continue
		}
		if filter.RiskBand != nil && row.RiskBand != *filter.RiskBand {
			continue
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].TotalOutstanding.GreaterThan(rows[j].TotalOutstanding)
	})

	return &AgingReportResponse{
		Summary:   summarize(rows, now),
		Customers: rows,
	}, nil
}

// GetAgingSummary returns only the company-wide aggregate of the report
func (s *AgingService) GetAgingSummary(ctx context.Context) (*AgingSummaryResponse, error) {
	report, err := s.GenerateAgingReport(ctx, AgingReportFilter{})
	if err != nil {
		return nil, err
	}
	return &report.Summary, nil
}

// UpdateCustomerAging snapshots one customer for one day. Re-running
// replaces the existing snapshot for the same (customer, date) pair.
func (s *AgingService) UpdateCustomerAging(ctx context.Context, customerID uuid.UUID, date time.Time) (*AgingSnapshotResponse, error) {
	var snapshot *ar.AgingSnapshot
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.CustomerRepo().FindByID(ctx, customerID); err != nil {
			return err
		}
		invoices, err := repos.InvoiceRepo().FindOutstandingByCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		snapshot, err = ar.NewAgingSnapshot(customerID, date, invoices)
		if err != nil {
			return err
		}
		return repos.SnapshotRepo().Upsert(ctx, snapshot)
	})
	if err != nil {
		return nil, err
	}
	return toAgingSnapshotResponse(snapshot), nil
}

// GenerateDailySnapshots snapshots every customer with outstanding
// invoices for the given day. One customer's failure never aborts the
// run; the result reports counts and errors.
func (s *AgingService) GenerateDailySnapshots(ctx context.Context, date time.Time) (*DailySnapshotResult, error) {
	var customerIDs []uuid.UUID
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		customerIDs, err = repos.InvoiceRepo().ListCustomerIDsWithOutstanding(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	result := &DailySnapshotResult{
		SnapshotDate:   ar.TruncateToDay(date),
		TotalCustomers: len(customerIDs),
	}
	for _, customerID := range customerIDs {
		if _, err := s.UpdateCustomerAging(ctx, customerID, date); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, SnapshotError{
				CustomerID: customerID,
				Message:    err.Error(),
			})
			s.logger.Error("aging snapshot failed",
				zap.String("customer_id", customerID.String()),
				zap.Time("snapshot_date", result.SnapshotDate),
				zap.Error(err))
			continue
		}
		result.Successful++
	}

	s.logger.Info("daily aging snapshots generated",
		zap.Time("snapshot_date", result.SnapshotDate),
		zap.Int("total", result.TotalCustomers),
		zap.Int("successful", result.Successful),
		zap.Int("failed", result.Failed))
	return result, nil
}

// GetCustomerSnapshots returns a customer's snapshot history in a range
func (s *AgingService) GetCustomerSnapshots(ctx context.Context, customerID uuid.UUID, from, to time.Time) ([]AgingSnapshotResponse, error) {
	var snapshots []*ar.AgingSnapshot
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		snapshots, err = repos.SnapshotRepo().FindByCustomer(ctx, customerID, from, to)
		return err
	})
	if err != nil {
		return nil, err
	}

	responses := make([]AgingSnapshotResponse, 0, len(snapshots))
	for _, snapshot := range snapshots {
		responses = append(responses, *toAgingSnapshotResponse(snapshot))
	}
	return responses, nil
}

// GetAgingTrends aggregates snapshots into a monthly series over the
// trailing window. Per customer and month the month-end snapshot is
// preferred; the latest snapshot of the month stands in when the
// month-end one is missing.
func (s *AgingService) GetAgingTrends(ctx context.Context, months int) ([]AgingTrendPoint, error) {
	if months < 1 {
		return nil, shared.NewValidationError("INVALID_MONTHS", "Trend window must cover at least one month")
	}

	now := time.Now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -(months - 1), 0)

	var snapshots []*ar.AgingSnapshot
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		snapshots, err = repos.SnapshotRepo().FindInRange(ctx, from, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	type monthCustomer struct {
		month    string
		customer uuid.UUID
	}
	chosen := make(map[monthCustomer]*ar.AgingSnapshot)
	for _, snapshot := range snapshots {
		key := monthCustomer{snapshot.SnapshotDate.Format("2006-01"), snapshot.CustomerID}
		existing, ok := chosen[key]
		switch {
		case !ok:
			chosen[key] = snapshot
		case snapshot.IsMonthEnd():
			chosen[key] = snapshot
		case !existing.IsMonthEnd() && snapshot.SnapshotDate.After(existing.SnapshotDate):
			chosen[key] = snapshot
		}
	}

	points := make(map[string]*AgingTrendPoint)
	for key, snapshot := range chosen {
		point, ok := points[key.month]
		if !ok {
			point = &AgingTrendPoint{
				Month:             key.month,
				CurrentAmount:     decimal.Zero,
				Days30Amount:      decimal.Zero,
				Days60Amount:      decimal.Zero,
				Days90Amount:      decimal.Zero,
				Days120PlusAmount: decimal.Zero,
				TotalOutstanding:  decimal.Zero,
			}
			points[key.month] = point
		}
		point.CurrentAmount = point.CurrentAmount.Add(snapshot.CurrentAmount)
		point.Days30Amount = point.Days30Amount.Add(snapshot.Days30Amount)
		point.Days60Amount = point.Days60Amount.Add(snapshot.Days60Amount)
		point.Days90Amount = point.Days90Amount.Add(snapshot.Days90Amount)
		point.Days120PlusAmount = point.Days120PlusAmount.Add(snapshot.Days120PlusAmount)
		point.TotalOutstanding = point.TotalOutstanding.Add(snapshot.TotalOutstanding)
		point.CustomerCount++
	}

	series := make([]AgingTrendPoint, 0, len(points))
	for _, point := range points {
		if point.TotalOutstanding.IsPositive() {
			overdue := point.TotalOutstanding.Sub(point.CurrentAmount)
			point.OverduePercentage = overdue.Div(point.TotalOutstanding).Mul(decimal.NewFromInt(100))
		}
		series = append(series, *point)
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].Month < series[j].Month
	})
	return series, nil
}

// buildCustomerAging folds a customer's outstanding invoices into one
// report row.
func buildCustomerAging(customer *ledger.CustomerAccount, invoices []*ledger.Invoice, asOf time.Time) CustomerAgingResponse {
	amounts := ar.NewBucketAmounts()
	count := 0
	for _, invoice := range invoices {
		if !invoice.IsOutstanding() {
			continue
		}
		amounts.Add(ar.BucketForDaysOverdue(invoice.DaysOverdue(asOf)), invoice.OutstandingAmount)
		count++
	}

	score := ar.WeightedRiskScore(amounts)
	row := CustomerAgingResponse{
		CurrentAmount:     amounts[ar.BucketCurrent],
		Days30Amount:      amounts[ar.BucketDays30],
		Days60Amount:      amounts[ar.BucketDays60],
		Days90Amount:      amounts[ar.BucketDays90],
		Days120PlusAmount: amounts[ar.BucketDays120Plus],
		TotalOutstanding:  amounts.Total(),
		InvoiceCount:      count,
		RiskScore:         score,
		RiskBand:          ar.RiskBandForScore(score),
	}
	if customer != nil {
		row.CustomerID = customer.ID
		row.CustomerCode = customer.Code
		row.CustomerName = customer.Name
	}
	return row
}

// summarize folds the report rows into company-wide totals, bucket
// percentages and risk band counts.
func summarize(rows []CustomerAgingResponse, asOf time.Time) AgingSummaryResponse {
	summary := AgingSummaryResponse{
		AsOf:              asOf,
		TotalOutstanding:  decimal.Zero,
		CustomerCount:     len(rows),
		BucketTotals:      make(map[string]decimal.Decimal, len(ar.AllAgingBuckets)),
		BucketPercentages: make(map[string]decimal.Decimal, len(ar.AllAgingBuckets)),
		RiskBandCounts:    make(map[string]int),
	}
	for _, bucket := range ar.AllAgingBuckets {
		summary.BucketTotals[bucket.String()] = decimal.Zero
	}

	for _, row := range rows {
		summary.TotalOutstanding = summary.TotalOutstanding.Add(row.TotalOutstanding)
		summary.BucketTotals[ar.BucketCurrent.String()] = summary.BucketTotals[ar.BucketCurrent.String()].Add(row.CurrentAmount)
		summary.BucketTotals[ar.BucketDays30.String()] = summary.BucketTotals[ar.BucketDays30.String()].Add(row.Days30Amount)
		summary.BucketTotals[ar.BucketDays60.String()] = summary.BucketTotals[ar.BucketDays60.String()].Add(row.Days60Amount)
		summary.BucketTotals[ar.BucketDays90.String()] = summary.BucketTotals[ar.BucketDays90.String()].Add(row.Days90Amount)
		summary.BucketTotals[ar.BucketDays120Plus.String()] = summary.BucketTotals[ar.BucketDays120Plus.String()].Add(row.Days120PlusAmount)
		summary.RiskBandCounts[row.RiskBand.String()]++
	}

	if summary.TotalOutstanding.IsPositive() {
		hundred := decimal.NewFromInt(100)
		for _, bucket := range ar.AllAgingBuckets {
			summary.BucketPercentages[bucket.String()] = summary.BucketTotals[bucket.String()].
				Div(summary.TotalOutstanding).Mul(hundred)
		}
		overdue := summary.TotalOutstanding.Sub(summary.BucketTotals[ar.BucketCurrent.String()])
		summary.OverduePercentage = overdue.Div(summary.TotalOutstanding).Mul(hundred)
	} else {
		for _, bucket := range ar.AllAgingBuckets {
			summary.BucketPercentages[bucket.String()] = decimal.Zero
		}
		summary.OverduePercentage = decimal.Zero
	}
	return summary
}
