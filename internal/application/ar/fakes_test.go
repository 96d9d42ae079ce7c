package ar

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arledger/backend/internal/domain/ar"
	"github.com/arledger/backend/internal/domain/ledger"
	"github.com/arledger/backend/internal/domain/shared"
)

// testFixture wires the in-memory repositories into a no-op transaction
// scope. Conflict counters on the repositories simulate optimistic lock
// failures.
type testFixture struct {
	receipts    *fakeReceiptRepo
	allocations *fakeAllocationRepo
	invoices    *fakeInvoiceRepo
	customers   *fakeCustomerRepo
	profiles    *fakeProfileRepo
	snapshots   *fakeSnapshotRepo
	scope       *NoOpTransactionScope
}

func newTestFixture() *testFixture {
	f := &testFixture{
		receipts:    &fakeReceiptRepo{items: map[uuid.UUID]*ar.PaymentReceipt{}},
		allocations: &fakeAllocationRepo{items: map[uuid.UUID]*ar.Allocation{}},
		invoices:    &fakeInvoiceRepo{items: map[uuid.UUID]*ledger.Invoice{}},
		customers:   &fakeCustomerRepo{items: map[uuid.UUID]*ledger.CustomerAccount{}},
		profiles:    &fakeProfileRepo{items: map[uuid.UUID]*ar.CreditProfile{}},
		snapshots:   &fakeSnapshotRepo{},
	}
	f.scope = NewNoOpTransactionScope(f.receipts, f.allocations, f.invoices, f.customers, f.profiles, f.snapshots)
	return f
}

// ---- receipts ----

type fakeReceiptRepo struct {
	items     map[uuid.UUID]*ar.PaymentReceipt
	seq       int
	conflicts int
}

func (r *fakeReceiptRepo) FindByID(_ context.Context, id uuid.UUID) (*ar.PaymentReceipt, error) {
	if receipt, ok := r.items[id]; ok {
		return receipt, nil
	}
	return nil, shared.ErrNotFound
}

func (r *fakeReceiptRepo) FindByNumber(_ context.Context, number string) (*ar.PaymentReceipt, error) {
	for _, receipt := range r.items {
		if receipt.ReceiptNumber == number {
			return receipt, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeReceiptRepo) FindAll(_ context.Context, filter ar.ReceiptFilter) ([]*ar.PaymentReceipt, error) {
	receipts := make([]*ar.PaymentReceipt, 0, len(r.items))
	for _, receipt := range r.items {
		if filter.CustomerID != nil && receipt.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.Status != nil && receipt.Status != *filter.Status {
			continue
		}
		receipts = append(receipts, receipt)
	}
	return receipts, nil
}

func (r *fakeReceiptRepo) Count(ctx context.Context, filter ar.ReceiptFilter) (int64, error) {
	receipts, err := r.FindAll(ctx, filter)
	return int64(len(receipts)), err
}

func (r *fakeReceiptRepo) Save(_ context.Context, receipt *ar.PaymentReceipt) error {
	r.items[receipt.ID] = receipt
	return nil
}

func (r *fakeReceiptRepo) SaveWithLock(_ context.Context, receipt *ar.PaymentReceipt) error {
	if r.conflicts > 0 {
		r.conflicts--
		return shared.ErrConcurrencyConflict
	}
	r.items[receipt.ID] = receipt
	return nil
}

func (r *fakeReceiptRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.items[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *fakeReceiptRepo) NextReceiptNumber(_ context.Context, date time.Time) (string, error) {
	r.seq++
	return fmt.Sprintf("PR-%s-%05d", date.Format("20060102"), r.seq), nil
}

func (r *fakeReceiptRepo) PaymentDatesByCustomerSince(_ context.Context, customerID uuid.UUID, since time.Time) ([]time.Time, error) {
	var dates []time.Time
	for _, receipt := range r.items {
		if receipt.CustomerID == customerID && receipt.Status != ar.ReceiptStatusCancelled && !receipt.PaymentDate.Before(since) {
			dates = append(dates, receipt.PaymentDate)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

// ---- allocations ----

type fakeAllocationRepo struct {
	items        map[uuid.UUID]*ar.Allocation
	paidTotal    int64
	paidOnTime   int64
	saveSequence []uuid.UUID
}

func (r *fakeAllocationRepo) FindByID(_ context.Context, id uuid.UUID) (*ar.Allocation, error) {
	if allocation, ok := r.items[id]; ok {
		return allocation, nil
	}
	return nil, shared.ErrNotFound
}

func (r *fakeAllocationRepo) FindByReceipt(_ context.Context, receiptID uuid.UUID) ([]*ar.Allocation, error) {
	var allocations []*ar.Allocation
	for _, allocation := range r.items {
		if allocation.PaymentReceiptID == receiptID {
			allocations = append(allocations, allocation)
		}
	}
	return allocations, nil
}

func (r *fakeAllocationRepo) FindByInvoice(_ context.Context, invoiceID uuid.UUID) ([]*ar.Allocation, error) {
	var allocations []*ar.Allocation
	for _, allocation := range r.items {
		if allocation.InvoiceID == invoiceID {
			allocations = append(allocations, allocation)
		}
	}
	return allocations, nil
}

func (r *fakeAllocationRepo) FindAll(_ context.Context, _ ar.AllocationFilter) ([]*ar.Allocation, error) {
	allocations := make([]*ar.Allocation, 0, len(r.items))
	for _, allocation := range r.items {
		allocations = append(allocations, allocation)
	}
	return allocations, nil
}

func (r *fakeAllocationRepo) Count(_ context.Context, _ ar.AllocationFilter) (int64, error) {
	return int64(len(r.items)), nil
}

func (r *fakeAllocationRepo) Save(_ context.Context, allocation *ar.Allocation) error {
	if _, ok := r.items[allocation.ID]; !ok {
		r.saveSequence = append(r.saveSequence, allocation.ID)
	}
	r.items[allocation.ID] = allocation
	return nil
}

func (r *fakeAllocationRepo) FindPendingByReceiptNewestFirst(_ context.Context, receiptID uuid.UUID) ([]*ar.Allocation, error) {
	var pending []*ar.Allocation
	// Insertion order stands in for creation time; newest first means
	// walking it backwards.
	for i := len(r.saveSequence) - 1; i >= 0; i-- {
		allocation := r.items[r.saveSequence[i]]
		if allocation == nil || allocation.PaymentReceiptID != receiptID {
			continue
		}
		if allocation.Status == ar.AllocationStatusPending {
			pending = append(pending, allocation)
		}
	}
	return pending, nil
}

func (r *fakeAllocationRepo) SumActiveByReceipt(_ context.Context, receiptID uuid.UUID) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, allocation := range r.items {
		if allocation.PaymentReceiptID == receiptID && allocation.Status.IsActive() {
			sum = sum.Add(allocation.Amount)
		}
	}
	return sum, nil
}

func (r *fakeAllocationRepo) CountActiveByReceipt(_ context.Context, receiptID uuid.UUID) (int64, error) {
	var count int64
	for _, allocation := range r.items {
		if allocation.PaymentReceiptID == receiptID && allocation.Status.IsActive() {
			count++
		}
	}
	return count, nil
}

func (r *fakeAllocationRepo) PaidInvoiceStats(_ context.Context, _ uuid.UUID, _ time.Time) (int64, int64, error) {
	return r.paidTotal, r.paidOnTime, nil
}

// ---- invoices ----

type fakeInvoiceRepo struct {
	items     map[uuid.UUID]*ledger.Invoice
	conflicts int
}

func (r *fakeInvoiceRepo) FindByID(_ context.Context, id uuid.UUID) (*ledger.Invoice, error) {
	if invoice, ok := r.items[id]; ok {
		return invoice, nil
	}
	return nil, shared.ErrNotFound
}

func (r *fakeInvoiceRepo) FindByNumber(_ context.Context, number string) (*ledger.Invoice, error) {
	for _, invoice := range r.items {
		if invoice.InvoiceNumber == number {
			return invoice, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeInvoiceRepo) FindAll(_ context.Context, filter ledger.InvoiceFilter) ([]*ledger.Invoice, error) {
	var invoices []*ledger.Invoice
	for _, invoice := range r.items {
		if filter.CustomerID != nil && invoice.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.OutstandingOnly && !invoice.IsOutstanding() {
			continue
		}
		if filter.OverdueAsOf != nil && !invoice.IsOverdue(*filter.OverdueAsOf) {
			continue
		}
		invoices = append(invoices, invoice)
	}
	return invoices, nil
}

func (r *fakeInvoiceRepo) Count(ctx context.Context, filter ledger.InvoiceFilter) (int64, error) {
	invoices, err := r.FindAll(ctx, filter)
	return int64(len(invoices)), err
}

func (r *fakeInvoiceRepo) Save(_ context.Context, invoice *ledger.Invoice) error {
	r.items[invoice.ID] = invoice
	return nil
}

func (r *fakeInvoiceRepo) SaveWithLock(_ context.Context, invoice *ledger.Invoice) error {
	if r.conflicts > 0 {
		r.conflicts--
		return shared.ErrConcurrencyConflict
	}
	r.items[invoice.ID] = invoice
	return nil
}

func (r *fakeInvoiceRepo) FindOutstandingByCustomer(_ context.Context, customerID uuid.UUID) ([]*ledger.Invoice, error) {
	var invoices []*ledger.Invoice
	for _, invoice := range r.items {
		if invoice.CustomerID == customerID && invoice.IsOutstanding() {
			invoices = append(invoices, invoice)
		}
	}
	return ar.SortInvoicesForWaterfall(invoices), nil
}

func (r *fakeInvoiceRepo) FindOutstanding(_ context.Context) ([]*ledger.Invoice, error) {
	var invoices []*ledger.Invoice
	for _, invoice := range r.items {
		if invoice.IsOutstanding() {
			invoices = append(invoices, invoice)
		}
	}
	return invoices, nil
}

func (r *fakeInvoiceRepo) SumOutstandingByCustomer(_ context.Context, customerID uuid.UUID) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, invoice := range r.items {
		if invoice.CustomerID == customerID {
			sum = sum.Add(invoice.OutstandingAmount)
		}
	}
	return sum, nil
}

func (r *fakeInvoiceRepo) SumOverdueByCustomer(_ context.Context, customerID uuid.UUID, asOf time.Time) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, invoice := range r.items {
		if invoice.CustomerID == customerID && invoice.IsOverdue(asOf) {
			sum = sum.Add(invoice.OutstandingAmount)
		}
	}
	return sum, nil
}

func (r *fakeInvoiceRepo) MaxDaysOverdueByCustomer(_ context.Context, customerID uuid.UUID, asOf time.Time) (int, error) {
	max := 0
	for _, invoice := range r.items {
		if invoice.CustomerID == customerID && invoice.IsOutstanding() {
			if days := invoice.DaysOverdue(asOf); days > max {
				max = days
			}
		}
	}
	return max, nil
}

func (r *fakeInvoiceRepo) ListCustomerIDsWithOutstanding(_ context.Context) ([]uuid.UUID, error) {
	seen := map[uuid.UUID]bool{}
	var ids []uuid.UUID
	for _, invoice := range r.items {
		if invoice.IsOutstanding() && !seen[invoice.CustomerID] {
			seen[invoice.CustomerID] = true
			ids = append(ids, invoice.CustomerID)
		}
	}
	return ids, nil
}

// ---- customers ----

type fakeCustomerRepo struct {
	items map[uuid.UUID]*ledger.CustomerAccount
}

func (r *fakeCustomerRepo) FindByID(_ context.Context, id uuid.UUID) (*ledger.CustomerAccount, error) {
	if customer, ok := r.items[id]; ok {
		return customer, nil
	}
	return nil, shared.ErrNotFound
}

func (r *fakeCustomerRepo) FindByCode(_ context.Context, code string) (*ledger.CustomerAccount, error) {
	for _, customer := range r.items {
		if customer.Code == code {
			return customer, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeCustomerRepo) FindAll(_ context.Context, _ shared.Filter) ([]*ledger.CustomerAccount, error) {
	customers := make([]*ledger.CustomerAccount, 0, len(r.items))
	for _, customer := range r.items {
		customers = append(customers, customer)
	}
	return customers, nil
}

func (r *fakeCustomerRepo) Save(_ context.Context, customer *ledger.CustomerAccount) error {
	r.items[customer.ID] = customer
	return nil
}

func (r *fakeCustomerRepo) SaveWithLock(ctx context.Context, customer *ledger.CustomerAccount) error {
	return r.Save(ctx, customer)
}

// ---- credit profiles ----

type fakeProfileRepo struct {
	items map[uuid.UUID]*ar.CreditProfile
}

func (r *fakeProfileRepo) FindByID(_ context.Context, id uuid.UUID) (*ar.CreditProfile, error) {
	for _, profile := range r.items {
		if profile.ID == id {
			return profile, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeProfileRepo) FindByCustomer(_ context.Context, customerID uuid.UUID) (*ar.CreditProfile, error) {
	if profile, ok := r.items[customerID]; ok {
		return profile, nil
	}
	return nil, shared.ErrNotFound
}

func (r *fakeProfileRepo) FindAll(_ context.Context, _ ar.CreditProfileFilter) ([]*ar.CreditProfile, error) {
	profiles := make([]*ar.CreditProfile, 0, len(r.items))
	for _, profile := range r.items {
		profiles = append(profiles, profile)
	}
	return profiles, nil
}

func (r *fakeProfileRepo) Count(_ context.Context, _ ar.CreditProfileFilter) (int64, error) {
	return int64(len(r.items)), nil
}

func (r *fakeProfileRepo) Save(_ context.Context, profile *ar.CreditProfile) error {
	r.items[profile.CustomerID] = profile
	return nil
}

func (r *fakeProfileRepo) SaveWithLock(ctx context.Context, profile *ar.CreditProfile) error {
	return r.Save(ctx, profile)
}

func (r *fakeProfileRepo) FindDueForReview(_ context.Context, asOf time.Time) ([]*ar.CreditProfile, error) {
	var due []*ar.CreditProfile
	for _, profile := range r.items {
		if profile.NextReviewDate == nil || !profile.NextReviewDate.After(asOf) {
			due = append(due, profile)
		}
	}
	return due, nil
}

// ---- aging snapshots ----

type snapshotKey struct {
	customerID uuid.UUID
	date       time.Time
}

type fakeSnapshotRepo struct {
	items   map[snapshotKey]*ar.AgingSnapshot
	upserts int
}

func (r *fakeSnapshotRepo) init() {
	if r.items == nil {
		r.items = map[snapshotKey]*ar.AgingSnapshot{}
	}
}

func (r *fakeSnapshotRepo) FindByCustomerAndDate(_ context.Context, customerID uuid.UUID, date time.Time) (*ar.AgingSnapshot, error) {
	r.init()
	if snapshot, ok := r.items[snapshotKey{customerID, ar.TruncateToDay(date)}]; ok {
		return snapshot, nil
	}
	return nil, shared.ErrNotFound
}

func (r *fakeSnapshotRepo) FindByCustomer(_ context.Context, customerID uuid.UUID, from, to time.Time) ([]*ar.AgingSnapshot, error) {
	r.init()
	var snapshots []*ar.AgingSnapshot
	for key, snapshot := range r.items {
		if key.customerID == customerID && !key.date.Before(from) && !key.date.After(to) {
			snapshots = append(snapshots, snapshot)
		}
	}
	return snapshots, nil
}

func (r *fakeSnapshotRepo) FindInRange(_ context.Context, from, to time.Time) ([]*ar.AgingSnapshot, error) {
	r.init()
	var snapshots []*ar.AgingSnapshot
	for key, snapshot := range r.items {
		if !key.date.Before(from) && !key.date.After(to) {
			snapshots = append(snapshots, snapshot)
		}
	}
	return snapshots, nil
}

func (r *fakeSnapshotRepo) Upsert(_ context.Context, snapshot *ar.AgingSnapshot) error {
	r.init()
	r.upserts++
	r.items[snapshotKey{snapshot.CustomerID, snapshot.SnapshotDate}] = snapshot
	return nil
}
