package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/arledger/backend/internal/domain/ar"
	"github.com/arledger/backend/internal/domain/ledger"
	"github.com/arledger/backend/internal/domain/shared"
)

// AgingSnapshotModelSQLite is a SQLite-compatible version of
// AgingSnapshotModel for testing
type AgingSnapshotModelSQLite struct {
	ID                uuid.UUID       `gorm:"primaryKey"`
	CreatedAt         time.Time       `gorm:"not null"`
	UpdatedAt         time.Time       `gorm:"not null"`
	Version           int             `gorm:"not null;default:1"`
	CustomerID        uuid.UUID       `gorm:"not null;uniqueIndex:idx_snapshot_customer_date,priority:1"`
	SnapshotDate      time.Time       `gorm:"not null;uniqueIndex:idx_snapshot_customer_date,priority:2;index"`
	CurrentAmount     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Days30Amount      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Days60Amount      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Days90Amount      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Days120PlusAmount decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TotalOutstanding  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	RiskScore         decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	InvoiceCount      int             `gorm:"not null;default:0"`
}

func (AgingSnapshotModelSQLite) TableName() string {
	return "aging_snapshots"
}

func setupSnapshotTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// Auto-migrate the SQLite-compatible model
	err = db.AutoMigrate(&AgingSnapshotModelSQLite{})
	require.NoError(t, err)

	return db
}

// newTestSnapshot builds a snapshot from a single open invoice with the
// given outstanding amount and days overdue relative to the snapshot date.
func newTestSnapshot(t *testing.T, customerID uuid.UUID, snapshotDate time.Time, outstanding decimal.Decimal, daysOverdue int) *ar.AgingSnapshot {
	t.Helper()
	due := snapshotDate.AddDate(0, 0, -daysOverdue)
	invoice, err := ledger.NewInvoice("INV-"+uuid.NewString()[:8], customerID, outstanding, &due)
	require.NoError(t, err)

	snapshot, err := ar.NewAgingSnapshot(customerID, snapshotDate, []*ledger.Invoice{invoice})
	require.NoError(t, err)
	return snapshot
}

func TestAgingSnapshotRepository_Upsert(t *testing.T) {
	db := setupSnapshotTestDB(t)
	repo := NewGormAgingSnapshotRepository(db)
	ctx := context.Background()

	customerID := uuid.New()
	date := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

	t.Run("inserts a new snapshot", func(t *testing.T) {
		snapshot := newTestSnapshot(t, customerID, date, decimal.NewFromInt(1000), 45)

		err := repo.Upsert(ctx, snapshot)
		require.NoError(t, err)

		found, err := repo.FindByCustomerAndDate(ctx, customerID, date)
		require.NoError(t, err)
		assert.True(t, found.Days30Amount.Equal(decimal.NewFromInt(1000)))
		assert.True(t, found.TotalOutstanding.Equal(decimal.NewFromInt(1000)))
		assert.Equal(t, 1, found.InvoiceCount)
	})

	t.Run("replaces the snapshot for the same customer and day", func(t *testing.T) {
		updated := newTestSnapshot(t, customerID, date, decimal.NewFromInt(2500), 95)

		err := repo.Upsert(ctx, updated)
		require.NoError(t, err)

		found, err := repo.FindByCustomerAndDate(ctx, customerID, date)
		require.NoError(t, err)
		assert.True(t, found.Days30Amount.IsZero())
		assert.True(t, found.Days90Amount.Equal(decimal.NewFromInt(2500)))
		assert.True(t, found.TotalOutstanding.Equal(decimal.NewFromInt(2500)))

		var count int64
		require.NoError(t, db.Model(&AgingSnapshotModelSQLite{}).
			Where("customer_id = ?", customerID).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("keeps snapshots on different days separate", func(t *testing.T) {
		nextDay := date.AddDate(0, 0, 1)
		snapshot := newTestSnapshot(t, customerID, nextDay, decimal.NewFromInt(500), 0)

		err := repo.Upsert(ctx, snapshot)
		require.NoError(t, err)

		var count int64
		require.NoError(t, db.Model(&AgingSnapshotModelSQLite{}).
			Where("customer_id = ?", customerID).Count(&count).Error)
		assert.Equal(t, int64(2), count)
	})
}

func TestAgingSnapshotRepository_FindByCustomerAndDate(t *testing.T) {
	db := setupSnapshotTestDB(t)
	repo := NewGormAgingSnapshotRepository(db)
	ctx := context.Background()

	customerID := uuid.New()
	date := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	snapshot := newTestSnapshot(t, customerID, date, decimal.NewFromInt(800), 10)
	require.NoError(t, repo.Upsert(ctx, snapshot))

	t.Run("matches regardless of time of day", func(t *testing.T) {
		afternoon := time.Date(2024, 6, 15, 16, 45, 0, 0, time.UTC)
		found, err := repo.FindByCustomerAndDate(ctx, customerID, afternoon)
		require.NoError(t, err)
		assert.True(t, found.TotalOutstanding.Equal(decimal.NewFromInt(800)))
	})

	t.Run("returns not found for a day without a snapshot", func(t *testing.T) {
		_, err := repo.FindByCustomerAndDate(ctx, customerID, date.AddDate(0, 0, -1))
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestAgingSnapshotRepository_FindByCustomer(t *testing.T) {
	db := setupSnapshotTestDB(t)
	repo := NewGormAgingSnapshotRepository(db)
	ctx := context.Background()

	customerID := uuid.New()
	otherID := uuid.New()

	may := time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)
	june := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	july := time.Date(2024, 7, 31, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Upsert(ctx, newTestSnapshot(t, customerID, june, decimal.NewFromInt(200), 0)))
	require.NoError(t, repo.Upsert(ctx, newTestSnapshot(t, customerID, may, decimal.NewFromInt(100), 0)))
	require.NoError(t, repo.Upsert(ctx, newTestSnapshot(t, customerID, july, decimal.NewFromInt(300), 0)))
	require.NoError(t, repo.Upsert(ctx, newTestSnapshot(t, otherID, june, decimal.NewFromInt(999), 0)))

	t.Run("returns the customer's snapshots in the range ascending", func(t *testing.T) {
		snapshots, err := repo.FindByCustomer(ctx, customerID, may, june)
		require.NoError(t, err)
		require.Len(t, snapshots, 2)
		assert.True(t, snapshots[0].TotalOutstanding.Equal(decimal.NewFromInt(100)))
		assert.True(t, snapshots[1].TotalOutstanding.Equal(decimal.NewFromInt(200)))
	})

	t.Run("returns empty outside the range", func(t *testing.T) {
		snapshots, err := repo.FindByCustomer(ctx, customerID,
			time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.Len(t, snapshots, 0)
	})
}

func TestAgingSnapshotRepository_FindInRange(t *testing.T) {
	db := setupSnapshotTestDB(t)
	repo := NewGormAgingSnapshotRepository(db)
	ctx := context.Background()

	june := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	july := time.Date(2024, 7, 31, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Upsert(ctx, newTestSnapshot(t, uuid.New(), june, decimal.NewFromInt(100), 0)))
	require.NoError(t, repo.Upsert(ctx, newTestSnapshot(t, uuid.New(), june, decimal.NewFromInt(200), 0)))
	require.NoError(t, repo.Upsert(ctx, newTestSnapshot(t, uuid.New(), july, decimal.NewFromInt(300), 0)))

	t.Run("returns all snapshots across customers in the range", func(t *testing.T) {
		snapshots, err := repo.FindInRange(ctx, june, june)
		require.NoError(t, err)
		assert.Len(t, snapshots, 2)
	})

	t.Run("includes both range endpoints", func(t *testing.T) {
		snapshots, err := repo.FindInRange(ctx, june, july)
		require.NoError(t, err)
		assert.Len(t, snapshots, 3)
	})
}
