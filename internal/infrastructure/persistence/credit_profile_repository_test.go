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

// CreditProfileModelSQLite is a SQLite-compatible version of
// CreditProfileModel for testing
type CreditProfileModelSQLite struct {
	ID                uuid.UUID       `gorm:"primaryKey"`
	CreatedAt         time.Time       `gorm:"not null"`
	UpdatedAt         time.Time       `gorm:"not null"`
	Version           int             `gorm:"not null;default:1"`
	CustomerID        uuid.UUID       `gorm:"not null;uniqueIndex"`
	CreditLimit       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CurrentBalance    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	AvailableCredit   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	OverdueAmount     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	DaysPastDue       int             `gorm:"not null;default:0"`
	PaymentTermsDays  int             `gorm:"not null;default:30"`
	CreditStatus      string          `gorm:"not null;default:'GOOD';index"`
	CreditScore       decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	ReliabilityScore  decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	PaymentDelayCount int             `gorm:"not null;default:0"`
	LatePaymentCount  int             `gorm:"not null;default:0"`
	AutoApprovalLimit decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	LastReviewDate    *time.Time
	NextReviewDate    *time.Time `gorm:"index"`
}

func (CreditProfileModelSQLite) TableName() string {
	return "credit_profiles"
}

func setupCreditProfileTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// Auto-migrate the SQLite-compatible model
	err = db.AutoMigrate(&CreditProfileModelSQLite{})
	require.NoError(t, err)

	return db
}

func newTestProfile(t *testing.T, customerType ledger.CustomerType) *ar.CreditProfile {
	t.Helper()
	profile, err := ar.NewCreditProfile(uuid.New(), customerType)
	require.NoError(t, err)
	return profile
}

func TestCreditProfileRepository_SaveAndFind(t *testing.T) {
	db := setupCreditProfileTestDB(t)
	repo := NewGormCreditProfileRepository(db)
	ctx := context.Background()

	t.Run("saves and reads back a profile", func(t *testing.T) {
		profile := newTestProfile(t, ledger.CustomerTypeVIP)

		err := repo.Save(ctx, profile)
		require.NoError(t, err)

		found, err := repo.FindByCustomer(ctx, profile.CustomerID)
		require.NoError(t, err)
		assert.Equal(t, profile.ID, found.ID)
		assert.True(t, found.CreditLimit.Equal(profile.CreditLimit))
		assert.True(t, found.AvailableCredit.Equal(profile.CreditLimit))
		assert.Equal(t, ar.CreditStatusGood, found.CreditStatus)
		assert.True(t, found.ReliabilityScore.Equal(decimal.NewFromInt(100)))
		assert.Equal(t, 30, found.PaymentTermsDays)
	})

	t.Run("returns not found for a customer without a profile", func(t *testing.T) {
		_, err := repo.FindByCustomer(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("returns not found for non-existent ID", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestCreditProfileRepository_SaveWithLock(t *testing.T) {
	db := setupCreditProfileTestDB(t)
	repo := NewGormCreditProfileRepository(db)
	ctx := context.Background()

	profile := newTestProfile(t, ledger.CustomerTypeRegular)
	require.NoError(t, repo.Save(ctx, profile))

	t.Run("persists refreshed balances against the current version", func(t *testing.T) {
		err := profile.RefreshBalances(decimal.NewFromInt(2_000_000), decimal.NewFromInt(500_000), 15)
		require.NoError(t, err)

		err = repo.SaveWithLock(ctx, profile)
		require.NoError(t, err)

		found, err := repo.FindByCustomer(ctx, profile.CustomerID)
		require.NoError(t, err)
		assert.True(t, found.CurrentBalance.Equal(decimal.NewFromInt(2_000_000)))
		assert.True(t, found.OverdueAmount.Equal(decimal.NewFromInt(500_000)))
		assert.Equal(t, 15, found.DaysPastDue)
		assert.Equal(t, profile.Version, found.Version)
	})

	t.Run("returns conflict for a stale version", func(t *testing.T) {
		err := repo.SaveWithLock(ctx, profile)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})
}

func TestCreditProfileRepository_FindDueForReview(t *testing.T) {
	db := setupCreditProfileTestDB(t)
	repo := NewGormCreditProfileRepository(db)
	ctx := context.Background()

	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	neverReviewed := newTestProfile(t, ledger.CustomerTypeRegular)

	overdue := newTestProfile(t, ledger.CustomerTypeRegular)
	overdue.AdvanceReview(now.AddDate(0, -7, 0))

	recentlyReviewed := newTestProfile(t, ledger.CustomerTypeRegular)
	recentlyReviewed.AdvanceReview(now.AddDate(0, -1, 0))

	for _, p := range []*ar.CreditProfile{neverReviewed, overdue, recentlyReviewed} {
		require.NoError(t, repo.Save(ctx, p))
	}

	t.Run("returns never-reviewed and past-due profiles", func(t *testing.T) {
		profiles, err := repo.FindDueForReview(ctx, now)
		require.NoError(t, err)
		require.Len(t, profiles, 2)

		ids := []uuid.UUID{profiles[0].ID, profiles[1].ID}
		assert.Contains(t, ids, neverReviewed.ID)
		assert.Contains(t, ids, overdue.ID)
	})

	t.Run("includes everything once all reviews lapse", func(t *testing.T) {
		profiles, err := repo.FindDueForReview(ctx, now.AddDate(1, 0, 0))
		require.NoError(t, err)
		assert.Len(t, profiles, 3)
	})
}

func TestCreditProfileRepository_FindAllAndCount(t *testing.T) {
	db := setupCreditProfileTestDB(t)
	repo := NewGormCreditProfileRepository(db)
	ctx := context.Background()

	healthy := newTestProfile(t, ledger.CustomerTypeRegular)
	require.NoError(t, repo.Save(ctx, healthy))

	delinquent := newTestProfile(t, ledger.CustomerTypeRegular)
	require.NoError(t, delinquent.RefreshBalances(decimal.NewFromInt(1_000_000), decimal.NewFromInt(800_000), 45))
	delinquent.EvaluateStatus()
	require.NoError(t, repo.Save(ctx, delinquent))

	t.Run("filters by credit status", func(t *testing.T) {
		status := ar.CreditStatusWarning
		filter := ar.CreditProfileFilter{CreditStatus: &status}
		filter.Page = 1
		filter.PageSize = 10

		profiles, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		require.Len(t, profiles, 1)
		assert.Equal(t, delinquent.ID, profiles[0].ID)
	})

	t.Run("filters by minimum days past due", func(t *testing.T) {
		minDays := 30
		filter := ar.CreditProfileFilter{MinDaysPastDue: &minDays}
		filter.Page = 1
		filter.PageSize = 10

		count, err := repo.Count(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})
}
