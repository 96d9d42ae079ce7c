package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arledger/backend/internal/domain/ar"
	"github.com/arledger/backend/internal/domain/shared"
	"github.com/arledger/backend/internal/infrastructure/persistence/models"
)

// GormAgingSnapshotRepository implements AgingSnapshotRepository using GORM
type GormAgingSnapshotRepository struct {
	db *gorm.DB
}

// NewGormAgingSnapshotRepository creates a new GormAgingSnapshotRepository
func NewGormAgingSnapshotRepository(db *gorm.DB) *GormAgingSnapshotRepository {
	return &GormAgingSnapshotRepository{db: db}
}

// FindByCustomerAndDate finds the snapshot for a customer on a day
func (r *GormAgingSnapshotRepository) FindByCustomerAndDate(ctx context.Context, customerID uuid.UUID, date time.Time) (*ar.AgingSnapshot, error) {
	var model models.AgingSnapshotModel
	if err := r.db.WithContext(ctx).
		Where("customer_id = ? AND snapshot_date = ?", customerID, ar.TruncateToDay(date)).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCustomer finds a customer's snapshots within a date range, ascending
func (r *GormAgingSnapshotRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID, from, to time.Time) ([]*ar.AgingSnapshot, error) {
	var snapshotModels []models.AgingSnapshotModel
	if err := r.db.WithContext(ctx).
		Where("customer_id = ? AND snapshot_date >= ? AND snapshot_date <= ?",
			customerID, ar.TruncateToDay(from), ar.TruncateToDay(to)).
		Order("snapshot_date ASC").
		Find(&snapshotModels).Error; err != nil {
		return nil, err
	}
	return toDomainSnapshots(snapshotModels), nil
}

// FindInRange finds all snapshots within a date range, ascending
func (r *GormAgingSnapshotRepository) FindInRange(ctx context.Context, from, to time.Time) ([]*ar.AgingSnapshot, error) {
	var snapshotModels []models.AgingSnapshotModel
	if err := r.db.WithContext(ctx).
		Where("snapshot_date >= ? AND snapshot_date <= ?",
			ar.TruncateToDay(from), ar.TruncateToDay(to)).
		Order("snapshot_date ASC").
		Find(&snapshotModels).Error; err != nil {
		return nil, err
	}
	return toDomainSnapshots(snapshotModels), nil
}

// Upsert inserts or replaces the snapshot for its (customer, date) pair
func (r *GormAgingSnapshotRepository) Upsert(ctx context.Context, snapshot *ar.AgingSnapshot) error {
	model := models.AgingSnapshotModelFromDomain(snapshot)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "customer_id"}, {Name: "snapshot_date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"current_amount", "days30_amount", "days60_amount",
				"days90_amount", "days120_plus_amount", "total_outstanding",
				"risk_score", "invoice_count", "updated_at",
			}),
		}).
		Create(model).Error
}

func toDomainSnapshots(snapshotModels []models.AgingSnapshotModel) []*ar.AgingSnapshot {
	snapshots := make([]*ar.AgingSnapshot, len(snapshotModels))
	for i := range snapshotModels {
		snapshots[i] = snapshotModels[i].ToDomain()
	}
	return snapshots
}

// Ensure GormAgingSnapshotRepository implements AgingSnapshotRepository
var _ ar.AgingSnapshotRepository = (*GormAgingSnapshotRepository)(nil)
