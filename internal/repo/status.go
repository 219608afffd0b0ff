package repo

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/warehouse/internal/models"
)

// SeedStatuses inserts the given statuses, skipping rows whose id or
// description already exist.
func (r *GormRepo) SeedStatuses(ctx context.Context, statuses []models.Status) error {
	if len(statuses) == 0 {
		return nil
	}
	rows := make([]models.Status, len(statuses))
	copy(rows, statuses)
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

func (r *GormRepo) ListStatuses(ctx context.Context) ([]models.Status, error) {
	statuses := make([]models.Status, 0, 3)
	if err := r.DB.WithContext(ctx).Order("id ASC").Find(&statuses).Error; err != nil {
		return nil, err
	}
	return statuses, nil
}
