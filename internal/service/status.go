package service

import (
	"context"
	"fmt"

	"github.com/Skotchmaster/warehouse/internal/models"
	"github.com/Skotchmaster/warehouse/internal/repo"
)

type StatusCatalog struct {
	Repo *repo.GormRepo
}

// EnsureSeeded inserts the fixed statuses. Rows that already exist are left
// alone, so it is safe to call on every start.
func (s *StatusCatalog) EnsureSeeded(ctx context.Context) error {
	if err := s.Repo.SeedStatuses(ctx, models.DefaultStatuses); err != nil {
		return fmt.Errorf("seed statuses: %w", err)
	}
	return nil
}

func (s *StatusCatalog) List(ctx context.Context) ([]models.Status, error) {
	return s.Repo.ListStatuses(ctx)
}
