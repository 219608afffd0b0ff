package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/warehouse/internal/models"
)

func TestStatusCatalog_EnsureSeededTwice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.Statuses.EnsureSeeded(ctx))

	statuses, err := env.Statuses.List(ctx)
	require.NoError(t, err)
	require.Equal(t, models.DefaultStatuses, statuses)
}
