// Package dbtest opens throwaway databases for tests: in-memory SQLite by
// default, or the Postgres database named by TEST_DATABASE_URL.
package dbtest

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/Skotchmaster/warehouse/internal/config"
	"github.com/Skotchmaster/warehouse/internal/db"
)

var tables = []string{
	"order_items",
	"orders",
	"statuses",
	"products",
}

func New(t *testing.T) *gorm.DB {
	t.Helper()

	ctx := context.Background()
	driver, dsn := config.DriverSQLite, ":memory:"
	if url := os.Getenv("TEST_DATABASE_URL"); url != "" {
		driver, dsn = config.DriverPostgres, url
	}

	gdb, err := db.Open(ctx, driver, dsn, nil)
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.Migrate(ctx, gdb); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	if driver == config.DriverPostgres {
		truncate(t, gdb)
	}

	t.Cleanup(func() {
		if driver == config.DriverPostgres {
			truncate(t, gdb)
		}
		_ = db.Close(gdb)
	})

	return gdb
}

func truncate(t *testing.T, gdb *gorm.DB) {
	t.Helper()

	quoted := make([]string, 0, len(tables))
	for _, tbl := range tables {
		quoted = append(quoted, pq.QuoteIdentifier(tbl))
	}
	query := fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", strings.Join(quoted, ", "))
	if err := gdb.Exec(query).Error; err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}
}
