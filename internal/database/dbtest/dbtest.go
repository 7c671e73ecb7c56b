// Package dbtest opens throwaway SQLite databases for package tests.
package dbtest

import (
	"context"
	"database/sql"
	"testing"

	"dholratri-tickets/internal/database"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// New returns an in-memory database with the full schema, closed on cleanup.
func New(t testing.TB) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}
	// every statement must see the same in-memory database
	sqldb.SetMaxOpenConns(1)

	bunDB := database.Wrap(sqldb, "sqlite")
	if err := database.CreateSchema(context.Background(), bunDB); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	t.Cleanup(func() { bunDB.Close() })
	return bunDB
}
