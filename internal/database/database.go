package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"dholratri-tickets/internal/config"
	"dholratri-tickets/internal/logger"
	"dholratri-tickets/internal/models"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const (
	maxRetries = 5
	retryDelay = 2 * time.Second
)

// Models lists every table in creation order.
var Models = []interface{}{
	(*models.Admin)(nil),
	(*models.Settings)(nil),
	(*models.Coupon)(nil),
	(*models.Purchase)(nil),
	(*models.Ticket)(nil),
	(*models.ActivityLog)(nil),
}

// Open connects to the configured driver, retrying the initial ping.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*bun.DB, error) {
	var (
		sqldb *sql.DB
		err   error
	)

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to %s (attempt %d/%d)", cfg.Driver, i+1, maxRetries))
		sqldb, err = openSQL(cfg)
		if err != nil {
			log.Error("DATABASE", fmt.Sprintf("Failed to open %s: %v", cfg.Driver, err))
		} else if err = sqldb.PingContext(ctx); err == nil {
			break
		} else {
			log.Error("DATABASE", fmt.Sprintf("Failed to connect to %s: %v", cfg.Driver, err))
			sqldb.Close()
		}

		if i < maxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to %s after %d attempts: %w", cfg.Driver, maxRetries, err)
	}

	log.Info("DATABASE", fmt.Sprintf("%s connection successful", cfg.Driver))
	return Wrap(sqldb, cfg.Driver), nil
}

func openSQL(cfg config.DatabaseConfig) (*sql.DB, error) {
	switch cfg.Driver {
	case "postgres":
		sqldb, err := sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, err
		}
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
		sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
		sqldb.SetConnMaxLifetime(cfg.MaxLifetime)
		return sqldb, nil
	case "sqlite":
		sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DSN)
		if err != nil {
			return nil, err
		}
		// sqlite allows a single writer
		sqldb.SetMaxOpenConns(1)
		return sqldb, nil
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
}

// Wrap attaches the bun dialect matching driver.
func Wrap(sqldb *sql.DB, driver string) *bun.DB {
	if driver == "sqlite" {
		return bun.NewDB(sqldb, sqlitedialect.New())
	}
	return bun.NewDB(sqldb, pgdialect.New())
}

// CreateSchema creates any missing tables and indexes straight from the models.
// Postgres deployments use the versioned migrations instead.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	for _, m := range Models {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", m, err)
		}
	}

	indexes := []struct {
		model  interface{}
		name   string
		column string
	}{
		{(*models.Purchase)(nil), "idx_purchases_phone", "phone"},
		{(*models.Purchase)(nil), "idx_purchases_status", "status"},
		{(*models.Ticket)(nil), "idx_tickets_purchase_id", "purchase_id"},
	}
	for _, idx := range indexes {
		if _, err := db.NewCreateIndex().Model(idx.model).Index(idx.name).Column(idx.column).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}
	return nil
}
