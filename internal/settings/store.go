package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"dholratri-tickets/internal/models"

	"github.com/uptrace/bun"
)

var ErrNotFound = errors.New("settings not configured")

type Store struct {
	db bun.IDB
}

func NewStore(db bun.IDB) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context) (*models.Settings, error) {
	var st models.Settings
	err := s.db.NewSelect().
		Model(&st).
		Where("id = ?", models.SettingsID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return &st, nil
}

// Upsert writes the singleton row. payment_qr_url is only replaced when st carries one.
func (s *Store) Upsert(ctx context.Context, st *models.Settings) error {
	st.ID = models.SettingsID

	q := s.db.NewInsert().
		Model(st).
		On("CONFLICT (id) DO UPDATE").
		Set("event_name = EXCLUDED.event_name").
		Set("payment_upi_id = EXCLUDED.payment_upi_id").
		Set("tiers = EXCLUDED.tiers").
		Set("updated_at = EXCLUDED.updated_at")
	if st.PaymentQrURL != nil {
		q = q.Set("payment_qr_url = EXCLUDED.payment_qr_url")
	}
	if _, err := q.Exec(ctx); err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}
