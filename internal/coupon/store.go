package coupon

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"dholratri-tickets/internal/models"

	"github.com/uptrace/bun"
)

type Store struct {
	db bun.IDB
}

func NewStore(db bun.IDB) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, code string) (*models.Coupon, error) {
	var c models.Coupon
	err := s.db.NewSelect().
		Model(&c).
		Where("code = ?", NormalizeCode(code)).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load coupon %s: %w", code, err)
	}
	return &c, nil
}

func (s *Store) Create(ctx context.Context, c *models.Coupon) error {
	res, err := s.db.NewInsert().
		Model(c).
		On("CONFLICT (code) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("insert coupon %s: %w", c.Code, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]models.Coupon, error) {
	coupons := []models.Coupon{}
	if err := s.db.NewSelect().Model(&coupons).Order("created_at DESC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	return coupons, nil
}

// IncrementUsage consumes one use of the coupon if any remain.
// ErrUsageLimit means the limit was reached or the coupon was disabled concurrently.
func (s *Store) IncrementUsage(ctx context.Context, code string) error {
	res, err := s.db.NewUpdate().
		Model((*models.Coupon)(nil)).
		Set("current_usage = current_usage + 1").
		Where("code = ?", NormalizeCode(code)).
		Where("active = ?", true).
		Where("(max_usage = 0 OR current_usage < max_usage)").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("increment coupon %s: %w", code, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUsageLimit
	}
	return nil
}
