package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dholratri-tickets/internal/models"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var ErrAdminNotFound = errors.New("admin not found")

type AdminStore struct {
	Bun bun.IDB
}

func NewAdminStore(db bun.IDB) *AdminStore {
	return &AdminStore{Bun: db}
}

func (s *AdminStore) GetByUsername(ctx context.Context, username string) (*models.Admin, error) {
	var admin models.Admin
	err := s.Bun.NewSelect().
		Model(&admin).
		Where("username = ?", username).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAdminNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load admin %q: %w", username, err)
	}
	return &admin, nil
}

// InsertIfAbsent creates the admin unless the username is taken and
// reports whether a row was written. Existing credentials are left untouched.
func (s *AdminStore) InsertIfAbsent(ctx context.Context, username, passwordHash string) (bool, error) {
	admin := &models.Admin{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	res, err := s.Bun.NewInsert().
		Model(admin).
		On("CONFLICT (username) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("insert admin %q: %w", username, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
