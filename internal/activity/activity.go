package activity

import (
	"context"
	"fmt"
	"time"

	"dholratri-tickets/internal/models"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Recorder appends audit entries. Entries are never updated or deleted.
type Recorder interface {
	Record(ctx context.Context, userID, action string, details map[string]interface{}) error
}

func newEntry(userID, action string, details map[string]interface{}) *models.ActivityLog {
	return &models.ActivityLog{
		ID:        uuid.New().String(),
		UserID:    userID,
		Action:    action,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
}

// BunRecorder stores entries in the activity_logs table.
type BunRecorder struct {
	db bun.IDB
}

func NewBunRecorder(db bun.IDB) *BunRecorder {
	return &BunRecorder{db: db}
}

func (r *BunRecorder) Record(ctx context.Context, userID, action string, details map[string]interface{}) error {
	entry := newEntry(userID, action, details)
	if _, err := r.db.NewInsert().Model(entry).Exec(ctx); err != nil {
		return fmt.Errorf("insert activity log: %w", err)
	}
	return nil
}

// NoopRecorder discards entries.
type NoopRecorder struct{}

func (NoopRecorder) Record(context.Context, string, string, map[string]interface{}) error { return nil }
