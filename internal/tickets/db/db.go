package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dholratri-tickets/internal/models"

	"github.com/uptrace/bun"
)

var (
	ErrNotFound        = errors.New("ticket not found")
	ErrCheckInConflict = errors.New("ticket not eligible for check-in")
)

type DB struct {
	Bun bun.IDB
}

func New(db bun.IDB) *DB {
	return &DB{Bun: db}
}

func (d *DB) GetTicketByID(ctx context.Context, id string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load ticket %s: %w", id, err)
	}
	return &ticket, nil
}

// CheckIn flips checked_in once. ErrCheckInConflict means the ticket was
// already checked in or is no longer approved.
func (d *DB) CheckIn(ctx context.Context, id string, at time.Time) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Ticket)(nil)).
		Set("checked_in = ?", true).
		Set("checked_in_at = ?", at).
		Where("id = ?", id).
		Where("checked_in = ?", false).
		Where("status = ?", models.StatusApproved).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("check in ticket %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCheckInConflict
	}
	return nil
}

// PurchasesByPhone returns the purchases made with phone, oldest first.
func (d *DB) PurchasesByPhone(ctx context.Context, phone string) ([]models.Purchase, error) {
	var purchases []models.Purchase
	err := d.Bun.NewSelect().
		Model(&purchases).
		Where("phone = ?", phone).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load purchases for phone: %w", err)
	}
	return purchases, nil
}

// TicketsByPurchases returns the tickets of the given purchases whose status is
// in statuses, grouped by purchase in attendee order.
func (d *DB) TicketsByPurchases(ctx context.Context, purchaseIDs []string, statuses []models.PurchaseStatus) ([]models.Ticket, error) {
	tickets := []models.Ticket{}
	if len(purchaseIDs) == 0 {
		return tickets, nil
	}
	err := d.Bun.NewSelect().
		Model(&tickets).
		Where("purchase_id IN (?)", bun.In(purchaseIDs)).
		Where("status IN (?)", bun.In(statuses)).
		Order("created_at ASC", "purchase_id ASC", "seq ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tickets: %w", err)
	}
	return tickets, nil
}
