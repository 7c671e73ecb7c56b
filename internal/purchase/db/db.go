package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dholratri-tickets/internal/coupon"
	"dholratri-tickets/internal/models"

	"github.com/uptrace/bun"
)

var (
	ErrNotFound      = errors.New("purchase not found")
	ErrStateConflict = errors.New("purchase is not in the expected state")
)

// DB is the purchase data layer. Inside RunInTx every call goes through the transaction.
type DB struct {
	Bun *bun.DB
	tx  bun.IDB
}

func New(bunDB *bun.DB) *DB {
	return &DB{Bun: bunDB}
}

func (d *DB) conn() bun.IDB {
	if d.tx != nil {
		return d.tx
	}
	return d.Bun
}

// RunInTx runs fn in a transaction and commits when it returns nil.
// Nested calls join the outer transaction.
func (d *DB) RunInTx(ctx context.Context, fn func(ctx context.Context, tx *DB) error) error {
	if d.tx != nil {
		return fn(ctx, d)
	}
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &DB{Bun: d.Bun, tx: tx})
	})
}

// Coupons returns a coupon store bound to the same connection or transaction.
func (d *DB) Coupons() *coupon.Store {
	return coupon.NewStore(d.conn())
}

// CreatePurchase inserts the purchase and its tickets. Call inside RunInTx.
func (d *DB) CreatePurchase(ctx context.Context, p *models.Purchase, tickets []models.Ticket) error {
	if _, err := d.conn().NewInsert().Model(p).Exec(ctx); err != nil {
		return fmt.Errorf("insert purchase: %w", err)
	}
	if len(tickets) == 0 {
		return nil
	}
	if _, err := d.conn().NewInsert().Model(&tickets).Exec(ctx); err != nil {
		return fmt.Errorf("insert tickets: %w", err)
	}
	return nil
}

func (d *DB) GetPurchase(ctx context.Context, id string) (*models.Purchase, error) {
	var p models.Purchase
	err := d.conn().NewSelect().
		Model(&p).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load purchase %s: %w", id, err)
	}
	return &p, nil
}

// Assignment is an extra column set alongside a status transition.
type Assignment struct {
	Column string
	Value  interface{}
}

// TransitionPurchase moves a purchase from one status to another with a
// conditional update. ErrStateConflict means no row was in state from.
func (d *DB) TransitionPurchase(ctx context.Context, id string, from, to models.PurchaseStatus, extra ...Assignment) error {
	if err := models.ValidateTransition(from, to); err != nil {
		return err
	}

	q := d.conn().NewUpdate().
		Model((*models.Purchase)(nil)).
		Set("status = ?", to).
		Set("updated_at = ?", time.Now().UTC())
	for _, a := range extra {
		q = q.Set("? = ?", bun.Ident(a.Column), a.Value)
	}
	res, err := q.
		Where("id = ?", id).
		Where("status = ?", from).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update purchase %s to %s: %w", id, to, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStateConflict
	}
	return nil
}

// TransitionTickets cascades a status change to every ticket of a purchase
// and returns how many moved.
func (d *DB) TransitionTickets(ctx context.Context, purchaseID string, from, to models.PurchaseStatus) (int64, error) {
	if err := models.ValidateTransition(from, to); err != nil {
		return 0, err
	}
	res, err := d.conn().NewUpdate().
		Model((*models.Ticket)(nil)).
		Set("status = ?", to).
		Where("purchase_id = ?", purchaseID).
		Where("status = ?", from).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("update tickets of %s to %s: %w", purchaseID, to, err)
	}
	return res.RowsAffected()
}

// ApproveTicket marks a booked ticket approved and attaches its QR code.
func (d *DB) ApproveTicket(ctx context.Context, ticketID, qrDataURL string) error {
	res, err := d.conn().NewUpdate().
		Model((*models.Ticket)(nil)).
		Set("status = ?", models.StatusApproved).
		Set("qr_code_data_url = ?", qrDataURL).
		Where("id = ?", ticketID).
		Where("status = ?", models.StatusBooked).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("approve ticket %s: %w", ticketID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("ticket %s: %w", ticketID, ErrStateConflict)
	}
	return nil
}

// TicketsByPurchase returns tickets in attendee order.
func (d *DB) TicketsByPurchase(ctx context.Context, purchaseID string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := d.conn().NewSelect().
		Model(&tickets).
		Where("purchase_id = ?", purchaseID).
		Order("seq ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tickets of %s: %w", purchaseID, err)
	}
	return tickets, nil
}

// ListByStatus returns purchases in status, oldest first, with attendee names.
func (d *DB) ListByStatus(ctx context.Context, status models.PurchaseStatus) ([]models.PurchaseWithAttendees, error) {
	var purchases []models.Purchase
	err := d.conn().NewSelect().
		Model(&purchases).
		Where("status = ?", status).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}

	out := make([]models.PurchaseWithAttendees, 0, len(purchases))
	if len(purchases) == 0 {
		return out, nil
	}

	ids := make([]string, len(purchases))
	for i, p := range purchases {
		ids[i] = p.ID
	}
	var tickets []models.Ticket
	err = d.conn().NewSelect().
		Model(&tickets).
		Column("purchase_id", "attendee_name", "seq").
		Where("purchase_id IN (?)", bun.In(ids)).
		Order("purchase_id ASC", "seq ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}

	names := make(map[string][]string, len(purchases))
	for _, t := range tickets {
		names[t.PurchaseID] = append(names[t.PurchaseID], t.AttendeeName)
	}
	for _, p := range purchases {
		attendees := names[p.ID]
		if attendees == nil {
			attendees = []string{}
		}
		out = append(out, models.PurchaseWithAttendees{Purchase: p, Attendees: attendees})
	}
	return out, nil
}
