package purchase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"dholratri-tickets/internal/activity"
	"dholratri-tickets/internal/coupon"
	"dholratri-tickets/internal/logger"
	"dholratri-tickets/internal/media"
	"dholratri-tickets/internal/models"
	pdb "dholratri-tickets/internal/purchase/db"
	"dholratri-tickets/internal/settings"

	"github.com/google/uuid"
)

var (
	ErrInvalidTicketType   = errors.New("invalid ticket type")
	ErrNotFound            = pdb.ErrNotFound
	ErrNotPending          = errors.New("pending purchase not found or already processed")
	ErrNotAwaitingApproval = errors.New("purchase is not awaiting approval")
	ErrNoTickets           = errors.New("no tickets found for this purchase")
	ErrConfirmInProgress   = errors.New("payment confirmation already in progress")
)

type SettingsReader interface {
	Get(ctx context.Context) (*models.Settings, error)
}

type EventPublisher interface {
	PublishPurchaseEvent(ctx context.Context, evt models.PurchaseEvent) error
}

type FeedEmitter interface {
	Emit(evt models.PurchaseEvent)
}

// Locker serializes work on one purchase across API instances.
type Locker interface {
	Acquire(ctx context.Context, purchaseID, owner string) (bool, error)
	Release(ctx context.Context, purchaseID, owner string) error
}

type QRGenerator interface {
	DataURL(ticketID string) (string, error)
}

type Service struct {
	DB       *pdb.DB
	Settings SettingsReader
	Coupons  *coupon.Service
	Media    media.Store
	QR       QRGenerator
	Lock     Locker
	Events   EventPublisher
	Feed     FeedEmitter
	Audit    activity.Recorder
	Logger   *logger.Logger
}

// Quote is the server-side price of a purchase.
type Quote struct {
	Tier           models.Tier
	Passes         int
	BaseAmount     float64
	DiscountAmount float64
	FinalAmount    float64
	Coupon         *models.Coupon
}

// Initiate prices the request, consumes the coupon and stores the purchase
// with one ticket per attendee, all in payment-pending.
func (s *Service) Initiate(ctx context.Context, req models.PurchaseRequest) (*models.PurchaseResponse, error) {
	phone := strings.TrimSpace(req.Phone)

	st, err := s.Settings.Get(ctx)
	if errors.Is(err, settings.ErrNotFound) {
		s.Logger.Warn("PURCHASE", "Initiate called before settings were configured")
		return nil, ErrInvalidTicketType
	}
	if err != nil {
		return nil, err
	}
	tier, ok := st.TierByID(req.TicketType)
	if !ok {
		return nil, ErrInvalidTicketType
	}

	now := time.Now().UTC()
	p := &models.Purchase{
		ID:                    uuid.New().String(),
		Phone:                 phone,
		TicketType:            tier.ID,
		TicketCount:           len(req.Attendees),
		Status:                models.StatusPaymentPending,
		ClientFinalAmount:     req.FinalAmountPaid,
		WantsMarketingUpdates: req.WantsMarketingUpdates,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	tickets := make([]models.Ticket, len(req.Attendees))
	for i, a := range req.Attendees {
		tickets[i] = models.Ticket{
			ID:           uuid.New().String(),
			PurchaseID:   p.ID,
			Seq:          i,
			AttendeeName: strings.TrimSpace(a.Name),
			TicketType:   tier.ID,
			Phone:        phone,
			Status:       models.StatusPaymentPending,
			CreatedAt:    now,
		}
		if a.Gender != "" {
			g := a.Gender
			tickets[i].Gender = &g
		}
	}

	var quote *Quote
	err = s.DB.RunInTx(ctx, func(ctx context.Context, tx *pdb.DB) error {
		q, err := s.quote(ctx, tx, tier, len(req.Attendees), req.AppliedCoupon)
		if err != nil {
			return err
		}
		if q.Coupon != nil {
			if err := tx.Coupons().IncrementUsage(ctx, q.Coupon.Code); err != nil {
				return err
			}
			code := q.Coupon.Code
			p.AppliedCoupon = &code
		}
		p.BaseAmount = q.BaseAmount
		p.DiscountAmount = q.DiscountAmount
		p.FinalAmountPaid = q.FinalAmount
		quote = q
		return tx.CreatePurchase(ctx, p, tickets)
	})
	if err != nil {
		return nil, err
	}

	if p.ClientFinalAmount != nil && math.Abs(*p.ClientFinalAmount-p.FinalAmountPaid) >= 0.01 {
		s.Logger.Warn("PURCHASE", fmt.Sprintf("Purchase %s: client total %.2f differs from server total %.2f", p.ID, *p.ClientFinalAmount, p.FinalAmountPaid))
	}
	s.Logger.LogPurchase("INITIATE", p.ID, fmt.Sprintf("%d x %s, %d pass(es), total %.2f", p.TicketCount, p.TicketType, quote.Passes, p.FinalAmountPaid))
	s.publish(ctx, models.NewPurchaseEvent(models.EventPurchaseInitiated, p), false)

	return &models.PurchaseResponse{
		Message:        "Purchase initiated. Please proceed to payment.",
		PurchaseID:     p.ID,
		BaseAmount:     p.BaseAmount,
		DiscountAmount: p.DiscountAmount,
		FinalAmount:    p.FinalAmountPaid,
	}, nil
}

// quote prices attendees on tier and applies couponCode when given.
func (s *Service) quote(ctx context.Context, tx *pdb.DB, tier models.Tier, attendees int, couponCode string) (*Quote, error) {
	passes := tier.PassesFor(attendees)
	q := &Quote{
		Tier:       tier,
		Passes:     passes,
		BaseAmount: roundMoney(float64(passes) * tier.Price),
	}
	q.FinalAmount = q.BaseAmount

	code := coupon.NormalizeCode(couponCode)
	if code == "" || code == "NONE" {
		return q, nil
	}

	c, res, err := s.Coupons.Apply(ctx, tx.Coupons(), code, tier.ID, q.BaseAmount)
	if err != nil {
		return nil, err
	}
	q.Coupon = c
	q.DiscountAmount = res.DiscountAmount
	q.FinalAmount = roundMoney(q.BaseAmount - res.DiscountAmount)
	return q, nil
}

// ConfirmPayment stores the UTR and screenshot and moves the purchase and its
// tickets from payment-pending to booked.
func (s *Service) ConfirmPayment(ctx context.Context, id, utr string, screenshot io.Reader) error {
	existing, err := s.DB.GetPurchase(ctx, id)
	if errors.Is(err, pdb.ErrNotFound) {
		return ErrNotPending
	}
	if err != nil {
		return err
	}
	if existing.Status != models.StatusPaymentPending {
		return ErrNotPending
	}

	if s.Lock != nil {
		owner := uuid.New().String()
		ok, err := s.Lock.Acquire(ctx, id, owner)
		if err != nil {
			// redis being down must not block payments
			s.Logger.Warn("REDIS", fmt.Sprintf("Confirm lock unavailable for %s: %v", id, err))
		} else if !ok {
			return ErrConfirmInProgress
		} else {
			defer func() {
				if err := s.Lock.Release(context.WithoutCancel(ctx), id, owner); err != nil {
					s.Logger.Warn("REDIS", fmt.Sprintf("Failed to release confirm lock for %s: %v", id, err))
				}
			}()
		}
	}

	url, err := s.Media.UploadScreenshot(ctx, screenshot, id)
	if err != nil {
		return fmt.Errorf("upload screenshot: %w", err)
	}

	var p *models.Purchase
	err = s.DB.RunInTx(ctx, func(ctx context.Context, tx *pdb.DB) error {
		err := tx.TransitionPurchase(ctx, id, models.StatusPaymentPending, models.StatusBooked,
			pdb.Assignment{Column: "utr", Value: utr},
			pdb.Assignment{Column: "screenshot_path", Value: url},
		)
		if errors.Is(err, pdb.ErrStateConflict) {
			return ErrNotPending
		}
		if err != nil {
			return err
		}
		if _, err := tx.TransitionTickets(ctx, id, models.StatusPaymentPending, models.StatusBooked); err != nil {
			return err
		}
		p, err = tx.GetPurchase(ctx, id)
		return err
	})
	if err != nil {
		return err
	}

	s.Logger.LogPurchase("CONFIRM", id, "payment proof received, awaiting review")
	s.publish(ctx, models.NewPurchaseEvent(models.EventPurchaseConfirmed, p), true)
	return nil
}

// Approve issues a QR code for every ticket and marks the purchase approved.
// It returns the attendee names in booking order.
func (s *Service) Approve(ctx context.Context, id, actorID string) ([]string, error) {
	var (
		p     *models.Purchase
		names []string
	)
	err := s.DB.RunInTx(ctx, func(ctx context.Context, tx *pdb.DB) error {
		if err := s.review(ctx, tx, id, models.StatusApproved); err != nil {
			return err
		}

		tickets, err := tx.TicketsByPurchase(ctx, id)
		if err != nil {
			return err
		}
		if len(tickets) == 0 {
			return ErrNoTickets
		}

		names = make([]string, 0, len(tickets))
		for _, t := range tickets {
			qrURL, err := s.QR.DataURL(t.ID)
			if err != nil {
				return fmt.Errorf("qr for ticket %s: %w", t.ID, err)
			}
			if err := tx.ApproveTicket(ctx, t.ID, qrURL); err != nil {
				return err
			}
			names = append(names, t.AttendeeName)
		}

		p, err = tx.GetPurchase(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Logger.LogPurchase("APPROVE", id, fmt.Sprintf("%d tickets issued", len(names)))
	s.record(ctx, actorID, models.ActionApprovePurchase, map[string]interface{}{
		"purchaseId":  id,
		"ticketCount": len(names),
	})
	evt := models.NewPurchaseEvent(models.EventPurchaseApproved, p)
	evt.Attendees = names
	evt.ActorID = actorID
	s.publish(ctx, evt, true)
	return names, nil
}

// Reject marks a booked purchase and all of its tickets rejected. No QR codes are issued.
func (s *Service) Reject(ctx context.Context, id, actorID string) error {
	var p *models.Purchase
	err := s.DB.RunInTx(ctx, func(ctx context.Context, tx *pdb.DB) error {
		if err := s.review(ctx, tx, id, models.StatusRejected); err != nil {
			return err
		}

		n, err := tx.TransitionTickets(ctx, id, models.StatusBooked, models.StatusRejected)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNoTickets
		}

		p, err = tx.GetPurchase(ctx, id)
		return err
	})
	if err != nil {
		return err
	}

	s.Logger.LogPurchase("REJECT", id, "booking rejected")
	s.record(ctx, actorID, models.ActionRejectPurchase, map[string]interface{}{"purchaseId": id})
	evt := models.NewPurchaseEvent(models.EventPurchaseRejected, p)
	evt.ActorID = actorID
	s.publish(ctx, evt, true)
	return nil
}

// review flips booked to decision, telling an unknown id apart from a wrong state.
func (s *Service) review(ctx context.Context, tx *pdb.DB, id string, decision models.PurchaseStatus) error {
	err := tx.TransitionPurchase(ctx, id, models.StatusBooked, decision)
	if !errors.Is(err, pdb.ErrStateConflict) {
		return err
	}
	if _, err := tx.GetPurchase(ctx, id); err != nil {
		return err
	}
	return ErrNotAwaitingApproval
}

// ListByStatus returns purchases for the admin review queue.
func (s *Service) ListByStatus(ctx context.Context, status models.PurchaseStatus) ([]models.PurchaseWithAttendees, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", models.ErrInvalidTransition, status)
	}
	return s.DB.ListByStatus(ctx, status)
}

// publish runs after commit. Failures are logged and never surface to the caller.
func (s *Service) publish(ctx context.Context, evt models.PurchaseEvent, feed bool) {
	if feed && s.Feed != nil {
		s.Feed.Emit(evt)
	}
	if s.Events == nil {
		return
	}
	if err := s.Events.PublishPurchaseEvent(ctx, evt); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish %s for %s: %v", evt.Type, evt.PurchaseID, err))
	}
}

func (s *Service) record(ctx context.Context, actorID, action string, details map[string]interface{}) {
	if s.Audit == nil {
		return
	}
	if err := s.Audit.Record(ctx, actorID, action, details); err != nil {
		s.Logger.Error("ACTIVITY", fmt.Sprintf("Failed to log %s: %v", action, err))
	}
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
