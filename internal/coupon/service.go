package coupon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dholratri-tickets/internal/logger"
	"dholratri-tickets/internal/models"
)

// ErrInvalid wraps the reason a coupon cannot be applied.
var ErrInvalid = errors.New("coupon not applicable")

type Service struct {
	Store  *Store
	Logger *logger.Logger
	now    func() time.Time
}

func NewService(store *Store, log *logger.Logger) *Service {
	return &Service{Store: store, Logger: log, now: time.Now}
}

// Apply looks up code and evaluates it. Invalid coupons return an error wrapping
// ErrInvalid whose message is the reason.
func (s *Service) Apply(ctx context.Context, store *Store, code, ticketType string, subtotal float64) (*models.Coupon, *Result, error) {
	if store == nil {
		store = s.Store
	}
	c, err := store.Get(ctx, code)
	if err != nil {
		return nil, nil, err
	}

	res, err := Evaluate(c, ticketType, subtotal, s.now())
	if err != nil {
		return nil, nil, err
	}
	if !res.IsValid {
		return c, res, &InvalidError{Reason: res.Reason}
	}
	return c, res, nil
}

// Validate is the read-only check used before checkout.
func (s *Service) Validate(ctx context.Context, req models.CouponValidateRequest) (*models.AppliedCoupon, error) {
	c, res, err := s.Apply(ctx, nil, req.CouponCode, req.TicketType, req.BaseAmount)
	if err != nil {
		return nil, err
	}
	return &models.AppliedCoupon{
		Code:           c.Code,
		Type:           c.Type,
		Value:          c.Value,
		DiscountAmount: res.DiscountAmount,
	}, nil
}

func (s *Service) Create(ctx context.Context, req models.CouponRequest) (*models.Coupon, error) {
	if req.Type == models.PERCENTAGE && req.Value > 100 {
		return nil, &InvalidError{Reason: "Percentage coupons cannot exceed 100"}
	}
	if req.ActiveFrom != nil && req.ExpiresAt != nil && !req.ExpiresAt.After(*req.ActiveFrom) {
		return nil, &InvalidError{Reason: "expiresAt must be after activeFrom"}
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	tiers := req.ApplicableTiers
	if tiers == nil {
		tiers = []string{}
	}
	c := &models.Coupon{
		Code:            NormalizeCode(req.Code),
		Type:            req.Type,
		Value:           req.Value,
		MaxDiscount:     req.MaxDiscount,
		MinSpend:        req.MinSpend,
		MaxUsage:        req.MaxUsage,
		Active:          active,
		ActiveFrom:      req.ActiveFrom,
		ExpiresAt:       req.ExpiresAt,
		ApplicableTiers: tiers,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.Store.Create(ctx, c); err != nil {
		return nil, err
	}
	s.Logger.Info("COUPON", fmt.Sprintf("Created coupon %s (%s %.2f)", c.Code, c.Type, c.Value))
	return c, nil
}

func (s *Service) List(ctx context.Context) ([]models.Coupon, error) {
	return s.Store.List(ctx)
}

// InvalidError carries a human readable reason.
type InvalidError struct {
	Reason string
}

func (e *InvalidError) Error() string { return e.Reason }

func (e *InvalidError) Unwrap() error { return ErrInvalid }
