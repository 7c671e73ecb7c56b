package coupon

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"dholratri-tickets/internal/models"
)

var (
	ErrNotFound        = errors.New("coupon not found")
	ErrUsageLimit      = errors.New("coupon usage limit reached")
	ErrAlreadyExists   = errors.New("coupon already exists")
	ErrUnsupportedType = errors.New("unsupported coupon type")
)

// Result is the outcome of evaluating a coupon against a subtotal.
type Result struct {
	IsValid        bool
	DiscountAmount float64
	Reason         string
}

// NormalizeCode upper-cases and trims a coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Evaluate checks c against the ticket type and subtotal at time now.
// An invalid coupon returns IsValid=false with a Reason; a malformed one returns an error.
func Evaluate(c *models.Coupon, ticketType string, subtotal float64, now time.Time) (*Result, error) {
	result := &Result{}

	if c == nil {
		result.Reason = "Coupon not found"
		return result, nil
	}

	if !c.Active {
		result.Reason = "Coupon is not active"
		return result, nil
	}
	if c.ActiveFrom != nil && now.Before(*c.ActiveFrom) {
		result.Reason = "Coupon is not yet active"
		return result, nil
	}
	if c.ExpiresAt != nil && !now.Before(*c.ExpiresAt) {
		result.Reason = "Coupon has expired"
		return result, nil
	}

	if c.MaxUsage > 0 && c.CurrentUsage >= c.MaxUsage {
		result.Reason = "Coupon usage limit has been reached"
		return result, nil
	}

	if len(c.ApplicableTiers) > 0 && ticketType != "" {
		applicable := false
		for _, tier := range c.ApplicableTiers {
			if tier == ticketType {
				applicable = true
				break
			}
		}
		if !applicable {
			result.Reason = "Coupon is not applicable to this ticket type"
			return result, nil
		}
	}

	if c.MinSpend != nil && subtotal < *c.MinSpend {
		result.Reason = fmt.Sprintf("Order total does not meet minimum spend requirement of %.2f", *c.MinSpend)
		return result, nil
	}

	var discount float64
	switch c.Type {
	case models.FLAT_OFF:
		discount = c.Value
	case models.PERCENTAGE:
		if c.Value > 100 {
			return nil, fmt.Errorf("percentage coupon %s has value %.2f", c.Code, c.Value)
		}
		discount = subtotal * c.Value / 100
		if c.MaxDiscount != nil && discount > *c.MaxDiscount {
			discount = *c.MaxDiscount
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, c.Type)
	}

	// never discount below zero
	if discount > subtotal {
		discount = subtotal
	}

	result.IsValid = true
	result.DiscountAmount = roundMoney(discount)
	return result, nil
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
