package models

import (
	"time"

	"github.com/uptrace/bun"
)

type CouponType string

const (
	PERCENTAGE CouponType = "PERCENTAGE"
	FLAT_OFF   CouponType = "FLAT_OFF"
)

type Coupon struct {
	bun.BaseModel `bun:"table:coupons"`

	Code            string     `bun:"code,pk" json:"code"`
	Type            CouponType `bun:"type,notnull" json:"type"`
	Value           float64    `bun:"value,notnull" json:"value"`
	MaxDiscount     *float64   `bun:"max_discount" json:"maxDiscount,omitempty"`
	MinSpend        *float64   `bun:"min_spend" json:"minSpend,omitempty"`
	MaxUsage        int        `bun:"max_usage,notnull,default:0" json:"maxUsage"`
	CurrentUsage    int        `bun:"current_usage,notnull,default:0" json:"currentUsage"`
	Active          bool       `bun:"active,notnull,default:true" json:"active"`
	ActiveFrom      *time.Time `bun:"active_from" json:"activeFrom,omitempty"`
	ExpiresAt       *time.Time `bun:"expires_at" json:"expiresAt,omitempty"`
	ApplicableTiers []string   `bun:"applicable_tiers,type:jsonb" json:"applicableTiers"`
	CreatedAt       time.Time  `bun:"created_at,notnull" json:"createdAt"`
}

type CouponRequest struct {
	Code            string     `json:"code" validate:"required,min=3,max=50,alphanum"`
	Type            CouponType `json:"type" validate:"required,oneof=PERCENTAGE FLAT_OFF"`
	Value           float64    `json:"value" validate:"gt=0"`
	MaxDiscount     *float64   `json:"maxDiscount,omitempty" validate:"omitempty,gt=0"`
	MinSpend        *float64   `json:"minSpend,omitempty" validate:"omitempty,gte=0"`
	MaxUsage        int        `json:"maxUsage" validate:"gte=0"`
	Active          *bool      `json:"active,omitempty"`
	ActiveFrom      *time.Time `json:"activeFrom,omitempty"`
	ExpiresAt       *time.Time `json:"expiresAt,omitempty"`
	ApplicableTiers []string   `json:"applicableTiers,omitempty"`
}

type CouponValidateRequest struct {
	CouponCode string  `json:"couponCode" validate:"required,max=50"`
	TicketType string  `json:"ticketType,omitempty" validate:"max=50"`
	BaseAmount float64 `json:"baseAmount,omitempty" validate:"gte=0"`
}

type AppliedCoupon struct {
	Code           string     `json:"code"`
	Type           CouponType `json:"type"`
	Value          float64    `json:"value"`
	DiscountAmount float64    `json:"discountAmount"`
}
