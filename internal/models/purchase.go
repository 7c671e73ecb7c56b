package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// PurchaseStatus is shared by a purchase and all of its tickets.
type PurchaseStatus string

const (
	StatusPaymentPending PurchaseStatus = "payment-pending"
	StatusBooked         PurchaseStatus = "booked"
	StatusApproved       PurchaseStatus = "approved"
	StatusRejected       PurchaseStatus = "rejected"
)

var ErrInvalidTransition = errors.New("invalid status transition")

var transitions = map[PurchaseStatus][]PurchaseStatus{
	StatusPaymentPending: {StatusBooked},
	StatusBooked:         {StatusApproved, StatusRejected},
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s PurchaseStatus) CanTransitionTo(next PurchaseStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ValidateTransition returns ErrInvalidTransition wrapped with both states.
func ValidateTransition(from, to PurchaseStatus) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

func (s PurchaseStatus) Valid() bool {
	switch s {
	case StatusPaymentPending, StatusBooked, StatusApproved, StatusRejected:
		return true
	}
	return false
}

func (s PurchaseStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

type Purchase struct {
	bun.BaseModel `bun:"table:purchases"`

	ID                    string         `bun:"id,pk" json:"id"`
	Phone                 string         `bun:"phone,notnull" json:"phone"`
	TicketType            string         `bun:"ticket_type,notnull" json:"ticketType"`
	TicketCount           int            `bun:"ticket_count,notnull" json:"ticketCount"`
	Status                PurchaseStatus `bun:"status,notnull" json:"status"`
	UTR                   *string        `bun:"utr" json:"utr"`
	ScreenshotPath        *string        `bun:"screenshot_path" json:"screenshotPath"`
	AppliedCoupon         *string        `bun:"applied_coupon" json:"appliedCoupon"`
	BaseAmount            float64        `bun:"base_amount,notnull,default:0" json:"baseAmount"`
	DiscountAmount        float64        `bun:"discount_amount,notnull,default:0" json:"discountAmount"`
	FinalAmountPaid       float64        `bun:"final_amount_paid,notnull,default:0" json:"finalAmountPaid"`
	ClientFinalAmount     *float64       `bun:"client_final_amount" json:"clientFinalAmount,omitempty"`
	WantsMarketingUpdates bool           `bun:"wants_marketing_updates,notnull,default:false" json:"wantsMarketingUpdates"`
	CreatedAt             time.Time      `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt             time.Time      `bun:"updated_at,notnull" json:"updatedAt"`
}

// PurchaseWithAttendees is the admin review view of a purchase.
type PurchaseWithAttendees struct {
	Purchase
	Attendees []string `json:"attendees"`
}

// AttendeeInput accepts either {"name": "...", "gender": "..."} or a bare string.
type AttendeeInput struct {
	Name   string `json:"name" validate:"required,min=1,max=100"`
	Gender string `json:"gender,omitempty" validate:"omitempty,oneof=male female other"`
}

type PurchaseRequest struct {
	Phone                 string          `json:"phone" validate:"required,phone"`
	Attendees             []AttendeeInput `json:"attendees" validate:"required,min=1,max=20,dive"`
	TicketType            string          `json:"ticketType" validate:"required,min=1,max=50"`
	AppliedCoupon         string          `json:"appliedCoupon,omitempty" validate:"omitempty,max=50"`
	FinalAmountPaid       *float64        `json:"finalAmountPaid,omitempty" validate:"omitempty,gte=0"`
	WantsMarketingUpdates bool            `json:"wantsMarketingUpdates,omitempty"`
}

type PurchaseResponse struct {
	Message        string  `json:"message"`
	PurchaseID     string  `json:"purchaseId"`
	BaseAmount     float64 `json:"baseAmount"`
	DiscountAmount float64 `json:"discountAmount"`
	FinalAmount    float64 `json:"finalAmount"`
}
