package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	ActionApprovePurchase = "approve_purchase"
	ActionRejectPurchase  = "reject_purchase"
	ActionVerifyTicket    = "verify_ticket"
	ActionUpdateSettings  = "update_settings"
	ActionCreateCoupon    = "create_coupon"
)

type ActivityLog struct {
	bun.BaseModel `bun:"table:activity_logs" json:"-" bson:"-"`

	ID        string                 `bun:"id,pk" json:"id" bson:"_id"`
	UserID    string                 `bun:"user_id,notnull" json:"userId" bson:"userId"`
	Action    string                 `bun:"action,notnull" json:"action" bson:"action"`
	Details   map[string]interface{} `bun:"details,type:jsonb" json:"details" bson:"details"`
	Timestamp time.Time              `bun:"timestamp,notnull" json:"timestamp" bson:"timestamp"`
}
