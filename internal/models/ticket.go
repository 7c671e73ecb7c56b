package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	ID            string         `bun:"id,pk" json:"id"`
	PurchaseID    string         `bun:"purchase_id,notnull" json:"purchaseId"`
	Seq           int            `bun:"seq,notnull,default:0" json:"-"`
	AttendeeName  string         `bun:"attendee_name,notnull" json:"attendeeName"`
	Gender        *string        `bun:"gender" json:"gender"`
	TicketType    string         `bun:"ticket_type,notnull" json:"ticketType"`
	Phone         string         `bun:"phone,notnull" json:"phone"`
	Status        PurchaseStatus `bun:"status,notnull" json:"status"`
	CheckedIn     bool           `bun:"checked_in,notnull,default:false" json:"checkedIn"`
	CheckedInAt   *time.Time     `bun:"checked_in_at" json:"checkedInAt"`
	QRCodeDataURL *string        `bun:"qr_code_data_url" json:"qrCodeDataUrl"`
	CreatedAt     time.Time      `bun:"created_at,notnull" json:"createdAt"`
}

// DisplayName prefixes the attendee name with an honorific derived from gender.
func (t *Ticket) DisplayName() string {
	if t.Gender == nil {
		return t.AttendeeName
	}
	switch *t.Gender {
	case "male":
		return "Mr. " + t.AttendeeName
	case "female":
		return "Miss. " + t.AttendeeName
	default:
		return t.AttendeeName
	}
}

type VerifyRequest struct {
	ID string `json:"id" validate:"required,uuid"`
}

type VerifyResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
	Name    string `json:"name,omitempty"`
}
