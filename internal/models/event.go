package models

import "time"

const (
	EventPurchaseInitiated = "purchase.initiated"
	EventPurchaseConfirmed = "purchase.confirmed"
	EventPurchaseApproved  = "purchase.approved"
	EventPurchaseRejected  = "purchase.rejected"
	EventTicketCheckedIn   = "ticket.checked_in"
)

// PurchaseEvent is published to Kafka and streamed to admin dashboards.
type PurchaseEvent struct {
	Type        string         `json:"type"`
	PurchaseID  string         `json:"purchaseId"`
	Phone       string         `json:"phone"`
	TicketType  string         `json:"ticketType"`
	TicketCount int            `json:"ticketCount"`
	Status      PurchaseStatus `json:"status"`
	FinalAmount float64        `json:"finalAmount"`
	Attendees   []string       `json:"attendees,omitempty"`
	ActorID     string         `json:"actorId,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

func NewPurchaseEvent(eventType string, p *Purchase) PurchaseEvent {
	return PurchaseEvent{
		Type:        eventType,
		PurchaseID:  p.ID,
		Phone:       p.Phone,
		TicketType:  p.TicketType,
		TicketCount: p.TicketCount,
		Status:      p.Status,
		FinalAmount: p.FinalAmountPaid,
		Timestamp:   time.Now().UTC(),
	}
}

type TicketEvent struct {
	Type         string    `json:"type"`
	TicketID     string    `json:"ticketId"`
	PurchaseID   string    `json:"purchaseId"`
	AttendeeName string    `json:"attendeeName"`
	TicketType   string    `json:"ticketType"`
	ActorID      string    `json:"actorId,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}
