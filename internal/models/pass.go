package models

import "time"

// PassBundle groups the tickets of one purchase for display.
type PassBundle struct {
	PurchaseID string         `json:"purchaseId"`
	TicketType string         `json:"ticketType"`
	TierName   string         `json:"tierName"`
	Kind       string         `json:"kind"`
	Status     PurchaseStatus `json:"status"`
	CreatedAt  time.Time      `json:"createdAt"`
	Tickets    []Ticket       `json:"tickets"`
}
