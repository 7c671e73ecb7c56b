package models

type TierStats struct {
	TicketType string  `bun:"ticket_type" json:"ticketType"`
	Purchases  int     `bun:"purchases" json:"purchases"`
	Tickets    int     `bun:"tickets" json:"tickets"`
	Revenue    float64 `bun:"revenue" json:"revenue"`
}

// DailySales covers approved purchases by creation day.
type DailySales struct {
	Date        string  `bun:"sales_date" json:"date"`
	Revenue     float64 `bun:"revenue" json:"revenue"`
	TicketsSold int     `bun:"tickets" json:"ticketsSold"`
}

type CouponUsage struct {
	Code          string  `bun:"code" json:"code"`
	UsageCount    int     `bun:"usage_count" json:"usageCount"`
	TotalDiscount float64 `bun:"total_discount" json:"totalDiscount"`
}

type AdminStats struct {
	PurchasesByStatus map[PurchaseStatus]int `json:"purchasesByStatus"`
	TicketsIssued     int                    `json:"ticketsIssued"`
	TicketsCheckedIn  int                    `json:"ticketsCheckedIn"`
	ApprovedRevenue   float64                `json:"approvedRevenue"`
	Tiers             []TierStats            `json:"tiers"`
	DailySales        []DailySales           `json:"dailySales"`
	Coupons           []CouponUsage          `json:"coupons"`
}
