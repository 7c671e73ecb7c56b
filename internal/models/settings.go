package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

const SettingsID = "global_config"

type Tier struct {
	ID        string   `json:"id" validate:"required,min=1,max=50"`
	Name      string   `json:"name" validate:"required,min=1,max=100"`
	Price     float64  `json:"price" validate:"gte=0"`
	Perks     []string `json:"perks,omitempty"`
	GroupSize int      `json:"groupSize,omitempty" validate:"gte=0,lte=20"`
}

// UnmarshalJSON also takes the admin form's raw values: perks as one
// comma-separated string and price as a numeric string.
func (t *Tier) UnmarshalJSON(data []byte) error {
	type plain Tier
	aux := struct {
		*plain
		Price json.RawMessage `json:"price"`
		Perks json.RawMessage `json:"perks"`
	}{plain: (*plain)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	price, err := parsePrice(aux.Price)
	if err != nil {
		return err
	}
	t.Price = price

	perks, err := parsePerks(aux.Perks)
	if err != nil {
		return err
	}
	t.Perks = perks
	return nil
}

func isJSONString(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '"'
}

func parsePrice(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	if !isJSONString(raw) {
		var price float64
		err := json.Unmarshal(raw, &price)
		return price, err
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("tier price %q is not a number", s)
	}
	return price, nil
}

func parsePerks(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	if !isJSONString(raw) {
		var perks []string
		err := json.Unmarshal(raw, &perks)
		return perks, err
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	var perks []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			perks = append(perks, p)
		}
	}
	return perks, nil
}

// PassesFor returns how many passes are needed to admit attendees on this tier.
func (t Tier) PassesFor(attendees int) int {
	if t.GroupSize <= 1 {
		return attendees
	}
	return (attendees + t.GroupSize - 1) / t.GroupSize
}

// PassKind labels a pass as solo, couple or group by attendee count.
func PassKind(attendees int) string {
	switch {
	case attendees <= 1:
		return "solo"
	case attendees == 2:
		return "couple"
	default:
		return "group"
	}
}

type Settings struct {
	bun.BaseModel `bun:"table:settings"`

	ID           string    `bun:"id,pk" json:"id"`
	EventName    string    `bun:"event_name,notnull" json:"eventName"`
	PaymentUpiID string    `bun:"payment_upi_id,notnull" json:"paymentUpiId"`
	PaymentQrURL *string   `bun:"payment_qr_url" json:"paymentQrUrl"`
	Tiers        []Tier    `bun:"tiers,type:jsonb" json:"tiers"`
	UpdatedAt    time.Time `bun:"updated_at,notnull" json:"updatedAt"`
}

// TierByID looks up a tier by id.
func (s *Settings) TierByID(id string) (Tier, bool) {
	for _, t := range s.Tiers {
		if t.ID == id {
			return t, true
		}
	}
	return Tier{}, false
}

type SettingsUpdate struct {
	EventName    string  `json:"eventName" validate:"required,min=1,max=100"`
	PaymentUpiID string  `json:"paymentUpiId" validate:"required,min=1,max=100"`
	Tiers        []Tier  `json:"tiers" validate:"dive"`
	PaymentQrURL *string `json:"paymentQrUrl"`
}
