package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"dholratri-tickets/internal/models"
	"dholratri-tickets/internal/utils"
)

var ErrInvalid = errors.New("invalid settings")

type Service struct {
	Store     *Store
	Validator *utils.Validator
}

func NewService(store *Store, v *utils.Validator) *Service {
	return &Service{Store: store, Validator: v}
}

func (s *Service) Get(ctx context.Context) (*models.Settings, error) {
	return s.Store.Get(ctx)
}

// ParseTiers decodes the tiers form field, a JSON array.
func ParseTiers(raw string) ([]models.Tier, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: \"tiers\" is required", ErrInvalid)
	}
	var tiers []models.Tier
	if err := json.Unmarshal([]byte(raw), &tiers); err != nil {
		return nil, fmt.Errorf("%w: \"tiers\" must be a JSON array of tiers", ErrInvalid)
	}
	if tiers == nil {
		tiers = []models.Tier{}
	}
	return tiers, nil
}

// Validate trims and checks upd in place.
func (s *Service) Validate(upd *models.SettingsUpdate) error {
	upd.EventName = strings.TrimSpace(upd.EventName)
	upd.PaymentUpiID = strings.TrimSpace(upd.PaymentUpiID)
	if err := s.Validator.Struct(upd); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalid, err.Error())
	}

	seen := make(map[string]bool, len(upd.Tiers))
	for _, t := range upd.Tiers {
		if seen[t.ID] {
			return fmt.Errorf("%w: duplicate tier id %q", ErrInvalid, t.ID)
		}
		seen[t.ID] = true
	}
	return nil
}

// Update validates and stores the settings document.
func (s *Service) Update(ctx context.Context, upd models.SettingsUpdate) (*models.Settings, error) {
	if err := s.Validate(&upd); err != nil {
		return nil, err
	}

	st := &models.Settings{
		ID:           models.SettingsID,
		EventName:    upd.EventName,
		PaymentUpiID: upd.PaymentUpiID,
		PaymentQrURL: upd.PaymentQrURL,
		Tiers:        upd.Tiers,
		UpdatedAt:    time.Now().UTC(),
	}
	if err := s.Store.Upsert(ctx, st); err != nil {
		return nil, err
	}
	return s.Store.Get(ctx)
}
