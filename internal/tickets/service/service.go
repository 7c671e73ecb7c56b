package tickets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dholratri-tickets/internal/activity"
	"dholratri-tickets/internal/logger"
	"dholratri-tickets/internal/models"
	"dholratri-tickets/internal/tickets/db"
)

var (
	ErrTicketNotFound    = db.ErrNotFound
	ErrNotApproved       = errors.New("ticket is not approved")
	ErrAlreadyCheckedIn  = errors.New("ticket already checked in")
	ErrNoBooking         = errors.New("no booking found for this phone number")
	ErrNoMatchingTickets = errors.New("purchase found, but no matching tickets")
)

// LookupStatuses are the ticket states returned by a phone lookup.
var LookupStatuses = []models.PurchaseStatus{
	models.StatusApproved,
	models.StatusBooked,
	models.StatusRejected,
	models.StatusPaymentPending,
}

type TicketDBLayer interface {
	GetTicketByID(ctx context.Context, id string) (*models.Ticket, error)
	CheckIn(ctx context.Context, id string, at time.Time) error
	PurchasesByPhone(ctx context.Context, phone string) ([]models.Purchase, error)
	TicketsByPurchases(ctx context.Context, purchaseIDs []string, statuses []models.PurchaseStatus) ([]models.Ticket, error)
}

type SettingsReader interface {
	Get(ctx context.Context) (*models.Settings, error)
}

type EventPublisher interface {
	PublishTicketEvent(ctx context.Context, evt models.TicketEvent) error
}

type TicketService struct {
	DB       TicketDBLayer
	Settings SettingsReader
	Events   EventPublisher
	Audit    activity.Recorder
	Logger   *logger.Logger
	now      func() time.Time
}

func NewTicketService(d TicketDBLayer, st SettingsReader, events EventPublisher, audit activity.Recorder, log *logger.Logger) *TicketService {
	return &TicketService{DB: d, Settings: st, Events: events, Audit: audit, Logger: log, now: time.Now}
}

// Checkin admits the ticket once. On ErrNotApproved and ErrAlreadyCheckedIn the
// ticket is returned too so the scanner can show who it belongs to.
func (s *TicketService) Checkin(ctx context.Context, ticketID, actorID string) (*models.Ticket, error) {
	ticket, err := s.DB.GetTicketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status != models.StatusApproved {
		return ticket, fmt.Errorf("%w: %s", ErrNotApproved, ticket.Status)
	}
	if ticket.CheckedIn {
		return ticket, ErrAlreadyCheckedIn
	}

	at := s.now().UTC()
	if err := s.DB.CheckIn(ctx, ticketID, at); err != nil {
		if errors.Is(err, db.ErrCheckInConflict) {
			// another scanner got there first
			return ticket, ErrAlreadyCheckedIn
		}
		return nil, err
	}
	ticket.CheckedIn = true
	ticket.CheckedInAt = &at

	s.Logger.Info("TICKET", fmt.Sprintf("Checked in %s (%s)", ticket.ID, ticket.AttendeeName))
	if s.Audit != nil {
		if err := s.Audit.Record(ctx, actorID, models.ActionVerifyTicket, map[string]interface{}{
			"ticketId":   ticket.ID,
			"purchaseId": ticket.PurchaseID,
		}); err != nil {
			s.Logger.Error("ACTIVITY", fmt.Sprintf("Failed to log %s: %v", models.ActionVerifyTicket, err))
		}
	}
	if s.Events != nil {
		evt := models.TicketEvent{
			Type:         models.EventTicketCheckedIn,
			TicketID:     ticket.ID,
			PurchaseID:   ticket.PurchaseID,
			AttendeeName: ticket.AttendeeName,
			TicketType:   ticket.TicketType,
			ActorID:      actorID,
			Timestamp:    at,
		}
		if err := s.Events.PublishTicketEvent(ctx, evt); err != nil {
			s.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish %s for %s: %v", evt.Type, ticket.ID, err))
		}
	}
	return ticket, nil
}

// GetTicketsByPhone returns every ticket bought with phone in a lookup status.
func (s *TicketService) GetTicketsByPhone(ctx context.Context, phone string) ([]models.Ticket, error) {
	_, tickets, err := s.lookup(ctx, phone)
	return tickets, err
}

// GetPassesByPhone groups the lookup result into one bundle per purchase.
func (s *TicketService) GetPassesByPhone(ctx context.Context, phone string) ([]models.PassBundle, error) {
	purchases, tickets, err := s.lookup(ctx, phone)
	if err != nil {
		return nil, err
	}

	tierNames := map[string]string{}
	if st, err := s.Settings.Get(ctx); err == nil {
		for _, t := range st.Tiers {
			tierNames[t.ID] = t.Name
		}
	} else {
		s.Logger.Warn("TICKET", fmt.Sprintf("Pass tier names unavailable: %v", err))
	}

	byPurchase := make(map[string][]models.Ticket, len(purchases))
	for _, t := range tickets {
		byPurchase[t.PurchaseID] = append(byPurchase[t.PurchaseID], t)
	}

	bundles := make([]models.PassBundle, 0, len(purchases))
	for _, p := range purchases {
		group := byPurchase[p.ID]
		if len(group) == 0 {
			continue
		}
		name, ok := tierNames[p.TicketType]
		if !ok {
			name = p.TicketType
		}
		bundles = append(bundles, models.PassBundle{
			PurchaseID: p.ID,
			TicketType: p.TicketType,
			TierName:   name,
			Kind:       models.PassKind(len(group)),
			Status:     p.Status,
			CreatedAt:  p.CreatedAt,
			Tickets:    group,
		})
	}
	return bundles, nil
}

func (s *TicketService) lookup(ctx context.Context, phone string) ([]models.Purchase, []models.Ticket, error) {
	phone = strings.TrimSpace(phone)
	purchases, err := s.DB.PurchasesByPhone(ctx, phone)
	if err != nil {
		return nil, nil, err
	}
	if len(purchases) == 0 {
		return nil, nil, ErrNoBooking
	}

	ids := make([]string, len(purchases))
	for i, p := range purchases {
		ids[i] = p.ID
	}
	tickets, err := s.DB.TicketsByPurchases(ctx, ids, LookupStatuses)
	if err != nil {
		return nil, nil, err
	}
	if len(tickets) == 0 {
		return nil, nil, ErrNoMatchingTickets
	}
	return purchases, tickets, nil
}
