package ticket_api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dholratri-tickets/internal/activity"
	"dholratri-tickets/internal/auth"
	"dholratri-tickets/internal/database/dbtest"
	"dholratri-tickets/internal/kafka"
	"dholratri-tickets/internal/logger"
	"dholratri-tickets/internal/models"
	"dholratri-tickets/internal/settings"
	"dholratri-tickets/internal/tickets/db"
	tickets "dholratri-tickets/internal/tickets/service"
	"dholratri-tickets/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type fixture struct {
	router http.Handler
	db     *bun.DB
}

func setup(t *testing.T) *fixture {
	bunDB := dbtest.New(t)
	log := logger.Discard()
	svc := tickets.NewTicketService(db.New(bunDB), settings.NewStore(bunDB), kafka.NoopPublisher{}, activity.NewBunRecorder(bunDB), log)
	h := NewHandler(svc, utils.NewValidator(), log)

	r := chi.NewRouter()
	r.Get("/api/tickets/status/{phone}", h.GetStatus)
	r.Get("/api/tickets/passes/{phone}", h.GetPasses)
	r.With(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), "scanner-1", "gate")))
		})
	}).Post("/api/verify", h.Verify)
	return &fixture{router: r, db: bunDB}
}

// seed stores a purchase and its tickets, all in status.
func (f *fixture) seed(t *testing.T, phone string, status models.PurchaseStatus, attendees ...models.AttendeeInput) []string {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	pid := uuid.New().String()
	_, err := f.db.NewInsert().Model(&models.Purchase{
		ID: pid, Phone: phone, TicketType: "general", TicketCount: len(attendees),
		Status: status, CreatedAt: now, UpdatedAt: now,
	}).Exec(ctx)
	require.NoError(t, err)

	ids := make([]string, len(attendees))
	for i, a := range attendees {
		ids[i] = uuid.New().String()
		tk := &models.Ticket{
			ID: ids[i], PurchaseID: pid, Seq: i, AttendeeName: a.Name, TicketType: "general",
			Phone: phone, Status: status, CreatedAt: now,
		}
		if a.Gender != "" {
			g := a.Gender
			tk.Gender = &g
		}
		_, err := f.db.NewInsert().Model(tk).Exec(ctx)
		require.NoError(t, err)
	}
	return ids
}

func (f *fixture) verify(id string) (*httptest.ResponseRecorder, models.VerifyResponse) {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/verify", strings.NewReader(`{"id":"`+id+`"}`)))
	var resp models.VerifyResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

func TestVerifyChecksInOnce(t *testing.T) {
	f := setup(t)
	ids := f.seed(t, "9999999999", models.StatusApproved,
		models.AttendeeInput{Name: "Asha", Gender: "female"},
		models.AttendeeInput{Name: "Ravi", Gender: "male"})

	rec, resp := f.verify(ids[0])
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.VerifyResponse{Valid: true, Message: "Check-in Successful", Name: "Miss. Asha"}, resp)

	var first models.Ticket
	require.NoError(t, f.db.NewSelect().Model(&first).Where("id = ?", ids[0]).Scan(context.Background()))
	require.NotNil(t, first.CheckedInAt)

	rec, resp = f.verify(ids[0])
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, models.VerifyResponse{Valid: false, Message: "Ticket Already Checked In", Name: "Miss. Asha"}, resp)

	var again models.Ticket
	require.NoError(t, f.db.NewSelect().Model(&again).Where("id = ?", ids[0]).Scan(context.Background()))
	assert.True(t, first.CheckedInAt.Equal(*again.CheckedInAt))

	// the other attendee scans independently
	rec, resp = f.verify(ids[1])
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Mr. Ravi", resp.Name)

	var logs []models.ActivityLog
	require.NoError(t, f.db.NewSelect().Model(&logs).Where("action = ?", models.ActionVerifyTicket).Scan(context.Background()))
	assert.Len(t, logs, 2)
	assert.Equal(t, "scanner-1", logs[0].UserID)
}

func TestVerifyRejectsUnapproved(t *testing.T) {
	f := setup(t)
	ids := f.seed(t, "9999999999", models.StatusBooked, models.AttendeeInput{Name: "Asha"})

	rec, resp := f.verify(ids[0])
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Ticket status is: BOOKED", resp.Message)
	assert.False(t, resp.Valid)
}

func TestVerifyUnknownAndMalformed(t *testing.T) {
	f := setup(t)

	rec, resp := f.verify(uuid.New().String())
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Ticket Not Found", resp.Message)

	rec, resp = f.verify("not-a-ticket")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, `"id" must be a valid ticket id`, resp.Message)

	rec, _ = f.verify("")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusLookup(t *testing.T) {
	f := setup(t)
	f.seed(t, "9999999999", models.StatusApproved, models.AttendeeInput{Name: "Asha"}, models.AttendeeInput{Name: "Ravi"})
	f.seed(t, "9999999999", models.StatusPaymentPending, models.AttendeeInput{Name: "Meera"})

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tickets/status/9999999999", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.Ticket
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 3)

	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tickets/status/1234567890", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"No booking found for this phone number."}`, rec.Body.String())
}

func TestPasses(t *testing.T) {
	f := setup(t)
	f.seed(t, "9999999999", models.StatusApproved, models.AttendeeInput{Name: "Asha"}, models.AttendeeInput{Name: "Ravi"})

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tickets/passes/9999999999", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var bundles []models.PassBundle
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bundles))
	require.Len(t, bundles, 1)
	assert.Equal(t, "couple", bundles[0].Kind)
	assert.Equal(t, "general", bundles[0].TierName)
	assert.Len(t, bundles[0].Tickets, 2)
}
