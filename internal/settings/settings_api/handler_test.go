package settings_api

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"dholratri-tickets/internal/activity"
	"dholratri-tickets/internal/auth"
	"dholratri-tickets/internal/database/dbtest"
	"dholratri-tickets/internal/logger"
	"dholratri-tickets/internal/media"
	"dholratri-tickets/internal/models"
	"dholratri-tickets/internal/settings"
	"dholratri-tickets/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

type fixture struct {
	router http.Handler
	db     *bun.DB
	media  *media.MemoryStore
}

func setup(t *testing.T) *fixture {
	db := dbtest.New(t)
	store := media.NewMemoryStore()
	svc := settings.NewService(settings.NewStore(db), utils.NewValidator())
	h := NewHandler(svc, store, activity.NewBunRecorder(db), logger.Discard())

	r := chi.NewRouter()
	r.Get("/api/settings", h.GetPublic)
	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), "admin-1", "admin")))
			})
		})
		r.Get("/api/admin/settings", h.GetAdmin)
		r.Patch("/api/admin/settings", h.Update)
	})
	return &fixture{router: r, db: db, media: store}
}

func settingsForm(t *testing.T, fields map[string]string, withQR bool) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if withQR {
		fw, err := mw.CreateFormFile("paymentQrFile", "qr.png")
		require.NoError(t, err)
		_, err = fw.Write(pngHeader)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPatch, "/api/admin/settings", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestSettingsFlow(t *testing.T) {
	f := setup(t)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/settings", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"Configuration not found. Please set up in admin panel."}`, rec.Body.String())

	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/settings", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null\n", rec.Body.String())

	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, settingsForm(t, map[string]string{
		"eventName":    "DholRatri",
		"paymentUpiId": "dholratri@upi",
		"tiers":        `[{"id":"solo","name":"Solo","price":499},{"id":"couple","name":"Couple","price":899,"groupSize":2}]`,
	}, true))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"message":"Settings saved successfully!"}`, rec.Body.String())
	assert.Equal(t, 1, f.media.Count())

	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/settings", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"paymentQrUrl":"https://media.local/dholratri-config/payment-qr-code"`)
	assert.Contains(t, rec.Body.String(), `"groupSize":2`)

	var logs []models.ActivityLog
	require.NoError(t, f.db.NewSelect().Model(&logs).Scan(context.Background()))
	require.Len(t, logs, 1)
	assert.Equal(t, models.ActionUpdateSettings, logs[0].Action)
}

func TestUpdateRejectsBadInput(t *testing.T) {
	f := setup(t)

	cases := []struct {
		name   string
		fields map[string]string
	}{
		{"tiers not json", map[string]string{"eventName": "E", "paymentUpiId": "u@upi", "tiers": "nope"}},
		{"missing event name", map[string]string{"paymentUpiId": "u@upi", "tiers": "[]"}},
		{"tier without id", map[string]string{"eventName": "E", "paymentUpiId": "u@upi", "tiers": `[{"name":"Solo","price":1}]`}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			f.router.ServeHTTP(rec, settingsForm(t, tc.fields, false))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Equal(t, 0, f.media.Count())
}
