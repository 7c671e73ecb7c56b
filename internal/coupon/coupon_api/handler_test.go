package coupon_api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dholratri-tickets/internal/activity"
	"dholratri-tickets/internal/auth"
	"dholratri-tickets/internal/coupon"
	"dholratri-tickets/internal/database/dbtest"
	"dholratri-tickets/internal/logger"
	"dholratri-tickets/internal/models"
	"dholratri-tickets/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func setup(t *testing.T) (http.Handler, *bun.DB) {
	db := dbtest.New(t)
	svc := coupon.NewService(coupon.NewStore(db), logger.Discard())
	h := NewHandler(svc, activity.NewBunRecorder(db), utils.NewValidator(), logger.Discard())

	r := chi.NewRouter()
	r.Post("/api/coupons/validate", h.Validate)
	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), "admin-1", "admin")))
			})
		})
		r.Post("/api/admin/coupons", h.Create)
		r.Get("/api/admin/coupons", h.List)
	})
	return r, db
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestCouponLifecycle(t *testing.T) {
	r, db := setup(t)

	rec := do(r, http.MethodPost, "/api/admin/coupons", `{"code":"DHOL20","type":"PERCENTAGE","value":20,"maxDiscount":300}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(r, http.MethodPost, "/api/admin/coupons", `{"code":"DHOL20","type":"FLAT_OFF","value":20}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(r, http.MethodGet, "/api/admin/coupons", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"DHOL20"`)

	rec = do(r, http.MethodPost, "/api/coupons/validate", `{"couponCode":"dhol20","baseAmount":2000}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"discountAmount":300`)

	rec = do(r, http.MethodPost, "/api/coupons/validate", `{"couponCode":"MISSING"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var logs []models.ActivityLog
	require.NoError(t, db.NewSelect().Model(&logs).Scan(context.Background()))
	require.Len(t, logs, 1)
	assert.Equal(t, models.ActionCreateCoupon, logs[0].Action)
	assert.Equal(t, "admin-1", logs[0].UserID)
}

func TestCreateValidation(t *testing.T) {
	r, _ := setup(t)

	rec := do(r, http.MethodPost, "/api/admin/coupons", `{"code":"X","type":"PERCENTAGE","value":20}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(r, http.MethodPost, "/api/admin/coupons", `{"code":"GOODCODE","type":"BOGO","value":20}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
