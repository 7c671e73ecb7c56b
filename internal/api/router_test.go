package api

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dholratri-tickets/internal/activity"
	"dholratri-tickets/internal/analytics"
	analytics_api "dholratri-tickets/internal/analytics/api"
	"dholratri-tickets/internal/auth"
	"dholratri-tickets/internal/auth/auth_api"
	"dholratri-tickets/internal/coupon"
	"dholratri-tickets/internal/coupon/coupon_api"
	"dholratri-tickets/internal/database/dbtest"
	"dholratri-tickets/internal/kafka"
	"dholratri-tickets/internal/logger"
	"dholratri-tickets/internal/media"
	"dholratri-tickets/internal/models"
	"dholratri-tickets/internal/purchase"
	pdb "dholratri-tickets/internal/purchase/db"
	"dholratri-tickets/internal/purchase/purchase_api"
	"dholratri-tickets/internal/ratelimit"
	"dholratri-tickets/internal/settings"
	"dholratri-tickets/internal/settings/settings_api"
	"dholratri-tickets/internal/sse"
	tdb "dholratri-tickets/internal/tickets/db"
	qr "dholratri-tickets/internal/tickets/qr_generator"
	tickets "dholratri-tickets/internal/tickets/service"
	"dholratri-tickets/internal/tickets/ticket_api"
	"dholratri-tickets/internal/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func setupRouter(t *testing.T, loginMax int) http.Handler {
	return buildRouter(t, loginMax, false)
}

func buildRouter(t *testing.T, loginMax int, trustProxy bool) http.Handler {
	ctx := context.Background()
	db := dbtest.New(t)
	log := logger.Discard()
	v := utils.NewValidator()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})

	tokens := auth.NewTokenManager("secret", time.Hour)
	authSvc := auth.NewService(auth.NewAdminStore(db), tokens, log)
	authSvc.BcryptCost = bcrypt.MinCost
	require.NoError(t, authSvc.EnsureAdmin(ctx, "admin", "pass123"))

	settingsStore := settings.NewStore(db)
	require.NoError(t, settingsStore.Upsert(ctx, &models.Settings{
		EventName:    "DholRatri",
		PaymentUpiID: "dholratri@upi",
		Tiers:        []models.Tier{{ID: "general", Name: "General", Price: 499}},
	}))

	store := media.NewMemoryStore()
	audit := activity.NewBunRecorder(db)
	emitter := sse.NewPurchaseEventEmitter()
	couponSvc := coupon.NewService(coupon.NewStore(db), log)

	purchaseSvc := &purchase.Service{
		DB:       pdb.New(db),
		Settings: settingsStore,
		Coupons:  couponSvc,
		Media:    store,
		QR:       qr.NewQRGenerator(),
		Events:   kafka.NoopPublisher{},
		Feed:     emitter,
		Audit:    audit,
		Logger:   log,
	}
	ticketSvc := tickets.NewTicketService(tdb.New(db), settingsStore, kafka.NoopPublisher{}, audit, log)

	h := Handlers{
		Auth:      auth_api.NewHandler(authSvc, v, log),
		Purchases: purchase_api.NewHandler(purchaseSvc, v, log),
		Tickets:   ticket_api.NewHandler(ticketSvc, v, log),
		Settings:  settings_api.NewHandler(settings.NewService(settingsStore, v), store, audit, log),
		Coupons:   coupon_api.NewHandler(couponSvc, audit, v, log),
		Analytics: analytics_api.NewHandler(analytics.NewService(db), log),
		Feed:      sse.NewHandler(emitter, log),
	}
	return NewRouter(h, Options{
		AllowedOrigins: []string{"http://localhost:3000"},
		TrustProxy:     trustProxy,
		Tokens:         tokens,
		LoginLimit:     ratelimit.New(rdb, "login", loginMax, time.Minute, log).Middleware,
	}, log)
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, r http.Handler) string {
	rec := serve(r, httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"username":"admin","password":"pass123"}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp models.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Token
}

func TestHealthzAndSecurityHeaders(t *testing.T) {
	r := setupRouter(t, 10)

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestAdminRoutesRequireToken(t *testing.T) {
	r := setupRouter(t, 10)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/admin/purchases"},
		{http.MethodPatch, "/api/admin/purchases/abc/approve"},
		{http.MethodPatch, "/api/admin/purchases/abc/reject"},
		{http.MethodGet, "/api/admin/settings"},
		{http.MethodGet, "/api/admin/coupons"},
		{http.MethodGet, "/api/admin/stats"},
		{http.MethodPost, "/api/verify"},
		{http.MethodGet, "/api/admin/purchases/stream"},
		{http.MethodPost, "/api/admin/purchases/stream-token"},
	}
	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			rec := serve(r, httptest.NewRequest(p.method, p.path, nil))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)

			req := httptest.NewRequest(p.method, p.path, nil)
			req.Header.Set("Authorization", "Bearer not-a-token")
			assert.Equal(t, http.StatusForbidden, serve(r, req).Code)
		})
	}
}

func TestAdminRoutesWithToken(t *testing.T) {
	r := setupRouter(t, 10)
	token := login(t, r)

	for _, path := range []string{"/api/admin/purchases", "/api/admin/settings", "/api/admin/coupons", "/api/admin/stats"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		assert.Equal(t, http.StatusOK, serve(r, req).Code, path)
	}
}

func TestPublicRoutes(t *testing.T) {
	r := setupRouter(t, 10)

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/api/settings", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dholratri@upi")

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/api/tickets/status/9876543210", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(r, httptest.NewRequest(http.MethodPost, "/api/purchase/initiate",
		strings.NewReader(`{"phone":"9876543210","attendees":[{"name":"Asha"}],"ticketType":"general","finalAmountPaid":499}`)))
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/api/tickets/status/9876543210", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginIsRateLimited(t *testing.T) {
	r := setupRouter(t, 2)

	attempt := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
			strings.NewReader(`{"username":"admin","password":"wrong"}`))
		req.RemoteAddr = "203.0.113.7:4000"
		return serve(r, req)
	}

	assert.Equal(t, http.StatusUnauthorized, attempt().Code)
	assert.Equal(t, http.StatusUnauthorized, attempt().Code)

	rec := attempt()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"message":"Too many requests, please try again later."}`, rec.Body.String())
}

func wrongLogin(remoteAddr, forwardedFor string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"username":"admin","password":"wrong"}`))
	req.RemoteAddr = remoteAddr
	req.Header.Set("X-Forwarded-For", forwardedFor)
	return req
}

func TestLoginLimitIgnoresForwardedFor(t *testing.T) {
	r := setupRouter(t, 2)

	var codes []int
	for i := 1; i <= 4; i++ {
		codes = append(codes, serve(r, wrongLogin("203.0.113.7:4000", fmt.Sprintf("10.0.0.%d", i))).Code)
	}
	assert.Equal(t, []int{
		http.StatusUnauthorized,
		http.StatusUnauthorized,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
	}, codes)
}

func TestLoginLimitBehindTrustedProxy(t *testing.T) {
	r := buildRouter(t, 2, true)

	// the proxy's socket address is shared; each forwarded client gets its own window
	for i := 1; i <= 4; i++ {
		rec := serve(r, wrongLogin("10.1.1.1:4000", fmt.Sprintf("198.51.100.%d", i)))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	serve(r, wrongLogin("10.1.1.1:4000", "198.51.100.9"))
	serve(r, wrongLogin("10.1.1.1:4000", "198.51.100.9"))
	rec := serve(r, wrongLogin("10.1.1.1:4000", "198.51.100.9"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestPurchaseStreamWithQueryToken(t *testing.T) {
	r := setupRouter(t, 10)
	srv := httptest.NewServer(r)
	defer srv.Close()
	adminToken := login(t, r)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/purchases/stream-token", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec := serve(r, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var issued models.StreamTokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &issued))
	assert.Equal(t, 60, issued.ExpiresIn)

	// a full admin token does not belong in a URL
	resp, err := http.Get(srv.URL + "/api/admin/purchases/stream?token=" + adminToken)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	streamReq, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/admin/purchases/stream?token="+issued.Token, nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(streamReq)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: connected\n", line)
}

func TestCORSPreflight(t *testing.T) {
	r := setupRouter(t, 10)

	req := httptest.NewRequest(http.MethodOptions, "/api/purchase/initiate", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := serve(r, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/purchase/initiate", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	assert.Empty(t, serve(r, req).Header().Get("Access-Control-Allow-Origin"))
}

func TestJSONBodyLimit(t *testing.T) {
	r := setupRouter(t, 10)

	big := `{"phone":"9876543210","attendees":[{"name":"` + strings.Repeat("a", utils.MaxJSONBody) + `"}],"ticketType":"general"}`
	rec := serve(r, httptest.NewRequest(http.MethodPost, "/api/purchase/initiate", strings.NewReader(big)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
