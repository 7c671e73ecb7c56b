package api

import (
	"fmt"
	"net/http"
	"time"

	analytics_api "dholratri-tickets/internal/analytics/api"
	"dholratri-tickets/internal/auth"
	"dholratri-tickets/internal/auth/auth_api"
	"dholratri-tickets/internal/coupon/coupon_api"
	"dholratri-tickets/internal/logger"
	"dholratri-tickets/internal/purchase/purchase_api"
	"dholratri-tickets/internal/settings/settings_api"
	"dholratri-tickets/internal/sse"
	"dholratri-tickets/internal/tickets/ticket_api"
	"dholratri-tickets/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Handlers struct {
	Auth      *auth_api.Handler
	Purchases *purchase_api.Handler
	Tickets   *ticket_api.Handler
	Settings  *settings_api.Handler
	Coupons   *coupon_api.Handler
	Analytics *analytics_api.Handler
	Feed      *sse.Handler
}

type Options struct {
	AllowedOrigins []string
	// TrustProxy rewrites RemoteAddr from forwarding headers. Off, the rate
	// limiters key on the socket address.
	TrustProxy bool
	Tokens     *auth.TokenManager
	// LoginLimit and InitiateLimit wrap the two abuse-prone public routes. Nil disables.
	LoginLimit    func(http.Handler) http.Handler
	InitiateLimit func(http.Handler) http.Handler
}

func NewRouter(h Handlers, opts Options, log *logger.Logger) http.Handler {
	r := chi.NewRouter()

	if opts.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))
	r.Use(securityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// --- Public Routes ---
	r.Route("/api", func(r chi.Router) {
		r.With(orPass(opts.LoginLimit)).Post("/auth/login", h.Auth.Login)

		r.Post("/coupons/validate", h.Coupons.Validate)
		r.Get("/settings", h.Settings.GetPublic)

		r.Route("/purchase", func(r chi.Router) {
			r.With(orPass(opts.InitiateLimit)).Post("/initiate", h.Purchases.Initiate)
			r.Patch("/confirm/{id}", h.Purchases.ConfirmPayment)
		})

		r.Route("/tickets", func(r chi.Router) {
			r.Get("/status/{phone}", h.Tickets.GetStatus)
			r.Get("/passes/{phone}", h.Tickets.GetPasses)
		})
		log.Info("ROUTER", "Public routes registered under /api")

		// --- Protected Routes ---
		// EventSource cannot send headers, so the feed also takes a stream token in ?token=.
		r.Group(func(r chi.Router) {
			r.Use(auth.StreamMiddleware(opts.Tokens, log))
			r.Get("/admin/purchases/stream", h.Feed.StreamPurchases)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(opts.Tokens, log))

			r.Post("/verify", h.Tickets.Verify)

			r.Post("/admin/purchases/stream-token", h.Auth.StreamToken)
			r.Get("/admin/purchases", h.Purchases.List)
			r.Patch("/admin/purchases/{id}/approve", h.Purchases.Approve)
			r.Patch("/admin/purchases/{id}/reject", h.Purchases.Reject)

			r.Get("/admin/settings", h.Settings.GetAdmin)
			r.Patch("/admin/settings", h.Settings.Update)

			r.Post("/admin/coupons", h.Coupons.Create)
			r.Get("/admin/coupons", h.Coupons.List)

			r.Get("/admin/stats", h.Analytics.GetAdminStats)
			log.Info("ROUTER", "Admin routes registered under /api/admin")
		})
	})

	return r
}

func orPass(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if mw == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return mw
}

// securityHeaders sets the response headers browsers use to sandbox API responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hdr := w.Header()
		hdr.Set("X-Content-Type-Options", "nosniff")
		hdr.Set("X-Frame-Options", "DENY")
		hdr.Set("Referrer-Policy", "no-referrer")
		hdr.Set("Cross-Origin-Resource-Policy", "same-origin")
		hdr.Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
		next.ServeHTTP(w, r)
	})
}

func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log.LogAPI(r.Method, r.URL.Path, fmt.Sprintf("%d", status), time.Since(start).String())
		})
	}
}
