package httpapi

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"dokuai.org/internal/auth"
	"dokuai.org/internal/obs"
)

const maxBodyBytes = 10 << 20

// API is the HTTP layer over the auth service and report store.
type API struct {
	mux        *chi.Mux
	svc        *auth.Service
	reports    auth.ReportStore
	db         *sql.DB
	production bool

	frontendURL string
	rateMax     int
	rateWindow  time.Duration
}

type Option func(*API)

// WithRateLimit overrides the default request budget per client IP.
func WithRateLimit(max int, window time.Duration) Option {
	return func(a *API) {
		a.rateMax = max
		a.rateWindow = window
	}
}

// WithProduction suppresses error detail in 5xx responses.
func WithProduction(on bool) Option {
	return func(a *API) { a.production = on }
}

func New(svc *auth.Service, reports auth.ReportStore, db *sql.DB, frontendURL string, opts ...Option) *API {
	a := &API{
		mux:         chi.NewRouter(),
		svc:         svc,
		reports:     reports,
		db:          db,
		frontendURL: frontendURL,
		rateMax:     100,
		rateWindow:  15 * time.Minute,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.routes()
	return a
}

func (a *API) routes() {
	r := a.mux

	r.Use(RequestID)
	r.Use(LoggingJSON)
	r.Use(SecurityHeaders)
	r.Use(CORS(a.frontendURL))
	r.Use(RateLimit(a.rateMax, a.rateWindow))
	r.Use(MaxBodyBytes(maxBodyBytes))

	r.Get("/healthz", a.handleHealthz)
	r.Get("/readyz", a.handleReadyz)
	r.Method(http.MethodGet, "/metrics", obs.Handler())

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", a.handleRegister)
		r.Post("/login", a.handleLogin)
		r.Post("/forgot-password", a.handleForgotPassword)
		r.Post("/reset-password", a.handleResetPassword)
		r.Get("/verify-reset-token", a.handleVerifyResetToken)
		r.Get("/verify-email", a.handleVerifyEmail)
		r.Post("/verify-email", a.handleVerifyEmail)
		r.Post("/ping", a.handlePing)

		r.Group(func(r chi.Router) {
			r.Use(a.Authenticate)
			r.Get("/verify-token", a.handleVerifyToken)

			r.Group(func(r chi.Router) {
				r.Use(RequireVerified)
				r.Put("/profile", a.handleUpdateProfile)
				r.Post("/change-password", a.handleChangePassword)
			})
		})
	})

	// Admin routes gate on role inside each handler so the denial message
	// names the missing privilege.
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(a.Authenticate)
		r.Get("/stats", a.handleAdminStats)
		r.Get("/logs", a.handleAdminLogs)
		r.Get("/active-users", a.handleAdminActiveUsers)
		r.Get("/monthly-site-views", a.handleAdminMonthlyViews)
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeMessage(w, http.StatusNotFound, false, "Route not found")
	})
}

// Handler returns the full stack with request metrics on the outside.
func (a *API) Handler() http.Handler {
	return obs.Instrument(a.mux)
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{
		"success":   true,
		"message":   "Authentication service is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if a.db != nil {
		if err := a.db.PingContext(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, envelope{
				"success": false,
				"message": "database unavailable",
			})
			return
		}
	}
	writeMessage(w, http.StatusOK, true, "ready")
}
