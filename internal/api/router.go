package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	mw "github.com/kiranshivaraju/copydesk/internal/api/middleware"
	"github.com/kiranshivaraju/copydesk/internal/api/response"
)

// Rate limit buckets.
const (
	BucketJobs    = "jobs"
	BucketRefresh = "refresh"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	RateLimit   *mw.RateLimit
	CORSOrigins []string

	HealthHandler  http.HandlerFunc
	SessionHandler http.HandlerFunc
	SubmitHandler  http.HandlerFunc
	SelectHandler  http.HandlerFunc
	DeleteHandler  http.HandlerFunc
	RefreshHandler http.HandlerFunc
	EventsHandler  http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	r.Use(cors.Handler(corsOptions(deps.CORSOrigins)))

	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))
	r.Get("/api/v1/session", orNotImplemented(deps.SessionHandler))
	r.Get("/api/v1/events", orNotImplemented(deps.EventsHandler))

	// Intents
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimit.Limit(BucketJobs))

		r.Post("/api/v1/jobs", orNotImplemented(deps.SubmitHandler))
		r.Post("/api/v1/jobs/{jobID}/select", orNotImplemented(deps.SelectHandler))
		r.Delete("/api/v1/jobs/{jobID}", orNotImplemented(deps.DeleteHandler))
	})
	r.With(deps.RateLimit.Limit(BucketRefresh)).
		Post("/api/v1/history/refresh", orNotImplemented(deps.RefreshHandler))

	return r
}

func corsOptions(origins []string) cors.Options {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
