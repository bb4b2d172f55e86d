// Package httpapi is the HTTP Edge: the chi router, DTOs, and auth
// middlewares spec.md §6 describes, backed by the Persistence, Provisioning
// Saga, and Lifecycle Reconciler components.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/conorholds/openclaw-control-plane/internal/config"
	"github.com/conorholds/openclaw-control-plane/internal/lifecycle"
	"github.com/conorholds/openclaw-control-plane/internal/provisioning"
	"github.com/conorholds/openclaw-control-plane/internal/store"
)

// API holds every collaborator the HTTP edge dispatches to.
type API struct {
	store     *store.Store
	saga      *provisioning.Saga
	lifecycle *lifecycle.Service
	cfg       *config.Config
	logger    *zap.Logger
}

// New builds an API from its collaborators.
func New(st *store.Store, saga *provisioning.Saga, lc *lifecycle.Service, cfg *config.Config, logger *zap.Logger) *API {
	return &API{store: st, saga: saga, lifecycle: lc, cfg: cfg, logger: logger}
}

// Router builds the chi.Mux: RequestID/Logger/Recoverer matching the
// teacher's cmd/server/main.go middleware stack, plus CORS for a future
// dashboard client.
func (a *API) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(a.zapLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", a.health)

	r.Group(func(r chi.Router) {
		r.Use(a.requireAdmin)
		r.Post("/accounts", a.createAccount)
		r.Get("/accounts/{id}", a.getAccount)
		r.Get("/accounts/{id}/bots", a.listBots)
		r.Post("/bots", a.createBot)
		r.Get("/bots/{id}", a.getBot)
		r.Get("/bots/{id}/config", a.getBotConfig)
		r.Post("/bots/{id}/actions", a.botAction)
	})

	r.Post("/bot/register", a.registerBot)
	r.Group(func(r chi.Router) {
		r.Use(a.requireWorkerToken)
		r.Get("/bot/{id}/config", a.getDesiredConfig)
		r.Post("/bot/{id}/config_ack", a.acknowledgeConfig)
		r.Post("/bot/{id}/heartbeat", a.recordHeartbeat)
	})

	return r
}

// zapLogger is the teacher's middleware.Logger equivalent, routed through
// zap instead of the standard logger.
func (a *API) zapLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		a.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
