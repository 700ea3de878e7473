package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/handlers"
	"go.uber.org/zap"

	"github.com/DoyleJ11/seatbus-monitor/internal/ingest"
	"github.com/DoyleJ11/seatbus-monitor/internal/layout"
	"github.com/DoyleJ11/seatbus-monitor/internal/logging"
	"github.com/DoyleJ11/seatbus-monitor/internal/metrics"
	"github.com/DoyleJ11/seatbus-monitor/internal/store"
	"github.com/DoyleJ11/seatbus-monitor/internal/ws"
)

type Deps struct {
	Store   *store.Store
	Ingest  *ingest.Service
	Layout  *layout.Layout
	Log     *zap.Logger
	Metrics *metrics.Metrics

	EditMode       bool
	AllowedOrigins []string
}

func SetupRoutes(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logging.Middleware(d.Log))
	r.Use(d.Metrics.Middleware)

	// Publisher
	r.Post("/push", Push(d.Ingest))

	// Viewers
	r.Get("/status", Status(d.Store))
	r.Get("/history", History(d.Store))
	r.Get("/layout", GetLayout(d.Layout))
	r.Get("/overlay", Overlay(d.Store, d.Layout))
	r.Get("/ws", ws.Handler(d.Store, ws.OriginPatterns(d.AllowedOrigins), d.Log, d.Metrics))

	// Layout edit sessions
	r.Route("/layout/seats/{index}", func(r chi.Router) {
		r.Use(requireEditMode(d.EditMode))
		r.Put("/", SetSeat(d.Layout, d.Log))
		r.Post("/move", MoveSeat(d.Layout, d.Log))
	})

	r.Get("/healthz", Healthz)
	r.Handle("/metrics", d.Metrics.Handler())

	if len(d.AllowedOrigins) == 0 {
		return r
	}
	return handlers.CORS(
		handlers.AllowedOrigins(d.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(r)
}

func requireEditMode(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				writeError(w, http.StatusForbidden, "edit mode disabled")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
