package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/bohdanadamenko/mini-time-tracker/internal/httputil"

	"github.com/go-chi/chi/v5"
)

// Pinger is satisfied by *bun.DB and *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Checker reports whether a dependency such as a broker connection is usable.
type Checker interface {
	HealthCheck() error
}

type Handler struct {
	db       Pinger
	checkers map[string]Checker
	logger   *slog.Logger
}

func NewHandler(db Pinger, logger *slog.Logger) *Handler {
	return &Handler{db: db, checkers: make(map[string]Checker), logger: logger}
}

// AddChecker makes readiness also depend on c.
func (h *Handler) AddChecker(name string, c Checker) {
	h.checkers[name] = c
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/health", h.Health)
	router.Get("/ready", h.Ready)
}

type HealthResponse struct {
	Status string `json:"status"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.RespondWithJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		h.logger.WarnContext(r.Context(), "readiness check failed", "dependency", "database", "error", err)
		httputil.RespondWithJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
		return
	}

	for name, c := range h.checkers {
		if err := c.HealthCheck(); err != nil {
			h.logger.WarnContext(r.Context(), "readiness check failed", "dependency", name, "error", err)
			httputil.RespondWithJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
			return
		}
	}

	httputil.RespondWithJSON(w, http.StatusOK, HealthResponse{Status: "ready"})
}
