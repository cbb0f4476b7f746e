// Package dashboard contains the chi HTTP handlers: the inbound webhook that
// feeds the conversation engine, and the read-only JSON reporting API.
package dashboard

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/tickalert/tickalert/internal/bot"
	"github.com/tickalert/tickalert/internal/lib/logger/sl"
	"github.com/tickalert/tickalert/internal/model"
)

// UpdateHandler consumes one inbound transport update.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, up bot.Update) error
}

// StatsStore serves the reporting queries.
type StatsStore interface {
	Overview(ctx context.Context) (*model.OverviewStats, error)
	TopEvents(ctx context.Context, limit int) ([]model.EventStats, error)
}

// EventLister serves the events listing.
type EventLister interface {
	ListUpcoming(ctx context.Context) ([]model.Event, error)
}

// Handler holds the HTTP handlers.
type Handler struct {
	log           *slog.Logger
	updates       UpdateHandler
	stats         StatsStore
	events        EventLister
	webhookSecret string
}

// New constructs a Handler. An empty webhookSecret disables the inbound
// secret check (local development only).
func New(log *slog.Logger, updates UpdateHandler, stats StatsStore, events EventLister, webhookSecret string) *Handler {
	return &Handler{
		log:           log,
		updates:       updates,
		stats:         stats,
		events:        events,
		webhookSecret: webhookSecret,
	}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

// Webhook handles POST /webhook: the inbound half of the transport binding.
// A delivery failure inside the engine is logged, not echoed back, so the
// transport never retries a processed update.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	if h.webhookSecret != "" && r.Header.Get("X-Webhook-Secret") != h.webhookSecret {
		writeError(w, http.StatusForbidden, "bad webhook secret")
		return
	}

	var up bot.Update
	if err := decodeJSON(r, &up); err != nil {
		writeError(w, http.StatusBadRequest, "invalid update body: "+err.Error())
		return
	}
	if up.UserID == 0 {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	if err := h.updates.HandleUpdate(r.Context(), up); err != nil {
		h.log.Error("failed to handle update", slog.Int64("user", up.UserID), sl.Err(err))
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Overview handles GET /api/stats/overview.
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Overview(r.Context())
	if err != nil {
		h.log.Error("failed to load overview stats", sl.Err(err))
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// TopEvents handles GET /api/stats/top-events?limit=N.
func (h *Handler) TopEvents(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	stats, err := h.stats.TopEvents(r.Context(), limit)
	if err != nil {
		h.log.Error("failed to load top events", sl.Err(err))
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	if stats == nil {
		stats = []model.EventStats{}
	}
	writeJSON(w, http.StatusOK, stats)
}

// ListEvents handles GET /api/events: the upcoming events as the bot shows
// them.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.ListUpcoming(r.Context())
	if err != nil {
		h.log.Error("failed to list events", sl.Err(err))
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// HealthCheck handles GET /health.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
