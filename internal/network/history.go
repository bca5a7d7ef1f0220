// Package network - history.go
// History endpoints: a player's notifications, their economy state and the offline recap.
package network

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/MRamiBalles/ByteLife/internal/engine"
	"github.com/MRamiBalles/ByteLife/internal/events"
	"github.com/MRamiBalles/ByteLife/internal/infra/storage"
	"github.com/MRamiBalles/ByteLife/internal/platform/logger"
)

// RecapSource builds offline summaries. *storage.Recap implements it.
type RecapSource interface {
	Since(ctx context.Context, playerID string, since time.Time) (*storage.Summary, error)
}

// HistoryHandler serves read-only views of a player's economy.
type HistoryHandler struct {
	engine *engine.Engine
	recap  RecapSource
	loader engine.SessionLoader
	logger *logger.Logger
}

// NewHistoryHandler creates the history API. recap may be nil when nothing is persisted.
func NewHistoryHandler(eng *engine.Engine, recap RecapSource, log *logger.Logger) *HistoryHandler {
	return &HistoryHandler{engine: eng, recap: recap, logger: log}
}

// WithLoader lets /api/state restore players that have no live session.
func (hh *HistoryHandler) WithLoader(l engine.SessionLoader) *HistoryHandler {
	hh.loader = l
	return hh
}

// HistoryResponse is the API response for /api/history.
type HistoryResponse struct {
	PlayerID    string             `json:"player_id"`
	TotalEvents int                `json:"total_events"`
	GeneratedAt string             `json:"generated_at"`
	Events      []events.GameEvent `json:"events"`
}

// HandleHistory returns a player's in-memory notifications.
// GET /api/history?player_id=XXX&type=SALARY_PAID&since=RFC3339&limit=N
func (hh *HistoryHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	playerID := q.Get("player_id")
	if playerID == "" {
		jsonError(w, "Missing player_id", http.StatusBadRequest)
		return
	}

	var since time.Time
	if s := q.Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			jsonError(w, "Invalid since", http.StatusBadRequest)
			return
		}
		since = t
	}
	limit := 0
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			jsonError(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	eventType := q.Get("type")

	all := hh.engine.EventLog().Since(playerID, since)
	filtered := make([]events.GameEvent, 0, len(all))
	for _, e := range all {
		if eventType != "" && string(e.Type) != eventType {
			continue
		}
		filtered = append(filtered, e)
	}
	if limit > 0 && len(filtered) > limit {
		filtered = filtered[len(filtered)-limit:]
	}

	jsonSuccess(w, HistoryResponse{
		PlayerID:    playerID,
		TotalEvents: len(filtered),
		GeneratedAt: time.Now().Format(time.RFC3339),
		Events:      filtered,
	})
}

// HandleState returns a player's full economy state.
// GET /api/state?player_id=XXX
func (hh *HistoryHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	playerID := r.URL.Query().Get("player_id")
	if hh.loader != nil && playerID != "" {
		if _, err := hh.engine.Reload(r.Context(), hh.loader, playerID); err != nil {
			hh.logger.Warn("session reload failed", "player", playerID, "error", err)
		}
	}
	st, err := hh.engine.State(playerID)
	if err != nil {
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	jsonSuccess(w, st)
}

// HandleRecap returns the offline summary since a timestamp.
// GET /api/recap?player_id=XXX&since=RFC3339
func (hh *HistoryHandler) HandleRecap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if hh.recap == nil {
		jsonError(w, "Recap requires persistent storage", http.StatusNotImplemented)
		return
	}
	q := r.URL.Query()
	playerID := q.Get("player_id")
	since, err := time.Parse(time.RFC3339, q.Get("since"))
	if playerID == "" || err != nil {
		jsonError(w, "Missing player_id or invalid since", http.StatusBadRequest)
		return
	}
	sum, err := hh.recap.Since(r.Context(), playerID, since)
	if err != nil {
		hh.logger.Error("recap failed", "player", playerID, "error", err)
		jsonError(w, "Recap failed", http.StatusInternalServerError)
		return
	}
	jsonSuccess(w, map[string]interface{}{"summary": sum, "net": sum.Net()})
}

// HandleResumes lists resumes open for hire.
// GET /api/resumes
func (hh *HistoryHandler) HandleResumes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	jsonSuccess(w, hh.engine.Resumes())
}

// RegisterRoutes sets up the history API routes.
func (hh *HistoryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/history", hh.HandleHistory)
	mux.HandleFunc("/api/state", hh.HandleState)
	mux.HandleFunc("/api/recap", hh.HandleRecap)
	mux.HandleFunc("/api/resumes", hh.HandleResumes)
}
