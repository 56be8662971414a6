package network

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/HyprPixl/signalfoundry/internal/engine"
	"github.com/HyprPixl/signalfoundry/internal/events"
	"github.com/HyprPixl/signalfoundry/internal/infra/storage"
	"github.com/HyprPixl/signalfoundry/internal/platform/logger"
)

// DefaultHistoryLimit caps /api/history responses without a limit parameter.
const DefaultHistoryLimit = 100

// HistoryHandler serves the session state and the economy event history.
// When a repository is set, history is read from it so it survives restarts;
// otherwise the in-memory log is used.
type HistoryHandler struct {
	engine   *engine.Engine
	eventLog *events.EventLog
	repo     storage.EventRepository
	slotID   string
	logger   *logger.Logger
}

// NewHistoryHandler creates the state and history API. repo may be nil.
func NewHistoryHandler(eng *engine.Engine, repo storage.EventRepository, slotID string, log *logger.Logger) *HistoryHandler {
	return &HistoryHandler{
		engine:   eng,
		eventLog: eng.EventLog(),
		repo:     repo,
		slotID:   slotID,
		logger:   log,
	}
}

// HistoryEvent is an event as presented by the API.
type HistoryEvent struct {
	ID        string                 `json:"id"`
	Seq       uint64                 `json:"seq"`
	Timestamp string                 `json:"timestamp"`
	Type      string                 `json:"type"`
	Actor     string                 `json:"actor"`
	Summary   string                 `json:"summary"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// HistoryResponse is the API response for /api/history.
type HistoryResponse struct {
	TotalEvents int            `json:"total_events"`
	FilteredBy  string         `json:"filtered_by,omitempty"`
	Source      string         `json:"source"`
	GeneratedAt string         `json:"generated_at"`
	Events      []HistoryEvent `json:"events"`
}

// HandleState returns the status report.
// GET /api/state
func (hh *HistoryHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		hh.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(hh.engine.Status())
}

// HandleHistory returns recent economy events.
// GET /api/history?type=VENTURE_RESOLVED&limit=20
func (hh *HistoryHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		hh.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			hh.jsonError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	eventType := r.URL.Query().Get("type")

	var (
		result []HistoryEvent
		source string
	)
	if hh.repo != nil {
		stored, err := hh.fromRepo(r.Context(), eventType, limit)
		if err != nil {
			hh.logger.Error("failed to read event history", "error", err)
			hh.jsonError(w, "history unavailable", http.StatusInternalServerError)
			return
		}
		result, source = stored, "store"
	} else {
		for _, e := range hh.eventLog.Recent(limit, events.EventType(eventType)) {
			result = append(result, convertEvent(e))
		}
		source = "memory"
	}

	response := HistoryResponse{
		TotalEvents: len(result),
		Source:      source,
		GeneratedAt: time.Now().Format(time.RFC3339),
		Events:      result,
	}
	if eventType != "" {
		response.FilteredBy = "type " + eventType
	}
	if response.Events == nil {
		response.Events = []HistoryEvent{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (hh *HistoryHandler) fromRepo(ctx context.Context, eventType string, limit int) ([]HistoryEvent, error) {
	var (
		stored []storage.GameEvent
		err    error
	)
	if eventType == "" {
		stored, err = hh.repo.Recent(ctx, hh.slotID, limit)
	} else {
		stored, err = hh.repo.ByType(ctx, hh.slotID, eventType, limit)
	}
	if err != nil {
		return nil, err
	}
	out := make([]HistoryEvent, 0, len(stored))
	for _, e := range stored {
		out = append(out, HistoryEvent{
			ID:        e.ID,
			Seq:       e.Seq,
			Timestamp: e.Timestamp.Format(time.RFC3339),
			Type:      e.EventType,
			Actor:     e.ActorID,
			Summary:   e.Message,
			Details:   e.Payload,
		})
	}
	return out, nil
}

// HandleStats returns per-type counts of the retained events.
// GET /api/history/stats
func (hh *HistoryHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		hh.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	all := hh.eventLog.Replay()
	stats := map[string]int{"total_events": len(all)}
	for _, e := range all {
		stats[string(e.Type)]++
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"generated_at": time.Now().Format(time.RFC3339),
		"stats":        stats,
	})
}

// RegisterRoutes sets up the state and history routes.
func (hh *HistoryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/state", hh.HandleState)
	mux.HandleFunc("/api/history", hh.HandleHistory)
	mux.HandleFunc("/api/history/stats", hh.HandleStats)
}

// convertEvent transforms an in-memory event to API format.
func convertEvent(e events.GameEvent) HistoryEvent {
	details, _ := e.Payload.(map[string]interface{})
	return HistoryEvent{
		ID:        e.ID,
		Seq:       e.Seq,
		Timestamp: e.Timestamp.Format(time.RFC3339),
		Type:      string(e.Type),
		Actor:     e.ActorID,
		Summary:   e.Message,
		Details:   details,
	}
}

// jsonError sends an error response.
func (hh *HistoryHandler) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
