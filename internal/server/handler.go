package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/alanyoungcy/oddsarb/internal/domain"
	"github.com/alanyoungcy/oddsarb/internal/registry"
	"github.com/alanyoungcy/oddsarb/internal/state"
)

// TriggerSource serves historical arbitrage triggers, typically backed by the
// PostgreSQL opportunity store. Nil when no database is configured.
type TriggerSource interface {
	RecentTriggers(ctx context.Context, limit int) ([]domain.OpportunityRecord, error)
}

// PnLSource reports realised paper pnl. Nil when no database is configured.
type PnLSource interface {
	TotalPnL(ctx context.Context) (float64, error)
}

// Handler holds the API endpoint implementations.
type Handler struct {
	registry *registry.Registry
	state    *state.State
	triggers TriggerSource
	pnl      PnLSource
	logger   *slog.Logger
}

func NewHandler(reg *registry.Registry, st *state.State, triggers TriggerSource, pnl PnLSource, logger *slog.Logger) *Handler {
	return &Handler{
		registry: reg,
		state:    st,
		triggers: triggers,
		pnl:      pnl,
		logger:   logger.With(slog.String("component", "api_handler")),
	}
}

// Health responds with a liveness status.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

type matchPayload struct {
	SourceTitle string `json:"source_title"`
	TargetTitle string `json:"target_title"`
	TargetID    string `json:"target_id"`
	Score       int    `json:"score,omitempty"`
}

// ListPending returns the candidates awaiting review.
// GET /api/matches/pending
func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	pending := h.registry.Pending()
	out := make([]matchPayload, 0, len(pending))
	for _, c := range pending {
		out = append(out, matchPayload{
			SourceTitle: c.SourceTitle,
			TargetTitle: c.TargetTitle,
			TargetID:    c.TargetID,
			Score:       c.Score,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"pending": out})
}

// Approve persists a match pair as approved.
// POST /api/matches/approve
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	c, ok := decodeMatch(w, r)
	if !ok {
		return
	}
	if err := h.registry.Approve(c); err != nil {
		h.logger.ErrorContext(r.Context(), "approve failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to persist approval")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "approved"})
}

// Reject marks a match pair rejected for this process lifetime.
// POST /api/matches/reject
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	c, ok := decodeMatch(w, r)
	if !ok {
		return
	}
	h.registry.Reject(c)
	writeJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

func decodeMatch(w http.ResponseWriter, r *http.Request) (domain.MatchCandidate, bool) {
	var p matchPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return domain.MatchCandidate{}, false
	}
	if p.SourceTitle == "" || p.TargetID == "" {
		writeError(w, http.StatusBadRequest, "source_title and target_id are required")
		return domain.MatchCandidate{}, false
	}
	return domain.MatchCandidate{
		SourceTitle: p.SourceTitle,
		TargetTitle: p.TargetTitle,
		TargetID:    p.TargetID,
		Score:       p.Score,
	}, true
}

type positionPayload struct {
	TokenID    string    `json:"token_id"`
	MarketID   string    `json:"market_id"`
	MatchKey   string    `json:"match_key"`
	OutcomeKey string    `json:"outcome_key"`
	EntryPrice float64   `json:"entry_price"`
	EntryTime  time.Time `json:"entry_time"`
	TargetUSD  float64   `json:"target_usd"`
	Shares     float64   `json:"shares"`
}

// ListPositions returns the open paper positions.
// GET /api/positions
func (h *Handler) ListPositions(w http.ResponseWriter, r *http.Request) {
	positions := h.state.Positions()
	out := make([]positionPayload, 0, len(positions))
	for _, p := range positions {
		out = append(out, positionPayload{
			TokenID:    p.TokenID,
			MarketID:   p.MarketID,
			MatchKey:   p.MatchKey,
			OutcomeKey: p.OutcomeKey,
			EntryPrice: p.EntryPrice,
			EntryTime:  p.EntryTime,
			TargetUSD:  p.TargetUSD,
			Shares:     p.Shares,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"positions": out})
}

// RecentTriggers returns the latest arbitrage triggers from the database.
// GET /api/triggers/recent?limit=N
func (h *Handler) RecentTriggers(w http.ResponseWriter, r *http.Request) {
	if h.triggers == nil {
		writeError(w, http.StatusNotImplemented, "no trigger store configured")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	records, err := h.triggers.RecentTriggers(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "trigger query failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "trigger query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"triggers": records})
}

// Status summarises the engine's live view.
// GET /api/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{
		"sports_events":  len(h.state.SportsEvents()),
		"market_events":  len(h.state.MarketEvents()),
		"open_positions": len(h.state.Positions()),
		"pending":        len(h.registry.Pending()),
	}
	if h.pnl != nil {
		if total, err := h.pnl.TotalPnL(r.Context()); err == nil {
			out["paper_pnl_usd"] = total
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
