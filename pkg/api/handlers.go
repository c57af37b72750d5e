// Package api exposes the engine read API over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/phenomenon0/matchradar/pkg/engine"
	"github.com/phenomenon0/matchradar/pkg/match"
	"github.com/phenomenon0/matchradar/pkg/projection"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Handler serves engine reads and commands.
type Handler struct {
	engine    *engine.Engine
	log       zerolog.Logger
	bookmaker string
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithBookmakerSearch sets the search page every match links to. An empty base
// drops the links.
func WithBookmakerSearch(base string) HandlerOption {
	return func(h *Handler) {
		h.bookmaker = base
	}
}

// NewHandler creates a handler over a running engine.
func NewHandler(e *engine.Engine, logger *zerolog.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{engine: e, log: zerolog.Nop()}
	if logger != nil {
		h.log = logger.With().Str("component", "api").Logger()
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HealthCheck reports liveness together with the data mode.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	st := h.engine.Status()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"mode":      st.Mode,
		"timestamp": time.Now().UTC(),
		"service":   "radard",
	})
}

// GetStatus returns the dashboard header.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.Status())
}

// GetLive returns the board as delivered.
func (h *Handler) GetLive(w http.ResponseWriter, r *http.Request) {
	h.respondMatches(w, h.engine.LiveMatches())
}

// GetFinished returns the finished matches of the last pull.
func (h *Handler) GetFinished(w http.ResponseWriter, r *http.Request) {
	h.respondMatches(w, h.engine.FinishedMatches())
}

// GetCategory returns one signal category of the board.
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	cat, err := projection.ParseCategory(chi.URLParam(r, "category"))
	if err != nil {
		respondError(w, http.StatusNotFound, "unknown category", err)
		return
	}
	h.respondMatches(w, h.engine.Category(cat))
}

// GetMatches projects the board.
// Query params: search, sort, dir, category
func (h *Handler) GetMatches(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid query", err)
		return
	}
	h.respondMatches(w, h.engine.Project(q))
}

func parseQuery(r *http.Request) (projection.Query, error) {
	params := r.URL.Query()

	key, err := projection.ParseSortKey(params.Get("sort"))
	if err != nil {
		return projection.Query{}, err
	}
	dir, err := projection.ParseDirection(params.Get("dir"))
	if err != nil {
		return projection.Query{}, err
	}
	cat, err := projection.ParseCategory(params.Get("category"))
	if err != nil {
		return projection.Query{}, err
	}

	return projection.Query{
		Search:   params.Get("search"),
		Sort:     projection.Sort{Key: key, Dir: dir},
		Category: cat,
	}, nil
}

// GetHistory returns the session ledger and its win rate.
// Query params: limit (most recent first when set)
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	entries, stats := h.engine.SessionHistory()
	if limit := parseIntParam(r, "limit", 0); limit > 0 {
		entries = h.engine.RecentHistory(limit)
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
		"correct": stats.Correct,
		"total":   stats.Total,
		"rate":    stats.Rate(),
	})
}

// GetAlerts returns fired alerts from a radar generation onwards.
// Query params: since (generation, default 0)
func (h *Handler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	since := uint64(0)
	if raw := r.URL.Query().Get("since"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "since must be a generation number", err)
			return
		}
		since = v
	}
	list := h.engine.AlertsSince(since)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": list,
		"count":  len(list),
	})
}

// RadarRequest toggles the radar.
type RadarRequest struct {
	Enabled *bool `json:"enabled"`
}

// SetRadar arms or disarms the radar.
func (h *Handler) SetRadar(w http.ResponseWriter, r *http.Request) {
	var req RadarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Enabled == nil {
		respondError(w, http.StatusBadRequest, "enabled is required", nil)
		return
	}

	if err := h.engine.SetRadar(r.Context(), *req.Enabled); err != nil {
		h.log.Error().Err(err).Bool("enabled", *req.Enabled).Msg("radar switch failed")
		respondError(w, http.StatusInternalServerError, "failed to switch radar", err)
		return
	}

	st := h.engine.Status()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"enabled":    st.RadarEnabled,
		"generation": st.Generation,
	})
}

// Refresh asks for an immediate tick.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if !h.engine.Refresh() {
		respondError(w, http.StatusServiceUnavailable, "scheduler not running", nil)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]interface{}{"refresh": "scheduled"})
}

// RequestMarketAnalysis starts a market-wide analysis.
func (h *Handler) RequestMarketAnalysis(w http.ResponseWriter, r *http.Request) {
	h.engine.RequestMarketAnalysis()
	respondJSON(w, http.StatusAccepted, h.engine.MarketAnalysis())
}

// GetMarketAnalysis returns the market-wide slot.
func (h *Handler) GetMarketAnalysis(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.MarketAnalysis())
}

// RequestMatchAnalysis starts an analysis of one board match.
func (h *Handler) RequestMatchAnalysis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.engine.RequestMatchAnalysis(id); err != nil {
		if errors.Is(err, engine.ErrUnknownMatch) {
			respondError(w, http.StatusNotFound, "match not on the board", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to request analysis", err)
		return
	}
	res, _ := h.engine.Confidence(id)
	respondJSON(w, http.StatusAccepted, res)
}

// GetMatchAnalysis returns the enrichment slot of one match.
func (h *Handler) GetMatchAnalysis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, ok := h.engine.Confidence(id)
	if !ok {
		respondError(w, http.StatusNotFound, "no analysis for match", nil)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// matchView is a snapshot as served, with its bookmaker link.
type matchView struct {
	match.Snapshot
	Link string `json:"link,omitempty"`
}

func (h *Handler) respondMatches(w http.ResponseWriter, set []match.Snapshot) {
	views := make([]matchView, 0, len(set))
	for _, s := range set {
		views = append(views, matchView{Snapshot: s, Link: match.SearchLink(h.bookmaker, s)})
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"matches": views,
		"count":   len(views),
	})
}

func parseIntParam(r *http.Request, param string, defaultValue int) int {
	valueStr := r.URL.Query().Get(param)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	}
	if err != nil {
		resp.Message = message + ": " + err.Error()
	}
	respondJSON(w, status, resp)
}
