package api

import (
	"net/http"

	"github.com/VersatilVC/organize-prime-sub010/id"
	"github.com/VersatilVC/organize-prime-sub010/stats"
)

func (h *Handler) getHealth(w http.ResponseWriter, r *http.Request) {
	whID, ok := pathWebhookID(w, r)
	if !ok {
		return
	}

	m, err := h.monitor.Health(r.Context(), whID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	whID, ok := pathWebhookID(w, r)
	if !ok {
		return
	}

	window := stats.Window(queryParam(r, "window"))
	if window == "" {
		window = stats.Window24h
	}
	if !window.Valid() {
		writeError(w, http.StatusBadRequest, "unsupported window; one of 1h, 6h, 24h, 7d, 30d")
		return
	}

	s, err := h.monitor.Stats(r.Context(), whID, window)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, s)
}

func (h *Handler) getTrends(w http.ResponseWriter, r *http.Request) {
	whID, ok := pathWebhookID(w, r)
	if !ok {
		return
	}
	h.writeTrends(w, r, whID)
}

func (h *Handler) getFleetTrends(w http.ResponseWriter, r *http.Request) {
	h.writeTrends(w, r, id.Nil)
}

func (h *Handler) writeTrends(w http.ResponseWriter, r *http.Request, whID id.ID) {
	days := queryInt(r, "days", stats.DefaultTrendDays)

	points, err := h.monitor.Trend(r.Context(), whID, days)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, points)
}

func (h *Handler) getTopTriggers(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 5)

	ranked, err := h.monitor.TopTriggers(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ranked)
}

func (h *Handler) getSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.monitor.Summary())
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.monitor.Refresh(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.monitor.Summary())
}
