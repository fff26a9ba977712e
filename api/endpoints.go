package api

import (
	"encoding/json"
	"errors"
	"net/http"

	hooks "github.com/VersatilVC/organize-prime-sub010"
	"github.com/VersatilVC/organize-prime-sub010/endpoint"
	"github.com/VersatilVC/organize-prime-sub010/id"
)

type endpointRequest struct {
	Name          string            `json:"name"`
	URL           string            `json:"url"`
	Secret        string            `json:"secret,omitempty"`
	Headers       map[string]string `json:"headers,omitempty"`
	PayloadSchema json.RawMessage   `json:"payload_schema,omitempty"`
	TestRateLimit int               `json:"test_rate_limit,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

func (req endpointRequest) input() endpoint.Input {
	return endpoint.Input{
		Name:          req.Name,
		URL:           req.URL,
		Secret:        req.Secret,
		Headers:       req.Headers,
		PayloadSchema: req.PayloadSchema,
		TestRateLimit: req.TestRateLimit,
		Metadata:      req.Metadata,
	}
}

// pathWebhookID parses the {id} path segment, writing a 400 on failure.
func pathWebhookID(w http.ResponseWriter, r *http.Request) (id.ID, bool) {
	whID, err := id.ParseWebhookID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid webhook ID")
		return id.Nil, false
	}
	return whID, true
}

func (h *Handler) createEndpoint(w http.ResponseWriter, r *http.Request) {
	var req endpointRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ep, err := h.monitor.Endpoints().Create(r.Context(), req.input())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, ep)
}

func (h *Handler) listEndpoints(w http.ResponseWriter, r *http.Request) {
	opts := endpoint.ListOpts{
		Offset: queryInt(r, "offset", 0),
		Limit:  queryInt(r, "limit", 50),
	}
	switch queryParam(r, "active") {
	case "true":
		yes := true
		opts.IsActive = &yes
	case "false":
		no := false
		opts.IsActive = &no
	}

	eps, err := h.monitor.Endpoints().List(r.Context(), opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, eps)
}

func (h *Handler) getEndpoint(w http.ResponseWriter, r *http.Request) {
	whID, ok := pathWebhookID(w, r)
	if !ok {
		return
	}

	ep, err := h.monitor.Endpoints().Get(r.Context(), whID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ep)
}

func (h *Handler) updateEndpoint(w http.ResponseWriter, r *http.Request) {
	whID, ok := pathWebhookID(w, r)
	if !ok {
		return
	}

	var req endpointRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ep, err := h.monitor.Endpoints().Update(r.Context(), whID, req.input())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ep)
}

func (h *Handler) deleteEndpoint(w http.ResponseWriter, r *http.Request) {
	whID, ok := pathWebhookID(w, r)
	if !ok {
		return
	}

	if err := h.monitor.Endpoints().Delete(r.Context(), whID); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) enableEndpoint(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *Handler) disableEndpoint(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	whID, ok := pathWebhookID(w, r)
	if !ok {
		return
	}

	if err := h.monitor.Endpoints().SetActive(r.Context(), whID, active); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) rotateSecret(w http.ResponseWriter, r *http.Request) {
	whID, ok := pathWebhookID(w, r)
	if !ok {
		return
	}

	ep, err := h.monitor.Endpoints().RotateSecret(r.Context(), whID)
	if err != nil {
		if errors.Is(err, hooks.ErrEndpointNotFound) {
			writeError(w, http.StatusNotFound, "endpoint not found")
			return
		}
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"secret": ep.Secret})
}
