package api

import (
	"net/http"
	"time"

	"github.com/VersatilVC/organize-prime-sub010/delivery"
	"github.com/VersatilVC/organize-prime-sub010/id"
)

type testRequest struct {
	EventType      string         `json:"event_type"`
	OrganizationID string         `json:"organization_id,omitempty"`
	UserID         string         `json:"user_id,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
}

func (req testRequest) payload() delivery.Payload {
	return delivery.Payload{
		EventType:      req.EventType,
		OrganizationID: req.OrganizationID,
		UserID:         req.UserID,
		Data:           req.Data,
	}
}

func (h *Handler) testEndpoint(w http.ResponseWriter, r *http.Request) {
	whID, ok := pathWebhookID(w, r)
	if !ok {
		return
	}

	var req testRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.EventType == "" {
		writeError(w, http.StatusBadRequest, "event_type is required")
		return
	}

	res, err := h.monitor.Test(r.Context(), whID, req.payload())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

type testBatchRequest struct {
	WebhookIDs []string    `json:"webhook_ids"`
	Payload    testRequest `json:"payload"`
}

// testOutcome is the per-endpoint result of a batch test.
type testOutcome struct {
	WebhookID string               `json:"webhook_id"`
	Result    *delivery.TestResult `json:"result,omitempty"`
	Error     string               `json:"error,omitempty"`
}

func (h *Handler) testBatch(w http.ResponseWriter, r *http.Request) {
	var req testBatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.WebhookIDs) == 0 {
		writeError(w, http.StatusBadRequest, "webhook_ids is required")
		return
	}
	if req.Payload.EventType == "" {
		writeError(w, http.StatusBadRequest, "payload.event_type is required")
		return
	}

	ids := make([]id.ID, 0, len(req.WebhookIDs))
	for _, raw := range req.WebhookIDs {
		whID, err := id.ParseWebhookID(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid webhook ID: "+raw)
			return
		}
		ids = append(ids, whID)
	}

	outcomes := h.monitor.TestBatch(r.Context(), ids, req.Payload.payload())

	results := make([]testOutcome, 0, len(outcomes))
	for _, out := range outcomes {
		o := testOutcome{WebhookID: out.Item.String(), Result: out.Result}
		if out.Err != nil {
			o.Error = out.Err.Error()
		}
		results = append(results, o)
	}
	writeJSON(w, http.StatusOK, results)
}

type retryFailedRequest struct {
	Since time.Time `json:"since"`
}

// retryOutcome is the per-event result of a failed-delivery retry sweep.
type retryOutcome struct {
	EventID string               `json:"event_id"`
	Result  *delivery.TestResult `json:"result,omitempty"`
	Error   string               `json:"error,omitempty"`
}

func (h *Handler) retryFailed(w http.ResponseWriter, r *http.Request) {
	whID, ok := pathWebhookID(w, r)
	if !ok {
		return
	}

	req := retryFailedRequest{Since: time.Now().UTC().Add(-24 * time.Hour)}
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	outcomes, err := h.monitor.RetryFailed(r.Context(), whID, req.Since)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	results := make([]retryOutcome, 0, len(outcomes))
	for _, out := range outcomes {
		o := retryOutcome{EventID: out.Item.ID.String(), Result: out.Result}
		if out.Err != nil {
			o.Error = out.Err.Error()
		}
		results = append(results, o)
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *Handler) getEvent(w http.ResponseWriter, r *http.Request) {
	evtID, err := id.ParseEventID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event ID")
		return
	}

	evt, err := h.monitor.Event(r.Context(), evtID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, evt)
}

func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request) {
	whID, ok := pathWebhookID(w, r)
	if !ok {
		return
	}

	f := delivery.Filter{
		WebhookID: whID,
		Limit:     queryInt(r, "limit", 50),
	}
	if status := queryParam(r, "status"); status != "" {
		f.Statuses = []delivery.Status{delivery.Status(status)}
	}

	events, err := h.monitor.Store().QueryEvents(r.Context(), f)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, events)
}
