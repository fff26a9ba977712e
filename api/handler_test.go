package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	hooks "github.com/VersatilVC/organize-prime-sub010"
	"github.com/VersatilVC/organize-prime-sub010/api"
	"github.com/VersatilVC/organize-prime-sub010/id"
	"github.com/VersatilVC/organize-prime-sub010/store/memory"
)

func newAPI(t *testing.T) *api.Handler {
	t.Helper()

	m, err := hooks.New(hooks.WithStore(memory.New()))
	if err != nil {
		t.Fatal(err)
	}
	return api.NewHandler(m, nil)
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func createEndpoint(t *testing.T, h http.Handler, url string) string {
	t.Helper()

	rec := do(t, h, http.MethodPost, "/endpoints", map[string]any{
		"name": "orders",
		"url":  url,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create endpoint: %d %s", rec.Code, rec.Body.String())
	}

	var created struct {
		ID string `json:"id"`
	}
	decode(t, rec, &created)
	if created.ID == "" {
		t.Fatal("expected an endpoint ID in the response")
	}
	return created.ID
}

func TestCreateEndpointValidation(t *testing.T) {
	h := newAPI(t)

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"valid", map[string]any{"name": "a", "url": "https://example.com/hook"}, http.StatusCreated},
		{"missing name", map[string]any{"url": "https://example.com/hook"}, http.StatusBadRequest},
		{"missing url", map[string]any{"name": "a"}, http.StatusBadRequest},
		{"bad scheme", map[string]any{"name": "a", "url": "ftp://example.com"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/endpoints", tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestEndpointLifecycle(t *testing.T) {
	h := newAPI(t)
	epID := createEndpoint(t, h, "https://example.com/hook")

	rec := do(t, h, http.MethodGet, "/endpoints/"+epID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: %d", rec.Code)
	}

	rec = do(t, h, http.MethodPut, "/endpoints/"+epID, map[string]any{"name": "renamed"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}
	var updated struct {
		Name string `json:"name"`
	}
	decode(t, rec, &updated)
	if updated.Name != "renamed" {
		t.Fatalf("name = %q, want renamed", updated.Name)
	}

	rec = do(t, h, http.MethodPatch, "/endpoints/"+epID+"/disable", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("disable: %d", rec.Code)
	}
	rec = do(t, h, http.MethodGet, "/endpoints/"+epID, nil)
	var got struct {
		IsActive bool `json:"is_active"`
	}
	decode(t, rec, &got)
	if got.IsActive {
		t.Fatal("expected the endpoint to be inactive")
	}

	rec = do(t, h, http.MethodPatch, "/endpoints/"+epID+"/enable", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("enable: %d", rec.Code)
	}

	rec = do(t, h, http.MethodDelete, "/endpoints/"+epID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rec.Code)
	}
	rec = do(t, h, http.MethodGet, "/endpoints/"+epID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: %d", rec.Code)
	}
}

func TestGetEndpointErrors(t *testing.T) {
	h := newAPI(t)

	if rec := do(t, h, http.MethodGet, "/endpoints/not-a-typeid", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid ID: %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/endpoints/"+id.NewWebhookID().String(), nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown ID: %d", rec.Code)
	}
}

func TestRotateSecret(t *testing.T) {
	h := newAPI(t)
	epID := createEndpoint(t, h, "https://example.com/hook")

	rec := do(t, h, http.MethodPost, "/endpoints/"+epID+"/rotate-secret", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("rotate: %d %s", rec.Code, rec.Body.String())
	}
	var got struct {
		Secret string `json:"secret"`
	}
	decode(t, rec, &got)
	if got.Secret == "" {
		t.Fatal("expected a generated secret")
	}
}

func TestTestEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	h := newAPI(t)
	epID := createEndpoint(t, h, srv.URL)

	rec := do(t, h, http.MethodPost, "/endpoints/"+epID+"/test", map[string]any{
		"event_type": "feedback.created",
		"data":       map[string]any{"id": "fb_1"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("test: %d %s", rec.Code, rec.Body.String())
	}
	var res struct {
		Status     string `json:"status"`
		StatusCode int    `json:"status_code"`
	}
	decode(t, rec, &res)
	if res.Status != "success" || res.StatusCode != http.StatusOK {
		t.Fatalf("unexpected result: %+v", res)
	}

	// The attempt lands in the delivery log.
	rec = do(t, h, http.MethodGet, "/endpoints/"+epID+"/events", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list events: %d", rec.Code)
	}
	var events []struct {
		ID string `json:"id"`
	}
	decode(t, rec, &events)
	if len(events) != 1 {
		t.Fatalf("expected 1 logged event, got %d", len(events))
	}

	// Each logged event is retrievable by ID.
	rec = do(t, h, http.MethodGet, "/events/"+events[0].ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get event: %d %s", rec.Code, rec.Body.String())
	}
}

func TestGetEventErrors(t *testing.T) {
	h := newAPI(t)

	if rec := do(t, h, http.MethodGet, "/events/not-a-typeid", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid ID: %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/events/"+id.NewEventID().String(), nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown ID: %d", rec.Code)
	}
}

func TestTopTriggers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	h := newAPI(t)
	epID := createEndpoint(t, h, srv.URL)
	if rec := do(t, h, http.MethodPost, "/endpoints/"+epID+"/test", map[string]any{"event_type": "x"}); rec.Code != http.StatusOK {
		t.Fatalf("test: %d", rec.Code)
	}

	rec := do(t, h, http.MethodGet, "/top-triggers", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("top-triggers: %d", rec.Code)
	}
	var ranked []struct {
		WebhookID    string `json:"webhook_id"`
		TriggerCount int64  `json:"trigger_count"`
	}
	decode(t, rec, &ranked)
	if len(ranked) != 1 || ranked[0].WebhookID != epID || ranked[0].TriggerCount != 1 {
		t.Fatalf("unexpected ranking: %+v", ranked)
	}
}

func TestTestEndpointRejections(t *testing.T) {
	h := newAPI(t)
	epID := createEndpoint(t, h, "https://example.com/hook")

	rec := do(t, h, http.MethodPost, "/endpoints/"+epID+"/test", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing event_type: %d", rec.Code)
	}

	if rec := do(t, h, http.MethodPatch, "/endpoints/"+epID+"/disable", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("disable: %d", rec.Code)
	}
	rec = do(t, h, http.MethodPost, "/endpoints/"+epID+"/test", map[string]any{"event_type": "x"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("inactive endpoint: %d %s", rec.Code, rec.Body.String())
	}
}

func TestTestEndpointRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	h := newAPI(t)
	rec := do(t, h, http.MethodPost, "/endpoints", map[string]any{
		"name":            "limited",
		"url":             srv.URL,
		"test_rate_limit": 1,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d", rec.Code)
	}
	var created struct {
		ID string `json:"id"`
	}
	decode(t, rec, &created)

	body := map[string]any{"event_type": "x"}
	if rec := do(t, h, http.MethodPost, "/endpoints/"+created.ID+"/test", body); rec.Code != http.StatusOK {
		t.Fatalf("first test: %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/endpoints/"+created.ID+"/test", body); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second test: %d, want 429", rec.Code)
	}
}

func TestTestBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	h := newAPI(t)
	a := createEndpoint(t, h, srv.URL)
	b := createEndpoint(t, h, srv.URL)

	rec := do(t, h, http.MethodPost, "/test-batch", map[string]any{
		"webhook_ids": []string{a, b},
		"payload":     map[string]any{"event_type": "feedback.created"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("batch: %d %s", rec.Code, rec.Body.String())
	}
	var outcomes []struct {
		WebhookID string `json:"webhook_id"`
		Error     string `json:"error"`
	}
	decode(t, rec, &outcomes)
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	for _, out := range outcomes {
		if out.Error != "" {
			t.Fatalf("unexpected outcome error: %s", out.Error)
		}
	}

	rec = do(t, h, http.MethodPost, "/test-batch", map[string]any{
		"webhook_ids": []string{"garbage"},
		"payload":     map[string]any{"event_type": "x"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad ID: %d", rec.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	h := newAPI(t)
	epID := createEndpoint(t, h, "https://example.com/hook")

	rec := do(t, h, http.MethodGet, "/endpoints/"+epID+"/stats?window=90d", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad window: %d", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/endpoints/"+epID+"/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("default window: %d %s", rec.Code, rec.Body.String())
	}
	var s struct {
		Window string `json:"window"`
		Total  int    `json:"total"`
	}
	decode(t, rec, &s)
	if s.Window != "24h" || s.Total != 0 {
		t.Fatalf("unexpected stats: %+v", s)
	}
}

func TestSummaryAndRefresh(t *testing.T) {
	h := newAPI(t)
	createEndpoint(t, h, "https://example.com/hook")

	rec := do(t, h, http.MethodPost, "/refresh", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodGet, "/summary", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary: %d", rec.Code)
	}
	var summary struct {
		TotalEndpoints int `json:"total_endpoints"`
	}
	decode(t, rec, &summary)
	if summary.TotalEndpoints != 1 {
		t.Fatalf("total_endpoints = %d, want 1", summary.TotalEndpoints)
	}
}

func TestFleetTrends(t *testing.T) {
	h := newAPI(t)

	rec := do(t, h, http.MethodGet, "/trends?days=3", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("trends: %d", rec.Code)
	}
	var points []map[string]any
	decode(t, rec, &points)
	if len(points) != 3 {
		t.Fatalf("expected 3 day buckets, got %d", len(points))
	}
}
