package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/VersatilVC/organize-prime-sub010/endpoint"
	"github.com/VersatilVC/organize-prime-sub010/signature"
)

const (
	// maxResponseBody caps how much of the receiver's response is captured.
	maxResponseBody = 16 * 1024

	// DefaultTimeout is the hard deadline for a single call.
	DefaultTimeout = 30 * time.Second

	userAgent = "OrganizePrime-Hooks/1.0"
)

// CallOptions configures a single delivery attempt.
type CallOptions struct {
	// Timeout is the hard deadline for the whole call, including the
	// response body read. Zero means DefaultTimeout.
	Timeout time.Duration

	// FollowRedirects controls whether 3xx responses are followed.
	FollowRedirects bool

	// Test marks the call as interactive; the receiver sees X-Test: true.
	Test bool
}

// DefaultCallOptions returns the options applied when Call receives nil.
func DefaultCallOptions() CallOptions {
	return CallOptions{
		Timeout:         DefaultTimeout,
		FollowRedirects: true,
	}
}

// TestResult is the classified outcome of one delivery attempt.
type TestResult struct {
	// Status is success, failed, or timeout.
	Status Status `json:"status"`

	// StatusCode is the HTTP response code, 0 when no response arrived.
	StatusCode int `json:"status_code,omitempty"`

	// ResponseTimeMs is the observed latency in milliseconds.
	ResponseTimeMs int `json:"response_time_ms"`

	// ResponseBody is the parsed JSON body when the content type indicates
	// JSON, otherwise the raw text. Nil when the body was empty.
	ResponseBody any `json:"response_body,omitempty"`

	// BodyUnparsable is set when a JSON content type arrived with a body
	// that did not parse; ResponseBody then holds the raw text.
	BodyUnparsable bool `json:"body_unparsable,omitempty"`

	// ErrorMessage describes the failure, if any. Sanitized.
	ErrorMessage string `json:"error_message,omitempty"`

	// RequestHeaders is a copy of the headers sent with the call.
	RequestHeaders map[string]string `json:"request_headers"`

	// ResponseHeaders is a copy of the headers the receiver answered with.
	ResponseHeaders map[string]string `json:"response_headers,omitempty"`

	// PayloadSize is the serialized payload length in bytes.
	PayloadSize int `json:"payload_size"`

	// RetryCount is how many retries preceded this result. Set by Do.
	RetryCount int `json:"retry_count"`
}

// Succeeded reports whether the attempt got a 2xx answer.
func (r *TestResult) Succeeded() bool {
	return r.Status == StatusSuccess
}

// Caller performs one signed HTTP delivery attempt per Call invocation.
// The transport is shared across calls; redirect policy and deadline are
// per call.
type Caller struct {
	transport http.RoundTripper
	validator *Validator
}

// NewCaller creates a Caller with a shared transport.
func NewCaller() *Caller {
	return &Caller{
		transport: http.DefaultTransport,
		validator: NewValidator(),
	}
}

// Call serializes the payload, signs it when the endpoint has a secret,
// and issues a single POST under a hard deadline. On deadline expiry the
// in-flight request is cancelled and the result is status=timeout; a
// completed non-2xx response is status=failed with "HTTP <code>: <reason>".
//
// Payload schema violations and other pre-network failures are returned
// as an error; every outcome that reached the network is reported through
// the TestResult instead.
func (c *Caller) Call(ctx context.Context, ep *endpoint.Endpoint, p Payload, opts *CallOptions) (*TestResult, error) {
	o := DefaultCallOptions()
	if opts != nil {
		o = *opts
		if o.Timeout <= 0 {
			o.Timeout = DefaultTimeout
		}
	}

	if err := c.validator.Validate(ep.PayloadSchema, p.Data); err != nil {
		return nil, err
	}

	now := time.Now()
	body, err := p.stamp(ep.ID, now)
	if err != nil {
		return nil, fmt.Errorf("delivery: marshal payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("delivery: create request: %w", err)
	}

	// Standard headers.
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Event-Type", p.EventType)
	req.Header.Set("X-Webhook-ID", ep.ID.String())
	req.Header.Set("X-Timestamp", now.UTC().Format(time.RFC3339))
	if o.Test {
		req.Header.Set("X-Test", "true")
	}
	if p.OrganizationID != "" {
		req.Header.Set("X-Organization-ID", p.OrganizationID)
	}
	if p.UserID != "" {
		req.Header.Set("X-User-ID", p.UserID)
	}

	// HMAC signature. Unsigned endpoints get no signature headers at all.
	if ep.Signed() {
		req.Header.Set("X-Signature", signature.Sign(body, ep.Secret))
		req.Header.Set("X-Signature-Version", signature.Version)
	}

	// Custom endpoint headers.
	for k, v := range ep.Headers {
		req.Header.Set(k, v)
	}

	res := &TestResult{
		PayloadSize:    len(body),
		RequestHeaders: flattenHeaders(req.Header),
	}

	client := &http.Client{Transport: c.transport}
	if !o.FollowRedirects {
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	start := time.Now()
	resp, err := client.Do(req) //nolint:gosec // G704: URL is a user-configured webhook destination; SSRF is by design.
	res.ResponseTimeMs = int(time.Since(start).Milliseconds())

	if err != nil {
		if isTimeout(err) {
			res.Status = StatusTimeout
			res.ErrorMessage = fmt.Sprintf("request timed out after %dms", o.Timeout.Milliseconds())
			return res, nil
		}
		res.Status = StatusFailed
		res.ErrorMessage = Sanitize(err.Error(), ep.Secret)
		return res, nil
	}
	defer resp.Body.Close()

	res.StatusCode = resp.StatusCode
	res.ResponseHeaders = flattenHeaders(resp.Header)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		res.Status = StatusSuccess
	} else {
		res.Status = StatusFailed
		res.ErrorMessage = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if readErr != nil {
		if isTimeout(readErr) {
			res.Status = StatusTimeout
			res.ErrorMessage = fmt.Sprintf("request timed out after %dms", o.Timeout.Milliseconds())
			return res, nil
		}
		res.ErrorMessage = Sanitize("read response: "+readErr.Error(), ep.Secret)
		return res, nil
	}
	res.ResponseBody, res.BodyUnparsable = parseBody(resp.Header.Get("Content-Type"), raw)

	return res, nil
}

// parseBody decodes the response body as JSON when the content type says
// so, else captures it as text. An unparsable JSON body is flagged, not
// dropped.
func parseBody(contentType string, raw []byte) (body any, unparsable bool) {
	if len(raw) == 0 {
		return nil, false
	}
	if strings.Contains(strings.ToLower(contentType), "json") {
		var parsed any
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return string(raw), true
		}
		return parsed, false
	}
	return string(raw), false
}

// isTimeout reports whether err represents a deadline expiry rather than
// a plain connection failure.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// flattenHeaders copies the first value of each header into a plain map.
func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		out[k] = h.Get(k)
	}
	return out
}
