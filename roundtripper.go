package sessionreplay

import (
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/sessionreplay/sessionreplay-go/internal/metrics"
	"github.com/sessionreplay/sessionreplay-go/pkg/event"
)

type roundTripper struct {
	// resolve returns the client recording the request, or nil to pass it
	// through untouched.
	resolve func() *Client
	next    http.RoundTripper
}

// Wrap returns a copy of client whose requests are captured into the
// session. A nil client wraps http.DefaultClient.
func (c *Client) Wrap(client *http.Client) *http.Client {
	return wrap(client, func() *Client { return c })
}

func wrap(client *http.Client, resolve func() *Client) *http.Client {
	if client == nil {
		client = http.DefaultClient
	}
	next := client.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	wrapped := *client
	wrapped.Transport = &roundTripper{resolve: resolve, next: next}
	return &wrapped
}

func (rt *roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	c := rt.resolve()
	if c == nil || !c.shouldLogRequest(req) {
		return rt.next.RoundTrip(req)
	}

	id := uuid.New().String()
	e := c.logRequest(id, req)

	resp, err := rt.next.RoundTrip(req)

	if e == nil {
		return resp, err
	}
	captured := event.NewResponse(id, e.Network.Request.Method, resp, err)
	if err != nil || resp == nil {
		c.logResponse(e, captured, err)
		return resp, err
	}
	// the event completes once the caller is done with the body, so
	// streaming responses are handed over without waiting
	resp.Body = event.CaptureBody(resp.Body, func(body *string) {
		captured.Body = body
		c.logResponse(e, captured, nil)
	})
	return resp, err
}

func (c *Client) shouldLogRequest(req *http.Request) bool {
	if !enabled(c.options.Network.IsEnabled) || !c.remote.RecordingEnabled() {
		return false
	}
	if req.URL == nil {
		return false
	}
	// never capture our own uploads
	if server, err := url.Parse(c.options.ServerURL); err == nil && req.URL.Host == server.Host {
		return false
	}
	return !c.remote.ShouldIgnoreURL(req.URL.String())
}

// logRequest records the request and returns its pending event, or nil when
// the request sanitizer excluded it.
func (c *Client) logRequest(id string, req *http.Request) *event.Event {
	captured := c.sanitizeRequest(event.NewRequest(id, req))
	if captured == nil {
		c.metrics.Dropped.WithLabelValues(metrics.DropSanitizer).Inc()
		return nil
	}
	// the sanitizer must not change which response belongs to the request
	captured.ReqID = id

	e := event.NewNetwork(captured)
	if !c.record(e) {
		return nil
	}
	return e
}

// logResponse completes a pending network event. A response excluded by the
// sanitizer still completes the event so the request is uploaded.
func (c *Client) logResponse(e *event.Event, resp *event.NetworkResponse, err error) {
	defer c.recoverPanic("network capture")
	captured := c.sanitizeResponse(resp)
	if captured == nil {
		c.metrics.Dropped.WithLabelValues(metrics.DropSanitizer).Inc()
	} else {
		captured.ReqID = e.Network.Request.ReqID
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()
	// after Close the event may already be on its way out
	if c.closed {
		return
	}
	e.Complete(captured, err)
}

func (c *Client) sanitizeRequest(req *event.NetworkRequest) (ret *event.NetworkRequest) {
	sanitizer := c.options.Network.RequestSanitizer
	if sanitizer == nil {
		return req
	}
	defer func() {
		if r := recover(); r != nil {
			c.handleError(errors.Errorf("sessionreplay: RequestSanitizer panicked: %v", r))
			ret = nil
		}
	}()
	return sanitizer(req)
}

func (c *Client) sanitizeResponse(resp *event.NetworkResponse) (ret *event.NetworkResponse) {
	sanitizer := c.options.Network.ResponseSanitizer
	if sanitizer == nil {
		return resp
	}
	defer func() {
		if r := recover(); r != nil {
			c.handleError(errors.Errorf("sessionreplay: ResponseSanitizer panicked: %v", r))
			ret = nil
		}
	}()
	return sanitizer(resp)
}
