package event

import (
	"net/http"
	"time"

	"github.com/sessionreplay/sessionreplay-go/internal/shared"
)

// overridden in tests
var Clock = time.Now

// NewRequest captures r as a NetworkRequest. The request body is read and
// replaced with an equivalent reader so the round trip is unaffected.
func NewRequest(id string, r *http.Request) *NetworkRequest {
	var body *string
	body, r.Body = duplicateBody(r.Body)

	url := r.URL.String()
	if url == "" {
		url = r.Host
	}

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	req := &NetworkRequest{
		ReqID:   id,
		URL:     url,
		Headers: headersToMap(r.Header),
		Body:    body,
		Method:  method,
	}
	if ref := r.Referer(); ref != "" {
		req.Referrer = &ref
	}
	if _, _, ok := r.BasicAuth(); ok || r.Header.Get("Cookie") != "" {
		credentials := "include"
		req.Credentials = &credentials
	}
	return req
}

// NewResponse captures the status and headers of res for the request with the
// given id and method. A transport error yields a response without status.
// The body is not read here; attach it with CaptureBody as the caller reads it.
func NewResponse(id, method string, res *http.Response, err error) *NetworkResponse {
	if err != nil || res == nil {
		return &NetworkResponse{
			ReqID:   id,
			Headers: map[string]*string{},
			Method:  method,
		}
	}

	if res.Body == nil {
		res.Body = http.NoBody
	}

	status := res.StatusCode
	return &NetworkResponse{
		ReqID:   id,
		Status:  &status,
		Headers: headersToMap(res.Header),
		Method:  method,
	}
}

// NewNetwork wraps a captured request in an event. The response is attached
// later with Complete.
func NewNetwork(req *NetworkRequest) *Event {
	now := Clock()
	return &Event{
		Type:      shared.NetworkType,
		Timestamp: now,
		Network: &Network{
			Request:     req,
			RequestedAt: now,
		},
	}
}

// Complete attaches resp to a network event and records timing.
func (e *Event) Complete(resp *NetworkResponse, err error) {
	if e.Network == nil {
		return
	}
	now := Clock()
	e.Network.Response = resp
	e.Network.RespondedAt = now
	e.Network.Duration = int(now.Sub(e.Network.RequestedAt) / time.Millisecond)
	if err != nil {
		e.Network.Error = err.Error()
	}
}

// Done reports whether the event is ready to upload. Network events wait for
// their response.
func (e *Event) Done() bool {
	if e.Network == nil {
		return true
	}
	return !e.Network.RespondedAt.IsZero()
}
