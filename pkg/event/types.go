package event

import "time"

// Event is a single captured unit of session telemetry.
// Exactly one of the payload fields is set, matching Type.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	Network   *Network   `json:"network,omitempty"`
	Track     *Track     `json:"track,omitempty"`
	Identify  *Identify  `json:"identify,omitempty"`
	Exception *Exception `json:"exception,omitempty"`
	Console   *Console   `json:"console,omitempty"`
	Redux     *Redux     `json:"redux,omitempty"`
	View      *View      `json:"view,omitempty"`

	MetaData MetaData `json:"metadata"`
}

type MetaData struct {
	SensitiveKeys []RedactedKeyMeta `json:"sensitiveKeys,omitempty"`
}

type RedactedKeyMeta struct {
	KeyPath string `json:"keyPath"`
	Length  int    `json:"length"`
	Type    string `json:"type"`
}

// NetworkRequest is the captured shape of an outbound request, as handed to
// a request sanitizer. A nil header value marks the header as unset.
type NetworkRequest struct {
	ReqID       string             `json:"reqId"`
	URL         string             `json:"url"`
	Headers     map[string]*string `json:"headers"`
	Body        *string            `json:"body,omitempty"`
	Method      string             `json:"method"`
	Referrer    *string            `json:"referrer,omitempty"`
	Mode        *string            `json:"mode,omitempty"`
	Credentials *string            `json:"credentials,omitempty"`
}

// NetworkResponse is the captured shape of a response, as handed to a
// response sanitizer. Status is nil when the round trip failed.
type NetworkResponse struct {
	ReqID   string             `json:"reqId"`
	Status  *int               `json:"status,omitempty"`
	Headers map[string]*string `json:"headers"`
	Body    *string            `json:"body,omitempty"`
	Method  string             `json:"method"`
}

type Network struct {
	Request     *NetworkRequest  `json:"request"`
	Response    *NetworkResponse `json:"response,omitempty"`
	RequestedAt time.Time        `json:"requestedAt"`
	RespondedAt time.Time        `json:"respondedAt,omitempty"`
	Duration    int              `json:"durationMs"`
	// Error holds the transport error when no response was received.
	Error string `json:"error,omitempty"`
}

type Track struct {
	Name       string         `json:"name"`
	Properties map[string]any `json:"properties,omitempty"`
}

type Identify struct {
	UserID string         `json:"userID,omitempty"`
	Traits map[string]any `json:"traits,omitempty"`
}

type Frame struct {
	Function string `json:"function"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

type Exception struct {
	Message string         `json:"message"`
	Type    string         `json:"type"`
	Causes  []string       `json:"causes,omitempty"`
	Stack   []Frame        `json:"stack,omitempty"`
	Tags    map[string]any `json:"tags,omitempty"`
	Extra   map[string]any `json:"extra,omitempty"`
	// Source is "captureException" or "console".
	Source string `json:"source"`
}

type Console struct {
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
}

type Redux struct {
	Action   map[string]any `json:"action"`
	State    map[string]any `json:"state"`
	Duration int            `json:"durationMs"`
}

type View struct {
	Snapshot any `json:"snapshot"`
}
