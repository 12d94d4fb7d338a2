package shared

// event types
const (
	NetworkType   = "network"
	TrackType     = "track"
	IdentifyType  = "identify"
	ExceptionType = "exception"
	ConsoleType   = "console"
	ReduxType     = "redux"
	ViewType      = "view"
)

// key path roots used in redaction metadata
const (
	RequestHeadersStr  = "requestHeaders"
	RequestBodyStr     = "requestBody"
	ResponseHeadersStr = "responseHeaders"
	ResponseBodyStr    = "responseBody"
	PropertiesStr      = "properties"
	TraitsStr          = "traits"
	StateStr           = "state"
	ActionStr          = "action"
	SnapshotStr        = "snapshot"
)

const (
	SessionsPath = "/v1/sessions"
	EventsPath   = "/v1/events"
	ConfigPath   = "/v1/config"

	AppIDHeader     = "X-App-ID"
	SessionIDHeader = "X-Session-ID"

	SDKName = "sessionreplay-go"
)
