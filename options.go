package sessionreplay

import (
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/sessionreplay/sessionreplay-go/pkg/forward"
)

const (
	defaultServerURL                 = "https://r.sessionreplay.io"
	defaultUploadInterval            = 5 * time.Second
	defaultViewScanInterval          = time.Second
	defaultMaxQueueSize              = 1000
	defaultMaxRetries                = 3
	defaultRemoteConfigFetchInterval = time.Minute
	defaultMaxPersistedBatches       = 100

	// sandboxHostApp is the shared development host in which recording is
	// refused unless DangerouslySkipExpoGoCheck is set.
	sandboxHostApp = "expo-go"
)

// ConnectionType restricts which network uploads may use.
type ConnectionType string

const (
	// ConnectionMobile uploads on any connection.
	ConnectionMobile ConnectionType = "MOBILE"
	// ConnectionWiFi defers uploads, including session registration, until
	// ConnectionMonitor reports WIFI. Fetching capture rules is not deferred.
	ConnectionWiFi ConnectionType = "WIFI"
)

// NetworkOptions configure capture of HTTP traffic made through wrapped
// clients.
type NetworkOptions struct {
	// IsEnabled toggles network capture (defaults to true).
	IsEnabled *bool
	// RequestSanitizer may scrub a captured request. Returning nil excludes
	// the request, and its response, from the recording.
	RequestSanitizer func(request *NetworkRequest) *NetworkRequest
	// ResponseSanitizer may scrub a captured response. Returning nil excludes
	// the response; the request is still recorded.
	ResponseSanitizer func(response *NetworkResponse) *NetworkResponse
}

// ConsoleLevels toggle console capture per level. A nil field means enabled.
type ConsoleLevels struct {
	Log   *bool `mapstructure:"log"`
	Info  *bool `mapstructure:"info"`
	Debug *bool `mapstructure:"debug"`
	Warn  *bool `mapstructure:"warn"`
	Error *bool `mapstructure:"error"`
}

// ConsoleOptions configure capture of log output fed through
// [Client.ConsoleHook] or [Client.ConsoleWriter].
type ConsoleOptions struct {
	// IsEnabled toggles console capture as a whole (defaults to true).
	IsEnabled *bool
	// Levels narrows capture to individual levels.
	Levels *ConsoleLevels
	// ShouldAggregateConsoleErrors additionally records error level entries
	// as exceptions.
	ShouldAggregateConsoleErrors bool
}

// Options configure the session recording client. Every field is optional.
type Options struct {
	// ServerURL is where sessions are uploaded
	// (defaults to the SESSIONREPLAY_SERVER_URL environment variable,
	// or "https://r.sessionreplay.io" if not set)
	ServerURL string
	// EnableIPCapture lets the server record the client IP address
	// (defaults to true)
	EnableIPCapture *bool
	// UploadInterval configures how frequently batches of events are
	// uploaded. (defaults to 5 * time.Second)
	UploadInterval time.Duration
	// ViewScanInterval configures how frequently ViewScanner is sampled.
	// (defaults to 1 * time.Second)
	ViewScanInterval time.Duration
	// LogLevel of the client's own logger: error, warn, info or debug
	// (defaults to the SESSIONREPLAY_LOG_LEVEL environment variable, or info)
	LogLevel string
	Network  NetworkOptions
	Console  ConsoleOptions
	// RedactionTags name keys whose values are scrubbed from captured
	// bodies, headers, properties, state and view snapshots. Case insensitive.
	RedactionTags []string
	// EnablePersistence stores batches that could not be uploaded on disk and
	// retries them on the next start.
	EnablePersistence bool
	// ConnectionType restricts uploads to WIFI, see ConnectionMonitor
	// (defaults to MOBILE, i.e. any connection)
	ConnectionType ConnectionType
	// DangerouslySkipExpoGoCheck allows recording inside the shared
	// development host app.
	DangerouslySkipExpoGoCheck bool

	// PersistenceDir holds persisted batches
	// (defaults to SESSIONREPLAY_PERSISTENCE_DIR, or a directory under
	// os.UserCacheDir)
	PersistenceDir string
	// MaxQueueSize bounds buffered events; the oldest are dropped first.
	// (defaults to 1000)
	MaxQueueSize int
	// MaxRetries bounds upload retries on server errors. (defaults to 3)
	MaxRetries uint64
	// ConnectionMonitor reports the current connection type. Only consulted
	// when ConnectionType is WIFI.
	ConnectionMonitor func() ConnectionType
	// ViewScanner returns a snapshot of the current view hierarchy. It is
	// sampled every ViewScanInterval when set.
	ViewScanner func() any
	// RemoteConfigFetchInterval configures how frequently capture rules are
	// refreshed from the server. (defaults to 1 * time.Minute)
	RemoteConfigFetchInterval time.Duration
	// DisableRemoteConfig turns off fetching capture rules.
	DisableRemoteConfig bool
	// Forwarders receive a copy of every identify and track call.
	Forwarders []forward.Forwarder
	// MetricsRegisterer exposes the client's counters. (defaults to a
	// private registry)
	MetricsRegisterer prometheus.Registerer

	// The HTTPClient to use for uploads
	// (defaults to http.DefaultClient)
	HTTPClient *http.Client
	// TokenSource authenticates uploads with OAuth2 bearer tokens.
	TokenSource oauth2.TokenSource
	// OnError allows you to handle errors the client cannot surface
	// (by default errors are logged)
	OnError func(error)
	// Logger to use instead of a dedicated one. Entries are tagged with
	// prefix=sessionreplay.
	Logger *logrus.Logger

	hostApp string
}

// envConfig holds defaults read from SESSIONREPLAY_* environment variables.
type envConfig struct {
	ServerURL      string `envconfig:"SERVER_URL"`
	LogLevel       string `envconfig:"LOG_LEVEL"`
	PersistenceDir string `envconfig:"PERSISTENCE_DIR"`
	HostApp        string `envconfig:"HOST_APP"`
}

// Bool returns a pointer to b, for the optional toggles in Options.
func Bool(b bool) *bool {
	return &b
}

func (o *Options) parse() (*Options, error) {
	if o == nil {
		o = &Options{}
	} else {
		copy := *o
		o = &copy
	}

	env := envConfig{}
	if err := envconfig.Process("sessionreplay", &env); err != nil {
		return nil, errors.Wrap(err, "sessionreplay: invalid environment")
	}
	o.hostApp = env.HostApp

	if o.ServerURL == "" {
		o.ServerURL = env.ServerURL
	}
	if o.ServerURL == "" {
		o.ServerURL = defaultServerURL
	}
	if u, err := url.Parse(o.ServerURL); err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return nil, errors.Errorf("sessionreplay: invalid ServerURL %q", o.ServerURL)
	}

	if o.EnableIPCapture == nil {
		o.EnableIPCapture = Bool(true)
	}

	if o.UploadInterval == 0 {
		o.UploadInterval = defaultUploadInterval
	}
	if o.UploadInterval < time.Millisecond {
		return nil, errors.New("sessionreplay: UploadInterval too small, did you forget to multiply by time.Millisecond?")
	}

	if o.ViewScanInterval == 0 {
		o.ViewScanInterval = defaultViewScanInterval
	}
	if o.ViewScanInterval < time.Millisecond {
		return nil, errors.New("sessionreplay: ViewScanInterval too small, did you forget to multiply by time.Second?")
	}

	if o.LogLevel == "" {
		o.LogLevel = env.LogLevel
	}

	if o.Network.IsEnabled == nil {
		o.Network.IsEnabled = Bool(true)
	}
	if o.Console.IsEnabled == nil {
		o.Console.IsEnabled = Bool(true)
	}

	switch o.ConnectionType {
	case "":
		o.ConnectionType = ConnectionMobile
	case ConnectionMobile, ConnectionWiFi:
	default:
		return nil, errors.Errorf("sessionreplay: invalid ConnectionType %q, expected MOBILE or WIFI", o.ConnectionType)
	}

	if o.PersistenceDir == "" {
		o.PersistenceDir = env.PersistenceDir
	}
	if o.EnablePersistence && o.PersistenceDir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			base = os.TempDir()
		}
		o.PersistenceDir = filepath.Join(base, "sessionreplay")
	}

	if o.MaxQueueSize == 0 {
		o.MaxQueueSize = defaultMaxQueueSize
	}
	if o.MaxQueueSize < 0 {
		return nil, errors.New("sessionreplay: MaxQueueSize must be positive")
	}
	if o.MaxRetries == 0 {
		o.MaxRetries = defaultMaxRetries
	}

	if o.RemoteConfigFetchInterval == 0 {
		o.RemoteConfigFetchInterval = defaultRemoteConfigFetchInterval
	}
	if o.RemoteConfigFetchInterval < time.Millisecond {
		return nil, errors.New("sessionreplay: RemoteConfigFetchInterval too small, did you forget to multiply by time.Second?")
	}

	if o.HTTPClient == nil {
		o.HTTPClient = http.DefaultClient
	}

	return o, nil
}

func enabled(b *bool) bool {
	return b == nil || *b
}
