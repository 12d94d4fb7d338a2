package sessionreplay

import (
	"io"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/sessionreplay/sessionreplay-go/internal/logger"
	"github.com/sessionreplay/sessionreplay-go/pkg/event"
	"github.com/sessionreplay/sessionreplay-go/pkg/redux"
)

// Interface is the recording surface shared by [SDK] and test stand-ins such
// as sessionreplaytest.Recorder.
type Interface interface {
	Init(appID string, config *Options)
	GetSessionURL(callback func(sessionURL string))
	Identify(uid string, traits UserTraits)
	IdentifyTraits(traits UserTraits)
	CaptureException(exception any, options *ExceptionOptions)
	Track(eventName string, eventProperties *TrackEventProperties)
	ReduxMiddleware(options *ReduxMiddlewareOptions) redux.Middleware
	Shutdown()
}

var _ Interface = (*SDK)(nil)

// SDK owns the lifecycle of one recording client. Every method is safe for
// concurrent use, and calls made before Init or after Shutdown do nothing.
type SDK struct {
	mutex  sync.RWMutex
	client *Client
}

// Init starts recording a new session for appID. A previously started
// session is shut down first. Invalid configuration is reported through
// config.OnError, or logged, and leaves the SDK uninitialised.
func (s *SDK) Init(appID string, config *Options) {
	c, err := New(appID, config)

	s.mutex.Lock()
	prev := s.client
	s.client = c
	s.mutex.Unlock()

	if prev != nil {
		_ = prev.Close()
	}
	if err != nil {
		reportInitError(config, err)
	}
}

func reportInitError(config *Options, err error) {
	if config != nil && config.OnError != nil {
		config.OnError(err)
		return
	}
	var base *logrus.Logger
	level := ""
	if config != nil {
		base, level = config.Logger, config.LogLevel
	}
	logger.New(base, nil, level).WithError(err).Error("session recording not started")
}

// Client returns the running client, or nil before Init and after Shutdown.
func (s *SDK) Client() *Client {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.client
}

func (s *SDK) with(op string, fn func(c *Client)) {
	c := s.Client()
	if c == nil {
		logrus.WithField("prefix", logger.Prefix).Debugf("%s called without a running session, ignoring", op)
		return
	}
	fn(c)
}

func (s *SDK) GetSessionURL(callback func(sessionURL string)) {
	s.with("GetSessionURL", func(c *Client) { c.GetSessionURL(callback) })
}

func (s *SDK) Identify(uid string, traits UserTraits) {
	s.with("Identify", func(c *Client) { c.Identify(uid, traits) })
}

func (s *SDK) IdentifyTraits(traits UserTraits) {
	s.with("IdentifyTraits", func(c *Client) { c.IdentifyTraits(traits) })
}

func (s *SDK) CaptureException(exception any, options *ExceptionOptions) {
	s.with("CaptureException", func(c *Client) { c.CaptureException(exception, options) })
}

func (s *SDK) Track(eventName string, eventProperties *TrackEventProperties) {
	s.with("Track", func(c *Client) { c.Track(eventName, eventProperties) })
}

// ReduxMiddleware returns a middleware that records into whichever session is
// running at dispatch time, so it can be installed before Init.
func (s *SDK) ReduxMiddleware(options *ReduxMiddlewareOptions) redux.Middleware {
	return redux.New(sdkRecorder{s}, options)
}

// Shutdown uploads pending events and stops recording.
func (s *SDK) Shutdown() {
	s.mutex.Lock()
	c := s.client
	s.client = nil
	s.mutex.Unlock()

	if c != nil {
		_ = c.Close()
	}
}

// Wrap returns a copy of client whose requests are captured into the running
// session. Requests made while no session runs pass through untouched.
func (s *SDK) Wrap(client *http.Client) *http.Client {
	return wrap(client, s.Client)
}

// ConsoleHook is [Client.ConsoleHook] for the running session.
func (s *SDK) ConsoleHook() logrus.Hook {
	return &consoleHook{resolve: s.Client}
}

// ConsoleWriter is [Client.ConsoleWriter] for the running session.
func (s *SDK) ConsoleWriter(level string) io.Writer {
	return newConsoleWriter(level, s.Client)
}

type sdkRecorder struct {
	s *SDK
}

func (r sdkRecorder) RecordRedux(e *event.Redux) {
	r.s.with("ReduxMiddleware", func(c *Client) { c.RecordRedux(e) })
}

func (r sdkRecorder) HandleError(err error) {
	r.s.with("ReduxMiddleware", func(c *Client) { c.HandleError(err) })
}

var defaultSDK = &SDK{}

// Default returns the SDK behind the package-level functions.
func Default() *SDK {
	return defaultSDK
}

// Init starts the process-wide session, see [SDK.Init].
func Init(appID string, config *Options) {
	defaultSDK.Init(appID, config)
}

// GetSessionURL calls callback once the session URL is known.
func GetSessionURL(callback func(sessionURL string)) {
	defaultSDK.GetSessionURL(callback)
}

// Identify associates the session with uid and optional traits.
func Identify(uid string, traits UserTraits) {
	defaultSDK.Identify(uid, traits)
}

// IdentifyTraits attaches traits to the current user.
func IdentifyTraits(traits UserTraits) {
	defaultSDK.IdentifyTraits(traits)
}

// CaptureException records an error or any other value as an exception.
func CaptureException(exception any, options *ExceptionOptions) {
	defaultSDK.CaptureException(exception, options)
}

// Track records a custom event.
func Track(eventName string, eventProperties *TrackEventProperties) {
	defaultSDK.Track(eventName, eventProperties)
}

// ReduxMiddleware returns a middleware recording into the process-wide
// session.
func ReduxMiddleware(options *ReduxMiddlewareOptions) redux.Middleware {
	return defaultSDK.ReduxMiddleware(options)
}

// Shutdown uploads pending events and stops the process-wide session.
func Shutdown() {
	defaultSDK.Shutdown()
}

// WrapClient is [SDK.Wrap] for the process-wide session.
func WrapClient(client *http.Client) *http.Client {
	return defaultSDK.Wrap(client)
}
