// Package sessionreplay records application sessions (network traffic,
// console output, custom events, identified users, exceptions and state
// changes) and uploads them to a session replay server.
//
// Use the package-level functions ([Init], [Track], [Identify], ...) for a
// process-wide client, or [New] to manage a [Client] yourself. Every
// recording call is fire-and-forget: failures are reported through
// [Options.OnError] and never interrupt the caller.
package sessionreplay

import (
	"context"
	"encoding/json"
	"path/filepath"
	"regexp"
	"runtime/debug"
	"time"

	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
	"golang.org/x/oauth2"

	"github.com/sessionreplay/sessionreplay-go/internal/logger"
	"github.com/sessionreplay/sessionreplay-go/internal/metrics"
	"github.com/sessionreplay/sessionreplay-go/internal/remoteconfig"
	"github.com/sessionreplay/sessionreplay-go/internal/shared"
	"github.com/sessionreplay/sessionreplay-go/internal/spool"
	"github.com/sessionreplay/sessionreplay-go/internal/upload"
	"github.com/sessionreplay/sessionreplay-go/pkg/event"
	"github.com/sessionreplay/sessionreplay-go/pkg/redact"
)

var (
	ErrMissingAppID = errors.New("sessionreplay: missing appID")
	ErrSandboxHost  = errors.New("sessionreplay: recording is disabled inside the shared development host app, set DangerouslySkipExpoGoCheck to override")
	ErrClosed       = errors.New("sessionreplay: client closed")
)

const uploadTimeout = 30 * time.Second

var unsafePathChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// New creates a client for appID and starts its session.
// An error is returned only if the configuration is invalid.
func New(appID string, o *Options) (*Client, error) {
	if appID == "" {
		return nil, ErrMissingAppID
	}
	o, err := o.parse()
	if err != nil {
		return nil, err
	}
	if o.hostApp == sandboxHostApp && !o.DangerouslySkipExpoGoCheck {
		return nil, ErrSandboxHost
	}

	c := &Client{
		appID:     appID,
		sessionID: uuid.NewV4().String(),
		options:   o,
		log:       logger.New(o.Logger, nil, o.LogLevel),
		session:   newSession(),
		close:     make(chan chan error),
		stopScan:  make(chan struct{}),
	}

	c.metrics, err = metrics.New(o.MetricsRegisterer)
	if err != nil {
		return nil, err
	}

	httpClient := o.HTTPClient
	if o.TokenSource != nil {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		httpClient = oauth2.NewClient(ctx, o.TokenSource)
	}
	c.uploader = upload.New(upload.Options{
		BaseURL:    o.ServerURL,
		AppID:      appID,
		Client:     httpClient,
		MaxRetries: o.MaxRetries,
		Logger:     c.log,
	})

	var fetcher remoteconfig.Fetcher
	if !o.DisableRemoteConfig {
		fetcher = c.uploader
	}
	c.remote = remoteconfig.New(remoteconfig.RemoteConfigOpts{
		Fetcher:       fetcher,
		FetchInterval: o.RemoteConfigFetchInterval,
		HandleError:   c.handleError,
		RedactKeys:    o.RedactionTags,
	})

	if o.EnablePersistence {
		dir := filepath.Join(o.PersistenceDir, unsafePathChars.ReplaceAllString(appID, "_"))
		c.spool, err = spool.Open(dir, defaultMaxPersistedBatches)
		if err != nil {
			// recording continues without persistence
			c.handleError(err)
		}
	}

	c.DefaultClient = c.Wrap(nil)

	go c.loop()
	go c.start()
	if o.ViewScanner != nil {
		go c.scanViews()
	}

	c.log.WithField("session", c.sessionID).Debug("session started")
	return c, nil
}

// SessionID identifies the recorded session.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Close uploads any pending events, persisting them when the upload fails
// and persistence is enabled, and shuts down the client.
func (c *Client) Close() error {
	c.mutex.Lock()
	if c.closed {
		c.mutex.Unlock()
		return ErrClosed
	}
	c.closed = true
	c.mutex.Unlock()

	c.remote.Close()
	close(c.stopScan)

	ch := make(chan error)
	c.close <- ch
	err := <-ch

	for _, f := range c.options.Forwarders {
		if ferr := f.Close(); ferr != nil {
			c.handleError(errors.Wrap(ferr, "sessionreplay: close forwarder"))
		}
	}
	return err
}

func (c *Client) start() {
	ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
	defer cancel()

	if !c.options.DisableRemoteConfig {
		if err := c.remote.Init(ctx); err != nil {
			c.handleError(err)
		}
		go c.remote.Refresh()
	}
	// a WIFI-only client registers with its first upload instead
	if !c.uploadAllowed() {
		return
	}
	if err := c.registerSession(ctx); err != nil {
		c.handleError(err)
	}
}

func (c *Client) loop() {
	var closed chan error
	for {
		select {
		case closed = <-c.close:
			err := c.flush(true)
			if err != nil {
				c.handleError(err)
			}
			closed <- err
			return
		case <-time.After(c.options.UploadInterval):
			err := c.flush(false)
			if err != nil {
				c.handleError(err)
			}
		}
	}
}

// record appends e to the upload buffer, dropping the oldest event when the
// buffer is full. It reports whether e was accepted.
func (c *Client) record(e *event.Event) bool {
	if !c.remote.RecordingEnabled() {
		c.metrics.Dropped.WithLabelValues(metrics.DropDisabled).Inc()
		return false
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.closed {
		return false
	}

	if e.Timestamp.IsZero() {
		e.Timestamp = event.Clock()
	}
	c.queue = append(c.queue, e)
	if len(c.queue) > c.options.MaxQueueSize {
		c.queue[0] = nil
		c.queue = c.queue[1:]
		c.metrics.Dropped.WithLabelValues(metrics.DropQueueFull).Inc()
	}
	c.metrics.Recorded.WithLabelValues(e.Type).Inc()
	c.metrics.QueueSize.Set(float64(len(c.queue)))
	return true
}

// take removes events ready for upload, preserving order. Network events
// still waiting for their response stay queued unless force is set.
func (c *Client) take(force bool) ([]*event.Event, string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	toSend := []*event.Event{}
	remaining := c.queue[:0]
	for _, e := range c.queue {
		if force || e.Done() {
			toSend = append(toSend, e)
		} else {
			remaining = append(remaining, e)
		}
	}
	for i := len(remaining); i < len(c.queue); i++ {
		c.queue[i] = nil
	}
	c.queue = remaining
	c.metrics.QueueSize.Set(float64(len(c.queue)))
	return toSend, c.userID
}

func (c *Client) flush(force bool) error {
	if !c.uploadAllowed() {
		if !force {
			return nil
		}
		// the connection may not be used; keep what we can for next time
		toSend, userID := c.take(true)
		if len(toSend) == 0 {
			return nil
		}
		c.redact(toSend)
		payload, err := c.encode(toSend, userID)
		if err != nil {
			return err
		}
		return c.persist(payload, len(toSend), errors.New("sessionreplay: upload deferred until a WIFI connection is available"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
	defer cancel()

	c.deliverPersisted(ctx)

	toSend, userID := c.take(force)
	if len(toSend) == 0 {
		return nil
	}
	c.redact(toSend)

	payload, err := c.encode(toSend, userID)
	if err != nil {
		return err
	}

	if err := c.registerSession(ctx); err != nil {
		c.handleError(err)
	}

	if err := c.uploader.PostRaw(ctx, shared.EventsPath, c.sessionID, payload); err != nil {
		c.metrics.UploadErrors.Inc()
		return c.persist(payload, len(toSend), err)
	}
	c.metrics.Uploaded.Add(float64(len(toSend)))
	c.log.WithField("events", len(toSend)).Debug("flushed")
	return nil
}

// redact scrubs events before they are encoded, whether they are uploaded
// or persisted.
func (c *Client) redact(events []*event.Event) {
	keys := c.redactKeys()
	for _, e := range events {
		for _, err := range redact.Redact(e, keys) {
			c.handleError(err)
		}
	}
}

func (c *Client) encode(events []*event.Event, userID string) ([]byte, error) {
	payload, err := json.Marshal(&batch{
		AppID:          c.appID,
		SessionID:      c.sessionID,
		UserID:         userID,
		CaptureIP:      enabled(c.options.EnableIPCapture),
		ConnectionType: c.options.ConnectionType,
		SDK:            getVersion(),
		Events:         events,
	})
	if err != nil {
		c.metrics.Dropped.WithLabelValues(metrics.DropUpload).Add(float64(len(events)))
		return nil, errors.Wrap(err, "sessionreplay: encode batch")
	}
	return payload, nil
}

// persist stores an undelivered payload, or drops it when persistence is
// off. cause is returned when the payload is lost.
func (c *Client) persist(payload []byte, count int, cause error) error {
	if c.spool == nil {
		c.metrics.Dropped.WithLabelValues(metrics.DropUpload).Add(float64(count))
		return cause
	}
	err := c.spool.Write(&spool.Batch{
		ID:        uuid.NewV4().String(),
		SessionID: c.sessionID,
		CreatedAt: event.Clock().UnixNano(),
		Count:     count,
		Payload:   payload,
	})
	if err != nil {
		c.metrics.Dropped.WithLabelValues(metrics.DropUpload).Add(float64(count))
		return errors.Wrapf(err, "sessionreplay: persist after %v", cause)
	}
	c.log.WithError(cause).WithField("events", count).Debug("batch persisted for a later upload")
	return nil
}

// deliverPersisted uploads batches left over from earlier attempts, oldest
// first, and stops at the first failure.
func (c *Client) deliverPersisted(ctx context.Context) {
	if c.spool == nil {
		return
	}
	batches, errs := c.spool.List()
	for _, err := range errs {
		c.handleError(err)
	}
	for _, b := range batches {
		if err := c.uploader.PostRaw(ctx, shared.EventsPath, b.SessionID, b.Payload); err != nil {
			c.log.WithError(err).Debug("persisted batch not delivered")
			return
		}
		c.metrics.Uploaded.Add(float64(b.Count))
		if err := c.spool.Remove(b); err != nil {
			c.handleError(err)
		}
	}
}

func (c *Client) uploadAllowed() bool {
	if c.options.ConnectionType != ConnectionWiFi || c.options.ConnectionMonitor == nil {
		return true
	}
	return c.options.ConnectionMonitor() == ConnectionWiFi
}

// registerSession announces the session to the server once and publishes
// the session URL.
func (c *Client) registerSession(ctx context.Context) error {
	c.register.Lock()
	defer c.register.Unlock()
	if c.session.known() {
		return nil
	}

	resp := &sessionStartResponse{}
	err := c.uploader.Post(ctx, shared.SessionsPath, c.sessionID, &sessionStart{
		AppID:     c.appID,
		SessionID: c.sessionID,
		StartedAt: event.Clock(),
		SDK:       getVersion(),
	}, resp)
	if err != nil {
		return errors.Wrap(err, "sessionreplay: register session")
	}
	if resp.SessionURL == "" {
		return errors.New("sessionreplay: server returned no session URL")
	}
	c.session.set(resp.SessionURL, c.goSafe)
	return nil
}

func getVersion() packageVersion {
	info, ok := debug.ReadBuildInfo()
	if ok {
		for _, dep := range info.Deps {
			if dep.Path == "github.com/sessionreplay/sessionreplay-go" {
				return packageVersion{Name: shared.SDKName, Version: dep.Version}
			}
		}
	}
	return packageVersion{Name: shared.SDKName, Version: "unknown"}
}

func (c *Client) handleError(err error) {
	if err == nil {
		return
	}
	if c.options.OnError != nil {
		c.options.OnError(err)
		return
	}
	c.log.WithError(err).Error("session recording error")
}

// recoverPanic keeps a recording call from ever crashing the host app.
func (c *Client) recoverPanic(op string) {
	if r := recover(); r != nil {
		c.handleError(errors.Errorf("sessionreplay: %s panicked: %v", op, r))
	}
}

// goSafe runs fn on its own goroutine, containing panics.
func (c *Client) goSafe(fn func()) {
	go func() {
		defer c.recoverPanic("callback")
		fn()
	}()
}
