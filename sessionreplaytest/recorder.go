// Package sessionreplaytest provides an in-memory stand-in for the recording
// client, for tests of code that records sessions.
package sessionreplaytest

import (
	"fmt"
	"sync"

	sessionreplay "github.com/sessionreplay/sessionreplay-go"
	"github.com/sessionreplay/sessionreplay-go/internal/shared"
	"github.com/sessionreplay/sessionreplay-go/pkg/event"
	"github.com/sessionreplay/sessionreplay-go/pkg/redux"
)

// Recorder records calls in memory instead of uploading them. The zero value
// is ready to use; like the real client it ignores calls before Init and
// after Shutdown.
type Recorder struct {
	// SessionURL is handed to GetSessionURL callbacks.
	SessionURL string

	mutex   sync.Mutex
	appID   string
	options *sessionreplay.Options
	running bool
	userID  string
	events  []*event.Event
}

var _ sessionreplay.Interface = (*Recorder)(nil)

func (r *Recorder) Init(appID string, config *sessionreplay.Options) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if appID == "" {
		return
	}
	r.appID = appID
	r.options = config
	r.running = true
	r.events = nil
	r.userID = ""
}

func (r *Recorder) GetSessionURL(callback func(sessionURL string)) {
	r.mutex.Lock()
	running, url := r.running, r.SessionURL
	r.mutex.Unlock()
	if running && callback != nil {
		callback(url)
	}
}

func (r *Recorder) Identify(uid string, traits sessionreplay.UserTraits) {
	if uid == "" {
		return
	}
	r.mutex.Lock()
	r.userID = uid
	r.mutex.Unlock()
	r.add(&event.Event{
		Type:     shared.IdentifyType,
		Identify: &event.Identify{UserID: uid, Traits: event.PlainMap(traits)},
	})
}

func (r *Recorder) IdentifyTraits(traits sessionreplay.UserTraits) {
	r.mutex.Lock()
	uid := r.userID
	r.mutex.Unlock()
	r.add(&event.Event{
		Type:     shared.IdentifyType,
		Identify: &event.Identify{UserID: uid, Traits: event.PlainMap(traits)},
	})
}

func (r *Recorder) CaptureException(exception any, options *sessionreplay.ExceptionOptions) {
	ex := &event.Exception{Source: "captureException"}
	switch t := exception.(type) {
	case nil:
		ex.Message, ex.Type = "<nil>", "nil"
	case error:
		ex.Message, ex.Type = t.Error(), fmt.Sprintf("%T", t)
	case string:
		ex.Message, ex.Type = t, "string"
	case fmt.Stringer:
		ex.Message, ex.Type = t.String(), fmt.Sprintf("%T", t)
	default:
		ex.Message, ex.Type = fmt.Sprintf("%+v", t), fmt.Sprintf("%T", t)
	}
	if options != nil {
		ex.Tags = event.PlainMap(options.Tags)
		ex.Extra = event.PlainMap(options.Extra)
	}
	r.add(&event.Event{Type: shared.ExceptionType, Exception: ex})
}

func (r *Recorder) Track(eventName string, eventProperties *sessionreplay.TrackEventProperties) {
	if eventName == "" {
		return
	}
	var props map[string]any
	if eventProperties != nil {
		props = event.PlainMap(eventProperties.Properties)
		if _, numeric := eventProperties.Properties["revenue"].(event.Number); !numeric {
			delete(props, "revenue")
		}
		if eventProperties.Revenue != nil {
			if props == nil {
				props = map[string]any{}
			}
			props["revenue"] = *eventProperties.Revenue
		}
	}
	r.add(&event.Event{
		Type:  shared.TrackType,
		Track: &event.Track{Name: eventName, Properties: props},
	})
}

func (r *Recorder) ReduxMiddleware(options *sessionreplay.ReduxMiddlewareOptions) redux.Middleware {
	return redux.New(reduxRecorder{r}, options)
}

func (r *Recorder) Shutdown() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.running = false
}

// AppID returns the appID passed to the last Init.
func (r *Recorder) AppID() string {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.appID
}

// Options returns the configuration passed to the last Init.
func (r *Recorder) Options() *sessionreplay.Options {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.options
}

// Events returns the recorded events in order.
func (r *Recorder) Events() []*event.Event {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return append([]*event.Event(nil), r.events...)
}

// Tracked returns the recorded track events.
func (r *Recorder) Tracked() []*event.Track {
	var ret []*event.Track
	for _, e := range r.Events() {
		if e.Track != nil {
			ret = append(ret, e.Track)
		}
	}
	return ret
}

// Reset forgets recorded events.
func (r *Recorder) Reset() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.events = nil
}

func (r *Recorder) add(e *event.Event) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if !r.running {
		return
	}
	e.Timestamp = event.Clock()
	r.events = append(r.events, e)
}

type reduxRecorder struct {
	r *Recorder
}

func (rr reduxRecorder) RecordRedux(e *event.Redux) {
	rr.r.add(&event.Event{Type: shared.ReduxType, Redux: e})
}

func (rr reduxRecorder) HandleError(error) {}
