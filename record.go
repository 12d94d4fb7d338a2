package sessionreplay

import (
	"github.com/pkg/errors"

	"github.com/sessionreplay/sessionreplay-go/internal/shared"
	"github.com/sessionreplay/sessionreplay-go/pkg/event"
	"github.com/sessionreplay/sessionreplay-go/pkg/redact"
	"github.com/sessionreplay/sessionreplay-go/pkg/redux"
)

const revenueKey = "revenue"

// Identify associates the session with uid and optional traits.
func (c *Client) Identify(uid string, traits UserTraits) {
	defer c.recoverPanic("Identify")
	if uid == "" {
		c.log.Warn("Identify called with an empty uid, ignoring")
		return
	}

	c.mutex.Lock()
	c.userID = uid
	c.mutex.Unlock()

	c.identify(uid, traits)
}

// IdentifyTraits attaches traits to the current, possibly anonymous, user.
func (c *Client) IdentifyTraits(traits UserTraits) {
	defer c.recoverPanic("IdentifyTraits")

	c.mutex.Lock()
	uid := c.userID
	c.mutex.Unlock()

	c.identify(uid, traits)
}

func (c *Client) identify(uid string, traits UserTraits) {
	accepted := c.record(&event.Event{
		Type:     shared.IdentifyType,
		Identify: &event.Identify{UserID: uid, Traits: event.PlainMap(traits)},
	})
	if !accepted {
		return
	}

	for _, f := range c.options.Forwarders {
		forwarded := event.PlainMap(traits)
		redact.Map(forwarded, c.redactKeys(), shared.TraitsStr)
		if err := f.Identify(uid, c.sessionID, forwarded); err != nil {
			c.handleError(errors.Wrap(err, "sessionreplay: forward identify"))
		}
	}
}

// Track records a custom event.
func (c *Client) Track(eventName string, eventProperties *TrackEventProperties) {
	defer c.recoverPanic("Track")
	if eventName == "" {
		c.log.Warn("Track called with an empty event name, ignoring")
		return
	}

	accepted := c.record(&event.Event{
		Type:  shared.TrackType,
		Track: &event.Track{Name: eventName, Properties: c.trackProperties(eventName, eventProperties)},
	})
	if !accepted {
		return
	}

	c.mutex.Lock()
	uid := c.userID
	c.mutex.Unlock()
	for _, f := range c.options.Forwarders {
		forwarded := c.trackProperties(eventName, eventProperties)
		redact.Map(forwarded, c.redactKeys(), shared.PropertiesStr)
		if err := f.Track(uid, c.sessionID, eventName, forwarded); err != nil {
			c.handleError(errors.Wrap(err, "sessionreplay: forward track"))
		}
	}
}

// trackProperties flattens props. Revenue must be numeric: a non-numeric
// "revenue" property is dropped, and the Revenue field wins over a property
// of the same name.
func (c *Client) trackProperties(eventName string, props *TrackEventProperties) map[string]any {
	if props == nil {
		return nil
	}
	plain := event.PlainMap(props.Properties)
	if v, ok := props.Properties[revenueKey]; ok && v != nil {
		if _, numeric := v.(event.Number); !numeric {
			c.log.WithField("event", eventName).Warnf("Track property %q must be a number, dropping it", revenueKey)
			delete(plain, revenueKey)
		}
	}
	if props.Revenue != nil {
		if plain == nil {
			plain = map[string]any{}
		}
		plain[revenueKey] = *props.Revenue
	}
	return plain
}

// CaptureException records exception, which may be an error, a string or
// any other value, with optional tags and extra metadata.
func (c *Client) CaptureException(exception any, options *ExceptionOptions) {
	defer c.recoverPanic("CaptureException")

	ex := newException(exception, 1)
	if options != nil {
		ex.Tags = event.PlainMap(options.Tags)
		ex.Extra = event.PlainMap(options.Extra)
	}
	c.record(&event.Event{Type: shared.ExceptionType, Exception: ex})
}

// ReduxMiddleware returns a middleware that records dispatched actions and
// the resulting state, see package redux.
func (c *Client) ReduxMiddleware(options *ReduxMiddlewareOptions) redux.Middleware {
	return redux.New(c, options)
}

// RecordRedux implements redux.Recorder.
func (c *Client) RecordRedux(r *event.Redux) {
	defer c.recoverPanic("RecordRedux")
	c.record(&event.Event{Type: shared.ReduxType, Redux: r})
}

// HandleError implements redux.Recorder.
func (c *Client) HandleError(err error) {
	c.handleError(err)
}

func (c *Client) redactKeys() redact.Keys {
	return redact.NewKeys(c.remote.RedactKeys())
}
