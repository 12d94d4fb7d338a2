// Package segment forwards identify and track calls to Segment.
package segment

import (
	"time"

	analytics "github.com/segmentio/analytics-go"

	"github.com/sessionreplay/sessionreplay-go/pkg/forward"
)

type Config struct {
	WriteKey string
	// Endpoint overrides the Segment API host.
	Endpoint string
	// Interval is how often queued messages are flushed. Zero keeps the
	// library default.
	Interval time.Duration
	// Size is the number of messages that triggers a flush.
	Size int
}

// Forwarder implements forward.Forwarder on top of the Segment client.
type Forwarder struct {
	client *analytics.Client
}

var _ forward.Forwarder = (*Forwarder)(nil)

func New(conf Config) *Forwarder {
	client := analytics.New(conf.WriteKey)
	if conf.Endpoint != "" {
		client.Endpoint = conf.Endpoint
	}
	if conf.Interval > 0 {
		client.Interval = conf.Interval
	}
	if conf.Size > 0 {
		client.Size = conf.Size
	}
	return &Forwarder{client: client}
}

func (f *Forwarder) Identify(userID, anonymousID string, traits map[string]any) error {
	return f.client.Identify(&analytics.Identify{
		UserId:      userID,
		AnonymousId: anonymousID,
		Traits:      traits,
	})
}

func (f *Forwarder) Track(userID, anonymousID, event string, properties map[string]any) error {
	return f.client.Track(&analytics.Track{
		UserId:      userID,
		AnonymousId: anonymousID,
		Event:       event,
		Properties:  properties,
	})
}

// Close flushes pending messages.
func (f *Forwarder) Close() error {
	return f.client.Close()
}
