package remoteconfig

import (
	"context"
	"regexp"
	"sync"
	"time"
)

// Fetcher retrieves the config document from the ingest server.
type Fetcher interface {
	Get(ctx context.Context, path, sessionID string, out any) error
}

type RemoteConfigOpts struct {
	Fetcher       Fetcher
	FetchInterval time.Duration
	HandleError   func(error)
	// RedactKeys are the locally configured keys, merged with server keys.
	RedactKeys []string
}

// RemoteConfig caches the capture rules served by the ingest server.
type RemoteConfig struct {
	fetcher       Fetcher
	fetchInterval time.Duration
	handleError   func(error)
	localKeys     []string
	close         chan struct{}
	closeOnce     sync.Once

	mutex            sync.RWMutex
	initialized      bool
	recordingEnabled bool
	ignored          []*regexp.Regexp
	redactKeys       []string
}

// RemoteConfigResponse is the body of GET /v1/config.
type RemoteConfigResponse struct {
	RecordingEnabled *bool    `json:"recordingEnabled"`
	IgnoredURLs      []string `json:"ignoredURLs"`
	RedactKeys       []string `json:"redactKeys"`
}
