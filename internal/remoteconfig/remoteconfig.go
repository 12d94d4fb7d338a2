package remoteconfig

import (
	"context"
	"regexp"
	"time"

	"github.com/pkg/errors"

	"github.com/sessionreplay/sessionreplay-go/internal/shared"
)

// New creates a new RemoteConfig. Until the first successful fetch, recording
// is enabled and only the local redact keys apply.
func New(opts RemoteConfigOpts) *RemoteConfig {
	handleError := opts.HandleError
	if handleError == nil {
		handleError = func(error) {}
	}
	return &RemoteConfig{
		fetcher:          opts.Fetcher,
		fetchInterval:    opts.FetchInterval,
		handleError:      handleError,
		localKeys:        opts.RedactKeys,
		close:            make(chan struct{}),
		recordingEnabled: true,
		redactKeys:       opts.RedactKeys,
	}
}

// Init fetches the config once. A failed fetch leaves the defaults in place;
// it must not prevent the client from starting.
func (rc *RemoteConfig) Init(ctx context.Context) error {
	return rc.fetchAndSetConfig(ctx)
}

// Refresh refreshes the remote config on an interval until Close.
func (rc *RemoteConfig) Refresh() {
	for {
		select {
		case <-rc.close:
			return
		case <-time.After(rc.fetchInterval):
			if err := rc.fetchAndSetConfig(context.Background()); err != nil {
				rc.handleError(err)
			}
		}
	}
}

func (rc *RemoteConfig) Close() {
	rc.closeOnce.Do(func() {
		close(rc.close)
	})
}

func (rc *RemoteConfig) fetchAndSetConfig(ctx context.Context) error {
	if rc.fetcher == nil {
		return nil
	}
	resp := &RemoteConfigResponse{}
	if err := rc.fetcher.Get(ctx, shared.ConfigPath, "", resp); err != nil {
		return errors.Wrap(err, "sessionreplay: fetch remote config")
	}
	return rc.Create(resp)
}

// Create replaces the cached rules with resp. Invalid patterns are rejected
// and the previous rules kept.
func (rc *RemoteConfig) Create(resp *RemoteConfigResponse) error {
	ignored := make([]*regexp.Regexp, 0, len(resp.IgnoredURLs))
	for _, pattern := range resp.IgnoredURLs {
		if pattern == "" {
			continue
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return errors.Wrapf(err, "sessionreplay: invalid ignored URL pattern %q", pattern)
		}
		ignored = append(ignored, re)
	}

	keys := append(append([]string{}, rc.localKeys...), resp.RedactKeys...)

	rc.mutex.Lock()
	defer rc.mutex.Unlock()
	rc.ignored = ignored
	rc.redactKeys = keys
	rc.recordingEnabled = resp.RecordingEnabled == nil || *resp.RecordingEnabled
	rc.initialized = true
	return nil
}

func (rc *RemoteConfig) IsInitialized() bool {
	rc.mutex.RLock()
	defer rc.mutex.RUnlock()
	return rc.initialized
}

func (rc *RemoteConfig) RecordingEnabled() bool {
	rc.mutex.RLock()
	defer rc.mutex.RUnlock()
	return rc.recordingEnabled
}

// RedactKeys returns local and server redact keys.
func (rc *RemoteConfig) RedactKeys() []string {
	rc.mutex.RLock()
	defer rc.mutex.RUnlock()
	return rc.redactKeys
}

// ShouldIgnoreURL reports whether network capture is disabled for url.
func (rc *RemoteConfig) ShouldIgnoreURL(url string) bool {
	rc.mutex.RLock()
	defer rc.mutex.RUnlock()
	for _, re := range rc.ignored {
		if re.MatchString(url) {
			return true
		}
	}
	return false
}
