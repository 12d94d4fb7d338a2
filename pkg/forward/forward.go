// Package forward defines the interface used to mirror identify and track
// calls to third-party analytics services.
package forward

// Forwarder receives a copy of every identify and track call after
// redaction. Errors are reported through the client's error handler and
// never reach the caller of Identify or Track.
type Forwarder interface {
	Identify(userID, anonymousID string, traits map[string]any) error
	Track(userID, anonymousID, event string, properties map[string]any) error
	Close() error
}
