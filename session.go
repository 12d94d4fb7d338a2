package sessionreplay

import (
	"context"
	"sync"
)

// session publishes the session URL once the server has registered the
// session.
type session struct {
	mutex     sync.Mutex
	url       string
	ready     chan struct{}
	callbacks []func(string)
}

func newSession() *session {
	return &session{ready: make(chan struct{})}
}

func (s *session) known() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.url != ""
}

// set stores url and hands it to every waiting callback through run. Only
// the first call has an effect.
func (s *session) set(url string, run func(func())) {
	s.mutex.Lock()
	if s.url != "" {
		s.mutex.Unlock()
		return
	}
	s.url = url
	callbacks := s.callbacks
	s.callbacks = nil
	close(s.ready)
	s.mutex.Unlock()

	for _, cb := range callbacks {
		cb := cb
		run(func() { cb(url) })
	}
}

func (s *session) onReady(cb func(string), run func(func())) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.url == "" {
		s.callbacks = append(s.callbacks, cb)
		return
	}
	url := s.url
	run(func() { cb(url) })
}

func (s *session) wait(ctx context.Context) (string, error) {
	select {
	case <-s.ready:
		s.mutex.Lock()
		defer s.mutex.Unlock()
		return s.url, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// GetSessionURL calls callback, on its own goroutine, with the URL of the
// recorded session once the server has registered it. If the session is
// never registered the callback is never called.
func (c *Client) GetSessionURL(callback func(sessionURL string)) {
	if callback == nil {
		return
	}
	c.session.onReady(callback, c.goSafe)
}

// SessionURL blocks until the session URL is known or ctx is done.
func (c *Client) SessionURL(ctx context.Context) (string, error) {
	return c.session.wait(ctx)
}
