package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/sessionreplay/sessionreplay-go/internal/shared"
)

// ErrUnauthorized is returned when the ingest server rejects the app ID.
var ErrUnauthorized = errors.New("sessionreplay: invalid appID")

// overridden in tests
var newBackOff = func() backoff.BackOff {
	return backoff.NewExponentialBackOff()
}

type Options struct {
	BaseURL    string
	AppID      string
	Client     *http.Client
	MaxRetries uint64
	Logger     *logrus.Entry
}

// Uploader sends JSON payloads to the ingest server. Server errors and rate
// limiting are retried with exponential backoff; any other non-2xx status is
// permanent.
type Uploader struct {
	baseURL    string
	appID      string
	client     *http.Client
	maxRetries uint64
	log        *logrus.Entry
}

func New(opts Options) *Uploader {
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	log := opts.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Uploader{
		baseURL:    opts.BaseURL,
		appID:      opts.AppID,
		client:     client,
		maxRetries: opts.MaxRetries,
		log:        log,
	}
}

// Post marshals body and sends it to path. When out is non-nil the response
// body is decoded into it.
func (u *Uploader) Post(ctx context.Context, path, sessionID string, body, out any) error {
	serialized, err := json.Marshal(body)
	if err != nil {
		return errors.Wrapf(err, "sessionreplay: marshal payload for %s", path)
	}
	return u.send(ctx, http.MethodPost, path, sessionID, serialized, out)
}

// PostRaw sends an already serialized JSON payload.
func (u *Uploader) PostRaw(ctx context.Context, path, sessionID string, payload []byte) error {
	return u.send(ctx, http.MethodPost, path, sessionID, payload, nil)
}

func (u *Uploader) Get(ctx context.Context, path, sessionID string, out any) error {
	return u.send(ctx, http.MethodGet, path, sessionID, nil, out)
}

func (u *Uploader) send(ctx context.Context, method, path, sessionID string, payload []byte, out any) error {
	endpoint, err := url.JoinPath(u.baseURL, path)
	if err != nil {
		return errors.Wrap(err, "sessionreplay: invalid ServerURL")
	}

	opFn := func() error {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(shared.AppIDHeader, u.appID)
		if sessionID != "" {
			req.Header.Set(shared.SessionIDHeader, sessionID)
		}

		resp, err := u.client.Do(req)
		if err != nil {
			return u.handleErr(ctx, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			if out == nil {
				return nil
			}
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return backoff.Permanent(errors.Wrapf(err, "sessionreplay: decode response from %s", path))
			}
			return nil
		}

		if resp.StatusCode == http.StatusUnauthorized {
			return backoff.Permanent(ErrUnauthorized)
		}

		msg, _ := io.ReadAll(resp.Body)
		err = fmt.Errorf("sessionreplay: got HTTP %v from %v: %s", resp.Status, path, bytes.TrimSpace(msg))

		// server error or rate limit hit - attempt retry
		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			return err
		}
		return backoff.Permanent(err)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(newBackOff(), u.maxRetries), ctx)
	return backoff.RetryNotify(opFn, b, func(err error, t time.Duration) {
		u.log.WithError(err).Debugf("upload to %s failed, retrying in %s", path, t)
	})
}

func (u *Uploader) handleErr(ctx context.Context, err error) error {
	// a cancelled upload is final, any transport failure is worth another try
	if ctx.Err() != nil {
		return backoff.Permanent(err)
	}
	return err
}
