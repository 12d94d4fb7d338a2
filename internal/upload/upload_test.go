package upload

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// boot up a server on an unused local port and return
// http://localhost:<port>
func mockServer(t *testing.T, h http.Handler) string {
	listener, err := net.Listen("tcp", "localhost:")
	require.NoError(t, err)
	t.Cleanup(func() {
		listener.Close()
	})

	go http.Serve(listener, h)
	return "http://" + listener.Addr().String()
}

func fastBackOff(t *testing.T) {
	newBackOff = func() backoff.BackOff { return backoff.NewConstantBackOff(time.Millisecond) }
	t.Cleanup(func() {
		newBackOff = func() backoff.BackOff { return backoff.NewExponentialBackOff() }
	})
}

func Test_Uploader(t *testing.T) {
	fastBackOff(t)

	var calls, flaky int32
	router := mux.NewRouter()
	router.HandleFunc("/v1/ok", func(rw http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		require.Equal(t, "app123", r.Header.Get("X-App-ID"))
		require.Equal(t, "session-1", r.Header.Get("X-Session-ID"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		rw.Write([]byte(`{"echo":"` + body["name"].(string) + `"}`))
	}).Methods("POST")
	router.HandleFunc("/v1/flaky", func(rw http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&flaky, 1) < 3 {
			rw.WriteHeader(http.StatusInternalServerError)
			return
		}
		rw.Write([]byte(`{}`))
	})
	router.HandleFunc("/v1/unauthorized", func(rw http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		rw.WriteHeader(http.StatusUnauthorized)
	})
	router.HandleFunc("/v1/bad", func(rw http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		rw.WriteHeader(http.StatusBadRequest)
		rw.Write([]byte("missing events"))
	})
	router.HandleFunc("/v1/down", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusServiceUnavailable)
	})
	host := mockServer(t, router)

	u := New(Options{BaseURL: host, AppID: "app123", MaxRetries: 3})
	ctx := context.Background()

	t.Run("decodes response", func(t *testing.T) {
		atomic.StoreInt32(&calls, 0)
		var out struct {
			Echo string `json:"echo"`
		}
		require.NoError(t, u.Post(ctx, "/v1/ok", "session-1", map[string]string{"name": "hello"}, &out))
		require.Equal(t, "hello", out.Echo)
		require.EqualValues(t, 1, atomic.LoadInt32(&calls))
	})

	t.Run("retries server errors", func(t *testing.T) {
		require.NoError(t, u.PostRaw(ctx, "/v1/flaky", "", []byte(`{}`)))
		require.EqualValues(t, 3, atomic.LoadInt32(&flaky))
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		err := u.Get(ctx, "/v1/down", "", nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "503")
	})

	t.Run("unauthorized is permanent", func(t *testing.T) {
		atomic.StoreInt32(&calls, 0)
		err := u.PostRaw(ctx, "/v1/unauthorized", "", []byte(`{}`))
		require.True(t, errors.Is(err, ErrUnauthorized))
		require.EqualValues(t, 1, atomic.LoadInt32(&calls))
	})

	t.Run("client errors are permanent", func(t *testing.T) {
		atomic.StoreInt32(&calls, 0)
		err := u.PostRaw(ctx, "/v1/bad", "", []byte(`{}`))
		require.Error(t, err)
		require.Contains(t, err.Error(), "missing events")
		require.EqualValues(t, 1, atomic.LoadInt32(&calls))
	})

	t.Run("cancelled context stops retries", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		require.Error(t, u.Get(cctx, "/v1/down", "", nil))
	})
}
