package event

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func Test_NewRequest(t *testing.T) {
	t.Run("captures request and restores body", func(t *testing.T) {
		req, err := http.NewRequest("POST", "https://test.com/echo?param=1", strings.NewReader(`{"ok":true}`))
		require.NoError(t, err)
		req.Header.Set("Referer", "https://app.test.com")
		req.Header.Set("Authorization", "token")

		captured := NewRequest("req-1", req)
		require.Equal(t, "req-1", captured.ReqID)
		require.Equal(t, "https://test.com/echo?param=1", captured.URL)
		require.Equal(t, "POST", captured.Method)
		require.Equal(t, `{"ok":true}`, *captured.Body)
		require.Equal(t, "token", HeaderValue(captured.Headers, "authorization"))
		require.Equal(t, "https://app.test.com", *captured.Referrer)
		require.Nil(t, captured.Credentials)

		b, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		require.Equal(t, `{"ok":true}`, string(b))
	})

	t.Run("binary body is base64 encoded", func(t *testing.T) {
		req, err := http.NewRequest("PUT", "https://test.com/blob", bytes.NewReader([]byte{0xff, 0x00, 0xff, 0x00}))
		require.NoError(t, err)
		captured := NewRequest("req-2", req)
		require.Equal(t, "/wD/AA==", *captured.Body)
	})

	t.Run("no body", func(t *testing.T) {
		req, err := http.NewRequest("", "https://test.com/", nil)
		require.NoError(t, err)
		req.SetBasicAuth("user", "pass")
		captured := NewRequest("req-3", req)
		require.Nil(t, captured.Body)
		require.Equal(t, "GET", captured.Method)
		require.Equal(t, "include", *captured.Credentials)
	})
}

func Test_NewResponse(t *testing.T) {
	t.Run("transport error has no status", func(t *testing.T) {
		resp := NewResponse("req-1", "GET", nil, errors.New("dial tcp: refused"))
		require.Nil(t, resp.Status)
		require.Equal(t, "GET", resp.Method)
		require.Equal(t, "req-1", resp.ReqID)
	})

	t.Run("captures status and headers without reading the body", func(t *testing.T) {
		res := &http.Response{
			StatusCode: 201,
			Header:     http.Header{"Content-Type": {"text/plain"}},
			Body:       io.NopCloser(strings.NewReader("created")),
		}
		resp := NewResponse("req-1", "POST", res, nil)
		require.Equal(t, 201, *resp.Status)
		require.Nil(t, resp.Body)
		require.Equal(t, "text/plain", HeaderValue(resp.Headers, "Content-Type"))

		b, err := io.ReadAll(res.Body)
		require.NoError(t, err)
		require.Equal(t, "created", string(b))
	})

	t.Run("nil body becomes NoBody", func(t *testing.T) {
		res := &http.Response{StatusCode: 204, Header: http.Header{}}
		NewResponse("req-1", "DELETE", res, nil)
		require.Equal(t, http.NoBody, res.Body)
	})
}

type closeRecorder struct {
	io.Reader
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func Test_CaptureBody(t *testing.T) {
	t.Run("reports the body once it is read to the end", func(t *testing.T) {
		var got []*string
		rc := CaptureBody(io.NopCloser(strings.NewReader("hello world")), func(b *string) { got = append(got, b) })

		buf := make([]byte, 5)
		n, err := rc.Read(buf)
		require.NoError(t, err)
		require.Equal(t, "hello", string(buf[:n]))
		require.Len(t, got, 0)

		rest, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.Equal(t, " world", string(rest))
		require.NoError(t, rc.Close())

		require.Len(t, got, 1)
		require.Equal(t, "hello world", *got[0])
	})

	t.Run("close without reading reports what was read", func(t *testing.T) {
		body := &closeRecorder{Reader: strings.NewReader("never read")}
		var got []*string
		rc := CaptureBody(body, func(b *string) { got = append(got, b) })
		require.NoError(t, rc.Close())
		require.True(t, body.closed)
		require.Len(t, got, 1)
		require.Nil(t, got[0])
	})

	t.Run("read errors finish the capture", func(t *testing.T) {
		failing := io.MultiReader(strings.NewReader("part"), &errReader{errors.New("connection reset")})
		var got *string
		calls := 0
		rc := CaptureBody(io.NopCloser(failing), func(b *string) { got = b; calls++ })
		_, err := io.ReadAll(rc)
		require.EqualError(t, err, "connection reset")
		require.Equal(t, 1, calls)
		require.Equal(t, "part", *got)
	})

	t.Run("large bodies are truncated but passed through whole", func(t *testing.T) {
		full := strings.Repeat("a", MaxBodySize+100)
		var got *string
		rc := CaptureBody(io.NopCloser(strings.NewReader(full)), func(b *string) { got = b })
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.Equal(t, full, string(b))
		require.Len(t, *got, MaxBodySize)
	})

	t.Run("missing body reports immediately", func(t *testing.T) {
		called := false
		rc := CaptureBody(http.NoBody, func(b *string) {
			called = true
			require.Nil(t, b)
		})
		require.True(t, called)
		require.Equal(t, http.NoBody, rc)
	})
}

func Test_DuplicateBodyLimit(t *testing.T) {
	full := strings.Repeat("é", MaxBodySize)
	body, rc := duplicateBody(io.NopCloser(strings.NewReader(full)))
	require.True(t, utf8.ValidString(*body))
	require.LessOrEqual(t, len(*body), MaxBodySize)
	require.True(t, strings.HasPrefix(full, *body))

	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, full, string(b))
}

func Test_NetworkLifecycle(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	Clock = func() time.Time { return start }
	t.Cleanup(func() { Clock = time.Now })

	e := NewNetwork(&NetworkRequest{ReqID: "1", Method: "GET"})
	require.False(t, e.Done())

	Clock = func() time.Time { return start.Add(250 * time.Millisecond) }
	e.Complete(&NetworkResponse{ReqID: "1"}, nil)
	require.True(t, e.Done())
	require.Equal(t, 250, e.Network.Duration)

	require.True(t, (&Event{Type: "track"}).Done())
}

func Test_Plain(t *testing.T) {
	props := map[string]Value{
		"sku":   String("abc"),
		"price": Number(9.99),
		"gift":  Bool(false),
		"tags":  Strings{"a", "b"},
		"qty":   Numbers{1, 2},
		"flags": Bools{true},
		"unset": nil,
	}
	require.Equal(t, map[string]any{
		"sku":   "abc",
		"price": 9.99,
		"gift":  false,
		"tags":  []string{"a", "b"},
		"qty":   []float64{1, 2},
		"flags": []bool{true},
	}, PlainMap(props))

	traits := map[string]Primitive{"plan": String("pro")}
	require.Equal(t, map[string]any{"plan": "pro"}, PlainMap(traits))
	require.Nil(t, PlainMap(map[string]Primitive{}))
}
