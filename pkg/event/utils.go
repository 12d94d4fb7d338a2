package event

import (
	"bytes"
	"encoding/base64"
	"io"
	"net/http"
	"strings"
	"sync"
	"unicode/utf8"
)

func headersToMap(h http.Header) map[string]*string {
	ret := map[string]*string{}
	for k, vs := range h {
		v := strings.Join(vs, ", ")
		ret[k] = &v
	}
	return ret
}

// HeaderValue returns the value of a captured header, or "" when unset.
func HeaderValue(headers map[string]*string, key string) string {
	for k, v := range headers {
		if strings.EqualFold(k, key) && v != nil {
			return *v
		}
	}
	return ""
}

// MaxBodySize bounds a captured body. Longer bodies are captured truncated;
// the reader handed back to the caller always yields the full body.
const MaxBodySize = 64 << 10

type readCloser struct {
	io.Reader
	c io.Closer
}

func (rc *readCloser) Close() error {
	return rc.c.Close()
}

// duplicateBody reads at most MaxBodySize bytes of r and returns them as
// text together with a reader that replays them before the rest of r.
func duplicateBody(r io.ReadCloser) (body *string, rc io.ReadCloser) {
	if r == nil || r == http.NoBody {
		return nil, r
	}

	read, err := io.ReadAll(io.LimitReader(r, MaxBodySize+1))
	b, truncated := read, len(read) > MaxBodySize
	if truncated {
		b = read[:MaxBodySize]
	}
	var rest io.Reader = r
	if err != nil {
		rest = &errReader{err}
	}
	rc = &readCloser{Reader: io.MultiReader(bytes.NewReader(read), rest), c: r}
	return bodyString(b, truncated), rc
}

type errReader struct{ err error }

func (r *errReader) Read([]byte) (int, error) { return 0, r.err }

// bodyString renders captured bytes as text, or base64 when they are not
// valid UTF-8. A truncated capture may end inside a rune; that rune is cut.
func bodyString(b []byte, truncated bool) *string {
	if len(b) == 0 {
		return nil
	}
	if truncated {
		for i := 0; i < utf8.UTFMax && len(b) > 0 && !utf8.Valid(b); i++ {
			b = b[:len(b)-1]
		}
	}
	var s string
	if utf8.Valid(b) {
		s = string(b)
	} else {
		s = base64.StdEncoding.EncodeToString(b)
	}
	return &s
}

// bodyCapture copies what the caller reads from a body, up to MaxBodySize,
// and reports it once the body is exhausted, fails or is closed.
type bodyCapture struct {
	rc        io.ReadCloser
	buf       bytes.Buffer
	truncated bool
	once      sync.Once
	done      func(body *string)
}

// CaptureBody wraps a response body so that reading it is unaffected while a
// copy is captured; done receives the copy when the caller finishes with the
// body. Streaming responses are never waited on. A missing body calls done
// right away.
func CaptureBody(body io.ReadCloser, done func(body *string)) io.ReadCloser {
	if body == nil || body == http.NoBody {
		done(nil)
		return body
	}
	return &bodyCapture{rc: body, done: done}
}

func (c *bodyCapture) Read(p []byte) (int, error) {
	n, err := c.rc.Read(p)
	if n > 0 {
		c.capture(p[:n])
	}
	if err != nil {
		c.finish()
	}
	return n, err
}

func (c *bodyCapture) Close() error {
	err := c.rc.Close()
	c.finish()
	return err
}

func (c *bodyCapture) capture(p []byte) {
	room := MaxBodySize - c.buf.Len()
	if len(p) > room {
		p = p[:room]
		c.truncated = true
	}
	c.buf.Write(p)
}

func (c *bodyCapture) finish() {
	c.once.Do(func() {
		c.done(bodyString(c.buf.Bytes(), c.truncated))
	})
}
