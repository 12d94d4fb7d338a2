package sessionreplay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/sessionreplay/sessionreplay-go/internal/logger"
	"github.com/sessionreplay/sessionreplay-go/internal/shared"
	"github.com/sessionreplay/sessionreplay-go/pkg/event"
)

// Console levels as recorded.
const (
	ConsoleLog   = "log"
	ConsoleInfo  = "info"
	ConsoleDebug = "debug"
	ConsoleWarn  = "warn"
	ConsoleError = "error"
)

type consoleHook struct {
	resolve func() *Client
}

// ConsoleHook returns a logrus hook that records the host app's log entries
// as console events. Add it with logger.AddHook.
func (c *Client) ConsoleHook() logrus.Hook {
	return &consoleHook{resolve: func() *Client { return c }}
}

func (h *consoleHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *consoleHook) Fire(entry *logrus.Entry) error {
	c := h.resolve()
	if c == nil {
		return nil
	}
	// entries logged by the client itself would feed back into the recording
	if entry.Data["prefix"] == logger.Prefix {
		return nil
	}
	c.recordConsole(consoleLevel(entry.Level), entry.Message, entry.Data)
	return nil
}

func consoleLevel(l logrus.Level) string {
	switch l {
	case logrus.TraceLevel, logrus.DebugLevel:
		return ConsoleDebug
	case logrus.InfoLevel:
		return ConsoleInfo
	case logrus.WarnLevel:
		return ConsoleWarn
	default:
		return ConsoleError
	}
}

// ConsoleWriter returns a writer recording every line written to it as a
// console event at level, for use with the standard log package:
//
//	log.SetOutput(io.MultiWriter(os.Stderr, client.ConsoleWriter(sessionreplay.ConsoleLog)))
func (c *Client) ConsoleWriter(level string) io.Writer {
	return newConsoleWriter(level, func() *Client { return c })
}

type consoleWriter struct {
	level   string
	resolve func() *Client

	mutex sync.Mutex
	buf   bytes.Buffer
}

func newConsoleWriter(level string, resolve func() *Client) *consoleWriter {
	switch level {
	case ConsoleLog, ConsoleInfo, ConsoleDebug, ConsoleWarn, ConsoleError:
	default:
		level = ConsoleLog
	}
	return &consoleWriter{level: level, resolve: resolve}
}

// Write records complete lines; a trailing partial line waits for the next
// write.
func (w *consoleWriter) Write(p []byte) (int, error) {
	w.mutex.Lock()
	w.buf.Write(p)
	var lines []string
	for {
		i := bytes.IndexByte(w.buf.Bytes(), '\n')
		if i < 0 {
			break
		}
		line := string(w.buf.Next(i + 1))
		lines = append(lines, strings.TrimRight(line, "\r\n"))
	}
	w.mutex.Unlock()

	c := w.resolve()
	if c == nil {
		return len(p), nil
	}
	for _, line := range lines {
		if line != "" {
			c.recordConsole(w.level, line, nil)
		}
	}
	return len(p), nil
}

func (c *Client) recordConsole(level, message string, fields logrus.Fields) {
	defer c.recoverPanic("console")
	if !c.consoleLevelEnabled(level) {
		return
	}

	plain := consoleFields(fields)
	c.record(&event.Event{
		Type:    shared.ConsoleType,
		Console: &event.Console{Level: level, Message: message, Fields: plain},
	})

	if level == ConsoleError && c.options.Console.ShouldAggregateConsoleErrors {
		c.record(&event.Event{
			Type: shared.ExceptionType,
			Exception: &event.Exception{
				Message: message,
				Type:    "console.error",
				Extra:   consoleFields(fields),
				Source:  sourceConsole,
			},
		})
	}
}

func (c *Client) consoleLevelEnabled(level string) bool {
	console := c.options.Console
	if !enabled(console.IsEnabled) {
		return false
	}
	if console.Levels == nil {
		return true
	}
	switch level {
	case ConsoleLog:
		return enabled(console.Levels.Log)
	case ConsoleInfo:
		return enabled(console.Levels.Info)
	case ConsoleDebug:
		return enabled(console.Levels.Debug)
	case ConsoleWarn:
		return enabled(console.Levels.Warn)
	case ConsoleError:
		return enabled(console.Levels.Error)
	}
	return true
}

// consoleFields makes log fields safe to encode: errors become their message
// and values JSON cannot represent are formatted.
func consoleFields(fields logrus.Fields) map[string]any {
	if len(fields) == 0 {
		return nil
	}
	ret := make(map[string]any, len(fields))
	for k, v := range fields {
		switch t := v.(type) {
		case error:
			ret[k] = t.Error()
		default:
			if _, err := json.Marshal(v); err != nil {
				ret[k] = fmt.Sprintf("%v", v)
			} else {
				ret[k] = v
			}
		}
	}
	return ret
}
