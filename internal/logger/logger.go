package logger

import (
	"io"
	"strings"

	prefixed "github.com/x-cray/logrus-prefixed-formatter"
	"github.com/sirupsen/logrus"
)

// Prefix tags every entry logged by the client.
const Prefix = "sessionreplay"

func GetFormatterWithForcedPrefix() *prefixed.TextFormatter {
	textFormatter := new(prefixed.TextFormatter)
	textFormatter.ForceFormatting = true
	textFormatter.FullTimestamp = true
	textFormatter.TimestampFormat = `Jan 02 15:04:05`
	return textFormatter
}

// New returns a logger for the client. A nil base creates a dedicated
// logrus logger writing to out; level follows ParseLevel.
func New(base *logrus.Logger, out io.Writer, level string) *logrus.Entry {
	if base == nil {
		base = logrus.New()
		base.Formatter = GetFormatterWithForcedPrefix()
		if out != nil {
			base.SetOutput(out)
		}
		base.Level = ParseLevel(level)
	}
	return base.WithField("prefix", Prefix)
}

// ParseLevel maps a configured log level to logrus. Unknown values fall back
// to info.
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "error":
		return logrus.ErrorLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "info", "":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	case "trace":
		return logrus.TraceLevel
	case "silent", "none":
		return logrus.PanicLevel
	default:
		return logrus.InfoLevel
	}
}
