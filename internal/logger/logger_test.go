package logger

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]logrus.Level{
		"error":   logrus.ErrorLevel,
		"WARN":    logrus.WarnLevel,
		"":        logrus.InfoLevel,
		" debug ": logrus.DebugLevel,
		"silent":  logrus.PanicLevel,
		"bogus":   logrus.InfoLevel,
	}
	for in, want := range cases {
		require.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNewAddsPrefix(t *testing.T) {
	base, hook := test.NewNullLogger()
	log := New(base, nil, "error")
	log.Warn("flushed")

	require.Len(t, hook.Entries, 1)
	require.Equal(t, "sessionreplay", hook.LastEntry().Data["prefix"])
	// an injected logger keeps its own level
	require.Equal(t, logrus.InfoLevel, base.Level)
}

func TestNewDedicatedLogger(t *testing.T) {
	var buf bytes.Buffer
	log := New(nil, &buf, "warn")
	log.Info("hidden")
	log.Warn("shown")

	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "shown")
	require.Contains(t, buf.String(), "sessionreplay")
}
