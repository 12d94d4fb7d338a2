package sessionreplay

import (
	"fmt"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOptions_defaults(t *testing.T) {
	t.Setenv("SESSIONREPLAY_SERVER_URL", "")
	t.Setenv("SESSIONREPLAY_LOG_LEVEL", "")

	var o *Options
	o, err := o.parse()
	require.NoError(t, err)

	require.Equal(t, "https://r.sessionreplay.io", o.ServerURL)
	require.True(t, *o.EnableIPCapture)
	require.Equal(t, 5*time.Second, o.UploadInterval)
	require.Equal(t, time.Second, o.ViewScanInterval)
	require.Equal(t, "", o.LogLevel)
	require.True(t, *o.Network.IsEnabled)
	require.True(t, *o.Console.IsEnabled)
	require.Nil(t, o.Console.Levels)
	require.False(t, o.Console.ShouldAggregateConsoleErrors)
	require.Len(t, o.RedactionTags, 0)
	require.False(t, o.EnablePersistence)
	require.Equal(t, "", o.PersistenceDir)
	require.Equal(t, ConnectionMobile, o.ConnectionType)
	require.False(t, o.DangerouslySkipExpoGoCheck)
	require.Equal(t, 1000, o.MaxQueueSize)
	require.Equal(t, uint64(3), o.MaxRetries)
	require.Equal(t, time.Minute, o.RemoteConfigFetchInterval)
	require.Equal(t, http.DefaultClient, o.HTTPClient)
	require.Nil(t, o.OnError)
}

func TestOptions_overrides(t *testing.T) {
	var onErr error
	client := &http.Client{}
	dir := t.TempDir()

	in := &Options{
		ServerURL:         "http://localhost:9000",
		EnableIPCapture:   Bool(false),
		UploadInterval:    time.Second,
		ViewScanInterval:  500 * time.Millisecond,
		LogLevel:          "debug",
		Network:           NetworkOptions{IsEnabled: Bool(false)},
		Console:           ConsoleOptions{Levels: &ConsoleLevels{Debug: Bool(false)}, ShouldAggregateConsoleErrors: true},
		RedactionTags:     []string{"password"},
		EnablePersistence: true,
		PersistenceDir:    dir,
		ConnectionType:    ConnectionWiFi,
		MaxQueueSize:      10,
		MaxRetries:        1,
		HTTPClient:        client,
		OnError:           func(e error) { onErr = e },
	}
	o, err := in.parse()
	require.NoError(t, err)
	require.NotSame(t, in, o)

	require.Equal(t, "http://localhost:9000", o.ServerURL)
	require.False(t, *o.EnableIPCapture)
	require.Equal(t, time.Second, o.UploadInterval)
	require.Equal(t, 500*time.Millisecond, o.ViewScanInterval)
	require.Equal(t, "debug", o.LogLevel)
	require.False(t, *o.Network.IsEnabled)
	require.True(t, *o.Console.IsEnabled)
	require.False(t, *o.Console.Levels.Debug)
	require.True(t, o.Console.ShouldAggregateConsoleErrors)
	require.Equal(t, []string{"password"}, o.RedactionTags)
	require.Equal(t, dir, o.PersistenceDir)
	require.Equal(t, ConnectionWiFi, o.ConnectionType)
	require.Equal(t, 10, o.MaxQueueSize)
	require.Equal(t, uint64(1), o.MaxRetries)
	require.Equal(t, client, o.HTTPClient)
	o.OnError(fmt.Errorf("test error"))
	require.Equal(t, "test error", onErr.Error())
}

func TestOptions_env(t *testing.T) {
	t.Setenv("SESSIONREPLAY_SERVER_URL", "https://replay.example.com")
	t.Setenv("SESSIONREPLAY_LOG_LEVEL", "warn")
	t.Setenv("SESSIONREPLAY_PERSISTENCE_DIR", "/tmp/replay")
	t.Setenv("SESSIONREPLAY_HOST_APP", "expo-go")

	o, err := (&Options{EnablePersistence: true}).parse()
	require.NoError(t, err)
	require.Equal(t, "https://replay.example.com", o.ServerURL)
	require.Equal(t, "warn", o.LogLevel)
	require.Equal(t, "/tmp/replay", o.PersistenceDir)
	require.Equal(t, sandboxHostApp, o.hostApp)

	o, err = (&Options{ServerURL: "https://other.example.com"}).parse()
	require.NoError(t, err)
	require.Equal(t, "https://other.example.com", o.ServerURL)
}

func TestOptions_persistenceDirDefault(t *testing.T) {
	t.Setenv("SESSIONREPLAY_PERSISTENCE_DIR", "")
	o, err := (&Options{EnablePersistence: true}).parse()
	require.NoError(t, err)
	require.Equal(t, "sessionreplay", filepath.Base(o.PersistenceDir))
}

func TestOptions_errors(t *testing.T) {
	t.Setenv("SESSIONREPLAY_SERVER_URL", "")
	for _, o := range []*Options{
		{ServerURL: "oops"},
		{ServerURL: "ftp://example.com"},
		{UploadInterval: 5},
		{ViewScanInterval: 1},
		{RemoteConfigFetchInterval: 10},
		{ConnectionType: "5G"},
		{MaxQueueSize: -1},
	} {
		_, err := o.parse()
		require.Error(t, err, "%+v", o)
	}
}

func TestOptionsFromMap(t *testing.T) {
	o, err := OptionsFromMap(map[string]any{
		"serverURL":               "https://replay.example.com",
		"enableIPCapture":         true,
		"uploadIntervalMs":        2500,
		"viewScanIntervalSeconds": 0.5,
		"logLevel":                "debug",
		"network":                 map[string]any{"isEnabled": false},
		"console": map[string]any{
			"isEnabled":                    map[string]any{"log": true, "debug": false},
			"shouldAggregateConsoleErrors": true,
		},
		"redactionTags":              []string{"password", "token"},
		"enablePersistence":          true,
		"connectionType":             "WIFI",
		"dangerouslySkipExpoGoCheck": true,
	})
	require.NoError(t, err)

	require.Equal(t, "https://replay.example.com", o.ServerURL)
	require.True(t, *o.EnableIPCapture)
	require.Equal(t, 2500*time.Millisecond, o.UploadInterval)
	require.Equal(t, 500*time.Millisecond, o.ViewScanInterval)
	require.Equal(t, "debug", o.LogLevel)
	require.False(t, *o.Network.IsEnabled)
	require.Nil(t, o.Console.IsEnabled)
	require.True(t, *o.Console.Levels.Log)
	require.False(t, *o.Console.Levels.Debug)
	require.Nil(t, o.Console.Levels.Warn)
	require.True(t, o.Console.ShouldAggregateConsoleErrors)
	require.Equal(t, []string{"password", "token"}, o.RedactionTags)
	require.True(t, o.EnablePersistence)
	require.Equal(t, ConnectionWiFi, o.ConnectionType)
	require.True(t, o.DangerouslySkipExpoGoCheck)

	o, err = OptionsFromMap(map[string]any{"console": map[string]any{"isEnabled": false}})
	require.NoError(t, err)
	require.False(t, *o.Console.IsEnabled)

	o, err = OptionsFromMap(nil)
	require.NoError(t, err)
	_, err = o.parse()
	require.NoError(t, err)
}

func TestOptionsFromMap_errors(t *testing.T) {
	for _, m := range []map[string]any{
		{"unknownKey": true},
		{"enableIPCapture": "yes"},
		{"uploadIntervalMs": "fast"},
		{"console": map[string]any{"isEnabled": "sometimes"}},
		{"console": map[string]any{"isEnabled": map[string]any{"verbose": true}}},
		{"network": map[string]any{"requestSanitizer": "x"}},
	} {
		_, err := OptionsFromMap(m)
		require.Error(t, err, "%v", m)
	}
}
