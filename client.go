package sessionreplay

import (
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sessionreplay/sessionreplay-go/internal/metrics"
	"github.com/sessionreplay/sessionreplay-go/internal/remoteconfig"
	"github.com/sessionreplay/sessionreplay-go/internal/spool"
	"github.com/sessionreplay/sessionreplay-go/internal/upload"
	"github.com/sessionreplay/sessionreplay-go/pkg/event"
)

// Client records a single session and uploads it to the server in batches.
//
// As events are batched locally, you must call [Client.Close] before your
// program exits to upload any pending events.
type Client struct {
	// DefaultClient is a wrapped version of http.DefaultClient.
	// If you'd like to capture all requests, set
	// http.DefaultClient = c.DefaultClient.
	DefaultClient *http.Client

	appID     string
	sessionID string
	options   *Options
	log       *logrus.Entry
	uploader  *upload.Uploader
	spool     *spool.Spool
	metrics   *metrics.Metrics
	remote    *remoteconfig.RemoteConfig
	session   *session

	close    chan chan error
	stopScan chan struct{}
	register sync.Mutex

	mutex  sync.Mutex
	queue  []*event.Event
	userID string
	closed bool
}

// batch is the body of POST /v1/events.
type batch struct {
	AppID          string         `json:"appID"`
	SessionID      string         `json:"sessionID"`
	UserID         string         `json:"userID,omitempty"`
	CaptureIP      bool           `json:"captureIP"`
	ConnectionType ConnectionType `json:"connectionType"`
	SDK            packageVersion `json:"sdk"`
	Events         []*event.Event `json:"events"`
}

type sessionStart struct {
	AppID     string         `json:"appID"`
	SessionID string         `json:"sessionID"`
	StartedAt time.Time      `json:"startedAt"`
	SDK       packageVersion `json:"sdk"`
}

type sessionStartResponse struct {
	SessionURL string `json:"sessionURL"`
}

type packageVersion struct {
	Name    string `json:"packageName"`
	Version string `json:"packageVersion"`
}
