package sessionreplay

import (
	"time"

	"github.com/pkg/errors"

	"github.com/sessionreplay/sessionreplay-go/internal/metrics"
	"github.com/sessionreplay/sessionreplay-go/internal/shared"
	"github.com/sessionreplay/sessionreplay-go/pkg/event"
	"github.com/sessionreplay/sessionreplay-go/pkg/redact"
)

// scanViews samples ViewScanner every ViewScanInterval until Close.
func (c *Client) scanViews() {
	ticker := time.NewTicker(c.options.ViewScanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopScan:
			return
		case <-ticker.C:
			c.scanView()
		}
	}
}

func (c *Client) scanView() {
	defer c.recoverPanic("ViewScanner")

	snapshot := c.options.ViewScanner()
	if snapshot == nil {
		return
	}
	// the scanner may hand out live structures; keep a plain copy
	normalized, err := redact.Normalize(snapshot)
	if err != nil {
		c.metrics.Dropped.WithLabelValues(metrics.DropSanitizer).Inc()
		c.handleError(errors.Wrap(err, "sessionreplay: encode view snapshot"))
		return
	}
	c.record(&event.Event{
		Type: shared.ViewType,
		View: &event.View{Snapshot: normalized},
	})
}
