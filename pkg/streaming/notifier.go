package streaming

import (
	"context"

	"github.com/phenomenon0/matchradar/pkg/alerts"
)

// AlertNotifier forwards radar activity to the hub.
type AlertNotifier struct {
	Hub *Hub
}

func (n AlertNotifier) Notify(_ context.Context, a alerts.Alert) {
	n.Hub.Publish(EventTypeAlert, a)
}

func (n AlertNotifier) Armed(_ context.Context, generation uint64, tone alerts.Tone) {
	n.Hub.Publish(EventTypeRadar, map[string]interface{}{
		"enabled":    true,
		"generation": generation,
		"tone":       tone,
	})
}
