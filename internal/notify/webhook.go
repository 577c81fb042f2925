package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/neisii/weather-forecast-accuracy/internal/store"
)

// Notifier posts a human-readable summary of an accepted weight snapshot to a
// Slack/Discord-style webhook. A Notifier with an empty URL is a no-op.
type Notifier struct {
	client *http.Client
	url    string
}

// New creates a Notifier. url may be empty to disable notifications.
func New(client *http.Client, url string) *Notifier {
	return &Notifier{client: client, url: url}
}

// Enabled reports whether a webhook URL is configured.
func (n *Notifier) Enabled() bool {
	return n.url != ""
}

// Send posts the snapshot summary. confidence is the optimization confidence
// in [0, 1].
func (n *Notifier) Send(ctx context.Context, snapshot store.AIWeightsSnapshot, confidence float64) error {
	if !n.Enabled() {
		return nil
	}

	text := fmt.Sprintf(
		"Prediction weights updated to version %s\n"+
			"Confidence: %.0f%%\n"+
			"Expected overall score: %.1f/100\n"+
			"Temperature MAE: %.2f°C, Wind MAE: %.2f m/s, Humidity MAE: %.2f%%\n"+
			"Reason: %s",
		snapshot.Version,
		confidence*100,
		snapshot.Performance.Ensemble.OverallScore,
		snapshot.Performance.Ensemble.TemperatureMAE,
		snapshot.Performance.Ensemble.WindSpeedMAE,
		snapshot.Performance.Ensemble.HumidityMAE,
		snapshot.ChangeReason,
	)

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
