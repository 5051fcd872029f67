package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

// AlertConfig holds alerting configuration.
type AlertConfig struct {
	// WebhookURL is a generic webhook endpoint (Slack, Discord, or custom).
	WebhookURL string
	// WebhookType determines the payload format: "slack", "discord", or "generic".
	WebhookType string
	// Enabled controls whether alerts are sent.
	Enabled bool
	// Timeout for webhook HTTP requests.
	Timeout time.Duration
}

// ConfigFromEnv returns alerting config from environment variables; alerting
// is enabled whenever a webhook URL is configured.
func ConfigFromEnv() AlertConfig {
	cfg := AlertConfig{
		WebhookURL:  os.Getenv("ALERT_WEBHOOK_URL"),
		WebhookType: os.Getenv("ALERT_WEBHOOK_TYPE"),
		Timeout:     10 * time.Second,
	}
	cfg.Enabled = cfg.WebhookURL != ""

	if cfg.WebhookType == "" {
		switch {
		case strings.Contains(cfg.WebhookURL, "slack.com"):
			cfg.WebhookType = "slack"
		case strings.Contains(cfg.WebhookURL, "discord.com"):
			cfg.WebhookType = "discord"
		default:
			cfg.WebhookType = "generic"
		}
	}
	return cfg
}

// Alerter sends refresh-failure alerts to a configured webhook.
type Alerter struct {
	cfg    AlertConfig
	client *http.Client
	logger *zap.Logger
}

func NewAlerter(cfg AlertConfig, logger *zap.Logger) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.Named("alerting"),
	}
}

// RefreshFailed notifies the webhook about a failed refresh run. Delivery is
// best-effort; failures are logged and swallowed.
func (a *Alerter) RefreshFailed(ctx context.Context, runID string, refreshErr error) {
	if !a.cfg.Enabled {
		return
	}

	payload, err := a.buildPayload(runID, refreshErr)
	if err != nil {
		a.logger.Warn("build alert payload failed", zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		a.logger.Warn("create alert request failed", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Warn("send alert failed", zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		a.logger.Warn("alert webhook rejected payload", zap.Int("status", resp.StatusCode))
		return
	}
	a.logger.Info("refresh failure alert sent", zap.String("run_id", runID))
}

func (a *Alerter) buildPayload(runID string, refreshErr error) ([]byte, error) {
	text := fmt.Sprintf(":x: Country refresh failed (run %s): %v", runID, refreshErr)
	switch a.cfg.WebhookType {
	case "slack":
		return json.Marshal(map[string]string{"text": text})
	case "discord":
		return json.Marshal(map[string]string{"content": text})
	default:
		return json.Marshal(map[string]any{
			"event":     "refresh_failed",
			"run_id":    runID,
			"error":     refreshErr.Error(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
