package alerting

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestRefreshFailed_PostsGenericPayload(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("bad payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := NewAlerter(AlertConfig{
		WebhookURL:  srv.URL,
		WebhookType: "generic",
		Enabled:     true,
		Timeout:     2 * time.Second,
	}, zap.NewNop())

	a.RefreshFailed(context.Background(), "run-1", errors.New("upstream down"))

	if got["event"] != "refresh_failed" || got["run_id"] != "run-1" {
		t.Fatalf("unexpected payload: %v", got)
	}
}

func TestRefreshFailed_DisabledSendsNothing(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	a := NewAlerter(AlertConfig{WebhookURL: srv.URL, Enabled: false, Timeout: time.Second}, zap.NewNop())
	a.RefreshFailed(context.Background(), "run-1", errors.New("boom"))

	if called {
		t.Fatalf("disabled alerter must not call the webhook")
	}
}

func TestConfigFromEnv_TypeDetection(t *testing.T) {
	t.Setenv("ALERT_WEBHOOK_URL", "https://hooks.slack.com/services/x")
	t.Setenv("ALERT_WEBHOOK_TYPE", "")

	cfg := ConfigFromEnv()
	if !cfg.Enabled || cfg.WebhookType != "slack" {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	t.Setenv("ALERT_WEBHOOK_URL", "")
	cfg = ConfigFromEnv()
	if cfg.Enabled {
		t.Fatalf("expected disabled without URL")
	}
}
