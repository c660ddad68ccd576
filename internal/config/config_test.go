package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestFromYAMLOverlaysDefaults(t *testing.T) {
	cfg, err := FromYAML([]byte(`
negotiation:
  auto_reject_pending: true
notify:
  redis_addr: 127.0.0.1:6379
  publish_timeout: 500ms
logging:
  format: json
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !cfg.Negotiation.AutoRejectPending {
		t.Fatalf("auto_reject_pending not applied")
	}
	if cfg.Notify.PublishTimeout != 500*time.Millisecond {
		t.Fatalf("publish_timeout = %s", cfg.Notify.PublishTimeout)
	}
	if cfg.Notify.Channel != "homeworks.events" {
		t.Fatalf("channel default lost: %q", cfg.Notify.Channel)
	}
	if cfg.Activity.DefaultLimit != 50 {
		t.Fatalf("activity default lost: %d", cfg.Activity.DefaultLimit)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"format":   "logging:\n  format: xml\n",
		"limits":   "activity:\n  default_limit: 10\n  max_limit: 5\n",
		"basepath": "server:\n  base_path: v0\n",
		"channel":  "notify:\n  redis_addr: localhost:6379\n  channel: \"\"\n",
	}
	for name, doc := range cases {
		if _, err := FromYAML([]byte(doc)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadOptional(dir)
	if err != nil {
		t.Fatalf("load optional: %v", err)
	}
	if cfg.Server.BasePath != "/v0" {
		t.Fatalf("expected defaults, got %+v", cfg.Server)
	}
	if _, err := Load(dir); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
	if err := os.WriteFile(Path(dir), []byte("database:\n  busy_timeout_ms: 100\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err = Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.BusyTimeoutMS != 100 {
		t.Fatalf("busy_timeout_ms = %d", cfg.Database.BusyTimeoutMS)
	}
}
