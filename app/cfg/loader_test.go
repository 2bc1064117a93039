package cfg

import (
	"errors"
	"testing"
	"time"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadArgs([]string{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.RefreshInterval != 15*time.Minute {
		t.Errorf("Expected refresh interval 15m, got %v", cfg.RefreshInterval)
	}
	if cfg.SourceTimeout != 30*time.Second {
		t.Errorf("Expected source timeout 30s, got %v", cfg.SourceTimeout)
	}
	if cfg.SourcesDir != "./sources" {
		t.Errorf("Expected sources dir './sources', got '%s'", cfg.SourcesDir)
	}
	if !cfg.Notify {
		t.Error("Expected notifications to be on by default")
	}
	if cfg.NotifyLimit != 0 {
		t.Errorf("Expected unlimited notifications, got %d", cfg.NotifyLimit)
	}
	if cfg.Version == "" {
		t.Error("Expected version to be set")
	}
	if Get() != cfg {
		t.Error("Expected Get to return the loaded configuration")
	}
}

func TestLoadFlags(t *testing.T) {
	cfg, err := LoadArgs([]string{
		"--refresh-interval", "5",
		"--source-timeout", "10",
		"--notify",
		"--notify-limit", "3",
		"--notify-interval", "1500",
		"--db-path", "/tmp/history.db",
		"--api-key", "secret",
		"--once",
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.RefreshInterval != 5*time.Minute {
		t.Errorf("Expected refresh interval 5m, got %v", cfg.RefreshInterval)
	}
	if cfg.SourceTimeout != 10*time.Second {
		t.Errorf("Expected source timeout 10s, got %v", cfg.SourceTimeout)
	}
	if !cfg.Notify || cfg.NotifyLimit != 3 {
		t.Errorf("Expected notifications with limit 3, got %v/%d", cfg.Notify, cfg.NotifyLimit)
	}
	if cfg.NotifyInterval != 1500*time.Millisecond {
		t.Errorf("Expected notify interval 1.5s, got %v", cfg.NotifyInterval)
	}
	if cfg.DBPath != "/tmp/history.db" {
		t.Errorf("Expected db path '/tmp/history.db', got '%s'", cfg.DBPath)
	}
	if cfg.APIAccessKey != "secret" || !cfg.Once {
		t.Errorf("Unexpected config: %+v", cfg)
	}
}

func TestLoadNoNotify(t *testing.T) {
	cfg, err := LoadArgs([]string{"--no-notify"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.Notify {
		t.Error("Expected --no-notify to disable notifications")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("REFRESH_INTERVAL", "60")
	t.Setenv("WEBHOOK_URL", "http://localhost:9999/notify")

	cfg, err := LoadArgs([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.RefreshInterval != time.Hour {
		t.Errorf("Expected refresh interval 1h, got %v", cfg.RefreshInterval)
	}
	if cfg.WebhookURL != "http://localhost:9999/notify" {
		t.Errorf("Expected webhook URL from env, got '%s'", cfg.WebhookURL)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := map[string][]string{
		"zero refresh interval":   {"--refresh-interval", "0"},
		"negative source timeout": {"--source-timeout", "-1"},
		"negative notify limit":   {"--notify-limit", "-2"},
		"empty db path":           {"--db-path", ""},
	}

	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadArgs(args); err == nil {
				t.Errorf("Expected error for %v", args)
			}
		})
	}
}

func TestLoadHelp(t *testing.T) {
	_, err := LoadArgs([]string{"--help"})
	if !errors.Is(err, ErrHelp) {
		t.Errorf("Expected ErrHelp, got: %v", err)
	}
}
