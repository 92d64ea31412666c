package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "interlink.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	Reset()
	defer Reset()

	cfg, err := Load(writeConfig(t, "app:\n  debug: false\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Driver != "postgres" {
		t.Errorf("Expected postgres driver, got %s", cfg.Database.Driver)
	}
	settings := cfg.Linking.LinkSettings()
	if settings.URLPattern != "/blog/{slug}" {
		t.Errorf("Unexpected url pattern %s", settings.URLPattern)
	}
	if settings.SuggestionLimit != 8 || settings.MaxSuggestions != 15 {
		t.Errorf("Unexpected limits %d/%d", settings.SuggestionLimit, settings.MaxSuggestions)
	}
	if settings.ScoringTimeout != 30*time.Second || settings.ValidationTimeout != 30*time.Second {
		t.Errorf("Unexpected timeouts %v/%v", settings.ScoringTimeout, settings.ValidationTimeout)
	}
	if settings.MinRelevanceScore != 8 || settings.ContextRadius != 150 {
		t.Errorf("Unexpected thresholds %+v", settings)
	}
	if cfg.Server.Timeout() != 90*time.Second {
		t.Errorf("Unexpected server timeout %v", cfg.Server.Timeout())
	}
}

func TestLoadFileOverrides(t *testing.T) {
	Reset()
	defer Reset()

	path := writeConfig(t, `
database:
  driver: sqlite
  sqlite_path: /tmp/links.db
linking:
  url_pattern: "/{category}/{slug}"
  scoring_timeout: 5s
  generic_anchors:
    - putting drills
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Driver != "sqlite" || cfg.Database.SQLitePath != "/tmp/links.db" {
		t.Errorf("Unexpected database config %+v", cfg.Database)
	}
	settings := cfg.Linking.LinkSettings()
	if settings.URLPattern != "/{category}/{slug}" {
		t.Errorf("Unexpected url pattern %s", settings.URLPattern)
	}
	if settings.ScoringTimeout != 5*time.Second {
		t.Errorf("Expected 5s scoring timeout, got %v", settings.ScoringTimeout)
	}
	if len(settings.GenericAnchors) != 1 || settings.GenericAnchors[0] != "putting drills" {
		t.Errorf("Unexpected generic anchors %v", settings.GenericAnchors)
	}
}

func TestLoadEnvironment(t *testing.T) {
	Reset()
	defer Reset()

	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("INTERNAL_LINK_PATTERN", "/articles/{slug}")

	cfg, err := Load(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.AI.Gemini.APIKey != "test-key" {
		t.Errorf("Expected API key from environment, got %q", cfg.AI.Gemini.APIKey)
	}
	if cfg.Linking.URLPattern != "/articles/{slug}" {
		t.Errorf("Expected url pattern from environment, got %q", cfg.Linking.URLPattern)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"bad pattern", "linking:\n  url_pattern: /blog/x\n", "must contain {slug}"},
		{"bad driver", "database:\n  driver: mysql\n", "Unknown database driver"},
		{"bad duration", "linking:\n  scoring_timeout: soon\n", "invalid duration"},
		{"posthog without key", "posthog:\n  enabled: true\n", "PostHog is enabled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Reset()
			defer Reset()
			t.Setenv("POSTHOG_API_KEY", "")
			t.Setenv("INTERNAL_LINK_PATTERN", "")

			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("Expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
