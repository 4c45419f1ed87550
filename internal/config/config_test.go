package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name: "default values",
			env:  map[string]string{},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Port != "8080" {
					t.Errorf("expected port 8080, got %s", cfg.Port)
				}
				if cfg.LogLevel != "info" {
					t.Errorf("expected log level info, got %s", cfg.LogLevel)
				}
				if cfg.WSReadTimeout != 60*time.Second {
					t.Errorf("expected WSReadTimeout 60s, got %v", cfg.WSReadTimeout)
				}
				if cfg.SettingsDebounce != 2*time.Second {
					t.Errorf("expected SettingsDebounce 2s, got %v", cfg.SettingsDebounce)
				}
				if cfg.PageLimit != 50 {
					t.Errorf("expected PageLimit 50, got %d", cfg.PageLimit)
				}
				if cfg.RefreshInterval != 0 {
					t.Errorf("expected auto refresh disabled, got %v", cfg.RefreshInterval)
				}
				if !cfg.ResetOnSegmentDelete {
					t.Error("expected ResetOnSegmentDelete on by default")
				}
			},
		},
		{
			name: "custom values",
			env: map[string]string{
				"PORT":             "9000",
				"LOG_LEVEL":        "debug",
				"WS_READ_TIMEOUT":  "30",
				"WS_WRITE_TIMEOUT": "5",
				"ALLOWED_ORIGINS":  "http://example.com,http://test.com",
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Port != "9000" {
					t.Errorf("expected port 9000, got %s", cfg.Port)
				}
				if cfg.LogLevel != "debug" {
					t.Errorf("expected log level debug, got %s", cfg.LogLevel)
				}
				if cfg.WSReadTimeout != 30*time.Second {
					t.Errorf("expected WSReadTimeout 30s, got %v", cfg.WSReadTimeout)
				}
				if cfg.WSWriteTimeout != 5*time.Second {
					t.Errorf("expected WSWriteTimeout 5s, got %v", cfg.WSWriteTimeout)
				}
				if len(cfg.AllowedOrigins) != 2 {
					t.Errorf("expected 2 allowed origins, got %d", len(cfg.AllowedOrigins))
				}
			},
		},
		{
			name: "backend and view settings",
			env: map[string]string{
				"API_BASE_URL":            "https://calls.example.com/api/",
				"API_TOKEN":               "secret",
				"API_TIMEOUT":             "3",
				"SETTINGS_DEBOUNCE_MS":    "500",
				"PAGE_LIMIT":              "100",
				"REFRESH_INTERVAL":        "30",
				"RESET_ON_SEGMENT_DELETE": "false",
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.APIBaseURL != "https://calls.example.com/api" {
					t.Errorf("expected trailing slash trimmed, got %s", cfg.APIBaseURL)
				}
				if cfg.APIToken != "secret" || cfg.APITimeout != 3*time.Second {
					t.Errorf("unexpected backend settings %q %v", cfg.APIToken, cfg.APITimeout)
				}
				if cfg.SettingsDebounce != 500*time.Millisecond {
					t.Errorf("expected 500ms debounce, got %v", cfg.SettingsDebounce)
				}
				if cfg.PageLimit != 100 || cfg.RefreshInterval != 30*time.Second {
					t.Errorf("unexpected paging settings %d %v", cfg.PageLimit, cfg.RefreshInterval)
				}
				if cfg.ResetOnSegmentDelete {
					t.Error("expected ResetOnSegmentDelete off")
				}
			},
		},
		{
			name:    "zero PAGE_LIMIT",
			env:     map[string]string{"PAGE_LIMIT": "0"},
			wantErr: true,
		},
		{
			name:    "invalid RESET_ON_SEGMENT_DELETE",
			env:     map[string]string{"RESET_ON_SEGMENT_DELETE": "maybe"},
			wantErr: true,
		},
		{
			name: "invalid WS_READ_TIMEOUT",
			env: map[string]string{
				"WS_READ_TIMEOUT": "invalid",
			},
			wantErr: true,
		},
		{
			name: "invalid WS_WRITE_TIMEOUT",
			env: map[string]string{
				"WS_WRITE_TIMEOUT": "invalid",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear environment
			os.Clearenv()

			// Set test environment variables
			for k, v := range tt.env {
				os.Setenv(k, v)
			}

			// Load config
			cfg, err := Load()

			// Check error
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			// Run custom checks
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestWebSocketConstants(t *testing.T) {
	// Clear environment and set clean defaults
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// PongWait should equal WSReadTimeout
	if cfg.PongWait != cfg.WSReadTimeout {
		t.Errorf("PongWait (%v) should equal WSReadTimeout (%v)", cfg.PongWait, cfg.WSReadTimeout)
	}

	// PingPeriod should be less than PongWait
	if cfg.PingPeriod >= cfg.PongWait {
		t.Errorf("PingPeriod (%v) should be less than PongWait (%v)", cfg.PingPeriod, cfg.PongWait)
	}

	// WriteWait should equal WSWriteTimeout
	if cfg.WriteWait != cfg.WSWriteTimeout {
		t.Errorf("WriteWait (%v) should equal WSWriteTimeout (%v)", cfg.WriteWait, cfg.WSWriteTimeout)
	}

	// MaxMessageSize should be set
	if cfg.MaxMessageSize <= 0 {
		t.Errorf("MaxMessageSize should be positive, got %d", cfg.MaxMessageSize)
	}
}
