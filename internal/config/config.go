package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Port           string
	AllowedOrigins []string
	WSReadTimeout  time.Duration
	WSWriteTimeout time.Duration
	LogLevel       string
	PingPeriod     time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64

	// Calls backend
	APIBaseURL string
	APIToken   string
	APITimeout time.Duration

	// View sessions
	SettingsDebounce     time.Duration
	PageLimit            int
	RefreshInterval      time.Duration // zero disables auto refresh
	ResetOnSegmentDelete bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:5173"), ","),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		APIBaseURL:     strings.TrimSuffix(getEnv("API_BASE_URL", "http://localhost:8000/api"), "/"),
		APIToken:       os.Getenv("API_TOKEN"),
	}

	// Parse WebSocket timeouts
	wsReadTimeout, err := strconv.Atoi(getEnv("WS_READ_TIMEOUT", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid WS_READ_TIMEOUT: %w", err)
	}
	config.WSReadTimeout = time.Duration(wsReadTimeout) * time.Second

	wsWriteTimeout, err := strconv.Atoi(getEnv("WS_WRITE_TIMEOUT", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid WS_WRITE_TIMEOUT: %w", err)
	}
	config.WSWriteTimeout = time.Duration(wsWriteTimeout) * time.Second

	// Calculate WebSocket constants
	config.PongWait = config.WSReadTimeout
	config.PingPeriod = (config.PongWait * 9) / 10 // Must be less than pongWait
	config.WriteWait = config.WSWriteTimeout
	config.MaxMessageSize = 512

	apiTimeout, err := strconv.Atoi(getEnv("API_TIMEOUT", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid API_TIMEOUT: %w", err)
	}
	config.APITimeout = time.Duration(apiTimeout) * time.Second

	debounceMs, err := strconv.Atoi(getEnv("SETTINGS_DEBOUNCE_MS", "2000"))
	if err != nil {
		return nil, fmt.Errorf("invalid SETTINGS_DEBOUNCE_MS: %w", err)
	}
	config.SettingsDebounce = time.Duration(debounceMs) * time.Millisecond

	config.PageLimit, err = strconv.Atoi(getEnv("PAGE_LIMIT", "50"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAGE_LIMIT: %w", err)
	}
	if config.PageLimit <= 0 {
		return nil, fmt.Errorf("invalid PAGE_LIMIT: must be positive, got %d", config.PageLimit)
	}

	refresh, err := strconv.Atoi(getEnv("REFRESH_INTERVAL", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REFRESH_INTERVAL: %w", err)
	}
	config.RefreshInterval = time.Duration(refresh) * time.Second

	config.ResetOnSegmentDelete, err = strconv.ParseBool(getEnv("RESET_ON_SEGMENT_DELETE", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid RESET_ON_SEGMENT_DELETE: %w", err)
	}

	// Trim spaces from allowed origins
	for i, origin := range config.AllowedOrigins {
		config.AllowedOrigins[i] = strings.TrimSpace(origin)
	}

	return config, nil
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
