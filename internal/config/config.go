package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the core runtime configuration for the service.
// Values are primarily sourced from environment variables, with
// sensible defaults where appropriate. See .env.example.
type Config struct {
	// AuthToken is the shared secret every inbound request must present
	// in the Authorization header.
	AuthToken string

	// WebhookURL is the Discord-compatible endpoint periodic reports are
	// dispatched to.
	WebhookURL string

	DatabaseURL string

	ListenAddr string

	// EnabledDomains lists the telemetry domains the registry is built
	// for. Submissions for any other domain are rejected.
	EnabledDomains []string

	// Interval between broadcast cycles.
	Interval time.Duration

	// Window is the trailing duration a snapshot stays visible to
	// aggregation.
	Window time.Duration

	// ChartURL is a QuickChart-compatible render endpoint.
	ChartURL string

	// DispatchTimeout bounds each outbound chart-render and webhook call.
	DispatchTimeout time.Duration
}

// Load reads configuration from environment variables. A missing
// required value is the only startup-fatal condition in the service.
func Load() (*Config, error) {
	cfg := &Config{
		AuthToken:       os.Getenv("AUTH_TOKEN"),
		WebhookURL:      os.Getenv("WEBHOOK_URL"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		ListenAddr:      getenv("LISTEN_ADDR", ":46423"),
		EnabledDomains:  splitList(getenv("ENABLED_DOMAINS", "resource-gatherers")),
		Interval:        time.Hour,
		Window:          time.Hour,
		ChartURL:        getenv("CHART_URL", "https://quickchart.io/chart"),
		DispatchTimeout: 15 * time.Second,
	}

	if cfg.AuthToken == "" {
		return nil, errors.New("AUTH_TOKEN environment variable is not set")
	}
	if cfg.WebhookURL == "" {
		return nil, errors.New("WEBHOOK_URL environment variable is not set")
	}
	if len(cfg.EnabledDomains) == 0 {
		return nil, errors.New("ENABLED_DOMAINS must name at least one domain")
	}

	var err error
	if cfg.Interval, err = secondsVar("STATS_INTERVAL", cfg.Interval); err != nil {
		return nil, err
	}
	if cfg.Window, err = secondsVar("STATS_WINDOW", cfg.Window); err != nil {
		return nil, err
	}
	if cfg.DispatchTimeout, err = secondsVar("DISPATCH_TIMEOUT", cfg.DispatchTimeout); err != nil {
		return nil, err
	}

	return cfg, nil
}

// secondsVar reads key as a positive number of seconds, keeping def when
// the variable is unset. A value that doesn't parse is a startup error,
// not a silent fallback.
func secondsVar(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0, fmt.Errorf("%s must be a positive number of seconds, got %q", key, v)
	}
	return time.Duration(secs) * time.Second, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
