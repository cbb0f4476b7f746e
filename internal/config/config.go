// Package config reads the bot configuration from environment variables,
// falling back to local-development defaults where that is safe.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full runtime configuration.
type Config struct {
	// DatabaseURL is a libpq-style DSN. When empty, the discrete DB_* vars
	// are used instead.
	DatabaseURL string

	// Port is the HTTP port serving the webhook and dashboard API.
	Port string

	// WebhookSecret must match the X-Webhook-Secret header on inbound
	// updates. Empty disables the check (local development).
	WebhookSecret string

	// GatewayURL is the base URL of the outbound message gateway.
	GatewayURL string
	// GatewayToken authenticates this bot against the gateway.
	GatewayToken string

	// AdminIDs is the fixed admin allowlist.
	AdminIDs []int64

	// ScoresAPIURL is the scores-provider endpoint for upcoming games.
	ScoresAPIURL string
	// FetchTimeout bounds one scores-provider call.
	FetchTimeout time.Duration
	// SyncInterval is the period between scraped-event sync runs.
	SyncInterval time.Duration
}

const defaultScoresAPIURL = "https://webws.365scores.com/web/games/current/" +
	"?langId=2&timezoneName=Asia/Jerusalem&userCountryId=6&appTypeId=5&competitors=559"

// Load builds a Config from the environment. It returns an error only for
// values that cannot be parsed; missing optional values fall back to defaults.
func Load() (Config, error) {
	cfg := Config{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		Port:          getEnv("PORT", "8080"),
		WebhookSecret: os.Getenv("WEBHOOK_SECRET"),
		GatewayURL:    getEnv("GATEWAY_URL", "http://localhost:8081"),
		GatewayToken:  os.Getenv("GATEWAY_TOKEN"),
		ScoresAPIURL:  getEnv("SCORES_API_URL", defaultScoresAPIURL),
	}

	admins, err := ParseAdminIDs(os.Getenv("ADMIN_IDS"))
	if err != nil {
		return Config{}, fmt.Errorf("parse ADMIN_IDS: %w", err)
	}
	cfg.AdminIDs = admins

	cfg.FetchTimeout, err = getDuration("FETCH_TIMEOUT", 15*time.Second)
	if err != nil {
		return Config{}, err
	}
	// Two weeks between scraper runs in the reference deployment.
	cfg.SyncInterval, err = getDuration("SYNC_INTERVAL", 14*24*time.Hour)
	if err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// ParseAdminIDs parses a comma-separated list of numeric ids. Blank entries
// are skipped so trailing commas are harmless.
func ParseAdminIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("admin id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}
