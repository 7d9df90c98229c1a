package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the service.
type Config struct {
	HTTPPort       int
	SQLiteDSN      string
	SessionTTL     time.Duration
	ClaimLimit     int
	ExpiringWindow time.Duration

	// BootstrapEmail and BootstrapCode seed an organizer account on first
	// start when the user table is empty. Both are optional.
	BootstrapEmail string
	BootstrapCode  string
}

// Load parses configuration values from the current process environment.
//
// Every variable is optional; the loader applies sensible defaults and
// rejects values that do not parse.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:       8080,
		SQLiteDSN:      "file:freebites.db",
		SessionTTL:     24 * time.Hour,
		ClaimLimit:     2,
		ExpiringWindow: 6 * time.Hour,
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("FREEBITES_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "FREEBITES_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("FREEBITES_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if ttlValue := strings.TrimSpace(os.Getenv("FREEBITES_SESSION_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "FREEBITES_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if limitValue := strings.TrimSpace(os.Getenv("FREEBITES_CLAIM_LIMIT")); limitValue != "" {
		limit, err := strconv.Atoi(limitValue)
		if err != nil || limit <= 0 {
			invalid = append(invalid, "FREEBITES_CLAIM_LIMIT")
		} else {
			cfg.ClaimLimit = limit
		}
	}

	if windowValue := strings.TrimSpace(os.Getenv("FREEBITES_EXPIRING_WINDOW")); windowValue != "" {
		window, err := time.ParseDuration(windowValue)
		if err != nil || window <= 0 {
			invalid = append(invalid, "FREEBITES_EXPIRING_WINDOW")
		} else {
			cfg.ExpiringWindow = window
		}
	}

	cfg.BootstrapEmail = strings.TrimSpace(os.Getenv("FREEBITES_BOOTSTRAP_EMAIL"))
	cfg.BootstrapCode = strings.TrimSpace(os.Getenv("FREEBITES_BOOTSTRAP_CODE"))
	if (cfg.BootstrapEmail == "") != (cfg.BootstrapCode == "") {
		invalid = append(invalid, "FREEBITES_BOOTSTRAP_EMAIL, FREEBITES_BOOTSTRAP_CODE")
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
