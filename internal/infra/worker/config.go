// Package worker holds the daemon-mode plumbing: per-category cron
// schedule construction, schedule validation, and the health check
// server. One-shot CLI runs never touch this package.
package worker

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"briefing-bot/internal/config"
	"briefing-bot/internal/domain/entity"
	pkgconfig "briefing-bot/pkg/config"
)

// Config holds the daemon runtime settings.
type Config struct {
	// Timezone is the IANA zone all schedule times are interpreted in.
	Timezone string

	// Schedule maps each enabled category to its cron expression
	// ("M H * * *"), derived from the profile's HH:MM entries.
	Schedule map[entity.Category]string

	// RunTimeout bounds one briefing run end to end, including every
	// retry and the state flush.
	RunTimeout time.Duration

	// HealthPort is the port for the liveness/readiness HTTP server.
	HealthPort int

	// MetricsPort is the port for the Prometheus scrape endpoint.
	MetricsPort int
}

// FromProfile derives the daemon configuration from the application
// profile plus the daemon-only environment knobs.
func FromProfile(profile config.Profile, logger *slog.Logger) (Config, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg := Config{
		Timezone:    profile.Timezone,
		Schedule:    make(map[entity.Category]string, len(profile.Schedule)),
		RunTimeout:  pkgconfig.GetEnvDuration("RUN_TIMEOUT", 10*time.Minute),
		HealthPort:  pkgconfig.GetEnvInt("HEALTH_PORT", 9091),
		MetricsPort: pkgconfig.GetEnvInt("METRICS_PORT", 9090),
	}

	for name, at := range profile.Schedule {
		category := entity.Category(name)
		if !category.Valid() {
			logger.Warn("unknown category in schedule, ignoring",
				slog.String("category", name))
			continue
		}
		expr, err := cronFromClock(at)
		if err != nil {
			return Config{}, fmt.Errorf("schedule for %s: %w", name, err)
		}
		cfg.Schedule[category] = expr
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the daemon configuration.
func (c Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	if err := pkgconfig.ValidatePositiveDuration(c.RunTimeout); err != nil {
		return fmt.Errorf("invalid RUN_TIMEOUT: %w", err)
	}
	if c.HealthPort < 1024 || c.HealthPort > 65535 {
		return fmt.Errorf("health port %d out of range 1024-65535", c.HealthPort)
	}
	if c.MetricsPort < 1024 || c.MetricsPort > 65535 {
		return fmt.Errorf("metrics port %d out of range 1024-65535", c.MetricsPort)
	}
	if len(c.Schedule) == 0 {
		return fmt.Errorf("schedule is empty, nothing to run")
	}
	return nil
}

// cronFromClock turns a profile "HH:MM" entry into a daily cron
// expression.
func cronFromClock(at string) (string, error) {
	parts := strings.SplitN(at, ":", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time %q: want HH:MM", at)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour in %q", at)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute in %q", at)
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}
