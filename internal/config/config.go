package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config keeps runtime settings for the planner service.
type Config struct {
	DatabaseURL          string
	TelegramToken        string
	AgendaTime           string
	LogLevel             string
	RecurringHorizonDays int
}

// Load reads configuration from environment variables with sane defaults.
// The Telegram token is optional; without it notifications are disabled.
func Load() (Config, error) {
	cfg := Config{
		DatabaseURL:          strings.TrimSpace(os.Getenv("DATABASE_URL")),
		TelegramToken:        strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		AgendaTime:           strings.TrimSpace(os.Getenv("AGENDA_TIME")),
		LogLevel:             strings.TrimSpace(os.Getenv("LOG_LEVEL")),
		RecurringHorizonDays: parseDays(strings.TrimSpace(os.Getenv("RECURRING_HORIZON_DAYS"))),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "planboard.db"
	}
	if cfg.AgendaTime == "" {
		cfg.AgendaTime = "08:00"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.RecurringHorizonDays == 0 {
		cfg.RecurringHorizonDays = 60
	}

	if err := validateClock(cfg.AgendaTime); err != nil {
		return cfg, fmt.Errorf("AGENDA_TIME: %w", err)
	}

	return cfg, nil
}

func parseDays(raw string) int {
	if raw == "" {
		return 0
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days <= 0 {
		return 0
	}
	return days
}

func validateClock(timeStr string) error {
	parts := strings.Split(timeStr, ":")
	if len(parts) != 2 {
		return fmt.Errorf("invalid time %q, expected HH:MM", timeStr)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return fmt.Errorf("invalid hour in %q", timeStr)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return fmt.Errorf("invalid minute in %q", timeStr)
	}
	return nil
}
