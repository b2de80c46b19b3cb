package config

import (
	"fmt"
	"net"
	"strings"

	"synolink/internal/logging"
)

// Validate checks ranges and enum constraints. Errors carry the
// CONFIG_INVALID prefix so the CLI can exit 2.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("CONFIG_INVALID: nil config")
	}
	if strings.TrimSpace(cfg.Synology.Host) == "" {
		return fmt.Errorf("CONFIG_INVALID: synology.host must not be empty\nSet env: SYNO_HOST=...")
	}
	if cfg.Synology.Port < 1 || cfg.Synology.Port > 65535 {
		return fmt.Errorf("CONFIG_INVALID: synology.port=%d; must be between 1 and 65535", cfg.Synology.Port)
	}
	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("CONFIG_INVALID: log.level=%q; allowed: %s", cfg.Log.Level, strings.Join(logging.Levels, ", "))
	}
	if !stringIn(cfg.Log.Format, logging.Formats) {
		return fmt.Errorf("CONFIG_INVALID: log.format=%q; allowed: %s", cfg.Log.Format, strings.Join(logging.Formats, ", "))
	}
	if cfg.Search.PollInterval.Duration <= 0 {
		return fmt.Errorf("CONFIG_INVALID: search.poll_interval=%s; must be positive", cfg.Search.PollInterval)
	}
	if cfg.HTTP.Timeout.Duration < 0 {
		return fmt.Errorf("CONFIG_INVALID: http.timeout=%s; must not be negative", cfg.HTTP.Timeout)
	}
	if listen := strings.TrimSpace(cfg.Metrics.Listen); listen != "" {
		if _, _, err := net.SplitHostPort(listen); err != nil {
			return fmt.Errorf("CONFIG_INVALID: metrics.listen=%q must be host:port: %w", listen, err)
		}
	}
	return nil
}

func stringIn(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
