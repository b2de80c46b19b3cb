package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FieldInfo describes a single configurable field and its provenance.
type FieldInfo struct {
	Key       string
	EnvVar    string
	Value     string
	Source    FieldSource
	Sensitive bool
}

// fieldDef binds a dotted key to its environment variable and accessors.
type fieldDef struct {
	Key       string
	EnvVar    string
	Sensitive bool
	get       func(*Config) string
	set       func(*Config, string) error
}

var fieldDefs = []fieldDef{
	{
		Key: "synology.host", EnvVar: "SYNO_HOST",
		get: func(c *Config) string { return c.Synology.Host },
		set: func(c *Config, v string) error { c.Synology.Host = v; return nil },
	},
	{
		Key: "synology.port", EnvVar: "SYNO_PORT",
		get: func(c *Config) string { return strconv.Itoa(c.Synology.Port) },
		set: func(c *Config, v string) error {
			port, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("not a number: %q", v)
			}
			c.Synology.Port = port
			return nil
		},
	},
	{
		Key: "synology.username", EnvVar: "SYNO_USER",
		get: func(c *Config) string { return c.Synology.Username },
		set: func(c *Config, v string) error { c.Synology.Username = v; return nil },
	},
	{
		Key: "synology.password", EnvVar: "SYNO_PASS", Sensitive: true,
		get: func(c *Config) string { return c.Synology.Password },
		set: func(c *Config, v string) error { c.Synology.Password = v; return nil },
	},
	{
		Key: "log.level", EnvVar: "SYNOLINK_LOG_LEVEL",
		get: func(c *Config) string { return c.Log.Level },
		set: func(c *Config, v string) error { c.Log.Level = strings.ToLower(v); return nil },
	},
	{
		Key: "log.format", EnvVar: "SYNOLINK_LOG_FORMAT",
		get: func(c *Config) string { return c.Log.Format },
		set: func(c *Config, v string) error { c.Log.Format = strings.ToLower(v); return nil },
	},
	{
		Key: "search.poll_interval", EnvVar: "SYNOLINK_POLL_INTERVAL",
		get: func(c *Config) string { return c.Search.PollInterval.String() },
		set: func(c *Config, v string) error { return setDuration(&c.Search.PollInterval, v) },
	},
	{
		Key: "http.timeout", EnvVar: "SYNOLINK_HTTP_TIMEOUT",
		get: func(c *Config) string { return c.HTTP.Timeout.String() },
		set: func(c *Config, v string) error { return setDuration(&c.HTTP.Timeout, v) },
	},
	{
		Key: "metrics.listen", EnvVar: "SYNOLINK_METRICS_LISTEN",
		get: func(c *Config) string { return c.Metrics.Listen },
		set: func(c *Config, v string) error { c.Metrics.Listen = v; return nil },
	},
}

func setDuration(d *Duration, v string) error {
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("not a duration: %q", v)
	}
	d.Duration = parsed
	return nil
}

// EnvVarForField returns the environment variable mapped to a field key.
func EnvVarForField(key string) string {
	for _, fd := range fieldDefs {
		if fd.Key == key {
			return fd.EnvVar
		}
	}
	return ""
}

// EffectiveFields lists every configurable field with its current value and
// source. Sensitive values are redacted.
func EffectiveFields(cfg *Config) []FieldInfo {
	if cfg == nil {
		def := Default()
		cfg = &def
	}
	out := make([]FieldInfo, 0, len(fieldDefs))
	for _, fd := range fieldDefs {
		value := fd.get(cfg)
		if fd.Sensitive {
			value = redactSecret(value)
		}
		out = append(out, FieldInfo{
			Key:       fd.Key,
			EnvVar:    fd.EnvVar,
			Value:     value,
			Source:    cfg.SourceOf(fd.Key),
			Sensitive: fd.Sensitive,
		})
	}
	return out
}

func redactSecret(value string) string {
	if value == "" {
		return ""
	}
	return "********"
}
