// Package config resolves synolink settings from defaults, config.toml,
// dotenv files, the environment and command-line overrides.
package config

import (
	"fmt"
	"strings"
	"time"
)

// FieldSource indicates where a config value originates.
type FieldSource string

const (
	SourceDefault     FieldSource = "default"
	SourceConfigFile  FieldSource = "config.toml"
	SourceDotEnv      FieldSource = ".env"
	SourceDotEnvLocal FieldSource = ".env.local"
	SourceEnv         FieldSource = "env"
	SourceFlag        FieldSource = "flag"
)

type Config struct {
	Synology Synology `toml:"synology"`
	Log      Log      `toml:"log"`
	Search   Search   `toml:"search"`
	HTTP     HTTP     `toml:"http"`
	Metrics  Metrics  `toml:"metrics"`

	// Sources records, per field key, the layer that set the value.
	Sources map[string]FieldSource `toml:"-"`
}

type Synology struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type Search struct {
	PollInterval Duration `toml:"poll_interval"`
}

type HTTP struct {
	// Timeout bounds every FileStation request; zero disables it.
	Timeout Duration `toml:"timeout"`
}

type Metrics struct {
	// Listen is the host:port for /metrics; empty disables the listener.
	Listen string `toml:"listen"`
}

// Address returns host:port of the appliance.
func (s Synology) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Duration is a time.Duration written as a Go duration string ("500ms").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// SourceOf returns the layer that set key, SourceDefault when unknown.
func (c *Config) SourceOf(key string) FieldSource {
	if c == nil || c.Sources == nil {
		return SourceDefault
	}
	if src, ok := c.Sources[key]; ok {
		return src
	}
	return SourceDefault
}

func (c *Config) setSource(key string, src FieldSource) {
	if c.Sources == nil {
		c.Sources = map[string]FieldSource{}
	}
	c.Sources[key] = src
}
