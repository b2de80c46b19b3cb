package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidate_Defaults(t *testing.T) {
	cfg := Default()
	if err := Validate(&cfg); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestValidate_Rejects(t *testing.T) {
	cases := map[string]func(*Config){
		"synology.host":        func(c *Config) { c.Synology.Host = "  " },
		"synology.port":        func(c *Config) { c.Synology.Port = 70000 },
		"log.level":            func(c *Config) { c.Log.Level = "verbose" },
		"log.format":           func(c *Config) { c.Log.Format = "xml" },
		"search.poll_interval": func(c *Config) { c.Search.PollInterval = Duration{0} },
		"http.timeout":         func(c *Config) { c.HTTP.Timeout = Duration{-time.Second} },
		"metrics.listen":       func(c *Config) { c.Metrics.Listen = "9464" },
	}
	for key, mutate := range cases {
		cfg := Default()
		mutate(&cfg)
		err := Validate(&cfg)
		if err == nil {
			t.Fatalf("%s: expected error", key)
		}
		if !strings.HasPrefix(err.Error(), "CONFIG_INVALID: "+key) {
			t.Fatalf("%s: error=%q", key, err.Error())
		}
	}
}

func TestValidate_Nil(t *testing.T) {
	if err := Validate(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}
