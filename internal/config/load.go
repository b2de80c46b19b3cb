package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Options for loading config.
type Options struct {
	// ConfigPath is an explicit config.toml; it must exist when set. When
	// empty the per-user file is used if present.
	ConfigPath string
	// WorkDir holds the .env and .env.local files. Defaults to ".".
	WorkDir      string
	SkipValidate bool // if true, do not validate (e.g. for config print)
	// Overrides apply last (flags > env > dotenv > file > defaults). Nil means
	// no CLI overrides.
	Overrides *Overrides
	// LookupEnv replaces os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Overrides holds CLI flag values. Only non-nil fields are applied.
type Overrides struct {
	Host          *string
	Port          *int
	LogLevel      *string
	LogFormat     *string
	MetricsListen *string
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/synolink/config.toml (or the
// platform equivalent).
func DefaultConfigPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "synolink", "config.toml"), nil
}

// Load builds config with precedence: defaults → config.toml → .env →
// .env.local → env vars → Overrides. Returned errors carry the
// CONFIG_INVALID prefix.
func Load(opts Options) (*Config, error) {
	cfg := Default()
	cfg.Sources = map[string]FieldSource{}

	if err := mergeConfigFile(&cfg, opts.ConfigPath); err != nil {
		return nil, err
	}

	workDir := opts.WorkDir
	if workDir == "" {
		workDir = "."
	}
	env, err := newEnvLayer(workDir, opts.LookupEnv)
	if err != nil {
		return nil, fmt.Errorf("CONFIG_INVALID: failed loading dotenv files: %w", err)
	}
	if err := mergeEnv(&cfg, env); err != nil {
		return nil, err
	}

	if opts.Overrides != nil {
		applyOverrides(&cfg, opts.Overrides)
	}

	if !opts.SkipValidate {
		if err := Validate(&cfg); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

func mergeConfigFile(cfg *Config, explicit string) error {
	path := explicit
	if path == "" {
		p, err := DefaultConfigPath()
		if err != nil {
			return nil
		}
		path = p
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && explicit == "" {
			return nil
		}
		return fmt.Errorf("CONFIG_INVALID: cannot read config file %s: %w", path, err)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("CONFIG_INVALID: malformed TOML in %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("CONFIG_INVALID: unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	for _, fd := range fieldDefs {
		if meta.IsDefined(strings.Split(fd.Key, ".")...) {
			cfg.setSource(fd.Key, SourceConfigFile)
		}
	}
	return nil
}

func mergeEnv(cfg *Config, env *envLayer) error {
	for _, fd := range fieldDefs {
		v, src, ok := env.get(fd.EnvVar)
		if !ok {
			continue
		}
		if !fd.Sensitive {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
		}
		if err := fd.set(cfg, v); err != nil {
			return fmt.Errorf("CONFIG_INVALID: %s: %w", fd.EnvVar, err)
		}
		cfg.setSource(fd.Key, src)
	}
	return nil
}

func applyOverrides(cfg *Config, o *Overrides) {
	if o.Host != nil {
		cfg.Synology.Host = *o.Host
		cfg.setSource("synology.host", SourceFlag)
	}
	if o.Port != nil {
		cfg.Synology.Port = *o.Port
		cfg.setSource("synology.port", SourceFlag)
	}
	if o.LogLevel != nil {
		cfg.Log.Level = strings.ToLower(*o.LogLevel)
		cfg.setSource("log.level", SourceFlag)
	}
	if o.LogFormat != nil {
		cfg.Log.Format = strings.ToLower(*o.LogFormat)
		cfg.setSource("log.format", SourceFlag)
	}
	if o.MetricsListen != nil {
		cfg.Metrics.Listen = *o.MetricsListen
		cfg.setSource("metrics.listen", SourceFlag)
	}
}
