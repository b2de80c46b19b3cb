package config

import (
	"testing"

	"github.com/BurntSushi/toml"
)

func TestEffectiveFields_RedactsPassword(t *testing.T) {
	cfg := Default()
	cfg.Synology.Password = "hunter2"
	cfg.setSource("synology.password", SourceDotEnvLocal)

	var found bool
	for _, f := range EffectiveFields(&cfg) {
		if f.Key != "synology.password" {
			continue
		}
		found = true
		if f.Value == "hunter2" || f.Value == "" {
			t.Fatalf("password value=%q", f.Value)
		}
		if !f.Sensitive || f.Source != SourceDotEnvLocal || f.EnvVar != "SYNO_PASS" {
			t.Fatalf("unexpected field info: %+v", f)
		}
	}
	if !found {
		t.Fatal("synology.password missing from effective fields")
	}
}

func TestEffectiveFields_CoversEveryEnvVar(t *testing.T) {
	want := []string{
		"SYNO_HOST", "SYNO_PORT", "SYNO_USER", "SYNO_PASS",
		"SYNOLINK_LOG_LEVEL", "SYNOLINK_LOG_FORMAT", "SYNOLINK_POLL_INTERVAL",
		"SYNOLINK_HTTP_TIMEOUT", "SYNOLINK_METRICS_LISTEN",
	}
	fields := EffectiveFields(nil)
	if len(fields) != len(want) {
		t.Fatalf("fields=%d want=%d", len(fields), len(want))
	}
	for i, f := range fields {
		if f.EnvVar != want[i] {
			t.Fatalf("field %d env=%q want=%q", i, f.EnvVar, want[i])
		}
		if EnvVarForField(f.Key) != f.EnvVar {
			t.Fatalf("EnvVarForField(%q)=%q", f.Key, EnvVarForField(f.Key))
		}
	}
}

func TestDefaultTOML_DecodesToDefaults(t *testing.T) {
	cfg := Default()
	if _, err := toml.Decode(DefaultTOML, &cfg); err != nil {
		t.Fatalf("template does not parse: %v", err)
	}
	if err := Validate(&cfg); err != nil {
		t.Fatalf("template must keep defaults valid: %v", err)
	}
	if cfg.Synology.Host != "localhost" || cfg.Search.PollInterval.Duration != DefaultPollInterval {
		t.Fatalf("template changed defaults: %+v", cfg)
	}
}

func TestSynologyAddress(t *testing.T) {
	s := Synology{Host: "nas.local", Port: 5001}
	if got := s.Address(); got != "nas.local:5001" {
		t.Fatalf("Address()=%q", got)
	}
}

func TestSaveSecret_MergesIntoDotEnvLocal(t *testing.T) {
	dir := t.TempDir()
	if err := SaveSecret(dir, "SYNO_USER", "admin"); err != nil {
		t.Fatalf("SaveSecret: %v", err)
	}
	if err := SaveSecret(dir, "SYNO_PASS", "p@ss word"); err != nil {
		t.Fatalf("SaveSecret: %v", err)
	}

	env, err := newEnvLayer(dir, func(string) (string, bool) { return "", false })
	if err != nil {
		t.Fatalf("newEnvLayer: %v", err)
	}
	for key, want := range map[string]string{"SYNO_USER": "admin", "SYNO_PASS": "p@ss word"} {
		got, src, ok := env.get(key)
		if !ok || got != want || src != SourceDotEnvLocal {
			t.Fatalf("%s=%q (%s, %v) want=%q", key, got, src, ok, want)
		}
	}
}
