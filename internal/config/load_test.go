package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	return home
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)
	cfg, err := Load(Options{WorkDir: t.TempDir(), LookupEnv: envMap(nil)})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Synology.Host != "localhost" || cfg.Synology.Port != 5000 {
		t.Fatalf("unexpected synology defaults: %+v", cfg.Synology)
	}
	if cfg.Search.PollInterval.Duration != 500*time.Millisecond {
		t.Fatalf("poll interval=%v", cfg.Search.PollInterval)
	}
	if cfg.HTTP.Timeout.Duration != 0 || cfg.Metrics.Listen != "" {
		t.Fatalf("unexpected optional defaults: %+v %+v", cfg.HTTP, cfg.Metrics)
	}
	if got := cfg.SourceOf("synology.host"); got != SourceDefault {
		t.Fatalf("source=%q", got)
	}
}

func TestLoad_UserConfigFile(t *testing.T) {
	home := isolate(t)
	writeFile(t, filepath.Join(home, "synolink", "config.toml"), `
[synology]
host = "nas.local"
port = 5001

[search]
poll_interval = "250ms"
`)
	cfg, err := Load(Options{WorkDir: t.TempDir(), LookupEnv: envMap(nil)})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Synology.Host != "nas.local" || cfg.Synology.Port != 5001 {
		t.Fatalf("synology=%+v", cfg.Synology)
	}
	if cfg.Search.PollInterval.Duration != 250*time.Millisecond {
		t.Fatalf("poll interval=%v", cfg.Search.PollInterval)
	}
	if got := cfg.SourceOf("synology.port"); got != SourceConfigFile {
		t.Fatalf("port source=%q", got)
	}
	if got := cfg.SourceOf("log.level"); got != SourceDefault {
		t.Fatalf("log.level source=%q", got)
	}
}

func TestLoad_ExplicitConfigMustExist(t *testing.T) {
	isolate(t)
	_, err := Load(Options{ConfigPath: filepath.Join(t.TempDir(), "missing.toml"), LookupEnv: envMap(nil)})
	if err == nil || !strings.HasPrefix(err.Error(), "CONFIG_INVALID:") {
		t.Fatalf("error=%v", err)
	}
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[synology]\nhostname = \"typo\"\n")
	_, err := Load(Options{ConfigPath: path, LookupEnv: envMap(nil)})
	if err == nil || !strings.Contains(err.Error(), "synology.hostname") {
		t.Fatalf("error=%v", err)
	}
}

func TestPrecedence_EnvOverDotEnvOverFile(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, "[synology]\nhost = \"file-host\"\nport = 6000\nusername = \"file-user\"\n")
	writeFile(t, filepath.Join(dir, ".env"), "SYNO_HOST=dotenv-host\nSYNO_PORT=7000\nSYNO_USER=dotenv-user\n")
	writeFile(t, filepath.Join(dir, ".env.local"), "SYNO_PORT=7001\n")

	cfg, err := Load(Options{
		ConfigPath: path,
		WorkDir:    dir,
		LookupEnv:  envMap(map[string]string{"SYNO_HOST": "env-host", "SYNO_USER": ""}),
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Synology.Host != "env-host" || cfg.SourceOf("synology.host") != SourceEnv {
		t.Fatalf("host=%q source=%q", cfg.Synology.Host, cfg.SourceOf("synology.host"))
	}
	if cfg.Synology.Port != 7001 || cfg.SourceOf("synology.port") != SourceDotEnvLocal {
		t.Fatalf("port=%d source=%q", cfg.Synology.Port, cfg.SourceOf("synology.port"))
	}
	// An empty process variable counts as unset.
	if cfg.Synology.Username != "dotenv-user" || cfg.SourceOf("synology.username") != SourceDotEnv {
		t.Fatalf("username=%q source=%q", cfg.Synology.Username, cfg.SourceOf("synology.username"))
	}
}

func TestPrecedence_FlagsOverrideEnv(t *testing.T) {
	isolate(t)
	host := "flag-host"
	port := 5443
	level := "DEBUG"
	cfg, err := Load(Options{
		WorkDir:   t.TempDir(),
		LookupEnv: envMap(map[string]string{"SYNO_HOST": "env-host", "SYNO_PORT": "6000", "SYNOLINK_LOG_LEVEL": "warn"}),
		Overrides: &Overrides{Host: &host, Port: &port, LogLevel: &level},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Synology.Host != "flag-host" || cfg.Synology.Port != 5443 || cfg.Log.Level != "debug" {
		t.Fatalf("cfg=%+v %+v", cfg.Synology, cfg.Log)
	}
	if cfg.SourceOf("synology.port") != SourceFlag {
		t.Fatalf("port source=%q", cfg.SourceOf("synology.port"))
	}
}

func TestLoad_PasswordKeptVerbatim(t *testing.T) {
	isolate(t)
	cfg, err := Load(Options{
		WorkDir:   t.TempDir(),
		LookupEnv: envMap(map[string]string{"SYNO_PASS": "  spaced pass  "}),
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Synology.Password != "  spaced pass  " {
		t.Fatalf("password=%q", cfg.Synology.Password)
	}
}

func TestLoad_BadEnvValues(t *testing.T) {
	isolate(t)
	cases := map[string]string{
		"SYNO_PORT":              "five-thousand",
		"SYNOLINK_POLL_INTERVAL": "soon",
		"SYNOLINK_HTTP_TIMEOUT":  "30",
	}
	for name, value := range cases {
		_, err := Load(Options{WorkDir: t.TempDir(), LookupEnv: envMap(map[string]string{name: value})})
		if err == nil || !strings.HasPrefix(err.Error(), "CONFIG_INVALID: "+name) {
			t.Fatalf("%s=%q: error=%v", name, value, err)
		}
	}
}

func TestLoad_SkipValidate(t *testing.T) {
	isolate(t)
	cfg, err := Load(Options{
		WorkDir:      t.TempDir(),
		LookupEnv:    envMap(map[string]string{"SYNO_PORT": "0"}),
		SkipValidate: true,
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Synology.Port != 0 {
		t.Fatalf("port=%d", cfg.Synology.Port)
	}
}
