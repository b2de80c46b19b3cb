package cli

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"synolink/internal/config"
	"synolink/internal/protocol"
)

func TestServe_EmptyStdinReturnsCleanly(t *testing.T) {
	cfg := config.Default()
	cfg.Metrics.Listen = "127.0.0.1:0"

	var out bytes.Buffer
	if err := serve(context.Background(), &cfg, zaptest.NewLogger(t), strings.NewReader(""), &out); err != nil {
		t.Fatalf("serve: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("stdout must stay empty, got %q", out.String())
	}
}

func TestServe_MetricsBindFailure(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer taken.Close()

	cfg := config.Default()
	cfg.Metrics.Listen = taken.Addr().String()

	err = serve(context.Background(), &cfg, nil, strings.NewReader(""), &bytes.Buffer{})
	var bindErr *bindError
	if !errors.As(err, &bindErr) {
		t.Fatalf("expected bind error, got %v", err)
	}
	if !strings.Contains(err.Error(), cfg.Metrics.Listen) {
		t.Fatalf("error=%q", err.Error())
	}
}

func TestPrintConfig_PlainOutputShowsSources(t *testing.T) {
	cfg := config.Default()
	cfg.Synology.Host = "nas.local"
	cfg.Synology.Password = "secret"
	cfg.Sources = map[string]config.FieldSource{"synology.host": config.SourceFlag}

	var buf bytes.Buffer
	printConfig(&buf, &cfg)
	got := buf.String()

	if strings.Contains(got, "\x1b[") {
		t.Fatalf("non-terminal output must be unstyled: %q", got)
	}
	if !strings.Contains(got, "synology.host:") || !strings.Contains(got, "nas.local (flag)") {
		t.Fatalf("host line missing: %q", got)
	}
	if strings.Contains(got, "secret") {
		t.Fatalf("password leaked: %q", got)
	}
	if !strings.Contains(got, "metrics.listen:") || !strings.Contains(got, "(unset) (default)") {
		t.Fatalf("unset field not shown: %q", got)
	}
}

func TestWriteTemplate_RefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := writeTemplate(path, false); err != nil {
		t.Fatalf("first write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != config.DefaultTOML {
		t.Fatal("template content mismatch")
	}

	if err := writeTemplate(path, false); err == nil || !strings.Contains(err.Error(), "--force") {
		t.Fatalf("expected refusal, got %v", err)
	}
	if err := writeTemplate(path, true); err != nil {
		t.Fatalf("forced write: %v", err)
	}
}

func TestOverridesFrom_OnlyChangedFlags(t *testing.T) {
	defer func() { globalFlags = GlobalFlags{} }()

	if err := rootCmd.ParseFlags([]string{"--port", "5001", "--log-level", "debug"}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	o := overridesFrom(rootCmd)
	if o.Port == nil || *o.Port != 5001 {
		t.Fatalf("port override=%v", o.Port)
	}
	if o.LogLevel == nil || *o.LogLevel != "debug" {
		t.Fatalf("log level override=%v", o.LogLevel)
	}
	if o.Host != nil || o.LogFormat != nil || o.MetricsListen != nil {
		t.Fatalf("unset flags must not override: %+v", o)
	}
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	defer versionCmd.SetOut(nil)

	if err := runVersion(versionCmd, nil); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(buf.String()); got != "synolink "+protocol.ServerVersion {
		t.Fatalf("version output=%q", got)
	}
}
