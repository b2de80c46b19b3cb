package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"synolink/internal/config"
	"synolink/internal/logging"
	"synolink/internal/mcp"
	"synolink/internal/metrics"
	"synolink/internal/synology"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the FileStation tools over MCP stdio",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, false)
	if err != nil {
		exitWith(ExitConfigInvalid, err.Error())
		return nil
	}

	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		exitWith(ExitConfigInvalid, "CONFIG_INVALID: "+err.Error())
		return nil
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if IsTTY() {
		st := newStyles(os.Stderr, false)
		fmt.Fprintln(os.Stderr, st.warnPrefix(), "stdin is a terminal; synolink expects an MCP client on stdio")
	}

	err = serve(ctx, cfg, logger, os.Stdin, os.Stdout)
	var bindErr *bindError
	switch {
	case errors.As(err, &bindErr):
		exitWith(ExitBindFailure, err.Error())
	case err != nil:
		exitWith(ExitGenericError, "ERROR: "+err.Error())
	}
	return nil
}

type bindError struct {
	addr string
	err  error
}

func (e *bindError) Error() string {
	return fmt.Sprintf("metrics listener bind failed on %s: %v", e.addr, e.err)
}

func (e *bindError) Unwrap() error { return e.err }

// serve wires the FileStation client into the MCP server and blocks until in
// is exhausted or ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger, in io.Reader, out io.Writer) error {
	logger = logging.OrNop(logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rec := metrics.New(reg)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	metricsDone := make(chan error, 1)
	if cfg.Metrics.Listen != "" {
		ln, err := net.Listen("tcp", cfg.Metrics.Listen)
		if err != nil {
			return &bindError{addr: cfg.Metrics.Listen, err: err}
		}
		go func() { metricsDone <- metrics.Serve(ctx, ln, reg, logger.Named("metrics")) }()
	} else {
		metricsDone <- nil
	}

	client := synology.NewClient(
		cfg.Synology.Host,
		cfg.Synology.Port,
		synology.WithHTTPClient(&http.Client{Timeout: cfg.HTTP.Timeout.Duration}),
		synology.WithLogger(logger.Named("synology")),
		synology.WithMetrics(rec),
		synology.WithPollInterval(cfg.Search.PollInterval.Duration),
	)

	srv, err := mcp.NewServer(client,
		mcp.WithLogger(logger.Named("mcp")),
		mcp.WithMetrics(rec),
		mcp.WithRemoteLabel(cfg.Synology.Address()),
	)
	if err != nil {
		return err
	}

	serveErr := srv.ServeStdio(ctx, in, out)
	cancel()
	if err := <-metricsDone; err != nil {
		logger.Warn("metrics server stopped with error", zap.Error(err))
	}
	return serveErr
}
