package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"synolink/internal/config"
)

const (
	ExitSuccess       = 0
	ExitGenericError  = 1
	ExitConfigInvalid = 2
	ExitBindFailure   = 4
)

// GlobalFlags holds flags shared across all commands.
type GlobalFlags struct {
	ConfigPath    string
	Host          string
	Port          int
	LogLevel      string
	LogFormat     string
	MetricsListen string
}

var globalFlags GlobalFlags

var rootCmd = &cobra.Command{
	Use:   "synolink",
	Short: "MCP server for the Synology FileStation API",
	Long: "synolink exposes a Synology NAS FileStation as MCP tools over stdio.\n" +
		"Run without a subcommand to serve.",
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&globalFlags.ConfigPath, "config", "", "config file path (default: $XDG_CONFIG_HOME/synolink/config.toml)")
	flags.StringVar(&globalFlags.Host, "host", "", "Synology host (overrides SYNO_HOST)")
	flags.IntVar(&globalFlags.Port, "port", 0, "Synology port (overrides SYNO_PORT)")
	flags.StringVar(&globalFlags.LogLevel, "log-level", "", "log level: debug|info|warn|error")
	flags.StringVar(&globalFlags.LogFormat, "log-format", "", "log format: console|json")
	flags.StringVar(&globalFlags.MetricsListen, "metrics-listen", "", "host:port for the Prometheus /metrics endpoint")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command and returns an error; exit code is set by RunE.
func Execute() error {
	return rootCmd.Execute()
}

// exitWith prints message to stderr and exits with code.
func exitWith(code int, msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(code)
}

// overridesFrom collects the flags the user actually set.
func overridesFrom(cmd *cobra.Command) *config.Overrides {
	flags := cmd.Flags()
	o := &config.Overrides{}
	if flags.Changed("host") {
		o.Host = &globalFlags.Host
	}
	if flags.Changed("port") {
		o.Port = &globalFlags.Port
	}
	if flags.Changed("log-level") {
		o.LogLevel = &globalFlags.LogLevel
	}
	if flags.Changed("log-format") {
		o.LogFormat = &globalFlags.LogFormat
	}
	if flags.Changed("metrics-listen") {
		o.MetricsListen = &globalFlags.MetricsListen
	}
	return o
}

func loadConfig(cmd *cobra.Command, skipValidate bool) (*config.Config, error) {
	return config.Load(config.Options{
		ConfigPath:   globalFlags.ConfigPath,
		SkipValidate: skipValidate,
		Overrides:    overridesFrom(cmd),
	})
}
