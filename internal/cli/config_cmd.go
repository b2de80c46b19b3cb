package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"synolink/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a commented config.toml template",
	RunE:  runConfigInit,
}

var configPrintCmd = &cobra.Command{
	Use:   "print",
	Short: "Print the effective config and where each value came from (secrets redacted)",
	RunE:  runConfigPrint,
}

var (
	configInitForce          bool
	configInitNonInteractive bool
)

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing config file")
	configInitCmd.Flags().BoolVar(&configInitNonInteractive, "non-interactive", false, "skip the credential prompt")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPrintCmd)
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path := globalFlags.ConfigPath
	if path == "" {
		p, err := config.DefaultConfigPath()
		if err != nil {
			return fmt.Errorf("resolving config dir: %w", err)
		}
		path = p
	}
	if err := writeTemplate(path, configInitForce); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Wrote", path)

	if configInitNonInteractive || !IsTTY() {
		return nil
	}
	fmt.Fprintln(os.Stderr, "Optional: store NAS credentials in .env.local (input for the password is hidden). Press Enter to skip.")
	user, err := ReadLine("Synology user: ")
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	if user == "" {
		return nil
	}
	pass, err := ReadSecret("Synology password: ")
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	if err := config.SaveSecret(".", "SYNO_USER", user); err != nil {
		return err
	}
	if pass != "" {
		if err := config.SaveSecret(".", "SYNO_PASS", pass); err != nil {
			return err
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Saved credentials to .env.local")
	return nil
}

func writeTemplate(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(config.DefaultTOML), 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func runConfigPrint(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, true)
	if err != nil {
		exitWith(ExitConfigInvalid, err.Error())
		return nil
	}
	printConfig(cmd.OutOrStdout(), cfg)
	return nil
}

func printConfig(w io.Writer, cfg *config.Config) {
	st := newStyles(w, false)
	fmt.Fprintln(w, st.sectionHeader("synolink config"))
	for _, f := range config.EffectiveFields(cfg) {
		value := f.Value
		if value == "" {
			value = "(unset)"
		}
		fmt.Fprintln(w, st.kv(f.Key, value+" "+st.dim("("+string(f.Source)+")")))
	}
}
