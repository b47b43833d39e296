package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"mailbuddy/internal/config"
	"mailbuddy/internal/secrets"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Config management",
	}
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigEditCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var showSecrets bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			printSources(cmd.OutOrStdout(), cfg)
			if !showSecrets {
				cfg = config.Redact(cfg)
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().BoolVar(&showSecrets, "show-password", false, "Show password and API key in output")

	return cmd
}

// printSources writes YAML comments naming where secrets and the keyring
// backend were resolved from.
func printSources(out io.Writer, cfg config.Config) {
	source := cfg.Auth.PasswordSource
	if source == "" {
		source = "unset"
	}
	fmt.Fprintf(out, "# password source: %s\n", source)
	if choice, err := secrets.ResolveBackend(); err == nil {
		fmt.Fprintf(out, "# keyring backend: %s (%s)\n", choice.Name, choice.Source)
	}
	interval := config.ClampInterval(cfg.Monitor.IntervalSeconds)
	if interval != cfg.Monitor.IntervalSeconds {
		fmt.Fprintf(out, "# monitor.interval_seconds is applied as %d\n", interval)
	}
}

func newConfigEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Open config file in $EDITOR, creating it with defaults if missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ConfigPath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				if path, err = config.Save(config.DefaultConfig()); err != nil {
					return err
				}
			}
			editor := os.Getenv("EDITOR")
			if editor == "" {
				return fmt.Errorf("EDITOR not set; config file is %s", path)
			}
			editCmd := exec.Command(editor, path)
			editCmd.Stdout = os.Stdout
			editCmd.Stderr = os.Stderr
			editCmd.Stdin = os.Stdin
			return editCmd.Run()
		},
	}

	return cmd
}
