package cli

import (
	"fmt"
	"strings"

	"mailbuddy/internal/config"
	"mailbuddy/internal/email"

	"github.com/spf13/cobra"
)

func newContactsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "Manage known contacts",
	}
	cmd.AddCommand(newContactsListCmd())
	cmd.AddCommand(newContactsAddCmd())
	cmd.AddCommand(newContactsRemoveCmd())
	return cmd
}

func newContactsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List known contacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			store, err := openContacts(cfg, newLogger(cfg))
			if err != nil {
				return err
			}
			for _, addr := range store.Load() {
				fmt.Fprintln(cmd.OutOrStdout(), addr)
			}
			return nil
		},
	}
	return cmd
}

func newContactsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <address>...",
		Short: "Add addresses to the known contacts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, addr := range args {
				if !email.ValidAddress(strings.TrimSpace(addr)) {
					return fmt.Errorf("invalid email address: %s", addr)
				}
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			store, err := openContacts(cfg, newLogger(cfg))
			if err != nil {
				return err
			}
			for _, addr := range args {
				if err := store.Add(addr); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %d contact(s).\n", len(args))
			return nil
		},
	}
	return cmd
}

func newContactsRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <address>...",
		Short: "Remove addresses from the known contacts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			store, err := openContacts(cfg, newLogger(cfg))
			if err != nil {
				return err
			}
			for _, addr := range args {
				if err := store.Remove(addr); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Removed.")
			return nil
		},
	}
	return cmd
}
