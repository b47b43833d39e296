package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFoldersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folders",
		Short: "Folder operations",
	}
	cmd.AddCommand(newFoldersListCmd())
	cmd.AddCommand(newFoldersEnsureCmd())
	return cmd
}

func newFoldersListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List folders on the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg)
			defer func() { _ = log.Sync() }()

			mgr, err := connectManager(cfg, log)
			if err != nil {
				return err
			}
			defer mgr.Disconnect()

			folders, err := mgr.ListFolders()
			if err != nil {
				return err
			}
			for _, name := range folders {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
	return cmd
}

func newFoldersEnsureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ensure",
		Short: "Create any missing category folders",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg)
			defer func() { _ = log.Sync() }()

			mgr, err := connectManager(cfg, log)
			if err != nil {
				return err
			}
			defer mgr.Disconnect()

			created, err := mgr.EnsureFolders()
			if err != nil {
				return err
			}
			if len(created) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "All category folders exist.")
				return nil
			}
			for _, name := range created {
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", name)
			}
			return nil
		},
	}
	return cmd
}
