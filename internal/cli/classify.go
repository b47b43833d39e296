package cli

import (
	"fmt"
	"os"

	"mailbuddy/internal/config"
	"mailbuddy/internal/imap"
	"mailbuddy/internal/triage"

	"github.com/spf13/cobra"
)

func newClassifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify <file.eml>",
		Short: "Classify a raw message file without contacting the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			msg, err := imap.ParseMessage(0, raw)
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := newLogger(cfg)
			defer func() { _ = log.Sync() }()

			store, err := openContacts(cfg, log)
			if err != nil {
				return err
			}

			res := triage.Classify(msg, store.Set())
			printResult(cmd.OutOrStdout(), msg, res, imap.FolderForCategory(res.Category))
			return nil
		},
	}
	return cmd
}
