package cli

import (
	"fmt"

	"mailbuddy/internal/imap"
	"mailbuddy/internal/triage"

	"github.com/spf13/cobra"
)

func newMoveCmd() *cobra.Command {
	var from string
	var category string

	cmd := &cobra.Command{
		Use:   "move <uid> [folder]",
		Short: "Move a message to another folder or to its category folder",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			uid, err := parseUID(args[0])
			if err != nil {
				return err
			}

			var dest string
			switch {
			case len(args) == 2 && category != "":
				return fmt.Errorf("use either a folder argument or --category")
			case len(args) == 2:
				dest = args[1]
			case category != "":
				if _, ok := triage.ParseCategory(category); !ok {
					return fmt.Errorf("unknown category: %s", category)
				}
				dest = imap.FolderForCategoryName(category)
			default:
				return fmt.Errorf("a destination folder or --category is required")
			}

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

			if err := mgr.MoveMessage(uid, from, dest); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Moved to %s.\n", dest)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "INBOX", "Source folder")
	cmd.Flags().StringVar(&category, "category", "", "Destination category (URGENT, IMPORTANT, NEWSLETTER, PROMOTIONAL, OTP_RECEIPT, OTHER)")

	return cmd
}
