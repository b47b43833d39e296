package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "mailbuddy",
		Short:        "mailbuddy sorts an IMAP inbox into category folders and drafts replies",
		SilenceUsage: true,
	}

	cmd.AddCommand(newAuthCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newFoldersCmd())
	cmd.AddCommand(newTriageCmd())
	cmd.AddCommand(newMoveCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newClassifyCmd())
	cmd.AddCommand(newContactsCmd())
	cmd.AddCommand(newReplyCmd())

	cmd.SetErr(os.Stderr)
	cmd.SetOut(os.Stdout)

	return cmd
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
