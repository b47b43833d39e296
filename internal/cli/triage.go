package cli

import (
	"fmt"

	"mailbuddy/internal/imap"
	"mailbuddy/internal/model"
	"mailbuddy/internal/triage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type mover interface {
	MoveMessage(uid uint32, from, to string) error
}

func classifyAll(msgs []model.Message, known triage.ContactSet) []triaged {
	rows := make([]triaged, 0, len(msgs))
	for _, msg := range msgs {
		res := triage.Classify(msg, known)
		rows = append(rows, triaged{
			Msg:    msg,
			Result: res,
			Folder: imap.FolderForCategory(res.Category),
		})
	}
	return rows
}

// applyMoves moves each row out of from into its category folder. Rows whose
// folder is from are left in place. A failed move is recorded on the row and
// does not stop the rest.
func applyMoves(m mover, from string, rows []triaged, log *zap.SugaredLogger) {
	for i := range rows {
		row := &rows[i]
		if row.Folder == from {
			continue
		}
		if err := m.MoveMessage(row.Msg.UID, from, row.Folder); err != nil {
			log.Warnw("move failed", "uid", row.Msg.UID, "to", row.Folder, "error", err)
			row.Err = err
			continue
		}
		row.Moved = true
	}
}

func newTriageCmd() *cobra.Command {
	var folder string
	var limit int
	var apply bool

	cmd := &cobra.Command{
		Use:   "triage",
		Short: "Classify recent messages and optionally file them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg)
			defer func() { _ = log.Sync() }()

			if folder == "" {
				folder = cfg.Monitor.Folder
			}
			if limit <= 0 {
				limit = cfg.Monitor.BatchSize
			}

			store, err := openContacts(cfg, log)
			if err != nil {
				return err
			}

			mgr, err := connectManager(cfg, log)
			if err != nil {
				return err
			}
			defer mgr.Disconnect()

			msgs, err := mgr.FetchRecent(folder, limit)
			if err != nil {
				return err
			}
			if len(msgs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No messages.")
				return nil
			}

			rows := classifyAll(msgs, store.Set())
			if apply {
				if _, err := mgr.EnsureFolders(); err != nil {
					return err
				}
				applyMoves(mgr, folder, rows, log)
			}
			printTriage(cmd.OutOrStdout(), rows, apply)
			return nil
		},
	}

	cmd.Flags().StringVar(&folder, "folder", "", "Folder to triage (default: monitor folder)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Number of recent messages (default: monitor batch size)")
	cmd.Flags().BoolVar(&apply, "apply", false, "Move each message to its category folder")

	return cmd
}
