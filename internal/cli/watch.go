package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"mailbuddy/internal/config"
	"mailbuddy/internal/contacts"
	"mailbuddy/internal/imap"
	"mailbuddy/internal/model"
	"mailbuddy/internal/monitor"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// reconnectingFetcher reopens the IMAP session before the next fetch after a
// failure, so a dropped connection does not stall the monitor.
type reconnectingFetcher struct {
	mgr    *imap.Manager
	logger *zap.SugaredLogger

	mu    sync.Mutex
	stale bool
}

func (f *reconnectingFetcher) FetchRecent(folder string, limit int) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stale || !f.mgr.Connected() {
		if err := f.mgr.Connect(); err != nil {
			return nil, err
		}
		f.stale = false
	}
	msgs, err := f.mgr.FetchRecent(folder, limit)
	if err != nil {
		f.stale = true
		f.logger.Debugw("fetch failed, will reconnect", "folder", folder, "error", err)
	}
	return msgs, err
}

func newWatchCmd() *cobra.Command {
	var interval int
	var apply bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the monitor folder and triage new messages until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg)
			defer func() { _ = log.Sync() }()

			if cmd.Flags().Changed("interval") {
				cfg.Monitor.IntervalSeconds = interval
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

			if apply {
				if _, err := mgr.EnsureFolders(); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			mon := monitor.New(&reconnectingFetcher{mgr: mgr, logger: log}, monitor.Options{
				Folder:          cfg.Monitor.Folder,
				BatchSize:       cfg.Monitor.BatchSize,
				IntervalSeconds: cfg.Monitor.IntervalSeconds,
			}, log)

			return watch(ctx, cmd.OutOrStdout(), mon, watchTarget{
				mover:  mgr,
				store:  store,
				folder: cfg.Monitor.Folder,
				apply:  apply,
				logger: log,
			})
		},
	}

	cmd.Flags().IntVar(&interval, "interval", config.DefaultIntervalSeconds, "Seconds between checks (60-1800)")
	cmd.Flags().BoolVar(&apply, "apply", false, "Move each new message to its category folder")

	return cmd
}

type watchTarget struct {
	mover  mover
	store  *contacts.Store
	folder string
	apply  bool
	logger *zap.SugaredLogger
}

// watch runs mon until ctx is done, triaging every batch it delivers, then
// stops it and prints its final status.
func watch(ctx context.Context, out io.Writer, mon *monitor.Monitor, t watchTarget) error {
	batches := mon.Subscribe()
	if !mon.Start(ctx) {
		return fmt.Errorf("monitor already running")
	}
	st := mon.Status()
	fmt.Fprintf(out, "Watching %s every %ds. Press Ctrl+C to stop.\n", t.folder, st.IntervalSeconds)

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case batch, ok := <-batches:
			if !ok {
				break loop
			}
			// Contacts are re-read per batch so edits apply without a restart.
			rows := classifyAll(batch, t.store.Set())
			if t.apply {
				applyMoves(t.mover, t.folder, rows, t.logger)
			}
			fmt.Fprintf(out, "\n%d new message(s) at %s\n", len(batch), time.Now().Format(time.Kitchen))
			printTriage(out, rows, t.apply)
		}
	}

	mon.Stop()
	printStatus(out, mon.Status())
	return nil
}

func printStatus(out io.Writer, st monitor.Status) {
	last := "never"
	if !st.LastCheck.IsZero() {
		last = st.LastCheck.Format(time.RFC3339)
	}
	fmt.Fprintf(out, "\nMonitor stopped. Last check: %s. Messages seen: %d.\n", last, st.SeenCount)
}
