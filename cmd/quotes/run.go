package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/lifecycle/pkg/core/supervisor"
	"github.com/spf13/cobra"

	"github.com/aretw0/quotesync"
	quotelifecycle "github.com/aretw0/quotesync/pkg/adapters/lifecycle"
	"github.com/aretw0/quotesync/pkg/core"
	"github.com/aretw0/quotesync/pkg/engine"
)

var (
	runInterval time.Duration
	runCron     string
	runWatch    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Keep the local collection in sync until interrupted",
	Long: `Run reconciliation on a schedule (every 5s by default) until SIGINT or
SIGTERM. An empty local collection is bootstrapped from the server first.
Change notifications are printed as they happen.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var opts []quotesync.Option
		if cmd.Flags().Changed("interval") {
			opts = append(opts, quotesync.WithInterval(runInterval))
		}
		if cmd.Flags().Changed("cron") {
			opts = append(opts, quotesync.WithCron(runCron))
		}

		app := openApp(cmd, opts...)
		defer app.Close()

		if app.Store.Len() == 0 {
			if err := app.Engine.Bootstrap(ctx); err != nil {
				// The scheduler keeps trying; starting empty is fine.
				slog.Warn("initial bootstrap failed", "error", err)
			}
		}

		sup := supervisor.New("quotes", supervisor.StrategyOneForOne,
			engine.SupervisorSpec(app.Engine, app.SchedulerConfig(nil)))
		if err := sup.Start(ctx); err != nil {
			fatal("Failed to start scheduler", err)
		}

		streams := []<-chan core.Event{app.Engine.Events()}
		if runWatch {
			watchEvents, err := app.Watch(ctx)
			switch {
			case errors.Is(err, quotesync.ErrWatchUnsupported):
				slog.Warn("store watching disabled", "backend", app.Settings.Store.Backend)
			case err != nil:
				fatal("Failed to watch store", err)
			default:
				streams = append(streams, watchEvents)
			}
		}

		source := quotelifecycle.NewSource(streams...)
		if err := source.Start(ctx); err != nil {
			fatal("Failed to start event source", err)
		}

		fmt.Printf("Syncing with %s. Press Ctrl+C to stop.\n", app.Settings.Remote.URL)
		for e := range source.Events() {
			fmt.Println(e.String())
		}

		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := sup.Stop(stopCtx); err != nil {
			slog.Error("scheduler did not stop cleanly", "error", err)
		}
		fmt.Println("Stopped.")
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().DurationVar(&runInterval, "interval", engine.DefaultInterval, "Reconciliation period")
	runCmd.Flags().StringVar(&runCron, "cron", "", "Cron expression, overrides --interval")
	runCmd.Flags().BoolVarP(&runWatch, "watch", "w", false, "Also report external writes to the store file")
}
