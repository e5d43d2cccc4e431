package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/quotesync"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Report writes to the local store file",
	Long: `Watch the local store file and print an event whenever it is written,
including writes from other quotes processes. Requires the fs backend.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app := openApp(cmd, quotesync.WithWatcherErrorHandler(func(err error) {
			slog.Error("watch error", "error", err)
		}))
		defer app.Close()

		events, err := app.Watch(ctx)
		if err != nil {
			fatal("Failed to watch", err)
		}

		fmt.Println("Watching for changes. Press Ctrl+C to stop.")
		for e := range events {
			fmt.Println(e.String())
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
