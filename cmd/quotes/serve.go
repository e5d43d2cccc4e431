package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/quotesync/pkg/authority"
)

var (
	serveAddr string
	servePath string
	serveSeed string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run an in-memory quote authority over HTTP",
	Long: `Serve the records endpoint that 'quotes sync' talks to:

  GET  /records   list all records
  POST /records   create a record from {"text", "category"}

Records live in memory only. --seed loads initial records from a yaml file.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		auth := authority.New(slog.Default())
		if serveSeed != "" {
			records, err := authority.LoadSeed(serveSeed)
			if err != nil {
				fatal("Failed to load seed", err)
			}
			for _, r := range records {
				auth.Put(r)
			}
			slog.Info("seed loaded", "records", len(records), "file", serveSeed)
		}

		srv := &http.Server{
			Addr:              serveAddr,
			Handler:           auth.Handler(servePath),
			ReadHeaderTimeout: 5 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.ListenAndServe()
		}()
		fmt.Printf("Serving %s on %s\n", servePath, serveAddr)

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				fatal("Server failed", err)
			}
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Error("shutdown failed", "error", err)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8080", "Listen address")
	serveCmd.Flags().StringVar(&servePath, "path", "/records", "Records endpoint path")
	serveCmd.Flags().StringVar(&serveSeed, "seed", "", "yaml file with initial records")
}
