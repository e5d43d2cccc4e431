package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the local collection with the server once",
	Long: `Fetch the server snapshot and merge it into the local collection.
For each quote the newer copy wins; on a tie the server's copy wins.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		app := openApp(cmd)
		defer app.Close()

		updated, err := app.Engine.Reconcile(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: sync failed: %v\n", err)
			os.Exit(1)
		}

		if updated {
			fmt.Println("Quotes updated from server.")
			return
		}
		fmt.Println("Already up to date.")
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
