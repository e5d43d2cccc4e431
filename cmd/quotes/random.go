package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/quotesync/pkg/core"
)

var randomCmd = &cobra.Command{
	Use:   "random",
	Short: "Print a random quote from the local collection",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		app := openApp(cmd)
		defer app.Close()

		q, err := app.Store.PickRandom()
		if errors.Is(err, core.ErrEmpty) {
			fmt.Fprintln(os.Stderr, "No quotes yet. Run 'quotes bootstrap' or 'quotes add'.")
			os.Exit(1)
		}
		if err != nil {
			fatal("Failed to pick a quote", err)
		}

		fmt.Printf("%q\n  - %s\n", q.Text, q.Category)
	},
}

func init() {
	rootCmd.AddCommand(randomCmd)
}
