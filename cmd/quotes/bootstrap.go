package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var bootstrapForce bool

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Replace the local collection with the server snapshot",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		app := openApp(cmd)
		defer app.Close()

		if n := app.Store.Len(); n > 0 && !bootstrapForce {
			fatal("Refusing to bootstrap", fmt.Errorf("local collection has %d quotes; use --force to discard them", n))
		}

		if err := app.Engine.Bootstrap(context.Background()); err != nil {
			fatal("Bootstrap failed", err)
		}
		fmt.Printf("Loaded %d quotes from server.\n", app.Store.Len())
	},
}

func init() {
	rootCmd.AddCommand(bootstrapCmd)
	bootstrapCmd.Flags().BoolVarP(&bootstrapForce, "force", "f", false, "Discard existing local quotes")
}
