package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/quotesync/pkg/core"
)

var (
	addText     string
	addCategory string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Submit a quote to the server and store it locally",
	Long: `Submit a quote to the remote authority. The quote is stored locally
only once the server confirms it; if the server is unreachable nothing is saved.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		app := openApp(cmd)
		defer app.Close()

		r, err := app.Engine.Submit(context.Background(), core.Draft{Text: addText, Category: addCategory})
		switch {
		case errors.Is(err, core.ErrInvalidRecord):
			fatal("Invalid quote", err)
		case errors.Is(err, core.ErrPersist):
			fmt.Fprintf(os.Stderr, "Warning: quote %s added but not saved locally: %v\n", r.ID, err)
			os.Exit(1)
		case err != nil:
			fatal("Failed to add quote", err)
		}

		fmt.Printf("Added quote %s\n", r.ID)
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVarP(&addText, "text", "t", "", "Quote text")
	addCmd.Flags().StringVar(&addCategory, "category", "", "Quote category")
	addCmd.MarkFlagRequired("text")
	addCmd.MarkFlagRequired("category")
}
