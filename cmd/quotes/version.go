package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/quotesync"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of quotes",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("quotes version %s\n", strings.TrimSpace(quotesync.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
