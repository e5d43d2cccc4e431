package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/aretw0/quotesync/pkg/core"
)

var (
	listJSON       bool
	filterCategory string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the local quotes",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if filterCategory != "" && !doublestar.ValidatePattern(filterCategory) {
			fatal("Invalid category pattern", fmt.Errorf("%q", filterCategory))
		}

		app := openApp(cmd)
		defer app.Close()

		filtered, err := filterByCategory(app.Store.List(), filterCategory)
		if err != nil {
			fatal("Failed to filter quotes", err)
		}

		if listJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(filtered); err != nil {
				fatal("Error encoding JSON", err)
			}
			return
		}

		for _, q := range filtered {
			fmt.Printf("%s [%s] %s\n", q.ID, q.Category, q.Text)
		}
	},
}

// filterByCategory keeps records whose category matches the glob pattern.
// An empty pattern keeps everything.
func filterByCategory(records []core.Record, pattern string) ([]core.Record, error) {
	if pattern == "" {
		return records, nil
	}
	out := make([]core.Record, 0, len(records))
	for _, r := range records {
		ok, err := doublestar.Match(pattern, r.Category)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.Flags().StringVar(&filterCategory, "category", "", "Filter by category (glob, e.g. 'sci*' or '{art,music}')")
}
