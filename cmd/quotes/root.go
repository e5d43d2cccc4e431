package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aretw0/quotesync"
)

var (
	verbose    bool
	configPath string
	remoteURL  string
	dialect    string
	backend    string
	storePath  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quotes",
	Short: "A local-first quote list kept in sync with a remote authority",
	Long: `quotes keeps a local collection of quotes and reconciles it with a
remote authority. Reads are served from local state; changes from the
server are merged with last-writer-wins resolution.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	flags.StringVarP(&configPath, "config", "c", "", "Path to "+quotesync.ConfigFileName+" (default: searched upwards from the working directory)")
	flags.StringVar(&remoteURL, "remote", "", "Base URL of the remote authority")
	flags.StringVar(&dialect, "dialect", "", "Remote payload dialect: records or posts")
	flags.StringVar(&backend, "backend", "", "Local store backend: fs, sqlite, badger or memory")
	flags.StringVar(&storePath, "store", "", "Location of the local store")
}

// resolveSettings finds the project root and merges the config file with
// any flags set explicitly on the command line.
func resolveSettings(cmd *cobra.Command) (string, quotesync.Settings, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", quotesync.Settings{}, err
	}

	root, err := quotesync.FindRoot(cwd)
	if err != nil {
		root = cwd
	}

	path := configPath
	if path == "" {
		path = filepath.Join(root, quotesync.ConfigFileName)
	}
	settings, err := quotesync.LoadSettings(path)
	if err != nil {
		return "", settings, err
	}

	flags := cmd.Flags()
	if flags.Changed("remote") {
		settings.Remote.URL = remoteURL
	}
	if flags.Changed("dialect") {
		settings.Remote.Dialect = dialect
	}
	if flags.Changed("backend") {
		settings.Store.Backend = backend
	}
	if flags.Changed("store") {
		settings.Store.Path = storePath
	}
	return root, settings, nil
}

// openApp builds the App for commands that need local state.
func openApp(cmd *cobra.Command, extra ...quotesync.Option) *quotesync.App {
	root, settings, err := resolveSettings(cmd)
	if err != nil {
		fatal("Failed to load configuration", err)
	}

	opts := append([]quotesync.Option{
		quotesync.WithRoot(root),
		quotesync.WithSettings(settings),
		quotesync.WithLogger(slog.Default()),
	}, extra...)

	app, err := quotesync.New(opts...)
	if err != nil {
		fatal("Failed to initialize", err)
	}
	return app
}
