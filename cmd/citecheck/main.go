// Package main provides the citecheck CLI entry point.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/matsen/citecheck/internal/config"
	"github.com/matsen/citecheck/internal/logger"
	"github.com/matsen/citecheck/internal/storage"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

var (
	verbose     bool
	logFilePath string
	dataDirFlag string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		// SilenceErrors is set, so cobra errors (unknown flags, missing args)
		// must be printed here.
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "citecheck",
	Short: "Check the reference list of a PDF against bibliographic sources",
	Long: `citecheck extracts the references section of a PDF, looks every entry up
in Semantic Scholar (falling back to Google Scholar) and scores how far each
entry is from the canonical citation.

Entries without a year, entries no source knows about, and entries whose
distance exceeds the threshold are the ones worth a human look.

Results are cached per document and recorded in a local history database.
All commands output JSON by default; use --human for readable text.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// S2_API_KEY may live in a .env file next to the documents.
	_ = godotenv.Load()

	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug events")
	rootCmd.PersistentFlags().StringVar(&logFilePath, "log-file", "", "Also append log events to this file")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "Directory for the results cache and history database")
	rootCmd.Version = Version
}

// mustResolveSettings merges defaults, the config file, the environment and
// the global flags. Exits on error.
func mustResolveSettings(cmd *cobra.Command) config.Settings {
	s, err := config.Resolve()
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	if cmd.Flags().Changed("data-dir") {
		s.DataDir = config.ExpandPath(dataDirFlag)
	}
	return s
}

// mustValidateSettings exits with ExitConfigError if s is unusable.
func mustValidateSettings(s config.Settings) {
	if err := s.Validate(); err != nil {
		exitWithError(ExitConfigError, "invalid settings: %v", err)
	}
}

// newLogger builds the stderr logger, mirrored to --log-file when set.
// The returned function closes the mirror.
func newLogger() (logger.Logger, func()) {
	level := logger.LevelInfo
	if verbose {
		level = logger.LevelDebug
	}
	opts := []logger.Option{logger.WithLevel(level)}

	closeFn := func() {}
	if logFilePath != "" {
		path := config.ExpandPath(logFilePath)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			exitWithError(ExitConfigError, "opening log file: %v", err)
		}
		opts = append(opts, logger.WithWriter(f))
		closeFn = func() { f.Close() }
	}
	return logger.NewStderr(opts...), closeFn
}

// mustOpenHistory opens the run history database, creating the data
// directory if needed. The caller must Close the returned DB.
func mustOpenHistory(s config.Settings) *storage.DB {
	path := s.HistoryDBPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		exitWithError(ExitError, "creating data directory: %v", err)
	}
	db, err := storage.OpenDB(path)
	if err != nil {
		exitWithError(ExitError, "opening history database: %v", err)
	}
	return db
}
