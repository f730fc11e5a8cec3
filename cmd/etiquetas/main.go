// Command etiquetas reads 3uTools diagnostic reports and prints shelf labels
// for the devices they describe.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"etiquetas/internal/artifacts"
	"etiquetas/internal/catalog"
	"etiquetas/internal/config"
	"etiquetas/internal/logging"
	"etiquetas/internal/pipeline"
	"etiquetas/internal/storage"
)

var (
	logFormat string
	logLevel  string

	cfg config.Config
	log zerolog.Logger
	db  *storage.DB
)

var rootCmd = &cobra.Command{
	Use:           "etiquetas",
	Short:         "Labels for refurbished devices from 3uTools reports",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if logFormat != "" {
			cfg.LogFormat = logFormat
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		log = logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: "etiquetas"})

		db, err = storage.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if db != nil {
			_ = db.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "json or console (default LOG_FORMAT)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (default LOG_LEVEL)")

	rootCmd.AddCommand(
		newServeCmd(),
		newParseCmd(),
		newLabelCmd(),
		newBatchCmd(),
		newTablesSyncCmd(),
		newMailFetchCmd(),
		newMailListenCmd(),
		newCleanupCmd(),
	)
}

func main() {
	must(rootCmd.Execute())
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

// loadTables layers TABLES_PATH and the synced overrides over the built-in tables.
func loadTables() (*catalog.Tables, error) {
	return catalog.Load(catalog.LoadOptions{Path: cfg.TablesPath, Overrides: db})
}

func newParser() (*pipeline.Parser, error) {
	tables, err := loadTables()
	if err != nil {
		return nil, err
	}
	return pipeline.NewParser(tables, pipeline.WithLogger(log)), nil
}

// newLabelService wires a label service whose artifacts land in generatedDir.
func newLabelService(generatedDir string) (*pipeline.LabelService, *artifacts.Store, error) {
	parser, err := newParser()
	if err != nil {
		return nil, nil, err
	}
	store, err := artifacts.NewStore(cfg.UploadDir, generatedDir)
	if err != nil {
		return nil, nil, err
	}
	return pipeline.NewLabelService(parser, store, db, cfg, log), store, nil
}

func newCleaner(store *artifacts.Store) *artifacts.Cleaner {
	retention := time.Duration(cfg.ArtifactRetentionHours) * time.Hour
	return artifacts.NewCleaner(store, db, retention, log)
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
