package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"etiquetas/internal/artifacts"
	"etiquetas/internal/catalog"
	"etiquetas/internal/config"
	"etiquetas/internal/listener"
	"etiquetas/internal/logging"
	"etiquetas/internal/pipeline"
	"etiquetas/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)
	log := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: "mail-listener"})

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	tables, err := catalog.Load(catalog.LoadOptions{Path: cfg.TablesPath, Overrides: db})
	must(err)
	store, err := artifacts.NewStore(cfg.UploadDir, filepath.Join(cfg.OutputDir, "listener"))
	must(err)
	labels := pipeline.NewLabelService(pipeline.NewParser(tables, pipeline.WithLogger(log)), store, db, cfg, log)

	svc := listener.NewService(db, cfg, labels, log)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info().Str("provider", cfg.MailListenerProvider).Msg("mail listener started")
	must(svc.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
