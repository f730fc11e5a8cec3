package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"etiquetas/internal/server"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the label web API and sweep old artifacts in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			svc, store, err := newLabelService(cfg.GeneratedDir)
			if err != nil {
				return err
			}

			interval := time.Duration(cfg.CleanupIntervalMin) * time.Minute
			if interval > 0 {
				go newCleaner(store).Run(ctx, interval)
			}

			if addr == "" {
				addr = cfg.HTTPAddr
			}
			srv := server.New(svc, store, server.Options{
				MaxUploadBytes: int64(cfg.MaxUploadBytes),
				RequestTimeout: time.Duration(cfg.RequestTimeoutSec) * time.Second,
			}, log)
			log.Info().Str("addr", addr).Msg("http server listening")
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default HTTP_ADDR)")
	return cmd
}
