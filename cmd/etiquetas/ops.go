package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"etiquetas/internal/catalog"
	"etiquetas/internal/connectors"
	"etiquetas/internal/listener"
)

func newTablesSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables:sync",
		Short: "Download colour and model overrides from TABLES_URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Require("TABLES_URL", cfg.TablesURL); err != nil {
				return err
			}
			count, err := catalog.NewSyncService(db, cfg, log).Sync(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "tables sync complete: %d overrides\n", count)
			return nil
		},
	}
}

func newMailFetchCmd() *cobra.Command {
	var (
		provider string
		opts     connectors.FetchOptions
	)

	cmd := &cobra.Command{
		Use:   "mail:fetch",
		Short: "Archive unread mail without labelling it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if provider == "" {
				provider = cfg.MailListenerProvider
			}
			conn, err := listener.NewConnector(cmd.Context(), cfg, provider)
			if err != nil {
				return err
			}
			fetch := connectors.NewFetchService(db, cfg.RawMailDir, conn, log)
			result, err := fetch.FetchAndStore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "mail fetch done provider=%s fetched=%d stored=%d\n",
				strings.ToLower(provider), result.Fetched, result.Stored)
			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "gmail or imap (default MAIL_LISTENER_PROVIDER)")
	cmd.Flags().StringVar(&opts.Label, "label", "INBOX", "mailbox or label")
	cmd.Flags().IntVar(&opts.Max, "max", 50, "max messages")
	cmd.Flags().StringVar(&opts.Query, "query", "", "provider search expression")
	return cmd
}

func newMailListenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mail:listen",
		Short: "Poll the mailbox and label every report that arrives",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			labels, _, err := newLabelService(filepath.Join(cfg.OutputDir, "listener"))
			if err != nil {
				return err
			}
			return listener.NewService(db, cfg, labels, log).Run(ctx)
		},
	}
}

func newCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove uploads and labels older than ARTIFACT_RETENTION_HOURS",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := newLabelService(cfg.GeneratedDir)
			if err != nil {
				return err
			}
			res, err := newCleaner(store).RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleanup done expired=%d uploads=%d generated=%d\n", res.Expired, res.Uploads, res.Generated)
			return nil
		},
	}
}
