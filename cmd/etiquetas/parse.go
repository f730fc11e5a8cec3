package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"etiquetas/internal/pipeline"
)

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <report>",
		Short: "Print the device record extracted from a report as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			parser, err := newParser()
			if err != nil {
				return err
			}

			kind, err := pipeline.DetectKind(filepath.Base(args[0]), blob)
			if err != nil {
				return err
			}
			text, err := pipeline.ReportText(kind, blob)
			if err != nil {
				return err
			}
			rec, err := parser.Parse(text)
			if err != nil {
				return err
			}

			out := json.NewEncoder(cmd.OutOrStdout())
			out.SetIndent("", "  ")
			return out.Encode(rec)
		},
	}
}

func newLabelCmd() *cobra.Command {
	var (
		imei   string
		manual bool
		entry  pipeline.ManualEntry
	)

	cmd := &cobra.Command{
		Use:   "label [report]",
		Short: "Render the PDF label and PNG preview for a report or manual values",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !manual && len(args) == 0 {
				return fmt.Errorf("a report file is required unless --manual is set")
			}
			svc, store, err := newLabelService(cfg.GeneratedDir)
			if err != nil {
				return err
			}

			var res pipeline.LabelResult
			if manual {
				res, err = svc.FromManual(cmd.Context(), entry)
			} else {
				var blob []byte
				blob, err = os.ReadFile(args[0])
				if err != nil {
					return err
				}
				res, err = svc.FromReport(cmd.Context(), filepath.Base(args[0]), blob, imei)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "pdf: %s\npreview: %s\n",
				absPath(filepath.Join(store.GeneratedDir(), res.PDFName)),
				absPath(filepath.Join(store.GeneratedDir(), res.PreviewName)))
			return nil
		},
	}

	cmd.Flags().StringVar(&imei, "imei", "", "IMEI to print instead of the one in the report")
	cmd.Flags().BoolVar(&manual, "manual", false, "build the label from the value flags only")
	cmd.Flags().StringVar(&entry.Model, "model", "", "device model")
	cmd.Flags().StringVar(&entry.Color, "color", "", "device colour")
	cmd.Flags().StringVar(&entry.Capacity, "capacity", "", "storage capacity, e.g. 128GB")
	cmd.Flags().StringVar(&entry.Serial, "serial", "", "serial number")
	cmd.Flags().StringVar(&entry.IMEI, "manual-imei", "", "IMEI for a manual label")
	cmd.Flags().StringVar(&entry.BatteryHealth, "battery", "", "battery health, e.g. 87%")
	return cmd
}
