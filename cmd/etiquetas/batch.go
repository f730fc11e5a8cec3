package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"etiquetas/internal/pipeline"
)

func newBatchCmd() *cobra.Command {
	var (
		output string
		render bool
	)

	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Parse every report in a directory into one spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := os.ReadDir(args[0])
			if err != nil {
				return err
			}
			names := make([]string, 0, len(entries))
			for _, e := range entries {
				if !e.IsDir() && pipeline.AcceptedExtension(e.Name()) {
					names = append(names, e.Name())
				}
			}
			sort.Strings(names)
			if len(names) == 0 {
				return fmt.Errorf("no reports found in %s", args[0])
			}

			svc, _, err := newLabelService(filepath.Join(cfg.OutputDir, "batch"))
			if err != nil {
				return err
			}

			rows := make([]pipeline.BatchRow, 0, len(names))
			failed := 0
			for _, name := range names {
				row := pipeline.BatchRow{Source: name}
				blob, err := os.ReadFile(filepath.Join(args[0], name))
				if err != nil {
					return err
				}

				if render {
					var res pipeline.LabelResult
					res, err = svc.FromReport(cmd.Context(), name, blob, "")
					row.Record, row.Missing, row.PDF = res.Record, res.Missing, res.PDFName
				} else {
					var res pipeline.Result
					res, _, err = svc.ParseReport(name, blob)
					row.Record, row.Missing = res.Record, res.Missing
				}
				if err != nil {
					row.Error = err.Error()
					failed++
					log.Warn().Err(err).Str("source", name).Msg("batch report failed")
				}
				rows = append(rows, row)
			}

			if output == "" {
				output = filepath.Join(cfg.OutputDir, "batch", "reports.xlsx")
			}
			if err := pipeline.ExportRowsToXLSX(rows, output); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "batch done reports=%d failed=%d output=%s\n", len(rows), failed, absPath(output))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "xlsx path (default OUTPUT_DIR/batch/reports.xlsx)")
	cmd.Flags().BoolVar(&render, "render", false, "also render a label for every report")
	return cmd
}
