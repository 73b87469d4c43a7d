package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"griefpulse/internal/exporter"
)

func newExportCmd(global *globalOptions) *cobra.Command {
	var (
		filters  filterFlags
		csvPath  string
		xlsxPath string
		bom      bool
	)
	cmd := &cobra.Command{
		Use:   "export <source>",
		Short: "Export the filtered grievances as CSV or a summary workbook",
		Long: `Export the grievances matching the filters.

--csv writes the records ("-" for stdout); --xlsx writes the summary
workbook with the indicators, counts, monthly series and durations.

  griefctl export griefs.xlsx --annee 2024 --csv griefs-2024.csv
  griefctl export griefs.xlsx --nature Foncier --xlsx foncier.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if csvPath == "" && xlsxPath == "" {
				return exitError(ExitFailure, "griefctl: --csv or --xlsx is required")
			}
			sel, err := filters.selection(cmd)
			if err != nil {
				return err
			}
			s, err := global.open(cmd, args[0], 0)
			if err != nil {
				return err
			}
			d, err := s.build(cmd.Context(), sel)
			if err != nil {
				return err
			}

			if csvPath != "" {
				err := writeOutput(cmd.OutOrStdout(), csvPath, func(w io.Writer) error {
					return exporter.WriteCSV(w, d.Records, exporter.WriteOptions{BOMPrefix: bom})
				})
				if err != nil {
					return exitError(ExitFailure, "griefctl: export csv: %v", err)
				}
				if csvPath != "-" {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%d grief(s) exporté(s) vers %s\n", len(d.Records), csvPath)
				}
			}
			if xlsxPath != "" {
				err := writeOutput(cmd.OutOrStdout(), xlsxPath, func(w io.Writer) error {
					return exporter.WriteSummaryWorkbook(w, d.Summary())
				})
				if err != nil {
					return exitError(ExitFailure, "griefctl: export xlsx: %v", err)
				}
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "synthèse écrite dans %s\n", xlsxPath)
			}
			return nil
		},
	}
	filters.register(cmd)
	cmd.Flags().StringVar(&csvPath, "csv", "", `CSV output file, "-" for stdout`)
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "summary workbook output file")
	cmd.Flags().BoolVar(&bom, "bom", true, "prefix the CSV with a UTF-8 byte order mark")
	return cmd
}

// writeOutput runs write against path, or stdout when path is "-"
func writeOutput(stdout io.Writer, path string, write func(io.Writer) error) error {
	if path == "-" {
		return write(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
