package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"griefpulse/internal/grievance"
	"griefpulse/internal/services"
)

func newValidateCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <source>",
		Short: "Check that a workbook has the required columns",
		Long: `Load a workbook and check its header row against the required columns.
Exits with status 2 when columns are missing and 1 when the workbook cannot
be read.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := global.open(cmd, args[0], 0)
			if err != nil {
				return err
			}
			ds, err := s.service.Dataset(cmd.Context(), services.DefaultDatasetID)
			if err != nil {
				return commandError(err)
			}

			required, err := grievance.ParseFields(s.cfg.Source.RequiredColumns)
			if err != nil {
				return exitError(ExitFailure, "griefctl: %v", err)
			}
			if len(required) == 0 {
				required = grievance.DefaultRequired
			}

			w := cmd.OutOrStdout()
			var missing []string
			for _, f := range required {
				if ds.Table.HasField(f) {
					_, _ = fmt.Fprintf(w, "%s %s\n", color.GreenString("ok"), f)
				} else {
					missing = append(missing, string(f))
					_, _ = fmt.Fprintf(w, "%s %s\n", color.RedString("manquante"), f)
				}
			}
			for _, f := range grievance.Optional {
				if !ds.Table.HasField(f) {
					_, _ = fmt.Fprintf(w, "%s %s (facultative)\n", color.YellowString("absente"), f)
				}
			}
			_, _ = fmt.Fprintf(w, "%d ligne(s) lue(s), %d grief(s) retenu(s), %d sans date\n",
				ds.Stats.RowsRead, ds.Stats.RecordsKept, ds.Stats.UndatedRows)

			if len(missing) > 0 {
				return exitError(ExitMissingColumns, "griefctl: colonnes manquantes: %s", strings.Join(missing, ", "))
			}
			return nil
		},
	}
}
