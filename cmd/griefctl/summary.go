package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"griefpulse/internal/services"
	"griefpulse/pkg/contracts/domain"
)

func newSummaryCmd(global *globalOptions) *cobra.Command {
	var (
		filters filterFlags
		topN    int
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "summary <source>",
		Short: "Print the dashboard indicators of a workbook",
		Long: `Print the status indicators, the counts by status and nature and the
most frequent categories of the grievances matching the filters.

  griefctl summary griefs.xlsx
  griefctl summary griefs.xlsx --annee 2024 --statut "En cours"
  griefctl summary https://example.org/griefs.xlsx --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := filters.selection(cmd)
			if err != nil {
				return err
			}
			s, err := global.open(cmd, args[0], topN)
			if err != nil {
				return err
			}
			d, err := s.build(cmd.Context(), sel)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(d)
			}
			return printSummary(cmd.OutOrStdout(), d)
		},
	}
	filters.register(cmd)
	cmd.Flags().IntVar(&topN, "top", 0, "number of categories listed (default from configuration)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full dashboard as JSON")
	return cmd
}

func printSummary(w io.Writer, d *services.Dashboard) error {
	bold := color.New(color.Bold)
	yellow := color.New(color.FgYellow)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	dim := color.New(color.Faint)

	_, _ = fmt.Fprintf(w, "%s %s\n", bold.Sprint("Source :"), d.Source)
	_, _ = fmt.Fprintf(w, "%s %s\n", bold.Sprint("Filtres :"), services.DescribeSelection(d.Selection))
	_, _ = fmt.Fprintf(w, "%s %d sur %d\n", bold.Sprint("Griefs :"), d.Filtered, d.Total)
	for _, n := range d.Notices {
		if n.Level == services.NoticeWarning {
			_, _ = fmt.Fprintln(w, yellow.Sprint(n.Message))
		}
	}
	_, _ = fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, bold.Sprint("INDICATEUR")+"\t"+bold.Sprint("NOMBRE")+"\t"+bold.Sprint("PART"))
	kpis := []struct {
		label string
		value int
		c     *color.Color
	}{
		{"Total", d.KPIs.Total, bold},
		{"En cours", d.KPIs.InProgress, yellow},
		{"Achevés", d.KPIs.Completed, green},
		{"Non traités", d.KPIs.Untreated, red},
		{"Autres", d.KPIs.Other, dim},
	}
	for _, k := range kpis {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", k.label, k.c.Sprint(k.value), share(k.value, d.KPIs.Total))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	sections := []struct {
		title  string
		counts []domain.CategoryCount
	}{
		{"STATUT", d.ByStatus},
		{"NATURE", d.ByNature},
		{"CATÉGORIE (TOP " + strconv.Itoa(len(d.TopCategories)) + ")", d.TopCategories},
	}
	for _, sec := range sections {
		if len(sec.counts) == 0 {
			continue
		}
		_, _ = fmt.Fprintln(w)
		if err := printCounts(w, bold, sec.title, sec.counts, d.Filtered); err != nil {
			return err
		}
	}
	return nil
}

func printCounts(w io.Writer, bold *color.Color, title string, counts []domain.CategoryCount, total int) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, bold.Sprint(title)+"\t"+bold.Sprint("NOMBRE")+"\t"+bold.Sprint("PART"))
	for _, c := range counts {
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\n", c.Label, c.Count, share(c.Count, total))
	}
	return tw.Flush()
}

func share(part, total int) string {
	if total == 0 {
		return "-"
	}
	return strconv.FormatFloat(float64(part)*100/float64(total), 'f', 1, 64) + " %"
}
