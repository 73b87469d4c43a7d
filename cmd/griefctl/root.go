package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"griefpulse/internal/charts"
	"griefpulse/internal/config"
	apierrors "griefpulse/internal/errors"
	"griefpulse/internal/grievance"
	"griefpulse/internal/infrastructure"
	"griefpulse/internal/loader"
	"griefpulse/internal/services"
	httptransport "griefpulse/internal/transport/http"
)

// globalOptions holds the persistent flags
type globalOptions struct {
	configPath string
	sheet      string
	verbose    bool
	noColor    bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "griefctl",
		Short: "Inspect and export grievance workbooks",
		Long: `griefctl reads a grievance workbook (.xlsx, .xls, .csv, an http(s) URL
or sheets:<id>) and prints the dashboard indicators, checks its columns
or exports the filtered records.

Configuration comes from GRIEF_* variables and the optional --config file,
like the web server.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if opts.noColor {
				color.NoColor = true
			}
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML configuration file")
	cmd.PersistentFlags().StringVar(&opts.sheet, "sheet", "", "worksheet name (default: first sheet)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log loading details to stderr")
	cmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	cmd.AddCommand(newSummaryCmd(opts))
	cmd.AddCommand(newValidateCmd(opts))
	cmd.AddCommand(newExportCmd(opts))
	return cmd
}

// session is a dashboard service bound to one source location
type session struct {
	cfg     *config.Config
	service *services.DashboardService
}

// open builds a dashboard service reading location
func (o *globalOptions) open(cmd *cobra.Command, location string, topN int) (*session, error) {
	cfg, err := config.LoadFile(o.configPath)
	if err != nil {
		return nil, exitError(ExitFailure, "griefctl: %v", err)
	}
	cfg.Source.Location = location
	if o.sheet != "" {
		cfg.Source.Sheet = o.sheet
	}
	if topN > 0 {
		cfg.Source.TopN = topN
	}

	level := "error"
	if o.verbose {
		level = "debug"
	}
	logger := infrastructure.NewLoggerWithWriter(cmd.ErrOrStderr(), level, false)

	resolver := loader.Resolver{HTTPClient: &http.Client{Timeout: cfg.Source.HTTPTimeout}}
	if cfg.Sheets.Enabled() || strings.HasPrefix(location, loader.SheetsScheme) {
		client, err := loader.NewSheetsClient(cmd.Context(), loader.SheetsConfig{
			APIKey:          cfg.Sheets.APIKey,
			CredentialsFile: cfg.Sheets.CredentialsFile,
		})
		if err != nil {
			return nil, exitError(ExitFailure, "griefctl: %v", err)
		}
		resolver.Sheets = client
	}

	opts, err := services.OptionsFromConfig(cfg.Source)
	if err != nil {
		return nil, exitError(ExitFailure, "griefctl: %v", err)
	}
	ld := loader.New(loader.Options{Sheet: cfg.Source.Sheet}, logger)
	svc := services.NewDashboardService(opts, ld, resolver, charts.NewRenderer(0, 0), nil, logger)
	return &session{cfg: cfg, service: svc}, nil
}

func (s *session) build(ctx context.Context, sel grievance.Selection) (*services.Dashboard, error) {
	d, err := s.service.Build(ctx, services.DefaultDatasetID, sel)
	if err != nil {
		return nil, commandError(err)
	}
	return d, nil
}

// filterFlags mirrors the dashboard query parameters
type filterFlags struct {
	values  map[string]*[]string
	year    string
	quarter string
}

func flagName(param string) string {
	return strings.ReplaceAll(param, "_", "-")
}

func (f *filterFlags) register(cmd *cobra.Command) {
	f.values = make(map[string]*[]string, len(httptransport.FilterParams))
	for _, p := range httptransport.FilterParams {
		v := new([]string)
		f.values[p.Param] = v
		cmd.Flags().StringArrayVar(v, flagName(p.Param), nil,
			fmt.Sprintf("keep only this %s (repeatable; an empty value keeps nothing)", strings.ToLower(p.Label)))
	}
	cmd.Flags().StringVar(&f.year, "annee", "", "keep only this year")
	cmd.Flags().StringVar(&f.quarter, "trimestre", "", "keep only this quarter, e.g. 2024Q1")
}

// selection applies the same rules as the HTTP query string: an unset flag
// leaves its field unconstrained.
func (f *filterFlags) selection(cmd *cobra.Command) (grievance.Selection, error) {
	q := url.Values{}
	for _, p := range httptransport.FilterParams {
		if cmd.Flags().Changed(flagName(p.Param)) {
			q[p.Param] = *f.values[p.Param]
		}
	}
	if f.year != "" {
		q.Set("annee", f.year)
	}
	if f.quarter != "" {
		q.Set("trimestre", f.quarter)
	}

	sel, err := httptransport.SelectionFromValues(q)
	if err != nil {
		return grievance.Selection{}, exitError(ExitFailure, "griefctl: filtres invalides: %v", describeValidation(err))
	}
	return sel, nil
}

// describeValidation lists the offending flags of a validation failure
func describeValidation(err error) string {
	var apiErr *apierrors.APIError
	if !errors.As(err, &apiErr) {
		return err.Error()
	}
	details, ok := apiErr.Details.([]apierrors.ValidationError)
	if !ok {
		return apiErr.Message
	}
	parts := make([]string, 0, len(details))
	for _, d := range details {
		parts = append(parts, "--"+d.Field+" "+d.Message)
	}
	return strings.Join(parts, "; ")
}
