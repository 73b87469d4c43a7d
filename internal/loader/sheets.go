package loader

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsScheme prefixes Google Sheets locations
const SheetsScheme = "sheets:"

// SheetsValues reads a range of cell values from a spreadsheet
type SheetsValues interface {
	Values(ctx context.Context, spreadsheetID, readRange string) ([][]interface{}, error)
	FirstSheet(ctx context.Context, spreadsheetID string) (string, error)
}

// SheetsClient implements SheetsValues with the Sheets v4 API
type SheetsClient struct {
	svc *sheets.Service
}

// SheetsConfig selects how the Sheets API is reached
type SheetsConfig struct {
	APIKey          string
	CredentialsFile string
	// Endpoint overrides the API base URL
	Endpoint string
}

// NewSheetsClient creates a Sheets client from an API key or a service
// account credentials file.
func NewSheetsClient(ctx context.Context, cfg SheetsConfig, extra ...option.ClientOption) (*SheetsClient, error) {
	opts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsReadonlyScope)}
	switch {
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	case cfg.APIKey != "":
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	opts = append(opts, extra...)

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &SheetsClient{svc: svc}, nil
}

func (c *SheetsClient) Values(ctx context.Context, spreadsheetID, readRange string) ([][]interface{}, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, readRange).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("SERIAL_NUMBER").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (c *SheetsClient) FirstSheet(ctx context.Context, spreadsheetID string) (string, error) {
	ss, err := c.svc.Spreadsheets.Get(spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if len(ss.Sheets) == 0 || ss.Sheets[0].Properties == nil {
		return "", fmt.Errorf("aucune feuille dans %s", spreadsheetID)
	}
	return ss.Sheets[0].Properties.Title, nil
}

// SheetsSource reads a Google Sheet and exposes it as CSV
type SheetsSource struct {
	SpreadsheetID string
	Range         string
	Client        SheetsValues
}

// ParseSheetsLocation parses "sheets:<id>[/<range>]"
func ParseSheetsLocation(location string, client SheetsValues) (SheetsSource, error) {
	rest := strings.TrimPrefix(location, SheetsScheme)
	id, rng, _ := strings.Cut(rest, "/")
	if id == "" {
		return SheetsSource{}, fmt.Errorf("source %q: identifiant de classeur manquant", location)
	}
	return SheetsSource{SpreadsheetID: id, Range: rng, Client: client}, nil
}

func (s SheetsSource) Name() string {
	if s.Range == "" {
		return SheetsScheme + s.SpreadsheetID
	}
	return SheetsScheme + s.SpreadsheetID + "/" + s.Range
}

func (s SheetsSource) Open(ctx context.Context) (io.ReadCloser, string, error) {
	rng := s.Range
	if rng == "" {
		first, err := s.Client.FirstSheet(ctx, s.SpreadsheetID)
		if err != nil {
			return nil, "", fmt.Errorf("lecture de %s: %w", s.Name(), err)
		}
		rng = first
	}

	values, err := s.Client.Values(ctx, s.SpreadsheetID, rng)
	if err != nil {
		return nil, "", fmt.Errorf("lecture de %s: %w", s.Name(), err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, row := range values {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = cellString(v)
		}
		if err := w.Write(record); err != nil {
			return nil, "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, "", err
	}
	return io.NopCloser(&buf), s.SpreadsheetID + ".csv", nil
}

func cellString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
