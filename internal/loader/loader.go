// Package loader fetches grievance workbooks from local files, uploads,
// remote URLs or Google Sheets and turns them into raw tables.
package loader

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/crypto/blake2b"

	"griefpulse/internal/grievance"
)

// DefaultMaxBytes caps the size of a workbook read from any source
const DefaultMaxBytes int64 = 32 << 20

// ErrTooLarge is returned when a source exceeds the configured size cap
var ErrTooLarge = errors.New("fichier trop volumineux")

// Source provides the bytes of a workbook and a file name hinting its format
type Source interface {
	Name() string
	Open(ctx context.Context) (io.ReadCloser, string, error)
}

// LoadError is the user-facing failure of a load attempt
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("Impossible de charger le fichier Excel : %v", e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Options configures a Loader
type Options struct {
	// Sheet selects a worksheet by name; empty means the first one
	Sheet    string
	MaxBytes int64
}

// Loader reads sources into tables
type Loader struct {
	sheet    string
	maxBytes int64
	logger   *slog.Logger
}

// New creates a Loader
func New(opts Options, logger *slog.Logger) *Loader {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		sheet:    opts.Sheet,
		maxBytes: opts.MaxBytes,
		logger:   logger.With(slog.String("component", "loader")),
	}
}

// Load reads src into a table. On failure it returns an empty table and a
// *LoadError; callers must not aggregate anything in that case.
func (l *Loader) Load(ctx context.Context, src Source) (grievance.Table, error) {
	start := time.Now()

	data, filename, err := l.read(ctx, src)
	if err != nil {
		return l.fail(ctx, src, err)
	}

	table, err := ParseWorkbook(bytes.NewReader(data), filename, l.sheet)
	if err != nil {
		return l.fail(ctx, src, err)
	}
	table.Source = src.Name()
	table.Fingerprint = Fingerprint(data)

	l.logger.InfoContext(ctx, "workbook loaded",
		slog.String("source", src.Name()),
		slog.Int("columns", len(table.Headers)),
		slog.Int("rows", len(table.Rows)),
		slog.Int("bytes", len(data)),
		slog.Duration("duration", time.Since(start)),
	)
	return table, nil
}

func (l *Loader) read(ctx context.Context, src Source) ([]byte, string, error) {
	rc, filename, err := src.Open(ctx)
	if err != nil {
		return nil, "", err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, l.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("lecture de %s: %w", src.Name(), err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, "", fmt.Errorf("%w (plus de %d octets)", ErrTooLarge, l.maxBytes)
	}
	return data, filename, nil
}

func (l *Loader) fail(ctx context.Context, src Source, err error) (grievance.Table, error) {
	l.logger.WarnContext(ctx, "workbook load failed",
		slog.String("source", src.Name()),
		slog.String("error", err.Error()),
	)
	return grievance.Table{Source: src.Name()}, &LoadError{Source: src.Name(), Err: err}
}

// Fingerprint returns the hex blake2b-256 digest of data
func Fingerprint(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
