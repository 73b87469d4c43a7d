package loader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// FileSource reads a workbook from the local filesystem
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return s.Path }

func (s FileSource) Open(ctx context.Context) (io.ReadCloser, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, "", fmt.Errorf("ouverture de %s: %w", filepath.Base(s.Path), err)
	}
	return f, s.Path, nil
}

// UploadSource serves bytes received from a browser upload
type UploadSource struct {
	Filename string
	Data     []byte
}

func (s UploadSource) Name() string { return "upload:" + s.Filename }

func (s UploadSource) Open(context.Context) (io.ReadCloser, string, error) {
	if len(s.Data) == 0 {
		return nil, "", fmt.Errorf("fichier %q vide", s.Filename)
	}
	return io.NopCloser(bytes.NewReader(s.Data)), s.Filename, nil
}

// URLSource downloads a workbook over HTTP. A single attempt is made;
// any non-2xx status is an error. When Cache is set, the raw bytes are
// shared for CacheTTL across every process using the same cache.
type URLSource struct {
	URL      string
	Client   *http.Client
	Cache    ByteCache
	CacheTTL time.Duration
}

func (s URLSource) Name() string { return s.URL }

func (s URLSource) Open(ctx context.Context) (io.ReadCloser, string, error) {
	filename := filenameFromURL(s.URL)
	key := "url:" + s.URL

	if s.Cache != nil {
		if data, ok, err := s.Cache.Get(ctx, key); err == nil && ok {
			return io.NopCloser(bytes.NewReader(data)), filename, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("url invalide: %w", err)
	}
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("téléchargement de %s: %w", s.URL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, "", fmt.Errorf("téléchargement de %s: statut HTTP %d", s.URL, resp.StatusCode)
	}
	if s.Cache == nil {
		return resp.Body, filename, nil
	}

	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, DefaultMaxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("téléchargement de %s: %w", s.URL, err)
	}
	// a failing cache must not fail the download
	_ = s.Cache.Set(ctx, key, data, s.CacheTTL)
	return io.NopCloser(bytes.NewReader(data)), filename, nil
}

func filenameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "download.xlsx"
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" || filepath.Ext(base) == "" {
		return "download.xlsx"
	}
	return base
}

// Resolver turns a configured location into a Source.
// "sheets:<id>[/<range>]" reads a Google Sheet, http(s) URLs are
// downloaded, anything else is a local path.
type Resolver struct {
	HTTPClient *http.Client
	Cache      ByteCache
	CacheTTL   time.Duration
	Sheets     SheetsValues
}

// Resolve returns the source for location
func (r Resolver) Resolve(location string) (Source, error) {
	location = strings.TrimSpace(location)
	switch {
	case location == "":
		return nil, fmt.Errorf("aucune source configurée")
	case strings.HasPrefix(location, SheetsScheme):
		if r.Sheets == nil {
			return nil, fmt.Errorf("source %q: accès Google Sheets non configuré", location)
		}
		return ParseSheetsLocation(location, r.Sheets)
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		return URLSource{URL: location, Client: r.HTTPClient, Cache: r.Cache, CacheTTL: r.CacheTTL}, nil
	default:
		return FileSource{Path: location}, nil
	}
}
