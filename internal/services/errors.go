package services

import "errors"

// Dashboard service errors
var (
	// ErrLoadFailed wraps a *loader.LoadError; the render pass stops
	ErrLoadFailed = errors.New("dataset load failed")

	// ErrEmptySelection means the filters matched no grievance
	ErrEmptySelection = errors.New("Aucun grief ne correspond aux filtres sélectionnés.")

	// ErrDatasetNotFound covers unknown and expired upload ids
	ErrDatasetNotFound = errors.New("dataset not found")

	// ErrNoSource means no default location is configured
	ErrNoSource = errors.New("aucune source de données configurée")

	// ErrUnknownChart names a chart missing from the catalogue
	ErrUnknownChart = errors.New("unknown chart")

	// ErrChartUnavailable means the dataset lacks the column a chart needs
	ErrChartUnavailable = errors.New("chart unavailable for this dataset")
)
