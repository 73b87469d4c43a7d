// Package services holds the application logic behind the HTTP handlers
// and the CLI.
//
// DashboardService owns the dataset cache: the default source is loaded
// lazily, kept for the refresh interval and reloaded through a
// singleflight group, while uploaded workbooks live in a TTL store keyed
// by a random id. Build turns a dataset and a grievance.Selection into a
// Dashboard view model; it returns *grievance.MissingColumnsError or
// ErrEmptySelection before computing anything when the pass must stop.
//
// Refresher optionally polls the default source and broadcasts
// "dataset:updated" when its fingerprint changes. HealthService answers
// the health, readiness, liveness and version endpoints.
package services
