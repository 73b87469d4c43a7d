// Package http implements the HTTP handlers of the grievance dashboard.
// Handlers stay thin: they parse the request, call the services layer and
// turn service errors into problem responses or an error banner on the page.
//
// # Routes
//
//	GET  /                                      dashboard page for the configured source
//	GET  /datasets/{id}                         dashboard page for an uploaded workbook
//	POST /datasets                              upload a workbook (multipart field "file")
//	GET  /api/datasets/{id}/summary             aggregates as JSON
//	GET  /api/datasets/{id}/options             filter choices, with ETag
//	GET  /api/datasets/{id}/charts/{name}.svg   one chart (also .png)
//	GET  /api/datasets/{id}/export.csv          filtered records
//	GET  /api/datasets/{id}/export.xlsx         summary workbook
//	GET  /api/health, /api/health/ready, /api/health/live, /api/version
//
// # Filters
//
// Membership filters are repeatable query parameters (statut=En+cours&statut=Achevé).
// An absent parameter leaves the field unconstrained; a parameter sent only
// with blank values selects nothing. annee and trimestre narrow the period.
package http
