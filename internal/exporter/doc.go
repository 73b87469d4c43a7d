// Package exporter writes filtered grievance tables and dashboard
// aggregates in formats spreadsheet users can open directly.
//
// WriteCSV produces a flat table, optionally prefixed with a UTF-8 BOM so
// Excel detects the encoding. WriteSummaryWorkbook produces an xlsx file
// with one sheet per aggregate:
//
//	Indicateurs  headline counts and the active filters
//	Par nature   grievances per nature
//	Par statut   grievances per processing status
//	Evolution    monthly counts per nature
//	Durée        mean processing time per nature
package exporter
