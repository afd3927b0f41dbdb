// Package exporter writes finished report workbooks to disk.
//
// ReportWriter saves a workbook either as a single .xlsx file or as a
// directory of CSV files, one per sheet in workbook order. Every file is
// published atomically, so an interrupted export never leaves a truncated
// report behind.
//
//	w := exporter.NewReportWriter(files.NewManager(reportsDir, logger), logger)
//	out, err := w.Write(wb, "csv", "navi-vs-g2")
package exporter
