// Package workbook is a thin append-only layer over excelize.
//
// Sheets are appended in order and never reordered or removed; the default
// sheet of a new excelize file is taken over by the first appended sheet.
package workbook
