package workbook

import (
	"fmt"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const (
	minColumnWidth = 8
	maxColumnWidth = 60
)

// Sheet appends rows to one worksheet
type Sheet struct {
	wb     *Workbook
	name   string
	rows   int
	widths []int
}

// Name returns the sheet name
func (s *Sheet) Name() string { return s.name }

// RowCount returns the number of rows written, header included
func (s *Sheet) RowCount() int { return s.rows }

// SetHeader writes a bold, frozen header row. It must be the first row.
func (s *Sheet) SetHeader(columns ...string) error {
	if s.rows != 0 {
		return fmt.Errorf("sheet %s: header must be the first row", s.name)
	}
	values := make([]any, len(columns))
	for i, c := range columns {
		values[i] = c
	}
	if err := s.AppendRow(values...); err != nil {
		return err
	}
	if len(columns) == 0 {
		return nil
	}

	f := s.wb.file
	last, err := excelize.CoordinatesToCellName(len(columns), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(s.name, "A1", last, s.wb.headerStyle); err != nil {
		return fmt.Errorf("sheet %s: header style: %w", s.name, err)
	}
	return f.SetPanes(s.name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// AppendRow writes values to the next row
func (s *Sheet) AppendRow(values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, s.rows+1)
	if err != nil {
		return err
	}
	if err := s.wb.file.SetSheetRow(s.name, cell, &values); err != nil {
		return fmt.Errorf("sheet %s: row %d: %w", s.name, s.rows+1, err)
	}
	s.rows++
	s.track(values)
	return nil
}

// AutoFit sets column widths from the longest value seen in each column
func (s *Sheet) AutoFit() error {
	for i, w := range s.widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		width := float64(max(minColumnWidth, min(w+2, maxColumnWidth)))
		if err := s.wb.file.SetColWidth(s.name, col, col, width); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sheet) track(values []any) {
	for i, v := range values {
		if i >= len(s.widths) {
			s.widths = append(s.widths, 0)
		}
		if n := utf8.RuneCountInString(fmt.Sprint(v)); n > s.widths[i] {
			s.widths[i] = n
		}
	}
}
