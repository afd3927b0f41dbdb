package workbook

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrDuplicateSheet is returned when a sheet name is appended twice
var ErrDuplicateSheet = errors.New("duplicate sheet name")

// Workbook is an append-only, ordered set of sheets backed by excelize
type Workbook struct {
	file        *excelize.File
	sheets      []*Sheet
	headerStyle int
	// placeholder is the default sheet excelize creates; it is replaced
	// by the first appended sheet
	placeholder string
}

// New creates an empty workbook
func New() (*Workbook, error) {
	f := excelize.NewFile()
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D9E1F2"}},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}
	return &Workbook{
		file:        f,
		headerStyle: style,
		placeholder: f.GetSheetName(0),
	}, nil
}

// AddSheet appends a new sheet. Names must be unique, case-insensitively,
// as Excel requires.
func (w *Workbook) AddSheet(name string) (*Sheet, error) {
	if err := validateSheetName(name); err != nil {
		return nil, err
	}
	for _, s := range w.sheets {
		if strings.EqualFold(s.name, name) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSheet, name)
		}
	}

	if w.placeholder != "" {
		if err := w.file.SetSheetName(w.placeholder, name); err != nil {
			return nil, fmt.Errorf("add sheet %s: %w", name, err)
		}
		w.placeholder = ""
	} else if _, err := w.file.NewSheet(name); err != nil {
		return nil, fmt.Errorf("add sheet %s: %w", name, err)
	}

	s := &Sheet{wb: w, name: name}
	w.sheets = append(w.sheets, s)
	return s, nil
}

// SheetNames returns sheet names in insertion order
func (w *Workbook) SheetNames() []string {
	names := make([]string, len(w.sheets))
	for i, s := range w.sheets {
		names[i] = s.name
	}
	return names
}

// SheetCount returns the number of appended sheets
func (w *Workbook) SheetCount() int {
	return len(w.sheets)
}

// Sheet looks up an appended sheet by name
func (w *Workbook) Sheet(name string) (*Sheet, bool) {
	for _, s := range w.sheets {
		if s.name == name {
			return s, true
		}
	}
	return nil, false
}

// Rows returns the cell values of a sheet as strings
func (w *Workbook) Rows(name string) ([][]string, error) {
	if _, ok := w.Sheet(name); !ok {
		return nil, fmt.Errorf("sheet %s not found", name)
	}
	return w.file.GetRows(name)
}

// SaveAs writes the workbook to path
func (w *Workbook) SaveAs(path string) error {
	w.file.SetActiveSheet(0)
	return w.file.SaveAs(path)
}

// WriteTo writes the workbook in XLSX format
func (w *Workbook) WriteTo(out io.Writer) (int64, error) {
	w.file.SetActiveSheet(0)
	return w.file.WriteTo(out)
}

// Close releases the temporary files held by excelize
func (w *Workbook) Close() error {
	return w.file.Close()
}

func validateSheetName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return errors.New("sheet name is empty")
	case len([]rune(name)) > excelize.MaxSheetNameLength:
		return fmt.Errorf("sheet name %q exceeds %d characters", name, excelize.MaxSheetNameLength)
	case strings.ContainsAny(name, `[]:*?/\`):
		return fmt.Errorf("sheet name %q contains invalid characters", name)
	}
	return nil
}
