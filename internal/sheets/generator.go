package sheets

import (
	"fmt"

	"demoreport/internal/workbook"
	"demoreport/pkg/contracts/domain"
)

// builder computes the header and rows of a sheet from the match alone
type builder func(m *domain.Match) (header []string, rows [][]any)

// tableGenerator writes the output of a builder as one sheet
type tableGenerator struct {
	name  string
	wb    *workbook.Workbook
	match *domain.Match
	build builder
}

func table(name string, build builder) Constructor {
	return func(wb *workbook.Workbook, match *domain.Match) Generator {
		return &tableGenerator{name: name, wb: wb, match: match, build: build}
	}
}

func (g *tableGenerator) Name() string { return g.name }

func (g *tableGenerator) Generate() error {
	if g.match == nil {
		return fmt.Errorf("sheet %s: no match", g.name)
	}
	header, rows := g.build(g.match)

	sheet, err := g.wb.AddSheet(g.name)
	if err != nil {
		return err
	}
	if err := sheet.SetHeader(header...); err != nil {
		return err
	}
	for _, row := range rows {
		if err := sheet.AppendRow(row...); err != nil {
			return err
		}
	}
	return sheet.AutoFit()
}
