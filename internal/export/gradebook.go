// Package export renders section data as spreadsheets.
package export

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	sheetName = "Notas"
)

type Column struct {
	Name   string
	Weight float64
}

type Row struct {
	Student string
	// Scores is aligned with Gradebook.Columns; nil means not graded.
	Scores  []*float64
	Average float64
}

type Gradebook struct {
	Title   string
	Columns []Column
	Rows    []Row
}

// Write renders g as a single-sheet workbook: one row per student, one
// column per evaluation, then the average.
func (g *Gradebook) Write(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, 0, len(g.Columns)+2)
	header = append(header, "Alumno")
	for _, c := range g.Columns {
		header = append(header, fmt.Sprintf("%s (%g%%)", c.Name, c.Weight))
	}
	header = append(header, "Promedio")

	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, r := range g.Rows {
		values := make([]any, 0, len(header))
		values = append(values, r.Student)
		for _, s := range r.Scores {
			if s == nil {
				values = append(values, "")
				continue
			}
			values = append(values, *s)
		}
		values = append(values, r.Average)

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := format(f, len(header), len(g.Rows)); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// format bolds the header, adds a filter and sizes columns by content.
func format(f *excelize.File, cols, rows int) error {
	last, err := excelize.ColumnNumberToName(cols)
	if err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	_ = f.SetCellStyle(sheetName, "A1", last+"1", bold)
	_ = f.AutoFilter(sheetName, "A1:"+last+"1", nil)

	grid, err := f.GetRows(sheetName)
	if err != nil {
		return err
	}
	for c := 1; c <= cols; c++ {
		width := 10.0
		for _, row := range grid {
			if c-1 < len(row) {
				if w := float64(utf8.RuneCountInString(row[c-1])) * 1.1; w > width {
					width = w
				}
			}
		}
		if width > 50 {
			width = 50
		}
		name, _ := excelize.ColumnNumberToName(c)
		_ = f.SetColWidth(sheetName, name, name, width)
	}

	if rows > 0 {
		// Freeze the header and the student column.
		_ = f.SetPanes(sheetName, &excelize.Panes{
			Freeze:      true,
			XSplit:      1,
			YSplit:      1,
			TopLeftCell: "B2",
			ActivePane:  "bottomRight",
		})
	}
	return nil
}

var invalidFileChars = regexp.MustCompile(`[\\/:*?"<>|]+`)

// Filename builds "notas_<title>.xlsx" safe for Content-Disposition.
func Filename(title string) string {
	base := strings.Join(strings.Fields(title), "_")
	if base == "" {
		base = "seccion"
	}
	return "notas_" + invalidFileChars.ReplaceAllString(base, "-") + ".xlsx"
}
