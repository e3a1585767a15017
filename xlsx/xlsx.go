// Package xlsx implements exporter.Sink on top of excelize.
//
// Sheet names are sanitized to what Excel accepts (at most 31 characters,
// none of : \ / ? * [ ]) and de-duplicated; callers keep addressing sheets
// by the name they passed to AddSheet.
package xlsx

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/minios-linux/locsheet/exporter"
)

const maxSheetName = 31

// Workbook is an xlsx file being written. It is not safe for concurrent use.
type Workbook struct {
	path   string
	file   *excelize.File
	sheets map[string]string // caller name -> sheet name
	used   map[string]bool
	styles map[exporter.Style]int
	// fresh is true until the default sheet has been renamed.
	fresh bool
}

// Create starts a workbook that is saved to path on Close.
func Create(path string) (exporter.Sink, error) {
	f := excelize.NewFile()
	w := &Workbook{
		path:   path,
		file:   f,
		sheets: make(map[string]string),
		used:   make(map[string]bool),
		styles: make(map[exporter.Style]int),
		fresh:  true,
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Family: "Verdana", Bold: true, Size: 18, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"000000"}},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating header style: %w", err)
	}
	body, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Family: "Verdana"},
		Alignment: &excelize.Alignment{
			Vertical: "distributed",
			WrapText: true,
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating body style: %w", err)
	}
	w.styles[exporter.StyleHeader] = header
	w.styles[exporter.StyleBody] = body
	return w, nil
}

// AddSheet creates a sheet for name. The first sheet reuses the default
// one excelize starts with.
func (w *Workbook) AddSheet(name string) error {
	if _, ok := w.sheets[name]; ok {
		return fmt.Errorf("sheet %q already added", name)
	}
	sheet := w.uniqueName(SheetName(name))

	if w.fresh {
		if err := w.file.SetSheetName(w.file.GetSheetName(0), sheet); err != nil {
			return err
		}
		w.fresh = false
	} else if _, err := w.file.NewSheet(sheet); err != nil {
		return err
	}
	w.sheets[name] = sheet
	w.used[strings.ToLower(sheet)] = true
	return nil
}

func (w *Workbook) sheet(name string) (string, error) {
	s, ok := w.sheets[name]
	if !ok {
		return "", fmt.Errorf("sheet %q not added", name)
	}
	return s, nil
}

// SetColumnWidth implements exporter.Sink.
func (w *Workbook) SetColumnWidth(name string, col int, width float64) error {
	sheet, err := w.sheet(name)
	if err != nil {
		return err
	}
	letter, err := excelize.ColumnNumberToName(col + 1)
	if err != nil {
		return err
	}
	return w.file.SetColWidth(sheet, letter, letter, width)
}

// SetRowHeight implements exporter.Sink.
func (w *Workbook) SetRowHeight(name string, row int, height float64, style exporter.Style) error {
	sheet, err := w.sheet(name)
	if err != nil {
		return err
	}
	if err := w.file.SetRowHeight(sheet, row+1, height); err != nil {
		return err
	}
	return w.file.SetRowStyle(sheet, row+1, row+1, w.styles[style])
}

// WriteString implements exporter.Sink.
func (w *Workbook) WriteString(name string, row, col int, value string, style exporter.Style) error {
	sheet, err := w.sheet(name)
	if err != nil {
		return err
	}
	cell, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return err
	}
	if err := w.file.SetCellStr(sheet, cell, value); err != nil {
		return err
	}
	return w.file.SetCellStyle(sheet, cell, cell, w.styles[style])
}

// Freeze implements exporter.Sink.
func (w *Workbook) Freeze(name string, rows, cols int) error {
	sheet, err := w.sheet(name)
	if err != nil {
		return err
	}
	topLeft, err := excelize.CoordinatesToCellName(cols+1, rows+1)
	if err != nil {
		return err
	}
	return w.file.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		XSplit:      cols,
		YSplit:      rows,
		TopLeftCell: topLeft,
		ActivePane:  "bottomRight",
	})
}

// Close saves the workbook to its path and releases it.
func (w *Workbook) Close() error {
	saveErr := w.file.SaveAs(w.path)
	closeErr := w.file.Close()
	if saveErr != nil {
		return fmt.Errorf("saving %s: %w", w.path, saveErr)
	}
	return closeErr
}

func (w *Workbook) uniqueName(base string) string {
	name := base
	for i := 2; w.used[strings.ToLower(name)]; i++ {
		suffix := " (" + strconv.Itoa(i) + ")"
		name = truncate(base, maxSheetName-utf8.RuneCountInString(suffix)) + suffix
	}
	return name
}

// SheetName maps a group name to a valid Excel sheet name.
func SheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, name)
	name = strings.Trim(name, "'")
	if name == "" {
		name = "Sheet"
	}
	return truncate(name, maxSheetName)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
