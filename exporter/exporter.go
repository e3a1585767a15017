// Package exporter writes every loaded group to a spreadsheet, one sheet
// per group and one row per key, regardless of how many languages carry
// the key or in which order they list it.
//
// The exporter works on a Snapshot taken when the export is requested so
// that a reload running at the same time cannot tear the data it reads.
package exporter

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/minios-linux/locsheet/langmeta"
	"github.com/minios-linux/locsheet/store"
)

// Style selects one of the two cell styles a Sink must provide.
type Style int

const (
	// StyleBody is wrapped body text.
	StyleBody Style = iota
	// StyleHeader is the bold, centered, inverted header style.
	StyleHeader
)

// Sink is the spreadsheet writer. Rows and columns are zero-based.
type Sink interface {
	AddSheet(name string) error
	SetColumnWidth(sheet string, col int, width float64) error
	SetRowHeight(sheet string, row int, height float64, style Style) error
	WriteString(sheet string, row, col int, value string, style Style) error
	// Freeze keeps the first rows and cols visible while scrolling.
	Freeze(sheet string, rows, cols int) error
	Close() error
}

// Options controls labels and geometry of the exported sheets.
type Options struct {
	// KeyLabel heads the key column.
	KeyLabel string
	// DisplayLocale is the locale language names are rendered in.
	DisplayLocale string
	ColumnWidth   float64
	HeaderHeight  float64
	RowHeight     float64
	Logger        *slog.Logger
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		KeyLabel:      "key",
		DisplayLocale: "en",
		ColumnWidth:   50,
		HeaderHeight:  40,
		RowHeight:     35,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.KeyLabel == "" {
		o.KeyLabel = d.KeyLabel
	}
	if o.DisplayLocale == "" {
		o.DisplayLocale = d.DisplayLocale
	}
	if o.ColumnWidth <= 0 {
		o.ColumnWidth = d.ColumnWidth
	}
	if o.HeaderHeight <= 0 {
		o.HeaderHeight = d.HeaderHeight
	}
	if o.RowHeight <= 0 {
		o.RowHeight = d.RowHeight
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Pair is a key and its value in one language.
type Pair struct {
	Key   string
	Value string
}

// Column is one localization of a table, entries in encounter order.
type Column struct {
	Language string
	Pairs    []Pair
}

// Table is the exported view of one group.
type Table struct {
	Name    string
	Columns []Column
}

// Snapshot copies the exported data out of groups. Columns keep the
// stored localization order.
func Snapshot(groups []*store.Group) []Table {
	tables := make([]Table, 0, len(groups))
	for _, g := range groups {
		t := Table{Name: g.Name, Columns: make([]Column, 0, len(g.Localizations))}
		for _, l := range g.Localizations {
			c := Column{Language: l.Language, Pairs: make([]Pair, 0, len(l.Entries))}
			for _, e := range l.Entries {
				c.Pairs = append(c.Pairs, Pair{Key: e.Key, Value: e.Value})
			}
			t.Columns = append(t.Columns, c)
		}
		tables = append(tables, t)
	}
	return tables
}

// Report summarizes a finished export.
type Report struct {
	Path   string
	Sheets int
	Rows   int
}

// Write emits tables into sink, one sheet at a time, and closes the sink.
// On failure the sheets already written stay in the sink and the error
// names the sheet that failed.
func Write(sink Sink, tables []Table, opts Options) (Report, error) {
	opts = opts.withDefaults()
	var rep Report
	for _, t := range tables {
		rows, err := writeTable(sink, t, opts)
		if err != nil {
			if cerr := sink.Close(); cerr != nil {
				opts.Logger.Error("closing spreadsheet after failure", "err", cerr)
			}
			return rep, fmt.Errorf("exporting sheet %q: %w", t.Name, err)
		}
		rep.Sheets++
		rep.Rows += rows
		opts.Logger.Debug("sheet exported", "sheet", t.Name, "rows", rows)
	}
	if err := sink.Close(); err != nil {
		return rep, fmt.Errorf("closing spreadsheet: %w", err)
	}
	return rep, nil
}

// writeTable returns the number of key rows written.
func writeTable(sink Sink, t Table, opts Options) (int, error) {
	if err := sink.AddSheet(t.Name); err != nil {
		return 0, err
	}
	if err := sink.SetColumnWidth(t.Name, 0, opts.ColumnWidth); err != nil {
		return 0, err
	}
	if err := sink.SetRowHeight(t.Name, 0, opts.HeaderHeight, StyleHeader); err != nil {
		return 0, err
	}
	if err := sink.WriteString(t.Name, 0, 0, opts.KeyLabel, StyleHeader); err != nil {
		return 0, err
	}
	if err := sink.Freeze(t.Name, 1, 1); err != nil {
		return 0, err
	}

	// seen maps a key to the row it was first written to.
	seen := make(map[string]int)
	for i, c := range t.Columns {
		col := i + 1
		if err := sink.SetColumnWidth(t.Name, col, opts.ColumnWidth); err != nil {
			return 0, err
		}
		title := langmeta.Title(c.Language, opts.DisplayLocale)
		if err := sink.WriteString(t.Name, 0, col, title, StyleHeader); err != nil {
			return 0, err
		}

		for _, p := range c.Pairs {
			if row, ok := seen[p.Key]; ok {
				if err := sink.WriteString(t.Name, row, col, p.Value, StyleBody); err != nil {
					return 0, err
				}
				continue
			}
			row := len(seen) + 1
			if err := sink.SetRowHeight(t.Name, row, opts.RowHeight, StyleBody); err != nil {
				return 0, err
			}
			if err := sink.WriteString(t.Name, row, 0, p.Key, StyleBody); err != nil {
				return 0, err
			}
			if err := sink.WriteString(t.Name, row, col, p.Value, StyleBody); err != nil {
				return 0, err
			}
			seen[p.Key] = row
		}
	}
	return len(seen), nil
}

// ParseHeader splits a "Name(code)" column title. A title without
// parentheses is a bare code.
func ParseHeader(title string) (name, code string) {
	l := strings.LastIndexByte(title, '(')
	r := strings.LastIndexByte(title, ')')
	if l == -1 || r == -1 || l > r || r != len(title)-1 {
		return "", strings.TrimSpace(title)
	}
	return strings.TrimSpace(title[:l]), strings.TrimSpace(title[l+1 : r])
}
