package exporter

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/minios-linux/locsheet/store"
)

type cell struct {
	row, col int
}

// memSink records everything written to it.
type memSink struct {
	order   []string
	cells   map[string]map[cell]string
	styles  map[string]map[cell]Style
	heights map[string]map[int]float64
	frozen  map[string][2]int
	closed  bool
	failOn  string
}

func newMemSink() *memSink {
	return &memSink{
		cells:   make(map[string]map[cell]string),
		styles:  make(map[string]map[cell]Style),
		heights: make(map[string]map[int]float64),
		frozen:  make(map[string][2]int),
	}
}

func (m *memSink) AddSheet(name string) error {
	if name == m.failOn {
		return errors.New("disk full")
	}
	m.order = append(m.order, name)
	m.cells[name] = make(map[cell]string)
	m.styles[name] = make(map[cell]Style)
	m.heights[name] = make(map[int]float64)
	return nil
}

func (m *memSink) SetColumnWidth(string, int, float64) error { return nil }

func (m *memSink) SetRowHeight(sheet string, row int, height float64, _ Style) error {
	m.heights[sheet][row] = height
	return nil
}

func (m *memSink) WriteString(sheet string, row, col int, value string, style Style) error {
	m.cells[sheet][cell{row, col}] = value
	m.styles[sheet][cell{row, col}] = style
	return nil
}

func (m *memSink) Freeze(sheet string, rows, cols int) error {
	m.frozen[sheet] = [2]int{rows, cols}
	return nil
}

func (m *memSink) Close() error {
	m.closed = true
	return nil
}

// grid renders a sheet as rows of cells.
func (m *memSink) grid(sheet string) [][]string {
	maxRow, maxCol := -1, -1
	for c := range m.cells[sheet] {
		maxRow = max(maxRow, c.row)
		maxCol = max(maxCol, c.col)
	}
	out := make([][]string, maxRow+1)
	for r := range out {
		out[r] = make([]string, maxCol+1)
		for c := range out[r] {
			out[r][c] = m.cells[sheet][cell{r, c}]
		}
	}
	return out
}

func entries(kv ...string) []*store.Entry {
	var out []*store.Entry
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, &store.Entry{Key: kv[i], Value: kv[i+1]})
	}
	return out
}

func TestWriteDeduplicatesKeys(t *testing.T) {
	groups := []*store.Group{{
		Name: "Localizable.strings",
		Localizations: []*store.Localization{
			{Language: "en", Entries: entries("greeting", "Hello", "bye", "Bye")},
			{Language: "fr", Entries: entries("only.fr", "Seul", "greeting", "Bonjour")},
		},
	}}

	sink := newMemSink()
	rep, err := Write(sink, Snapshot(groups), Options{})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !sink.closed {
		t.Fatal("sink not closed")
	}
	if rep.Sheets != 1 || rep.Rows != 3 {
		t.Fatalf("report = %+v, want 1 sheet 3 rows", rep)
	}

	want := [][]string{
		{"key", "English(en)", "French(fr)"},
		{"greeting", "Hello", "Bonjour"},
		{"bye", "Bye", ""},
		{"only.fr", "", "Seul"},
	}
	if got := sink.grid("Localizable.strings"); !reflect.DeepEqual(got, want) {
		t.Fatalf("grid = %q\nwant %q", got, want)
	}

	greetingRows := 0
	for _, row := range sink.grid("Localizable.strings") {
		if row[0] == "greeting" {
			greetingRows++
		}
	}
	if greetingRows != 1 {
		t.Fatalf("greeting appears in %d rows, want 1", greetingRows)
	}

	if sink.frozen["Localizable.strings"] != [2]int{1, 1} {
		t.Fatalf("frozen = %v", sink.frozen["Localizable.strings"])
	}
	if sink.styles["Localizable.strings"][cell{0, 1}] != StyleHeader {
		t.Fatal("header cell should use header style")
	}
	if sink.styles["Localizable.strings"][cell{1, 1}] != StyleBody {
		t.Fatal("body cell should use body style")
	}
	if sink.heights["Localizable.strings"][0] != 40 || sink.heights["Localizable.strings"][3] != 35 {
		t.Fatalf("heights = %v", sink.heights["Localizable.strings"])
	}
}

func TestWriteEverySheetInOrder(t *testing.T) {
	groups := []*store.Group{
		{Name: "A", Localizations: []*store.Localization{{Language: "Base", Entries: entries("a", "1")}}},
		{Name: "B", Localizations: []*store.Localization{{Language: "Base", Entries: entries("b", "2")}}},
	}
	sink := newMemSink()
	if _, err := Write(sink, Snapshot(groups), Options{KeyLabel: "Schlüssel"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !reflect.DeepEqual(sink.order, []string{"A", "B"}) {
		t.Fatalf("sheet order = %v", sink.order)
	}
	if got := sink.grid("B"); !reflect.DeepEqual(got, [][]string{{"Schlüssel", "Base"}, {"b", "2"}}) {
		t.Fatalf("grid(B) = %q", got)
	}
}

func TestWritePartialFailure(t *testing.T) {
	groups := []*store.Group{
		{Name: "A", Localizations: []*store.Localization{{Language: "en", Entries: entries("a", "1")}}},
		{Name: "B", Localizations: []*store.Localization{{Language: "en", Entries: entries("b", "2")}}},
	}
	sink := newMemSink()
	sink.failOn = "B"
	rep, err := Write(sink, Snapshot(groups), Options{})
	if err == nil || !strings.Contains(err.Error(), `"B"`) {
		t.Fatalf("Write error = %v, want failure naming sheet B", err)
	}
	if rep.Sheets != 1 {
		t.Fatalf("report sheets = %d, want 1", rep.Sheets)
	}
	if _, ok := sink.cells["A"]; !ok {
		t.Fatal("sheet A should stay written")
	}
	if !sink.closed {
		t.Fatal("sink should be closed after failure")
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	g := &store.Group{Name: "g", Localizations: []*store.Localization{{Language: "en", Entries: entries("a", "1")}}}
	tables := Snapshot([]*store.Group{g})
	g.Localizations[0].Entries[0].Value = "changed"
	g.Localizations[0].Entries = append(g.Localizations[0].Entries, &store.Entry{Key: "b"})
	if got := tables[0].Columns[0].Pairs; !reflect.DeepEqual(got, []Pair{{Key: "a", Value: "1"}}) {
		t.Fatalf("snapshot changed with source: %v", got)
	}
}

func TestParseHeader(t *testing.T) {
	cases := []struct {
		in, name, code string
	}{
		{"French(fr)", "French", "fr"},
		{"简体中文(zh-Hans)", "简体中文", "zh-Hans"},
		{"Base", "", "Base"},
		{"odd(x) tail", "", "odd(x) tail"},
	}
	for _, tc := range cases {
		name, code := ParseHeader(tc.in)
		if name != tc.name || code != tc.code {
			t.Fatalf("ParseHeader(%q) = %q, %q; want %q, %q", tc.in, name, code, tc.name, tc.code)
		}
	}
}
