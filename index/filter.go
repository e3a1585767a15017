package index

import (
	"fmt"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Mode selects which keys a filter considers.
type Mode int

const (
	// All keeps every indexed key.
	All Mode = iota
	// Missing keeps keys absent from some language or blank in one.
	Missing
)

// String implements pflag.Value.
func (m Mode) String() string {
	if m == Missing {
		return "missing"
	}
	return "all"
}

// Set implements pflag.Value.
func (m *Mode) Set(s string) error {
	parsed, err := ParseMode(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Type implements pflag.Value.
func (m *Mode) Type() string { return "filter" }

// ParseMode parses "all" or "missing", case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return All, nil
	case "missing":
		return Missing, nil
	}
	return All, fmt.Errorf("unknown filter %q (valid: all, missing)", s)
}

// Filter returns the keys selected by mode whose key or any present value
// contains search, compared diacritic- and case-insensitively. An empty
// search keeps every key the mode selects. The result is sorted by code
// point; it never depends on map iteration order.
func (ix *Index) Filter(mode Mode, search string) []string {
	f := newFolder()
	needle := ""
	if search != "" {
		needle = f.fold(search)
	}

	keys := make([]string, 0, len(ix.rows))
	for key, slots := range ix.rows {
		if mode == Missing && !ix.isMissing(slots) {
			continue
		}
		if search != "" && !matches(f, needle, key, slots) {
			continue
		}
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// isMissing: fewer present entries than languages, or a present entry
// with an empty value.
func (ix *Index) isMissing(slots []Slot) bool {
	present := 0
	for _, s := range slots {
		if s.State != Present {
			continue
		}
		if s.Entry.Value == "" {
			return true
		}
		present++
	}
	return present < ix.languagesCount
}

func matches(f *folder, needle, key string, slots []Slot) bool {
	if strings.Contains(f.fold(key), needle) {
		return true
	}
	for _, s := range slots {
		if s.State == Present && strings.Contains(f.fold(s.Entry.Value), needle) {
			return true
		}
	}
	return false
}

// Normalize returns the form used for search comparisons: decomposed,
// stripped of combining marks, recomposed and case folded.
func Normalize(s string) string {
	return newFolder().fold(s)
}

// folder is not safe for concurrent use; Filter makes one per call.
type folder struct {
	strip transform.Transformer
	caser cases.Caser
}

func newFolder() *folder {
	return &folder{
		strip: transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		caser: cases.Fold(),
	}
}

func (f *folder) fold(s string) string {
	stripped, _, err := transform.String(f.strip, s)
	if err != nil {
		stripped = s
	}
	return f.caser.String(stripped)
}
