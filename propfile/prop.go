// Package propfile implements reading and writing of Java .properties
// resource bundles.
//
// Format: key=value pairs, one per line. Lines starting with '#' or '!' are
// comments; a run of comment lines directly above an entry (no blank line
// in between) is that entry's developer message. Other comments and blank
// lines are preserved verbatim. Multi-line values (backslash continuation)
// are not supported; each line is treated independently.
//
// File naming convention (ResourceBundle):
//
//	i18n/messages.properties     (base)
//	i18n/messages_fr.properties  (French)
//	i18n/messages_pt_BR.properties
package propfile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ---------------------------------------------------------------------------
// File model
// ---------------------------------------------------------------------------

// lineKind classifies each line in the file.
type lineKind int

const (
	lineBlank   lineKind = iota // blank / whitespace-only line
	lineComment                 // comment line (starts with # or !)
	lineEntry                   // key=value pair
)

// line is a single line in the properties file.
type line struct {
	kind  lineKind
	raw   string // original text (comment/blank)
	key   string // only for lineEntry
	value string // only for lineEntry
}

// File represents a parsed .properties file.
type File struct {
	lines []line
	// index maps key → index in lines.
	index map[string]int
}

// New returns an empty file.
func New() *File {
	return &File{index: make(map[string]int)}
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// ParseFile reads and parses a .properties file from disk.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses .properties content from a byte slice.
func Parse(data []byte) (*File, error) {
	f := New()

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	rawLines := strings.Split(text, "\n")
	if len(rawLines) > 0 && rawLines[len(rawLines)-1] == "" {
		rawLines = rawLines[:len(rawLines)-1]
	}

	for _, raw := range rawLines {
		trimmed := strings.TrimSpace(raw)

		switch {
		case trimmed == "":
			f.lines = append(f.lines, line{kind: lineBlank, raw: raw})

		case isComment(trimmed):
			f.lines = append(f.lines, line{kind: lineComment, raw: raw})

		default:
			k, v := splitKeyValue(trimmed)
			if k == "" {
				// Malformed line, keep it as a comment.
				f.lines = append(f.lines, line{kind: lineComment, raw: raw})
				continue
			}
			if idx, exists := f.index[k]; exists {
				f.lines[idx].value = v
				continue
			}
			f.index[k] = len(f.lines)
			f.lines = append(f.lines, line{kind: lineEntry, key: k, value: v})
		}
	}

	return f, nil
}

func isComment(trimmed string) bool {
	return strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "!")
}

// splitKeyValue splits "key = value" or "key=value" into key and value.
// The separator may be '=' or ':'.
func splitKeyValue(s string) (key, value string) {
	for i, ch := range s {
		if ch == '=' || ch == ':' {
			return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:])
		}
	}
	return strings.TrimSpace(s), ""
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Keys returns all keys in document order.
func (f *File) Keys() []string {
	keys := make([]string, 0, len(f.index))
	for _, ln := range f.lines {
		if ln.kind == lineEntry {
			keys = append(keys, ln.key)
		}
	}
	return keys
}

// commentStart returns the first line of the comment block attached to
// the entry at idx (idx itself when there is none).
func (f *File) commentStart(idx int) int {
	start := idx
	for start > 0 && f.lines[start-1].kind == lineComment {
		start--
	}
	return start
}

// Lookup returns the value and attached comment for key.
func (f *File) Lookup(key string) (value, comment string, ok bool) {
	idx, ok := f.index[key]
	if !ok {
		return "", "", false
	}
	var parts []string
	for _, ln := range f.lines[f.commentStart(idx):idx] {
		text := strings.TrimSpace(ln.raw)[1:]
		parts = append(parts, strings.TrimPrefix(text, " "))
	}
	return f.lines[idx].value, strings.Join(parts, "\n"), true
}

// Set sets the value for key, appending a new entry if needed. A new
// entry is separated from the previous one by a blank line.
func (f *File) Set(key, value string) {
	if idx, ok := f.index[key]; ok {
		f.lines[idx].value = value
		return
	}
	if n := len(f.lines); n > 0 && f.lines[n-1].kind != lineBlank {
		f.lines = append(f.lines, line{kind: lineBlank})
	}
	f.index[key] = len(f.lines)
	f.lines = append(f.lines, line{kind: lineEntry, key: key, value: value})
}

// SetComment replaces the comment block attached to key.
func (f *File) SetComment(key, comment string) bool {
	idx, ok := f.index[key]
	if !ok {
		return false
	}
	var block []line
	if comment != "" {
		for _, c := range strings.Split(comment, "\n") {
			block = append(block, line{kind: lineComment, raw: "# " + c})
		}
	}
	start := f.commentStart(idx)
	rebuilt := make([]line, 0, len(f.lines)-(idx-start)+len(block))
	rebuilt = append(rebuilt, f.lines[:start]...)
	rebuilt = append(rebuilt, block...)
	rebuilt = append(rebuilt, f.lines[idx:]...)
	f.lines = rebuilt
	f.reindex()
	return true
}

// Delete removes key and its attached comment block.
func (f *File) Delete(key string) bool {
	idx, ok := f.index[key]
	if !ok {
		return false
	}
	start := f.commentStart(idx)
	f.lines = append(f.lines[:start], f.lines[idx+1:]...)
	f.reindex()
	return true
}

func (f *File) reindex() {
	f.index = make(map[string]int, len(f.index))
	for i, ln := range f.lines {
		if ln.kind == lineEntry {
			f.index[ln.key] = i
		}
	}
}

// ---------------------------------------------------------------------------
// Serialization
// ---------------------------------------------------------------------------

// Marshal serialises the file back to .properties format.
func (f *File) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	for _, ln := range f.lines {
		switch ln.kind {
		case lineBlank:
			buf.WriteByte('\n')
		case lineComment:
			buf.WriteString(ln.raw)
			buf.WriteByte('\n')
		case lineEntry:
			buf.WriteString(ln.key)
			buf.WriteByte('=')
			buf.WriteString(ln.value)
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes(), nil
}

// WriteFile serialises and writes to path, creating parent directories
// with 0755 permissions.
func (f *File) WriteFile(path string) error {
	data, err := f.Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Naming
// ---------------------------------------------------------------------------

// BaseLanguage is the language reported for the default bundle file.
const BaseLanguage = "base"

// SplitName splits a bundle file name into bundle and language:
// "messages.properties" → ("messages", "base"),
// "messages_pt_BR.properties" → ("messages", "pt_BR").
func SplitName(name string) (bundle, lang string, ok bool) {
	stem, ok := strings.CutSuffix(name, ".properties")
	if !ok || stem == "" {
		return "", "", false
	}
	i := strings.IndexByte(stem, '_')
	if i < 0 {
		return stem, BaseLanguage, true
	}
	if i == 0 || i == len(stem)-1 {
		return "", "", false
	}
	return stem[:i], stem[i+1:], true
}
