// Package arbfile implements reading and writing of Flutter ARB
// (Application Resource Bundle) files.
//
// ARB files are JSON objects:
//
//   - "@@locale" holds the language code (e.g. "en", "ru").
//   - "@key" is the metadata object of "key"; its "description" is the
//     developer message. Other metadata fields are kept as they are.
//   - Every other key maps to a string value.
//
// File naming convention: <prefix>_<lang>.arb (e.g. app_en.arb,
// app_pt_BR.arb) in one directory (e.g. lib/l10n/).
//
// Key order is preserved; new keys are appended at the end.
package arbfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ---------------------------------------------------------------------------
// File model
// ---------------------------------------------------------------------------

type entry struct {
	key    string
	value  string          // string keys
	isMeta bool            // @key metadata
	raw    json.RawMessage // metadata object, isMeta only
}

// File represents a parsed ARB file.
type File struct {
	locale  string
	entries []entry
	// index maps key → index in entries.
	index map[string]int
}

// New returns an empty file for locale.
func New(locale string) *File {
	return &File{locale: locale, index: make(map[string]int)}
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// ParseFile reads and parses an ARB file from disk.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse parses ARB content. Streaming tokens keeps the key order.
func Parse(data []byte) (*File, error) {
	f := New("")
	if len(bytes.TrimSpace(data)) == 0 {
		return f, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parsing ARB: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("parsing ARB: expected '{', got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parsing ARB key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("parsing ARB: expected string key, got %T", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("parsing ARB value for %q: %w", key, err)
		}

		if key == "@@locale" {
			if err := json.Unmarshal(raw, &f.locale); err != nil {
				return nil, fmt.Errorf("parsing ARB: @@locale is not a string")
			}
			continue
		}

		e := entry{key: key, isMeta: strings.HasPrefix(key, "@"), raw: raw}
		if !e.isMeta {
			if err := json.Unmarshal(raw, &e.value); err != nil {
				return nil, fmt.Errorf("parsing ARB: value of %q is not a string", key)
			}
			e.raw = nil
		}
		if idx, dup := f.index[key]; dup {
			f.entries[idx] = e
			continue
		}
		f.index[key] = len(f.entries)
		f.entries = append(f.entries, e)
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("parsing ARB: %w", err)
	}
	return f, nil
}

// ---------------------------------------------------------------------------
// Access and mutation
// ---------------------------------------------------------------------------

// Locale returns the @@locale value.
func (f *File) Locale() string { return f.locale }

// Keys returns the string keys in document order.
func (f *File) Keys() []string {
	var keys []string
	for _, e := range f.entries {
		if !e.isMeta {
			keys = append(keys, e.key)
		}
	}
	return keys
}

// Lookup returns the value of key and the description of its metadata.
func (f *File) Lookup(key string) (value, comment string, ok bool) {
	idx, ok := f.index[key]
	if !ok || f.entries[idx].isMeta {
		return "", "", false
	}
	return f.entries[idx].value, f.description(key), true
}

func (f *File) meta(key string) map[string]json.RawMessage {
	idx, ok := f.index["@"+key]
	if !ok {
		return nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(f.entries[idx].raw, &m); err != nil {
		return nil
	}
	return m
}

func (f *File) description(key string) string {
	var desc string
	if raw, ok := f.meta(key)["description"]; ok {
		_ = json.Unmarshal(raw, &desc)
	}
	return desc
}

// Set stores value for key, appending key when new.
func (f *File) Set(key, value string) {
	if idx, ok := f.index[key]; ok {
		f.entries[idx].value = value
		return
	}
	f.index[key] = len(f.entries)
	f.entries = append(f.entries, entry{key: key, value: value})
}

// SetComment sets the description of key; an empty comment removes it,
// together with the metadata object when nothing else is left in it. It
// reports false when key does not exist.
func (f *File) SetComment(key, comment string) bool {
	if idx, ok := f.index[key]; !ok || f.entries[idx].isMeta {
		return false
	}
	m := f.meta(key)
	if m == nil {
		m = make(map[string]json.RawMessage)
	}
	if comment == "" {
		delete(m, "description")
	} else {
		m["description"] = marshalString(comment)
	}

	metaKey := "@" + key
	idx, exists := f.index[metaKey]
	switch {
	case len(m) == 0 && exists:
		f.remove(metaKey)
	case len(m) == 0:
	case exists:
		f.entries[idx].raw, _ = json.Marshal(m)
	default:
		raw, _ := json.Marshal(m)
		pos := f.index[key] + 1
		f.entries = slices.Insert(f.entries, pos, entry{key: metaKey, isMeta: true, raw: raw})
		f.reindex()
	}
	return true
}

// Delete removes key and its metadata. It reports whether key existed.
func (f *File) Delete(key string) bool {
	if idx, ok := f.index[key]; !ok || f.entries[idx].isMeta {
		return false
	}
	f.remove("@" + key)
	f.remove(key)
	return true
}

func (f *File) remove(key string) {
	idx, ok := f.index[key]
	if !ok {
		return
	}
	f.entries = slices.Delete(f.entries, idx, idx+1)
	f.reindex()
}

func (f *File) reindex() {
	clear(f.index)
	for i, e := range f.entries {
		f.index[e.key] = i
	}
}

// ---------------------------------------------------------------------------
// Serialization
// ---------------------------------------------------------------------------

// Marshal serialises the file to JSON with 2-space indentation. @@locale
// is always written first.
func (f *File) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{")
	sep := "\n"
	if f.locale != "" {
		buf.WriteString(sep + `  "@@locale": `)
		buf.Write(marshalString(f.locale))
		sep = ",\n"
	}

	for _, e := range f.entries {
		buf.WriteString(sep + "  ")
		buf.Write(marshalString(e.key))
		buf.WriteString(": ")
		sep = ",\n"

		if !e.isMeta {
			buf.Write(marshalString(e.value))
			continue
		}
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, e.raw, "  ", "  "); err != nil {
			return nil, fmt.Errorf("metadata %s: %w", e.key, err)
		}
		buf.Write(pretty.Bytes())
	}

	buf.WriteString("\n}\n")
	return buf.Bytes(), nil
}

// marshalString encodes s as a JSON string, leaving <, > and & as they are.
func marshalString(s string) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
}

// WriteFile serialises and writes to path.
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

// SplitName splits "app_pt_BR.arb" into bundle "app" and language
// "pt_BR". Names without a language part are not localizations.
func SplitName(name string) (bundle, lang string, ok bool) {
	stem, found := strings.CutSuffix(name, ".arb")
	if !found {
		return "", "", false
	}
	bundle, lang, found = strings.Cut(stem, "_")
	if !found || bundle == "" || lang == "" {
		return "", "", false
	}
	return bundle, lang, true
}
