// Package pofile implements reading and writing of PO files following the
// GNU gettext format.
//
// Entries are addressed by key: the msgid, or "msgctxt|msgid" when the
// entry has a context. The header entry (msgid "") and obsolete entries
// (#~) are preserved on write but are not addressable.
//
// A context entry and a plain msgid containing "|" can map to the same
// key; Parse rejects such files.
package pofile

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
)

// ContextSeparator joins msgctxt and msgid in entry keys.
const ContextSeparator = "|"

// Entry represents a single translatable message in a PO file.
type Entry struct {
	// TranslatorComments are lines starting with "# ".
	TranslatorComments []string
	// ExtractedComments are lines starting with "#."; they hold the
	// developer message shown to translators.
	ExtractedComments []string
	// References are source code locations, lines starting with "#:".
	References []string
	// Flags are format flags, lines starting with "#,".
	Flags []string
	// PreviousMsgID stores the previous msgid for fuzzy entries, lines starting with "#|".
	PreviousMsgID string

	MsgCtxt      string
	MsgID        string
	MsgIDPlural  string
	MsgStr       string
	MsgStrPlural map[int]string

	// Obsolete marks entries prefixed with "#~".
	Obsolete bool
}

// Key returns the address of the entry.
func (e *Entry) Key() string {
	if e.MsgCtxt != "" {
		return e.MsgCtxt + ContextSeparator + e.MsgID
	}
	return e.MsgID
}

// Value returns the translation: msgstr, or msgstr[0] for plural entries.
func (e *Entry) Value() string {
	if e.MsgIDPlural != "" {
		return e.MsgStrPlural[0]
	}
	return e.MsgStr
}

func (e *Entry) setValue(v string) {
	if e.MsgIDPlural != "" {
		if e.MsgStrPlural == nil {
			e.MsgStrPlural = make(map[int]string)
		}
		e.MsgStrPlural[0] = v
		return
	}
	e.MsgStr = v
}

// File represents a parsed PO file.
type File struct {
	// Header is the metadata entry (msgid "").
	Header *Entry
	// Entries are the message entries in document order, obsolete ones included.
	Entries []*Entry

	index map[string]*Entry
}

// NewFile creates a new empty PO file.
func NewFile() *File {
	return &File{
		Header: &Entry{MsgStr: "Content-Type: text/plain; charset=UTF-8\n"},
		index:  make(map[string]*Entry),
	}
}

// HeaderField returns a header field value by name.
func (f *File) HeaderField(name string) string {
	if f.Header == nil {
		return ""
	}
	for _, line := range strings.Split(f.Header.MsgStr, "\n") {
		if idx := strings.Index(line, ":"); idx > 0 {
			key := strings.TrimSpace(line[:idx])
			if strings.EqualFold(key, name) {
				return strings.TrimSpace(line[idx+1:])
			}
		}
	}
	return ""
}

// ---------------------------------------------------------------------------
// Document access
// ---------------------------------------------------------------------------

// Keys returns the keys of all live entries in document order.
func (f *File) Keys() []string {
	keys := make([]string, 0, len(f.index))
	for _, e := range f.Entries {
		if !e.Obsolete {
			keys = append(keys, e.Key())
		}
	}
	return keys
}

// Lookup returns the translation and extracted comment for key.
func (f *File) Lookup(key string) (value, comment string, ok bool) {
	e, ok := f.index[key]
	if !ok {
		return "", "", false
	}
	return e.Value(), strings.Join(e.ExtractedComments, "\n"), true
}

// Set sets the translation of key, appending a new entry (without context)
// if there is none.
func (f *File) Set(key, value string) {
	if e, ok := f.index[key]; ok {
		e.setValue(value)
		return
	}
	e := &Entry{MsgID: key, MsgStr: value}
	f.Entries = append(f.Entries, e)
	f.index[key] = e
}

// SetComment replaces the extracted comments of key.
func (f *File) SetComment(key, comment string) bool {
	e, ok := f.index[key]
	if !ok {
		return false
	}
	e.ExtractedComments = nil
	if comment != "" {
		e.ExtractedComments = strings.Split(comment, "\n")
	}
	return true
}

// Delete removes the entry for key.
func (f *File) Delete(key string) bool {
	e, ok := f.index[key]
	if !ok {
		return false
	}
	f.Entries = slices.DeleteFunc(f.Entries, func(x *Entry) bool { return x == e })
	delete(f.index, key)
	return true
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// Parse reads a PO file from a reader.
func Parse(r io.Reader) (*File, error) {
	f := &File{index: make(map[string]*Entry)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	var current *Entry
	var lastField string // tracks the last msgid/msgstr/etc. field for multiline strings
	lineNum := 0

	flush := func() error {
		if current == nil {
			return nil
		}
		switch {
		case current.MsgID == "" && !current.Obsolete:
			f.Header = current
		case current.Obsolete:
			f.Entries = append(f.Entries, current)
		default:
			key := current.Key()
			if prev, dup := f.index[key]; dup {
				if prev.MsgCtxt != current.MsgCtxt {
					return fmt.Errorf("line %d: key %q is ambiguous: msgctxt %q with msgid %q collides with msgctxt %q with msgid %q",
						lineNum, key, prev.MsgCtxt, prev.MsgID, current.MsgCtxt, current.MsgID)
				}
				// Duplicate message: last translation wins.
				prev.setValue(current.Value())
			} else {
				f.Entries = append(f.Entries, current)
				f.index[key] = current
			}
		}
		current = nil
		lastField = ""
		return nil
	}

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		// Empty line separates entries
		if strings.TrimSpace(line) == "" {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}

		if current == nil {
			current = &Entry{}
		}

		if strings.HasPrefix(line, "#~") {
			current.Obsolete = true
			line = strings.TrimPrefix(line[2:], " ")
		}

		if strings.HasPrefix(line, "#") {
			switch {
			case strings.HasPrefix(line, "#:"):
				current.References = append(current.References, strings.TrimSpace(line[2:]))
			case strings.HasPrefix(line, "#,"):
				for _, flag := range strings.Split(line[2:], ",") {
					if flag = strings.TrimSpace(flag); flag != "" {
						current.Flags = append(current.Flags, flag)
					}
				}
			case strings.HasPrefix(line, "#."):
				current.ExtractedComments = append(current.ExtractedComments, strings.TrimSpace(line[2:]))
			case strings.HasPrefix(line, "#|"):
				prev := strings.TrimSpace(line[2:])
				if strings.HasPrefix(prev, "msgid ") {
					current.PreviousMsgID = unquote(strings.TrimPrefix(prev, "msgid "))
				}
			default:
				current.TranslatorComments = append(current.TranslatorComments, strings.TrimPrefix(line[1:], " "))
			}
			continue
		}

		switch {
		case strings.HasPrefix(line, "msgctxt "):
			current.MsgCtxt = unquote(strings.TrimPrefix(line, "msgctxt "))
			lastField = "msgctxt"

		case strings.HasPrefix(line, "msgid_plural "):
			current.MsgIDPlural = unquote(strings.TrimPrefix(line, "msgid_plural "))
			lastField = "msgid_plural"

		case strings.HasPrefix(line, "msgid "):
			current.MsgID = unquote(strings.TrimPrefix(line, "msgid "))
			lastField = "msgid"

		case strings.HasPrefix(line, "msgstr["):
			var idx int
			n, err := fmt.Sscanf(line, "msgstr[%d]", &idx)
			if err != nil || n != 1 {
				return nil, fmt.Errorf("line %d: invalid msgstr index: %s", lineNum, line)
			}
			bracketEnd := strings.Index(line, "] ")
			if bracketEnd < 0 {
				return nil, fmt.Errorf("line %d: invalid msgstr format: %s", lineNum, line)
			}
			if current.MsgStrPlural == nil {
				current.MsgStrPlural = make(map[int]string)
			}
			current.MsgStrPlural[idx] = unquote(line[bracketEnd+2:])
			lastField = fmt.Sprintf("msgstr[%d]", idx)

		case strings.HasPrefix(line, "msgstr "):
			current.MsgStr = unquote(strings.TrimPrefix(line, "msgstr "))
			lastField = "msgstr"

		case strings.HasPrefix(strings.TrimSpace(line), "\""):
			val := unquote(line)
			switch {
			case lastField == "msgctxt":
				current.MsgCtxt += val
			case lastField == "msgid":
				current.MsgID += val
			case lastField == "msgid_plural":
				current.MsgIDPlural += val
			case lastField == "msgstr":
				current.MsgStr += val
			case strings.HasPrefix(lastField, "msgstr["):
				var idx int
				fmt.Sscanf(lastField, "msgstr[%d]", &idx)
				current.MsgStrPlural[idx] += val
			default:
				return nil, fmt.Errorf("line %d: string without keyword", lineNum)
			}

		default:
			return nil, fmt.Errorf("line %d: unexpected %q", lineNum, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading PO file: %w", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}

	return f, nil
}

// ParseFile reads a PO file from disk.
func ParseFile(path string) (*File, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	f, err := Parse(in)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return f, nil
}

// ---------------------------------------------------------------------------
// Writing
// ---------------------------------------------------------------------------

// Write writes the PO file to a writer.
func (f *File) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)

	first := true
	if f.Header != nil {
		writeEntry(bw, f.Header)
		first = false
	}
	for _, e := range f.Entries {
		if !first {
			fmt.Fprintln(bw)
		}
		writeEntry(bw, e)
		first = false
	}

	return bw.Flush()
}

// Marshal returns the serialized file.
func (f *File) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes the PO file to disk.
func (f *File) WriteFile(path string) error {
	data, err := f.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func writeEntry(w *bufio.Writer, e *Entry) {
	prefix := ""
	if e.Obsolete {
		prefix = "#~ "
	}

	for _, c := range e.TranslatorComments {
		fmt.Fprintf(w, "# %s\n", c)
	}
	for _, c := range e.ExtractedComments {
		fmt.Fprintf(w, "#. %s\n", c)
	}
	for _, ref := range e.References {
		fmt.Fprintf(w, "#: %s\n", ref)
	}
	if len(e.Flags) > 0 {
		fmt.Fprintf(w, "#, %s\n", strings.Join(e.Flags, ", "))
	}
	if e.PreviousMsgID != "" {
		fmt.Fprintf(w, "#| msgid %s\n", quote(e.PreviousMsgID))
	}

	if e.MsgCtxt != "" {
		writeQuotedField(w, prefix, "msgctxt", e.MsgCtxt)
	}
	writeQuotedField(w, prefix, "msgid", e.MsgID)
	if e.MsgIDPlural != "" {
		writeQuotedField(w, prefix, "msgid_plural", e.MsgIDPlural)
	}

	if e.MsgIDPlural != "" && len(e.MsgStrPlural) > 0 {
		indices := make([]int, 0, len(e.MsgStrPlural))
		for idx := range e.MsgStrPlural {
			indices = append(indices, idx)
		}
		slices.Sort(indices)
		for _, idx := range indices {
			writeQuotedField(w, prefix, fmt.Sprintf("msgstr[%d]", idx), e.MsgStrPlural[idx])
		}
	} else {
		writeQuotedField(w, prefix, "msgstr", e.MsgStr)
	}
}

// writeQuotedField writes a PO field with proper multiline quoting.
func writeQuotedField(w *bufio.Writer, prefix, field, value string) {
	if !strings.Contains(value, "\n") {
		fmt.Fprintf(w, "%s%s %s\n", prefix, field, quote(value))
		return
	}

	// Multiline: use empty string on first line
	fmt.Fprintf(w, "%s%s \"\"\n", prefix, field)
	parts := strings.Split(value, "\n")
	for i, part := range parts {
		if i < len(parts)-1 {
			fmt.Fprintf(w, "%s%s\n", prefix, quote(part+"\n"))
		} else if part != "" {
			fmt.Fprintf(w, "%s%s\n", prefix, quote(part))
		}
	}
}

// quote produces a PO-style quoted string.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, "\t", `\t`)
	return `"` + s + `"`
}

// unquote removes PO-style quoting from a string.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s
	}
	s = s[1 : len(s)-1]

	var result strings.Builder
	result.Grow(len(s))

	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n':
				result.WriteByte('\n')
				i++
			case 't':
				result.WriteByte('\t')
				i++
			case '\\':
				result.WriteByte('\\')
				i++
			case '"':
				result.WriteByte('"')
				i++
			default:
				result.WriteByte(s[i])
			}
		} else {
			result.WriteByte(s[i])
		}
	}
	return result.String()
}
