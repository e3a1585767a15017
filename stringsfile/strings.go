// Package stringsfile implements reading and writing of Apple .strings
// localization tables.
//
// Format: one `"key" = "value";` pair per entry. Keys may also be bare
// identifiers. Block (`/* */`) and line (`//`) comments are allowed
// anywhere; the comment immediately preceding an entry is its developer
// message, other comments are kept verbatim in place.
//
// File naming convention: each language is a directory next to the others:
//
//	Resources/Base.lproj/Localizable.strings
//	Resources/fr.lproj/Localizable.strings
package stringsfile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
)

// ---------------------------------------------------------------------------
// File model
// ---------------------------------------------------------------------------

type itemKind int

const (
	itemEntry   itemKind = iota // key = value pair
	itemComment                 // free-standing comment, raw text
)

type item struct {
	kind    itemKind
	raw     string // itemComment only
	key     string
	value   string
	comment string
	// lineComment records whether comment was written with //.
	lineComment bool
}

// File represents a parsed .strings file.
type File struct {
	items []item
	// index maps key → index in items.
	index map[string]int
}

// New returns an empty file.
func New() *File {
	return &File{index: make(map[string]int)}
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// ParseFile reads and parses a .strings file from disk.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return f, nil
}

// Parse parses .strings content. A UTF-8 byte order mark is ignored.
func Parse(data []byte) (*File, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	f := New()
	s := &scanner{src: []rune(string(data)), line: 1}

	// pending holds comments seen since the last entry.
	var pending []token
	flushPending := func(keep int) {
		for _, c := range pending[:keep] {
			f.items = append(f.items, item{kind: itemComment, raw: c.raw})
		}
	}

	for {
		tok, err := s.next()
		if err != nil {
			return nil, err
		}
		switch tok.kind {
		case tokEOF:
			flushPending(len(pending))
			return f, nil
		case tokComment:
			pending = append(pending, tok)
			continue
		case tokString:
		default:
			return nil, fmt.Errorf("line %d: expected key, got %q", tok.line, tok.text)
		}

		key := tok.text
		if err := s.expect(tokEquals); err != nil {
			return nil, err
		}
		val, err := s.next()
		if err != nil {
			return nil, err
		}
		if val.kind != tokString {
			return nil, fmt.Errorf("line %d: expected value for %q", val.line, key)
		}
		if err := s.expect(tokSemicolon); err != nil {
			return nil, err
		}

		it := item{kind: itemEntry, key: key, value: val.text}
		if n := len(pending); n > 0 {
			flushPending(n - 1)
			it.comment = pending[n-1].text
			it.lineComment = strings.HasPrefix(pending[n-1].raw, "//")
		}
		pending = pending[:0]

		if idx, dup := f.index[key]; dup {
			// Duplicate key: last value wins, position is kept.
			f.items[idx].value = it.value
			continue
		}
		f.index[key] = len(f.items)
		f.items = append(f.items, it)
	}
}

type tokKind int

const (
	tokEOF tokKind = iota
	tokString
	tokEquals
	tokSemicolon
	tokComment
)

type token struct {
	kind tokKind
	text string // unescaped string or trimmed comment body
	raw  string // comment source text
	line int
}

type scanner struct {
	src  []rune
	pos  int
	line int
}

func (s *scanner) peek(off int) rune {
	if s.pos+off >= len(s.src) {
		return 0
	}
	return s.src[s.pos+off]
}

func (s *scanner) advance() rune {
	r := s.src[s.pos]
	s.pos++
	if r == '\n' {
		s.line++
	}
	return r
}

func (s *scanner) expect(kind tokKind) error {
	tok, err := s.next()
	if err != nil {
		return err
	}
	if tok.kind != kind {
		want := map[tokKind]string{tokEquals: "=", tokSemicolon: ";"}[kind]
		return fmt.Errorf("line %d: expected %q", tok.line, want)
	}
	return nil
}

func (s *scanner) next() (token, error) {
	for s.pos < len(s.src) && unicode.IsSpace(s.src[s.pos]) {
		s.advance()
	}
	if s.pos >= len(s.src) {
		return token{kind: tokEOF, line: s.line}, nil
	}

	line := s.line
	start := s.pos
	switch r := s.peek(0); {
	case r == '=':
		s.advance()
		return token{kind: tokEquals, text: "=", line: line}, nil
	case r == ';':
		s.advance()
		return token{kind: tokSemicolon, text: ";", line: line}, nil
	case r == '/' && s.peek(1) == '*':
		s.pos += 2
		for s.pos < len(s.src) && !(s.peek(0) == '*' && s.peek(1) == '/') {
			s.advance()
		}
		if s.pos >= len(s.src) {
			return token{}, fmt.Errorf("line %d: unterminated comment", line)
		}
		s.pos += 2
		raw := string(s.src[start:s.pos])
		body := strings.TrimSpace(raw[2 : len(raw)-2])
		return token{kind: tokComment, text: body, raw: raw, line: line}, nil
	case r == '/' && s.peek(1) == '/':
		for s.pos < len(s.src) && s.peek(0) != '\n' {
			s.advance()
		}
		raw := string(s.src[start:s.pos])
		return token{kind: tokComment, text: strings.TrimSpace(raw[2:]), raw: raw, line: line}, nil
	case r == '"':
		text, err := s.quoted()
		if err != nil {
			return token{}, err
		}
		return token{kind: tokString, text: text, line: line}, nil
	case isBare(r):
		for s.pos < len(s.src) && isBare(s.peek(0)) {
			s.advance()
		}
		return token{kind: tokString, text: string(s.src[start:s.pos]), line: line}, nil
	default:
		return token{}, fmt.Errorf("line %d: unexpected character %q", line, r)
	}
}

func isBare(r rune) bool {
	return r == '_' || r == '.' || r == '-' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// quoted reads a double-quoted string starting at the opening quote.
func (s *scanner) quoted() (string, error) {
	line := s.line
	s.advance()
	var b strings.Builder
	for {
		if s.pos >= len(s.src) {
			return "", fmt.Errorf("line %d: unterminated string", line)
		}
		r := s.advance()
		switch r {
		case '"':
			return b.String(), nil
		case '\\':
			if s.pos >= len(s.src) {
				return "", fmt.Errorf("line %d: unterminated string", line)
			}
			esc := s.advance()
			switch esc {
			case 'n':
				b.WriteRune('\n')
			case 't':
				b.WriteRune('\t')
			case 'r':
				b.WriteRune('\r')
			case 'U', 'u':
				r, err := s.hex4()
				if err != nil {
					return "", err
				}
				// A UTF-16 surrogate pair is written as two escapes.
				if utf16.IsSurrogate(r) && s.pos+6 <= len(s.src) && s.src[s.pos] == '\\' &&
					(s.src[s.pos+1] == 'U' || s.src[s.pos+1] == 'u') {
					save := s.pos
					s.pos += 2
					low, err := s.hex4()
					if pair := utf16.DecodeRune(r, low); err == nil && pair != unicode.ReplacementChar {
						r = pair
					} else {
						s.pos = save
					}
				}
				b.WriteRune(r)
			default:
				// \" \\ \' and unknown escapes keep the escaped rune.
				b.WriteRune(esc)
			}
		default:
			b.WriteRune(r)
		}
	}
}

// hex4 reads the four hex digits of a \U escape.
func (s *scanner) hex4() (rune, error) {
	if s.pos+4 > len(s.src) {
		return 0, fmt.Errorf("line %d: short unicode escape", s.line)
	}
	code, err := strconv.ParseUint(string(s.src[s.pos:s.pos+4]), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("line %d: bad unicode escape: %w", s.line, err)
	}
	s.pos += 4
	return rune(code), nil
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Keys returns all keys in document order.
func (f *File) Keys() []string {
	keys := make([]string, 0, len(f.index))
	for _, it := range f.items {
		if it.kind == itemEntry {
			keys = append(keys, it.key)
		}
	}
	return keys
}

// Lookup returns the value and comment for key.
func (f *File) Lookup(key string) (value, comment string, ok bool) {
	idx, ok := f.index[key]
	if !ok {
		return "", "", false
	}
	it := f.items[idx]
	return it.value, it.comment, true
}

// Set sets the value for key, appending a new entry if needed.
func (f *File) Set(key, value string) {
	if idx, ok := f.index[key]; ok {
		f.items[idx].value = value
		return
	}
	f.index[key] = len(f.items)
	f.items = append(f.items, item{kind: itemEntry, key: key, value: value})
}

// SetComment replaces the comment of an existing key.
func (f *File) SetComment(key, comment string) bool {
	idx, ok := f.index[key]
	if !ok {
		return false
	}
	f.items[idx].comment = comment
	if strings.Contains(comment, "\n") {
		f.items[idx].lineComment = false
	}
	return true
}

// Delete removes key together with its comment.
func (f *File) Delete(key string) bool {
	idx, ok := f.index[key]
	if !ok {
		return false
	}
	f.items = append(f.items[:idx], f.items[idx+1:]...)
	f.reindex()
	return true
}

func (f *File) reindex() {
	f.index = make(map[string]int, len(f.items))
	for i, it := range f.items {
		if it.kind == itemEntry {
			f.index[it.key] = i
		}
	}
}

// ---------------------------------------------------------------------------
// Serialization
// ---------------------------------------------------------------------------

// Marshal serialises the file back to .strings format.
func (f *File) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	for i, it := range f.items {
		if it.kind == itemComment {
			buf.WriteString(it.raw)
			buf.WriteByte('\n')
			continue
		}
		switch {
		case it.comment == "":
		case it.lineComment:
			buf.WriteString("// " + it.comment + "\n")
		default:
			buf.WriteString("/* " + strings.ReplaceAll(it.comment, "*/", "* /") + " */\n")
		}
		buf.WriteString(quote(it.key))
		buf.WriteString(" = ")
		buf.WriteString(quote(it.value))
		buf.WriteString(";\n")
		if i < len(f.items)-1 {
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes(), nil
}

// WriteFile serialises and writes to path, creating parent directories.
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

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, "\t", `\t`)
	s = strings.ReplaceAll(s, "\r", `\r`)
	return `"` + s + `"`
}

// ---------------------------------------------------------------------------
// Naming
// ---------------------------------------------------------------------------

// LanguageFromDir returns the language of a "<lang>.lproj" directory.
func LanguageFromDir(dir string) (string, bool) {
	base := filepath.Base(dir)
	lang, ok := strings.CutSuffix(base, ".lproj")
	if !ok || lang == "" {
		return "", false
	}
	return lang, true
}
