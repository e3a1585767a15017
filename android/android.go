// Package android implements reading and writing of Android strings.xml
// resource files.
//
// Only <string> resources are addressable: the key is the name attribute
// and the developer message is the XML comment directly above the
// element. <string-array>, <plurals>, resources marked
// translatable="false" and any other resource elements are kept and
// written back unchanged.
//
// Layout: res/values/strings.xml holds the default language, translations
// live in res/values-<qualifier>/strings.xml (values-fr, values-pt-rBR,
// values-b+sr+Latn).
package android

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// ---------------------------------------------------------------------------
// Data model
// ---------------------------------------------------------------------------

// EntryKind identifies the type of a resource entry.
type EntryKind int

const (
	// KindString is a plain <string> resource.
	KindString EntryKind = iota
	// KindStringArray is a <string-array> resource.
	KindStringArray
	// KindPlurals is a <plurals> resource.
	KindPlurals
	// KindComment is an XML comment between resources.
	KindComment
	// KindOther is any other resource element, kept as raw XML.
	KindOther
)

// Entry is one item of a strings.xml file.
type Entry struct {
	Kind EntryKind
	// Name is the resource name; empty for comments.
	Name         string
	Translatable bool
	// Attrs is the attribute list as written in the source, kept so that
	// attributes like formatted or tools:ignore survive a rewrite.
	Attrs string

	// Value of a KindString, apostrophes unescaped.
	Value    string
	UseCDATA bool

	// Items of a KindStringArray.
	Items     []string
	ItemCDATA []bool

	// Plural forms of a KindPlurals, in file order.
	PluralOrder []string
	Plurals     map[string]string
	PluralCDATA map[string]bool

	// Comment text of a KindComment, without <!-- -->.
	Comment string

	// Raw source of a KindOther element.
	Raw string
}

func (e *Entry) addressable() bool {
	return e.Kind == KindString && e.Translatable
}

// File is a parsed strings.xml file.
type File struct {
	// RootAttrs are the attributes of <resources>, namespace declarations
	// included.
	RootAttrs string
	Entries   []*Entry
	// index maps <string> names to positions in Entries.
	index map[string]int
}

// New returns an empty resources file.
func New() *File {
	return &File{index: make(map[string]int)}
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// ParseFile reads and parses a strings.xml file from disk.
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

// encoding/xml unwraps CDATA into plain character data, so the sections
// are located before decoding to restore them on write.
var (
	reStringCDATA = regexp.MustCompile(`<string\s[^>]*name="([^"]+)"[^>]*>\s*<!\[CDATA\[`)
	reArrayBlock  = regexp.MustCompile(`(?s)<string-array\s[^>]*name="([^"]+)"[^>]*>(.*?)</string-array>`)
	reArrayItem   = regexp.MustCompile(`(?s)<item[^>]*>\s*(<!\[CDATA\[)?`)
	rePluralBlock = regexp.MustCompile(`(?s)<plurals\s[^>]*name="([^"]+)"[^>]*>(.*?)</plurals>`)
	rePluralCDATA = regexp.MustCompile(`<item\s[^>]*quantity="([^"]+)"[^>]*>\s*<!\[CDATA\[`)
)

// cdataSet holds "name", "name[i]" and "name#quantity" for every resource
// or item whose text was a CDATA section.
type cdataSet map[string]bool

func scanCDATA(data []byte) cdataSet {
	set := cdataSet{}
	s := string(data)
	for _, m := range reStringCDATA.FindAllStringSubmatch(s, -1) {
		set[m[1]] = true
	}
	for _, m := range reArrayBlock.FindAllStringSubmatch(s, -1) {
		for i, item := range reArrayItem.FindAllStringSubmatch(m[2], -1) {
			if item[1] != "" {
				set[fmt.Sprintf("%s[%d]", m[1], i)] = true
			}
		}
	}
	for _, m := range rePluralBlock.FindAllStringSubmatch(s, -1) {
		for _, q := range rePluralCDATA.FindAllStringSubmatch(m[2], -1) {
			set[m[1]+"#"+q[1]] = true
		}
	}
	return set
}

// Parse parses strings.xml content.
func Parse(data []byte) (*File, error) {
	f := New()
	if len(bytes.TrimSpace(data)) == 0 {
		return f, nil
	}
	p := &parser{
		dec:      xml.NewDecoder(bytes.NewReader(data)),
		cdata:    scanCDATA(data),
		prefixes: map[string]string{xmlNamespace: "xml"},
	}
	inResources := false

	for {
		off := p.dec.InputOffset()
		tok, err := p.dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing XML: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			p.bind(t)
			if t.Name.Local == "resources" {
				inResources = true
				f.RootAttrs = p.renderAttrs(t.Attr)
				continue
			}
			if !inResources {
				continue
			}
			var e *Entry
			switch t.Name.Local {
			case "string":
				e, err = p.parseString(t)
			case "string-array":
				e, err = p.parseArray(t)
			case "plurals":
				e, err = p.parsePlurals(t)
			default:
				if err = p.dec.Skip(); err == nil {
					raw := strings.TrimSpace(string(data[off:p.dec.InputOffset()]))
					e = &Entry{Kind: KindOther, Raw: raw}
				}
			}
			if err != nil {
				return nil, err
			}
			if e != nil {
				f.add(e)
			}

		case xml.Comment:
			if text := strings.TrimSpace(string(t)); inResources && text != "" {
				f.add(&Entry{Kind: KindComment, Comment: text})
			}

		case xml.EndElement:
			if t.Name.Local == "resources" {
				inResources = false
			}
		}
	}
	return f, nil
}

func (f *File) add(e *Entry) {
	if e.Kind == KindString {
		if idx, dup := f.index[e.Name]; dup {
			f.Entries[idx] = e
			return
		}
		f.index[e.Name] = len(f.Entries)
	}
	f.Entries = append(f.Entries, e)
}

const xmlNamespace = "http://www.w3.org/XML/1998/namespace"

type parser struct {
	dec   *xml.Decoder
	cdata cdataSet
	// prefixes maps namespace URLs back to the prefixes declared for them.
	prefixes map[string]string
}

func (p *parser) bind(elem xml.StartElement) {
	for _, a := range elem.Attr {
		if a.Name.Space == "xmlns" {
			p.prefixes[a.Value] = a.Name.Local
		}
	}
}

// qualified spells n the way it appeared in the source, e.g. xliff:g.
func (p *parser) qualified(n xml.Name) string {
	switch {
	case n.Space == "":
		return n.Local
	case p.prefixes[n.Space] != "":
		return p.prefixes[n.Space] + ":" + n.Local
	default:
		return n.Space + ":" + n.Local
	}
}

func (p *parser) renderAttrs(list []xml.Attr) string {
	var b strings.Builder
	for i, a := range list {
		if i > 0 {
			b.WriteString(" ")
		}
		name := p.qualified(a.Name)
		if a.Name.Space == "xmlns" {
			name = "xmlns:" + a.Name.Local
		}
		b.WriteString(name + `="` + escapeAttr(a.Value) + `"`)
	}
	return b.String()
}

func attrs(elem xml.StartElement) (name string, translatable bool) {
	translatable = true
	for _, a := range elem.Attr {
		switch a.Name.Local {
		case "name":
			name = a.Value
		case "translatable":
			translatable = !strings.EqualFold(a.Value, "false")
		}
	}
	return name, translatable
}

func (p *parser) parseString(elem xml.StartElement) (*Entry, error) {
	name, translatable := attrs(elem)
	value, err := p.readContent()
	if err != nil {
		return nil, fmt.Errorf("reading <string name=%q>: %w", name, err)
	}
	return &Entry{
		Kind:         KindString,
		Name:         name,
		Translatable: translatable,
		Attrs:        p.renderAttrs(elem.Attr),
		Value:        value,
		UseCDATA:     p.cdata[name],
	}, nil
}

func (p *parser) parseArray(elem xml.StartElement) (*Entry, error) {
	name, translatable := attrs(elem)
	e := &Entry{Kind: KindStringArray, Name: name, Translatable: translatable, Attrs: p.renderAttrs(elem.Attr)}
	err := p.readItems(func(item xml.StartElement) error {
		v, err := p.readContent()
		if err != nil {
			return err
		}
		e.ItemCDATA = append(e.ItemCDATA, p.cdata[fmt.Sprintf("%s[%d]", name, len(e.Items))])
		e.Items = append(e.Items, v)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading <string-array name=%q>: %w", name, err)
	}
	return e, nil
}

func (p *parser) parsePlurals(elem xml.StartElement) (*Entry, error) {
	name, translatable := attrs(elem)
	e := &Entry{
		Kind:         KindPlurals,
		Name:         name,
		Translatable: translatable,
		Attrs:        p.renderAttrs(elem.Attr),
		Plurals:      make(map[string]string),
		PluralCDATA:  make(map[string]bool),
	}
	err := p.readItems(func(item xml.StartElement) error {
		var quantity string
		for _, a := range item.Attr {
			if a.Name.Local == "quantity" {
				quantity = a.Value
			}
		}
		v, err := p.readContent()
		if err != nil || quantity == "" {
			return err
		}
		if _, seen := e.Plurals[quantity]; !seen {
			e.PluralOrder = append(e.PluralOrder, quantity)
		}
		e.Plurals[quantity] = v
		e.PluralCDATA[quantity] = p.cdata[name+"#"+quantity]
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading <plurals name=%q>: %w", name, err)
	}
	return e, nil
}

// readItems calls fn for every direct <item> child until the enclosing
// element closes.
func (p *parser) readItems(fn func(xml.StartElement) error) error {
	for {
		tok, err := p.dec.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "item" {
				if err := p.dec.Skip(); err != nil {
					return err
				}
				continue
			}
			if err := fn(t); err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		}
	}
}

// readContent returns the inner text of the current element. Inline markup
// such as <b> or <xliff:g> is kept as raw text.
func (p *parser) readContent() (string, error) {
	var b strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := p.dec.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			b.WriteString(unescapeApostrophe(string(t)))
		case xml.StartElement:
			depth++
			b.WriteString("<" + p.qualified(t.Name))
			if len(t.Attr) > 0 {
				b.WriteString(" " + p.renderAttrs(t.Attr))
			}
			b.WriteString(">")
		case xml.EndElement:
			depth--
			if depth > 0 {
				b.WriteString("</" + p.qualified(t.Name) + ">")
			}
		}
	}
	return b.String(), nil
}

// ---------------------------------------------------------------------------
// Access and mutation
// ---------------------------------------------------------------------------

// Keys returns the translatable <string> names in document order.
func (f *File) Keys() []string {
	var keys []string
	for _, e := range f.Entries {
		if e.addressable() {
			keys = append(keys, e.Name)
		}
	}
	return keys
}

// Lookup returns the value of the string named key and the comment right
// above it.
func (f *File) Lookup(key string) (value, comment string, ok bool) {
	idx, ok := f.index[key]
	if !ok || !f.Entries[idx].addressable() {
		return "", "", false
	}
	if c := f.commentOf(idx); c != nil {
		comment = c.Comment
	}
	return f.Entries[idx].Value, comment, true
}

func (f *File) commentOf(idx int) *Entry {
	if idx > 0 && f.Entries[idx-1].Kind == KindComment {
		return f.Entries[idx-1]
	}
	return nil
}

// Set stores value for key, appending a new <string> when key is new. A
// string marked translatable="false" keeps its flag.
func (f *File) Set(key, value string) {
	if idx, ok := f.index[key]; ok {
		f.Entries[idx].Value = value
		return
	}
	f.add(&Entry{Kind: KindString, Name: key, Translatable: true, Value: value})
}

// SetComment replaces the comment above key, inserting or removing the
// comment element as needed. It reports false when key does not exist.
func (f *File) SetComment(key, comment string) bool {
	idx, ok := f.index[key]
	if !ok || !f.Entries[idx].addressable() {
		return false
	}
	// "--" may not appear inside an XML comment.
	comment = strings.ReplaceAll(strings.TrimSpace(comment), "--", "- -")
	c := f.commentOf(idx)
	switch {
	case c != nil && comment == "":
		f.Entries = slices.Delete(f.Entries, idx-1, idx)
		f.reindex()
	case c != nil:
		c.Comment = comment
	case comment != "":
		f.Entries = slices.Insert(f.Entries, idx, &Entry{Kind: KindComment, Comment: comment})
		f.reindex()
	}
	return true
}

// Delete removes the string named key together with its comment. It
// reports whether key existed.
func (f *File) Delete(key string) bool {
	idx, ok := f.index[key]
	if !ok || !f.Entries[idx].addressable() {
		return false
	}
	from := idx
	if f.commentOf(idx) != nil {
		from--
	}
	f.Entries = slices.Delete(f.Entries, from, idx+1)
	f.reindex()
	return true
}

func (f *File) reindex() {
	clear(f.index)
	for i, e := range f.Entries {
		if e.Kind == KindString {
			f.index[e.Name] = i
		}
	}
}

// ---------------------------------------------------------------------------
// Serialization
// ---------------------------------------------------------------------------

// Marshal renders the file with 4-space indentation.
func (f *File) Marshal() ([]byte, error) {
	var b bytes.Buffer
	b.WriteString("<?xml version=\"1.0\" encoding=\"utf-8\"?>\n<resources")
	if f.RootAttrs != "" {
		b.WriteString(" " + f.RootAttrs)
	}
	b.WriteString(">\n")
	for _, e := range f.Entries {
		switch e.Kind {
		case KindComment:
			fmt.Fprintf(&b, "    <!-- %s -->\n", e.Comment)
		case KindString:
			fmt.Fprintf(&b, "    <string %s>%s</string>\n", nameAttrs(e), encodeValue(e.Value, e.UseCDATA))
		case KindStringArray:
			fmt.Fprintf(&b, "    <string-array %s>\n", nameAttrs(e))
			for i, item := range e.Items {
				cdata := i < len(e.ItemCDATA) && e.ItemCDATA[i]
				fmt.Fprintf(&b, "        <item>%s</item>\n", encodeValue(item, cdata))
			}
			b.WriteString("    </string-array>\n")
		case KindPlurals:
			fmt.Fprintf(&b, "    <plurals %s>\n", nameAttrs(e))
			for _, q := range e.PluralOrder {
				fmt.Fprintf(&b, "        <item quantity=%q>%s</item>\n", q, encodeValue(e.Plurals[q], e.PluralCDATA[q]))
			}
			b.WriteString("    </plurals>\n")
		case KindOther:
			b.WriteString("    " + e.Raw + "\n")
		}
	}
	b.WriteString("</resources>\n")
	return b.Bytes(), nil
}

func nameAttrs(e *Entry) string {
	if e.Attrs != "" {
		return e.Attrs
	}
	return `name="` + escapeAttr(e.Name) + `"`
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

// encodeValue escapes a value for element content. Values carrying
// inline markup are written as they are.
func encodeValue(s string, cdata bool) string {
	if cdata {
		return "<![CDATA[" + escapeApostrophe(s) + "]]>"
	}
	if strings.Contains(s, "<") && strings.Contains(s, ">") {
		return s
	}
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return escapeApostrophe(s)
}

func escapeAttr(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// escapeApostrophe applies the aapt \' rule without doubling existing
// escapes.
func escapeApostrophe(s string) string {
	return strings.ReplaceAll(unescapeApostrophe(s), `'`, `\'`)
}

func unescapeApostrophe(s string) string {
	return strings.ReplaceAll(s, `\'`, `'`)
}

// ---------------------------------------------------------------------------
// Naming
// ---------------------------------------------------------------------------

// FileName is the resource file holding strings.
const FileName = "strings.xml"

// BaseLanguage names the default values/ directory.
const BaseLanguage = "base"

var (
	reValuesDir = regexp.MustCompile(`^values(?:-([a-z]{2,3})(?:-r([A-Z]{2}|[0-9]{3}))?)?$`)
	reValuesBCP = regexp.MustCompile(`^values-b\+([A-Za-z0-9]+(?:\+[A-Za-z0-9]+)*)$`)
)

// LanguageFromDir extracts the language from a values directory name:
// "values" is the base language, "values-pt-rBR" is "pt-BR" and
// "values-b+sr+Latn" is "sr-Latn". Directories with other qualifiers
// (values-night, values-v21) are not localizations.
func LanguageFromDir(dir string) (string, bool) {
	name := filepath.Base(dir)
	if m := reValuesBCP.FindStringSubmatch(name); m != nil {
		return strings.ReplaceAll(m[1], "+", "-"), true
	}
	m := reValuesDir.FindStringSubmatch(name)
	switch {
	case m == nil:
		return "", false
	case m[1] == "":
		return BaseLanguage, true
	case m[2] == "":
		return m[1], true
	default:
		return m[1] + "-" + m[2], true
	}
}
