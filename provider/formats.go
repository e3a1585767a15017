package provider

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/minios-linux/locsheet/android"
	"github.com/minios-linux/locsheet/arbfile"
	"github.com/minios-linux/locsheet/pofile"
	"github.com/minios-linux/locsheet/propfile"
	"github.com/minios-linux/locsheet/stringsfile"
)

// Document is a parsed localization file that can be edited and written
// back. Keys are unique within a document.
type Document interface {
	Keys() []string
	Lookup(key string) (value, comment string, ok bool)
	Set(key, value string)
	SetComment(key, comment string) bool
	Delete(key string) bool
	Marshal() ([]byte, error)
}

// Match describes a file recognised by a Format.
type Match struct {
	// Scope is the directory (relative to the scan root) that owns the
	// group; files of the same group share it.
	Scope string
	// Name is the short group name.
	Name string
	// Language as spelled on disk.
	Language string
}

// Format knows how to recognise and parse one file format.
type Format struct {
	Name string
	// Match inspects rel, a path relative to the scan root.
	Match func(rel string) (Match, bool)
	Parse func(path string) (Document, error)
}

// Format names.
const (
	FormatStrings    = "strings"
	FormatProperties = "properties"
	FormatPO         = "po"
	FormatARB        = "arb"
	FormatAndroid    = "android"
)

// Strings handles Apple <lang>.lproj/<Name>.strings tables.
var Strings = Format{
	Name: FormatStrings,
	Match: func(rel string) (Match, bool) {
		if filepath.Ext(rel) != ".strings" {
			return Match{}, false
		}
		lproj := filepath.Dir(rel)
		lang, ok := stringsfile.LanguageFromDir(lproj)
		if !ok {
			return Match{}, false
		}
		return Match{Scope: filepath.Dir(lproj), Name: filepath.Base(rel), Language: lang}, true
	},
	Parse: func(path string) (Document, error) {
		return stringsfile.ParseFile(path)
	},
}

// Properties handles Java ResourceBundle files.
var Properties = Format{
	Name: FormatProperties,
	Match: func(rel string) (Match, bool) {
		bundle, lang, ok := propfile.SplitName(filepath.Base(rel))
		if !ok {
			return Match{}, false
		}
		return Match{Scope: filepath.Dir(rel), Name: bundle + ".properties", Language: lang}, true
	},
	Parse: func(path string) (Document, error) {
		return propfile.ParseFile(path)
	},
}

// PO handles gettext catalogs stored as <dir>/<lang>.po. Templates
// (.pot) are not localizations and are skipped.
var PO = Format{
	Name: FormatPO,
	Match: func(rel string) (Match, bool) {
		if filepath.Ext(rel) != ".po" {
			return Match{}, false
		}
		lang := strings.TrimSuffix(filepath.Base(rel), ".po")
		if lang == "" {
			return Match{}, false
		}
		dir := filepath.Dir(rel)
		return Match{Scope: dir, Name: filepath.Base(dir), Language: lang}, true
	},
	Parse: func(path string) (Document, error) {
		return pofile.ParseFile(path)
	},
}

// ARB handles Flutter <prefix>_<lang>.arb bundles.
var ARB = Format{
	Name: FormatARB,
	Match: func(rel string) (Match, bool) {
		bundle, lang, ok := arbfile.SplitName(filepath.Base(rel))
		if !ok {
			return Match{}, false
		}
		return Match{Scope: filepath.Dir(rel), Name: bundle + ".arb", Language: lang}, true
	},
	Parse: func(path string) (Document, error) {
		return arbfile.ParseFile(path)
	},
}

// Android handles res/values[-<qualifier>]/strings.xml. The default
// values/ directory is the "base" language.
var Android = Format{
	Name: FormatAndroid,
	Match: func(rel string) (Match, bool) {
		if filepath.Base(rel) != android.FileName {
			return Match{}, false
		}
		values := filepath.Dir(rel)
		lang, ok := android.LanguageFromDir(values)
		if !ok {
			return Match{}, false
		}
		return Match{Scope: filepath.Dir(values), Name: android.FileName, Language: lang}, true
	},
	Parse: func(path string) (Document, error) {
		return android.ParseFile(path)
	},
}

// Formats returns every supported format.
func Formats() []Format {
	return []Format{Strings, Properties, PO, ARB, Android}
}

// FormatNames returns the names of every supported format.
func FormatNames() []string {
	names := make([]string, 0, 5)
	for _, f := range Formats() {
		names = append(names, f.Name)
	}
	return names
}

// ByName resolves format names. An empty list selects every format.
func ByName(names []string) ([]Format, error) {
	if len(names) == 0 {
		return Formats(), nil
	}
	var out []Format
	for _, name := range names {
		i := slices.IndexFunc(Formats(), func(f Format) bool { return f.Name == name })
		if i < 0 {
			return nil, fmt.Errorf("unknown format %q (supported: %s)", name, strings.Join(FormatNames(), ", "))
		}
		if !slices.ContainsFunc(out, func(f Format) bool { return f.Name == name }) {
			out = append(out, Formats()[i])
		}
	}
	return out, nil
}
