// Package store holds the normalized localization model shared by the
// index, the session and the providers: groups of per-language files and
// their entries.
//
// The types carry no behavior beyond lookups. They are created by a
// Provider when a directory is scanned and mutated only through it.
package store

import (
	"context"
	"errors"
	"strings"
)

// Entry is a single translated string.
type Entry struct {
	// Key identifies the string; unique within a Localization.
	Key string
	// Value is the translation; empty means untranslated.
	Value string
	// Message is the developer comment attached to the key, if any.
	Message string
}

// Localization is one language's view of a Group.
type Localization struct {
	// Language is the identifier as found on disk ("Base", "en", "pt-BR").
	Language string
	// Path is the backing file.
	Path string
	// Format names the provider format that owns Path.
	Format string
	// Entries in document order.
	Entries []*Entry
}

// Entry returns the entry for key, or nil.
func (l *Localization) Entry(key string) *Entry {
	for _, e := range l.Entries {
		if e.Key == key {
			return e
		}
	}
	return nil
}

// Keys returns the entry keys in document order.
func (l *Localization) Keys() []string {
	keys := make([]string, 0, len(l.Entries))
	for _, e := range l.Entries {
		keys = append(keys, e.Key)
	}
	return keys
}

// Group is one logical localization table spanning several languages.
type Group struct {
	// Name is unique within a loaded set.
	Name string
	// Localizations in stored order.
	Localizations []*Localization
}

// Localization returns the localization for language (exact match), or nil.
func (g *Group) Localization(language string) *Localization {
	for _, l := range g.Localizations {
		if l.Language == language {
			return l
		}
	}
	return nil
}

// Languages returns the language identifiers in stored order.
func (g *Group) Languages() []string {
	langs := make([]string, 0, len(g.Localizations))
	for _, l := range g.Localizations {
		langs = append(langs, l.Language)
	}
	return langs
}

// FindGroup returns the group named name, or nil.
func FindGroup(groups []*Group, name string) *Group {
	for _, g := range groups {
		if g.Name == name {
			return g
		}
	}
	return nil
}

// IsBase reports whether language names the base localization.
func IsBase(language, baseName string) bool {
	if baseName == "" {
		baseName = DefaultBaseLanguage
	}
	return strings.EqualFold(language, baseName)
}

// DefaultBaseLanguage is the language name preferred as the master key set.
const DefaultBaseLanguage = "base"

// Provider is the file-system collaborator consumed by the session.
type Provider interface {
	// Localizations scans root and returns its groups. It returns an empty
	// list, not an error, when nothing is found.
	Localizations(ctx context.Context, root string) ([]*Group, error)
	// Update persists value (and message, when non-nil) for key, creating
	// the entry if the localization does not have it yet.
	Update(loc *Localization, key, value string, message *string) (*Entry, error)
	// DeleteKey removes key from loc. Deleting a missing key is not an error.
	DeleteKey(loc *Localization, key string) error
	// AddKey creates an empty entry for key with an optional message.
	AddKey(loc *Localization, key string, message *string) (*Entry, error)
}

var (
	// ErrNotFound reports a group, language or row that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrEmptyDataset reports a scan that produced no groups.
	ErrEmptyDataset = errors.New("no localization data found")
	// ErrRowOutOfRange reports a row index with no key behind it.
	ErrRowOutOfRange = errors.New("row out of range")
	// ErrEmptyGroup reports a group without localizations.
	ErrEmptyGroup = errors.New("group has no localizations")
	// ErrUnknownLocalization reports a localization the provider did not load.
	ErrUnknownLocalization = errors.New("unknown localization")
)
