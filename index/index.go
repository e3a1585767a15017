// Package index builds the key × language lookup table for one selected
// group and computes filtered, sorted views over it.
//
// An Index is derived data: it is rebuilt from scratch whenever a group
// is selected and patched in place by the session's mutations. It is not
// safe for concurrent use.
package index

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/minios-linux/locsheet/store"
)

// SlotState tells apart the three cases of a (key, language) cell.
type SlotState int

const (
	// LanguageUnknown: the language is not part of the selected group.
	LanguageUnknown SlotState = iota
	// KnownAbsent: the language exists but has no entry for the key.
	KnownAbsent
	// Present: the language has an entry for the key.
	Present
)

func (s SlotState) String() string {
	switch s {
	case KnownAbsent:
		return "absent"
	case Present:
		return "present"
	default:
		return "unknown"
	}
}

// Slot is one cell of the lookup table.
type Slot struct {
	State SlotState
	Entry *store.Entry
}

// Index maps key → one slot per language of the selected group.
type Index struct {
	group     *store.Group
	languages []string
	position  map[string]int
	// rows holds exactly len(languages) slots per key, in languages order.
	rows           map[string][]Slot
	languagesCount int
}

// Build indexes group. The master localization (the one whose keys make
// up the rows) is the one named baseName, case-insensitively, or else the
// one with the most entries. Ties keep the stored order.
func Build(group *store.Group, baseName string) (*Index, error) {
	if group == nil {
		return nil, fmt.Errorf("building index: %w", store.ErrNotFound)
	}
	if len(group.Localizations) == 0 {
		return nil, fmt.Errorf("building index for %q: %w", group.Name, store.ErrEmptyGroup)
	}

	sorted := slices.Clone(group.Localizations)
	slices.SortStableFunc(sorted, func(a, b *store.Localization) int {
		aBase, bBase := store.IsBase(a.Language, baseName), store.IsBase(b.Language, baseName)
		switch {
		case aBase && !bBase:
			return -1
		case bBase && !aBase:
			return 1
		}
		return cmp.Compare(len(b.Entries), len(a.Entries))
	})

	ix := &Index{
		group:          group,
		languages:      make([]string, len(sorted)),
		position:       make(map[string]int, len(sorted)),
		languagesCount: len(group.Localizations),
	}

	// One key map per localization; the first entry wins on duplicates.
	lookups := make([]map[string]*store.Entry, len(sorted))
	for i, loc := range sorted {
		ix.languages[i] = loc.Language
		ix.position[loc.Language] = i
		m := make(map[string]*store.Entry, len(loc.Entries))
		for _, e := range loc.Entries {
			if _, dup := m[e.Key]; !dup {
				m[e.Key] = e
			}
		}
		lookups[i] = m
	}

	master := sorted[0]
	ix.rows = make(map[string][]Slot, len(master.Entries))
	for _, e := range master.Entries {
		if _, done := ix.rows[e.Key]; done {
			continue
		}
		slots := make([]Slot, len(sorted))
		for i := range sorted {
			if entry, ok := lookups[i][e.Key]; ok {
				slots[i] = Slot{State: Present, Entry: entry}
			} else {
				slots[i] = Slot{State: KnownAbsent}
			}
		}
		ix.rows[e.Key] = slots
	}

	return ix, nil
}

// Group returns the indexed group.
func (ix *Index) Group() *store.Group { return ix.group }

// Master returns the language whose keys make up the rows.
func (ix *Index) Master() string { return ix.languages[0] }

// Languages returns the languages in index order (master first).
func (ix *Index) Languages() []string { return slices.Clone(ix.languages) }

// LanguagesCount is the number of localizations in the group at build time.
func (ix *Index) LanguagesCount() int { return ix.languagesCount }

// Len returns the number of indexed keys.
func (ix *Index) Len() int { return len(ix.rows) }

// Has reports whether key is indexed.
func (ix *Index) Has(key string) bool {
	_, ok := ix.rows[key]
	return ok
}

// Slots returns a copy of the slots for key in index order.
func (ix *Index) Slots(key string) ([]Slot, bool) {
	slots, ok := ix.rows[key]
	if !ok {
		return nil, false
	}
	return slices.Clone(slots), true
}

// Slot returns the cell for (key, language). The boolean is false when
// key is not indexed.
func (ix *Index) Slot(key, language string) (Slot, bool) {
	slots, ok := ix.rows[key]
	if !ok {
		return Slot{}, false
	}
	pos, ok := ix.position[language]
	if !ok {
		return Slot{State: LanguageUnknown}, true
	}
	return slots[pos], true
}

// Message returns the message of the first present entry for key.
func (ix *Index) Message(key string) (string, bool) {
	for _, s := range ix.rows[key] {
		if s.State == Present {
			return s.Entry.Message, true
		}
	}
	return "", false
}

// Set stores e in the (key, language) cell, creating the row with every
// other language marked absent if key is new. It reports false when
// language is not part of the index.
func (ix *Index) Set(key, language string, e *store.Entry) bool {
	pos, ok := ix.position[language]
	if !ok {
		return false
	}
	slots, ok := ix.rows[key]
	if !ok {
		slots = make([]Slot, len(ix.languages))
		for i := range slots {
			slots[i] = Slot{State: KnownAbsent}
		}
		ix.rows[key] = slots
	}
	slots[pos] = Slot{State: Present, Entry: e}
	return true
}

// Clear marks the (key, language) cell absent.
func (ix *Index) Clear(key, language string) {
	pos, ok := ix.position[language]
	if !ok {
		return
	}
	if slots, ok := ix.rows[key]; ok {
		slots[pos] = Slot{State: KnownAbsent}
	}
}

// Remove drops key from the index.
func (ix *Index) Remove(key string) {
	delete(ix.rows, key)
}
