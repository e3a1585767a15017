// Package session owns the state a presentation layer works against: the
// loaded groups, the selected group's index and the visible, filtered key
// list that rows are read from.
//
// A Session is not safe for concurrent use. Load and Export run in the
// background and hand their results back through a Resumer, so the
// session itself is only ever touched by its consumer.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/minios-linux/locsheet/exporter"
	"github.com/minios-linux/locsheet/index"
	"github.com/minios-linux/locsheet/store"
	"github.com/minios-linux/locsheet/xlsx"
)

// DefaultPreferredGroup is selected after a load when present.
const DefaultPreferredGroup = "Localizable.strings"

// ErrClosed is reported for work that completes after Close.
var ErrClosed = errors.New("session closed")

// SinkFactory opens the spreadsheet an export writes to.
type SinkFactory func(path string) (exporter.Sink, error)

// Session is the single owner of derived localization state.
type Session struct {
	provider   store.Provider
	logger     *slog.Logger
	baseName   string
	preferred  string
	newSink    SinkFactory
	exportOpts exporter.Options

	groups   []*store.Group
	selected *store.Group
	ix       *index.Index
	filtered []string

	wg     sync.WaitGroup
	closed atomic.Bool
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithBaseLanguage sets the language name preferred as master.
func WithBaseLanguage(name string) Option {
	return func(s *Session) {
		if name != "" {
			s.baseName = name
		}
	}
}

// WithPreferredGroup sets the group selected after a load.
func WithPreferredGroup(name string) Option {
	return func(s *Session) {
		if name != "" {
			s.preferred = name
		}
	}
}

// WithSinkFactory replaces the xlsx writer used by Export.
func WithSinkFactory(f SinkFactory) Option {
	return func(s *Session) { s.newSink = f }
}

// WithExportOptions sets labels and geometry of exported sheets.
func WithExportOptions(o exporter.Options) Option {
	return func(s *Session) { s.exportOpts = o }
}

// New returns an empty session reading and writing through p.
func New(p store.Provider, opts ...Option) *Session {
	s := &Session{
		provider:   p,
		logger:     slog.New(slog.DiscardHandler),
		baseName:   store.DefaultBaseLanguage,
		preferred:  DefaultPreferredGroup,
		newSink:    xlsx.Create,
		exportOpts: exporter.DefaultOptions(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Close waits for background work to finish. Results that arrive later
// are not installed.
func (s *Session) Close() error {
	s.closed.Store(true)
	s.wg.Wait()
	return nil
}

// ---------------------------------------------------------------------------
// Loading and selection
// ---------------------------------------------------------------------------

// LoadResult is delivered once per Load. An empty directory gives an
// empty result with a nil Err.
type LoadResult struct {
	Languages []string
	// Selected is the selected group name, empty when nothing is selected.
	Selected string
	Groups   []*store.Group
	Err      error
}

// Empty reports whether the load found nothing to show.
func (r LoadResult) Empty() bool { return len(r.Groups) == 0 }

// Load scans root in the background and installs the result when resume
// runs the completion. A failed scan leaves the current state untouched.
// On reload the selected group stays selected if it still exists.
func (s *Session) Load(ctx context.Context, root string, resume Resumer, done func(LoadResult)) {
	if s.closed.Load() {
		resume.Resume(func() { done(LoadResult{Err: ErrClosed}) })
		return
	}
	s.wg.Add(1)
	go func() {
		groups, err := s.provider.Localizations(ctx, root)
		s.wg.Done()
		resume.Resume(func() {
			if s.closed.Load() {
				done(LoadResult{Err: ErrClosed})
				return
			}
			done(s.install(groups, err))
		})
	}()
}

func (s *Session) install(groups []*store.Group, err error) LoadResult {
	if err != nil {
		s.logger.Error("loading localizations failed", "err", err)
		return LoadResult{Err: err}
	}

	current := ""
	if s.selected != nil {
		current = s.selected.Name
	}
	s.groups = groups
	s.selected, s.ix, s.filtered = nil, nil, nil

	if len(groups) == 0 {
		s.logger.Error("no localization data", "err", store.ErrEmptyDataset)
		return LoadResult{}
	}

	target := groups[0]
	for _, name := range []string{current, s.preferred} {
		if g := store.FindGroup(groups, name); name != "" && g != nil {
			target = g
			break
		}
	}
	langs, err := s.Select(target)
	return LoadResult{Languages: langs, Selected: s.SelectedGroup(), Groups: groups, Err: err}
}

// Select makes group the active group, rebuilds the index and resets
// the visible keys to every key, unfiltered.
func (s *Session) Select(group *store.Group) ([]string, error) {
	ix, err := index.Build(group, s.baseName)
	if err != nil {
		return nil, err
	}
	s.selected = group
	s.ix = ix
	s.Filter(index.All, "")
	return ix.Languages(), nil
}

// SelectGroupAndGetLanguages selects the loaded group called name.
func (s *Session) SelectGroupAndGetLanguages(name string) ([]string, error) {
	g := store.FindGroup(s.groups, name)
	if g == nil {
		return nil, fmt.Errorf("group %q: %w", name, store.ErrNotFound)
	}
	return s.Select(g)
}

// Filter recomputes the visible keys.
func (s *Session) Filter(mode index.Mode, search string) {
	s.logger.Debug("filter", "mode", mode, "search", search)
	if s.ix == nil {
		s.filtered = nil
		return
	}
	s.filtered = s.ix.Filter(mode, search)
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// RowError reports a row with no key behind it.
type RowError struct {
	Row  int
	Rows int
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d of %d: %v", e.Row, e.Rows, store.ErrRowOutOfRange)
}

func (e *RowError) Unwrap() error { return store.ErrRowOutOfRange }

// Groups returns the loaded groups.
func (s *Session) Groups() []*store.Group { return s.groups }

// SelectedGroup returns the active group name, or "".
func (s *Session) SelectedGroup() string {
	if s.selected == nil {
		return ""
	}
	return s.selected.Name
}

// Languages returns the active group's languages, master first.
func (s *Session) Languages() []string {
	if s.ix == nil {
		return nil
	}
	return s.ix.Languages()
}

// RowCount is the number of visible rows.
func (s *Session) RowCount() int { return len(s.filtered) }

// Key returns the key shown at row.
func (s *Session) Key(row int) (string, bool) {
	if row < 0 || row >= len(s.filtered) {
		return "", false
	}
	return s.filtered[row], true
}

// Message returns the message of the key at row, taken from the first
// language that has the key.
func (s *Session) Message(row int) (string, bool) {
	key, ok := s.Key(row)
	if !ok {
		return "", false
	}
	return s.ix.Message(key)
}

// Localization returns the entry for language at row. Cells without an
// entry get a fresh empty one for the row's key; only a row without a key
// is an error.
func (s *Session) Localization(language string, row int) (*store.Entry, error) {
	key, ok := s.Key(row)
	if !ok {
		return nil, &RowError{Row: row, Rows: len(s.filtered)}
	}
	if slot, ok := s.ix.Slot(key, language); ok && slot.State == index.Present {
		return slot.Entry, nil
	}
	return &store.Entry{Key: key}, nil
}

// Slots returns the cells of the key at row in Languages order.
func (s *Session) Slots(row int) ([]index.Slot, bool) {
	key, ok := s.Key(row)
	if !ok {
		return nil, false
	}
	return s.ix.Slots(key)
}

// RowForKey returns the row key is shown at. Deleted keys are not
// shown even before the next Filter.
func (s *Session) RowForKey(key string) (int, bool) {
	if s.ix == nil || !s.ix.Has(key) {
		return 0, false
	}
	return slices.BinarySearch(s.filtered, key)
}

// Coverage returns translation counts of the active group.
func (s *Session) Coverage() []index.LanguageStats {
	if s.ix == nil {
		return nil
	}
	return s.ix.Coverage()
}
