// Package provider implements store.Provider on top of localization files
// in a directory tree.
package provider

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/minios-linux/locsheet/store"
)

// FS scans a directory for localization files and persists edits back to
// them. It caches parsed documents between a scan and later mutations.
// FS is safe for concurrent use.
type FS struct {
	formats []Format
	logger  *slog.Logger
	limit   int

	mu   sync.Mutex
	docs map[string]Document // by file path
}

// Option configures an FS.
type Option func(*FS)

// WithFormats restricts scanning to formats.
func WithFormats(formats ...Format) Option {
	return func(p *FS) { p.formats = formats }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *FS) { p.logger = l }
}

// WithConcurrency bounds the number of files parsed at once.
func WithConcurrency(n int) Option {
	return func(p *FS) {
		if n > 0 {
			p.limit = n
		}
	}
}

// New returns a provider handling every format unless configured otherwise.
func New(opts ...Option) *FS {
	p := &FS{
		formats: Formats(),
		logger:  slog.New(slog.DiscardHandler),
		limit:   runtime.NumCPU(),
		docs:    make(map[string]Document),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

var _ store.Provider = (*FS)(nil)

// ---------------------------------------------------------------------------
// Scanning
// ---------------------------------------------------------------------------

type candidate struct {
	path   string
	format Format
	match  Match
	doc    Document
}

// Localizations walks root and returns its groups sorted by name, each
// with localizations sorted by language. A missing root yields no groups.
// Any unreadable or malformed file fails the whole scan.
func (p *FS) Localizations(ctx context.Context, root string) ([]*store.Group, error) {
	info, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		p.logger.Debug("scan root does not exist", "root", root)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	cands, err := p.walk(ctx, root)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.limit)
	for _, c := range cands {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			doc, err := c.format.Parse(c.path)
			if err != nil {
				return err
			}
			c.doc = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rootName := filepath.Base(root)
	if abs, err := filepath.Abs(root); err == nil {
		rootName = filepath.Base(abs)
	}
	groups := assemble(rootName, cands)

	p.mu.Lock()
	p.docs = make(map[string]Document, len(cands))
	for _, c := range cands {
		p.docs[c.path] = c.doc
	}
	p.mu.Unlock()

	p.logger.Debug("scanned localizations", "root", root, "files", len(cands), "groups", len(groups))
	return groups, nil
}

func (p *FS) walk(ctx context.Context, root string) ([]*candidate, error) {
	var cands []*candidate
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		for _, f := range p.formats {
			if m, ok := f.Match(rel); ok {
				cands = append(cands, &candidate{path: path, format: f, match: m})
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}
	return cands, nil
}

type groupID struct {
	format, scope, name string
}

// assemble groups parsed candidates. Groups whose short names collide
// are qualified with their scope directory.
func assemble(rootName string, cands []*candidate) []*store.Group {
	byID := make(map[groupID]*store.Group)
	var ids []groupID
	for _, c := range cands {
		name := c.match.Name
		if name == "." {
			name = rootName
		}
		id := groupID{format: c.format.Name, scope: c.match.Scope, name: name}
		g, ok := byID[id]
		if !ok {
			g = &store.Group{Name: name}
			byID[id] = g
			ids = append(ids, id)
		}
		g.Localizations = append(g.Localizations, localization(c))
	}

	seen := make(map[string]int)
	for _, id := range ids {
		seen[id.name]++
	}
	groups := make([]*store.Group, 0, len(ids))
	for _, id := range ids {
		g := byID[id]
		if seen[id.name] > 1 && id.scope != "." {
			g.Name = filepath.ToSlash(filepath.Join(id.scope, id.name))
		}
		slices.SortStableFunc(g.Localizations, func(a, b *store.Localization) int {
			return cmp.Compare(a.Language, b.Language)
		})
		groups = append(groups, g)
	}
	slices.SortStableFunc(groups, func(a, b *store.Group) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return groups
}

func localization(c *candidate) *store.Localization {
	loc := &store.Localization{
		Language: c.match.Language,
		Path:     c.path,
		Format:   c.format.Name,
	}
	for _, key := range c.doc.Keys() {
		value, comment, _ := c.doc.Lookup(key)
		loc.Entries = append(loc.Entries, &store.Entry{Key: key, Value: value, Message: comment})
	}
	return loc
}

// ---------------------------------------------------------------------------
// Mutations
// ---------------------------------------------------------------------------

// document returns the cached document behind loc, parsing it on a miss.
// Callers hold p.mu.
func (p *FS) document(loc *store.Localization) (Document, error) {
	if loc == nil {
		return nil, fmt.Errorf("nil localization: %w", store.ErrUnknownLocalization)
	}
	if doc, ok := p.docs[loc.Path]; ok {
		return doc, nil
	}
	i := slices.IndexFunc(p.formats, func(f Format) bool { return f.Name == loc.Format })
	if i < 0 {
		return nil, fmt.Errorf("%s (format %q): %w", loc.Path, loc.Format, store.ErrUnknownLocalization)
	}
	doc, err := p.formats[i].Parse(loc.Path)
	if err != nil {
		return nil, err
	}
	p.docs[loc.Path] = doc
	return doc, nil
}

// save writes doc to path. On failure the cached copy is dropped so the
// next access re-reads what is actually on disk.
func (p *FS) save(path string, doc Document) error {
	data, err := doc.Marshal()
	if err == nil {
		err = os.WriteFile(path, data, 0644)
	}
	if err != nil {
		delete(p.docs, path)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Update sets key to value in loc, creating the key if needed. A non-nil
// message replaces the key's comment.
func (p *FS) Update(loc *store.Localization, key, value string, message *string) (*store.Entry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	doc, err := p.document(loc)
	if err != nil {
		return nil, err
	}
	doc.Set(key, value)
	if message != nil {
		doc.SetComment(key, *message)
	}
	if err := p.save(loc.Path, doc); err != nil {
		return nil, err
	}

	e := loc.Entry(key)
	if e == nil {
		e = &store.Entry{Key: key}
		loc.Entries = append(loc.Entries, e)
	}
	e.Value = value
	if message != nil {
		e.Message = *message
	}
	p.logger.Debug("updated localization", "path", loc.Path, "key", key)
	return e, nil
}

// DeleteKey removes key from loc. A key that is not there is not an error.
func (p *FS) DeleteKey(loc *store.Localization, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	doc, err := p.document(loc)
	if err != nil {
		return err
	}
	if !doc.Delete(key) {
		return nil
	}
	if err := p.save(loc.Path, doc); err != nil {
		return err
	}
	loc.Entries = slices.DeleteFunc(loc.Entries, func(e *store.Entry) bool { return e.Key == key })
	p.logger.Debug("deleted key", "path", loc.Path, "key", key)
	return nil
}

// AddKey adds an untranslated key to loc. An existing key is returned
// unchanged.
func (p *FS) AddKey(loc *store.Localization, key string, message *string) (*store.Entry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	doc, err := p.document(loc)
	if err != nil {
		return nil, err
	}
	if e := loc.Entry(key); e != nil {
		return e, nil
	}
	doc.Set(key, "")
	if message != nil {
		doc.SetComment(key, *message)
	}
	if err := p.save(loc.Path, doc); err != nil {
		return nil, err
	}

	e := &store.Entry{Key: key}
	if message != nil {
		e.Message = *message
	}
	loc.Entries = append(loc.Entries, e)
	p.logger.Debug("added key", "path", loc.Path, "key", key)
	return e, nil
}
