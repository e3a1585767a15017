// Package config reads the .locsheet.yaml project configuration.
//
// The file is optional. Without it every format is scanned from the
// project root, "base" is the master language and Localizable.strings is
// the group opened first.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/minios-linux/locsheet/exporter"
	"github.com/minios-linux/locsheet/provider"
	"github.com/minios-linux/locsheet/store"
)

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// File is the top-level .locsheet.yaml structure.
type File struct {
	// Root is the directory scanned for localizations, relative to the
	// config file (default ".").
	Root string `yaml:"root,omitempty"`
	// BaseLanguage names the master localization (default "base").
	BaseLanguage string `yaml:"base_language,omitempty"`
	// PreferredGroup is selected after loading when present.
	PreferredGroup string `yaml:"preferred_group,omitempty"`
	// Formats limits scanning to these formats: strings, properties, po, arb,
	// android.
	Formats []string `yaml:"formats,omitempty"`
	// Export controls spreadsheet output.
	Export Export `yaml:"export,omitempty"`

	// path is where the file was read from; empty for defaults.
	path string
}

// Export holds spreadsheet settings.
type Export struct {
	KeyLabel      string  `yaml:"key_label,omitempty"`
	DisplayLocale string  `yaml:"display_locale,omitempty"`
	ColumnWidth   float64 `yaml:"column_width,omitempty"`
	HeaderHeight  float64 `yaml:"header_height,omitempty"`
	RowHeight     float64 `yaml:"row_height,omitempty"`
}

// FileName is the default config file name.
const FileName = ".locsheet.yaml"

// DefaultPreferredGroup is the group opened first when none is configured.
const DefaultPreferredGroup = "Localizable.strings"

// Default returns the configuration used when no file exists.
func Default() *File {
	d := exporter.DefaultOptions()
	return &File{
		Root:           ".",
		BaseLanguage:   store.DefaultBaseLanguage,
		PreferredGroup: DefaultPreferredGroup,
		Formats:        provider.FormatNames(),
		Export: Export{
			KeyLabel:      d.KeyLabel,
			DisplayLocale: d.DisplayLocale,
			ColumnWidth:   d.ColumnWidth,
			HeaderHeight:  d.HeaderHeight,
			RowHeight:     d.RowHeight,
		},
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads .locsheet.yaml from rootDir. A missing file yields Default().
func Load(rootDir string) (*File, error) {
	f, err := LoadPath(filepath.Join(rootDir, FileName))
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return f, err
}

// LoadPath reads and validates the config file at path. Unset fields
// take their defaults.
func LoadPath(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var lf File
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	lf.path = path

	d := Default()
	if lf.Root == "" {
		lf.Root = d.Root
	}
	if lf.BaseLanguage == "" {
		lf.BaseLanguage = d.BaseLanguage
	}
	if lf.PreferredGroup == "" {
		lf.PreferredGroup = d.PreferredGroup
	}
	if len(lf.Formats) == 0 {
		lf.Formats = d.Formats
	}
	if lf.Export.KeyLabel == "" {
		lf.Export.KeyLabel = d.Export.KeyLabel
	}
	if lf.Export.DisplayLocale == "" {
		lf.Export.DisplayLocale = d.Export.DisplayLocale
	}
	if lf.Export.ColumnWidth <= 0 {
		lf.Export.ColumnWidth = d.Export.ColumnWidth
	}
	if lf.Export.HeaderHeight <= 0 {
		lf.Export.HeaderHeight = d.Export.HeaderHeight
	}
	if lf.Export.RowHeight <= 0 {
		lf.Export.RowHeight = d.Export.RowHeight
	}

	if _, err := provider.ByName(lf.Formats); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &lf, nil
}

// ---------------------------------------------------------------------------
// Resolution
// ---------------------------------------------------------------------------

// Path returns the file the config was read from, or "" for defaults.
func (f *File) Path() string { return f.path }

// ScanRoot returns the absolute directory to scan. Root is taken relative
// to the config file, or to projectRoot when there is none.
func (f *File) ScanRoot(projectRoot string) (string, error) {
	base := projectRoot
	if f.path != "" {
		base = filepath.Dir(f.path)
	}
	if filepath.IsAbs(f.Root) {
		return filepath.Clean(f.Root), nil
	}
	return filepath.Abs(filepath.Join(base, f.Root))
}

// ProviderFormats resolves Formats.
func (f *File) ProviderFormats() ([]provider.Format, error) {
	return provider.ByName(f.Formats)
}

// ExportOptions converts the export section.
func (f *File) ExportOptions() exporter.Options {
	return exporter.Options{
		KeyLabel:      f.Export.KeyLabel,
		DisplayLocale: f.Export.DisplayLocale,
		ColumnWidth:   f.Export.ColumnWidth,
		HeaderHeight:  f.Export.HeaderHeight,
		RowHeight:     f.Export.RowHeight,
	}
}
