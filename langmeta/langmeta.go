// Package langmeta resolves display metadata (localized names and emoji
// flags) for the language identifiers found in localization files.
package langmeta

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Meta describes language display metadata.
type Meta struct {
	Code string
	Name string
	Flag string
}

func canonicalize(lang string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if normalized == "" {
		return ""
	}
	parts := strings.Split(normalized, "-")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) >= 2 && len(parts[1]) == 2 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "-")
}

// Parse returns the BCP 47 tag for a file-system language identifier.
// Identifiers such as "Base" that are not languages report false.
func Parse(lang string) (language.Tag, bool) {
	c := canonicalize(lang)
	if c == "" || c == "base" {
		return language.Und, false
	}
	tag, err := language.Parse(c)
	if err != nil {
		return language.Und, false
	}
	return tag, true
}

// Resolve returns metadata for lang with its name rendered in the
// display locale (English when display is empty or invalid).
func Resolve(lang, displayLocale string) Meta {
	m := Meta{Code: lang}
	tag, ok := Parse(lang)
	if !ok {
		return m
	}
	in, ok := Parse(displayLocale)
	if !ok {
		in = language.English
	}
	m.Name = display.Tags(in).Name(tag)
	if region, conf := tag.Region(); conf == language.Exact {
		m.Flag = flagFromRegion(region.String())
	}
	return m
}

// Title formats a column title as "Name(code)", or the bare code when no
// display name resolves.
func Title(lang, displayLocale string) string {
	m := Resolve(lang, displayLocale)
	if m.Name == "" {
		return lang
	}
	return m.Name + "(" + lang + ")"
}

// flagFromRegion maps a two-letter region code to its regional indicator pair.
func flagFromRegion(region string) string {
	if len(region) != 2 {
		return ""
	}
	var b strings.Builder
	for _, r := range strings.ToUpper(region) {
		if r < 'A' || r > 'Z' {
			return ""
		}
		b.WriteRune(0x1F1E6 + (r - 'A'))
	}
	return b.String()
}
