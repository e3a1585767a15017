package session

import (
	"errors"
	"fmt"
)

// The mutations below write through the provider and keep the index in
// step. None of them recomputes the visible keys; call Filter for that.

// UpdateLocalization stores value (and message, when non-nil) for key in
// language. A language the active group does not have is ignored. The
// key's index cell is refreshed, so later reads see the new value.
func (s *Session) UpdateLocalization(language, key, value string, message *string) error {
	if s.selected == nil {
		return nil
	}
	loc := s.selected.Localization(language)
	if loc == nil {
		s.logger.Debug("update for unknown language ignored", "language", language, "key", key)
		return nil
	}
	e, err := s.provider.Update(loc, key, value, message)
	if err != nil {
		return fmt.Errorf("updating %q in %s: %w", key, language, err)
	}
	if s.ix.Has(key) {
		s.ix.Set(key, language, e)
	}
	return nil
}

// DeleteLocalization removes key from every language of the active group.
// The key leaves the index only when every language dropped it; otherwise
// the languages that did are marked absent and the failures are returned.
func (s *Session) DeleteLocalization(key string) error {
	if s.selected == nil {
		return nil
	}
	var errs []error
	var deleted []string
	for _, loc := range s.selected.Localizations {
		if err := s.provider.DeleteKey(loc, key); err != nil {
			errs = append(errs, fmt.Errorf("deleting %q from %s: %w", key, loc.Language, err))
			continue
		}
		deleted = append(deleted, loc.Language)
	}
	if len(errs) == 0 {
		s.ix.Remove(key)
		return nil
	}
	for _, lang := range deleted {
		s.ix.Clear(key, lang)
	}
	return errors.Join(errs...)
}

// AddLocalizationKey creates an untranslated key in every language of the
// active group, with message attached when non-nil. Each language's new
// entry goes into its own index cell.
func (s *Session) AddLocalizationKey(key string, message *string) error {
	if s.selected == nil {
		return nil
	}
	var errs []error
	for _, loc := range s.selected.Localizations {
		e, err := s.provider.AddKey(loc, key, message)
		if err != nil {
			errs = append(errs, fmt.Errorf("adding %q to %s: %w", key, loc.Language, err))
			continue
		}
		s.ix.Set(key, loc.Language, e)
	}
	return errors.Join(errs...)
}
