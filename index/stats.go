package index

// LanguageStats is the translation coverage of one language.
type LanguageStats struct {
	Language   string
	Total      int
	Translated int
	// Missing counts keys the language lacks or leaves blank.
	Missing int
}

// Percent returns Translated as a share of Total.
func (s LanguageStats) Percent() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Translated) / float64(s.Total) * 100
}

// Coverage returns per-language stats in index order.
func (ix *Index) Coverage() []LanguageStats {
	stats := make([]LanguageStats, len(ix.languages))
	for i, lang := range ix.languages {
		stats[i].Language = lang
		stats[i].Total = len(ix.rows)
	}
	for _, slots := range ix.rows {
		for i, s := range slots {
			if s.State == Present && s.Entry.Value != "" {
				stats[i].Translated++
			}
		}
	}
	for i := range stats {
		stats[i].Missing = stats[i].Total - stats[i].Translated
	}
	return stats
}
