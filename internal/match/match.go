// Package match normalizes and fuzzy-matches oracle output strings against
// the canonical language and category reference sets. All functions are pure.
package match

import (
	"sort"
	"strings"
	"unicode"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/lexward/wordflow/internal/model"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases s, strips diacritics and trims surrounding space and
// punctuation, producing the canonical comparison form.
func Normalize(s string) string {
	stripped, _, err := transform.String(stripMarks, s)
	if err != nil {
		stripped = s
	}
	stripped = strings.ToLower(strings.TrimSpace(stripped))
	return strings.TrimFunc(stripped, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
}

// MatchLanguage resolves a raw oracle language string against the canonical
// set. Exact name or code matches win, then normalized matches, then
// prefix/substring matches; ties are broken by ascending priority rank. When
// nothing matches, a heuristic detection of the raw string itself is retried
// against the set before giving up.
func MatchLanguage(raw string, languages []model.Language) (*model.Language, bool) {
	if raw == "" || len(languages) == 0 {
		return nil, false
	}

	if lang, ok := matchLanguageName(raw, languages); ok {
		return lang, true
	}

	// The oracle sometimes answers in the word's own language or with an
	// unknown spelling. Detect the language of the raw string and retry with
	// the detector's English name and ISO code.
	info := whatlanggo.Detect(raw)
	if info.Confidence > 0 {
		if lang, ok := matchLanguageName(info.Lang.String(), languages); ok {
			return lang, true
		}
		if lang, ok := matchLanguageName(info.Lang.Iso6393(), languages); ok {
			return lang, true
		}
	}

	return nil, false
}

func matchLanguageName(raw string, languages []model.Language) (*model.Language, bool) {
	normalized := Normalize(raw)
	if normalized == "" {
		return nil, false
	}

	type scored struct {
		lang *model.Language
		rank int
	}
	var candidates []scored

	add := func(lang *model.Language, rank int) {
		candidates = append(candidates, scored{lang: lang, rank: rank})
	}

	for i := range languages {
		lang := &languages[i]
		name := Normalize(lang.Name)
		code := Normalize(lang.Code)

		switch {
		case name == normalized || (code != "" && code == normalized):
			add(lang, 0)
		case strings.HasPrefix(name, normalized) || strings.HasPrefix(normalized, name):
			add(lang, 1)
		case strings.Contains(name, normalized) || strings.Contains(normalized, name):
			add(lang, 2)
		}
	}

	if len(candidates) == 0 {
		return nil, false
	}

	// Best match quality first; language priority breaks ties, lower wins.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].rank != candidates[j].rank {
			return candidates[i].rank < candidates[j].rank
		}
		return candidates[i].lang.Priority < candidates[j].lang.Priority
	})

	return candidates[0].lang, true
}

// MatchCategory resolves a raw oracle category string against the canonical
// set. Matching quality mirrors MatchLanguage; ties are broken by canonical
// order, so the reference list's ordering is authoritative.
func MatchCategory(raw string, categories []model.Category) (string, bool) {
	normalized := Normalize(raw)
	if normalized == "" || len(categories) == 0 {
		return "", false
	}

	bestRank := -1
	best := ""
	for _, cat := range categories {
		name := Normalize(cat.Name)

		rank := -1
		switch {
		case name == normalized:
			rank = 0
		case strings.HasPrefix(name, normalized) || strings.HasPrefix(normalized, name):
			rank = 1
		case strings.Contains(name, normalized) || strings.Contains(normalized, name):
			rank = 2
		}

		if rank >= 0 && (bestRank == -1 || rank < bestRank) {
			bestRank = rank
			best = cat.Name
		}
	}

	if bestRank == -1 {
		return "", false
	}
	return best, true
}
