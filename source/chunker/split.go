package chunker

import (
	"strings"
	"unicode"
)

// LanguageMode selects which punctuation set drives boundary splitting.
type LanguageMode string

const (
	LanguageChinese LanguageMode = "chinese"
	LanguageEnglish LanguageMode = "english"
	LanguageAuto    LanguageMode = "auto"
)

// Boundary candidates in priority order: sentence terminators, semicolons,
// commas, secondary punctuation, plain whitespace. Each candidate is a rune
// sequence; the cut is placed immediately after it.
var (
	chineseBoundaries = [][]string{
		{"。", "！", "？"},
		{"；"},
		{"，"},
		{"、", "："},
		{" ", "\n"},
	}

	englishBoundaries = [][]string{
		{". ", "! ", "? ", ".\n", "!\n", "?\n"},
		{"; "},
		{", "},
		{": "},
		{" ", "\n"},
	}
)

// detectLanguage counts CJK versus Latin characters to pick a boundary set.
func detectLanguage(text string) LanguageMode {
	var cjk, latin int
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			cjk++
		case r < 128 && unicode.IsLetter(r):
			latin++
		}
	}
	if cjk > latin {
		return LanguageChinese
	}
	return LanguageEnglish
}

// resolveLanguage maps the configured mode to a concrete language for the
// given text.
func resolveLanguage(mode LanguageMode, text string) LanguageMode {
	if mode == LanguageChinese || mode == LanguageEnglish {
		return mode
	}
	return detectLanguage(text)
}

// splitAtSemanticBoundary splits text into pieces of at most maxLen runes,
// cutting at the rightmost candidate boundary within budget and recursing on
// the remainder. When no punctuation or whitespace boundary exists within
// budget, it force-splits at exactly maxLen runes.
func splitAtSemanticBoundary(text string, maxLen int, lang LanguageMode) []string {
	if maxLen <= 0 {
		return []string{text}
	}

	runes := []rune(text)
	if len(runes) <= maxLen {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}

	boundaries := englishBoundaries
	if resolveLanguage(lang, text) == LanguageChinese {
		boundaries = chineseBoundaries
	}

	cut := findCut(runes, maxLen, boundaries)
	if cut <= 0 {
		cut = maxLen
	}

	head := strings.TrimSpace(string(runes[:cut]))
	rest := strings.TrimSpace(string(runes[cut:]))

	var pieces []string
	if head != "" {
		pieces = append(pieces, head)
	}
	pieces = append(pieces, splitAtSemanticBoundary(rest, maxLen, lang)...)
	return pieces
}

// findCut returns the rune index just past the rightmost boundary candidate
// within the first maxLen runes, trying priority groups in order. Returns -1
// when no group matches.
func findCut(runes []rune, maxLen int, boundaries [][]string) int {
	window := string(runes[:maxLen])

	for _, group := range boundaries {
		best := -1
		for _, candidate := range group {
			if idx := strings.LastIndex(window, candidate); idx >= 0 {
				end := idx + len(candidate)
				if end > best {
					best = end
				}
			}
		}
		if best > 0 {
			// Convert the byte offset back to a rune count.
			return len([]rune(window[:best]))
		}
	}

	return -1
}

// runeLen is the chunk-size metric: sizes are counted in runes so CJK and
// Latin text budget the same way.
func runeLen(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}
