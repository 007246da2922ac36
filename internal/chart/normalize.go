package chart

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	// Join tokens that separate the primary credited artist from guests.
	// Word tokens only match as whole words; symbol tokens match anywhere.
	artistJoinRe = regexp.MustCompile(`(?i)\s+(?:feat\.?|featuring|with|and|x)\s+|\s*[&/,]\s*`)

	qualifierRe  = regexp.MustCompile(`\s*[(\[][^)\]]*[)\]]`)
	titleFeatRe  = regexp.MustCompile(`(?i)\s+feat\.?\s+.*$`)
	nonKeyRuneRe = regexp.MustCompile(`[^a-z0-9]+`)
)

// NormalizeArtistName reduces a credited artist string to a stable matching
// key: the primary credit before any join token, lower-cased, accent-folded,
// and stripped to [a-z0-9]. "Eminem feat. Dido" and "EMINEM" both yield
// "eminem".
func NormalizeArtistName(artist string) string {
	primary := artistJoinRe.Split(artist, 2)[0]
	return foldKey(primary)
}

// NormalizeTrackTitle reduces a track title to the same key space, dropping
// parenthetical or bracketed qualifiers and any trailing "feat." clause.
func NormalizeTrackTitle(title string) string {
	title = qualifierRe.ReplaceAllString(title, " ")
	title = titleFeatRe.ReplaceAllString(title, "")
	return foldKey(title)
}

// foldKey lower-cases, decomposes accented runes and drops their combining
// marks, collapses whitespace, and removes every remaining non [a-z0-9] rune.
func foldKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	s = spaceRe.ReplaceAllString(b.String(), " ")
	return nonKeyRuneRe.ReplaceAllString(s, "")
}
