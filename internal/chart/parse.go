package chart

import (
	"html"
	"regexp"
	"strconv"
	"strings"
)

// blockMarker splits a chart document into per-entry fragments. Everything
// before the first marker is preamble and is discarded.
const blockMarker = `o-chart-results-list-row-container`

var (
	rankPrimaryRe  = regexp.MustCompile(`(?s)<span class="c-label\s+a-font-primary-bold-l[^"]*"[^>]*>\s*(\d{1,3})\s*</span>`)
	rankFallbackRe = regexp.MustCompile(`>\s*(\d{1,3})\s*<`)
	titleRe        = regexp.MustCompile(`(?s)<h3[^>]*id="title-of-a-story"[^>]*>(.*?)</h3>`)
	artistRe       = regexp.MustCompile(`(?s)<span class="c-label\s+a-no-trucate[^"]*"[^>]*>(.*?)</span>`)
	tagRe          = regexp.MustCompile(`<[^>]*>`)
	spaceRe        = regexp.MustCompile(`\s+`)
)

// ParseEntries extracts ranked entries from one chart page document. Blocks
// missing the rank, title, or artist are dropped; malformed markup yields
// fewer entries, never an error.
func ParseEntries(doc string) []Entry {
	blocks := strings.Split(doc, blockMarker)
	if len(blocks) < 2 {
		return nil
	}

	entries := make([]Entry, 0, len(blocks)-1)
	for _, block := range blocks[1:] {
		rank, ok := extractRank(block)
		if !ok {
			continue
		}
		title := extractFragment(titleRe, block)
		artist := extractFragment(artistRe, block)
		if title == "" || artist == "" {
			continue
		}
		entries = append(entries, Entry{Rank: rank, Title: title, Artist: artist})
	}
	return entries
}

func extractRank(block string) (int, bool) {
	m := rankPrimaryRe.FindStringSubmatch(block)
	if m == nil {
		m = rankFallbackRe.FindStringSubmatch(block)
	}
	if m == nil {
		return 0, false
	}
	rank, err := strconv.Atoi(m[1])
	if err != nil || rank < 1 {
		return 0, false
	}
	return rank, true
}

func extractFragment(re *regexp.Regexp, block string) string {
	m := re.FindStringSubmatch(block)
	if m == nil {
		return ""
	}
	return cleanFragment(m[1])
}

// cleanFragment unescapes HTML entities, strips residual tags, and collapses
// whitespace runs into single spaces.
func cleanFragment(s string) string {
	s = tagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}
