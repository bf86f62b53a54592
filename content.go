package visitor

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/net/html"

	"github.com/docutag/visitor/models"
)

var (
	scriptBlockPattern = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleBlockPattern  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	tagPattern         = regexp.MustCompile(`<[^>]+>`)
)

// CleanText drops script and style blocks, strips the remaining tags, decodes entities
// and collapses whitespace runs into single spaces.
func CleanText(body string) string {
	text := scriptBlockPattern.ReplaceAllString(body, "")
	text = styleBlockPattern.ReplaceAllString(text, "")
	text = tagPattern.ReplaceAllString(text, "")
	text = html.UnescapeString(text)
	return strings.Join(strings.Fields(text), " ")
}

// ExtractContent bounds text to limit characters. Without usable terms, or when the text
// already fits, it returns a prefix. Otherwise it returns the merged windows around each term.
func (r Ranker) ExtractContent(text string, terms []string, limit int) string {
	if limit <= 0 {
		return ""
	}
	terms = normalizeTerms(terms)
	runes := []rune(text)

	if len(terms) == 0 || limit >= len(runes) {
		prefix := string(runes[:min(limit, len(runes))])
		if r.Profile.rules().trimContentRight {
			prefix = strings.TrimRightFunc(prefix, unicode.IsSpace)
		}
		return prefix
	}

	return MergeWindows(FindWindows(runes, terms, limit))
}

// FindWindows locates, for each term, the first span matching
// .{0,P}term.{0,P} case-insensitively (leftmost start, greedy on both sides)
// where P = limit / (2 * len(terms)). Terms without a match yield no window.
// Offsets count runes. Windows are returned sorted by start.
func FindWindows(runes []rune, terms []string, limit int) []models.ContentWindow {
	if len(terms) == 0 {
		return nil
	}
	padding := limit / (len(terms) * 2)

	lower := make([]rune, len(runes))
	for i, r := range runes {
		lower[i] = unicode.ToLower(r)
	}

	var windows []models.ContentWindow
	for _, term := range terms {
		needle := []rune(strings.ToLower(term))
		if len(needle) == 0 {
			continue
		}

		first := indexRunes(lower, needle, 0)
		if first == -1 {
			continue
		}

		// The leftmost start that still reaches an occurrence within padding runes
		start := max(0, first-padding)

		// Greedy leading padding settles on the last occurrence it can reach
		occurrence := first
		for next := indexRunes(lower, needle, occurrence+1); next != -1 && next <= start+padding; next = indexRunes(lower, needle, next+1) {
			occurrence = next
		}

		end := min(len(runes), occurrence+len(needle)+padding)
		windows = append(windows, models.ContentWindow{
			Term:        term,
			StartOffset: start,
			Length:      end - start,
			Text:        string(runes[start:end]),
		})
	}

	sort.SliceStable(windows, func(i, j int) bool {
		return windows[i].StartOffset < windows[j].StartOffset
	})
	return windows
}

// MergeWindows concatenates windows in order without repeating any source span.
// A window starting at or after the emitted end is appended whole; an overlapping one
// contributes only its suffix past that end. The emitted end never moves backwards.
func MergeWindows(windows []models.ContentWindow) string {
	var b strings.Builder
	nextMinIndex := 0
	for _, w := range windows {
		end := w.StartOffset + w.Length
		switch {
		case w.StartOffset >= nextMinIndex:
			b.WriteString(w.Text)
		case end > nextMinIndex:
			b.WriteString(string([]rune(w.Text)[nextMinIndex-w.StartOffset:]))
		}
		nextMinIndex = max(nextMinIndex, end)
	}
	return b.String()
}

// indexRunes returns the index of the first needle in hay at or after from, or -1
func indexRunes(hay, needle []rune, from int) int {
	for i := from; i+len(needle) <= len(hay); i++ {
		match := true
		for j, r := range needle {
			if hay[i+j] != r {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
