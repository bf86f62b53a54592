package visitor

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/docutag/visitor/models"
)

var (
	// anchorPattern captures href and inner content of anchors; labels may span lines
	anchorPattern = regexp.MustCompile(`(?s)<a\s+[^>]*?href="([^"]+)"[^>]*>(.*?)</a>`)

	// labelNoisePattern matches literal escape sequences and embedded tags
	labelNoisePattern = regexp.MustCompile(`\\[ntr]|<(?:[^>"]|"[^"]*")+>`)
)

// ExtractLinks returns every anchor in body with an absolute http(s) URL, in document order.
// OriginalIndex counts all anchor matches, including discarded ones.
func ExtractLinks(body, pageURL string) []models.LinkCandidate {
	base, _ := url.Parse(pageURL)

	var candidates []models.LinkCandidate
	for i, m := range anchorPattern.FindAllStringSubmatch(body, -1) {
		link, ok := normalizeReference(base, m[1])
		if !ok {
			continue
		}
		candidates = append(candidates, models.LinkCandidate{
			OriginalIndex: i,
			Label:         normalizeLabel(m[2]),
			URL:           link,
		})
	}
	return candidates
}

// normalizeLabel replaces escapes and tags with spaces, decodes entities and collapses whitespace
func normalizeLabel(raw string) string {
	label := labelNoisePattern.ReplaceAllString(raw, " ")
	label = html.UnescapeString(label)
	return strings.Join(strings.Fields(label), " ")
}

// normalizeReference decodes an href or src and resolves it against base when it starts with "/".
// Only references that end up starting with "http" are kept.
func normalizeReference(base *url.URL, ref string) (string, bool) {
	ref = strings.TrimSpace(html.UnescapeString(ref))
	if strings.HasPrefix(ref, "/") {
		if base == nil {
			return "", false
		}
		resolved, err := resolveURL(base, ref)
		if err != nil {
			return "", false
		}
		ref = resolved
	}
	if !strings.HasPrefix(ref, "http") {
		return "", false
	}
	return ref, true
}

// resolveURL resolves a relative URL against a base URL
func resolveURL(base *url.URL, href string) (string, error) {
	// Parse the href
	parsed, err := url.Parse(href)
	if err != nil {
		return "", err
	}

	// Resolve against base
	resolved := base.ResolveReference(parsed)
	return resolved.String(), nil
}
