package visitor

import (
	"net/url"
	"regexp"

	"golang.org/x/net/html"

	"github.com/docutag/visitor/models"
)

var (
	// imgTagPattern captures the attribute text of each <img> tag
	imgTagPattern = regexp.MustCompile(`<img(\s+[^>]*)`)

	altAttrPattern = regexp.MustCompile(`\salt="([^"]+)"`)
	srcAttrPattern = regexp.MustCompile(`\ssrc="([^"]+)"`)
)

// ExtractImages returns <img> candidates whose src is an absolute http(s) URL accepted by
// the profile's extension set. Only alt="..." and src="..." attributes are recognised.
func ExtractImages(body, pageURL string, profile Profile) []models.ImageCandidate {
	base, _ := url.Parse(pageURL)
	accepted := profile.rules().imagePattern

	var candidates []models.ImageCandidate
	for i, m := range imgTagPattern.FindAllStringSubmatch(body, -1) {
		attrs := m[1]

		src := srcAttrPattern.FindStringSubmatch(attrs)
		if src == nil {
			continue
		}
		link, ok := normalizeReference(base, src[1])
		if !ok || !accepted.MatchString(link) {
			continue
		}

		alt := ""
		if a := altAttrPattern.FindStringSubmatch(attrs); a != nil {
			alt = html.UnescapeString(a[1])
		}

		candidates = append(candidates, models.ImageCandidate{
			OriginalIndex: i,
			AltText:       alt,
			URL:           link,
		})
	}
	return candidates
}
