package visitor

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	// bodyOpenPattern matches the opening body tag with any attributes
	bodyOpenPattern = regexp.MustCompile(`<body[^>]*>`)

	// titlePattern captures the text of the first title element
	titlePattern = regexp.MustCompile(`<title[^>]*>([^<]*)</title>`)

	headingPatterns = [...]*regexp.Regexp{
		regexp.MustCompile(`<h1[^>]*>([^<]*)</h1>`),
		regexp.MustCompile(`<h2[^>]*>([^<]*)</h2>`),
		regexp.MustCompile(`<h3[^>]*>([^<]*)</h3>`),
	}
)

// Sections holds the head and body substrings of a page
type Sections struct {
	Head string
	Body string
}

// Section splits raw HTML into head and body by tag-boundary scanning.
// The head runs from the first "<head>" through the first "</head>" and is empty if either is missing.
// The body runs from the first <body ...> tag (or the start of the page) to the last "</body>".
func Section(page string) Sections {
	var s Sections

	headStart := strings.Index(page, "<head>")
	headEnd := strings.Index(page, "</head>")
	if headStart != -1 && headEnd != -1 && headEnd >= headStart {
		s.Head = page[headStart : headEnd+len("</head>")]
	}

	bodyStart := 0
	if loc := bodyOpenPattern.FindStringIndex(page); loc != nil {
		bodyStart = loc[0]
	}
	bodyEnd := strings.LastIndex(page, "</body>")
	if bodyEnd < bodyStart {
		bodyEnd = len(page)
	}
	s.Body = page[bodyStart:bodyEnd]

	return s
}

// ExtractTitle returns the first <title> text in head, entity-decoded and trimmed
func ExtractTitle(head string) string {
	return firstText(titlePattern, head)
}

// ExtractHeading returns the first h1, h2 or h3 text in body. Other levels yield "".
func ExtractHeading(body string, level int) string {
	if level < 1 || level > len(headingPatterns) {
		return ""
	}
	return firstText(headingPatterns[level-1], body)
}

func firstText(pattern *regexp.Regexp, s string) string {
	m := pattern.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(m[1]))
}
