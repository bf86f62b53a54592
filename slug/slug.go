// Package slug turns hostnames and free text into path-safe object key segments.
package slug

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLength caps a segment
const MaxLength = 100

var (
	disallowedPattern = regexp.MustCompile(`[^a-z0-9-]+`)
	hyphenRunPattern  = regexp.MustCompile(`-+`)
	separators        = strings.NewReplacer(" ", "-", "_", "-", ".", "-", ":", "-")
)

// Segment lowercases s, folds accents to ASCII and keeps only [a-z0-9-].
// Anything that reduces to nothing (e.g. non-Latin scripts) yields "".
func Segment(s string) string {
	if s == "" {
		return ""
	}

	s = separators.Replace(stripMarks(strings.ToLower(s)))
	s = disallowedPattern.ReplaceAllString(s, "")
	s = strings.Trim(hyphenRunPattern.ReplaceAllString(s, "-"), "-")

	if len(s) > MaxLength {
		s = strings.TrimRight(s[:MaxLength], "-")
	}
	return s
}

// FromURL derives a key segment from the host of rawURL ("www." dropped).
// Unparseable, host-less or unrepresentable hosts yield Segment(fallback).
func FromURL(rawURL, fallback string) string {
	parsed, err := url.Parse(rawURL)
	if err == nil && parsed.Hostname() != "" {
		host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
		if seg := Segment(host); seg != "" {
			return seg
		}
	}
	return Segment(fallback)
}

// stripMarks decomposes s and drops nonspacing marks, so "é" becomes "e"
func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(func(r rune) bool {
		return unicode.Is(unicode.Mn, r)
	}), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}
