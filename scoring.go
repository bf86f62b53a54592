package visitor

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/docutag/visitor/models"
)

// Profile selects how deep link and image ranking goes
type Profile string

const (
	// ProfileFull scores links by a digit-density heuristic, dedups them and keeps ranked order
	ProfileFull Profile = "full"
	// ProfileSimple prefers long labels, keeps document order and accepts fewer image types
	ProfileSimple Profile = "simple"
)

// TermBonus is added to a candidate's score for each search term it contains
const TermBonus = 1000

// Accepted image extensions per profile
var (
	FullImageExtensions    = []string{"svg", "png", "webp", "gif", "jpg", "jpeg"}
	MinimalImageExtensions = []string{"svg", "png", "gif", "jpg", "jpeg"}
)

// profileRules captures every behaviour that differs between profiles
type profileRules struct {
	imageExtensions  []string
	imagePattern     *regexp.Regexp
	minLabelLength   int  // labels must be strictly longer than this
	dedupLinks       bool // drop repeated URLs after ranking
	documentOrder    bool // restore document order after truncation
	trimContentRight bool
	linkScorer       LinkScorer
}

var profiles = map[Profile]profileRules{
	ProfileFull: {
		imageExtensions: FullImageExtensions,
		imagePattern:    imageExtensionPattern(FullImageExtensions),
		minLabelLength:  -1,
		dedupLinks:      true,
		linkScorer:      DensityLinkScorer{},
	},
	ProfileSimple: {
		imageExtensions:  MinimalImageExtensions,
		imagePattern:     imageExtensionPattern(MinimalImageExtensions),
		minLabelLength:   4,
		documentOrder:    true,
		trimContentRight: true,
		linkScorer:       LabelLengthScorer{},
	},
}

// imageExtensionPattern matches URLs ending in one of exts, optionally followed by a query
func imageExtensionPattern(exts []string) *regexp.Regexp {
	quoted := make([]string, len(exts))
	for i, ext := range exts {
		quoted[i] = regexp.QuoteMeta(ext)
	}
	return regexp.MustCompile(`(?i)\.(` + strings.Join(quoted, "|") + `)(\?.*)?$`)
}

// ParseProfile maps a configured name to a Profile. Empty selects ProfileFull.
func ParseProfile(name string) (Profile, error) {
	switch p := Profile(strings.ToLower(strings.TrimSpace(name))); p {
	case "":
		return ProfileFull, nil
	case ProfileFull, ProfileSimple:
		return p, nil
	default:
		return "", fmt.Errorf("unknown profile %q", name)
	}
}

func (p Profile) rules() profileRules {
	if r, ok := profiles[p]; ok {
		return r
	}
	return profiles[ProfileFull]
}

// ImageExtensions returns the extensions this profile accepts
func (p Profile) ImageExtensions() []string {
	return append([]string(nil), p.rules().imageExtensions...)
}

// RankContext carries what a scorer may need beyond the candidate itself
type RankContext struct {
	Terms    []string // lowercase, non-blank search terms
	Position int      // index among the http candidates being ranked
	Total    int      // number of http candidates being ranked
}

// LinkScorer assigns a relevance score to a link candidate
type LinkScorer interface {
	ScoreLink(c models.LinkCandidate, rc RankContext) float64
}

// ImageScorer assigns a relevance score to an image candidate
type ImageScorer interface {
	ScoreImage(c models.ImageCandidate, rc RankContext) float64
}

// LinkScorerFunc adapts a function to LinkScorer
type LinkScorerFunc func(c models.LinkCandidate, rc RankContext) float64

func (f LinkScorerFunc) ScoreLink(c models.LinkCandidate, rc RankContext) float64 {
	return f(c, rc)
}

// ImageScorerFunc adapts a function to ImageScorer
type ImageScorerFunc func(c models.ImageCandidate, rc RankContext) float64

func (f ImageScorerFunc) ScoreImage(c models.ImageCandidate, rc RankContext) float64 {
	return f(c, rc)
}

// DensityLinkScorer favours short links with few digits (navigation) and wordy labels
// on digit-heavy URLs (content), plus TermBonus per matching term.
type DensityLinkScorer struct{}

func (DensityLinkScorer) ScoreLink(c models.LinkCandidate, rc RankContext) float64 {
	ratio := 1 / float64(max(1, countDigits(c.URL)))

	positionPenalty := 0.0
	if rc.Total > 0 {
		positionPenalty = 20 * float64(rc.Position) / float64(rc.Total)
	}

	labelLen := float64(utf8.RuneCountInString(c.Label))
	urlLen := float64(utf8.RuneCountInString(c.URL))
	words := float64(len(strings.Fields(c.Label)))

	score := ratio*(100-(labelLen+urlLen+positionPenalty)) + (1-ratio)*words
	return score + termBonus(c.Label, rc.Terms)
}

// LabelLengthScorer ranks links by label length alone
type LabelLengthScorer struct{}

func (LabelLengthScorer) ScoreLink(c models.LinkCandidate, _ RankContext) float64 {
	return float64(utf8.RuneCountInString(c.Label))
}

// AltTextScorer ranks images by alt text length plus TermBonus per matching term
type AltTextScorer struct{}

func (AltTextScorer) ScoreImage(c models.ImageCandidate, rc RankContext) float64 {
	return float64(utf8.RuneCountInString(c.AltText)) + termBonus(c.AltText, rc.Terms)
}

func termBonus(text string, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	bonus := 0.0
	for _, term := range terms {
		if strings.Contains(lower, term) {
			bonus += TermBonus
		}
	}
	return bonus
}

func countDigits(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			n++
		}
	}
	return n
}

// normalizeTerms lowercases and trims terms, dropping blanks
func normalizeTerms(terms []string) []string {
	var out []string
	for _, term := range terms {
		if t := strings.ToLower(strings.TrimSpace(term)); t != "" {
			out = append(out, t)
		}
	}
	return out
}
