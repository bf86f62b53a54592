package visitor

import (
	"sort"
	"unicode/utf8"

	"github.com/docutag/visitor/models"
)

// Ranker orders and truncates link and image candidates for a profile.
// Nil scorers fall back to the profile defaults. Ranking is deterministic for equal input.
type Ranker struct {
	Profile     Profile
	LinkScorer  LinkScorer
	ImageScorer ImageScorer
}

// NewRanker returns a Ranker using the default scorers of profile
func NewRanker(profile Profile) Ranker {
	return Ranker{Profile: profile}
}

func (r Ranker) linkScorer() LinkScorer {
	if r.LinkScorer != nil {
		return r.LinkScorer
	}
	return r.Profile.rules().linkScorer
}

func (r Ranker) imageScorer() ImageScorer {
	if r.ImageScorer != nil {
		return r.ImageScorer
	}
	return AltTextScorer{}
}

// RankLinks scores candidates and returns at most limit of them.
// The full profile dedups by URL and keeps score order; the simple profile keeps
// labels longer than four characters and returns them in document order.
func (r Ranker) RankLinks(candidates []models.LinkCandidate, terms []string, limit int) []models.LinkCandidate {
	if limit <= 0 || len(candidates) == 0 {
		return nil
	}
	rules := r.Profile.rules()
	scorer := r.linkScorer()
	rc := RankContext{Terms: normalizeTerms(terms), Total: len(candidates)}

	ranked := make([]models.LinkCandidate, 0, len(candidates))
	for i, c := range candidates {
		if utf8.RuneCountInString(c.Label) <= rules.minLabelLength {
			continue
		}
		rc.Position = i
		c.Score = scorer.ScoreLink(c, rc)
		ranked = append(ranked, c)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if rules.dedupLinks {
		ranked = dedupLinks(ranked)
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	if rules.documentOrder {
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].OriginalIndex < ranked[j].OriginalIndex
		})
	}
	return ranked
}

// dedupLinks keeps the first (highest ranked) candidate per URL
func dedupLinks(ranked []models.LinkCandidate) []models.LinkCandidate {
	seen := make(map[string]bool, len(ranked))
	out := ranked[:0]
	for _, c := range ranked {
		if seen[c.URL] {
			continue
		}
		seen[c.URL] = true
		out = append(out, c)
	}
	return out
}

// RankImages scores candidates, keeps the best limit and returns them in document order
func (r Ranker) RankImages(candidates []models.ImageCandidate, terms []string, limit int) []models.ImageCandidate {
	if limit <= 0 || len(candidates) == 0 {
		return nil
	}
	scorer := r.imageScorer()
	rc := RankContext{Terms: normalizeTerms(terms), Total: len(candidates)}

	ranked := make([]models.ImageCandidate, len(candidates))
	for i, c := range candidates {
		rc.Position = i
		c.Score = scorer.ScoreImage(c, rc)
		ranked[i] = c
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].OriginalIndex < ranked[j].OriginalIndex
	})
	return ranked
}
