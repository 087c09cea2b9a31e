// Package correlate implements fuzzy correlation between sports-feed titles
// and Polymarket events, markets, and outcomes. The similarity metrics are
// pluggable so the acceptance thresholds stay plain configuration rather than
// magic numbers buried in matching code.
package correlate

import (
	"math"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/alanyoungcy/oddsarb/internal/domain"
)

// Scorer computes a 0-100 similarity score between two strings. Inputs are
// expected to be pre-normalized (see domain.NormalizeTitle).
type Scorer interface {
	Score(a, b string) int
}

// RatioScorer is plain edit-distance similarity over the full strings.
type RatioScorer struct{}

func (RatioScorer) Score(a, b string) int { return ratio(a, b) }

// TokenSortScorer sorts whitespace tokens before comparing, making the score
// independent of word order ("real madrid vs barcelona" ~ "barcelona vs real
// madrid").
type TokenSortScorer struct{}

func (TokenSortScorer) Score(a, b string) int {
	return ratio(sortTokens(a), sortTokens(b))
}

// PartialScorer slides the shorter string across the longer one and returns
// the best window score, so substring containment scores 100.
type PartialScorer struct{}

func (PartialScorer) Score(a, b string) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	if a == "" {
		if b == "" {
			return 100
		}
		return 0
	}
	if strings.Contains(b, a) {
		return 100
	}
	best := 0
	for i := 0; i+len(a) <= len(b); i++ {
		if s := ratio(a, b[i:i+len(a)]); s > best {
			best = s
		}
	}
	// Also compare against the whole string in case b is barely longer.
	if s := ratio(a, b); s > best {
		best = s
	}
	return best
}

func ratio(a, b string) int {
	if a == b {
		return 100
	}
	longest := len([]rune(a))
	if lb := len([]rune(b)); lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 100
	}
	dist := levenshtein.ComputeDistance(a, b)
	score := 100.0 * (1.0 - float64(dist)/float64(longest))
	if score < 0 {
		return 0
	}
	return int(math.Round(score))
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// Normalize is a convenience re-export used by callers that score raw titles.
func Normalize(title string) string { return domain.NormalizeTitle(title) }
