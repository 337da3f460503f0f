// Package similarity finds delegate identifiers that likely refer to the
// same person. Legacy worksheet rows carry hand-typed names, so the same
// delegate can appear as "maria.garcia", "María García" or "garcia, maria".
package similarity

import (
	"log/slog"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/klauern/permisync/internal/logging"
	"github.com/klauern/permisync/internal/model"
)

// Delegada is a distinct delegate identifier with its usage count.
type Delegada struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

// Match is a pair of delegate identifiers with their similarity score.
type Match struct {
	A         Delegada `json:"a"`
	B         Delegada `json:"b"`
	Score     float64  `json:"score"`
	Algorithm string   `json:"algorithm"`
}

// MatcherConfig configures the delegate matching behavior.
type MatcherConfig struct {
	// Threshold is the minimum similarity score (0.0-1.0) to report a match.
	// Default: 0.8
	Threshold float64
	// Algorithm selects "levenshtein", "jaro-winkler", or "combined".
	// Default: "combined"
	Algorithm string
	// Normalize folds case, accents, and separators before comparison.
	// Default: true via DefaultMatcherConfig
	Normalize bool
}

// DefaultMatcherConfig returns sensible defaults for delegate matching.
func DefaultMatcherConfig() MatcherConfig {
	return MatcherConfig{
		Threshold: 0.8,
		Algorithm: "combined",
		Normalize: true,
	}
}

// Matcher finds near-duplicate delegate identifiers.
type Matcher struct {
	config MatcherConfig
}

// NewMatcher creates a matcher with the given configuration.
func NewMatcher(config MatcherConfig) *Matcher {
	if config.Threshold <= 0 || config.Threshold > 1 {
		config.Threshold = 0.8
	}
	if config.Algorithm == "" {
		config.Algorithm = "combined"
	}
	return &Matcher{config: config}
}

// Delegadas extracts the distinct delegate identifiers from records with
// their usage counts, most used first.
func Delegadas(records []model.Record) []Delegada {
	counts := make(map[string]int)
	var order []string
	for _, rec := range records {
		id := strings.TrimSpace(model.FormatValue(rec[model.FieldDelegadaUUID]))
		if id == "" {
			continue
		}
		if _, seen := counts[id]; !seen {
			order = append(order, id)
		}
		counts[id]++
	}

	delegadas := make([]Delegada, 0, len(order))
	for _, id := range order {
		delegadas = append(delegadas, Delegada{ID: id, Count: counts[id]})
	}
	return delegadas
}

// FindSimilar compares all pairs of delegate identifiers and returns those
// above the threshold.
func (m *Matcher) FindSimilar(delegadas []Delegada) []Match {
	logging.Debug("matching delegate identifiers",
		logging.Operation("delegada_similarity"),
		logging.Count(len(delegadas)),
		slog.Float64("threshold", m.config.Threshold),
		slog.String("algorithm", m.config.Algorithm),
	)

	var matches []Match

	// All pairs; the number of distinct delegates stays small
	for i := range delegadas {
		for j := i + 1; j < len(delegadas); j++ {
			score := m.Compare(delegadas[i].ID, delegadas[j].ID)
			if score >= m.config.Threshold {
				matches = append(matches, Match{
					A:         delegadas[i],
					B:         delegadas[j],
					Score:     score,
					Algorithm: m.config.Algorithm,
				})
				logging.Debug("found similar delegates",
					slog.String("a", delegadas[i].ID),
					slog.String("b", delegadas[j].ID),
					slog.Float64("score", score),
				)
			}
		}
	}

	return matches
}

// Compare returns the similarity score between two identifiers (0.0-1.0).
func (m *Matcher) Compare(a, b string) float64 {
	if m.config.Normalize {
		a = Normalize(a)
		b = Normalize(b)
	} else {
		a = strings.ToLower(a)
		b = strings.ToLower(b)
	}

	if a == b {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	switch m.config.Algorithm {
	case "levenshtein":
		return LevenshteinSimilarity(a, b)
	case "jaro-winkler":
		return JaroWinkler(a, b)
	case "combined":
		return max(LevenshteinSimilarity(a, b), JaroWinkler(a, b))
	default:
		return LevenshteinSimilarity(a, b)
	}
}

var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize prepares an identifier for comparison: lowercase, accents
// folded, separators collapsed to single spaces.
func Normalize(s string) string {
	s = strings.ToLower(s)
	if folded, _, err := transform.String(accentFolder, s); err == nil {
		s = folded
	}

	var result strings.Builder
	result.Grow(len(s))

	prevSpace := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			result.WriteRune(r)
			prevSpace = false
		case r == '-' || r == '_' || r == ' ' || r == '.' || r == ',':
			if !prevSpace {
				result.WriteRune(' ')
				prevSpace = true
			}
		}
	}

	return strings.TrimSpace(result.String())
}

// LevenshteinDistance calculates the minimum number of single-character
// edits required to change one string into another.
func LevenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	r1 := []rune(s1)
	r2 := []rune(s2)

	if len(r1) < len(r2) {
		r1, r2 = r2, r1
	}

	// Two rows instead of the full matrix
	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(r2)]
}

// LevenshteinSimilarity returns a normalized similarity score (0.0-1.0)
// based on Levenshtein distance.
func LevenshteinSimilarity(s1, s2 string) float64 {
	if len(s1) == 0 && len(s2) == 0 {
		return 1.0
	}

	distance := LevenshteinDistance(s1, s2)
	maxLen := max(len([]rune(s1)), len([]rune(s2)))

	return 1.0 - float64(distance)/float64(maxLen)
}

// JaroSimilarity calculates the Jaro similarity between two strings.
func JaroSimilarity(s1, s2 string) float64 {
	r1 := []rune(s1)
	r2 := []rune(s2)

	if len(r1) == 0 && len(r2) == 0 {
		return 1.0
	}
	if len(r1) == 0 || len(r2) == 0 {
		return 0.0
	}

	matchWindow := max(0, max(len(r1), len(r2))/2-1)

	s1Matches := make([]bool, len(r1))
	s2Matches := make([]bool, len(r2))

	matches := 0
	transpositions := 0

	for i := range r1 {
		start := max(0, i-matchWindow)
		end := min(len(r2), i+matchWindow+1)

		for j := start; j < end; j++ {
			if s2Matches[j] || r1[i] != r2[j] {
				continue
			}
			s1Matches[i] = true
			s2Matches[j] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0.0
	}

	k := 0
	for i := range r1 {
		if !s1Matches[i] {
			continue
		}
		for !s2Matches[k] {
			k++
		}
		if r1[i] != r2[k] {
			transpositions++
		}
		k++
	}

	return (float64(matches)/float64(len(r1)) +
		float64(matches)/float64(len(r2)) +
		float64(matches-transpositions/2)/float64(matches)) / 3.0
}

// JaroWinkler calculates the Jaro-Winkler similarity, which boosts strings
// that match from the beginning. Works well for names.
func JaroWinkler(s1, s2 string) float64 {
	jaro := JaroSimilarity(s1, s2)

	r1 := []rune(s1)
	r2 := []rune(s2)

	prefixLen := 0
	maxPrefix := min(4, min(len(r1), len(r2)))
	for i := range maxPrefix {
		if r1[i] == r2[i] {
			prefixLen++
		} else {
			break
		}
	}

	const scalingFactor = 0.1
	return jaro + float64(prefixLen)*scalingFactor*(1.0-jaro)
}
