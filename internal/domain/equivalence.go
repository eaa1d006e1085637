package domain

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultFuzzyThreshold is the similarity above which two club names are
// treated as the same club.
const DefaultFuzzyThreshold = 0.80

// EquivalenceMap maps a club to the affiliate ("filial") teams whose
// players are exempt from loan-ratio counting.
type EquivalenceMap map[string][]string

// EquivalenceResolver canonicalizes club-name variants and answers
// affiliate queries. Resolution is total: an unmapped name canonicalizes
// to itself, so the resolver never fails a lookup.
type EquivalenceResolver struct {
	equivalences   EquivalenceMap
	canonical      map[string]string // normalized variant -> display name
	fuzzyThreshold float64
}

// NewEquivalenceResolver builds a resolver from an equivalence map.
// A non-positive threshold falls back to DefaultFuzzyThreshold.
func NewEquivalenceResolver(equivalences EquivalenceMap, fuzzyThreshold float64) *EquivalenceResolver {
	if fuzzyThreshold <= 0 {
		fuzzyThreshold = DefaultFuzzyThreshold
	}
	r := &EquivalenceResolver{
		equivalences:   equivalences,
		canonical:      make(map[string]string),
		fuzzyThreshold: fuzzyThreshold,
	}
	for club, affiliates := range equivalences {
		r.register(club)
		for _, affiliate := range affiliates {
			r.register(affiliate)
		}
	}
	return r
}

func (r *EquivalenceResolver) register(name string) {
	key := normalizeClubName(name)
	if key == "" {
		return
	}
	if _, exists := r.canonical[key]; !exists {
		r.canonical[key] = strings.TrimSpace(name)
	}
}

// Canonicalize maps a club-name variant to its canonical club. Resolving
// the same name twice always yields the same result; unknown names map to
// their trimmed form.
func (r *EquivalenceResolver) Canonicalize(name string) string {
	key := normalizeClubName(name)
	if key == "" {
		return strings.TrimSpace(name)
	}
	if display, ok := r.canonical[key]; ok {
		return display
	}
	return strings.TrimSpace(name)
}

// SameClub reports whether two declared names refer to the same club
// despite spelling variants: exact match after normalization, or fuzzy
// similarity at or above the threshold.
func (r *EquivalenceResolver) SameClub(a, b string) bool {
	if strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b)) {
		return true
	}
	na, nb := normalizeClubName(a), normalizeClubName(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	return NameSimilarity(a, b) >= r.fuzzyThreshold
}

// IsAffiliate reports whether clubB is an affiliate of clubA (or the
// reverse). Only the rule engine's loan-ratio computation consults this.
func (r *EquivalenceResolver) IsAffiliate(clubA, clubB string) bool {
	return r.affiliated(clubA, clubB) || r.affiliated(clubB, clubA)
}

func (r *EquivalenceResolver) affiliated(parent, child string) bool {
	np := normalizeClubName(parent)
	nc := normalizeClubName(child)
	for club, affiliates := range r.equivalences {
		if normalizeClubName(club) != np {
			continue
		}
		for _, affiliate := range affiliates {
			if normalizeClubName(affiliate) == nc {
				return true
			}
		}
	}
	return false
}

// NameSimilarity scores two club names in [0,1]. Normalized substring
// containment is full confidence; otherwise a Levenshtein ratio over the
// normalized forms.
func NameSimilarity(a, b string) float64 {
	na, nb := normalizeClubName(a), normalizeClubName(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return 1
	}
	dist := levenshtein.ComputeDistance(na, nb)
	longest := len([]rune(na))
	if l := len([]rune(nb)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 0
	}
	return 1 - float64(dist)/float64(longest)
}

// Club names arrive with inconsistent casing, accents and boilerplate
// ("Club", "C.B.", "Deportivo"...). These words carry no identity and are
// dropped before comparison.
var clubNoiseWords = []string{
	"club", "badminton", "bádminton", "deportivo",
	"c.b.", "c.d.", "c.d.b.", "cdb", "cb", "cd",
	"recreativo", "ies", "asociacion", "agrupacion",
}

func normalizeClubName(s string) string {
	s = RemoveAccents(strings.ToLower(strings.TrimSpace(s)))
	for _, word := range clubNoiseWords {
		s = strings.ReplaceAll(s, RemoveAccents(word), "")
	}
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

var accentStripper = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// RemoveAccents strips combining marks so "Xàtiva" and "Xativa" compare
// equal.
func RemoveAccents(s string) string {
	out, _, err := transform.String(accentStripper, s)
	if err != nil {
		return s
	}
	return out
}
