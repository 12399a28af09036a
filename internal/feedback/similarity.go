package feedback

import (
	"sort"
	"strings"
)

// Jaccard is |A∩B| / |A∪B| over lower-cased whitespace tokens. Two empty
// inputs score 0.
func Jaccard(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)

	union := len(setA)
	intersection := 0
	for tok := range setB {
		if _, ok := setA[tok]; ok {
			intersection++
		} else {
			union++
		}
	}

	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// Match is a record together with its similarity to the query question.
type Match struct {
	Record
	Similarity float64 `json:"similarity"`
}

// rankSimilar keeps records at or above threshold, best first. Ties keep
// append order.
func rankSimilar(records []Record, question string, threshold float64) []Match {
	var matches []Match
	for _, r := range records {
		sim := Jaccard(question, r.Question)
		if sim >= threshold {
			matches = append(matches, Match{Record: r, Similarity: sim})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	return matches
}
