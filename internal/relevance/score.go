package relevance

import (
	"slices"
	"sort"
	"strings"
	"unicode/utf8"

	"transitmon/internal/departure"
)

// MaxResults caps the number of ranked candidates.
const MaxResults = 10

// Score rates how well a candidate (name, place) matches term. Callers pass
// lower-cased strings. Every comparison is made on the raw strings and on
// their umlaut-folded forms. The result is never negative.
func Score(term, name, place string) int {
	score := 0
	words := strings.Fields(term)
	termNorm := Normalize(term)
	nameNorm := Normalize(name)
	placeNorm := Normalize(place)
	wordsNorm := strings.Fields(termNorm)

	if place != "" {
		inPlace := slices.ContainsFunc(words, func(w string) bool { return strings.Contains(place, w) })
		inPlaceNorm := slices.ContainsFunc(wordsNorm, func(w string) bool { return strings.Contains(placeNorm, w) })
		if inPlace || inPlaceNorm {
			score += 100
		}
		if slices.Contains(words, place) || slices.Contains(wordsNorm, placeNorm) {
			score += 200
		}
	}

	if name == term || nameNorm == termNorm {
		score += 300
	}
	if strings.HasPrefix(name, term) || strings.HasPrefix(nameNorm, termNorm) {
		score += 150
	}

	nameWords := strings.Fields(name)
	nameWordsNorm := strings.Fields(nameNorm)
	for i, w := range words {
		if utf8.RuneCountInString(w) <= 2 {
			continue
		}
		wn := at(wordsNorm, i, w)
		for j, nw := range nameWords {
			if strings.Contains(nw, w) || strings.Contains(at(nameWordsNorm, j, nw), wn) {
				score += 50
			}
		}
	}

	if r := Ratio(termNorm, nameNorm); r > 0.8 {
		score += int(r * 200)
	} else if r > 0.6 {
		score += int(r * 100)
	}

	for _, w := range words {
		if utf8.RuneCountInString(w) <= 3 {
			continue
		}
		wn := Normalize(strings.ToLower(w))
		best := 0.0
		for _, nw := range nameWords {
			best = max(best, Ratio(wn, Normalize(strings.ToLower(nw))))
		}
		if best > 0.8 {
			score += int(best * 75)
		} else if best > 0.7 {
			score += int(best * 40)
		}
	}

	termLen, nameLen := utf8.RuneCountInString(termNorm), utf8.RuneCountInString(nameNorm)
	if termLen > 3 && nameLen > 3 {
		d := Distance(termNorm, nameNorm)
		longest := max(termLen, nameLen)
		if d <= 2 && longest > 5 {
			score += 120
		} else if d <= 3 && longest > 8 {
			score += 80
		}
	}

	if utf8.RuneCountInString(place) > 20 {
		score -= 10
	}
	return max(score, 0)
}

func at(s []string, i int, fallback string) string {
	if i < len(s) {
		return s[i]
	}
	return fallback
}

// Rank orders stops by descending Score against term, keeping the
// original order among equal scores, and truncates to MaxResults.
func Rank(term string, stops []departure.Stop) []departure.Stop {
	termLower := strings.ToLower(term)
	scores := make([]int, len(stops))
	idx := make([]int, len(stops))
	for i, s := range stops {
		idx[i] = i
		scores[i] = Score(termLower, strings.ToLower(s.Name), strings.ToLower(s.Place))
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })

	out := make([]departure.Stop, 0, min(len(idx), MaxResults))
	for _, i := range idx {
		if len(out) == MaxResults {
			break
		}
		out = append(out, stops[i])
	}
	return out
}
