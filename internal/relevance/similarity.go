package relevance

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Ratio returns a similarity in [0, 1] between a and b, compared
// case-insensitively. It is 2*M/T where T is the total rune count and M the
// number of runes in matching blocks, found by repeatedly taking the longest
// common substring and recursing on both sides of it (Ratcliff/Obershelp).
func Ratio(a, b string) float64 {
	ra := []rune(strings.ToLower(a))
	rb := []rune(strings.ToLower(b))
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return 2 * float64(matching(ra, rb, 0, len(ra), 0, len(rb))) / float64(total)
}

func matching(a, b []rune, alo, ahi, blo, bhi int) int {
	i, j, k := longestMatch(a, b, alo, ahi, blo, bhi)
	if k == 0 {
		return 0
	}
	n := k
	if alo < i && blo < j {
		n += matching(a, b, alo, i, blo, j)
	}
	if i+k < ahi && j+k < bhi {
		n += matching(a, b, i+k, ahi, j+k, bhi)
	}
	return n
}

// longestMatch finds the longest common block of a[alo:ahi] and b[blo:bhi].
// Ties go to the block starting earliest in a, then earliest in b.
func longestMatch(a, b []rune, alo, ahi, blo, bhi int) (besti, bestj, bestk int) {
	besti, bestj = alo, blo
	prev := make([]int, bhi-blo+1)
	cur := make([]int, bhi-blo+1)
	for i := alo; i < ahi; i++ {
		for j := blo; j < bhi; j++ {
			if a[i] != b[j] {
				cur[j-blo+1] = 0
				continue
			}
			k := prev[j-blo] + 1
			cur[j-blo+1] = k
			if k > bestk {
				besti, bestj, bestk = i-k+1, j-k+1, k
			}
		}
		prev, cur = cur, prev
	}
	return besti, bestj, bestk
}

// Distance is the Levenshtein edit distance between a and b in runes.
func Distance(a, b string) int {
	return levenshtein.ComputeDistance(a, b)
}
