package query

import "strings"

// Distance is the Levenshtein edit distance between the lowercased
// byte sequences of a and b, with unit insert/delete/substitute costs.
// Two rolling rows keep it at O(len(b)) extra space.
func Distance(a, b string) int {
	ab := []byte(strings.ToLower(a))
	bb := []byte(strings.ToLower(b))
	n, m := len(ab), len(bb)

	if n == 0 {
		return m
	}
	if m == 0 {
		return n
	}

	prev := make([]int, m+1)
	cur := make([]int, m+1)
	for j := 0; j <= m; j++ {
		prev[j] = j
	}

	for i := 1; i <= n; i++ {
		cur[0] = i
		ai := ab[i-1]
		for j := 1; j <= m; j++ {
			cost := 1
			if ai == bb[j-1] {
				cost = 0
			}
			cur[j] = min(cur[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[m]
}
