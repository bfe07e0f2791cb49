package query

import (
	"sort"
	"strings"

	"sigidx/internal/model"
)

// Rank scores candidates against the query and returns the best `top`
// entries. The sort key (score, lower name, lower path, line, column)
// is a total order, so the result is deterministic for a given input.
func Rank(candidates []model.Candidate, q model.Query, top int) []model.Candidate {
	type scored struct {
		score int
		c     model.Candidate
	}

	rows := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		score := 0
		if q.Name != "" {
			score += Distance(c.Name, q.Name)
		}
		if q.SignatureNorm != "" {
			score += Distance(c.SignatureNorm, q.SignatureNorm)
		}
		rows = append(rows, scored{score: score, c: c})
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.score != b.score {
			return a.score < b.score
		}
		an, bn := strings.ToLower(a.c.Name), strings.ToLower(b.c.Name)
		if an != bn {
			return an < bn
		}
		ap, bp := strings.ToLower(a.c.Path), strings.ToLower(b.c.Path)
		if ap != bp {
			return ap < bp
		}
		if a.c.Line != b.c.Line {
			return a.c.Line < b.c.Line
		}
		return a.c.Column < b.c.Column
	})

	if top < 0 {
		top = 0
	}
	if top > len(rows) {
		top = len(rows)
	}
	out := make([]model.Candidate, 0, top)
	for _, r := range rows[:top] {
		out = append(out, r.c)
	}
	return out
}
