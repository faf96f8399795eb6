package normalize

import (
	"strconv"
	"strings"

	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/csvcodec"
	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/models"
)

// Role is the meaning a column plays in a comparison row.
type Role int

const (
	RoleLabel Role = iota
	RoleBefore
	RoleAfter
)

func (r Role) String() string {
	switch r {
	case RoleLabel:
		return "label"
	case RoleBefore:
		return "before"
	case RoleAfter:
		return "after"
	default:
		return "unknown"
	}
}

// Matcher locates the column for one role. Candidates are lowercase
// substrings tried in order; the first header (left to right) containing the
// first matching candidate wins. Fallback is the positional column used when
// nothing matches.
type Matcher struct {
	Role       Role
	Candidates []string
	Fallback   int
}

// DefaultMatchers is applied in order; a column claimed by an earlier matcher
// is not considered by later ones.
var DefaultMatchers = []Matcher{
	{Role: RoleLabel, Candidates: []string{"intersection", "location", "signal", "name"}, Fallback: 0},
	{Role: RoleBefore, Candidates: []string{"original", "current", "before"}, Fallback: 1},
	{Role: RoleAfter, Candidates: []string{"optimized", "new", "after", "suggested", "recommended"}, Fallback: 2},
}

// ResolveColumns returns the column index chosen for each role.
func ResolveColumns(headers []string, matchers []Matcher) map[Role]int {
	lower := make([]string, len(headers))
	for i, h := range headers {
		lower[i] = strings.ToLower(h)
	}

	claimed := make(map[int]bool)
	cols := make(map[Role]int, len(matchers))
	for _, m := range matchers {
		col := matchColumn(lower, m.Candidates, claimed)
		if col < 0 {
			col = fallbackColumn(len(headers), m.Fallback, claimed)
		}
		claimed[col] = true
		cols[m.Role] = col
	}
	return cols
}

// fallbackColumn is the matcher's positional column, or the first unclaimed
// one when an earlier role already took it.
func fallbackColumn(n, preferred int, claimed map[int]bool) int {
	if !claimed[preferred] {
		return preferred
	}
	for i := 0; i < n; i++ {
		if !claimed[i] {
			return i
		}
	}
	return preferred
}

func matchColumn(headers, candidates []string, claimed map[int]bool) int {
	for _, cand := range candidates {
		for i, h := range headers {
			if !claimed[i] && strings.Contains(h, cand) {
				return i
			}
		}
	}
	return -1
}

// Heuristic reads a CSV of unknown layout as label/before/after rows. Rows
// with an empty label or non-numeric values are dropped.
func Heuristic(table *csvcodec.Table, matchers []Matcher) ([]models.ComparisonRow, error) {
	cols := ResolveColumns(table.Headers, matchers)

	rows := make([]models.ComparisonRow, 0, len(table.Rows))
	for _, row := range table.Rows {
		label := csvcodec.Field(row, cols[RoleLabel])
		if label == "" {
			continue
		}
		before, err := strconv.ParseFloat(csvcodec.Field(row, cols[RoleBefore]), 64)
		if err != nil {
			continue
		}
		after, err := strconv.ParseFloat(csvcodec.Field(row, cols[RoleAfter]), 64)
		if err != nil {
			continue
		}
		rows = append(rows, models.ComparisonRow{Label: label, Before: before, After: after})
	}
	if len(rows) == 0 {
		return nil, ErrNoValidData
	}
	return rows, nil
}
