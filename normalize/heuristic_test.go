package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/csvcodec"
	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/models"
)

func TestResolveColumns(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		want    map[Role]int
	}{
		{
			name:    "substring matches",
			headers: []string{"Location", "Current", "Suggested"},
			want:    map[Role]int{RoleLabel: 0, RoleBefore: 1, RoleAfter: 2},
		},
		{
			name:    "matches out of positional order",
			headers: []string{"Optimized Time", "Intersection Name", "Original Time"},
			want:    map[Role]int{RoleLabel: 1, RoleBefore: 2, RoleAfter: 0},
		},
		{
			name:    "candidate priority beats column order",
			headers: []string{"Signal", "Location", "Before", "After"},
			want:    map[Role]int{RoleLabel: 1, RoleBefore: 2, RoleAfter: 3},
		},
		{
			name:    "case-insensitive",
			headers: []string{"NAME", "BEFORE_SEC", "NEW_SEC"},
			want:    map[Role]int{RoleLabel: 0, RoleBefore: 1, RoleAfter: 2},
		},
		{
			name:    "positional fallback",
			headers: []string{"a", "b", "c"},
			want:    map[Role]int{RoleLabel: 0, RoleBefore: 1, RoleAfter: 2},
		},
		{
			name:    "claimed column not reused",
			headers: []string{"current location", "x", "after"},
			want:    map[Role]int{RoleLabel: 0, RoleBefore: 1, RoleAfter: 2},
		},
		{
			name:    "fallback skips claimed column",
			headers: []string{"Value", "Name", "Optimized"},
			want:    map[Role]int{RoleLabel: 1, RoleBefore: 0, RoleAfter: 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveColumns(tt.headers, DefaultMatchers))
		})
	}
}

func TestHeuristicScenario(t *testing.T) {
	table := &csvcodec.Table{
		Headers: []string{"Location", "Current", "Suggested"},
		Rows:    [][]string{{"Main St", "40", "30"}},
	}
	rows, err := Heuristic(table, DefaultMatchers)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.ComparisonRow{Label: "Main St", Before: 40, After: 30}, rows[0])

	points := ComparisonPoints(rows)
	require.Len(t, points, 1)
	assert.Equal(t, "Main St", points[0].Parameter)
	assert.False(t, points[0].SyntheticBaseline)
}

func TestHeuristicDropsRows(t *testing.T) {
	table := &csvcodec.Table{
		Headers: []string{"Name", "Before", "After"},
		Rows: [][]string{
			{"", "1", "2"},
			{"A", "x", "2"},
			{"B", "1"},
			{"C", "3", "4"},
		},
	}
	rows, err := Heuristic(table, DefaultMatchers)
	require.NoError(t, err)
	assert.Equal(t, []models.ComparisonRow{{Label: "C", Before: 3, After: 4}}, rows)
}

func TestHeuristicNoValidData(t *testing.T) {
	table := &csvcodec.Table{Headers: []string{"Name"}, Rows: [][]string{{"A"}}}
	_, err := Heuristic(table, DefaultMatchers)
	assert.ErrorIs(t, err, ErrNoValidData)
}

func TestHeuristicCustomMatchers(t *testing.T) {
	matchers := []Matcher{
		{Role: RoleLabel, Candidates: []string{"junction"}, Fallback: 0},
		{Role: RoleBefore, Candidates: []string{"legacy"}, Fallback: 1},
		{Role: RoleAfter, Candidates: []string{"tuned"}, Fallback: 2},
	}
	table := &csvcodec.Table{
		Headers: []string{"tuned", "legacy", "junction"},
		Rows:    [][]string{{"20", "25", "J1"}},
	}
	rows, err := Heuristic(table, matchers)
	require.NoError(t, err)
	assert.Equal(t, []models.ComparisonRow{{Label: "J1", Before: 25, After: 20}}, rows)
}

func TestHeuristicFallbackUsesFreeColumn(t *testing.T) {
	table := mustParse(t, "Value,Name,Optimized\n40,Main St,30")

	rows, err := Heuristic(table, DefaultMatchers)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.ComparisonRow{Label: "Main St", Before: 40, After: 30}, rows[0])
}
