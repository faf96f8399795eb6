package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/csvcodec"
)

// fields gives uniform access to one input row, whether it came from a CSV
// table or a JSON object. ok is false when the field is absent.
type fields interface {
	text(name string) (string, bool)
}

type tableRow struct {
	cols map[string]int
	row  []string
}

func (r tableRow) text(name string) (string, bool) {
	i, ok := r.cols[name]
	if !ok || i >= len(r.row) {
		return "", false
	}
	return r.row[i], true
}

func (r tableRow) blank() bool {
	for _, f := range r.row {
		if f != "" {
			return false
		}
	}
	return true
}

type jsonRow map[string]any

func (r jsonRow) text(name string) (string, bool) {
	switch v := r[name].(type) {
	case string:
		return strings.TrimSpace(v), true
	case json.Number:
		return v.String(), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return "", false
	}
}

func columnIndex(t *csvcodec.Table) map[string]int {
	cols := make(map[string]int, len(t.Headers))
	for i, h := range t.Headers {
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}
	return cols
}

// number returns the field as a float, 0 when absent or unparsable.
func number(f fields, name string) float64 {
	v, _ := optional(f, name)
	if v == nil {
		return 0
	}
	return *v
}

func optional(f fields, name string) (*float64, bool) {
	s, ok := f.text(name)
	if !ok || s == "" {
		return nil, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, false
	}
	return &v, true
}
