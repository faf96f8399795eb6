// Package csvcodec reads and writes the plain comma separated text exchanged
// with the optimizer. Fields are split on ',' and lines on '\n' without any
// quoting support: a field containing a comma or newline does not round trip.
package csvcodec

import (
	"errors"
	"strings"
)

// ErrEmptyInput is returned by Parse when the text has no lines.
var ErrEmptyInput = errors.New("csv: empty input")

// Table is a parsed CSV document. Rows may be shorter or longer than Headers.
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// Parse splits text into a header line and data rows. Every field is trimmed,
// which also drops the '\r' of CRLF files.
func Parse(text string) (*Table, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}

	lines := strings.Split(text, "\n")
	table := &Table{
		Headers: splitFields(lines[0]),
		Rows:    make([][]string, 0, len(lines)-1),
	}
	for _, line := range lines[1:] {
		table.Rows = append(table.Rows, splitFields(line))
	}
	return table, nil
}

func splitFields(line string) []string {
	fields := strings.Split(line, ",")
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}
	return fields
}

// Serialize writes headers and rows back to text. Each row is written in
// header order: short rows are padded with empty fields and extra fields are
// dropped. With no headers, rows are written as they are.
func Serialize(headers []string, rows [][]string) string {
	var b strings.Builder
	b.WriteString(strings.Join(headers, ","))
	for _, row := range rows {
		b.WriteByte('\n')
		if len(headers) == 0 {
			b.WriteString(strings.Join(row, ","))
			continue
		}
		for i := range headers {
			if i > 0 {
				b.WriteByte(',')
			}
			if i < len(row) {
				b.WriteString(row[i])
			}
		}
	}
	return b.String()
}

// Column returns the index of the header named name, or -1.
func (t *Table) Column(name string) int {
	for i, h := range t.Headers {
		if h == name {
			return i
		}
	}
	return -1
}

// Field returns row[col], or "" when the row is too short or col is -1.
func Field(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}
