package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidPayload is wrapped by every validation failure so callers can
// tell malformed input apart from transport errors.
var ErrInvalidPayload = errors.New("invalid table payload")

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidPayload, fmt.Sprintf(format, args...))
}

// Column is one named column of display strings.
type Column struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Table is an ordered set of equally long columns. Row order is the order
// in which the host supplied the rows.
type Table struct {
	Columns []Column `json:"columns"`
}

// NewTable builds a table from column names and row-major cells.
// Short rows are padded with empty cells; extra cells are an error.
func NewTable(names []string, rows [][]string) (Table, error) {
	t := Table{Columns: make([]Column, len(names))}
	for i, name := range names {
		t.Columns[i] = Column{Name: name, Values: make([]string, len(rows))}
	}
	for r, row := range rows {
		if len(row) > len(names) {
			return Table{}, invalidf("row %d has %d cells, want at most %d", r, len(row), len(names))
		}
		for c, cell := range row {
			t.Columns[c].Values[r] = cell
		}
	}
	return t, nil
}

// NumRows returns the number of rows (0 for a table without columns).
func (t Table) NumRows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Values)
}

// ColumnNames returns the column names in display order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// ColumnIndex returns the index of the named column, or -1.
func (t Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Column returns the named column.
func (t Table) Column(name string) (Column, bool) {
	if i := t.ColumnIndex(name); i >= 0 {
		return t.Columns[i], true
	}
	return Column{}, false
}

// Cell returns the display string at row r, column c.
func (t Table) Cell(r, c int) string {
	if c < 0 || c >= len(t.Columns) || r < 0 || r >= len(t.Columns[c].Values) {
		return ""
	}
	return t.Columns[c].Values[r]
}

// Rows returns a row-major copy of the cells.
func (t Table) Rows() [][]string {
	n := t.NumRows()
	rows := make([][]string, n)
	for r := 0; r < n; r++ {
		row := make([]string, len(t.Columns))
		for c := range t.Columns {
			row[c] = t.Columns[c].Values[r]
		}
		rows[r] = row
	}
	return rows
}

// Clone returns a deep copy so callers can hand the table across a bridge
// without sharing backing arrays with the host's dataset.
func (t Table) Clone() Table {
	out := Table{Columns: make([]Column, len(t.Columns))}
	for i, c := range t.Columns {
		out.Columns[i] = Column{Name: c.Name, Values: append([]string{}, c.Values...)}
	}
	return out
}

// Validate checks that column names are unique and non-empty and that all
// columns have the same length.
func (t Table) Validate() error {
	seen := make(map[string]bool, len(t.Columns))
	rows := t.NumRows()
	for i, c := range t.Columns {
		if c.Name == "" {
			return invalidf("column %d has no name", i)
		}
		if seen[c.Name] {
			return invalidf("duplicate column %q", c.Name)
		}
		seen[c.Name] = true
		if len(c.Values) != rows {
			return invalidf("column %q has %d values, want %d", c.Name, len(c.Values), rows)
		}
	}
	return nil
}

// Direction is a sort direction.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// ParseDirection accepts "asc" or "desc" (case-insensitive).
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case Ascending:
		return Ascending, nil
	case Descending:
		return Descending, nil
	}
	return "", invalidf("unknown sort direction %q", s)
}

// Valid reports whether d is asc or desc.
func (d Direction) Valid() bool {
	return d == Ascending || d == Descending
}

// SortSpec names the sorted column and its direction. A nil *SortSpec
// means the table is unsorted.
type SortSpec struct {
	Column    string    `json:"column"`
	Direction Direction `json:"direction"`
}

// Equal compares two optional sort specs.
func (s *SortSpec) Equal(o *SortSpec) bool {
	if s == nil || o == nil {
		return s == nil && o == nil
	}
	return *s == *o
}

// ColumnWidth is either a pixel count or a CSS length such as "30%".
// The zero value means "use the default width".
type ColumnWidth struct {
	Pixels int
	CSS    string
}

// Px returns a pixel width.
func Px(n int) ColumnWidth { return ColumnWidth{Pixels: n} }

// CSSWidth returns a CSS length width.
func CSSWidth(s string) ColumnWidth { return ColumnWidth{CSS: s} }

// IsZero reports whether no width was given.
func (w ColumnWidth) IsZero() bool {
	return w.Pixels == 0 && w.CSS == ""
}

// String renders the width as a CSS length, or "" for the default.
func (w ColumnWidth) String() string {
	if w.CSS != "" {
		return w.CSS
	}
	if w.Pixels > 0 {
		return strconv.Itoa(w.Pixels) + "px"
	}
	return ""
}

// MarshalJSON encodes pixel widths as numbers and CSS widths as strings.
func (w ColumnWidth) MarshalJSON() ([]byte, error) {
	if w.CSS != "" {
		return json.Marshal(w.CSS)
	}
	if w.Pixels != 0 {
		return json.Marshal(w.Pixels)
	}
	return []byte("null"), nil
}

// UnmarshalJSON accepts a number, a string or null.
func (w *ColumnWidth) UnmarshalJSON(data []byte) error {
	*w = ColumnWidth{}
	trimmed := strings.TrimSpace(string(data))
	switch {
	case trimmed == "null":
		return nil
	case strings.HasPrefix(trimmed, `"`):
		return json.Unmarshal(data, &w.CSS)
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("column width: %w", err)
	}
	w.Pixels = int(f)
	return nil
}

// ParseColumnWidth reads a config value: bare integers are pixels,
// anything else is a CSS length.
func ParseColumnWidth(s string) ColumnWidth {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return Px(n)
	}
	return CSSWidth(s)
}
