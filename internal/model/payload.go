package model

// Payload is what the host sends across the bridge on every render cycle.
// Field names follow the widget's camelCase wire contract.
type Payload struct {
	Data           Table               `json:"data"`
	SortColumn     *string             `json:"sortColumn"`
	SortDirection  Direction           `json:"sortDirection"`
	Paginated      bool                `json:"paginated"`
	CurrentPage    int                 `json:"currentPage"`
	MaxPage        int                 `json:"maxPage"`
	ColumnWidths   []ColumnWidth       `json:"columnWidths"`
	Retrigger      bool                `json:"retrigger"`
	MaxHeight      string              `json:"maxHeight"`
	StyleOverrides string              `json:"styleOverrides"`
	CellTooltips   map[string][]string `json:"cellTooltips"`
}

// Sort returns the host's sort request, or nil when unsorted.
func (p Payload) Sort() *SortSpec {
	if p.SortColumn == nil || *p.SortColumn == "" {
		return nil
	}
	return &SortSpec{Column: *p.SortColumn, Direction: p.SortDirection}
}

// Tooltip returns the tooltip for a cell, or "" when none was given.
func (p Payload) Tooltip(column string, row int) string {
	tips, ok := p.CellTooltips[column]
	if !ok || row < 0 || row >= len(tips) {
		return ""
	}
	return tips[row]
}

// Width returns the declared width for column i, or the zero width.
func (p Payload) Width(i int) ColumnWidth {
	if i < 0 || i >= len(p.ColumnWidths) {
		return ColumnWidth{}
	}
	return p.ColumnWidths[i]
}

// Validate rejects payloads the widget could not display faithfully.
// Column width count mismatches are tolerated.
func (p Payload) Validate() error {
	if err := p.Data.Validate(); err != nil {
		return err
	}
	if !p.SortDirection.Valid() {
		return invalidf("unknown sort direction %q", p.SortDirection)
	}
	if s := p.Sort(); s != nil && p.Data.ColumnIndex(s.Column) < 0 {
		return invalidf("sort column %q is not in the table", s.Column)
	}
	if p.MaxPage < 1 {
		return invalidf("max page %d, want >= 1", p.MaxPage)
	}
	if p.CurrentPage < 0 || p.CurrentPage > p.MaxPage-1 {
		return invalidf("current page %d outside [0, %d)", p.CurrentPage, p.MaxPage)
	}
	rows := p.Data.NumRows()
	for col, tips := range p.CellTooltips {
		if p.Data.ColumnIndex(col) < 0 {
			return invalidf("tooltips given for unknown column %q", col)
		}
		if len(tips) != rows {
			return invalidf("column %q has %d tooltips, want %d", col, len(tips), rows)
		}
	}
	for i, w := range p.ColumnWidths {
		if w.Pixels < 0 {
			return invalidf("column width %d is negative", i)
		}
	}
	return nil
}
