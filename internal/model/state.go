package model

// HostState is the host's own record of what the table should show.
// The caller owns it and passes it into each render cycle.
type HostState struct {
	SortColumn    string    `json:"sort_column"`
	SortDirection Direction `json:"sort_direction"`
	Page          int       `json:"page"`
	Retrigger     bool      `json:"retrigger"`
}

// NewHostState returns an unsorted state on the first page.
func NewHostState() HostState {
	return HostState{SortDirection: DefaultSortDirection}
}

// Sort returns the host's sort spec, or nil when unsorted.
func (s HostState) Sort() *SortSpec {
	if s.SortColumn == "" {
		return nil
	}
	return &SortSpec{Column: s.SortColumn, Direction: s.SortDirection}
}

// Apply folds a widget event into the state and reports whether the host
// needs to render again. A nil sort clears any active sort.
func (s *HostState) Apply(ev Event) bool {
	changed := false
	if ev.Page != s.Page {
		s.Page = ev.Page
		changed = true
	}
	if ev.Sort != nil {
		if ev.Sort.Column != s.SortColumn || ev.Sort.Direction != s.SortDirection {
			s.SortColumn = ev.Sort.Column
			s.SortDirection = ev.Sort.Direction
			changed = true
		}
	} else if s.SortColumn != "" {
		s.SortColumn = ""
		changed = true
	}
	if !s.SortDirection.Valid() {
		s.SortDirection = DefaultSortDirection
	}
	return changed
}
