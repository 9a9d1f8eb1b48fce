// Package widget implements the interactive side of the sortable table:
// a sort/page state machine per table instance and a registry that keys
// instances by the host-supplied instance key.
package widget

import (
	"fmt"
	"strings"

	"github.com/tinytelemetry/sortable-table/internal/model"
)

// NextSort returns the sort state after a header click on column.
// A new column starts ascending, ascending turns descending and
// descending returns to unsorted.
func NextSort(current *model.SortSpec, column string) *model.SortSpec {
	if current == nil || current.Column != column {
		return &model.SortSpec{Column: column, Direction: model.Ascending}
	}
	if current.Direction == model.Ascending {
		return &model.SortSpec{Column: column, Direction: model.Descending}
	}
	return nil
}

// PageAction is a pagination control.
type PageAction string

const (
	PageFirst PageAction = "first"
	PagePrev  PageAction = "prev"
	PageNext  PageAction = "next"
	PageLast  PageAction = "last"
)

// ParsePageAction accepts first, prev, next or last.
func ParsePageAction(s string) (PageAction, error) {
	switch a := PageAction(strings.ToLower(strings.TrimSpace(s))); a {
	case PageFirst, PagePrev, PageNext, PageLast:
		return a, nil
	}
	return "", fmt.Errorf("%w: unknown page action %q", model.ErrInvalidPayload, s)
}

// Machine holds the widget's view of one table: an optional sort and a
// page cursor in [0, maxPage-1]. The two never influence each other.
type Machine struct {
	columns []string
	sort    *model.SortSpec
	page    int
	maxPage int
}

// NewMachine starts a machine from a mounted payload.
func NewMachine(p model.Payload) *Machine {
	m := &Machine{maxPage: 1}
	m.Sync(p, true, true)
	return m
}

// Sync adopts the payload's columns and page bound. When syncPage or
// syncSort is set, the host's page or sort replaces the widget's own.
func (m *Machine) Sync(p model.Payload, syncPage, syncSort bool) {
	m.columns = p.Data.ColumnNames()
	m.maxPage = p.MaxPage
	if m.maxPage < 1 {
		m.maxPage = 1
	}
	if syncSort {
		m.sort = p.Sort()
	}
	if m.sort != nil && !m.hasColumn(m.sort.Column) {
		m.sort = nil
	}
	if syncPage {
		m.page = p.CurrentPage
	}
	m.page = m.clamp(m.page)
}

func (m *Machine) hasColumn(name string) bool {
	for _, c := range m.columns {
		if c == name {
			return true
		}
	}
	return false
}

func (m *Machine) clamp(page int) int {
	if page > m.maxPage-1 {
		page = m.maxPage - 1
	}
	if page < 0 {
		page = 0
	}
	return page
}

// ClickHeader toggles the sort for column.
func (m *Machine) ClickHeader(column string) error {
	if !m.hasColumn(column) {
		return fmt.Errorf("%w: unknown column %q", model.ErrInvalidPayload, column)
	}
	m.sort = NextSort(m.sort, column)
	return nil
}

// Apply runs a pagination control.
func (m *Machine) Apply(action PageAction) {
	switch action {
	case PageFirst:
		m.page = 0
	case PagePrev:
		m.page = m.clamp(m.page - 1)
	case PageNext:
		m.page = m.clamp(m.page + 1)
	case PageLast:
		m.page = m.maxPage - 1
	}
}

// GoTo moves to page n, clamped to the valid range.
func (m *Machine) GoTo(n int) {
	m.page = m.clamp(n)
}

// Page returns the current page index.
func (m *Machine) Page() int { return m.page }

// MaxPage returns the page count bound.
func (m *Machine) MaxPage() int { return m.maxPage }

// AtFirst reports whether the cursor is on the first page.
func (m *Machine) AtFirst() bool { return m.page == 0 }

// AtLast reports whether the cursor is on the last allowed page.
func (m *Machine) AtLast() bool { return m.page >= m.maxPage-1 }

// Sort returns a copy of the current sort, or nil.
func (m *Machine) Sort() *model.SortSpec {
	if m.sort == nil {
		return nil
	}
	s := *m.sort
	return &s
}

// Event returns the value the widget reports to the host.
func (m *Machine) Event() model.Event {
	return model.Event{Page: m.page, Sort: m.Sort()}
}
