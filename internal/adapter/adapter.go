// Package adapter is the host-side half of the sortable table: it turns a
// dataset and display options into a wire payload, forwards it across a
// Bridge and normalizes whatever comes back into a model.Event.
package adapter

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/tinytelemetry/sortable-table/internal/model"
)

// Bridge carries a payload to the widget identified by key and returns
// the widget's current value.
type Bridge interface {
	Mount(ctx context.Context, key string, p model.Payload) (model.RawResult, error)
}

// Table renders sortable tables through a bridge.
type Table struct {
	bridge Bridge
}

// New creates a table adapter over bridge.
func New(bridge Bridge) *Table {
	return &Table{bridge: bridge}
}

// Render sends data and options to the widget and returns the normalized
// interaction event. Validation errors wrap model.ErrInvalidPayload;
// bridge errors are returned as-is (wrapped) and never replaced by a
// default result.
func (t *Table) Render(ctx context.Context, key string, data model.Table, opts ...Option) (model.Event, error) {
	p, err := BuildPayload(data, opts...)
	if err != nil {
		return model.Event{}, err
	}
	if key == "" {
		key = DeriveKey(data)
	}
	raw, err := t.bridge.Mount(ctx, key, p)
	if err != nil {
		return model.Event{}, fmt.Errorf("sortable table %q: %w", key, err)
	}
	return model.Normalize(raw), nil
}

// BuildPayload applies opts over the defaults and validates the result.
// The caller's table is copied, never mutated.
func BuildPayload(data model.Table, opts ...Option) (model.Payload, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	p := model.Payload{
		Data:           data.Clone(),
		SortDirection:  o.sortDirection,
		Paginated:      o.paginated,
		CurrentPage:    o.page,
		MaxPage:        o.maxPage,
		ColumnWidths:   append([]model.ColumnWidth{}, o.columnWidths...),
		Retrigger:      o.retrigger,
		MaxHeight:      o.maxHeight,
		StyleOverrides: o.styleOverrides,
		CellTooltips:   make(map[string][]string, len(o.cellTooltips)),
	}
	if o.sortColumn != "" {
		col := o.sortColumn
		p.SortColumn = &col
	}
	for col, tips := range o.cellTooltips {
		p.CellTooltips[col] = append([]string{}, tips...)
	}

	if err := p.Validate(); err != nil {
		return model.Payload{}, err
	}
	return p, nil
}

// DeriveKey returns a stable instance key for callers that do not supply
// one. It depends only on the column names, so repeated renders of the
// same table keep their identity as the rows change.
func DeriveKey(data model.Table) string {
	h := fnv.New64a()
	h.Write([]byte(strings.Join(data.ColumnNames(), "\x00")))
	return fmt.Sprintf("table-%016x", h.Sum64())
}
