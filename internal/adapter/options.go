package adapter

import "github.com/tinytelemetry/sortable-table/internal/model"

type options struct {
	sortColumn     string
	sortDirection  model.Direction
	paginated      bool
	page           int
	maxPage        int
	columnWidths   []model.ColumnWidth
	retrigger      bool
	maxHeight      string
	styleOverrides string
	cellTooltips   map[string][]string
}

func defaultOptions() options {
	return options{
		sortDirection: model.DefaultSortDirection,
		paginated:     true,
		maxPage:       model.DefaultMaxPage,
		maxHeight:     model.DefaultMaxHeight,
	}
}

// Option adjusts one render argument.
type Option func(*options)

// WithSort marks column as sorted in dir. An empty column means unsorted.
func WithSort(column string, dir model.Direction) Option {
	return func(o *options) {
		o.sortColumn = column
		if dir != "" {
			o.sortDirection = dir
		}
	}
}

// WithPagination shows or hides the pagination controls.
func WithPagination(enabled bool) Option {
	return func(o *options) { o.paginated = enabled }
}

// WithPage sets the page the host is currently showing.
func WithPage(page int) Option {
	return func(o *options) { o.page = page }
}

// WithMaxPage bounds the pagination controls.
func WithMaxPage(maxPage int) Option {
	return func(o *options) { o.maxPage = maxPage }
}

// WithColumnWidths declares one width per column.
func WithColumnWidths(widths ...model.ColumnWidth) Option {
	return func(o *options) { o.columnWidths = widths }
}

// WithRetrigger sets the refresh toggle. Flipping it forces the widget to
// redraw; it has no other effect.
func WithRetrigger(retrigger bool) Option {
	return func(o *options) { o.retrigger = retrigger }
}

// WithMaxHeight limits the rendered table height (a CSS length).
func WithMaxHeight(height string) Option {
	return func(o *options) { o.maxHeight = height }
}

// WithStyleOverrides sets "name: value; ..." style declarations.
func WithStyleOverrides(style string) Option {
	return func(o *options) { o.styleOverrides = style }
}

// WithCellTooltips sets per-cell tooltips keyed by column, one per row.
func WithCellTooltips(tooltips map[string][]string) Option {
	return func(o *options) { o.cellTooltips = tooltips }
}

// WithState applies a host state's sort and page.
func WithState(s model.HostState) Option {
	return func(o *options) {
		o.sortColumn = s.SortColumn
		if s.SortDirection != "" {
			o.sortDirection = s.SortDirection
		}
		o.page = s.Page
		o.retrigger = s.Retrigger
	}
}
