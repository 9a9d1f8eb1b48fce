// Package dashboard is the host side of a table render cycle. It owns the
// data: it sorts and slices a dataset through the store, renders the page
// through the adapter, folds the widget's answer into the session state
// and renders again until the state settles.
package dashboard

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/tinytelemetry/sortable-table/internal/adapter"
	"github.com/tinytelemetry/sortable-table/internal/model"
)

// DefaultMaxReruns bounds how often one cycle renders again after the
// widget reported a state change.
const DefaultMaxReruns = 4

// Config describes one table on the dashboard.
type Config struct {
	Dataset        string
	Key            string
	PageSize       int
	Paginated      bool
	ColumnWidths   []model.ColumnWidth
	MaxHeight      string
	StyleOverrides string
	// Formats maps a column to a fmt verb for numeric cells, e.g. "%.3f".
	Formats map[string]string
	// Tooltips maps a column to a tooltip template; see expandTooltip.
	Tooltips  map[string]string
	MaxReruns int
}

func (c *Config) applyDefaults() {
	if c.Key == "" {
		c.Key = c.Dataset
	}
	if c.PageSize <= 0 {
		c.PageSize = model.DefaultPageSize
	}
	if c.MaxHeight == "" {
		c.MaxHeight = model.DefaultMaxHeight
	}
	if c.MaxReruns <= 0 {
		c.MaxReruns = DefaultMaxReruns
	}
}

// Dashboard renders one dataset as one sortable table.
type Dashboard struct {
	cfg       Config
	datasets  model.DatasetStore
	sessions  model.SessionStore
	table     *adapter.Table
	sessionID string

	mu sync.Mutex
}

// New creates a dashboard. An empty sessionID gets a fresh ULID.
func New(cfg Config, datasets model.DatasetStore, sessions model.SessionStore, bridge adapter.Bridge, sessionID string) (*Dashboard, error) {
	if cfg.Dataset == "" {
		return nil, fmt.Errorf("dashboard: dataset is required")
	}
	cfg.applyDefaults()
	if sessionID == "" {
		sessionID = ulid.Make().String()
	}
	return &Dashboard{
		cfg:       cfg,
		datasets:  datasets,
		sessions:  sessions,
		table:     adapter.New(bridge),
		sessionID: sessionID,
	}, nil
}

// Key returns the widget instance key the dashboard renders into.
func (d *Dashboard) Key() string { return d.cfg.Key }

// SessionID returns the id the dashboard persists its state under.
func (d *Dashboard) SessionID() string { return d.sessionID }

// sessionKey scopes the persisted state to this table within the session.
func (d *Dashboard) sessionKey() string { return d.sessionID + "/" + d.cfg.Key }

// State returns the persisted host state.
func (d *Dashboard) State(ctx context.Context) (model.HostState, error) {
	st, _, err := d.sessions.LoadSession(ctx, d.sessionKey())
	return st, err
}

// Rerun runs a render cycle for key. Keys of other tables are ignored.
func (d *Dashboard) Rerun(ctx context.Context, key string) error {
	if key != d.cfg.Key {
		return nil
	}
	_, err := d.Cycle(ctx)
	return err
}

// Cycle renders the table, applies the widget's event to the session
// state and renders again while the state keeps changing, up to
// MaxReruns extra renders. It returns the last event.
func (d *Dashboard) Cycle(ctx context.Context) (model.Event, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	state, _, err := d.sessions.LoadSession(ctx, d.sessionKey())
	if err != nil {
		return model.Event{}, fmt.Errorf("dashboard %s: %w", d.cfg.Key, err)
	}

	var ev model.Event
	for i := 0; i <= d.cfg.MaxReruns; i++ {
		ev, err = d.render(ctx, &state)
		if err != nil {
			return model.Event{}, err
		}
		changed := state.Apply(ev)
		if err := d.sessions.SaveSession(ctx, d.sessionKey(), state); err != nil {
			return model.Event{}, fmt.Errorf("dashboard %s: %w", d.cfg.Key, err)
		}
		if !changed {
			return ev, nil
		}
	}
	log.Printf("dashboard: %s still changing after %d reruns", d.cfg.Key, d.cfg.MaxReruns)
	return ev, nil
}

// render performs one host pass: sort and slice, format, render.
func (d *Dashboard) render(ctx context.Context, state *model.HostState) (model.Event, error) {
	columns, err := d.datasets.Columns(ctx, d.cfg.Dataset)
	if err != nil {
		return model.Event{}, fmt.Errorf("dashboard %s: %w", d.cfg.Key, err)
	}
	total, err := d.datasets.RowCount(ctx, d.cfg.Dataset)
	if err != nil {
		return model.Event{}, fmt.Errorf("dashboard %s: %w", d.cfg.Key, err)
	}

	if state.SortColumn != "" && !contains(columns, state.SortColumn) {
		state.SortColumn = ""
	}

	maxPage := 1
	offset, limit := 0, int(total)
	if d.cfg.Paginated {
		maxPage = PageCount(total, d.cfg.PageSize)
		state.Page = clampPage(state.Page, maxPage)
		offset, limit = state.Page*d.cfg.PageSize, d.cfg.PageSize
	} else {
		state.Page = 0
	}

	rows, err := d.datasets.QueryPage(ctx, d.cfg.Dataset, state.Sort(), offset, limit)
	if err != nil {
		return model.Event{}, fmt.Errorf("dashboard %s: %w", d.cfg.Key, err)
	}

	data, tooltips, err := d.buildTable(columns, rows, offset)
	if err != nil {
		return model.Event{}, fmt.Errorf("dashboard %s: %w", d.cfg.Key, err)
	}

	state.Retrigger = !state.Retrigger

	return d.table.Render(ctx, d.cfg.Key, data,
		adapter.WithState(*state),
		adapter.WithPagination(d.cfg.Paginated),
		adapter.WithMaxPage(maxPage),
		adapter.WithColumnWidths(d.cfg.ColumnWidths...),
		adapter.WithMaxHeight(d.cfg.MaxHeight),
		adapter.WithStyleOverrides(d.cfg.StyleOverrides),
		adapter.WithCellTooltips(tooltips),
	)
}

// buildTable formats raw rows into display cells and expands tooltips.
func (d *Dashboard) buildTable(columns []string, rows [][]interface{}, offset int) (model.Table, map[string][]string, error) {
	cells := make([][]string, len(rows))
	for r, row := range rows {
		cells[r] = make([]string, len(columns))
		for c := range columns {
			if c < len(row) {
				cells[r][c] = formatCell(row[c], d.cfg.Formats[columns[c]])
			}
		}
	}

	data, err := model.NewTable(columns, cells)
	if err != nil {
		return model.Table{}, nil, err
	}

	tooltips := make(map[string][]string, len(d.cfg.Tooltips))
	for col, tpl := range d.cfg.Tooltips {
		idx := data.ColumnIndex(col)
		if idx < 0 {
			continue
		}
		tips := make([]string, len(cells))
		for r := range cells {
			tips[r] = expandTooltip(tpl, col, cells[r][idx], offset+r+1)
		}
		tooltips[col] = tips
	}
	return data, tooltips, nil
}

// PageCount returns how many pages of size pageSize hold total rows.
// An empty dataset still has one (empty) page.
func PageCount(total int64, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 1
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

func clampPage(page, maxPage int) int {
	if page >= maxPage {
		page = maxPage - 1
	}
	if page < 0 {
		page = 0
	}
	return page
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
