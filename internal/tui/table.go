package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/paginator"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/tinytelemetry/sortable-table/internal/model"
	"github.com/tinytelemetry/sortable-table/internal/rendering"
	"github.com/tinytelemetry/sortable-table/internal/widget"
)

// TablePageID is the id of the table page.
const TablePageID = "table"

// tableChrome is the number of lines around the grid: title, borders,
// header, pager, status and help.
const tableChrome = 8

// TablePage draws one widget instance and turns keys into interactions.
type TablePage struct {
	client   WidgetClient
	keys     KeyMap
	styles   Styles
	interval time.Duration
	help     help.Model
	pager    paginator.Model

	key      string
	snap     widget.Snapshot
	loaded   bool
	showHelp bool
	err      error
	gen      int

	row, col int
	offset   int
}

// NewTablePage creates the table page. Open sets the instance key.
func NewTablePage(client WidgetClient, styles Styles, interval time.Duration) *TablePage {
	pager := paginator.New()
	pager.Type = paginator.Arabic
	return &TablePage{
		client:   client,
		keys:     DefaultKeyMap(),
		styles:   styles,
		interval: interval,
		help:     help.New(),
		pager:    pager,
	}
}

func (p *TablePage) ID() string { return TablePageID }

func (p *TablePage) Title() string {
	if p.key == "" {
		return "table"
	}
	return p.key
}

// Open switches the page to instance key.
func (p *TablePage) Open(params interface{}) {
	k, ok := params.(string)
	if !ok || k == p.key {
		return
	}
	p.key = k
	p.snap = widget.Snapshot{}
	p.loaded = false
	p.err = nil
	p.row, p.col, p.offset = 0, 0, 0
}

func (p *TablePage) Init() tea.Cmd {
	p.gen++
	if p.key == "" {
		return nil
	}
	return tea.Batch(fetchSnapshot(p.client, p.key), tick(TablePageID, p.gen, p.interval))
}

func (p *TablePage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	switch msg := msg.(type) {
	case snapshotMsg:
		if msg.key != p.key {
			return nil, nil
		}
		if msg.err != nil {
			p.err = msg.err
			return nil, nil
		}
		p.err = nil
		p.setSnapshot(msg.snap)
		return nil, nil

	case eventMsg:
		if msg.key != p.key {
			return nil, nil
		}
		if msg.err != nil {
			p.err = msg.err
			return nil, nil
		}
		return fetchSnapshot(p.client, p.key), nil

	case tickMsg:
		if msg.page != TablePageID || msg.gen != p.gen {
			return nil, nil
		}
		return tea.Batch(fetchSnapshot(p.client, p.key), tick(TablePageID, p.gen, p.interval)), nil

	case tea.KeyMsg:
		return p.handleKey(msg)
	}
	return nil, nil
}

func (p *TablePage) handleKey(msg tea.KeyMsg) (tea.Cmd, *PageNav) {
	switch {
	case key.Matches(msg, p.keys.Quit):
		return tea.Quit, nil
	case key.Matches(msg, p.keys.Back):
		return nil, &PageNav{PageID: PickerPageID, Back: true}
	case key.Matches(msg, p.keys.Help):
		p.showHelp = !p.showHelp
	case key.Matches(msg, p.keys.Refresh):
		return fetchSnapshot(p.client, p.key), nil
	case key.Matches(msg, p.keys.Up):
		p.moveRow(-1)
	case key.Matches(msg, p.keys.Down):
		p.moveRow(1)
	case key.Matches(msg, p.keys.Left):
		if p.col > 0 {
			p.col--
		}
	case key.Matches(msg, p.keys.Right):
		if p.col < len(p.snap.Payload.Data.Columns)-1 {
			p.col++
		}
	case key.Matches(msg, p.keys.Sort):
		cols := p.snap.Payload.Data.Columns
		if p.col < len(cols) {
			k, column := p.key, cols[p.col].Name
			return interact(k, func() (model.Event, error) { return p.client.ClickHeader(k, column) }), nil
		}
	case key.Matches(msg, p.keys.FirstPage):
		return p.page(widget.PageFirst), nil
	case key.Matches(msg, p.keys.PrevPage):
		return p.page(widget.PagePrev), nil
	case key.Matches(msg, p.keys.NextPage):
		return p.page(widget.PageNext), nil
	case key.Matches(msg, p.keys.LastPage):
		return p.page(widget.PageLast), nil
	case key.Matches(msg, p.keys.JumpPage):
		return p.jump(int(msg.Runes[0]-'1')), nil
	}
	return nil, nil
}

func (p *TablePage) page(action widget.PageAction) tea.Cmd {
	if !p.snap.Payload.Paginated {
		return nil
	}
	k := p.key
	return interact(k, func() (model.Event, error) { return p.client.Page(k, action) })
}

// jump moves to page n (0-based); the widget clamps it to the last page.
func (p *TablePage) jump(n int) tea.Cmd {
	if !p.snap.Payload.Paginated {
		return nil
	}
	k := p.key
	return interact(k, func() (model.Event, error) { return p.client.GoTo(k, n) })
}

// setSnapshot installs a snapshot and keeps the cursor inside the data.
func (p *TablePage) setSnapshot(snap widget.Snapshot) {
	p.snap = snap
	p.loaded = true

	rows := snap.Payload.Data.NumRows()
	cols := len(snap.Payload.Data.Columns)
	if p.row >= rows {
		p.row = max(0, rows-1)
	}
	if p.col >= cols {
		p.col = max(0, cols-1)
	}

	p.pager.TotalPages = max(1, snap.MaxPage)
	p.pager.Page = snap.Page
}

func (p *TablePage) moveRow(delta int) {
	rows := p.snap.Payload.Data.NumRows()
	p.row += delta
	if p.row >= rows {
		p.row = rows - 1
	}
	if p.row < 0 {
		p.row = 0
	}
}

// visibleRows returns how many data rows fit and scrolls so the cursor
// stays in view.
func (p *TablePage) visibleRows(height int) int {
	rows := p.snap.Payload.Data.NumRows()
	visible := rows
	if height > 0 {
		visible = max(1, height-tableChrome)
	}
	if visible > rows {
		visible = rows
	}
	if p.row < p.offset {
		p.offset = p.row
	}
	if visible > 0 && p.row >= p.offset+visible {
		p.offset = p.row - visible + 1
	}
	if p.offset > rows-visible {
		p.offset = max(0, rows-visible)
	}
	return visible
}

// FocusedTooltip returns the tooltip of the cell under the cursor.
func (p *TablePage) FocusedTooltip() string {
	cols := p.snap.Payload.Data.Columns
	if p.col >= len(cols) {
		return ""
	}
	return p.snap.Payload.Tooltip(cols[p.col].Name, p.row)
}

func (p *TablePage) View(width, height int) string {
	if !p.loaded {
		if p.err != nil {
			return p.styles.Error.Render(fmt.Sprintf("Error: %v", p.err)) + "\n" +
				p.styles.Dim.Render("esc back • q quit")
		}
		return renderLoading(p.styles.Dim, p.key, width, height)
	}

	data := p.snap.Payload.Data
	sort := p.snap.Sort

	var b strings.Builder
	title := fmt.Sprintf("%s  rev %d", p.key, p.snap.Revision)
	b.WriteString(p.styles.Title.Render(title))
	b.WriteString("\n")

	headers := make([]string, len(data.Columns))
	for i, c := range data.Columns {
		headers[i] = rendering.HeaderLabel(c.Name, sort)
	}

	visible := p.visibleRows(height)
	var rows [][]string
	if data.NumRows() == 0 {
		empty := make([]string, max(1, len(data.Columns)))
		empty[0] = "empty"
		rows = append(rows, empty)
	} else {
		for r := p.offset; r < p.offset+visible; r++ {
			row := make([]string, len(data.Columns))
			for c := range data.Columns {
				row[c] = data.Cell(r, c)
			}
			rows = append(rows, row)
		}
	}

	sortedCol := -1
	if sort != nil {
		sortedCol = data.ColumnIndex(sort.Column)
	}
	hasData := data.NumRows() > 0
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(p.styles.Border).
		BorderHeader(true).
		BorderColumn(true).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				if col == sortedCol {
					return p.styles.SortedHeader
				}
				return p.styles.Header
			}
			if hasData && p.offset+row == p.row && col == p.col {
				return p.styles.Cursor
			}
			if col == sortedCol {
				return p.styles.SortedCell
			}
			return p.styles.Cell
		})
	if width > 0 {
		t = t.Width(width)
	}
	b.WriteString(t.Render())
	b.WriteString("\n")

	if p.snap.Payload.Paginated {
		b.WriteString(p.styles.Status.Render("page " + p.pager.View()))
		b.WriteString("\n")
	}

	if p.err != nil {
		b.WriteString(p.styles.Error.Render(fmt.Sprintf("Error: %v", p.err)))
	} else if tip := p.FocusedTooltip(); tip != "" {
		b.WriteString(p.styles.Tooltip.Render(strings.ReplaceAll(tip, "\n", " ⏎ ")))
	} else if hasData {
		b.WriteString(p.styles.Dim.Render(fmt.Sprintf("row %d/%d", p.row+1, data.NumRows())))
	}
	b.WriteString("\n")

	p.help.ShowAll = p.showHelp
	b.WriteString(p.help.View(p.keys))
	return b.String()
}
