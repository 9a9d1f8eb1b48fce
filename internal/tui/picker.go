package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// PickerPageID is the id of the instance key picker.
const PickerPageID = "picker"

// PickerPage lists the mounted table instances and opens one.
type PickerPage struct {
	client   WidgetClient
	keys     KeyMap
	styles   Styles
	interval time.Duration

	items  []string
	cursor int
	loaded bool
	gen    int
}

// NewPickerPage creates the key picker.
func NewPickerPage(client WidgetClient, styles Styles, interval time.Duration) *PickerPage {
	return &PickerPage{
		client:   client,
		keys:     DefaultKeyMap(),
		styles:   styles,
		interval: interval,
	}
}

func (p *PickerPage) ID() string { return PickerPageID }

func (p *PickerPage) Title() string { return "tables" }

func (p *PickerPage) Init() tea.Cmd {
	p.gen++
	return tea.Batch(fetchKeys(p.client), tick(PickerPageID, p.gen, p.interval))
}

func (p *PickerPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	switch msg := msg.(type) {
	case keysMsg:
		p.items = msg.keys
		p.loaded = true
		if p.cursor >= len(p.items) {
			p.cursor = max(0, len(p.items)-1)
		}
		return nil, nil

	case tickMsg:
		if msg.page != PickerPageID || msg.gen != p.gen {
			return nil, nil
		}
		return tea.Batch(fetchKeys(p.client), tick(PickerPageID, p.gen, p.interval)), nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, p.keys.Quit):
			return tea.Quit, nil
		case key.Matches(msg, p.keys.Up):
			if p.cursor > 0 {
				p.cursor--
			}
		case key.Matches(msg, p.keys.Down):
			if p.cursor < len(p.items)-1 {
				p.cursor++
			}
		case key.Matches(msg, p.keys.Refresh):
			return fetchKeys(p.client), nil
		case key.Matches(msg, p.keys.Select):
			if p.cursor < len(p.items) {
				return nil, &PageNav{PageID: TablePageID, Params: p.items[p.cursor]}
			}
		}
	}
	return nil, nil
}

func (p *PickerPage) View(width, height int) string {
	if !p.loaded {
		return renderLoading(p.styles.Dim, "tables", width, height)
	}

	var b strings.Builder
	b.WriteString(p.styles.Title.Render("Sortable tables"))
	b.WriteString("\n\n")
	if len(p.items) == 0 {
		b.WriteString(p.styles.Dim.Render("No tables mounted yet. Waiting for the host..."))
		b.WriteString("\n")
	}
	for i, k := range p.items {
		line := fmt.Sprintf("  %s", k)
		if i == p.cursor {
			line = p.styles.Cursor.Render("> " + k)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(p.styles.Dim.Render("↑/↓ select • enter open • r refresh • q quit"))
	return b.String()
}
