package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

const appName = "sortable-table"

// App routes messages to the active page and keeps a back stack.
type App struct {
	pages   map[string]Page
	active  string
	history []string
	styles  Styles
	width   int
	height  int
}

// NewApp creates an app showing the first page.
func NewApp(styles Styles, pages ...Page) *App {
	a := &App{pages: make(map[string]Page, len(pages)), styles: styles}
	for i, p := range pages {
		a.pages[p.ID()] = p
		if i == 0 {
			a.active = p.ID()
		}
	}
	return a
}

// Active returns the id of the page currently shown.
func (a *App) Active() string { return a.active }

func (a *App) Init() tea.Cmd {
	if p, ok := a.pages[a.active]; ok {
		return p.Init()
	}
	return nil
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return a, tea.Quit
		}
	}

	p, ok := a.pages[a.active]
	if !ok {
		return a, nil
	}
	cmd, nav := p.Update(msg)
	if nav == nil {
		return a, cmd
	}
	return a, tea.Batch(cmd, a.navigate(*nav))
}

// navigate switches pages and returns the target's Init command.
func (a *App) navigate(nav PageNav) tea.Cmd {
	target := nav.PageID
	back := nav.Back && len(a.history) > 0
	if back {
		target = a.history[len(a.history)-1]
	}
	next, ok := a.pages[target]
	if !ok || target == a.active {
		return nil
	}

	if back {
		a.history = a.history[:len(a.history)-1]
	} else if !nav.Back {
		a.history = append(a.history, a.active)
	}
	if o, ok := next.(Opener); ok && nav.Params != nil {
		o.Open(nav.Params)
	}
	a.active = target
	return next.Init()
}

// breadcrumb renders the path from the first page to the active one.
func (a *App) breadcrumb() string {
	parts := []string{appName}
	for _, id := range a.history {
		if p, ok := a.pages[id]; ok {
			parts = append(parts, p.Title())
		}
	}
	if p, ok := a.pages[a.active]; ok {
		parts = append(parts, p.Title())
	}
	return a.styles.Dim.Render(strings.Join(parts, " › "))
}

func (a *App) View() string {
	p, ok := a.pages[a.active]
	if !ok {
		return "No active page"
	}
	height := a.height
	if height > 0 {
		height--
	}
	return a.breadcrumb() + "\n" + p.View(a.width, height)
}
