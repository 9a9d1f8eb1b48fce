package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tinytelemetry/sortable-table/internal/model"
	"github.com/tinytelemetry/sortable-table/internal/widget"
)

// WidgetClient is what the TUI needs from the widget server.
// socketrpc.Client and widget.Registry implement it.
type WidgetClient interface {
	Keys() []string
	Snapshot(key string) (widget.Snapshot, error)
	ClickHeader(key, column string) (model.Event, error)
	Page(key string, action widget.PageAction) (model.Event, error)
	GoTo(key string, n int) (model.Event, error)
}

// keysMsg carries the instance keys fetched from the server.
type keysMsg struct{ keys []string }

// snapshotMsg carries a fetched snapshot.
type snapshotMsg struct {
	key  string
	snap widget.Snapshot
	err  error
}

// eventMsg carries the result of an interaction.
type eventMsg struct {
	key string
	ev  model.Event
	err error
}

// tickMsg drives polling. gen lets a page drop ticks from an earlier
// Init so re-entering a page never doubles the poll rate.
type tickMsg struct {
	page string
	gen  int
}

func fetchKeys(c WidgetClient) tea.Cmd {
	return func() tea.Msg {
		return keysMsg{keys: c.Keys()}
	}
}

func fetchSnapshot(c WidgetClient, key string) tea.Cmd {
	return func() tea.Msg {
		snap, err := c.Snapshot(key)
		return snapshotMsg{key: key, snap: snap, err: err}
	}
}

func interact(key string, fn func() (model.Event, error)) tea.Cmd {
	return func() tea.Msg {
		ev, err := fn()
		return eventMsg{key: key, ev: ev, err: err}
	}
}

func tick(page string, gen int, d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return tickMsg{page: page, gen: gen} })
}
