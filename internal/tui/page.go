package tui

import tea "github.com/charmbracelet/bubbletea"

// Page is one screen of the terminal widget.
type Page interface {
	ID() string
	// Title is shown in the breadcrumb above the page.
	Title() string
	Init() tea.Cmd
	Update(msg tea.Msg) (tea.Cmd, *PageNav)
	View(width, height int) string
}

// PageNav is returned from Update to switch pages. With Back set the app
// returns to the previous page and PageID is only the fallback when there
// is no history. Params go to the target's Open.
type PageNav struct {
	PageID string
	Params interface{}
	Back   bool
}

// Opener is implemented by pages that take parameters when navigated to.
type Opener interface {
	Open(params interface{})
}
