package rendering

import (
	"embed"
	"io"

	"github.com/google/safehtml/template"
	"github.com/tinytelemetry/sortable-table/internal/theme"
	"github.com/tinytelemetry/sortable-table/internal/widget"
)

//go:embed templates/*
var templateFS embed.FS

// TableRenderer renders widget snapshots to HTML.
type TableRenderer struct {
	tableTemplate *template.Template
	skin          theme.Skin
}

// NewTableRenderer parses the embedded templates.
func NewTableRenderer(skin theme.Skin) (*TableRenderer, error) {
	trustedFS := template.TrustedFSFromEmbed(templateFS)

	tableTemplate, err := template.New("table.html").ParseFS(trustedFS, "templates/table.html")
	if err != nil {
		return nil, err
	}

	return &TableRenderer{
		tableTemplate: tableTemplate,
		skin:          skin,
	}, nil
}

// Render writes the HTML widget for snap to w.
func (r *TableRenderer) Render(w io.Writer, snap widget.Snapshot) error {
	return r.tableTemplate.Execute(w, r.BuildTableView(snap, BasePath(snap.Key)))
}
