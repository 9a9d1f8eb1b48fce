package rendering

import (
	"net/url"
	"strconv"

	"github.com/google/safehtml"
	"github.com/tinytelemetry/sortable-table/internal/model"
	"github.com/tinytelemetry/sortable-table/internal/widget"
)

const (
	arrowAsc      = " ▲"
	arrowDesc     = " ▼"
	arrowUnsorted = " ▲▼"
)

// HeaderView is one sortable header cell.
type HeaderView struct {
	Label   string
	Title   string
	Sorted  bool
	SortURL safehtml.URL
}

// CellView is one data cell.
type CellView struct {
	Text    string
	Tooltip string
}

// PagerView is the pagination footer.
type PagerView struct {
	Display  string
	AtFirst  bool
	AtLast   bool
	FirstURL safehtml.URL
	PrevURL  safehtml.URL
	NextURL  safehtml.URL
	LastURL  safehtml.URL
}

// TableView is the template input for one widget instance.
type TableView struct {
	Key            string
	ThemeCSS       safehtml.StyleSheet
	ContainerStyle safehtml.Style
	ScrollStyle    safehtml.Style
	Cols           []safehtml.Style
	Headers        []HeaderView
	Rows           [][]CellView
	ColSpan        int
	Empty          bool
	Pager          *PagerView
}

// HeaderLabel returns a column name with its sort indicator.
func HeaderLabel(column string, sort *model.SortSpec) string {
	if sort == nil || sort.Column != column {
		return column + arrowUnsorted
	}
	if sort.Direction == model.Descending {
		return column + arrowDesc
	}
	return column + arrowAsc
}

// BuildTableView turns a widget snapshot into a template view. basePath is
// the URL prefix of the instance's HTML endpoints, e.g. /components/k.
func (r *TableRenderer) BuildTableView(snap widget.Snapshot, basePath string) TableView {
	p := snap.Payload
	vm := TableView{
		Key:            snap.Key,
		ThemeCSS:       themeSheet(r.skin),
		ContainerStyle: styleOf(ParseStyleOverrides(p.StyleOverrides)...),
		ScrollStyle: styleOf(
			Declaration{Name: "overflow-x", Value: "auto"},
			Declaration{Name: "overflow-y", Value: "auto"},
			Declaration{Name: "max-height", Value: p.MaxHeight},
		),
	}

	if len(p.ColumnWidths) > 0 {
		vm.Cols = make([]safehtml.Style, len(p.Data.Columns))
		for i := range p.Data.Columns {
			vm.Cols[i] = widthStyle(p.Width(i).String())
		}
	}

	for _, c := range p.Data.Columns {
		vm.Headers = append(vm.Headers, HeaderView{
			Label:   HeaderLabel(c.Name, snap.Sort),
			Title:   "Sort by " + c.Name,
			Sorted:  snap.Sort != nil && snap.Sort.Column == c.Name,
			SortURL: actionURL(basePath+"/sort", "column", c.Name),
		})
	}

	rows := p.Data.NumRows()
	for row := 0; row < rows; row++ {
		cells := make([]CellView, len(p.Data.Columns))
		for col, c := range p.Data.Columns {
			cells[col] = CellView{Text: c.Values[row], Tooltip: p.Tooltip(c.Name, row)}
		}
		vm.Rows = append(vm.Rows, cells)
	}
	if rows == 0 {
		vm.Empty = true
		vm.ColSpan = max(1, len(p.Data.Columns))
	}

	if p.Paginated {
		vm.Pager = &PagerView{
			Display:  strconv.Itoa(snap.Page + 1),
			AtFirst:  snap.Page <= 0,
			AtLast:   snap.Page >= snap.MaxPage-1,
			FirstURL: actionURL(basePath+"/page", "action", string(widget.PageFirst)),
			PrevURL:  actionURL(basePath+"/page", "action", string(widget.PagePrev)),
			NextURL:  actionURL(basePath+"/page", "action", string(widget.PageNext)),
			LastURL:  actionURL(basePath+"/page", "action", string(widget.PageLast)),
		}
	}
	return vm
}

// BasePath returns the HTML endpoint prefix for an instance key.
func BasePath(key string) string {
	return "/components/" + url.PathEscape(key)
}

func actionURL(path, param, value string) safehtml.URL {
	q := url.Values{}
	q.Set(param, value)
	return safehtml.URLSanitized(path + "?" + q.Encode())
}
