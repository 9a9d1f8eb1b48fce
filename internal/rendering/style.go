package rendering

import (
	"regexp"
	"strings"

	"github.com/google/safehtml"
	"github.com/google/safehtml/uncheckedconversions"
	"github.com/tinytelemetry/sortable-table/internal/theme"
)

// Declaration is one "name: value" style pair.
type Declaration struct {
	Name  string
	Value string
}

var (
	propertyNamePattern  = regexp.MustCompile(`^-{0,2}[A-Za-z][A-Za-z0-9-]*$`)
	propertyValuePattern = regexp.MustCompile(`^[A-Za-z0-9 #%.,()+\-_!]+$`)
)

// ParseStyleOverrides splits "name: value; name2: value2" into declarations.
// Declarations without both halves or with values outside a conservative
// character set are dropped.
func ParseStyleOverrides(s string) []Declaration {
	var out []Declaration
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		d := Declaration{Name: strings.TrimSpace(name), Value: strings.TrimSpace(value)}
		if !safeDeclaration(d) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func safeDeclaration(d Declaration) bool {
	if !propertyNamePattern.MatchString(d.Name) || !propertyValuePattern.MatchString(d.Value) {
		return false
	}
	lower := strings.ToLower(d.Value)
	return !strings.Contains(lower, "url(") && !strings.Contains(lower, "expression(")
}

func joinDeclarations(decls []Declaration) string {
	parts := make([]string, 0, len(decls))
	for _, d := range decls {
		parts = append(parts, d.Name+": "+d.Value+";")
	}
	return strings.Join(parts, " ")
}

// styleOf builds a safehtml.Style from declarations that passed
// safeDeclaration.
func styleOf(decls ...Declaration) safehtml.Style {
	var kept []Declaration
	for _, d := range decls {
		if safeDeclaration(d) {
			kept = append(kept, d)
		}
	}
	return uncheckedconversions.StyleFromStringKnownToSatisfyTypeContract(joinDeclarations(kept))
}

// widthStyle returns the <col> style for a CSS length; "" yields the
// default width.
func widthStyle(width string) safehtml.Style {
	if width == "" {
		return safehtml.Style{}
	}
	return safehtml.StyleFromProperties(safehtml.StyleProperties{Width: width})
}

// themeSheet renders the skin's CSS variables plus the static table rules.
func themeSheet(skin theme.Skin) safehtml.StyleSheet {
	var b strings.Builder
	b.WriteString(":root {\n")
	writeVariables(&b, skin.Light)
	b.WriteString("}\n@media (prefers-color-scheme: dark) {\n:root {\n")
	writeVariables(&b, skin.Dark)
	b.WriteString("}\n}\n")
	b.WriteString(baseRules)
	return uncheckedconversions.StyleSheetFromStringKnownToSatisfyTypeContract(b.String())
}

func writeVariables(b *strings.Builder, p theme.Palette) {
	for _, v := range p.Variables() {
		name, value, _ := strings.Cut(v, ": ")
		if !safeDeclaration(Declaration{Name: name, Value: value}) {
			continue
		}
		b.WriteString("  ")
		b.WriteString(v)
		b.WriteString(";\n")
	}
}

const baseRules = `table {
  width: 100%;
  table-layout: fixed;
  border-collapse: collapse;
  background-color: var(--body-bg);
  font-size: var(--font-size);
}
.table-container {
  overflow-x: auto;
  overflow-y: auto;
  border-radius: 12px;
  border: 1px solid var(--border-color);
}
.table thead th {
  background-color: var(--header-bg);
  position: sticky;
  top: 0;
  z-index: 10;
  outline: 1px solid var(--border-color);
  outline-offset: -1px;
}
.table thead th a {
  color: var(--header-color);
  text-decoration: none;
  display: block;
}
th, td {
  padding: 1rem 1.5rem;
  border: 1px solid var(--border-color);
  text-align: left;
  color: var(--body-color);
  font-size: var(--font-size);
}
thead th:hover {
  background-color: var(--highlight-bg);
  color: var(--highlight-color);
}
.sorted-column {
  background-color: var(--header-sort);
}
tbody tr:hover {
  background-color: var(--highlight-bg);
  color: var(--highlight-color);
}
.pagination-footer {
  display: flex;
  justify-content: flex-end;
  align-items: center;
  gap: 4px;
  margin-top: 8px;
  font-size: var(--font-size);
}
.pagination-footer .disabled {
  opacity: 0.4;
}
`
