// Package theme loads table skins: the color palette and font size the
// HTML and terminal widgets draw with.
package theme

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

// Palette holds the CSS custom properties of one color scheme.
type Palette struct {
	HeaderColor    string `yaml:"header-color"`
	HeaderBg       string `yaml:"header-bg"`
	HeaderSort     string `yaml:"header-sort"`
	BodyColor      string `yaml:"body-color"`
	BodyBg         string `yaml:"body-bg"`
	HighlightColor string `yaml:"highlight-color"`
	HighlightBg    string `yaml:"highlight-bg"`
	BorderColor    string `yaml:"border-color"`
	FontSize       string `yaml:"font-size"`
}

// Skin is a named pair of palettes.
type Skin struct {
	Name  string  `yaml:"name"`
	Light Palette `yaml:"light"`
	Dark  Palette `yaml:"dark"`
}

// Default returns the built-in skin.
func Default() Skin {
	return Skin{
		Name: "default",
		Light: Palette{
			HeaderColor:    "#222222",
			HeaderBg:       "rgb(177, 177, 177)",
			HeaderSort:     "rgb(211, 211, 211)",
			BodyColor:      "#000000",
			BodyBg:         "rgb(245, 245, 245)",
			HighlightColor: "rgb(0, 0, 0)",
			HighlightBg:    "rgb(211, 211, 211)",
			BorderColor:    "rgb(56, 56, 56)",
			FontSize:       "12px",
		},
		Dark: Palette{
			HeaderColor:    "rgb(221, 221, 221)",
			HeaderBg:       "rgb(34, 33, 44)",
			HeaderSort:     "rgb(88, 88, 88)",
			BodyColor:      "rgb(255, 255, 255)",
			BodyBg:         "rgb(18, 18, 24)",
			HighlightColor: "rgb(255, 255, 255)",
			HighlightBg:    "rgb(61, 61, 61)",
			BorderColor:    "rgb(61, 61, 61)",
			FontSize:       "12px",
		},
	}
}

// Load resolves a skin by name or path. "" and "default" give the built-in
// skin; a bare name is looked up as <dir>/skins/<name>.yml. Fields missing
// from the file keep their default values.
func Load(nameOrPath, dir string) (Skin, error) {
	skin := Default()
	if nameOrPath == "" || nameOrPath == "default" {
		return skin, nil
	}

	path := nameOrPath
	if !strings.ContainsRune(nameOrPath, os.PathSeparator) && filepath.Ext(nameOrPath) == "" {
		path = filepath.Join(dir, "skins", nameOrPath+".yml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Default(), fmt.Errorf("reading skin %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &skin); err != nil {
		return Default(), fmt.Errorf("parsing skin %s: %w", path, err)
	}
	if skin.Name == "" || skin.Name == "default" {
		skin.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := skin.Validate(); err != nil {
		return Default(), fmt.Errorf("skin %s: %w", path, err)
	}
	return skin, nil
}

var (
	hexColorPattern = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
	rgbColorPattern = regexp.MustCompile(`^rgb\(\s*(\d{1,3})\s*,\s*(\d{1,3})\s*,\s*(\d{1,3})\s*\)$`)
	lengthPattern   = regexp.MustCompile(`^\d+(\.\d+)?(px|em|rem|pt|%)$`)
)

// Validate checks every palette value is a hex or rgb() color and the
// font sizes are plain CSS lengths.
func (s Skin) Validate() error {
	var errs []error
	for scheme, p := range map[string]Palette{"light": s.Light, "dark": s.Dark} {
		for name, v := range p.colors() {
			if _, err := ParseColor(v); err != nil {
				errs = append(errs, fmt.Errorf("%s.%s: %w", scheme, name, err))
			}
		}
		if !lengthPattern.MatchString(p.FontSize) {
			errs = append(errs, fmt.Errorf("%s.font-size: invalid length %q", scheme, p.FontSize))
		}
	}
	return errors.Join(errs...)
}

func (p Palette) colors() map[string]string {
	return map[string]string{
		"header-color":    p.HeaderColor,
		"header-bg":       p.HeaderBg,
		"header-sort":     p.HeaderSort,
		"body-color":      p.BodyColor,
		"body-bg":         p.BodyBg,
		"highlight-color": p.HighlightColor,
		"highlight-bg":    p.HighlightBg,
		"border-color":    p.BorderColor,
	}
}

// Variables returns the palette as ordered CSS custom property declarations.
func (p Palette) Variables() []string {
	return []string{
		"--header-color: " + p.HeaderColor,
		"--header-bg: " + p.HeaderBg,
		"--header-sort: " + p.HeaderSort,
		"--body-color: " + p.BodyColor,
		"--body-bg: " + p.BodyBg,
		"--highlight-color: " + p.HighlightColor,
		"--highlight-bg: " + p.HighlightBg,
		"--border-color: " + p.BorderColor,
		"--font-size: " + p.FontSize,
	}
}

// ParseColor normalizes a "#rgb", "#rrggbb" or "rgb(r, g, b)" color to
// "#rrggbb".
func ParseColor(v string) (string, error) {
	v = strings.TrimSpace(v)
	if hexColorPattern.MatchString(v) {
		if len(v) == 4 {
			return strings.ToLower("#" + strings.Repeat(v[1:2], 2) + strings.Repeat(v[2:3], 2) + strings.Repeat(v[3:4], 2)), nil
		}
		return strings.ToLower(v), nil
	}
	m := rgbColorPattern.FindStringSubmatch(v)
	if m == nil {
		return "", fmt.Errorf("invalid color %q", v)
	}
	out := "#"
	for _, part := range m[1:] {
		n, _ := strconv.Atoi(part)
		if n > 255 {
			return "", fmt.Errorf("invalid color %q", v)
		}
		out += fmt.Sprintf("%02x", n)
	}
	return out, nil
}

// Lipgloss returns an adaptive terminal color for one palette slot.
func Lipgloss(light, dark string) lipgloss.AdaptiveColor {
	l, err := ParseColor(light)
	if err != nil {
		l = ""
	}
	d, err := ParseColor(dark)
	if err != nil {
		d = ""
	}
	return lipgloss.AdaptiveColor{Light: l, Dark: d}
}
