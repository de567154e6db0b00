package diagram

import (
	"fmt"
	"math"
	"regexp"
	"sort"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	// HighlightSaturation is applied to a table color for its highlight variant.
	HighlightSaturation = 2.0
	// DesaturatedSaturation is applied to a table color for its faded variant.
	DesaturatedSaturation = 0.1

	minContrast = 4.5
)

var hexColorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Palette is the ordered list of table background colors.
type Palette []string

// DefaultPalette returns the built-in palette.
func DefaultPalette() Palette {
	return Palette{
		"#F94144", "#F3722C", "#F8961E", "#F9C74F", "#90BE6D",
		"#43AA8B", "#577590", "#277DA1", "#4D908E", "#F9844A",
		"#A1D76A", "#E9C46A", "#2A9D8F", "#264653",
	}
}

// Validate checks that the palette is non-empty and every entry is #rrggbb.
func (p Palette) Validate() error {
	if len(p) == 0 {
		return fmt.Errorf("palette is empty")
	}
	for i, c := range p {
		if !hexColorPattern.MatchString(c) {
			return fmt.Errorf("palette entry %d: invalid color %q", i, c)
		}
	}
	return nil
}

// AssignColors gives each name a palette color by its position in
// lexicographic order, wrapping around the palette.
func AssignColors(names []string, p Palette) map[string]string {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	colors := make(map[string]string, len(sorted))
	for i, name := range sorted {
		colors[name] = p[i%len(p)]
	}
	return colors
}

func parseHex(hex string) (colorful.Color, error) {
	if !hexColorPattern.MatchString(hex) {
		return colorful.Color{}, fmt.Errorf("invalid color %q: want #rrggbb", hex)
	}
	return colorful.Hex(hex)
}

// Saturate scales the HSL saturation of hex by factor, clamped to [0, 1].
func Saturate(hex string, factor float64) (string, error) {
	c, err := parseHex(hex)
	if err != nil {
		return "", err
	}
	h, s, l := c.Hsl()
	s = math.Max(0, math.Min(1, s*factor))
	return colorful.Hsl(h, s, l).Clamped().Hex(), nil
}

// Desaturate is Saturate with a factor below one.
func Desaturate(hex string, factor float64) (string, error) {
	return Saturate(hex, factor)
}

// RelativeLuminance is the WCAG 2 relative luminance of hex.
func RelativeLuminance(hex string) (float64, error) {
	c, err := parseHex(hex)
	if err != nil {
		return 0, err
	}
	r, g, b := c.LinearRgb()
	return 0.2126*r + 0.7152*g + 0.0722*b, nil
}

// ContrastRatio is the WCAG contrast ratio between two luminances.
func ContrastRatio(l1, l2 float64) float64 {
	if l2 > l1 {
		l1, l2 = l2, l1
	}
	return (l1 + 0.05) / (l2 + 0.05)
}

// ContrastText picks "white" when white text on hex reaches a 4.5:1
// contrast ratio, else "black".
func ContrastText(hex string) (string, error) {
	lum, err := RelativeLuminance(hex)
	if err != nil {
		return "", err
	}
	if ContrastRatio(1, lum) >= minContrast {
		return "white", nil
	}
	return "black", nil
}
