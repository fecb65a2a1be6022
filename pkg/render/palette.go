package render

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	DefaultLineColor     = "#0066ff"
	DefaultWordColor     = "#830d30"
	DefaultSelectedColor = "#ff0000"
)

// Palette holds the stroke colours of the overlays.
type Palette struct {
	Line     colorful.Color
	Word     colorful.Color
	Selected colorful.Color
}

// DefaultPalette returns the built-in overlay colours.
func DefaultPalette() Palette {
	p, _ := ParsePalette(DefaultLineColor, DefaultWordColor, DefaultSelectedColor)
	return p
}

// ParsePalette parses hex colours. Empty values keep the default.
func ParsePalette(line, word, selected string) (Palette, error) {
	var p Palette
	for _, c := range []struct {
		name string
		hex  string
		def  string
		dst  *colorful.Color
	}{
		{"line", line, DefaultLineColor, &p.Line},
		{"word", word, DefaultWordColor, &p.Word},
		{"selected", selected, DefaultSelectedColor, &p.Selected},
	} {
		hex := c.hex
		if hex == "" {
			hex = c.def
		}
		parsed, err := colorful.Hex(hex)
		if err != nil {
			return Palette{}, fmt.Errorf("invalid %s colour %q: %w", c.name, hex, err)
		}
		*c.dst = parsed
	}
	return p, nil
}

// Hex returns the palette as hex strings, line, word then selected.
func (p Palette) Hex() (string, string, string) {
	return p.Line.Hex(), p.Word.Hex(), p.Selected.Hex()
}
