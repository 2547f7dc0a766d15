package imaging

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"
	"unicode"

	"github.com/lucasb-eyer/go-colorful"
)

// 3x5 pixel glyphs. Labels are drawn upper-case.
var glyphs = map[rune][]string{
	'0': {"111", "101", "101", "101", "111"},
	'1': {"010", "110", "010", "010", "111"},
	'2': {"111", "001", "111", "100", "111"},
	'3': {"111", "001", "111", "001", "111"},
	'4': {"101", "101", "111", "001", "001"},
	'5': {"111", "100", "111", "001", "111"},
	'6': {"111", "100", "111", "101", "111"},
	'7': {"111", "001", "001", "001", "001"},
	'8': {"111", "101", "111", "101", "111"},
	'9': {"111", "101", "111", "001", "111"},
	'A': {"010", "101", "111", "101", "101"},
	'B': {"110", "101", "110", "101", "110"},
	'C': {"011", "100", "100", "100", "011"},
	'D': {"110", "101", "101", "101", "110"},
	'E': {"111", "100", "110", "100", "111"},
	'F': {"111", "100", "110", "100", "100"},
	'G': {"011", "100", "101", "101", "011"},
	'H': {"101", "101", "111", "101", "101"},
	'I': {"111", "010", "010", "010", "111"},
	'J': {"001", "001", "001", "101", "010"},
	'K': {"101", "101", "110", "101", "101"},
	'L': {"100", "100", "100", "100", "111"},
	'M': {"101", "111", "111", "101", "101"},
	'N': {"110", "101", "101", "101", "101"},
	'Ñ': {"111", "000", "110", "101", "101"},
	'O': {"010", "101", "101", "101", "010"},
	'P': {"110", "101", "110", "100", "100"},
	'Q': {"010", "101", "101", "110", "011"},
	'R': {"110", "101", "110", "101", "101"},
	'S': {"011", "100", "010", "001", "110"},
	'T': {"111", "010", "010", "010", "010"},
	'U': {"101", "101", "101", "101", "111"},
	'V': {"101", "101", "101", "101", "010"},
	'W': {"101", "101", "111", "111", "101"},
	'X': {"101", "101", "010", "101", "101"},
	'Y': {"101", "101", "010", "010", "010"},
	'Z': {"111", "001", "010", "100", "111"},
	',': {"000", "000", "000", "010", "100"},
	'.': {"000", "000", "000", "000", "010"},
	'!': {"010", "010", "010", "000", "010"},
	'?': {"111", "001", "010", "000", "010"},
	'\'': {"010", "010", "000", "000", "000"},
	'-': {"000", "000", "111", "000", "000"},
	'_': {"000", "000", "000", "000", "111"},
	';': {"000", "010", "000", "010", "100"},
	':': {"000", "010", "000", "010", "000"},
	'%': {"101", "001", "010", "100", "101"},
}

const (
	glyphAdvance = 4
	labelHeight  = 7
)

// labelWidth returns the pixel width drawLabel uses for text.
func labelWidth(text string) int {
	return len([]rune(text)) * glyphAdvance
}

// drawLabel draws text on a filled background box whose top-left is (x, y).
// Unknown characters advance the cursor without drawing.
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.Color) {
	bounds := img.Bounds()
	text = strings.ToUpper(text)
	width := labelWidth(text)

	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < width; dx++ {
			px, py := x+dx, y+dy
			if image.Pt(px, py).In(bounds) {
				img.Set(px, py, bg)
			}
		}
	}

	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[unicode.ToUpper(ch)]
		if !ok {
			cx += glyphAdvance
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if pixel == '1' {
					px, py := cx+col, y+row
					if image.Pt(px, py).In(bounds) {
						img.Set(px, py, fg)
					}
				}
			}
		}
		cx += glyphAdvance
	}
}

// parseHexColor parses "#RRGGBB" or "#RRGGBBAA".
func parseHexColor(hex string) (color.RGBA, error) {
	if hex == "" {
		return color.RGBA{}, fmt.Errorf("empty color string")
	}
	if hex[0] != '#' {
		hex = "#" + hex
	}

	alpha := uint8(255)
	switch len(hex) {
	case 7:
	case 9:
		a, err := strconv.ParseUint(hex[7:], 16, 8)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("invalid alpha in %q: %w", hex, err)
		}
		alpha = uint8(a)
		hex = hex[:7]
	default:
		return color.RGBA{}, fmt.Errorf("invalid hex color length")
	}

	c, err := colorful.Hex(hex)
	if err != nil {
		return color.RGBA{}, err
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: alpha}, nil
}
