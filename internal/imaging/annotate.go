package imaging

import (
	"fmt"
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/transform"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/braille-tools-mcp/internal/braille"
)

// AnnotateOptions controls box and label rendering. Zero values select the
// defaults: 2px lines, labels on, no downscaling, built-in palette.
type AnnotateOptions struct {
	LineWidth  int
	HideLabels bool
	// MaxWidth downscales the annotated image (keeping aspect) when it is wider.
	MaxWidth    int
	Grade1Color string // "#RRGGBB"
	Grade2Color string
}

// AnnotateResult is an annotated page preview.
type AnnotateResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Boxes       int    `json:"boxes"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// Palette assigns box colours by grade.
//
// Cells that do not render as text of their own (capital and number signs,
// Grade-2 prefixes) are drawn in a variant blended toward white in Lab space.
// Unknown cells always use the warning colour whatever their grade.
type Palette struct {
	Grade1  colorful.Color
	Grade2  colorful.Color
	Unknown colorful.Color
}

// DefaultPalette draws Grade 1 in red and Grade 2 in blue.
func DefaultPalette() Palette {
	return Palette{
		Grade1:  colorful.Hsv(0, 0.85, 0.95),
		Grade2:  colorful.Hsv(215, 0.85, 0.95),
		Unknown: colorful.Hsv(45, 0.9, 1),
	}
}

var fadeTarget = colorful.Color{R: 0.5, G: 0.5, B: 0.5}

// For returns the colour for c.
func (p Palette) For(c braille.Cell) color.RGBA {
	var base colorful.Color
	switch {
	case c.IsUnknown():
		base = p.Unknown
	case c.Grade == braille.Grade2:
		base = p.Grade2
	default:
		base = p.Grade1
	}
	if !c.Visible() {
		base = base.BlendLab(fadeTarget, 0.6).Clamped()
	}
	r, g, b := base.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

func (o AnnotateOptions) palette() (Palette, error) {
	p := DefaultPalette()
	for _, slot := range []struct {
		name string
		hex  string
		dst  *colorful.Color
	}{
		{"grade-1", o.Grade1Color, &p.Grade1},
		{"grade-2", o.Grade2Color, &p.Grade2},
	} {
		if slot.hex == "" {
			continue
		}
		rgba, err := parseHexColor(slot.hex)
		if err != nil {
			return p, fmt.Errorf("%s colour: %w", slot.name, err)
		}
		rgba.A = 255
		c, _ := colorful.MakeColor(rgba)
		*slot.dst = c
	}
	return p, nil
}

// Annotate draws each cell's corner box and a "meaning NN%" label over img.
// Cell boxes must be in img's pixel space.
//
// img is never modified; drawing happens on an RGBA copy. Labels sit above the
// box, or below it when the box touches the top edge.
//
// Parameters:
//   - img: Page image the cells were resolved against
//   - cells: Cells to draw, usually the flattened lines of a translation
//   - opts: Rendering options; the zero value is usable
//
// Returns:
//   - *image.RGBA: The annotated copy, downscaled if opts.MaxWidth requires it
//   - error: Non-nil only when a custom colour in opts fails to parse
func Annotate(img image.Image, cells []braille.Cell, opts AnnotateOptions) (*image.RGBA, error) {
	pal, err := opts.palette()
	if err != nil {
		return nil, err
	}
	lw := opts.LineWidth
	if lw <= 0 {
		lw = 2
	}

	canvas := clone.AsRGBA(img)
	labelFg := color.RGBA{255, 255, 255, 255}

	for _, c := range cells {
		col := pal.For(c)
		rect := image.Rect(int(c.Box.Left), int(c.Box.Top), int(c.Box.Right), int(c.Box.Bottom)).
			Add(canvas.Bounds().Min)
		drawRect(canvas, rect, lw, col)

		if !opts.HideLabels {
			label := fmt.Sprintf("%s %d%%", c.Meaning, int(c.Confidence*100+1e-9))
			y := rect.Min.Y - labelHeight - 1
			if y < canvas.Bounds().Min.Y {
				y = rect.Max.Y + 2
			}
			drawLabel(canvas, rect.Min.X+1, y, label, labelFg, col)
		}
	}

	if opts.MaxWidth > 0 && canvas.Bounds().Dx() > opts.MaxWidth {
		w := opts.MaxWidth
		h := max(1, canvas.Bounds().Dy()*w/canvas.Bounds().Dx())
		canvas = transform.Resize(canvas, w, h, transform.Linear)
	}
	return canvas, nil
}

// AnnotatePreview runs Annotate and encodes the result as base64 PNG.
func AnnotatePreview(img image.Image, cells []braille.Cell, opts AnnotateOptions) (*AnnotateResult, error) {
	out, err := Annotate(img, cells, opts)
	if err != nil {
		return nil, err
	}
	encoded, err := encodePNG(out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode annotated image: %w", err)
	}
	return &AnnotateResult{
		Width:       out.Bounds().Dx(),
		Height:      out.Bounds().Dy(),
		Boxes:       len(cells),
		ImageBase64: encoded,
		MimeType:    "image/png",
	}, nil
}

// drawRect strokes r with the given line width, clipped to img.
func drawRect(img *image.RGBA, r image.Rectangle, lw int, c color.Color) {
	r = r.Canon()
	b := img.Bounds()
	set := func(x, y int) {
		if image.Pt(x, y).In(b) {
			img.Set(x, y, c)
		}
	}
	for i := 0; i < lw; i++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			set(x, r.Min.Y+i)
			set(x, r.Max.Y-1-i)
		}
		for y := r.Min.Y; y < r.Max.Y; y++ {
			set(r.Min.X+i, y)
			set(r.Max.X-1-i, y)
		}
	}
}
