package braille

import (
	"github.com/ironsheep/braille-tools-mcp/internal/detection"
)

// Cell is one resolved detection positioned in display space.
//
// ClassID is the id the cell was detected with (offset by
// detection.G2ClassOffset for Grade-2 cells in a merged set); LocalID is the
// table id within Grade.
type Cell struct {
	ClassID    int              `json:"class_id"`
	Grade      Grade            `json:"grade"`
	LocalID    int              `json:"local_id"`
	Binary     string           `json:"binary"`
	Meaning    string           `json:"meaning"`
	Confidence float64          `json:"confidence"`
	X          float64          `json:"x"`
	Y          float64          `json:"y"`
	Width      float64          `json:"width"`
	Height     float64          `json:"height"`
	Box        detection.Bounds `json:"box"`
}

// NewCell combines a placed detection with its resolved entry.
func NewCell(p detection.Placed, grade Grade, localID int, e Entry) Cell {
	return Cell{
		ClassID:    p.ClassID,
		Grade:      grade,
		LocalID:    localID,
		Binary:     e.Binary,
		Meaning:    e.Meaning,
		Confidence: p.Confidence,
		X:          p.X,
		Y:          p.Y,
		Width:      p.Width,
		Height:     p.Height,
		Box:        p.Box,
	}
}

// Left returns the leading x edge derived from the center.
func (c Cell) Left() float64 { return c.X - c.Width/2 }

// Right returns the trailing x edge derived from the center.
func (c Cell) Right() float64 { return c.X + c.Width/2 }

// IsModifier reports whether the cell only changes how later cells render.
// The Grade-2 "at" contraction shares the number sign's dots and is visible.
func (c Cell) IsModifier() bool {
	if c.Grade == Grade2 && c.Binary == NumberPattern && c.Meaning != NumberMeaning {
		return false
	}
	return IsPrefixPattern(c.Binary)
}

// IsUnknown reports whether the class id was missing from its table.
func (c Cell) IsUnknown() bool {
	return c.Binary == Unknown.Binary && c.Meaning == Unknown.Meaning
}

// Visible reports whether the cell renders as text of its own.
func (c Cell) Visible() bool {
	return !c.IsModifier()
}
