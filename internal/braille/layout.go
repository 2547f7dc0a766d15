package braille

import (
	"math"
	"sort"
)

const (
	// LineToleranceFactor scales the average cell height into the maximum
	// distance between a cell and a line's mean Y for the cell to join it.
	LineToleranceFactor = 0.8

	// WordSpacingFactor scales the average cell width within a line into the
	// horizontal gap that separates two words.
	WordSpacingFactor = 1.5
)

// Line is a row of cells ordered left to right.
type Line []Cell

// Word is a run of adjacent cells within a line.
type Word []Cell

type lineAcc struct {
	cells []Cell
	sumY  float64
}

func (l *lineAcc) meanY() float64 {
	return l.sumY / float64(len(l.cells))
}

// GroupIntoLines clusters cells into lines with a tolerance of
// LineToleranceFactor × the average cell height.
func GroupIntoLines(cells []Cell) []Line {
	if len(cells) == 0 {
		return []Line{}
	}
	var sum float64
	for _, c := range cells {
		sum += c.Height
	}
	return GroupIntoLinesWithTolerance(cells, LineToleranceFactor*sum/float64(len(cells)))
}

// GroupIntoLinesWithTolerance assigns cells, in input order, to the first line
// whose running mean Y lies strictly within tolerance, opening a new line when
// none does. Cells within a line are then sorted by X and lines by the Y of
// their leftmost cell. The input slice is not reordered.
func GroupIntoLinesWithTolerance(cells []Cell, tolerance float64) []Line {
	if len(cells) == 0 {
		return []Line{}
	}

	var acc []*lineAcc
	for _, c := range cells {
		placed := false
		for _, l := range acc {
			if math.Abs(c.Y-l.meanY()) < tolerance {
				l.cells = append(l.cells, c)
				l.sumY += c.Y
				placed = true
				break
			}
		}
		if !placed {
			acc = append(acc, &lineAcc{cells: []Cell{c}, sumY: c.Y})
		}
	}

	lines := make([]Line, len(acc))
	for i, l := range acc {
		line := Line(l.cells)
		sort.SliceStable(line, func(a, b int) bool { return line[a].X < line[b].X })
		lines[i] = line
	}
	sort.SliceStable(lines, func(a, b int) bool { return lines[a][0].Y < lines[b][0].Y })
	return lines
}

// GroupIntoWords splits a line wherever the gap between one cell's right edge
// and the next cell's left edge exceeds WordSpacingFactor × the line's average
// cell width.
func GroupIntoWords(line Line) []Word {
	if len(line) == 0 {
		return []Word{}
	}
	var sum float64
	for _, c := range line {
		sum += c.Width
	}
	threshold := WordSpacingFactor * sum / float64(len(line))

	var words []Word
	start := 0
	for i := range line {
		if i == len(line)-1 || line[i+1].Left()-line[i].Right() > threshold {
			words = append(words, Word(line[start:i+1:i+1]))
			start = i + 1
		}
	}
	return words
}

// Flatten returns the cells of lines in reading order.
func Flatten(lines []Line) []Cell {
	n := 0
	for _, l := range lines {
		n += len(l)
	}
	out := make([]Cell, 0, n)
	for _, l := range lines {
		out = append(out, l...)
	}
	return out
}
