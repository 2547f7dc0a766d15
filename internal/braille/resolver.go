package braille

import (
	"fmt"

	"github.com/ironsheep/braille-tools-mcp/internal/detection"
)

// Reserved modifier patterns.
const (
	CapitalPattern = "000001"
	NumberPattern  = "001111"
	Dot4Pattern    = "000100"
	Dot5Pattern    = "000010"
)

// Modifier meanings as they appear in the class tables.
const (
	CapitalMeaning = "capital"
	NumberMeaning  = "number"
)

// IsPrefixPattern reports whether binary is one of the reserved modifier
// patterns: capital sign, number sign, dot-4 or dot-5.
func IsPrefixPattern(binary string) bool {
	switch binary {
	case CapitalPattern, NumberPattern, Dot4Pattern, Dot5Pattern:
		return true
	}
	return false
}

// Resolver maps class ids to entries using one table per grade.
// It holds no mutable state and may be shared between goroutines.
type Resolver struct {
	tables map[Grade]*Table
}

// NewResolver builds a resolver over the given tables. A nil table makes every
// lookup for that grade resolve to Unknown.
func NewResolver(grade1, grade2 *Table) (*Resolver, error) {
	if grade1 != nil && grade1.Grade() != Grade1 {
		return nil, fmt.Errorf("%w: grade-1 slot holds a %v table", ErrInvalidTable, grade1.Grade())
	}
	if grade2 != nil && grade2.Grade() != Grade2 {
		return nil, fmt.Errorf("%w: grade-2 slot holds a %v table", ErrInvalidTable, grade2.Grade())
	}
	for _, t := range []*Table{grade1, grade2} {
		if t != nil && t.MaxID() >= detection.G2ClassOffset {
			return nil, fmt.Errorf("%w: %v id %d collides with the grade-2 offset %d",
				ErrInvalidTable, t.Grade(), t.MaxID(), detection.G2ClassOffset)
		}
	}
	return &Resolver{tables: map[Grade]*Table{Grade1: grade1, Grade2: grade2}}, nil
}

// DefaultResolver returns a resolver over the embedded tables.
func DefaultResolver() (*Resolver, error) {
	g1, err := DefaultTable(Grade1)
	if err != nil {
		return nil, err
	}
	g2, err := DefaultTable(Grade2)
	if err != nil {
		return nil, err
	}
	return NewResolver(g1, g2)
}

// Table returns the table used for g, or nil.
func (r *Resolver) Table(g Grade) *Table {
	return r.tables[g]
}

// Resolve looks up a model-local id in the table for grade. Missing ids yield
// Unknown and false.
func (r *Resolver) Resolve(id int, grade Grade) (Entry, bool) {
	return r.tables[grade].Lookup(id)
}

// ResolveCombined splits a merged class id into its grade and local id and
// resolves it. Ids at or above detection.G2ClassOffset are Grade 2.
func (r *Resolver) ResolveCombined(combinedID int) (Grade, int, Entry, bool) {
	local, isG2 := detection.SplitCombinedID(combinedID)
	grade := Grade1
	if isG2 {
		grade = Grade2
	}
	e, ok := r.Resolve(local, grade)
	return grade, local, e, ok
}

// ResolveForMode interprets classID according to the processing mode: merged
// ids under ModeBoth, local Grade-1 or Grade-2 ids otherwise.
func (r *Resolver) ResolveForMode(classID int, mode Mode) (Grade, int, Entry, bool) {
	switch mode {
	case ModeG2:
		e, ok := r.Resolve(classID, Grade2)
		return Grade2, classID, e, ok
	case ModeBoth:
		return r.ResolveCombined(classID)
	default:
		e, ok := r.Resolve(classID, Grade1)
		return Grade1, classID, e, ok
	}
}

// Cell resolves a placed detection into a Cell.
func (r *Resolver) Cell(p detection.Placed, mode Mode) Cell {
	grade, local, e, _ := r.ResolveForMode(p.ClassID, mode)
	return NewCell(p, grade, local, e)
}

// Cells resolves every placed detection, preserving order.
func (r *Resolver) Cells(placed []detection.Placed, mode Mode) []Cell {
	out := make([]Cell, 0, len(placed))
	for _, p := range placed {
		out = append(out, r.Cell(p, mode))
	}
	return out
}
