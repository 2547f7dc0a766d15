package braille

import (
	"errors"
	"fmt"
	"strings"
)

// Grade identifies which detection model, and therefore which table, a class
// id belongs to.
type Grade int

const (
	Grade1 Grade = 1
	Grade2 Grade = 2
)

// ErrUnknownGrade is returned when a grade or mode name cannot be parsed.
var ErrUnknownGrade = errors.New("unknown braille grade")

func (g Grade) String() string {
	switch g {
	case Grade1:
		return "g1"
	case Grade2:
		return "g2"
	default:
		return fmt.Sprintf("grade(%d)", int(g))
	}
}

// Valid reports whether g is Grade1 or Grade2.
func (g Grade) Valid() bool {
	return g == Grade1 || g == Grade2
}

// Mode selects which models contributed the detections being processed.
type Mode string

const (
	ModeG1   Mode = "g1"
	ModeG2   Mode = "g2"
	ModeBoth Mode = "both"
)

// ParseMode accepts "g1", "g2", "both" and a few common spellings
// ("grade1", "1", "combined", ...). Matching is case-insensitive.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "g1", "grade1", "grade_1", "1":
		return ModeG1, nil
	case "g2", "grade2", "grade_2", "2":
		return ModeG2, nil
	case "both", "combined", "g1+g2", "all":
		return ModeBoth, nil
	default:
		return "", fmt.Errorf("%w: mode %q", ErrUnknownGrade, s)
	}
}

// HasGrade2 reports whether Grade-2 contractions may appear in the output,
// which turns on whole-word tokenisation.
func (m Mode) HasGrade2() bool {
	return m == ModeG2 || m == ModeBoth
}

// ParseGrade accepts 1, 2, "g1", "g2", "grade1" and "grade2".
func ParseGrade(s string) (Grade, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "g1", "grade1":
		return Grade1, nil
	case "2", "g2", "grade2":
		return Grade2, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownGrade, s)
	}
}
