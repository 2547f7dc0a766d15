package braille

import (
	"fmt"
	"math"
	"strings"
)

// DetectionReport lists every cell with its meaning, confidence and pattern:
//
//	Found 2 cells
//
//	Cell 0: h (93%), Binary: 110010
//	Cell 1: i (88%), Binary: 010100
func DetectionReport(cells []Cell) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d cells\n\n", len(cells))
	for i, c := range cells {
		fmt.Fprintf(&sb, "Cell %d: %s (%d%%), Binary: %s\n", i, c.Meaning, percent(c.Confidence), c.Binary)
	}
	return sb.String()
}

// percent truncates conf×100, tolerating float error so 0.29 reads 29.
func percent(conf float64) int {
	return int(math.Floor(conf*100 + 1e-9))
}
