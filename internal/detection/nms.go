package detection

import (
	"math"
	"sort"
)

// DefaultIoUThreshold is the NMS overlap threshold used when none is configured.
const DefaultIoUThreshold = 0.5

// IoU returns the intersection-over-union of two center-format boxes.
//
// Boxes that do not overlap on either axis, and degenerate boxes whose union has
// no area, yield 0 rather than NaN.
func IoU(a, b Detection) float64 {
	ba := a.Corners()
	bb := b.Corners()

	xMin := math.Max(ba.Left, bb.Left)
	yMin := math.Max(ba.Top, bb.Top)
	xMax := math.Min(ba.Right, bb.Right)
	yMax := math.Min(ba.Bottom, bb.Bottom)

	if xMax <= xMin || yMax <= yMin {
		return 0
	}

	intersection := (xMax - xMin) * (yMax - yMin)
	union := boundsArea(ba) + boundsArea(bb) - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}

func boundsArea(b Bounds) float64 {
	w := b.Right - b.Left
	h := b.Bottom - b.Top
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// NonMaxSuppression performs greedy NMS over the detections.
//
// Boxes are visited in descending confidence order (ties keep their input
// order). Each visited box that has not been suppressed is kept, and every
// later box whose IoU with it is >= iouThreshold is suppressed. Class ids are
// ignored: boxes of different classes covering the same cell compete.
//
// The result is ordered by descending confidence. The input is not modified.
func NonMaxSuppression(dets []Detection, iouThreshold float64) []Detection {
	if len(dets) == 0 {
		return []Detection{}
	}

	order := make([]int, len(dets))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return dets[order[i]].Confidence > dets[order[j]].Confidence
	})

	suppressed := make([]bool, len(order))
	kept := make([]Detection, 0, len(order))

	for a := 0; a < len(order); a++ {
		if suppressed[a] {
			continue
		}
		best := dets[order[a]]
		kept = append(kept, best)

		for b := a + 1; b < len(order); b++ {
			if suppressed[b] {
				continue
			}
			if IoU(best, dets[order[b]]) >= iouThreshold {
				suppressed[b] = true
			}
		}
	}

	return kept
}
