package detection

import (
	"errors"
	"fmt"
	"math"
)

// RawFields is the minimum number of values in one raw detector record:
// center x, center y, width, height, confidence and class id.
const RawFields = 6

// ErrMalformedDetection is returned when a raw record is shorter than RawFields.
var ErrMalformedDetection = errors.New("malformed detection record")

// ErrInvalidDimensions is returned for non-positive model, display or scale values.
var ErrInvalidDimensions = errors.New("invalid dimensions")

// Detection is one candidate box emitted by a detection model.
//
// X and Y are the box center. ClassID is model-local unless the detection came
// out of Merge, in which case Grade-2 ids carry G2ClassOffset.
type Detection struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Confidence float64 `json:"confidence"`
	ClassID    int     `json:"class_id"`
}

// Bounds is an axis-aligned box in corner format.
type Bounds struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// Corners converts the center-format box into corner format without clamping.
func (d Detection) Corners() Bounds {
	return Bounds{
		Left:   d.X - d.Width/2,
		Top:    d.Y - d.Height/2,
		Right:  d.X + d.Width/2,
		Bottom: d.Y + d.Height/2,
	}
}

// Area returns width × height. Negative extents count as zero.
func (d Detection) Area() float64 {
	return math.Max(d.Width, 0) * math.Max(d.Height, 0)
}

// MaxClassID bounds raw class ids so that Merge's offset cannot overflow.
const MaxClassID = math.MaxInt32 - G2ClassOffset

// ParseDetection builds a Detection from one raw record.
//
// Records longer than RawFields are accepted; trailing values (some detectors
// append model-space copies of the box) are ignored. Shorter records fail with
// ErrMalformedDetection instead of reading past the end, as do records with a
// non-finite value, a confidence outside [0,1], or a class id that is not a
// whole number in [0, MaxClassID].
func ParseDetection(raw []float64) (Detection, error) {
	if len(raw) < RawFields {
		return Detection{}, fmt.Errorf("%w: got %d values, need at least %d", ErrMalformedDetection, len(raw), RawFields)
	}
	for i, v := range raw[:RawFields] {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Detection{}, fmt.Errorf("%w: value %d is %v", ErrMalformedDetection, i, v)
		}
	}
	if conf := raw[4]; conf < 0 || conf > 1 {
		return Detection{}, fmt.Errorf("%w: confidence %v outside [0,1]", ErrMalformedDetection, conf)
	}
	if id := raw[5]; id < 0 || id > MaxClassID || id != math.Trunc(id) {
		return Detection{}, fmt.Errorf("%w: class id %v is not an integer in [0,%d]", ErrMalformedDetection, id, MaxClassID)
	}
	return Detection{
		X:          raw[0],
		Y:          raw[1],
		Width:      raw[2],
		Height:     raw[3],
		Confidence: raw[4],
		ClassID:    int(raw[5]),
	}, nil
}

// ParseDetections parses every record, reporting the index of the first bad one.
func ParseDetections(raw [][]float64) ([]Detection, error) {
	out := make([]Detection, 0, len(raw))
	for i, r := range raw {
		d, err := ParseDetection(r)
		if err != nil {
			return nil, fmt.Errorf("detection %d: %w", i, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// FilterByConfidence returns the detections whose confidence is at least threshold.
// The input slice is not modified.
func FilterByConfidence(dets []Detection, threshold float64) []Detection {
	out := make([]Detection, 0, len(dets))
	for _, d := range dets {
		if d.Confidence >= threshold {
			out = append(out, d)
		}
	}
	return out
}
