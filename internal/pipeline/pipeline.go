// Package pipeline runs the post-processing chain for one image's detections:
// parse, confidence filter, NMS or dual-model merge, normalisation, class
// resolution, reading order and transliteration.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/braille-tools-mcp/internal/braille"
	"github.com/ironsheep/braille-tools-mcp/internal/detection"
)

// ErrInvalidRequest is returned when a request's mode and detection lists
// disagree or its IoU threshold is out of range.
var ErrInvalidRequest = errors.New("invalid request")

// Request carries one image's raw detections.
//
// Model dimensions default to the pipeline's model size. Display dimensions
// default to the model dimensions, or to the letterbox content size when
// Letterbox is set. Nil thresholds use the pipeline defaults.
type Request struct {
	Mode                braille.Mode         `json:"mode,omitempty"`
	Grade1              [][]float64          `json:"grade1_detections,omitempty"`
	Grade2              [][]float64          `json:"grade2_detections,omitempty"`
	ModelWidth          float64              `json:"model_width,omitempty"`
	ModelHeight         float64              `json:"model_height,omitempty"`
	DisplayWidth        float64              `json:"display_width,omitempty"`
	DisplayHeight       float64              `json:"display_height,omitempty"`
	Letterbox           *detection.Letterbox `json:"letterbox,omitempty"`
	ConfidenceThreshold *float64             `json:"confidence_threshold,omitempty"`
	IoUThreshold        *float64             `json:"iou_threshold,omitempty"`
}

// Result is the outcome of processing one Request.
type Result struct {
	Mode           braille.Mode   `json:"mode"`
	Cells          []braille.Cell `json:"cells"`
	LineCount      int            `json:"line_count"`
	UnknownCount   int            `json:"unknown_count"`
	DetectionText  string         `json:"detection_text"`
	TranslatedText string         `json:"translated_text"`
}

// Options configures a Pipeline.
type Options struct {
	ConfidenceThreshold float64
	IoUThreshold        float64
	ModelSize           float64
	Workers             int
	Logger              *slog.Logger
}

// DefaultOptions matches the detector defaults: confidence 0.25, IoU 0.5, 640px input.
func DefaultOptions() Options {
	return Options{
		ConfidenceThreshold: 0.25,
		IoUThreshold:        detection.DefaultIoUThreshold,
		ModelSize:           640,
		Workers:             4,
	}
}

// Pipeline is stateless apart from its read-only resolver and options, so one
// value serves concurrent callers.
type Pipeline struct {
	resolver *braille.Resolver
	opts     Options
	log      *slog.Logger
}

// New creates a pipeline. Zero IoU, model size and worker values fall back to
// DefaultOptions; a zero confidence threshold keeps every detection.
func New(resolver *braille.Resolver, opts Options) *Pipeline {
	def := DefaultOptions()
	if opts.IoUThreshold <= 0 {
		opts.IoUThreshold = def.IoUThreshold
	}
	if opts.ModelSize <= 0 {
		opts.ModelSize = def.ModelSize
	}
	if opts.Workers <= 0 {
		opts.Workers = def.Workers
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{resolver: resolver, opts: opts, log: log.With("component", "pipeline")}
}

// Resolver returns the class resolver in use.
func (p *Pipeline) Resolver() *braille.Resolver { return p.resolver }

// Options returns the effective options.
func (p *Pipeline) Options() Options { return p.opts }

// Process runs the full chain for one request.
func (p *Pipeline) Process(req Request) (*Result, error) {
	mode, err := resolveMode(req)
	if err != nil {
		return nil, err
	}

	conf := p.opts.ConfidenceThreshold
	if req.ConfidenceThreshold != nil {
		conf = *req.ConfidenceThreshold
	}
	iou := p.opts.IoUThreshold
	if req.IoUThreshold != nil {
		iou = *req.IoUThreshold
		if iou <= 0 || iou > 1 {
			return nil, fmt.Errorf("%w: iou_threshold %v outside (0,1]", ErrInvalidRequest, iou)
		}
	}

	dets, err := p.suppress(mode, req, conf, iou)
	if err != nil {
		return nil, err
	}

	placed, err := p.place(dets, req)
	if err != nil {
		return nil, err
	}

	cells := p.resolver.Cells(placed, mode)
	unknown := 0
	for _, c := range cells {
		if c.IsUnknown() {
			unknown++
			p.log.Warn("unknown class id", "class_id", c.ClassID, "grade", c.Grade.String())
			continue
		}
		p.log.Debug("resolved cell", "class_id", c.ClassID, "binary", c.Binary, "meaning", c.Meaning)
	}

	lines := braille.GroupIntoLines(cells)
	ordered := braille.Flatten(lines)

	return &Result{
		Mode:           mode,
		Cells:          ordered,
		LineCount:      len(lines),
		UnknownCount:   unknown,
		DetectionText:  braille.DetectionReport(ordered),
		TranslatedText: braille.NewTransliterator(mode).Translate(lines),
	}, nil
}

func resolveMode(req Request) (braille.Mode, error) {
	if req.Mode == "" {
		switch {
		case len(req.Grade1) > 0 && len(req.Grade2) > 0:
			return braille.ModeBoth, nil
		case len(req.Grade2) > 0:
			return braille.ModeG2, nil
		default:
			return braille.ModeG1, nil
		}
	}
	mode, err := braille.ParseMode(string(req.Mode))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	switch {
	case mode == braille.ModeG1 && len(req.Grade2) > 0:
		return "", fmt.Errorf("%w: grade-2 detections supplied in g1 mode", ErrInvalidRequest)
	case mode == braille.ModeG2 && len(req.Grade1) > 0:
		return "", fmt.Errorf("%w: grade-1 detections supplied in g2 mode", ErrInvalidRequest)
	}
	return mode, nil
}

// suppress parses and filters the lists the mode uses and runs NMS (or Merge).
func (p *Pipeline) suppress(mode braille.Mode, req Request, conf, iou float64) ([]detection.Detection, error) {
	parse := func(name string, raw [][]float64) ([]detection.Detection, error) {
		dets, err := detection.ParseDetections(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		kept := detection.FilterByConfidence(dets, conf)
		p.log.Debug("confidence filter", "list", name, "raw", len(dets), "kept", len(kept), "threshold", conf)
		return kept, nil
	}

	switch mode {
	case braille.ModeBoth:
		g1, err := parse("grade1_detections", req.Grade1)
		if err != nil {
			return nil, err
		}
		g2, err := parse("grade2_detections", req.Grade2)
		if err != nil {
			return nil, err
		}
		merged := detection.Merge(g1, g2, iou)
		p.log.Debug("merged", "grade1", len(g1), "grade2", len(g2), "kept", len(merged))
		return merged, nil
	case braille.ModeG2:
		g2, err := parse("grade2_detections", req.Grade2)
		if err != nil {
			return nil, err
		}
		kept := detection.NonMaxSuppression(g2, iou)
		p.log.Debug("nms", "before", len(g2), "after", len(kept))
		return kept, nil
	default:
		g1, err := parse("grade1_detections", req.Grade1)
		if err != nil {
			return nil, err
		}
		kept := detection.NonMaxSuppression(g1, iou)
		p.log.Debug("nms", "before", len(g1), "after", len(kept))
		return kept, nil
	}
}

func (p *Pipeline) place(dets []detection.Detection, req Request) ([]detection.Placed, error) {
	modelW, modelH := req.ModelWidth, req.ModelHeight
	if modelW <= 0 {
		modelW = p.opts.ModelSize
	}
	if modelH <= 0 {
		modelH = p.opts.ModelSize
	}
	displayW, displayH := req.DisplayWidth, req.DisplayHeight

	placed := make([]detection.Placed, 0, len(dets))
	if req.Letterbox != nil {
		if displayW <= 0 || displayH <= 0 {
			displayW, displayH = req.Letterbox.ContentSize(modelW, modelH)
		}
		for _, d := range dets {
			pl, err := detection.NormalizeLetterboxed(d, *req.Letterbox, displayW, displayH)
			if err != nil {
				return nil, err
			}
			placed = append(placed, pl)
		}
		return placed, nil
	}

	if displayW <= 0 {
		displayW = modelW
	}
	if displayH <= 0 {
		displayH = modelH
	}
	for _, d := range dets {
		pl, err := detection.Normalize(d, modelW, modelH, displayW, displayH)
		if err != nil {
			return nil, err
		}
		placed = append(placed, pl)
	}
	return placed, nil
}

// ProcessBatch processes requests concurrently, at most Options.Workers at a
// time. Results keep request order. The first error cancels the remaining
// work and is returned with the failing index.
func (p *Pipeline) ProcessBatch(ctx context.Context, reqs []Request) ([]*Result, error) {
	results := make([]*Result, len(reqs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)

	for i := range reqs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := p.Process(reqs[i])
			if err != nil {
				return fmt.Errorf("request %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
