package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ironsheep/braille-tools-mcp/internal/braille"
	"github.com/ironsheep/braille-tools-mcp/internal/detection"
	"github.com/ironsheep/braille-tools-mcp/internal/history"
	"github.com/ironsheep/braille-tools-mcp/internal/imaging"
	"github.com/ironsheep/braille-tools-mcp/internal/pipeline"
)

// errHistoryDisabled is returned by braille_history when no store is configured.
var errHistoryDisabled = errors.New("translation history is disabled (set BRAILLE_MCP_HISTORY_DB)")

// ToolCallParams represents the parameters for a tools/call MCP request.
//
// Example request body:
//
//	{"name": "braille_lookup", "arguments": {"class_id": 29, "grade": "g2"}}
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "braille_translate").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.log.Warn("tool failed", "tool", params.Name, "error", err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	switch name {
	// Translation
	case "braille_translate":
		return s.handleTranslate(ctx, args)
	case "braille_translate_batch":
		return s.handleTranslateBatch(ctx, args)

	// Detection post-processing
	case "braille_nms":
		return s.handleNMS(args)
	case "braille_merge":
		return s.handleMerge(args)
	case "braille_lookup":
		return s.handleLookup(args)

	// Page images
	case "braille_letterbox":
		return s.handleLetterbox(args)
	case "braille_annotate":
		return s.handleAnnotate(args)
	case "braille_crop_cell":
		return s.handleCropCell(args)
	case "braille_image_info":
		return s.handleImageInfo(args)

	// History
	case "braille_history":
		return s.handleHistory(ctx, args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Translation Handlers ===

type translateArgs struct {
	pipeline.Request
	ImagePath string `json:"image_path,omitempty"`
}

type translateResult struct {
	*pipeline.Result
	HistoryID int64 `json:"history_id,omitempty"`
}

// prepare fills the display size from ImagePath when the caller left it unset.
func (s *Server) prepare(a *translateArgs) error {
	if a.ImagePath == "" {
		return nil
	}
	info, err := imaging.LoadImageInfo(s.cache, a.ImagePath)
	if err != nil {
		return err
	}
	if a.DisplayWidth <= 0 {
		a.DisplayWidth = float64(info.Width)
	}
	if a.DisplayHeight <= 0 {
		a.DisplayHeight = float64(info.Height)
	}
	return nil
}

// record stores res in the history database, if any. Failures are logged and
// do not fail the translation.
func (s *Server) record(ctx context.Context, source string, res *pipeline.Result) int64 {
	if s.history == nil {
		return 0
	}
	id, err := s.history.Record(ctx, history.Entry{
		Mode:           string(res.Mode),
		Source:         source,
		CellCount:      len(res.Cells),
		DetectionText:  res.DetectionText,
		TranslatedText: res.TranslatedText,
	})
	if err != nil {
		s.log.Warn("failed to record translation", "error", err)
		return 0
	}
	return id
}

func (s *Server) handleTranslate(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a translateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := s.prepare(&a); err != nil {
		return nil, err
	}
	res, err := s.pipeline.Process(a.Request)
	if err != nil {
		return nil, err
	}
	return &translateResult{Result: res, HistoryID: s.record(ctx, a.ImagePath, res)}, nil
}

type translateBatchArgs struct {
	Requests []translateArgs `json:"requests"`
}

func (s *Server) handleTranslateBatch(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a translateBatchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	reqs := make([]pipeline.Request, len(a.Requests))
	for i := range a.Requests {
		if err := s.prepare(&a.Requests[i]); err != nil {
			return nil, fmt.Errorf("request %d: %w", i, err)
		}
		reqs[i] = a.Requests[i].Request
	}

	results, err := s.pipeline.ProcessBatch(ctx, reqs)
	if err != nil {
		return nil, err
	}

	out := make([]*translateResult, len(results))
	for i, res := range results {
		out[i] = &translateResult{Result: res, HistoryID: s.record(ctx, a.Requests[i].ImagePath, res)}
	}
	return map[string]interface{}{
		"count":   len(out),
		"results": out,
	}, nil
}

// === Detection Handlers ===

type detectionListResult struct {
	Count      int                   `json:"count"`
	Detections []detection.Detection `json:"detections"`
}

type nmsArgs struct {
	Detections   [][]float64 `json:"detections"`
	IoUThreshold *float64    `json:"iou_threshold"`
}

func (s *Server) iou(v *float64) (float64, error) {
	if v == nil {
		return s.pipeline.Options().IoUThreshold, nil
	}
	if *v <= 0 || *v > 1 {
		return 0, fmt.Errorf("iou_threshold %v outside (0,1]", *v)
	}
	return *v, nil
}

func (s *Server) handleNMS(args json.RawMessage) (interface{}, error) {
	var a nmsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	dets, err := detection.ParseDetections(a.Detections)
	if err != nil {
		return nil, err
	}
	iou, err := s.iou(a.IoUThreshold)
	if err != nil {
		return nil, err
	}
	kept := detection.NonMaxSuppression(dets, iou)
	return &detectionListResult{Count: len(kept), Detections: kept}, nil
}

type mergeArgs struct {
	Grade1       [][]float64 `json:"grade1_detections"`
	Grade2       [][]float64 `json:"grade2_detections"`
	IoUThreshold *float64    `json:"iou_threshold"`
}

type mergedDetection struct {
	detection.Detection
	Grade   string `json:"grade"`
	LocalID int    `json:"local_id"`
}

func (s *Server) handleMerge(args json.RawMessage) (interface{}, error) {
	var a mergeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	g1, err := detection.ParseDetections(a.Grade1)
	if err != nil {
		return nil, fmt.Errorf("grade1_detections: %w", err)
	}
	g2, err := detection.ParseDetections(a.Grade2)
	if err != nil {
		return nil, fmt.Errorf("grade2_detections: %w", err)
	}

	iou, err := s.iou(a.IoUThreshold)
	if err != nil {
		return nil, err
	}
	merged := detection.Merge(g1, g2, iou)
	out := make([]mergedDetection, len(merged))
	for i, d := range merged {
		local, isG2 := detection.SplitCombinedID(d.ClassID)
		grade := braille.Grade1
		if isG2 {
			grade = braille.Grade2
		}
		out[i] = mergedDetection{Detection: d, Grade: grade.String(), LocalID: local}
	}
	return map[string]interface{}{
		"count":      len(out),
		"detections": out,
	}, nil
}

type lookupArgs struct {
	ClassID int    `json:"class_id"`
	Grade   string `json:"grade"`
}

type lookupResult struct {
	ClassID  int      `json:"class_id"`
	Grade    string   `json:"grade"`
	LocalID  int      `json:"local_id"`
	Known    bool     `json:"known"`
	Binary   string   `json:"binary"`
	Meaning  string   `json:"meaning"`
	Cells    []string `json:"cells"`
	Modifier bool     `json:"modifier"`
}

func (s *Server) handleLookup(args json.RawMessage) (interface{}, error) {
	var a lookupArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Grade == "" {
		a.Grade = "g1"
	}
	mode, err := braille.ParseMode(a.Grade)
	if err != nil {
		return nil, err
	}

	grade, local, e, ok := s.pipeline.Resolver().ResolveForMode(a.ClassID, mode)
	cell := braille.Cell{Grade: grade, Binary: e.Binary, Meaning: e.Meaning}
	return &lookupResult{
		ClassID:  a.ClassID,
		Grade:    grade.String(),
		LocalID:  local,
		Known:    ok,
		Binary:   e.Binary,
		Meaning:  e.Meaning,
		Cells:    e.Cells(),
		Modifier: ok && cell.IsModifier(),
	}, nil
}

// === Image Handlers ===

type letterboxArgs struct {
	Path         string `json:"path"`
	Size         int    `json:"size"`
	IncludeImage bool   `json:"include_image"`
}

func (s *Server) handleLetterbox(args json.RawMessage) (interface{}, error) {
	var a letterboxArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Size <= 0 {
		a.Size = int(s.pipeline.Options().ModelSize)
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.LetterboxPreview(img, a.Size, a.IncludeImage)
}

type annotateArgs struct {
	translateArgs
	Path        string `json:"path"`
	LineWidth   int    `json:"line_width"`
	HideLabels  bool   `json:"hide_labels"`
	MaxWidth    int    `json:"max_width"`
	Grade1Color string `json:"grade1_color"`
	Grade2Color string `json:"grade2_color"`
}

type annotateResult struct {
	*imaging.AnnotateResult
	DetectionText  string `json:"detection_text"`
	TranslatedText string `json:"translated_text"`
	UnknownCount   int    `json:"unknown_count"`
}

func (s *Server) handleAnnotate(args json.RawMessage) (interface{}, error) {
	var a annotateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	// Cell boxes must land in the annotated image's pixel space.
	a.ImagePath = a.Path
	if err := s.prepare(&a.translateArgs); err != nil {
		return nil, err
	}

	res, err := s.pipeline.Process(a.Request)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	preview, err := imaging.AnnotatePreview(img, res.Cells, imaging.AnnotateOptions{
		LineWidth:   a.LineWidth,
		HideLabels:  a.HideLabels,
		MaxWidth:    a.MaxWidth,
		Grade1Color: a.Grade1Color,
		Grade2Color: a.Grade2Color,
	})
	if err != nil {
		return nil, err
	}
	return &annotateResult{
		AnnotateResult: preview,
		DetectionText:  res.DetectionText,
		TranslatedText: res.TranslatedText,
		UnknownCount:   res.UnknownCount,
	}, nil
}

type cropCellArgs struct {
	Path    string  `json:"path"`
	X1      float64 `json:"x1"`
	Y1      float64 `json:"y1"`
	X2      float64 `json:"x2"`
	Y2      float64 `json:"y2"`
	Padding int     `json:"padding"`
	Scale   float64 `json:"scale"`
}

func (s *Server) handleCropCell(args json.RawMessage) (interface{}, error) {
	var a cropCellArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	box := detection.Bounds{Left: a.X1, Top: a.Y1, Right: a.X2, Bottom: a.Y2}
	return imaging.CropCell(img, box, a.Padding, a.Scale)
}

type imageInfoArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageInfo(args json.RawMessage) (interface{}, error) {
	var a imageInfoArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

// === History Handlers ===

type historyArgs struct {
	Limit int `json:"limit"`
}

func (s *Server) handleHistory(ctx context.Context, args json.RawMessage) (interface{}, error) {
	if s.history == nil {
		return nil, errHistoryDisabled
	}
	var a historyArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	entries, err := s.history.Recent(ctx, a.Limit)
	if err != nil {
		return nil, err
	}
	total, err := s.history.Count(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"count":   len(entries),
		"total":   total,
		"entries": entries,
	}, nil
}
