package server

import (
	"context"
	"encoding/json"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/braille-tools-mcp/internal/history"
)

// createTestImageFile writes a blank PNG of the given size and returns its path.
func createTestImageFile(t *testing.T, width, height int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, width, height))); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

func newTestStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.New(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("history.New failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// callTool sends a tools/call request through handleRequest.
func callTool(t *testing.T, s *Server, name string, args interface{}) *MCPResponse {
	t.Helper()
	paramsJSON, err := json.Marshal(map[string]interface{}{"name": name, "arguments": args})
	if err != nil {
		t.Fatalf("failed to marshal params: %v", err)
	}
	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// decodeToolResult unpacks the JSON text content of a tools/call result into v.
func decodeToolResult(t *testing.T, result interface{}, v interface{}) {
	t.Helper()
	raw, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("failed to marshal result: %v", err)
	}
	var wrapped struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		t.Fatalf("failed to unmarshal content: %v", err)
	}
	if len(wrapped.Content) != 1 || wrapped.Content[0].Type != "text" {
		t.Fatalf("unexpected content: %s", raw)
	}
	if err := json.Unmarshal([]byte(wrapped.Content[0].Text), v); err != nil {
		t.Fatalf("failed to unmarshal tool text: %v", err)
	}
}

// callToolOK calls a tool, fails on error and decodes the result into v.
func callToolOK(t *testing.T, s *Server, name string, args interface{}, v interface{}) {
	t.Helper()
	resp := callTool(t, s, name, args)
	if resp.Error != nil {
		t.Fatalf("%s failed: %s: %v", name, resp.Error.Message, resp.Error.Data)
	}
	decodeToolResult(t, resp.Result, v)
}

// callToolErr calls a tool and returns the error data string, failing if the call succeeded.
func callToolErr(t *testing.T, s *Server, name string, args interface{}) string {
	t.Helper()
	resp := callTool(t, s, name, args)
	if resp.Error == nil {
		t.Fatalf("%s: expected error", name)
	}
	if resp.Error.Code != -32000 {
		t.Errorf("%s: error code %d, want -32000", name, resp.Error.Code)
	}
	data, _ := resp.Error.Data.(string)
	return data
}

type translateOutput struct {
	Mode           string `json:"mode"`
	LineCount      int    `json:"line_count"`
	UnknownCount   int    `json:"unknown_count"`
	DetectionText  string `json:"detection_text"`
	TranslatedText string `json:"translated_text"`
	HistoryID      int64  `json:"history_id"`
	Cells          []struct {
		ClassID int     `json:"class_id"`
		Grade   int     `json:"grade"`
		Meaning string  `json:"meaning"`
		X       float64 `json:"x"`
		Y       float64 `json:"y"`
	} `json:"cells"`
}

// row lays class ids out left to right at y, 12px apart in model space.
func row(y float64, ids ...int) [][]float64 {
	var out [][]float64
	for i, id := range ids {
		out = append(out, []float64{20 + float64(i)*12, y, 10, 10, 0.9, float64(id)})
	}
	return out
}

func TestHandleTranslate(t *testing.T) {
	s := newTestServer(t, nil)

	var out translateOutput
	callToolOK(t, s, "braille_translate", map[string]interface{}{
		"mode":              "g1",
		"grade1_detections": row(100, 7, 4, 11, 11, 14),
	}, &out)

	if out.TranslatedText != "hello" {
		t.Errorf("translated_text = %q, want hello", out.TranslatedText)
	}
	if out.Mode != "g1" || out.LineCount != 1 || len(out.Cells) != 5 {
		t.Errorf("unexpected output: %+v", out)
	}
	if !strings.HasPrefix(out.DetectionText, "Found 5 cells\n\n") {
		t.Errorf("detection_text = %q", out.DetectionText)
	}
	if out.HistoryID != 0 {
		t.Errorf("history_id = %d without a store", out.HistoryID)
	}
}

func TestHandleTranslate_CombinedMode(t *testing.T) {
	s := newTestServer(t, nil)

	var out translateOutput
	callToolOK(t, s, "braille_translate", map[string]interface{}{
		"grade1_detections": row(100, 10, 7),     // k h
		"grade2_detections": row(300, 29),        // at, on a second line
		"iou_threshold":     0.5,
		"model_width":       640,
		"model_height":      640,
	}, &out)

	if out.Mode != "both" {
		t.Errorf("mode = %q, want inferred both", out.Mode)
	}
	if out.TranslatedText != "kh\nat" {
		t.Errorf("translated_text = %q, want %q", out.TranslatedText, "kh\nat")
	}
	if last := out.Cells[len(out.Cells)-1]; last.ClassID != 1029 || last.Grade != 2 {
		t.Errorf("grade-2 cell = %+v, want class 1029 grade 2", last)
	}
}

func TestHandleTranslate_ImagePathSetsDisplaySize(t *testing.T) {
	s := newTestServer(t, nil)
	path := createTestImageFile(t, 1280, 960)

	var out translateOutput
	callToolOK(t, s, "braille_translate", map[string]interface{}{
		"grade1_detections": [][]float64{{320, 320, 20, 20, 0.9, 0}},
		"image_path":        path,
	}, &out)

	if len(out.Cells) != 1 || out.Cells[0].X != 640 || out.Cells[0].Y != 480 {
		t.Errorf("cells = %+v, want one cell at (640,480)", out.Cells)
	}
}

func TestHandleTranslate_Errors(t *testing.T) {
	s := newTestServer(t, nil)
	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{"bad mode", map[string]interface{}{"mode": "g3"}, "g3"},
		{"short record", map[string]interface{}{"grade1_detections": [][]float64{{1, 2, 3, 4, 0.9}}}, "malformed"},
		{"mode mismatch", map[string]interface{}{"mode": "g1", "grade2_detections": row(10, 0)}, "g1 mode"},
		{"missing image", map[string]interface{}{"image_path": "/nonexistent/page.png"}, "page.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if data := callToolErr(t, s, "braille_translate", tt.args); !strings.Contains(data, tt.want) {
				t.Errorf("error %q should mention %q", data, tt.want)
			}
		})
	}
}

func TestHandleTranslate_RecordsHistory(t *testing.T) {
	store := newTestStore(t)
	s := newTestServer(t, store)

	var out translateOutput
	callToolOK(t, s, "braille_translate", map[string]interface{}{
		"grade1_detections": row(100, 7, 8),
	}, &out)
	if out.HistoryID <= 0 {
		t.Fatalf("history_id = %d, want positive", out.HistoryID)
	}

	var hist struct {
		Count   int             `json:"count"`
		Total   int             `json:"total"`
		Entries []history.Entry `json:"entries"`
	}
	callToolOK(t, s, "braille_history", map[string]interface{}{"limit": 5}, &hist)
	if hist.Count != 1 || hist.Total != 1 {
		t.Fatalf("history = %+v, want one entry", hist)
	}
	if e := hist.Entries[0]; e.ID != out.HistoryID || e.TranslatedText != "hi" || e.CellCount != 2 || e.Mode != "g1" {
		t.Errorf("entry = %+v", e)
	}
}

func TestHandleHistory_Disabled(t *testing.T) {
	s := newTestServer(t, nil)
	if data := callToolErr(t, s, "braille_history", map[string]interface{}{}); !strings.Contains(data, "disabled") {
		t.Errorf("error = %q", data)
	}
}

func TestHandleTranslateBatch(t *testing.T) {
	store := newTestStore(t)
	s := newTestServer(t, store)

	var out struct {
		Count   int               `json:"count"`
		Results []translateOutput `json:"results"`
	}
	callToolOK(t, s, "braille_translate_batch", map[string]interface{}{
		"requests": []map[string]interface{}{
			{"grade1_detections": row(100, 7, 8)},
			{"grade1_detections": row(100, 0, 13)},
			{"grade1_detections": [][]float64{}},
		},
	}, &out)

	if out.Count != 3 {
		t.Fatalf("count = %d, want 3", out.Count)
	}
	want := []string{"hi", "an", ""}
	for i, w := range want {
		if out.Results[i].TranslatedText != w {
			t.Errorf("result %d = %q, want %q", i, out.Results[i].TranslatedText, w)
		}
	}
	if n, err := store.Count(context.Background()); err != nil || n != 3 {
		t.Errorf("stored %d entries (err %v), want 3", n, err)
	}
}

func TestHandleTranslateBatch_Error(t *testing.T) {
	s := newTestServer(t, nil)
	data := callToolErr(t, s, "braille_translate_batch", map[string]interface{}{
		"requests": []map[string]interface{}{
			{"grade1_detections": row(100, 7)},
			{"mode": "nope"},
		},
	})
	if !strings.Contains(data, "request 1") {
		t.Errorf("error %q should name the failing request", data)
	}
}

func TestHandleNMS(t *testing.T) {
	s := newTestServer(t, nil)

	var out struct {
		Count      int `json:"count"`
		Detections []struct {
			Confidence float64 `json:"confidence"`
			ClassID    int     `json:"class_id"`
		} `json:"detections"`
	}
	callToolOK(t, s, "braille_nms", map[string]interface{}{
		"detections": [][]float64{
			{100, 100, 20, 20, 0.7, 1},
			{101, 100, 20, 20, 0.9, 0},
			{300, 300, 20, 20, 0.8, 2},
		},
	}, &out)

	if out.Count != 2 {
		t.Fatalf("count = %d, want 2", out.Count)
	}
	if out.Detections[0].ClassID != 0 || out.Detections[1].ClassID != 2 {
		t.Errorf("detections = %+v, want classes 0 then 2", out.Detections)
	}

	callToolOK(t, s, "braille_nms", map[string]interface{}{
		"detections": [][]float64{
			{100, 100, 20, 20, 0.7, 1},
			{101, 100, 20, 20, 0.9, 0},
		},
		"iou_threshold": 1.0,
	}, &out)
	if out.Count != 2 {
		t.Errorf("iou 1.0 kept %d, want 2", out.Count)
	}
}

func TestHandleMerge(t *testing.T) {
	s := newTestServer(t, nil)

	var out struct {
		Count      int `json:"count"`
		Detections []struct {
			ClassID int    `json:"class_id"`
			Grade   string `json:"grade"`
			LocalID int    `json:"local_id"`
		} `json:"detections"`
	}
	callToolOK(t, s, "braille_merge", map[string]interface{}{
		"grade1_detections": [][]float64{{100, 100, 20, 20, 0.9, 0}},
		"grade2_detections": [][]float64{{300, 300, 20, 20, 0.8, 29}},
	}, &out)

	if out.Count != 2 {
		t.Fatalf("count = %d, want 2", out.Count)
	}
	g2 := out.Detections[1]
	if g2.ClassID != 1029 || g2.Grade != "g2" || g2.LocalID != 29 {
		t.Errorf("grade-2 detection = %+v", g2)
	}
	if g1 := out.Detections[0]; g1.ClassID != 0 || g1.Grade != "g1" {
		t.Errorf("grade-1 detection = %+v", g1)
	}

	if data := callToolErr(t, s, "braille_merge", map[string]interface{}{
		"grade2_detections": [][]float64{{1, 2}},
	}); !strings.Contains(data, "grade2_detections") {
		t.Errorf("error %q should name the list", data)
	}
}

func TestHandleNMS_RejectsBadInput(t *testing.T) {
	s := newTestServer(t, nil)
	box := []float64{100, 100, 20, 20, 0.9, 0}
	tests := []struct {
		name string
		tool string
		args map[string]interface{}
		want string
	}{
		{"zero iou", "braille_nms", map[string]interface{}{"detections": [][]float64{box}, "iou_threshold": 0.0}, "iou_threshold"},
		{"iou above one", "braille_merge", map[string]interface{}{"grade1_detections": [][]float64{box}, "iou_threshold": 1.5}, "iou_threshold"},
		{"confidence above one", "braille_nms", map[string]interface{}{"detections": [][]float64{{100, 100, 20, 20, 1.5, 0}}}, "confidence"},
		{"huge class id", "braille_nms", map[string]interface{}{"detections": [][]float64{{100, 100, 20, 20, 0.9, 1e20}}}, "class id"},
		{"fractional class id", "braille_merge", map[string]interface{}{"grade2_detections": [][]float64{{100, 100, 20, 20, 0.9, 2.5}}}, "class id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if data := callToolErr(t, s, tt.tool, tt.args); !strings.Contains(data, tt.want) {
				t.Errorf("error %q should mention %q", data, tt.want)
			}
		})
	}
}

func TestHandleLookup(t *testing.T) {
	s := newTestServer(t, nil)
	tests := []struct {
		name         string
		args         map[string]interface{}
		wantGrade    string
		wantLocal    int
		wantMeaning  string
		wantKnown    bool
		wantModifier bool
	}{
		{"default grade", map[string]interface{}{"class_id": 0}, "g1", 0, "a", true, false},
		{"capital sign", map[string]interface{}{"class_id": 26, "grade": "g1"}, "g1", 26, "capital", true, true},
		{"grade 2", map[string]interface{}{"class_id": 17, "grade": "g2"}, "g2", 17, "sang-ayon", true, false},
		{"combined", map[string]interface{}{"class_id": 1029, "grade": "combined"}, "g2", 29, "at", true, false},
		{"unknown", map[string]interface{}{"class_id": 999}, "g1", 999, "?", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out lookupResult
			callToolOK(t, s, "braille_lookup", tt.args, &out)
			if out.Grade != tt.wantGrade || out.LocalID != tt.wantLocal || out.Meaning != tt.wantMeaning ||
				out.Known != tt.wantKnown || out.Modifier != tt.wantModifier {
				t.Errorf("got %+v", out)
			}
		})
	}

	callToolErr(t, s, "braille_lookup", map[string]interface{}{"class_id": 0, "grade": "g9"})
}

func TestHandleLetterbox(t *testing.T) {
	s := newTestServer(t, nil)
	path := createTestImageFile(t, 1280, 960)

	var out struct {
		Size      int `json:"size"`
		Letterbox struct {
			Scale   float64 `json:"scale"`
			OffsetX float64 `json:"offset_x"`
			OffsetY float64 `json:"offset_y"`
		} `json:"letterbox"`
		ImageBase64 string `json:"image_base64"`
	}
	callToolOK(t, s, "braille_letterbox", map[string]interface{}{"path": path}, &out)

	if out.Size != 640 {
		t.Errorf("size = %d, want configured 640", out.Size)
	}
	if out.Letterbox.Scale != 0.5 || out.Letterbox.OffsetX != 0 || out.Letterbox.OffsetY != 80 {
		t.Errorf("letterbox = %+v", out.Letterbox)
	}
	if out.ImageBase64 != "" {
		t.Error("image should be omitted unless requested")
	}

	callToolOK(t, s, "braille_letterbox", map[string]interface{}{"path": path, "size": 320, "include_image": true}, &out)
	if out.Size != 320 || out.ImageBase64 == "" {
		t.Errorf("size = %d, image present = %v", out.Size, out.ImageBase64 != "")
	}
}

func TestHandleAnnotate(t *testing.T) {
	s := newTestServer(t, nil)
	path := createTestImageFile(t, 200, 100)

	var out struct {
		Width          int    `json:"width"`
		Height         int    `json:"height"`
		Boxes          int    `json:"boxes"`
		ImageBase64    string `json:"image_base64"`
		TranslatedText string `json:"translated_text"`
	}
	callToolOK(t, s, "braille_annotate", map[string]interface{}{
		"path":              path,
		"grade1_detections": [][]float64{{320, 320, 64, 64, 0.9, 0}},
		"grade1_color":      "#00FF00",
	}, &out)

	if out.Width != 200 || out.Height != 100 || out.Boxes != 1 || out.ImageBase64 == "" {
		t.Errorf("unexpected output: %+v", out)
	}
	if out.TranslatedText != "a" {
		t.Errorf("translated_text = %q, want a", out.TranslatedText)
	}

	callToolErr(t, s, "braille_annotate", map[string]interface{}{"grade1_detections": row(10, 0)})
	callToolErr(t, s, "braille_annotate", map[string]interface{}{"path": path, "grade2_color": "green"})
}

func TestHandleCropCell(t *testing.T) {
	s := newTestServer(t, nil)
	path := createTestImageFile(t, 100, 100)

	var out struct {
		X1     int `json:"x1"`
		Y1     int `json:"y1"`
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	callToolOK(t, s, "braille_crop_cell", map[string]interface{}{
		"path": path, "x1": 10.5, "y1": 20, "x2": 30, "y2": 40.2, "padding": 1, "scale": 2,
	}, &out)

	// (9,19)-(31,42) doubled
	if out.X1 != 9 || out.Y1 != 19 || out.Width != 44 || out.Height != 46 {
		t.Errorf("got %+v", out)
	}
}

func TestHandleImageInfo(t *testing.T) {
	s := newTestServer(t, nil)
	path := createTestImageFile(t, 64, 48)

	var out struct {
		Width    int    `json:"width"`
		Height   int    `json:"height"`
		Format   string `json:"format"`
		MimeType string `json:"mime_type"`
	}
	callToolOK(t, s, "braille_image_info", map[string]interface{}{"path": path}, &out)
	if out.Width != 64 || out.Height != 48 || out.Format != "png" || out.MimeType != "image/png" {
		t.Errorf("got %+v", out)
	}
}

func TestHandleToolsCall_UnknownTool(t *testing.T) {
	s := newTestServer(t, nil)
	if data := callToolErr(t, s, "image_ocr_full", map[string]interface{}{}); !strings.Contains(data, "unknown tool") {
		t.Errorf("error = %q", data)
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer(t, nil)
	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`"not an object"`),
	})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("response = %+v, want -32602", resp)
	}
}

func TestHandleToolsCall_MissingArguments(t *testing.T) {
	s := newTestServer(t, nil)
	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`{"name":"braille_translate"}`),
	})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	var out translateOutput
	decodeToolResult(t, resp.Result, &out)
	if out.DetectionText != "Found 0 cells\n\n" || out.TranslatedText != "" {
		t.Errorf("empty translate = %+v", out)
	}
}
