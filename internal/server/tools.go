package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// detectionListSchema describes an array of raw [x, y, w, h, conf, class] records.
func detectionListSchema(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"description": description,
		"items": map[string]interface{}{
			"type":     "array",
			"items":    map[string]interface{}{"type": "number"},
			"minItems": 6,
		},
	}
}

// translateProperties are shared by braille_translate, its batch variant and
// braille_annotate.
func translateProperties() map[string]interface{} {
	return map[string]interface{}{
		"mode": map[string]interface{}{
			"type":        "string",
			"description": "Detector mode. Inferred from which lists are non-empty when omitted.",
			"enum":        []string{"g1", "g2", "both"},
		},
		"grade1_detections": detectionListSchema("Grade 1 detections as [x_center, y_center, width, height, confidence, class_id] in model pixels"),
		"grade2_detections": detectionListSchema("Grade 2 detections in the same layout, with Grade 2 local class ids"),
		"model_width": map[string]interface{}{
			"type":        "number",
			"description": "Model input width. Defaults to the configured model size",
		},
		"model_height": map[string]interface{}{
			"type":        "number",
			"description": "Model input height. Defaults to the configured model size",
		},
		"display_width": map[string]interface{}{
			"type":        "number",
			"description": "Target width for cell boxes. Defaults to the image width when image_path is set, otherwise the model width",
		},
		"display_height": map[string]interface{}{
			"type":        "number",
			"description": "Target height for cell boxes",
		},
		"letterbox": map[string]interface{}{
			"type":        "object",
			"description": "Letterbox transform used to build the model input (see braille_letterbox)",
			"properties": map[string]interface{}{
				"scale":    map[string]interface{}{"type": "number"},
				"offset_x": map[string]interface{}{"type": "number"},
				"offset_y": map[string]interface{}{"type": "number"},
			},
			"required": []string{"scale"},
		},
		"confidence_threshold": map[string]interface{}{
			"type":        "number",
			"description": "Drop detections below this confidence. Defaults to server config",
		},
		"iou_threshold": map[string]interface{}{
			"type":        "number",
			"description": "NMS overlap threshold. Defaults to server config",
		},
		"image_path": map[string]interface{}{
			"type":        "string",
			"description": "Optional page image; its size becomes the display size",
		},
	}
}

// GetToolDefinitions returns all available tools, in the order tools/list
// reports them.
//
// Each call builds fresh schema maps, so callers may modify the result. Every
// listed name is dispatched by executeTool; optional parameters carry their
// default in the schema's "default" field.
func GetToolDefinitions() []Tool {
	return []Tool{
		// Translation
		{
			Name:        "braille_translate",
			Description: "Turn raw detector output into Braille cells in reading order, a per-cell detection report and translated text. Handles Grade 1, Grade 2 and combined detections.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": translateProperties(),
			},
		},
		{
			Name:        "braille_translate_batch",
			Description: "Run braille_translate for several pages concurrently. Results keep request order; the first failing request aborts the batch.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"requests": map[string]interface{}{
						"type":        "array",
						"description": "One braille_translate argument object per page",
						"items": map[string]interface{}{
							"type":       "object",
							"properties": translateProperties(),
						},
					},
				},
				"required": []string{"requests"},
			},
		},

		// Detection post-processing
		{
			Name:        "braille_nms",
			Description: "Apply non-maximum suppression to one detection list. Returns surviving detections, highest confidence first.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"detections": detectionListSchema("Detections as [x_center, y_center, width, height, confidence, class_id]"),
					"iou_threshold": map[string]interface{}{
						"type":        "number",
						"description": "Boxes overlapping a kept box by at least this IoU are removed. Default 0.5",
						"default":     0.5,
					},
				},
				"required": []string{"detections"},
			},
		},
		{
			Name:        "braille_merge",
			Description: "Merge Grade 1 and Grade 2 detections into one list. Grade 2 class ids are offset by 1000 so both grades can be told apart after suppression.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"grade1_detections": detectionListSchema("Grade 1 detections"),
					"grade2_detections": detectionListSchema("Grade 2 detections"),
					"iou_threshold": map[string]interface{}{
						"type":        "number",
						"description": "NMS overlap threshold. Default 0.5",
						"default":     0.5,
					},
				},
			},
		},
		{
			Name:        "braille_lookup",
			Description: "Look up a class id in the Braille tables and return its dot pattern and meaning.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"class_id": map[string]interface{}{
						"type":        "integer",
						"description": "Class id as emitted by a detector, or a merged id when grade is \"combined\"",
					},
					"grade": map[string]interface{}{
						"type":        "string",
						"description": "Table to use. Default g1",
						"enum":        []string{"g1", "g2", "combined"},
						"default":     "g1",
					},
				},
				"required": []string{"class_id"},
			},
		},

		// Page images
		{
			Name:        "braille_letterbox",
			Description: "Compute the letterbox transform that fits an image into a square model input, optionally returning the padded input as base64 PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the page image",
					},
					"size": map[string]interface{}{
						"type":        "integer",
						"description": "Model input size. Defaults to the configured model size",
					},
					"include_image": map[string]interface{}{
						"type":        "boolean",
						"description": "Return the padded model input. Default false",
						"default":     false,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "braille_annotate",
			Description: "Translate detections for a page image and draw every cell's box and label over it. Returns the annotated image as base64 PNG together with the translation.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": mergeProperties(translateProperties(), map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the page image",
					},
					"line_width": map[string]interface{}{
						"type":        "integer",
						"description": "Box stroke width in pixels. Default 2",
						"default":     2,
					},
					"hide_labels": map[string]interface{}{
						"type":        "boolean",
						"description": "Draw boxes only",
						"default":     false,
					},
					"max_width": map[string]interface{}{
						"type":        "integer",
						"description": "Downscale the annotated image to at most this width",
					},
					"grade1_color": map[string]interface{}{
						"type":        "string",
						"description": "Box colour for Grade 1 cells as #RRGGBB",
					},
					"grade2_color": map[string]interface{}{
						"type":        "string",
						"description": "Box colour for Grade 2 cells as #RRGGBB",
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "braille_crop_cell",
			Description: "Crop a cell region from a page image and return it as base64 PNG. Fractional box edges are rounded outward.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the page image",
					},
					"x1": map[string]interface{}{
						"type":        "number",
						"description": "Left edge X coordinate",
					},
					"y1": map[string]interface{}{
						"type":        "number",
						"description": "Top edge Y coordinate",
					},
					"x2": map[string]interface{}{
						"type":        "number",
						"description": "Right edge X coordinate",
					},
					"y2": map[string]interface{}{
						"type":        "number",
						"description": "Bottom edge Y coordinate",
					},
					"padding": map[string]interface{}{
						"type":        "integer",
						"description": "Extra pixels around the box. Default 0",
						"default":     0,
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor. Default 1.0",
						"default":     1.0,
					},
				},
				"required": []string{"path", "x1", "y1", "x2", "y2"},
			},
		},
		{
			Name:        "braille_image_info",
			Description: "Report a page image's dimensions and its format as detected from file content.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
				},
				"required": []string{"path"},
			},
		},

		// History
		{
			Name:        "braille_history",
			Description: "List recent translations, newest first. Fails when the server runs without a history database.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum entries to return. Default 20",
						"default":     20,
					},
				},
			},
		},
	}
}

func mergeProperties(base, extra map[string]interface{}) map[string]interface{} {
	for k, v := range extra {
		base[k] = v
	}
	return base
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
