// Package server implements the MCP (Model Context Protocol) server for Braille
// recognition post-processing.
//
// A detector (running elsewhere) produces raw boxes for a page image. This
// server turns those boxes into Braille cells in reading order and translated
// text, and offers helpers for preparing detector input and checking results
// visually.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Translation:
//   - braille_translate: Detections to cells, detection report and text
//   - braille_translate_batch: Several pages at once, processed concurrently
//
// Detection post-processing:
//   - braille_nms: Non-maximum suppression over one detection list
//   - braille_merge: Combine Grade 1 and Grade 2 detections
//   - braille_lookup: Class id to dot pattern and meaning
//
// Page images:
//   - braille_letterbox: Model input transform and padded preview
//   - braille_annotate: Draw recognized cells over the page
//   - braille_crop_cell: Extract one cell region
//   - braille_image_info: Dimensions and content-sniffed format
//
// History:
//   - braille_history: Recent translations (requires a history database)
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	srv := server.New(pipeline.New(resolver, opts), server.Options{Version: version})
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
