package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ironsheep/braille-tools-mcp/internal/history"
	"github.com/ironsheep/braille-tools-mcp/internal/imaging"
	"github.com/ironsheep/braille-tools-mcp/internal/pipeline"
)

// ProtocolVersion is the MCP revision announced during initialize.
const ProtocolVersion = "2024-11-05"

// Server handles MCP protocol communication.
//
// A Server owns an image cache shared by every image tool, so a page decoded
// for braille_translate is reused by braille_annotate and braille_crop_cell.
// Requests are handled one at a time in arrival order.
type Server struct {
	pipeline *pipeline.Pipeline
	cache    *imaging.ImageCache
	history  *history.Store
	log      *slog.Logger
	version  string
}

// Options configures optional server collaborators. The zero value gives a
// server without history that logs through slog.Default.
type Options struct {
	// Version is reported in serverInfo.
	Version string
	// History records braille_translate results when non-nil.
	History *history.Store
	Logger  *slog.Logger
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// New creates a new MCP server around p.
//
// Parameters:
//   - p: Translation pipeline used by braille_translate and the batch tool
//   - opts: Optional collaborators; an empty Version is reported as "dev"
//
// Returns:
//   - *Server: Ready to Serve; it holds an empty image cache
//
// # Example Usage
//
//	resolver, err := braille.DefaultResolver()
//	if err != nil {
//	    return err
//	}
//	srv := server.New(pipeline.New(resolver, pipeline.DefaultOptions()), server.Options{
//	    Version: version,
//	    Logger:  logger,
//	})
//	return srv.Run(ctx)
func New(p *pipeline.Pipeline, opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}
	return &Server{
		pipeline: p,
		cache:    imaging.NewImageCache(),
		history:  opts.History,
		log:      log.With("component", "server"),
		version:  version,
	}
}

// Run serves MCP on stdin/stdout until stdin closes or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve reads one JSON-RPC request per line from r and writes responses to w.
// Cancellation is checked between requests.
//
// Blank lines and lines that are not valid JSON are logged and skipped, and
// notifications get no response. Lines may be up to 1MB long.
//
// # Errors
//
//   - ctx.Err() once ctx is cancelled; the pending request is not answered
//   - "scanner error" when r fails or a line exceeds the buffer
//
// Tool failures never end the loop; they are reported to the client as
// JSON-RPC errors. A nil return means r reached EOF.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	// Detection lists for a full page easily exceed the default token size
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	encoder := json.NewEncoder(w)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.log.Warn("failed to parse request", "error", err)
			continue
		}

		resp := s.handleRequest(ctx, &req)
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				s.log.Error("failed to encode response", "error", err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(ctx context.Context, req *MCPRequest) *MCPResponse {
	s.log.Debug("request", "method", req.Method, "id", req.ID)

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": ProtocolVersion,
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "braille-tools-mcp",
				"version": s.version,
			},
		},
	}
}
