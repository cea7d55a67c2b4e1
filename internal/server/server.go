package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mobilecoinofficial/qrhunt/internal/hunt"
)

// Hunt is the game surface exposed as tools. *hunt.Service implements it.
type Hunt interface {
	Evaluate(ctx context.Context, sub hunt.Submission) (hunt.Outcome, error)
	Points(ctx context.Context, user string) (int64, error)
	Challenge(ctx context.Context, user string) (string, error)
	Unlock(ctx context.Context, user, answer string) (bool, error)
}

// Options configures a Server.
type Options struct {
	In      io.Reader
	Out     io.Writer
	Logger  zerolog.Logger
	Version string
}

// Server handles MCP protocol communication. Responses and notifications
// share one encoder, so writes are serialised.
type Server struct {
	in      io.Reader
	log     zerolog.Logger
	version string

	mu  sync.Mutex
	enc *json.Encoder

	wg sync.WaitGroup
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

// MCPNotification represents an outgoing notification (no ID)
type MCPNotification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// New creates a new MCP server instance
func New(opts Options) *Server {
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	return &Server{
		in:      opts.In,
		enc:     json.NewEncoder(opts.Out),
		log:     opts.Logger.With().Str("component", "server").Logger(),
		version: opts.Version,
	}
}

// Run reads requests until the input ends or ctx is cancelled. Tool calls
// run concurrently so that a slow evaluation never blocks points queries;
// Run waits for in-flight calls before returning.
func (s *Server) Run(ctx context.Context, h Hunt) error {
	lines := make(chan []byte)
	scanErr := make(chan error, 1)

	// The reader cannot be interrupted: after ctx is cancelled it stays blocked
	// in Scan until the input yields a line or closes. On stdin that means it
	// lives until the process exits.
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.in)
		// Increase buffer size for large requests
		buf := make([]byte, 0, 64*1024)
		scanner.Buffer(buf, 1024*1024)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	defer s.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				if err := <-scanErr; err != nil {
					return fmt.Errorf("scanner error: %w", err)
				}
				return nil
			}
			s.dispatch(ctx, h, line)
		}
	}
}

func (s *Server) dispatch(ctx context.Context, h Hunt, line []byte) {
	if len(line) == 0 {
		return
	}

	var req MCPRequest
	if err := json.Unmarshal(line, &req); err != nil {
		s.log.Warn().Err(err).Msg("failed to parse request")
		s.write(s.errorResponse(nil, -32700, "Parse error", err.Error()))
		return
	}

	if req.Method != "tools/call" {
		if resp := s.handleRequest(ctx, h, &req); resp != nil {
			s.write(resp)
		}
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.write(s.handleRequest(ctx, h, &req))
	}()
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(ctx context.Context, h Hunt, req *MCPRequest) *MCPResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, h, req)
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
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools":   map[string]interface{}{},
				"logging": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "qrhunt",
				"version": s.version,
			},
		},
	}
}

// Send implements hunt.Messenger by emitting a notifications/message
// notification carrying the user message.
func (s *Server) Send(_ context.Context, userID, text string, attachments ...string) error {
	return s.write(&MCPNotification{
		JSONRPC: "2.0",
		Method:  "notifications/message",
		Params: map[string]interface{}{
			"level":  "info",
			"logger": "qrhunt",
			"data": userMessage{
				UserID:      userID,
				Text:        text,
				Attachments: attachments,
			},
		},
	})
}

type userMessage struct {
	UserID      string   `json:"user_id"`
	Text        string   `json:"text"`
	Attachments []string `json:"attachments,omitempty"`
}

func (s *Server) write(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(v); err != nil {
		s.log.Error().Err(err).Msg("failed to encode message")
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
