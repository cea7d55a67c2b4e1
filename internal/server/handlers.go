package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mobilecoinofficial/qrhunt/internal/hunt"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "hunt_submit").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

var errMissingUser = errors.New("user_id is required")

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, h Hunt, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, h, params.Name, params.Arguments)
	if err != nil {
		s.log.Warn().Err(err).Str("tool", params.Name).Msg("tool failed")
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
func (s *Server) executeTool(ctx context.Context, h Hunt, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case ToolSubmit:
		return s.handleSubmit(ctx, h, args)
	case ToolPoints:
		return s.handlePoints(ctx, h, args)
	case ToolChallenge:
		return s.handleChallenge(ctx, h, args)
	case ToolUnlock:
		return s.handleUnlock(ctx, h, args)
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
// On marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

type userArgs struct {
	UserID string `json:"user_id"`
}

func decodeArgs(args json.RawMessage, v interface{ user() string }) error {
	if err := json.Unmarshal(args, v); err != nil {
		return err
	}
	if v.user() == "" {
		return errMissingUser
	}
	return nil
}

func (a *userArgs) user() string { return a.UserID }

type submitArgs struct {
	UserID string `json:"user_id"`
	Path   string `json:"path"`
	Size   int64  `json:"size"`
}

func (a *submitArgs) user() string { return a.UserID }

// SubmitResult is the hunt_submit tool result.
type SubmitResult struct {
	SubmissionID string       `json:"submission_id"`
	Outcome      hunt.Outcome `json:"outcome"`
}

func (s *Server) handleSubmit(ctx context.Context, h Hunt, args json.RawMessage) (interface{}, error) {
	var a submitArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	sub, err := hunt.NewSubmission(a.UserID, a.Path, a.Size)
	if err != nil {
		return nil, err
	}
	out, err := h.Evaluate(ctx, sub)
	if err != nil {
		return nil, err
	}
	return SubmitResult{SubmissionID: sub.ID, Outcome: out}, nil
}

// PointsResult is the hunt_points tool result.
type PointsResult struct {
	UserID string `json:"user_id"`
	Points int64  `json:"points"`
}

func (s *Server) handlePoints(ctx context.Context, h Hunt, args json.RawMessage) (interface{}, error) {
	var a userArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	points, err := h.Points(ctx, a.UserID)
	if err != nil {
		return nil, err
	}
	return PointsResult{UserID: a.UserID, Points: points}, nil
}

// ChallengeResult is the hunt_unlock_challenge tool result.
type ChallengeResult struct {
	Question string `json:"question"`
}

func (s *Server) handleChallenge(ctx context.Context, h Hunt, args json.RawMessage) (interface{}, error) {
	var a userArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	q, err := h.Challenge(ctx, a.UserID)
	if err != nil {
		return nil, err
	}
	return ChallengeResult{Question: q}, nil
}

type unlockArgs struct {
	UserID string `json:"user_id"`
	Answer string `json:"answer"`
}

func (a *unlockArgs) user() string { return a.UserID }

// UnlockResult is the hunt_unlock tool result.
type UnlockResult struct {
	Unlocked bool `json:"unlocked"`
}

func (s *Server) handleUnlock(ctx context.Context, h Hunt, args json.RawMessage) (interface{}, error) {
	var a unlockArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	ok, err := h.Unlock(ctx, a.UserID, a.Answer)
	if err != nil {
		return nil, err
	}
	return UnlockResult{Unlocked: ok}, nil
}
