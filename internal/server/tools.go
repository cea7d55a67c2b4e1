package server

// Tool names.
const (
	ToolSubmit    = "hunt_submit"
	ToolPoints    = "hunt_points"
	ToolChallenge = "hunt_unlock_challenge"
	ToolUnlock    = "hunt_unlock"
)

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var userIDProperty = map[string]interface{}{
	"type":        "string",
	"description": "Stable identifier of the submitting user",
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name: ToolSubmit,
			Description: "Submit an image for the scavenger hunt. The image is checked for QR codes and " +
				"square-ish objects, compared against earlier submissions and scored. Messages to the user " +
				"are streamed as notifications/message while the evaluation runs.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"user_id": userIDProperty,
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the downloaded attachment",
					},
					"size": map[string]interface{}{
						"type":        "integer",
						"description": "Optional attachment size in bytes as announced by the provider. Checked when positive.",
						"default":     0,
					},
				},
				"required": []string{"user_id", "path"},
			},
		},
		{
			Name:        ToolPoints,
			Description: "Report the user's current point total.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"user_id": userIDProperty,
				},
				"required": []string{"user_id"},
			},
		},
		{
			Name:        ToolChallenge,
			Description: "Issue a human-verification question. Answering it with hunt_unlock resets the claim counter.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"user_id": userIDProperty,
				},
				"required": []string{"user_id"},
			},
		},
		{
			Name:        ToolUnlock,
			Description: "Answer the pending human-verification question. Each question allows one attempt.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"user_id": userIDProperty,
					"answer": map[string]interface{}{
						"type":        "string",
						"description": "Answer to the question from hunt_unlock_challenge",
					},
				},
				"required": []string{"user_id", "answer"},
			},
		},
	}
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
