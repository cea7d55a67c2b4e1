// Package server implements the MCP (Model Context Protocol) front end of the
// scavenger hunt.
//
// A bot bridge owns the chat connection. It downloads each attachment and
// calls the tools below; everything the game wants to tell a user comes back
// as notifications, which the bridge relays to the chat.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses and notifications on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - hunt_submit: Evaluate an image and award points
//   - hunt_points: Report a user's point total
//   - hunt_unlock_challenge: Issue a human-verification question
//   - hunt_unlock: Answer it and reset the claim counter
//
// # User Messages
//
// Server implements hunt.Messenger. Each message becomes a
// notifications/message notification whose data is
//
//	{"user_id": "...", "text": "...", "attachments": ["/tmp/rendered..."]}
//
// Messages of a submission are written before the response to its
// hunt_submit call.
//
// # Concurrency
//
// Each tools/call runs on its own goroutine; evaluations still execute one at
// a time behind the worker runner, so a points query is answered while a
// submission waits. Writes to stdout are serialised.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
package server
