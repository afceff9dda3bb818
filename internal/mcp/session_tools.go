package mcp

import (
	"context"

	"github.com/agentic-web/pagemap-mcp/internal/browser"
)

// ListSessionsTool lists all tracked browser sessions.
type ListSessionsTool struct {
	sessions *browser.SessionManager
}

func (t *ListSessionsTool) Name() string        { return "list_sessions" }
func (t *ListSessionsTool) Description() string { return "List all tracked browser sessions." }
func (t *ListSessionsTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
}

func (t *ListSessionsTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	return map[string]interface{}{"success": true, "sessions": t.sessions.List()}, nil
}

// CreateSessionTool opens a new browser page and tracks it as a session.
type CreateSessionTool struct {
	sessions *browser.SessionManager
}

func (t *CreateSessionTool) Name() string { return "create_session" }
func (t *CreateSessionTool) Description() string {
	return "Create a new browser session, optionally navigating to a URL."
}
func (t *CreateSessionTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"url": map[string]interface{}{"type": "string", "description": "Initial URL to load (defaults to about:blank)."},
		},
	}
}

func (t *CreateSessionTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	url := getStringArg(args, "url")
	if url == "" {
		url = "about:blank"
	}
	session, err := t.sessions.CreateSession(ctx, url)
	if err != nil {
		return errorPayload(err), nil
	}
	return map[string]interface{}{"success": true, "session": session}, nil
}

// AttachSessionTool binds to an existing Chrome target by ID.
type AttachSessionTool struct {
	sessions *browser.SessionManager
}

func (t *AttachSessionTool) Name() string { return "attach_session" }
func (t *AttachSessionTool) Description() string {
	return "Attach to an existing Chrome target by target ID."
}
func (t *AttachSessionTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{"target_id": map[string]interface{}{"type": "string"}},
		"required":   []string{"target_id"},
	}
}

func (t *AttachSessionTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	targetID := getStringArg(args, "target_id")
	session, err := t.sessions.Attach(ctx, targetID)
	if err != nil {
		return errorPayload(err), nil
	}
	return map[string]interface{}{"success": true, "session": session}, nil
}

// ForkSessionTool clones cookies and storage from a session into a fresh incognito context.
type ForkSessionTool struct {
	sessions *browser.SessionManager
}

func (t *ForkSessionTool) Name() string { return "fork_session" }
func (t *ForkSessionTool) Description() string {
	return "Clone an existing session's cookies and storage into a new session, e.g. to test a second authenticated identity."
}
func (t *ForkSessionTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"session_id": map[string]interface{}{"type": "string"},
			"url":        map[string]interface{}{"type": "string", "description": "URL for the forked session; defaults to the source session's current URL."},
		},
		"required": []string{"session_id"},
	}
}

func (t *ForkSessionTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	sessionID := getStringArg(args, "session_id")
	url := getStringArg(args, "url")
	session, err := t.sessions.ForkSession(ctx, sessionID, url)
	if err != nil {
		return errorPayload(err), nil
	}
	return map[string]interface{}{"success": true, "session": session}, nil
}

// CloseSessionTool closes a session's page and drops it from tracking.
type CloseSessionTool struct {
	sessions *browser.SessionManager
}

func (t *CloseSessionTool) Name() string        { return "close_session" }
func (t *CloseSessionTool) Description() string { return "Close a browser session's page." }
func (t *CloseSessionTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{"session_id": map[string]interface{}{"type": "string"}},
		"required":   []string{"session_id"},
	}
}

func (t *CloseSessionTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	sessionID := getStringArg(args, "session_id")
	if err := t.sessions.CloseSession(sessionID); err != nil {
		return errorPayload(err), nil
	}
	return map[string]interface{}{"success": true}, nil
}
