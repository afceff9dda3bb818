package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/agentic-web/pagemap-mcp/internal/browser"
	"github.com/agentic-web/pagemap-mcp/internal/config"
	"github.com/agentic-web/pagemap-mcp/internal/mangle"
	"github.com/agentic-web/pagemap-mcp/internal/pagemap"
)

func errSessionNotFound(sessionID string) error {
	return fmt.Errorf("session not found: %s", sessionID)
}

func logFact(ctx context.Context, engine *mangle.Engine, predicate string, fargs ...interface{}) {
	if engine == nil {
		return
	}
	_ = engine.AddFacts(ctx, []mangle.Fact{{Predicate: predicate, Args: fargs, Timestamp: time.Now()}})
}

// NavigateURLTool navigates a session's page to a URL and attaches a fresh page map.
type NavigateURLTool struct {
	sessions *browser.SessionManager
	engine   *mangle.Engine
	cfg      config.PageMapConfig
}

func (t *NavigateURLTool) Name() string        { return "navigate_url" }
func (t *NavigateURLTool) Description() string { return "Navigate a session's page to a URL." }
func (t *NavigateURLTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"session_id": map[string]interface{}{"type": "string"},
			"url":        map[string]interface{}{"type": "string"},
		},
		"required": []string{"session_id", "url"},
	}
}

func (t *NavigateURLTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	sessionID := getStringArg(args, "session_id")
	url := getStringArg(args, "url")

	page, ok := t.sessions.Page(sessionID)
	if !ok {
		return errorPayload(errSessionNotFound(sessionID)), nil
	}
	if err := page.Context(ctx).Navigate(url); err != nil {
		return errorPayload(err), nil
	}
	_ = page.Context(ctx).WaitLoad()

	t.sessions.UpdateMetadata(sessionID, func(s browser.Session) browser.Session {
		s.URL = url
		s.LastActive = time.Now()
		return s
	})
	logFact(ctx, t.engine, "navigation_event", sessionID, url, time.Now().UnixMilli())

	result := map[string]interface{}{"success": true, "url": url}
	return attachPageMap(ctx, t.sessions, t.cfg, sessionID, result), nil
}

// InteractTool clicks or types into an element addressed by ref or CSS selector.
type InteractTool struct {
	sessions *browser.SessionManager
	engine   *mangle.Engine
	cfg      config.PageMapConfig
}

func (t *InteractTool) Name() string { return "interact" }
func (t *InteractTool) Description() string {
	return "Click, type, or scroll to an element addressed by ref (from the last page map) or a CSS selector."
}
func (t *InteractTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"session_id": map[string]interface{}{"type": "string"},
			"ref":        map[string]interface{}{"type": "string", "description": "Element ref from the last page map, e.g. \"5\"."},
			"selector":   map[string]interface{}{"type": "string", "description": "CSS selector, used only when ref is omitted."},
			"action":     map[string]interface{}{"type": "string", "enum": []string{"click", "type", "scroll"}},
			"text":       map[string]interface{}{"type": "string", "description": "Text to type; required when action is \"type\"."},
			"clear":      map[string]interface{}{"type": "boolean", "description": "Clear the field before typing (default true)."},
		},
		"required": []string{"session_id", "action"},
	}
}

func (t *InteractTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	sessionID := getStringArg(args, "session_id")
	ref := getStringArg(args, "ref")
	selector := getStringArg(args, "selector")
	action := getStringArg(args, "action")

	drv, ok := t.sessions.Driver(sessionID)
	if !ok {
		return errorPayload(errSessionNotFound(sessionID)), nil
	}

	if ref != "" && !t.sessions.KnownRef(sessionID, ref) {
		return errorPayload(fmt.Errorf("ref %q is not part of the last generated page map for this session; request a fresh map before reusing it", ref)), nil
	}

	target, err := pagemap.Resolve(selector, ref)
	if err != nil {
		return errorPayload(err), nil
	}

	switch action {
	case "click":
		if err := drv.Click(ctx, target); err != nil {
			return errorPayload(err), nil
		}
		logFact(ctx, t.engine, "user_click", sessionID, target, time.Now().UnixMilli())
	case "type":
		text := getStringArg(args, "text")
		clear := getBoolArg(args, "clear", true)
		if err := drv.Type(ctx, target, text, clear); err != nil {
			return errorPayload(err), nil
		}
		logFact(ctx, t.engine, "user_type", sessionID, target, time.Now().UnixMilli())
	case "scroll":
		if err := drv.ScrollToElement(ctx, target); err != nil {
			return errorPayload(err), nil
		}
	default:
		return errorPayload(fmt.Errorf("unsupported action: %q", action)), nil
	}

	result := map[string]interface{}{"success": true, "selector": target}
	return attachPageMap(ctx, t.sessions, t.cfg, sessionID, result), nil
}

// PressKeyTool sends a key sequence to an element or the page.
type PressKeyTool struct {
	sessions *browser.SessionManager
	engine   *mangle.Engine
	cfg      config.PageMapConfig
}

func (t *PressKeyTool) Name() string        { return "press_key" }
func (t *PressKeyTool) Description() string { return "Press each character of keys in order, optionally scoped to an element." }
func (t *PressKeyTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"session_id": map[string]interface{}{"type": "string"},
			"ref":        map[string]interface{}{"type": "string"},
			"selector":   map[string]interface{}{"type": "string"},
			"keys":       map[string]interface{}{"type": "string", "description": "Characters pressed one at a time; key names such as \"Enter\" and combinations such as \"Control+A\" are not parsed."},
		},
		"required": []string{"session_id", "keys"},
	}
}

func (t *PressKeyTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	sessionID := getStringArg(args, "session_id")
	ref := getStringArg(args, "ref")
	selector := getStringArg(args, "selector")
	keys := getStringArg(args, "keys")

	drv, ok := t.sessions.Driver(sessionID)
	if !ok {
		return errorPayload(errSessionNotFound(sessionID)), nil
	}

	target := ""
	if ref != "" || selector != "" {
		resolved, err := pagemap.Resolve(selector, ref)
		if err != nil {
			return errorPayload(err), nil
		}
		target = resolved
	}

	if err := drv.PressKeys(ctx, target, keys); err != nil {
		return errorPayload(err), nil
	}
	logFact(ctx, t.engine, "user_key_press", sessionID, keys, time.Now().UnixMilli())

	result := map[string]interface{}{"success": true}
	return attachPageMap(ctx, t.sessions, t.cfg, sessionID, result), nil
}

// WaitForElementTool blocks until a selector appears, or times out.
type WaitForElementTool struct {
	sessions *browser.SessionManager
}

func (t *WaitForElementTool) Name() string        { return "wait_for_element" }
func (t *WaitForElementTool) Description() string { return "Wait for an element to appear in the DOM." }
func (t *WaitForElementTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"session_id":   map[string]interface{}{"type": "string"},
			"ref":          map[string]interface{}{"type": "string"},
			"selector":     map[string]interface{}{"type": "string"},
			"timeout_secs": map[string]interface{}{"type": "integer"},
		},
		"required": []string{"session_id"},
	}
}

func (t *WaitForElementTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	sessionID := getStringArg(args, "session_id")
	drv, ok := t.sessions.Driver(sessionID)
	if !ok {
		return errorPayload(errSessionNotFound(sessionID)), nil
	}

	target, err := pagemap.Resolve(getStringArg(args, "selector"), getStringArg(args, "ref"))
	if err != nil {
		return errorPayload(err), nil
	}

	timeout := time.Duration(getIntArg(args, "timeout_secs", 10)) * time.Second
	if err := drv.WaitForElement(ctx, target, timeout); err != nil {
		return errorPayload(err), nil
	}
	return map[string]interface{}{"success": true}, nil
}

// WaitForChangeTool blocks until an element's content or presence changes.
type WaitForChangeTool struct {
	sessions *browser.SessionManager
	cfg      config.BrowserConfig
}

func (t *WaitForChangeTool) Name() string { return "wait_for_change" }
func (t *WaitForChangeTool) Description() string {
	return "Wait until an element changes (content mutates or it disappears)."
}
func (t *WaitForChangeTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"session_id":   map[string]interface{}{"type": "string"},
			"ref":          map[string]interface{}{"type": "string"},
			"selector":     map[string]interface{}{"type": "string"},
			"timeout_secs": map[string]interface{}{"type": "integer"},
		},
		"required": []string{"session_id"},
	}
}

func (t *WaitForChangeTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	sessionID := getStringArg(args, "session_id")
	drv, ok := t.sessions.Driver(sessionID)
	if !ok {
		return errorPayload(errSessionNotFound(sessionID)), nil
	}

	target, err := pagemap.Resolve(getStringArg(args, "selector"), getStringArg(args, "ref"))
	if err != nil {
		return errorPayload(err), nil
	}

	defaultSecs := int(t.cfg.WaitForChangeTimeout().Seconds())
	timeout := time.Duration(getIntArg(args, "timeout_secs", defaultSecs)) * time.Second
	changed, err := drv.WaitForChange(ctx, target, timeout)
	if err != nil {
		return errorPayload(err), nil
	}
	return map[string]interface{}{"success": true, "changed": changed}, nil
}

// GetPageStateTool returns the current URL, title, and a fresh page map without taking any action.
type GetPageStateTool struct {
	sessions *browser.SessionManager
	cfg      config.PageMapConfig
}

func (t *GetPageStateTool) Name() string        { return "get_page_state" }
func (t *GetPageStateTool) Description() string { return "Get the current URL, title, and a fresh page map." }
func (t *GetPageStateTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{"session_id": map[string]interface{}{"type": "string"}},
		"required":   []string{"session_id"},
	}
}

func (t *GetPageStateTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	sessionID := getStringArg(args, "session_id")
	drv, ok := t.sessions.Driver(sessionID)
	if !ok {
		return errorPayload(errSessionNotFound(sessionID)), nil
	}

	url, _ := drv.GetURL(ctx)
	title, _ := drv.GetTitle(ctx)

	result := map[string]interface{}{"success": true, "url": url, "title": title}
	return attachPageMap(ctx, t.sessions, t.cfg, sessionID, result), nil
}

// EvaluateJSTool runs an arbitrary script in the page and returns the decoded result.
type EvaluateJSTool struct {
	sessions *browser.SessionManager
	engine   *mangle.Engine
}

func (t *EvaluateJSTool) Name() string        { return "evaluate_js" }
func (t *EvaluateJSTool) Description() string { return "Evaluate a JavaScript expression in the page." }
func (t *EvaluateJSTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"session_id": map[string]interface{}{"type": "string"},
			"script":     map[string]interface{}{"type": "string"},
		},
		"required": []string{"session_id", "script"},
	}
}

func (t *EvaluateJSTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	sessionID := getStringArg(args, "session_id")
	script := getStringArg(args, "script")

	drv, ok := t.sessions.Driver(sessionID)
	if !ok {
		return errorPayload(errSessionNotFound(sessionID)), nil
	}

	var out interface{}
	if err := drv.EvalInPage(ctx, script, &out); err != nil {
		return map[string]interface{}{
			"success":    false,
			"error":      err.Error(),
			"error_type": classifyJSError(err),
		}, nil
	}
	return map[string]interface{}{"success": true, "result": out}, nil
}

// ScreenshotTool captures a PNG screenshot of the session's page.
type ScreenshotTool struct {
	sessions *browser.SessionManager
}

func (t *ScreenshotTool) Name() string        { return "screenshot" }
func (t *ScreenshotTool) Description() string { return "Capture a PNG screenshot of the current page." }
func (t *ScreenshotTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{"session_id": map[string]interface{}{"type": "string"}},
		"required":   []string{"session_id"},
	}
}

func (t *ScreenshotTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	sessionID := getStringArg(args, "session_id")
	drv, ok := t.sessions.Driver(sessionID)
	if !ok {
		return errorPayload(errSessionNotFound(sessionID)), nil
	}

	png, err := drv.ScreenshotPNG(ctx)
	if err != nil {
		return errorPayload(err), nil
	}
	return map[string]interface{}{"success": true, "png_bytes": len(png), "image": png}, nil
}
