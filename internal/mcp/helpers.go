package mcp

import (
	"fmt"
	"strings"
)

func getStringArg(args map[string]interface{}, key string) string {
	val, ok := args[key]
	if !ok {
		return ""
	}
	switch v := val.(type) {
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

func getIntArg(args map[string]interface{}, key string, fallback int) int {
	val, ok := args[key]
	if !ok {
		return fallback
	}
	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}

func getBoolArg(args map[string]interface{}, key string, fallback bool) bool {
	val, ok := args[key]
	if !ok {
		return fallback
	}
	if b, ok := val.(bool); ok {
		return b
	}
	return fallback
}

// classifyJSError categorizes JavaScript execution errors for better debugging.
func classifyJSError(err error) string {
	if err == nil {
		return ""
	}
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "context deadline exceeded"), strings.Contains(errStr, "imeout"):
		return "timeout"
	case strings.Contains(errStr, "SyntaxError"), strings.Contains(errStr, "Unexpected token"), strings.Contains(errStr, "Unexpected identifier"):
		return "syntax"
	case strings.Contains(errStr, "ReferenceError"), strings.Contains(errStr, "TypeError"),
		strings.Contains(errStr, "is not defined"), strings.Contains(errStr, "is not a function"),
		strings.Contains(errStr, "Cannot read propert"):
		return "runtime"
	case strings.Contains(errStr, "Promise"), strings.Contains(errStr, "async"), strings.Contains(errStr, "await"):
		return "async"
	case strings.Contains(errStr, "SecurityError"), strings.Contains(errStr, "cross-origin"), strings.Contains(errStr, "blocked"):
		return "security"
	default:
		return "unknown"
	}
}

// errorPayload builds the structured failure shape every tool returns on
// error instead of a raw Go error, so the MCP client sees a normal result.
func errorPayload(err error) map[string]interface{} {
	return map[string]interface{}{
		"success": false,
		"error":   err.Error(),
	}
}
