package mcp

import (
	"context"
	"errors"

	"github.com/agentic-web/pagemap-mcp/internal/mangle"
)

var errNoFactEngine = errors.New("mangle engine is disabled")

// ReadFactsTool returns all facts for a given predicate from the fact buffer.
type ReadFactsTool struct {
	engine *mangle.Engine
}

func (t *ReadFactsTool) Name() string        { return "read_facts" }
func (t *ReadFactsTool) Description() string { return "Read buffered facts for a predicate, e.g. \"console_event\" or \"net_request\"." }
func (t *ReadFactsTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{"predicate": map[string]interface{}{"type": "string"}},
		"required":   []string{"predicate"},
	}
}

func (t *ReadFactsTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	if t.engine == nil {
		return errorPayload(errNoFactEngine), nil
	}
	predicate := getStringArg(args, "predicate")
	facts := t.engine.FactsByPredicate(predicate)
	return map[string]interface{}{"success": true, "facts": facts}, nil
}

// QueryFactsTool runs a Mangle query string against the deductive engine.
type QueryFactsTool struct {
	engine *mangle.Engine
}

func (t *QueryFactsTool) Name() string        { return "query_facts" }
func (t *QueryFactsTool) Description() string { return "Run a Mangle query against the fact store." }
func (t *QueryFactsTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{"query": map[string]interface{}{"type": "string"}},
		"required":   []string{"query"},
	}
}

func (t *QueryFactsTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	if t.engine == nil {
		return errorPayload(errNoFactEngine), nil
	}
	query := getStringArg(args, "query")
	results, err := t.engine.Query(ctx, query)
	if err != nil {
		return errorPayload(err), nil
	}
	return map[string]interface{}{"success": true, "results": results}, nil
}
