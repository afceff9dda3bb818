package mangle

import (
	"context"
	"testing"
	"time"

	"github.com/agentic-web/pagemap-mcp/internal/config"
)

// TestSchemaDerivedRules exercises the derived predicates declared in
// schemas/pagemap.mg against the facts the browser bridge and action tools
// actually emit, rather than raw base facts a caller would have to re-derive
// by hand.
func TestSchemaDerivedRules(t *testing.T) {
	cfg := config.MangleConfig{
		Enable:          true,
		SchemaPath:      "../../schemas/pagemap.mg",
		FactBufferLimit: 1000,
	}

	engine, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	ctx := context.Background()

	t.Run("failed_response and request_error", func(t *testing.T) {
		facts := []Fact{
			{
				Predicate: "net_request",
				Args:      []interface{}{"req-1", "POST", "https://api.example.com/checkout", "fetch", int64(1000)},
				Timestamp: time.Now(),
			},
			{
				Predicate: "net_response",
				Args:      []interface{}{"req-1", int64(503), int64(20), int64(300)},
				Timestamp: time.Now(),
			},
			{
				Predicate: "net_request",
				Args:      []interface{}{"req-2", "GET", "https://api.example.com/cart", "xhr", int64(1100)},
				Timestamp: time.Now(),
			},
			{
				Predicate: "net_response",
				Args:      []interface{}{"req-2", int64(200), int64(10), int64(50)},
				Timestamp: time.Now(),
			},
		}
		if err := engine.AddFacts(ctx, facts); err != nil {
			t.Fatal(err)
		}

		failed, err := engine.Evaluate(ctx, "failed_response")
		if err != nil {
			t.Fatal(err)
		}
		if len(failed) != 1 {
			t.Errorf("expected 1 failed_response, got %d", len(failed))
		}

		reqErrors, err := engine.Evaluate(ctx, "request_error")
		if err != nil {
			t.Fatal(err)
		}
		if len(reqErrors) != 1 {
			t.Errorf("expected 1 request_error, got %d", len(reqErrors))
		}
	})

	t.Run("console_error", func(t *testing.T) {
		facts := []Fact{
			{Predicate: "console_event", Args: []interface{}{"error", "TypeError: x is not a function", int64(2000)}, Timestamp: time.Now()},
			{Predicate: "console_event", Args: []interface{}{"warning", "deprecated API", int64(2001)}, Timestamp: time.Now()},
		}
		if err := engine.AddFacts(ctx, facts); err != nil {
			t.Fatal(err)
		}

		errors, err := engine.Evaluate(ctx, "console_error")
		if err != nil {
			t.Fatal(err)
		}
		if len(errors) != 1 {
			t.Errorf("expected 1 console_error, got %d", len(errors))
		}
	})

	t.Run("session_had_error", func(t *testing.T) {
		facts := []Fact{
			{Predicate: "navigation_event", Args: []interface{}{"session-9", "https://example.com/cart", int64(3000)}, Timestamp: time.Now()},
			{Predicate: "console_event", Args: []interface{}{"error", "checkout failed", int64(3100)}, Timestamp: time.Now()},
		}
		if err := engine.AddFacts(ctx, facts); err != nil {
			t.Fatal(err)
		}

		sessions, err := engine.Evaluate(ctx, "session_had_error")
		if err != nil {
			t.Fatal(err)
		}
		if len(sessions) == 0 {
			t.Error("expected session_had_error to be derived for session-9")
		}
	})
}
