package main

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/agentic-web/pagemap-mcp/internal/browser"
	"github.com/agentic-web/pagemap-mcp/internal/config"
	"github.com/agentic-web/pagemap-mcp/internal/mangle"
	"github.com/agentic-web/pagemap-mcp/internal/mcp"
)

// TestIntegrationServerLifecycle covers the main.go entry point's wiring,
// which is otherwise untested since main() itself isn't called directly.
func TestIntegrationServerLifecycle(t *testing.T) {
	if os.Getenv("SKIP_LIVE_TESTS") != "" {
		t.Skip("Skipping integration tests (SKIP_LIVE_TESTS set)")
	}

	t.Run("Load configuration", func(t *testing.T) {
		cfg := config.Config{
			Server: config.ServerConfig{Name: "integration-test-server", Version: "1.0.0-test"},
			Browser: config.BrowserConfig{
				Headless: mainBoolPtr(true),
			},
			Mangle: config.MangleConfig{Enable: true, SchemaPath: "../../schemas/pagemap.mg", FactBufferLimit: 1000},
			Docker: config.DockerConfig{Enabled: false},
		}
		if cfg.Server.Name != "integration-test-server" {
			t.Error("config not properly initialized")
		}
	})

	t.Run("Initialize Mangle engine", func(t *testing.T) {
		cfg := config.MangleConfig{Enable: true, SchemaPath: "../../schemas/pagemap.mg", FactBufferLimit: 1000}
		engine, err := mangle.NewEngine(cfg)
		if err != nil {
			t.Fatalf("Failed to create engine: %v", err)
		}
		if engine == nil {
			t.Fatal("expected non-nil engine")
		}
	})

	t.Run("Initialize session manager", func(t *testing.T) {
		cfg := config.BrowserConfig{Headless: mainBoolPtr(true)}
		sessions := browser.NewSessionManager(cfg, nil)
		if sessions == nil {
			t.Fatal("expected non-nil session manager")
		}
		if sessions.IsConnected() {
			t.Error("session manager should not be connected before Start()")
		}
	})

	t.Run("Initialize MCP server", func(t *testing.T) {
		cfg := config.Config{
			Server:  config.ServerConfig{Name: "test-server", Version: "1.0.0"},
			Browser: config.BrowserConfig{Headless: mainBoolPtr(true)},
			Mangle:  config.MangleConfig{Enable: true, SchemaPath: "../../schemas/pagemap.mg", FactBufferLimit: 1000},
			Docker:  config.DockerConfig{Enabled: false},
		}

		engine, err := mangle.NewEngine(cfg.Mangle)
		if err != nil {
			t.Fatalf("Failed to create engine: %v", err)
		}
		sessions := browser.NewSessionManager(cfg.Browser, engine)
		server, err := mcp.NewServer(cfg, sessions, engine)
		if err != nil {
			t.Fatalf("NewServer failed: %v", err)
		}
		if server == nil {
			t.Fatal("expected non-nil server")
		}
	})

	t.Run("Full server lifecycle with browser", func(t *testing.T) {
		cfg := config.Config{
			Server:  config.ServerConfig{Name: "lifecycle-test-server", Version: "1.0.0"},
			Browser: config.BrowserConfig{Headless: mainBoolPtr(true)},
			Mangle:  config.MangleConfig{Enable: true, SchemaPath: "../../schemas/pagemap.mg", FactBufferLimit: 1000},
			Docker:  config.DockerConfig{Enabled: false},
		}

		engine, err := mangle.NewEngine(cfg.Mangle)
		if err != nil {
			t.Fatalf("Failed to create engine: %v", err)
		}
		sessions := browser.NewSessionManager(cfg.Browser, engine)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := sessions.Start(ctx); err != nil {
			t.Skipf("Browser start failed (Chrome not available?): %v", err)
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = sessions.Shutdown(shutdownCtx)
		}()

		server, err := mcp.NewServer(cfg, sessions, engine)
		if err != nil {
			t.Fatalf("NewServer failed: %v", err)
		}

		result, err := server.ExecuteTool("list_sessions", map[string]interface{}{})
		if err != nil {
			t.Fatalf("ExecuteTool failed: %v", err)
		}
		resultMap := result.(map[string]interface{})
		if resultMap["sessions"] == nil {
			t.Error("expected sessions in result")
		}

		createResult, err := server.ExecuteTool("create_session", map[string]interface{}{"url": "about:blank"})
		if err != nil {
			t.Fatalf("create_session failed: %v", err)
		}
		createMap := createResult.(map[string]interface{})
		session, ok := createMap["session"].(*browser.Session)
		if !ok || session.ID == "" {
			t.Error("expected session to be created")
		}
	})

	t.Run("Server with Docker enabled", func(t *testing.T) {
		cfg := config.Config{
			Server:  config.ServerConfig{Name: "docker-test-server", Version: "1.0.0"},
			Browser: config.BrowserConfig{Headless: mainBoolPtr(true)},
			Mangle:  config.MangleConfig{Enable: true, SchemaPath: "../../schemas/pagemap.mg", FactBufferLimit: 1000},
			Docker:  config.DockerConfig{Enabled: true, Containers: []string{"test-container"}, LogWindow: "5m"},
		}

		engine, err := mangle.NewEngine(cfg.Mangle)
		if err != nil {
			t.Fatalf("Failed to create engine: %v", err)
		}
		sessions := browser.NewSessionManager(cfg.Browser, engine)
		server, err := mcp.NewServer(cfg, sessions, engine)
		if err != nil {
			t.Fatalf("NewServer with docker failed: %v", err)
		}
		if server == nil {
			t.Fatal("expected non-nil server")
		}
	})
}

// TestIntegrationConfigurationVariations exercises the PageMap-specific config surface.
func TestIntegrationConfigurationVariations(t *testing.T) {
	t.Run("Headless browser", func(t *testing.T) {
		cfg := config.BrowserConfig{Headless: mainBoolPtr(true)}
		if !cfg.IsHeadless() {
			t.Error("expected headless to be true")
		}
	})

	t.Run("Headed browser", func(t *testing.T) {
		cfg := config.BrowserConfig{Headless: mainBoolPtr(false)}
		if cfg.IsHeadless() {
			t.Error("expected headless to be false")
		}
	})

	t.Run("PageMap mode defaults to lean", func(t *testing.T) {
		cfg := config.PageMapConfig{}
		if cfg.Mode() != "lean" {
			t.Errorf("expected default mode lean, got %q", cfg.Mode())
		}
	})

	t.Run("PageMap compression thresholds", func(t *testing.T) {
		cfg := config.PageMapConfig{CompressionThreshold: 20, CompressionShowFirst: 5, CompressionShowLast: 1}
		if cfg.Threshold() != 20 || cfg.ShowFirst() != 5 || cfg.ShowLast() != 1 {
			t.Errorf("unexpected compression config: %+v", cfg)
		}
	})

	t.Run("Mangle engine enabled", func(t *testing.T) {
		cfg := config.MangleConfig{Enable: true, SchemaPath: "../../schemas/pagemap.mg", FactBufferLimit: 5000}
		if !cfg.Enable {
			t.Error("expected Mangle to be enabled")
		}
		if cfg.FactBufferLimit != 5000 {
			t.Errorf("expected FactBufferLimit to be 5000, got %d", cfg.FactBufferLimit)
		}
	})
}

func mainBoolPtr(b bool) *bool {
	return &b
}
