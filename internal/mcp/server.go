package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/agentic-web/pagemap-mcp/internal/browser"
	"github.com/agentic-web/pagemap-mcp/internal/config"
	"github.com/agentic-web/pagemap-mcp/internal/docker"
	"github.com/agentic-web/pagemap-mcp/internal/mangle"
	"github.com/agentic-web/pagemap-mcp/internal/recorder"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Server wires the MCP runtime, Rod session manager, and Mangle fact buffer.
type Server struct {
	cfg          config.Config
	sessions     *browser.SessionManager
	engine       *mangle.Engine
	dockerClient *docker.Client
	recorder     *recorder.Recorder
	tools        map[string]Tool
	mcpServer    *mcpserver.MCPServer
}

// Tool describes the contract for MCP tool implementations.
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) (interface{}, error)
}

// NewServer constructs the MCP server and registers all tools.
func NewServer(cfg config.Config, sessions *browser.SessionManager, engine *mangle.Engine) (*Server, error) {
	mcpSrv := mcpserver.NewMCPServer(
		cfg.Server.Name,
		cfg.Server.Version,
		mcpserver.WithResourceCapabilities(true, true),
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithLogging(),
		mcpserver.WithPromptCapabilities(false),
		mcpserver.WithRecovery(),
	)

	var dockerClient *docker.Client
	if cfg.Docker.Enabled {
		dockerClient = docker.NewClient(cfg.Docker.Containers, cfg.Docker.GetLogWindow(), cfg.Docker.Host)
		log.Printf("Docker log integration enabled for containers: %v", cfg.Docker.Containers)
	}

	var rec *recorder.Recorder
	if cfg.Server.LogFile != "" {
		tracePath := cfg.Server.LogFile + ".traces"
		r, err := recorder.NewRecorder(tracePath)
		if err != nil {
			log.Printf("debug-dump recorder disabled: %v", err)
		} else {
			rec = r
		}
	}

	server := &Server{
		cfg:          cfg,
		sessions:     sessions,
		engine:       engine,
		dockerClient: dockerClient,
		recorder:     rec,
		tools:        make(map[string]Tool),
		mcpServer:    mcpSrv,
	}

	server.registerAllTools()
	return server, nil
}

// Start launches the stdio server.
func (s *Server) Start(ctx context.Context) error {
	stdio := mcpserver.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// StartSSE hosts the server over HTTP using SSE endpoints with graceful shutdown.
func (s *Server) StartSSE(ctx context.Context, port int) error {
	sseServer := mcpserver.NewSSEServer(s.mcpServer, mcpserver.WithBaseURL("http://localhost:"+strconv.Itoa(port)))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:    ":" + strconv.Itoa(port),
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Printf("SSE server shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// ExecuteTool executes a tool directly (used by tests and demos).
func (s *Server) ExecuteTool(name string, args map[string]interface{}) (interface{}, error) {
	tool, exists := s.tools[name]
	if !exists {
		return nil, fmt.Errorf("tool not found: %s", name)
	}
	return tool.Execute(context.Background(), args)
}

func (s *Server) registerAllTools() {
	// Session lifecycle.
	s.registerTool(&ListSessionsTool{sessions: s.sessions})
	s.registerTool(&CreateSessionTool{sessions: s.sessions})
	s.registerTool(&AttachSessionTool{sessions: s.sessions})
	s.registerTool(&ForkSessionTool{sessions: s.sessions})
	s.registerTool(&CloseSessionTool{sessions: s.sessions})

	// Page-map action tools. navigate_url, interact, press_key and
	// get_page_state auto-inject a fresh page map into their result; the
	// wait, evaluate and screenshot tools return without one.
	s.registerTool(&NavigateURLTool{sessions: s.sessions, engine: s.engine, cfg: s.cfg.PageMap})
	s.registerTool(&InteractTool{sessions: s.sessions, engine: s.engine, cfg: s.cfg.PageMap})
	s.registerTool(&PressKeyTool{sessions: s.sessions, engine: s.engine, cfg: s.cfg.PageMap})
	s.registerTool(&WaitForElementTool{sessions: s.sessions})
	s.registerTool(&WaitForChangeTool{sessions: s.sessions, cfg: s.cfg.Browser})
	s.registerTool(&GetPageStateTool{sessions: s.sessions, cfg: s.cfg.PageMap})
	s.registerTool(&EvaluateJSTool{sessions: s.sessions, engine: s.engine})
	s.registerTool(&ScreenshotTool{sessions: s.sessions})

	// Fact-store tools backed by the embedded deductive engine.
	s.registerTool(&ReadFactsTool{engine: s.engine})
	s.registerTool(&QueryFactsTool{engine: s.engine})

	// Debug-dump plugin.
	s.registerTool(&DebugDumpTool{sessions: s.sessions, engine: s.engine, docker: s.dockerClient, recorder: s.recorder, cfg: s.cfg.PageMap})
}

func (s *Server) registerTool(tool Tool) {
	s.tools[tool.Name()] = tool

	schema, err := json.Marshal(tool.InputSchema())
	if err != nil {
		schema = json.RawMessage(`{"type":"object"}`)
	}

	mcpTool := mcp.NewToolWithRawSchema(tool.Name(), tool.Description(), schema)
	s.mcpServer.AddTool(mcpTool, s.wrapTool(tool))
}

func (s *Server) wrapTool(tool Tool) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		if args == nil {
			args = map[string]interface{}{}
		}

		result, err := tool.Execute(ctx, args)
		if err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{mcp.NewTextContent(fmt.Sprintf("tool %s failed: %v", tool.Name(), err))},
				IsError: true,
			}, nil
		}

		payload := marshalToolPayload(tool.Name(), result)
		return &mcp.CallToolResult{
			Content: []mcp.Content{mcp.NewTextContent(string(payload))},
			IsError: false,
		}, nil
	}
}

func marshalToolPayload(toolName string, result interface{}) []byte {
	payload, marshalErr := json.Marshal(result)
	if marshalErr == nil {
		return payload
	}

	fallback := map[string]interface{}{
		"success": false,
		"error":   fmt.Sprintf("tool %s returned non-serializable payload: %v", toolName, marshalErr),
	}
	payload, fallbackErr := json.Marshal(fallback)
	if fallbackErr == nil {
		return payload
	}

	return []byte(fmt.Sprintf(`{"success":false,"error":"tool %s failed to encode payload"}`, toolName))
}
