package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// WorkspaceDirName is the directory name for project-level PageMap config.
	WorkspaceDirName = ".pagemap"
	// WorkspaceConfigFile is the config file name inside the workspace directory.
	WorkspaceConfigFile = "config.yaml"
	// MaxSearchDepth limits how many parent directories to walk when discovering a workspace.
	MaxSearchDepth = 10
)

// WorkspaceOptions controls workspace discovery behavior.
type WorkspaceOptions struct {
	// Disable skips workspace discovery entirely (--no-workspace flag).
	Disable bool
	// ExplicitDir uses this directory as workspace root instead of walking up (--workspace-dir flag).
	ExplicitDir string
}

// Config captures all tunable settings for the page-map MCP server.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Browser BrowserConfig `yaml:"browser"`
	MCP     MCPConfig     `yaml:"mcp"`
	Mangle  MangleConfig  `yaml:"mangle"`
	Docker  DockerConfig  `yaml:"docker"`
	PageMap PageMapConfig `yaml:"page_map"`
}

type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	LogFile string `yaml:"log_file"`
}

// BrowserConfig configures how we attach to or launch Chrome for Rod.
type BrowserConfig struct {
	// Control endpoint for Rod (e.g., ws://localhost:9222). Required when launch is empty.
	DebuggerURL string `yaml:"debugger_url"`
	// Optional launch command to start Chrome in detached mode (e.g., ["chrome", "--remote-debugging-port=9222"]).
	Launch []string `yaml:"launch"`
	// AutoStart controls whether the MCP server launches/attaches to Chrome at startup.
	AutoStart bool `yaml:"auto_start"`
	// Headless controls whether Chrome runs in headless mode (default: true).
	Headless *bool `yaml:"headless"`
	// Default navigation timeout (e.g., "15s").
	DefaultNavigationTimeout string `yaml:"default_navigation_timeout"`
	// Default timeout when attaching to an existing target (e.g., "10s").
	DefaultAttachTimeout string `yaml:"default_attach_timeout"`
	// Optional path to persist session metadata between server restarts.
	SessionStore string `yaml:"session_store"`
	// Viewport width for new sessions (default: 1920).
	ViewportWidth int `yaml:"viewport_width"`
	// Viewport height for new sessions (default: 1080).
	ViewportHeight int `yaml:"viewport_height"`
	// Default timeout for wait-for-element.
	DefaultWaitForElementTimeout string `yaml:"default_wait_for_element_timeout"`
	// Default budget for wait-for-element-to-change.
	DefaultWaitForChangeTimeout string `yaml:"default_wait_for_change_timeout"`
}

// PageMapConfig controls the page-parse pipeline: default rendering mode,
// truncation lengths, and the pattern-compressor thresholds.
type PageMapConfig struct {
	// DefaultMode is "lean" (ref=) or "rich" (CSS selector) when a caller omits map_type.
	DefaultMode string `yaml:"default_mode"`
	// MaxTextLength is the caller-facing truncation default.
	MaxTextLength int `yaml:"max_text_length"`
	// IncludeAPI controls whether the api-request block is rendered by default.
	IncludeAPI bool `yaml:"include_api"`
	// CompressionThreshold is the minimum run length before compression fires (default 15).
	CompressionThreshold int `yaml:"compression_threshold"`
	// CompressionShowFirst is how many leading chunks/elements survive a compressed run (default 10).
	CompressionShowFirst int `yaml:"compression_show_first"`
	// CompressionShowLast is how many trailing chunks/elements survive a compressed run (default 2).
	CompressionShowLast int `yaml:"compression_show_last"`
	// ContentCap bounds how many content-bucket elements the collector keeps (default 500, step 6).
	ContentCap int `yaml:"content_cap"`
	// APIDomainFilter restricts the api-map to requests whose host's last two
	// labels match the page's. Disable for cross-origin debugging.
	APIDomainFilter bool `yaml:"api_domain_filter"`
}

// DockerConfig configures Docker log integration for full-stack error correlation,
// consumed by the debug-dump plugin.
type DockerConfig struct {
	// Enable Docker log integration (default: false).
	Enabled bool `yaml:"enabled"`
	// Containers to monitor for error correlation (e.g., ["backend", "frontend"]).
	Containers []string `yaml:"containers"`
	// How far back to query logs when correlating errors (e.g., "30s"). Default: 30s.
	LogWindow string `yaml:"log_window"`
	// Docker host (default: uses DOCKER_HOST env or unix socket).
	Host string `yaml:"host"`
}

type MCPConfig struct {
	// When set, starts an SSE server on this port instead of stdio-only.
	SSEPort int `yaml:"sse_port"`
}

// MangleConfig controls the embedded deductive engine.
type MangleConfig struct {
	Enable          bool   `yaml:"enable"`
	SchemaPath      string `yaml:"schema_path"`
	DisableBuiltin  bool   `yaml:"disable_builtin_rules"`
	FactBufferLimit int    `yaml:"fact_buffer_limit"`
}

// DefaultConfig provides reasonable defaults for local development.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Name:    "pagemap-mcp",
			Version: "0.1.0",
			LogFile: "pagemap-mcp.log",
		},
		Browser: BrowserConfig{
			AutoStart:                    true,
			DefaultNavigationTimeout:     "15s",
			DefaultAttachTimeout:         "10s",
			SessionStore:                 "sessions.json",
			ViewportWidth:                1920,
			ViewportHeight:               1080,
			DefaultWaitForElementTimeout: "10s",
			DefaultWaitForChangeTimeout:  "15s",
		},
		MCP: MCPConfig{
			SSEPort: 0,
		},
		Mangle: MangleConfig{
			Enable:          true,
			SchemaPath:      "schemas/pagemap.mg",
			FactBufferLimit: 2048,
		},
		Docker: DockerConfig{
			Enabled:    false,
			Containers: []string{"backend", "frontend"},
			LogWindow:  "30s",
			Host:       "",
		},
		PageMap: PageMapConfig{
			DefaultMode:          "lean",
			MaxTextLength:        500,
			IncludeAPI:           true,
			CompressionThreshold: 15,
			CompressionShowFirst: 10,
			CompressionShowLast:  2,
			ContentCap:           500,
			APIDomainFilter:      true,
		},
	}
}

// Load reads YAML config from disk and overlays defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, errors.New("config path is required")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

// DiscoverWorkspace walks up from startDir looking for a .pagemap/config.yaml file.
// Returns the workspace root directory (parent of .pagemap/) or empty string if not found.
func DiscoverWorkspace(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving start directory: %w", err)
	}

	for i := 0; i < MaxSearchDepth; i++ {
		candidate := filepath.Join(dir, WorkspaceDirName, WorkspaceConfigFile)
		if _, err := os.Stat(candidate); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}

	return "", nil
}

// LoadWithWorkspace implements multi-layer config merge:
//
//	DefaultConfig() <- .pagemap/config.yaml <- explicit --config <- CLI flags
//
// Returns the merged config and the workspace directory (empty if none found).
func LoadWithWorkspace(explicitConfig string, opts WorkspaceOptions) (Config, string, error) {
	cfg := DefaultConfig()
	wsDir := ""

	// Layer 1: Workspace config (if not disabled)
	if !opts.Disable {
		var err error
		if opts.ExplicitDir != "" {
			// Verify the explicit workspace dir has a config
			candidate := filepath.Join(opts.ExplicitDir, WorkspaceDirName, WorkspaceConfigFile)
			if _, statErr := os.Stat(candidate); statErr == nil {
				wsDir = opts.ExplicitDir
			}
		} else {
			cwd, cwdErr := os.Getwd()
			if cwdErr != nil {
				return cfg, "", fmt.Errorf("getting working directory: %w", cwdErr)
			}
			wsDir, err = DiscoverWorkspace(cwd)
			if err != nil {
				return cfg, "", fmt.Errorf("discovering workspace: %w", err)
			}
		}

		if wsDir != "" {
			wsConfigPath := filepath.Join(wsDir, WorkspaceDirName, WorkspaceConfigFile)
			raw, err := os.ReadFile(wsConfigPath)
			if err != nil {
				return cfg, "", fmt.Errorf("reading workspace config %s: %w", wsConfigPath, err)
			}
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return cfg, "", fmt.Errorf("parsing workspace config %s: %w", wsConfigPath, err)
			}
			cfg = resolveWorkspacePaths(cfg, wsDir)
		}
	}

	// Layer 2: Explicit config file (--config flag)
	if explicitConfig != "" {
		raw, err := os.ReadFile(explicitConfig)
		if err != nil {
			return cfg, wsDir, fmt.Errorf("reading explicit config %s: %w", explicitConfig, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, wsDir, fmt.Errorf("parsing explicit config %s: %w", explicitConfig, err)
		}
	}

	return cfg, wsDir, cfg.Validate()
}

// InitWorkspace creates a .pagemap/ directory with template files at root.
func InitWorkspace(root string) error {
	wsDir := filepath.Join(root, WorkspaceDirName)

	// Check if already exists
	if _, err := os.Stat(wsDir); err == nil {
		return fmt.Errorf("workspace directory already exists: %s", wsDir)
	}

	// Create directory structure
	dirs := []string{
		wsDir,
		filepath.Join(wsDir, "schemas"),
		filepath.Join(wsDir, "data"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	// Write template config
	templateConfig := `# page-map MCP project-level configuration
# Values here override defaults but are overridden by --config and CLI flags.

# docker:
#   enabled: true
#   containers:
#     - my-app-backend
#     - my-app-frontend
#   log_window: "30s"

# mangle:
#   schema_path: ".pagemap/schemas/project.mg"

# browser:
#   headless: false
#   viewport_width: 1280
#   viewport_height: 720

# page_map:
#   default_mode: rich
#   max_text_length: 800
`
	configPath := filepath.Join(wsDir, WorkspaceConfigFile)
	if err := os.WriteFile(configPath, []byte(templateConfig), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	// Write .gitignore for data directory
	gitignoreContent := "# Runtime data (logs, sessions, traces) - do not version control\ndata/\n"
	gitignorePath := filepath.Join(wsDir, ".gitignore")
	if err := os.WriteFile(gitignorePath, []byte(gitignoreContent), 0644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	return nil
}

// resolveWorkspacePaths resolves relative paths in the config against the workspace directory.
func resolveWorkspacePaths(cfg Config, wsDir string) Config {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(wsDir, p)
	}

	cfg.Server.LogFile = resolve(cfg.Server.LogFile)
	cfg.Browser.SessionStore = resolve(cfg.Browser.SessionStore)
	cfg.Mangle.SchemaPath = resolve(cfg.Mangle.SchemaPath)
	return cfg
}

// Validate ensures required fields exist so the server can start deterministically.
func (c *Config) Validate() error {
	if c.Server.Name == "" {
		return errors.New("server.name is required")
	}
	if c.Browser.AutoStart {
		if c.Browser.DebuggerURL == "" && len(c.Browser.Launch) == 0 {
			return errors.New("browser.debugger_url or browser.launch must be provided")
		}
	}
	if c.PageMap.DefaultMode != "" && c.PageMap.DefaultMode != "lean" && c.PageMap.DefaultMode != "rich" {
		return fmt.Errorf("page_map.default_mode must be 'lean' or 'rich', got %q", c.PageMap.DefaultMode)
	}
	return nil
}

// NavigationTimeout returns the parsed navigation timeout with a sane default.
func (b BrowserConfig) NavigationTimeout() time.Duration {
	return parseDurationOr(b.DefaultNavigationTimeout, 15*time.Second)
}

// AttachTimeout returns the parsed attach timeout with a sane default.
func (b BrowserConfig) AttachTimeout() time.Duration {
	return parseDurationOr(b.DefaultAttachTimeout, 10*time.Second)
}

// WaitForElementTimeout returns the default wait-for-element timeout.
func (b BrowserConfig) WaitForElementTimeout() time.Duration {
	return parseDurationOr(b.DefaultWaitForElementTimeout, 10*time.Second)
}

// WaitForChangeTimeout returns the default wait-for-change budget.
func (b BrowserConfig) WaitForChangeTimeout() time.Duration {
	return parseDurationOr(b.DefaultWaitForChangeTimeout, 15*time.Second)
}

func parseDurationOr(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

// IsHeadless returns whether Chrome should run in headless mode (default: true).
func (b BrowserConfig) IsHeadless() bool {
	if b.Headless == nil {
		return true // default to headless
	}
	return *b.Headless
}

// GetViewportWidth returns the viewport width with a sane default.
func (b BrowserConfig) GetViewportWidth() int {
	if b.ViewportWidth <= 0 {
		return 1920
	}
	return b.ViewportWidth
}

// GetViewportHeight returns the viewport height with a sane default.
func (b BrowserConfig) GetViewportHeight() int {
	if b.ViewportHeight <= 0 {
		return 1080
	}
	return b.ViewportHeight
}

// GetLogWindow returns the parsed log window duration with a sane default.
func (d DockerConfig) GetLogWindow() time.Duration {
	return parseDurationOr(d.LogWindow, 30*time.Second)
}

// Mode returns the default rendering mode, defaulting to "lean".
func (p PageMapConfig) Mode() string {
	if p.DefaultMode == "" {
		return "lean"
	}
	return p.DefaultMode
}

// MaxText returns the caller-facing truncation default.
func (p PageMapConfig) MaxText() int {
	if p.MaxTextLength <= 0 {
		return 500
	}
	return p.MaxTextLength
}

// Threshold returns the compression run-length threshold.
func (p PageMapConfig) Threshold() int {
	if p.CompressionThreshold <= 0 {
		return 15
	}
	return p.CompressionThreshold
}

// ShowFirst returns the number of leading samples kept around a compression marker (default: 10).
func (p PageMapConfig) ShowFirst() int {
	if p.CompressionShowFirst <= 0 {
		return 10
	}
	return p.CompressionShowFirst
}

// ShowLast returns the number of trailing samples kept around a compression marker (default: 2).
func (p PageMapConfig) ShowLast() int {
	if p.CompressionShowLast <= 0 {
		return 2
	}
	return p.CompressionShowLast
}

// Cap returns the content-bucket cap.
func (p PageMapConfig) Cap() int {
	if p.ContentCap <= 0 {
		return 500
	}
	return p.ContentCap
}
