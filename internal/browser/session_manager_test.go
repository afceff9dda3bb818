package browser

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/agentic-web/pagemap-mcp/internal/config"
	"github.com/go-rod/rod/lib/proto"
)

func newTestContext() context.Context {
	return context.Background()
}

func TestNewSessionManager(t *testing.T) {
	cfg := config.BrowserConfig{ViewportWidth: 1280, ViewportHeight: 720}
	m := NewSessionManager(cfg, nil)
	if m.IsConnected() {
		t.Errorf("expected a fresh manager to report disconnected")
	}
	if len(m.List()) != 0 {
		t.Errorf("expected no sessions on a fresh manager")
	}
}

func TestSessionManagerControlURL(t *testing.T) {
	m := NewSessionManager(config.BrowserConfig{}, nil)
	if got := m.ControlURL(); got != "" {
		t.Errorf("expected empty control URL before Start, got %q", got)
	}
}

func TestSessionManagerGetSessionNotFound(t *testing.T) {
	m := NewSessionManager(config.BrowserConfig{}, nil)
	if _, ok := m.GetSession("missing"); ok {
		t.Errorf("expected GetSession to report not found")
	}
}

func TestSessionManagerPageNotFound(t *testing.T) {
	m := NewSessionManager(config.BrowserConfig{}, nil)
	if _, ok := m.Page("missing"); ok {
		t.Errorf("expected Page to report not found")
	}
}

func TestSessionManagerDriverNotFound(t *testing.T) {
	m := NewSessionManager(config.BrowserConfig{}, nil)
	if _, ok := m.Driver("missing"); ok {
		t.Errorf("expected Driver to report not found")
	}
}

func TestSessionManagerUpdateMetadataNoSession(t *testing.T) {
	m := NewSessionManager(config.BrowserConfig{}, nil)
	// Should be a no-op, not a panic.
	m.UpdateMetadata("missing", func(s Session) Session {
		s.Status = "whatever"
		return s
	})
}

func TestSessionManagerCreateSessionNoBrowser(t *testing.T) {
	m := NewSessionManager(config.BrowserConfig{}, nil)
	if _, err := m.CreateSession(newTestContext(), "https://example.com"); err == nil {
		t.Errorf("expected error creating a session without a connected browser")
	}
}

func TestSessionManagerAttachNoBrowser(t *testing.T) {
	m := NewSessionManager(config.BrowserConfig{}, nil)
	if _, err := m.Attach(newTestContext(), "target-1"); err == nil {
		t.Errorf("expected error attaching without a connected browser")
	}
}

func TestSessionManagerShutdownNoSessions(t *testing.T) {
	m := NewSessionManager(config.BrowserConfig{}, nil)
	if err := m.Shutdown(newTestContext()); err != nil {
		t.Errorf("expected clean shutdown with no sessions, got %v", err)
	}
}

func TestWithMapLockUnknownSession(t *testing.T) {
	m := NewSessionManager(config.BrowserConfig{}, nil)
	err := m.WithMapLock("missing", func() error { return nil })
	if err == nil {
		t.Errorf("expected error for unknown session")
	}
}

func TestKnownRefTracksLastGeneratedMap(t *testing.T) {
	m := NewSessionManager(config.BrowserConfig{}, nil)
	m.sessions["s1"] = &sessionRecord{meta: Session{ID: "s1"}}

	if m.KnownRef("s1", "3") {
		t.Errorf("expected ref unknown before SetLastRefs")
	}
	m.SetLastRefs("s1", []string{"1", "2", "3"})
	if !m.KnownRef("s1", "3") {
		t.Errorf("expected ref 3 known after SetLastRefs")
	}
	if m.KnownRef("s1", "99") {
		t.Errorf("expected ref 99 to remain unknown")
	}
}

func TestPersistAndLoadSessions(t *testing.T) {
	dir := t.TempDir()
	store := filepath.Join(dir, "sessions.json")

	m := NewSessionManager(config.BrowserConfig{SessionStore: store}, nil)
	m.sessions["s1"] = &sessionRecord{meta: Session{ID: "s1", URL: "https://example.com", Status: "active", CreatedAt: time.Now()}}

	if err := m.persistSessions(); err != nil {
		t.Fatalf("persistSessions failed: %v", err)
	}

	raw, err := os.ReadFile(store)
	if err != nil {
		t.Fatalf("expected sessions file to exist: %v", err)
	}
	var sessions []Session
	if err := json.Unmarshal(raw, &sessions); err != nil {
		t.Fatalf("invalid sessions JSON: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != "s1" {
		t.Fatalf("unexpected persisted sessions: %+v", sessions)
	}

	m2 := NewSessionManager(config.BrowserConfig{SessionStore: store}, nil)
	if err := m2.loadSessions(); err != nil {
		t.Fatalf("loadSessions failed: %v", err)
	}
	loaded, ok := m2.GetSession("s1")
	if !ok {
		t.Fatalf("expected session s1 to be loaded")
	}
	if loaded.Status != "detached" {
		t.Errorf("expected loaded session marked detached, got %q", loaded.Status)
	}
}

func TestLoadSessionsNoFile(t *testing.T) {
	m := NewSessionManager(config.BrowserConfig{SessionStore: filepath.Join(t.TempDir(), "nope.json")}, nil)
	if err := m.loadSessions(); err != nil {
		t.Errorf("expected no error for a missing sessions file, got %v", err)
	}
}

func TestLoadSessionsEmptyPath(t *testing.T) {
	m := NewSessionManager(config.BrowserConfig{}, nil)
	if err := m.loadSessions(); err != nil {
		t.Errorf("expected no-op when SessionStore is empty, got %v", err)
	}
}

func TestPersistSessionsEmptyPath(t *testing.T) {
	m := NewSessionManager(config.BrowserConfig{}, nil)
	if err := m.persistSessions(); err != nil {
		t.Errorf("expected no-op when SessionStore is empty, got %v", err)
	}
}

func TestLoadSessionsInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	store := filepath.Join(dir, "sessions.json")
	if err := os.WriteFile(store, []byte("not json"), 0o644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	m := NewSessionManager(config.BrowserConfig{SessionStore: store}, nil)
	if err := m.loadSessions(); err == nil {
		t.Errorf("expected an error unmarshaling invalid session store JSON")
	}
}

func TestStringifyConsoleArgs(t *testing.T) {
	args := []*proto.RuntimeRemoteObject{
		{Description: "first"},
		nil,
		{Description: "second"},
	}
	got := stringifyConsoleArgs(args)
	if got != "first second" {
		t.Errorf("stringifyConsoleArgs = %q, want %q", got, "first second")
	}
}

func TestStringifyConsoleArgsEmpty(t *testing.T) {
	if got := stringifyConsoleArgs(nil); got != "" {
		t.Errorf("expected empty string for no args, got %q", got)
	}
}
