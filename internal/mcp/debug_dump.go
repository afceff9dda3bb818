package mcp

import (
	"context"
	"time"

	"github.com/agentic-web/pagemap-mcp/internal/browser"
	"github.com/agentic-web/pagemap-mcp/internal/config"
	"github.com/agentic-web/pagemap-mcp/internal/correlation"
	"github.com/agentic-web/pagemap-mcp/internal/docker"
	"github.com/agentic-web/pagemap-mcp/internal/mangle"
	"github.com/agentic-web/pagemap-mcp/internal/recorder"
)

// DebugDumpTool snapshots the current page map, recent network/console facts,
// and — when Docker correlation is configured — matching backend container
// log lines, to a rotating trace file. It is the tool-call-context dump a
// agent reaches for when a page-changing tool's result looks wrong.
type DebugDumpTool struct {
	sessions *browser.SessionManager
	engine   *mangle.Engine
	docker   *docker.Client
	recorder *recorder.Recorder
	cfg      config.PageMapConfig
}

func (t *DebugDumpTool) Name() string { return "debug_dump" }
func (t *DebugDumpTool) Description() string {
	return "Dump the current page map, recent network/console facts, and correlated backend logs to a trace file for offline triage."
}
func (t *DebugDumpTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{"session_id": map[string]interface{}{"type": "string"}},
		"required":   []string{"session_id"},
	}
}

func (t *DebugDumpTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	sessionID := getStringArg(args, "session_id")
	if _, ok := t.sessions.GetSession(sessionID); !ok {
		return errorPayload(errSessionNotFound(sessionID)), nil
	}

	dump := map[string]interface{}{"success": true, "session_id": sessionID}
	dump = attachPageMap(ctx, t.sessions, t.cfg, sessionID, dump)

	var consoleFacts, netFacts []mangle.Fact
	if t.engine != nil {
		consoleFacts = t.engine.FactsByPredicate("console_event")
		netFacts = t.engine.FactsByPredicate("net_request")
		dump["console_events"] = consoleFacts
		dump["net_requests"] = netFacts
	}

	if t.docker != nil {
		logs, err := t.docker.QueryLogs(ctx, time.Now().Add(-t.docker.LogWindow()))
		if err != nil {
			dump["docker_error"] = err.Error()
		} else {
			dump["docker_logs"] = t.docker.FilterErrors(logs)
			dump["correlated_logs"] = correlateLogs(append(consoleFacts, netFacts...), logs)
		}
	}

	if t.recorder != nil {
		_ = t.recorder.Start(sessionID)
		t.recorder.Log("debug_dump", sessionID, dump)
		_ = t.recorder.Close()
	}

	return dump, nil
}

// correlateLogs matches console/network fact messages against container log
// lines that carry the same trace or request id, so a frontend error and its
// backend cause show up in the same dump.
func correlateLogs(facts []mangle.Fact, logs []docker.LogEntry) []docker.LogEntry {
	wanted := map[string]bool{}
	for _, f := range facts {
		for _, arg := range f.Args {
			msg, ok := arg.(string)
			if !ok {
				continue
			}
			for _, key := range correlation.FromMessage(msg) {
				wanted[key.Value] = true
			}
		}
	}
	if len(wanted) == 0 {
		return nil
	}

	var matches []docker.LogEntry
	for _, entry := range logs {
		for _, key := range correlation.FromMessage(entry.Message) {
			if wanted[key.Value] {
				matches = append(matches, entry)
				break
			}
		}
	}
	return matches
}
