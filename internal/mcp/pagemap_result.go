package mcp

import (
	"context"

	"github.com/agentic-web/pagemap-mcp/internal/browser"
	"github.com/agentic-web/pagemap-mcp/internal/config"
	"github.com/agentic-web/pagemap-mcp/internal/pagemap"
)

// attachPageMap regenerates the page map for sessionID and merges it into an
// action tool's result. This is the auto-inject variant: generate_page_map is
// never registered as a callable tool, every page-changing tool carries its
// own follow-up map so the agent never has to ask for one separately.
func attachPageMap(ctx context.Context, sessions *browser.SessionManager, cfg config.PageMapConfig, sessionID string, base map[string]interface{}) map[string]interface{} {
	drv, ok := sessions.Driver(sessionID)
	if !ok {
		base["page_map_error"] = "session has no attached driver"
		return base
	}

	opts := pagemap.Options{
		Mode:            pagemap.RenderMode(cfg.Mode()),
		MaxText:         cfg.MaxText(),
		IncludeAPI:      cfg.IncludeAPI,
		Threshold:       cfg.Threshold(),
		ShowFirst:       cfg.ShowFirst(),
		ShowLast:        cfg.ShowLast(),
		ContentCap:      cfg.Cap(),
		APIDomainFilter: cfg.APIDomainFilter,
	}

	var pm *pagemap.PageMap
	err := sessions.WithMapLock(sessionID, func() error {
		var genErr error
		pm, genErr = pagemap.GeneratePageMap(ctx, drv, opts)
		return genErr
	})
	if err != nil {
		base["page_map_error"] = err.Error()
		return base
	}

	refs := make([]string, 0, len(pm.Elements))
	for _, e := range pm.Elements {
		refs = append(refs, e.Ref)
	}
	sessions.SetLastRefs(sessionID, refs)

	base["interactive_map"] = pm.InteractiveText
	base["content_map"] = pm.ContentText
	if pm.APIText != "" {
		base["api_map"] = pm.APIText
	}
	base["element_count"] = len(pm.Elements)
	return base
}
