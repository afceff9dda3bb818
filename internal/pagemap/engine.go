package pagemap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/agentic-web/pagemap-mcp/internal/driver"
)

// Options pins every tunable the engine needs for one GeneratePageMap call.
// Callers build this from config.PageMapConfig accessors; the engine package
// never imports config to keep the dependency one-directional.
type Options struct {
	Mode            RenderMode
	MaxText         int
	IncludeAPI      bool
	Threshold       int
	ShowFirst       int
	ShowLast        int
	ContentCap      int
	APIDomainFilter bool
}

// GeneratePageMap runs the full pipeline: Collect, Deduplicate, Compress,
// then Format into the three text blocks a caller renders back to its
// client.
func GeneratePageMap(ctx context.Context, drv driver.Driver, opts Options) (*PageMap, error) {
	elements, err := Collect(ctx, drv, opts.ContentCap)
	if err != nil {
		return nil, err
	}

	elements = truncateElementText(elements, opts.MaxText)

	// Dedup/compress feed the rendered text blocks only. Elements keeps the
	// full collected set so every data-agent-ref marker left on the live DOM
	// has a matching entry here — a ref the text blocks elided under dedup or
	// a compression marker must still resolve.
	deduped := Deduplicate(elements)

	var interactive, content []PageElement
	for _, e := range deduped {
		if e.IsInteractive {
			interactive = append(interactive, e)
		} else {
			content = append(content, e)
		}
	}

	compOpts := CompressionOptions{Threshold: opts.Threshold, ShowFirst: opts.ShowFirst, ShowLast: opts.ShowLast}
	interactiveItems := Compress(interactive, compOpts)
	contentItems := Compress(content, compOpts)

	mode := opts.Mode
	if mode == "" {
		mode = ModeLean
	}

	pm := &PageMap{
		Elements:        elements,
		InteractiveText: FormatInteractive(interactiveItems, mode),
		ContentText:     FormatContent(contentItems, mode),
	}

	if opts.IncludeAPI {
		pm.APIText = buildAPIText(ctx, drv, opts.APIDomainFilter)
	}

	return pm, nil
}

func truncateElementText(elements []PageElement, maxText int) []PageElement {
	if maxText <= 0 {
		return elements
	}
	out := make([]PageElement, len(elements))
	for i, e := range elements {
		if len(e.Text) > maxText {
			e.Text = e.Text[:maxText]
		}
		if len(e.ChildrenText) > maxText {
			e.ChildrenText = e.ChildrenText[:maxText]
		}
		out[i] = e
	}
	return out
}

// buildAPIText reads the resource-timing log from the driver and, for
// entries that look like JSON API calls, re-fetches the body using the
// session's captured cookies so the caller sees real response shapes rather
// than just URLs. A failed re-fetch degrades to a metadata-only line instead
// of dropping the request.
func buildAPIText(ctx context.Context, drv driver.Driver, domainFilter bool) string {
	timings, err := drv.ResourceTimingEntries(ctx)
	if err != nil {
		return ""
	}

	pageURL, _ := drv.GetURL(ctx)
	cookies, _ := drv.Cookies(ctx)

	entries := make([]APIRequestEntry, 0, len(timings))
	for _, t := range timings {
		entry := APIRequestEntry{
			URL:           t.URL,
			Method:        "GET",
			InitiatorType: t.InitiatorType,
		}
		if looksLikeJSONAPI(t.URL) {
			body, ferr := refetchJSON(ctx, t.URL, cookies)
			if ferr != nil {
				entry.ResponseFetchErr = ferr
			} else {
				entry.ResponseBody = body
			}
		}
		entries = append(entries, entry)
	}

	return FormatAPIRequests(entries, pageURL, domainFilter)
}

func refetchJSON(ctx context.Context, url string, cookies []driver.Cookie) (interface{}, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("refetch %s: %w", url, err)
	}
	if len(cookies) > 0 {
		pairs := make([]string, len(cookies))
		for i, c := range cookies {
			pairs[i] = c.Name + "=" + c.Value
		}
		req.Header.Set("Cookie", strings.Join(pairs, "; "))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("refetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("refetch %s: status %d", url, resp.StatusCode)
	}

	var body interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("refetch %s: decode: %w", url, err)
	}
	return body, nil
}
