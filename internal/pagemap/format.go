package pagemap

import (
	"fmt"
	"net/url"
	"strings"
)

// RenderMode selects whether a line is prefixed with the full CSS selector
// ("rich") or the opaque ref ("lean").
type RenderMode string

const (
	ModeLean RenderMode = "lean"
	ModeRich RenderMode = "rich"
)

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// truncateHref preserves scheme+host and middle-truncates the rest so a
// long query string doesn't crowd out the host.
func truncateHref(href string, n int) string {
	if len(href) <= n {
		return href
	}
	u, err := url.Parse(href)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return href[:n]
	}
	prefix := u.Scheme + "://" + u.Host
	if len(prefix) >= n {
		return href[:n]
	}
	remaining := n - len(prefix) - 3 // room for "..."
	if remaining <= 0 {
		return prefix + "..."
	}
	rest := href[len(prefix):]
	if len(rest) <= remaining {
		return href
	}
	return prefix + "..." + rest[len(rest)-remaining:]
}

func prefixFor(mode RenderMode, e PageElement) string {
	if mode == ModeRich {
		return fmt.Sprintf(`CSS: %s`, e.CSSSelector)
	}
	return fmt.Sprintf(`ref="%s"`, e.Ref)
}

// renderInteractiveLine renders one interactive element. Returns "", false
// when the element has no discriminator at all and the line must be skipped.
func renderInteractiveLine(e PageElement, mode RenderMode) (string, bool) {
	a := e.Attributes
	hasDiscriminator := e.Text != "" || e.ChildrenText != "" || a.AriaLabel != "" ||
		a.Placeholder != "" || a.ID != "" || a.Value != "" || a.Name != "" ||
		a.Type != "" || a.Href != "" || a.Title != "" || a.Disabled
	if !hasDiscriminator {
		return "", false
	}

	var parts []string
	parts = append(parts, strings.ToUpper(e.Tag)+":")

	if e.Text != "" {
		parts = append(parts, fmt.Sprintf(`TEXT:"%s"`, truncate(e.Text, 100)))
	} else if e.ChildrenText != "" {
		parts = append(parts, fmt.Sprintf(`CHILDREN_TEXT:"%s"`, truncate(e.ChildrenText, 100)))
	}
	if a.AriaLabel != "" {
		parts = append(parts, fmt.Sprintf(`aria-label="%s"`, truncate(a.AriaLabel, 50)))
	}
	if a.Placeholder != "" {
		parts = append(parts, fmt.Sprintf(`placeholder="%s"`, truncate(a.Placeholder, 50)))
	}
	if a.ID != "" {
		parts = append(parts, fmt.Sprintf(`id="%s"`, truncate(a.ID, 50)))
	}
	if a.Value != "" {
		parts = append(parts, fmt.Sprintf(`value="%s"`, truncate(a.Value, 50)))
	}
	if a.Name != "" {
		parts = append(parts, fmt.Sprintf(`name="%s"`, truncate(a.Name, 50)))
	}
	if a.Type != "" {
		parts = append(parts, fmt.Sprintf(`type="%s"`, truncate(a.Type, 50)))
	}
	if a.Href != "" {
		parts = append(parts, fmt.Sprintf(`href="%s"`, truncateHref(a.Href, 80)))
	}
	if a.Title != "" {
		parts = append(parts, fmt.Sprintf(`title="%s"`, truncate(a.Title, 50)))
	}
	if a.Disabled {
		parts = append(parts, `disabled="true"`)
	}

	return prefixFor(mode, e) + " | " + strings.Join(parts, " "), true
}

// renderContentLine renders one content element. Returns "", false when
// neither text nor a meaningful attribute is present.
func renderContentLine(e PageElement, mode RenderMode) (string, bool) {
	a := e.Attributes
	hasMeaningfulAttr := a.ID != "" || a.Title != "" || len(e.DataAttributes) > 0

	if e.Tag == "tr" && len(e.TableCells) > 0 {
		cells := make([]string, 0, len(e.TableCells))
		for _, c := range e.TableCells {
			key := c.DataLabel
			if key == "" {
				key = "cell"
			}
			cells = append(cells, fmt.Sprintf("%s=%s", key, c.Text))
		}
		line := "ROW: " + strings.Join(cells, " | ")
		return prefixFor(mode, e) + " | " + line, true
	}

	if e.Text == "" && !hasMeaningfulAttr {
		return "", false
	}

	var parts []string
	parts = append(parts, strings.ToUpper(e.Tag)+":")
	if a.ID != "" {
		parts = append(parts, fmt.Sprintf(`id="%s"`, truncate(a.ID, 50)))
	}
	if a.Title != "" {
		parts = append(parts, fmt.Sprintf(`title="%s"`, truncate(a.Title, 100)))
	}
	for k, v := range e.DataAttributes {
		if k == "data-agent-ref" {
			continue
		}
		parts = append(parts, fmt.Sprintf(`%s="%s"`, k, truncate(v, 100)))
	}
	if e.Text != "" {
		parts = append(parts, fmt.Sprintf(`TEXT:"%s"`, truncate(e.Text, 200)))
	}

	return prefixFor(mode, e) + " | " + strings.Join(parts, " "), true
}

func markerLine(c *compressedRun, mode RenderMode) string {
	hidden := c.count - c.shown
	if mode == ModeRich {
		return fmt.Sprintf("... [%d more elements with pattern: %s]", hidden, c.pattern)
	}
	return fmt.Sprintf("... [%d more similar elements]", hidden)
}

// renderBlock renders a slice of renderItems (elements interleaved with
// compression markers) with a line-render function selected by whether the
// items are interactive or content.
func renderBlock(items []renderItem, mode RenderMode, lineFn func(PageElement, RenderMode) (string, bool)) string {
	var lines []string
	for _, item := range items {
		if item.compressed != nil {
			lines = append(lines, markerLine(item.compressed, mode))
			continue
		}
		if item.element == nil {
			continue
		}
		if line, ok := lineFn(*item.element, mode); ok {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// FormatInteractive renders the interactive text block.
func FormatInteractive(items []renderItem, mode RenderMode) string {
	return renderBlock(items, mode, renderInteractiveLine)
}

// FormatContent renders the content text block.
func FormatContent(items []renderItem, mode RenderMode) string {
	return renderBlock(items, mode, renderContentLine)
}

// APIRequestEntry is one network-capture row the Formatter renders into the
// api-request text block.
type APIRequestEntry struct {
	URL              string
	Method           string
	InitiatorType    string
	ResponseBody     interface{} // nil when no successful re-fetch happened
	ResponseFetchErr error       // non-nil => NetworkFetchError disposition: omit body, keep metadata
}

var apiLikeSubstrings = []string{"api", "graphql", "json", "data", "query"}

// looksLikeJSONAPI applies a case-insensitive substring heuristic against
// the URL to decide whether to attempt response-body condensation.
func looksLikeJSONAPI(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, s := range apiLikeSubstrings {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// sameSiteLastTwoLabels implements the default domain filter: keep requests
// whose host's last two labels match the current page's host.
func sameSiteLastTwoLabels(pageHost, requestHost string) bool {
	lastTwo := func(h string) string {
		parts := strings.Split(h, ".")
		if len(parts) < 2 {
			return h
		}
		return strings.Join(parts[len(parts)-2:], ".")
	}
	return lastTwo(pageHost) == lastTwo(requestHost)
}

// FormatAPIRequests renders the api-request text block.
func FormatAPIRequests(entries []APIRequestEntry, pageURL string, domainFilter bool) string {
	pageHost := ""
	if u, err := url.Parse(pageURL); err == nil {
		pageHost = u.Host
	}

	var lines []string
	for _, e := range entries {
		if domainFilter && pageHost != "" {
			if u, err := url.Parse(e.URL); err == nil && u.Host != "" {
				if !sameSiteLastTwoLabels(pageHost, u.Host) {
					continue
				}
			}
		}

		parts := []string{
			fmt.Sprintf("URL: %s", e.URL),
			fmt.Sprintf("METHOD: %s", e.Method),
			fmt.Sprintf("INITIATOR: %s", e.InitiatorType),
		}
		if query := queryParamsSummary(e.URL); query != "" {
			parts = append(parts, fmt.Sprintf("QUERY: %s", query))
		}

		if looksLikeJSONAPI(e.URL) {
			if e.ResponseFetchErr != nil {
				// NetworkFetchError disposition: omit the body, keep the entry.
			} else if e.ResponseBody != nil {
				condensed := CondenseJSON(e.ResponseBody)
				parts = append(parts, fmt.Sprintf("BODY: %v", condensed))
			}
		}

		lines = append(lines, strings.Join(parts, " | "))
	}
	return strings.Join(lines, "\n")
}

func queryParamsSummary(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || len(u.Query()) == 0 {
		return ""
	}
	var pairs []string
	for k, vs := range u.Query() {
		for _, v := range vs {
			pairs = append(pairs, fmt.Sprintf("%s=%s", k, v))
		}
	}
	return strings.Join(pairs, "&")
}
