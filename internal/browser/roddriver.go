package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/agentic-web/pagemap-mcp/internal/driver"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
)

// RodDriver implements driver.Driver over a single *rod.Page. It is the only
// browser-control adapter the page-map engine is ever handed; session
// lifetime and the page it wraps are owned entirely by SessionManager.
type RodDriver struct {
	page *rod.Page
}

// NewRodDriver wraps an attached page for use by the pagemap engine.
func NewRodDriver(page *rod.Page) *RodDriver {
	return &RodDriver{page: page}
}

var _ driver.Driver = (*RodDriver)(nil)

// ErrNotReady mirrors pagemap.ErrDriverNotReady without importing the
// pagemap package (which already imports driver, so the reverse would cycle).
var ErrNotReady = fmt.Errorf("roddriver: driver not ready")

// ErrElementNotFound mirrors pagemap.ErrElementNotFound for the same reason.
var ErrElementNotFound = fmt.Errorf("roddriver: element not found")

func (d *RodDriver) EvalInPage(ctx context.Context, script string, out interface{}) error {
	if d.page == nil {
		return ErrNotReady
	}
	result, err := d.page.Context(ctx).Eval(script)
	if err != nil {
		return fmt.Errorf("roddriver: eval failed: %w", err)
	}
	if out == nil {
		return nil
	}
	raw, err := json.Marshal(result.Value.Val())
	if err != nil {
		return fmt.Errorf("roddriver: re-marshal eval result: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("roddriver: decode eval result: %w", err)
	}
	return nil
}

func (d *RodDriver) Click(ctx context.Context, selector string) error {
	el, err := d.page.Context(ctx).Timeout(5 * time.Second).Element(selector)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	if err := el.Click("left", 1); err != nil {
		return fmt.Errorf("roddriver: click %s: %w", selector, err)
	}
	return nil
}

func (d *RodDriver) Type(ctx context.Context, selector, text string, clearFirst bool) error {
	el, err := d.page.Context(ctx).Timeout(5 * time.Second).Element(selector)
	if err != nil {
		return fmt.Errorf("roddriver: element not found: %s", selector)
	}
	if clearFirst {
		if err := el.SelectAllText(); err == nil {
			_ = el.Input("")
		}
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("roddriver: type into %s: %w", selector, err)
	}
	return nil
}

func (d *RodDriver) PressKeys(ctx context.Context, selector string, keys string) error {
	if selector != "" {
		el, err := d.page.Context(ctx).Timeout(5 * time.Second).Element(selector)
		if err != nil {
			return fmt.Errorf("roddriver: element not found: %s", selector)
		}
		if err := el.Focus(); err != nil {
			return fmt.Errorf("roddriver: focus %s: %w", selector, err)
		}
	}
	for _, r := range keys {
		if err := d.page.Context(ctx).Keyboard.Press(input.Key(r)); err != nil {
			return fmt.Errorf("roddriver: press key %q: %w", r, err)
		}
	}
	return nil
}

func (d *RodDriver) ScrollToElement(ctx context.Context, selector string) error {
	el, err := d.page.Context(ctx).Timeout(5 * time.Second).Element(selector)
	if err != nil {
		return fmt.Errorf("roddriver: element not found: %s", selector)
	}
	if err := el.ScrollIntoView(); err != nil {
		return fmt.Errorf("roddriver: scroll to %s: %w", selector, err)
	}
	return nil
}

func (d *RodDriver) WaitForElement(ctx context.Context, selector string, timeout time.Duration) error {
	_, err := d.page.Context(ctx).Timeout(timeout).Element(selector)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return nil
}

func (d *RodDriver) Exists(ctx context.Context, selector string) (bool, error) {
	has, _, err := d.page.Context(ctx).Has(selector)
	if err != nil {
		return false, fmt.Errorf("roddriver: exists check %s: %w", selector, err)
	}
	return has, nil
}

// WaitForChange polls selector's outerHTML at a fixed 500ms interval until it
// changes or timeout elapses. Returns false, nil on timeout without a change.
func (d *RodDriver) WaitForChange(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	el, err := d.page.Context(ctx).Timeout(5 * time.Second).Element(selector)
	if err != nil {
		return false, fmt.Errorf("roddriver: element not found: %s", selector)
	}
	before, err := el.HTML()
	if err != nil {
		return false, fmt.Errorf("roddriver: read html %s: %w", selector, err)
	}

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-ticker.C:
			current, err := d.page.Context(ctx).Timeout(2*time.Second).Element(selector)
			if err != nil {
				// the element disappeared - that is a change.
				return true, nil
			}
			after, err := current.HTML()
			if err != nil {
				continue
			}
			if after != before {
				return true, nil
			}
			if time.Now().After(deadline) {
				return false, nil
			}
		}
	}
}

func (d *RodDriver) GetURL(ctx context.Context) (string, error) {
	info, err := d.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("roddriver: page info: %w", err)
	}
	return info.URL, nil
}

func (d *RodDriver) GetTitle(ctx context.Context) (string, error) {
	info, err := d.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("roddriver: page info: %w", err)
	}
	return info.Title, nil
}

func (d *RodDriver) ScreenshotPNG(ctx context.Context) ([]byte, error) {
	data, err := d.page.Context(ctx).Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("roddriver: screenshot: %w", err)
	}
	return data, nil
}

func (d *RodDriver) ResourceTimingEntries(ctx context.Context) ([]driver.ResourceTimingEntry, error) {
	const js = `
	() => performance.getEntriesByType('resource').map(e => ({
		url: e.name,
		initiatorType: e.initiatorType,
		duration: e.duration,
		size: e.transferSize || 0,
		startTime: e.startTime,
		responseEnd: e.responseEnd
	}))
	`
	var entries []driver.ResourceTimingEntry
	if err := d.EvalInPage(ctx, js, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (d *RodDriver) Cookies(ctx context.Context) ([]driver.Cookie, error) {
	res, err := proto.NetworkGetCookies{}.Call(d.page.Context(ctx))
	if err != nil {
		return nil, fmt.Errorf("roddriver: get cookies: %w", err)
	}
	out := make([]driver.Cookie, 0, len(res.Cookies))
	for _, c := range res.Cookies {
		out = append(out, driver.Cookie{Name: c.Name, Value: c.Value})
	}
	return out, nil
}
