package pagemap

import "fmt"

// Resolve builds the CSS selector an action call should target. At least one
// of selector/ref must be non-empty; ref shadows selector when both are
// supplied.
func Resolve(selector, ref string) (string, error) {
	if ref != "" {
		return RefSelector(ref), nil
	}
	if selector != "" {
		return selector, nil
	}
	return "", ErrSelectorMissing
}

// RefSelector is the attribute selector a ref resolves to.
func RefSelector(ref string) string {
	return fmt.Sprintf(`[data-agent-ref="%s"]`, ref)
}
