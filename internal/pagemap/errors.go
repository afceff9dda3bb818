package pagemap

import "errors"

// Error kinds per the engine's disposition table: most are swallowed inside
// the engine and never reach a caller, but the action API (resolve, click,
// type, keys, scroll, wait) surfaces SelectorMissing and DriverNotReady.
var (
	// ErrSelectorMissing is returned by Resolve when neither a selector nor a ref is given.
	ErrSelectorMissing = errors.New("pagemap: selector or ref is required")

	// ErrElementNotFound is returned by driver operations that cannot locate a selector.
	ErrElementNotFound = errors.New("pagemap: element not found")

	// ErrScriptEvaluation marks a collector script failure. The engine does not
	// propagate this - GeneratePageMap swallows it and returns an empty map.
	ErrScriptEvaluation = errors.New("pagemap: collector script evaluation failed")

	// ErrDriverNotReady is returned when evalInPage is invoked before the driver has started.
	ErrDriverNotReady = errors.New("pagemap: driver not ready")
)
