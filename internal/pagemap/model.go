package pagemap

// Attributes is the fixed attribute set read off every kept element.
// Missing values are the empty string (or false for Disabled).
type Attributes struct {
	ID          string `json:"id"`
	AriaLabel   string `json:"ariaLabel"`
	Placeholder string `json:"placeholder"`
	ClassName   string `json:"className"`
	Value       string `json:"value"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Href        string `json:"href"`
	Title       string `json:"title"`
	Disabled    bool   `json:"disabled"`
}

// TableCell is one descendant td/th of a kept tr element.
type TableCell struct {
	Text      string `json:"text"`
	DataLabel string `json:"dataLabel"`
	Title     string `json:"title"`
}

// PageElement is one row in a PageMap, produced by the Collector and carried
// through Deduplicator, Compressor and Formatter unchanged except for
// text truncation and exclusion.
type PageElement struct {
	Ref            string            `json:"ref"`
	Tag            string            `json:"tag"`
	Text           string            `json:"text"`
	ChildrenText   string            `json:"childrenText"`
	Attributes     Attributes        `json:"attributes"`
	DataAttributes map[string]string `json:"dataAttributes"`
	TableCells     []TableCell       `json:"tableCells"`
	IsInteractive  bool              `json:"isInteractive"`
	CSSSelector    string            `json:"cssSelector"`
	Index          int               `json:"index"`
}

// EffectiveText is Text if non-empty, else ChildrenText. Used throughout
// the Deduplicator and by pagination-preservation checks.
func (e PageElement) EffectiveText() string {
	if e.Text != "" {
		return e.Text
	}
	return e.ChildrenText
}

// IsNativeInteractive reports whether the element's tag is one of the
// natively-interactive HTML tags (a, button, input, select, textarea).
func (e PageElement) IsNativeInteractive() bool {
	switch e.Tag {
	case "a", "button", "input", "select", "textarea":
		return true
	default:
		return false
	}
}

// PageMap is the engine's full output: the full collected element list plus
// the three rendered text blocks.
type PageMap struct {
	Elements        []PageElement `json:"elements"`
	InteractiveText string        `json:"interactiveText"`
	ContentText     string        `json:"contentText"`
	APIText         string        `json:"apiText"`
}

// renderItem is one output slot: either an element or a compressedRun, the
// synthetic, output-only marker replacing a long run of structurally
// identical siblings.
type renderItem struct {
	element    *PageElement
	compressed *compressedRun
}

type compressedRun struct {
	pattern   string
	count     int
	shown     int
	showFirst []PageElement
	showLast  []PageElement
}
