package pagemap

import "testing"

func el(ref, tag, selector, text string, interactive bool) PageElement {
	return PageElement{
		Ref:           ref,
		Tag:           tag,
		Text:          text,
		CSSSelector:   selector,
		IsInteractive: interactive,
	}
}

func TestIsPaginationLink(t *testing.T) {
	cases := []struct {
		name string
		e    PageElement
		want bool
	}{
		{"digit page number", el("1", "a", "a:nth-child(1)", "3", true), true},
		{"next word", el("1", "a", "a", "Next", true), true},
		{"previous word", el("1", "a", "a", "previous", true), true},
		{"too long", el("1", "a", "a", "Page 3", true), false},
		{"not a link", el("1", "button", "button", "3", true), false},
		{"empty text", el("1", "a", "a", "", true), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := isPaginationLink(c.e); got != c.want {
				t.Errorf("isPaginationLink(%+v) = %v, want %v", c.e, got, c.want)
			}
		})
	}
}

func TestQualityScoreTagOrdering(t *testing.T) {
	a := el("1", "a", "a", "Click", true)
	div := el("2", "div", "div", "Click", true)
	if qualityScore(a) <= qualityScore(div) {
		t.Errorf("expected <a> to outscore <div> for identical text")
	}
}

func TestQualityScoreTextBeatsNoText(t *testing.T) {
	withText := el("1", "div", "div", "hello", false)
	withoutText := PageElement{Ref: "2", Tag: "div", CSSSelector: "div"}
	if qualityScore(withText) <= qualityScore(withoutText) {
		t.Errorf("expected direct text to outscore no text")
	}
}

func TestIsDescendantSelector(t *testing.T) {
	cases := []struct {
		parent, descendant string
		want               bool
	}{
		{"div.card", "div.card button", true},
		{"div.card", "div.card>span", true},
		{"div.card", "div.other", false},
		{"nav", "nav ul li a", true},
	}
	for _, c := range cases {
		if got := isDescendantSelector(c.parent, c.descendant); got != c.want {
			t.Errorf("isDescendantSelector(%q, %q) = %v, want %v", c.parent, c.descendant, got, c.want)
		}
	}
}

func TestDeduplicateCollapsesIdenticalText(t *testing.T) {
	elements := []PageElement{
		el("0", "div", "div.card", "Submit", true),
		el("1", "button", "div.card button", "Submit", true),
	}
	out := Deduplicate(elements)
	if len(out) != 1 {
		t.Fatalf("expected 1 survivor, got %d: %+v", len(out), out)
	}
	if out[0].Tag != "button" {
		t.Errorf("expected native interactive <button> to survive, got %s", out[0].Tag)
	}
}

func TestDeduplicatePreservesPaginationLinks(t *testing.T) {
	container := el("0", "nav", "nav.pagination", "1 2 3", true)
	page1 := el("1", "a", "nav.pagination a:nth-child(1)", "1", true)
	page2 := el("2", "a", "nav.pagination a:nth-child(2)", "2", true)
	out := Deduplicate([]PageElement{container, page1, page2})

	refs := map[string]bool{}
	for _, e := range out {
		refs[e.Ref] = true
	}
	if !refs["1"] || !refs["2"] {
		t.Errorf("pagination links were dropped: %+v", out)
	}
}

func TestDeduplicateLeavesContentBucketUntouched(t *testing.T) {
	content := PageElement{Ref: "0", Tag: "p", Text: "hello", CSSSelector: "p"}
	out := Deduplicate([]PageElement{content})
	if len(out) != 1 {
		t.Fatalf("content element should pass through unchanged, got %+v", out)
	}
}

func TestD2DropsSubsetText(t *testing.T) {
	parent := el("0", "div", "div.card", "Submit your order now", true)
	child := el("1", "span", "div.card span", "Submit", true)
	out := d2([]PageElement{parent, child})
	if len(out) != 1 || out[0].Ref != "0" {
		t.Errorf("expected child text-subset of parent to be dropped, got %+v", out)
	}
}
