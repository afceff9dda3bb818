package pagemap

import (
	"regexp"
	"strings"
)

var paginationWords = map[string]bool{
	"next": true, "prev": true, "previous": true,
}

var digitsOnlyRe = regexp.MustCompile(`^\d+$`)

// isPaginationLink is the carve-out for D2: a short <a> that looks like a
// page-number or next/prev control never gets dropped as a text-subset of
// its container.
func isPaginationLink(e PageElement) bool {
	if e.Tag != "a" {
		return false
	}
	text := strings.TrimSpace(e.EffectiveText())
	if paginationWords[strings.ToLower(text)] {
		return true
	}
	if len(text) == 0 || len(text) > 3 {
		return false
	}
	return digitsOnlyRe.MatchString(text)
}

// qualityScore implements additive scoring used to break
// ties between candidate survivors of the same dedup group.
func qualityScore(e PageElement) int {
	score := 0
	if e.Text != "" {
		score += 100
	} else if e.ChildrenText != "" {
		score += 50
	}

	switch e.Tag {
	case "a":
		score += 50
	case "button":
		score += 45
	case "input":
		score += 40
	case "select":
		score += 35
	case "textarea":
		score += 30
	case "label":
		score += 25
	case "p":
		score += 20
	case "span":
		score += 15
	case "div":
		score += 10
	default:
		score += 5
	}

	if e.Attributes.ID != "" {
		score += 20
	}
	if e.Attributes.Href != "" {
		score += 15
	}
	if e.Attributes.AriaLabel != "" {
		score += 10
	}
	if e.Attributes.Type != "" {
		score += 8
	}
	if e.Attributes.Name != "" {
		score += 5
	}
	if e.Attributes.Value != "" {
		score += 5
	}

	if len(e.CSSSelector) > 100 {
		score -= 5
	}
	if len(e.CSSSelector) > 200 {
		score -= 5
	}

	return score
}

// isDescendantSelector reports whether descendant's selector nests under
// parent's, used as the pairwise descendant test for D1 and D2.
func isDescendantSelector(parent, descendant string) bool {
	if strings.HasPrefix(descendant, parent+" ") || strings.HasPrefix(descendant, parent+">") {
		return true
	}
	return strings.Contains(descendant, parent) && len(descendant) > len(parent)
}

// Deduplicate runs D1 (identical-text grouping) then D2 (subset-text
// nesting) over the interactive bucket only. The content
// bucket passes through unchanged - dedup is an interactive-only concern.
func Deduplicate(elements []PageElement) []PageElement {
	interactive := make([]PageElement, 0, len(elements))
	content := make([]PageElement, 0, len(elements))
	for _, e := range elements {
		if e.IsInteractive {
			interactive = append(interactive, e)
		} else {
			content = append(content, e)
		}
	}

	survivors := d1(interactive)
	survivors = d2(survivors)

	out := make([]PageElement, 0, len(survivors)+len(content))
	out = append(out, survivors...)
	out = append(out, content...)
	return out
}

func d1(elements []PageElement) []PageElement {
	groups := make(map[string][]int)
	order := make([]string, 0)
	for i, e := range elements {
		key := e.EffectiveText()
		if key == "" {
			continue
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	dropped := make(map[int]bool)
	for _, key := range order {
		idxs := groups[key]
		if len(idxs) < 2 {
			continue
		}

		// Sort ascending by selector length: shorter selectors sit higher in the DOM.
		sorted := make([]int, len(idxs))
		copy(sorted, idxs)
		for a := 0; a < len(sorted); a++ {
			for b := a + 1; b < len(sorted); b++ {
				if len(elements[sorted[b]].CSSSelector) < len(elements[sorted[a]].CSSSelector) {
					sorted[a], sorted[b] = sorted[b], sorted[a]
				}
			}
		}

		for a := 0; a < len(sorted); a++ {
			if dropped[sorted[a]] {
				continue
			}
			for b := a + 1; b < len(sorted); b++ {
				if dropped[sorted[b]] {
					continue
				}
				pi, di := sorted[a], sorted[b]
				parent, desc := elements[pi], elements[di]
				if !isDescendantSelector(parent.CSSSelector, desc.CSSSelector) {
					continue
				}
				pNative, dNative := parent.IsNativeInteractive(), desc.IsNativeInteractive()
				switch {
				case pNative && !dNative:
					dropped[di] = true
				case dNative && !pNative:
					dropped[pi] = true
				default:
					if qualityScore(parent) >= qualityScore(desc) {
						dropped[di] = true
					} else {
						dropped[pi] = true
					}
				}
			}
		}

		// After pairwise resolution, if more than one group member survives,
		// keep only the single highest-quality one.
		remaining := make([]int, 0, len(sorted))
		for _, idx := range sorted {
			if !dropped[idx] {
				remaining = append(remaining, idx)
			}
		}
		if len(remaining) > 1 {
			best := remaining[0]
			for _, idx := range remaining[1:] {
				if qualityScore(elements[idx]) > qualityScore(elements[best]) {
					best = idx
				}
			}
			for _, idx := range remaining {
				if idx != best {
					dropped[idx] = true
				}
			}
		}
	}

	out := make([]PageElement, 0, len(elements))
	for i, e := range elements {
		if !dropped[i] {
			out = append(out, e)
		}
	}
	return out
}

func d2(elements []PageElement) []PageElement {
	dropped := make(map[int]bool)
	for i, child := range elements {
		if isPaginationLink(child) {
			continue
		}
		childText := child.EffectiveText()
		if childText == "" {
			continue
		}
		for j, parent := range elements {
			if i == j {
				continue
			}
			if !isDescendantSelector(parent.CSSSelector, child.CSSSelector) {
				continue
			}
			parentText := parent.EffectiveText()
			if parentText == "" || parentText == childText {
				continue
			}
			if strings.Contains(parentText, childText) {
				dropped[i] = true
				break
			}
		}
	}

	out := make([]PageElement, 0, len(elements))
	for i, e := range elements {
		if !dropped[i] {
			out = append(out, e)
		}
	}
	return out
}
