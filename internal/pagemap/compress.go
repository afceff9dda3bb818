package pagemap

import (
	"regexp"
	"sort"
	"strings"
)

// CompressionOptions pins the thresholds so tests can override them
// rather than hard-code; zero values fall back to the package defaults.
type CompressionOptions struct {
	Threshold int // minimum run length before compression fires (default 15)
	ShowFirst int // leading samples kept around a marker (default 10)
	ShowLast  int // trailing samples kept around a marker (default 2)
}

func (o CompressionOptions) withDefaults() CompressionOptions {
	if o.Threshold <= 0 {
		o.Threshold = 15
	}
	if o.ShowFirst <= 0 {
		o.ShowFirst = 10
	}
	if o.ShowLast <= 0 {
		o.ShowLast = 2
	}
	return o
}

func elementSignature(e PageElement) string {
	keys := make([]string, 0, len(e.DataAttributes))
	for k := range e.DataAttributes {
		if k == "data-agent-ref" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return e.Tag + ":" + strings.Join(keys, ",")
}

var (
	idSuffixRe     = regexp.MustCompile(`[_-][A-Za-z0-9]{6,}$`)
	standaloneIDRe = regexp.MustCompile(`#[A-Za-z0-9]{8,}\b`)
	nthChildRe     = regexp.MustCompile(`:nth-child\(\d+\)`)
	trailingNumRe  = regexp.MustCompile(`\d+$`)
)

// cssPattern canonicalizes variable bits of a selector to "*" so
// structurally identical siblings collapse to one pattern.
func cssPattern(selector string) string {
	p := idSuffixRe.ReplaceAllString(selector, "*")
	p = standaloneIDRe.ReplaceAllString(p, "#*")
	p = nthChildRe.ReplaceAllString(p, ":nth-child(*)")
	p = trailingNumRe.ReplaceAllString(p, "*")
	return p
}

// Compress runs C1 then falls back to C2. It is applied independently to the interactive
// bucket (post-dedup) and the content bucket.
func Compress(elements []PageElement, opts CompressionOptions) []renderItem {
	opts = opts.withDefaults()
	if items := compressC1(elements, opts); items != nil {
		return items
	}
	return compressC2(elements, opts)
}

// compressC1 detects repeating multi-element sequences: fixed-shape runs of
// N sibling elements, such as every row of a list rendering as N elements.
func compressC1(elements []PageElement, opts CompressionOptions) []renderItem {
	n := len(elements)
	if n < 6 {
		return nil
	}
	maxL := n / 3
	if maxL > 10 {
		maxL = 10
	}
	if maxL < 2 {
		return nil
	}

	type candidate struct {
		length   int
		maxCount int
	}
	var best *candidate

	for l := 2; l <= maxL; l++ {
		chunkCount := n / l
		if chunkCount == 0 {
			continue
		}
		freq := make(map[string]int)
		for c := 0; c < chunkCount; c++ {
			chunk := elements[c*l : (c+1)*l]
			sig := chunkSignature(chunk)
			freq[sig]++
		}
		maxCount := 0
		for _, count := range freq {
			if count > maxCount {
				maxCount = count
			}
		}
		needed := opts.Threshold / l
		if opts.Threshold%l != 0 {
			needed++
		}
		if needed < 3 {
			needed = 3
		}
		if maxCount < needed {
			continue
		}
		if best == nil || maxCount > best.maxCount {
			best = &candidate{length: l, maxCount: maxCount}
		}
	}

	if best == nil || best.maxCount < 3 {
		return nil
	}

	l := best.length
	chunkCount := n / l
	chunkSigs := make([]string, chunkCount)
	for c := 0; c < chunkCount; c++ {
		chunkSigs[c] = chunkSignature(elements[c*l : (c+1)*l])
	}

	var out []renderItem
	c := 0
	for c < chunkCount {
		runStart := c
		for c+1 < chunkCount && chunkSigs[c+1] == chunkSigs[runStart] {
			c++
		}
		runLen := c - runStart + 1
		if runLen >= 3 {
			elemStart := runStart * l
			elemEnd := (c + 1) * l
			out = append(out, buildMarker(elements[elemStart:elemEnd], chunkSigs[runStart], opts, l)...)
		} else {
			for chunk := runStart; chunk <= c; chunk++ {
				for _, e := range elements[chunk*l : (chunk+1)*l] {
					ecopy := e
					out = append(out, renderItem{element: &ecopy})
				}
			}
		}
		c++
	}

	// Trailing remainder that didn't fit a full chunk passes through untouched.
	for i := chunkCount * l; i < n; i++ {
		ecopy := elements[i]
		out = append(out, renderItem{element: &ecopy})
	}

	return out
}

func chunkSignature(chunk []PageElement) string {
	sigs := make([]string, len(chunk))
	for i, e := range chunk {
		sigs[i] = elementSignature(e)
	}
	return strings.Join(sigs, "|")
}

func buildMarker(run []PageElement, pattern string, opts CompressionOptions, lchunk int) []renderItem {
	count := len(run)
	showFirstN := opts.ShowFirst * lchunk
	showLastN := opts.ShowLast * lchunk
	// A run meeting the threshold always gets a marker, even when the
	// first/last samples cover every element in it — only the count of
	// elements actually elided should ever be zero, not the marker itself.
	if showFirstN > count {
		showFirstN = count
	}
	if showFirstN+showLastN > count {
		showLastN = count - showFirstN
	}

	first := append([]PageElement{}, run[:showFirstN]...)
	last := append([]PageElement{}, run[count-showLastN:]...)

	out := make([]renderItem, 0, len(first)+len(last)+1)
	for _, e := range first {
		ecopy := e
		out = append(out, renderItem{element: &ecopy})
	}
	out = append(out, renderItem{compressed: &compressedRun{
		pattern:   pattern,
		count:     count,
		shown:     len(first) + len(last),
		showFirst: first,
		showLast:  last,
	}})
	for _, e := range last {
		ecopy := e
		out = append(out, renderItem{element: &ecopy})
	}
	return out
}

// compressC2 is the fallback: maximal runs of consecutive elements sharing
// the same canonicalized CSS pattern.
func compressC2(elements []PageElement, opts CompressionOptions) []renderItem {
	n := len(elements)
	out := make([]renderItem, 0, n)

	i := 0
	for i < n {
		pattern := cssPattern(elements[i].CSSSelector)
		j := i
		for j+1 < n && cssPattern(elements[j+1].CSSSelector) == pattern {
			j++
		}
		runLen := j - i + 1
		if runLen >= opts.Threshold {
			out = append(out, buildMarker(elements[i:j+1], pattern, opts, 1)...)
		} else {
			for k := i; k <= j; k++ {
				ecopy := elements[k]
				out = append(out, renderItem{element: &ecopy})
			}
		}
		i = j + 1
	}
	return out
}
