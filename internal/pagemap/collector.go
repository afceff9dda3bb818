package pagemap

import (
	"context"
	"fmt"
	"log"

	"github.com/agentic-web/pagemap-mcp/internal/driver"
)

// collectorScript is the In-Page Collector: a single self-contained script
// evaluated inside the page. It walks the DOM once (Phase B), classifies
// visibility and interactivity, computes a hierarchical CSS selector per
// kept element (Phase C), and tags each one with data-agent-ref. Marker
// cleanup (Phase A) runs first so a stale map never leaves residue.
//
// %d is the content-bucket cap.
const collectorScript = `
(() => {
  const STATIC_TAGS = new Set(['p','h1','h2','h3','h4','h5','h6','li','th','td','tr','table','label','caption','span','strong','b','em','i','u','small','mark','dl','dt','dd','img','div']);
  const NATIVE_INTERACTIVE_TAGS = new Set(['a','button','input','select','textarea']);
  const HIDDEN_CLASS_HINTS = ['multiselect__option','multiselect__element','dropdown-item','option','select-option'];
  const HIDDEN_ANCESTOR_CLASS_HINTS = ['multiselect__content','multiselect__content-wrapper','dropdown-menu','select-dropdown'];
  const HIDDEN_ANCESTOR_ROLES = new Set(['listbox','menu']);
  const HIDDEN_DATA_ATTRS = ['data-select','data-option','data-value'];
  const INTERACTIVE_ROLES = new Set(['button','link','checkbox','tab']);
  const INTERACTIVE_DATA_ATTRS = ['data-select','data-click','data-toggle','data-action','data-selected','data-deselect','data-option','data-value'];
  const INTERACTIVE_CLASS_HINTS = ['multiselect','dropdown','select','picker','chooser','toggle','switch','slider','accordion','tab','menu','popup','modal','dialog','overlay','clickable','selectable','interactive','control','widget','component'];
  const GENERIC_TAGS = new Set(['div','span','strong','b','em','i','u','small','mark','p']);
  const FRAMEWORK_HASH_RE = /^[a-zA-Z0-9]{5,8}$/;
  const ATOMIC_CLASS_PREFIX_RE = /^(text-|bg-|border-|shadow-|opacity-|p-\d|m-\d|pt-|pb-|pl-|pr-|px-|py-|mt-|mb-|ml-|mr-|mx-|my-|w-\d|h-\d|min-|max-|gap-\d|space-)/;
  const VUETIFY_UTILITY_RE = /^(v-theme--|v-btn--density|v-btn--size|v-btn--variant)/;

  const MAX_TEXT = 300;
  const MAX_CHILDREN_TEXT = 200;
  const CONTENT_CAP = %d;

  const collapse = s => (s || '').replace(/\s+/g, ' ').trim();

  const classString = el => (el.className && el.className.toString) ? el.className.toString() : (el.getAttribute('class') || '');

  function directText(el) {
    let out = '';
    for (const node of el.childNodes) {
      if (node.nodeType === 3) out += node.textContent;
    }
    return collapse(out).slice(0, MAX_TEXT);
  }

  function childrenDirectText(el) {
    const parts = [];
    for (const child of el.children) {
      const t = directText(child);
      if (t) parts.push(t);
    }
    return collapse(parts.join(' ')).slice(0, MAX_CHILDREN_TEXT);
  }

  function hasMeaningfulClass(el) {
    for (const c of el.classList) {
      if (c.length > 3 && !FRAMEWORK_HASH_RE.test(c) && !/^(css-|sc-|_)/.test(c)) return true;
    }
    return false;
  }

  function isHiddenInteractiveCandidate(el) {
    const cls = classString(el);
    for (const hint of HIDDEN_CLASS_HINTS) {
      if (cls.includes(hint)) return true;
    }
    const role = el.getAttribute('role') || '';
    if (role === 'option' || role === 'menuitem') return true;
    for (const attr of HIDDEN_DATA_ATTRS) {
      if (el.hasAttribute(attr)) return true;
    }
    let anc = el.parentElement;
    for (let depth = 0; anc && depth < 3; depth++, anc = anc.parentElement) {
      const ancCls = classString(anc);
      for (const hint of HIDDEN_ANCESTOR_CLASS_HINTS) {
        if (ancCls.includes(hint)) return true;
      }
      const ancRole = anc.getAttribute ? (anc.getAttribute('role') || '') : '';
      if (HIDDEN_ANCESTOR_ROLES.has(ancRole)) return true;
    }
    return false;
  }

  function isVisible(el) {
    const style = getComputedStyle(el);
    if (style.display === 'none' || style.visibility === 'hidden') return false;
    const rect = el.getBoundingClientRect();
    const boxNonZero = rect.width > 0 && rect.height > 0;
    if (boxNonZero) return true;
    if (isHiddenInteractiveCandidate(el)) {
      return style.display !== 'none' || boxNonZero || directText(el) !== '';
    }
    return false;
  }

  function isInteractive(el, tag) {
    if (NATIVE_INTERACTIVE_TAGS.has(tag)) return true;
    if (el.hasAttribute('onclick')) return true;
    if (el.getAttribute('contenteditable') === 'true') return true;
    const role = el.getAttribute('role') || '';
    if (INTERACTIVE_ROLES.has(role)) return true;
    if (el.getAttribute('tabindex') === '0') return true;
    for (const attr of INTERACTIVE_DATA_ATTRS) {
      if (el.hasAttribute(attr)) return true;
    }
    const cls = classString(el);
    for (const hint of INTERACTIVE_CLASS_HINTS) {
      if (cls.includes(hint)) return true;
    }
    const style = getComputedStyle(el);
    if (style.cursor === 'pointer' && !GENERIC_TAGS.has(tag)) {
      const discriminator = directText(el) !== '' || !!el.id ||
        (el.getAttribute('aria-label') || '') !== '' ||
        (el.getAttribute('title') || '') !== '' ||
        hasMeaningfulClass(el);
      if (discriminator) return true;
    }
    return false;
  }

  function meaningfulClasses(el) {
    const kept = [];
    for (const c of el.classList) {
      if (/[\[\]\/:]/.test(c)) continue;
      if (VUETIFY_UTILITY_RE.test(c)) continue;
      if (ATOMIC_CLASS_PREFIX_RE.test(c)) continue;
      if (c.length <= 2) continue;
      kept.push(c);
      if (kept.length >= 3) break;
    }
    return kept;
  }

  function nthChildIndex(el) {
    if (!el.parentElement) return null;
    let sameTag = false;
    for (const sib of el.parentElement.children) {
      if (sib !== el && sib.tagName === el.tagName) { sameTag = true; break; }
    }
    if (!sameTag) return null;
    let idx = 1;
    let sib = el;
    while ((sib = sib.previousElementSibling)) idx++;
    return idx;
  }

  function cssSelectorFor(el) {
    const parts = [];
    let cur = el;
    let depth = 0;
    while (cur && cur.nodeType === 1 && depth < 5) {
      let part = cur.tagName.toLowerCase();
      if (cur.id) part += '#' + cur.id;
      for (const c of meaningfulClasses(cur)) part += '.' + c;
      const nth = nthChildIndex(cur);
      if (nth !== null) part += ':nth-child(' + nth + ')';
      parts.unshift(part);
      if (cur === document.documentElement) break;
      cur = cur.parentElement;
      depth++;
    }
    return parts.join(' > ');
  }

  function attrsFor(el) {
    return {
      id: el.id || '',
      ariaLabel: el.getAttribute('aria-label') || '',
      placeholder: el.getAttribute('placeholder') || '',
      className: classString(el),
      value: el.value !== undefined ? String(el.value) : '',
      name: el.getAttribute('name') || '',
      type: el.getAttribute('type') || '',
      href: el.getAttribute('href') || '',
      title: el.getAttribute('title') || '',
      disabled: !!el.disabled
    };
  }

  function dataAttrsFor(el) {
    const out = {};
    for (const attr of el.attributes) {
      if (attr.name.indexOf('data-') === 0 && attr.name !== 'data-agent-ref') {
        out[attr.name] = attr.value;
      }
    }
    return out;
  }

  function tableCellsFor(el, tag) {
    if (tag !== 'tr') return [];
    const cells = [];
    el.querySelectorAll('td, th').forEach(td => {
      cells.push({
        text: directText(td),
        dataLabel: td.getAttribute('data-label') || '',
        title: td.getAttribute('title') || ''
      });
    });
    return cells;
  }

  document.querySelectorAll('[data-agent-ref]').forEach(n => n.removeAttribute('data-agent-ref'));

  const interactiveEls = [];
  const contentEls = [];
  let contentCount = 0;

  function process(el) {
    const tag = el.tagName.toLowerCase();
    if (!STATIC_TAGS.has(tag) && !NATIVE_INTERACTIVE_TAGS.has(tag)) return;
    if (!isVisible(el)) return;

    const interactive = isInteractive(el, tag);
    let text = directText(el);
    if (tag === 'img' && !text) {
      text = collapse(el.getAttribute('alt') || '');
    }
    let childrenText = '';
    if (interactive && !text) {
      childrenText = childrenDirectText(el);
    }

    const hasID = !!el.id;
    let hasData = false;
    for (const attr of el.attributes) {
      if (attr.name.indexOf('data-') === 0 && attr.name !== 'data-agent-ref') { hasData = true; break; }
    }
    const keep = text !== '' || childrenText !== '' || interactive || hasID || hasData || tag === 'tr' || tag === 'img';
    if (!keep) return;

    if (!interactive) {
      if (contentCount >= CONTENT_CAP) return;
      contentCount++;
    }

    const record = {
      el: el,
      tag: tag,
      text: text,
      childrenText: childrenText,
      attributes: attrsFor(el),
      dataAttributes: dataAttrsFor(el),
      tableCells: tableCellsFor(el, tag),
      isInteractive: interactive
    };
    if (interactive) interactiveEls.push(record); else contentEls.push(record);
  }

  const root = document.body || document.documentElement;
  const walker = document.createTreeWalker(root, NodeFilter.SHOW_ELEMENT);
  let node = walker.currentNode;
  try { process(node); } catch (e) { /* skip on error, continue traversal */ }
  while ((node = walker.nextNode())) {
    try { process(node); } catch (e) { /* per-element failures never abort the walk */ }
  }

  const combined = interactiveEls.concat(contentEls);
  const out = [];
  for (let i = 0; i < combined.length; i++) {
    const rec = combined[i];
    let selector = '';
    try { selector = cssSelectorFor(rec.el); } catch (e) { selector = rec.tag; }
    const ref = String(i);
    try { rec.el.setAttribute('data-agent-ref', ref); } catch (e) { /* detached node */ }
    out.push({
      ref: ref,
      tag: rec.tag,
      text: rec.text,
      childrenText: rec.childrenText,
      attributes: rec.attributes,
      dataAttributes: rec.dataAttributes,
      tableCells: rec.tableCells,
      isInteractive: rec.isInteractive,
      cssSelector: selector,
      index: i
    });
  }
  return out;
})()
`

// Collect runs the in-page Collector and decodes its output into the
// element model. A script-evaluation failure is logged as
// ErrScriptEvaluation and swallowed: the caller gets an empty slice, not an error,
// so GeneratePageMap can still return a (empty) map instead of failing the
// whole call.
func Collect(ctx context.Context, drv driver.Driver, contentCap int) ([]PageElement, error) {
	if contentCap <= 0 {
		contentCap = 500
	}
	script := fmt.Sprintf(collectorScript, contentCap)

	var elements []PageElement
	if err := drv.EvalInPage(ctx, script, &elements); err != nil {
		log.Printf("%v: %v", ErrScriptEvaluation, err)
		return []PageElement{}, nil
	}
	if elements == nil {
		elements = []PageElement{}
	}
	return elements, nil
}
