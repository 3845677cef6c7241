// Package query implements the query evaluator of spec.md §4.C: it walks
// a ParsedSelector's parts against a root node, honoring capture marks,
// strict uniqueness, and the per-call engine-result cache.
package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/webdriver-labs/domrunner/pkg/dom"
	"github.com/webdriver-labs/domrunner/pkg/errkind"
	"github.com/webdriver-labs/domrunner/pkg/registry"
	"github.com/webdriver-labs/domrunner/pkg/selector"
)

// match is spec.md §3's ElementMatch: an element plus the capture element
// propagated forward from an earlier, marked part.
type match struct {
	element *dom.Node
	capture *dom.Node // nil means "none"
}

func (m match) projected() *dom.Node {
	if m.capture != nil {
		return m.capture
	}
	return m.element
}

type cacheKey struct {
	element   *dom.Node
	partIndex int
}

// Evaluator executes ParsedSelectors against a Document. Its per-call
// cache and computed-style cache are scoped by Begin/End brackets
// (spec.md §4.C, §9): "Begin/end hooks on the evaluator bracket a single
// top-level call to allow opportunistic caching ... that is invalidated
// between calls."
type Evaluator struct {
	reg   *registry.Registry
	cache map[cacheKey][]*dom.Node
	style *dom.StyleCache
}

// New creates an Evaluator bound to a registry.
func New(reg *registry.Registry) *Evaluator {
	return &Evaluator{reg: reg}
}

// Begin opens a new cache scope. Callers must pair every Begin with an
// End, including on error paths — see WithScope for a guard that
// guarantees this.
func (e *Evaluator) Begin() {
	e.cache = make(map[cacheKey][]*dom.Node)
	e.style = dom.NewStyleCache()
}

// End tears down the current cache scope.
func (e *Evaluator) End() {
	e.cache = nil
	e.style = nil
}

// WithScope runs fn inside a Begin/End bracket, tearing the scope down
// even if fn panics or returns an error — the scope guard spec.md §9
// recommends ("implementers may use a scope guard to guarantee teardown
// on all exit paths including errors").
func (e *Evaluator) WithScope(fn func() error) error {
	e.Begin()
	defer e.End()
	return fn()
}

// QuerySelectorAll implements spec.md §4.C: returns every element the
// selector resolves to, deduplicated by identity over the *captured*
// element in first-encounter order (spec.md §3 invariant).
func (e *Evaluator) QuerySelectorAll(doc *dom.Document, parsed *selector.Parsed, root *dom.Node) ([]*dom.Node, error) {
	matches, err := e.resolve(doc, parsed, root)
	if err != nil {
		return nil, err
	}
	seen := make(map[*dom.Node]bool)
	var out []*dom.Node
	for _, m := range matches {
		p := m.projected()
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out, nil
}

// QuerySelector implements spec.md §4.C: returns at most one element, or
// fails with a strict-mode violation if strict is true and more than one
// distinct element survives.
func (e *Evaluator) QuerySelector(doc *dom.Document, parsed *selector.Parsed, root *dom.Node, strict bool) (*dom.Node, error) {
	all, err := e.QuerySelectorAll(doc, parsed, root)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	if strict && len(all) > 1 {
		return nil, e.strictViolation(parsed.Source, all)
	}
	return all[0], nil
}

// strictViolation builds spec.md §4.C's diagnostic: up to 10 previews
// (tag, attribute snapshot, short text) with a reverse-engineered
// selector per match.
func (e *Evaluator) strictViolation(source string, elements []*dom.Node) error {
	var b strings.Builder
	fmt.Fprintf(&b, "strict mode violation: %q resolved to %d elements:", source, len(elements))
	limit := len(elements)
	if limit > 10 {
		limit = 10
	}
	for i := 0; i < limit; i++ {
		el := elements[i]
		fmt.Fprintf(&b, "\n  %d) %s (%s)", i+1, dom.PreviewNode(el), dom.GenerateSelector(el))
	}
	if len(elements) > 10 {
		fmt.Fprintf(&b, "\n  ... and %d more", len(elements)-10)
	}
	return errkind.New(errkind.KindStrict, "%s", b.String())
}

// resolve runs the part-by-part algorithm of spec.md §4.C.
func (e *Evaluator) resolve(doc *dom.Document, parsed *selector.Parsed, root *dom.Node) ([]match, error) {
	matches := []match{{element: root}}

	for i, part := range parsed.Parts {
		base, _ := selector.IsLight(part.Engine)
		switch base {
		case "nth":
			if parsed.Capture != -1 && parsed.Capture < i {
				return nil, errkind.New(errkind.KindSelector,
					"selector %q: a capture mark cannot precede an nth= part", parsed.Source)
			}
			next, err := e.applyNth(matches, part.Body)
			if err != nil {
				return nil, err
			}
			matches = next

		case "visible":
			want, err := strconv.ParseBool(strings.TrimSpace(part.Body))
			if err != nil {
				// Anything non-boolean is treated as truthy/falsy per
				// spec.md §4.C.2 ("body is any truthy/falsy token").
				want = part.Body != "" && part.Body != "0" && part.Body != "false"
			}
			var next []match
			for _, m := range matches {
				if e.style.Visible(doc, m.element) == want {
					next = append(next, m)
				}
			}
			matches = next

		default:
			var next []match
			for _, m := range matches {
				key := cacheKey{element: m.element, partIndex: i}
				list, ok := e.cache[key]
				if !ok {
					eng, err := e.reg.Lookup(part.Engine)
					if err != nil {
						return nil, err
					}
					list, err = eng.QueryAll(doc, m.element, part)
					if err != nil {
						return nil, err
					}
					e.cache[key] = list
				}
				capture := m.capture
				if parsed.Capture != -1 && parsed.Capture == i-1 {
					capture = m.element
				}
				for _, el := range list {
					next = append(next, match{element: el, capture: capture})
				}
			}
			matches = next
		}

		if len(matches) == 0 {
			break
		}
	}
	return matches, nil
}

// applyNth implements spec.md §4.C.1: body is "0" (first), "-1" (last),
// or a non-negative integer index into the distinct elements of the
// current set, in iteration order.
//
// The original engine's positive-index branch is documented in spec.md
// §9 as relying on a Set whose behavior on duplicate elements is
// "unspecified". This implementation instead explicitly deduplicates by
// element identity, first occurrence wins, before indexing — a
// well-defined choice recorded in DESIGN.md rather than a guess at the
// original's edge-case behavior.
func (e *Evaluator) applyNth(matches []match, body string) ([]match, error) {
	n, ok := dom.ParseIntBody(body)
	if !ok || n < -1 {
		return nil, errkind.New(errkind.KindSelector, "invalid nth= body %q", body)
	}

	seen := make(map[*dom.Node]bool)
	var distinct []match
	for _, m := range matches {
		if !seen[m.element] {
			seen[m.element] = true
			distinct = append(distinct, m)
		}
	}

	var idx int
	switch {
	case n == -1:
		idx = len(distinct) - 1
	default:
		idx = n
	}
	if idx < 0 || idx >= len(distinct) {
		return nil, nil
	}
	return []match{distinct[idx]}, nil
}
