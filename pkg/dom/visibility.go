package dom

import (
	"strconv"
	"strings"
)

// Rect is an axis-aligned bounding rectangle, spec.md §4.E's stability
// wait compares these frame-to-frame.
type Rect struct {
	X, Y, Width, Height float64
}

// Same reports whether all four components of r and o are equal — the
// stability wait's "same rect" test (spec.md §4.E: "A rect is *same* iff
// all four components match").
func (r Rect) Same(o Rect) bool {
	return r.X == o.X && r.Y == o.Y && r.Width == o.Width && r.Height == o.Height
}

func (r Rect) empty() bool {
	return r.Width == 0 && r.Height == 0
}

// BoundingRect reads a `data-rect="x,y,w,h"` attribute as a stand-in for
// getBoundingClientRect(). Elements without the attribute are zero-sized,
// which IsVisible treats as invisible — matching a real unlaid-out
// element.
func BoundingRect(n *Node) Rect {
	raw, ok := Attr(n, "data-rect")
	if !ok {
		return Rect{}
	}
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return Rect{}
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Rect{}
		}
		vals[i] = v
	}
	return Rect{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}
}

// inlineStyleHas reports whether n's `style` attribute sets property to
// one of the given values (case- and whitespace-insensitive).
func inlineStyleHas(n *Node, property string, values ...string) bool {
	style, ok := Attr(n, "style")
	if !ok {
		return false
	}
	for _, decl := range strings.Split(style, ";") {
		kv := strings.SplitN(decl, ":", 2)
		if len(kv) != 2 {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(kv[0]), property) {
			continue
		}
		v := strings.ToLower(strings.TrimSpace(kv[1]))
		for _, want := range values {
			if v == want {
				return true
			}
		}
	}
	return false
}

// InlineStyleValue returns n's inline `style` value for property, or ""
// if unset — the stand-in for getComputedStyle() this module can offer
// without a real layout/cascade engine (see the package doc).
func InlineStyleValue(n *Node, property string) string {
	style, ok := Attr(n, "style")
	if !ok {
		return ""
	}
	for _, decl := range strings.Split(style, ";") {
		kv := strings.SplitN(decl, ":", 2)
		if len(kv) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(kv[0]), property) {
			return strings.TrimSpace(kv[1])
		}
	}
	return ""
}

// IsVisible implements the external `isVisible` predicate spec.md §4.C
// references: a non-zero bounding rect, `visibility: visible`, and
// display connectivity (the element and every ancestor lack
// `display:none` and the `hidden` attribute).
func IsVisible(doc *Document, n *Node) bool {
	if !IsElement(n) {
		return false
	}
	if !doc.IsConnected(n) {
		return false
	}
	if BoundingRect(n).empty() {
		return false
	}
	if inlineStyleHas(n, "visibility", "hidden", "collapse") {
		return false
	}
	cur := n
	for cur != nil && IsElement(cur) {
		if HasAttr(cur, "hidden") {
			return false
		}
		if inlineStyleHas(cur, "display", "none") {
			return false
		}
		cur = Parent(cur)
	}
	return true
}

// IsHidden is the logical negation of IsVisible, matching the `hidden`
// ElementState.
func IsHidden(doc *Document, n *Node) bool {
	return !IsVisible(doc, n)
}

// StyleCache is the per-call computed-style cache spec.md §4.C and §9
// describe: scoped to a single querySelector/querySelectorAll bracket and
// discarded afterward so later calls never see stale layout.
type StyleCache struct {
	rects map[*Node]Rect
	vis   map[*Node]bool
}

// NewStyleCache begins a cache scope (the evaluator's "begin" hook).
func NewStyleCache() *StyleCache {
	return &StyleCache{rects: make(map[*Node]Rect), vis: make(map[*Node]bool)}
}

// Rect returns a cached bounding rect for n, computing and storing it on
// first access within this scope.
func (c *StyleCache) Rect(n *Node) Rect {
	if r, ok := c.rects[n]; ok {
		return r
	}
	r := BoundingRect(n)
	c.rects[n] = r
	return r
}

// Visible returns cached visibility for n, computing and storing it on
// first access within this scope.
func (c *StyleCache) Visible(doc *Document, n *Node) bool {
	if v, ok := c.vis[n]; ok {
		return v
	}
	v := IsVisible(doc, n)
	c.vis[n] = v
	return v
}
