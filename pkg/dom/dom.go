// Package dom provides the element model the selector engines, evaluator,
// and action-readiness core all walk: a golang.org/x/net/html tree
// augmented with the handful of DOM concepts spec.md needs that x/net/html
// does not model on its own — shadow roots, connectedness, and a
// per-element attribute view.
//
// This module never renders a page, so there is no live layout engine
// behind BoundingRect/IsVisible (spec.md places "browser launch,
// process management, CDP/WebSocket plumbing" out of scope, §1). Layout
// is instead read from synthetic, serializable attributes
// (`data-rect="x,y,w,h"`, `style`, `hidden`) the same way the real
// injected script would receive already-resolved layout facts from the
// browser's rendering pipeline before any of spec.md's algorithms run.
// See DESIGN.md for the reasoning.
package dom

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Node is a DOM element or text node. It is a thin alias over *html.Node
// so the registry engines (cascadia, antchfx) can operate on it directly.
type Node = html.Node

// Attribute is a thin alias over html.Attribute, used by SetAttr/RemoveAttr.
type Attribute = html.Attribute

// Document owns a root Node plus the shadow-root associations x/net/html
// has no native concept of. A Document is the "root" argument threaded
// through every engine and the evaluator in spec.md §4.
type Document struct {
	Root        *Node
	shadowRoots map[*Node]*Node // host element -> synthetic shadow root
	activeElem  *Node
	title       string
	url         string

	listeners map[*Node]map[string][]Listener
	eventLog  []DispatchedEvent
}

// NewDocument parses html source into a Document.
func NewDocument(source string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(source))
	if err != nil {
		return nil, err
	}
	return &Document{Root: root, shadowRoots: make(map[*Node]*Node)}, nil
}

// AttachShadowRoot associates a synthetic shadow tree with host. Piercing
// engines traverse into it; light engines never do (spec.md §3 invariant:
// "elements produced by light engines must not" live inside shadow roots).
func (d *Document) AttachShadowRoot(host *Node, shadowRootHTML string) (*Node, error) {
	frag, err := html.ParseFragment(strings.NewReader(shadowRootHTML), &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div})
	if err != nil {
		return nil, err
	}
	root := &Node{Type: html.ElementNode, Data: "#shadow-root"}
	for _, n := range frag {
		root.AppendChild(n)
	}
	if d.shadowRoots == nil {
		d.shadowRoots = make(map[*Node]*Node)
	}
	d.shadowRoots[host] = root
	return root, nil
}

// ShadowRoot returns the shadow root attached to host, if any.
func (d *Document) ShadowRoot(host *Node) (*Node, bool) {
	if d.shadowRoots == nil {
		return nil, false
	}
	r, ok := d.shadowRoots[host]
	return r, ok
}

// SetActiveElement records the focused element (used by `to.be.focused`
// and FocusNode).
func (d *Document) SetActiveElement(n *Node) { d.activeElem = n }

// ActiveElement returns the currently focused element, or nil.
func (d *Document) ActiveElement() *Node { return d.activeElem }

// SetTitle/Title/SetURL/URL back the `to.have.title`/`to.have.url` receivers.
func (d *Document) SetTitle(t string) { d.title = t }
func (d *Document) Title() string     { return d.title }
func (d *Document) SetURL(u string)   { d.url = u }
func (d *Document) URL() string       { return d.url }

// IsElement reports whether n is an element node (as opposed to text,
// comment, document, or doctype).
func IsElement(n *Node) bool {
	return n != nil && n.Type == html.ElementNode
}

// IsText reports whether n is a text node.
func IsText(n *Node) bool {
	return n != nil && n.Type == html.TextNode
}

// TagName returns the upper-cased tag name of an element node, matching
// the DOM's Element.tagName convention used by interaction-state
// predicates ("INPUT", "TEXTAREA", "SELECT", "BUTTON", "LABEL", ...).
func TagName(n *Node) string {
	if !IsElement(n) {
		return ""
	}
	return strings.ToUpper(n.Data)
}

// Attr returns the value of attribute name on n, and whether it was present.
func Attr(n *Node, name string) (string, bool) {
	if !IsElement(n) {
		return "", false
	}
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

// HasAttr reports whether attribute name is present on n.
func HasAttr(n *Node, name string) bool {
	_, ok := Attr(n, name)
	return ok
}

// AttrOr returns Attr(n, name) or fallback if absent.
func AttrOr(n *Node, name, fallback string) string {
	if v, ok := Attr(n, name); ok {
		return v
	}
	return fallback
}

// Parent returns n's parent element, skipping non-element intermediates
// only if n has none (html.Node.Parent already points straight at the
// structural parent, including #shadow-root nodes).
func Parent(n *Node) *Node {
	if n == nil {
		return nil
	}
	return n.Parent
}

// IsConnected reports whether n is reachable from doc.Root, walking
// through shadow-host boundaries (a shadow root's parent in our synthetic
// model is not linked, so IsConnected treats any node under a document
// fragment rooted eventually at doc.Root, OR under a shadow root that is
// itself attached to a connected host, as connected).
func (d *Document) IsConnected(n *Node) bool {
	cur := n
	for cur != nil {
		if cur == d.Root {
			return true
		}
		if cur.Parent == nil {
			if host, ok := d.hostOf(cur); ok {
				cur = host
				continue
			}
			return false
		}
		cur = cur.Parent
	}
	return false
}

// AncestorChain returns n followed by each of its ancestors, climbing
// through a shadow root's host when the structural parent runs out —
// the same traversal IsConnected and Closest use, exposed for callers
// (like hit-target checking) that need the whole chain rather than a
// single predicate match.
func (d *Document) AncestorChain(n *Node) []*Node {
	var chain []*Node
	cur := n
	for cur != nil {
		chain = append(chain, cur)
		if cur.Parent == nil {
			host, ok := d.hostOf(cur)
			if !ok {
				break
			}
			cur = host
			continue
		}
		cur = cur.Parent
	}
	return chain
}

func (d *Document) hostOf(shadowRoot *Node) (*Node, bool) {
	for host, root := range d.shadowRoots {
		if root == shadowRoot {
			return host, true
		}
	}
	return nil, false
}

// Children returns n's direct element children (text/comment nodes
// excluded), in document order.
func Children(n *Node) []*Node {
	var out []*Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if IsElement(c) {
			out = append(out, c)
		}
	}
	return out
}

// TextContent concatenates all descendant text nodes, matching
// Node.textContent.
func TextContent(n *Node) string {
	var b strings.Builder
	var walk func(*Node)
	walk = func(cur *Node) {
		if cur.Type == html.TextNode {
			b.WriteString(cur.Data)
			return
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// InnerText approximates innerText by collapsing runs of whitespace,
// unlike TextContent which preserves them verbatim. Used by `expect`'s
// useInnerText option.
func InnerText(n *Node) string {
	return NormalizeWhitespace(TextContent(n))
}

// NormalizeWhitespace trims and collapses runs of whitespace to a single
// space, per spec.md §4.E ExpectedTextMatcher's normalizeWhiteSpace flag.
func NormalizeWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

// DescendantsPiercing walks n and every descendant, including into any
// attached shadow roots — the traversal a piercing engine uses.
func DescendantsPiercing(doc *Document, n *Node, visit func(*Node) bool) {
	if !visit(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		DescendantsPiercing(doc, c, visit)
	}
	if root, ok := doc.ShadowRoot(n); ok {
		DescendantsPiercing(doc, root, visit)
	}
}

// DescendantsLight walks n and every descendant without crossing into
// shadow roots — the traversal a light engine uses.
func DescendantsLight(n *Node, visit func(*Node) bool) {
	if !visit(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		DescendantsLight(c, visit)
	}
}

// Closest walks n and its ancestors (through shadow hosts, piercing)
// looking for the first element matching pred.
func Closest(doc *Document, n *Node, pred func(*Node) bool) *Node {
	cur := n
	for cur != nil {
		if IsElement(cur) && pred(cur) {
			return cur
		}
		if cur.Parent == nil {
			if host, ok := doc.hostOf(cur); ok {
				cur = host
				continue
			}
			return nil
		}
		cur = cur.Parent
	}
	return nil
}

// ParseIntBody parses an nth= body ("0", "-1", or a non-negative
// integer), per spec.md §4.C.1.
func ParseIntBody(body string) (int, bool) {
	body = strings.TrimSpace(body)
	n, err := strconv.Atoi(body)
	if err != nil {
		return 0, false
	}
	return n, true
}
