package action

import (
	"fmt"

	"github.com/webdriver-labs/domrunner/pkg/dom"
)

// HitTargetResult is checkHitTargetAt's outcome: either the target
// received the hit (Done), or Description explains what intercepted it.
type HitTargetResult struct {
	Done        bool
	Description string
}

// ElementFromPoint finds the topmost element under (x, y) within
// container's light subtree — a stand-in for document.elementFromPoint,
// grounded in the same synthetic-layout model as dom.BoundingRect: among
// every descendant whose rect contains the point, the last one in
// document order wins. Since a descendant is always visited after its
// ancestor, this doubles as "most specific match": an inner element with
// a tighter rect naturally overrides its container without a separate
// per-level recursion, and unrected structural wrappers (`<html>`,
// `<body>`) are transparent instead of stopping the search.
func ElementFromPoint(container *dom.Node, x, y float64) *dom.Node {
	var best *dom.Node
	dom.DescendantsLight(container, func(n *dom.Node) bool {
		if n != container && dom.IsElement(n) && !dom.HasAttr(n, "hidden") && rectContains(dom.BoundingRect(n), x, y) {
			best = n
		}
		return true
	})
	if best == nil {
		return container
	}
	return best
}

func rectContains(r dom.Rect, x, y float64) bool {
	if r.Width == 0 && r.Height == 0 {
		return false
	}
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

// CheckHitTargetAt implements spec.md §4.E's checkHitTargetAt(node, point).
func CheckHitTargetAt(doc *dom.Document, node *dom.Node, x, y float64) (HitTargetResult, error) {
	target := node
	if closest := dom.Closest(doc, node, isButtonLike); closest != nil {
		target = closest
	}

	// Descend through shadow roots the way document.elementFromPoint does
	// not: a real top-level call would stop at the shadow host, so this
	// walk repeats elementFromPoint inside each nested shadow root until
	// the same element repeats or there is nothing further to pierce.
	chain := []*dom.Node{ElementFromPoint(doc.Root, x, y)}
	for {
		cur := chain[len(chain)-1]
		root, ok := doc.ShadowRoot(cur)
		if !ok {
			break
		}
		next := ElementFromPoint(root, x, y)
		if next == cur {
			break
		}
		chain = append(chain, next)
	}
	hit := chain[len(chain)-1]

	if hit == target {
		return HitTargetResult{Done: true}, nil
	}

	// Climb the target's own ancestor chain (through shadow hosts) to find
	// where it first reappears in the hit chain — that divergence point is
	// the overlay/container actually receiving the pointer event.
	divergedAt := 0
	found := false
	for _, ancestor := range doc.AncestorChain(target) {
		for i, c := range chain {
			if c == ancestor {
				divergedAt = i
				found = true
				break
			}
		}
		if found {
			break
		}
	}

	desc := dom.PreviewNode(chain[0])
	if divergedAt >= 1 {
		desc = fmt.Sprintf("%s from %s subtree", dom.PreviewNode(chain[0]), dom.PreviewNode(chain[divergedAt]))
	}
	return HitTargetResult{Done: false, Description: desc}, nil
}
