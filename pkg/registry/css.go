package registry

import (
	"github.com/andybalholm/cascadia"

	"github.com/webdriver-labs/domrunner/pkg/dom"
	"github.com/webdriver-labs/domrunner/pkg/errkind"
	"github.com/webdriver-labs/domrunner/pkg/selector"
)

// cssEngine implements the `css`/`css:light` engines of spec.md §4.B using
// cascadia, the standard CSS-selector matcher for golang.org/x/net/html
// trees (see SPEC_FULL.md §2 and DESIGN.md for why this pairing was
// chosen over a hand-rolled matcher).
type cssEngine struct {
	pierce bool
}

// QueryAll implements Engine.
func (e cssEngine) QueryAll(doc *dom.Document, root *dom.Node, part selector.Part) ([]*dom.Node, error) {
	body := part.Body
	sel, err := cascadia.ParseGroup(body)
	if err != nil {
		return nil, errkind.New(errkind.KindSelector, "invalid css selector %q: %v", body, err)
	}
	if !e.pierce {
		var out []*dom.Node
		dom.DescendantsLight(root, func(n *dom.Node) bool {
			if n != root && dom.IsElement(n) && sel.Match(n) {
				out = append(out, n)
			}
			return true
		})
		return out, nil
	}

	// Piercing: walk root plus every attached shadow root in document
	// order and test each element individually. Combinators (">", " ")
	// resolve against the real ancestor chain, so they naturally stop at
	// a shadow boundary — the same behavior a piercing CSS engine has in
	// a real browser.
	var out []*dom.Node
	dom.DescendantsPiercing(doc, root, func(n *dom.Node) bool {
		if n != root && dom.IsElement(n) && sel.Match(n) {
			out = append(out, n)
		}
		return true
	})
	return out, nil
}
