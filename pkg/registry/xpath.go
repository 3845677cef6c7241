package registry

import (
	"github.com/antchfx/htmlquery"

	"github.com/webdriver-labs/domrunner/pkg/dom"
	"github.com/webdriver-labs/domrunner/pkg/errkind"
	"github.com/webdriver-labs/domrunner/pkg/selector"
)

// xpathEngine implements `xpath`/`xpath:light`, per spec.md §4.B: "both
// variants behave identically (no shadow piercing for XPath)". htmlquery
// pairs antchfx/xpath's XPath 1.0 evaluator with golang.org/x/net/html
// trees, evaluated against the root's owner document as spec.md requires.
type xpathEngine struct{}

// QueryAll implements Engine.
func (xpathEngine) QueryAll(_ *dom.Document, root *dom.Node, part selector.Part) ([]*dom.Node, error) {
	body := part.Body
	nodes, err := htmlquery.QueryAll(root, body)
	if err != nil {
		return nil, errkind.New(errkind.KindSelector, "invalid xpath expression %q: %v", body, err)
	}
	out := make([]*dom.Node, 0, len(nodes))
	for _, n := range nodes {
		if dom.IsElement(n) {
			out = append(out, n)
		}
	}
	return out, nil
}
