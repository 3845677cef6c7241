package registry

import (
	"strconv"
	"strings"

	"github.com/webdriver-labs/domrunner/pkg/dom"
	"github.com/webdriver-labs/domrunner/pkg/errkind"
	"github.com/webdriver-labs/domrunner/pkg/selector"
)

// frameworkEngine implements the `_react`/`_vue` component-tree engines
// of spec.md §4.B. A real implementation walks the framework's live fiber
// (React) or component-instance (Vue) tree, reachable only from inside an
// actual running page — well outside what a headless Go process can
// observe. This module instead matches the same grammar
// (`ComponentName[prop = value]...`) against a serializable stand-in the
// page is expected to expose: a `data-component="ComponentName"`
// attribute plus one `data-prop-<name>="<value>"` attribute per prop the
// component was rendered with. See DESIGN.md for why this substitution
// was made instead of dropping the engines.
type frameworkEngine struct {
	framework string
}

// QueryAll implements Engine.
func (e frameworkEngine) QueryAll(doc *dom.Document, root *dom.Node, part selector.Part) ([]*dom.Node, error) {
	name, props, err := parseComponentSelector(part.Body)
	if err != nil {
		return nil, err
	}

	var out []*dom.Node
	dom.DescendantsPiercing(doc, root, func(n *dom.Node) bool {
		if n == root || !dom.IsElement(n) {
			return true
		}
		component, ok := dom.Attr(n, "data-component")
		if !ok || component != name {
			return true
		}
		if matchesProps(n, props) {
			out = append(out, n)
		}
		return true
	})
	return out, nil
}

type propFilter struct {
	name  string
	value string
}

// parseComponentSelector parses "Name" or "Name[prop = value][prop2 = value2]".
func parseComponentSelector(body string) (string, []propFilter, error) {
	body = strings.TrimSpace(body)
	bracket := strings.IndexByte(body, '[')
	if bracket == -1 {
		return body, nil, nil
	}
	name := strings.TrimSpace(body[:bracket])
	rest := body[bracket:]

	var filters []propFilter
	for len(rest) > 0 {
		if rest[0] != '[' {
			return "", nil, errkind.New(errkind.KindSelector, "malformed component selector %q", body)
		}
		end := strings.IndexByte(rest, ']')
		if end == -1 {
			return "", nil, errkind.New(errkind.KindSelector, "unterminated prop filter in %q", body)
		}
		clause := rest[1:end]
		eq := strings.IndexByte(clause, '=')
		if eq == -1 {
			return "", nil, errkind.New(errkind.KindSelector, "malformed prop filter %q", clause)
		}
		filters = append(filters, propFilter{
			name:  strings.TrimSpace(clause[:eq]),
			value: strings.Trim(strings.TrimSpace(clause[eq+1:]), `"'`),
		})
		rest = rest[end+1:]
	}
	return name, filters, nil
}

func matchesProps(n *dom.Node, filters []propFilter) bool {
	for _, f := range filters {
		got, ok := dom.Attr(n, "data-prop-"+f.name)
		if !ok {
			return false
		}
		if got != f.value && !numericEqual(got, f.value) {
			return false
		}
	}
	return true
}

func numericEqual(a, b string) bool {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	return errA == nil && errB == nil && fa == fb
}
