package registry

import (
	"github.com/Masterminds/semver"
	"github.com/dop251/goja"

	"github.com/webdriver-labs/domrunner/pkg/dom"
	"github.com/webdriver-labs/domrunner/pkg/errkind"
	"github.com/webdriver-labs/domrunner/pkg/selector"
)

// CoreAPIVersion is compared against a custom engine's declared
// `apiVersion` constraint (see Extend). Bumped whenever the Engine
// contract in this package changes in a way a custom engine could
// observe.
const CoreAPIVersion = "1.0.0"

// jsElement is the JS-facing view of a dom.Node a custom engine's
// queryAll(root, body) receives: enough surface (tagName, attribute
// access, children, text, parent) to write a real selector engine
// without exposing the Go-side dom.Document.
type jsElement struct {
	doc  *dom.Document
	node *dom.Node
}

func newJSElement(doc *dom.Document, n *dom.Node) *jsElement {
	if n == nil {
		return nil
	}
	return &jsElement{doc: doc, node: n}
}

func (e *jsElement) TagName() string             { return dom.TagName(e.node) }
func (e *jsElement) GetAttribute(name string) any {
	if v, ok := dom.Attr(e.node, name); ok {
		return v
	}
	return nil
}
func (e *jsElement) TextContent() string { return dom.TextContent(e.node) }
func (e *jsElement) ParentElement() *jsElement {
	return newJSElement(e.doc, dom.Parent(e.node))
}
func (e *jsElement) Children() []*jsElement {
	kids := dom.Children(e.node)
	out := make([]*jsElement, len(kids))
	for i, k := range kids {
		out[i] = newJSElement(e.doc, k)
	}
	return out
}

// extendEngine adapts a goja-authored engine (loaded via Extend) to the
// registry.Engine interface.
type extendEngine struct {
	vm         *goja.Runtime
	queryAllFn goja.Callable
	doc        *dom.Document
}

// QueryAll implements Engine, translating the Go dom.Node tree into
// jsElement wrappers, invoking the user's queryAll(root, body), and
// translating the JS-side result array back.
func (e *extendEngine) QueryAll(doc *dom.Document, root *dom.Node, part selector.Part) ([]*dom.Node, error) {
	jsRoot := newJSElement(doc, root)
	result, err := e.queryAllFn(goja.Undefined(), e.vm.ToValue(jsRoot), e.vm.ToValue(part.Body))
	if err != nil {
		return nil, errkind.New(errkind.KindSelector, "custom engine failed: %v", err)
	}
	exported := result.Export()
	items, ok := exported.([]interface{})
	if !ok {
		return nil, errkind.New(errkind.KindSelector, "custom engine queryAll must return an array")
	}
	out := make([]*dom.Node, 0, len(items))
	for _, it := range items {
		if el, ok := it.(*jsElement); ok && el != nil {
			out = append(out, el.node)
		}
	}
	return out, nil
}

// Extend loads an additional engine authored by the user, per spec.md §6:
// "the source is evaluated and must export a single constructor named
// pwExport". apiVersionConstraint, if non-empty, is checked against
// CoreAPIVersion with Masterminds/semver before the engine is
// instantiated, so an engine written against an incompatible core fails
// fast with a clear message instead of a confusing runtime error deep
// inside queryAll.
func Extend(r *Registry, name, source string, params map[string]interface{}, apiVersionConstraint string) error {
	if apiVersionConstraint != "" {
		constraint, err := semver.NewConstraint(apiVersionConstraint)
		if err != nil {
			return errkind.New(errkind.KindSelector, "invalid apiVersion constraint %q: %v", apiVersionConstraint, err)
		}
		coreVersion, err := semver.NewVersion(CoreAPIVersion)
		if err != nil {
			return err
		}
		if !constraint.Check(coreVersion) {
			return errkind.New(errkind.KindSelector,
				"custom engine %q requires core API %s, this build is %s", name, apiVersionConstraint, CoreAPIVersion)
		}
	}

	vm := goja.New()
	vm.SetFieldNameMapper(goja.UncapFieldNameMapper())
	if _, err := vm.RunString(source); err != nil {
		return errkind.New(errkind.KindSelector, "failed to evaluate custom engine %q: %v", name, err)
	}

	exportVal := vm.Get("pwExport")
	if exportVal == nil || goja.IsUndefined(exportVal) {
		return errkind.New(errkind.KindSelector, "custom engine %q must export pwExport", name)
	}
	ctor, ok := goja.AssertFunction(exportVal)
	if !ok {
		return errkind.New(errkind.KindSelector, "custom engine %q's pwExport must be a constructor function", name)
	}

	instance, err := ctor(goja.Undefined(), vm.ToValue(params))
	if err != nil {
		return errkind.New(errkind.KindSelector, "failed to construct custom engine %q: %v", name, err)
	}
	obj := instance.ToObject(vm)
	queryAllVal := obj.Get("queryAll")
	if queryAllVal == nil {
		return errkind.New(errkind.KindSelector, "custom engine %q must implement queryAll", name)
	}
	queryAllFn, ok := goja.AssertFunction(queryAllVal)
	if !ok {
		return errkind.New(errkind.KindSelector, "custom engine %q's queryAll must be a function", name)
	}

	r.register(name, &extendEngine{vm: vm, queryAllFn: queryAllFn})
	r.register(name+":light", &extendEngine{vm: vm, queryAllFn: queryAllFn})
	return nil
}

