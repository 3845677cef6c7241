// Package registry implements the engine registry of spec.md §4.B: a set
// of named selector engines, seeded with built-ins at construction and
// extendable with caller-supplied engines via Extend.
package registry

import (
	"sync"

	"github.com/webdriver-labs/domrunner/pkg/dom"
	"github.com/webdriver-labs/domrunner/pkg/errkind"
	"github.com/webdriver-labs/domrunner/pkg/selector"
)

// Engine is a pure function mapping a (root, part) pair to an ordered
// list of elements — spec.md §3's "Engine" definition. Pseudo-engines
// (nth, visible) satisfy the same shape but the query evaluator
// short-circuits them before QueryAll is ever called. Part is threaded
// through (rather than a bare body string) so engines like text can see
// whether the body arrived quoted, per spec.md §4.A/§4.B's shared body
// grammar.
type Engine interface {
	QueryAll(doc *dom.Document, root *dom.Node, part selector.Part) ([]*dom.Node, error)
}

// EngineFunc adapts a plain function to the Engine interface.
type EngineFunc func(doc *dom.Document, root *dom.Node, part selector.Part) ([]*dom.Node, error)

// QueryAll implements Engine.
func (f EngineFunc) QueryAll(doc *dom.Document, root *dom.Node, part selector.Part) ([]*dom.Node, error) {
	return f(doc, root, part)
}

// pseudoNoop always returns no matches — the shape spec.md §4.B assigns
// to `nth` and `visible`, which the evaluator treats as filters and never
// actually invokes as producers.
var pseudoNoop = EngineFunc(func(*dom.Document, *dom.Node, selector.Part) ([]*dom.Node, error) {
	return nil, nil
})

// Options are the construction-time inputs of spec.md §4.B.
type Options struct {
	StableRafCount        int
	ReplaceRafWithTimeout bool
	BrowserName           string
	CustomEngines         map[string]Engine // pre-registered, e.g. loaded via Extend before construction
}

// Registry holds selector engines keyed by name. It is read-only after
// construction (spec.md §5: "the evaluator's selector-engines registry is
// read-only after construction").
type Registry struct {
	opts    Options
	mu      sync.RWMutex
	engines map[string]Engine
}

// New seeds a Registry with the built-in engines of spec.md §4.B and any
// caller-supplied custom engines from opts.
func New(opts Options) *Registry {
	r := &Registry{opts: opts, engines: make(map[string]Engine)}
	r.registerBuiltins()
	for name, eng := range opts.CustomEngines {
		r.engines[name] = eng
	}
	return r
}

func (r *Registry) registerBuiltins() {
	r.engines["css"] = cssEngine{pierce: true}
	r.engines["css:light"] = cssEngine{pierce: false}

	r.engines["xpath"] = xpathEngine{}
	r.engines["xpath:light"] = xpathEngine{}

	r.engines["text"] = textEngine{pierce: true}
	r.engines["text:light"] = textEngine{pierce: false}

	for _, attr := range []string{"id", "data-testid", "data-test-id", "data-test"} {
		r.engines[attr] = attributeEngine{attr: attr, pierce: true}
		r.engines[attr+":light"] = attributeEngine{attr: attr, pierce: false}
	}

	r.engines["_react"] = frameworkEngine{framework: "react"}
	r.engines["_vue"] = frameworkEngine{framework: "vue"}

	r.engines["nth"] = pseudoNoop
	r.engines["visible"] = pseudoNoop
}

// Exists reports whether name is a registered engine. This is the
// selector.EngineExists callback the parser (component A) uses to
// validate a chained selector as it tokenizes.
func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.engines[name]
	return ok
}

// Lookup returns the engine registered under name.
func (r *Registry) Lookup(name string) (Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	eng, ok := r.engines[name]
	if !ok {
		return nil, errkind.UnknownEngine(name)
	}
	return eng, nil
}

// IsPseudo reports whether name is one of the filter pseudo-engines the
// evaluator short-circuits (spec.md §4.C steps 1–2).
func IsPseudo(name string) bool {
	return name == "nth" || name == "visible"
}

// StableRafCount, ReplaceRafWithTimeout, BrowserName expose the
// construction-time options to callers building a poll scheduler
// (component D) from this registry, per spec.md §4.D.
func (r *Registry) StableRafCount() int         { return r.opts.StableRafCount }
func (r *Registry) ReplaceRafWithTimeout() bool { return r.opts.ReplaceRafWithTimeout }
func (r *Registry) BrowserName() string         { return r.opts.BrowserName }

// register installs a new engine at name, used by Extend after a custom
// engine source has been evaluated. Not exported: registries are
// read-only to ordinary callers once construction (New/Extend at
// startup) is complete.
func (r *Registry) register(name string, eng Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines[name] = eng
}
