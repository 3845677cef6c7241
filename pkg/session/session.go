// Package session implements spec.md §6's controller-facing surface: the
// singleton a controller drives through method calls or eval-returned
// closures — parseSelector, querySelector(All), the readiness-gated
// actions, expect, and extend — wired together over one Document, one
// Registry, and one Evaluator.
package session

import (
	"time"

	"github.com/webdriver-labs/domrunner/pkg/action"
	"github.com/webdriver-labs/domrunner/pkg/dom"
	"github.com/webdriver-labs/domrunner/pkg/poll"
	"github.com/webdriver-labs/domrunner/pkg/query"
	"github.com/webdriver-labs/domrunner/pkg/registry"
	"github.com/webdriver-labs/domrunner/pkg/selector"
)

// Options configures a Session's registry, matching spec.md §4.B's
// construction-time inputs.
type Options struct {
	StableRafCount        int
	ReplaceRafWithTimeout bool
	BrowserName           string
}

// Session is the injected-script singleton: one Document, one Registry,
// one Evaluator, reused across every call a controller makes for the
// lifetime of a page.
type Session struct {
	Doc  *dom.Document
	reg  *registry.Registry
	eval *query.Evaluator
	opts Options
}

// New builds a Session over doc.
func New(doc *dom.Document, opts Options) *Session {
	if opts.StableRafCount == 0 {
		opts.StableRafCount = 1
	}
	reg := registry.New(registry.Options{
		StableRafCount:        opts.StableRafCount,
		ReplaceRafWithTimeout: opts.ReplaceRafWithTimeout,
		BrowserName:           opts.BrowserName,
	})
	return &Session{Doc: doc, reg: reg, eval: query.New(reg), opts: opts}
}

// BrowserName reports the registry's configured browser name, as carried
// into core.PlatformInfo; no engine varies its behavior by it.
func (s *Session) BrowserName() string { return s.reg.BrowserName() }

// ParseSelector implements spec.md §6's parseSelector entry point.
func (s *Session) ParseSelector(sel string) (*selector.Parsed, error) {
	return selector.Parse(sel, s.reg.Exists)
}

// QuerySelectorAll implements spec.md §6's querySelectorAll entry point.
func (s *Session) QuerySelectorAll(sel string, root *dom.Node) ([]*dom.Node, error) {
	parsed, err := s.ParseSelector(sel)
	if err != nil {
		return nil, err
	}
	if root == nil {
		root = s.Doc.Root
	}
	var out []*dom.Node
	err = s.eval.WithScope(func() error {
		var err error
		out, err = s.eval.QuerySelectorAll(s.Doc, parsed, root)
		return err
	})
	return out, err
}

// QuerySelector implements spec.md §6's querySelector entry point.
func (s *Session) QuerySelector(sel string, root *dom.Node, strict bool) (*dom.Node, error) {
	parsed, err := s.ParseSelector(sel)
	if err != nil {
		return nil, err
	}
	if root == nil {
		root = s.Doc.Root
	}
	var out *dom.Node
	err = s.eval.WithScope(func() error {
		var err error
		out, err = s.eval.QuerySelector(s.Doc, parsed, root, strict)
		return err
	})
	return out, err
}

// scheduler picks the poll cadence spec.md §4.B's registry options select:
// poll.PollRaf, or a fixed 16 ms interval when ReplaceRafWithTimeout is
// set. PollRaf is itself a 16 ms timer, so both give the same cadence.
func (s *Session) scheduler() poll.Scheduler {
	if s.opts.ReplaceRafWithTimeout {
		return poll.PollInterval(16 * time.Millisecond)
	}
	return poll.PollRaf()
}

// WaitForElementStatesAndPerformAction implements spec.md §6's entry
// point of the same name: resolve node once via sel/root, then run the
// readiness-gated poll wrapping callback.
func (s *Session) WaitForElementStatesAndPerformAction(sel string, root *dom.Node, states []action.State, force bool, callback action.Callback) (interface{}, error) {
	node, err := s.QuerySelector(sel, root, true)
	if err != nil {
		return nil, err
	}
	p := action.WaitForElementStatesAndPerformAction(s.Doc, node, states, force, s.scheduler(), s.reg.StableRafCount(), callback)
	p.Run()
	return p.Result()
}

// ElementState implements spec.md §6's elementState entry point.
func (s *Session) ElementState(sel string, root *dom.Node, state action.State) (interface{}, error) {
	node, err := s.QuerySelector(sel, root, true)
	if err != nil {
		return nil, err
	}
	return action.ElementState(s.Doc, node, state)
}

// SelectOptions implements spec.md §6's selectOptions entry point,
// wrapping action.SelectOptions in a readiness poll: it waits for the
// select to be visible/enabled/stable before matching options, and lets
// SelectOptions itself request another round via continuePolling when an
// option is not yet present.
func (s *Session) SelectOptions(sel string, root *dom.Node, selections []action.OptionSelector) (interface{}, error) {
	states := []action.State{action.StateVisible, action.StateEnabled, action.StateStable}
	return s.WaitForElementStatesAndPerformAction(sel, root, states, false, func(node *dom.Node, progress *poll.Progress, cont interface{}) (interface{}, error) {
		return action.SelectOptions(s.Doc, node, selections, cont)
	})
}

// Fill implements spec.md §6's fill entry point.
func (s *Session) Fill(sel string, root *dom.Node, value string) (interface{}, error) {
	states := []action.State{action.StateVisible, action.StateEnabled, action.StateEditable}
	return s.WaitForElementStatesAndPerformAction(sel, root, states, false, func(node *dom.Node, progress *poll.Progress, cont interface{}) (interface{}, error) {
		return action.Fill(s.Doc, node, value)
	})
}

// SelectText implements spec.md §6's selectText entry point.
func (s *Session) SelectText(sel string, root *dom.Node) (interface{}, error) {
	node, err := s.QuerySelector(sel, root, true)
	if err != nil {
		return nil, err
	}
	return action.SelectText(s.Doc, node)
}

// FocusNode implements spec.md §6's focusNode entry point.
func (s *Session) FocusNode(sel string, root *dom.Node, resetSelectionIfNotFocused bool) (interface{}, error) {
	node, err := s.QuerySelector(sel, root, true)
	if err != nil {
		return nil, err
	}
	return action.FocusNode(s.Doc, node, resetSelectionIfNotFocused)
}

// SetInputFiles implements spec.md §6's setInputFiles entry point.
func (s *Session) SetInputFiles(sel string, root *dom.Node, files []action.FilePayload) (interface{}, error) {
	node, err := s.QuerySelector(sel, root, true)
	if err != nil {
		return nil, err
	}
	return action.SetInputFiles(s.Doc, node, files)
}

// CheckHitTargetAt implements spec.md §6's checkHitTargetAt entry point.
func (s *Session) CheckHitTargetAt(sel string, root *dom.Node, x, y float64) (action.HitTargetResult, error) {
	node, err := s.QuerySelector(sel, root, true)
	if err != nil {
		return action.HitTargetResult{}, err
	}
	return action.CheckHitTargetAt(s.Doc, node, x, y)
}

// DispatchEvent implements spec.md §6's dispatchEvent entry point.
func (s *Session) DispatchEvent(sel string, root *dom.Node, eventType string, init map[string]interface{}) error {
	node, err := s.QuerySelector(sel, root, true)
	if err != nil {
		return err
	}
	action.DispatchEvent(s.Doc, node, eventType, init)
	return nil
}

// Expect implements spec.md §6's expect entry point: it re-resolves sel
// against root on every poll tick since to.have.count and similar
// receivers must observe live changes to the match set, not a snapshot
// taken before polling started.
func (s *Session) Expect(sel string, root *dom.Node, params action.Params) (action.Result, error) {
	parsed, err := s.ParseSelector(sel)
	if err != nil {
		return action.Result{}, err
	}
	if root == nil {
		root = s.Doc.Root
	}
	resolve := func() ([]*dom.Node, error) {
		var out []*dom.Node
		err := s.eval.WithScope(func() error {
			var err error
			out, err = s.eval.QuerySelectorAll(s.Doc, parsed, root)
			return err
		})
		return out, err
	}

	pred := action.NewExpectPredicate(s.Doc, resolve, params)
	p := poll.New(pred, s.scheduler())
	p.Run()
	val, err := p.Result()
	if err != nil {
		return action.Result{}, err
	}
	res, _ := val.(action.Result)
	return res, nil
}

// Extend implements spec.md §6's extend(source, params) entry point:
// loads a user-authored engine into this session's registry.
func (s *Session) Extend(name, source string, params map[string]interface{}, apiVersionConstraint string) error {
	return registry.Extend(s.reg, name, source, params, apiVersionConstraint)
}
