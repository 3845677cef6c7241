// Package executor drives a parsed flow against a session, turning each
// flow.Step into a session.Session call and each flow into a core.FlowResult.
package executor

import (
	"fmt"
	"time"

	"github.com/webdriver-labs/domrunner/pkg/action"
	"github.com/webdriver-labs/domrunner/pkg/core"
	"github.com/webdriver-labs/domrunner/pkg/dom"
	"github.com/webdriver-labs/domrunner/pkg/flow"
	"github.com/webdriver-labs/domrunner/pkg/poll"
	"github.com/webdriver-labs/domrunner/pkg/session"
)

// Driver adapts a *session.Session to core.Driver, translating each
// flow.Step into the session method it corresponds to. It embeds
// core.SessionDriver for GetState/GetPlatformInfo and supplies the real
// Execute that SessionDriver leaves stubbed.
type Driver struct {
	core.SessionDriver
	sess *session.Session
}

// NewDriver builds a Driver bound to sess.
func NewDriver(sess *session.Session) *Driver {
	return &Driver{SessionDriver: core.SessionDriver{Session: sess}, sess: sess}
}

// Execute runs a single step against the bound session and reports the
// outcome as a core.CommandResult.
func (d *Driver) Execute(step flow.Step) *core.CommandResult {
	start := time.Now()
	data, err := d.dispatch(step)
	duration := time.Since(start)
	if err != nil {
		execErr := core.FromStackless(err)
		return &core.CommandResult{
			Success:  false,
			Error:    execErr,
			Message:  execErr.Error(),
			Duration: duration,
			Data:     data,
		}
	}
	return &core.CommandResult{Success: true, Duration: duration, Data: data}
}

func (d *Driver) dispatch(step flow.Step) (interface{}, error) {
	switch s := step.(type) {
	case *flow.FillStep:
		return d.sess.Fill(s.Selector, nil, s.Value)
	case *flow.SelectOptionsStep:
		return d.sess.SelectOptions(s.Selector, nil, toOptionSelectors(s.Options))
	case *flow.SelectTextStep:
		return d.sess.SelectText(s.Selector, nil)
	case *flow.FocusStep:
		return d.sess.FocusNode(s.Selector, nil, s.ResetSelectionIfNotFocused)
	case *flow.SetInputFilesStep:
		return d.sess.SetInputFiles(s.Selector, nil, toFilePayloads(s.Files))
	case *flow.DispatchEventStep:
		return nil, d.sess.DispatchEvent(s.Selector, nil, s.EventType, s.Init)
	case *flow.CheckHitTargetStep:
		result, err := d.sess.CheckHitTargetAt(s.Selector, nil, s.X, s.Y)
		return result, err
	case *flow.ElementStateStep:
		return d.sess.ElementState(s.Selector, nil, action.State(s.State))
	case *flow.WaitForStep:
		states := make([]action.State, len(s.States))
		for i, st := range s.States {
			states[i] = action.State(st)
		}
		noop := func(node *dom.Node, progress *poll.Progress, continuePolling interface{}) (interface{}, error) {
			return true, nil
		}
		return d.sess.WaitForElementStatesAndPerformAction(s.Selector, nil, states, s.Force, noop)
	case *flow.ExpectStep:
		return d.expect(s)
	case *flow.ExtendStep:
		return nil, d.sess.Extend(s.Name, s.Source, s.Params, s.APIVersionConstraint)
	default:
		return nil, fmt.Errorf("executor: no session method bound to step type %q", step.Type())
	}
}

func (d *Driver) expect(s *flow.ExpectStep) (interface{}, error) {
	params := action.Params{
		Expression:     s.Expression,
		IsNot:          s.IsNot,
		ExpectedNumber: s.ExpectedNumber,
		ExpectedValue:  s.ExpectedValue,
		ExpressionArg:  s.ExpressionArg,
		UseInnerText:   s.UseInnerText,
	}
	for _, et := range s.ExpectedText {
		params.ExpectedText = append(params.ExpectedText, action.ExpectedText{
			String:              et.String,
			MatchSubstring:      et.MatchSubstring,
			NormalizeWhiteSpace: et.NormalizeWhiteSpace,
			RegexSource:         et.RegexSource,
			RegexFlags:          et.RegexFlags,
		})
	}
	result, err := d.sess.Expect(s.Selector, nil, params)
	if err != nil {
		return nil, err
	}
	if !result.Pass {
		return result.Received, fmt.Errorf("expect %s on %s failed, got %v", s.Expression, s.Selector, result.Received)
	}
	return result.Received, nil
}

func toOptionSelectors(opts []flow.OptionMatch) []action.OptionSelector {
	out := make([]action.OptionSelector, len(opts))
	for i, o := range opts {
		out[i] = action.OptionSelector{Value: o.Value, Label: o.Label, Index: o.Index}
	}
	return out
}

func toFilePayloads(files []flow.InputFile) []action.FilePayload {
	out := make([]action.FilePayload, len(files))
	for i, f := range files {
		out[i] = action.FilePayload{Name: f.Name, MimeType: f.MimeType, BufferBase64: f.BufferBase64}
	}
	return out
}
