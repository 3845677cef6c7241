package core

import (
	"time"

	"github.com/webdriver-labs/domrunner/pkg/action"
	"github.com/webdriver-labs/domrunner/pkg/dom"
	"github.com/webdriver-labs/domrunner/pkg/flow"
	"github.com/webdriver-labs/domrunner/pkg/session"
)

// Driver defines the interface an executor drives a flow.Step through.
// There is exactly one backend, a *session.Session bound to a parsed
// Document; executor.Driver, which embeds SessionDriver and supplies its
// Execute, is the implementation used at run time. The interface survives
// so a runner can be tested against a fake without constructing a
// Document.
type Driver interface {
	// Execute runs a single step and returns the result
	Execute(step flow.Step) *CommandResult

	// GetState returns the current document/focus state
	GetState() *StateSnapshot

	// GetPlatformInfo returns information about the hosting document
	GetPlatformInfo() *PlatformInfo
}

// SessionDriver adapts a *session.Session to the Driver interface. It does
// not itself decide what a step means (that's pkg/executor's job) — it
// exposes the session's DOM-facing state for reporting.
type SessionDriver struct {
	Session *session.Session
}

// GetState reports the document's currently focused element, if any.
func (d *SessionDriver) GetState() *StateSnapshot {
	active := d.Session.Doc.ActiveElement()
	snap := &StateSnapshot{URL: d.Session.Doc.URL()}
	if active != nil {
		snap.FocusedElement = elementInfoOf(d.Session.Doc, active)
		snap.FocusedElement.Focused = true
	}
	return snap
}

// GetPlatformInfo reports the browser dialect a Session was built with.
func (d *SessionDriver) GetPlatformInfo() *PlatformInfo {
	return &PlatformInfo{BrowserName: d.Session.BrowserName()}
}

// Execute is left to pkg/executor, which knows how to translate a
// flow.Step into a session method call; SessionDriver only carries the
// session reference callers need to do that.
func (d *SessionDriver) Execute(step flow.Step) *CommandResult {
	return &CommandResult{Success: false, Message: "SessionDriver.Execute is implemented by pkg/executor"}
}

// elementInfoOf snapshots a DOM node into the reporting-facing shape.
func elementInfoOf(doc *dom.Document, n *dom.Node) *ElementInfo {
	if n == nil {
		return nil
	}
	info := &ElementInfo{
		Tag:        dom.TagName(n),
		Text:       dom.InnerText(n),
		Rect:       dom.BoundingRect(n),
		Visible:    dom.IsVisible(doc, n),
		Attributes: map[string]string{},
	}
	if id, ok := dom.Attr(n, "id"); ok {
		info.ID = id
	}
	if class, ok := dom.Attr(n, "class"); ok {
		info.Class = class
	}
	if state, err := action.ElementState(doc, n, action.StateEnabled); err == nil {
		info.Enabled, _ = state.(bool)
	}
	if state, err := action.ElementState(doc, n, action.StateChecked); err == nil {
		if b, ok := state.(bool); ok {
			info.Checked = b
		}
	}
	return info
}

// CommandResult represents the outcome of executing a single command
type CommandResult struct {
	// Core outcome
	Success  bool          `json:"success"`
	Error    error         `json:"-"`
	Duration time.Duration `json:"duration"`

	// Human-readable output
	Message string `json:"message,omitempty"`

	// Element information (for click, fill, assert, etc.)
	Element *ElementInfo `json:"element,omitempty"`

	// Generic data for command-specific results
	// Examples: expect's received value, selectOptions' selected values
	Data interface{} `json:"data,omitempty"`

	// Debug information (internal details, not for reporting)
	Debug interface{} `json:"-"`
}

// ElementInfo represents information captured about a DOM element at the
// time a step interacted with or asserted on it.
type ElementInfo struct {
	ID         string            `json:"id,omitempty"`
	Tag        string            `json:"tag,omitempty"`
	Text       string            `json:"text,omitempty"`
	Rect       dom.Rect          `json:"rect"`
	Visible    bool              `json:"visible"`
	Enabled    bool              `json:"enabled"`
	Focused    bool              `json:"focused,omitempty"`
	Checked    bool              `json:"checked,omitempty"`
	Class      string            `json:"class,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// StateSnapshot captures the current document state
type StateSnapshot struct {
	URL            string       `json:"url,omitempty"`
	FocusedElement *ElementInfo `json:"focusedElement,omitempty"`
}

// PlatformInfo contains the registry/session configuration a flow ran
// under, the browser-domain replacement for device/OS identification.
type PlatformInfo struct {
	BrowserName string `json:"browserName,omitempty"`
}

// ExecutedBy indicates what component executed a step
type ExecutedBy string

// ExecutedBy values
const (
	ExecutedByDriver ExecutedBy = "driver" // Executed by the Driver (session actions)
	ExecutedByRunner ExecutedBy = "runner" // Executed by the Runner (control flow, subflow)
)

// LogEntry represents a single log message captured during execution
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`  // debug, info, warn, error
	Source    string    `json:"source"` // session, document, driver
	Message   string    `json:"message"`
}
