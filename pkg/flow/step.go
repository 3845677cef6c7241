package flow

// StepType identifies a step's kind.
type StepType string

// Step type constants. Each maps to one entry point of pkg/session.Session
// (fill, selectOptions, selectText, focus, setInputFiles, dispatchEvent,
// checkHitTargetAt, elementState, waitFor, expect, extend) plus a small
// set of flow-control steps (repeat, retry, runFlow, runScript,
// defineVariables) that are session-agnostic.
const (
	StepFill            StepType = "fill"
	StepSelectOptions   StepType = "selectOptions"
	StepSelectText      StepType = "selectText"
	StepFocus           StepType = "focus"
	StepSetInputFiles   StepType = "setInputFiles"
	StepDispatchEvent   StepType = "dispatchEvent"
	StepCheckHitTarget  StepType = "checkHitTarget"
	StepElementState    StepType = "elementState"
	StepWaitFor         StepType = "waitFor"
	StepExpect          StepType = "expect"
	StepExtend          StepType = "extend"
	StepRepeat          StepType = "repeat"
	StepRetry           StepType = "retry"
	StepRunFlow         StepType = "runFlow"
	StepRunScript       StepType = "runScript"
	StepDefineVariables StepType = "defineVariables"
)

// Step is one entry in a flow's step sequence.
type Step interface {
	Type() StepType
	IsOptional() bool
	Label() string
	Describe() string
}

// BaseStep holds the fields common to every step.
type BaseStep struct {
	StepType  StepType `yaml:"-"`
	Optional  bool     `yaml:"optional"`
	StepLabel string   `yaml:"label"`
	TimeoutMs int      `yaml:"timeout"`
}

func (b *BaseStep) Type() StepType   { return b.StepType }
func (b *BaseStep) IsOptional() bool { return b.Optional }
func (b *BaseStep) Label() string    { return b.StepLabel }
func (b *BaseStep) Describe() string { return string(b.StepType) }

// FillStep fills a form control via session.Session.Fill.
type FillStep struct {
	BaseStep `yaml:",inline"`
	Selector string `yaml:"selector"`
	Value    string `yaml:"value"`
}

func (s *FillStep) Describe() string { return "fill: " + s.Selector + " = \"" + s.Value + "\"" }

// OptionMatch is one selectOptions matcher, mapped onto
// action.OptionSelector by the executor (a node identity is not
// expressible in YAML, so only value/label/index apply here).
type OptionMatch struct {
	Value *string `yaml:"value"`
	Label *string `yaml:"label"`
	Index *int    `yaml:"index"`
}

// SelectOptionsStep selects one or more <option>s via
// session.Session.SelectOptions.
type SelectOptionsStep struct {
	BaseStep `yaml:",inline"`
	Selector string        `yaml:"selector"`
	Options  []OptionMatch `yaml:"options"`
}

func (s *SelectOptionsStep) Describe() string { return "selectOptions: " + s.Selector }

// SelectTextStep runs session.Session.SelectText on an element (which
// focuses it; no text selection is recorded).
type SelectTextStep struct {
	BaseStep `yaml:",inline"`
	Selector string `yaml:"selector"`
}

func (s *SelectTextStep) Describe() string { return "selectText: " + s.Selector }

// FocusStep focuses an element via session.Session.FocusNode.
type FocusStep struct {
	BaseStep                   `yaml:",inline"`
	Selector                   string `yaml:"selector"`
	ResetSelectionIfNotFocused bool   `yaml:"resetSelectionIfNotFocused"`
}

func (s *FocusStep) Describe() string { return "focus: " + s.Selector }

// InputFile is one file payload for a setInputFiles step.
type InputFile struct {
	Name         string `yaml:"name"`
	MimeType     string `yaml:"mimeType"`
	BufferBase64 string `yaml:"buffer"`
}

// SetInputFilesStep installs files on an <input type=file> via
// session.Session.SetInputFiles.
type SetInputFilesStep struct {
	BaseStep `yaml:",inline"`
	Selector string      `yaml:"selector"`
	Files    []InputFile `yaml:"files"`
}

func (s *SetInputFilesStep) Describe() string { return "setInputFiles: " + s.Selector }

// DispatchEventStep dispatches a synthetic event via
// session.Session.DispatchEvent.
type DispatchEventStep struct {
	BaseStep  `yaml:",inline"`
	Selector  string                 `yaml:"selector"`
	EventType string                 `yaml:"eventType"`
	Init      map[string]interface{} `yaml:"init"`
}

func (s *DispatchEventStep) Describe() string {
	return "dispatchEvent: " + s.EventType + " on " + s.Selector
}

// CheckHitTargetStep checks whether a point hit-tests to an element via
// session.Session.CheckHitTargetAt.
type CheckHitTargetStep struct {
	BaseStep `yaml:",inline"`
	Selector string  `yaml:"selector"`
	X        float64 `yaml:"x"`
	Y        float64 `yaml:"y"`
}

func (s *CheckHitTargetStep) Describe() string { return "checkHitTarget: " + s.Selector }

// ElementStateStep reads a single element state via
// session.Session.ElementState.
type ElementStateStep struct {
	BaseStep `yaml:",inline"`
	Selector string `yaml:"selector"`
	State    string `yaml:"state"`
}

func (s *ElementStateStep) Describe() string { return "elementState: " + s.State + " " + s.Selector }

// WaitForStep waits for one or more readiness states via
// session.Session.WaitForElementStatesAndPerformAction with a no-op
// callback.
type WaitForStep struct {
	BaseStep `yaml:",inline"`
	Selector string   `yaml:"selector"`
	States   []string `yaml:"states"`
	Force    bool     `yaml:"force"`
}

func (s *WaitForStep) Describe() string { return "waitFor: " + s.Selector }

// ExpectStep asserts against session.Session.Expect's params bag.
type ExpectStep struct {
	BaseStep       `yaml:",inline"`
	Selector       string             `yaml:"selector"`
	Expression     string             `yaml:"expression"`
	IsNot          bool               `yaml:"not"`
	ExpectedNumber *float64           `yaml:"expectedNumber"`
	ExpectedValue  interface{}        `yaml:"expectedValue"`
	ExpressionArg  string             `yaml:"expressionArg"`
	ExpectedText   []ExpectedTextSpec `yaml:"expectedText"`
	UseInnerText   bool               `yaml:"useInnerText"`
}

func (s *ExpectStep) Describe() string { return "expect: " + s.Expression + " on " + s.Selector }

// ExpectedTextSpec is one expectedText matcher, mirroring
// action.ExpectedText's YAML shape.
type ExpectedTextSpec struct {
	String              *string `yaml:"string"`
	MatchSubstring      bool    `yaml:"matchSubstring"`
	NormalizeWhiteSpace bool    `yaml:"normalizeWhiteSpace"`
	RegexSource         *string `yaml:"regexSource"`
	RegexFlags          string  `yaml:"regexFlags"`
}

// ExtendStep registers a custom selector engine mid-flow via
// session.Session.Extend, for engines a flow needs only for one test
// rather than the whole workspace (see config.ExtendConfig for the
// workspace-wide equivalent).
type ExtendStep struct {
	BaseStep             `yaml:",inline"`
	Name                 string                 `yaml:"name"`
	Source               string                 `yaml:"source"`
	Params               map[string]interface{} `yaml:"params"`
	APIVersionConstraint string                 `yaml:"apiVersionConstraint"`
}

func (s *ExtendStep) Describe() string { return "extend: " + s.Name }

// RepeatStep repeats its nested steps a fixed number of times or while a
// condition holds.
type RepeatStep struct {
	BaseStep `yaml:",inline"`
	Times    string    `yaml:"times"` // string for env-variable substitution
	While    Condition `yaml:"while"`
	Steps    []Step    `yaml:"-"`
}

func (s *RepeatStep) Describe() string { return "repeat" }

// RetryStep re-runs its nested steps up to MaxRetries times, backing off
// between attempts, until they all succeed.
type RetryStep struct {
	BaseStep   `yaml:",inline"`
	MaxRetries string            `yaml:"maxRetries"`
	Steps      []Step            `yaml:"-"`
	File       string            `yaml:"file"`
	Env        map[string]string `yaml:"env"`
}

func (s *RetryStep) Describe() string { return "retry" }

// RunFlowStep runs another flow file, or an inline step list, optionally
// gated by a condition.
type RunFlowStep struct {
	BaseStep `yaml:",inline"`
	File     string            `yaml:"file"`
	Steps    []Step            `yaml:"-"`
	When     *Condition        `yaml:"when"`
	Env      map[string]string `yaml:"env"`
}

func (s *RunFlowStep) Describe() string {
	if s.File != "" {
		return "runFlow: " + s.File
	}
	return "runFlow"
}

// RunScriptStep evaluates a goja script against the running session,
// either inline (Script) or loaded from a file (File).
type RunScriptStep struct {
	BaseStep `yaml:",inline"`
	Script   string            `yaml:"script"`
	File     string            `yaml:"file"`
	Env      map[string]string `yaml:"env"`
}

// ScriptPath returns the step's script source: File if set, else Script.
func (s *RunScriptStep) ScriptPath() string {
	if s.File != "" {
		return s.File
	}
	return s.Script
}

func (s *RunScriptStep) Describe() string { return "runScript" }

// DefineVariablesStep sets environment variables for later steps.
type DefineVariablesStep struct {
	BaseStep `yaml:",inline"`
	Env      map[string]string `yaml:"env"`
}

func (s *DefineVariablesStep) Describe() string { return "defineVariables" }

// Condition gates a repeat/runFlow step on an element's visibility.
type Condition struct {
	Selector   string `yaml:"selector"`
	Visible    *bool  `yaml:"visible"`
	NotVisible *bool  `yaml:"notVisible"`
}

// UnsupportedStep marks a step type the parser recognized syntactically
// but does not implement.
type UnsupportedStep struct {
	BaseStep `yaml:",inline"`
	Reason   string
}

func (s *UnsupportedStep) Describe() string {
	return string(s.StepType) + " (unsupported: " + s.Reason + ")"
}
