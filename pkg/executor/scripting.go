package executor

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dop251/goja"

	"github.com/webdriver-labs/domrunner/pkg/core"
	"github.com/webdriver-labs/domrunner/pkg/flow"
)

// envVarPattern matches ALL_CAPS identifiers that look like env variables.
var envVarPattern = regexp.MustCompile(`\b([A-Z][A-Z0-9_]{2,})\b`)

// ScriptEngine expands ${expr}/$VAR variables and runs runScript steps
// against a goja VM, following the same New/SetFieldNameMapper/RunString
// idiom pkg/registry/extend.go uses to run extension bodies.
type ScriptEngine struct {
	vm        *goja.Runtime
	variables map[string]string
	flowDir   string
}

// NewScriptEngine creates a script engine with a fresh goja VM.
func NewScriptEngine() *ScriptEngine {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.UncapFieldNameMapper())
	return &ScriptEngine{vm: vm, variables: make(map[string]string)}
}

// SetFlowDir sets the current flow directory for relative path resolution.
func (se *ScriptEngine) SetFlowDir(dir string) {
	se.flowDir = dir
}

// SetVariable sets a variable, visible both to ExpandVariables and to
// scripts run via RunScript/EvalCondition.
func (se *ScriptEngine) SetVariable(name, value string) {
	se.variables[name] = value
}

// SetVariables sets multiple variables.
func (se *ScriptEngine) SetVariables(vars map[string]string) {
	for k, v := range vars {
		se.SetVariable(k, v)
	}
}

// ImportSystemEnv imports ALL_CAPS process environment variables.
func (se *ScriptEngine) ImportSystemEnv() {
	for _, env := range os.Environ() {
		name, value, ok := strings.Cut(env, "=")
		if ok && envVarPattern.MatchString(name) {
			se.SetVariable(name, value)
		}
	}
}

// GetVariable returns a variable value.
func (se *ScriptEngine) GetVariable(name string) string {
	return se.variables[name]
}

// bindGlobals exposes the current variable set and a fresh `output` object
// to the VM before running a script or condition.
func (se *ScriptEngine) bindGlobals() {
	for name, value := range se.variables {
		se.vm.Set(name, value)
	}
	se.vm.Set("output", se.vm.NewObject())
}

// syncOutput copies properties a script assigned to the global `output`
// object back into variables, the convention for a script handing
// values to later steps.
func (se *ScriptEngine) syncOutput() {
	outputVal := se.vm.Get("output")
	if outputVal == nil || goja.IsUndefined(outputVal) || goja.IsNull(outputVal) {
		return
	}
	obj := outputVal.ToObject(se.vm)
	if obj == nil {
		return
	}
	for _, key := range obj.Keys() {
		se.variables[key] = fmt.Sprintf("%v", obj.Get(key).Export())
	}
}

// ExpandVariables expands ${expr} (evaluated as JS) and $VAR (plain
// substitution) references in text.
func (se *ScriptEngine) ExpandVariables(text string) string {
	text = se.expandExpressions(text)
	return se.expandDollarVars(text)
}

// dollarExprPattern matches ${...} spans for the JS-expression expansion pass.
var dollarExprPattern = regexp.MustCompile(`\$\{([^}]*)\}`)

func (se *ScriptEngine) expandExpressions(text string) string {
	if !strings.Contains(text, "${") {
		return text
	}
	se.bindGlobals()
	return dollarExprPattern.ReplaceAllStringFunc(text, func(match string) string {
		expr := match[2 : len(match)-1]
		val, err := se.vm.RunString(expr)
		if err != nil {
			return match
		}
		return fmt.Sprintf("%v", val.Export())
	})
}

// expandDollarVars expands $VAR (no braces), longest names first so $FOOBAR
// isn't partially consumed by a shorter $FOO.
func (se *ScriptEngine) expandDollarVars(text string) string {
	names := make([]string, 0, len(se.variables))
	for name := range se.variables {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })

	for _, name := range names {
		text = expandDollarVar(text, name, se.variables[name])
	}
	return text
}

// expandDollarVar replaces $VAR with value, respecting word boundaries so a
// longer variable name sharing a prefix isn't partially replaced.
func expandDollarVar(text, name, value string) string {
	pattern := "$" + name
	idx := 0
	for {
		pos := strings.Index(text[idx:], pattern)
		if pos == -1 {
			break
		}
		pos += idx
		endPos := pos + len(pattern)
		if endPos < len(text) {
			next := text[endPos]
			if (next >= 'a' && next <= 'z') || (next >= 'A' && next <= 'Z') ||
				(next >= '0' && next <= '9') || next == '_' {
				idx = endPos
				continue
			}
		}
		text = text[:pos] + value + text[endPos:]
		idx = pos + len(value)
	}
	return text
}

// RunScript executes a JavaScript script, applying env first and syncing
// any `output.*` assignments back into variables afterward.
func (se *ScriptEngine) RunScript(script string, env map[string]string) error {
	for k, v := range env {
		se.SetVariable(k, v)
	}
	script = se.expandDollarVars(script)
	se.bindGlobals()
	if _, err := se.vm.RunString(script); err != nil {
		return err
	}
	se.syncOutput()
	return nil
}

// EvalCondition evaluates a ${...}-wrapped or bare JS expression and
// coerces the result to a boolean.
func (se *ScriptEngine) EvalCondition(script string) (bool, error) {
	script = extractJS(script)
	script = se.expandDollarVars(script)
	se.bindGlobals()
	val, err := se.vm.RunString(script)
	if err != nil {
		return false, err
	}
	return toBool(val.Export()), nil
}

func toBool(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true"
	case int64:
		return t != 0
	case float64:
		return t != 0
	default:
		return v != nil
	}
}

// extractJS unwraps a ${...} expression: script-condition fields carry
// a JS expression in that form.
func extractJS(script string) string {
	script = strings.TrimSpace(script)
	if strings.HasPrefix(script, "${") && strings.HasSuffix(script, "}") {
		return script[2 : len(script)-1]
	}
	return script
}

// ResolvePath resolves a relative path against the flow directory.
func (se *ScriptEngine) ResolvePath(path string) string {
	if filepath.IsAbs(path) || se.flowDir == "" {
		return path
	}
	return filepath.Join(se.flowDir, path)
}

// ExecuteDefineVariables handles a defineVariables step.
func (se *ScriptEngine) ExecuteDefineVariables(step *flow.DefineVariablesStep) *core.CommandResult {
	for k, v := range step.Env {
		se.SetVariable(k, se.ExpandVariables(v))
	}
	return &core.CommandResult{Success: true, Message: fmt.Sprintf("defined %d variable(s)", len(step.Env))}
}

// ExecuteRunScript handles a runScript step. Its source is File if set,
// else Script; a source ending in ".js" is read from that path (relative
// to the flow directory), anything else is run inline as script text.
func (se *ScriptEngine) ExecuteRunScript(step *flow.RunScriptStep) *core.CommandResult {
	source := step.ScriptPath()
	if strings.HasSuffix(source, ".js") {
		path := se.ResolvePath(source)
		content, err := os.ReadFile(path)
		if err != nil {
			return &core.CommandResult{Success: false, Error: err, Message: fmt.Sprintf("cannot read script file: %s", path)}
		}
		source = string(content)
	}

	if err := se.RunScript(source, step.Env); err != nil {
		return &core.CommandResult{Success: false, Error: err, Message: fmt.Sprintf("script execution failed: %v", err)}
	}
	return &core.CommandResult{Success: true, Message: "script executed"}
}

// withEnvVars applies environment variables and returns a restore func.
func (se *ScriptEngine) withEnvVars(env map[string]string) func() {
	saved := make(map[string]string, len(env))
	for k := range env {
		saved[k] = se.GetVariable(k)
	}
	for k, v := range env {
		se.SetVariable(k, v)
	}
	return func() {
		for k, v := range saved {
			se.SetVariable(k, v)
		}
	}
}

// ParseInt parses an integer from a string that may itself contain
// variable references (e.g. a repeat step's times: "$COUNT").
func (se *ScriptEngine) ParseInt(s string, defaultVal int) int {
	s = se.ExpandVariables(s)
	s = strings.ReplaceAll(s, "_", "")
	if val, err := strconv.Atoi(s); err == nil {
		return val
	}
	return defaultVal
}

// ExpandStep expands variable references in every string field a step
// exposes to the session. Steps are cloned per loop iteration by their
// callers, so mutating in place is safe.
func (se *ScriptEngine) ExpandStep(step flow.Step) {
	switch s := step.(type) {
	case *flow.FillStep:
		s.Selector = se.ExpandVariables(s.Selector)
		s.Value = se.ExpandVariables(s.Value)
	case *flow.SelectOptionsStep:
		s.Selector = se.ExpandVariables(s.Selector)
	case *flow.SelectTextStep:
		s.Selector = se.ExpandVariables(s.Selector)
	case *flow.FocusStep:
		s.Selector = se.ExpandVariables(s.Selector)
	case *flow.SetInputFilesStep:
		s.Selector = se.ExpandVariables(s.Selector)
	case *flow.DispatchEventStep:
		s.Selector = se.ExpandVariables(s.Selector)
		s.EventType = se.ExpandVariables(s.EventType)
	case *flow.CheckHitTargetStep:
		s.Selector = se.ExpandVariables(s.Selector)
	case *flow.ElementStateStep:
		s.Selector = se.ExpandVariables(s.Selector)
	case *flow.WaitForStep:
		s.Selector = se.ExpandVariables(s.Selector)
	case *flow.ExpectStep:
		s.Selector = se.ExpandVariables(s.Selector)
		s.ExpressionArg = se.ExpandVariables(s.ExpressionArg)
	case *flow.ExtendStep:
		s.Name = se.ExpandVariables(s.Name)
	}
}
