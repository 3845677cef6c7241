package executor

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/webdriver-labs/domrunner/pkg/core"
	"github.com/webdriver-labs/domrunner/pkg/flow"
)

// FlowRunner drives one parsed flow's steps against a Driver, expanding
// variables and unwinding repeat/retry/runFlow control flow as it goes.
type FlowRunner struct {
	ctx    context.Context
	flow   flow.Flow
	driver core.Driver
	config RunnerConfig
	script *ScriptEngine

	depth        int
	stepsPassed  int
	stepsFailed  int
	stepsSkipped int
}

// NewFlowRunner builds a runner for one flow.
func NewFlowRunner(ctx context.Context, f flow.Flow, driver core.Driver, cfg RunnerConfig) *FlowRunner {
	script := NewScriptEngine()
	script.SetFlowDir(filepath.Dir(f.SourcePath))
	script.ImportSystemEnv()
	script.SetVariables(cfg.Env)
	script.SetVariables(f.Config.Env)
	return &FlowRunner{ctx: ctx, flow: f, driver: driver, config: cfg, script: script}
}

// Run executes the flow start-to-finish and returns its aggregated result.
func (fr *FlowRunner) Run() core.FlowResult {
	start := time.Now()
	result := core.FlowResult{
		Name:         fr.flow.Config.Name,
		FilePath:     fr.flow.SourcePath,
		Tags:         fr.flow.Config.Tags,
		PlatformInfo: fr.driver.GetPlatformInfo(),
		StartTime:    start,
	}

	stopped := false
	for idx, step := range fr.flow.Steps {
		if stopped {
			result.Steps = append(result.Steps, core.StepResult{
				Index: idx, Command: string(step.Type()), Status: core.StatusSkipped, StartTime: time.Now(),
			})
			fr.stepsSkipped++
			continue
		}

		sr := fr.executeTopLevelStep(idx, step)
		result.Steps = append(result.Steps, sr)

		if fr.config.OnStepComplete != nil {
			fr.config.OnStepComplete(idx, step.Describe(), sr.Status.IsSuccess(), sr.Duration.Milliseconds(), sr.Error)
		}

		if sr.Status == core.StatusFailed || sr.Status == core.StatusErrored {
			fr.stepsFailed++
			if fr.config.StopOnFail {
				stopped = true
			}
		} else {
			fr.stepsPassed++
		}
	}

	result.Duration = time.Since(start)
	result.ComputeSummary()
	result.Status = result.AggregateStatus()
	return result
}

func (fr *FlowRunner) executeTopLevelStep(idx int, step flow.Step) core.StepResult {
	start := time.Now()
	sr := core.StepResult{
		Step: step, Index: idx, Command: string(step.Type()), StartTime: start,
	}

	if fr.ctx.Err() != nil {
		sr.Status = core.StatusErrored
		sr.Error = fr.ctx.Err().Error()
		sr.Duration = time.Since(start)
		return sr
	}

	result := fr.dispatch(step)
	sr.Duration = time.Since(start)
	sr.Message = result.Message
	sr.Element = result.Element
	sr.Data = result.Data
	sr.ExecutedBy = core.ExecutedByDriver
	if isControlFlow(step) {
		sr.ExecutedBy = core.ExecutedByRunner
	}

	if result.Success {
		sr.Status = core.StatusPassed
	} else if step.IsOptional() {
		sr.Status = core.StatusWarned
	} else {
		sr.Status = core.StatusFailed
		if result.Error != nil {
			sr.Error = result.Error.Error()
		}
	}
	return sr
}

func isControlFlow(step flow.Step) bool {
	switch step.Type() {
	case flow.StepRepeat, flow.StepRetry, flow.StepRunFlow, flow.StepRunScript, flow.StepDefineVariables:
		return true
	default:
		return false
	}
}

// dispatch expands the step's variables and routes control-flow steps to
// script/local handlers; everything else goes to the Driver.
func (fr *FlowRunner) dispatch(step flow.Step) *core.CommandResult {
	fr.script.ExpandStep(step)

	switch s := step.(type) {
	case *flow.DefineVariablesStep:
		return fr.script.ExecuteDefineVariables(s)
	case *flow.RunScriptStep:
		return fr.script.ExecuteRunScript(s)
	case *flow.RepeatStep:
		return fr.executeRepeat(s)
	case *flow.RetryStep:
		return fr.executeRetry(s)
	case *flow.RunFlowStep:
		return fr.executeRunFlow(s)
	default:
		return fr.driver.Execute(step)
	}
}

const maxWhileIterations = 1000

func (fr *FlowRunner) executeRepeat(step *flow.RepeatStep) *core.CommandResult {
	hasWhile := step.While.Selector != ""
	iterations := fr.script.ParseInt(step.Times, 1)
	if hasWhile {
		iterations = maxWhileIterations
	}

	completed := 0
	for i := 0; i < iterations; i++ {
		if hasWhile && !fr.checkCondition(step.While) {
			break
		}
		if fr.ctx.Err() != nil {
			return &core.CommandResult{Success: false, Error: fr.ctx.Err(), Message: "repeat cancelled"}
		}
		for _, nested := range step.Steps {
			result := fr.executeNestedStep(nested)
			if !result.Success && !nested.IsOptional() {
				return &core.CommandResult{Success: false, Error: result.Error, Message: fmt.Sprintf("repeat: iteration %d failed: %s", completed+1, result.Message)}
			}
		}
		completed++
	}
	return &core.CommandResult{Success: true, Message: fmt.Sprintf("repeat: %d iteration(s) completed", completed)}
}

// executeRetry re-runs its nested steps (or an external sub-flow) up to
// MaxRetries times, backing off exponentially between failed attempts.
func (fr *FlowRunner) executeRetry(step *flow.RetryStep) *core.CommandResult {
	restore := fr.script.withEnvVars(step.Env)
	defer restore()

	maxRetries := fr.script.ParseInt(step.MaxRetries, 3)
	if maxRetries < 1 {
		maxRetries = 1
	}

	if step.File != "" {
		return fr.executeSubFlowWithRetry(step.File, maxRetries)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 3 * time.Second

	var lastResult *core.CommandResult
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if fr.ctx.Err() != nil {
			return &core.CommandResult{Success: false, Error: fr.ctx.Err(), Message: "retry cancelled"}
		}
		lastResult = fr.runRetryAttempt(step.Steps)
		if lastResult.Success {
			return &core.CommandResult{Success: true, Message: fmt.Sprintf("retry: succeeded on attempt %d/%d", attempt, maxRetries)}
		}
		if attempt < maxRetries {
			wait := bo.NextBackOff()
			if wait == backoff.Stop {
				break
			}
			select {
			case <-time.After(wait):
			case <-fr.ctx.Done():
				return &core.CommandResult{Success: false, Error: fr.ctx.Err(), Message: "retry cancelled"}
			}
		}
	}
	return &core.CommandResult{Success: false, Error: lastResult.Error, Message: fmt.Sprintf("retry: all %d attempt(s) failed: %s", maxRetries, lastResult.Message)}
}

func (fr *FlowRunner) runRetryAttempt(steps []flow.Step) *core.CommandResult {
	for _, nested := range steps {
		result := fr.executeNestedStep(nested)
		if !result.Success && !nested.IsOptional() {
			return result
		}
	}
	return &core.CommandResult{Success: true}
}

func (fr *FlowRunner) executeSubFlowWithRetry(path string, maxRetries int) *core.CommandResult {
	subFlow, err := flow.ParseFile(fr.script.ResolvePath(path))
	if err != nil {
		return &core.CommandResult{Success: false, Error: err, Message: fmt.Sprintf("retry: cannot load flow %s: %v", path, err)}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 3 * time.Second

	var lastResult *core.CommandResult
	for attempt := 1; attempt <= maxRetries; attempt++ {
		lastResult = fr.executeSubFlow(*subFlow)
		if lastResult.Success {
			return &core.CommandResult{Success: true, Message: fmt.Sprintf("retry: %s succeeded on attempt %d/%d", path, attempt, maxRetries)}
		}
		if attempt < maxRetries {
			wait := bo.NextBackOff()
			if wait == backoff.Stop {
				break
			}
			time.Sleep(wait)
		}
	}
	return &core.CommandResult{Success: false, Error: lastResult.Error, Message: fmt.Sprintf("retry: %s failed after %d attempt(s)", path, maxRetries)}
}

func (fr *FlowRunner) executeRunFlow(step *flow.RunFlowStep) *core.CommandResult {
	if step.When != nil && !fr.checkCondition(*step.When) {
		return &core.CommandResult{Success: true, Message: "runFlow: condition not met, skipped"}
	}

	restore := fr.script.withEnvVars(step.Env)
	defer restore()

	fr.depth++
	defer func() { fr.depth-- }()

	if fr.config.OnNestedFlowStart != nil {
		fr.config.OnNestedFlowStart(fr.depth, step.Describe())
	}

	if step.File != "" {
		subFlow, err := flow.ParseFile(fr.script.ResolvePath(step.File))
		if err != nil {
			return &core.CommandResult{Success: false, Error: err, Message: fmt.Sprintf("runFlow: cannot load %s: %v", step.File, err)}
		}
		return fr.executeSubFlow(*subFlow)
	}
	return fr.executeSubFlow(flow.Flow{SourcePath: fr.flow.SourcePath, Steps: step.Steps})
}

func (fr *FlowRunner) executeSubFlow(subFlow flow.Flow) *core.CommandResult {
	savedDir := fr.script.flowDir
	if subFlow.SourcePath != "" {
		fr.script.SetFlowDir(filepath.Dir(subFlow.SourcePath))
		defer fr.script.SetFlowDir(savedDir)
	}
	restore := fr.script.withEnvVars(subFlow.Config.Env)
	defer restore()

	for _, step := range subFlow.Steps {
		result := fr.executeNestedStep(step)
		if !result.Success && !step.IsOptional() {
			return &core.CommandResult{Success: false, Error: result.Error, Message: result.Message}
		}
	}
	return &core.CommandResult{Success: true, Message: fmt.Sprintf("sub-flow completed (%d steps)", len(subFlow.Steps))}
}

// executeNestedStep runs one step below the top level (inside repeat,
// retry, or runFlow), reporting to OnNestedStep and counting toward the
// flow's step tallies without producing its own core.StepResult entry.
func (fr *FlowRunner) executeNestedStep(step flow.Step) *core.CommandResult {
	start := time.Now()
	result := fr.dispatch(step)
	duration := time.Since(start)

	if result.Success || step.IsOptional() {
		fr.stepsPassed++
	} else {
		fr.stepsFailed++
	}

	if fr.config.OnNestedStep != nil {
		fr.config.OnNestedStep(fr.depth, step.Describe(), result.Success || step.IsOptional(), duration.Milliseconds(), errMessage(result.Error))
	}
	return result
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// checkCondition evaluates a flow.Condition against the current DOM via the
// bound driver's Execute, using an elementState check for visible/notVisible.
func (fr *FlowRunner) checkCondition(cond flow.Condition) bool {
	if cond.Selector == "" {
		return true
	}
	result := fr.driver.Execute(&flow.ElementStateStep{
		BaseStep: flow.BaseStep{StepType: flow.StepElementState},
		Selector: cond.Selector,
		State:    "visible",
	})
	visible := result.Success
	if b, ok := result.Data.(bool); ok {
		visible = b
	}
	if cond.Visible != nil {
		return visible == *cond.Visible
	}
	if cond.NotVisible != nil {
		return visible != *cond.NotVisible
	}
	return visible
}
