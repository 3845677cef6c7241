// Package executor orchestrates flow execution: it builds a Driver per
// flow's fixture, runs the flow's steps through a FlowRunner, and
// aggregates the results into a core.SuiteResult.
package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/webdriver-labs/domrunner/pkg/config"
	"github.com/webdriver-labs/domrunner/pkg/core"
	"github.com/webdriver-labs/domrunner/pkg/dom"
	"github.com/webdriver-labs/domrunner/pkg/flow"
	"github.com/webdriver-labs/domrunner/pkg/session"
)

// RunnerConfig configures a Runner's execution of a flow set.
type RunnerConfig struct {
	// FixtureDir resolves a flow's Config.Fixture when it isn't already
	// relative to the flow file's own directory.
	FixtureDir string

	SessionOptions session.Options

	// Extensions are workspace-declared custom engines (config.yaml's
	// `extend:` list, already resolved to source text) registered on every
	// flow's session via session.Session.Extend before it runs. Ignored
	// when NewDriver is set, since test doubles don't have a session to
	// extend.
	Extensions []config.ResolvedExtension

	// NewDriver builds the Driver bound to a flow's parsed fixture. Tests
	// override this to inject a fake without going through a real session;
	// production callers leave it nil and get session.New+NewDriver.
	NewDriver func(doc *dom.Document, opts session.Options) core.Driver

	Parallelism int
	StopOnFail  bool
	Env         map[string]string

	OnFlowStart       func(flowIdx, totalFlows int, name, file string)
	OnStepComplete    func(idx int, desc string, passed bool, durationMs int64, errMsg string)
	OnNestedStep      func(depth int, desc string, passed bool, durationMs int64, errMsg string)
	OnNestedFlowStart func(depth int, desc string)
	OnFlowEnd         func(name string, passed bool, durationMs int64)
}

// Runner runs a set of parsed flows, one Driver per flow.
type Runner struct {
	config RunnerConfig
}

// New builds a Runner.
func New(cfg RunnerConfig) *Runner {
	if cfg.Parallelism < 1 {
		cfg.Parallelism = 1
	}
	return &Runner{config: cfg}
}

// Run executes every flow (respecting Parallelism) and returns the
// aggregated suite result.
func (r *Runner) Run(ctx context.Context, flows []flow.Flow) (*core.SuiteResult, error) {
	start := time.Now()
	result := &core.SuiteResult{
		RunID:     uuid.NewString(),
		StartTime: start,
		Flows:     make([]core.FlowResult, len(flows)),
	}

	if err := r.executeFlows(ctx, flows, result.Flows); err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)
	result.ComputeSummary()
	return result, nil
}

func (r *Runner) executeFlows(ctx context.Context, flows []flow.Flow, out []core.FlowResult) error {
	total := len(flows)
	if r.config.Parallelism <= 1 {
		for i, f := range flows {
			if r.config.OnFlowStart != nil {
				r.config.OnFlowStart(i, total, f.Config.Name, f.SourcePath)
			}
			fr := r.executeFlow(ctx, f)
			out[i] = fr
			if r.config.OnFlowEnd != nil {
				r.config.OnFlowEnd(f.Config.Name, fr.Status.IsSuccess(), fr.Duration.Milliseconds())
			}
			if r.config.StopOnFail && !fr.Status.IsSuccess() {
				break
			}
		}
		return nil
	}

	sem := make(chan struct{}, r.config.Parallelism)
	var wg sync.WaitGroup
	var stopMu sync.Mutex
	stopped := false

	for i, f := range flows {
		stopMu.Lock()
		if stopped {
			stopMu.Unlock()
			break
		}
		stopMu.Unlock()

		sem <- struct{}{}
		wg.Add(1)
		go func(idx int, f flow.Flow) {
			defer wg.Done()
			defer func() { <-sem }()

			if r.config.OnFlowStart != nil {
				r.config.OnFlowStart(idx, total, f.Config.Name, f.SourcePath)
			}
			fr := r.executeFlow(ctx, f)
			out[idx] = fr
			if r.config.OnFlowEnd != nil {
				r.config.OnFlowEnd(f.Config.Name, fr.Status.IsSuccess(), fr.Duration.Milliseconds())
			}
			if r.config.StopOnFail && !fr.Status.IsSuccess() {
				stopMu.Lock()
				stopped = true
				stopMu.Unlock()
			}
		}(i, f)
	}
	wg.Wait()
	return nil
}

// executeFlow loads the flow's fixture, builds a session and Driver over
// it, and runs the flow's steps to completion.
func (r *Runner) executeFlow(ctx context.Context, f flow.Flow) core.FlowResult {
	doc, err := r.loadFixture(f)
	if err != nil {
		return core.FlowResult{
			Name:      f.Config.Name,
			FilePath:  f.SourcePath,
			Tags:      f.Config.Tags,
			Status:    core.StatusErrored,
			StartTime: time.Now(),
			Error:     err.Error(),
			Message:   fmt.Sprintf("failed to load fixture: %v", err),
		}
	}

	var driver core.Driver
	if r.config.NewDriver != nil {
		driver = r.config.NewDriver(doc, r.config.SessionOptions)
	} else {
		sess := session.New(doc, r.config.SessionOptions)
		for _, ext := range r.config.Extensions {
			if err := sess.Extend(ext.Name, ext.Body, ext.Params, ext.APIVersionConstraint); err != nil {
				return core.FlowResult{
					Name:      f.Config.Name,
					FilePath:  f.SourcePath,
					Tags:      f.Config.Tags,
					Status:    core.StatusErrored,
					StartTime: time.Now(),
					Error:     err.Error(),
					Message:   fmt.Sprintf("failed to register extension %q: %v", ext.Name, err),
				}
			}
		}
		driver = NewDriver(sess)
	}

	if f.Config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(f.Config.Timeout)*time.Millisecond)
		defer cancel()
	}

	runner := NewFlowRunner(ctx, f, driver, r.config)
	return runner.Run()
}

// loadFixture reads and parses the HTML fixture a flow declares, resolving
// it relative to the flow file's directory and falling back to
// RunnerConfig.FixtureDir.
func (r *Runner) loadFixture(f flow.Flow) (*dom.Document, error) {
	if f.Config.Fixture == "" {
		return nil, fmt.Errorf("flow %s declares no fixture", f.SourcePath)
	}

	path := f.Config.Fixture
	if !filepath.IsAbs(path) {
		candidate := filepath.Join(filepath.Dir(f.SourcePath), path)
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		} else if r.config.FixtureDir != "" {
			path = filepath.Join(r.config.FixtureDir, path)
		} else {
			path = candidate
		}
	}

	source, err := os.ReadFile(path) //#nosec G304 -- fixture path comes from the flow file, trusted like the flow itself
	if err != nil {
		return nil, err
	}
	return dom.NewDocument(string(source))
}
