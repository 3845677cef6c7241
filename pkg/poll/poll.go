// Package poll implements the cooperative poll/progress runtime of
// spec.md §4.D: a cancellable task driven by a scheduler, carrying a
// Progress object that accumulates logs and intermediate results the
// controller drains incrementally.
//
// There is no requestAnimationFrame in a headless Go process, so PollRaf
// here is always the timer-backed form spec.md §4.D describes as the
// fallback ("when replaceRafWithTimeout is set, pollRaf is silently
// replaced by a 16 ms timer") — this implementation has no other form to
// fall back from. See DESIGN.md.
package poll

import (
	"fmt"
	"reflect"
	"sync"
	"time"
)

// Scheduler returns the delay before the next tick, given the number of
// ticks already elapsed (0-based). The three pre-built schedulers below
// satisfy this shape.
type Scheduler func(tick int) time.Duration

// PollRaf approximates animation-frame cadence with a 16 ms timer.
func PollRaf() Scheduler {
	return func(int) time.Duration { return 16 * time.Millisecond }
}

// PollInterval is a fixed-rate timer scheduler.
func PollInterval(d time.Duration) Scheduler {
	return func(int) time.Duration { return d }
}

// PollLogScale ramps 100ms, 250ms, 500ms, then holds at 1000ms — the
// backoff spec.md §4.D names for log-visible waits (e.g. "waiting for
// element to be visible" retries).
func PollLogScale() Scheduler {
	stages := []time.Duration{100 * time.Millisecond, 250 * time.Millisecond, 500 * time.Millisecond}
	return func(tick int) time.Duration {
		if tick < len(stages) {
			return stages[tick]
		}
		return time.Second
	}
}

// Progress is spec.md §3's Progress: abort status plus log/intermediate
// result emission, deduplicating consecutive repeats.
type Progress struct {
	mu       sync.Mutex
	aborted  bool
	finished bool
	notify   chan struct{}
	cancelCh chan struct{}

	logs       []string
	lastLog    string
	hasLastLog bool

	results       []interface{}
	lastResult    interface{}
	hasLastResult bool
}

func newProgress() *Progress {
	return &Progress{notify: make(chan struct{}), cancelCh: make(chan struct{})}
}

// signal wakes any TakeNextLogs waiter. Callers must hold p.mu.
func (p *Progress) signal() {
	close(p.notify)
	p.notify = make(chan struct{})
}

// Aborted reports whether the task has been cancelled.
func (p *Progress) Aborted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.aborted
}

// Log unconditionally appends msg.
func (p *Progress) Log(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		return
	}
	p.logs = append(p.logs, msg)
	p.lastLog, p.hasLastLog = msg, true
	p.signal()
}

// LogRepeating appends msg unless it equals the last emitted message
// (spec.md §3, §8 property 6): "suppresses consecutive duplicate
// messages", used by the stability wait so only state transitions show.
func (p *Progress) LogRepeating(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished || (p.hasLastLog && p.lastLog == msg) {
		return
	}
	p.logs = append(p.logs, msg)
	p.lastLog, p.hasLastLog = msg, true
	p.signal()
}

// SetIntermediateResult records value unless it equals the previously
// published value (spec.md §3, §8 property 6), used by expect to stream
// the currently-received value while an assertion has not yet passed.
func (p *Progress) SetIntermediateResult(value interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished || (p.hasLastResult && reflect.DeepEqual(p.lastResult, value)) {
		return
	}
	p.results = append(p.results, value)
	p.lastResult, p.hasLastResult = value, true
	p.signal()
}

// LastIntermediateResult returns the most recently published
// intermediate result, and whether one has ever been published.
func (p *Progress) LastIntermediateResult() (interface{}, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastResult, p.hasLastResult
}

func (p *Progress) abort() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.aborted {
		return
	}
	p.aborted = true
	close(p.cancelCh)
	// Cancellation settles the task the same way completion does, so no
	// TakeNextLogs waiter is left dangling (spec.md §4.D, §5).
	if !p.finished {
		p.finished = true
		p.signal()
	}
}

func (p *Progress) markFinished() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		return
	}
	p.finished = true
	p.signal()
}

// Result is a poll's outcome: a value on success, an error if the
// predicate returned one.
type Result struct {
	Value interface{}
	Err   error
}

// Predicate is spec.md §4.D's `(progress, continuePolling) → value |
// continuePolling`. Returning the continuePolling value passed in
// schedules another tick; anything else fulfils the task.
type Predicate func(progress *Progress, continuePolling interface{}) (interface{}, error)

// Poll wraps a cancellable cooperative task (spec.md §3, §4.D).
type Poll struct {
	progress  *Progress
	predicate Predicate
	scheduler Scheduler
	resultCh  chan Result
	logCursor int
	started   bool
	startMu   sync.Mutex
}

// New builds a Poll. Run must be called to start it.
func New(predicate Predicate, scheduler Scheduler) *Poll {
	return &Poll{
		progress:  newProgress(),
		predicate: predicate,
		scheduler: scheduler,
		resultCh:  make(chan Result, 1),
	}
}

// Progress exposes the poll's progress object, e.g. so a caller composing
// several polls can share log/abort plumbing.
func (p *Poll) Progress() *Progress { return p.progress }

// Run starts the poll loop in the background. Calling Run more than once
// is a no-op after the first call.
func (p *Poll) Run() {
	p.startMu.Lock()
	defer p.startMu.Unlock()
	if p.started {
		return
	}
	p.started = true
	go p.loop()
}

// sentinelToken is spec.md §3/§9's continuePolling sentinel: a value
// freshly minted per Poll so a predicate's real return value can never
// collide with it.
type sentinelToken struct{}

func (p *Poll) loop() {
	sentinel := &sentinelToken{}
	tick := 0
	for {
		if p.progress.Aborted() {
			return // spec.md §4.D step 1: stop silently, never fulfil.
		}

		value, err := p.invoke(sentinel)
		if err != nil {
			p.progress.Log("  " + err.Error())
			p.finish(Result{Err: err})
			return
		}
		if value != sentinel {
			p.finish(Result{Value: value})
			return
		}
		if p.progress.Aborted() {
			return
		}

		delay := p.scheduler(tick)
		tick++
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-p.progress.cancelCh:
			timer.Stop()
			return
		}
	}
}

// invoke calls the predicate, converting a panic into an error so a
// misbehaving predicate cannot take the whole poll goroutine down
// silently.
func (p *Poll) invoke(sentinel interface{}) (value interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return p.predicate(p.progress, sentinel)
}

func (p *Poll) finish(r Result) {
	p.progress.markFinished()
	p.resultCh <- r
}

// Result blocks until the poll fulfils, fails, or is cancelled. A
// cancelled poll blocks forever here, matching spec.md §5: "a cancelled
// poll never fulfils or rejects its run() promise" — callers that also
// hold the cancellation trigger should select on their own cancel signal
// alongside Result() rather than call it unconditionally.
func (p *Poll) Result() (interface{}, error) {
	r := <-p.resultCh
	return r.Value, r.Err
}

// Cancel sets progress.aborted; the next scheduled tick returns
// immediately without resuming the predicate (spec.md §5).
func (p *Poll) Cancel() {
	p.progress.abort()
}

// TakeNextLogs blocks until a new log entry arrives or the task
// finishes, then returns every entry accumulated since the last call
// (spec.md §4.D). After the task finishes, it returns immediately with
// whatever remains (possibly nil).
//
// This mirrors a single controller draining one poll at a time; it does
// not defend against two goroutines calling TakeNextLogs concurrently on
// the same Poll, matching the single-threaded model spec.md §5 assumes.
func (p *Poll) TakeNextLogs() []string {
	for {
		p.progress.mu.Lock()
		if len(p.progress.logs) > p.logCursor {
			out := append([]string(nil), p.progress.logs[p.logCursor:]...)
			p.logCursor = len(p.progress.logs)
			p.progress.mu.Unlock()
			return out
		}
		if p.progress.finished {
			p.progress.mu.Unlock()
			return nil
		}
		ch := p.progress.notify
		p.progress.mu.Unlock()
		<-ch
	}
}

// TakeLastLogs returns the buffered logs since the last take, without
// blocking.
func (p *Poll) TakeLastLogs() []string {
	p.progress.mu.Lock()
	defer p.progress.mu.Unlock()
	out := append([]string(nil), p.progress.logs[p.logCursor:]...)
	p.logCursor = len(p.progress.logs)
	return out
}
