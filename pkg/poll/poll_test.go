package poll

import (
	"errors"
	"testing"
	"time"
)

func TestPollFulfillsOnNonSentinelReturn(t *testing.T) {
	p := New(func(progress *Progress, cont interface{}) (interface{}, error) {
		return "done", nil
	}, PollInterval(time.Millisecond))
	p.Run()

	val, err := p.Result()
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if val != "done" {
		t.Fatalf("got %v, want done", val)
	}
}

func TestPollContinuesUntilCondition(t *testing.T) {
	calls := 0
	p := New(func(progress *Progress, cont interface{}) (interface{}, error) {
		calls++
		if calls < 3 {
			return cont, nil
		}
		return calls, nil
	}, PollInterval(time.Millisecond))
	p.Run()

	val, err := p.Result()
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if val != 3 {
		t.Fatalf("got %v, want 3", val)
	}
}

func TestPollPredicateErrorFailsTaskAndLogs(t *testing.T) {
	p := New(func(progress *Progress, cont interface{}) (interface{}, error) {
		return nil, errors.New("boom")
	}, PollInterval(time.Millisecond))
	p.Run()

	_, err := p.Result()
	if err == nil || err.Error() != "boom" {
		t.Fatalf("got err %v, want boom", err)
	}
	logs := p.TakeLastLogs()
	if len(logs) != 1 || logs[0] != "  boom" {
		t.Fatalf("got logs %v, want one entry \"  boom\"", logs)
	}
}

func TestPollCancellationNeverFulfils(t *testing.T) {
	started := make(chan struct{})
	p := New(func(progress *Progress, cont interface{}) (interface{}, error) {
		close(started)
		return cont, nil
	}, PollInterval(50*time.Millisecond))
	p.Run()
	<-started
	p.Cancel()

	select {
	case <-p.resultCh:
		t.Fatal("cancelled poll must never write to resultCh")
	case <-time.After(150 * time.Millisecond):
		// expected: still blocked
	}
}

func TestTakeNextLogsUnblocksOnFinish(t *testing.T) {
	p := New(func(progress *Progress, cont interface{}) (interface{}, error) {
		return "ok", nil
	}, PollInterval(time.Millisecond))
	p.Run()

	logs := p.TakeNextLogs()
	if logs != nil {
		t.Fatalf("got %v, want nil (no logs emitted before completion)", logs)
	}
	if _, err := p.Result(); err != nil {
		t.Fatalf("Result: %v", err)
	}
}

func TestLogRepeatingDedupsConsecutive(t *testing.T) {
	pr := newProgress()
	pr.LogRepeating("waiting")
	pr.LogRepeating("waiting")
	pr.LogRepeating("waiting")
	pr.LogRepeating("stable")

	if len(pr.logs) != 2 {
		t.Fatalf("got %d log entries, want 2 (dedup consecutive repeats): %v", len(pr.logs), pr.logs)
	}
	if pr.logs[0] != "waiting" || pr.logs[1] != "stable" {
		t.Fatalf("got %v, want [waiting stable]", pr.logs)
	}
}

func TestSetIntermediateResultDedupsUnchanged(t *testing.T) {
	pr := newProgress()
	pr.SetIntermediateResult("a")
	pr.SetIntermediateResult("a")
	pr.SetIntermediateResult("b")

	if len(pr.results) != 2 {
		t.Fatalf("got %d results, want 2: %v", len(pr.results), pr.results)
	}
	last, ok := pr.LastIntermediateResult()
	if !ok || last != "b" {
		t.Fatalf("got %v, want b", last)
	}
}
