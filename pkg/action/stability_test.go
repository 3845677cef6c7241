package action

import (
	"strconv"
	"testing"
	"time"

	"github.com/webdriver-labs/domrunner/pkg/dom"
	"github.com/webdriver-labs/domrunner/pkg/poll"
)

// TestStabilityDeclaresStableAfterConsecutiveMatches exercises the
// resting-state half of spec.md §8's stability property: a node whose
// rect never changes eventually reports stable=true.
func TestStabilityDeclaresStableAfterConsecutiveMatches(t *testing.T) {
	doc := newDoc(t, `<html><body><div id="d" data-rect="0,0,10,10"></div></body></html>`)
	node := byID(t, doc, "d")

	pred := NewStabilityPredicate(doc, node, 3)
	p := poll.New(pred, func(int) time.Duration { return 5 * time.Millisecond })
	p.Run()

	val, err := p.Result()
	if err != nil {
		t.Fatalf("stability poll failed: %v", err)
	}
	if val != true {
		t.Fatalf("expected stability to settle true, got %v", val)
	}
}

// TestStabilityResetsOnRectChange exercises spec.md §8 property 7: a rect
// change resets the consecutive-match counter, so a node whose rect keeps
// moving never settles within a bounded window.
func TestStabilityResetsOnRectChange(t *testing.T) {
	doc := newDoc(t, `<html><body><div id="d" data-rect="0,0,10,10"></div></body></html>`)
	node := byID(t, doc, "d")

	moving := newMovingStabilityPredicate(doc, node, 3)
	p := poll.New(moving, func(int) time.Duration { return 5 * time.Millisecond })
	p.Run()

	done := make(chan stabilityOutcome, 1)
	go func() {
		val, err := p.Result()
		done <- stabilityOutcome{val, err}
	}()

	select {
	case r := <-done:
		if r.err == nil && r.val == true {
			t.Fatalf("expected a continuously moving element to never settle stable")
		}
	case <-time.After(150 * time.Millisecond):
		p.Cancel()
	}
}

type stabilityOutcome struct {
	val interface{}
	err error
}

// newMovingStabilityPredicate wraps NewStabilityPredicate with a rect
// mutation before each tick, simulating an element that never stops
// moving.
func newMovingStabilityPredicate(doc *dom.Document, node *dom.Node, stableRafCount int) poll.Predicate {
	inner := NewStabilityPredicate(doc, node, stableRafCount)
	n := 0
	return func(progress *poll.Progress, cont interface{}) (interface{}, error) {
		n++
		dom.SetAttr(node, "data-rect", "0,0,10,"+strconv.Itoa(10+n%4))
		return inner(progress, cont)
	}
}
