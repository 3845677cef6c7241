package action

import (
	"time"

	"github.com/webdriver-labs/domrunner/pkg/dom"
	"github.com/webdriver-labs/domrunner/pkg/poll"
)

// NewStabilityPredicate builds the stability branch of the readiness loop
// (spec.md §4.E): a frame counter, last-observed bounding rect, and a
// same-position counter that resets to 0 on any rect change and declares
// the element stable once stableRafCount consecutive frames agree.
//
// The first tick is skipped ("the first rAF runs inside the same frame as
// evaluation"); when stableRafCount > 1, ticks arriving less than 15ms
// after the previous measurement are dropped, the "known engine quirk"
// spec.md §4.E documents without explaining. Because that heuristic and
// the first-tick skip both interact with wall-clock timing the prose
// never pins down, this implementation follows the stated rules literally
// (see DESIGN.md) rather than trying to reproduce the exact tick count of
// spec.md §8's S4 narrative, which is not fully determined by the text.
func NewStabilityPredicate(doc *dom.Document, node *dom.Node, stableRafCount int) poll.Predicate {
	return NewStabilityPredicateWithHook(doc, node, stableRafCount, nil)
}

// NewStabilityPredicateWithHook is NewStabilityPredicate plus a testHook,
// invoked once per tick before any measurement is taken. This is the
// module's stand-in for the source's `__testHookBeforeStable`: a seam a
// test can use to make an otherwise wall-clock-driven wait deterministic
// (e.g. mutate the element's rect on a known tick) without adding any
// controller-facing API. testHook may be nil.
func NewStabilityPredicateWithHook(doc *dom.Document, node *dom.Node, stableRafCount int, testHook func()) poll.Predicate {
	if stableRafCount < 1 {
		stableRafCount = 1
	}
	st := &stabilityState{}

	return func(progress *poll.Progress, cont interface{}) (interface{}, error) {
		if testHook != nil {
			testHook()
		}
		now := time.Now()
		st.tick++
		if st.tick == 1 {
			st.lastTickAt = now
			return cont, nil
		}
		if stableRafCount > 1 && !st.lastTickAt.IsZero() && now.Sub(st.lastTickAt) < 15*time.Millisecond {
			return cont, nil
		}
		st.lastTickAt = now

		target := Retarget(doc, node, NoFollowLabel)
		if target == nil || !doc.IsConnected(target) {
			progress.LogRepeating("waiting for element to be attached to the DOM")
			st.hasRect = false
			st.sameCount = 0
			return cont, nil
		}

		rect := dom.BoundingRect(target)
		if st.hasRect && rect.Same(st.lastRect) {
			st.sameCount++
		} else {
			st.sameCount = 0
		}
		st.lastRect, st.hasRect = rect, true

		if st.sameCount < stableRafCount-1 {
			progress.LogRepeating("waiting for element to stop moving")
			return cont, nil
		}
		progress.LogRepeating("element is stable")
		return true, nil
	}
}

type stabilityState struct {
	tick       int
	lastTickAt time.Time
	hasRect    bool
	lastRect   dom.Rect
	sameCount  int
}
