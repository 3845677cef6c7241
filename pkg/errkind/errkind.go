// Package errkind implements the error-kind vocabulary of spec.md §7:
// selector errors, strict-mode violations, type mismatches, fill-value
// errors, and unknown-assertion errors, all constructed "stackless" so a
// controller never sees an injected-script call frame in a user-facing
// message.
package errkind

import "fmt"

// Kind classifies a Stackless error for callers that branch on error
// category (spec.md §7, "Error kinds, not recovered locally").
type Kind string

const (
	KindSelector  Kind = "selector"          // unknown engine, malformed quoting, capture+nth conflict
	KindStrict    Kind = "strict_violation"  // more than one element matched a strict query
	KindType      Kind = "type_mismatch"     // state check invoked on the wrong element kind
	KindFillValue Kind = "fill_value"        // unfillable type or malformed date/number
	KindAssertion Kind = "unknown_assertion" // expression not in the supported table
)

// Stackless is an error whose stack trace must never reach the user. The
// two host-engine strategies spec.md §4.E and §9 describe — "assign empty
// string" and "delete the property" — do not exist as a distinction in Go
// (errors here never carry a captured stack in the first place), so
// Stackless simply never records one; Frames always reports zero,
// preserving the "no injected-script frame" contract in the one way that
// makes sense for this runtime.
type Stackless struct {
	Kind    Kind
	Message string
}

// Error implements the error interface.
func (e *Stackless) Error() string {
	return e.Message
}

// Frames always returns 0: Stackless errors are constructed without ever
// capturing a runtime.Callers stack, so there is nothing to strip.
func (e *Stackless) Frames() int {
	return 0
}

// New creates a Stackless error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Stackless {
	return &Stackless{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Selector reports a malformed or unresolvable selector string. Per
// spec.md §8 property 1, the message must contain the offending selector.
func Selector(selector, reason string) *Stackless {
	return New(KindSelector, "%s: %q", reason, selector)
}

// UnknownEngine reports a part naming an engine absent from the registry.
func UnknownEngine(name string) *Stackless {
	return New(KindSelector, "unknown engine %q", name)
}

// Is reports whether err is a Stackless error of the given kind.
func Is(err error, kind Kind) bool {
	se, ok := err.(*Stackless)
	return ok && se.Kind == kind
}
