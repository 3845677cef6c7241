package action

import (
	"strings"

	"github.com/webdriver-labs/domrunner/pkg/dom"
	"github.com/webdriver-labs/domrunner/pkg/errkind"
)

// State is one of spec.md §3's ElementState values.
type State string

const (
	StateVisible  State = "visible"
	StateHidden   State = "hidden"
	StateEnabled  State = "enabled"
	StateDisabled State = "disabled"
	StateEditable State = "editable"
	StateChecked  State = "checked"
	StateStable   State = "stable"
)

// Sentinel values operations may return instead of throwing, per
// spec.md §6/§7 — "expected, recoverable outcomes that the controller's
// retry loop can interpret".
const (
	SentinelNotConnected = "error:notconnected"
	SentinelNotCheckbox  = "error:notcheckbox"
	SentinelDone         = "done"
	SentinelNeedsInput   = "needsinput"
)

// ElementState implements spec.md §4.E's elementState(node, state). The
// return value is a bool for a settled predicate, or the string
// SentinelNotConnected when the retargeted element has vanished from the
// document and the requested state is not `hidden` (which is
// unconditionally true for a disconnected node).
func ElementState(doc *dom.Document, node *dom.Node, state State) (interface{}, error) {
	behavior := FollowLabel
	switch state {
	case StateStable, StateVisible, StateHidden:
		behavior = NoFollowLabel
	}
	target := Retarget(doc, node, behavior)
	if target == nil {
		return nil, errkind.New(errkind.KindType, "Node is not an element")
	}

	if !doc.IsConnected(target) {
		if state == StateHidden {
			return true, nil
		}
		return SentinelNotConnected, nil
	}

	switch state {
	case StateVisible:
		return dom.IsVisible(doc, target), nil
	case StateHidden:
		return dom.IsHidden(doc, target), nil
	case StateDisabled:
		return isDisabled(target), nil
	case StateEnabled:
		return !isDisabled(target), nil
	case StateEditable:
		return isEnabledAndEditable(target), nil
	case StateChecked:
		return isChecked(target)
	case StateStable:
		// Callers drive stability through NewStabilityPredicate inside a
		// poll; a bare synchronous query has no frame history to compare.
		return nil, errkind.New(errkind.KindType, "stable can only be observed through a poll")
	default:
		return nil, errkind.New(errkind.KindType, "unknown element state %q", state)
	}
}

var disableableTags = map[string]bool{"BUTTON": true, "INPUT": true, "SELECT": true, "TEXTAREA": true}

func isDisabled(n *dom.Node) bool {
	return disableableTags[dom.TagName(n)] && dom.HasAttr(n, "disabled")
}

func isEnabledAndEditable(n *dom.Node) bool {
	if isDisabled(n) {
		return false
	}
	tag := dom.TagName(n)
	if (tag == "INPUT" || tag == "TEXTAREA" || tag == "SELECT") && dom.HasAttr(n, "readonly") {
		return false
	}
	return true
}

func isChecked(n *dom.Node) (interface{}, error) {
	role := strings.ToLower(dom.AttrOr(n, "role", ""))
	if role == "checkbox" || role == "radio" {
		return dom.AttrOr(n, "aria-checked", "false") == "true", nil
	}
	if dom.TagName(n) == "INPUT" {
		typ := strings.ToLower(dom.AttrOr(n, "type", ""))
		if typ == "checkbox" || typ == "radio" {
			return dom.HasAttr(n, "checked"), nil
		}
	}
	return nil, errkind.New(errkind.KindType, "Not a checkbox or radio button")
}
