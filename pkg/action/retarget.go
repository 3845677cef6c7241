// Package action implements the action-readiness and assertion core of
// spec.md §4.E: retargeting, element-state predicates, the stability
// wait, and the higher-level operations a controller drives through a
// poll (fill, selectOptions, selectText, focusNode, setInputFiles,
// checkHitTargetAt, dispatchEvent, expect).
package action

import (
	"strings"

	"github.com/webdriver-labs/domrunner/pkg/dom"
)

// Behavior selects how Retarget treats <label> associations.
type Behavior int

const (
	// NoFollowLabel never redirects to or from a <label>.
	NoFollowLabel Behavior = iota
	// FollowLabel redirects a bare <label> click to its control, and
	// walks up to an enclosing <label> when nothing more specific
	// matched.
	FollowLabel
)

var formControlTags = map[string]bool{"INPUT": true, "TEXTAREA": true, "SELECT": true}

// Retarget implements spec.md §4.E's retarget algorithm: normalize node
// to the element an action should actually affect.
func Retarget(doc *dom.Document, node *dom.Node, behavior Behavior) *dom.Node {
	cur := node
	if !dom.IsElement(cur) {
		cur = dom.Parent(cur)
	}
	if cur == nil {
		return nil
	}

	if !formControlTags[dom.TagName(cur)] {
		if btn := dom.Closest(doc, cur, isButtonLike); btn != nil {
			cur = btn
		}
	}

	if behavior == FollowLabel {
		if !formControlTags[dom.TagName(cur)] && !isButtonLike(cur) && !isContentEditable(cur) {
			if label := dom.Closest(doc, cur, func(n *dom.Node) bool { return dom.TagName(n) == "LABEL" }); label != nil {
				cur = label
			}
		}
		if dom.TagName(cur) == "LABEL" {
			if control := labelControl(doc, cur); control != nil {
				cur = control
			}
		}
	}
	return cur
}

func isButtonLike(n *dom.Node) bool {
	if dom.TagName(n) == "BUTTON" {
		return true
	}
	role := strings.ToLower(dom.AttrOr(n, "role", ""))
	return role == "button" || role == "checkbox" || role == "radio"
}

func isContentEditable(n *dom.Node) bool {
	v := strings.ToLower(dom.AttrOr(n, "contenteditable", "false"))
	return v == "" || v == "true"
}

// labelControl resolves a <label>'s associated control: a `for` attribute
// pointing at an id in the same document, or the first form-control
// descendant of the label itself.
func labelControl(doc *dom.Document, label *dom.Node) *dom.Node {
	if forID, ok := dom.Attr(label, "for"); ok && forID != "" {
		var found *dom.Node
		dom.DescendantsLight(doc.Root, func(n *dom.Node) bool {
			if found != nil {
				return false
			}
			if id, ok := dom.Attr(n, "id"); ok && id == forID {
				found = n
				return false
			}
			return true
		})
		if found != nil {
			return found
		}
	}
	var found *dom.Node
	dom.DescendantsLight(label, func(n *dom.Node) bool {
		if found != nil {
			return false
		}
		if n != label && formControlTags[dom.TagName(n)] {
			found = n
			return false
		}
		return true
	})
	return found
}
