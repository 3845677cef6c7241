package action

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/webdriver-labs/domrunner/pkg/dom"
	"github.com/webdriver-labs/domrunner/pkg/errkind"
	"github.com/webdriver-labs/domrunner/pkg/poll"
)

// Callback is the controller-supplied operation waitForElementStatesAndPerformAction
// invokes once every requested state holds. It may itself return
// continuePolling to request another readiness check (spec.md §4.E: "e.g.
// mid-flight selection found some options missing").
type Callback func(node *dom.Node, progress *poll.Progress, continuePolling interface{}) (interface{}, error)

// WaitForElementStatesAndPerformAction implements spec.md §4.E: a poll
// that, each tick, checks every requested state (skipped entirely when
// force is set) and invokes callback once they all hold.
func WaitForElementStatesAndPerformAction(doc *dom.Document, node *dom.Node, states []State, force bool, scheduler poll.Scheduler, stableRafCount int, callback Callback) *poll.Poll {
	var stabilityPred poll.Predicate
	for _, s := range states {
		if s == StateStable {
			stabilityPred = NewStabilityPredicate(doc, node, stableRafCount)
			break
		}
	}

	predicate := func(progress *poll.Progress, cont interface{}) (interface{}, error) {
		if !force {
			for _, s := range states {
				if s == StateStable {
					continue
				}
				val, err := ElementState(doc, node, s)
				if err != nil {
					return nil, err
				}
				if satisfied, ok := val.(bool); ok {
					if !satisfied {
						progress.LogRepeating(fmt.Sprintf("waiting for element to be %s", s))
						return cont, nil
					}
					continue
				}
				// A sentinel (e.g. SentinelNotConnected) means the state
				// cannot be evaluated right now — keep polling.
				progress.LogRepeating(fmt.Sprintf("%v", val))
				return cont, nil
			}
			if stabilityPred != nil {
				res, err := stabilityPred(progress, cont)
				if err != nil {
					return nil, err
				}
				if res == cont {
					return cont, nil
				}
			}
		}
		return callback(node, progress, cont)
	}

	return poll.New(predicate, scheduler)
}

// OptionSelector is spec.md §4.E's selectOptions matcher: either a direct
// element identity, or a {value?, label?, index?} conjunction.
type OptionSelector struct {
	Node  *dom.Node
	Value *string
	Label *string
	Index *int
}

// SelectOptions implements spec.md §4.E's selectOptions. It is meant to be
// invoked as the Callback of a WaitForElementStatesAndPerformAction poll,
// so returning continuePolling causes another readiness+match attempt.
func SelectOptions(doc *dom.Document, selectNode *dom.Node, selections []OptionSelector, continuePolling interface{}) (interface{}, error) {
	if dom.TagName(selectNode) != "SELECT" {
		return nil, errkind.New(errkind.KindType, "Element is not a <select>")
	}

	var options []*dom.Node
	dom.DescendantsLight(selectNode, func(n *dom.Node) bool {
		if n != selectNode && dom.TagName(n) == "OPTION" {
			options = append(options, n)
		}
		return true
	})

	multiple := dom.HasAttr(selectNode, "multiple")
	pending := append([]OptionSelector(nil), selections...)
	var matched []*dom.Node

	for idx, opt := range options {
		for i := 0; i < len(pending); i++ {
			if optionMatches(pending[i], opt, idx) {
				matched = append(matched, opt)
				pending = append(pending[:i], pending[i+1:]...)
				break
			}
		}
		if !multiple && len(matched) > 0 {
			break
		}
	}

	if len(pending) > 0 {
		return continuePolling, nil
	}

	for _, opt := range options {
		dom.RemoveAttr(opt, "selected")
	}
	values := make([]string, len(matched))
	for i, opt := range matched {
		dom.SetAttr(opt, "selected", "selected")
		values[i] = dom.AttrOr(opt, "value", dom.TextContent(opt))
	}
	doc.FireInputAndChange(selectNode)
	return values, nil
}

func optionMatches(sel OptionSelector, opt *dom.Node, index int) bool {
	if sel.Node != nil {
		return sel.Node == opt
	}
	any := false
	if sel.Value != nil {
		any = true
		if dom.AttrOr(opt, "value", "") != *sel.Value {
			return false
		}
	}
	if sel.Label != nil {
		any = true
		if strings.TrimSpace(dom.TextContent(opt)) != *sel.Label {
			return false
		}
	}
	if sel.Index != nil {
		any = true
		if index != *sel.Index {
			return false
		}
	}
	return any
}

var dateLikeFormats = map[string]*regexp.Regexp{
	"date":           regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
	"month":          regexp.MustCompile(`^\d{4}-\d{2}$`),
	"week":           regexp.MustCompile(`^\d{4}-W\d{2}$`),
	"time":           regexp.MustCompile(`^\d{2}:\d{2}(:\d{2})?$`),
	"datetime-local": regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}(:\d{2})?$`),
}

var textLikeInputTypes = map[string]bool{
	"": true, "text": true, "search": true, "tel": true, "url": true, "password": true, "email": true,
}

// Fill implements spec.md §4.E's fill(node, value). It retargets with
// FollowLabel, then dispatches on element kind.
func Fill(doc *dom.Document, node *dom.Node, value string) (interface{}, error) {
	target := Retarget(doc, node, FollowLabel)
	if target == nil {
		return nil, errkind.New(errkind.KindType, "Node is not an element")
	}

	switch dom.TagName(target) {
	case "SELECT":
		return nil, errkind.New(errkind.KindType, "Not an input element")

	case "INPUT":
		typ := strings.ToLower(dom.AttrOr(target, "type", "text"))
		if re, ok := dateLikeFormats[typ]; ok {
			trimmed := strings.TrimSpace(value)
			if !re.MatchString(trimmed) {
				return nil, errkind.New(errkind.KindFillValue, "Malformed value")
			}
			FocusNode(doc, target, false)
			dom.SetAttr(target, "value", trimmed)
			if dom.AttrOr(target, "value", "") != trimmed {
				return nil, errkind.New(errkind.KindFillValue, "Malformed value")
			}
			doc.FireInputAndChange(target)
			return SentinelDone, nil
		}
		if typ == "number" {
			trimmed := strings.TrimSpace(value)
			if _, err := strconv.ParseFloat(trimmed, 64); err != nil {
				return nil, errkind.New(errkind.KindFillValue, `Cannot type text into input[type=number]`)
			}
			if _, err := SelectText(doc, target); err != nil {
				return nil, err
			}
			return SentinelNeedsInput, nil
		}
		if textLikeInputTypes[typ] {
			if _, err := SelectText(doc, target); err != nil {
				return nil, err
			}
			return SentinelNeedsInput, nil
		}
		return nil, errkind.New(errkind.KindFillValue, "Input of type %q cannot be filled", typ)

	case "TEXTAREA":
		if _, err := SelectText(doc, target); err != nil {
			return nil, err
		}
		return SentinelNeedsInput, nil

	default:
		if isContentEditable(target) {
			if _, err := SelectText(doc, target); err != nil {
				return nil, err
			}
			return SentinelNeedsInput, nil
		}
		return nil, errkind.New(errkind.KindType, "Not an input element")
	}
}

// SelectText implements spec.md §4.E's selectText(node) as far as the
// in-memory document allows: it focuses a connected node and returns
// SentinelDone. No selection state is recorded, for input/textarea
// contents or for a range over any other element.
func SelectText(doc *dom.Document, node *dom.Node) (interface{}, error) {
	if !doc.IsConnected(node) {
		return SentinelNotConnected, nil
	}
	switch dom.TagName(node) {
	case "INPUT", "TEXTAREA":
		FocusNode(doc, node, false)
		return SentinelDone, nil
	default:
		FocusNode(doc, node, false)
		return SentinelDone, nil
	}
}

// FocusNode implements spec.md §4.E's focusNode(node, resetSelectionIfNotFocused).
func FocusNode(doc *dom.Document, node *dom.Node, resetSelectionIfNotFocused bool) (interface{}, error) {
	if !doc.IsConnected(node) {
		return SentinelNotConnected, nil
	}
	wasFocused := doc.ActiveElement() == node
	doc.SetActiveElement(node)
	if resetSelectionIfNotFocused && !wasFocused && dom.TagName(node) == "INPUT" {
		typ := strings.ToLower(dom.AttrOr(node, "type", "text"))
		if textLikeInputTypes[typ] {
			dom.SetAttr(node, "data-selection-start", "0")
			dom.SetAttr(node, "data-selection-end", "0")
		}
		// Input types that disallow selection (e.g. number, color) silently
		// ignore setSelectionRange in a real browser; there is nothing to
		// fail here either.
	}
	return SentinelDone, nil
}

// FilePayload is one file installed by SetInputFiles: base64-decoded from
// the wire, matching the controller's {name, mimeType, buffer} shape.
type FilePayload struct {
	Name         string
	MimeType     string
	BufferBase64 string
}

// SetInputFiles implements spec.md §4.E's setInputFiles: only accepts
// `<input type=file>`, decodes each payload, and fires input/change.
func SetInputFiles(doc *dom.Document, node *dom.Node, files []FilePayload) (interface{}, error) {
	if dom.TagName(node) != "INPUT" || strings.ToLower(dom.AttrOr(node, "type", "")) != "file" {
		return nil, errkind.New(errkind.KindType, "Not an input[type=file] element")
	}
	names := make([]string, len(files))
	for i, f := range files {
		if _, err := base64.StdEncoding.DecodeString(f.BufferBase64); err != nil {
			return nil, errkind.New(errkind.KindFillValue, "malformed file buffer for %q: %v", f.Name, err)
		}
		names[i] = f.Name
	}
	dom.SetAttr(node, "data-files", strings.Join(names, ","))
	doc.FireInputAndChange(node)
	return SentinelDone, nil
}
