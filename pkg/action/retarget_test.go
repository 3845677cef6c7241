package action

import (
	"testing"

	"github.com/webdriver-labs/domrunner/pkg/dom"
)

func newDoc(t *testing.T, html string) *dom.Document {
	t.Helper()
	doc, err := dom.NewDocument(html)
	if err != nil {
		t.Fatalf("NewDocument: %v", err)
	}
	return doc
}

func byID(t *testing.T, doc *dom.Document, id string) *dom.Node {
	t.Helper()
	var found *dom.Node
	dom.DescendantsLight(doc.Root, func(n *dom.Node) bool {
		if found != nil {
			return false
		}
		if v, ok := dom.Attr(n, "id"); ok && v == id {
			found = n
			return false
		}
		return true
	})
	if found == nil {
		t.Fatalf("no element with id=%q", id)
	}
	return found
}

func TestRetargetTextInsideButtonGoesToButton(t *testing.T) {
	doc := newDoc(t, `<html><body><button id="btn"><span id="txt">Click</span></button></body></html>`)
	text := byID(t, doc, "txt")

	got := Retarget(doc, text.FirstChild, NoFollowLabel)
	if got != byID(t, doc, "btn") {
		t.Fatalf("expected retarget to land on the button")
	}
}

func TestRetargetLabelFollowsToControl(t *testing.T) {
	doc := newDoc(t, `<html><body>
		<label id="lbl" for="inp">Name</label>
		<input id="inp">
	</body></html>`)
	label := byID(t, doc, "lbl")

	got := Retarget(doc, label, FollowLabel)
	if got != byID(t, doc, "inp") {
		t.Fatalf("expected retarget through label to reach the input")
	}
}

func TestRetargetLabelNotFollowedWithoutBehavior(t *testing.T) {
	doc := newDoc(t, `<html><body>
		<label id="lbl" for="inp">Name</label>
		<input id="inp">
	</body></html>`)
	label := byID(t, doc, "lbl")

	got := Retarget(doc, label, NoFollowLabel)
	if got != label {
		t.Fatalf("expected NoFollowLabel to leave the label untouched")
	}
}

func TestRetargetSpanInsideLabelReachesControl(t *testing.T) {
	doc := newDoc(t, `<html><body>
		<label id="lbl"><span id="txt">Name</span><input id="inp"></label>
	</body></html>`)
	text := byID(t, doc, "txt")

	got := Retarget(doc, text, FollowLabel)
	if got != byID(t, doc, "inp") {
		t.Fatalf("expected retarget from label's own text to its nested control")
	}
}
