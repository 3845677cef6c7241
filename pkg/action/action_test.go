package action

import (
	"encoding/base64"
	"testing"

	"github.com/webdriver-labs/domrunner/pkg/dom"
	"github.com/webdriver-labs/domrunner/pkg/errkind"
)

func TestFillDateInputRoundTrips(t *testing.T) {
	doc := newDoc(t, `<html><body><input id="d" type="date"></body></html>`)
	res, err := Fill(doc, byID(t, doc, "d"), "2024-01-31")
	if err != nil {
		t.Fatalf("Fill: %v", err)
	}
	if res != SentinelDone {
		t.Fatalf("expected %q, got %v", SentinelDone, res)
	}
	if got := dom.AttrOr(byID(t, doc, "d"), "value", ""); got != "2024-01-31" {
		t.Fatalf("value not written, got %q", got)
	}
}

func TestFillDateInputRejectsMalformed(t *testing.T) {
	doc := newDoc(t, `<html><body><input id="d" type="date"></body></html>`)
	_, err := Fill(doc, byID(t, doc, "d"), "not-a-date")
	if !errkind.Is(err, errkind.KindFillValue) {
		t.Fatalf("expected a fill_value error, got %v", err)
	}
}

func TestFillNumberInputAcceptsAndRejects(t *testing.T) {
	doc := newDoc(t, `<html><body><input id="n" type="number"></body></html>`)

	res, err := Fill(doc, byID(t, doc, "n"), "42.5")
	if err != nil {
		t.Fatalf("Fill: %v", err)
	}
	if res != SentinelNeedsInput {
		t.Fatalf("expected %q for a valid number, got %v", SentinelNeedsInput, res)
	}

	_, err = Fill(doc, byID(t, doc, "n"), "abc")
	if !errkind.Is(err, errkind.KindFillValue) {
		t.Fatalf("expected a fill_value error for a non-numeric string, got %v", err)
	}
}

func TestFillTextInputNeedsInput(t *testing.T) {
	doc := newDoc(t, `<html><body><input id="t" type="text"></body></html>`)
	res, err := Fill(doc, byID(t, doc, "t"), "hello")
	if err != nil {
		t.Fatalf("Fill: %v", err)
	}
	if res != SentinelNeedsInput {
		t.Fatalf("expected %q, got %v", SentinelNeedsInput, res)
	}
}

func TestFillSelectRejected(t *testing.T) {
	doc := newDoc(t, `<html><body><select id="s"><option value="a">A</option></select></body></html>`)
	_, err := Fill(doc, byID(t, doc, "s"), "a")
	if !errkind.Is(err, errkind.KindType) {
		t.Fatalf("expected a type_mismatch error for a <select>, got %v", err)
	}
}

func TestFillUnfillableInputType(t *testing.T) {
	doc := newDoc(t, `<html><body><input id="c" type="color"></body></html>`)
	_, err := Fill(doc, byID(t, doc, "c"), "#fff")
	if !errkind.Is(err, errkind.KindFillValue) {
		t.Fatalf("expected a fill_value error for input[type=color], got %v", err)
	}
}

func TestSelectOptionsByValue(t *testing.T) {
	doc := newDoc(t, `<html><body>
		<select id="s">
			<option value="a">Alpha</option>
			<option value="b">Beta</option>
		</select>
	</body></html>`)
	sel := byID(t, doc, "s")
	value := "b"

	res, err := SelectOptions(doc, sel, []OptionSelector{{Value: &value}}, "continue")
	if err != nil {
		t.Fatalf("SelectOptions: %v", err)
	}
	values, ok := res.([]string)
	if !ok || len(values) != 1 || values[0] != "b" {
		t.Fatalf("expected [\"b\"], got %v", res)
	}

	var betaSelected bool
	dom.DescendantsLight(sel, func(n *dom.Node) bool {
		if dom.AttrOr(n, "value", "") == "b" {
			betaSelected = dom.HasAttr(n, "selected")
		}
		return true
	})
	if !betaSelected {
		t.Fatalf("expected option b to carry the selected attribute")
	}
}

func TestSelectOptionsWaitsForMissingMatch(t *testing.T) {
	doc := newDoc(t, `<html><body><select id="s"><option value="a">Alpha</option></select></body></html>`)
	sel := byID(t, doc, "s")
	value := "missing"

	res, err := SelectOptions(doc, sel, []OptionSelector{{Value: &value}}, "continue")
	if err != nil {
		t.Fatalf("SelectOptions: %v", err)
	}
	if res != "continue" {
		t.Fatalf("expected the continuePolling sentinel back, got %v", res)
	}
}

func TestSelectOptionsRejectsNonSelect(t *testing.T) {
	doc := newDoc(t, `<html><body><input id="i"></body></html>`)
	_, err := SelectOptions(doc, byID(t, doc, "i"), nil, "continue")
	if !errkind.Is(err, errkind.KindType) {
		t.Fatalf("expected a type_mismatch error, got %v", err)
	}
}

func TestFocusNodeTracksActiveElement(t *testing.T) {
	doc := newDoc(t, `<html><body><input id="i"></body></html>`)
	node := byID(t, doc, "i")

	res, err := FocusNode(doc, node, false)
	if err != nil || res != SentinelDone {
		t.Fatalf("FocusNode: res=%v err=%v", res, err)
	}
	if doc.ActiveElement() != node {
		t.Fatalf("expected active element to be set")
	}
}

func TestSetInputFilesDecodesAndFiresEvents(t *testing.T) {
	doc := newDoc(t, `<html><body><input id="f" type="file"></body></html>`)
	node := byID(t, doc, "f")

	var fired []string
	doc.AddEventListener(node, "change", func(target *dom.Node, ev dom.Event) {
		fired = append(fired, ev.Type)
	})

	payload := FilePayload{Name: "a.txt", MimeType: "text/plain", BufferBase64: base64.StdEncoding.EncodeToString([]byte("hi"))}
	res, err := SetInputFiles(doc, node, []FilePayload{payload})
	if err != nil || res != SentinelDone {
		t.Fatalf("SetInputFiles: res=%v err=%v", res, err)
	}
	if got := dom.AttrOr(node, "data-files", ""); got != "a.txt" {
		t.Fatalf("expected data-files to record the name, got %q", got)
	}
	if len(fired) != 1 || fired[0] != "change" {
		t.Fatalf("expected a change event to fire, got %v", fired)
	}
}

func TestSetInputFilesRejectsNonFileInput(t *testing.T) {
	doc := newDoc(t, `<html><body><input id="t" type="text"></body></html>`)
	_, err := SetInputFiles(doc, byID(t, doc, "t"), nil)
	if !errkind.Is(err, errkind.KindType) {
		t.Fatalf("expected a type_mismatch error, got %v", err)
	}
}

func TestSetInputFilesRejectsMalformedBuffer(t *testing.T) {
	doc := newDoc(t, `<html><body><input id="f" type="file"></body></html>`)
	_, err := SetInputFiles(doc, byID(t, doc, "f"), []FilePayload{{Name: "x", BufferBase64: "not-base64!!"}})
	if !errkind.Is(err, errkind.KindFillValue) {
		t.Fatalf("expected a fill_value error, got %v", err)
	}
}
