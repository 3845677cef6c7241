package action

import (
	"testing"
	"time"

	"github.com/webdriver-labs/domrunner/pkg/dom"
	"github.com/webdriver-labs/domrunner/pkg/poll"
)

func runExpect(t *testing.T, doc *dom.Document, resolve Resolver, params Params) Result {
	t.Helper()
	pred := NewExpectPredicate(doc, resolve, params)
	p := poll.New(pred, func(int) time.Duration { return 5 * time.Millisecond })
	p.Run()
	val, err := p.Result()
	if err != nil {
		t.Fatalf("expect poll failed: %v", err)
	}
	res, ok := val.(Result)
	if !ok {
		t.Fatalf("expected an action.Result, got %T", val)
	}
	return res
}

func resolveByID(doc *dom.Document, id string) Resolver {
	return func() ([]*dom.Node, error) {
		var found []*dom.Node
		dom.DescendantsLight(doc.Root, func(n *dom.Node) bool {
			if v, ok := dom.Attr(n, "id"); ok && v == id {
				found = append(found, n)
			}
			return true
		})
		return found, nil
	}
}

func TestExpectToHaveTextExactMatch(t *testing.T) {
	doc := newDoc(t, `<html><body><p id="p">  Hello   World  </p></body></html>`)
	want := "Hello World"
	res := runExpect(t, doc, resolveByID(doc, "p"), Params{
		Expression:   "to.have.text",
		ExpectedText: []ExpectedText{{String: &want, NormalizeWhiteSpace: true}},
	})
	if !res.Pass {
		t.Fatalf("expected to.have.text to pass with whitespace normalization, received %v", res.Received)
	}
}

func TestExpectToHaveTextNegation(t *testing.T) {
	doc := newDoc(t, `<html><body><p id="p">Hello</p></body></html>`)
	want := "Goodbye"
	res := runExpect(t, doc, resolveByID(doc, "p"), Params{
		Expression:   "to.have.text",
		IsNot:        true,
		ExpectedText: []ExpectedText{{String: &want}},
	})
	if !res.Pass {
		t.Fatalf("expected the negated assertion to pass since the text does not match")
	}
}

func TestExpectToHaveCount(t *testing.T) {
	doc := newDoc(t, `<html><body><li class="x">a</li><li class="x">b</li></body></html>`)
	resolve := func() ([]*dom.Node, error) {
		var found []*dom.Node
		dom.DescendantsLight(doc.Root, func(n *dom.Node) bool {
			if dom.AttrOr(n, "class", "") == "x" {
				found = append(found, n)
			}
			return true
		})
		return found, nil
	}
	two := 2.0
	res := runExpect(t, doc, resolve, Params{Expression: "to.have.count", ExpectedNumber: &two})
	if !res.Pass || res.Received != 2 {
		t.Fatalf("expected count 2 to pass, got pass=%v received=%v", res.Pass, res.Received)
	}
}

func TestExpectToBeVisible(t *testing.T) {
	doc := newDoc(t, `<html><body><div id="d" data-rect="0,0,10,10"></div></body></html>`)
	res := runExpect(t, doc, resolveByID(doc, "d"), Params{Expression: "to.be.visible"})
	if !res.Pass {
		t.Fatalf("expected to.be.visible to pass for a laid-out element")
	}
}

func TestExpectToHaveAttributeSubstring(t *testing.T) {
	doc := newDoc(t, `<html><body><a id="a" href="https://example.com/path">link</a></body></html>`)
	want := "example.com"
	res := runExpect(t, doc, resolveByID(doc, "a"), Params{
		Expression:    "to.have.attribute",
		ExpressionArg: "href",
		ExpectedText:  []ExpectedText{{String: &want, MatchSubstring: true}},
	})
	if !res.Pass {
		t.Fatalf("expected substring match against href to pass, received %v", res.Received)
	}
}

func TestExpectToHaveTextArrayLengthMismatchFails(t *testing.T) {
	doc := newDoc(t, `<html><body><li class="x">a</li></body></html>`)
	resolve := func() ([]*dom.Node, error) {
		var found []*dom.Node
		dom.DescendantsLight(doc.Root, func(n *dom.Node) bool {
			if dom.AttrOr(n, "class", "") == "x" {
				found = append(found, n)
			}
			return true
		})
		return found, nil
	}
	a, b := "a", "b"
	res := runExpect(t, doc, resolve, Params{
		Expression:   "to.have.text.array",
		IsNot:        true,
		ExpectedText: []ExpectedText{{String: &a}, {String: &b}},
	})
	if !res.Pass {
		t.Fatalf("expected the negated array-length mismatch to pass")
	}
}
