package query

import (
	"strings"
	"testing"

	"github.com/webdriver-labs/domrunner/pkg/dom"
	"github.com/webdriver-labs/domrunner/pkg/registry"
	"github.com/webdriver-labs/domrunner/pkg/selector"
)

func newDoc(t *testing.T, html string) *dom.Document {
	t.Helper()
	doc, err := dom.NewDocument(html)
	if err != nil {
		t.Fatalf("NewDocument: %v", err)
	}
	return doc
}

func parse(t *testing.T, reg *registry.Registry, s string) *selector.Parsed {
	t.Helper()
	p, err := selector.Parse(s, reg.Exists)
	if err != nil {
		t.Fatalf("Parse(%q): %v", s, err)
	}
	return p
}

func TestQuerySelectorAllBasic(t *testing.T) {
	reg := registry.New(registry.Options{})
	doc := newDoc(t, `<html><body>
		<section><button id="a">A</button></section>
		<section><button id="b">B</button></section>
	</body></html>`)

	ev := New(reg)
	var got []*dom.Node
	err := ev.WithScope(func() error {
		var err error
		got, err = ev.QuerySelectorAll(doc, parse(t, reg, "button"), doc.Root)
		return err
	})
	if err != nil {
		t.Fatalf("QuerySelectorAll: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d matches, want 2", len(got))
	}
}

func TestQuerySelectorStrictViolation(t *testing.T) {
	reg := registry.New(registry.Options{})
	doc := newDoc(t, `<html><body><p>x</p><p>y</p></body></html>`)

	ev := New(reg)
	var err error
	scopeErr := ev.WithScope(func() error {
		_, err = ev.QuerySelector(doc, parse(t, reg, "p"), doc.Root, true)
		return nil
	})
	if scopeErr != nil {
		t.Fatalf("WithScope: %v", scopeErr)
	}
	if err == nil {
		t.Fatal("expected strict mode violation, got nil")
	}
	if !strings.Contains(err.Error(), "strict mode violation") {
		t.Fatalf("error %q missing strict mode violation text", err)
	}
	if !strings.Contains(err.Error(), "1)") || !strings.Contains(err.Error(), "2)") {
		t.Fatalf("error %q missing numbered previews", err)
	}
}

func TestQuerySelectorNonStrictReturnsFirst(t *testing.T) {
	reg := registry.New(registry.Options{})
	doc := newDoc(t, `<html><body><p id="first">x</p><p id="second">y</p></body></html>`)

	ev := New(reg)
	var got *dom.Node
	var err error
	if scopeErr := ev.WithScope(func() error {
		got, err = ev.QuerySelector(doc, parse(t, reg, "p"), doc.Root, false)
		return err
	}); scopeErr != nil {
		t.Fatalf("QuerySelector: %v", scopeErr)
	}
	if got == nil {
		t.Fatal("expected a match")
	}
	if id, _ := dom.Attr(got, "id"); id != "first" {
		t.Fatalf("got id %q, want first", id)
	}
}

func TestCaptureMarkProjectsAncestor(t *testing.T) {
	reg := registry.New(registry.Options{})
	doc := newDoc(t, `<html><body><section id="sec"><button id="btn">go</button></section></body></html>`)

	ev := New(reg)
	var got *dom.Node
	var err error
	if scopeErr := ev.WithScope(func() error {
		got, err = ev.QuerySelector(doc, parse(t, reg, "*section >> button"), doc.Root, true)
		return err
	}); scopeErr != nil {
		t.Fatalf("QuerySelector: %v", scopeErr)
	}
	if err != nil {
		t.Fatalf("QuerySelector: %v", err)
	}
	if id, _ := dom.Attr(got, "id"); id != "sec" {
		t.Fatalf("got id %q, want sec (the captured ancestor)", id)
	}
}

func TestNthFirstAndLast(t *testing.T) {
	reg := registry.New(registry.Options{})
	doc := newDoc(t, `<html><body>
		<li id="a">a</li><li id="b">b</li><li id="c">c</li>
	</body></html>`)
	ev := New(reg)

	cases := []struct {
		sel  string
		want string
	}{
		{"li >> nth=0", "a"},
		{"li >> nth=-1", "c"},
		{"li >> nth=1", "b"},
	}
	for _, tc := range cases {
		var got []*dom.Node
		var err error
		if scopeErr := ev.WithScope(func() error {
			got, err = ev.QuerySelectorAll(doc, parse(t, reg, tc.sel), doc.Root)
			return err
		}); scopeErr != nil {
			t.Fatalf("%s: %v", tc.sel, scopeErr)
		}
		if err != nil {
			t.Fatalf("%s: %v", tc.sel, err)
		}
		if len(got) != 1 {
			t.Fatalf("%s: got %d results, want 1", tc.sel, len(got))
		}
		if id, _ := dom.Attr(got[0], "id"); id != tc.want {
			t.Fatalf("%s: got id %q, want %q", tc.sel, id, tc.want)
		}
	}
}

func TestNthOutOfRangeYieldsEmpty(t *testing.T) {
	reg := registry.New(registry.Options{})
	doc := newDoc(t, `<html><body><li>a</li></body></html>`)
	ev := New(reg)

	var got []*dom.Node
	var err error
	if scopeErr := ev.WithScope(func() error {
		got, err = ev.QuerySelectorAll(doc, parse(t, reg, "li >> nth=5"), doc.Root)
		return err
	}); scopeErr != nil {
		t.Fatalf("WithScope: %v", scopeErr)
	}
	if err != nil {
		t.Fatalf("QuerySelectorAll: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d results, want 0", len(got))
	}
}

func TestCaptureBeforeNthIsIllegal(t *testing.T) {
	reg := registry.New(registry.Options{})
	doc := newDoc(t, `<html><body><li>a</li><li>b</li></body></html>`)
	ev := New(reg)

	var err error
	if scopeErr := ev.WithScope(func() error {
		_, err = ev.QuerySelectorAll(doc, parse(t, reg, "*li >> nth=0"), doc.Root)
		return nil
	}); scopeErr != nil {
		t.Fatalf("WithScope: %v", scopeErr)
	}
	if err == nil {
		t.Fatal("expected an error for capture preceding nth=")
	}
}

func TestVisibleFilter(t *testing.T) {
	reg := registry.New(registry.Options{})
	doc := newDoc(t, `<html><body>
		<div id="shown" data-rect="0,0,10,10"></div>
		<div id="unshown" hidden data-rect="0,0,10,10"></div>
	</body></html>`)
	ev := New(reg)

	var got []*dom.Node
	var err error
	if scopeErr := ev.WithScope(func() error {
		got, err = ev.QuerySelectorAll(doc, parse(t, reg, "div >> visible=true"), doc.Root)
		return err
	}); scopeErr != nil {
		t.Fatalf("WithScope: %v", scopeErr)
	}
	if err != nil {
		t.Fatalf("QuerySelectorAll: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d, want 1", len(got))
	}
	if id, _ := dom.Attr(got[0], "id"); id != "shown" {
		t.Fatalf("got id %q, want shown", id)
	}
}

func TestQuerySelectorAllDeduplicatesByProjectedElement(t *testing.T) {
	reg := registry.New(registry.Options{})
	doc := newDoc(t, `<html><body>
		<section id="sec"><button>a</button><button>b</button></section>
	</body></html>`)
	ev := New(reg)

	var got []*dom.Node
	var err error
	if scopeErr := ev.WithScope(func() error {
		got, err = ev.QuerySelectorAll(doc, parse(t, reg, "*section >> button"), doc.Root)
		return err
	}); scopeErr != nil {
		t.Fatalf("WithScope: %v", scopeErr)
	}
	if err != nil {
		t.Fatalf("QuerySelectorAll: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d matches, want 1 (both buttons project to the same captured section)", len(got))
	}
}
