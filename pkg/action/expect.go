package action

import (
	"strconv"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/webdriver-labs/domrunner/pkg/dom"
	"github.com/webdriver-labs/domrunner/pkg/errkind"
	"github.com/webdriver-labs/domrunner/pkg/poll"
)

// ExpectedText is spec.md §6's `expectedText[]` entry: a value/pattern
// paired with matching options, evaluated by ExpectedTextMatcher.
type ExpectedText struct {
	String              *string
	MatchSubstring      bool
	NormalizeWhiteSpace bool
	RegexSource         *string
	RegexFlags          string
}

// Matches implements spec.md §4.E's ExpectedTextMatcher: substring,
// exact-string, or regex, optionally whitespace-normalized. Normalization
// applies to both sides for string/substring modes and to neither when a
// regex is chosen.
func (m ExpectedText) Matches(received string) (bool, error) {
	if m.RegexSource != nil {
		var opts regexp2.RegexOptions = regexp2.RE2
		if strings.Contains(m.RegexFlags, "i") {
			opts |= regexp2.IgnoreCase
		}
		if strings.Contains(m.RegexFlags, "m") {
			opts |= regexp2.Multiline
		}
		if strings.Contains(m.RegexFlags, "s") {
			opts |= regexp2.Singleline
		}
		re, err := regexp2.Compile(*m.RegexSource, opts)
		if err != nil {
			return false, errkind.New(errkind.KindAssertion, "invalid expected regex: %v", err)
		}
		ok, _ := re.MatchString(received)
		return ok, nil
	}
	want := ""
	if m.String != nil {
		want = *m.String
	}
	a, b := received, want
	if m.NormalizeWhiteSpace {
		a, b = dom.NormalizeWhitespace(a), dom.NormalizeWhitespace(b)
	}
	if m.MatchSubstring {
		return strings.Contains(a, b), nil
	}
	return a == b, nil
}

// Params is spec.md §6's expect(params) options bag.
type Params struct {
	Expression     string
	IsNot          bool
	ExpectedNumber *float64
	ExpectedValue  interface{}
	ExpressionArg  string
	ExpectedText   []ExpectedText
	UseInnerText   bool
}

// Result is expect's `{pass, received?}` return shape; no log is carried.
type Result struct {
	Pass     bool
	Received interface{}
}

// Resolver re-runs the query behind an expect call; NewExpectPredicate
// calls it once per tick since the DOM (and hence the element set) may
// have changed since the last check.
type Resolver func() ([]*dom.Node, error)

var stateExpressions = map[string]State{
	"to.be.checked":  StateChecked,
	"to.be.disabled": StateDisabled,
	"to.be.editable": StateEditable,
	"to.be.enabled":  StateEnabled,
	"to.be.hidden":   StateHidden,
	"to.be.visible":  StateVisible,
}

// NewExpectPredicate builds the poll.Predicate driving spec.md §4.E's
// expect: each tick it resolves elements, computes the receiver value for
// params.Expression, and either fulfils (pass matches !IsNot) or streams
// the current received value via setIntermediateResult and continues.
func NewExpectPredicate(doc *dom.Document, resolve Resolver, params Params) poll.Predicate {
	return func(progress *poll.Progress, cont interface{}) (interface{}, error) {
		elements, err := resolve()
		if err != nil {
			return nil, err
		}
		received, pass, err := evaluate(doc, elements, params)
		if err != nil {
			return nil, err
		}
		if params.IsNot {
			pass = !pass
		}
		if !pass {
			progress.SetIntermediateResult(received)
			return cont, nil
		}
		return Result{Pass: true, Received: received}, nil
	}
}

func evaluate(doc *dom.Document, elements []*dom.Node, params Params) (interface{}, bool, error) {
	if state, ok := stateExpressions[params.Expression]; ok {
		if len(elements) == 0 {
			return nil, false, nil
		}
		val, err := ElementState(doc, elements[0], state)
		if err != nil {
			return nil, false, err
		}
		b, _ := val.(bool)
		return b, b, nil
	}

	switch params.Expression {
	case "to.be.empty":
		if len(elements) == 0 {
			return "", false, nil
		}
		el := elements[0]
		if dom.TagName(el) == "INPUT" || dom.TagName(el) == "TEXTAREA" {
			v := dom.AttrOr(el, "value", "")
			return v, v == "", nil
		}
		text := strings.TrimSpace(dom.TextContent(el))
		return text, text == "", nil

	case "to.be.focused":
		if len(elements) == 0 {
			return false, false, nil
		}
		got := doc.ActiveElement() == elements[0]
		return got, got, nil

	case "to.have.count":
		want := 0
		if params.ExpectedNumber != nil {
			want = int(*params.ExpectedNumber)
		}
		return len(elements), len(elements) == want, nil

	case "to.have.property":
		if len(elements) == 0 {
			return nil, false, nil
		}
		val := elementProperty(elements[0], params.ExpressionArg)
		return val, DeepEquals(val, params.ExpectedValue), nil

	case "to.have.attribute":
		return matchSingle(elements, params, func(el *dom.Node) string { return dom.AttrOr(el, params.ExpressionArg, "") })
	case "to.have.class":
		return matchSingle(elements, params, func(el *dom.Node) string { return dom.AttrOr(el, "class", "") })
	case "to.have.css":
		return matchSingle(elements, params, func(el *dom.Node) string { return dom.InlineStyleValue(el, params.ExpressionArg) })
	case "to.have.id":
		return matchSingle(elements, params, func(el *dom.Node) string { return dom.AttrOr(el, "id", "") })
	case "to.have.text":
		return matchSingle(elements, params, func(el *dom.Node) string {
			if params.UseInnerText {
				return dom.InnerText(el)
			}
			return dom.TextContent(el)
		})
	case "to.have.title":
		return matchesText(doc.Title(), params)
	case "to.have.url":
		return matchesText(doc.URL(), params)
	case "to.have.value":
		return matchSingle(elements, params, func(el *dom.Node) string { return dom.AttrOr(el, "value", "") })

	case "to.have.text.array":
		return matchArray(elements, params, func(el *dom.Node) string {
			if params.UseInnerText {
				return dom.InnerText(el)
			}
			return dom.TextContent(el)
		})
	case "to.have.class.array":
		return matchArray(elements, params, func(el *dom.Node) string { return dom.AttrOr(el, "class", "") })

	default:
		return nil, false, errkind.New(errkind.KindAssertion, "Unknown expect matcher: %q", params.Expression)
	}
}

func matchSingle(elements []*dom.Node, params Params, extract func(*dom.Node) string) (interface{}, bool, error) {
	if len(elements) == 0 {
		return "", false, nil
	}
	return matchesText(extract(elements[0]), params)
}

func matchesText(received string, params Params) (interface{}, bool, error) {
	if len(params.ExpectedText) == 0 {
		return received, false, errkind.New(errkind.KindAssertion, "expect %q requires expectedText", params.Expression)
	}
	ok, err := params.ExpectedText[0].Matches(received)
	return received, ok, err
}

func matchArray(elements []*dom.Node, params Params, extract func(*dom.Node) string) (interface{}, bool, error) {
	received := make([]string, len(elements))
	for i, el := range elements {
		received[i] = extract(el)
	}
	if len(received) != len(params.ExpectedText) {
		return received, false, nil
	}
	for i, m := range params.ExpectedText {
		ok, err := m.Matches(received[i])
		if err != nil {
			return received, false, err
		}
		if !ok {
			return received, false, nil
		}
	}
	return received, true, nil
}

// elementProperty resolves a handful of well-known DOM properties by
// name for to.have.property; anything else falls back to the attribute
// of the same name, since this module has no live property model beyond
// attributes.
func elementProperty(el *dom.Node, name string) interface{} {
	switch name {
	case "tagName":
		return dom.TagName(el)
	case "checked":
		return dom.HasAttr(el, "checked")
	case "disabled":
		return dom.HasAttr(el, "disabled")
	case "value":
		return dom.AttrOr(el, "value", "")
	case "textContent":
		return dom.TextContent(el)
	default:
		if v, ok := dom.Attr(el, name); ok {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f
			}
			return v
		}
		return nil
	}
}
