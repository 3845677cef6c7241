package registry

import (
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/webdriver-labs/domrunner/pkg/dom"
	"github.com/webdriver-labs/domrunner/pkg/errkind"
	"github.com/webdriver-labs/domrunner/pkg/selector"
)

// textKind classifies a parsed text-matcher body per spec.md §4.B's
// "Text matcher grammar".
type textKind int

const (
	kindLax textKind = iota
	kindStrict
	kindRegex
)

// textMatcher is the parsed form of a text= body.
type textMatcher struct {
	kind textKind
	lit  string
	re   *regexp2.Regexp
}

// matches reports whether candidate satisfies the matcher.
func (m textMatcher) matches(candidate string) bool {
	switch m.kind {
	case kindStrict:
		return candidate == m.lit
	case kindRegex:
		ok, _ := m.re.MatchString(candidate)
		return ok
	default: // lax
		return strings.Contains(
			strings.ToLower(dom.NormalizeWhitespace(candidate)),
			strings.ToLower(dom.NormalizeWhitespace(m.lit)),
		)
	}
}

// parseTextBody implements spec.md §4.B's text-matcher grammar: a
// /pattern/flags body is a regex; a body that arrived quoted (see
// selector.Part.Quoted) is strict equality; anything else is lax
// (case-insensitive, whitespace-normalized substring).
//
// dlclark/regexp2 is used instead of Go's regexp because spec.md's flags
// (`i`, `g`, `m`, `s`, ...) and pattern syntax follow JavaScript regex
// semantics, which Go's RE2-based engine does not fully implement
// (backreferences, lookaround); regexp2 is built specifically to track
// .NET/JS-flavored regex behavior.
func parseTextBody(part selector.Part) (textMatcher, error) {
	body := part.Body
	if len(body) >= 2 && body[0] == '/' {
		if end := strings.LastIndexByte(body, '/'); end > 0 {
			pattern := body[1:end]
			flags := body[end+1:]
			var opts regexp2.RegexOptions = regexp2.RE2
			if strings.Contains(flags, "i") {
				opts |= regexp2.IgnoreCase
			}
			if strings.Contains(flags, "m") {
				opts |= regexp2.Multiline
			}
			if strings.Contains(flags, "s") {
				opts |= regexp2.Singleline
			}
			re, err := regexp2.Compile(pattern, opts)
			if err != nil {
				return textMatcher{}, errkind.New(errkind.KindSelector, "invalid text regex %q: %v", body, err)
			}
			return textMatcher{kind: kindRegex, re: re}, nil
		}
	}
	if part.Quoted {
		return textMatcher{kind: kindStrict, lit: body}, nil
	}
	return textMatcher{kind: kindLax, lit: body}, nil
}

// matchResult is elementMatchesText's return value: spec.md §4.B's
// none | self | selfAndChildren.
type matchResult int

const (
	matchNone matchResult = iota
	matchSelf
	matchSelfAndChildren
)

// elementMatchesText compares n's own direct text against the matcher
// first (matchSelf), then n's full text content including descendants
// (matchSelfAndChildren), matching spec.md §4.B.
func elementMatchesText(m textMatcher, n *dom.Node) matchResult {
	own := dom.NormalizeWhitespace(ownText(n))
	if m.matches(own) {
		return matchSelf
	}
	full := dom.NormalizeWhitespace(dom.TextContent(n))
	if m.matches(full) {
		return matchSelfAndChildren
	}
	return matchNone
}

// ownText concatenates n's direct text-node children only, excluding any
// text belonging to child elements.
func ownText(n *dom.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if dom.IsText(c) {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

// textEngine implements `text`/`text:light` per spec.md §4.B/§4.C: walks
// every element under root (piercing or not), classifying each with
// elementMatchesText and selecting per the rules in spec.md §4.B.
type textEngine struct {
	pierce bool
}

// QueryAll implements Engine.
func (e textEngine) QueryAll(doc *dom.Document, root *dom.Node, part selector.Part) ([]*dom.Node, error) {
	m, err := parseTextBody(part)
	if err != nil {
		return nil, err
	}

	var out []*dom.Node
	visit := func(n *dom.Node) bool {
		if n == root || !dom.IsElement(n) {
			return true
		}
		switch res := elementMatchesText(m, n); res {
		case matchSelf:
			out = append(out, n)
			return true
		case matchSelfAndChildren:
			if m.kind == kindStrict {
				out = append(out, n)
			}
			return true
		default: // matchNone
			// In lax mode, prune: an ancestor that matched nothing means
			// no descendant text run can satisfy the substring test
			// either, since ownText/full text only shrink going down.
			return m.kind != kindLax
		}
	}
	if e.pierce {
		dom.DescendantsPiercing(doc, root, visit)
	} else {
		dom.DescendantsLight(root, visit)
	}
	return out, nil
}
