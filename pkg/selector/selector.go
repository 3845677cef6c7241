// Package selector implements the chained selector grammar of spec.md §4.A:
//
//	selector := part ( ">>" part )*
//	part     := [ "*" ] [ engine "=" ] body
//	engine   := identifier (":" "light")?
//	body     := bare | '...' | "..." | /.../flags
//
// Parse only tokenizes and validates shape; it does not know which engine
// names are registered — EngineExists is supplied by the caller (the
// registry, component B) so the parser stays free of a registry
// dependency and can be unit-tested in isolation.
package selector

import (
	"strings"

	"github.com/webdriver-labs/domrunner/pkg/errkind"
)

// Part is one segment of a chained selector: an engine name plus its body
// and whether this part is a capture mark.
type Part struct {
	Engine  string
	Body    string
	Capture bool
	// Quoted is true when Body came from a '...' or "..." literal rather
	// than a bare token. Most engines ignore this; the text engine uses
	// it to distinguish strict-equality bodies from lax ones once quotes
	// have already been stripped and unescaped.
	Quoted bool
}

// Parsed is an ordered, non-empty sequence of Part plus an optional
// capture index, matching spec.md §3 ParsedSelector.
type Parsed struct {
	Source  string
	Parts   []Part
	Capture int // index into Parts, or -1 if no part is marked
}

// EngineExists reports whether a named engine is registered. Parse takes
// this as a parameter instead of importing the registry package, keeping
// component A free of a dependency on component B.
type EngineExists func(name string) bool

// Parse tokenizes s into a Parsed selector, validating every engine name
// via exists and that at most one part carries the capture mark.
func Parse(s string, exists EngineExists) (*Parsed, error) {
	rawParts, err := splitParts(s)
	if err != nil {
		return nil, wrapErr(s, err)
	}
	if len(rawParts) == 0 {
		return nil, errkind.Selector(s, "selector cannot be empty")
	}

	out := &Parsed{Source: s, Capture: -1}
	for i, raw := range rawParts {
		part, err := parsePart(raw)
		if err != nil {
			return nil, wrapErr(s, err)
		}
		if !exists(part.Engine) {
			return nil, wrapErrEngine(s, part.Engine)
		}
		if part.Capture {
			if out.Capture != -1 {
				return nil, errkind.Selector(s, "only one capture part (\"*\") is allowed")
			}
			out.Capture = i
		}
		out.Parts = append(out.Parts, part)
	}
	return out, nil
}

func wrapErr(source string, err error) error {
	if se, ok := err.(*errParse); ok {
		return errkind.Selector(source, se.reason)
	}
	return err
}

func wrapErrEngine(source, name string) error {
	return errkind.New(errkind.KindSelector, "unknown engine %q in selector %q", name, source)
}

type errParse struct{ reason string }

func (e *errParse) Error() string { return e.reason }

func fail(reason string) error { return &errParse{reason: reason} }

// splitParts splits on top-level ">>" separators, respecting quoted and
// regex bodies so a literal ">>" inside a string or pattern is not treated
// as a chain boundary.
func splitParts(s string) ([]string, error) {
	var parts []string
	var cur strings.Builder
	i := 0
	for i < len(s) {
		c := s[i]
		switch c {
		case '\'', '"':
			seg, n, err := readQuoted(s[i:], c)
			if err != nil {
				return nil, err
			}
			cur.WriteString(seg)
			i += n
			continue
		case '/':
			seg, n := readRegexLike(s[i:])
			cur.WriteString(seg)
			i += n
			continue
		case '>':
			if i+1 < len(s) && s[i+1] == '>' {
				parts = append(parts, strings.TrimSpace(cur.String()))
				cur.Reset()
				i += 2
				continue
			}
		}
		cur.WriteByte(c)
		i++
	}
	last := strings.TrimSpace(cur.String())
	if last != "" || len(parts) > 0 {
		parts = append(parts, last)
	}
	return parts, nil
}

// readQuoted consumes a '...' or "..." literal (with backslash-escapes)
// starting at s[0] == quote, returning the consumed text verbatim
// (including the quotes) and its length.
func readQuoted(s string, quote byte) (string, int, error) {
	var b strings.Builder
	b.WriteByte(quote)
	i := 1
	for i < len(s) {
		c := s[i]
		if c == '\\' && i+1 < len(s) {
			b.WriteByte(c)
			b.WriteByte(s[i+1])
			i += 2
			continue
		}
		b.WriteByte(c)
		i++
		if c == quote {
			return b.String(), i, nil
		}
	}
	return "", 0, fail("unterminated quoted body")
}

// readRegexLike best-effort consumes a /pattern/flags run so an internal
// ">>" inside a regex body does not split the chain. Not a full regex
// tokenizer: it only tracks bracket classes and backslash-escapes, enough
// to find the closing '/'.
func readRegexLike(s string) (string, int) {
	var b strings.Builder
	b.WriteByte('/')
	i := 1
	inClass := false
	for i < len(s) {
		c := s[i]
		b.WriteByte(c)
		switch {
		case c == '\\' && i+1 < len(s):
			i++
			b.WriteByte(s[i])
		case c == '[':
			inClass = true
		case c == ']':
			inClass = false
		case c == '/' && !inClass:
			i++
			for i < len(s) && isFlagChar(s[i]) {
				b.WriteByte(s[i])
				i++
			}
			return b.String(), i
		}
		i++
	}
	// No closing '/' found; treat the rest as a bare body (caller will
	// fail later if this was meant to be a regex).
	return b.String(), i
}

func isFlagChar(c byte) bool {
	return c == 'i' || c == 'g' || c == 'm' || c == 's' || c == 'u' || c == 'y'
}

// parsePart parses a single "[*][engine=]body" segment.
func parsePart(raw string) (Part, error) {
	s := strings.TrimSpace(raw)
	part := Part{}

	if strings.HasPrefix(s, "*") {
		part.Capture = true
		s = s[1:]
	}

	engine, body, ok := splitEngine(s)
	if !ok {
		part.Engine = "css"
		part.Body = s
		if part.Body == "" {
			return Part{}, fail("selector part cannot be empty")
		}
		return part, nil
	}
	part.Engine = engine
	part.Body, part.Quoted = unquoteIfNeeded(body)
	return part, nil
}

// splitEngine looks for the first unquoted, unescaped "=" that separates
// an engine name from its body. Engine names are restricted to
// identifier characters plus ":light" so "css=[data-x='a=b']" is not
// mistaken for an engine assignment on the wrong "=".
func splitEngine(s string) (engine, body string, ok bool) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '=' {
			name := s[:i]
			if isEngineName(name) {
				return name, s[i+1:], true
			}
			return "", "", false
		}
		if !isEngineNameChar(c) {
			return "", "", false
		}
	}
	return "", "", false
}

func isEngineName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isEngineNameChar(s[i]) {
			return false
		}
	}
	return true
}

func isEngineNameChar(c byte) bool {
	return c == '_' || c == '-' || c == ':' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// unquoteIfNeeded strips a surrounding '...' or "..." and unescapes
// backslash sequences; a regex /pattern/flags or a bare body passes
// through unchanged.
func unquoteIfNeeded(body string) (string, bool) {
	if len(body) < 2 {
		return body, false
	}
	quote := body[0]
	if (quote == '\'' || quote == '"') && body[len(body)-1] == quote {
		return unescape(body[1 : len(body)-1]), true
	}
	return body, false
}

func unescape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			b.WriteByte(s[i])
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// IsLight reports whether an engine name carries the ":light" suffix, and
// returns the base engine name.
func IsLight(engine string) (base string, light bool) {
	if strings.HasSuffix(engine, ":light") {
		return strings.TrimSuffix(engine, ":light"), true
	}
	return engine, false
}
