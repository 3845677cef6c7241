package dom

import (
	"fmt"
	"sort"
	"strings"
)

// voidTags mirrors the HTML elements that never have a closing tag,
// per spec.md §4.E previewNode ("self-closing for void tags").
var voidTags = map[string]bool{
	"AREA": true, "BASE": true, "BR": true, "COL": true, "EMBED": true,
	"HR": true, "IMG": true, "INPUT": true, "LINK": true, "META": true,
	"PARAM": true, "SOURCE": true, "TRACK": true, "WBR": true,
}

// booleanAttrs is the set of HTML attributes rendered as shorthand
// (`disabled` rather than `disabled=""`).
var booleanAttrs = map[string]bool{
	"disabled": true, "checked": true, "selected": true, "readonly": true,
	"required": true, "hidden": true, "multiple": true, "autofocus": true,
}

// PreviewNode produces a one-line HTML-ish preview of n: tag, attributes
// sorted by length (excluding `style`), boolean-attribute shorthand,
// truncated to 50 characters of attributes and 50 characters of text,
// self-closing for void tags — exactly spec.md §4.E's previewNode used in
// strict-mode errors and hit-target diagnostics.
func PreviewNode(n *Node) string {
	if !IsElement(n) {
		return ""
	}
	tag := strings.ToLower(n.Data)

	attrs := make([]string, 0, len(n.Attr))
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, "style") {
			continue
		}
		attrs = append(attrs, a.Key)
	}
	sort.Slice(attrs, func(i, j int) bool { return len(attrs[i]) < len(attrs[j]) })

	var attrStr strings.Builder
	for _, key := range attrs {
		val, _ := Attr(n, key)
		var piece string
		if booleanAttrs[strings.ToLower(key)] {
			piece = " " + key
		} else {
			piece = fmt.Sprintf(" %s=%q", key, val)
		}
		attrStr.WriteString(piece)
	}
	attrPreview := truncate(attrStr.String(), 50)

	if voidTags[strings.ToUpper(tag)] {
		return fmt.Sprintf("<%s%s />", tag, attrPreview)
	}

	text := truncate(strings.TrimSpace(NormalizeWhitespace(TextContent(n))), 50)
	return fmt.Sprintf("<%s%s>%s</%s>", tag, attrPreview, text, tag)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

// GenerateSelector reverse-engineers a best-effort selector string for n,
// used only inside strict-violation previews (spec.md §1: selector
// generation is out of scope "except as a diagnostic label producer
// invoked from strict-mode errors"). It prefers #id, falls back to
// tag.class, and appends an nth= suffix among siblings sharing the same
// generated prefix to disambiguate ties.
func GenerateSelector(n *Node) string {
	if !IsElement(n) {
		return ""
	}
	if id, ok := Attr(n, "id"); ok && id != "" {
		return "#" + id
	}
	tag := strings.ToLower(n.Data)
	if class, ok := Attr(n, "class"); ok && class != "" {
		classes := strings.Fields(class)
		if len(classes) > 0 {
			base := tag + "." + strings.Join(classes, ".")
			if idx, total := siblingIndex(n, base); total > 1 {
				return fmt.Sprintf("%s >> nth=%d", base, idx)
			}
			return base
		}
	}
	if idx, total := siblingIndex(n, tag); total > 1 {
		return fmt.Sprintf("%s >> nth=%d", tag, idx)
	}
	return tag
}

// siblingIndex returns n's 0-based rank among its parent's element
// children that would match the same generated prefix, and the total
// count of such matches.
func siblingIndex(n *Node, prefix string) (index, total int) {
	parent := Parent(n)
	if parent == nil {
		return 0, 1
	}
	index = -1
	for _, sib := range Children(parent) {
		if describesSame(sib, prefix) {
			total++
			if sib == n {
				index = total - 1
			}
		}
	}
	if index == -1 {
		index = 0
	}
	return index, total
}

func describesSame(n *Node, prefix string) bool {
	parts := strings.Split(prefix, ".")
	if strings.ToLower(n.Data) != parts[0] {
		return false
	}
	class, _ := Attr(n, "class")
	have := strings.Fields(class)
	for _, want := range parts[1:] {
		found := false
		for _, c := range have {
			if c == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
