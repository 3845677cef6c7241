package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/webdriver-labs/domrunner/pkg/dom"
	"github.com/webdriver-labs/domrunner/pkg/query"
	"github.com/webdriver-labs/domrunner/pkg/registry"
	"github.com/webdriver-labs/domrunner/pkg/selector"
)

var queryCommand = &cli.Command{
	Name:      "query",
	Usage:     "Run a selector against an HTML fixture and print the matches",
	ArgsUsage: "<fixture.html> <selector>",
	Description: `Parse a selector chain and evaluate it against a fixture file the same
way a running flow would, without executing any steps.

Examples:
  domrunner query fixture.html "css=#login-form button"
  domrunner query fixture.html "text=Sign in >> nth=0"
  domrunner query fixture.html "xpath=//button[@type='submit']" --strict`,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "strict",
			Usage: "Fail if the selector resolves to more than one element",
		},
	},
	Action: runQuery,
}

func runQuery(c *cli.Context) error {
	if c.NArg() < 2 {
		return fmt.Errorf("usage: domrunner query <fixture.html> <selector>")
	}
	if c.Bool("no-ansi") {
		colorsEnabled = false
	}

	fixturePath := c.Args().Get(0)
	sel := c.Args().Get(1)

	source, err := os.ReadFile(fixturePath) //#nosec G304 -- fixture path is an explicit CLI argument
	if err != nil {
		return fmt.Errorf("failed to read fixture: %w", err)
	}
	doc, err := dom.NewDocument(string(source))
	if err != nil {
		return fmt.Errorf("failed to parse fixture: %w", err)
	}

	reg := registry.New(registry.Options{
		StableRafCount:        c.Int("stable-raf-count"),
		ReplaceRafWithTimeout: c.Bool("replace-raf-with-timeout"),
		BrowserName:           c.String("browser-name"),
	})
	parsed, err := selector.Parse(sel, reg.Exists)
	if err != nil {
		return fmt.Errorf("invalid selector: %w", err)
	}

	eval := query.New(reg)
	var nodes []*dom.Node
	err = eval.WithScope(func() error {
		if c.Bool("strict") {
			node, err := eval.QuerySelector(doc, parsed, doc.Root, true)
			if err != nil {
				return err
			}
			if node != nil {
				nodes = []*dom.Node{node}
			}
			return nil
		}
		nodes, err = eval.QuerySelectorAll(doc, parsed, doc.Root)
		return err
	})
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if len(nodes) == 0 {
		fmt.Printf("%sno matches%s\n", color(colorYellow), color(colorReset))
		return cli.Exit("", 1)
	}

	for i, n := range nodes {
		fmt.Printf("%s[%d]%s %s\n", color(colorCyan), i, color(colorReset), describeNode(n))
	}
	fmt.Printf("\n%s%d match(es)%s\n", color(colorGreen), len(nodes), color(colorReset))
	return nil
}

func describeNode(n *dom.Node) string {
	tag := strings.ToLower(dom.TagName(n))
	var attrs []string
	if id, ok := dom.Attr(n, "id"); ok && id != "" {
		attrs = append(attrs, fmt.Sprintf("id=%q", id))
	}
	if cls, ok := dom.Attr(n, "class"); ok && cls != "" {
		attrs = append(attrs, fmt.Sprintf("class=%q", cls))
	}
	text := strings.TrimSpace(dom.TextContent(n))
	if len(text) > 60 {
		text = text[:57] + "..."
	}
	desc := "<" + tag
	if len(attrs) > 0 {
		desc += " " + strings.Join(attrs, " ")
	}
	desc += ">"
	if text != "" {
		desc += " " + text
	}
	return desc
}
