// Command domrunner runs YAML flow files against HTML fixtures using a
// simulated DOM, without a real browser.
package main

import (
	"github.com/webdriver-labs/domrunner/pkg/cli"
)

// version is overridden at build time via -ldflags.
var version = "dev"

func main() {
	cli.Version = version
	cli.Execute()
}
