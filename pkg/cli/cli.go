// Package cli provides the command-line interface for domrunner.
package cli

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "browser-name",
		Usage:   "Browser dialect for engine quirks (chrome, firefox, webkit)",
		Value:   "chrome",
		EnvVars: []string{"DOMRUNNER_BROWSER_NAME"},
	},
	&cli.IntFlag{
		Name:  "stable-raf-count",
		Usage: "Consecutive same-rect animation frames required before an element is considered stable",
		Value: 3,
	},
	&cli.BoolFlag{
		Name:  "replace-raf-with-timeout",
		Usage: "Poll on a fixed interval instead of a simulated frame clock",
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Usage:   "Enable verbose logging",
		EnvVars: []string{"DOMRUNNER_VERBOSE"},
	},
	&cli.BoolFlag{
		Name:  "no-ansi",
		Usage: "Disable ANSI colors",
	},
}

// Execute runs the CLI.
func Execute() {
	app := &cli.App{
		Name:    "domrunner",
		Usage:   "Headless DOM flow runner for automated UI testing",
		Version: Version,
		Description: `domrunner executes YAML flow files against HTML fixtures using a
simulated DOM, without a real browser.

Examples:
  domrunner test flow.yaml
  domrunner test flows/ -e USER=test
  domrunner validate flows/
  domrunner query fixture.html "css=#login-form button"`,
		Flags: GlobalFlags,
		Commands: []*cli.Command{
			testCommand,
			validateCommand,
			queryCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
