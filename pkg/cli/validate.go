package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/webdriver-labs/domrunner/pkg/validator"
)

var validateCommand = &cli.Command{
	Name:      "validate",
	Usage:     "Validate flow files without running them",
	ArgsUsage: "<flow-file-or-folder>...",
	Description: `Parse flow files and their runFlow dependencies, reporting
parse errors and circular references without executing any steps.

Examples:
  domrunner validate flow.yaml
  domrunner validate flows/`,
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "include-tags",
			Usage: "Only count flows with these tags as test cases",
		},
		&cli.StringSliceFlag{
			Name:  "exclude-tags",
			Usage: "Exclude flows with these tags from test cases",
		},
	},
	Action: runValidate,
}

func runValidate(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("at least one flow file or folder is required")
	}
	if c.Bool("no-ansi") {
		colorsEnabled = false
	}

	v := validator.New(c.StringSlice("include-tags"), c.StringSlice("exclude-tags"))

	var totalCases, totalFiles int
	var allErrors []error
	for _, path := range c.Args().Slice() {
		result := v.Validate(path)
		totalCases += len(result.TestCases)
		totalFiles += len(result.Files)
		allErrors = append(allErrors, result.Errors...)

		for _, tc := range result.TestCases {
			fmt.Printf("  %s✓%s %s\n", color(colorGreen), color(colorReset), tc)
		}
	}

	fmt.Println()
	if len(allErrors) > 0 {
		fmt.Printf("%s%d error(s):%s\n", color(colorRed), len(allErrors), color(colorReset))
		for _, err := range allErrors {
			fmt.Printf("  %s✗%s %v\n", color(colorRed), color(colorReset), err)
		}
		return cli.Exit("", 1)
	}

	fmt.Printf("%s%d test case(s), %d file(s) total, no errors%s\n",
		color(colorGreen), totalCases, totalFiles, color(colorReset))
	return nil
}
