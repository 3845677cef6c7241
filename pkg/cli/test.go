package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/webdriver-labs/domrunner/pkg/config"
	"github.com/webdriver-labs/domrunner/pkg/core"
	"github.com/webdriver-labs/domrunner/pkg/executor"
	"github.com/webdriver-labs/domrunner/pkg/flow"
	"github.com/webdriver-labs/domrunner/pkg/logger"
	"github.com/webdriver-labs/domrunner/pkg/session"
	"github.com/webdriver-labs/domrunner/pkg/validator"
)

var testCommand = &cli.Command{
	Name:      "test",
	Usage:     "Run flows against their HTML fixtures",
	ArgsUsage: "<flow-file-or-folder>...",
	Description: `Run one or more flow files against the HTML fixtures they declare.

Examples:
  domrunner test flow.yaml
  domrunner test flows/
  domrunner test login.yaml checkout.yaml

  # With environment variables
  domrunner test flows/ -e USER=test -e PASS=secret

  # With tag filtering
  domrunner test flows/ --include-tags smoke

  # Custom fixture and report locations
  domrunner test flows/ --fixture-dir testdata/fixtures --output ./reports`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "Path to workspace config.yaml",
		},
		&cli.StringSliceFlag{
			Name:    "env",
			Aliases: []string{"e"},
			Usage:   "Environment variables (KEY=VALUE)",
		},
		&cli.StringSliceFlag{
			Name:  "include-tags",
			Usage: "Only include flows with these tags",
		},
		&cli.StringSliceFlag{
			Name:  "exclude-tags",
			Usage: "Exclude flows with these tags",
		},
		&cli.StringFlag{
			Name:  "fixture-dir",
			Usage: "Base directory for resolving a flow's fixture when it isn't next to the flow file",
		},
		&cli.StringFlag{
			Name:  "output",
			Usage: "Output directory for the JSON report (default: ./reports)",
		},
		&cli.IntFlag{
			Name:  "parallel",
			Usage: "Number of flows to run concurrently",
			Value: 1,
		},
		&cli.BoolFlag{
			Name:  "stop-on-fail",
			Usage: "Stop a flow's remaining steps as soon as one fails",
		},
	},
	Action: runTest,
}

func runTest(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("at least one flow file or folder is required")
	}

	if c.Bool("no-ansi") {
		colorsEnabled = false
	}

	printBanner()

	if c.Bool("verbose") {
		logger.SetLevel(logrus.DebugLevel)
	}

	env := parseEnvVars(c.StringSlice("env"))

	var workspaceConfig *config.Config
	var extensions []config.ResolvedExtension
	if configPath := c.String("config"); configPath != "" {
		var err error
		workspaceConfig, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		extensions, err = workspaceConfig.ResolveExtensions(filepath.Dir(configPath))
		if err != nil {
			return fmt.Errorf("failed to resolve extend sources: %w", err)
		}
	}

	mergedEnv := make(map[string]string)
	if workspaceConfig != nil {
		for k, v := range workspaceConfig.Env {
			mergedEnv[k] = v
		}
	}
	for k, v := range env {
		mergedEnv[k] = v
	}

	outputDir := c.String("output")
	if outputDir == "" {
		outputDir = "./reports"
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	logPath := filepath.Join(outputDir, "domrunner.log")
	if err := logger.Init(logPath); err != nil {
		fmt.Printf("Warning: Failed to initialize logger: %v\n", err)
	}
	defer logger.Close()

	logger.Info("=== Test execution started ===")
	logger.Info("Output directory: %s", outputDir)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("Received signal %v, shutting down", sig)
		fmt.Fprintf(os.Stderr, "\nReceived %v, shutting down...\n", sig)
		os.Exit(1)
	}()
	defer signal.Stop(sigCh)

	flows, err := validateAndParseFlows(c.Args().Slice(), c.StringSlice("include-tags"), c.StringSlice("exclude-tags"))
	if err != nil {
		logger.Error("Flow validation failed: %v", err)
		return err
	}
	logger.Info("Validated %d flow(s)", len(flows))

	runner := executor.New(executor.RunnerConfig{
		FixtureDir: c.String("fixture-dir"),
		SessionOptions: session.Options{
			StableRafCount:        c.Int("stable-raf-count"),
			ReplaceRafWithTimeout: c.Bool("replace-raf-with-timeout"),
			BrowserName:           c.String("browser-name"),
		},
		Extensions:        extensions,
		Parallelism:       c.Int("parallel"),
		StopOnFail:        c.Bool("stop-on-fail"),
		Env:               mergedEnv,
		OnFlowStart:       onFlowStart,
		OnStepComplete:    onStepComplete,
		OnNestedStep:      onNestedStep,
		OnNestedFlowStart: onNestedFlowStart,
		OnFlowEnd:         onFlowEnd,
	})

	logger.Info("Starting flow execution (parallel: %d)", c.Int("parallel"))
	result, err := runner.Run(context.Background(), flows)
	if err != nil {
		logger.Error("Flow execution failed: %v", err)
		return err
	}
	logger.Info("Flow execution completed: %d passed, %d failed, %d skipped",
		result.PassedFlows, result.FailedFlows, result.SkippedFlows)

	printSummary(result)

	reportPath := filepath.Join(outputDir, "report.json")
	if err := writeJSONReport(reportPath, result); err != nil {
		fmt.Printf("Warning: failed to write report: %v\n", err)
	} else {
		fmt.Printf("\n  Report: %s\n", reportPath)
	}

	printFooter()

	if !result.Success() {
		return cli.Exit("", 1)
	}
	return nil
}

// validateAndParseFlows validates and parses all flow files under paths.
func validateAndParseFlows(paths, includeTags, excludeTags []string) ([]flow.Flow, error) {
	v := validator.New(includeTags, excludeTags)
	var allTestCases []string
	var allErrors []error

	for _, path := range paths {
		result := v.Validate(path)
		allTestCases = append(allTestCases, result.TestCases...)
		allErrors = append(allErrors, result.Errors...)
	}

	if len(allErrors) > 0 {
		fmt.Fprintf(os.Stderr, "Validation errors:\n")
		for _, err := range allErrors {
			fmt.Fprintf(os.Stderr, "  - %v\n", err)
		}
		return nil, fmt.Errorf("validation failed with %d error(s)", len(allErrors))
	}

	if len(allTestCases) == 0 {
		return nil, fmt.Errorf("no test flows found")
	}

	fmt.Printf("\n%sSetup%s\n", color(colorBold), color(colorReset))
	fmt.Println(strings.Repeat("─", 40))
	printSetupSuccess(fmt.Sprintf("Found %d test flow(s)", len(allTestCases)))
	fmt.Printf("\n%sExecution%s\n", color(colorBold), color(colorReset))
	fmt.Println(strings.Repeat("─", 40))

	var flows []flow.Flow
	for _, path := range allTestCases {
		f, err := flow.ParseFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		flows = append(flows, *f)
	}

	return flows, nil
}

func writeJSONReport(path string, result *core.SuiteResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644) //#nosec G306 -- report is not sensitive
}

func printBanner() {
	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════════════╗")
	fmt.Printf("║  domrunner %s\n", Version)
	fmt.Println("║  A headless DOM flow runner, no browser required                  ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════════╝")
	fmt.Println()
}

func printFooter() {
	fmt.Println()
	fmt.Println(strings.Repeat("═", 40))
	fmt.Println()
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

const slowThresholdMs = 5000

var colorsEnabled = true

func init() {
	if os.Getenv("NO_COLOR") != "" {
		colorsEnabled = false
		return
	}
	if fileInfo, err := os.Stdout.Stat(); err == nil {
		if (fileInfo.Mode() & os.ModeCharDevice) == 0 {
			colorsEnabled = false
		}
	}
}

func color(c string) string {
	if colorsEnabled {
		return c
	}
	return ""
}

func onFlowStart(flowIdx, totalFlows int, name, file string) {
	fmt.Printf("\n  %s[%d/%d]%s %s%s%s (%s)\n",
		color(colorCyan), flowIdx+1, totalFlows, color(colorReset),
		color(colorBold), name, color(colorReset), file)
	fmt.Println(strings.Repeat("─", 60))
}

func onStepComplete(idx int, desc string, passed bool, durationMs int64, errMsg string) {
	isCompoundStep := strings.HasPrefix(desc, "runFlow:") ||
		strings.HasPrefix(desc, "repeat:") ||
		strings.HasPrefix(desc, "retry:")
	isSlow := durationMs >= slowThresholdMs && !isCompoundStep
	durStr := formatDuration(durationMs)

	if passed {
		symbol, symbolColor, durColor := "✓", color(colorGreen), ""
		if isSlow {
			durColor, symbol, symbolColor = color(colorYellow), "⚠", color(colorYellow)
		}
		fmt.Printf("    %s%s%s %s %s(%s)%s\n",
			symbolColor, symbol, color(colorReset), desc, durColor, durStr, color(colorReset))
	} else {
		fmt.Printf("    %s✗%s %s (%s)\n", color(colorRed), color(colorReset), desc, durStr)
		if errMsg != "" {
			fmt.Printf("      %s╰─%s %s\n", color(colorGray), color(colorReset), errMsg)
		}
	}
}

func onNestedFlowStart(depth int, desc string) {
	indent := strings.Repeat("  ", 2+depth)
	fmt.Printf("%s%s▸%s %s\n", indent, color(colorCyan), color(colorReset), desc)
}

func onNestedStep(depth int, desc string, passed bool, durationMs int64, errMsg string) {
	indent := strings.Repeat("  ", 2+depth+1)
	isSlow := durationMs >= slowThresholdMs
	durStr := formatDuration(durationMs)

	if passed {
		symbol, symbolColor, durColor := "✓", color(colorGreen), ""
		if isSlow {
			durColor, symbol, symbolColor = color(colorYellow), "⚠", color(colorYellow)
		}
		fmt.Printf("%s%s%s%s %s %s(%s)%s\n",
			indent, symbolColor, symbol, color(colorReset), desc, durColor, durStr, color(colorReset))
	} else {
		fmt.Printf("%s%s✗%s %s (%s)\n", indent, color(colorRed), color(colorReset), desc, durStr)
		if errMsg != "" {
			fmt.Printf("%s  %s╰─%s %s\n", indent, color(colorGray), color(colorReset), errMsg)
		}
	}
}

func onFlowEnd(name string, passed bool, durationMs int64) {
	if passed {
		fmt.Printf("  %s✓%s %s %s%s%s\n",
			color(colorGreen), color(colorReset), name, color(colorGray), formatDuration(durationMs), color(colorReset))
	} else {
		fmt.Printf("  %s✗%s %s %s%s%s\n",
			color(colorRed), color(colorReset), name, color(colorGray), formatDuration(durationMs), color(colorReset))
	}
}

func printSummary(result *core.SuiteResult) {
	totalSteps, passedSteps, failedSteps, skippedSteps := 0, 0, 0, 0
	for _, fr := range result.Flows {
		totalSteps += fr.TotalSteps
		passedSteps += fr.PassedSteps
		failedSteps += fr.FailedSteps
		skippedSteps += fr.SkippedSteps
	}

	fmt.Println()
	if passedSteps > 0 {
		fmt.Printf("  %s%d steps passing%s (%s)\n", color(colorGreen), passedSteps, color(colorReset), formatDuration(result.Duration.Milliseconds()))
	}
	if failedSteps > 0 {
		fmt.Printf("  %s%d steps failing%s\n", color(colorRed), failedSteps, color(colorReset))
	}
	if skippedSteps > 0 {
		fmt.Printf("  %s%d steps skipped%s\n", color(colorCyan), skippedSteps, color(colorReset))
	}
	fmt.Println()

	tableWidth := 92
	fmt.Println(strings.Repeat("═", tableWidth))
	fmt.Printf("  %-42s %6s %7s %6s %6s %6s %10s\n", "Flow", "Status", "Steps", "Pass", "Fail", "Skip", "Duration")
	fmt.Println(strings.Repeat("─", tableWidth))

	for _, fr := range result.Flows {
		var status, statusColor string
		switch {
		case fr.Status == core.StatusFailed || fr.Status == core.StatusErrored:
			status, statusColor = "✗ FAIL", color(colorRed)
		case fr.Status == core.StatusSkipped:
			status, statusColor = "- SKIP", color(colorCyan)
		default:
			status, statusColor = "✓ PASS", color(colorGreen)
		}

		name := fr.Name
		if len(name) > 42 {
			name = name[:39] + "..."
		}

		fmt.Printf("  %-42s %s%6s%s %7d %6d %6d %6d %10s\n",
			name, statusColor, status, color(colorReset),
			fr.TotalSteps, fr.PassedSteps, fr.FailedSteps, fr.SkippedSteps,
			formatDuration(fr.Duration.Milliseconds()))
	}

	fmt.Println(strings.Repeat("─", tableWidth))
	statusStr := fmt.Sprintf("%d/%d", result.PassedFlows, result.TotalFlows)
	statusColor := color(colorGreen)
	if result.FailedFlows > 0 {
		statusColor = color(colorRed)
	}
	fmt.Printf("  %s%-42s%s %s%6s%s %7d %6d %6d %6d %10s\n",
		color(colorBold), "TOTAL", color(colorReset),
		statusColor, statusStr, color(colorReset),
		totalSteps, passedSteps, failedSteps, skippedSteps,
		formatDuration(result.Duration.Milliseconds()))
	fmt.Println(strings.Repeat("═", tableWidth))
}

// formatDuration formats milliseconds to a human-readable string.
func formatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	if ms < 60000 {
		return fmt.Sprintf("%.1fs", float64(ms)/1000)
	}
	mins := ms / 60000
	secs := (ms % 60000) / 1000
	return fmt.Sprintf("%dm %ds", mins, secs)
}

func parseEnvVars(envs []string) map[string]string {
	result := make(map[string]string)
	for _, e := range envs {
		parts := strings.SplitN(e, "=", 2)
		if len(parts) == 2 {
			result[parts[0]] = parts[1]
		}
	}
	return result
}

func printSetupSuccess(msg string) {
	fmt.Printf("  %s✓%s %s\n", color(colorGreen), color(colorReset), msg)
}
