// Package validator validates domrunner flow files before execution.
// It parses all files upfront, resolves runFlow references, and detects errors.
package validator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/webdriver-labs/domrunner/pkg/config"
	"github.com/webdriver-labs/domrunner/pkg/flow"
)

// ValidationError represents a validation error with context.
type ValidationError struct {
	File    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

// Result contains the validation result.
type Result struct {
	// TestCases is the list of top-level flow files to run, in discovery
	// order: either the file(s) passed to Validate, or the files a
	// directory's config.yaml (or its default top-level scan) selects.
	TestCases []string
	// Files is every flow file touched during validation, including
	// runFlow dependencies that aren't test cases themselves.
	Files []string
	// Errors contains all validation errors found.
	Errors []error
}

// IsValid returns true if there are no validation errors.
func (r *Result) IsValid() bool {
	return len(r.Errors) == 0
}

// Validator validates flow files.
type Validator struct {
	includeTags []string
	excludeTags []string
}

// New creates a new Validator.
func New(includeTags, excludeTags []string) *Validator {
	return &Validator{
		includeTags: includeTags,
		excludeTags: excludeTags,
	}
}

// Validate validates a file or directory, resolving runFlow references and
// returning the set of top-level flows a runner should execute.
func (v *Validator) Validate(path string) *Result {
	result := &Result{}

	info, err := os.Stat(path)
	if err != nil {
		result.Errors = append(result.Errors, &ValidationError{
			File:    path,
			Message: fmt.Sprintf("cannot access: %v", err),
		})
		return result
	}

	var dir string
	var topLevel []string
	if info.IsDir() {
		dir = path
		topLevel, err = v.discoverTopLevelFlows(dir, result)
		if err != nil {
			result.Errors = append(result.Errors, &ValidationError{
				File:    path,
				Message: fmt.Sprintf("failed to scan directory: %v", err),
			})
			return result
		}
	} else {
		dir = filepath.Dir(path)
		topLevel = []string{path}
	}

	validated := make(map[string]bool)
	parsed := make(map[string]*flow.Flow)
	for _, file := range topLevel {
		v.validateDependencies(file, result, validated, parsed, nil)
	}

	includeTags, excludeTags := v.effectiveTags(dir)
	seen := make(map[string]bool)
	for _, file := range topLevel {
		f, ok := parsed[file]
		if !ok || seen[file] {
			continue
		}
		if !flow.ShouldIncludeFlow(f, includeTags, excludeTags) {
			continue
		}
		seen[file] = true
		result.TestCases = append(result.TestCases, file)
	}

	return result
}

// effectiveTags returns the include/exclude tag filters to apply, preferring
// tags passed to New over those declared in the directory's config.yaml.
func (v *Validator) effectiveTags(dir string) (includeTags, excludeTags []string) {
	cfg, _ := config.LoadFromDir(dir)
	includeTags = v.includeTags
	if len(includeTags) == 0 {
		includeTags = cfg.IncludeTags
	}
	excludeTags = v.excludeTags
	if len(excludeTags) == 0 {
		excludeTags = cfg.ExcludeTags
	}
	return includeTags, excludeTags
}

// discoverTopLevelFlows resolves the set of candidate test-case files for a
// directory: config.yaml's flows patterns if any are declared, otherwise
// every .yaml/.yml file directly inside the directory (non-recursive).
func (v *Validator) discoverTopLevelFlows(dir string, result *Result) ([]string, error) {
	cfg, err := config.LoadFromDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config.yaml: %w", err)
	}

	if len(cfg.Flows) == 0 {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		var files []string
		for _, e := range entries {
			if e.IsDir() || isConfigFile(e.Name()) {
				continue
			}
			if isFlowExt(e.Name()) {
				files = append(files, filepath.Join(dir, e.Name()))
			}
		}
		return files, nil
	}

	seen := make(map[string]bool)
	var files []string
	for _, pattern := range cfg.Flows {
		matches, err := v.matchPattern(dir, pattern)
		if err != nil {
			result.Errors = append(result.Errors, &ValidationError{
				File:    dir,
				Message: fmt.Sprintf("invalid flow pattern %q: %v", pattern, err),
			})
			continue
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	return files, nil
}

// matchPattern resolves one config.yaml flows entry against dir. "**"
// recurses over the whole directory; "**/suffix" recurses and matches
// suffix against each file's basename; anything else is a plain
// filepath.Glob pattern, and a match that resolves to a directory is
// itself recursed into.
func (v *Validator) matchPattern(dir, pattern string) ([]string, error) {
	if pattern == "**" {
		return collectFlowFiles(dir)
	}
	if suffix, ok := strings.CutPrefix(pattern, "**/"); ok {
		var matches []string
		err := filepath.Walk(dir, func(path string, info os.FileInfo, walkErr error) error {
			if walkErr != nil {
				return nil
			}
			if info.IsDir() || isConfigFile(info.Name()) {
				return nil
			}
			ok, matchErr := filepath.Match(suffix, info.Name())
			if matchErr != nil {
				return matchErr
			}
			if ok {
				matches = append(matches, path)
			}
			return nil
		})
		return matches, err
	}

	globMatches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, err
	}

	var files []string
	for _, m := range globMatches {
		info, statErr := os.Stat(m)
		if statErr != nil {
			continue
		}
		if info.IsDir() {
			sub, err := collectFlowFiles(m)
			if err != nil {
				continue
			}
			files = append(files, sub...)
		} else if isFlowExt(m) && !isConfigFile(filepath.Base(m)) {
			files = append(files, m)
		}
	}
	return files, nil
}

// collectFlowFiles recursively finds every .yaml/.yml file under dir.
func collectFlowFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if isConfigFile(info.Name()) {
			return nil
		}
		if isFlowExt(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func isFlowExt(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func isConfigFile(name string) bool {
	return name == "config.yaml" || name == "config.yml"
}

// validateDependencies parses filePath (once, cached in parsed/validated)
// and recursively validates its runFlow references, detecting cycles via
// chain and recording every parse/reference error into result.
func (v *Validator) validateDependencies(filePath string, result *Result, validated map[string]bool, parsed map[string]*flow.Flow, chain []string) {
	for _, ancestor := range chain {
		if ancestor == filePath {
			cycle := append(append([]string{}, chain...), filePath)
			result.Errors = append(result.Errors, &ValidationError{
				File:    filePath,
				Message: fmt.Sprintf("circular dependency detected: %s", strings.Join(cycle, " -> ")),
			})
			return
		}
	}

	if validated[filePath] {
		return
	}
	validated[filePath] = true

	f, err := flow.ParseFile(filePath)
	if err != nil {
		result.Errors = append(result.Errors, &ValidationError{
			File:    filePath,
			Message: fmt.Sprintf("parse error: %v", err),
		})
		return
	}
	parsed[filePath] = f
	result.Files = append(result.Files, filePath)

	newChain := append(append([]string{}, chain...), filePath)
	v.validateRunFlowSteps(f.Steps, filePath, result, validated, parsed, newChain)
	v.validateRunFlowSteps(f.Config.OnFlowStart, filePath, result, validated, parsed, newChain)
	v.validateRunFlowSteps(f.Config.OnFlowComplete, filePath, result, validated, parsed, newChain)
}

// validateRunFlowSteps finds and validates runFlow references in steps.
func (v *Validator) validateRunFlowSteps(steps []flow.Step, parentFile string, result *Result, validated map[string]bool, parsed map[string]*flow.Flow, chain []string) {
	parentDir := filepath.Dir(parentFile)

	for _, step := range steps {
		switch s := step.(type) {
		case *flow.RunFlowStep:
			if s.File != "" {
				refPath := resolveFilePath(parentDir, s.File)
				v.validateDependencies(refPath, result, validated, parsed, chain)
			}
			v.validateRunFlowSteps(s.Steps, parentFile, result, validated, parsed, chain)

		case *flow.RepeatStep:
			v.validateRunFlowSteps(s.Steps, parentFile, result, validated, parsed, chain)

		case *flow.RetryStep:
			if s.File != "" {
				refPath := resolveFilePath(parentDir, s.File)
				v.validateDependencies(refPath, result, validated, parsed, chain)
			}
			v.validateRunFlowSteps(s.Steps, parentFile, result, validated, parsed, chain)
		}
	}
}

// resolveFilePath resolves a file path relative to a base directory.
func resolveFilePath(baseDir, filePath string) string {
	if filepath.IsAbs(filePath) {
		return filePath
	}
	return filepath.Join(baseDir, filePath)
}
