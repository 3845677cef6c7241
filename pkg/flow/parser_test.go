package flow

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParse_StepsOnly(t *testing.T) {
	data := []byte(`
- fill:
    selector: "#email"
    value: "user@example.com"
- fill:
    selector: "#password"
    value: "hunter2"
`)
	f, err := Parse(data, "login.yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(f.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(f.Steps))
	}
	fill, ok := f.Steps[0].(*FillStep)
	if !ok {
		t.Fatalf("Steps[0] type = %T, want *FillStep", f.Steps[0])
	}
	if fill.Selector != "#email" || fill.Value != "user@example.com" {
		t.Errorf("fill = %+v", fill)
	}
}

func TestParse_ConfigAndSteps(t *testing.T) {
	data := []byte(`
fixture: signup.html
name: signup flow
tags:
  - smoke
---
- fill:
    selector: "#name"
    value: "Ada"
- expect:
    selector: "#name"
    expression: "to.have.value"
    expectedValue: "Ada"
`)
	f, err := Parse(data, "signup.yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.Config.Fixture != "signup.html" {
		t.Errorf("Fixture = %q, want signup.html", f.Config.Fixture)
	}
	if len(f.Config.Tags) != 1 || f.Config.Tags[0] != "smoke" {
		t.Errorf("Tags = %v", f.Config.Tags)
	}
	if len(f.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(f.Steps))
	}
}

func TestParse_ScalarSteps(t *testing.T) {
	data := []byte(`
- selectText: "#summary"
- focus: "#search"
`)
	f, err := Parse(data, "scalar.yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	st, ok := f.Steps[0].(*SelectTextStep)
	if !ok || st.Selector != "#summary" {
		t.Errorf("Steps[0] = %+v", f.Steps[0])
	}
	fs, ok := f.Steps[1].(*FocusStep)
	if !ok || fs.Selector != "#search" {
		t.Errorf("Steps[1] = %+v", f.Steps[1])
	}
}

func TestParse_UnknownStepType(t *testing.T) {
	data := []byte(`
- swipeLeft: true
`)
	if _, err := Parse(data, "bad.yaml"); err == nil {
		t.Error("expected error for unknown step type")
	}
}

func TestParse_EmptyFile(t *testing.T) {
	if _, err := Parse([]byte(""), "empty.yaml"); err == nil {
		t.Error("expected error for empty flow file")
	}
}

func TestParse_RepeatStep(t *testing.T) {
	data := []byte(`
- repeat:
    times: "3"
    commands:
      - fill:
          selector: "#counter"
          value: "1"
`)
	f, err := Parse(data, "repeat.yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	rs, ok := f.Steps[0].(*RepeatStep)
	if !ok {
		t.Fatalf("Steps[0] type = %T, want *RepeatStep", f.Steps[0])
	}
	if rs.Times != "3" || len(rs.Steps) != 1 {
		t.Errorf("repeat = %+v", rs)
	}
}

func TestParse_RetryStep(t *testing.T) {
	data := []byte(`
- retry:
    maxRetries: "2"
    commands:
      - waitFor: "#spinner-gone"
`)
	f, err := Parse(data, "retry.yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	rs, ok := f.Steps[0].(*RetryStep)
	if !ok {
		t.Fatalf("Steps[0] type = %T, want *RetryStep", f.Steps[0])
	}
	if rs.MaxRetries != "2" || len(rs.Steps) != 1 {
		t.Errorf("retry = %+v", rs)
	}
}

func TestParse_RunFlowStepScalar(t *testing.T) {
	data := []byte(`
- runFlow: subflow.yaml
`)
	f, err := Parse(data, "outer.yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	rf, ok := f.Steps[0].(*RunFlowStep)
	if !ok || rf.File != "subflow.yaml" {
		t.Errorf("Steps[0] = %+v", f.Steps[0])
	}
}

func TestParse_RunFlowStepInline(t *testing.T) {
	data := []byte(`
- runFlow:
    when:
      selector: "#modal"
      visible: true
    commands:
      - focus: "#modal-input"
`)
	f, err := Parse(data, "outer.yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	rf, ok := f.Steps[0].(*RunFlowStep)
	if !ok {
		t.Fatalf("Steps[0] type = %T, want *RunFlowStep", f.Steps[0])
	}
	if rf.When == nil || rf.When.Selector != "#modal" {
		t.Errorf("When = %+v", rf.When)
	}
	if len(rf.Steps) != 1 {
		t.Errorf("expected 1 inline step, got %d", len(rf.Steps))
	}
}

func TestParse_DefineVariables(t *testing.T) {
	data := []byte(`
- defineVariables:
    USER: ada
    PASS: hunter2
`)
	f, err := Parse(data, "vars.yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	dv, ok := f.Steps[0].(*DefineVariablesStep)
	if !ok {
		t.Fatalf("Steps[0] type = %T, want *DefineVariablesStep", f.Steps[0])
	}
	if dv.Env["USER"] != "ada" || dv.Env["PASS"] != "hunter2" {
		t.Errorf("Env = %v", dv.Env)
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flow.yaml")
	content := "- fill:\n    selector: \"#x\"\n    value: \"y\"\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	f, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(f.Steps) != 1 {
		t.Fatalf("expected 1 step, got %d", len(f.Steps))
	}
}

func TestParseFile_NotFound(t *testing.T) {
	if _, err := ParseFile("/nonexistent/flow.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestShouldIncludeFlow(t *testing.T) {
	tests := []struct {
		name        string
		tags        []string
		includeTags []string
		excludeTags []string
		want        bool
	}{
		{"no filters", []string{"smoke"}, nil, nil, true},
		{"include match", []string{"smoke"}, []string{"smoke"}, nil, true},
		{"include no match", []string{"regression"}, []string{"smoke"}, nil, false},
		{"exclude match", []string{"wip"}, nil, []string{"wip"}, false},
		{"exclude no match", []string{"smoke"}, nil, []string{"wip"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &Flow{Config: Config{Tags: tt.tags}}
			if got := ShouldIncludeFlow(f, tt.includeTags, tt.excludeTags); got != tt.want {
				t.Errorf("ShouldIncludeFlow() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseDirectory(t *testing.T) {
	dir := t.TempDir()
	flow1 := "fixture: a.html\ntags: [smoke]\n---\n- focus: \"#a\"\n"
	flow2 := "fixture: b.html\ntags: [wip]\n---\n- focus: \"#b\"\n"
	if err := os.WriteFile(filepath.Join(dir, "one.yaml"), []byte(flow1), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "two.yaml"), []byte(flow2), 0644); err != nil {
		t.Fatal(err)
	}

	flows, err := ParseDirectory(dir, nil, []string{"wip"})
	if err != nil {
		t.Fatalf("ParseDirectory: %v", err)
	}
	if len(flows) != 1 || flows[0].Config.Fixture != "a.html" {
		t.Errorf("flows = %+v", flows)
	}
}

func TestParseError_Error(t *testing.T) {
	withLine := &ParseError{Path: "f.yaml", Line: 3, Message: "boom"}
	if got, want := withLine.Error(), "f.yaml:3: boom"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	withoutLine := &ParseError{Path: "f.yaml", Message: "boom"}
	if got, want := withoutLine.Error(), "f.yaml: boom"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
