package cli

import "testing"

func TestParseEnvVars_Valid(t *testing.T) {
	got := parseEnvVars([]string{"USER=test", "PASS=secret", "EMPTY="})
	want := map[string]string{"USER": "test", "PASS": "secret", "EMPTY": ""}
	if len(got) != len(want) {
		t.Fatalf("parseEnvVars() = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("parseEnvVars()[%q] = %q, want %q", k, got[k], v)
		}
	}
}

func TestParseEnvVars_IgnoresMalformed(t *testing.T) {
	got := parseEnvVars([]string{"NOEQUALS", "KEY=value=with=equals"})
	if _, ok := got["NOEQUALS"]; ok {
		t.Error("parseEnvVars() should skip entries without '='")
	}
	if got["KEY"] != "value=with=equals" {
		t.Errorf("parseEnvVars()[KEY] = %q, want %q", got["KEY"], "value=with=equals")
	}
}

func TestParseEnvVars_Empty(t *testing.T) {
	got := parseEnvVars(nil)
	if len(got) != 0 {
		t.Errorf("parseEnvVars(nil) = %v, want empty map", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{0, "0ms"},
		{500, "500ms"},
		{999, "999ms"},
		{1000, "1.0s"},
		{1500, "1.5s"},
		{59999, "60.0s"},
		{60000, "1m 0s"},
		{125000, "2m 5s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.ms); got != tt.want {
			t.Errorf("formatDuration(%d) = %q, want %q", tt.ms, got, tt.want)
		}
	}
}

func TestColor_DisabledReturnsEmpty(t *testing.T) {
	orig := colorsEnabled
	defer func() { colorsEnabled = orig }()

	colorsEnabled = false
	if got := color(colorRed); got != "" {
		t.Errorf("color() with colorsEnabled=false = %q, want empty", got)
	}

	colorsEnabled = true
	if got := color(colorRed); got != colorRed {
		t.Errorf("color() with colorsEnabled=true = %q, want %q", got, colorRed)
	}
}

func TestValidateAndParseFlows_NoFlowsFound(t *testing.T) {
	dir := t.TempDir()
	_, err := validateAndParseFlows([]string{dir}, nil, nil)
	if err == nil {
		t.Fatal("validateAndParseFlows() with empty directory should return an error")
	}
}

func TestValidateAndParseFlows_MissingPath(t *testing.T) {
	_, err := validateAndParseFlows([]string{"/nonexistent/path/for/domrunner/tests"}, nil, nil)
	if err == nil {
		t.Fatal("validateAndParseFlows() with a nonexistent path should return an error")
	}
}

func TestOnFlowEnd_DoesNotPanic(t *testing.T) {
	onFlowEnd("sample flow", true, 120)
	onFlowEnd("sample flow", false, 42)
}

func TestOnStepComplete_DoesNotPanic(t *testing.T) {
	onStepComplete(0, "tapOn #submit", true, 10, "")
	onStepComplete(1, "assertVisible #error", false, 20, "element not found")
}

func TestOnNestedStep_DoesNotPanic(t *testing.T) {
	onNestedStep(1, "tapOn #submit", true, 10, "")
	onNestedFlowStart(1, "runFlow: login.yaml")
}
