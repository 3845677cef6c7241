package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/webdriver-labs/domrunner/pkg/errkind"
)

func TestExecutionError_Error(t *testing.T) {
	err := &ExecutionError{
		Category: ErrCategoryAssertion,
		Code:     "test_error",
		Message:  "test message",
	}

	if got := err.Error(); got != "test message" {
		t.Errorf("Error() = %q, want %q", got, "test message")
	}
}

func TestExecutionError_ErrorWithCause(t *testing.T) {
	cause := errors.New("underlying error")
	err := &ExecutionError{
		Category: ErrCategoryAssertion,
		Code:     "test_error",
		Message:  "test message",
		Cause:    cause,
	}

	got := err.Error()
	if !strings.Contains(got, "test message") {
		t.Errorf("Error() = %q, should contain 'test message'", got)
	}
	if !strings.Contains(got, "underlying error") {
		t.Errorf("Error() = %q, should contain 'underlying error'", got)
	}
}

func TestExecutionError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := &ExecutionError{
		Message: "wrapper",
		Cause:   cause,
	}

	if got := err.Unwrap(); got != cause {
		t.Errorf("Unwrap() = %v, want %v", got, cause)
	}
}

func TestExecutionError_WithCause(t *testing.T) {
	original := ErrElementNotFound
	cause := errors.New("custom cause")

	newErr := original.WithCause(cause)

	if newErr.Cause != cause {
		t.Error("WithCause() did not set cause")
	}
	if newErr.Code != original.Code {
		t.Error("WithCause() changed code")
	}
	if original.Cause != nil {
		t.Error("WithCause() modified original error")
	}
}

func TestExecutionError_WithMessage(t *testing.T) {
	original := ErrTimeout
	newErr := original.WithMessage("custom timeout message")

	if newErr.Message != "custom timeout message" {
		t.Errorf("Message = %q, want 'custom timeout message'", newErr.Message)
	}
	if newErr.Code != original.Code {
		t.Error("WithMessage() changed code")
	}
	if original.Message == "custom timeout message" {
		t.Error("WithMessage() modified original error")
	}
}

func TestExecutionError_WithDetails(t *testing.T) {
	original := &ExecutionError{
		Code:    "test",
		Message: "test",
		Details: map[string]interface{}{"existing": "value"},
	}

	newErr := original.WithDetails(map[string]interface{}{
		"selector": "#button",
		"timeout":  5000,
	})

	if newErr.Details["selector"] != "#button" {
		t.Error("WithDetails() did not add new details")
	}
	if newErr.Details["existing"] != "value" {
		t.Error("WithDetails() did not preserve existing details")
	}
	if _, ok := original.Details["selector"]; ok {
		t.Error("WithDetails() modified original error")
	}
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		err      *ExecutionError
		category ErrorCategory
		code     string
	}{
		{ErrSelectorSyntax, ErrCategorySelector, "selector_syntax"},
		{ErrUnknownEngine, ErrCategorySelector, "unknown_engine"},
		{ErrStrictViolation, ErrCategoryStrictViolation, "strict_violation"},
		{ErrElementNotFound, ErrCategoryTypeMismatch, "element_not_found"},
		{ErrTypeMismatch, ErrCategoryTypeMismatch, "type_mismatch"},
		{ErrUnfillableElement, ErrCategoryFillValue, "unfillable_element"},
		{ErrMalformedFillValue, ErrCategoryFillValue, "malformed_fill_value"},
		{ErrTextMismatch, ErrCategoryAssertion, "text_mismatch"},
		{ErrConditionNotMet, ErrCategoryAssertion, "condition_not_met"},
		{ErrUnknownAssertion, ErrCategoryAssertion, "unknown_assertion"},
		{ErrTimeout, ErrCategoryTimeout, "timeout"},
		{ErrWaitTimeout, ErrCategoryTimeout, "wait_timeout"},
		{ErrInvalidConfig, ErrCategoryConfig, "invalid_config"},
		{ErrMissingRequired, ErrCategoryConfig, "missing_required"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if tt.err.Category != tt.category {
				t.Errorf("Category = %s, want %s", tt.err.Category, tt.category)
			}
			if tt.err.Code != tt.code {
				t.Errorf("Code = %s, want %s", tt.err.Code, tt.code)
			}
			if tt.err.Message == "" {
				t.Error("Message should not be empty")
			}
		})
	}
}

func TestFromStackless(t *testing.T) {
	stackless := errkind.New(errkind.KindStrict, "selector %q matched 2 elements", "css=p")

	got := FromStackless(stackless)
	if got.Category != ErrCategoryStrictViolation {
		t.Errorf("Category = %s, want %s", got.Category, ErrCategoryStrictViolation)
	}
	if got.Code != "strict_violation" {
		t.Errorf("Code = %s, want strict_violation", got.Code)
	}
	if got.Message != stackless.Message {
		t.Errorf("Message = %q, want %q", got.Message, stackless.Message)
	}
}

func TestFromStacklessWrapsPlainError(t *testing.T) {
	plain := errors.New("boom")
	got := FromStackless(plain)

	if got.Category != ErrCategoryNone {
		t.Errorf("Category = %s, want %s", got.Category, ErrCategoryNone)
	}
	if got.Cause != plain {
		t.Error("expected Cause to be the wrapped plain error")
	}
}

func TestFromStacklessNil(t *testing.T) {
	if got := FromStackless(nil); got != nil {
		t.Errorf("FromStackless(nil) = %v, want nil", got)
	}
}

func TestNewExecutionError(t *testing.T) {
	err := NewExecutionError(ErrCategoryConfig, "custom_error", "custom message")

	if err.Category != ErrCategoryConfig {
		t.Errorf("Category = %s, want %s", err.Category, ErrCategoryConfig)
	}
	if err.Code != "custom_error" {
		t.Errorf("Code = %s, want 'custom_error'", err.Code)
	}
	if err.Message != "custom message" {
		t.Errorf("Message = %s, want 'custom message'", err.Message)
	}
}

func TestExecutionError_ErrorsIs(t *testing.T) {
	cause := errors.New("root cause")
	err := ErrTimeout.WithCause(cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is() should find the cause")
	}
}
