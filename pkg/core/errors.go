package core

import (
	"fmt"

	"github.com/webdriver-labs/domrunner/pkg/errkind"
)

// ExecutionError represents a structured error with category and details
type ExecutionError struct {
	Category ErrorCategory
	Code     string                 // Machine-readable code: element_not_found, timeout, etc.
	Message  string                 // Human-readable message
	Details  map[string]interface{} // Additional context
	Cause    error                  // Underlying error
}

// Error implements the error interface
func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// WithCause returns a copy of the error with the given cause
func (e *ExecutionError) WithCause(cause error) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  e.Details,
		Cause:    cause,
	}
}

// WithMessage returns a copy of the error with a custom message
func (e *ExecutionError) WithMessage(msg string) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  msg,
		Details:  e.Details,
		Cause:    e.Cause,
	}
}

// WithDetails returns a copy of the error with additional details
func (e *ExecutionError) WithDetails(details map[string]interface{}) *ExecutionError {
	merged := make(map[string]interface{})
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  merged,
		Cause:    e.Cause,
	}
}

// Predefined errors, one per errkind.Kind plus the general timeout/config
// categories a step runner needs regardless of domain.
var (
	// Selector errors
	ErrSelectorSyntax = &ExecutionError{
		Category: ErrCategorySelector,
		Code:     "selector_syntax",
		Message:  "selector could not be parsed",
	}
	ErrUnknownEngine = &ExecutionError{
		Category: ErrCategorySelector,
		Code:     "unknown_engine",
		Message:  "selector names an engine not present in the registry",
	}

	// Strict-mode errors
	ErrStrictViolation = &ExecutionError{
		Category: ErrCategoryStrictViolation,
		Code:     "strict_violation",
		Message:  "selector resolved to more than one element",
	}

	// Type-mismatch errors
	ErrElementNotFound = &ExecutionError{
		Category: ErrCategoryTypeMismatch,
		Code:     "element_not_found",
		Message:  "element not found",
	}
	ErrTypeMismatch = &ExecutionError{
		Category: ErrCategoryTypeMismatch,
		Code:     "type_mismatch",
		Message:  "state check invoked on the wrong element kind",
	}

	// Fill-value errors
	ErrUnfillableElement = &ExecutionError{
		Category: ErrCategoryFillValue,
		Code:     "unfillable_element",
		Message:  "element cannot be filled",
	}
	ErrMalformedFillValue = &ExecutionError{
		Category: ErrCategoryFillValue,
		Code:     "malformed_fill_value",
		Message:  "value does not match the input's expected format",
	}

	// Assertion errors
	ErrTextMismatch = &ExecutionError{
		Category: ErrCategoryAssertion,
		Code:     "text_mismatch",
		Message:  "text does not match expected value",
	}
	ErrConditionNotMet = &ExecutionError{
		Category: ErrCategoryAssertion,
		Code:     "condition_not_met",
		Message:  "condition was not met",
	}
	ErrUnknownAssertion = &ExecutionError{
		Category: ErrCategoryAssertion,
		Code:     "unknown_assertion",
		Message:  "assertion expression is not in the supported table",
	}

	// Timeout errors
	ErrTimeout = &ExecutionError{
		Category: ErrCategoryTimeout,
		Code:     "timeout",
		Message:  "operation timed out",
	}
	ErrWaitTimeout = &ExecutionError{
		Category: ErrCategoryTimeout,
		Code:     "wait_timeout",
		Message:  "wait condition timed out",
	}

	// Config errors
	ErrInvalidConfig = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "invalid_config",
		Message:  "invalid configuration",
	}
	ErrMissingRequired = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "missing_required",
		Message:  "missing required field",
	}
)

// NewExecutionError creates a new ExecutionError with the given parameters
func NewExecutionError(category ErrorCategory, code, message string) *ExecutionError {
	return &ExecutionError{
		Category: category,
		Code:     code,
		Message:  message,
	}
}

// categoryForKind maps an errkind.Kind onto the corresponding ErrorCategory.
func categoryForKind(kind errkind.Kind) ErrorCategory {
	switch kind {
	case errkind.KindSelector:
		return ErrCategorySelector
	case errkind.KindStrict:
		return ErrCategoryStrictViolation
	case errkind.KindType:
		return ErrCategoryTypeMismatch
	case errkind.KindFillValue:
		return ErrCategoryFillValue
	case errkind.KindAssertion:
		return ErrCategoryAssertion
	default:
		return ErrCategoryNone
	}
}

// FromStackless wraps a pkg/action/pkg/selector/pkg/query error (always, by
// construction, an *errkind.Stackless) into the step-result shaped
// ExecutionError a runner and reporter deal in. Errors of any other type
// are wrapped as a bare ErrCategoryNone execution error with err as cause,
// so a step runner never has to type-switch at the call site.
func FromStackless(err error) *ExecutionError {
	if err == nil {
		return nil
	}
	if se, ok := err.(*errkind.Stackless); ok {
		return &ExecutionError{
			Category: categoryForKind(se.Kind),
			Code:     string(se.Kind),
			Message:  se.Message,
		}
	}
	return &ExecutionError{
		Category: ErrCategoryNone,
		Code:     "unknown",
		Message:  err.Error(),
		Cause:    err,
	}
}
