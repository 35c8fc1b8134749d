package toolbox

import (
	"errors"
	"fmt"
)

// ErrorClass represents the classification of a toolbox error.
type ErrorClass string

const (
	// ErrorClassConfiguration indicates a contradictory or malformed schema.
	// Examples: a non-block type declaring children, a tab reference to an undeclared tab.
	ErrorClassConfiguration ErrorClass = "configuration"

	// ErrorClassNotFound indicates a lookup that had no result.
	// Examples: unknown normalizer name, unknown context namespace.
	ErrorClassNotFound ErrorClass = "not_found"

	// ErrorClassNormalization indicates a normalizer that failed on a value.
	ErrorClassNormalization ErrorClass = "normalization"

	// ErrorClassDispatch indicates a payload sink that rejected a payload.
	ErrorClassDispatch ErrorClass = "dispatch"
)

// Error represents a classified error with context.
type Error struct {
	// Class is the error classification.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Code is an optional error code for programmatic handling.
	Code string `json:"code,omitempty"`

	// Area is the area/brick id involved, if applicable.
	Area string `json:"area,omitempty"`

	// Element is the config element name involved, if applicable.
	Element string `json:"element,omitempty"`

	// Err is the underlying error that caused this error.
	Err error `json:"-"`

	// Details contains additional context-specific information.
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Class, e.Message)
	if e.Area != "" && e.Element != "" {
		msg = fmt.Sprintf("%s (area=%s, element=%s)", msg, e.Area, e.Element)
	} else if e.Area != "" {
		msg = fmt.Sprintf("%s (area=%s)", msg, e.Area)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements error equality checking for errors.Is.
// Two toolbox errors match when class and code are equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// NewConfigurationError creates a new configuration error.
func NewConfigurationError(message string, err error) *Error {
	return &Error{
		Class:   ErrorClassConfiguration,
		Code:    ErrCodeSchemaContradiction,
		Message: message,
		Err:     err,
	}
}

// NewNotFoundError creates a new not-found error.
func NewNotFoundError(message string, err error) *Error {
	return &Error{
		Class:   ErrorClassNotFound,
		Message: message,
		Err:     err,
	}
}

// NewNormalizationError creates a new normalization error.
func NewNormalizationError(message string, err error) *Error {
	return &Error{
		Class:   ErrorClassNormalization,
		Code:    ErrCodeNormalizationFailed,
		Message: message,
		Err:     err,
	}
}

// NewDispatchError creates a new dispatch error.
func NewDispatchError(message string, err error) *Error {
	return &Error{
		Class:   ErrorClassDispatch,
		Code:    ErrCodeDispatchFailed,
		Message: message,
		Err:     err,
	}
}

// WithArea adds area context to an error.
func (e *Error) WithArea(areaID string) *Error {
	e.Area = areaID
	return e
}

// WithElement adds config element context to an error.
func (e *Error) WithElement(name string) *Error {
	e.Element = name
	return e
}

// WithCode sets the error code.
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

// WithDetail adds a detail field to the error context.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsConfiguration returns true if the error is classified as a configuration error.
func IsConfiguration(err error) bool {
	return hasClass(err, ErrorClassConfiguration)
}

// IsNotFound returns true if the error is classified as not found.
func IsNotFound(err error) bool {
	return hasClass(err, ErrorClassNotFound)
}

// IsNormalization returns true if the error is classified as a normalization failure.
func IsNormalization(err error) bool {
	return hasClass(err, ErrorClassNormalization)
}

// IsDispatch returns true if the error is classified as a dispatch failure.
func IsDispatch(err error) bool {
	return hasClass(err, ErrorClassDispatch)
}

// HasCode reports whether err carries a toolbox error with the given code.
func HasCode(err error, code string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

func hasClass(err error, class ErrorClass) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Class == class
	}
	return false
}

// Common error codes.
const (
	ErrCodeSchemaContradiction = "SCHEMA_CONTRADICTION"
	ErrCodeInvalidConfig       = "INVALID_CONFIGURATION"
	ErrCodeUnknownFieldType    = "UNKNOWN_FIELD_TYPE"
	ErrCodeNormalizerNotFound  = "NORMALIZER_NOT_FOUND"
	ErrCodeDuplicateNormalizer = "DUPLICATE_NORMALIZER"
	ErrCodeContextNotFound     = "CONTEXT_NOT_FOUND"
	ErrCodeAreaNotFound        = "AREA_NOT_FOUND"
	ErrCodeNormalizationFailed = "NORMALIZATION_FAILED"
	ErrCodeDispatchFailed      = "DISPATCH_FAILED"
	ErrCodeCalculatorNotFound  = "CALCULATOR_NOT_FOUND"
	ErrCodeDuplicateCalculator = "DUPLICATE_CALCULATOR"
)
