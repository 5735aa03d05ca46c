package schedtools

import (
	"errors"
	"fmt"
)

// Kind classifies a tool failure. Validation kinds are detected before any
// backend call and are recoverable within the same conversation turn; the
// reasoner sees the error payload and may retry with corrected arguments.
type Kind string

const (
	KindInvalidRange       Kind = "invalid_range"
	KindInvalidDuration    Kind = "invalid_duration"
	KindInvalidInterval    Kind = "invalid_interval"
	KindPastEvent          Kind = "past_event"
	KindInvalidQueryFormat Kind = "invalid_query_format"
	KindSchemaError        Kind = "schema_error"
	KindUnknownTool        Kind = "unknown_tool"
	KindBackendError       Kind = "backend_error"
	KindCancelled          Kind = "cancelled"
	KindInternal           Kind = "internal"
)

// ToolError is a classified tool failure. BackendError values wrap the
// underlying transport error; validation errors carry only a message.
type ToolError struct {
	Kind Kind
	msg  string
	err  error
}

func (e *ToolError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

func (e *ToolError) Unwrap() error {
	return e.err
}

// Errorf creates a validation error of the given kind.
func Errorf(kind Kind, format string, args ...any) *ToolError {
	return &ToolError{Kind: kind, msg: fmt.Sprintf(format, args...)}
}

// BackendErrorf wraps a transport-level failure from the calendar backend.
func BackendErrorf(err error, format string, args ...any) *ToolError {
	return &ToolError{Kind: KindBackendError, msg: fmt.Sprintf(format, args...), err: err}
}

// KindOf returns the Kind of err if it is (or wraps) a ToolError, or an empty
// Kind otherwise.
func KindOf(err error) Kind {
	var te *ToolError
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}

// IsValidation reports whether err is a validation failure: one detected
// before any external call, safe for the reasoner to correct and retry.
func IsValidation(err error) bool {
	switch KindOf(err) {
	case KindInvalidRange, KindInvalidDuration, KindInvalidInterval,
		KindPastEvent, KindInvalidQueryFormat, KindSchemaError, KindUnknownTool:
		return true
	}
	return false
}
