// Package errs defines the error taxonomy shared by the forecasting engine
// and its loaders. Every engine failure is an *Error carrying a Code, the
// offending node (when there is one) and the parameter values involved.
package errs

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeCycleDetected           Code = "CYCLE_DETECTED"
	CodeUnknownDependency       Code = "UNKNOWN_DEPENDENCY"
	CodeInvalidEstimate         Code = "INVALID_ESTIMATE"
	CodeInsufficientHistory     Code = "INSUFFICIENT_HISTORY"
	CodeNoAvailableCapacity     Code = "NO_AVAILABLE_CAPACITY"
	CodeForecastHorizonExceeded Code = "FORECAST_HORIZON_EXCEEDED"
	CodeInvalidConfig           Code = "INVALID_CONFIG"
)

// Sentinels for errors.Is. They match any *Error with the same code.
var (
	ErrCycleDetected           = &Error{Code: CodeCycleDetected}
	ErrUnknownDependency       = &Error{Code: CodeUnknownDependency}
	ErrInvalidEstimate         = &Error{Code: CodeInvalidEstimate}
	ErrInsufficientHistory     = &Error{Code: CodeInsufficientHistory}
	ErrNoAvailableCapacity     = &Error{Code: CodeNoAvailableCapacity}
	ErrForecastHorizonExceeded = &Error{Code: CodeForecastHorizonExceeded}
	ErrInvalidConfig           = &Error{Code: CodeInvalidConfig}
)

// Error is a terminal engine error.
type Error struct {
	Code    Code           `json:"code"`
	Message string         `json:"message"`
	NodeID  string         `json:"node_id,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.NodeID != "" {
		fmt.Fprintf(&b, " [%s]", e.NodeID)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s=%v", k, e.Details[k])
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(parts, ", "))
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetail sets a single detail key and returns the receiver.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying cause and returns the receiver.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// New creates an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CycleDetected reports the nodes left unresolved by a topological sort.
// path, when non-empty, is one concrete cycle among them.
func CycleDetected(remainder, path []string) *Error {
	e := &Error{
		Code:    CodeCycleDetected,
		Message: fmt.Sprintf("dependency cycle among %d work packages", len(remainder)),
	}
	e.WithDetail("nodes", remainder)
	if len(path) > 0 {
		e.WithDetail("cycle", strings.Join(path, " -> "))
	}
	return e
}

// UnknownDependency reports an edge whose endpoint is not a known node.
func UnknownDependency(nodeID, missing string) *Error {
	return (&Error{
		Code:    CodeUnknownDependency,
		Message: fmt.Sprintf("depends on unknown work package %q", missing),
		NodeID:  nodeID,
	}).WithDetail("dependency", missing)
}

// InvalidEstimate reports an estimate whose parameters are out of order or out of range.
func InvalidEstimate(nodeID, reason string) *Error {
	return &Error{Code: CodeInvalidEstimate, Message: reason, NodeID: nodeID}
}

// InsufficientHistory reports a throughput series that cannot be sampled.
func InsufficientHistory(nodeID, series, reason string) *Error {
	return (&Error{
		Code:    CodeInsufficientHistory,
		Message: reason,
		NodeID:  nodeID,
	}).WithDetail("series", series)
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// WithNode returns err tagged with nodeID when it is an *Error without one.
func WithNode(err error, nodeID string) error {
	var e *Error
	if errors.As(err, &e) && e.NodeID == "" {
		cp := *e
		cp.NodeID = nodeID
		return &cp
	}
	return err
}
