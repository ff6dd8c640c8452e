package types

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport marks RPC failures: unreachable node, timeout, exhausted retries.
	ErrTransport = errors.New("transport error")
	// ErrUnsupportedDirection is returned for a direction the chain does not implement.
	ErrUnsupportedDirection = errors.New("unsupported direction")
	// ErrInvalidDirection is returned when a direction string cannot be parsed.
	ErrInvalidDirection = errors.New("invalid direction")
	// ErrNoCheckpoint means no checkpoint covers the requested block yet.
	// It is reported as a not-ready result, never as a failure.
	ErrNoCheckpoint = errors.New("no covering checkpoint")
	// ErrAmbiguousSchema means more than one event schema yielded checkpoints
	// in the same window. It is a warning only.
	ErrAmbiguousSchema = errors.New("ambiguous checkpoint schema")
)

// TransportError wraps an RPC failure with the method that failed.
type TransportError struct {
	Method string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrTransport, e.Method, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// AdapterError tags an error with the chain and direction it came from.
type AdapterError struct {
	Chain     string
	Direction Direction
	Err       error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Chain, e.Direction, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// AmbiguousSchemaError lists the schemas that matched in one window.
type AmbiguousSchemaError struct {
	Chosen  string
	Matched []string
}

func (e *AmbiguousSchemaError) Error() string {
	return fmt.Sprintf("%s: using %s, also matched %v", ErrAmbiguousSchema, e.Chosen, e.Matched)
}

func (e *AmbiguousSchemaError) Unwrap() error {
	return ErrAmbiguousSchema
}
