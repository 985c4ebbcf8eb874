package filter

import (
	"errors"
	"fmt"
)

// ErrFilterNotFound is returned when a filter name is not registered
var ErrFilterNotFound = errors.New("filter not found")

// CompilationError reports an expression that could not be turned into a
// filter. Err carries the expr diagnostic when there is one.
type CompilationError struct {
	Expression string
	Reason     string
	Err        error
}

func (e *CompilationError) Error() string {
	msg := fmt.Sprintf("cannot compile %q: %s", e.Expression, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CompilationError) Unwrap() error { return e.Err }

// EvaluationError reports a named filter whose run over a torrent list was
// cut short, usually by context cancellation.
type EvaluationError struct {
	FilterName string
	Torrents   int
	Reason     string
	Err        error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("filter %q over %d torrents: %s: %v", e.FilterName, e.Torrents, e.Reason, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }
