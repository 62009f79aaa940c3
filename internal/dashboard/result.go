package dashboard

import (
	"errors"
	"fmt"
)

// ErrInvalidInput marks a request the service refuses to run. Handlers map
// it to 400.
var ErrInvalidInput = errors.New("invalid input")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Result is what every read returns: the rows, or no rows and a message
// for the user when the backend failed.
type Result[T any] struct {
	Rows    []T    `json:"data"`
	Message string `json:"message,omitempty"`
}

// First returns the first row, if any.
func (r Result[T]) First() (T, bool) {
	if len(r.Rows) == 0 {
		var zero T
		return zero, false
	}
	return r.Rows[0], true
}

func ok[T any](rows []T) Result[T] {
	if rows == nil {
		rows = []T{}
	}
	return Result[T]{Rows: rows}
}

func failed[T any](msg string) Result[T] {
	return Result[T]{Rows: []T{}, Message: msg}
}
