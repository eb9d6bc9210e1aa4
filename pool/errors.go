// File: pool/errors.go
// Author: momentics <momentics@gmail.com>

package pool

import (
	"errors"
	"fmt"
)

var (
	// ErrPoolClosed is returned by Acquire once Close has been called.
	ErrPoolClosed = errors.New("connection pool is closed")
	// ErrNilFuture is returned when a WithConnection body yields no future.
	ErrNilFuture = errors.New("connection body returned a nil future")
)

// PanicError carries a panic raised by a WithConnection body.
type PanicError struct {
	Value any
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in connection body: %v", e.Value)
}
