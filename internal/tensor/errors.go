package tensor

import (
	"errors"
	"fmt"
)

// ErrIllegalAddressAccess is the sentinel behind every capacity violation.
// Kernels return it (wrapped in a CapacityError) instead of touching memory
// past the end of a buffer.
var ErrIllegalAddressAccess = errors.New("illegal address access")

// CapacityError reports a kernel request larger than a buffer's capacity.
type CapacityError struct {
	Op        string // Kernel that rejected the request
	Requested int    // Elements the caller asked to address
	Capacity  int    // Elements the buffer owns
}

// Error implements the error interface.
func (e *CapacityError) Error() string {
	return fmt.Sprintf("%s: requested %d elements but buffer holds %d: %v",
		e.Op, e.Requested, e.Capacity, ErrIllegalAddressAccess)
}

// Unwrap lets errors.Is match ErrIllegalAddressAccess.
func (e *CapacityError) Unwrap() error {
	return ErrIllegalAddressAccess
}

// CheckCapacity verifies that size fits in every buffer.
// Kernels call it before issuing any write so a failing call leaves all
// buffers untouched. Nil buffers are rejected with a capacity of zero.
func CheckCapacity(op string, size int, bufs ...*Buffer) error {
	if size < 0 {
		return &CapacityError{Op: op, Requested: size, Capacity: 0}
	}
	for _, b := range bufs {
		if b == nil {
			return &CapacityError{Op: op, Requested: size, Capacity: 0}
		}
		if size > b.Size() {
			return &CapacityError{Op: op, Requested: size, Capacity: b.Size()}
		}
	}
	return nil
}
