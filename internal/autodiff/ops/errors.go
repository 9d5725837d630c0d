package ops

import (
	"errors"
	"fmt"
	"strings"

	"github.com/liamt19/bullet/internal/tensor"
)

// Structural errors. A ShapeError wraps exactly one of these.
var (
	ErrArity             = errors.New("invalid number of inputs")
	ErrShapeMismatch     = errors.New("inputs must have same shape")
	ErrNotVector         = errors.New("input must be a vector")
	ErrNotDivisible      = errors.New("input dimension not divisible")
	ErrSparseRequired    = errors.New("input must be sparse")
	ErrUnknownActivation = errors.New("unsupported activation")
)

// ShapeError reports a build-time validation failure of an operation.
type ShapeError struct {
	Op     string         // Operation name
	Shapes []tensor.Shape // Input shapes that were rejected
	Err    error          // One of the structural sentinels
	Detail string         // Human readable constraint
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	shapes := make([]string, len(e.Shapes))
	for i, s := range e.Shapes {
		shapes[i] = s.String()
	}
	return fmt.Sprintf("%s: %s (inputs [%s])", e.Op, e.Detail, strings.Join(shapes, ", "))
}

// Unwrap returns the structural sentinel.
func (e *ShapeError) Unwrap() error {
	return e.Err
}

func shapeError(op string, inputs []tensor.Shape, err error, format string, args ...any) *ShapeError {
	return &ShapeError{
		Op:     op,
		Shapes: append([]tensor.Shape(nil), inputs...),
		Err:    err,
		Detail: fmt.Sprintf(format, args...),
	}
}

// expectInputs checks the arity of an operation.
func expectInputs(op string, inputs []tensor.Shape, n int) error {
	if len(inputs) != n {
		return shapeError(op, inputs, ErrArity, "invalid number of inputs: expected %d, got %d", n, len(inputs))
	}
	return nil
}
