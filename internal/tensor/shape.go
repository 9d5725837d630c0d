package tensor

import "fmt"

// Shape is the (rows, cols) extent of a 2-D tensor.
// Column vectors have Cols == 1.
type Shape struct {
	Rows int
	Cols int
}

// NewShape returns a Shape with the given dimensions.
func NewShape(rows, cols int) Shape {
	return Shape{Rows: rows, Cols: cols}
}

// Vector returns the shape of a column vector with n rows.
func Vector(n int) Shape {
	return Shape{Rows: n, Cols: 1}
}

// Size returns the number of elements (rows * cols).
func (s Shape) Size() int {
	return s.Rows * s.Cols
}

// Transpose returns the shape with rows and cols swapped.
func (s Shape) Transpose() Shape {
	return Shape{Rows: s.Cols, Cols: s.Rows}
}

// Mul returns the shape of the matrix product s × rhs.
func (s Shape) Mul(rhs Shape) (Shape, error) {
	if s.Cols != rhs.Rows {
		return Shape{}, fmt.Errorf("cannot multiply %s by %s", s, rhs)
	}
	return Shape{Rows: s.Rows, Cols: rhs.Cols}, nil
}

// IsVector reports whether the shape is a column vector.
func (s Shape) IsVector() bool {
	return s.Cols == 1
}

// Validate checks that both dimensions are positive.
func (s Shape) Validate() error {
	if s.Rows <= 0 || s.Cols <= 0 {
		return fmt.Errorf("invalid shape %s (dimensions must be > 0)", s)
	}
	return nil
}

// String renders the shape as RxC.
func (s Shape) String() string {
	return fmt.Sprintf("%dx%d", s.Rows, s.Cols)
}
