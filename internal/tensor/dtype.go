// Package tensor provides the shapes, device buffers, tensors and the execution
// context contract used by the autograd graph.
package tensor

// DataType represents the element encoding of persisted buffers.
// Device buffers always hold float32; Float16 exists for quantised export.
type DataType int

// Supported data types.
const (
	Float32 DataType = iota
	Float16
)

// Size returns the byte size of the data type.
func (dt DataType) Size() int {
	switch dt {
	case Float32:
		return 4
	case Float16:
		return 2
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float16:
		return "float16"
	default:
		return "unknown"
	}
}
