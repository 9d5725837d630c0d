package serialization

import (
	"time"

	"github.com/liamt19/bullet/internal/tensor"
)

// Format constants.
const (
	MagicBytes      = "BNET"
	FormatVersion   = 1
	HeaderAlignment = 64   // tensor data starts on a 64-byte boundary
	FixedHeaderSize = 64   // 0x40 bytes
	ChecksumSize    = 32   // SHA-256
	ChecksumOffset  = 0x20 // checksum position in the fixed header
)

// Data type names stored in TensorMeta.
const (
	DTypeFloat32 = "float32"
	DTypeFloat16 = "float16"
)

// Flags for the .bnet format.
const (
	FlagHasOptimizer uint32 = 1 << 1 // optimiser momentum/velocity included
	FlagHasMetadata  uint32 = 1 << 2 // custom metadata included
	FlagQuantised    uint32 = 1 << 3 // parameters stored as float16
)

// Optimiser state tensors are stored under the parameter name plus one of
// these suffixes.
const (
	MomentumSuffix = ".momentum"
	VelocitySuffix = ".velocity"
)

// Header is the JSON header of a .bnet file.
type Header struct {
	FormatVersion  int               `json:"format_version"`
	WriterVersion  string            `json:"writer_version"`
	NetID          string            `json:"net_id"`
	CreatedAt      time.Time         `json:"created_at"`
	Tensors        []TensorMeta      `json:"tensors"`
	Metadata       map[string]string `json:"metadata"`
	CheckpointMeta *CheckpointMeta   `json:"checkpoint,omitempty"`
}

// CheckpointMeta records where in training a checkpoint was taken.
type CheckpointMeta struct {
	Superbatch   int            `json:"superbatch"`
	Error        float64        `json:"error"`
	LearningRate float64        `json:"learning_rate"`
	Optimizer    string         `json:"optimizer"`
	TrainingMeta map[string]any `json:"training_meta,omitempty"`
}

// TensorMeta describes one tensor in the data section.
type TensorMeta struct {
	Name   string `json:"name"`
	DType  string `json:"dtype"`
	Shape  []int  `json:"shape"`  // rows, cols
	Offset int64  `json:"offset"` // bytes from the start of the data section
	Size   int64  `json:"size"`   // bytes
}

func dtypeToString(dt tensor.DataType) string {
	switch dt {
	case tensor.Float32:
		return DTypeFloat32
	case tensor.Float16:
		return DTypeFloat16
	default:
		return "unknown"
	}
}

func stringToDtype(s string) (tensor.DataType, bool) {
	switch s {
	case DTypeFloat32:
		return tensor.Float32, true
	case DTypeFloat16:
		return tensor.Float16, true
	default:
		return 0, false
	}
}

func alignedDataOffset(headerSize int64) int64 {
	pos := int64(FixedHeaderSize) + headerSize
	return pos + (HeaderAlignment-(pos%HeaderAlignment))%HeaderAlignment
}
