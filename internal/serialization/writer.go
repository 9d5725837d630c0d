package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/x448/float16"

	"github.com/liamt19/bullet/internal/tensor"
)

const writerVersion = "0.3.0"

// Entry is one tensor to be written.
type Entry struct {
	Name   string
	Shape  tensor.Shape
	DType  tensor.DataType
	Values []float32 // column-major, len == Shape.Size()
}

// Encode writes header and entries to w in .bnet format. The header's
// tensor table and format version are filled in here, as are the writer
// version and creation time when the caller left them empty.
func Encode(w io.Writer, header Header, entries []Entry) error {
	header.FormatVersion = FormatVersion
	if header.WriterVersion == "" {
		header.WriterVersion = writerVersion
	}
	if header.CreatedAt.IsZero() {
		header.CreatedAt = time.Now().UTC()
	}
	if header.Metadata == nil {
		header.Metadata = make(map[string]string)
	}

	var (
		data   []byte
		flags  uint32
		offset int64
	)
	header.Tensors = make([]TensorMeta, 0, len(entries))
	for _, e := range entries {
		if err := ValidateTensorName(e.Name); err != nil {
			return err
		}
		if len(e.Values) != e.Shape.Size() {
			return fmt.Errorf("tensor %s: %d values for shape %s", e.Name, len(e.Values), e.Shape)
		}

		start := len(data)
		var err error
		if data, err = appendValues(data, e.DType, e.Values); err != nil {
			return fmt.Errorf("tensor %s: %w", e.Name, err)
		}
		size := int64(len(data) - start)

		header.Tensors = append(header.Tensors, TensorMeta{
			Name:   e.Name,
			DType:  dtypeToString(e.DType),
			Shape:  []int{e.Shape.Rows, e.Shape.Cols},
			Offset: offset,
			Size:   size,
		})
		offset += size
		if e.DType == tensor.Float16 {
			flags |= FlagQuantised
		}
		if strings.HasSuffix(e.Name, MomentumSuffix) {
			flags |= FlagHasOptimizer
		}
	}

	if len(header.Metadata) > 0 {
		flags |= FlagHasMetadata
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}
	digest := checksum(data)

	fixed := make([]byte, FixedHeaderSize)
	copy(fixed[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixed[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(fixed[8:12], flags)
	binary.LittleEndian.PutUint64(fixed[16:24], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixed[24:32], uint64(len(data)))
	copy(fixed[ChecksumOffset:ChecksumOffset+ChecksumSize], digest[:])

	if _, err := w.Write(fixed); err != nil {
		return fmt.Errorf("failed to write fixed header: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header JSON: %w", err)
	}

	pos := int64(FixedHeaderSize) + int64(len(headerJSON))
	if padding := alignedDataOffset(int64(len(headerJSON))) - pos; padding > 0 {
		if _, err := w.Write(make([]byte, padding)); err != nil {
			return fmt.Errorf("failed to write padding: %w", err)
		}
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write tensor data: %w", err)
	}
	return nil
}

// WriteFile encodes to a temporary file next to path and renames it into
// place, so a crash never leaves a truncated checkpoint behind.
func WriteFile(path string, header Header, entries []Entry) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := Encode(tmp, header, entries); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}

func appendValues(dst []byte, dt tensor.DataType, values []float32) ([]byte, error) {
	switch dt {
	case tensor.Float32:
		for _, v := range values {
			dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
		}
	case tensor.Float16:
		for _, v := range values {
			dst = binary.LittleEndian.AppendUint16(dst, float16.Fromfloat32(v).Bits())
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDType, dt)
	}
	return dst, nil
}
