package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/x448/float16"

	"github.com/liamt19/bullet/internal/tensor"
)

// ReaderOptions configures decoding.
type ReaderOptions struct {
	SkipChecksumValidation bool            // skip the SHA-256 check
	ValidationLevel        ValidationLevel // zero value is ValidationStrict
}

// File is a decoded .bnet file held in memory.
type File struct {
	header Header
	flags  uint32
	data   []byte
}

// ReadFile decodes the file at path.
func ReadFile(path string, opts ReaderOptions) (*File, error) {
	//nolint:gosec // G304: checkpoint paths come from the operator
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	file, err := Decode(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return file, nil
}

// Decode reads a complete .bnet stream from r.
func Decode(r io.Reader, opts ReaderOptions) (*File, error) {
	fixed := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(r, fixed); err != nil {
		return nil, fmt.Errorf("failed to read fixed header: %w", err)
	}
	if string(fixed[0:4]) != MagicBytes {
		return nil, ErrInvalidMagic
	}
	if version := binary.LittleEndian.Uint32(fixed[4:8]); version != FormatVersion {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, version, FormatVersion)
	}

	flags := binary.LittleEndian.Uint32(fixed[8:12])
	headerSize := binary.LittleEndian.Uint64(fixed[16:24])
	dataSize := binary.LittleEndian.Uint64(fixed[24:32])
	var stored [32]byte
	copy(stored[:], fixed[ChecksumOffset:ChecksumOffset+ChecksumSize])

	if headerSize > MaxHeaderSize {
		return nil, ErrHeaderTooLarge
	}
	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, fmt.Errorf("failed to read header JSON: %w", err)
	}
	var header Header
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	//nolint:gosec // G115: headerSize is bounded by MaxHeaderSize
	padding := alignedDataOffset(int64(headerSize)) - int64(FixedHeaderSize) - int64(headerSize)
	if _, err := io.CopyN(io.Discard, r, padding); err != nil {
		return nil, fmt.Errorf("failed to read padding: %w", err)
	}

	var buf bytes.Buffer
	n, err := io.CopyN(&buf, r, int64(dataSize)) //nolint:gosec // bounded by the stream length
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read tensor data: %w", err)
	}
	if uint64(n) != dataSize {
		return nil, fmt.Errorf("%w: data section has %d bytes, header says %d", ErrOutOfBounds, n, dataSize)
	}
	data := buf.Bytes()

	if !opts.SkipChecksumValidation {
		if err := verifyChecksum(data, stored); err != nil {
			return nil, err
		}
	}
	if err := ValidateHeader(&header, int64(len(data)), opts.ValidationLevel); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &File{header: header, flags: flags, data: data}, nil
}

// Header returns the file header.
func (f *File) Header() Header {
	return f.header
}

// Flags returns the format flags.
func (f *File) Flags() uint32 {
	return f.flags
}

// TensorNames lists tensors in file order.
func (f *File) TensorNames() []string {
	names := make([]string, len(f.header.Tensors))
	for i, meta := range f.header.Tensors {
		names[i] = meta.Name
	}
	return names
}

// TensorInfo returns the metadata of a tensor.
func (f *File) TensorInfo(name string) (*TensorMeta, error) {
	for i := range f.header.Tensors {
		if f.header.Tensors[i].Name == name {
			return &f.header.Tensors[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrTensorNotFound, name)
}

// Tensor decodes a tensor to float32 values.
func (f *File) Tensor(name string) ([]float32, tensor.Shape, error) {
	meta, err := f.TensorInfo(name)
	if err != nil {
		return nil, tensor.Shape{}, err
	}
	dt, ok := stringToDtype(meta.DType)
	if !ok || len(meta.Shape) != 2 {
		return nil, tensor.Shape{}, fmt.Errorf("%w: %s %s", ErrUnsupportedDType, name, meta.DType)
	}
	if meta.Offset < 0 || meta.Size < 0 || meta.Offset+meta.Size > int64(len(f.data)) {
		return nil, tensor.Shape{}, fmt.Errorf("%w: %s", ErrOutOfBounds, name)
	}

	shape := tensor.NewShape(meta.Shape[0], meta.Shape[1])
	raw := f.data[meta.Offset : meta.Offset+meta.Size]
	if len(raw) != shape.Size()*dt.Size() {
		return nil, tensor.Shape{}, fmt.Errorf("%w: %s", ErrOutOfBounds, name)
	}

	values := make([]float32, shape.Size())
	switch dt {
	case tensor.Float32:
		for i := range values {
			values[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
		}
	case tensor.Float16:
		for i := range values {
			values[i] = float16.Frombits(binary.LittleEndian.Uint16(raw[2*i:])).Float32()
		}
	}
	return values, shape, nil
}
