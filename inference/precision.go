package inference

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
	"github.com/x448/float16"
	"gorgonia.org/tensor"
)

// Precision represents the element precision of the network outputs.
type Precision string

// Precision constants are the supported output precisions.
const (
	PrecisionFP16 Precision = "FP16"
	PrecisionFP32 Precision = "FP32"
)

// ErrUnsupportedPrecision is returned for precisions without a conversion.
var ErrUnsupportedPrecision = errors.New("unsupported precision")

// ElementSize returns the size in bytes of one element.
func (p Precision) ElementSize() (int, error) {
	switch p {
	case PrecisionFP32, "":
		return 4, nil
	case PrecisionFP16:
		return 2, nil
	default:
		return 0, errors.Wrapf(ErrUnsupportedPrecision, "%q", p)
	}
}

// DenseFromFloat32 wraps a copy of data in a float32 tensor of the given shape.
func DenseFromFloat32(shape tensor.Shape, data []float32) (*tensor.Dense, error) {
	if len(data) != shape.TotalSize() {
		return nil, errors.Errorf("got %d values for shape %v", len(data), shape)
	}
	backing := append([]float32(nil), data...)
	return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(backing)), nil
}

// DenseFromFloat16 converts half precision bit patterns into a float32 tensor of the
// given shape.
func DenseFromFloat16(shape tensor.Shape, bits []uint16) (*tensor.Dense, error) {
	if len(bits) != shape.TotalSize() {
		return nil, errors.Errorf("got %d values for shape %v", len(bits), shape)
	}
	backing := make([]float32, len(bits))
	for i, b := range bits {
		backing[i] = float16.Frombits(b).Float32()
	}
	return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(backing)), nil
}

// DenseFromBytes decodes a little-endian buffer of precision p into a float32 tensor.
//
// Arguments:
//   - p: The element precision of raw.
//   - shape: The tensor shape.
//   - raw: The little-endian buffer.
//
// Returns:
//   - *tensor.Dense: The float32 tensor.
//   - error: ErrUnsupportedPrecision, or a size mismatch.
func DenseFromBytes(p Precision, shape tensor.Shape, raw []byte) (*tensor.Dense, error) {
	size, err := p.ElementSize()
	if err != nil {
		return nil, err
	}
	if len(raw) != shape.TotalSize()*size {
		return nil, errors.Errorf("got %d bytes for %v shape %v", len(raw), p, shape)
	}

	if size == 2 {
		bits := make([]uint16, len(raw)/2)
		for i := range bits {
			bits[i] = binary.LittleEndian.Uint16(raw[i*2:])
		}
		return DenseFromFloat16(shape, bits)
	}

	values := make([]float32, len(raw)/4)
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(values)), nil
}
