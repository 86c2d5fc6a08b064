package lif

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"slices"
	"time"
)

// Array is a materialized image: raw little-endian pixel data with its
// labeled shape, coordinates and metadata.
type Array struct {
	Name       string
	Dims       []string
	Shape      []int
	DType      DType
	Data       []byte
	Coords     map[string][]float64
	Attrs      map[string]any
	Timestamps []time.Time

	release func() error
	mapped  bool
}

// NewArray allocates a zeroed array, usable as an OutBuffer destination.
func NewArray(dtype DType, dims []string, shape []int) (*Array, error) {
	if len(dims) != len(shape) {
		return nil, fmt.Errorf("%w: %d dims for %d axes", ErrInvalidValue, len(dims), len(shape))
	}
	n, err := numElements(shape)
	if err != nil {
		return nil, err
	}
	if dtype.Size() == 0 {
		return nil, fmt.Errorf("%w: dtype %v", ErrInvalidValue, dtype)
	}
	return &Array{
		Dims:  slices.Clone(dims),
		Shape: slices.Clone(shape),
		DType: dtype,
		Data:  make([]byte, n*int64(dtype.Size())),
	}, nil
}

// Close releases a memory mapping. It is a no-op for heap arrays.
func (a *Array) Close() error {
	if a == nil || a.release == nil {
		return nil
	}
	release := a.release
	a.release = nil
	a.Data = nil
	return release()
}

// Mapped reports whether Data is backed by a memory mapping.
func (a *Array) Mapped() bool { return a.mapped }

// Size is the number of elements.
func (a *Array) Size() int {
	n, _ := numElements(a.Shape)
	return int(n)
}

func (a *Array) NBytes() int { return len(a.Data) }

// Axis returns the position of the named dimension, or -1.
func (a *Array) Axis(dim string) int {
	return slices.Index(a.Dims, dim)
}

func (a *Array) checkType(want ...DType) error {
	if !slices.Contains(want, a.DType) {
		return fmt.Errorf("%w: array is %v", ErrInvalidValue, a.DType)
	}
	return nil
}

func (a *Array) Uint8s() ([]uint8, error) {
	if err := a.checkType(Uint8); err != nil {
		return nil, err
	}
	return a.Data, nil
}

func (a *Array) Uint16s() ([]uint16, error) {
	if err := a.checkType(Uint16); err != nil {
		return nil, err
	}
	out := make([]uint16, len(a.Data)/2)
	for i := range out {
		out[i] = binary.LittleEndian.Uint16(a.Data[2*i:])
	}
	return out, nil
}

func (a *Array) Uint32s() ([]uint32, error) {
	if err := a.checkType(Uint32); err != nil {
		return nil, err
	}
	out := make([]uint32, len(a.Data)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(a.Data[4*i:])
	}
	return out, nil
}

func (a *Array) Uint64s() ([]uint64, error) {
	if err := a.checkType(Uint64); err != nil {
		return nil, err
	}
	out := make([]uint64, len(a.Data)/8)
	for i := range out {
		out[i] = binary.LittleEndian.Uint64(a.Data[8*i:])
	}
	return out, nil
}

// Float32s decodes float16 and float32 arrays.
func (a *Array) Float32s() ([]float32, error) {
	if err := a.checkType(Float16, Float32); err != nil {
		return nil, err
	}
	if a.DType == Float16 {
		out := make([]float32, len(a.Data)/2)
		for i := range out {
			out[i] = fp16ToF32(binary.LittleEndian.Uint16(a.Data[2*i:]))
		}
		return out, nil
	}
	out := make([]float32, len(a.Data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(a.Data[4*i:]))
	}
	return out, nil
}

func (a *Array) Float64s() ([]float64, error) {
	if err := a.checkType(Float64); err != nil {
		return nil, err
	}
	out := make([]float64, len(a.Data)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(a.Data[8*i:]))
	}
	return out, nil
}

// At returns element i converted to float64.
func (a *Array) At(i int) float64 {
	sz := a.DType.Size()
	b := a.Data[i*sz : (i+1)*sz]
	switch a.DType {
	case Uint8:
		return float64(b[0])
	case Uint16:
		return float64(binary.LittleEndian.Uint16(b))
	case Uint32:
		return float64(binary.LittleEndian.Uint32(b))
	case Uint64:
		return float64(binary.LittleEndian.Uint64(b))
	case Float16:
		return float64(fp16ToF32(binary.LittleEndian.Uint16(b)))
	case Float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	case Float64:
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	default:
		return math.NaN()
	}
}

// Sum adds every element as float64.
func (a *Array) Sum() float64 {
	var s float64
	for i, n := 0, a.Size(); i < n; i++ {
		s += a.At(i)
	}
	return s
}

// SumAxis sums over every axis except dim, returning one total per index
// of dim.
func (a *Array) SumAxis(dim string) ([]float64, error) {
	ax := a.Axis(dim)
	if ax < 0 {
		return nil, fmt.Errorf("%w: no axis %q", ErrInvalidValue, dim)
	}
	inner := 1
	for _, d := range a.Shape[ax+1:] {
		inner *= d
	}
	size := a.Shape[ax]
	out := make([]float64, size)
	for i, n := 0, a.Size(); i < n; i++ {
		out[(i/inner)%size] += a.At(i)
	}
	return out, nil
}

// fill copies the bound blocks into dst in order. Packed blocks are
// expanded so each carries an equal share of the elements.
func fill(dst []byte, blocks []*MemoryBlock, g geometry) error {
	if !g.packed() {
		var off int64
		for _, b := range blocks {
			sec, err := b.Section()
			if err != nil {
				return err
			}
			if _, err := io.ReadFull(sec, dst[off:off+b.Size]); err != nil {
				return fmt.Errorf("read block %q: %w", b.ID, err)
			}
			off += b.Size
		}
		return nil
	}

	itemsize := g.dtype.Size()
	per := g.elements() / int64(len(blocks))
	for i, b := range blocks {
		src, err := b.Read()
		if err != nil {
			return err
		}
		start := int64(i) * per * int64(itemsize)
		if err := unpackBits(dst[start:start+per*int64(itemsize)], src, per, g.bitDepth, itemsize); err != nil {
			return fmt.Errorf("unpack block %q: %w", b.ID, err)
		}
	}
	return nil
}
