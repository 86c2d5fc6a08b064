package lif

import (
	"fmt"
	"math"
)

// DType is the element type of an image.
type DType uint8

const (
	Uint8 DType = iota + 1
	Uint16
	Uint32
	Uint64
	Float16
	Float32
	Float64
)

func (d DType) Size() int {
	switch d {
	case Uint8:
		return 1
	case Uint16, Float16:
		return 2
	case Uint32, Float32:
		return 4
	case Uint64, Float64:
		return 8
	default:
		return 0
	}
}

func (d DType) String() string {
	switch d {
	case Uint8:
		return "uint8"
	case Uint16:
		return "uint16"
	case Uint32:
		return "uint32"
	case Uint64:
		return "uint64"
	case Float16:
		return "float16"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	default:
		return fmt.Sprintf("DType(%d)", uint8(d))
	}
}

// IsFloat reports whether d is a floating point type.
func (d DType) IsFloat() bool {
	return d == Float16 || d == Float32 || d == Float64
}

// ParseDType is the inverse of DType.String.
func ParseDType(s string) (DType, error) {
	for d := Uint8; d <= Float64; d++ {
		if d.String() == s {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown dtype %q", ErrInvalidValue, s)
}

// channelDType maps a channel's DataType and Resolution to an element
// type. DataType 1 marks floating point samples.
func channelDType(dataType, resolution int) (DType, error) {
	if resolution <= 0 {
		return 0, fmt.Errorf("%w: channel resolution %d", ErrInvalidValue, resolution)
	}
	if dataType == 1 {
		switch resolution {
		case 16:
			return Float16, nil
		case 32:
			return Float32, nil
		case 64:
			return Float64, nil
		default:
			return 0, fmt.Errorf("%w: float resolution %d", ErrNotSupported, resolution)
		}
	}
	switch {
	case resolution <= 8:
		return Uint8, nil
	case resolution <= 16:
		return Uint16, nil
	case resolution <= 32:
		return Uint32, nil
	case resolution <= 64:
		return Uint64, nil
	default:
		return 0, fmt.Errorf("%w: integer resolution %d", ErrNotSupported, resolution)
	}
}

func numElements(shape []int) (int64, error) {
	n := int64(1)
	for _, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("%w: negative dimension %d", ErrInvalidValue, d)
		}
		if d == 0 {
			return 0, nil
		}
		if n > math.MaxInt64/int64(d) {
			return 0, fmt.Errorf("%w: shape overflows", ErrInvalidValue)
		}
		n *= int64(d)
	}
	return n, nil
}

func fp16ToF32(h uint16) float32 {
	sign := uint32(h>>15) & 0x1
	exp := uint32(h>>10) & 0x1f
	mant := uint32(h & 0x3ff)

	var f uint32
	switch exp {
	case 0:
		if mant == 0 {
			f = sign << 31
		} else {
			exp = 127 - 15 + 1
			for mant&0x400 == 0 {
				mant <<= 1
				exp--
			}
			mant &= 0x3ff
			f = (sign << 31) | (exp << 23) | (mant << 13)
		}
	case 0x1f:
		f = (sign << 31) | 0x7f800000 | (mant << 13)
	default:
		exp = exp + (127 - 15)
		f = (sign << 31) | (exp << 23) | (mant << 13)
	}
	return math.Float32frombits(f)
}
