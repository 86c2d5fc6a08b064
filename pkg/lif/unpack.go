package lif

import (
	"encoding/binary"
	"fmt"
)

// packedSize is the number of bytes holding n values of the given bit
// depth as one continuous bit stream.
func packedSize(n int64, bits int) int64 {
	return (n*int64(bits) + 7) / 8
}

// unpackBits expands n values stored least significant bit first into
// little-endian elements of itemsize bytes.
func unpackBits(dst, src []byte, n int64, bits, itemsize int) error {
	if bits <= 0 || bits > 32 || bits > itemsize*8 {
		return fmt.Errorf("%w: unpack %d bits into %d byte items", ErrNotSupported, bits, itemsize)
	}
	if int64(len(dst)) < n*int64(itemsize) {
		return fmt.Errorf("%w: unpack destination too small", ErrInvalidValue)
	}
	if int64(len(src)) < packedSize(n, bits) {
		return fmt.Errorf("%w: packed data too short", ErrStructure)
	}

	mask := uint64(1)<<uint(bits) - 1
	var acc uint64
	var nacc uint
	si := 0
	for i := int64(0); i < n; i++ {
		for nacc < uint(bits) {
			acc |= uint64(src[si]) << nacc
			si++
			nacc += 8
		}
		v := acc & mask
		acc >>= uint(bits)
		nacc -= uint(bits)

		out := dst[i*int64(itemsize):]
		switch itemsize {
		case 1:
			out[0] = byte(v)
		case 2:
			binary.LittleEndian.PutUint16(out, uint16(v))
		case 4:
			binary.LittleEndian.PutUint32(out, uint32(v))
		default:
			binary.LittleEndian.PutUint64(out, v)
		}
	}
	return nil
}

// reverseSamples flips the innermost sample axis of interleaved pixels in
// place. Three samples swap BGR and RGB; four swap the first and third.
func reverseSamples(data []byte, samples, itemsize int) {
	if samples < 3 {
		return
	}
	px := samples * itemsize
	tmp := make([]byte, itemsize)
	for off := 0; off+px <= len(data); off += px {
		a := data[off : off+itemsize]
		b := data[off+2*itemsize : off+3*itemsize]
		copy(tmp, a)
		copy(a, b)
		copy(b, tmp)
	}
}
