package liftest

import (
	"encoding/binary"
	"time"
)

// Pattern returns n deterministic, non-constant bytes.
func Pattern(n int64) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte((i*31 + 7) % 251)
	}
	return b
}

// Uint16s encodes values little-endian.
func Uint16s(values ...uint16) []byte {
	b := make([]byte, 2*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint16(b[2*i:], v)
	}
	return b
}

// PackBits stores values as a continuous bit stream, least significant
// bit first.
func PackBits(values []uint32, bits int) []byte {
	out := make([]byte, (len(values)*bits+7)/8)
	pos := 0
	for _, v := range values {
		for k := range bits {
			if v&(1<<k) != 0 {
				out[pos/8] |= 1 << (pos % 8)
			}
			pos++
		}
	}
	return out
}

// Filetime converts t to 100ns ticks since 1601-01-01.
func Filetime(t time.Time) uint64 {
	const unixOffset = 116444736000000000
	return uint64(t.UnixNano()/100) + unixOffset
}
