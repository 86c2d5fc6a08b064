package lif

import (
	"encoding/binary"
	"errors"
	"slices"
	"testing"

	"github.com/samcharles93/lifkit/internal/liftest"
)

func TestUnpackBits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		bits     int
		itemsize int
		values   []uint32
	}{
		{12, 2, []uint32{0, 4095, 1, 2048, 3000}},
		{10, 2, []uint32{1023, 0, 512, 7}},
		{4, 1, []uint32{15, 0, 9, 3, 1}},
		{1, 1, []uint32{1, 0, 1, 1, 0, 0, 1, 0, 1}},
		{24, 4, []uint32{0xffffff, 0x123456, 0}},
	}
	for _, tc := range tests {
		src := liftest.PackBits(tc.values, tc.bits)
		if int64(len(src)) != packedSize(int64(len(tc.values)), tc.bits) {
			t.Fatalf("%d bits: packed size %d", tc.bits, len(src))
		}
		dst := make([]byte, len(tc.values)*tc.itemsize)
		if err := unpackBits(dst, src, int64(len(tc.values)), tc.bits, tc.itemsize); err != nil {
			t.Fatalf("%d bits: %v", tc.bits, err)
		}
		got := make([]uint32, len(tc.values))
		for i := range got {
			switch tc.itemsize {
			case 1:
				got[i] = uint32(dst[i])
			case 2:
				got[i] = uint32(binary.LittleEndian.Uint16(dst[2*i:]))
			case 4:
				got[i] = binary.LittleEndian.Uint32(dst[4*i:])
			}
		}
		if !slices.Equal(got, tc.values) {
			t.Errorf("%d bits: got %v, want %v", tc.bits, got, tc.values)
		}
	}
}

func TestUnpackBitsErrors(t *testing.T) {
	t.Parallel()
	if err := unpackBits(make([]byte, 4), []byte{1}, 2, 12, 2); !errors.Is(err, ErrStructure) {
		t.Fatalf("short source: got %v", err)
	}
	if err := unpackBits(make([]byte, 2), make([]byte, 4), 2, 12, 2); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("short destination: got %v", err)
	}
	if err := unpackBits(make([]byte, 2), make([]byte, 4), 1, 12, 1); !errors.Is(err, ErrNotSupported) {
		t.Fatalf("narrow items: got %v", err)
	}
}

func TestReverseSamples(t *testing.T) {
	t.Parallel()
	data := []byte{1, 2, 3, 4, 5, 6}
	reverseSamples(data, 3, 1)
	if !slices.Equal(data, []byte{3, 2, 1, 6, 5, 4}) {
		t.Fatalf("3 samples: got %v", data)
	}
	wide := liftest.Uint16s(1, 2, 3, 4)
	reverseSamples(wide, 4, 2)
	if !slices.Equal(wide, liftest.Uint16s(3, 2, 1, 4)) {
		t.Fatalf("4 samples: got %v", wide)
	}
}
