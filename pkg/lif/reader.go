package lif

import (
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/text/encoding/unicode"
)

// reader walks block headers through an io.ReaderAt. It keeps its own
// offset so no seek state is shared with block reads.
type reader struct {
	r    io.ReaderAt
	off  int64
	size int64
}

func newReader(r io.ReaderAt, size int64) *reader {
	return &reader{r: r, size: size}
}

func (r *reader) remaining() int64 {
	if r.off >= r.size {
		return 0
	}
	return r.size - r.off
}

func (r *reader) peek(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("invalid read length %d", n)
	}
	if r.off+int64(n) > r.size {
		return nil, io.ErrUnexpectedEOF
	}
	buf := make([]byte, n)
	if _, err := r.r.ReadAt(buf, r.off); err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return buf, nil
}

func (r *reader) readN(n int) ([]byte, error) {
	buf, err := r.peek(n)
	if err != nil {
		return nil, err
	}
	r.off += int64(n)
	return buf, nil
}

func (r *reader) skip(n int64) error {
	if n < 0 || n > r.remaining() {
		return io.ErrUnexpectedEOF
	}
	r.off += n
	return nil
}

func (r *reader) readU8() (uint8, error) {
	b, err := r.readN(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) readU16() (uint16, error) {
	b, err := r.readN(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *reader) readU32() (uint32, error) {
	b, err := r.readN(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) readU64() (uint64, error) {
	b, err := r.readN(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// readUTF16 reads n UTF-16LE code units.
func (r *reader) readUTF16(n uint32) (string, error) {
	if int64(n)*2 > r.remaining() {
		return "", io.ErrUnexpectedEOF
	}
	b, err := r.readN(int(n) * 2)
	if err != nil {
		return "", err
	}
	return decodeUTF16(b)
}

// readPayloadSize reads the memory block size field. Version 1 containers
// store it as u32, version 2 as u64; the width is found by probing for the
// separator that follows it.
func (r *reader) readPayloadSize() (int64, error) {
	for _, width := range [...]int{8, 4} {
		b, err := r.peek(width + 1)
		if err != nil || b[width] != blockSeparator {
			continue
		}
		var v uint64
		if width == 8 {
			v = binary.LittleEndian.Uint64(b)
		} else {
			v = uint64(binary.LittleEndian.Uint32(b))
		}
		if v > uint64(r.remaining()) {
			continue
		}
		r.off += int64(width) + 1
		return int64(v), nil
	}
	return 0, io.ErrUnexpectedEOF
}

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

func decodeUTF16(b []byte) (string, error) {
	out, err := utf16le.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("decode utf-16: %w", err)
	}
	return string(out), nil
}

// isXMLLead reports whether b starts with '<' as a UTF-16LE code unit.
func isXMLLead(b []byte) bool {
	return len(b) >= 2 && b[0] == '<' && b[1] == 0
}
