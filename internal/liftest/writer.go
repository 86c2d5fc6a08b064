// Package liftest encodes small LIF, LOF and XLIF containers for tests.
package liftest

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"

	"golang.org/x/text/encoding/unicode"
)

const (
	signature   = 0x70
	separator   = 0x2A
	objectMagic = "LMS_Object_File"
)

// Writer streams container blocks to an io.Writer.
type Writer struct {
	w   io.Writer
	off int64

	// V1 writes memory block sizes as u32 instead of u64.
	V1 bool

	zeros []byte
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Offset is the number of bytes written so far.
func (w *Writer) Offset() int64 { return w.off }

func (w *Writer) write(p []byte) error {
	n, err := w.w.Write(p)
	w.off += int64(n)
	return err
}

func (w *Writer) header(descLen int) error {
	var b [9]byte
	binary.LittleEndian.PutUint32(b[0:], signature)
	binary.LittleEndian.PutUint32(b[4:], uint32(descLen))
	b[8] = separator
	return w.write(b[:])
}

func (w *Writer) u32(v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return w.write(b[:])
}

func (w *Writer) text(s string) error {
	u := EncodeUTF16(s)
	if err := w.u32(uint32(len(u) / 2)); err != nil {
		return err
	}
	return w.write(u)
}

// WriteXML writes a metadata block.
func (w *Writer) WriteXML(xml string) error {
	u := EncodeUTF16(xml)
	if err := w.header(4 + len(u)); err != nil {
		return err
	}
	return w.text(xml)
}

// WriteMemory writes a memory block holding data.
func (w *Writer) WriteMemory(id string, data []byte) error {
	if err := w.WriteMemoryHeader(id, int64(len(data))); err != nil {
		return err
	}
	return w.write(data)
}

// WriteMemoryHeader writes the header of a memory block whose size bytes
// of payload the caller writes next, for example with Skip.
func (w *Writer) WriteMemoryHeader(id string, size int64) error {
	width := 8
	if w.V1 {
		width = 4
	}
	if err := w.header(width + 1 + 4 + 2*len(id)); err != nil {
		return err
	}
	b := make([]byte, width+1)
	if w.V1 {
		binary.LittleEndian.PutUint32(b, uint32(size))
	} else {
		binary.LittleEndian.PutUint64(b, uint64(size))
	}
	b[width] = separator
	if err := w.write(b); err != nil {
		return err
	}
	return w.text(id)
}

// WriteObjectHeader writes the leading block of a LOF file. The payload
// follows at offset 62 when id is empty.
func (w *Writer) WriteObjectHeader(id string, size int64) error {
	if err := w.header(4 + 2*len(objectMagic) + 4 + 2 + 1 + 8 + 4 + 2*len(id)); err != nil {
		return err
	}
	if err := w.text(objectMagic); err != nil {
		return err
	}
	var b [15]byte
	binary.LittleEndian.PutUint32(b[0:], 2)
	binary.LittleEndian.PutUint16(b[4:], 0)
	b[6] = separator
	binary.LittleEndian.PutUint64(b[7:], uint64(size))
	if err := w.write(b[:]); err != nil {
		return err
	}
	return w.text(id)
}

// WriteRaw appends arbitrary bytes, for damaged containers.
func (w *Writer) WriteRaw(p []byte) error { return w.write(p) }

// Skip advances n bytes. Seekable targets get a hole; others get zeros.
func (w *Writer) Skip(n int64) error {
	if s, ok := w.w.(io.Seeker); ok {
		if _, err := s.Seek(n, io.SeekCurrent); err != nil {
			return err
		}
		w.off += n
		return nil
	}
	if w.zeros == nil {
		w.zeros = make([]byte, 64<<10)
	}
	for n > 0 {
		k := min(n, int64(len(w.zeros)))
		if err := w.write(w.zeros[:k]); err != nil {
			return err
		}
		n -= k
	}
	return nil
}

// EncodeUTF16 returns s as UTF-16LE without a byte order mark.
func EncodeUTF16(s string) []byte {
	b, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder().Bytes([]byte(s))
	if err != nil {
		panic(err)
	}
	return b
}

// Block is a memory block of a LIF fixture.
type Block struct {
	ID   string
	Data []byte
}

// LIF encodes a container: the metadata block followed by blocks.
func LIF(xml string, blocks ...Block) []byte {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteXML(xml); err != nil {
		panic(err)
	}
	for _, b := range blocks {
		if err := w.WriteMemory(b.ID, b.Data); err != nil {
			panic(err)
		}
	}
	return buf.Bytes()
}

// WriteFile writes data to path, failing the test on error.
func WriteFile(t testingT, path string, data []byte) string {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", path, err)
	}
	return path
}

// WriteLOF writes an object file whose payload is size bytes. A nil
// payload leaves a sparse zero region.
func WriteLOF(path, xml string, payload []byte, size int64) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	w := NewWriter(f)
	if err := w.WriteObjectHeader("", size); err != nil {
		return err
	}
	if payload != nil {
		if err := w.WriteRaw(payload); err != nil {
			return err
		}
	} else if err := w.Skip(size); err != nil {
		return err
	}
	return w.WriteXML(xml)
}

type testingT interface {
	Helper()
	Fatalf(format string, args ...any)
}
