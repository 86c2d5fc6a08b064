package lif

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/edsrzf/mmap-go"
)

type outputKind uint8

const (
	outNew outputKind = iota
	outBuffer
	outMemmap
	outFile
	outPath
)

// Output selects where ReadArray places pixel data.
type Output struct {
	kind outputKind
	buf  *Array
	dir  string
	file *os.File
	path string
}

// OutNew allocates a fresh in-memory buffer. It is the default.
func OutNew() Output { return Output{kind: outNew} }

// OutBuffer fills a caller array whose shape and dtype must match the
// image exactly.
func OutBuffer(a *Array) Output { return Output{kind: outBuffer, buf: a} }

// OutMemmap returns a memory-mapped array. A single contiguous block is
// mapped straight from the container; anything else goes through a
// temporary file that is removed when the array is closed.
func OutMemmap() Output { return Output{kind: outMemmap} }

// OutMemmapDir is OutMemmap with the temporary file created in dir.
func OutMemmapDir(dir string) Output { return Output{kind: outMemmap, dir: dir} }

// OutFile maps an open read-write file sized to the image.
func OutFile(f *os.File) Output { return Output{kind: outFile, file: f} }

// OutPath creates or truncates the file at path and maps it.
func OutPath(path string) Output { return Output{kind: outPath, path: path} }

// ParseOutput accepts "new", "memmap", "memmap:<dir>" or a file path.
func ParseOutput(s string) (Output, error) {
	switch {
	case s == "" || s == "new":
		return OutNew(), nil
	case s == "memmap":
		return OutMemmap(), nil
	case strings.HasPrefix(s, "memmap:"):
		dir := strings.TrimPrefix(s, "memmap:")
		if dir == "" {
			return Output{}, fmt.Errorf("%w: empty memmap directory", ErrInvalidValue)
		}
		return OutMemmapDir(dir), nil
	default:
		return OutPath(s), nil
	}
}

func (o Output) String() string {
	switch o.kind {
	case outNew:
		return "new"
	case outBuffer:
		return "buffer"
	case outMemmap:
		if o.dir != "" {
			return "memmap:" + o.dir
		}
		return "memmap"
	case outFile:
		return "file:" + o.file.Name()
	case outPath:
		return o.path
	default:
		return "unknown"
	}
}

// Persistent reports whether the array outlives Close in a file the
// caller named.
func (o Output) Persistent() bool { return o.kind == outFile || o.kind == outPath }

// allocate returns a writable destination of nbytes and its release
// function.
func (o Output) allocate(nbytes int64) ([]byte, func() error, error) {
	switch o.kind {
	case outNew:
		return make([]byte, nbytes), nil, nil
	case outMemmap:
		f, err := os.CreateTemp(o.dir, "lifkit-*.raw")
		if err != nil {
			return nil, nil, err
		}
		data, unmap, err := mapFile(f, nbytes)
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
			return nil, nil, err
		}
		release := func() error {
			err := unmap()
			err = errors.Join(err, f.Close())
			return errors.Join(err, os.Remove(f.Name()))
		}
		return data, release, nil
	case outFile:
		if o.file == nil {
			return nil, nil, fmt.Errorf("%w: nil output file", ErrInvalidValue)
		}
		return mapFile(o.file, nbytes)
	case outPath:
		f, err := os.OpenFile(o.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			return nil, nil, err
		}
		data, unmap, err := mapFile(f, nbytes)
		if err != nil {
			_ = f.Close()
			return nil, nil, err
		}
		release := func() error {
			return errors.Join(unmap(), f.Close())
		}
		return data, release, nil
	default:
		return nil, nil, fmt.Errorf("%w: output %v", ErrInvalidValue, o)
	}
}

// mapFile sizes f to nbytes and maps it read-write.
func mapFile(f *os.File, nbytes int64) ([]byte, func() error, error) {
	if err := f.Truncate(nbytes); err != nil {
		return nil, nil, fmt.Errorf("size output file: %w", err)
	}
	if nbytes == 0 {
		return []byte{}, func() error { return nil }, nil
	}
	m, err := mmap.MapRegion(f, int(nbytes), mmap.RDWR, 0, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("map output file: %w", err)
	}
	unmap := func() error {
		return errors.Join(m.Flush(), m.Unmap())
	}
	return m, unmap, nil
}
