// Package lif reads Leica Image File containers (LIF), single-image object
// files (LOF) and the XML reference files (XLIF, XLEF, XLCF) pointing at
// them.
package lif

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// File is an open container.
type File struct {
	filename  string
	name      string
	lof       bool
	reference bool

	r    io.ReaderAt
	size int64
	osf  *os.File

	mode    Mode
	squeeze bool
	log     Logger

	dir        *directory
	blocks     map[string]*MemoryBlock
	header     string
	tree       *Tree
	series     *Series
	companions map[string]*File
	closed     bool
}

var referenceExts = []string{".xlif", ".xlef", ".xlcf"}

func isReferenceName(path string) bool {
	return slices.Contains(referenceExts, strings.ToLower(filepath.Ext(path)))
}

// Open opens the container at path. Options are validated before the file
// is touched.
func Open(path string, opts ...Option) (*File, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	if isReferenceName(path) {
		return openReference(path, o)
	}

	flag := os.O_RDONLY
	if o.mode == ModeReadWrite {
		flag = os.O_RDWR
	}
	osf, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, err
	}
	cleanup := func(err error) (*File, error) {
		_ = osf.Close()
		return nil, err
	}
	st, err := osf.Stat()
	if err != nil {
		return cleanup(err)
	}
	if st.IsDir() {
		return cleanup(fmt.Errorf("%w: %s is a directory", ErrFormat, path))
	}
	f, err := newFile(osf, st.Size(), path, o)
	if err != nil {
		return cleanup(fmt.Errorf("open %s: %w", path, err))
	}
	f.osf = osf
	return f, nil
}

// OpenReader reads a container from r. The caller keeps ownership of r;
// zero-copy memory maps are not available.
func OpenReader(r io.ReaderAt, size int64, opts ...Option) (*File, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	return newFile(r, size, "", o)
}

func newFile(r io.ReaderAt, size int64, filename string, o *options) (*File, error) {
	dir, err := scanBlocks(r, size, o.log)
	if err != nil {
		return nil, err
	}
	f := &File{
		filename:   filename,
		r:          r,
		size:       size,
		mode:       o.mode,
		squeeze:    o.squeeze,
		log:        o.log,
		dir:        dir,
		companions: map[string]*File{},
	}
	memory := dir.memoryEntries()
	f.lof = dir.object || (len(dir.metadata) == 0 && len(memory) == 1)

	if meta, ok := dir.latestMetadata(); ok {
		buf := make([]byte, meta.Size)
		if _, err := r.ReadAt(buf, meta.Offset); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read metadata: %w", err)
		}
		text, err := decodeUTF16(buf)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFormat, err)
		}
		f.header = text
	}
	f.loadTree(f.header)

	dir.nameAnonymous(firstMemoryID(f.tree))
	f.blocks = make(map[string]*MemoryBlock, len(memory))
	for id, i := range dir.memory {
		e := dir.entries[i]
		f.blocks[id] = &MemoryBlock{ID: id, Offset: e.Offset, Size: e.Size, file: f}
	}
	f.series = newSeries(f)
	return f, nil
}

func openReference(path string, o *options) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text, err := decodeText(raw)
	if err != nil || !strings.HasPrefix(strings.TrimSpace(text), "<") {
		return nil, fmt.Errorf("open %s: %w: not an XML reference file", path, ErrFormat)
	}
	f := &File{
		filename:   path,
		reference:  true,
		mode:       o.mode,
		squeeze:    o.squeeze,
		log:        o.log,
		dir:        &directory{memory: map[string]int{}},
		blocks:     map[string]*MemoryBlock{},
		companions: map[string]*File{},
		header:     text,
	}
	f.loadTree(text)
	f.series = newSeries(f)
	return f, nil
}

// loadTree parses the metadata text. A defective or missing description
// leaves an empty tree so raw blocks stay readable.
func (f *File) loadTree(text string) {
	f.tree = &Tree{}
	if text != "" {
		tree, err := parseTree(text, f.filename, f.log)
		if err == nil {
			f.tree = tree
		} else {
			f.log.Warn(errNoImageElement.Error(), "file", f.filename, "error", err)
		}
	} else if !f.lof {
		f.log.Warn(errNoImageElement.Error(), "file", f.filename)
	}
	if root := f.tree.Root(); root != nil && root.Name != "" {
		f.name = root.Name
	} else {
		base := filepath.Base(f.filename)
		f.name = strings.TrimSuffix(base, filepath.Ext(base))
	}
}

func firstMemoryID(t *Tree) string {
	for i := range t.Len() {
		if id := attr(child(t.nodes[i].Element, "Memory"), "MemoryBlockID"); id != "" {
			return id
		}
	}
	return ""
}

// Close releases the file and every companion opened through it. Arrays
// already materialized stay valid.
func (f *File) Close() error {
	if f == nil || f.closed {
		return nil
	}
	f.closed = true
	var errs []error
	for _, c := range f.companions {
		errs = append(errs, c.Close())
	}
	if f.osf != nil {
		errs = append(errs, f.osf.Close())
		f.osf = nil
	}
	f.companions = nil
	return errors.Join(errs...)
}

func (f *File) checkOpen() error {
	if f == nil || f.closed {
		return ErrClosed
	}
	return nil
}

func (f *File) Filename() string { return f.filename }

// Name is the name of the root element, else the file name without
// extension.
func (f *File) Name() string { return f.name }

// Version is the metadata format version, 0 when the description could
// not be read.
func (f *File) Version() int { return f.tree.Version() }

// IsLOF reports whether the file is a single-image object file.
func (f *File) IsLOF() bool { return f.lof }

// IsReference reports whether the file is an XML reference file whose
// pixels live in companion files.
func (f *File) IsReference() bool { return f.reference }

// Datetime is the acquisition time of the first image that records one.
func (f *File) Datetime() time.Time {
	for _, im := range f.series.Images() {
		if t := im.Datetime(); !t.IsZero() {
			return t
		}
	}
	return time.Time{}
}

// Blocks returns the block directory in file order.
func (f *File) Blocks() []BlockEntry { return slices.Clone(f.dir.entries) }

// MemoryBlock returns the memory block with the given id.
func (f *File) MemoryBlock(id string) (*MemoryBlock, error) {
	if err := f.checkOpen(); err != nil {
		return nil, err
	}
	b, ok := f.memoryBlock(id)
	if !ok {
		return nil, fmt.Errorf("%w: memory block %q", ErrNotFound, id)
	}
	return b, nil
}

func (f *File) memoryBlock(id string) (*MemoryBlock, bool) {
	b, ok := f.blocks[id]
	return b, ok
}

// MemoryBlocks returns every memory block in file order.
func (f *File) MemoryBlocks() []*MemoryBlock {
	out := make([]*MemoryBlock, 0, len(f.blocks))
	for _, i := range f.dir.memoryEntries() {
		if b, ok := f.blocks[f.dir.entries[i].ID]; ok && b.Offset == f.dir.entries[i].Offset {
			out = append(out, b)
		}
	}
	return out
}

// XMLHeader is the decoded text of the authoritative metadata block.
func (f *File) XMLHeader() string { return f.header }

func (f *File) Tree() *Tree { return f.tree }

func (f *File) Series() *Series { return f.series }

func (f *File) String() string {
	kind := "LIF"
	switch {
	case f.lof:
		kind = "LOF"
	case f.reference:
		kind = "XLIF"
	}
	return fmt.Sprintf("<%s %q v%d, %d images>", kind, f.name, f.Version(), f.series.Len())
}

// attrPath is the path an image reports in its attributes. Images of a
// LIF are prefixed with the container name.
func (f *File) attrPath(path string) string {
	if f.lof || f.reference {
		return path
	}
	return f.name + "/" + path
}
