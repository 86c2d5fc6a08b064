package lif

import (
	"fmt"
	"io"
	"strings"
)

// MemoryBlock is a pixel payload inside a container.
type MemoryBlock struct {
	ID     string
	Offset int64
	Size   int64

	file *File
}

func (b *MemoryBlock) String() string {
	return fmt.Sprintf("%s@%d+%d", b.ID, b.Offset, b.Size)
}

// Section returns a reader over the payload.
func (b *MemoryBlock) Section() (*io.SectionReader, error) {
	if err := b.file.checkOpen(); err != nil {
		return nil, err
	}
	return io.NewSectionReader(b.file.r, b.Offset, b.Size), nil
}

// Read returns the whole payload.
func (b *MemoryBlock) Read() ([]byte, error) {
	sec, err := b.Section()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, b.Size)
	if _, err := io.ReadFull(sec, buf); err != nil {
		return nil, fmt.Errorf("read block %q: %w", b.ID, err)
	}
	return buf, nil
}

// ReadAt reads from the payload at off, relative to its start.
func (b *MemoryBlock) ReadAt(p []byte, off int64) (int, error) {
	sec, err := b.Section()
	if err != nil {
		return 0, err
	}
	return sec.ReadAt(p, off)
}

// MemoryBlocks binds the image to the payloads holding its pixels, in
// storage order. The result is cached after the first success.
func (im *Image) MemoryBlocks() ([]*MemoryBlock, error) {
	if err := im.file.checkOpen(); err != nil {
		return nil, err
	}
	if im.blocks != nil {
		return im.blocks, nil
	}
	if im.err != nil {
		return nil, im.err
	}

	if im.members != nil {
		return im.bindMembers()
	}

	blocks, err := im.bind()
	if err != nil {
		return nil, err
	}
	var total int64
	ids := make([]string, len(blocks))
	for i, b := range blocks {
		total += b.Size
		ids[i] = b.ID
	}
	packed, ok := im.geom.layout(total)
	if !ok {
		return nil, &StructureError{
			Image:   im.path,
			BlockID: strings.Join(ids, ","),
			Msg:     fmt.Sprintf("memory holds %d bytes, geometry needs %d", total, im.geom.unpackedBytes()),
		}
	}
	if packed {
		im.file.log.Debug("packed pixel data", "image", im.path, "bits", im.geom.bitDepth)
	}
	im.geom.bitPacked = packed
	im.blocks = blocks
	return blocks, nil
}

// bindMembers concatenates the blocks of a folded image's members. They
// must agree on packing and add up to the composite's size.
func (im *Image) bindMembers() ([]*MemoryBlock, error) {
	var (
		blocks []*MemoryBlock
		ids    []string
		total  int64
	)
	packed := false
	for i, m := range im.members {
		bs, err := m.MemoryBlocks()
		if err != nil {
			return nil, err
		}
		if i == 0 {
			packed = m.geom.bitPacked
		} else if m.geom.bitPacked != packed {
			return nil, &StructureError{
				Image:   im.path,
				BlockID: blockIDs(bs),
				Msg:     fmt.Sprintf("member %q packing differs from %q", m.path, im.members[0].path),
			}
		}
		for _, b := range bs {
			total += b.Size
			ids = append(ids, b.ID)
		}
		blocks = append(blocks, bs...)
	}
	im.geom.bitPacked = packed
	want := im.geom.unpackedBytes()
	if packed {
		want = 0
		for _, m := range im.members {
			want += packedSize(m.geom.elements(), m.geom.bitDepth)
		}
	}
	if total != want {
		return nil, &StructureError{
			Image:   im.path,
			BlockID: strings.Join(ids, ","),
			Msg:     fmt.Sprintf("members hold %d bytes, geometry needs %d", total, want),
		}
	}
	im.blocks = blocks
	return blocks, nil
}

func blockIDs(bs []*MemoryBlock) string {
	ids := make([]string, len(bs))
	for i, b := range bs {
		ids[i] = b.ID
	}
	return strings.Join(ids, ",")
}

func (im *Image) bind() ([]*MemoryBlock, error) {
	mem := child(im.node.Element, "Memory")
	if mem == nil {
		return nil, &StructureError{Image: im.path, Msg: "no Memory element"}
	}
	if refs := mem.SelectElements("Block"); len(refs) > 0 {
		return im.bindCompanions(refs)
	}
	id := attr(mem, "MemoryBlockID")
	b, ok := im.file.memoryBlock(id)
	if !ok {
		return nil, &StructureError{Image: im.path, BlockID: id, Msg: "memory block not found"}
	}
	return []*MemoryBlock{b}, nil
}
