package lif

import (
	"errors"
	"fmt"
	"io"
)

const (
	blockSignature uint32 = 0x70
	blockSeparator byte   = 0x2A
	blockHeaderLen        = 9

	objectMagic = "LMS_Object_File"
)

// BlockKind distinguishes entries of the block directory.
type BlockKind uint8

const (
	// BlockMetadata holds UTF-16LE XML describing the container.
	BlockMetadata BlockKind = iota + 1
	// BlockMemory holds raw pixel data addressed by its id.
	BlockMemory
	// BlockObject is the pixel block of a single-image object file.
	BlockObject
)

func (k BlockKind) String() string {
	switch k {
	case BlockMetadata:
		return "metadata"
	case BlockMemory:
		return "memory"
	case BlockObject:
		return "object"
	default:
		return fmt.Sprintf("BlockKind(%d)", uint8(k))
	}
}

// BlockEntry locates one block of the container.
type BlockEntry struct {
	ID           string
	Kind         BlockKind
	HeaderOffset int64
	Offset       int64
	Size         int64
}

type directory struct {
	entries  []BlockEntry
	memory   map[string]int
	metadata []int

	object      bool
	objectMajor uint32
	objectMinor uint16
}

func (d *directory) latestMetadata() (BlockEntry, bool) {
	if len(d.metadata) == 0 {
		return BlockEntry{}, false
	}
	return d.entries[d.metadata[len(d.metadata)-1]], true
}

func (d *directory) memoryEntries() []int {
	var out []int
	for i, e := range d.entries {
		if e.Kind != BlockMetadata {
			out = append(out, i)
		}
	}
	return out
}

// scanBlocks walks the block chain from offset 0 to the end of the stream.
// Only a bad first header is an error; later damage ends the scan.
func scanBlocks(ra io.ReaderAt, size int64, log Logger) (*directory, error) {
	dir := &directory{memory: make(map[string]int)}
	r := newReader(ra, size)

	for r.remaining() > 0 {
		start := r.off
		entry, err := dir.scanBlock(r, start)
		if err == nil {
			dir.add(entry, log)
			continue
		}
		if start == 0 {
			if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, errBadHeader) {
				return nil, fmt.Errorf("%w: %v", ErrFormat, err)
			}
			return nil, err
		}
		switch {
		case errors.Is(err, errBadHeader):
			log.Warn("invalid block header, stopping scan", "offset", start, "error", err)
		case errors.Is(err, io.ErrUnexpectedEOF):
			log.Debug("truncated block dropped", "offset", start, "remaining", size-start)
		default:
			return nil, err
		}
		break
	}
	if len(dir.entries) == 0 {
		return nil, fmt.Errorf("%w: no blocks", ErrFormat)
	}
	return dir, nil
}

var errBadHeader = errors.New("bad block header")

func (d *directory) scanBlock(r *reader, start int64) (BlockEntry, error) {
	if r.remaining() < blockHeaderLen {
		return BlockEntry{}, io.ErrUnexpectedEOF
	}
	sig, err := r.readU32()
	if err != nil {
		return BlockEntry{}, err
	}
	if sig != blockSignature {
		return BlockEntry{}, fmt.Errorf("%w: signature 0x%x", errBadHeader, sig)
	}
	if _, err := r.readU32(); err != nil {
		return BlockEntry{}, err
	}
	sep, err := r.readU8()
	if err != nil {
		return BlockEntry{}, err
	}
	if sep != blockSeparator {
		return BlockEntry{}, fmt.Errorf("%w: separator 0x%x", errBadHeader, sep)
	}

	body := r.off
	n, err := r.readU32()
	if err != nil {
		return BlockEntry{}, err
	}
	lead, err := r.peek(2)
	if err != nil {
		return BlockEntry{}, err
	}
	if n > 0 && isXMLLead(lead) {
		if int64(n)*2 > r.remaining() {
			return BlockEntry{}, io.ErrUnexpectedEOF
		}
		entry := BlockEntry{Kind: BlockMetadata, HeaderOffset: start, Offset: r.off, Size: int64(n) * 2}
		return entry, r.skip(entry.Size)
	}
	if start == 0 && n == uint32(len(objectMagic)) {
		if name, err := r.readUTF16(n); err == nil && name == objectMagic {
			return d.scanObject(r, start)
		}
	}
	r.off = body
	return scanMemory(r, start)
}

func scanMemory(r *reader, start int64) (BlockEntry, error) {
	size, err := r.readPayloadSize()
	if err != nil {
		return BlockEntry{}, err
	}
	n, err := r.readU32()
	if err != nil {
		return BlockEntry{}, err
	}
	id, err := r.readUTF16(n)
	if err != nil {
		return BlockEntry{}, err
	}
	entry := BlockEntry{ID: id, Kind: BlockMemory, HeaderOffset: start, Offset: r.off, Size: size}
	return entry, r.skip(size)
}

func (d *directory) scanObject(r *reader, start int64) (BlockEntry, error) {
	major, err := r.readU32()
	if err != nil {
		return BlockEntry{}, err
	}
	minor, err := r.readU16()
	if err != nil {
		return BlockEntry{}, err
	}
	sep, err := r.readU8()
	if err != nil {
		return BlockEntry{}, err
	}
	if sep != blockSeparator {
		return BlockEntry{}, fmt.Errorf("%w: object separator 0x%x", errBadHeader, sep)
	}
	size, err := r.readU64()
	if err != nil {
		return BlockEntry{}, err
	}
	n, err := r.readU32()
	if err != nil {
		return BlockEntry{}, err
	}
	id, err := r.readUTF16(n)
	if err != nil {
		return BlockEntry{}, err
	}
	if size > uint64(r.remaining()) {
		return BlockEntry{}, io.ErrUnexpectedEOF
	}
	d.object = true
	d.objectMajor = major
	d.objectMinor = minor
	entry := BlockEntry{ID: id, Kind: BlockObject, HeaderOffset: start, Offset: r.off, Size: int64(size)}
	return entry, r.skip(entry.Size)
}

func (d *directory) add(e BlockEntry, log Logger) {
	d.entries = append(d.entries, e)
	idx := len(d.entries) - 1
	if e.Kind == BlockMetadata {
		d.metadata = append(d.metadata, idx)
		return
	}
	if e.ID == "" {
		return
	}
	if prev, ok := d.memory[e.ID]; ok {
		log.Debug("duplicate memory block id, keeping latest", "id", e.ID,
			"previous", d.entries[prev].Offset, "offset", e.Offset)
	}
	d.memory[e.ID] = idx
}

// nameAnonymous assigns ids to memory blocks stored without one. The first
// takes hint when it is free; the rest are numbered by directory position.
func (d *directory) nameAnonymous(hint string) {
	for i := range d.entries {
		e := &d.entries[i]
		if e.Kind == BlockMetadata || e.ID != "" {
			continue
		}
		id := hint
		hint = ""
		if _, taken := d.memory[id]; id == "" || taken {
			id = fmt.Sprintf("MemBlock_%d", i)
		}
		e.ID = id
		d.memory[id] = i
	}
}
