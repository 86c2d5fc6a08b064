package lif

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"
)

// resolveRef turns a File attribute into a path. Relative references are
// taken from the directory of source.
func resolveRef(source, ref string) string {
	p := filepath.FromSlash(strings.ReplaceAll(ref, `\`, "/"))
	if filepath.IsAbs(p) || source == "" {
		return p
	}
	return filepath.Join(filepath.Dir(source), p)
}

func (im *Image) bindCompanions(refs []*etree.Element) ([]*MemoryBlock, error) {
	var out []*MemoryBlock
	for _, ref := range refs {
		name := attr(ref, "File")
		if name == "" {
			continue
		}
		id := attr(ref, "MemoryBlockID")
		c, err := im.file.companion(resolveRef(im.node.Source, name))
		if err != nil {
			return nil, &StructureError{Image: im.path, BlockID: id, Msg: fmt.Sprintf("companion %s: %v", name, err)}
		}
		b, err := c.companionBlock(id)
		if err != nil {
			return nil, &StructureError{Image: im.path, BlockID: id, Msg: fmt.Sprintf("companion %s: %v", name, err)}
		}
		out = append(out, b)
	}
	if len(out) == 0 {
		return nil, &StructureError{Image: im.path, Msg: "memory references no companion file"}
	}
	return out, nil
}

// companion opens a referenced file once and keeps it until f closes.
func (f *File) companion(path string) (*File, error) {
	key, err := filepath.Abs(path)
	if err != nil {
		key = path
	}
	if c, ok := f.companions[key]; ok {
		return c, nil
	}
	c, err := Open(path, WithMode(f.mode), WithLogger(f.log), WithSqueeze(f.squeeze))
	if err != nil {
		return nil, err
	}
	f.companions[key] = c
	return c, nil
}

// companionBlock picks the block a reference points at: the named block,
// else the block of the companion's first image, else its only block.
func (f *File) companionBlock(id string) (*MemoryBlock, error) {
	if id != "" {
		if b, ok := f.memoryBlock(id); ok {
			return b, nil
		}
	}
	if f.series.Len() > 0 {
		if bs, err := f.series.images[0].MemoryBlocks(); err == nil && len(bs) == 1 {
			return bs[0], nil
		}
	}
	if bs := f.MemoryBlocks(); len(bs) == 1 {
		return bs[0], nil
	}
	return nil, fmt.Errorf("%w: no memory block %q", ErrStructure, id)
}
