package lif

import (
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Image describes one stored image and materializes its pixels.
type Image struct {
	file  *File
	node  *Node
	index int
	name  string
	path  string

	dims   DimensionList
	geom   geometry
	axes   []Axis
	stamps []time.Time
	attrs  map[string]any

	// members are the per-wavelength images of a synthetic composite.
	members []*Image
	blocks  []*MemoryBlock
	err     error
}

func newImage(f *File, n *Node, index int) *Image {
	im := &Image{
		file:  f,
		node:  n,
		index: index,
		name:  n.Name,
		path:  n.Path,
	}
	im.stamps = parseTimestamps(n.Element)
	im.attrs = imageAttrs(n, f.attrPath(n.Path))

	dl, err := parseDimensionList(child(n.Element, "Data", "Image", "ImageDescription"), f.log)
	if err == nil {
		im.dims = dl
		im.geom, err = resolveGeometry(dl)
	}
	if err != nil {
		im.err = fmt.Errorf("image %q: %w", n.Path, err)
		f.log.Warn("image geometry unresolved", "image", n.Path, "error", err)
		return im
	}
	applyTimestamps(im.geom.axes, im.stamps)
	im.axes = im.geom.axes
	if f.squeeze {
		im.axes = squeezeAxes(im.axes)
	}
	return im
}

// Index is the position of the image in its series.
func (im *Image) Index() int { return im.index }

func (im *Image) Name() string { return im.name }

func (im *Image) Path() string { return im.path }

// Node is the descriptor node of the image. For a synthetic composite it
// is the folder holding the members.
func (im *Image) Node() *Node { return im.node }

// Synthetic reports whether the image is a spectral composite assembled
// from sibling images.
func (im *Image) Synthetic() bool { return im.members != nil }

// Members returns the images folded into a synthetic composite.
func (im *Image) Members() []*Image { return slices.Clone(im.members) }

// Err returns the reason the geometry of the image could not be resolved.
func (im *Image) Err() error { return im.err }

// GUID parses the UniqueID attribute. It is uuid.Nil when absent.
func (im *Image) GUID() uuid.UUID {
	id, err := uuid.Parse(attr(im.node.Element, "UniqueID"))
	if err != nil || im.members != nil {
		return uuid.Nil
	}
	return id
}

// DimensionList returns the stored dimensions and channels.
func (im *Image) DimensionList() DimensionList { return im.dims }

func (im *Image) Axes() []Axis { return slices.Clone(im.axes) }

// Dims returns the axis labels, slowest first.
func (im *Image) Dims() []string { return axisLabels(im.axes) }

func (im *Image) Shape() []int { return axisSizes(im.axes) }

// Sizes maps axis labels to their lengths.
func (im *Image) Sizes() map[string]int {
	out := make(map[string]int, len(im.axes))
	for _, a := range im.axes {
		out[a.Label] = a.Size
	}
	return out
}

func (im *Image) NDim() int { return len(im.axes) }

func (im *Image) DType() DType { return im.geom.dtype }

func (im *Image) ItemSize() int { return im.geom.dtype.Size() }

// BitDepth is the significant bits per sample, which may be less than
// the item size.
func (im *Image) BitDepth() int { return im.geom.bitDepth }

// Samples is the number of interleaved samples per pixel, 3 for RGB.
func (im *Image) Samples() int { return im.geom.samples }

// Size is the number of elements.
func (im *Image) Size() int64 { return im.geom.elements() }

// NBytes is the size of the materialized array in bytes.
func (im *Image) NBytes() int64 { return im.Size() * int64(im.ItemSize()) }

// Coords maps every axis except C and S to its coordinates.
func (im *Image) Coords() map[string][]float64 { return coordsOf(im.axes) }

func (im *Image) Timestamps() []time.Time { return slices.Clone(im.stamps) }

// Datetime is the acquisition time, zero when unknown.
func (im *Image) Datetime() time.Time {
	return parseDatetime(im.node.Element, im.stamps)
}

func (im *Image) Attrs() map[string]any { return maps.Clone(im.attrs) }

func (im *Image) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "<Image %d %q", im.index, im.path)
	for _, a := range im.axes {
		fmt.Fprintf(&b, " %s:%d", a.Label, a.Size)
	}
	fmt.Fprintf(&b, " %v>", im.geom.dtype)
	return b.String()
}

// ReadArray materializes the image.
func (im *Image) ReadArray(opts ...ReadOption) (*Array, error) {
	if err := im.file.checkOpen(); err != nil {
		return nil, err
	}
	if im.err != nil {
		return nil, im.err
	}
	ro := buildReadOptions(opts)
	blocks, err := im.MemoryBlocks()
	if err != nil {
		return nil, err
	}

	out, direct, err := im.allocate(ro, blocks)
	if err != nil {
		return nil, err
	}
	if !direct {
		if err := fill(out.Data, blocks, im.geom); err != nil {
			if ro.out.kind != outBuffer {
				_ = out.Close()
			}
			return nil, err
		}
		if ro.rgb && im.geom.samples > 1 {
			reverseSamples(out.Data, im.geom.samples, im.ItemSize())
		}
	}

	out.Name = im.name
	out.Dims = im.Dims()
	out.Shape = im.Shape()
	out.DType = im.geom.dtype
	out.Coords = im.Coords()
	out.Attrs = im.Attrs()
	out.Timestamps = im.Timestamps()
	return out, nil
}

// directMapped reports whether the source region can back the array
// without copying.
func (im *Image) directMapped(ro readOptions, blocks []*MemoryBlock) bool {
	if ro.out.kind != outMemmap || ro.out.dir != "" || len(blocks) != 1 {
		return false
	}
	if im.geom.packed() || (ro.rgb && im.geom.samples > 1) {
		return false
	}
	return blocks[0].file.osf != nil && blocks[0].Size > 0
}

// allocate prepares the destination. direct is true when the array maps
// the container itself and needs no filling.
func (im *Image) allocate(ro readOptions, blocks []*MemoryBlock) (a *Array, direct bool, err error) {
	nbytes := im.NBytes()
	if ro.out.kind == outBuffer {
		buf := ro.out.buf
		if buf == nil {
			return nil, false, fmt.Errorf("%w: nil output buffer", ErrInvalidValue)
		}
		if buf.DType != im.geom.dtype || !slices.Equal(buf.Shape, im.Shape()) || int64(len(buf.Data)) != nbytes {
			return nil, false, fmt.Errorf("%w: output buffer is %v%v, image is %v%v",
				ErrInvalidValue, buf.DType, buf.Shape, im.geom.dtype, im.Shape())
		}
		return buf, false, nil
	}
	if im.directMapped(ro, blocks) {
		b := blocks[0]
		data, release, err := mapSource(b.file.osf, b.Offset, b.Size, b.file.mode == ModeReadWrite)
		if err == nil {
			return &Array{Data: data, release: release, mapped: true}, true, nil
		}
		im.file.log.Debug("direct mapping unavailable, copying", "image", im.path, "error", err)
	}
	data, release, err := ro.out.allocate(nbytes)
	if err != nil {
		return nil, false, err
	}
	return &Array{Data: data, release: release, mapped: ro.out.kind != outNew}, false, nil
}

// Frames would iterate the image plane by plane.
func (im *Image) Frames() (iter.Seq2[int, *Array], error) {
	return nil, fmt.Errorf("%w: frame iteration of %q", ErrNotSupported, im.path)
}
