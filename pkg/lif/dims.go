package lif

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"
)

// dimLabels maps DimID to axis labels.
var dimLabels = map[int]string{
	1:  "X",
	2:  "Y",
	3:  "Z",
	4:  "T",
	5:  "λ",
	6:  "Λ",
	7:  "N",
	9:  "L",
	10: "M",
}

func dimLabel(id int) (string, bool) {
	if l, ok := dimLabels[id]; ok {
		return l, true
	}
	return "Q" + strconv.Itoa(id), false
}

// DimensionDescription is one declared dimension of an image, as stored.
type DimensionDescription struct {
	DimID    int
	Label    string
	Size     int
	Origin   float64
	Length   float64
	Unit     string
	BytesInc int64
}

// ChannelDescription is one declared channel of an image, as stored.
type ChannelDescription struct {
	DataType   int
	ChannelTag int
	Resolution int
	BytesInc   int64
	Unit       string
	LUTName    string
}

// DimensionList is the stored geometry of one image node, innermost
// dimension first.
type DimensionList struct {
	Dimensions []DimensionDescription
	Channels   []ChannelDescription
}

func parseDimensionList(desc *etree.Element, log Logger) (DimensionList, error) {
	var dl DimensionList
	if desc == nil {
		return dl, fmt.Errorf("%w: missing ImageDescription", ErrStructure)
	}
	for _, el := range childElements(child(desc, "Channels"), "ChannelDescription") {
		dataType, _ := attrInt(el, "DataType")
		tag, _ := attrInt(el, "ChannelTag")
		res, ok := attrInt(el, "Resolution")
		if !ok {
			return dl, fmt.Errorf("%w: channel without Resolution", ErrStructure)
		}
		inc, _ := attrInt(el, "BytesInc")
		dl.Channels = append(dl.Channels, ChannelDescription{
			DataType:   int(dataType),
			ChannelTag: int(tag),
			Resolution: int(res),
			BytesInc:   inc,
			Unit:       attr(el, "Unit"),
			LUTName:    attr(el, "LUTName"),
		})
	}
	for _, el := range childElements(child(desc, "Dimensions"), "DimensionDescription") {
		id, ok := attrInt(el, "DimID")
		if !ok {
			return dl, fmt.Errorf("%w: dimension without DimID", ErrStructure)
		}
		size, ok := attrInt(el, "NumberOfElements")
		if !ok || size < 0 {
			return dl, fmt.Errorf("%w: dimension %d has no valid NumberOfElements", ErrStructure, id)
		}
		label, known := dimLabel(int(id))
		if !known {
			log.Debug("unknown dimension id", "dim_id", id, "label", label)
		}
		origin, _ := attrFloat(el, "Origin")
		length, _ := attrFloat(el, "Length")
		inc, _ := attrInt(el, "BytesInc")
		dl.Dimensions = append(dl.Dimensions, DimensionDescription{
			DimID:    int(id),
			Label:    label,
			Size:     int(size),
			Origin:   origin,
			Length:   length,
			Unit:     attr(el, "Unit"),
			BytesInc: inc,
		})
	}
	if len(dl.Channels) == 0 {
		return dl, fmt.Errorf("%w: image has no channels", ErrStructure)
	}
	return dl, nil
}

func childElements(el *etree.Element, tag string) []*etree.Element {
	if el == nil {
		return nil
	}
	return el.SelectElements(tag)
}

// Axis is one resolved axis of an image array.
type Axis struct {
	Label  string
	Size   int
	Unit   string
	Origin float64
	Length float64

	stride int64
	// values replace the linear coordinate function when set.
	values []float64
}

// HasCoords reports whether the axis carries coordinates. Channel and
// sample axes do not.
func (a Axis) HasCoords() bool {
	return a.Label != "C" && a.Label != "S"
}

// Coord returns the physical coordinate of index i.
func (a Axis) Coord(i int) float64 {
	if a.values != nil {
		return a.values[i]
	}
	return a.Origin + float64(i)*a.Length/float64(max(a.Size-1, 1))
}

func (a Axis) Coords() []float64 {
	if !a.HasCoords() {
		return nil
	}
	out := make([]float64, a.Size)
	for i := range out {
		out[i] = a.Coord(i)
	}
	return out
}

// geometry is the unsqueezed resolved layout of an image.
type geometry struct {
	axes     []Axis
	dtype    DType
	bitDepth int
	samples  int
	// bitPacked is set once the bound payload turns out to be a packed
	// bit stream.
	bitPacked bool
}

func (g geometry) elements() int64 {
	n, err := numElements(axisSizes(g.axes))
	if err != nil {
		return 0
	}
	return n
}

func (g geometry) unpackedBytes() int64 { return g.elements() * int64(g.dtype.Size()) }

// packable reports whether the bit depth leaves room in each element, so
// the payload may be stored as a packed bit stream.
func (g geometry) packable() bool {
	return g.bitDepth%8 != 0 && g.bitDepth < g.dtype.Size()*8
}

func (g geometry) packed() bool { return g.bitPacked }

// layout decides how a payload of total bytes is stored. Whole elements
// win; a packed stream is accepted only when the bit depth allows it and
// the size matches exactly.
func (g geometry) layout(total int64) (packed, ok bool) {
	if total == g.unpackedBytes() {
		return false, true
	}
	if g.packable() && total == packedSize(g.elements(), g.bitDepth) {
		return true, true
	}
	return false, false
}

func axisSizes(axes []Axis) []int {
	out := make([]int, len(axes))
	for i, a := range axes {
		out[i] = a.Size
	}
	return out
}

func axisLabels(axes []Axis) []string {
	out := make([]string, len(axes))
	for i, a := range axes {
		out[i] = a.Label
	}
	return out
}

// resolveGeometry turns a stored dimension list into ordered axes,
// slowest first.
func resolveGeometry(dl DimensionList) (geometry, error) {
	if len(dl.Channels) == 0 {
		return geometry{}, fmt.Errorf("%w: image has no channels", ErrStructure)
	}
	ch := dl.Channels[0]
	dtype, err := channelDType(ch.DataType, ch.Resolution)
	if err != nil {
		return geometry{}, err
	}
	g := geometry{dtype: dtype, bitDepth: ch.Resolution, samples: 1}
	itemsize := int64(dtype.Size())

	nch := len(dl.Channels)
	if isRGB(dl.Channels, itemsize) {
		g.samples = 3
		nch /= 3
	}

	for i := len(dl.Dimensions) - 1; i >= 0; i-- {
		d := dl.Dimensions[i]
		g.axes = append(g.axes, Axis{
			Label:  d.Label,
			Size:   d.Size,
			Unit:   d.Unit,
			Origin: d.Origin,
			Length: d.Length,
			stride: d.BytesInc,
		})
	}

	if nch > 1 {
		stride := dl.Channels[g.samples].BytesInc - dl.Channels[0].BytesInc
		c := Axis{Label: "C", Size: nch, stride: stride}
		// Insert C outside every axis that steps faster through memory.
		k := len(g.axes)
		for k > 0 && g.axes[k-1].stride < stride {
			k--
		}
		g.axes = append(g.axes, Axis{})
		copy(g.axes[k+1:], g.axes[k:])
		g.axes[k] = c
	}
	if g.samples > 1 {
		g.axes = append(g.axes, Axis{Label: "S", Size: g.samples, stride: itemsize})
	}
	return g, nil
}

// isRGB detects interleaved sample channels: tagged, a multiple of three
// and each channel one item after the previous within a triple.
func isRGB(channels []ChannelDescription, itemsize int64) bool {
	if len(channels) == 0 || len(channels)%3 != 0 {
		return false
	}
	for i, c := range channels {
		if c.ChannelTag == 0 {
			return false
		}
		if i%3 != 0 && c.BytesInc-channels[i-1].BytesInc != itemsize {
			return false
		}
	}
	return true
}

// squeezeAxes drops size-1 axes, keeping the two innermost axes other
// than S.
func squeezeAxes(axes []Axis) []Axis {
	keep := make([]bool, len(axes))
	kept := 0
	for i := len(axes) - 1; i >= 0 && kept < 2; i-- {
		if axes[i].Label == "S" {
			continue
		}
		keep[i] = true
		kept++
	}
	out := make([]Axis, 0, len(axes))
	for i, a := range axes {
		if a.Size != 1 || keep[i] {
			out = append(out, a)
		}
	}
	return out
}
