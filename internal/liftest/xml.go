package liftest

import (
	"fmt"
	"html"
	"strings"
)

// Dimension ids as stored in DimensionDescription.
const (
	DimX = 1
	DimY = 2
	DimZ = 3
	DimT = 4
	// DimEm is the emission wavelength axis (λ), DimEx excitation (Λ).
	DimEm = 5
	DimEx = 6
	DimN  = 7
	DimL  = 9
	DimM  = 10
)

// Dim is a declared dimension.
type Dim struct {
	ID     int
	Size   int
	Origin float64
	Length float64
	Unit   string
}

// Node is an element of a descriptor tree.
type Node interface {
	xml(b *strings.Builder)
}

// Folder is an element without image data.
type Folder struct {
	Name     string
	Children []Node
}

// Reference grafts another XML file into the tree.
type Reference struct {
	File string
}

// Image is an image element. Dims are innermost first; with more than one
// channel the C axis sits just outside the first ChannelAt dimensions.
type Image struct {
	Name       string
	GUID       string
	Dims       []Dim
	Channels   int
	ChannelAt  int
	RGB        bool
	Float      bool
	Resolution int
	BlockID    string
	// MemorySize overrides the Memory Size attribute.
	MemorySize int64

	// Companion references a LOF file holding the pixels.
	Companion      string
	CompanionBlock string

	// Timestamps are FILETIME values. LegacyStamps stores them as
	// TimeStamp elements instead of hex text.
	Timestamps   []uint64
	LegacyStamps bool
	StartTime    string

	Attachments []string
	SMD         string
	Children    []Node
}

func (im Image) channels() int {
	if im.Channels <= 0 {
		return 1
	}
	return im.Channels
}

func (im Image) samples() int {
	if im.RGB {
		return 3
	}
	return 1
}

func (im Image) resolution() int {
	if im.Resolution <= 0 {
		return 8
	}
	return im.Resolution
}

// ItemSize is the byte width of one element.
func (im Image) ItemSize() int {
	switch r := im.resolution(); {
	case r <= 8:
		return 1
	case r <= 16:
		return 2
	case r <= 32:
		return 4
	default:
		return 8
	}
}

// Elements is the number of stored values.
func (im Image) Elements() int64 {
	n := int64(im.channels() * im.samples())
	for _, d := range im.Dims {
		n *= int64(d.Size)
	}
	return n
}

// NBytes is the unpacked size of the image.
func (im Image) NBytes() int64 { return im.Elements() * int64(im.ItemSize()) }

// StoredBytes is the payload size, packed when the resolution is not a
// whole number of bytes.
func (im Image) StoredBytes() int64 {
	r := im.resolution()
	if r%8 != 0 && r < im.ItemSize()*8 {
		return (im.Elements()*int64(r) + 7) / 8
	}
	return im.NBytes()
}

func (im Image) channelAt() int {
	if im.ChannelAt > 0 {
		return min(im.ChannelAt, len(im.Dims))
	}
	return min(2, len(im.Dims))
}

func (im Image) xml(b *strings.Builder) {
	fmt.Fprintf(b, `<Element Name="%s"`, esc(im.Name))
	if im.GUID != "" {
		fmt.Fprintf(b, ` UniqueID="%s"`, esc(im.GUID))
	}
	b.WriteString(`><Data><Image><ImageDescription>`)
	if im.StartTime != "" {
		fmt.Fprintf(b, `<StartTime>%s</StartTime>`, esc(im.StartTime))
	}

	item := int64(im.ItemSize())
	stride := item * int64(im.samples())
	var cstride int64
	dimInc := make([]int64, len(im.Dims))
	for i, d := range im.Dims {
		if i == im.channelAt() {
			cstride = stride
			stride *= int64(im.channels())
		}
		dimInc[i] = stride
		stride *= int64(d.Size)
	}
	if im.channelAt() == len(im.Dims) {
		cstride = stride
	}

	dataType := 0
	if im.Float {
		dataType = 1
	}
	tag := 0
	if im.RGB {
		tag = 1
	}
	b.WriteString(`<Channels>`)
	for c := range im.channels() {
		for s := range im.samples() {
			inc := int64(c)*cstride + int64(s)*item
			fmt.Fprintf(b, `<ChannelDescription DataType="%d" ChannelTag="%d" Resolution="%d" BytesInc="%d" LUTName="%s" Unit=""/>`,
				dataType, tag+s, im.resolution(), inc, lut(c, s, im.RGB))
		}
	}
	b.WriteString(`</Channels><Dimensions>`)
	for i, d := range im.Dims {
		fmt.Fprintf(b, `<DimensionDescription DimID="%d" NumberOfElements="%d" Origin="%g" Length="%g" Unit="%s" BytesInc="%d"/>`,
			d.ID, d.Size, d.Origin, d.Length, esc(d.Unit), dimInc[i])
	}
	b.WriteString(`</Dimensions></ImageDescription>`)

	if len(im.Timestamps) > 0 {
		fmt.Fprintf(b, `<TimeStampList NumberOfTimeStamps="%d">`, len(im.Timestamps))
		for i, ts := range im.Timestamps {
			if im.LegacyStamps {
				fmt.Fprintf(b, `<TimeStamp HighInteger="%d" LowInteger="%d"/>`, ts>>32, uint32(ts))
				continue
			}
			if i > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(b, "%x", ts)
		}
		b.WriteString(`</TimeStampList>`)
	}
	for _, a := range im.Attachments {
		b.WriteString(a)
	}
	b.WriteString(`</Image>`)
	if im.SMD != "" {
		fmt.Fprintf(b, `<SingleMoleculeDetection>%s</SingleMoleculeDetection>`, im.SMD)
	}
	b.WriteString(`</Data>`)

	size := im.StoredBytes()
	if im.MemorySize != 0 {
		size = im.MemorySize
	}
	fmt.Fprintf(b, `<Memory Size="%d" MemoryBlockID="%s">`, size, esc(im.BlockID))
	if im.Companion != "" {
		fmt.Fprintf(b, `<Block File="%s" MemoryBlockID="%s"/>`, esc(im.Companion), esc(im.CompanionBlock))
	}
	b.WriteString(`</Memory>`)
	children(b, im.Children)
	b.WriteString(`</Element>`)
}

func (f Folder) xml(b *strings.Builder) {
	fmt.Fprintf(b, `<Element Name="%s"><Data/><Memory Size="0" MemoryBlockID=""/>`, esc(f.Name))
	children(b, f.Children)
	b.WriteString(`</Element>`)
}

func (r Reference) xml(b *strings.Builder) {
	fmt.Fprintf(b, `<Reference File="%s"/>`, esc(r.File))
}

func children(b *strings.Builder, nodes []Node) {
	b.WriteString(`<Children>`)
	for _, n := range nodes {
		n.xml(b)
	}
	b.WriteString(`</Children>`)
}

func lut(c, s int, rgb bool) string {
	if rgb {
		return [...]string{"Red", "Green", "Blue"}[s]
	}
	return [...]string{"Green", "Red", "Blue", "Gray"}[c%4]
}

func esc(s string) string { return html.EscapeString(s) }

// Header wraps root in an LMSDataContainerHeader of the given version.
func Header(version int, root Node) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<LMSDataContainerHeader Version="%d">`, version)
	root.xml(&b)
	b.WriteString(`</LMSDataContainerHeader>`)
	return b.String()
}

// ElementXML renders a bare element, as found in XLIF files.
func ElementXML(n Node) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?>`)
	n.xml(&b)
	return b.String()
}
