package lif

import (
	"cmp"
	"regexp"
	"slices"
	"strconv"
)

var wavelengthSuffix = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*nm$`)

// wavelength returns the single wavelength an image was acquired at, in
// nm, and the spectral axis label it declares. A "_<w>nm" name suffix
// wins over the origin of a size-1 Λ or λ axis.
func wavelength(im *Image) (w float64, label string, ok bool) {
	label = "Λ"
	for _, a := range im.geom.axes {
		if a.Label != "Λ" && a.Label != "λ" {
			continue
		}
		if a.Size != 1 {
			return 0, "", false
		}
		label = a.Label
		w, ok = a.Origin, true
		if a.Unit == "m" {
			w *= 1e9
		}
	}
	if m := wavelengthSuffix.FindStringSubmatch(im.name); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return v, label, true
		}
	}
	return w, label, ok
}

func withoutSpectral(axes []Axis) []Axis {
	out := make([]Axis, 0, len(axes))
	for _, a := range axes {
		if a.Label != "Λ" && a.Label != "λ" {
			out = append(out, a)
		}
	}
	return out
}

func sameLayout(a, b []Axis) bool {
	return slices.Equal(axisLabels(a), axisLabels(b)) && slices.Equal(axisSizes(a), axisSizes(b))
}

type spectralMember struct {
	im *Image
	w  float64
}

// foldSpectral assembles the images of folders whose children were each
// acquired at one wavelength into composites with an outer spectral axis.
// Composites are numbered after the images they are built from.
func foldSpectral(f *File, images []*Image) []*Image {
	byParent := map[*Node][]*Image{}
	var parents []*Node
	for _, im := range images {
		p := im.node.Parent()
		if p == nil {
			continue
		}
		if _, seen := byParent[p]; !seen {
			parents = append(parents, p)
		}
		byParent[p] = append(byParent[p], im)
	}

	var out []*Image
	for _, p := range parents {
		synth := foldGroup(f, p, byParent[p], len(images)+len(out))
		if synth != nil {
			out = append(out, synth)
		}
	}
	return out
}

func foldGroup(f *File, parent *Node, group []*Image, index int) *Image {
	if len(group) < 2 {
		return nil
	}
	members := make([]spectralMember, 0, len(group))
	label := "Λ"
	var base []Axis
	first := group[0]
	for _, im := range group {
		if im.err != nil {
			return nil
		}
		w, l, ok := wavelength(im)
		if !ok {
			return nil
		}
		if l == "λ" {
			label = l
		}
		axes := withoutSpectral(im.geom.axes)
		if base == nil {
			base = axes
		} else if !sameLayout(base, axes) {
			return nil
		}
		if im.geom.dtype != first.geom.dtype || im.geom.bitDepth != first.geom.bitDepth || im.geom.samples != first.geom.samples {
			return nil
		}
		members = append(members, spectralMember{im: im, w: w})
	}
	slices.SortStableFunc(members, func(a, b spectralMember) int { return cmp.Compare(a.w, b.w) })

	spectral := Axis{Label: label, Size: len(members), Unit: "nm", values: make([]float64, len(members))}
	synth := &Image{
		file:    f,
		node:    parent,
		index:   index,
		name:    parent.Name,
		path:    parent.Path,
		members: make([]*Image, len(members)),
		stamps:  first.stamps,
	}
	names := make([]any, len(members))
	for i, m := range members {
		spectral.values[i] = m.w
		synth.members[i] = m.im
		names[i] = m.im.path
	}
	if synth.path == "" {
		synth.path = parent.Name
	}
	synth.geom = geometry{
		axes:     append([]Axis{spectral}, base...),
		dtype:    first.geom.dtype,
		bitDepth: first.geom.bitDepth,
		samples:  first.geom.samples,
	}
	synth.axes = synth.geom.axes
	if f.squeeze {
		synth.axes = squeezeAxes(synth.axes)
	}
	synth.attrs = map[string]any{
		"path":    f.attrPath(synth.path),
		"members": names,
	}
	f.log.Debug("folded spectral images", "path", synth.path, "members", len(members))
	return synth
}
