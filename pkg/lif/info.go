package lif

import (
	"time"

	"github.com/google/uuid"
)

// ImageInfo is a serializable summary of an image.
type ImageInfo struct {
	Index      int                  `json:"index"`
	Name       string               `json:"name"`
	Path       string               `json:"path"`
	GUID       string               `json:"guid,omitempty"`
	Synthetic  bool                 `json:"synthetic,omitempty"`
	Dims       []string             `json:"dims"`
	Sizes      map[string]int       `json:"sizes"`
	Shape      []int                `json:"shape"`
	DType      string               `json:"dtype"`
	BitDepth   int                  `json:"bit_depth"`
	Samples    int                  `json:"samples"`
	NBytes     int64                `json:"nbytes"`
	Coords     map[string][]float64 `json:"coords,omitempty"`
	Attrs      map[string]any       `json:"attrs,omitempty"`
	Timestamps []time.Time          `json:"timestamps,omitempty"`
	Error      string               `json:"error,omitempty"`
}

// Info summarizes the image. Coordinates, attributes and timestamps are
// included when full is true.
func (im *Image) Info(full bool) ImageInfo {
	info := ImageInfo{
		Index:     im.index,
		Name:      im.name,
		Path:      im.path,
		Synthetic: im.Synthetic(),
		Dims:      im.Dims(),
		Sizes:     im.Sizes(),
		Shape:     im.Shape(),
		BitDepth:  im.BitDepth(),
		Samples:   im.Samples(),
		NBytes:    im.NBytes(),
	}
	if im.geom.dtype != 0 {
		info.DType = im.geom.dtype.String()
	}
	if id := im.GUID(); id != uuid.Nil {
		info.GUID = id.String()
	}
	if im.err != nil {
		info.Error = im.err.Error()
	}
	if full {
		info.Coords = im.Coords()
		info.Attrs = im.Attrs()
		info.Timestamps = im.Timestamps()
	}
	return info
}
