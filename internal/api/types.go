package api

import (
	"time"

	"github.com/samcharles93/lifkit/pkg/lif"
)

type ResponseError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type ErrorResponse struct {
	Error ResponseError `json:"error"`
}

type ContainerList struct {
	Object string   `json:"object"`
	Data   []string `json:"data"`
}

type ContainerSummary struct {
	Name      string     `json:"name"`
	Version   int        `json:"version"`
	LOF       bool       `json:"lof"`
	Reference bool       `json:"reference"`
	Datetime  *time.Time `json:"datetime,omitempty"`
	Series    int        `json:"series"`
	Blocks    int        `json:"blocks"`
}

type SeriesList struct {
	Object string          `json:"object"`
	Data   []lif.ImageInfo `json:"data"`
}

func summarize(name string, f *lif.File) ContainerSummary {
	s := ContainerSummary{
		Name:      name,
		Version:   f.Version(),
		LOF:       f.IsLOF(),
		Reference: f.IsReference(),
		Series:    f.Series().Len(),
		Blocks:    len(f.MemoryBlocks()),
	}
	if dt := f.Datetime(); !dt.IsZero() {
		s.Datetime = &dt
	}
	return s
}
