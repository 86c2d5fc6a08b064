package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v5"
	"github.com/samcharles93/lifkit/internal/version"
	"github.com/samcharles93/lifkit/pkg/lif"
)

// Server exposes containers from a provider over HTTP.
type Server struct {
	provider ContainerProvider
}

func NewServer(provider ContainerProvider) *Server {
	return &Server{provider: provider}
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/v1/version", s.handleVersion)
	e.GET("/v1/files", s.handleListFiles)
	e.GET("/v1/files/:name", s.handleGetFile)
	e.GET("/v1/files/:name/series", s.handleListSeries)
	e.GET("/v1/files/:name/series/:index", s.handleGetSeries)
	e.GET("/v1/files/:name/series/:index/data", s.handleSeriesData)
	e.GET("/v1/files/:name/blocks/:id", s.handleBlock)
}

func (s *Server) handleVersion(c *echo.Context) error {
	info := version.Resolve()
	return writeJSON(c, http.StatusOK, map[string]string{
		"version":    info.Version,
		"commit":     info.Commit,
		"build_time": info.BuildTime,
	})
}

func (s *Server) handleListFiles(c *echo.Context) error {
	names, err := s.provider.ListContainers()
	if err != nil {
		return writeErr(c, err)
	}
	if names == nil {
		names = []string{}
	}
	return writeJSON(c, http.StatusOK, ContainerList{Object: "list", Data: names})
}

func (s *Server) handleGetFile(c *echo.Context) error {
	name := c.Param("name")
	var out ContainerSummary
	err := s.provider.WithContainer(c.Request().Context(), name, func(f *lif.File) error {
		out = summarize(name, f)
		return nil
	})
	if err != nil {
		return writeErr(c, err)
	}
	return writeJSON(c, http.StatusOK, out)
}

func (s *Server) handleListSeries(c *echo.Context) error {
	full, err := boolParam(c, "full", false)
	if err != nil {
		return writeErr(c, err)
	}
	out := SeriesList{Object: "list", Data: []lif.ImageInfo{}}
	err = s.provider.WithContainer(c.Request().Context(), c.Param("name"), func(f *lif.File) error {
		for _, im := range f.Series().All() {
			out.Data = append(out.Data, im.Info(full))
		}
		return nil
	})
	if err != nil {
		return writeErr(c, err)
	}
	return writeJSON(c, http.StatusOK, out)
}

func (s *Server) handleGetSeries(c *echo.Context) error {
	var out lif.ImageInfo
	err := s.withImage(c, func(im *lif.Image) error {
		out = im.Info(true)
		return nil
	})
	if err != nil {
		return writeErr(c, err)
	}
	return writeJSON(c, http.StatusOK, out)
}

func (s *Server) handleSeriesData(c *echo.Context) error {
	rgb, err := boolParam(c, "rgb", true)
	if err != nil {
		return writeErr(c, err)
	}
	var arr *lif.Array
	err = s.withImage(c, func(im *lif.Image) error {
		var rerr error
		arr, rerr = im.ReadArray(lif.WithRGB(rgb))
		return rerr
	})
	if err != nil {
		return writeErr(c, err)
	}
	defer func() { _ = arr.Close() }()

	res := c.Response()
	h := res.Header()
	h.Set(echo.HeaderContentType, echo.MIMEOctetStream)
	h.Set(echo.HeaderContentLength, strconv.Itoa(arr.NBytes()))
	h.Set("X-Lif-Shape", joinInts(arr.Shape))
	h.Set("X-Lif-Dims", strings.Join(arr.Dims, ","))
	h.Set("X-Lif-Dtype", arr.DType.String())
	res.WriteHeader(http.StatusOK)
	_, err = res.Write(arr.Data)
	return err
}

func (s *Server) handleBlock(c *echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return writeBadRequest(c, "block id is required")
	}
	var streaming bool
	err := s.provider.WithContainer(c.Request().Context(), c.Param("name"), func(f *lif.File) error {
		b, err := f.MemoryBlock(id)
		if err != nil {
			return err
		}
		sr, err := b.Section()
		if err != nil {
			return err
		}
		res := c.Response()
		res.Header().Set(echo.HeaderContentType, echo.MIMEOctetStream)
		res.Header().Set(echo.HeaderContentLength, strconv.FormatInt(b.Size, 10))
		streaming = true
		res.WriteHeader(http.StatusOK)
		_, err = io.Copy(res, sr)
		return err
	})
	if err != nil && !streaming {
		return writeErr(c, err)
	}
	return err
}

// withImage selects the series named by the :index parameter, which is
// either an integer position or an image path.
func (s *Server) withImage(c *echo.Context, fn func(im *lif.Image) error) error {
	key := c.Param("index")
	if key == "" {
		return newInvalidRequest("series index is required")
	}
	return s.provider.WithContainer(c.Request().Context(), c.Param("name"), func(f *lif.File) error {
		var sel lif.Selector
		if i, err := strconv.Atoi(key); err == nil {
			sel = lif.Index(i)
		} else {
			sel = lif.Key(key)
		}
		im, err := f.Select(sel)
		if err != nil {
			return fmt.Errorf("series %s: %w", sel, err)
		}
		return fn(im)
	})
}
