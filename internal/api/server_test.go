package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"
	"github.com/samcharles93/lifkit/internal/liftest"
	"github.com/samcharles93/lifkit/internal/logger"
	"github.com/samcharles93/lifkit/pkg/lif"
)

func smallImage() liftest.Image {
	return liftest.Image{
		Name: "small",
		GUID: "11111111-2222-3333-4444-555555555555",
		Dims: []liftest.Dim{
			{ID: liftest.DimX, Size: 8, Length: 7e-6, Unit: "m"},
			{ID: liftest.DimY, Size: 4, Length: 3e-6, Unit: "m"},
		},
		Channels: 2,
		BlockID:  "MemBlock_7",
	}
}

func newTestServer(t *testing.T) (*echo.Echo, string, []byte) {
	t.Helper()
	dir := t.TempDir()
	img := smallImage()
	payload := liftest.Pattern(img.NBytes())
	data := liftest.LIF(liftest.Header(2, liftest.Folder{Name: "root", Children: []liftest.Node{img}}),
		liftest.Block{ID: img.BlockID, Data: payload})
	liftest.WriteFile(t, filepath.Join(dir, "sample.lif"), data)
	mustWriteFile(t, filepath.Join(dir, "notes.txt"), "x")

	provider := NewCachedContainerProvider(ContainerProviderConfig{
		Root:    dir,
		Squeeze: true,
		Logger:  logger.Discard(),
	})
	t.Cleanup(func() {
		if err := provider.Close(); err != nil {
			t.Errorf("close provider: %v", err)
		}
	})
	e := echo.New()
	NewServer(provider).Register(e)
	return e, dir, payload
}

func doGet(t *testing.T, e *echo.Echo, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return v
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestListFiles(t *testing.T) {
	t.Parallel()

	e, _, _ := newTestServer(t)
	rec := doGet(t, e, "/v1/files")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	list := decodeBody[ContainerList](t, rec)
	if !slices.Equal(list.Data, []string{"sample.lif"}) {
		t.Fatalf("files: got %v", list.Data)
	}
}

func TestGetFileSummary(t *testing.T) {
	t.Parallel()

	e, _, _ := newTestServer(t)
	rec := doGet(t, e, "/v1/files/sample.lif")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	sum := decodeBody[ContainerSummary](t, rec)
	if sum.Name != "sample.lif" || sum.Version != 2 || sum.Series != 1 || sum.Blocks != 1 || sum.LOF {
		t.Fatalf("summary: %+v", sum)
	}
}

func TestSeriesInfo(t *testing.T) {
	t.Parallel()

	e, _, _ := newTestServer(t)
	rec := doGet(t, e, "/v1/files/sample.lif/series")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	list := decodeBody[SeriesList](t, rec)
	if len(list.Data) != 1 || list.Data[0].Path != "small" {
		t.Fatalf("series: %+v", list.Data)
	}
	if list.Data[0].Coords != nil {
		t.Fatalf("summary listing should omit coords")
	}

	for _, key := range []string{"0", "-1", "small"} {
		rec := doGet(t, e, "/v1/files/sample.lif/series/"+key)
		if rec.Code != http.StatusOK {
			t.Fatalf("series %s: got %d body=%s", key, rec.Code, rec.Body.String())
		}
		info := decodeBody[lif.ImageInfo](t, rec)
		if !slices.Equal(info.Dims, []string{"C", "Y", "X"}) || !slices.Equal(info.Shape, []int{2, 4, 8}) {
			t.Fatalf("series %s: dims %v shape %v", key, info.Dims, info.Shape)
		}
		if info.GUID != "11111111-2222-3333-4444-555555555555" || len(info.Coords["X"]) != 8 {
			t.Fatalf("series %s: %+v", key, info)
		}
	}
}

func TestSeriesData(t *testing.T) {
	t.Parallel()

	e, _, payload := newTestServer(t)
	rec := doGet(t, e, "/v1/files/sample.lif/series/0/data")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	if !bytes.Equal(rec.Body.Bytes(), payload) {
		t.Fatalf("data does not match the stored block")
	}
	h := rec.Header()
	if h.Get("X-Lif-Shape") != "2,4,8" || h.Get("X-Lif-Dims") != "C,Y,X" || h.Get("X-Lif-Dtype") != "uint8" {
		t.Fatalf("headers: %v", h)
	}
}

func TestBlockData(t *testing.T) {
	t.Parallel()

	e, _, payload := newTestServer(t)
	rec := doGet(t, e, "/v1/files/sample.lif/blocks/MemBlock_7")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	if !bytes.Equal(rec.Body.Bytes(), payload) {
		t.Fatalf("block bytes differ")
	}
}

func TestErrorEnvelope(t *testing.T) {
	t.Parallel()

	e, _, _ := newTestServer(t)
	cases := []struct {
		path   string
		status int
		typ    string
	}{
		{"/v1/files/missing.lif", http.StatusNotFound, "not_found_error"},
		{"/v1/files/notes.txt", http.StatusNotFound, "not_found_error"},
		{"/v1/files/sample.lif/series/5", http.StatusNotFound, "not_found_error"},
		{"/v1/files/sample.lif/series/(", http.StatusBadRequest, "invalid_request_error"},
		{"/v1/files/sample.lif/series/0/data?rgb=maybe", http.StatusBadRequest, "invalid_request_error"},
		{"/v1/files/sample.lif/blocks/MemBlock_99", http.StatusNotFound, "not_found_error"},
	}
	for _, tc := range cases {
		rec := doGet(t, e, tc.path)
		if rec.Code != tc.status {
			t.Fatalf("%s: status %d, want %d body=%s", tc.path, rec.Code, tc.status, rec.Body.String())
		}
		body := decodeBody[ErrorResponse](t, rec)
		if body.Error.Type != tc.typ || body.Error.Message == "" {
			t.Fatalf("%s: error %+v", tc.path, body.Error)
		}
	}
}

func TestProviderCachesContainers(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	img := smallImage()
	liftest.WriteFile(t, filepath.Join(dir, "a.lif"), liftest.LIF(liftest.Header(2, img),
		liftest.Block{ID: img.BlockID, Data: liftest.Pattern(img.NBytes())}))

	p := NewCachedContainerProvider(ContainerProviderConfig{Root: dir, Logger: logger.Discard()})
	defer func() { _ = p.Close() }()

	var first, second *lif.File
	if err := p.WithContainer(t.Context(), "a.lif", func(f *lif.File) error { first = f; return nil }); err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := p.WithContainer(t.Context(), "a.lif", func(f *lif.File) error { second = f; return nil }); err != nil {
		t.Fatalf("second open: %v", err)
	}
	if first != second {
		t.Fatalf("container was opened twice")
	}
	if err := p.WithContainer(t.Context(), "../a.lif", func(*lif.File) error { return nil }); err == nil {
		t.Fatalf("expected traversal to be rejected")
	}
}

func TestProviderUsesDataDirEnv(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "b.LOF"), "x")
	t.Setenv(EnvDataDir, dir)

	p := NewCachedContainerProvider(ContainerProviderConfig{})
	names, err := p.ListContainers()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !slices.Equal(names, []string{"b.LOF"}) {
		t.Fatalf("names: %v", names)
	}
}
