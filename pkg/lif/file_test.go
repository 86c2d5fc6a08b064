package lif

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samcharles93/lifkit/internal/liftest"
)

func TestOpenXYZT(t *testing.T) {
	t.Parallel()

	img := xyzt()
	xml := liftest.Header(2, liftest.Folder{Name: "ScanModes", Children: []liftest.Node{img}})
	payload := liftest.Pattern(img.NBytes())
	path := writeFixture(t, "scanmodes.lif", liftest.LIF(xml, liftest.Block{ID: img.BlockID, Data: payload}))
	f := openFixture(t, path)

	if got := f.Version(); got != 2 {
		t.Fatalf("version: got %d, want 2", got)
	}
	if f.IsLOF() || f.IsReference() {
		t.Fatalf("unexpected container kind: %v", f)
	}
	if got := f.Name(); got != "ScanModes" {
		t.Fatalf("name: got %q", got)
	}
	if got := f.Series().Len(); got != 1 {
		t.Fatalf("series length: got %d, want 1", got)
	}

	im, err := f.Series().At(0)
	if err != nil {
		t.Fatalf("series at 0: %v", err)
	}
	if got, want := im.Dims(), []string{"T", "Z", "C", "Y", "X"}; !slices.Equal(got, want) {
		t.Fatalf("dims: got %v, want %v", got, want)
	}
	if got, want := im.Shape(), []int{7, 5, 2, 128, 128}; !slices.Equal(got, want) {
		t.Fatalf("shape: got %v, want %v", got, want)
	}
	if got, want := im.NBytes(), int64(7*5*2*128*128); got != want {
		t.Fatalf("nbytes: got %d, want %d", got, want)
	}
	if im.DType() != Uint8 || im.ItemSize() != 1 || im.Samples() != 1 {
		t.Fatalf("dtype: got %v itemsize %d samples %d", im.DType(), im.ItemSize(), im.Samples())
	}
	if got := im.Path(); got != "XYZT" {
		t.Fatalf("path: got %q", got)
	}
	if got := im.GUID(); got != uuid.MustParse("0a1b2c3d-4e5f-6071-8293-a4b5c6d7e8f9") {
		t.Fatalf("guid: got %v", got)
	}
	if got := len(im.Timestamps()); got != 70 {
		t.Fatalf("timestamps: got %d, want 70", got)
	}
	if got := im.Attrs()["path"]; got != "ScanModes/XYZT" {
		t.Fatalf("attrs path: got %v", got)
	}

	blocks, err := im.MemoryBlocks()
	if err != nil {
		t.Fatalf("memory blocks: %v", err)
	}
	if len(blocks) != 1 || blocks[0].ID != "MemBlock_29" {
		t.Fatalf("blocks: got %v", blocks)
	}

	a, err := im.ReadArray()
	if err != nil {
		t.Fatalf("read array: %v", err)
	}
	if !bytes.Equal(a.Data, payload) {
		t.Fatalf("array data differs from payload")
	}
	if a.Name != "XYZT" || !slices.Equal(a.Dims, im.Dims()) {
		t.Fatalf("array labels: %q %v", a.Name, a.Dims)
	}
}

func TestXYZTCoords(t *testing.T) {
	t.Parallel()

	img := xyzt()
	path := writeFixture(t, "coords.lif", liftest.LIF(liftest.Header(2, liftest.Folder{Name: "c", Children: []liftest.Node{img}}),
		liftest.Block{ID: img.BlockID, Data: liftest.Pattern(img.NBytes())}))
	im, err := openFixture(t, path).Series().Get("XYZT")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	coords := im.Coords()
	if _, ok := coords["C"]; ok {
		t.Fatalf("channel axis must not have coords")
	}
	z := coords["Z"]
	want := []float64{2e-6, 1e-6, 0, -1e-6, -2e-6}
	for i := range want {
		if math.Abs(z[i]-want[i]) > 1e-12 {
			t.Fatalf("z coords: got %v, want %v", z, want)
		}
	}
	// 70 stamps over T:7 Z:5 C:2 frames: one T step is ten frames of 100ms.
	tc := coords["T"]
	for i, v := range tc {
		if math.Abs(v-float64(i)) > 1e-9 {
			t.Fatalf("t coords: got %v", tc)
		}
	}
	x := coords["X"]
	if len(x) != 128 || x[0] != 0 || math.Abs(x[127]-1.27e-4) > 1e-15 {
		t.Fatalf("x coords: got len %d first %g last %g", len(x), x[0], x[len(x)-1])
	}
}

func TestOpenRejectsNonContainer(t *testing.T) {
	t.Parallel()

	path := writeFixture(t, "notlif.lif", []byte("definitely not a container, just text"))
	_, err := Open(path)
	if !errors.Is(err, ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}

	empty := writeFixture(t, "empty.lif", nil)
	if _, err := Open(empty); !errors.Is(err, ErrFormat) {
		t.Fatalf("expected ErrFormat for empty file, got %v", err)
	}
}

func TestOpenRejectsInvalidMode(t *testing.T) {
	t.Parallel()

	// The path does not exist: the mode must be rejected before it is used.
	missing := filepath.Join(t.TempDir(), "missing.lif")
	for _, mode := range []string{"", "w", "rw", "a+"} {
		_, err := Open(missing, WithModeString(mode))
		if !errors.Is(err, ErrInvalidValue) {
			t.Fatalf("mode %q: expected ErrInvalidValue, got %v", mode, err)
		}
	}
	for _, mode := range []string{"r", "rb", "r+", "r+b"} {
		if _, err := ParseMode(mode); err != nil {
			t.Fatalf("mode %q: %v", mode, err)
		}
	}
}

func TestDefectiveMetadata(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := liftest.NewWriter(&buf)
	if err := w.WriteXML(`<LMSDataContainerHeader Version="2"><Element Name="broken" =><Data/></Element></LMSDataContainerHeader>`); err != nil {
		t.Fatalf("write xml: %v", err)
	}
	payload := liftest.Pattern(4096)
	if err := w.WriteMemory("MemBlock_7", payload); err != nil {
		t.Fatalf("write memory: %v", err)
	}
	path := writeFixture(t, "defective.lif", buf.Bytes())

	log := &recordLogger{}
	f := openFixture(t, path, WithLogger(log))
	if got := f.Series().Len(); got != 0 {
		t.Fatalf("series length: got %d, want 0", got)
	}
	if f.Version() != 0 {
		t.Fatalf("version: got %d, want 0", f.Version())
	}
	if !log.warned("no XML image element found") {
		t.Fatalf("expected warning, got %v", log.warns)
	}

	b, err := f.MemoryBlock("MemBlock_7")
	if err != nil {
		t.Fatalf("memory block: %v", err)
	}
	data, err := b.Read()
	if err != nil {
		t.Fatalf("read block: %v", err)
	}
	if int64(len(data)) != b.Size || !bytes.Equal(data, payload) {
		t.Fatalf("block read: got %d bytes, want %d", len(data), b.Size)
	}
}

func TestCloseInvalidatesReads(t *testing.T) {
	t.Parallel()

	img := xyzt()
	path := writeFixture(t, "close.lif", liftest.LIF(liftest.Header(2, liftest.Folder{Name: "c", Children: []liftest.Node{img}}),
		liftest.Block{ID: img.BlockID, Data: liftest.Pattern(img.NBytes())}))
	f, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	im, err := f.Series().At(0)
	if err != nil {
		t.Fatalf("at: %v", err)
	}
	a, err := im.ReadArray()
	if err != nil {
		t.Fatalf("read array: %v", err)
	}
	b, err := f.MemoryBlock(img.BlockID)
	if err != nil {
		t.Fatalf("memory block: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	if _, err := im.ReadArray(); !errors.Is(err, ErrClosed) {
		t.Fatalf("read after close: expected ErrClosed, got %v", err)
	}
	if _, err := b.Read(); !errors.Is(err, ErrClosed) {
		t.Fatalf("block read after close: expected ErrClosed, got %v", err)
	}
	if len(a.Data) != int(img.NBytes()) {
		t.Fatalf("materialized array must survive close")
	}
}

func TestOpenReader(t *testing.T) {
	t.Parallel()

	img := liftest.Image{
		Name:       "plane",
		Dims:       []liftest.Dim{{ID: liftest.DimX, Size: 8, Length: 7}, {ID: liftest.DimY, Size: 4, Length: 3}},
		Resolution: 16,
		BlockID:    "MemBlock_1",
	}
	payload := liftest.Pattern(img.NBytes())
	data := liftest.LIF(liftest.Header(1, liftest.Folder{Name: "root", Children: []liftest.Node{img}}),
		liftest.Block{ID: "MemBlock_1", Data: payload})

	f, err := OpenReader(bytes.NewReader(data), int64(len(data)), WithLogger(&recordLogger{}))
	if err != nil {
		t.Fatalf("open reader: %v", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}()
	im, err := f.Series().At(-1)
	if err != nil {
		t.Fatalf("at -1: %v", err)
	}
	if im.DType() != Uint16 {
		t.Fatalf("dtype: got %v", im.DType())
	}
	// No file to map: memmap output falls back to a temporary file.
	a, err := im.ReadArray(WithOut(OutMemmapDir(t.TempDir())))
	if err != nil {
		t.Fatalf("read memmap: %v", err)
	}
	defer func() { _ = a.Close() }()
	if !a.Mapped() || !bytes.Equal(a.Data, payload) {
		t.Fatalf("memmap read mismatch (mapped=%v)", a.Mapped())
	}
}

func TestSeriesLookupIsStable(t *testing.T) {
	t.Parallel()

	a := xyzt()
	b := liftest.Image{
		Name:    "Intensity",
		Dims:    []liftest.Dim{{ID: liftest.DimX, Size: 4}, {ID: liftest.DimY, Size: 4}},
		BlockID: "MemBlock_2",
	}
	xml := liftest.Header(2, liftest.Folder{Name: "root", Children: []liftest.Node{
		a,
		liftest.Folder{Name: "FLIM Compressed", Children: []liftest.Node{b}},
	}})
	path := writeFixture(t, "lookup.lif", liftest.LIF(xml,
		liftest.Block{ID: a.BlockID, Data: liftest.Pattern(a.NBytes())},
		liftest.Block{ID: b.BlockID, Data: liftest.Pattern(b.NBytes())}))
	s := openFixture(t, path).Series()

	if got, want := s.Paths(), []string{"XYZT", "FLIM Compressed/Intensity"}; !slices.Equal(got, want) {
		t.Fatalf("paths: got %v, want %v", got, want)
	}
	first, err := s.Get("/Intensity")
	if err != nil {
		t.Fatalf("get regex: %v", err)
	}
	second, err := s.Get("FLIM Compressed/Intensity")
	if err != nil {
		t.Fatalf("get path: %v", err)
	}
	if first != second || first.Index() != 1 {
		t.Fatalf("lookups disagree: %v vs %v", first, second)
	}
	found, err := s.FindAll("intensity", true)
	if err != nil || len(found) != 1 || found[0] != first {
		t.Fatalf("find all: %v %v", found, err)
	}
	if _, err := s.Get("nothing-like-this"); !errors.Is(err, ErrNotFound) || !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("missing key: got %v", err)
	}
	if _, err := s.At(2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("out of range: got %v", err)
	}
	if _, err := s.Get("("); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("bad regex: got %v", err)
	}
}

func TestFindAllMatchesNameInsideFolder(t *testing.T) {
	t.Parallel()

	img := xyzt()
	xml := liftest.Header(2, liftest.Folder{Name: "root", Children: []liftest.Node{
		liftest.Folder{Name: "Sub", Children: []liftest.Node{img}},
	}})
	s := openFixture(t, writeFixture(t, "nested.lif", liftest.LIF(xml,
		liftest.Block{ID: img.BlockID, Data: liftest.Pattern(img.NBytes())}))).Series()

	found, err := s.FindAll("^xyzt$", true)
	if err != nil || len(found) != 1 || found[0].Path() != "Sub/XYZT" {
		t.Fatalf("anchored name lookup: %v %v", found, err)
	}
	found, err = s.FindAll("^xyzt$", false)
	if err != nil || len(found) != 0 {
		t.Fatalf("case-sensitive lookup should miss: %v %v", found, err)
	}
	if im, err := s.Find("^XYZT$", false); err != nil || im.Path() != "Sub/XYZT" {
		t.Fatalf("find: %v %v", im, err)
	}
}

func TestDatetimeFromTimestamps(t *testing.T) {
	t.Parallel()

	at := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)
	img := liftest.Image{
		Name:         "stamped",
		Dims:         []liftest.Dim{{ID: liftest.DimX, Size: 2}, {ID: liftest.DimY, Size: 2}, {ID: liftest.DimT, Size: 3}},
		BlockID:      "MemBlock_3",
		Timestamps:   []uint64{liftest.Filetime(at), liftest.Filetime(at.Add(time.Second)), liftest.Filetime(at.Add(3 * time.Second))},
		LegacyStamps: true,
	}
	path := writeFixture(t, "stamped.lif", liftest.LIF(liftest.Header(2, liftest.Folder{Name: "r", Children: []liftest.Node{img}}),
		liftest.Block{ID: img.BlockID, Data: make([]byte, img.NBytes())}))
	f := openFixture(t, path)
	if got := f.Datetime(); !got.Equal(at) {
		t.Fatalf("datetime: got %v, want %v", got, at)
	}
	im, _ := f.Series().At(0)
	if got, want := im.Coords()["T"], []float64{0, 1, 3}; !slices.Equal(got, want) {
		t.Fatalf("t coords: got %v, want %v", got, want)
	}
}

func TestOpenDirectory(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "x.lif"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if _, err := Open(filepath.Join(dir, "x.lif")); !errors.Is(err, ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}
}
