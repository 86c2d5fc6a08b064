package lif

import (
	"errors"
	"slices"
	"testing"

	"github.com/samcharles93/lifkit/internal/liftest"
)

func TestReadBySelector(t *testing.T) {
	t.Parallel()

	img := xyzt()
	payload := liftest.Pattern(img.NBytes())
	path := writeFixture(t, "read.lif", liftest.LIF(liftest.Header(2, liftest.Folder{Name: "r", Children: []liftest.Node{img}}),
		liftest.Block{ID: img.BlockID, Data: payload}))

	byIndex, err := Read(path, Index(0))
	if err != nil {
		t.Fatalf("read index: %v", err)
	}
	byKey, err := Read(path, Key("XY.T"))
	if err != nil {
		t.Fatalf("read key: %v", err)
	}
	if byIndex.Sum() != byKey.Sum() || byIndex.Size() != 7*5*2*128*128 {
		t.Fatalf("selectors disagree")
	}
	if _, err := Read(path, Index(3)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing index: got %v", err)
	}
}

func TestSqueezeOption(t *testing.T) {
	t.Parallel()

	img := liftest.Image{
		Name: "thin",
		Dims: []liftest.Dim{
			{ID: liftest.DimX, Size: 4, Length: 3},
			{ID: liftest.DimY, Size: 3, Length: 4},
			{ID: liftest.DimZ, Size: 1, Origin: 5},
			{ID: liftest.DimT, Size: 2, Length: 1},
		},
		BlockID: "MemBlock_1",
	}
	path := writeFixture(t, "thin.lif", liftest.LIF(liftest.Header(2, liftest.Folder{Name: "r", Children: []liftest.Node{img}}),
		liftest.Block{ID: "MemBlock_1", Data: liftest.Pattern(img.NBytes())}))

	full, _ := openFixture(t, path, WithSqueeze(false)).Series().At(0)
	squeezed, _ := openFixture(t, path).Series().At(0)

	if got := full.Dims(); !slices.Equal(got, []string{"T", "Z", "Y", "X"}) {
		t.Fatalf("unsqueezed dims: %v", got)
	}
	if got := squeezed.Dims(); !slices.Equal(got, []string{"T", "Y", "X"}) {
		t.Fatalf("squeezed dims: %v", got)
	}
	if _, ok := squeezed.Sizes()["Z"]; ok {
		t.Fatalf("squeezed sizes still list Z")
	}
	fc, sc := full.Coords(), squeezed.Coords()
	for _, l := range squeezed.Dims() {
		if !slices.Equal(fc[l], sc[l]) {
			t.Fatalf("%s coords changed by squeeze", l)
		}
	}
	if full.NBytes() != squeezed.NBytes() {
		t.Fatalf("squeeze must not change the byte count")
	}
}
