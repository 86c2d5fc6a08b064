package lif

import (
	"errors"
	"fmt"
	"strconv"
)

// Selector picks one image of a series by index or key.
type Selector struct {
	index int
	key   string
	byKey bool
}

// Index selects by series position. Negative values count from the end.
func Index(i int) Selector { return Selector{index: i} }

// Key selects by path, else by regular expression; see Series.Get.
func Key(key string) Selector { return Selector{key: key, byKey: true} }

func (s Selector) String() string {
	if s.byKey {
		return strconv.Quote(s.key)
	}
	return strconv.Itoa(s.index)
}

// Select resolves a selector against the series of f.
func (f *File) Select(sel Selector) (*Image, error) {
	if sel.byKey {
		return f.series.Get(sel.key)
	}
	return f.series.At(sel.index)
}

// Read opens the container at path, materializes one image and closes the
// container again.
func Read(path string, sel Selector, opts ...ReadOption) (a *Array, err error) {
	f, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	im, err := f.Select(sel)
	if err != nil {
		return nil, fmt.Errorf("select %v: %w", sel, err)
	}
	return im.ReadArray(opts...)
}
