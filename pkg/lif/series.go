package lif

import (
	"fmt"
	"iter"
	"regexp"
	"slices"
)

// Series is the ordered collection of images in a container: stored
// images in document order, then spectral composites.
type Series struct {
	images []*Image
}

func newSeries(f *File) *Series {
	s := &Series{}
	for _, n := range f.tree.Images() {
		s.images = append(s.images, newImage(f, n, len(s.images)))
	}
	s.images = append(s.images, foldSpectral(f, s.images)...)
	return s
}

func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.images)
}

// At returns the image at index i. Negative indices count from the end.
func (s *Series) At(i int) (*Image, error) {
	n := s.Len()
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return nil, fmt.Errorf("%w: index %d of %d images", ErrNotFound, i, n)
	}
	return s.images[i], nil
}

// Get returns the image whose path is key, else the first image whose
// path or name matches key as a regular expression.
func (s *Series) Get(key string) (*Image, error) {
	for _, im := range s.Images() {
		if im.path == key {
			return im, nil
		}
	}
	re, err := regexp.Compile(key)
	if err != nil {
		return nil, fmt.Errorf("%w: key %q: %v", ErrInvalidValue, key, err)
	}
	for _, im := range s.Images() {
		if re.MatchString(im.path) || re.MatchString(im.name) {
			return im, nil
		}
	}
	return nil, fmt.Errorf("%w: key %q", ErrNotFound, key)
}

// FindAll returns every image whose path or name matches pattern.
func (s *Series) FindAll(pattern string, ignoreCase bool) ([]*Image, error) {
	if ignoreCase {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: pattern %q: %v", ErrInvalidValue, pattern, err)
	}
	var out []*Image
	for _, im := range s.Images() {
		if re.MatchString(im.path) || re.MatchString(im.name) {
			out = append(out, im)
		}
	}
	return out, nil
}

// Find returns the first image whose path or name matches pattern.
func (s *Series) Find(pattern string, ignoreCase bool) (*Image, error) {
	found, err := s.FindAll(pattern, ignoreCase)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%w: pattern %q", ErrNotFound, pattern)
	}
	return found[0], nil
}

func (s *Series) Paths() []string {
	out := make([]string, 0, s.Len())
	for _, im := range s.Images() {
		out = append(out, im.path)
	}
	return out
}

func (s *Series) Images() []*Image {
	if s == nil {
		return nil
	}
	return slices.Clone(s.images)
}

// All yields images with their index.
func (s *Series) All() iter.Seq2[int, *Image] {
	return func(yield func(int, *Image) bool) {
		for i, im := range s.Images() {
			if !yield(i, im) {
				return
			}
		}
	}
}
