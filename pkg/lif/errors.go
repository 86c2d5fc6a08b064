package lif

import (
	"errors"
	"fmt"
)

var (
	ErrFormat       = errors.New("lif: not a LIF container")
	ErrStructure    = errors.New("lif: inconsistent container structure")
	ErrInvalidValue = errors.New("lif: invalid value")
	ErrNotSupported = errors.New("lif: not supported")
	ErrClosed       = errors.New("lif: file already closed")

	// ErrNotFound is returned when a series selector matches nothing.
	ErrNotFound = fmt.Errorf("%w: no such image", ErrInvalidValue)
)

// StructureError reports an image whose metadata and memory blocks disagree.
type StructureError struct {
	Image   string
	BlockID string
	Msg     string
}

func (e *StructureError) Error() string {
	switch {
	case e.BlockID != "":
		return fmt.Sprintf("lif: image %q block %q: %s", e.Image, e.BlockID, e.Msg)
	case e.Image != "":
		return fmt.Sprintf("lif: image %q: %s", e.Image, e.Msg)
	default:
		return "lif: " + e.Msg
	}
}

func (e *StructureError) Unwrap() error { return ErrStructure }
