//go:build unix

package lif

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// mapSource maps size bytes at off of the container file. Shared mappings
// write through to the file; private ones are copy-on-write.
func mapSource(f *os.File, off, size int64, shared bool) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, fmt.Errorf("%w: empty region", ErrInvalidValue)
	}
	page := int64(os.Getpagesize())
	base := off - off%page
	delta := off - base

	flags := unix.MAP_PRIVATE
	if shared {
		flags = unix.MAP_SHARED
	}
	data, err := unix.Mmap(
		int(f.Fd()),
		base,
		int(delta+size),
		unix.PROT_READ|unix.PROT_WRITE,
		flags,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("map container region: %w", err)
	}
	return data[delta : delta+size], func() error { return unix.Munmap(data) }, nil
}
