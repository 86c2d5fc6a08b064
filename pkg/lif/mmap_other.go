//go:build !unix

package lif

import (
	"fmt"
	"os"
)

func mapSource(_ *os.File, _, _ int64, _ bool) ([]byte, func() error, error) {
	return nil, nil, fmt.Errorf("%w: direct container mapping", ErrNotSupported)
}
