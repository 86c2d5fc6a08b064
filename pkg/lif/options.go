package lif

import (
	"fmt"

	"github.com/samcharles93/lifkit/internal/logger"
)

// Logger receives recoverable anomalies found while reading a container.
// *slog.Logger and logger.Logger both satisfy it.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Mode selects how the underlying file is opened.
type Mode uint8

const (
	// ModeRead opens the file read-only. Zero-copy arrays are private
	// copy-on-write mappings.
	ModeRead Mode = iota
	// ModeReadWrite opens the file read-write. Zero-copy arrays share
	// their pages with the file, so writes to them reach the container.
	ModeReadWrite
)

func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "r"
	case ModeReadWrite:
		return "r+"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

// ParseMode accepts "r", "rb", "r+" and "r+b".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "r", "rb":
		return ModeRead, nil
	case "r+", "r+b":
		return ModeReadWrite, nil
	default:
		return 0, fmt.Errorf("%w: invalid mode %q", ErrInvalidValue, s)
	}
}

type options struct {
	mode    Mode
	squeeze bool
	log     Logger
	err     error
}

// Option configures Open and OpenReader.
type Option func(*options)

func WithMode(m Mode) Option {
	return func(o *options) {
		if m != ModeRead && m != ModeReadWrite {
			o.err = fmt.Errorf("%w: invalid mode %v", ErrInvalidValue, m)
			return
		}
		o.mode = m
	}
}

// WithModeString is WithMode for the textual form accepted by ParseMode.
// An unknown mode makes Open fail before the file is touched.
func WithModeString(s string) Option {
	return func(o *options) {
		m, err := ParseMode(s)
		if err != nil {
			o.err = err
			return
		}
		o.mode = m
	}
}

// WithSqueeze controls whether size-1 axes are dropped from image
// geometry. The two innermost non-sample axes are always kept.
func WithSqueeze(squeeze bool) Option {
	return func(o *options) { o.squeeze = squeeze }
}

func WithLogger(log Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

func buildOptions(opts []Option) (*options, error) {
	o := &options{mode: ModeRead, squeeze: true}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.err != nil {
		return nil, o.err
	}
	if o.log == nil {
		o.log = logger.Default()
	}
	return o, nil
}

type readOptions struct {
	out Output
	rgb bool
}

// ReadOption configures Image.ReadArray.
type ReadOption func(*readOptions)

// WithOut selects the destination of the materialized array.
func WithOut(out Output) ReadOption {
	return func(o *readOptions) { o.out = out }
}

// WithRGB controls sample order of RGB images. Data is stored as BGR;
// true (the default) returns RGB.
func WithRGB(rgb bool) ReadOption {
	return func(o *readOptions) { o.rgb = rgb }
}

func buildReadOptions(opts []ReadOption) readOptions {
	o := readOptions{out: OutNew(), rgb: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
