package lif

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/samcharles93/lifkit/internal/liftest"
)

type recordLogger struct {
	mu    sync.Mutex
	warns []string
	debug []string
}

func (l *recordLogger) Debug(msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debug = append(l.debug, msg+fmt.Sprint(args...))
}

func (l *recordLogger) Warn(msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *recordLogger) warned(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, w := range l.warns {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

func writeFixture(t *testing.T, name string, data []byte) string {
	t.Helper()
	return liftest.WriteFile(t, filepath.Join(t.TempDir(), name), data)
}

func openFixture(t *testing.T, path string, opts ...Option) *File {
	t.Helper()
	f, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	t.Cleanup(func() {
		if err := f.Close(); err != nil {
			t.Errorf("close %s: %v", path, err)
		}
	})
	return f
}

// xyzt is the four dimensional uint8 image of scenario files: T:7 Z:5
// C:2 Y:128 X:128 with 70 timestamps 100ms apart.
func xyzt() liftest.Image {
	stamps := make([]uint64, 70)
	for i := range stamps {
		stamps[i] = 132000000000000000 + uint64(i)*1_000_000
	}
	return liftest.Image{
		Name: "XYZT",
		GUID: "0a1b2c3d-4e5f-6071-8293-a4b5c6d7e8f9",
		Dims: []liftest.Dim{
			{ID: liftest.DimX, Size: 128, Length: 1.27e-4, Unit: "m"},
			{ID: liftest.DimY, Size: 128, Length: 1.27e-4, Unit: "m"},
			{ID: liftest.DimZ, Size: 5, Origin: 2e-6, Length: -4e-6, Unit: "m"},
			{ID: liftest.DimT, Size: 7, Length: 6, Unit: "s"},
		},
		Channels:   2,
		BlockID:    "MemBlock_29",
		Timestamps: stamps,
		Attachments: []string{
			`<Attachment Name="HardwareSetting" Version="1"><ATLConfocalSettingDefinition Zoom="4.5" Pinhole="1.1e-4" ObjectiveName="HC PL APO"/></Attachment>`,
		},
	}
}
