package api

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/samcharles93/lifkit/internal/logger"
	"github.com/samcharles93/lifkit/pkg/lif"
)

// ContainerProvider hands out open containers by name.
type ContainerProvider interface {
	ListContainers() ([]string, error)
	WithContainer(ctx context.Context, name string, fn func(f *lif.File) error) error
}

type ContainerProviderConfig struct {
	Root    string
	Squeeze bool
	Logger  logger.Logger
}

// CachedContainerProvider keeps each container open after first use.
// Calls on the same container are serialized.
type CachedContainerProvider struct {
	cfg   ContainerProviderConfig
	mu    sync.Mutex
	cache map[string]*containerEntry
}

type containerEntry struct {
	file *lif.File
	mu   sync.Mutex
}

const EnvDataDir = "LIFKIT_DATA_DIR"

var containerExts = []string{".lif", ".lof", ".xlif", ".xlef", ".xlcf"}

func NewCachedContainerProvider(cfg ContainerProviderConfig) *CachedContainerProvider {
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}
	return &CachedContainerProvider{
		cfg:   cfg,
		cache: make(map[string]*containerEntry),
	}
}

func (p *CachedContainerProvider) WithContainer(ctx context.Context, name string, fn func(f *lif.File) error) error {
	path, err := p.resolve(name)
	if err != nil {
		return err
	}
	entry, err := p.getOrOpen(path)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(entry.file)
}

func (p *CachedContainerProvider) getOrOpen(path string) (*containerEntry, error) {
	p.mu.Lock()
	entry, ok := p.cache[path]
	p.mu.Unlock()
	if ok {
		return entry, nil
	}

	f, err := lif.Open(path,
		lif.WithSqueeze(p.cfg.Squeeze),
		lif.WithLogger(p.cfg.Logger.With("file", filepath.Base(path))),
	)
	if err != nil {
		return nil, err
	}
	p.cfg.Logger.Debug("container opened", "path", path, "series", f.Series().Len())

	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.cache[path]; ok {
		_ = f.Close()
		return existing, nil
	}
	entry = &containerEntry{file: f}
	p.cache[path] = entry
	return entry, nil
}

// Close closes every cached container.
func (p *CachedContainerProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	for path, entry := range p.cache {
		entry.mu.Lock()
		errs = append(errs, entry.file.Close())
		entry.mu.Unlock()
		delete(p.cache, path)
	}
	return errors.Join(errs...)
}

// ListContainers returns the container file names found directly under
// the root directory, sorted.
func (p *CachedContainerProvider) ListContainers() ([]string, error) {
	root := p.root()
	if root == "" {
		return nil, fmt.Errorf("data directory is not configured (set %s)", EnvDataDir)
	}
	paths, err := DiscoverContainers(root)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(paths))
	for i, path := range paths {
		names[i] = filepath.Base(path)
	}
	return names, nil
}

func (p *CachedContainerProvider) resolve(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", newInvalidRequest("container name is required")
	}
	if name != filepath.Base(name) || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", newInvalidRequest(fmt.Sprintf("invalid container name %q", name))
	}
	root := p.root()
	if root == "" {
		return "", fmt.Errorf("data directory is not configured (set %s)", EnvDataDir)
	}
	path := filepath.Join(root, name)
	st, err := os.Stat(path)
	if err != nil || st.IsDir() || !IsContainerName(name) {
		return "", errContainerNotFound{name: name}
	}
	return path, nil
}

func (p *CachedContainerProvider) root() string {
	if strings.TrimSpace(p.cfg.Root) != "" {
		return strings.TrimSpace(p.cfg.Root)
	}
	return strings.TrimSpace(os.Getenv(EnvDataDir))
}

// IsContainerName reports whether name carries a known container extension.
func IsContainerName(name string) bool {
	return slices.Contains(containerExts, strings.ToLower(filepath.Ext(name)))
}

// DiscoverContainers lists container files directly under dir.
func DiscoverContainers(dir string) ([]string, error) {
	st, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("data path is not a directory: %s", dir)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() || !IsContainerName(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	slices.Sort(out)
	return out, nil
}
