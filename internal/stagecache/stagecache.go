package stagecache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ErrInvalidName rejects cache names that would escape the base directory.
var ErrInvalidName = errors.New("invalid cache name")

// Manager owns a set of named on-disk caches under one base directory. The
// pipeline stages each stage their scratch data in a named cache; the HTTP
// surface exposes inspection and eviction.
type Manager struct {
	baseDir string
	logger  *zap.Logger
}

// NewManager creates the base directory if needed.
func NewManager(baseDir string, logger *zap.Logger) (*Manager, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache base dir: %w", err)
	}
	return &Manager{
		baseDir: baseDir,
		logger:  logger.With(zap.String("component", "stage-cache")),
	}, nil
}

// Dir returns the path of a named cache, creating it on first use.
func (m *Manager) Dir(name string) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	path := filepath.Join(m.baseDir, name)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", fmt.Errorf("create cache %q: %w", name, err)
	}
	return path, nil
}

// List returns the existing cache names.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.baseDir)
	if err != nil {
		return nil, fmt.Errorf("list caches: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Size reports the total bytes held by one named cache.
func (m *Manager) Size(name string) (int64, error) {
	if err := validName(name); err != nil {
		return 0, err
	}
	var total int64
	root := filepath.Join(m.baseDir, name)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("size cache %q: %w", name, err)
	}
	return total, nil
}

// Sizes reports the byte totals of all caches.
func (m *Manager) Sizes() (map[string]int64, error) {
	names, err := m.List()
	if err != nil {
		return nil, err
	}
	sizes := make(map[string]int64, len(names))
	for _, name := range names {
		size, err := m.Size(name)
		if err != nil {
			return nil, err
		}
		sizes[name] = size
	}
	return sizes, nil
}

// Evict drops a named cache's contents. The cache directory itself survives
// so handles returned by Dir stay valid.
func (m *Manager) Evict(name string) error {
	if err := validName(name); err != nil {
		return err
	}
	root := filepath.Join(m.baseDir, name)
	if err := os.RemoveAll(root); err != nil {
		return fmt.Errorf("evict cache %q: %w", name, err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("recreate cache %q: %w", name, err)
	}
	m.logger.Info("cache evicted", zap.String("cache", name))
	return nil
}

// EvictAll drops every cache's contents.
func (m *Manager) EvictAll() error {
	names, err := m.List()
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := m.Evict(name); err != nil {
			return err
		}
	}
	return nil
}

func validName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
