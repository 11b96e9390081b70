package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Category names one of the storage roots a Manager resolves.
type Category string

const (
	CategoryOutput       Category = "output"
	CategoryIntermediate Category = "intermediate"
	CategoryKnowledge    Category = "knowledge"
)

// Categories returns all storage categories in route registration order.
func Categories() []Category {
	return []Category{CategoryOutput, CategoryIntermediate, CategoryKnowledge}
}

// CategoryError indicates the active configuration has no path entry for a
// category. Surfaces as a client error: the configuration must be fixed
// before the category is usable.
type CategoryError struct {
	Category Category
}

func (e *CategoryError) Error() string {
	return fmt.Sprintf("category %s missing from storage config", e.Category)
}

// PathError indicates a configured path no longer exists on disk.
type PathError struct {
	Category Category
	Path     string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("path for %s not found at: %s", e.Category, e.Path)
}

// Manager resolves storage categories to directories.
type Manager interface {
	// Configure replaces the path mapping for all three categories.
	Configure(output, intermediate, knowledge string) error

	// Path resolves a category to its configured directory. It fails with
	// *CategoryError when the mapping has no entry and *PathError when the
	// mapped directory does not exist.
	Path(category Category) (string, error)
}

// LocalManagerOptions configures a LocalManager.
type LocalManagerOptions struct {
	// ConfigFile is where the category-to-path mapping is persisted.
	ConfigFile string

	// BaseDir anchors the default category paths created on first use.
	BaseDir string
}

// LocalManager is a Manager backed by the local filesystem. The mapping is
// persisted as JSON and re-read on every lookup, so external edits to the
// config file take effect without a restart. Safe for concurrent use.
type LocalManager struct {
	mu         sync.Mutex
	configFile string
}

// NewLocalManager creates a LocalManager, writing a default config and
// creating the default directories if no config file exists yet.
func NewLocalManager(optFns ...func(o *LocalManagerOptions)) (*LocalManager, error) {
	opts := LocalManagerOptions{
		ConfigFile: "storage_config.json",
		BaseDir:    ".",
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	m := &LocalManager{configFile: opts.ConfigFile}
	if err := m.ensureDefaults(opts.BaseDir); err != nil {
		return nil, err
	}

	return m, nil
}

// ensureDefaults seeds the config file and default directories when the
// manager runs for the first time.
func (m *LocalManager) ensureDefaults(baseDir string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := os.Stat(m.configFile); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat storage config: %w", err)
	}

	defaults := map[Category]string{
		CategoryOutput:       filepath.Join(baseDir, ".botgate", "output", "final"),
		CategoryIntermediate: filepath.Join(baseDir, ".botgate", "output", "intermediate"),
		CategoryKnowledge:    filepath.Join(baseDir, "data", "knowledge"),
	}

	for _, dir := range defaults {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create default storage dir: %w", err)
		}
	}

	return m.saveLocked(defaults)
}

// Configure replaces the mapping with absolute forms of the given paths.
func (m *LocalManager) Configure(output, intermediate, knowledge string) error {
	paths := map[Category]string{}
	for category, p := range map[Category]string{
		CategoryOutput:       output,
		CategoryIntermediate: intermediate,
		CategoryKnowledge:    knowledge,
	} {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("resolve %s path: %w", category, err)
		}
		paths[category] = abs
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return m.saveLocked(paths)
}

// Path resolves a category against the persisted mapping.
func (m *LocalManager) Path(category Category) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.configFile)
	if err != nil {
		return "", fmt.Errorf("read storage config: %w", err)
	}

	var config map[Category]string
	if err := json.Unmarshal(data, &config); err != nil {
		return "", fmt.Errorf("parse storage config: %w", err)
	}

	path, ok := config[category]
	if !ok || path == "" {
		return "", &CategoryError{Category: category}
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", &PathError{Category: category, Path: path}
		}
		return "", fmt.Errorf("stat %s path: %w", category, err)
	}

	return path, nil
}

// saveLocked persists the mapping; caller must hold the mutex.
func (m *LocalManager) saveLocked(paths map[Category]string) error {
	data, err := json.MarshalIndent(paths, "", "  ")
	if err != nil {
		return fmt.Errorf("encode storage config: %w", err)
	}

	if err := os.WriteFile(m.configFile, data, 0o644); err != nil {
		return fmt.Errorf("write storage config: %w", err)
	}

	return nil
}
