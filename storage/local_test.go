package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestManager(t *testing.T) (*LocalManager, string) {
	t.Helper()

	dir := t.TempDir()
	m, err := NewLocalManager(func(o *LocalManagerOptions) {
		o.ConfigFile = filepath.Join(dir, "storage_config.json")
		o.BaseDir = dir
	})
	if err != nil {
		t.Fatalf("NewLocalManager failed: %v", err)
	}

	return m, dir
}

func TestNewLocalManager_SeedsDefaults(t *testing.T) {
	m, dir := newTestManager(t)

	if _, err := os.Stat(filepath.Join(dir, "storage_config.json")); err != nil {
		t.Fatalf("expected config file to be created: %v", err)
	}

	for _, category := range Categories() {
		p, err := m.Path(category)
		if err != nil {
			t.Fatalf("Path(%s) failed: %v", category, err)
		}

		info, err := os.Stat(p)
		if err != nil {
			t.Fatalf("default dir for %s missing: %v", category, err)
		}
		if !info.IsDir() {
			t.Errorf("default path for %s is not a directory", category)
		}
	}
}

func TestLocalManager_ConfigureOverridesDefaults(t *testing.T) {
	m, _ := newTestManager(t)

	out := t.TempDir()
	mid := t.TempDir()
	know := t.TempDir()

	if err := m.Configure(out, mid, know); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	got, err := m.Path(CategoryOutput)
	if err != nil {
		t.Fatalf("Path(output) failed: %v", err)
	}
	if got != out {
		t.Errorf("expected output path %q, got %q", out, got)
	}

	got, err = m.Path(CategoryKnowledge)
	if err != nil {
		t.Fatalf("Path(knowledge) failed: %v", err)
	}
	if got != know {
		t.Errorf("expected knowledge path %q, got %q", know, got)
	}
}

func TestLocalManager_MissingCategoryEntry(t *testing.T) {
	m, dir := newTestManager(t)

	// Drop the knowledge entry from the persisted config.
	config := []byte(`{"output": "` + dir + `", "intermediate": "` + dir + `"}`)
	if err := os.WriteFile(filepath.Join(dir, "storage_config.json"), config, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := m.Path(CategoryKnowledge)
	var catErr *CategoryError
	if !errors.As(err, &catErr) {
		t.Fatalf("expected *CategoryError, got %v", err)
	}
	if catErr.Category != CategoryKnowledge {
		t.Errorf("expected category knowledge, got %s", catErr.Category)
	}
}

func TestLocalManager_VanishedPath(t *testing.T) {
	m, _ := newTestManager(t)

	gone := filepath.Join(t.TempDir(), "will-vanish")
	if err := os.MkdirAll(gone, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := m.Configure(gone, gone, gone); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if err := os.RemoveAll(gone); err != nil {
		t.Fatalf("remove: %v", err)
	}

	_, err := m.Path(CategoryOutput)
	var pathErr *PathError
	if !errors.As(err, &pathErr) {
		t.Fatalf("expected *PathError, got %v", err)
	}
	if pathErr.Path != gone {
		t.Errorf("expected path %q in error, got %q", gone, pathErr.Path)
	}
}

func TestLocalManager_ExternalConfigEditTakesEffect(t *testing.T) {
	m, dir := newTestManager(t)

	replacement := t.TempDir()
	config := []byte(`{"output": "` + replacement + `", "intermediate": "` + replacement + `", "knowledge": "` + replacement + `"}`)
	if err := os.WriteFile(filepath.Join(dir, "storage_config.json"), config, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	got, err := m.Path(CategoryOutput)
	if err != nil {
		t.Fatalf("Path(output) failed: %v", err)
	}
	if got != replacement {
		t.Errorf("expected externally edited path %q, got %q", replacement, got)
	}
}
