package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func resetState() {
	Close()
	loggersMu.Lock()
	loggers = make(map[Category]*Logger)
	loggersMu.Unlock()
	logsDir = ""
	workspace = ""
	configLoaded = false
	config = loggingConfig{}
}

func writeConfig(t *testing.T, ws, content string) {
	t.Helper()
	dir := filepath.Join(ws, ".astscope")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
}

func TestAllCategoriesLog(t *testing.T) {
	resetState()
	ws := t.TempDir()
	writeConfig(t, ws, `
logging:
  debug_mode: true
  level: debug
  categories:
    boot: true
    scan: true
    parse: true
    rules: true
    index: true
    watch: true
`)

	if err := Initialize(ws); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer resetState()

	categories := []Category{CategoryBoot, CategoryScan, CategoryParse, CategoryRules, CategoryIndex, CategoryWatch}
	for _, cat := range categories {
		Get(cat).Info("test message for %s", cat)
	}
	Close()

	entries, err := os.ReadDir(filepath.Join(ws, ".astscope", "logs"))
	if err != nil {
		t.Fatalf("Failed to read logs dir: %v", err)
	}

	found := make(map[string]bool)
	for _, e := range entries {
		for _, cat := range categories {
			if strings.Contains(e.Name(), string(cat)) {
				found[string(cat)] = true
			}
		}
	}
	for _, cat := range categories {
		if !found[string(cat)] {
			t.Errorf("No log file created for category %s", cat)
		}
	}
}

func TestProductionModeIsSilent(t *testing.T) {
	resetState()
	ws := t.TempDir()
	// No config file at all: debug off.
	if err := Initialize(ws); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer resetState()

	Get(CategoryScan).Info("should not be written")
	Scan("neither should this")
	Close()

	if _, err := os.Stat(filepath.Join(ws, ".astscope", "logs")); !os.IsNotExist(err) {
		t.Error("Logs directory should not exist in production mode")
	}
}

func TestDisabledCategoryIsSkipped(t *testing.T) {
	resetState()
	ws := t.TempDir()
	writeConfig(t, ws, `
logging:
  debug_mode: true
  level: debug
  categories:
    scan: true
    watch: false
`)

	if err := Initialize(ws); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer resetState()

	if !IsCategoryEnabled(CategoryScan) {
		t.Error("scan category should be enabled")
	}
	if IsCategoryEnabled(CategoryWatch) {
		t.Error("watch category should be disabled")
	}
}

func TestInitializeRequiresWorkspace(t *testing.T) {
	resetState()
	if err := Initialize(""); err == nil {
		t.Error("Initialize with empty workspace should fail")
	}
}
