package scan

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"astscope/internal/lang"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func testWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	writeFile(t, dir, "greeter.go", `package main

// Greeter greets people
type Greeter struct {
	Greeting string
}

// Greet returns a greeting
func (g *Greeter) Greet(name string) string {
	return g.Greeting + ", " + name + "!"
}
`)
	writeFile(t, dir, "util.py", `def helper(x):
    """Help with x."""
    return x
`)
	writeFile(t, dir, "README.md", "# not parseable\n")
	writeFile(t, dir, filepath.Join("vendor", "dep.go"), "package dep\n\nfunc Hidden() {}\n")

	return dir
}

func TestScanner_Scan(t *testing.T) {
	dir := testWorkspace(t)

	cfg := DefaultConfig()
	cfg.Workers = 2
	s := NewScanner(lang.DefaultRegistry(), cfg)

	report, err := s.Scan(context.Background(), dir)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if report.ID == "" {
		t.Error("expected non-empty report ID")
	}
	if report.FileCount != 2 {
		t.Errorf("FileCount = %d, want 2", report.FileCount)
	}
	if report.ByLanguage["go"] != 1 || report.ByLanguage["py"] != 1 {
		t.Errorf("ByLanguage = %v", report.ByLanguage)
	}
	if len(report.Elements) == 0 {
		t.Fatal("expected elements")
	}
	if len(report.Facts) == 0 {
		t.Fatal("expected facts")
	}
	if len(report.Errors) != 0 {
		t.Errorf("unexpected errors: %v", report.Errors)
	}

	// vendor/ is ignored by default.
	for _, e := range report.Elements {
		if filepath.Base(filepath.Dir(e.File)) == "vendor" {
			t.Errorf("vendored file was scanned: %s", e.File)
		}
	}
}

func TestScanner_DeterministicOrder(t *testing.T) {
	dir := testWorkspace(t)
	s := NewScanner(lang.DefaultRegistry(), DefaultConfig())

	first, err := s.Scan(context.Background(), dir)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	second, err := s.Scan(context.Background(), dir)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if diff := cmp.Diff(first.Elements, second.Elements); diff != "" {
		t.Fatalf("scan results differ between runs (-first +second):\n%s", diff)
	}
}

func TestScanner_RecordsParseErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.go", "func {")
	writeFile(t, dir, "ok.go", "package ok\n\nfunc Fine() {}\n")

	s := NewScanner(lang.DefaultRegistry(), DefaultConfig())
	report, err := s.Scan(context.Background(), dir)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if len(report.Errors) != 1 {
		t.Fatalf("Errors = %d, want 1", len(report.Errors))
	}
	if filepath.Base(report.Errors[0].Path) != "broken.go" {
		t.Errorf("error path = %s", report.Errors[0].Path)
	}
	// The good file still got parsed.
	if report.FileCount != 1 {
		t.Errorf("FileCount = %d, want 1", report.FileCount)
	}
}

func TestScanner_ContextCancellation(t *testing.T) {
	dir := testWorkspace(t)
	s := NewScanner(lang.DefaultRegistry(), DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Scan(ctx, dir); err == nil {
		t.Error("expected error from cancelled context")
	}
}

func TestIsIgnored(t *testing.T) {
	patterns := []string{".git", "node_modules", "gen/*"}

	tests := []struct {
		rel  string
		name string
		want bool
	}{
		{".git", ".git", true},
		{"src/main.go", "main.go", false},
		{"node_modules/pkg/index.js", "index.js", true},
		{"gen/out.go", "out.go", true},
		{"generate.go", "generate.go", false},
	}
	for _, tt := range tests {
		if got := IsIgnored(tt.rel, tt.name, patterns); got != tt.want {
			t.Errorf("IsIgnored(%q) = %v, want %v", tt.rel, got, tt.want)
		}
	}
}
