package preflight

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"openbst/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckRawFile(t *testing.T) {
	dir := t.TempDir()
	small := filepath.Join(dir, "small.s7k")
	if err := os.WriteFile(small, []byte("short"), 0o644); err != nil {
		t.Fatal(err)
	}
	good := filepath.Join(dir, "good.s7k")
	if err := os.WriteFile(good, make([]byte, 128), 0o644); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		path string
		pass bool
	}{
		{good, true},
		{small, false},
		{dir, false},
		{filepath.Join(dir, "missing.s7k"), false},
	}
	for _, tc := range cases {
		if got := CheckRawFile("raw", tc.path); got.Passed != tc.pass {
			t.Errorf("CheckRawFile(%s) passed=%v, want %v (%s)", tc.path, got.Passed, tc.pass, got.Detail)
		}
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil, "")
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.ProjectDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()

	results := RunAll(context.Background(), &cfg, "")
	// Should have project + log directory checks
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Errorf("unexpected failures: %+v", failed)
	}
}

func TestRunAll_IncludesRawFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.ProjectDir = t.TempDir()
	cfg.Paths.LogDir = ""

	results := RunAll(context.Background(), &cfg, filepath.Join(t.TempDir(), "absent.s7k"))
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "Raw file" {
		t.Fatalf("expected only the raw file check to fail, got %+v", failed)
	}
}
