package sandbox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSandbox_Glob(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	must(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	must(t, os.WriteFile(filepath.Join(root, "src", "main.go"), []byte("package main"), 0o644))
	must(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("# hi"), 0o644))

	s := newTestSandbox(t, root)
	out, err := s.Glob(GlobRequest{Pattern: "**/*.go"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "src/main.go") {
		t.Errorf("expected src/main.go in results, got %q", out)
	}
	if strings.Contains(out, "README.md") {
		t.Errorf("did not expect README.md in go-only glob: %q", out)
	}
}

func TestSandbox_Grep_InvalidRegexReturnsSentinel(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	s := newTestSandbox(t, root)
	out, err := s.Grep(GrepRequest{Pattern: "("})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out != "Invalid regex" {
		t.Errorf("got %q", out)
	}
}

func TestSandbox_Grep_FindsMatches(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	must(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello world\nfoo bar\n"), 0o644))
	s := newTestSandbox(t, root)

	out, err := s.Grep(GrepRequest{Pattern: "^hello"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "a.txt:1:") {
		t.Errorf("got %q", out)
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}
