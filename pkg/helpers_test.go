package dirchecker

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

// writeTree creates files (relative path -> content) under root
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for relPath, content := range files {
		fullPath := filepath.Join(root, filepath.FromSlash(relPath))
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			t.Fatalf("Failed to create directory for %s: %v", relPath, err)
		}
		if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to create %s: %v", relPath, err)
		}
	}
}

// newTestChecker returns a checker with small buffers so multi-read hashing is exercised
func newTestChecker(t *testing.T, mutate func(*Options)) *DirectoryChecker {
	t.Helper()
	opts := DefaultOptions()
	opts.HashWorkers = 4
	opts.HashBuffer = 512
	if mutate != nil {
		mutate(&opts)
	}
	checker, err := NewDirectoryChecker(opts)
	if err != nil {
		t.Fatalf("NewDirectoryChecker failed: %v", err)
	}
	return checker
}

// mustIndex indexes root or fails the test
func mustIndex(t *testing.T, checker *DirectoryChecker, root string) *Index {
	t.Helper()
	idx, err := checker.CreateIndex(context.Background(), root)
	if err != nil {
		t.Fatalf("CreateIndex(%s) failed: %v", root, err)
	}
	return idx
}

// serialised returns the persisted form of idx
func serialised(t *testing.T, idx *Index) string {
	t.Helper()
	var buf bytes.Buffer
	if _, err := idx.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	return buf.String()
}

func skipIfRoot(t *testing.T) {
	t.Helper()
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
}
