package dirchecker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestPackageLevelAPI(t *testing.T) {
	tempDir := t.TempDir()
	writeTree(t, tempDir, map[string]string{
		"a.txt":     "hi",
		"sub/b.txt": "bye",
	})
	ctx := context.Background()

	idx, err := CreateIndex(ctx, tempDir)
	if err != nil {
		t.Fatalf("CreateIndex failed: %v", err)
	}
	if idx.Len() != 2 {
		t.Fatalf("Expected 2 files in index, got %d", idx.Len())
	}

	valid, err := IsIndexValid(ctx, idx, tempDir)
	if err != nil {
		t.Fatalf("IsIndexValid failed: %v", err)
	}
	if !valid {
		t.Error("Expected unchanged tree to be valid")
	}

	if err := os.Remove(filepath.Join(tempDir, "sub", "b.txt")); err != nil {
		t.Fatalf("Failed to remove file: %v", err)
	}
	valid, err = IsIndexValid(ctx, idx, tempDir)
	if err != nil {
		t.Fatalf("IsIndexValid failed: %v", err)
	}
	if valid {
		t.Error("Expected tree with a deleted file to be invalid")
	}
}

func TestInitDebugFlags(t *testing.T) {
	defer SetDebugFlags("")

	InitDebugFlags("")
	if IsDebugEnabled(DebugScan) {
		t.Error("Empty flags must not enable anything")
	}

	InitDebugFlags("scan")
	if !IsDebugEnabled(DebugScan) {
		t.Error("Expected scan debug flag to be enabled")
	}
}
