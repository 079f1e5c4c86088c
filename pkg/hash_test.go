package dirchecker

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestGetHashAlgorithm(t *testing.T) {
	tests := []struct {
		name   string
		typeID uint16
		size   int
	}{
		{"sha1", HashTypeSHA1, HashSizeSHA1},
		{"sha256", HashTypeSHA256, HashSizeSHA256},
		{"SHA512", HashTypeSHA512, HashSizeSHA512},
	}

	for _, tt := range tests {
		alg, err := GetHashAlgorithm(tt.name)
		if err != nil {
			t.Errorf("GetHashAlgorithm(%q) failed: %v", tt.name, err)
			continue
		}
		if alg.TypeID != tt.typeID || alg.Size != tt.size {
			t.Errorf("GetHashAlgorithm(%q) = %+v", tt.name, alg)
		}
		if got := len(alg.NewFunc().Sum(nil)); got != tt.size {
			t.Errorf("%s produced %d byte digests, want %d", tt.name, got, tt.size)
		}

		byType, err := GetHashAlgorithmByType(tt.typeID)
		if err != nil || byType.TypeID != tt.typeID {
			t.Errorf("GetHashAlgorithmByType(%d) = %+v, %v", tt.typeID, byType, err)
		}
	}

	if _, err := GetHashAlgorithm("crc32"); err == nil {
		t.Error("Expected error for unsupported algorithm")
	}
	if _, err := GetHashAlgorithmByType(99); err == nil {
		t.Error("Expected error for unsupported type ID")
	}
}

func TestHashFileInterruptible(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	data := bytes.Repeat([]byte("0123456789abcdef"), 4096+3)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	alg, _ := GetHashAlgorithm("sha256")
	expected := sha256Hex(string(data))

	for _, bufSize := range []int{1, 512, 4096, len(data) * 2} {
		digest, n, err := HashFileInterruptible(context.Background(), path, alg, make([]byte, bufSize))
		if err != nil {
			t.Fatalf("HashFileInterruptible with %d byte buffer failed: %v", bufSize, err)
		}
		if n != int64(len(data)) {
			t.Errorf("buffer %d: read %d bytes, want %d", bufSize, n, len(data))
		}
		if got := hex.EncodeToString(digest); got != expected {
			t.Errorf("buffer %d: digest %s, want %s", bufSize, got, expected)
		}
	}
}

func TestHashFileInterruptibleCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	if err := os.WriteFile(path, []byte("content"), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	alg, _ := GetHashAlgorithm("sha256")
	_, _, err := HashFileInterruptible(ctx, path, alg, make([]byte, 512))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestHashFileMissing(t *testing.T) {
	alg, _ := GetHashAlgorithm("sha1")
	missing := filepath.Join(t.TempDir(), "missing")

	if _, _, err := HashFileInterruptible(context.Background(), missing, alg, make([]byte, 512)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected not-exist error, got %v", err)
	}
}

func TestHashManagerResults(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a": "alpha", "b": "beta", "c": "gamma"})

	alg, _ := GetHashAlgorithm("sha256")
	ctx := context.Background()
	manager := newHashManager(ctx, 2, alg, 512)

	aInfo, err := os.Stat(filepath.Join(root, "a"))
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}

	go func() {
		defer manager.FinishSubmitting()
		for _, name := range []string{"a", "b", "c", "missing"} {
			abs := filepath.Join(root, name)
			info := aInfo
			if fi, err := os.Stat(abs); err == nil {
				info = fi
			}
			manager.Submit(ctx, &scannedPath{AbsPath: abs, RelPath: name, Info: info}, nil)
		}
	}()

	got := map[string]string{}
	failed := map[string]bool{}
	for result := range manager.Results() {
		if result.Err != nil {
			failed[result.Job.Path.RelPath] = true
			continue
		}
		got[result.Record.RelativePath] = result.Record.HashString()
	}

	if len(got) != 3 || !failed["missing"] {
		t.Fatalf("unexpected results: got=%v failed=%v", got, failed)
	}
	if got["b"] != sha256Hex("beta") {
		t.Errorf("wrong digest for b: %s", got["b"])
	}
}

func TestHashWorkerDetectsSizeChange(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"grow": "short"})
	abs := filepath.Join(root, "grow")
	info, err := os.Stat(abs)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	// The file grows between the walk's stat and the hash
	writeTree(t, root, map[string]string{"grow": "much longer now"})

	alg, _ := GetHashAlgorithm("sha256")
	manager := newHashManager(context.Background(), 1, alg, 512)
	manager.Submit(context.Background(), &scannedPath{AbsPath: abs, RelPath: "grow", Info: info}, nil)
	manager.FinishSubmitting()

	result := <-manager.Results()
	if result == nil || result.Err == nil {
		t.Fatalf("Expected a changed-while-reading error, got %+v", result)
	}
	for range manager.Results() {
	}
}
