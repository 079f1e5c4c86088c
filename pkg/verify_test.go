package dirchecker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exampleTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.txt":     "hi",
		"sub/b.txt": "bye",
	})
	return root
}

func mustVerify(t *testing.T, checker *DirectoryChecker, idx *Index, root string) *Diff {
	t.Helper()
	diff, err := checker.Verify(context.Background(), idx, root)
	require.NoError(t, err)
	return diff
}

func TestVerifyIdempotent(t *testing.T) {
	root := exampleTree(t)
	checker := newTestChecker(t, nil)
	idx := mustIndex(t, checker, root)

	for i := 0; i < 3; i++ {
		valid, err := checker.IsIndexValid(context.Background(), idx, root)
		require.NoError(t, err)
		assert.True(t, valid, "pass %d", i)
	}

	diff := mustVerify(t, checker, idx, root)
	assert.Equal(t, 0, diff.TotalChanges())
	assert.False(t, diff.HasChanges())
}

func TestVerifyDetectsSameSizeModification(t *testing.T) {
	root := exampleTree(t)
	checker := newTestChecker(t, nil)
	idx := mustIndex(t, checker, root)

	// Same length, different bytes
	writeTree(t, root, map[string]string{"a.txt": "ho"})

	valid, err := checker.IsIndexValid(context.Background(), idx, root)
	require.NoError(t, err)
	assert.False(t, valid)

	diff := mustVerify(t, checker, idx, root)
	assert.Equal(t, []string{"a.txt"}, diff.Modified)
	assert.Empty(t, diff.Added)
	assert.Empty(t, diff.Removed)
}

func TestVerifyDetectsAddition(t *testing.T) {
	root := exampleTree(t)
	checker := newTestChecker(t, nil)
	idx := mustIndex(t, checker, root)

	writeTree(t, root, map[string]string{
		"c.txt":         "new",
		"deep/er/d.txt": "newer",
	})

	diff := mustVerify(t, checker, idx, root)
	assert.False(t, diff.Valid())
	assert.Equal(t, []string{"c.txt", "deep/er/d.txt"}, diff.Added)
	assert.Empty(t, diff.Modified)
}

func TestVerifyDetectsDeletion(t *testing.T) {
	root := exampleTree(t)
	checker := newTestChecker(t, nil)
	idx := mustIndex(t, checker, root)

	require.NoError(t, os.Remove(filepath.Join(root, "sub", "b.txt")))

	valid, err := checker.IsIndexValid(context.Background(), idx, root)
	require.NoError(t, err)
	assert.False(t, valid)

	diff := mustVerify(t, checker, idx, root)
	assert.Equal(t, []string{"sub/b.txt"}, diff.Removed)
	assert.Empty(t, diff.Added)
}

func TestVerifyFileReplacedByDirectory(t *testing.T) {
	root := exampleTree(t)
	checker := newTestChecker(t, nil)
	idx := mustIndex(t, checker, root)

	require.NoError(t, os.Remove(filepath.Join(root, "a.txt")))
	writeTree(t, root, map[string]string{"a.txt/inner": "moved"})

	diff := mustVerify(t, checker, idx, root)
	assert.Equal(t, []string{"a.txt"}, diff.Removed)
	assert.Equal(t, []string{"a.txt/inner"}, diff.Added)
}

func TestVerifyTouched(t *testing.T) {
	root := exampleTree(t)
	checker := newTestChecker(t, nil)
	idx := mustIndex(t, checker, root)

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(root, "a.txt"), past, past))

	diff := mustVerify(t, checker, idx, root)
	assert.Equal(t, []string{"a.txt"}, diff.Touched)
	assert.Empty(t, diff.Modified)
	assert.False(t, diff.Valid(), "an mtime change alone invalidates the index")
}

func TestVerifyMetadataFastPath(t *testing.T) {
	root := exampleTree(t)
	path := filepath.Join(root, "a.txt")

	fast := newTestChecker(t, func(o *Options) { o.ForceFullHash = false })
	full := newTestChecker(t, nil)
	idx := mustIndex(t, fast, root)

	info, err := os.Stat(path)
	require.NoError(t, err)
	writeTree(t, root, map[string]string{"a.txt": "ho"})
	require.NoError(t, os.Chtimes(path, info.ModTime(), info.ModTime()))

	// Size and mtime are unchanged, so the fast path trusts the metadata
	diff := mustVerify(t, fast, idx, root)
	assert.True(t, diff.Valid())

	diff = mustVerify(t, full, idx, root)
	assert.Equal(t, []string{"a.txt"}, diff.Modified)

	// A metadata change still triggers a rehash on the fast path
	later := info.ModTime().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))
	diff = mustVerify(t, fast, idx, root)
	assert.Equal(t, []string{"a.txt"}, diff.Modified)
}

func TestVerifyUsesIndexPolicy(t *testing.T) {
	root := exampleTree(t)
	writeTree(t, root, map[string]string{".env": "secret"})

	builder := newTestChecker(t, func(o *Options) {
		o.Policy.IncludeHidden = false
		o.Policy.HashAlgorithm = "sha1"
	})
	idx := mustIndex(t, builder, root)
	require.Equal(t, 2, idx.Len())

	// The default checker includes hidden files and uses sha256, but the
	// index's own policy decides how the tree is walked and hashed
	diff := mustVerify(t, newTestChecker(t, nil), idx, root)
	assert.True(t, diff.Valid(), "unexpected diff: %+v", diff)
}

func TestVerifyUnreadableFile(t *testing.T) {
	skipIfRoot(t)
	root := exampleTree(t)
	checker := newTestChecker(t, func(o *Options) { o.Strict = true })
	idx := mustIndex(t, checker, root)

	path := filepath.Join(root, "a.txt")
	require.NoError(t, os.Chmod(path, 0))
	t.Cleanup(func() { os.Chmod(path, 0644) })

	// Strictness only applies to indexing; verification reports the file
	diff := mustVerify(t, checker, idx, root)
	require.Len(t, diff.Unreadable, 1)
	assert.Equal(t, "a.txt", diff.Unreadable[0].Path)
	assert.False(t, diff.Valid())
}

func TestVerifyErrors(t *testing.T) {
	root := exampleTree(t)
	checker := newTestChecker(t, nil)
	idx := mustIndex(t, checker, root)

	_, err := checker.Verify(context.Background(), nil, root)
	assert.True(t, errors.Is(err, ErrNilIndex))

	_, err = checker.IsIndexValid(context.Background(), idx, filepath.Join(root, "gone"))
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)

	_, err = checker.IsIndexValid(context.Background(), idx, filepath.Join(root, "a.txt"))
	assert.True(t, errors.Is(err, ErrNotADirectory), "got %v", err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = checker.Verify(ctx, idx, root)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestVerifyLoadedIndex(t *testing.T) {
	root := exampleTree(t)
	checker := newTestChecker(t, nil)
	indexPath := filepath.Join(t.TempDir(), "tree.idx")

	require.NoError(t, WriteIndexFile(mustIndex(t, checker, root), indexPath))
	loaded, err := ReadIndexFile(indexPath)
	require.NoError(t, err)

	valid, err := checker.IsIndexValid(context.Background(), loaded, root)
	require.NoError(t, err)
	assert.True(t, valid)

	writeTree(t, root, map[string]string{"sub/b.txt": "BYE"})
	valid, err = checker.IsIndexValid(context.Background(), loaded, root)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestDiffForEach(t *testing.T) {
	diff := &Diff{
		Added:      []string{"b", "d"},
		Removed:    []string{"a"},
		Modified:   []string{"c"},
		Touched:    []string{"e"},
		Unreadable: []SkippedEntry{{Path: "f", Reason: "permission denied"}},
	}

	var got []string
	diff.ForEach(func(status FileStatus, path string) {
		got = append(got, status.String()+":"+path)
	})

	assert.Equal(t, []string{
		"removed:a", "added:b", "modified:c", "added:d", "touched:e", "unreadable:f",
	}, got)
	assert.Equal(t, 6, diff.TotalChanges())
}

func TestFileStatusString(t *testing.T) {
	tests := []struct {
		status   FileStatus
		expected string
	}{
		{StatusUnchanged, "unchanged"},
		{StatusModified, "modified"},
		{StatusAdded, "added"},
		{StatusRemoved, "removed"},
		{StatusTouched, "touched"},
		{StatusUnreadable, "unreadable"},
		{FileStatus(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.status.String(); got != tt.expected {
			t.Errorf("FileStatus(%d).String() = %q, want %q", tt.status, got, tt.expected)
		}
	}
}
