package dirchecker

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestIgnoreManagerPatterns(t *testing.T) {
	root := t.TempDir()
	policy := DefaultPolicy()
	policy.IncludeHidden = false
	policy.Exclude = []string{"*.tmp", "build/**", "docs/*.md"}

	im, err := NewIgnoreManager(root, policy)
	if err != nil {
		t.Fatalf("NewIgnoreManager failed: %v", err)
	}
	if !im.HasPatterns() {
		t.Error("Expected HasPatterns to be true")
	}

	tests := []struct {
		path   string
		isDir  bool
		ignore bool
	}{
		{"a.txt", false, false},
		{"a.tmp", false, true},
		{"deep/nested/b.tmp", false, true},
		{"build/out.o", false, true},
		{"build/sub/out.o", false, true},
		{"docs/readme.md", false, true},
		{"docs/sub/readme.md", false, false},
		{".env", false, true},
		{".git", true, true},
		{"src/.cache", true, true},
		{"src/main.go", false, false},
	}

	for _, tt := range tests {
		if got := im.ShouldIgnore(tt.path, tt.isDir); got != tt.ignore {
			t.Errorf("ShouldIgnore(%q, %v) = %v, want %v", tt.path, tt.isDir, got, tt.ignore)
		}
	}
}

func TestIgnoreManagerHiddenIncluded(t *testing.T) {
	im, err := NewIgnoreManager(t.TempDir(), DefaultPolicy())
	if err != nil {
		t.Fatalf("NewIgnoreManager failed: %v", err)
	}
	if im.HasPatterns() {
		t.Error("Expected no patterns for the default policy")
	}
	for _, p := range []string{".env", ".git", "a/.b/c"} {
		if im.ShouldIgnore(p, false) {
			t.Errorf("Expected %q to be included when hidden files are included", p)
		}
	}
}

func TestIgnoreManagerIgnoreFile(t *testing.T) {
	root := t.TempDir()
	content := "# generated output\nbuild/\n*.log\n!keep.log\n"
	if err := os.WriteFile(filepath.Join(root, ".dircheckignore"), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write ignore file: %v", err)
	}

	policy := DefaultPolicy()
	policy.IgnoreFile = ".dircheckignore"
	im, err := NewIgnoreManager(root, policy)
	if err != nil {
		t.Fatalf("NewIgnoreManager failed: %v", err)
	}

	tests := []struct {
		path   string
		isDir  bool
		ignore bool
	}{
		{"build", true, true},
		{"src/build", true, true},
		{"app.log", false, true},
		{"keep.log", false, false},
		{"main.go", false, false},
	}
	for _, tt := range tests {
		if got := im.ShouldIgnore(tt.path, tt.isDir); got != tt.ignore {
			t.Errorf("ShouldIgnore(%q, %v) = %v, want %v", tt.path, tt.isDir, got, tt.ignore)
		}
	}
}

func TestIgnoreManagerMissingIgnoreFile(t *testing.T) {
	policy := DefaultPolicy()
	policy.IgnoreFile = ".nothere"
	im, err := NewIgnoreManager(t.TempDir(), policy)
	if err != nil {
		t.Fatalf("Missing ignore file should not be an error: %v", err)
	}
	if im.HasPatterns() {
		t.Error("Expected no patterns when the ignore file is missing")
	}
}

func TestValidatePattern(t *testing.T) {
	tests := []struct {
		pattern string
		valid   bool
	}{
		{"*.go", true},
		{"**/vendor/**", true},
		{"{a,b}.txt", true},
		{"", false},
		{"[abc", false},
	}
	for _, tt := range tests {
		err := ValidatePattern(tt.pattern)
		if (err == nil) != tt.valid {
			t.Errorf("ValidatePattern(%q) error = %v, want valid=%v", tt.pattern, err, tt.valid)
		}
	}
}

func TestSplitPatterns(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"", nil},
		{"*.tmp", []string{"*.tmp"}},
		{"*.tmp, build/**", []string{"*.tmp", "build/**"}},
		{"{build,dist}/**", []string{"{build,dist}/**"}},
		{"*.o,{a,{b,c}}.txt, ,x", []string{"*.o", "{a,{b,c}}.txt", "x"}},
		{`a\,b,c`, []string{`a\,b`, "c"}},
	}
	for _, tt := range tests {
		if got := SplitPatterns(tt.input); !reflect.DeepEqual(got, tt.expected) {
			t.Errorf("SplitPatterns(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
