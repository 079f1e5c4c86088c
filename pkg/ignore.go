package dirchecker

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/denormal/go-gitignore"
)

// IgnoreManager decides which walked paths are left out of an index.
// It combines the hidden-file policy, doublestar exclude globs and an optional
// gitignore-syntax file at the root.
type IgnoreManager struct {
	rootDir       string
	includeHidden bool
	patterns      []string
	ignoreFile    gitignore.GitIgnore
}

// NewIgnoreManager builds the matcher for rootDir under policy.
// A missing ignore file is not an error; an unreadable one is.
func NewIgnoreManager(rootDir string, policy Policy) (*IgnoreManager, error) {
	im := &IgnoreManager{
		rootDir:       rootDir,
		includeHidden: policy.IncludeHidden,
	}

	for _, pattern := range policy.Exclude {
		if err := ValidatePattern(pattern); err != nil {
			return nil, err
		}
		im.patterns = append(im.patterns, pattern)
	}

	if policy.IgnoreFile != "" {
		gi, err := loadIgnoreFile(filepath.Join(rootDir, policy.IgnoreFile), rootDir)
		if err != nil {
			return nil, err
		}
		im.ignoreFile = gi
	}

	return im, nil
}

// ShouldIgnore reports whether relativePath (forward slashes) is excluded
func (im *IgnoreManager) ShouldIgnore(relativePath string, isDir bool) bool {
	if !im.includeHidden && isHidden(path.Base(relativePath)) {
		return true
	}

	for _, pattern := range im.patterns {
		if matched, _ := doublestar.Match(pattern, relativePath); matched {
			return true
		}
		// Patterns without a slash also match on the base name, like gitignore
		if !strings.Contains(pattern, "/") {
			if matched, _ := doublestar.Match(pattern, path.Base(relativePath)); matched {
				return true
			}
		}
	}

	if im.ignoreFile != nil {
		if match := im.ignoreFile.Relative(relativePath, isDir); match != nil && match.Ignore() {
			return true
		}
	}

	return false
}

// HasPatterns reports whether any exclusion beyond the hidden policy is active
func (im *IgnoreManager) HasPatterns() bool {
	return len(im.patterns) > 0 || im.ignoreFile != nil
}

// ValidatePattern checks a doublestar exclude pattern
func ValidatePattern(pattern string) error {
	if pattern == "" || !doublestar.ValidatePattern(pattern) {
		return fmt.Errorf("invalid exclude pattern: %q", pattern)
	}
	return nil
}

// SplitPatterns splits a comma separated pattern list, keeping commas inside
// {a,b} alternations with their pattern. Blank items are dropped.
func SplitPatterns(s string) []string {
	var out []string
	depth, start := 0, 0
	flush := func(end int) {
		if item := strings.TrimSpace(s[start:end]); item != "" {
			out = append(out, item)
		}
	}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				flush(i)
				start = i + 1
			}
		}
	}
	flush(len(s))
	return out
}

// loadIgnoreFile parses a gitignore-syntax file. Returns nil, nil when it does not exist.
func loadIgnoreFile(filePath string, baseDir string) (gitignore.GitIgnore, error) {
	f, err := os.Open(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open ignore file %s: %w", filePath, err)
	}
	defer f.Close()

	var parseErr error
	gi := gitignore.New(f, baseDir, func(e gitignore.Error) bool {
		parseErr = fmt.Errorf("invalid ignore file %s: %w", filePath, e.Underlying())
		return false
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return gi, nil
}
