package dirchecker

import (
	"fmt"
	"sort"
	"strings"
)

// Policy is the set of traversal rules an index was built with.
// It travels with the index so verification walks the tree the same way.
type Policy struct {
	FollowSymlinks bool     `json:"follow_symlinks"`
	IncludeHidden  bool     `json:"include_hidden"`
	HashAlgorithm  string   `json:"hash"`
	Exclude        []string `json:"exclude,omitempty"`
	IgnoreFile     string   `json:"ignore_file,omitempty"`
}

// DefaultPolicy skips symlinks, includes hidden files and hashes with SHA-256
func DefaultPolicy() Policy {
	return Policy{
		FollowSymlinks: false,
		IncludeHidden:  true,
		HashAlgorithm:  DefaultHashAlgorithm,
	}
}

// Validate checks the hash algorithm and exclude patterns
func (p Policy) Validate() error {
	if err := ValidateHashAlgorithm(p.HashAlgorithm); err != nil {
		return err
	}
	for _, pattern := range p.Exclude {
		if err := ValidatePattern(pattern); err != nil {
			return err
		}
	}
	if strings.ContainsAny(p.IgnoreFile, "/\\") {
		return fmt.Errorf("ignore file must be a name relative to the root: %q", p.IgnoreFile)
	}
	return nil
}

func (p Policy) clone() Policy {
	p.Exclude = append([]string(nil), p.Exclude...)
	return p
}

// Index is an ordered, read-only mapping from relative path to FileRecord
// captured by one walk of a directory tree.
type Index struct {
	policy  Policy
	records *recordList
	skipped []SkippedEntry
}

// DuplicateGroup represents a group of files with the same content hash
type DuplicateGroup struct {
	Hash  string   `json:"hash"`
	Files []string `json:"files"`
	Count int      `json:"count"`
}

// Policy returns the traversal policy the index was built with
func (idx *Index) Policy() Policy {
	return idx.policy.clone()
}

// Len returns the number of indexed files
func (idx *Index) Len() int {
	return idx.records.Length()
}

// Get returns the record for relativePath
func (idx *Index) Get(relativePath string) (FileRecord, bool) {
	rec, _ := idx.records.Find(relativePath)
	if rec == nil {
		return FileRecord{}, false
	}
	return *rec, true
}

// ForEach iterates records in path order until fn returns false
func (idx *Index) ForEach(fn func(FileRecord) bool) {
	idx.records.ForEach(func(rec *FileRecord, _ string) bool {
		return fn(*rec)
	})
}

// Records returns all records in path order
func (idx *Index) Records() []FileRecord {
	return idx.records.Slice()
}

// Paths returns the indexed paths in sorted order
func (idx *Index) Paths() []string {
	paths := make([]string, 0, idx.Len())
	idx.ForEach(func(rec FileRecord) bool {
		paths = append(paths, rec.RelativePath)
		return true
	})
	return paths
}

// Skipped returns the entries the walk could not read
func (idx *Index) Skipped() []SkippedEntry {
	return append([]SkippedEntry(nil), idx.skipped...)
}

// Stats returns the file count and total byte size
func (idx *Index) Stats() (int, uint64) {
	var totalSize uint64
	count := 0
	idx.ForEach(func(rec FileRecord) bool {
		totalSize += rec.Size
		count++
		return true
	})
	return count, totalSize
}

// Duplicates returns groups of paths sharing identical content, ordered by first path
func (idx *Index) Duplicates() []DuplicateGroup {
	duplicates := make(map[string][]string)
	var order []string

	idx.ForEach(func(rec FileRecord) bool {
		hashStr := rec.HashString()
		if _, seen := duplicates[hashStr]; !seen {
			order = append(order, hashStr)
		}
		duplicates[hashStr] = append(duplicates[hashStr], rec.RelativePath)
		return true
	})

	var result []DuplicateGroup
	for _, hash := range order {
		files := duplicates[hash]
		if len(files) > 1 {
			result = append(result, DuplicateGroup{
				Hash:  hash,
				Files: files,
				Count: len(files),
			})
		}
	}
	return result
}

// indexBuilder is the single aggregation point for records produced by a walk
type indexBuilder struct {
	policy  Policy
	records *recordList
	skipped []SkippedEntry
}

func newIndexBuilder(policy Policy) *indexBuilder {
	return &indexBuilder{
		policy:  policy.clone(),
		records: newRecordList(16),
	}
}

func (b *indexBuilder) add(rec FileRecord, context string) error {
	if !b.records.Insert(rec, context) {
		return fmt.Errorf("duplicate path in index: %s", rec.RelativePath)
	}
	return nil
}

func (b *indexBuilder) skip(entry SkippedEntry) {
	b.skipped = append(b.skipped, entry)
}

func (b *indexBuilder) build() *Index {
	sort.Slice(b.skipped, func(i, j int) bool {
		return b.skipped[i].Path < b.skipped[j].Path
	})
	return &Index{
		policy:  b.policy,
		records: b.records,
		skipped: b.skipped,
	}
}
