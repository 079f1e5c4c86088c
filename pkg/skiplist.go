package dirchecker

import (
	"strings"

	zcsl "github.com/mattkeenan/zerocopyskiplist"
)

// recordList is the path-ordered store behind Index
type recordList struct {
	skiplist *zcsl.ZeroCopySkiplist[FileRecord, string, string]
}

// newRecordList creates an empty list ordered by relative path
func newRecordList(maxLevels int) *recordList {
	if maxLevels < 8 {
		maxLevels = 16
	}

	getKeyFromItem := func(rec *FileRecord) string {
		return rec.RelativePath
	}

	// Size of the persisted line, used when sizing serialisation buffers
	getItemSize := func(rec *FileRecord) int {
		return recordLineSize(rec)
	}

	cmpKey := func(a, b string) int {
		return strings.Compare(a, b)
	}

	return &recordList{
		skiplist: zcsl.MakeZeroCopySkiplist[FileRecord, string, string](
			maxLevels,
			getKeyFromItem,
			getItemSize,
			cmpKey,
		),
	}
}

// Insert adds a record with the given context. Returns false if the path is already present.
func (rl *recordList) Insert(rec FileRecord, context string) bool {
	if existing, _ := rl.Find(rec.RelativePath); existing != nil {
		return false
	}
	return rl.skiplist.Insert(&rec, context)
}

// Find looks a record up by relative path
func (rl *recordList) Find(relativePath string) (*FileRecord, string) {
	node, context := rl.skiplist.Find(relativePath)
	if node == nil {
		return nil, ""
	}
	return node.Item(), context
}

// ForEach iterates in path order until callback returns false
func (rl *recordList) ForEach(callback func(*FileRecord, string) bool) {
	for current := rl.skiplist.First(); current != nil; current = current.Next() {
		if !callback(current.Item(), current.Context()) {
			break
		}
	}
}

// Length returns the number of records
func (rl *recordList) Length() int {
	return rl.skiplist.Length()
}

// Slice returns the records in path order
func (rl *recordList) Slice() []FileRecord {
	out := make([]FileRecord, 0, rl.Length())
	rl.ForEach(func(rec *FileRecord, _ string) bool {
		out = append(out, *rec)
		return true
	})
	return out
}
