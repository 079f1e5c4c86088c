package dirchecker

import (
	"bytes"
	"encoding/hex"
	"time"
)

// FileRecord is the identity of one regular file at indexing time.
// It is a value type; copies share nothing.
type FileRecord struct {
	RelativePath string
	Hash         [ChecksumSize]byte
	HashType     uint16
	Size         uint64
	ModTime      time.Time
}

// newFileRecord builds a record from a digest produced by the given hash type
func newFileRecord(relPath string, digest []byte, hashType uint16, size uint64, modTime time.Time) FileRecord {
	rec := FileRecord{
		RelativePath: relPath,
		HashType:     hashType,
		Size:         size,
		ModTime:      modTime,
	}
	copy(rec.Hash[:], digest)
	return rec
}

// ContentHash returns the digest bytes (length depends on HashType)
func (r FileRecord) ContentHash() []byte {
	return r.Hash[:GetHashSize(r.HashType)]
}

// HashString returns the hex encoded digest
func (r FileRecord) HashString() string {
	return hex.EncodeToString(r.ContentHash())
}

// IsHashEmpty reports whether no digest has been stored
func (r FileRecord) IsHashEmpty() bool {
	for _, b := range r.ContentHash() {
		if b != 0 {
			return false
		}
	}
	return true
}

// SameContent reports whether both records describe identical bytes
func (r FileRecord) SameContent(other FileRecord) bool {
	return r.HashType == other.HashType &&
		r.Size == other.Size &&
		bytes.Equal(r.ContentHash(), other.ContentHash())
}

// SameMetadata reports whether size and modification time match
func (r FileRecord) SameMetadata(other FileRecord) bool {
	return r.Size == other.Size && r.ModTime.Equal(other.ModTime)
}

// Equal reports whether every stored value matches
func (r FileRecord) Equal(other FileRecord) bool {
	return r.RelativePath == other.RelativePath && r.SameContent(other) && r.ModTime.Equal(other.ModTime)
}
