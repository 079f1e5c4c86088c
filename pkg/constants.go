package dirchecker

import "strings"

// Context constants for record list operations
const (
	IndexContext  = "index"
	LoadedContext = "loaded"
)

// Index file format constants
const (
	IndexSignature = "# dirchecker index v1"
	PolicyPrefix   = "# policy "
	LockSuffix     = ".lock"
)

// ChecksumSize is the largest digest we store (512 bits)
const ChecksumSize = 64

// Hash type constants
const (
	HashTypeSHA1   uint16 = 1 // SHA-1 (20 bytes)
	HashTypeSHA256 uint16 = 2 // SHA-256 (32 bytes)
	HashTypeSHA512 uint16 = 3 // SHA-512 (64 bytes)
)

// Hash size constants
const (
	HashSizeSHA1   = 20
	HashSizeSHA256 = 32
	HashSizeSHA512 = 64
)

// Defaults used when neither config nor caller say otherwise
const (
	DefaultHashAlgorithm = "sha256"
	DefaultHashBuffer    = "2M"
	MaxHashWorkers       = 64
)

// HashTypeName returns the human-readable name for a hash type
func HashTypeName(hashType uint16) string {
	switch hashType {
	case HashTypeSHA1:
		return "sha1"
	case HashTypeSHA256:
		return "sha256"
	case HashTypeSHA512:
		return "sha512"
	default:
		return "unknown"
	}
}

// HashTypeFromName returns the hash type constant from a name (case-insensitive)
func HashTypeFromName(name string) (uint16, bool) {
	switch strings.ToLower(name) {
	case "sha1":
		return HashTypeSHA1, true
	case "sha256":
		return HashTypeSHA256, true
	case "sha512":
		return HashTypeSHA512, true
	default:
		return 0, false
	}
}

// GetHashSize returns the digest size for a hash type
func GetHashSize(hashType uint16) int {
	switch hashType {
	case HashTypeSHA1:
		return HashSizeSHA1
	case HashTypeSHA256:
		return HashSizeSHA256
	case HashTypeSHA512:
		return HashSizeSHA512
	default:
		return 0
	}
}
