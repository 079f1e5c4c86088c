package dirchecker

import (
	"context"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// HashAlgorithm represents a hash algorithm configuration
type HashAlgorithm struct {
	Name    string
	TypeID  uint16
	Size    int
	NewFunc func() hash.Hash
}

// GetHashAlgorithm returns the hash algorithm configuration for the given name
func GetHashAlgorithm(name string) (*HashAlgorithm, error) {
	switch strings.ToLower(name) {
	case "sha1":
		return &HashAlgorithm{
			Name:    "sha1",
			TypeID:  HashTypeSHA1,
			Size:    HashSizeSHA1,
			NewFunc: sha1.New,
		}, nil
	case "sha256":
		return &HashAlgorithm{
			Name:    "sha256",
			TypeID:  HashTypeSHA256,
			Size:    HashSizeSHA256,
			NewFunc: sha256.New,
		}, nil
	case "sha512":
		return &HashAlgorithm{
			Name:    "sha512",
			TypeID:  HashTypeSHA512,
			Size:    HashSizeSHA512,
			NewFunc: sha512.New,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %s", name)
	}
}

// GetHashAlgorithmByType returns the hash algorithm configuration for the given type ID
func GetHashAlgorithmByType(typeID uint16) (*HashAlgorithm, error) {
	name := HashTypeName(typeID)
	if name == "unknown" {
		return nil, fmt.Errorf("unsupported hash type ID: %d", typeID)
	}
	return GetHashAlgorithm(name)
}

// HashFileInterruptible hashes a file through a fixed-size buffer and checks ctx between reads.
// The file handle is released on every return path.
func HashFileInterruptible(ctx context.Context, filePath string, algorithm *HashAlgorithm, buffer []byte) ([]byte, int64, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer file.Close()

	// Advisory only; ignore failures on filesystems that do not support it
	_ = unix.Fadvise(int(file.Fd()), 0, 0, unix.FADV_SEQUENTIAL)

	hasher := algorithm.NewFunc()
	var total int64

	for {
		select {
		case <-ctx.Done():
			return nil, total, fmt.Errorf("hash of %s interrupted: %w", filePath, ctx.Err())
		default:
		}

		n, err := file.Read(buffer)
		if n > 0 {
			hasher.Write(buffer[:n])
			total += int64(n)
		}

		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, total, fmt.Errorf("failed to read from file %s: %w", filePath, err)
		}
	}

	return hasher.Sum(nil), total, nil
}
