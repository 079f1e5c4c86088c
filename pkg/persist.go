package dirchecker

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"strings"
	"syscall"

	"github.com/google/vectorio"
	"golang.org/x/sys/unix"
)

// iovMax is the Linux IOV_MAX; writev rejects larger batches
const iovMax = 1024

// Metadata header prefixes
const (
	excludePrefix    = "# exclude "
	ignoreFilePrefix = "# ignore_file "
)

// formatRecordLine renders relativePath\thashHex\tsize\tmtimeEpoch\n
func formatRecordLine(rec *FileRecord) string {
	return rec.RelativePath + "\t" + rec.HashString() + "\t" +
		strconv.FormatUint(rec.Size, 10) + "\t" + formatEpoch(rec.ModTime) + "\n"
}

func recordLineSize(rec *FileRecord) int {
	return len(formatRecordLine(rec))
}

// headerLines renders the signature and policy metadata
func headerLines(policy Policy) []string {
	lines := []string{
		IndexSignature + "\n",
		fmt.Sprintf("%sfollow_symlinks=%s include_hidden=%s hash=%s\n", PolicyPrefix,
			formatBool(policy.FollowSymlinks), formatBool(policy.IncludeHidden), policy.HashAlgorithm),
	}
	for _, pattern := range policy.Exclude {
		lines = append(lines, excludePrefix+pattern+"\n")
	}
	if policy.IgnoreFile != "" {
		lines = append(lines, ignoreFilePrefix+policy.IgnoreFile+"\n")
	}
	return lines
}

// serialise returns every line of the persisted form, checking each path can be stored
func (idx *Index) serialise() ([]string, error) {
	for _, s := range append(append([]string(nil), idx.policy.Exclude...), idx.policy.IgnoreFile) {
		if strings.ContainsAny(s, "\t\n\r") {
			return nil, fmt.Errorf("%w: policy value %q contains a tab or newline", ErrUnpersistable, s)
		}
	}

	lines := headerLines(idx.policy)
	var err error
	idx.records.ForEach(func(rec *FileRecord, _ string) bool {
		if strings.ContainsAny(rec.RelativePath, "\t\n\r") {
			err = fmt.Errorf("%w: %q", ErrUnpersistable, rec.RelativePath)
			return false
		}
		lines = append(lines, formatRecordLine(rec))
		return true
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// WriteTo writes the line-oriented form of the index, sorted by path
func (idx *Index) WriteTo(w io.Writer) (int64, error) {
	lines, err := idx.serialise()
	if err != nil {
		return 0, err
	}

	bw := bufio.NewWriter(w)
	var total int64
	for _, line := range lines {
		n, err := bw.WriteString(line)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, bw.Flush()
}

// WriteIndexFile atomically replaces filePath with the persisted index.
// Concurrent writers are serialised through an flock on filePath+".lock".
func WriteIndexFile(idx *Index, filePath string) error {
	defer VerboseEnter()()

	if idx == nil {
		return ErrNilIndex
	}
	lines, err := idx.serialise()
	if err != nil {
		return err
	}

	lock, err := os.OpenFile(filePath+LockSuffix, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}
	defer lock.Close()
	if err := unix.Flock(int(lock.Fd()), unix.LOCK_EX); err != nil {
		return fmt.Errorf("failed to lock %s: %w", filePath, err)
	}
	defer unix.Flock(int(lock.Fd()), unix.LOCK_UN)

	tempPath := generateTempFileName(filePath)
	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create temp index: %w", err)
	}

	if err := writeLinesVectored(file, lines); err != nil {
		file.Close()
		os.Remove(tempPath)
		return err
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync temp index: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp index: %w", err)
	}

	if err := os.Rename(tempPath, filePath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename index file: %w", err)
	}

	VerboseLog(1, "wrote %d records to %s", idx.Len(), filePath)
	return nil
}

// writeLinesVectored writes lines with writev in IOV_MAX sized batches
func writeLinesVectored(file *os.File, lines []string) error {
	buffers := make([][]byte, 0, len(lines))
	for _, line := range lines {
		if line != "" {
			buffers = append(buffers, []byte(line))
		}
	}

	for start := 0; start < len(buffers); start += iovMax {
		end := start + iovMax
		if end > len(buffers) {
			end = len(buffers)
		}

		chunk := make([]syscall.Iovec, 0, end-start)
		expected := 0
		for _, b := range buffers[start:end] {
			iov := syscall.Iovec{Base: &b[0]}
			iov.SetLen(len(b))
			chunk = append(chunk, iov)
			expected += len(b)
		}

		nw, err := vectorio.WritevRaw(uintptr(file.Fd()), chunk)
		if err != nil {
			return fmt.Errorf("failed to write index records: %w", err)
		}
		if nw != expected {
			// Short vectored write; finish the batch with plain writes
			if err := writeRemainder(file, buffers[start:end], nw); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeRemainder writes whatever part of bufs lies past the first skip bytes
func writeRemainder(file *os.File, bufs [][]byte, skip int) error {
	for _, b := range bufs {
		if skip >= len(b) {
			skip -= len(b)
			continue
		}
		if _, err := file.Write(b[skip:]); err != nil {
			return fmt.Errorf("failed to write index records: %w", err)
		}
		skip = 0
	}
	return nil
}

// ReadIndexFile loads an index written by WriteIndexFile or any producer of the line format
func ReadIndexFile(filePath string) (*Index, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open index %s: %w", filePath, err)
	}
	defer file.Close()

	idx, err := ParseIndex(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read index %s: %w", filePath, err)
	}
	return idx, nil
}

// ParseIndex reads the line-oriented format. Without a policy header the default
// policy is assumed and the hash algorithm is inferred from the digest length.
func ParseIndex(r io.Reader) (*Index, error) {
	policy := DefaultPolicy()
	sawPolicy := false
	builder := newIndexBuilder(policy)
	inferredType := uint16(0)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSuffix(scanner.Text(), "\r")

		if line == "" {
			continue
		}
		// Record lines always carry tabs, so "#notes" style paths stay records
		if strings.HasPrefix(line, "#") && !strings.Contains(line, "\t") {
			switch {
			case strings.HasPrefix(line, PolicyPrefix):
				if err := parsePolicyLine(strings.TrimPrefix(line, PolicyPrefix), &policy); err != nil {
					return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedIndex, lineNum, err)
				}
				sawPolicy = true
			case strings.HasPrefix(line, excludePrefix):
				policy.Exclude = append(policy.Exclude, strings.TrimPrefix(line, excludePrefix))
			case strings.HasPrefix(line, ignoreFilePrefix):
				policy.IgnoreFile = strings.TrimPrefix(line, ignoreFilePrefix)
			}
			continue
		}

		rec, err := parseRecordLine(line)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedIndex, lineNum, err)
		}
		if inferredType == 0 {
			inferredType = rec.HashType
		} else if rec.HashType != inferredType {
			return nil, fmt.Errorf("%w: line %d: mixed digest lengths", ErrMalformedIndex, lineNum)
		}
		if err := builder.add(rec, LoadedContext); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedIndex, lineNum, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if !sawPolicy && inferredType != 0 {
		policy.HashAlgorithm = HashTypeName(inferredType)
	}
	if inferredType != 0 && HashTypeName(inferredType) != policy.HashAlgorithm {
		return nil, fmt.Errorf("%w: digests do not match hash %s", ErrMalformedIndex, policy.HashAlgorithm)
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedIndex, err)
	}

	builder.policy = policy
	return builder.build(), nil
}

// parsePolicyLine reads space separated key=value pairs
func parsePolicyLine(s string, policy *Policy) error {
	for _, field := range strings.Fields(s) {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			return fmt.Errorf("invalid policy field %q", field)
		}
		var err error
		switch key {
		case "follow_symlinks":
			policy.FollowSymlinks, err = strconv.ParseBool(value)
		case "include_hidden":
			policy.IncludeHidden, err = strconv.ParseBool(value)
		case "hash":
			policy.HashAlgorithm = strings.ToLower(value)
		default:
			// Unknown keys are tolerated for forward compatibility
		}
		if err != nil {
			return fmt.Errorf("invalid policy value %q: %w", field, err)
		}
	}
	return nil
}

// parseRecordLine parses relativePath\thashHex\tsize\tmtimeEpoch
func parseRecordLine(line string) (FileRecord, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != 4 {
		return FileRecord{}, fmt.Errorf("expected 4 tab separated fields, got %d", len(fields))
	}

	relPath := fields[0]
	if err := validateRelativePath(relPath); err != nil {
		return FileRecord{}, err
	}

	digest, err := hex.DecodeString(fields[1])
	if err != nil {
		return FileRecord{}, fmt.Errorf("invalid hash for %s: %w", relPath, err)
	}
	hashType := hashTypeForSize(len(digest))
	if hashType == 0 {
		return FileRecord{}, fmt.Errorf("unsupported digest length %d for %s", len(digest), relPath)
	}

	size, err := strconv.ParseUint(fields[2], 10, 64)
	if err != nil {
		return FileRecord{}, fmt.Errorf("invalid size for %s: %w", relPath, err)
	}

	modTime, err := parseEpoch(fields[3])
	if err != nil {
		return FileRecord{}, fmt.Errorf("invalid mtime for %s: %w", relPath, err)
	}

	return newFileRecord(relPath, digest, hashType, size, modTime), nil
}

// validateRelativePath rejects paths that could not have come from a walk
func validateRelativePath(p string) error {
	if p == "" {
		return fmt.Errorf("empty path")
	}
	if strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return fmt.Errorf("path %q is not a forward-slash relative path", p)
	}
	if path.Clean(p) != p {
		return fmt.Errorf("path %q is not clean", p)
	}
	if p == ".." || strings.HasPrefix(p, "../") {
		return fmt.Errorf("path %q escapes the root", p)
	}
	return nil
}

func hashTypeForSize(n int) uint16 {
	for _, t := range []uint16{HashTypeSHA1, HashTypeSHA256, HashTypeSHA512} {
		if GetHashSize(t) == n {
			return t
		}
	}
	return 0
}
