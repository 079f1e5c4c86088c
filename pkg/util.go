package dirchecker

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ParseHumanSize parses sizes like "64K", "2M", "1.5GB" into bytes
func ParseHumanSize(sizeStr string) (int, error) {
	if sizeStr == "" {
		return 0, fmt.Errorf("empty size string")
	}

	sizeStr = strings.ToUpper(strings.TrimSpace(sizeStr))

	var numPart string
	var suffix string
	for i, char := range sizeStr {
		if char >= '0' && char <= '9' || char == '.' {
			numPart += string(char)
		} else {
			suffix = strings.TrimSpace(sizeStr[i:])
			break
		}
	}

	if numPart == "" {
		return 0, fmt.Errorf("no numeric part in size string: %s", sizeStr)
	}

	num, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric part in size string %s: %w", sizeStr, err)
	}

	var multiplier int64
	switch suffix {
	case "", "B":
		multiplier = 1
	case "K", "KB":
		multiplier = 1024
	case "M", "MB":
		multiplier = 1024 * 1024
	case "G", "GB":
		multiplier = 1024 * 1024 * 1024
	default:
		return 0, fmt.Errorf("unknown size suffix in %s: %s", sizeStr, suffix)
	}

	return int(num * float64(multiplier)), nil
}

// formatEpoch renders t as "seconds.nanoseconds" since the Unix epoch
func formatEpoch(t time.Time) string {
	return fmt.Sprintf("%d.%09d", t.Unix(), t.Nanosecond())
}

// parseEpoch accepts "seconds" or "seconds.fraction" (fraction of 1 to 9 digits, unsigned)
func parseEpoch(s string) (time.Time, error) {
	secStr, fracStr, hasFrac := strings.Cut(s, ".")
	sec, err := strconv.ParseInt(secStr, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch seconds %q: %w", s, err)
	}

	var nsec int64
	if hasFrac {
		if fracStr == "" || len(fracStr) > 9 || strings.Trim(fracStr, "0123456789") != "" {
			return time.Time{}, fmt.Errorf("invalid epoch fraction %q", s)
		}
		fracStr += strings.Repeat("0", 9-len(fracStr))
		nsec, err = strconv.ParseInt(fracStr, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid epoch fraction %q: %w", s, err)
		}
	}

	return time.Unix(sec, nsec), nil
}

// generateTempFileName returns a sibling of target named with PID and timestamp
func generateTempFileName(target string) string {
	return filepath.Join(filepath.Dir(target),
		fmt.Sprintf(".%s-%d-%d.tmp", filepath.Base(target), os.Getpid(), time.Now().UnixNano()))
}

// isHidden reports whether a base name is a dot file
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF)
}
