// Package validation checks caller-supplied input before any file access.
package validation

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"unicode/utf8"
)

var (
	ErrInvalidPath      = errors.New("invalid file path")
	ErrPathNotExists    = errors.New("path does not exist")
	ErrPathInaccessible = errors.New("path cannot be accessed")
	ErrOutOfRange       = errors.New("value out of range")
)

// UTF8Error reports the byte offset of the first invalid UTF-8 sequence in a
// path. It matches ErrInvalidPath.
type UTF8Error struct {
	Index int
}

func (e *UTF8Error) Error() string {
	return fmt.Sprintf("invalid utf-8 sequence from index %d", e.Index)
}

// Is implements errors.Is.
func (e *UTF8Error) Is(target error) bool { return target == ErrInvalidPath }

// ValidateFilePath rejects empty and non-UTF-8 paths and, when mustExist is
// set, paths that cannot be stat'ed. A missing path yields ErrPathNotExists;
// any other stat failure yields ErrPathInaccessible wrapping the cause.
func ValidateFilePath(p string, mustExist bool) error {
	if p == "" {
		return ErrInvalidPath
	}
	if !utf8.ValidString(p) {
		return &UTF8Error{Index: firstInvalid(p)}
	}
	if !filepath.IsAbs(p) {
		p = filepath.Clean(p)
	}
	if mustExist {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("%w: %w", ErrPathNotExists, err)
			}
			return fmt.Errorf("%w: %w", ErrPathInaccessible, err)
		}
	}
	return nil
}

func firstInvalid(s string) int {
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return len(s)
}

// ValidateRangeInt checks min <= v <= max.
func ValidateRangeInt(v, min, max int) error {
	if v < min || v > max {
		return fmt.Errorf("%w: %d not in [%d,%d]", ErrOutOfRange, v, min, max)
	}
	return nil
}
