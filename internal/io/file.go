package ioutils

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"syscall"
	"unicode/utf8"

	"github.com/google/uuid"
)

// StagingPrefix starts the name of every copy-mode staging file.
const StagingPrefix = ".rp-staging-"

// maxFileNameBytes keeps generated names under common 255-byte limits.
const maxFileNameBytes = 240

var (
	invalidChars   = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	trailingDots   = regexp.MustCompile(`\.+$`)
	repeatedSpaces = regexp.MustCompile(`\s+`)
)

// CopyFile copies a file from source to destination.
//
// The destination file is created with mode 0644 if it doesn't exist,
// or truncated if it does. The destination is closed before returning so
// that callers can rename or retag it immediately.
//
// Example:
//
//	err := CopyFile("/path/to/source.mp3", "/path/to/dest.mp3")
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// CopyFileVerified copies src to dst with SHA256 + size verification.
// Removes dst on mismatch.
func CopyFileVerified(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(out, dstHasher), io.TeeReader(in, srcHasher))
	if err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	if written != srcInfo.Size() {
		_ = os.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), written)
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		_ = os.Remove(dst)
		return fmt.Errorf("copy hash mismatch: file corrupted during copy")
	}
	return nil
}

// Relocate moves src to dst, replacing dst if it exists.
//
// A same-filesystem move is a single atomic rename. When src and dst live on
// different devices the file is copied with verification, its timestamps
// are carried over, and src is removed.
func Relocate(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil || !errors.Is(err, syscall.EXDEV) {
		return err
	}

	times, err := ReadFileTimes(src)
	if err != nil {
		return err
	}
	if err := CopyFileVerified(src, dst); err != nil {
		return err
	}
	if err := times.Apply(dst); err != nil {
		return err
	}
	return os.Remove(src)
}

// SanitizeFileName removes or replaces characters that are invalid in file names.
//
// The following transformations are applied:
//   - Invalid characters (<>:"/\|?* and control chars 0x00-0x1f) → underscore
//   - Trailing dots → removed (Windows limitation)
//   - Multiple whitespace → single space
//   - Leading and trailing whitespace → removed
//
// Distinct inputs may sanitize to the same name; callers that need
// uniqueness must check for collisions themselves.
//
// Example:
//
//	SanitizeFileName("Song: Part 1/2")      // Returns "Song_ Part 1_2"
//	SanitizeFileName("Track...")            // Returns "Track"
//	SanitizeFileName("Name   with  spaces") // Returns "Name with spaces"
func SanitizeFileName(name string) string {
	name = invalidChars.ReplaceAllString(name, "_")
	name = repeatedSpaces.ReplaceAllString(name, " ")
	name = strings.TrimSpace(name)
	name = trailingDots.ReplaceAllString(name, "")
	return strings.TrimRight(name, " ")
}

// TrackFileName returns the target file name for an identity key: the
// sanitized key, truncated on a rune boundary if needed, plus ext.
//
// Example:
//
//	TrackFileName("AC/DC - Thunderstruck", ".mp3") // "AC_DC - Thunderstruck.mp3"
func TrackFileName(key, ext string) string {
	base := SanitizeFileName(key)
	limit := maxFileNameBytes - len(ext)
	if len(base) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(base[cut]) {
			cut--
		}
		base = strings.TrimRight(base[:cut], " .")
	}
	return base + ext
}

// StagingPath returns a unique staging file path next to src. The staging
// name keeps src's extension so format-specific tag writers still apply.
func StagingPath(src string) string {
	name := StagingPrefix + uuid.NewString() + filepath.Ext(src)
	return filepath.Join(filepath.Dir(src), name)
}

// IsStagingFile reports whether a file name belongs to a staging copy.
func IsStagingFile(name string) bool {
	return strings.HasPrefix(filepath.Base(name), StagingPrefix)
}

// RemoveIfExists removes path, treating a missing file as success.
func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// EnsureDir creates a directory and all parent directories if they don't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}
