// Package testsupport provides fixtures shared by the engine's tests.
package testsupport

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/handiism/track-reconciler/internal/audio"
)

// ErrInjected is returned by TagStore writes that were set up to fail.
var ErrInjected = errors.New("injected tag write failure")

// TagStore is an in-file fake of the audio tag store. Each track file holds
// its tags as "field=value" lines, so tags follow the file through copies
// and renames exactly like embedded metadata does.
type TagStore struct {
	mu         sync.Mutex
	failTitles map[string]struct{}
	writes     []string
}

// NewTagStore creates an empty TagStore.
func NewTagStore() *TagStore {
	return &TagStore{failTitles: make(map[string]struct{})}
}

// FailWritesFor makes Write fail for any file whose current title tag is title.
func (s *TagStore) FailWritesFor(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failTitles[title] = struct{}{}
}

// Writes returns the paths written so far, in order.
func (s *TagStore) Writes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.writes...)
}

// Read parses the tag lines in path.
func (s *TagStore) Read(path string) (audio.Fields, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return audio.Fields{}, err
	}
	return ParseFields(data), nil
}

// Write merges the non-empty values of fields into the file's tags.
func (s *TagStore) Write(path string, fields audio.Fields) error {
	current, err := s.Read(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	_, fail := s.failTitles[current.Title]
	s.writes = append(s.writes, path)
	s.mu.Unlock()
	if fail {
		return fmt.Errorf("%s: %w", filepath.Base(path), ErrInjected)
	}

	if fields.Title != "" {
		current.Title = fields.Title
	}
	if fields.Artist != "" {
		current.Artist = fields.Artist
	}
	if fields.Album != "" {
		current.Album = fields.Album
	}
	if fields.Genre != "" {
		current.Genre = fields.Genre
	}
	return os.WriteFile(path, FormatFields(current), 0o644)
}

// FormatFields encodes fields in the fake's file format.
func FormatFields(f audio.Fields) []byte {
	var buf bytes.Buffer
	for _, kv := range [][2]string{
		{"title", f.Title},
		{"artist", f.Artist},
		{"album", f.Album},
		{"genre", f.Genre},
	} {
		if kv[1] != "" {
			fmt.Fprintf(&buf, "%s=%s\n", kv[0], kv[1])
		}
	}
	return buf.Bytes()
}

// ParseFields decodes the fake's file format. Unknown lines are ignored.
func ParseFields(data []byte) audio.Fields {
	var f audio.Fields
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), "=")
		if !ok {
			continue
		}
		switch key {
		case "title":
			f.Title = value
		case "artist":
			f.Artist = value
		case "album":
			f.Album = value
		case "genre":
			f.Genre = value
		}
	}
	return f
}

// WriteTrack creates a track file named name in dir with the given tags and
// modification time, and returns its path.
func WriteTrack(t testing.TB, dir, name string, fields audio.Fields, modTime time.Time) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, FormatFields(fields), 0o644); err != nil {
		t.Fatalf("write track %s: %v", name, err)
	}
	if err := os.Chtimes(path, modTime, modTime); err != nil {
		t.Fatalf("chtimes %s: %v", name, err)
	}
	return path
}

// ReadTrack returns the tags stored in the track file at path.
func ReadTrack(t testing.TB, path string) audio.Fields {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read track %s: %v", path, err)
	}
	return ParseFields(data)
}

// Day returns noon local time on the given day of January 2024.
func Day(n int) time.Time {
	return time.Date(2024, time.January, n, 12, 0, 0, 0, time.Local)
}
