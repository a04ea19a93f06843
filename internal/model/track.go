package model

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the canonical form of a derived date.
const DateLayout = "2006-01-02"

// IdentityDelimiter separates artist and title in an identity key and in
// raw tag titles.
const IdentityDelimiter = " - "

// Identity is a parsed (artist, title) pair.
type Identity struct {
	Artist string
	Title  string
}

// Key returns the identity key "{artist} - {title}".
func (i Identity) Key() string {
	return i.Artist + IdentityDelimiter + i.Title
}

// TrackRecord represents one audio file considered a track candidate.
//
// The engine never keeps the file open between stages; FilePath is only a
// location. ModTime is the source of truth for ordering and for Date.
//
// Example:
//
//	rec, _ := NewTrackRecord("/drop/a.mp3", mtime, time.Local, Identity{Artist: "A", Title: "Song1"})
//	// rec.IdentityKey = "A - Song1"
type TrackRecord struct {
	// FilePath is the filesystem location of the track.
	FilePath string

	// ModTime is the file modification timestamp.
	ModTime time.Time

	// Date is the local calendar day of ModTime in DateLayout form.
	Date string

	// Artist and Title are the trimmed identity components.
	Artist string
	Title  string

	// IdentityKey is rebuilt from Artist and Title, never taken from a raw tag.
	IdentityKey string
}

// NewTrackRecord creates a TrackRecord with a derived date and identity key.
//
// Artist and title are trimmed; if either is empty afterwards the record is
// rejected with ErrNoIdentity. A nil location means time.Local.
func NewTrackRecord(path string, modTime time.Time, loc *time.Location, id Identity) (*TrackRecord, error) {
	artist := strings.TrimSpace(id.Artist)
	title := strings.TrimSpace(id.Title)
	if artist == "" || title == "" {
		return nil, fmt.Errorf("%s: %w", path, ErrNoIdentity)
	}

	key := Identity{Artist: artist, Title: title}.Key()
	return &TrackRecord{
		FilePath:    path,
		ModTime:     modTime,
		Date:        DateOf(modTime, loc),
		Artist:      artist,
		Title:       title,
		IdentityKey: key,
	}, nil
}

// DateOf returns the calendar day of t in loc (time.Local when nil).
func DateOf(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DateLayout)
}

// ValidDate reports whether s is a well-formed DateLayout date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// SourceGroup holds all source records sharing one identity key,
// ordered by ModTime ascending with ties kept in scan order.
type SourceGroup struct {
	Key     string
	Records []*TrackRecord
}

// Len returns the number of records in the group.
func (g *SourceGroup) Len() int {
	return len(g.Records)
}

// DestinationIndex maps identity keys to the record found in the target.
//
// When two target files produce the same key, the one scanned later
// replaces the earlier entry.
type DestinationIndex map[string]*TrackRecord

// IgnoredTally counts source files excluded from grouping.
type IgnoredTally struct {
	// NoIdentity counts files whose title could not be parsed.
	NoIdentity int `yaml:"no_identity"`

	// IgnoredByTitle counts files whose identity matched the ignore list.
	IgnoredByTitle int `yaml:"ignored_by_title"`
}

// Total returns the number of ignored files.
func (t IgnoredTally) Total() int {
	return t.NoIdentity + t.IgnoredByTitle
}
