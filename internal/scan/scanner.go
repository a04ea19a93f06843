// Package scan enumerates the source and target directories.
//
// Only direct regular-file children are considered. Directory entries are
// visited in lexical name order, which is the scan order the rest of the
// engine relies on for tie-breaking.
package scan

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/handiism/track-reconciler/internal/audio"
	"github.com/handiism/track-reconciler/internal/identity"
	ioutils "github.com/handiism/track-reconciler/internal/io"
	"github.com/handiism/track-reconciler/internal/model"
	"github.com/sirupsen/logrus"
)

// TagReader reads the tag fields of one file.
type TagReader interface {
	Read(path string) (audio.Fields, error)
}

// Options controls source filtering.
type Options struct {
	// MinDate and MaxDate bound the derived date, inclusive. Empty means
	// unbounded.
	MinDate string
	MaxDate string

	// Ignore lists identity keys to exclude from the source.
	Ignore identity.IgnoreList

	// Location is the time zone used to derive dates. Nil means time.Local.
	Location *time.Location
}

// InWindow reports whether date lies inside [MinDate, MaxDate].
// DateLayout strings order correctly under plain string comparison.
func (o Options) InWindow(date string) bool {
	if o.MinDate != "" && date < o.MinDate {
		return false
	}
	if o.MaxDate != "" && date > o.MaxDate {
		return false
	}
	return true
}

// FileEntry is a source file that passed the date filter.
type FileEntry struct {
	Path     string
	ModTime  time.Time
	Date     string
	RawTitle string
}

// SourceResult is the outcome of scanning the source directory.
type SourceResult struct {
	// Entries holds every file inside the date window, in scan order,
	// whether or not it resolved to an identity.
	Entries []FileEntry

	// Records holds the usable, non-ignored track records in scan order.
	Records []*model.TrackRecord

	Ignored model.IgnoredTally
}

// Collision records a target file whose identity replaced an earlier one
// in the destination index.
type Collision struct {
	Key      string
	Replaced string
	By       string
}

// TargetResult is the outcome of scanning the target directory.
type TargetResult struct {
	Index      model.DestinationIndex
	Collisions []Collision
}

// Scanner reads candidate tracks from a directory.
type Scanner struct {
	tags     TagReader
	resolver *identity.Resolver
	opts     Options
	logger   logrus.FieldLogger
}

// NewScanner creates a Scanner.
func NewScanner(tags TagReader, resolver *identity.Resolver, opts Options, logger logrus.FieldLogger) *Scanner {
	return &Scanner{
		tags:     tags,
		resolver: resolver,
		opts:     opts,
		logger:   logger,
	}
}

// ScanSource scans the source directory.
//
// The date filter runs before tags are read: files outside the window are
// dropped without being counted anywhere. Files whose title cannot be
// resolved, including files whose tags cannot be read at all, are counted
// as having no identity. Files matching the ignore list are counted as
// ignored by title.
func (s *Scanner) ScanSource(dir string) (*SourceResult, error) {
	files, err := listFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("scan source: %w", err)
	}

	res := &SourceResult{}
	for _, f := range files {
		date := model.DateOf(f.modTime, s.opts.Location)
		if !s.opts.InWindow(date) {
			continue
		}

		entry := FileEntry{Path: f.path, ModTime: f.modTime, Date: date}

		fields, err := s.tags.Read(f.path)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"path":  f.path,
				"error": err,
			}).Debug("Unreadable tags")
			res.Entries = append(res.Entries, entry)
			res.Ignored.NoIdentity++
			continue
		}
		entry.RawTitle = fields.Title
		res.Entries = append(res.Entries, entry)

		id, err := s.identify(fields.Title)
		switch {
		case errors.Is(err, model.ErrIgnored):
			s.logger.WithField("key", id.Key()).Debug("Ignored by title")
			res.Ignored.IgnoredByTitle++
			continue
		case err != nil:
			s.logger.WithFields(logrus.Fields{
				"path":  f.path,
				"title": fields.Title,
			}).Debug("No usable identity")
			res.Ignored.NoIdentity++
			continue
		}

		rec, err := model.NewTrackRecord(f.path, f.modTime, s.opts.Location, id)
		if err != nil {
			res.Ignored.NoIdentity++
			continue
		}
		res.Records = append(res.Records, rec)
	}

	s.logger.WithFields(logrus.Fields{
		"dir":         dir,
		"records":     len(res.Records),
		"no_identity": res.Ignored.NoIdentity,
		"ignored":     res.Ignored.IgnoredByTitle,
	}).Info("Scanned source")

	return res, nil
}

// identify resolves a source title. It fails with model.ErrNoIdentity when
// the title has no identity and with model.ErrIgnored, alongside the
// resolved identity, when the ignore list names it.
func (s *Scanner) identify(title string) (model.Identity, error) {
	id, err := s.resolver.Resolve(title)
	if err != nil {
		return model.Identity{}, err
	}
	if s.opts.Ignore.Contains(id.Key()) {
		return id, fmt.Errorf("%q: %w", id.Key(), model.ErrIgnored)
	}
	return id, nil
}

// ScanTarget scans the target directory into a destination index.
//
// Target identities come from the separate artist and title tag fields.
// Files lacking either are skipped without being counted. When two files
// share a key the later one in scan order wins; each such replacement is
// reported in Collisions.
func (s *Scanner) ScanTarget(dir string) (*TargetResult, error) {
	files, err := listFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("scan target: %w", err)
	}

	res := &TargetResult{Index: make(model.DestinationIndex, len(files))}
	for _, f := range files {
		fields, err := s.tags.Read(f.path)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"path":  f.path,
				"error": err,
			}).Debug("Unreadable tags")
			continue
		}

		id, err := identity.FromFields(fields.Artist, fields.Title)
		if err != nil {
			continue
		}

		rec, err := model.NewTrackRecord(f.path, f.modTime, s.opts.Location, id)
		if err != nil {
			continue
		}

		if prev, ok := res.Index[rec.IdentityKey]; ok {
			res.Collisions = append(res.Collisions, Collision{
				Key:      rec.IdentityKey,
				Replaced: prev.FilePath,
				By:       rec.FilePath,
			})
		}
		res.Index[rec.IdentityKey] = rec
	}

	s.logger.WithFields(logrus.Fields{
		"dir":    dir,
		"tracks": len(res.Index),
		"dupes":  len(res.Collisions),
	}).Info("Scanned target")

	return res, nil
}

type fileInfo struct {
	path    string
	modTime time.Time
}

// listFiles returns the regular files directly inside dir in name order,
// skipping staging copies left behind by interrupted runs.
func listFiles(dir string) ([]fileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	files := make([]fileInfo, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || ioutils.IsStagingFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		files = append(files, fileInfo{
			path:    filepath.Join(dir, e.Name()),
			modTime: info.ModTime(),
		})
	}
	return files, nil
}
