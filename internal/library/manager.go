package library

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/handiism/track-reconciler/internal/audio"
	"github.com/handiism/track-reconciler/internal/config"
	"github.com/handiism/track-reconciler/internal/dedupe"
	"github.com/handiism/track-reconciler/internal/identity"
	ioutils "github.com/handiism/track-reconciler/internal/io"
	"github.com/handiism/track-reconciler/internal/model"
	"github.com/handiism/track-reconciler/internal/reconcile"
	"github.com/handiism/track-reconciler/internal/scan"
	"github.com/handiism/track-reconciler/internal/transfer"
	"github.com/sirupsen/logrus"
)

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents a pipeline progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

// TagStore reads and writes audio tags.
type TagStore interface {
	Read(path string) (audio.Fields, error)
	Write(path string, fields audio.Fields) error
}

// Option customizes a Manager.
type Option func(*Manager)

// WithTags replaces the default audio.Tagger.
func WithTags(tags TagStore) Option {
	return func(m *Manager) {
		m.tags = tags
	}
}

// WithLocation sets the time zone used to derive dates.
func WithLocation(loc *time.Location) Option {
	return func(m *Manager) {
		m.location = loc
	}
}

// WithTransferProgress receives the processed and total candidate counts
// after each transfer.
func WithTransferProgress(fn func(done, total int)) Option {
	return func(m *Manager) {
		m.onTransfer = fn
	}
}

// Manager coordinates one reconciliation run.
type Manager struct {
	settings  *config.Settings
	sourceDir string
	targetDir string
	tags      TagStore
	location  *time.Location
	logger    logrus.FieldLogger

	source   *scan.SourceResult
	target   *scan.TargetResult
	result   *reconcile.Result
	executor *transfer.Executor
	report   *transfer.Report

	onProgress func(ProgressEvent)
	onTransfer func(done, total int)
	mu         sync.RWMutex
}

// NewManager creates a Manager. settings must already be validated.
func NewManager(settings *config.Settings, sourceDir, targetDir string, logger logrus.FieldLogger, onProgress func(ProgressEvent), opts ...Option) *Manager {
	m := &Manager{
		settings:   settings,
		sourceDir:  sourceDir,
		targetDir:  targetDir,
		tags:       audio.NewTagger(),
		logger:     logger,
		onProgress: onProgress,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) scanner() *scan.Scanner {
	return scan.NewScanner(m.tags, identity.NewResolver(m.settings.NormalizeUnderscores), scan.Options{
		MinDate:  m.settings.MinDate,
		MaxDate:  m.settings.MaxDate,
		Ignore:   identity.NewIgnoreList(m.settings.Ignore),
		Location: m.location,
	}, m.logger)
}

// ScanSource scans only the source directory. Listing runs stop here.
func (m *Manager) ScanSource(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.progress(ProgressEvent{Message: fmt.Sprintf("Scanning source: %s", m.sourceDir), Level: LevelVerbose})
	src, err := m.scanner().ScanSource(m.sourceDir)
	if err != nil {
		m.progress(ProgressEvent{Message: err.Error(), Level: LevelError})
		return err
	}

	m.mu.Lock()
	m.source = src
	m.mu.Unlock()

	m.progress(ProgressEvent{
		Message: fmt.Sprintf("Found %d source tracks (%d without identity, %d ignored)", len(src.Records), src.Ignored.NoIdentity, src.Ignored.IgnoredByTitle),
		Level:   LevelInfo,
	})
	return nil
}

// Initialize scans both directories, groups the source and reconciles it
// against the target.
func (m *Manager) Initialize(ctx context.Context) error {
	if err := m.ScanSource(ctx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.progress(ProgressEvent{Message: fmt.Sprintf("Scanning target: %s", m.targetDir), Level: LevelVerbose})
	dst, err := m.scanner().ScanTarget(m.targetDir)
	if err != nil {
		m.progress(ProgressEvent{Message: err.Error(), Level: LevelError})
		return err
	}
	for _, c := range dst.Collisions {
		m.logger.WithFields(logrus.Fields{
			"key":      c.Key,
			"replaced": c.Replaced,
			"by":       c.By,
		}).Warn("Duplicate identity in target")
		m.progress(ProgressEvent{
			Message: fmt.Sprintf("Duplicate in target: %s (%s, %s)", c.Key, filepath.Base(c.Replaced), filepath.Base(c.By)),
			Level:   LevelWarning,
		})
	}

	m.mu.RLock()
	records := m.source.Records
	m.mu.RUnlock()

	policy := m.settings.OverwritePolicy()
	groups := dedupe.Group(records)
	result := reconcile.Reconcile(groups, dst.Index, policy)

	m.mu.Lock()
	m.target = dst
	m.result = result
	m.mu.Unlock()

	sum := result.Summary
	m.logger.WithFields(logrus.Fields{
		"total":    sum.TotalTracks,
		"unique":   sum.UniqueTracks,
		"existing": sum.ExistingTracks,
		"new":      sum.NewTracks,
	}).Info("Reconciled")
	m.progress(ProgressEvent{
		Message: fmt.Sprintf("%d unique tracks: %d new, %d already in library", sum.UniqueTracks, sum.NewTracks, sum.ExistingTracks),
		Level:   LevelInfo,
	})
	return nil
}

// StartTransfers copies or moves the selected candidates. It must follow
// Initialize. Per-item failures are in the returned report; the error is
// non-nil only when ctx was cancelled.
func (m *Manager) StartTransfers(ctx context.Context) (*transfer.Report, error) {
	m.mu.Lock()
	if m.result == nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("transfer before initialize")
	}
	exec := transfer.NewExecutor(m.tags, m.targetDir, transfer.Options{
		Policy:    m.settings.OverwritePolicy(),
		Mode:      m.settings.TransferMode(),
		Album:     m.settings.Album,
		Genre:     m.settings.Genre,
		Extension: m.settings.TrackExtension,
	}, m.logger, m.onTransfer)
	m.executor = exec
	result, index := m.result, m.target.Index
	m.mu.Unlock()

	report, err := exec.Transfer(ctx, result, index)

	m.mu.Lock()
	m.report = report
	m.mu.Unlock()

	for _, key := range report.ErrorKeys() {
		m.progress(ProgressEvent{Message: fmt.Sprintf("%s: %v", key, report.Errors[key]), Level: LevelError})
	}
	if len(report.Errors) == 0 {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Transferred %d tracks", len(report.Transferred)), Level: LevelSuccess})
	} else {
		m.progress(ProgressEvent{
			Message: fmt.Sprintf("Transferred %d tracks, %d failed", len(report.Transferred), len(report.Errors)),
			Level:   LevelWarning,
		})
	}

	return report, err
}

// GetProgress returns the number of processed transfer candidates and the
// batch size. Both are zero before StartTransfers.
func (m *Manager) GetProgress() (done, total int) {
	m.mu.RLock()
	exec := m.executor
	m.mu.RUnlock()
	if exec == nil {
		return 0, 0
	}
	return exec.Progress()
}

// CandidateCount returns how many groups the current policy selects.
func (m *Manager) CandidateCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.result == nil || m.settings.TransferMode() == model.ModeNone {
		return 0
	}
	return len(m.result.Candidates(m.settings.OverwritePolicy()))
}

// NearMatches returns advisory near matches between new groups and the
// target index.
func (m *Manager) NearMatches() []reconcile.NearMatch {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.result == nil {
		return nil
	}
	return reconcile.NearMatches(m.result, m.target.Index, m.settings.NearMatchThreshold)
}

// WritePlaylist writes a playlist of the transferred tracks to path.
// Track paths are relative to the playlist's directory.
func (m *Manager) WritePlaylist(path string) error {
	m.mu.RLock()
	report := m.report
	m.mu.RUnlock()
	if report == nil {
		return fmt.Errorf("no transfers to list")
	}

	entries := make([]audio.PlaylistEntry, 0, len(report.Transferred))
	for _, it := range report.Transferred {
		entries = append(entries, audio.PlaylistEntry{Path: it.Target, Artist: it.Artist, Title: it.Title})
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	format := audio.PlaylistFormatFromPath("." + m.settings.PlaylistFormat)
	if filepath.Ext(abs) != "" {
		format = audio.PlaylistFormatFromPath(abs)
	}
	content := audio.NewPlaylistCreator(format, m.settings.M3UExtended).CreatePlaylist(entries, filepath.Dir(abs))

	if err := ioutils.EnsureDir(filepath.Dir(abs)); err != nil {
		return err
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error creating playlist: %v", err), Level: LevelWarning})
		return err
	}
	m.progress(ProgressEvent{Message: fmt.Sprintf("Created playlist %s", filepath.Base(abs)), Level: LevelSuccess})
	return nil
}

// Source returns the source scan result, or nil before scanning.
func (m *Manager) Source() *scan.SourceResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.source
}

// Target returns the target scan result, or nil before Initialize.
func (m *Manager) Target() *scan.TargetResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.target
}

// Result returns the reconciliation result, or nil before Initialize.
func (m *Manager) Result() *reconcile.Result {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.result
}

// Report returns the transfer report, or nil before StartTransfers.
func (m *Manager) Report() *transfer.Report {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.report
}

func (m *Manager) progress(event ProgressEvent) {
	if m.onProgress != nil {
		m.onProgress(event)
	}
}
