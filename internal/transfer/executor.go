// Package transfer copies or moves canonical records into the target.
//
// Each candidate runs to completion before the next starts. A failure at
// any step is recorded against the candidate's identity key and the batch
// continues.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/handiism/track-reconciler/internal/audio"
	ioutils "github.com/handiism/track-reconciler/internal/io"
	"github.com/handiism/track-reconciler/internal/model"
	"github.com/handiism/track-reconciler/internal/reconcile"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNameCollision means two identity keys produced the same file name.
	ErrNameCollision = errors.New("file name already used by another track in this run")

	// ErrTargetExists means the target path is taken and the policy forbids
	// replacing it.
	ErrTargetExists = errors.New("target file exists")
)

// TagWriter writes tag fields to one file.
type TagWriter interface {
	Write(path string, fields audio.Fields) error
}

// Options configures an Executor.
type Options struct {
	Policy model.OverwritePolicy
	Mode   model.TransferMode

	// Album and Genre are stamped on every transferred file when non-empty.
	Album string
	Genre string

	// Extension is appended to target file names of sources in that format.
	// Sources in any other format, and every source when Extension is empty,
	// keep their own extension.
	Extension string
}

// Item is one successful transfer.
type Item struct {
	Key    string `yaml:"key"`
	Artist string `yaml:"-"`
	Title  string `yaml:"-"`
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}

// Report is the outcome of a transfer batch.
type Report struct {
	Transferred []Item
	Errors      map[string]error

	errorKeys []string
}

func newReport() *Report {
	return &Report{Errors: make(map[string]error)}
}

func (r *Report) fail(key string, err error) {
	if _, ok := r.Errors[key]; !ok {
		r.errorKeys = append(r.errorKeys, key)
	}
	r.Errors[key] = err
}

// ErrorKeys returns the failed identity keys in processing order.
func (r *Report) ErrorKeys() []string {
	return r.errorKeys
}

// Executor transfers candidates into a target directory.
type Executor struct {
	tags       TagWriter
	targetDir  string
	opts       Options
	logger     logrus.FieldLogger
	onProgress func(done, total int)

	processed atomic.Int32
	total     atomic.Int32

	claimed map[string]string
}

// NewExecutor creates an Executor. onProgress may be nil.
func NewExecutor(tags TagWriter, targetDir string, opts Options, logger logrus.FieldLogger, onProgress func(done, total int)) *Executor {
	return &Executor{
		tags:       tags,
		targetDir:  targetDir,
		opts:       opts,
		logger:     logger,
		onProgress: onProgress,
		claimed:    make(map[string]string),
	}
}

// Progress returns the number of processed candidates and the batch size.
func (e *Executor) Progress() (done, total int) {
	return int(e.processed.Load()), int(e.total.Load())
}

// Transfer processes every candidate selected by the overwrite policy.
//
// index is the destination index the result was reconciled against. The
// returned error is non-nil only when ctx is cancelled; candidates not
// reached by then are left untouched and are not reported as failures.
func (e *Executor) Transfer(ctx context.Context, res *reconcile.Result, index model.DestinationIndex) (*Report, error) {
	report := newReport()
	if e.opts.Mode == model.ModeNone {
		return report, nil
	}

	candidates := res.Candidates(e.opts.Policy)
	e.total.Store(int32(len(candidates)))

	for _, st := range candidates {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		item, err := e.transferOne(st, index)
		if err != nil {
			e.logger.WithFields(logrus.Fields{
				"key":   st.Key,
				"error": err,
			}).Warn("Transfer failed")
			report.fail(st.Key, err)
		} else {
			e.logger.WithFields(logrus.Fields{
				"key":    st.Key,
				"target": item.Target,
			}).Info("Transferred")
			report.Transferred = append(report.Transferred, item)
		}

		done := e.processed.Add(1)
		if e.onProgress != nil {
			e.onProgress(int(done), len(candidates))
		}
	}

	return report, nil
}

func (e *Executor) transferOne(st reconcile.Status, index model.DestinationIndex) (Item, error) {
	rec := st.Canonical
	name := ioutils.TrackFileName(st.Key, e.targetExtension(rec.FilePath))
	dst := filepath.Join(e.targetDir, name)

	if owner, ok := e.claimed[name]; ok && owner != st.Key {
		return Item{}, &model.TransferError{Key: st.Key, Op: "collision", Path: dst, Err: fmt.Errorf("%w: %q", ErrNameCollision, owner)}
	}
	e.claimed[name] = st.Key

	if e.opts.Policy != model.OverwriteAlways {
		if _, err := os.Lstat(dst); err == nil {
			return Item{}, &model.TransferError{Key: st.Key, Op: "exists", Path: dst, Err: ErrTargetExists}
		}
	}
	if prev, ok := index[st.Key]; ok && prev.FilePath != dst {
		e.logger.WithFields(logrus.Fields{
			"key":      st.Key,
			"existing": prev.FilePath,
			"target":   dst,
		}).Warn("Existing copy has a different file name and is kept")
	}

	fields := audio.Fields{
		Title:  rec.Title,
		Artist: rec.Artist,
		Album:  e.opts.Album,
		Genre:  e.opts.Genre,
	}

	var err error
	switch e.opts.Mode {
	case model.ModeCopy:
		err = e.copyTo(st.Key, rec.FilePath, dst, fields)
	case model.ModeMove:
		err = e.moveTo(st.Key, rec.FilePath, dst, fields)
	default:
		err = fmt.Errorf("unsupported transfer mode %v", e.opts.Mode)
	}
	if err != nil {
		return Item{}, err
	}
	return Item{Key: st.Key, Artist: rec.Artist, Title: rec.Title, Source: rec.FilePath, Target: dst}, nil
}

// targetExtension returns the extension for the target copy of src. The
// configured extension never renames one audio format as another.
func (e *Executor) targetExtension(src string) string {
	ext := filepath.Ext(src)
	if e.opts.Extension == "" {
		return ext
	}
	if ext == "" || strings.EqualFold(ext, e.opts.Extension) {
		return e.opts.Extension
	}
	return ext
}

// copyTo tags a staging copy next to src and relocates it to dst. The
// staging copy is removed on failure; src is never modified.
func (e *Executor) copyTo(key, src, dst string, fields audio.Fields) (err error) {
	times, err := ioutils.ReadFileTimes(src)
	if err != nil {
		return &model.TransferError{Key: key, Op: "stat", Path: src, Err: err}
	}

	staging := ioutils.StagingPath(src)
	defer func() {
		if err == nil {
			return
		}
		if rmErr := ioutils.RemoveIfExists(staging); rmErr != nil {
			e.logger.WithFields(logrus.Fields{
				"path":  staging,
				"error": rmErr,
			}).Warn("Could not remove staging copy")
		}
	}()

	if err := ioutils.CopyFile(src, staging); err != nil {
		return &model.TransferError{Key: key, Op: "copy", Path: staging, Err: err}
	}
	return e.finish(key, staging, dst, fields, times)
}

// moveTo tags src in place and relocates it to dst.
func (e *Executor) moveTo(key, src, dst string, fields audio.Fields) error {
	times, err := ioutils.ReadFileTimes(src)
	if err != nil {
		return &model.TransferError{Key: key, Op: "stat", Path: src, Err: err}
	}
	return e.finish(key, src, dst, fields, times)
}

// finish writes tags to path, restores its timestamps and relocates it.
// The tag writer closes the file before returning, so the rename never
// races an open handle.
func (e *Executor) finish(key, path, dst string, fields audio.Fields, times ioutils.FileTimes) error {
	if err := e.tags.Write(path, fields); err != nil {
		return &model.TransferError{Key: key, Op: "tag", Path: path, Err: err}
	}
	if err := times.Apply(path); err != nil {
		return &model.TransferError{Key: key, Op: "touch", Path: path, Err: err}
	}
	if err := ioutils.Relocate(path, dst); err != nil {
		return &model.TransferError{Key: key, Op: "relocate", Path: dst, Err: err}
	}
	return nil
}
