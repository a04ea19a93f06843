package transfer

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/handiism/track-reconciler/internal/audio"
	"github.com/handiism/track-reconciler/internal/dedupe"
	"github.com/handiism/track-reconciler/internal/identity"
	"github.com/handiism/track-reconciler/internal/model"
	"github.com/handiism/track-reconciler/internal/reconcile"
	"github.com/handiism/track-reconciler/internal/scan"
	"github.com/handiism/track-reconciler/internal/testsupport"
	"github.com/sirupsen/logrus"
)

type fixture struct {
	source string
	target string
	tags   *testsupport.TagStore
	logger *logrus.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return &fixture{
		source: t.TempDir(),
		target: t.TempDir(),
		tags:   testsupport.NewTagStore(),
		logger: logger,
	}
}

// reconcile scans both directories and reconciles them under policy.
func (f *fixture) reconcile(t *testing.T, policy model.OverwritePolicy) (*reconcile.Result, model.DestinationIndex) {
	t.Helper()
	s := scan.NewScanner(f.tags, identity.NewResolver(true), scan.Options{}, f.logger)
	src, err := s.ScanSource(f.source)
	if err != nil {
		t.Fatal(err)
	}
	dst, err := s.ScanTarget(f.target)
	if err != nil {
		t.Fatal(err)
	}
	return reconcile.Reconcile(dedupe.Group(src.Records), dst.Index, policy), dst.Index
}

func (f *fixture) run(t *testing.T, opts Options) (*Report, *reconcile.Result) {
	t.Helper()
	res, index := f.reconcile(t, opts.Policy)
	exec := NewExecutor(f.tags, f.target, opts, f.logger, nil)
	report, err := exec.Transfer(context.Background(), res, index)
	if err != nil {
		t.Fatalf("Transfer() error = %v", err)
	}
	return report, res
}

func (f *fixture) scenario(t *testing.T) {
	t.Helper()
	testsupport.WriteTrack(t, f.source, "1.mp3", audio.Fields{Title: "A - Song1"}, testsupport.Day(1))
	testsupport.WriteTrack(t, f.source, "2.mp3", audio.Fields{Title: "A - Song1", Album: "old"}, testsupport.Day(2))
	testsupport.WriteTrack(t, f.source, "3.mp3", audio.Fields{Title: "B - Song2"}, testsupport.Day(1))
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestTransfer_CopyNever(t *testing.T) {
	f := newFixture(t)
	f.scenario(t)

	report, _ := f.run(t, Options{Policy: model.OverwriteNever, Mode: model.ModeCopy, Album: "Drops", Genre: "House", Extension: ".mp3"})

	if len(report.Errors) != 0 {
		t.Fatalf("Errors = %v", report.Errors)
	}
	if len(report.Transferred) != 2 {
		t.Fatalf("len(Transferred) = %d, want 2", len(report.Transferred))
	}

	got := testsupport.ReadTrack(t, filepath.Join(f.target, "A - Song1.mp3"))
	want := audio.Fields{Title: "Song1", Artist: "A", Album: "Drops", Genre: "House"}
	if got != want {
		t.Errorf("target tags = %+v, want %+v", got, want)
	}

	info, err := os.Stat(filepath.Join(f.target, "A - Song1.mp3"))
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(testsupport.Day(1)) {
		t.Errorf("target mtime = %v, want the day-1 canonical's mtime", info.ModTime())
	}

	if names := listDir(t, f.source); len(names) != 3 {
		t.Errorf("source = %v, want the three originals and no staging files", names)
	}
	if src := testsupport.ReadTrack(t, filepath.Join(f.source, "1.mp3")); src.Artist != "" {
		t.Error("copy mode must not modify the source file")
	}
}

func TestTransfer_MoveAlways(t *testing.T) {
	f := newFixture(t)
	f.scenario(t)

	report, _ := f.run(t, Options{Policy: model.OverwriteAlways, Mode: model.ModeMove, Genre: "House", Extension: ".mp3"})

	if len(report.Errors) != 0 || len(report.Transferred) != 2 {
		t.Fatalf("report = %+v", report)
	}

	if names := listDir(t, f.source); len(names) != 1 || names[0] != "1.mp3" {
		t.Errorf("source = %v, want only the non-canonical 1.mp3 left", names)
	}

	got := testsupport.ReadTrack(t, filepath.Join(f.target, "A - Song1.mp3"))
	if got.Album != "old" || got.Genre != "House" {
		t.Errorf("target tags = %+v, want album kept and genre stamped", got)
	}
}

func TestTransfer_FailureIsolation(t *testing.T) {
	f := newFixture(t)
	f.scenario(t)
	f.tags.FailWritesFor("A - Song1")

	report, res := f.run(t, Options{Policy: model.OverwriteNever, Mode: model.ModeCopy, Extension: ".mp3"})

	if len(report.Errors) != 1 {
		t.Fatalf("Errors = %v, want exactly one", report.Errors)
	}
	err := report.Errors["A - Song1"]
	var terr *model.TransferError
	if !errors.As(err, &terr) || terr.Op != "tag" || !errors.Is(err, testsupport.ErrInjected) {
		t.Errorf("error = %v, want tag TransferError", err)
	}
	if keys := report.ErrorKeys(); len(keys) != 1 || keys[0] != "A - Song1" {
		t.Errorf("ErrorKeys() = %v", keys)
	}

	if len(report.Transferred) != 1 || report.Transferred[0].Key != "B - Song2" {
		t.Errorf("Transferred = %+v, want B - Song2", report.Transferred)
	}
	if res.Summary.NewTracks != 2 || res.Summary.UniqueTracks != 2 {
		t.Errorf("summary changed by a transfer failure: %+v", res.Summary.Totals)
	}

	for _, name := range listDir(t, f.source) {
		if strings.HasPrefix(name, ".rp-staging-") {
			t.Errorf("orphaned staging file %s", name)
		}
	}
}

func TestTransfer_IdempotentNever(t *testing.T) {
	f := newFixture(t)
	f.scenario(t)
	opts := Options{Policy: model.OverwriteNever, Mode: model.ModeCopy, Extension: ".mp3"}

	f.run(t, opts)
	report, res := f.run(t, opts)

	if res.Summary.NewTracks != 0 || res.Summary.ExistingTracks != 2 {
		t.Errorf("second run Totals = %+v", res.Summary.Totals)
	}
	if len(report.Transferred) != 0 || len(report.Errors) != 0 {
		t.Errorf("second run transferred %d, failed %d; want nothing", len(report.Transferred), len(report.Errors))
	}
}

func TestTransfer_NameCollision(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteTrack(t, f.source, "1.mp3", audio.Fields{Title: "A - B:C"}, testsupport.Day(1))
	testsupport.WriteTrack(t, f.source, "2.mp3", audio.Fields{Title: "A - B/C"}, testsupport.Day(1))

	report, _ := f.run(t, Options{Policy: model.OverwriteAlways, Mode: model.ModeCopy, Extension: ".mp3"})

	if len(report.Transferred) != 1 {
		t.Errorf("len(Transferred) = %d, want 1", len(report.Transferred))
	}
	if !errors.Is(report.Errors["A - B/C"], ErrNameCollision) {
		t.Errorf("Errors = %v, want collision on A - B/C", report.Errors)
	}
}

func TestTransfer_NeverKeepsUnindexedFile(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteTrack(t, f.source, "1.mp3", audio.Fields{Title: "B - Song2"}, testsupport.Day(1))
	// Present under the target name but without artist/title tags.
	testsupport.WriteTrack(t, f.target, "B - Song2.mp3", audio.Fields{Album: "untagged"}, testsupport.Day(5))

	report, _ := f.run(t, Options{Policy: model.OverwriteNever, Mode: model.ModeCopy, Extension: ".mp3"})

	if !errors.Is(report.Errors["B - Song2"], ErrTargetExists) {
		t.Errorf("Errors = %v, want ErrTargetExists", report.Errors)
	}
	if got := testsupport.ReadTrack(t, filepath.Join(f.target, "B - Song2.mp3")); got.Album != "untagged" {
		t.Error("never policy replaced an existing target file")
	}
}

func TestTransfer_AlwaysReplaces(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteTrack(t, f.source, "1.mp3", audio.Fields{Title: "B - Song2"}, testsupport.Day(3))
	testsupport.WriteTrack(t, f.target, "B - Song2.mp3", audio.Fields{Title: "Song2", Artist: "B", Album: "stale"}, testsupport.Day(1))

	report, res := f.run(t, Options{Policy: model.OverwriteAlways, Mode: model.ModeCopy, Album: "fresh", Extension: ".mp3"})

	if res.Summary.ExistingTracks != 1 {
		t.Errorf("Totals = %+v, want one existing", res.Summary.Totals)
	}
	if len(report.Transferred) != 1 {
		t.Fatalf("report = %+v", report)
	}
	if got := testsupport.ReadTrack(t, filepath.Join(f.target, "B - Song2.mp3")); got.Album != "fresh" {
		t.Errorf("target album = %q, want fresh", got.Album)
	}
}

func TestTransfer_KeepsSourceExtension(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteTrack(t, f.source, "1.flac", audio.Fields{Title: "A - Song1"}, testsupport.Day(1))

	report, _ := f.run(t, Options{Policy: model.OverwriteNever, Mode: model.ModeCopy})

	if len(report.Transferred) != 1 || filepath.Base(report.Transferred[0].Target) != "A - Song1.flac" {
		t.Errorf("Transferred = %+v, want A - Song1.flac", report.Transferred)
	}
}

func TestTransfer_ExtensionFollowsSourceFormat(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{name: "flac keeps its extension", source: "1.flac", want: "A - Song1.flac"},
		{name: "upper-case mp3 uses configured", source: "1.MP3", want: "A - Song1.mp3"},
		{name: "no extension uses configured", source: "1", want: "A - Song1.mp3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			testsupport.WriteTrack(t, f.source, tt.source, audio.Fields{Title: "A - Song1"}, testsupport.Day(1))

			report, _ := f.run(t, Options{Policy: model.OverwriteNever, Mode: model.ModeCopy, Extension: ".mp3"})

			if len(report.Transferred) != 1 || filepath.Base(report.Transferred[0].Target) != tt.want {
				t.Fatalf("Transferred = %+v, errors = %v, want %s", report.Transferred, report.Errors, tt.want)
			}
			if got := listDir(t, f.target); len(got) != 1 || got[0] != tt.want {
				t.Errorf("target = %v, want [%s]", got, tt.want)
			}
		})
	}
}

func TestTransfer_ProgressAndNoneMode(t *testing.T) {
	f := newFixture(t)
	f.scenario(t)
	res, index := f.reconcile(t, model.OverwriteAlways)

	none := NewExecutor(f.tags, f.target, Options{Policy: model.OverwriteAlways}, f.logger, nil)
	report, err := none.Transfer(context.Background(), res, index)
	if err != nil || len(report.Transferred) != 0 || len(listDir(t, f.target)) != 0 {
		t.Fatal("ModeNone must not transfer anything")
	}

	var calls []int
	exec := NewExecutor(f.tags, f.target, Options{Policy: model.OverwriteAlways, Mode: model.ModeCopy}, f.logger, func(done, total int) {
		calls = append(calls, done)
		if total != 2 {
			t.Errorf("total = %d, want 2", total)
		}
	})
	if _, err := exec.Transfer(context.Background(), res, index); err != nil {
		t.Fatal(err)
	}
	if len(calls) != 2 || calls[0] != 1 || calls[1] != 2 {
		t.Errorf("progress calls = %v, want [1 2]", calls)
	}
	if done, total := exec.Progress(); done != 2 || total != 2 {
		t.Errorf("Progress() = %d/%d, want 2/2", done, total)
	}
}

func TestTransfer_Cancelled(t *testing.T) {
	f := newFixture(t)
	f.scenario(t)
	res, index := f.reconcile(t, model.OverwriteNever)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := NewExecutor(f.tags, f.target, Options{Policy: model.OverwriteNever, Mode: model.ModeCopy}, f.logger, nil)
	report, err := exec.Transfer(ctx, res, index)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Transfer() error = %v, want context.Canceled", err)
	}
	if len(report.Transferred) != 0 || len(report.Errors) != 0 {
		t.Error("cancelled run should not touch any candidate")
	}
}
