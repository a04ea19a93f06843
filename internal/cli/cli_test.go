package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/handiism/track-reconciler/internal/audio"
	"github.com/handiism/track-reconciler/internal/config"
	"github.com/handiism/track-reconciler/internal/library"
	"github.com/handiism/track-reconciler/internal/model"
	"github.com/handiism/track-reconciler/internal/testsupport"
	"github.com/spf13/cobra"
)

type cliTestEnv struct {
	source string
	target string
	config string
	tags   *testsupport.TagStore
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	env := &cliTestEnv{
		source: t.TempDir(),
		target: t.TempDir(),
		config: filepath.Join(t.TempDir(), "config.toml"),
		tags:   testsupport.NewTagStore(),
	}
	testsupport.WriteTrack(t, env.source, "1.mp3", audio.Fields{Title: "A - Song1"}, testsupport.Day(1))
	testsupport.WriteTrack(t, env.source, "2.mp3", audio.Fields{Title: "A - Song1"}, testsupport.Day(2))
	testsupport.WriteTrack(t, env.source, "3.mp3", audio.Fields{Title: "B - Song2"}, testsupport.Day(1))
	return env
}

func (env *cliTestEnv) run(args ...string) (string, error) {
	cmd := NewRootCommand(library.WithTags(env.tags))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", env.config}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestListTracks(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(env.source, "--list-tracks", "--min-date", "2024-01-02", "--max-date", "2024-01-02")
	if err != nil {
		t.Fatalf("run error = %v", err)
	}
	want := "A - Song1\nTotal tracks (2024-01-02): 1\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestListTracks_SingleDate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(env.source, "--list-tracks", "-d", "2024-01-01")
	if err != nil {
		t.Fatalf("run error = %v", err)
	}
	want := "A - Song1\nB - Song2\nTotal tracks (2024-01-01): 2\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestListDates(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(env.source, env.target, "--list-dates")
	if err != nil {
		t.Fatalf("run error = %v", err)
	}
	want := "2024-01-01 (2 tracks)\n2024-01-02 (1 tracks)\nTotal dates: 2\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestArgumentErrors(t *testing.T) {
	env := setupCLITestEnv(t)
	missing := filepath.Join(t.TempDir(), "missing")

	tests := []struct {
		name string
		args []string
		flag string
	}{
		{"bad min date", []string{missing, missing, "--overwrite", "never", "--min-date", "2024-02-30"}, "min-date"},
		{"bad max date", []string{missing, "--list-tracks", "--max-date", "yesterday"}, "max-date"},
		{"bad overwrite", []string{missing, missing, "--overwrite", "sometimes"}, "overwrite"},
		{"missing overwrite", []string{missing, missing, "--copy"}, "overwrite"},
		{"missing target", []string{missing, "--overwrite", "never"}, "target"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.run(tt.args...)
			var argErr *model.ArgumentError
			if !errors.As(err, &argErr) || argErr.Flag != tt.flag {
				t.Errorf("error = %v, want ArgumentError for --%s", err, tt.flag)
			}
			if ExitCode(err) != 1 {
				t.Errorf("ExitCode = %d, want 1", ExitCode(err))
			}
		})
	}
}

func TestIgnoreKeepsCommas(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteTrack(t, env.source, "4.mp3", audio.Fields{Title: "C - Hello, World"}, testsupport.Day(1))

	out, err := env.run(env.source, env.target, "--overwrite", "never", "--status",
		"--ignore", "C - Hello, World", "--ignore", "B - Song2")
	if err != nil {
		t.Fatalf("run error = %v", err)
	}
	if !strings.Contains(out, "Ignored: 2 (no identity: 0, by title: 2)") {
		t.Errorf("output missing ignore tally:\n%s", out)
	}
	if strings.Contains(out, "Hello, World") {
		t.Errorf("ignored track listed:\n%s", out)
	}
}

func TestRunFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		ignore  []string
		minDate string
		maxDate string
	}{
		{
			name:   "ignore values are not split",
			args:   []string{"--ignore", "C - Hello, World", "--ignore", "A - B"},
			ignore: []string{"C - Hello, World", "A - B"},
		},
		{
			name:    "date sets both bounds",
			args:    []string{"--date", "2024-03-01"},
			minDate: "2024-03-01",
			maxDate: "2024-03-01",
		},
		{
			name:    "explicit bounds",
			args:    []string{"--min-date", "2024-03-01", "--max-date", "2024-03-05"},
			minDate: "2024-03-01",
			maxDate: "2024-03-05",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f runFlags
			cmd := &cobra.Command{Use: "test"}
			f.register(cmd)
			args := append([]string{"--config", filepath.Join(t.TempDir(), "none.toml")}, tt.args...)
			if err := cmd.ParseFlags(args); err != nil {
				t.Fatalf("ParseFlags() error = %v", err)
			}

			settings, err := f.loadSettings(cmd)
			if err != nil {
				t.Fatalf("loadSettings() error = %v", err)
			}
			if !slices.Equal(settings.Ignore, tt.ignore) {
				t.Errorf("Ignore = %q, want %q", settings.Ignore, tt.ignore)
			}
			if settings.MinDate != tt.minDate || settings.MaxDate != tt.maxDate {
				t.Errorf("window = %s..%s, want %s..%s", settings.MinDate, settings.MaxDate, tt.minDate, tt.maxDate)
			}
		})
	}
}

func TestExclusiveFlags(t *testing.T) {
	env := setupCLITestEnv(t)

	for _, args := range [][]string{
		{env.source, env.target, "--overwrite", "never", "--copy", "--move"},
		{env.source, "--list-tracks", "--list-dates"},
		{env.source, env.target, "--list-tracks", "--copy"},
		{env.source, env.target, "--list-dates", "--move"},
		{env.source, "--list-tracks", "--date", "2024-01-01", "--min-date", "2024-01-01"},
	} {
		t.Run(strings.Join(args[1:], " "), func(t *testing.T) {
			if _, err := env.run(args...); err == nil {
				t.Error("expected a flag conflict error")
			}
		})
	}
}

func TestReportOnly(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(env.source, env.target, "--overwrite", "never", "--status")
	if err != nil {
		t.Fatalf("run error = %v", err)
	}
	for _, want := range []string{"2024-01-01", "A - Song1", "new"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if entries, _ := os.ReadDir(env.target); len(entries) != 0 {
		t.Error("report-only run must not write to the target")
	}
}

func TestCopyWithFailureStillSucceeds(t *testing.T) {
	env := setupCLITestEnv(t)
	env.tags.FailWritesFor("B - Song2")
	reportPath := filepath.Join(t.TempDir(), "run.yaml")
	playlistPath := filepath.Join(env.target, "new.m3u")

	out, err := env.run(env.source, env.target, "--overwrite", "never", "--copy",
		"--genre", "House", "--report", reportPath, "--playlist", playlistPath)
	if err != nil {
		t.Fatalf("run error = %v", err)
	}
	if ExitCode(err) != 0 {
		t.Errorf("ExitCode = %d, want 0", ExitCode(err))
	}

	if !strings.Contains(out, "Errors (1):") || !strings.Contains(out, "B - Song2: tag") {
		t.Errorf("output missing trailing error section:\n%s", out)
	}
	if got := testsupport.ReadTrack(t, filepath.Join(env.target, "A - Song1.mp3")); got.Genre != "House" {
		t.Errorf("A - Song1 genre = %q", got.Genre)
	}
	if _, err := os.Stat(filepath.Join(env.target, "B - Song2.mp3")); !os.IsNotExist(err) {
		t.Error("failed track should not reach the target")
	}

	data, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	if !strings.Contains(string(data), "key: B - Song2") {
		t.Errorf("report missing error entry:\n%s", data)
	}

	playlist, err := os.ReadFile(playlistPath)
	if err != nil {
		t.Fatalf("playlist not written: %v", err)
	}
	if !strings.Contains(string(playlist), "A - Song1.mp3") || strings.Contains(string(playlist), "B - Song2.mp3") {
		t.Errorf("playlist = %q", playlist)
	}
}

func TestConfigFileDefaults(t *testing.T) {
	env := setupCLITestEnv(t)
	content := "overwrite = \"always\"\nmode = \"move\"\nignore = [\"B - Song2\"]\n"
	if err := os.WriteFile(env.config, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := env.run(env.source, env.target); err != nil {
		t.Fatalf("run error = %v", err)
	}

	entries, err := os.ReadDir(env.source)
	if err != nil {
		t.Fatal(err)
	}
	var left []string
	for _, e := range entries {
		left = append(left, e.Name())
	}
	// always keeps the day-2 copy of A - Song1; B - Song2 is ignored.
	if fmt.Sprint(left) != "[1.mp3 3.mp3]" {
		t.Errorf("source after move = %v", left)
	}
}

func TestSaveConfig(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, err := env.run("--save-config", "--overwrite", "never", "--album", "Drops", env.source, env.target); err != nil {
		t.Fatalf("run error = %v", err)
	}

	saved, err := config.Load(env.config)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if saved.Overwrite != "never" || saved.Album != "Drops" {
		t.Errorf("saved overwrite=%q album=%q", saved.Overwrite, saved.Album)
	}
	if saved.Mode != "" {
		t.Errorf("saved mode = %q, want empty", saved.Mode)
	}
}

func TestExitCode(t *testing.T) {
	if ExitCode(nil) != 0 || ExitCode(context.Canceled) != 130 || ExitCode(errors.New("x")) != 1 {
		t.Error("unexpected exit code mapping")
	}
}
