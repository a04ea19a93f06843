package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	ioutils "github.com/handiism/track-reconciler/internal/io"
	"github.com/handiism/track-reconciler/internal/model"
	"github.com/handiism/track-reconciler/internal/reconcile"
	"github.com/handiism/track-reconciler/internal/transfer"
	"gopkg.in/yaml.v3"
)

// Run is the YAML run report.
type Run struct {
	GeneratedAt time.Time `yaml:"generated_at"`
	Source      string    `yaml:"source"`
	Target      string    `yaml:"target"`
	Overwrite   string    `yaml:"overwrite"`
	Mode        string    `yaml:"mode"`

	Summary     *reconcile.Summary    `yaml:"summary"`
	Ignored     model.IgnoredTally    `yaml:"ignored"`
	Statuses    []RunStatus           `yaml:"statuses"`
	Transferred []transfer.Item       `yaml:"transferred,omitempty"`
	Errors      []RunError            `yaml:"errors,omitempty"`
	NearMatches []reconcile.NearMatch `yaml:"near_matches,omitempty"`
}

// RunStatus is one group's classification.
type RunStatus struct {
	Key    string `yaml:"key"`
	Status string `yaml:"status"`
	Copies int    `yaml:"copies"`
	File   string `yaml:"file"`
}

// RunError is one failed transfer.
type RunError struct {
	Key   string `yaml:"key"`
	Error string `yaml:"error"`
}

// NewRun assembles a run report. rep and near may be nil.
func NewRun(source, target string, policy model.OverwritePolicy, mode model.TransferMode,
	res *reconcile.Result, ignored model.IgnoredTally, rep *transfer.Report, near []reconcile.NearMatch) *Run {
	run := &Run{
		GeneratedAt: time.Now(),
		Source:      source,
		Target:      target,
		Overwrite:   policy.String(),
		Mode:        mode.String(),
		Summary:     res.Summary,
		Ignored:     ignored,
		NearMatches: near,
	}

	for _, st := range res.Statuses {
		run.Statuses = append(run.Statuses, RunStatus{
			Key:    st.Key,
			Status: st.Class.String(),
			Copies: st.Size,
			File:   st.Canonical.FilePath,
		})
	}

	if rep != nil {
		run.Transferred = rep.Transferred
		for _, key := range rep.ErrorKeys() {
			run.Errors = append(run.Errors, RunError{Key: key, Error: rep.Errors[key].Error()})
		}
	}
	return run
}

// WriteFile writes the run report to path as YAML.
func (r *Run) WriteFile(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := ioutils.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
