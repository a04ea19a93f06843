// Package reconcile diffs source groups against the destination index and
// aggregates per-date and global statistics.
package reconcile

import (
	"sort"

	"github.com/handiism/track-reconciler/internal/dedupe"
	"github.com/handiism/track-reconciler/internal/model"
)

// DateStats aggregates one derived date. Total counts every record on the
// date; Unique, Existing and New count canonical records only.
type DateStats struct {
	Total    int `yaml:"total"`
	Unique   int `yaml:"unique"`
	Existing int `yaml:"existing"`
	New      int `yaml:"new"`
}

// Totals aggregates the whole run.
type Totals struct {
	TotalTracks    int `yaml:"total_tracks"`
	UniqueTracks   int `yaml:"unique_tracks"`
	ExistingTracks int `yaml:"existing_tracks"`
	NewTracks      int `yaml:"new_tracks"`
}

// Summary is the reconciliation summary.
type Summary struct {
	ByDate map[string]*DateStats `yaml:"by_date"`
	Totals `yaml:",inline"`
}

// Dates returns the dates present in ByDate in ascending order.
func (s *Summary) Dates() []string {
	dates := make([]string, 0, len(s.ByDate))
	for d := range s.ByDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

func (s *Summary) date(d string) *DateStats {
	st, ok := s.ByDate[d]
	if !ok {
		st = &DateStats{}
		s.ByDate[d] = st
	}
	return st
}

// Status is the classification of one source group.
type Status struct {
	Key       string
	Class     model.Classification
	Canonical *model.TrackRecord
	Size      int
}

// Result holds the summary and the per-group statuses in first-seen order.
type Result struct {
	Summary  *Summary
	Statuses []Status

	byKey map[string]int
}

// Classification returns the classification of key and whether key was
// reconciled at all.
func (r *Result) Classification(key string) (model.Classification, bool) {
	i, ok := r.byKey[key]
	if !ok {
		return model.ClassNew, false
	}
	return r.Statuses[i].Class, true
}

// Reconcile classifies every group as new or existing and builds the summary.
//
// A group is existing iff its key is in index. The canonical record is
// chosen by policy and is the only member credited to Unique, Existing and
// New; every member is credited to Total on its own date.
func Reconcile(groups *dedupe.Groups, index model.DestinationIndex, policy model.OverwritePolicy) *Result {
	res := &Result{
		Summary:  &Summary{ByDate: make(map[string]*DateStats)},
		Statuses: make([]Status, 0, groups.Len()),
		byKey:    make(map[string]int, groups.Len()),
	}
	sum := res.Summary

	for _, grp := range groups.All() {
		class := model.ClassNew
		if _, ok := index[grp.Key]; ok {
			class = model.ClassExisting
		}

		for _, rec := range grp.Records {
			sum.date(rec.Date).Total++
		}

		canon := dedupe.Canonical(grp, policy)
		st := sum.date(canon.Date)
		st.Unique++

		sum.TotalTracks += grp.Len()
		sum.UniqueTracks++
		if class == model.ClassExisting {
			st.Existing++
			sum.ExistingTracks++
		} else {
			st.New++
			sum.NewTracks++
		}

		res.byKey[grp.Key] = len(res.Statuses)
		res.Statuses = append(res.Statuses, Status{
			Key:       grp.Key,
			Class:     class,
			Canonical: canon,
			Size:      grp.Len(),
		})
	}

	return res
}

// Candidates returns the statuses selected for transfer under policy:
// every group for OverwriteAlways, only new groups otherwise.
func (r *Result) Candidates(policy model.OverwritePolicy) []Status {
	var out []Status
	for _, st := range r.Statuses {
		if policy == model.OverwriteAlways || st.Class == model.ClassNew {
			out = append(out, st)
		}
	}
	return out
}
