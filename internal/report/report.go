// Package report renders run results for the terminal and for files.
package report

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/handiism/track-reconciler/internal/model"
	"github.com/handiism/track-reconciler/internal/reconcile"
	"github.com/handiism/track-reconciler/internal/scan"
	"github.com/handiism/track-reconciler/internal/transfer"
)

// Tracks prints the raw title of every listed source file followed by the
// total. A set date window is shown next to the total.
func Tracks(w io.Writer, entries []scan.FileEntry, minDate, maxDate string) {
	for _, e := range entries {
		fmt.Fprintln(w, e.RawTitle)
	}
	if window := dateWindow(minDate, maxDate); window != "" {
		fmt.Fprintf(w, "Total tracks (%s): %d\n", window, len(entries))
		return
	}
	fmt.Fprintf(w, "Total tracks: %d\n", len(entries))
}

// Dates prints the number of listed source files per date, ascending.
func Dates(w io.Writer, entries []scan.FileEntry) {
	counts := make(map[string]int)
	for _, e := range entries {
		counts[e.Date]++
	}
	dates := make([]string, 0, len(counts))
	for d := range counts {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	for _, d := range dates {
		fmt.Fprintf(w, "%s (%d tracks)\n", d, counts[d])
	}
	fmt.Fprintf(w, "Total dates: %d\n", len(dates))
}

func dateWindow(minDate, maxDate string) string {
	switch {
	case minDate == "" && maxDate == "":
		return ""
	case minDate == maxDate:
		return minDate
	default:
		return minDate + ".." + maxDate
	}
}

// Summary prints the per-date table with a totals footer and the ignored
// tally.
func Summary(w io.Writer, sum *reconcile.Summary, ignored model.IgnoredTally) {
	rows := make([][]string, 0, len(sum.ByDate))
	for _, d := range sum.Dates() {
		st := sum.ByDate[d]
		rows = append(rows, []string{d, itoa(st.Total), itoa(st.Unique), itoa(st.Existing), itoa(st.New)})
	}

	footer := []string{"Total", itoa(sum.TotalTracks), itoa(sum.UniqueTracks), itoa(sum.ExistingTracks), itoa(sum.NewTracks)}
	aligns := []columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight}
	fmt.Fprintln(w, renderTable([]string{"Date", "Tracks", "Unique", "Existing", "New"}, rows, footer, aligns))

	if ignored.Total() > 0 {
		fmt.Fprintf(w, "Ignored: %d (no identity: %d, by title: %d)\n", ignored.Total(), ignored.NoIdentity, ignored.IgnoredByTitle)
	}
}

// Statuses prints one row per group in first-seen order.
func Statuses(w io.Writer, res *reconcile.Result) {
	rows := make([][]string, 0, len(res.Statuses))
	for _, st := range res.Statuses {
		rows = append(rows, []string{
			st.Key,
			st.Class.String(),
			itoa(st.Size),
			st.Canonical.Date,
			filepath.Base(st.Canonical.FilePath),
		})
	}
	aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft}
	fmt.Fprintln(w, renderTable([]string{"Track", "Status", "Copies", "Date", "File"}, rows, nil, aligns))
}

// NearMatches prints advisory near matches.
func NearMatches(w io.Writer, matches []reconcile.NearMatch) {
	if len(matches) == 0 {
		return
	}
	rows := make([][]string, 0, len(matches))
	for _, nm := range matches {
		rows = append(rows, []string{nm.Key, nm.TargetKey, fmt.Sprintf("%.2f", nm.Similarity)})
	}
	fmt.Fprintln(w, "Possible duplicates already in the library:")
	fmt.Fprintln(w, renderTable([]string{"New", "Library", "Similarity"}, rows, nil, []columnAlignment{alignLeft, alignLeft, alignRight}))
}

// Errors prints the trailing error section, one "key: description" line
// per failed candidate in processing order.
func Errors(w io.Writer, rep *transfer.Report) {
	if rep == nil || len(rep.Errors) == 0 {
		return
	}
	fmt.Fprintf(w, "\nErrors (%d):\n", len(rep.Errors))
	for _, key := range rep.ErrorKeys() {
		fmt.Fprintf(w, "  %s: %v\n", key, rep.Errors[key])
	}
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
