package reconcile

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/handiism/track-reconciler/internal/dedupe"
	"github.com/handiism/track-reconciler/internal/model"
)

var (
	day1 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	day2 = time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)
)

func rec(t *testing.T, path, artist, title string, mod time.Time) *model.TrackRecord {
	t.Helper()
	r, err := model.NewTrackRecord(path, mod, time.UTC, model.Identity{Artist: artist, Title: title})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func scenario(t *testing.T) *dedupe.Groups {
	return dedupe.Group([]*model.TrackRecord{
		rec(t, "a-day1", "A", "Song1", day1),
		rec(t, "a-day2", "A", "Song1", day2),
		rec(t, "b-day1", "B", "Song2", day1),
	})
}

func TestReconcile_Scenario(t *testing.T) {
	tests := []struct {
		name      string
		policy    model.OverwritePolicy
		canonical string
		byDate    map[string]DateStats
	}{
		{
			name:      "never",
			policy:    model.OverwriteNever,
			canonical: "a-day1",
			byDate: map[string]DateStats{
				"2024-01-01": {Total: 2, Unique: 2, New: 2},
				"2024-01-02": {Total: 1},
			},
		},
		{
			name:      "always",
			policy:    model.OverwriteAlways,
			canonical: "a-day2",
			byDate: map[string]DateStats{
				"2024-01-01": {Total: 2, Unique: 1, New: 1},
				"2024-01-02": {Total: 1, Unique: 1, New: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Reconcile(scenario(t), model.DestinationIndex{}, tt.policy)

			wantTotals := Totals{TotalTracks: 3, UniqueTracks: 2, NewTracks: 2}
			if res.Summary.Totals != wantTotals {
				t.Errorf("Totals = %+v, want %+v", res.Summary.Totals, wantTotals)
			}
			for date, want := range tt.byDate {
				got := res.Summary.ByDate[date]
				if got == nil || *got != want {
					t.Errorf("ByDate[%s] = %+v, want %+v", date, got, want)
				}
			}
			if got := res.Statuses[0].Canonical.FilePath; got != tt.canonical {
				t.Errorf("canonical of A - Song1 = %s, want %s", got, tt.canonical)
			}
		})
	}
}

func TestReconcile_ExistingAndCandidates(t *testing.T) {
	index := model.DestinationIndex{
		"A - Song1": rec(t, filepath.Join("lib", "A - Song1.mp3"), "A", "Song1", day1),
	}

	res := Reconcile(scenario(t), index, model.OverwriteNever)

	if class, ok := res.Classification("A - Song1"); !ok || class != model.ClassExisting {
		t.Errorf("Classification(A - Song1) = %v, %v; want existing", class, ok)
	}
	if class, _ := res.Classification("B - Song2"); class != model.ClassNew {
		t.Errorf("Classification(B - Song2) = %v, want new", class)
	}
	if _, ok := res.Classification("C - Missing"); ok {
		t.Error("unknown key should not be classified")
	}
	if res.Summary.ExistingTracks != 1 || res.Summary.NewTracks != 1 {
		t.Errorf("Totals = %+v, want 1 existing and 1 new", res.Summary.Totals)
	}

	if got := res.Candidates(model.OverwriteNever); len(got) != 1 || got[0].Key != "B - Song2" {
		t.Errorf("Candidates(never) = %+v, want only B - Song2", got)
	}
	if got := res.Candidates(model.OverwriteAlways); len(got) != 2 {
		t.Errorf("len(Candidates(always)) = %d, want 2", len(got))
	}
}

func TestReconcile_IdempotentOnSecondRun(t *testing.T) {
	groups := scenario(t)
	index := model.DestinationIndex{}
	for _, st := range Reconcile(groups, index, model.OverwriteNever).Statuses {
		index[st.Key] = st.Canonical
	}

	res := Reconcile(groups, index, model.OverwriteNever)

	if res.Summary.NewTracks != 0 || res.Summary.ExistingTracks != 2 {
		t.Errorf("second run Totals = %+v, want everything existing", res.Summary.Totals)
	}
	if got := res.Candidates(model.OverwriteNever); len(got) != 0 {
		t.Errorf("second run should select nothing, got %d candidates", len(got))
	}
}

func TestSummary_Dates(t *testing.T) {
	s := &Summary{ByDate: map[string]*DateStats{
		"2024-02-01": {}, "2023-12-31": {}, "2024-01-15": {},
	}}
	got := s.Dates()
	want := []string{"2023-12-31", "2024-01-15", "2024-02-01"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Dates() = %v, want %v", got, want)
		}
	}
}

func TestNearMatches(t *testing.T) {
	groups := dedupe.Group([]*model.TrackRecord{
		rec(t, "s1", "Artist", "Song Title (Original Mix)", day1),
		rec(t, "s2", "Other", "Completely Different", day1),
		rec(t, "s3", "Known", "Track", day1),
	})
	index := model.DestinationIndex{
		"artist - song title (original mix)": rec(t, "t1", "artist", "song title (original mix)", day1),
		"Known - Track":                      rec(t, "t2", "Known", "Track", day1),
	}
	res := Reconcile(groups, index, model.OverwriteNever)

	got := NearMatches(res, index, DefaultNearMatchThreshold)

	if len(got) != 1 {
		t.Fatalf("NearMatches() = %+v, want one match", got)
	}
	if got[0].Key != "Artist - Song Title (Original Mix)" || got[0].TargetKey != "artist - song title (original mix)" {
		t.Errorf("NearMatches()[0] = %+v", got[0])
	}
	if class, _ := res.Classification(got[0].Key); class != model.ClassNew {
		t.Error("near matches must not change classification")
	}
}
