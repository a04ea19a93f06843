package reconcile

import (
	"sort"
	"strings"

	"github.com/handiism/track-reconciler/internal/model"
	"github.com/hbollon/go-edlib"
)

// DefaultNearMatchThreshold is the Jaro-Winkler similarity at or above which
// a new group is reported as a possible match of a target track.
const DefaultNearMatchThreshold float32 = 0.92

// NearMatch pairs a new source identity with a similar target identity.
type NearMatch struct {
	Key        string  `yaml:"key"`
	TargetKey  string  `yaml:"target_key"`
	Similarity float32 `yaml:"similarity"`
}

// NearMatches compares every new group's key against the destination index
// and returns the best target match per key when it reaches threshold.
//
// The result is advisory only. It never changes a classification.
func NearMatches(res *Result, index model.DestinationIndex, threshold float32) []NearMatch {
	if len(index) == 0 {
		return nil
	}

	targets := make([]string, 0, len(index))
	for k := range index {
		targets = append(targets, k)
	}
	sort.Strings(targets)

	lowered := make([]string, len(targets))
	for i, k := range targets {
		lowered[i] = strings.ToLower(k)
	}

	var out []NearMatch
	for _, st := range res.Statuses {
		if st.Class != model.ClassNew {
			continue
		}
		key := strings.ToLower(st.Key)

		best := -1
		var bestSim float32
		for i, tk := range lowered {
			sim, err := edlib.StringsSimilarity(key, tk, edlib.JaroWinkler)
			if err != nil {
				continue
			}
			if sim > bestSim {
				best, bestSim = i, sim
			}
		}

		if best >= 0 && bestSim >= threshold {
			out = append(out, NearMatch{
				Key:        st.Key,
				TargetKey:  targets[best],
				Similarity: bestSim,
			})
		}
	}
	return out
}
