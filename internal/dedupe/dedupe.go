// Package dedupe groups source records by identity key.
package dedupe

import (
	"slices"
	"sort"

	"github.com/handiism/track-reconciler/internal/model"
)

// Groups holds source groups in first-seen order.
type Groups struct {
	order []*model.SourceGroup
	byKey map[string]*model.SourceGroup
}

// Group builds groups from records given in scan order.
//
// Each record is inserted after every member with a ModTime less than or
// equal to its own, so a group stays sorted by ModTime ascending and equal
// timestamps keep their scan order.
func Group(records []*model.TrackRecord) *Groups {
	g := &Groups{byKey: make(map[string]*model.SourceGroup)}

	for _, rec := range records {
		grp, ok := g.byKey[rec.IdentityKey]
		if !ok {
			grp = &model.SourceGroup{Key: rec.IdentityKey}
			g.byKey[rec.IdentityKey] = grp
			g.order = append(g.order, grp)
		}

		i := sort.Search(len(grp.Records), func(i int) bool {
			return grp.Records[i].ModTime.After(rec.ModTime)
		})
		grp.Records = slices.Insert(grp.Records, i, rec)
	}

	return g
}

// All returns the groups in first-seen order.
func (g *Groups) All() []*model.SourceGroup {
	return g.order
}

// Keys returns the identity keys in first-seen order.
func (g *Groups) Keys() []string {
	keys := make([]string, len(g.order))
	for i, grp := range g.order {
		keys[i] = grp.Key
	}
	return keys
}

// Get returns the group for key, or nil.
func (g *Groups) Get(key string) *model.SourceGroup {
	return g.byKey[key]
}

// Len returns the number of groups.
func (g *Groups) Len() int {
	return len(g.order)
}

// Canonical returns the group member that represents it under policy:
// the latest record for OverwriteAlways, the earliest otherwise.
func Canonical(grp *model.SourceGroup, policy model.OverwritePolicy) *model.TrackRecord {
	if len(grp.Records) == 0 {
		return nil
	}
	if policy == model.OverwriteAlways {
		return grp.Records[len(grp.Records)-1]
	}
	return grp.Records[0]
}
