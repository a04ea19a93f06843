// Package identity parses raw tag titles into (artist, title) identities.
//
// A raw title such as "Artist - Song" is split on the first " - ". Both
// halves are trimmed and NFC-normalized, and the identity key is rebuilt
// from them, so cosmetic differences in the raw tag collapse to one key:
//
//	r := identity.NewResolver(true)
//	id, err := r.Resolve("  Artist_Name -  Song ")
//	// id.Key() == "Artist Name - Song"
package identity

import (
	"strings"

	"github.com/handiism/track-reconciler/internal/model"
	"golang.org/x/text/unicode/norm"
)

// Resolver turns raw tag titles into identities.
type Resolver struct {
	normalizeUnderscores bool
}

// NewResolver creates a Resolver. When normalizeUnderscores is set,
// underscores in the raw title are read as spaces before splitting.
func NewResolver(normalizeUnderscores bool) *Resolver {
	return &Resolver{normalizeUnderscores: normalizeUnderscores}
}

// Resolve parses a raw tag title.
//
// It fails with model.ErrNoIdentity when the title is empty, lacks the
// " - " delimiter, or leaves an empty artist or title after trimming.
func (r *Resolver) Resolve(raw string) (model.Identity, error) {
	if r.normalizeUnderscores {
		raw = strings.ReplaceAll(raw, "_", " ")
	}

	artist, title, found := strings.Cut(raw, model.IdentityDelimiter)
	if !found {
		return model.Identity{}, model.ErrNoIdentity
	}
	return FromFields(artist, title)
}

// FromFields builds an identity from separate artist and title values, as
// read from a target file's own tag fields.
func FromFields(artist, title string) (model.Identity, error) {
	id := model.Identity{
		Artist: Normalize(artist),
		Title:  Normalize(title),
	}
	if id.Artist == "" || id.Title == "" {
		return model.Identity{}, model.ErrNoIdentity
	}
	return id, nil
}

// Normalize trims s and converts it to Unicode NFC.
func Normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// IgnoreList matches identity keys against user-supplied exclusions.
// Matching is exact after NFC normalization of the entries.
type IgnoreList map[string]struct{}

// NewIgnoreList builds an IgnoreList from raw entries.
func NewIgnoreList(entries []string) IgnoreList {
	list := make(IgnoreList, len(entries))
	for _, e := range entries {
		list[norm.NFC.String(e)] = struct{}{}
	}
	return list
}

// Contains reports whether key is on the list.
func (l IgnoreList) Contains(key string) bool {
	_, ok := l[key]
	return ok
}
