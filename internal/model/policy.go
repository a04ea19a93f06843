package model

import (
	"fmt"
	"strings"
)

// OverwritePolicy controls canonical selection and transfer candidacy.
type OverwritePolicy int

const (
	// OverwriteUnset means no policy was configured.
	OverwriteUnset OverwritePolicy = iota

	// OverwriteNever prefers the earliest duplicate and only transfers
	// groups absent from the target.
	OverwriteNever

	// OverwriteAlways prefers the freshest duplicate and transfers every group.
	OverwriteAlways
)

// ParseOverwritePolicy parses "always" or "never".
func ParseOverwritePolicy(s string) (OverwritePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "always":
		return OverwriteAlways, nil
	case "never":
		return OverwriteNever, nil
	case "":
		return OverwriteUnset, nil
	default:
		return OverwriteUnset, fmt.Errorf("unknown overwrite policy %q (must be always or never)", s)
	}
}

func (p OverwritePolicy) String() string {
	switch p {
	case OverwriteAlways:
		return "always"
	case OverwriteNever:
		return "never"
	default:
		return ""
	}
}

// TransferMode selects how canonical records reach the target.
type TransferMode int

const (
	// ModeNone stops after reconciliation.
	ModeNone TransferMode = iota

	// ModeCopy tags a staging copy and leaves the source untouched.
	ModeCopy

	// ModeMove tags the source in place and moves it.
	ModeMove
)

// ParseTransferMode parses "copy", "move" or "" (none).
func ParseTransferMode(s string) (TransferMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "copy":
		return ModeCopy, nil
	case "move":
		return ModeMove, nil
	case "", "none":
		return ModeNone, nil
	default:
		return ModeNone, fmt.Errorf("unknown transfer mode %q (must be copy or move)", s)
	}
}

func (m TransferMode) String() string {
	switch m {
	case ModeCopy:
		return "copy"
	case ModeMove:
		return "move"
	default:
		return "none"
	}
}

// Classification tells whether a group already exists in the target.
type Classification int

const (
	ClassNew Classification = iota
	ClassExisting
)

func (c Classification) String() string {
	if c == ClassExisting {
		return "existing"
	}
	return "new"
}
