package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNoIdentity means a tag title is missing or cannot be split into
	// artist and title.
	ErrNoIdentity = errors.New("no usable identity")

	// ErrIgnored means the identity was excluded by the ignore list.
	ErrIgnored = errors.New("ignored by title")
)

// ArgumentError reports an invalid startup argument. It is fatal and is
// raised before any directory is read.
type ArgumentError struct {
	Flag  string
	Value string
	Err   error
}

func (e *ArgumentError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid --%s: %v", e.Flag, e.Err)
	}
	return fmt.Sprintf("invalid --%s %q: %v", e.Flag, e.Value, e.Err)
}

func (e *ArgumentError) Unwrap() error {
	return e.Err
}

// TransferError records the failure of one candidate during transfer.
type TransferError struct {
	Key  string
	Op   string
	Path string
	Err  error
}

func (e *TransferError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}
