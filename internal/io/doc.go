// Package ioutils provides file system utilities for the track reconciler.
//
// This package contains functions for:
//   - File copying (plain and verified)
//   - Atomic relocation with a cross-device fallback
//   - Filename sanitization and target file naming
//   - Staging file naming for copy-mode transfers
//   - Capturing and restoring access/modification times
//   - A per-target run lock
//
// # File Operations
//
//	err := ioutils.CopyFile("/drop/song.mp3", "/drop/.rp-staging-<uuid>.mp3")
//	err = ioutils.Relocate("/drop/.rp-staging-<uuid>.mp3", "/library/Artist - Song.mp3")
//
// # Filename Sanitization
//
//	safe := ioutils.SanitizeFileName("AC/DC - T.N.T.") // Returns "AC_DC - T.N.T"
//
// # Timestamps
//
//	times, _ := ioutils.ReadFileTimes(path)
//	// ... rewrite tags ...
//	err := times.Apply(path)
package ioutils
