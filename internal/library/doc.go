// Package library runs the reconciliation pipeline over a source drop
// folder and a target library folder.
//
// # Manager
//
// The Manager coordinates one run:
//
//  1. Scan the source directory (date window, ignore list)
//  2. Scan the target directory into a destination index
//  3. Group source records by identity key
//  4. Reconcile groups against the index
//  5. Copy or move the selected canonical records (optional)
//  6. Write a playlist of transferred tracks (optional)
//
// # Basic Usage
//
//	manager := library.NewManager(settings, "/drop", "/music", logger, func(event library.ProgressEvent) {
//	    fmt.Println(event.Message)
//	})
//
//	if err := manager.Initialize(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	report, err := manager.StartTransfers(ctx)
//
// # Progress Tracking
//
// Progress is reported via a callback function that receives ProgressEvent:
//
//	type ProgressEvent struct {
//	    Message string
//	    Level   ProgressLevel // Info, Verbose, Warning, Error, Success
//	}
//
// Transfer counts can also be polled with GetProgress.
//
// # Failures
//
// Only unreadable source or target directories fail Initialize. Every
// per-file problem is tallied, logged, or recorded in the transfer report.
package library
