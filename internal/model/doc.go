// Package model defines the core data structures shared by the scanner,
// deduplicator, reconciliation engine and transfer executor.
//
// # TrackRecord
//
// TrackRecord is one physical audio file considered a track candidate:
//
//	id := model.Identity{Artist: "Artist", Title: "Song"}
//	rec, err := model.NewTrackRecord("/drop/song.mp3", modTime, time.Local, id)
//	fmt.Println(rec.IdentityKey) // "Artist - Song"
//	fmt.Println(rec.Date)        // "2024-05-01"
//
// # SourceGroup and DestinationIndex
//
// SourceGroup holds every source file recognized as the same logical track,
// ordered by modification time. DestinationIndex maps identity keys to the
// single record found for them in the target library.
//
// # Policies
//
// OverwritePolicy decides which duplicate wins and which groups are
// transferred; TransferMode decides whether files are copied or moved.
package model
