// Package audio provides the tag store used by the reconciler and playlist
// generation for transferred tracks.
//
// # Tag Store
//
// Tagger reads the fields of interest from any format supported by
// github.com/dhowden/tag and writes them to MP3 (ID3v2.4) and FLAC
// (Vorbis comment) files:
//
//	tagger := audio.NewTagger()
//	fields, err := tagger.Read("/drop/song.mp3")
//	err = tagger.Write("/drop/song.mp3", audio.Fields{Album: "Drops", Genre: "House"})
//
// Write only sets non-empty fields and leaves everything else untouched.
// It does not preserve the file's timestamps; callers restore them.
//
// # Playlist Generation
//
//	creator := audio.NewPlaylistCreator(audio.FormatM3U, true)
//	content := creator.CreatePlaylist(entries, "/library")
//
// Supported formats:
//   - M3U (with optional extended info)
//   - PLS
//   - WPL (Windows Media Player)
package audio
