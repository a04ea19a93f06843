package audio

import (
	"fmt"
	"path/filepath"
	"strings"
)

// PlaylistFormat represents supported playlist file formats.
type PlaylistFormat int

const (
	// FormatM3U creates .m3u files (most compatible).
	FormatM3U PlaylistFormat = iota

	// FormatPLS creates .pls files (Winamp/SHOUTcast format).
	FormatPLS

	// FormatWPL creates .wpl files (Windows Media Player).
	FormatWPL
)

// PlaylistFormatFromPath picks a format from a playlist file's extension,
// defaulting to M3U.
func PlaylistFormatFromPath(path string) PlaylistFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pls":
		return FormatPLS
	case ".wpl":
		return FormatWPL
	default:
		return FormatM3U
	}
}

// PlaylistEntry is one track in a generated playlist.
type PlaylistEntry struct {
	Path   string
	Artist string
	Title  string
}

// PlaylistCreator generates playlists for the tracks a run transferred.
//
// Track paths are written relative to the playlist's directory when
// possible, absolute otherwise.
//
// Example:
//
//	creator := NewPlaylistCreator(FormatM3U, true)
//	content := creator.CreatePlaylist(entries, filepath.Dir(playlistPath))
//
//	// Result:
//	// #EXTM3U
//	// #EXTINF:-1,Artist - Song Title
//	// Artist - Song Title.mp3
type PlaylistCreator struct {
	format   PlaylistFormat
	extended bool // For M3U: include EXTINF lines
}

// NewPlaylistCreator creates a new PlaylistCreator.
//
// The extended flag only affects M3U output.
func NewPlaylistCreator(format PlaylistFormat, extended bool) *PlaylistCreator {
	return &PlaylistCreator{
		format:   format,
		extended: extended,
	}
}

// CreatePlaylist generates playlist content for entries, with paths made
// relative to baseDir.
func (p *PlaylistCreator) CreatePlaylist(entries []PlaylistEntry, baseDir string) string {
	switch p.format {
	case FormatPLS:
		return p.createPLS(entries, baseDir)
	case FormatWPL:
		return p.createWPL(entries, baseDir)
	default:
		return p.createM3U(entries, baseDir)
	}
}

// createM3U generates an M3U playlist. Durations are unknown, so extended
// entries use -1 as the M3U convention allows.
func (p *PlaylistCreator) createM3U(entries []PlaylistEntry, baseDir string) string {
	var sb strings.Builder

	if p.extended {
		sb.WriteString("#EXTM3U\n")
	}

	for _, e := range entries {
		if p.extended {
			sb.WriteString(fmt.Sprintf("#EXTINF:-1,%s - %s\n", e.Artist, e.Title))
		}
		sb.WriteString(relativePath(baseDir, e.Path) + "\n")
	}

	return sb.String()
}

// createPLS generates a PLS playlist.
//
//	[playlist]
//	File1=Artist - Song.mp3
//	Title1=Artist - Song
//	Length1=-1
//	NumberOfEntries=1
//	Version=2
func (p *PlaylistCreator) createPLS(entries []PlaylistEntry, baseDir string) string {
	var sb strings.Builder

	sb.WriteString("[playlist]\n")

	for i, e := range entries {
		idx := i + 1
		sb.WriteString(fmt.Sprintf("File%d=%s\n", idx, relativePath(baseDir, e.Path)))
		sb.WriteString(fmt.Sprintf("Title%d=%s - %s\n", idx, e.Artist, e.Title))
		sb.WriteString(fmt.Sprintf("Length%d=-1\n", idx))
	}

	sb.WriteString(fmt.Sprintf("NumberOfEntries=%d\n", len(entries)))
	sb.WriteString("Version=2\n")

	return sb.String()
}

// createWPL generates a Windows Media Player playlist.
func (p *PlaylistCreator) createWPL(entries []PlaylistEntry, baseDir string) string {
	var sb strings.Builder

	sb.WriteString("<?wpl version=\"1.0\"?>\n")
	sb.WriteString("<smil>\n")
	sb.WriteString("  <head>\n")
	sb.WriteString(fmt.Sprintf("    <meta name=\"ItemCount\" content=\"%d\"/>\n", len(entries)))
	sb.WriteString("  </head>\n")
	sb.WriteString("  <body>\n")
	sb.WriteString("    <seq>\n")

	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("      <media src=\"%s\"/>\n", escapeXML(relativePath(baseDir, e.Path))))
	}

	sb.WriteString("    </seq>\n")
	sb.WriteString("  </body>\n")
	sb.WriteString("</smil>\n")

	return sb.String()
}

func relativePath(baseDir, path string) string {
	if baseDir == "" {
		return path
	}
	rel, err := filepath.Rel(baseDir, path)
	if err != nil {
		return path
	}
	return rel
}

// escapeXML escapes special XML characters in a string.
//
// Replaces: & < > " '
// With:     &amp; &lt; &gt; &quot; &apos;
func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&apos;")
	return s
}
