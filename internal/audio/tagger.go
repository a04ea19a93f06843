package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2"
	"github.com/dhowden/tag"
	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"
)

// ErrUnsupportedFormat is returned by Write for formats without a writer.
var ErrUnsupportedFormat = errors.New("unsupported audio format for tag writing")

// Fields holds the tag fields the reconciler reads and writes.
type Fields struct {
	Title  string
	Artist string
	Album  string
	Genre  string
}

// Tagger reads and writes audio file tags.
//
// Reading goes through github.com/dhowden/tag, which understands ID3v1/v2,
// MP4 atoms, FLAC and OGG Vorbis comments. Writing is supported for:
//   - .mp3 via github.com/bogem/id3v2 (saved as ID3v2.4, UTF-8)
//   - .flac via github.com/go-flac/go-flac and flacvorbis
//
// Every file handle is closed before Read or Write returns.
type Tagger struct{}

// NewTagger creates a new Tagger.
func NewTagger() *Tagger {
	return &Tagger{}
}

// Read returns the first value of the title, artist, album and genre
// fields. Missing fields are empty strings.
func (t *Tagger) Read(path string) (Fields, error) {
	f, err := os.Open(path)
	if err != nil {
		return Fields{}, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return Fields{}, fmt.Errorf("read tags: %w", err)
	}

	return Fields{
		Title:  m.Title(),
		Artist: m.Artist(),
		Album:  m.Album(),
		Genre:  m.Genre(),
	}, nil
}

// Write sets every non-empty field in fields on the file at path.
//
// The file's format is chosen by extension. Formats other than MP3 and
// FLAC fail with ErrUnsupportedFormat.
func (t *Tagger) Write(path string, fields Fields) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return writeID3(path, fields)
	case ".flac":
		return writeFLAC(path, fields)
	default:
		return fmt.Errorf("%s: %w", filepath.Ext(path), ErrUnsupportedFormat)
	}
}

func writeID3(path string, fields Fields) error {
	tg, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("open mp3: %w", err)
	}
	defer tg.Close()

	tg.SetVersion(4)
	tg.SetDefaultEncoding(id3v2.EncodingUTF8)

	if fields.Title != "" {
		tg.SetTitle(fields.Title)
	}
	if fields.Artist != "" {
		tg.SetArtist(fields.Artist)
	}
	if fields.Album != "" {
		tg.SetAlbum(fields.Album)
	}
	if fields.Genre != "" {
		tg.SetGenre(fields.Genre)
	}

	if err := tg.Save(); err != nil {
		return fmt.Errorf("save tags: %w", err)
	}
	return nil
}

func writeFLAC(path string, fields Fields) error {
	f, err := flac.ParseFile(path)
	if err != nil {
		return fmt.Errorf("parse flac: %w", err)
	}

	var cmts *flacvorbis.MetaDataBlockVorbisComment
	idx := -1
	for i, block := range f.Meta {
		if block.Type == flac.VorbisComment {
			cmts, err = flacvorbis.ParseFromMetaDataBlock(*block)
			if err != nil {
				return fmt.Errorf("parse vorbis comments: %w", err)
			}
			idx = i
			break
		}
	}
	if cmts == nil {
		cmts = flacvorbis.New()
	}

	for _, kv := range [][2]string{
		{flacvorbis.FIELD_TITLE, fields.Title},
		{flacvorbis.FIELD_ARTIST, fields.Artist},
		{flacvorbis.FIELD_ALBUM, fields.Album},
		{flacvorbis.FIELD_GENRE, fields.Genre},
	} {
		if err := setVorbisField(cmts, kv[0], kv[1]); err != nil {
			return err
		}
	}

	block := cmts.Marshal()
	if idx >= 0 {
		f.Meta[idx] = &block
	} else {
		f.Meta = append(f.Meta, &block)
	}

	if err := f.Save(path); err != nil {
		return fmt.Errorf("save flac: %w", err)
	}
	return nil
}

// setVorbisField replaces every value of key with value. Empty values leave
// the comment untouched.
func setVorbisField(cmts *flacvorbis.MetaDataBlockVorbisComment, key, value string) error {
	if value == "" {
		return nil
	}

	prefix := strings.ToUpper(key) + "="
	kept := cmts.Comments[:0]
	for _, c := range cmts.Comments {
		if len(c) >= len(prefix) && strings.ToUpper(c[:len(prefix)]) == prefix {
			continue
		}
		kept = append(kept, c)
	}
	cmts.Comments = kept

	return cmts.Add(key, value)
}
