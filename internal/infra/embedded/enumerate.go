package embedded

import (
	"context"
	"errors"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// DefaultChunkSize is how many directory entries are read per batch.
const DefaultChunkSize = 10

var audioTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".opus": "audio/ogg",
	".m4a":  "audio/mp4",
	".m4b":  "audio/mp4",
	".aac":  "audio/aac",
	".wma":  "audio/x-ms-wma",
	".wav":  "audio/wav",
	".aiff": "audio/aiff",
	".ape":  "audio/ape",
	".wv":   "audio/wavpack",
}

// ContentType guesses a file's content type from its extension.
func ContentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := audioTypes[ext]; ok {
		return t
	}
	return mime.TypeByExtension(ext)
}

// Stem returns the lower-cased file name without directory or extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
}

// Siblings lists the audio files in dir whose stem equals stem, reading
// the directory chunk entries at a time. Read errors end the listing; what
// was collected so far is returned.
func Siblings(ctx context.Context, dir, stem string, chunk int) []string {
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}

	d, err := os.Open(dir)
	if err != nil {
		log.Debug().Err(err).Str("dir", dir).Msg("Cannot open album directory")
		return nil
	}
	defer d.Close()

	var matches []string
	for ctx.Err() == nil {
		entries, err := d.ReadDir(chunk)
		for _, e := range entries {
			if !e.Type().IsRegular() {
				continue
			}
			if !strings.HasPrefix(ContentType(e.Name()), "audio/") {
				continue
			}
			if Stem(e.Name()) == stem {
				matches = append(matches, filepath.Join(dir, e.Name()))
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Debug().Err(err).Str("dir", dir).Msg("Directory enumeration stopped")
			}
			break
		}
	}
	return matches
}
