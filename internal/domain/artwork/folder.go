package artwork

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// ArtworkFilenames defines common artwork filenames in priority order.
var ArtworkFilenames = []string{
	"cover",
	"folder",
	"front",
	"album",
	"artwork",
}

// ArtworkExtensions defines supported image extensions.
var ArtworkExtensions = []string{
	".jpg",
	".jpeg",
	".png",
	".webp",
}

// FolderSource finds cover images stored next to the album's tracks.
type FolderSource struct {
	musicDir   string
	maxLevels  int
	ignored    []string
	provenance Provenance
}

// FolderOption configures a FolderSource.
type FolderOption func(*FolderSource)

// WithMusicDir bounds the parent walk to dir. Without it only the track's
// own directory is searched.
func WithMusicDir(dir string) FolderOption {
	return func(f *FolderSource) {
		f.musicDir = dir
	}
}

// WithMaxLevels sets how many parent directories are searched.
func WithMaxLevels(n int) FolderOption {
	return func(f *FolderSource) {
		if n >= 0 {
			f.maxLevels = n
		}
	}
}

// WithFolderIgnoredSchemes sets the location schemes the source skips.
func WithFolderIgnoredSchemes(schemes []string) FolderOption {
	return func(f *FolderSource) {
		f.ignored = schemes
	}
}

// WithFolderProvenance sets the provenance written for folder art.
func WithFolderProvenance(p Provenance) FolderOption {
	return func(f *FolderSource) {
		f.provenance = p
	}
}

// NewFolderSource creates a folder image source.
func NewFolderSource(opts ...FolderOption) *FolderSource {
	f := &FolderSource{
		maxLevels:  3,
		ignored:    DefaultIgnoredSchemes,
		provenance: ProvenanceFolder,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Name implements Source.
func (f *FolderSource) Name() string { return "folder" }

// Attempt implements Source. The directory scan runs on its own goroutine.
func (f *FolderSource) Attempt(ctx context.Context, req Request, store Store, done DoneFunc) {
	path, err := LocalPath(req.Location, f.ignored)
	if err != nil {
		done(Failure(f.Name(), err))
		return
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", path).Msg("Folder art search panicked")
				done(Failure(f.Name(), fmt.Errorf("folder search panicked: %v", r)))
			}
		}()
		artPath, err := f.FindArtwork(path)
		if err != nil {
			done(Failure(f.Name(), err))
			return
		}
		if artPath == "" {
			done(Failure(f.Name(), ErrNoArtwork))
			return
		}
		if err := store.WriteURI(ctx, req.Key, f.provenance, FileURI(artPath)); err != nil {
			done(Failure(f.Name(), fmt.Errorf("store folder art: %w", err)))
			return
		}
		done(Success(f.Name()))
	}()
}

// FindArtwork searches for an artwork file starting from the track's
// directory. It returns "" when nothing is found.
func (f *FolderSource) FindArtwork(trackPath string) (string, error) {
	if trackPath == "" {
		return "", nil
	}

	currentDir := filepath.Dir(trackPath)
	maxLevels := f.maxLevels

	var rootAbs string
	if f.musicDir == "" {
		maxLevels = 0
	} else {
		abs, err := filepath.Abs(f.musicDir)
		if err != nil {
			return "", err
		}
		rootAbs = abs
	}

	for level := 0; level <= maxLevels; level++ {
		currentAbs, err := filepath.Abs(currentDir)
		if err != nil {
			break
		}
		if rootAbs != "" && !withinDir(currentAbs, rootAbs) {
			log.Debug().
				Str("dir", currentAbs).
				Str("musicDir", rootAbs).
				Msg("Reached music root boundary, stopping search")
			break
		}

		if artPath := searchDirectory(currentDir); artPath != "" {
			log.Debug().
				Str("artPath", artPath).
				Int("level", level).
				Msg("Found artwork file")
			return artPath, nil
		}

		parent := filepath.Dir(currentDir)
		if parent == currentDir {
			break
		}
		currentDir = parent
	}

	return "", nil
}

func withinDir(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// searchDirectory returns the best image in dir: a known cover name first,
// otherwise the first image file in directory order.
func searchDirectory(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}

	images := make(map[string]string)
	var first string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		// macOS AppleDouble resource forks
		if strings.HasPrefix(entry.Name(), "._") {
			continue
		}
		lower := strings.ToLower(entry.Name())
		if !isArtworkExt(filepath.Ext(lower)) {
			continue
		}
		if _, ok := images[lower]; !ok {
			images[lower] = entry.Name()
		}
		if first == "" {
			first = entry.Name()
		}
	}

	for _, name := range ArtworkFilenames {
		for _, ext := range ArtworkExtensions {
			if real, ok := images[name+ext]; ok {
				return filepath.Join(dir, real)
			}
		}
	}
	if first != "" {
		return filepath.Join(dir, first)
	}
	return ""
}

func isArtworkExt(ext string) bool {
	for _, e := range ArtworkExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
