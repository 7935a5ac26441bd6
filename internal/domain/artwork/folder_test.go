package artwork_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/edumarques81/stellar-coverart/internal/domain/artwork"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, jpegBytes, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestFolderSource_FindArtwork(t *testing.T) {
	tests := []struct {
		name     string
		files    []string // relative to music dir
		track    string
		musicDir bool
		want     string // relative to music dir, "" for none
	}{
		{
			name:     "cover next to track",
			files:    []string{"Artist/Album/cover.jpg", "Artist/Album/01.flac"},
			track:    "Artist/Album/01.flac",
			musicDir: true,
			want:     "Artist/Album/cover.jpg",
		},
		{
			name:     "cover in parent of disc folder",
			files:    []string{"Artist/Album/cover.jpg", "Artist/Album/CD1/01.flac"},
			track:    "Artist/Album/CD1/01.flac",
			musicDir: true,
			want:     "Artist/Album/cover.jpg",
		},
		{
			name:  "parent not searched without music dir",
			files: []string{"Artist/Album/cover.jpg", "Artist/Album/CD1/01.flac"},
			track: "Artist/Album/CD1/01.flac",
			want:  "",
		},
		{
			name:     "case insensitive name",
			files:    []string{"Album/Folder.JPG", "Album/01.mp3"},
			track:    "Album/01.mp3",
			musicDir: true,
			want:     "Album/Folder.JPG",
		},
		{
			name:     "priority order",
			files:    []string{"Album/front.png", "Album/cover.png", "Album/01.mp3"},
			track:    "Album/01.mp3",
			musicDir: true,
			want:     "Album/cover.png",
		},
		{
			name:     "any image as fallback",
			files:    []string{"Album/scan.jpeg", "Album/01.mp3"},
			track:    "Album/01.mp3",
			musicDir: true,
			want:     "Album/scan.jpeg",
		},
		{
			name:     "apple double skipped",
			files:    []string{"Album/._cover.jpg", "Album/01.mp3"},
			track:    "Album/01.mp3",
			musicDir: true,
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			musicDir := filepath.Join(root, "music")
			for _, f := range tt.files {
				writeFile(t, filepath.Join(musicDir, f))
			}
			// never reached: outside the music root
			writeFile(t, filepath.Join(root, "cover.jpg"))

			var opts []artwork.FolderOption
			if tt.musicDir {
				opts = append(opts, artwork.WithMusicDir(musicDir))
			}
			src := artwork.NewFolderSource(opts...)

			got, err := src.FindArtwork(filepath.Join(musicDir, tt.track))
			if err != nil {
				t.Fatalf("FindArtwork: %v", err)
			}
			want := ""
			if tt.want != "" {
				want = filepath.Join(musicDir, tt.want)
			}
			if got != want {
				t.Errorf("FindArtwork = %q, want %q", got, want)
			}
		})
	}
}

func TestFolderSource_Attempt(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Album", "cover.jpg"))
	writeFile(t, filepath.Join(root, "Album", "01.flac"))

	store := newMemStore()
	src := artwork.NewFolderSource(artwork.WithMusicDir(root))
	key := artwork.NewAlbumKey("Album", "Artist")

	ch := make(chan artwork.Result, 1)
	req := artwork.Request{Key: key, Location: artwork.FileURI(filepath.Join(root, "Album", "01.flac"))}
	src.Attempt(context.Background(), req, store, func(r artwork.Result) { ch <- r })

	r := <-ch
	if !r.Succeeded {
		t.Fatalf("attempt failed: %v", r.Err)
	}
	e := store.entry(key)
	if e == nil || e.Provenance != artwork.ProvenanceFolder {
		t.Fatalf("entry = %+v", e)
	}
	if e.URI != artwork.FileURI(filepath.Join(root, "Album", "cover.jpg")) {
		t.Errorf("uri = %q", e.URI)
	}
}

func TestFolderSource_AttemptIgnoredScheme(t *testing.T) {
	src := artwork.NewFolderSource()
	ch := make(chan artwork.Result, 1)
	req := artwork.Request{Key: artwork.NewAlbumKey("A", "B"), Location: "http://stream.example/live"}
	src.Attempt(context.Background(), req, newMemStore(), func(r artwork.Result) { ch <- r })

	r := <-ch
	if r.Succeeded || !errors.Is(r.Err, artwork.ErrSourceUnavailable) {
		t.Errorf("result = %+v, want unavailable failure", r)
	}
}

// panickingStore panics on every write.
type panickingStore struct{ *memStore }

func (panickingStore) WriteURI(ctx context.Context, key artwork.AlbumKey, prov artwork.Provenance, uri string) error {
	panic("disk on fire")
}

func TestFolderSource_AttemptRecoversPanic(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Album", "cover.jpg"))
	writeFile(t, filepath.Join(root, "Album", "01.flac"))

	src := artwork.NewFolderSource(artwork.WithMusicDir(root))
	ch := make(chan artwork.Result, 2)
	req := artwork.Request{Key: artwork.NewAlbumKey("Album", "Artist"), Location: filepath.Join(root, "Album", "01.flac")}
	src.Attempt(context.Background(), req, panickingStore{newMemStore()}, func(r artwork.Result) { ch <- r })

	select {
	case r := <-ch:
		if r.Succeeded || r.Err == nil {
			t.Errorf("result = %+v, want failure", r)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("done never called after panic")
	}
}
