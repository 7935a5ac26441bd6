package embedded

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestSiblings(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"01 Song.mp3", "01 song.FLAC", "01 Song.jpg", "02 Other.mp3", "01 Song.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "01 song.ogg"), 0755); err != nil {
		t.Fatal(err)
	}

	for _, chunk := range []int{1, 2, DefaultChunkSize, 0} {
		got := Siblings(context.Background(), dir, Stem("01 Song.mp3"), chunk)
		sort.Strings(got)
		want := []string{filepath.Join(dir, "01 Song.mp3"), filepath.Join(dir, "01 song.FLAC")}
		if len(got) != len(want) {
			t.Fatalf("chunk %d: got %v, want %v", chunk, got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("chunk %d: got[%d] = %q, want %q", chunk, i, got[i], want[i])
			}
		}
	}
}

func TestSiblings_MissingDirectory(t *testing.T) {
	got := Siblings(context.Background(), filepath.Join(t.TempDir(), "gone"), "x", 10)
	if len(got) != 0 {
		t.Errorf("got %v, want nothing", got)
	}
}

func TestContentType(t *testing.T) {
	tests := []struct {
		name, want string
	}{
		{"a.mp3", "audio/mpeg"},
		{"a.FLAC", "audio/flac"},
		{"a.opus", "audio/ogg"},
		{"a.m4a", "audio/mp4"},
	}
	for _, tt := range tests {
		if got := ContentType(tt.name); got != tt.want {
			t.Errorf("ContentType(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestStem(t *testing.T) {
	if got := Stem("/music/Album/01 Come Together.FLAC"); got != "01 come together" {
		t.Errorf("Stem = %q", got)
	}
}
