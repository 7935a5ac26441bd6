package artwork_test

import (
	"reflect"
	"testing"

	"github.com/edumarques81/stellar-coverart/internal/domain/artwork"
)

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Abbey Road (Disc 1)", "Abbey Road"},
		{"Abbey Road [CD 1]", "Abbey Road"},
		{"Abbey Road (cd2)", "Abbey Road"},
		{"Abbey Road [disc 12]", "Abbey Road"},
		{"The Wall - Disc 2", "The Wall"},
		{"The Wall - CD 1", "The Wall"},
		{"The Wall disc 1", "The Wall"},
		{"The Wall CD3", "The Wall"},
		{"Discovery", "Discovery"},
		{"CD Collection", "CD Collection"},
		{"  Spaced  ", "Spaced"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := artwork.NormalizeTitle(tt.in); got != tt.want {
				t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSearchArtists(t *testing.T) {
	tests := []struct {
		name string
		key  artwork.AlbumKey
		want []string
	}{
		{"single", artwork.NewAlbumKey("Abbey Road", "The Beatles"), []string{"The Beatles", "Various Artists"}},
		{"secondary", artwork.NewAlbumKey("Duets", "Frank Sinatra", "Bono"), []string{"Frank Sinatra", "Bono", "Various Artists"}},
		{"unknown", artwork.NewAlbumKey("Untitled", "Unknown"), nil},
		{"empty", artwork.NewAlbumKey("Untitled", ""), nil},
		{"already various", artwork.NewAlbumKey("Now 42", "various artists"), []string{"various artists"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := artwork.SearchArtists(tt.key); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SearchArtists = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsUnknown(t *testing.T) {
	for _, s := range []string{"", " ", "Unknown", "unknown artist", "[Unknown]"} {
		if !artwork.IsUnknown(s) {
			t.Errorf("IsUnknown(%q) = false", s)
		}
	}
	if artwork.IsUnknown("Unknown Pleasures") {
		t.Error("IsUnknown(Unknown Pleasures) = true")
	}
}
