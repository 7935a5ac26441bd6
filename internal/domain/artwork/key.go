package artwork

import (
	"crypto/md5"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// AlbumKey identifies an album for art lookup. It is immutable; equality is
// based on the folded title and primary artist only.
type AlbumKey struct {
	title  string
	artist string
	others []string
	id     string
}

// NewAlbumKey builds a key from an album title, its primary artist and any
// secondary artists.
func NewAlbumKey(title, artist string, others ...string) AlbumKey {
	k := AlbumKey{
		title:  strings.TrimSpace(title),
		artist: strings.TrimSpace(artist),
	}
	for _, o := range others {
		if o = strings.TrimSpace(o); o != "" && !strings.EqualFold(o, k.artist) {
			k.others = append(k.others, o)
		}
	}
	k.id = albumKeyID(k.title, k.artist)
	return k
}

// Title returns the album title as given.
func (k AlbumKey) Title() string { return k.title }

// Artist returns the primary artist as given.
func (k AlbumKey) Artist() string { return k.artist }

// Artists returns the primary artist followed by the secondary artists.
func (k AlbumKey) Artists() []string {
	out := make([]string, 0, 1+len(k.others))
	out = append(out, k.artist)
	return append(out, k.others...)
}

// ID returns the normalized identity used as cache key and chain key.
func (k AlbumKey) ID() string { return k.id }

// Equal reports whether two keys identify the same album.
func (k AlbumKey) Equal(o AlbumKey) bool { return k.id == o.id }

// IsZero reports whether the key was never constructed.
func (k AlbumKey) IsZero() bool { return k.id == "" }

func (k AlbumKey) String() string {
	return fmt.Sprintf("%q by %q", k.title, k.artist)
}

func albumKeyID(title, artist string) string {
	data := foldField(title) + "\x00" + foldField(artist)
	return fmt.Sprintf("%x", md5.Sum([]byte(data)))
}

// foldField case-folds and collapses whitespace. A Caser keeps state, so a
// fresh one is built per call.
func foldField(s string) string {
	s = cases.Fold().String(norm.NFC.String(s))
	return strings.Join(strings.Fields(s), " ")
}
