package artwork

import (
	"regexp"
	"strings"
)

// discNumberPatterns match disc/CD markers that catalogs do not carry in
// release titles.
var discNumberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\(disc *[0-9]+\)`),
	regexp.MustCompile(`(?i)\(cd *[0-9]+\)`),
	regexp.MustCompile(`(?i)\[disc *[0-9]+\]`),
	regexp.MustCompile(`(?i)\[cd *[0-9]+\]`),
	regexp.MustCompile(`(?i) - disc *[0-9]+$`),
	regexp.MustCompile(`(?i) - cd *[0-9]+$`),
	regexp.MustCompile(`(?i) disc *[0-9]+$`),
	regexp.MustCompile(`(?i) cd *[0-9]+$`),
}

// VariousArtists is the catch-all artist tried last for compilations.
const VariousArtists = "Various Artists"

// NormalizeTitle strips disc/volume markers from an album title.
func NormalizeTitle(title string) string {
	for _, p := range discNumberPatterns {
		title = p.ReplaceAllString(title, "")
	}
	return strings.TrimSpace(title)
}

// IsUnknown reports whether a tag value is a placeholder rather than a name.
func IsUnknown(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unknown", "unknown artist", "unknown album", "[unknown]":
		return true
	}
	return false
}

// SearchArtists returns the artist names worth sending to a remote catalog:
// the key's usable artists in order, then "Various Artists". It returns nil
// when the key has no usable artist.
func SearchArtists(key AlbumKey) []string {
	var out []string
	for _, a := range key.Artists() {
		if IsUnknown(a) {
			continue
		}
		out = append(out, a)
	}
	if len(out) == 0 {
		return nil
	}
	for _, a := range out {
		if strings.EqualFold(a, VariousArtists) {
			return out
		}
	}
	return append(out, VariousArtists)
}
