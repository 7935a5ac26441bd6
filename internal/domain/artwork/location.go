package artwork

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// DefaultIgnoredSchemes are location schemes that never point at a readable
// local directory.
var DefaultIgnoredSchemes = []string{"http", "https", "cdda", "daap", "mms", "rtsp"}

// LocalPath turns a track location into a local filesystem path. Locations
// may be file:// URIs or plain paths. Any other scheme, including the
// ignored ones, yields ErrSourceUnavailable.
func LocalPath(location string, ignored []string) (string, error) {
	if location == "" {
		return "", fmt.Errorf("%w: no location", ErrSourceUnavailable)
	}

	i := strings.Index(location, "://")
	if i < 0 {
		return filepath.Clean(location), nil
	}

	scheme := strings.ToLower(location[:i])
	for _, s := range ignored {
		if strings.EqualFold(s, scheme) {
			return "", fmt.Errorf("%w: %s location", ErrSourceUnavailable, scheme)
		}
	}
	if scheme != "file" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrSourceUnavailable, scheme)
	}

	u, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	if u.Path == "" {
		return "", fmt.Errorf("%w: empty file uri", ErrSourceUnavailable)
	}
	return filepath.Clean(filepath.FromSlash(u.Path)), nil
}

// FileURI returns the file:// URI for a local path.
func FileURI(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}

// IsFileURI reports whether uri uses the file scheme.
func IsFileURI(uri string) bool {
	return len(uri) >= 7 && strings.EqualFold(uri[:7], "file://")
}
