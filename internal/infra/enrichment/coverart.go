package enrichment

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
)

// CoverArtCatalog finds a release on MusicBrainz and takes its front cover
// thumbnail from the Cover Art Archive, falling back to Fanart.tv when a
// client is configured.
type CoverArtCatalog struct {
	mb     *MusicBrainzClient
	caa    *CAAClient
	fanart *FanartClient
}

// NewCoverArtCatalog combines the clients. fanart may be nil.
func NewCoverArtCatalog(mb *MusicBrainzClient, caa *CAAClient, fanart *FanartClient) *CoverArtCatalog {
	return &CoverArtCatalog{mb: mb, caa: caa, fanart: fanart}
}

// Name implements Catalog.
func (c *CoverArtCatalog) Name() string { return "musicbrainz" }

// SearchAlbumThumb implements Catalog.
func (c *CoverArtCatalog) SearchAlbumThumb(ctx context.Context, artist, album string) (*CatalogMatch, error) {
	release, err := c.mb.SearchRelease(ctx, artist, album)
	if err != nil {
		return nil, err
	}
	if release == nil {
		return nil, nil
	}

	match := &CatalogMatch{
		Catalog:   c.Name(),
		ReleaseID: release.ID,
		Title:     release.Title,
	}

	thumb, err := c.caa.FrontThumbnail(ctx, release.ID)
	if err == nil {
		match.ThumbURL = thumb
		return match, nil
	}
	if !errors.Is(err, ErrArtworkNotFound) {
		return nil, err
	}

	if c.fanart == nil || !c.fanart.IsConfigured() || release.ReleaseGroup.ID == "" {
		return nil, nil
	}
	thumb, err = c.fanart.AlbumCoverPreview(ctx, release.ReleaseGroup.ID)
	if err != nil {
		if errors.Is(err, ErrArtworkNotFound) {
			return nil, nil
		}
		log.Debug().Err(err).Str("releaseGroup", release.ReleaseGroup.ID).Msg("Fanart.tv lookup failed")
		return nil, err
	}
	match.ThumbURL = thumb
	return match, nil
}
