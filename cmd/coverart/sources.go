package main

import (
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-coverart/internal/config"
	"github.com/edumarques81/stellar-coverart/internal/domain/artwork"
	"github.com/edumarques81/stellar-coverart/internal/infra/embedded"
	"github.com/edumarques81/stellar-coverart/internal/infra/enrichment"
	"github.com/edumarques81/stellar-coverart/internal/infra/mpd"
	"github.com/edumarques81/stellar-coverart/internal/version"
)

// buildSources creates the enabled art sources in search order. fetcher is
// nil when MPD is disabled, which drops the mpd source.
func buildSources(cfg *config.Config, fetcher mpd.ArtFetcher) []artwork.Source {
	search := cfg.Search
	ignored := search.IgnoredSchemes
	catalogProv := artwork.ParseProvenance(search.Provenance.Catalog, artwork.ProvenanceSearch)
	userAgent := version.GetInfo().UserAgent()

	catalog := func(c enrichment.Catalog) artwork.Source {
		return enrichment.NewCatalogSource(c,
			enrichment.WithRepeatWindow(search.RepeatWindow),
			enrichment.WithSourceProvenance(catalogProv),
		)
	}

	var sources []artwork.Source
	for _, name := range search.EnabledSources() {
		switch name {
		case "embedded":
			sources = append(sources, embedded.New(
				embedded.WithIgnoredSchemes(ignored),
				embedded.WithChunkSize(search.EnumerateChunk),
				embedded.WithTempDir(search.TempDir),
				embedded.WithProvenance(artwork.ParseProvenance(search.Provenance.Embedded, artwork.ProvenanceUser)),
			))
		case "folder":
			sources = append(sources, artwork.NewFolderSource(
				artwork.WithMusicDir(cfg.Library.MusicDir),
				artwork.WithFolderIgnoredSchemes(ignored),
				artwork.WithFolderProvenance(artwork.ParseProvenance(search.Provenance.Folder, artwork.ProvenanceFolder)),
			))
		case "mpd":
			if fetcher == nil {
				log.Warn().Msg("MPD art source enabled but MPD is disabled, skipping")
				continue
			}
			sources = append(sources, mpd.NewSource(fetcher,
				mpd.WithMusicDir(cfg.Library.MusicDir),
				mpd.WithIgnoredSchemes(ignored),
				mpd.WithProvenance(artwork.ParseProvenance(search.Provenance.MPD, artwork.ProvenanceMPD)),
			))
		case "discogs":
			sources = append(sources, catalog(enrichment.NewDiscogsClient(
				enrichment.WithDiscogsBaseURL(cfg.Discogs.BaseURL),
				enrichment.WithDiscogsToken(cfg.Discogs.Token),
			)))
		case "musicbrainz":
			var fanart *enrichment.FanartClient
			if cfg.Fanart.APIKey != "" {
				fanart = enrichment.NewFanartClient(cfg.Fanart.APIKey,
					enrichment.WithFanartBaseURL(cfg.Fanart.BaseURL))
			}
			sources = append(sources, catalog(enrichment.NewCoverArtCatalog(
				enrichment.NewMusicBrainzClient(
					enrichment.WithMBBaseURL(cfg.MusicBrainz.BaseURL),
					enrichment.WithMBUserAgent(userAgent),
				),
				enrichment.NewCAAClient(
					enrichment.WithBaseURL(cfg.MusicBrainz.CAABaseURL),
					enrichment.WithUserAgent(userAgent),
				),
				fanart,
			)))
		case "deezer":
			sources = append(sources, catalog(enrichment.NewDeezerClient(
				enrichment.WithDeezerBaseURL(cfg.Deezer.BaseURL),
			)))
		}
	}

	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = s.Name()
	}
	log.Info().Strs("sources", names).Msg("Art sources configured")

	return sources
}
