// Package main is the entry point for the Stellar cover-art daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/edumarques81/stellar-coverart/internal/config"
	"github.com/edumarques81/stellar-coverart/internal/domain/artwork"
	"github.com/edumarques81/stellar-coverart/internal/infra/cache"
	"github.com/edumarques81/stellar-coverart/internal/infra/enrichment"
	"github.com/edumarques81/stellar-coverart/internal/infra/mpd"
	"github.com/edumarques81/stellar-coverart/internal/logging"
	"github.com/edumarques81/stellar-coverart/internal/transport/socketio"
	"github.com/edumarques81/stellar-coverart/internal/version"
	"github.com/edumarques81/stellar-coverart/internal/watcher"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML config file")
	port := flag.String("port", "", "HTTP server port (overrides config)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	logCloser := logging.Setup(cfg.Logging, *debug)
	defer logCloser.Close()

	versionInfo := version.GetInfo()
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().Msgf("  %s", versionInfo.String())
	log.Info().Msg("  Album Art Resolver")
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().
		Str("port", cfg.Server.Port).
		Str("music_dir", cfg.Library.MusicDir).
		Str("cache_dir", cfg.Cache.Dir).
		Bool("mpd", cfg.MPD.Enabled).
		Strs("sources", cfg.Search.EnabledSources()).
		Msg("Configuration")

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
		logCloser.Close()
		os.Exit(1)
	}
	log.Info().Msg("Server stopped")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db := cache.NewDB(cfg.Cache.DBPath)
	if err := db.Open(); err != nil {
		return err
	}
	defer db.Close()

	store := cache.NewArtStore(db, cfg.Cache.Dir)

	var (
		mpdClient *mpd.Client
		fetcher   mpd.ArtFetcher
	)
	if cfg.MPD.Enabled {
		mpdClient = mpd.NewClient(cfg.MPD.Host, cfg.MPD.Port, cfg.MPD.Password)
		if err := mpdClient.Connect(); err != nil {
			// the client reconnects on the next command
			log.Warn().Err(err).Msg("Failed to connect to MPD")
		}
		defer mpdClient.Close()
		fetcher = mpdClient
	}

	sources := buildSources(cfg, fetcher)
	loop := artwork.NewLoop()
	resolver := artwork.NewResolver(loop, store, func() []artwork.Source { return sources })

	socketServer, err := socketio.NewServer(resolver, store)
	if err != nil {
		return err
	}
	defer socketServer.Close()

	rt := &routes{store: store, requester: resolver, socket: socketServer}
	if mpdClient != nil {
		rt.health = mpdClient.Ping
	}
	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           rt.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	sweeper := enrichment.NewSweeper(store, resolver,
		enrichment.WithSweepInterval(cfg.Sweep.Interval),
		enrichment.WithBatchSize(cfg.Sweep.BatchSize),
		enrichment.WithSweepWindow(cfg.Search.RepeatWindow),
	)
	g.Go(func() error {
		sweeper.Start(ctx)
		return nil
	})

	if mpdClient != nil {
		coordinator := enrichment.NewCoordinator(mpdAlbumLister(mpdClient, cfg.Library.MusicDir), store, resolver)
		g.Go(func() error {
			watchLibrary(ctx, mpdClient, coordinator)
			return nil
		})
	}

	if cfg.Watcher.Enabled && cfg.Library.MusicDir != "" {
		dirWatcher := watcher.NewService(cfg.Library.MusicDir, store, resolver,
			watcher.WithDebounce(cfg.Watcher.Debounce),
			watcher.WithMaxDepth(cfg.Watcher.MaxDepth),
		)
		g.Go(func() error {
			if err := dirWatcher.Start(ctx); err != nil {
				log.Warn().Err(err).Msg("Music directory watcher disabled")
			}
			return nil
		})
	}

	return g.Wait()
}

// mpdAlbumLister lists the MPD library as enrichment albums. Locations are
// absolute so that local sources can read them.
func mpdAlbumLister(client *mpd.Client, musicDir string) enrichment.AlbumLister {
	return enrichment.AlbumListerFunc(func(ctx context.Context) ([]enrichment.Album, error) {
		infos, err := client.ListAlbums()
		if err != nil {
			return nil, err
		}
		albums := make([]enrichment.Album, 0, len(infos))
		for _, info := range infos {
			location := info.FirstTrack
			if musicDir != "" && location != "" {
				location = filepath.Join(musicDir, location)
			}
			albums = append(albums, enrichment.Album{
				Title:    info.Album,
				Artist:   info.AlbumArtist,
				Artists:  info.Artists,
				Location: location,
			})
		}
		return albums, nil
	})
}

// watchLibrary requests missing art once at startup and again after every
// MPD database update.
func watchLibrary(ctx context.Context, client *mpd.Client, coordinator *enrichment.Coordinator) {
	queue := func() {
		n, err := coordinator.QueueMissingArtwork(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Warn().Err(err).Msg("Failed to queue missing artwork")
			return
		}
		if n > 0 {
			log.Info().Int("albums", n).Msg("Queued albums without artwork")
		}
	}

	go queue()

	events, err := client.Watch("database")
	if err != nil {
		log.Warn().Err(err).Msg("Failed to watch MPD database, library changes will not trigger art searches")
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case subsystem, ok := <-events:
			if !ok {
				return
			}
			log.Debug().Str("subsystem", subsystem).Msg("MPD database changed")
			go queue()
		}
	}
}
