package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/kinetra/kinetra/internal/capabilities"
	"github.com/kinetra/kinetra/internal/config"
	"github.com/kinetra/kinetra/internal/database"
	"github.com/kinetra/kinetra/internal/logger"
	"github.com/kinetra/kinetra/internal/media"
	"github.com/kinetra/kinetra/internal/modules/modulemanager"
	"github.com/kinetra/kinetra/internal/modules/playbackmodule"
	"github.com/kinetra/kinetra/internal/modules/playermodule"
	"github.com/kinetra/kinetra/internal/modules/profilemodule"
	"github.com/kinetra/kinetra/internal/modules/syncplaymodule"
	"github.com/kinetra/kinetra/internal/modules/watchmodule"
	"github.com/kinetra/kinetra/internal/player/audio"
	"github.com/kinetra/kinetra/internal/player/photo"
	"github.com/kinetra/kinetra/internal/player/subtitles"
	"github.com/kinetra/kinetra/internal/player/video"
	"github.com/kinetra/kinetra/internal/server"
)

func main() {
	configPath := flag.String("config", os.Getenv("KINETRA_CONFIG"), "path to config file")
	flag.Parse()

	cfgManager := config.NewManager()
	if err := cfgManager.Load(*configPath); err != nil {
		logger.Error("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	cfg := cfgManager.Get()

	root := logger.New(cfg.Logging.Level)

	db, err := database.Open(root, cfg.Database.DatabasePath)
	if err != nil {
		root.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	settings := database.NewSettingsStore(db)
	history := database.NewHistoryStore(db)

	caps := capabilities.Probe(root, capabilities.ProbeOptions{})
	profileBuilder := profilemodule.NewBuilder(root, caps)

	subs := subtitles.NewFactory(root, caps,
		subtitles.NewHTTPCueFetcher(root),
		subtitles.NewAsyncSpawner(),
		subtitles.NewServerFontProvider(cfg.Playback.ServerURL))
	subs.PreferOverlay = cfg.Playback.PreferOverlaySubtitles

	registry := playermodule.NewRegistry(root)
	plugins := []playermodule.Plugin{
		video.NewPlayer(video.Options{
			Logger:         root,
			Caps:           caps,
			ProfileBuilder: profileBuilder,
			Subtitles:      subs,
			VolumeStore:    settings,
		}),
		audio.NewPlayer(audio.Options{
			Logger:         root,
			ProfileBuilder: profileBuilder,
			VolumeStore:    settings,
		}),
		photo.NewPlayer(root),
	}
	for _, p := range plugins {
		if err := registry.Register(p); err != nil {
			root.Error("failed to register player plugin", "id", p.ID(), "error", err)
			os.Exit(1)
		}
	}

	client := playbackmodule.NewHTTPClient(root, cfg.Playback.ServerURL)
	playback := playbackmodule.Register(root, client, registry, history)

	if cfg.SyncPlay.Enabled {
		syncplaymodule.Register(root, playback.Manager())
	}
	watchmodule.Register(root, playback.Manager().Events(), watchThresholds(cfg, settings))

	if err := modulemanager.LoadAll(db); err != nil {
		root.Error("failed to load modules", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfgManager.WatchFile(ctx, root); err != nil {
		root.Warn("config hot reload unavailable", "error", err)
	}

	srv := server.New(root, cfg.Server)
	if err := srv.Run(ctx); err != nil {
		root.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// watchThresholds prefers the user's stored limits over the config file.
func watchThresholds(cfg *config.Config, settings *database.SettingsStore) watchmodule.Thresholds {
	thresholds := watchmodule.Thresholds{
		MaxEpisodes:   cfg.Watch.MaxEpisodes,
		MaxWatchTicks: media.MsToTicks(cfg.Watch.MaxWatchTime.Milliseconds()),
	}
	episodes, ticks, err := settings.WatchThresholds()
	if err != nil {
		return thresholds
	}
	if episodes > 0 {
		thresholds.MaxEpisodes = episodes
	}
	if ticks > 0 {
		thresholds.MaxWatchTicks = ticks
	}
	return thresholds
}
