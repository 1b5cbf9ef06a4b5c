package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hermesradio/hermes/internal/config"
	"github.com/hermesradio/hermes/internal/database"
	"github.com/hermesradio/hermes/internal/ffmpeg"
	internalhttp "github.com/hermesradio/hermes/internal/http"
	"github.com/hermesradio/hermes/internal/http/handlers"
	"github.com/hermesradio/hermes/internal/pipeline"
	"github.com/hermesradio/hermes/internal/playout"
	"github.com/hermesradio/hermes/internal/provider/llm"
	"github.com/hermesradio/hermes/internal/provider/market"
	"github.com/hermesradio/hermes/internal/provider/news"
	"github.com/hermesradio/hermes/internal/provider/speech"
	"github.com/hermesradio/hermes/internal/provider/weather"
	"github.com/hermesradio/hermes/internal/repository"
	"github.com/hermesradio/hermes/internal/scheduler"
	"github.com/hermesradio/hermes/internal/service"
	"github.com/hermesradio/hermes/internal/startup"
	"github.com/hermesradio/hermes/internal/storage"
	"github.com/hermesradio/hermes/internal/version"
	"github.com/hermesradio/hermes/internal/visual"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the hermes station service",
	Long: `Start the hermes station service.

The service runs the full break production loop:
- Scheduled and breaking-news break builds
- Playout monitoring (heartbeats, PLAYED detection, track counting)
- Nightly maintenance (retention sweeps, daily stats)
- REST API and OpenAPI documentation at /docs`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().Int("port", 8100, "Port to listen on")
	serveCmd.Flags().String("data-dir", "", "Storage base directory (overrides storage.base_dir)")

	viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("storage.base_dir", serveCmd.Flags().Lookup("data-dir"))
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.Default()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	db, err := database.New(cfg.Database, logger, nil)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	// Repositories
	breakRepo := repository.NewBreakRepository(db.DB)
	headlineRepo := repository.NewHeadlineRepository(db.DB)
	settingRepo := repository.NewSettingRepository(db.DB)
	eventRepo := repository.NewEventRepository(db.DB)
	cityRepo := repository.NewCityRepository(db.DB)
	sourceRepo := repository.NewFeedSourceRepository(db.DB)
	hostRepo := repository.NewHostRepository(db.DB)
	rotationRepo := repository.NewRotationRepository(db.DB)
	templateRepo := repository.NewTemplateRepository(db.DB)
	weatherCacheRepo := repository.NewWeatherCacheRepository(db.DB)
	marketCacheRepo := repository.NewMarketCacheRepository(db.DB)

	// Media sandbox and crash recovery. Recovery runs before anything can
	// start a build, so a PREPARING row is always a leftover.
	sandbox, err := storage.NewSandbox(cfg.Storage.MediaPath())
	if err != nil {
		return fmt.Errorf("initializing media sandbox: %w", err)
	}
	if _, err := startup.Recover(ctx, breakRepo, eventRepo, sandbox, logger); err != nil {
		return fmt.Errorf("recovering startup state: %w", err)
	}

	// FFmpeg binaries: config paths win, otherwise auto-detect.
	ffmpegPath := cfg.FFmpeg.BinaryPath
	ffprobePath := cfg.FFmpeg.ProbePath
	if ffmpegPath == "" || ffprobePath == "" {
		info, err := ffmpeg.NewBinaryDetector().Detect(ctx)
		if err != nil {
			return fmt.Errorf("detecting ffmpeg binaries: %w", err)
		}
		if ffmpegPath == "" {
			ffmpegPath = info.FFmpegPath
		}
		if ffprobePath == "" {
			ffprobePath = info.FFprobePath
		}
	}
	runner := ffmpeg.NewRunner(ffmpegPath)
	prober := ffmpeg.NewProber(ffprobePath)

	// Content providers
	llmClient := llm.NewClient(cfg.Providers.LLM, logger)
	weatherProvider := weather.NewProvider(cfg.Providers.Weather, weatherCacheRepo, cityRepo, logger)
	marketProvider := market.NewProvider(cfg.Providers.Market, marketCacheRepo, settingRepo, logger)
	collector := news.NewCollector(sourceRepo, headlineRepo, eventRepo, logger)
	scorer := news.NewScorer(headlineRepo, llmClient, logger)

	normalizer := speech.NewNormalizer(ffmpegPath)
	speechRouter := speech.NewRouter(settingRepo, logger,
		speech.NewPiper(cfg.Providers.Speech, normalizer, logger),
		speech.NewElevenLabs(cfg.Providers.Speech, settingRepo, normalizer, logger),
		speech.NewOpenAI(cfg.Providers.LLM, settingRepo, normalizer, logger),
	)

	// Station services
	trackLog := service.NewTrackLog()
	rotation := service.NewHostRotation(hostRepo, rotationRepo, logger)
	filter := service.NewContentFilter(settingRepo, logger)
	degradation := service.NewDegradation(templateRepo,
		filepath.Join(cfg.Storage.AssetsPath(), "stings"), logger)
	stats := service.NewStats(breakRepo, headlineRepo, sourceRepo)

	// Playout link
	playoutClient := playout.NewClient(cfg.Playout, logger)
	defer playoutClient.Close()
	monitor := playout.NewMonitor(playoutClient, breakRepo, eventRepo, trackLog,
		cfg.Playout.PollInterval, logger)

	deps := &pipeline.Dependencies{
		Breaks:    breakRepo,
		Headlines: headlineRepo,
		Settings:  settingRepo,
		Events:    eventRepo,

		Weather: weatherProvider,
		Market:  marketProvider,
		Feeds:   collector,
		Scorer:  scorer,
		Writer:  llmClient,
		Speech:  speechRouter,

		Hosts:     rotation,
		Filter:    filter,
		Fallbacks: degradation,
		Tracks:    trackLog,

		FFmpeg:  runner,
		Playout: playoutClient,
		Watcher: monitor,
		Sandbox: sandbox,
		Logger:  logger,
	}
	if cfg.Video.Enabled {
		deps.Video = visual.NewRenderer(runner, prober, cfg.Storage.AssetsPath(),
			cfg.Video.Width, cfg.Video.Height, cfg.Video.FPS, nil, logger)
	}

	builder, err := pipeline.NewBuilder(deps)
	if err != nil {
		return fmt.Errorf("building pipeline: %w", err)
	}

	sched := scheduler.New(builder, settingRepo, eventRepo, nil, logger)
	trigger := scheduler.NewTrackTrigger(builder, settingRepo, sched, logger)
	maintenance := scheduler.NewMaintenance(eventRepo, headlineRepo, breakRepo,
		settingRepo, sandbox, stats, logger)

	server := internalhttp.NewServer(cfg.Server, logger, version.Version)
	api := server.API()
	handlers.NewHealthHandler(version.Version, db.DB, stats, monitor).Register(api)
	handlers.NewStatusHandler(breakRepo, builder.Tracker(), trackLog, sched).Register(api)
	handlers.NewPlayoutHandler(trackLog, monitor, trigger, eventRepo, logger).Register(api)
	handlers.NewBreakingHandler(builder, logger).Register(api)
	handlers.NewSettingsHandler(settingRepo).Register(api)
	handlers.NewCitiesHandler(cityRepo).Register(api)
	handlers.NewSourcesHandler(sourceRepo, eventRepo).Register(api)
	handlers.NewHostsHandler(hostRepo).Register(api)
	handlers.NewBreaksHandler(breakRepo).Register(api)
	handlers.NewVideosHandler(breakRepo).Register(api)
	handlers.NewLogsHandler(eventRepo).Register(api)

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	monitor.Start(runCtx)
	if err := sched.Start(runCtx); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	if err := maintenance.Start(cfg.Scheduler.MaintenanceCron); err != nil {
		return fmt.Errorf("starting maintenance job: %w", err)
	}

	logger.Info("hermes started",
		slog.String("version", version.Version),
		slog.String("address", cfg.Server.Address()),
		slog.Bool("video", cfg.Video.Enabled))

	err = server.ListenAndServe(runCtx)

	// Stop producers before the playout link goes away.
	sched.Stop()
	maintenance.Stop()
	monitor.Stop()

	if err != nil {
		return fmt.Errorf("running server: %w", err)
	}
	logger.Info("hermes stopped")
	return nil
}
