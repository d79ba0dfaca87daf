package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tofan79/autoclipper-backend/internal/checkpoint"
	"github.com/tofan79/autoclipper-backend/internal/config"
	"github.com/tofan79/autoclipper-backend/internal/db"
	apphttp "github.com/tofan79/autoclipper-backend/internal/http"
	httpH "github.com/tofan79/autoclipper-backend/internal/http/handlers"
	httpMW "github.com/tofan79/autoclipper-backend/internal/http/middleware"
	"github.com/tofan79/autoclipper-backend/internal/jobs"
	"github.com/tofan79/autoclipper-backend/internal/logger"
	"github.com/tofan79/autoclipper-backend/internal/media/faces"
	"github.com/tofan79/autoclipper-backend/internal/media/ingest"
	"github.com/tofan79/autoclipper-backend/internal/media/input"
	"github.com/tofan79/autoclipper-backend/internal/media/metadata"
	"github.com/tofan79/autoclipper-backend/internal/media/models"
	"github.com/tofan79/autoclipper-backend/internal/media/render"
	"github.com/tofan79/autoclipper-backend/internal/media/subtitle"
	"github.com/tofan79/autoclipper-backend/internal/media/transcribe"
	"github.com/tofan79/autoclipper-backend/internal/paths"
	"github.com/tofan79/autoclipper-backend/internal/pipeline"
	"github.com/tofan79/autoclipper-backend/internal/providers"
	"github.com/tofan79/autoclipper-backend/internal/queue"
	"github.com/tofan79/autoclipper-backend/internal/realtime"
	"github.com/tofan79/autoclipper-backend/internal/realtime/bus"
	"github.com/tofan79/autoclipper-backend/internal/repos"
	"github.com/tofan79/autoclipper-backend/internal/sysinfo"
	"github.com/tofan79/autoclipper-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Runtime layout
	runtimePaths, err := paths.Ensure()
	if err != nil {
		log.Fatal("Failed to prepare runtime directories", "error", err)
	}
	log.Info("Runtime root resolved", "root", runtimePaths.Root)

	// Config
	cfg, err := config.NewManager(runtimePaths)
	if err != nil {
		log.Fatal("Failed to init config", "error", err)
	}

	// System profile
	profile := sysinfo.DetectProfile(log)
	if cfg.GetString("GPU_ENABLED", "auto") == "auto" {
		if err := cfg.Set("GPU_ENABLED", fmt.Sprintf("%t", profile.GPUAvailable)); err != nil {
			log.Warn("Failed to persist GPU detection", "error", err)
		}
	}

	// SQLite
	sqliteService, err := db.NewSQLiteService(runtimePaths.DatabasePath, log)
	if err != nil {
		log.Fatal("SQLite init failed", "error", err)
	}
	if err := sqliteService.AutoMigrateAll(); err != nil {
		log.Fatal("SQLite auto migration failed", "error", err)
	}
	theDB := sqliteService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	jobRepo := repos.NewJobRepo(theDB, log)
	clipRepo := repos.NewClipRepo(theDB, log)
	settingRepo := repos.NewSettingRepo(theDB, log)

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	// Seed the settings table with the effective configuration.
	if values, err := cfg.AsMap(); err == nil {
		for key, value := range values {
			if err := settingRepo.Upsert(rootCtx, nil, key, fmt.Sprintf("%v", value)); err != nil {
				log.Warn("Failed to seed setting row", "key", key, "error", err)
			}
		}
	}

	// Realtime hub, optional redis mirror
	log.Info("Setting up realtime hub now...")
	hub := realtime.NewHub(log)
	var eventBus bus.Bus
	if os.Getenv("REDIS_ADDR") != "" {
		eventBus, err = bus.NewRedisBus(log)
		if err != nil {
			log.Warn("Redis event bus unavailable, running hub-only", "error", err)
			eventBus = nil
		} else if err := eventBus.StartForwarder(rootCtx, hub.Publish); err != nil {
			log.Warn("Redis forwarder failed to start", "error", err)
		}
	}

	// Media stack
	whisperModel := cfg.GetString("WHISPER_MODEL", profile.WhisperModel)
	modelManager := models.NewManager(runtimePaths.ModelsDir, log)
	modelPath, err := modelManager.EnsureModel(rootCtx, whisperModel, "",
		models.HTTPDownloader(models.WhisperModelURL(whisperModel)))
	if err != nil {
		log.Warn("Whisper model not ready; transcription will fail until it is",
			"model", whisperModel, "error", err)
		modelPath = modelManager.ModelPath(whisperModel)
	}

	normalizer := input.NewNormalizer(input.DefaultMaxLocalFileBytes)
	ingester := ingest.NewIngester(runtimePaths.DownloadsDir, log)
	transcriber := transcribe.NewWhisperCPP(
		utils.GetEnv("WHISPER_CLI", "whisper-cli", log), modelPath, profile.FfmpegThreads, log)
	builder := render.NewCommandBuilder(cfg.GetString("FFMPEG_PRESET", profile.FfmpegPreset))
	renderer := render.NewRenderer(builder, log)
	emitter := subtitle.NewEmitter(subtitle.DefaultGroupSize)
	segmenter := faces.NewSegmenter(faces.DefaultConfig())
	metadataGen := metadata.NewGenerator(80, log)

	provider, err := providers.Build(rootCtx, cfg, log)
	if err != nil {
		log.Warn("LLM provider unavailable; hooks and metadata fall back to heuristics", "error", err)
		provider = nil
	}

	// Pipeline, controller, queue
	clipPipeline := pipeline.New(
		normalizer, ingester, transcriber, segmenter, emitter, renderer,
		metadataGen, provider, clipRepo, runtimePaths.DownloadsDir,
		pipeline.Options{
			MaxClips:      cfg.GetInt("MAX_CLIPS", 10),
			MinViralScore: cfg.GetInt("MIN_VIRAL_SCORE", 60),
		}, log)

	store := checkpoint.NewStore(runtimePaths.DownloadsDir, log)
	maxConcurrent := cfg.GetInt("MAX_CONCURRENT_JOBS", profile.MaxConcurrentJobs)
	queueManager := queue.NewManager(maxConcurrent, log)

	controller := jobs.NewController(
		clipPipeline, jobRepo, clipRepo, store, hub, eventBus, queueManager,
		runtimePaths.DownloadsDir, log)
	queueManager.SetProcessor(controller.Process)

	jobs.Recover(rootCtx, jobRepo, store, queueManager, log)
	queueManager.Start(rootCtx)

	// HTTP surface
	lanToken := cfg.GetString("LAN_TOKEN", "")
	server := apphttp.NewServer(apphttp.RouterConfig{
		JobHandler:      httpH.NewJobHandler(jobRepo, store, queueManager, normalizer, log),
		ClipHandler:     httpH.NewClipHandler(jobRepo, clipRepo),
		SettingHandler:  httpH.NewSettingHandler(cfg, settingRepo, log),
		RealtimeHandler: httpH.NewRealtimeHandler(hub, jobRepo, log),
		HealthHandler:   httpH.NewHealthHandler(),
		LANToken:        httpMW.NewLANTokenMiddleware(log, lanToken),
	})

	address := ":" + utils.GetEnv("PORT", "8000", log)
	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", "address", address)
		serverErr <- server.Start(address)
	}()

	// Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-stop:
		log.Info("Shutting down", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			log.Error("HTTP server failed", "error", err)
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incomplete", "error", err)
	}
	cancelRoot()
	queueManager.Stop()
	if eventBus != nil {
		_ = eventBus.Close()
	}
	log.Info("Shutdown complete")
}
