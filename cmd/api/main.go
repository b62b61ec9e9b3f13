package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rankforge/rankreel/internal/api"
	"github.com/rankforge/rankreel/internal/config"
	"github.com/rankforge/rankreel/internal/db"
	"github.com/rankforge/rankreel/internal/notify"
	"github.com/rankforge/rankreel/internal/queue"
	"github.com/rankforge/rankreel/internal/render"
	"github.com/rankforge/rankreel/internal/services"
	"github.com/rankforge/rankreel/internal/storage"
	"github.com/rankforge/rankreel/internal/worker"
)

func main() {
	log.Println("Starting RankReel API...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	database, err := db.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	log.Println("Connected to database")

	// Connect to Redis queue
	q, err := queue.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()
	log.Println("Connected to Redis queue")

	// Initialize storage
	stor := storage.New(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseStorageBucket)
	log.Println("Initialized Supabase storage")

	// Create API handler
	handler := api.NewHandler(database, q, stor)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	})

	if cfg.BackendAPIKey != "" {
		log.Println("API key authentication enabled")
	} else {
		log.Println("WARNING: No BACKEND_API_KEY set — API is unprotected (dev mode)")
	}

	// Start HTTP server
	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	// Start worker if enabled
	var workerCtx context.Context
	var workerCancel context.CancelFunc
	if cfg.WorkerEnabled {
		log.Println("Worker enabled, starting background processing...")

		fonts, err := render.LoadFonts(cfg.FontPathDefault, cfg.FontPathWide)
		if err != nil {
			log.Fatalf("Failed to load fonts: %v", err)
		}

		layout := render.DefaultLayout(cfg.WatermarkText)
		if err := layout.Validate(); err != nil {
			log.Fatalf("Invalid layout config: %v", err)
		}

		emojiCache := render.NewGlyphCache(render.NewHTTPGlyphSource(cfg.EmojiBaseURL))
		drawer := &render.TextDrawer{Fonts: fonts, Emoji: emojiCache}
		overlayRenderer := render.NewOverlayRenderer(layout, drawer, cfg.RenderWidth, cfg.RenderHeight)

		ffmpegSvc, err := services.NewFFmpegService(cfg.TempDir, cfg.RenderWidth, cfg.RenderHeight)
		if err != nil {
			log.Fatalf("Failed to initialize ffmpeg service: %v", err)
		}

		notifier := notify.New()

		w := worker.New(database, q, stor, ffmpegSvc, overlayRenderer, emojiCache, notifier, cfg.TempDir)

		workerCtx, workerCancel = context.WithCancel(context.Background())
		go w.Start(workerCtx, cfg.MaxConcurrentJobs)
	}

	// Start server in goroutine
	go func() {
		log.Printf("API server listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Shutdown worker
	if workerCancel != nil {
		workerCancel()
	}

	// Shutdown HTTP server
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
