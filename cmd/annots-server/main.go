// Package main is the entry point for the annotation server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/api"
	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/cache"
	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/config"
	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/render"
	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/service"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config/server.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting annotation server on port %d", cfg.Server.Port)

	// Initialize components
	ctx := context.Background()

	// Initialize cache manager (shared across all studies)
	cacheManager, err := cache.NewManager(cache.Config{
		PayloadSizeMB:   cfg.Cache.PayloadSizeMB,
		PayloadTTL:      time.Duration(cfg.Cache.PayloadTTLMinutes) * time.Minute,
		DocumentEntries: cfg.Cache.DocumentEntries,
	})
	if err != nil {
		log.Fatalf("Failed to initialize cache: %v", err)
	}

	// Initialize preview renderer (shared across all studies)
	renderer := render.NewRenderer(render.Config{
		Width:       cfg.Render.Width,
		TrackHeight: cfg.Render.TrackHeight,
		Colormap:    cfg.Render.DefaultColormap,
	})

	// Initialize study registry. The first study in the config file is
	// the default one.
	studyIDs := cfg.Studies.StudyIDs()
	defaultStudy := ""
	if len(studyIDs) > 0 {
		defaultStudy = studyIDs[0]
	}
	registry := api.NewStudyRegistry(defaultStudy, studyIDs)

	log.Printf("Initializing %d study(ies), default: %s", len(studyIDs), defaultStudy)

	// Initialize each study
	for _, studyID := range studyIDs {
		st := cfg.Studies.Studies[studyID]

		annotService := service.NewAnnotService(service.AnnotServiceConfig{
			StudyID:   studyID,
			OutputDir: st.OutputDir,
			Cache:     cacheManager,
			Renderer:  renderer,
		})
		registry.Register(studyID, annotService)

		annots, err := annotService.ListAnnotations()
		if err != nil {
			log.Printf("  [%s] Could not list %s: %v", studyID, st.OutputDir, err)
			continue
		}
		log.Printf("  [%s] Serving from: %s", studyID, st.OutputDir)
		log.Printf("    Annotation files: %d", len(annots))
		if path, ok := annotService.ArchivePath(); ok {
			log.Printf("    Archive: %s", path)
		}
	}

	// Initialize job manager for conversion jobs (SQLite persistence)
	jobManager, err := api.NewJobManager(api.JobManagerConfig{
		MaxConcurrent: cfg.Jobs.Workers,
		SQLitePath:    cfg.Jobs.SQLitePath,
		Backlog:       cfg.Jobs.Backlog,
		RetentionDays: cfg.Jobs.RetentionDays,
		CleanupPeriod: 1 * time.Hour,
	})
	if err != nil {
		log.Fatalf("Failed to initialize job manager: %v", err)
	}
	log.Printf("Convert job manager: workers=%d, retention_days=%d, sqlite=%s",
		cfg.Jobs.Workers, cfg.Jobs.RetentionDays, cfg.Jobs.SQLitePath)

	// Wire up conversion service as job executor
	convertService := service.NewConvertService(registry)
	jobManager.Executor = convertService.ExecuteConvertJob

	jobManager.Start()
	defer jobManager.Stop()

	// Set up HTTP router
	router := api.NewRouter(api.RouterConfig{
		Registry:    registry,
		CORSOrigins: cfg.Server.CORSOrigins,
		JobManager:  jobManager,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on http://localhost:%d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
