package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"reverie/internal/archive"
	"reverie/internal/config"
	server "reverie/internal/http"
	"reverie/internal/jobs"
	"reverie/internal/media"
	"reverie/internal/migrate"
	"reverie/internal/recap"
	"reverie/internal/storage"
	"reverie/internal/store"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	role := flag.String("role", "all", "process role: api|worker|all")
	flag.Parse()

	cfg := config.Load(*configPath)

	// Run migrations on a short-lived connection
	if err := migrate.Run(cfg.Database.DSN); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	// Create a shared *sql.DB with pooling for the Store
	db, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		log.Fatalf("open db failed: %v", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	st := store.New(db)

	// Set up logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{}))

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	objStorage, err := storage.NewS3(rootCtx, cfg.S3)
	if err != nil {
		log.Fatalf("object storage init failed: %v", err)
	}

	archiveSvc := archive.NewService(st, objStorage, cfg.CDN.Domain, logger)
	audioSvc := media.NewAudioService(cfg.Media.FFmpegPath, objStorage, st, logger)
	orchestrator := recap.NewOrchestrator(st, archiveSvc, audioSvc, st, recap.NewClient(cfg.Recap), logger)

	startWorkers := func() *jobs.Pool {
		prober := media.NewProber(cfg.Media.FFprobePath)
		extractor := jobs.NewDurationExtractor(st, archiveSvc, prober, logger)
		pool := jobs.NewPool(cfg.Worker, st, extractor, logger).
			WithRetention(jobs.NewRetention(cfg.Retention, st, logger))
		pool.Start(rootCtx)
		return pool
	}

	switch *role {
	case "api":
		s := server.NewServer(cfg, st, archiveSvc, orchestrator, logger)
		go func() {
			<-rootCtx.Done()
			_ = s.Shutdown()
		}()
		if err := s.Listen(); err != nil {
			log.Fatalf("server failed: %v", err)
		}
	case "worker":
		pool := startWorkers()
		<-rootCtx.Done()
		pool.Stop()
	case "all":
		pool := startWorkers()
		s := server.NewServer(cfg, st, archiveSvc, orchestrator, logger)
		go func() {
			<-rootCtx.Done()
			_ = s.Shutdown()
		}()
		if err := s.Listen(); err != nil {
			pool.Stop()
			log.Fatalf("server failed: %v", err)
		}
		pool.Stop()
	default:
		log.Fatalf("invalid role: %s (expected api|worker|all)", *role)
	}
}
