package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/abduss/imgbed/internal/cache"
	"github.com/abduss/imgbed/internal/config"
	"github.com/abduss/imgbed/internal/gallery"
	"github.com/abduss/imgbed/internal/hoster"
	"github.com/abduss/imgbed/internal/logger"
	"github.com/abduss/imgbed/internal/metrics"
	"github.com/abduss/imgbed/internal/ratelimit"
	"github.com/abduss/imgbed/internal/server"
	"github.com/abduss/imgbed/internal/storage"
	"github.com/abduss/imgbed/internal/upload"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zlog, err := logger.Init(cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	metrics.InitMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var rdb *redis.Client
	if cfg.UsesRedis() {
		rdb, err = storage.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			zlog.Fatal("connect redis", zap.Error(err))
		}
		defer rdb.Close()
	}

	var dbPool *pgxpool.Pool
	if cfg.Gallery.Backend == config.BackendPostgres {
		dbPool, err = storage.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			zlog.Fatal("connect postgres", zap.Error(err))
		}
		defer dbPool.Close()
	}

	var minioClient *minio.Client
	if cfg.Hoster.Backend == config.BackendMinIO {
		minioClient, err = storage.NewMinIOClient(cfg.MinIO)
		if err != nil {
			zlog.Fatal("connect minio", zap.Error(err))
		}
		if err := storage.EnsureBucket(ctx, minioClient, cfg.MinIO); err != nil {
			zlog.Fatal("ensure bucket", zap.Error(err))
		}
	}

	limiter, err := newLimiter(cfg, rdb)
	if err != nil {
		zlog.Fatal("rate limiter", zap.Error(err))
	}
	store, err := newCache(cfg, rdb)
	if err != nil {
		zlog.Fatal("cache", zap.Error(err))
	}
	backend, err := gallery.NewBackend(ctx, cfg.Gallery, dbPool)
	if err != nil {
		zlog.Fatal("gallery backend", zap.Error(err))
	}
	uploader, err := hoster.New(cfg.Hoster, cfg.MinIO, minioClient)
	if err != nil {
		zlog.Fatal("hoster", zap.Error(err))
	}

	galleryService := gallery.NewStore(backend)
	uploadService := upload.NewService(cfg.Upload, upload.Dependencies{
		Limiter:  limiter,
		Cache:    store,
		Uploader: uploader,
		Gallery:  galleryService,
		Logger:   zlog,
	})

	deps := server.Dependencies{
		Config:         cfg,
		Logger:         zlog,
		DB:             dbPool,
		ObjectStore:    minioClient,
		UploadService:  uploadService,
		GalleryService: galleryService,
	}
	if rdb != nil {
		deps.Redis = rdb
	}
	router, err := server.NewRouter(deps)
	if err != nil {
		zlog.Fatal("build router", zap.Error(err))
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		zlog.Info("imgbed API listening",
			zap.String("addr", cfg.Server.Address()),
			zap.String("hoster", cfg.Hoster.Backend),
			zap.String("gallery", cfg.Gallery.Backend))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	zlog.Info("shutting down gracefully")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zlog.Error("shutdown", zap.Error(err))
	}
}

// newLimiter and newCache keep a nil *redis.Client from becoming a non-nil
// interface value.
func newLimiter(cfg config.Config, rdb *redis.Client) (ratelimit.Limiter, error) {
	if rdb == nil {
		return ratelimit.New(cfg.RateLimit, nil, cfg.Redis.Prefix)
	}
	return ratelimit.New(cfg.RateLimit, rdb, cfg.Redis.Prefix)
}

func newCache(cfg config.Config, rdb *redis.Client) (cache.Store, error) {
	if rdb == nil {
		return cache.New(cfg.Cache, nil, cfg.Redis.Prefix)
	}
	return cache.New(cfg.Cache, rdb, cfg.Redis.Prefix)
}
