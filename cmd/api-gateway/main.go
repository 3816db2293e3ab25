package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	_ "github.com/noah-isme/civic-archive-api/api/swagger"
	"github.com/noah-isme/civic-archive-api/internal/handler"
	"github.com/noah-isme/civic-archive-api/internal/middleware"
	"github.com/noah-isme/civic-archive-api/internal/repository"
	"github.com/noah-isme/civic-archive-api/internal/service"
	"github.com/noah-isme/civic-archive-api/pkg/cache"
	"github.com/noah-isme/civic-archive-api/pkg/config"
	"github.com/noah-isme/civic-archive-api/pkg/database"
	"github.com/noah-isme/civic-archive-api/pkg/geocode"
	"github.com/noah-isme/civic-archive-api/pkg/jobs"
	"github.com/noah-isme/civic-archive-api/pkg/linkcheck"
	"github.com/noah-isme/civic-archive-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/civic-archive-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/civic-archive-api/pkg/middleware/requestid"
	"github.com/noah-isme/civic-archive-api/pkg/storage"
)

// @title Civic Archive API
// @version 1.0.0
// @description Upload, tag, search and download civic documents and media.
// @BasePath /api
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server stopped with error", zap.Error(err))
	}
	logr.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close() //nolint:errcheck
		}
	}

	store, err := newStore(ctx, cfg.Storage, logr)
	if err != nil {
		return err
	}

	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	archiveRepo := repository.NewArchiveRepository(db)
	tagRepo := repository.NewTagRepository(db)
	locationRepo := repository.NewLocationRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	bookmarkRepo := repository.NewBookmarkRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.DefaultTTL, logr, cfg.Cache.Enabled && redisClient != nil)
	authSvc := service.NewAuthService(userRepo, auditRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	resolver := service.NewLocationResolver(locationRepo, geocode.New(geocode.Config{
		BaseURL:           cfg.Geocoder.BaseURL,
		UserAgent:         cfg.Geocoder.UserAgent,
		Timeout:           cfg.Geocoder.Timeout,
		RequestsPerSecond: cfg.Geocoder.RequestsPerSecond,
	}), cacheSvc, cfg.Geocoder.CacheTTL, metrics, logr)
	links := linkcheck.New(linkcheck.Config{Timeout: cfg.LinkCheck.Timeout, UserAgent: cfg.LinkCheck.UserAgent})
	signer := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)

	deps := service.ArchiveServiceDeps{Signer: signer, Cache: cacheSvc, Audit: auditRepo, Metrics: metrics}
	var thumbQueue *jobs.Queue
	if cfg.Thumbnails.Enabled {
		thumbSvc := service.NewThumbnailService(store, archiveRepo, cfg.Thumbnails.MaxEdgePx, metrics, logr)
		thumbQueue = jobs.NewQueue(service.JobTypeThumbnail, thumbSvc.Process, jobs.QueueConfig{
			Workers:    cfg.Thumbnails.Workers,
			MaxRetries: cfg.Thumbnails.MaxRetries,
			Logger:     logr,
			OnResult:   thumbSvc.Report,
		})
		thumbSvc.SetQueue(thumbQueue)
		deps.Thumbnails = thumbSvc
	}

	archiveSvc := service.NewArchiveService(archiveRepo, tagRepo, resolver, links, store, deps, logr, service.ArchiveServiceConfig{
		MaxFileSize: cfg.Storage.MaxFileSizeBytes,
		APIPrefix:   cfg.APIPrefix,
	})
	commentSvc := service.NewCommentService(commentRepo, archiveRepo, logr)
	bookmarkSvc := service.NewBookmarkService(bookmarkRepo, logr)
	exportSvc := service.NewExportService(archiveSvc, auditRepo, logr, nil, nil)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	checks := map[string]handler.ReadinessCheck{"postgres": db.PingContext}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	ops := handler.NewMetricsHandler(metrics, checks)
	r.GET("/metrics", ops.Prometheus)
	r.GET("/health", ops.Health)
	r.GET("/ready", ops.Ready)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r, cfg.APIPrefix, authSvc, routeHandlers{
		auth:      handler.NewAuthHandler(authSvc),
		archive:   handler.NewArchiveHandler(archiveSvc, cfg.Storage.MaxFileSizeBytes),
		community: handler.NewCommunityHandler(commentSvc, bookmarkSvc),
		export:    handler.NewExportHandler(exportSvc),
		audit:     auditRepo,
		logger:    logr,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if thumbQueue != nil {
		thumbQueue.Start(ctx)
		defer thumbQueue.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		logr.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newStore(ctx context.Context, cfg config.StorageConfig, logr *zap.Logger) (storage.Store, error) {
	switch cfg.Backend {
	case config.StorageS3:
		return storage.NewS3Storage(ctx, storage.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PathStyle: cfg.S3PathStyle,
		})
	case config.StorageLocal, "":
		local, err := storage.NewLocalStorage(cfg.LocalDir)
		if err != nil {
			return nil, err
		}
		removed, err := local.CleanupPartials(cfg.PartialTTL)
		if err != nil {
			logr.Warn("failed to clean partial uploads", zap.Error(err))
		} else if len(removed) > 0 {
			logr.Info("removed partial uploads", zap.Int("count", len(removed)))
		}
		return local, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
