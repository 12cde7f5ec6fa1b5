package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"vibelink/core/projects"
	"vibelink/core/ratelimit"
	"vibelink/pkg/blobstore"
	"vibelink/pkg/config"
	"vibelink/web/routes"
)

func main() {
	var port string

	flag.StringVar(&port, "port", "", "override the configured port")
	flag.Parse()

	cfg := config.Load("./config/")
	if port == "" {
		port = cfg.Port
	}

	store := buildStore(cfg)
	records := buildRecordStore(cfg, store)

	limiterOpts := []ratelimit.LimiterOpts{}
	if cfg.RateLimitFailClosed {
		limiterOpts = append(limiterOpts, ratelimit.WithFailClosed())
	}

	limiter := ratelimit.NewLimiter(records, limiterOpts...)

	repo := projects.NewRepository(store)
	uploadSvc := projects.NewUploadService(repo, limiter, cfg.PublicBaseURL)

	e := echo.New()
	routes.Register(
		e,
		&routes.UploadHandler{Svc: uploadSvc},
		&routes.ProjectHandler{Repo: repo},
	)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: e,
	}

	go func() {
		log.Info().
			Str("port", port).
			Str("store", cfg.StoreBackend).
			Str("ratelimit", cfg.RateLimitBackend).
			Msg("server started")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}
}

func buildStore(cfg config.AppConfig) blobstore.Store {
	switch cfg.StoreBackend {
	case "minio":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		store, err := blobstore.NewMinioStore(ctx, blobstore.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize minio store")
		}

		return store

	case "local":
		store, err := blobstore.NewLocalFS(cfg.DataDir)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize local store")
		}

		return store

	default:
		log.Fatal().Str("backend", cfg.StoreBackend).Msg("unknown store backend")
		return nil
	}
}

func buildRecordStore(cfg config.AppConfig, store blobstore.Store) ratelimit.RecordStore {
	if cfg.RateLimitBackend == "redis" {
		conn, err := ratelimit.NewRedisConnection(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}

		return ratelimit.NewRedisRecordStore(conn, ratelimit.DefaultWindow)
	}

	return ratelimit.NewBlobRecordStore(store)
}
