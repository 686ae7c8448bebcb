package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/cookieshake/santokit-sub000/internal/bridgeapi"
	"github.com/cookieshake/santokit-sub000/internal/config"
	"github.com/cookieshake/santokit-sub000/internal/hubclient"
	"github.com/cookieshake/santokit-sub000/internal/httpserver"
	"github.com/cookieshake/santokit-sub000/internal/platform"
	"github.com/cookieshake/santokit-sub000/internal/ratelimit"
	"github.com/cookieshake/santokit-sub000/internal/telemetry"
	"github.com/cookieshake/santokit-sub000/pkg/authn"
	"github.com/cookieshake/santokit-sub000/pkg/permissions"
	"github.com/cookieshake/santokit-sub000/pkg/release"
	"github.com/cookieshake/santokit-sub000/pkg/storage"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("starting bridge", "listen", cfg.ListenAddr(), "hub", cfg.HubURL)

	metricsReg := prometheus.NewRegistry()
	for _, c := range telemetry.All() {
		if err := metricsReg.Register(c); err != nil {
			return fmt.Errorf("registering metrics: %w", err)
		}
	}

	var rdb *redis.Client
	var limiter ratelimit.Limiter = ratelimit.NewInMemoryLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)
	if cfg.RedisURL != "" {
		rdb, err = platform.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		limiter = ratelimit.NewRedisLimiter(rdb, cfg.RateLimitMax, cfg.RateLimitWindow)
	}

	hub := hubclient.New(cfg.HubURL, cfg.HubTimeout)
	releaseCache := release.NewCache(cfg.ReleaseCacheTTL, rdb, hub)

	validator, err := authn.NewValidator(cfg.PasetoKeys)
	if err != nil {
		return fmt.Errorf("building paseto validator: %w", err)
	}

	evaluator, err := permissions.NewEvaluator()
	if err != nil {
		return fmt.Errorf("building permissions evaluator: %w", err)
	}

	pools := bridgeapi.NewPoolRegistry()
	defer pools.Close()

	broker, err := newStorageBroker(ctx, cfg)
	if err != nil {
		return fmt.Errorf("building storage broker: %w", err)
	}

	handler := &bridgeapi.Handler{
		Releases:    releaseCache,
		Evaluator:   evaluator,
		Validator:   validator,
		Pools:       pools,
		StorageCfg:  func(rel release.Release) storage.Config { return rel.Storage },
		Broker:      broker,
		Logger:      logger,
		DisableAuth: cfg.DisableAuth,
	}

	callServer := &bridgeapi.Server{
		Handler: handler,
		Limiter: limiter,
		APIKeys: hub,
	}

	pingers := map[string]httpserver.Pinger{
		"hub": hub,
		"db":  pools,
	}
	if rdb != nil {
		pingers["redis"] = redisPinger{rdb}
	}

	srv := httpserver.NewServer(cfg, logger, metricsReg, pingers)
	callServer.Mount(srv.Router)

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("bridge listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down bridge")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// redisPinger adapts *redis.Client's Ping (which returns a *StatusCmd) to
// httpserver.Pinger's plain error-returning shape.
type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func newStorageBroker(ctx context.Context, cfg *config.Config) (*storage.Broker, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = &cfg.S3Endpoint
			o.UsePathStyle = true
		}
	})

	presignClient := s3.NewPresignClient(client)
	return storage.NewBroker(presignClient, client)
}
