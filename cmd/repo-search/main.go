package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Sternrassler/topic-repo-search/internal/api"
	"github.com/Sternrassler/topic-repo-search/internal/config"
	"github.com/Sternrassler/topic-repo-search/pkg/client"
	"github.com/Sternrassler/topic-repo-search/pkg/logging"
	"github.com/Sternrassler/topic-repo-search/pkg/ratelimit"
	"github.com/Sternrassler/topic-repo-search/pkg/search"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// @title GitHub Repository API
// @version 1.0.0
// @description Topic search over GitHub repositories with server-side sorting and pagination.
// @BasePath /

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.LogLevel(cfg.Logging.Level)
	logCfg.Pretty = cfg.Logging.Pretty
	logging.Setup(logCfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var tracker *ratelimit.Tracker
	if cfg.Redis.URL != "" {
		redisClient, err := newRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		tracker = ratelimit.NewTracker(redisClient, logging.NewLogger("ratelimit"))
	}

	engine, err := newEngine(cfg, tracker)
	if err != nil {
		return err
	}

	gin.SetMode(cfg.Server.GinMode)
	handler := api.NewHandler(engine, searchTimeout(cfg))
	router := api.NewRouter(handler, api.RouterConfig{
		CORSOrigins: cfg.Server.CORSOrigins,
		Swagger:     cfg.Server.GinMode != gin.ReleaseMode,
	})

	srv := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("user_agent", cfg.GitHub.UserAgent).
			Bool("authenticated", cfg.GitHub.Token != "").
			Bool("rate_limit_sharing", tracker != nil).
			Msg("Starting repository search server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newEngine wires the GitHub client into the aggregation engine. All pages
// of all searches share one connection pool.
func newEngine(cfg *config.Config, tracker *ratelimit.Tracker) (*search.Engine, error) {
	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        32,
			MaxIdleConnsPerHost: 8,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	clientCfg := client.DefaultConfig(httpClient, cfg.GitHub.UserAgent)
	clientCfg.Token = cfg.GitHub.Token
	clientCfg.BaseURL = cfg.GitHub.APIURL
	clientCfg.RequestTimeout = cfg.GitHub.RequestTimeout
	clientCfg.Retry = client.RetryConfig{
		MaxAttempts: cfg.GitHub.RetryAttempts,
		Delay:       cfg.GitHub.RetryDelay,
	}
	clientCfg.RateLimiter = tracker

	ghClient, err := client.New(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create github client: %w", err)
	}

	engineCfg := search.DefaultEngineConfig()
	engineCfg.Ceiling = cfg.Search.Ceiling
	engineCfg.MaxPages = cfg.Search.MaxPages
	engineCfg.PageTimeout = cfg.Search.PageTimeout

	return search.NewEngine(ghClient, engineCfg), nil
}

// searchTimeout bounds one request: the probe with all its retries, then
// the follow-up pages, which run in parallel under PageTimeout.
func searchTimeout(cfg *config.Config) time.Duration {
	attempts := time.Duration(cfg.GitHub.RetryAttempts)
	probe := attempts*cfg.GitHub.RequestTimeout + (attempts-1)*cfg.GitHub.RetryDelay
	return probe + cfg.Search.PageTimeout
}

// newRedisClient accepts a redis:// URL or a plain host:port and pings it.
func newRedisClient(ctx context.Context, rawURL string) (*redis.Client, error) {
	var opts *redis.Options
	if strings.Contains(rawURL, "://") {
		parsed, err := redis.ParseURL(rawURL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: rawURL}
	}

	redisClient := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		redisClient.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}

	log.Info().Str("addr", opts.Addr).Msg("Connected to Redis")
	return redisClient, nil
}
