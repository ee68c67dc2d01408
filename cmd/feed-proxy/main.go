package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/storefront-feed/pkg/cache"
	"github.com/Sternrassler/storefront-feed/pkg/client"
	"github.com/Sternrassler/storefront-feed/pkg/config"
	"github.com/Sternrassler/storefront-feed/pkg/logging"
	"github.com/Sternrassler/storefront-feed/pkg/metrics"
	"github.com/Sternrassler/storefront-feed/pkg/pagination"
)

const (
	requestTimeout  = 30 * time.Second
	prefetchTimeout = 30 * time.Second
	maxPageSize     = 200
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.Logging())

	// Setup Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisURL,
	})
	defer redisClient.Close()

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.RedisURL).Msg("Failed to connect to Redis")
	}
	logger.Info().Str("addr", cfg.RedisURL).Msg("Connected to Redis")

	// Create storefront client with the shared page store behind it
	clientCfg := client.DefaultConfig(cfg.UpstreamURL, cfg.UserAgent)
	clientCfg.PageStore = cache.NewPageStore(redisClient, cfg.Feed.CacheTTL)
	upstream, err := client.New(clientCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storefront client")
	}
	defer upstream.Close()

	pages := cache.NewExpiring[string, pagination.Page[client.Item]](cfg.Cache("pages"))
	fetcher := pagination.Memoized[client.Item](upstream, pages)

	srv := newServer(fetcher, redisClient, cfg, logger)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().
			Str("addr", httpServer.Addr).
			Str("upstream", cfg.UpstreamURL).
			Str("user_agent", cfg.UserAgent).
			Msg("Starting feed proxy")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-sigCtx.Done()
	logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
	}
	srv.wait()
}

// server serves feed pages through a memoized fetcher and warms the pages
// that follow each request.
type server struct {
	fetcher    pagination.PageFetcher[client.Item]
	prefetcher *pagination.Prefetcher[client.Item]
	redis      *redis.Client
	cfg        config.Config
	logger     zerolog.Logger

	// prefetches tracks background warm-ups so shutdown can wait for them.
	prefetches chan struct{}
}

func newServer(fetcher pagination.PageFetcher[client.Item], redisClient *redis.Client, cfg config.Config, logger zerolog.Logger) *server {
	return &server{
		fetcher:    fetcher,
		prefetcher: pagination.NewPrefetcher(fetcher, pagination.DefaultPrefetchConfig()),
		redis:      redisClient,
		cfg:        cfg,
		logger:     logger,
		prefetches: make(chan struct{}, 16),
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler(s.redis))
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/v1/feed", s.feedHandler)
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// readyHandler reports 503 while the shared page store is unreachable.
// Without a store the proxy is always ready.
func readyHandler(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := redisClient.Ping(ctx).Err(); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				fmt.Fprintf(w, "Redis not ready: %v", err)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

// feedHandler serves GET /v1/feed?kind=&mode=&q=&image=&sort=&scope=&page=&size=.
func (s *server) feedHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q, page, size, err := parseFeedRequest(r, s.cfg.Feed.PageSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	result, err := s.fetcher.FetchPage(ctx, page, size, q)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("source", q.Source().String()).
			Int("page", page).
			Msg("Feed page failed")
		writeError(w, http.StatusBadGateway, fmt.Sprintf("upstream request failed: %v", err))
		return
	}

	if result.HasMore == nil || *result.HasMore {
		s.prefetch(q, page+1, size)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		s.logger.Error().Err(err).Msg("Failed to write response")
	}
}

// prefetch warms the configured number of pages from first on in the
// background. Requests arriving while all prefetch slots are busy skip it.
func (s *server) prefetch(q pagination.Query, first, size int) {
	if s.cfg.PrefetchPages <= 0 {
		return
	}
	select {
	case s.prefetches <- struct{}{}:
	default:
		s.logger.Debug().Str("query", q.Fingerprint()).Msg("Prefetch slots busy")
		return
	}

	go func() {
		defer func() { <-s.prefetches }()

		ctx, cancel := context.WithTimeout(context.Background(), prefetchTimeout)
		defer cancel()
		if _, err := s.prefetcher.Prefetch(ctx, q, first, s.cfg.PrefetchPages, size); err != nil {
			s.logger.Debug().Err(err).Str("query", q.Fingerprint()).Msg("Prefetch incomplete")
		}
	}()
}

// wait blocks until all background prefetches finished.
func (s *server) wait() {
	for i := 0; i < cap(s.prefetches); i++ {
		s.prefetches <- struct{}{}
	}
}

func parseFeedRequest(r *http.Request, defaultSize int) (pagination.Query, int, int, error) {
	params := r.URL.Query()

	q := pagination.Query{
		Kind:     pagination.Kind(params.Get("kind")),
		Mode:     pagination.Mode(params.Get("mode")),
		Keyword:  params.Get("q"),
		ImageRef: params.Get("image"),
		Sort:     params.Get("sort"),
		ScopeID:  params.Get("scope"),
	}
	if q.Kind == "" {
		q.Kind = pagination.KindProduct
	}
	if q.Mode == "" {
		q.Mode = pagination.ModeKeyword
	}

	switch q.Kind {
	case pagination.KindProduct, pagination.KindBooth:
	default:
		return q, 0, 0, fmt.Errorf("unknown kind %q", q.Kind)
	}
	switch q.Mode {
	case pagination.ModeKeyword:
	case pagination.ModeImage:
		if q.ImageRef == "" {
			return q, 0, 0, fmt.Errorf("image mode requires an image reference")
		}
	default:
		return q, 0, 0, fmt.Errorf("unknown mode %q", q.Mode)
	}

	page, err := intParam(params.Get("page"), 1)
	if err != nil || page < 1 {
		return q, 0, 0, fmt.Errorf("invalid page %q", params.Get("page"))
	}
	size, err := intParam(params.Get("size"), defaultSize)
	if err != nil || size < 1 || size > maxPageSize {
		return q, 0, 0, fmt.Errorf("invalid size %q", params.Get("size"))
	}
	return q, page, size, nil
}

func intParam(value string, def int) (int, error) {
	if value == "" {
		return def, nil
	}
	return strconv.Atoi(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
