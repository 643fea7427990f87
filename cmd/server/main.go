package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/tourchat/tourchat/internal/api"
	"github.com/tourchat/tourchat/internal/cache"
	"github.com/tourchat/tourchat/internal/chat"
	"github.com/tourchat/tourchat/internal/destination"
	"github.com/tourchat/tourchat/internal/session"
	"github.com/tourchat/tourchat/internal/storage"
	"github.com/tourchat/tourchat/internal/trip"
	"github.com/tourchat/tourchat/internal/users"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(log); err != nil {
		log.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	// A local .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	jwtSecret := mustEnv("JWT_SECRET")
	port := getEnv("PORT", "8080")
	citiesCSV := getEnv("CITIES_CSV", "cities/worldcities.csv")
	userDataFile := getEnv("USER_DATA_FILE", "user_data.json")
	ollamaURL := getEnv("OLLAMA_URL", "http://localhost:11434")
	ollamaModel := getEnv("OLLAMA_MODEL", "llama3.1")
	databaseURL := os.Getenv("DATABASE_URL")
	redisURL := os.Getenv("REDIS_URL")
	weatherKey := os.Getenv("OPENWEATHER_API_KEY")
	poiKey := os.Getenv("OPENTRIPMAP_API_KEY")

	ctx := context.Background()
	pingers := map[string]api.Pinger{}

	// Credential store: PostgreSQL when configured, otherwise a JSON file.
	var repo users.Repository
	if databaseURL != "" {
		pool, err := storage.Connect(ctx, databaseURL)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer pool.Close()

		if err := storage.RunMigrations(ctx, pool); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		log.Info("migrations applied")

		repo = storage.NewRepository(pool)
		pingers["db"] = &pgxPoolPinger{pool: pool}
	} else {
		log.Info("no DATABASE_URL set, using file store", "path", userDataFile)
		repo = users.NewFileRepository(userDataFile)
	}

	// Enrichment cache: Redis when configured, otherwise a no-op.
	var enrichmentCache api.EnrichmentCache = cache.Noop{}
	if redisURL != "" {
		redisClient, err := cache.Connect(ctx, redisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer func() { _ = redisClient.Close() }()

		enrichmentCache = cache.NewCache(redisClient)
		pingers["redis"] = &redisPingerAdapter{client: redisClient}
	} else {
		log.Info("no REDIS_URL set, enrichment caching disabled")
	}

	cities, err := trip.LoadCityIndexFile(citiesCSV)
	if err != nil {
		return fmt.Errorf("loading city dataset: %w", err)
	}
	log.Info("city dataset loaded", "path", citiesCSV, "cities", cities.Len())

	// Wire dependencies.
	store := users.NewStore(ctx, repo, log)
	gateway := chat.NewGateway(ollamaURL, ollamaModel)
	controller := session.NewController(store, gateway, []byte(jwtSecret))
	fetcher := destination.NewFetcher(weatherKey, poiKey)
	handlers := api.NewHandlers(controller, cities, enrichmentCache, fetcher, log)

	router := api.NewRouter(handlers, controller, pingers, log)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 150 * time.Second, // model responses can take a while
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("server goroutine panicked", "recover", r)
				errCh <- fmt.Errorf("server panicked: %v", r)
			}
		}()
		log.Info("server starting", "port", port, "model", ollamaModel)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("listening: %w", err)
		}
	}()

	select {
	case sig := <-quit:
		log.Info("shutdown signal received", "signal", sig)
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("server shut down cleanly")
	return nil
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable not set", "key", key)
		os.Exit(1)
	}
	return v
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// pgxPoolPinger adapts pgxpool.Pool to the api.Pinger interface.
type pgxPoolPinger struct {
	pool interface {
		Ping(ctx context.Context) error
	}
}

func (p *pgxPoolPinger) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// redisPingerAdapter adapts redis.Client to the api.Pinger interface.
type redisPingerAdapter struct {
	client *redis.Client
}

func (r *redisPingerAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
