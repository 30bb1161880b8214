package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/voyagen/runtv/internal/cache"
	"github.com/voyagen/runtv/internal/config"
	"github.com/voyagen/runtv/internal/fetcher"
	"github.com/voyagen/runtv/internal/health"
	"github.com/voyagen/runtv/internal/logging"
	"github.com/voyagen/runtv/internal/server"
	"github.com/voyagen/runtv/internal/service"
	"github.com/voyagen/runtv/internal/store"
)

func main() {
	configPath := flag.String("config", "", "Optional config file path (YAML); else use env")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logFile, err := logging.Setup(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()

	ctx := context.Background()

	base, err := openStore(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "store: %v\n", err)
		os.Exit(1)
	}
	defer base.Close()

	// Connect to Redis if REDIS_URL is configured.
	var locker cache.Locker
	var appStore store.Store = base
	if cfg.RedisURL != "" {
		rds, err := cache.New(cfg.RedisURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "redis: %v\n", err)
			os.Exit(1)
		}
		defer rds.Close()

		if err := rds.Ping(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "redis ping: %v\n", err)
			os.Exit(1)
		}

		appStore = store.NewCachedStore(base, rds)
		locker = rds
		fmt.Fprintln(os.Stderr, "redis connected (caching enabled)")
	} else {
		fmt.Fprintln(os.Stderr, "redis disabled (REDIS_URL not set)")
	}

	fetchClient := fetcher.NewClient(fetcher.Options{
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.FetchTimeout,
		RateLimit: cfg.RateLimit,
	})
	probeClient := fetcher.NewClient(fetcher.Options{
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.ProbeTimeout,
	})
	loader := service.NewLoader(fetchClient)
	loader.OnTransition = func(from, to service.State) {
		log.Printf("load: %s -> %s", from, to)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(appStore, cfg, loader, health.NewProber(probeClient), locker)
	if err := srv.ListenAndServe(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

// openStore opens Postgres when DATABASE_URL is set (running migrations
// first) and the bolt file otherwise.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if !cfg.UsesPostgres() {
		if dir := filepath.Dir(cfg.BoltPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("bolt dir: %w", err)
			}
		}
		fmt.Fprintf(os.Stderr, "using embedded store %s\n", cfg.BoltPath)
		return store.OpenBolt(cfg.BoltPath)
	}

	absMigrations, err := filepath.Abs("migrations")
	if err != nil {
		absMigrations = "migrations"
	}
	if _, err := os.Stat(absMigrations); err != nil {
		if exe, e := os.Executable(); e == nil {
			absMigrations = filepath.Join(filepath.Dir(exe), "migrations")
		}
	}
	if err := store.EnsureDatabase(cfg.DatabaseURL); err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	if err := store.RunMigrations(cfg.DatabaseURL, "file://"+absMigrations); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store.NewPostgres(ctx, cfg.DatabaseURL)
}
