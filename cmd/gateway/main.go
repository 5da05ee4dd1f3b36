package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"finadmin.org/internal/audit"
	"finadmin.org/internal/backoffice"
	"finadmin.org/internal/config"
	"finadmin.org/internal/httpapi"
	"finadmin.org/internal/migrate"
	"finadmin.org/internal/obs"
	"finadmin.org/internal/roles"
	"finadmin.org/internal/session"
	"finadmin.org/internal/tokencipher"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	cfg, err := config.New(".env")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := obs.NewLogger(obs.ParseLevel(cfg.LogLevel))
	obs.SetLogger(logger)
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cipher, err := tokencipher.New(cfg.TokenSecret)
	if err != nil {
		log.Fatalf("token cipher: %v", err)
	}

	// Audit database is optional; without it events are log-only.
	var db *sql.DB
	if cfg.PostgresDSN != "" {
		db, err = sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := migrate.NewManager(db).Up(ctx); err != nil {
			cancel()
			log.Fatalf("migrate: %v", err)
		}
		cancel()
	}

	// Role catalog cache: shared via Redis when configured, otherwise
	// in-process.
	var catalog roles.CatalogStore = roles.NewMemoryStore()
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		catalog = roles.NewRedisStore(rdb, "finadmin:role-catalog", cfg.CatalogTTL)
	}

	upstream := backoffice.NewClient(cfg.UpstreamURL, cfg.UpstreamTimeout, cfg.UpstreamRetries, logger)
	resolver := roles.NewResolver(upstream, catalog, logger)
	recorder := audit.NewRecorder(db, logger)

	api := httpapi.New(httpapi.Deps{
		Version:  version,
		Ready:    httpapi.ReadyProbe{DB: db},
		Upstream: upstream,
		Cipher:   cipher,
		Resolver: resolver,
		Audit:    recorder,
		Log:      logger,
		CookieOpts: session.CookieOptions{
			Domain: cfg.CookieDomain,
			Secure: cfg.CookieSecure,
		},
		RateBurst:     cfg.RateBurst,
		RatePerSecond: cfg.RatePerSecond,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("starting finadmin-gateway", "version", version, "addr", srv.Addr, "upstream", cfg.UpstreamURL)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if rdb != nil {
		_ = rdb.Close()
	}
	if db != nil {
		_ = db.Close()
	}
	logger.Info("stopped")
}
