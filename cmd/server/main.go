package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/PortNumber53/payarc-mid/backend/internal/config"
	"github.com/PortNumber53/payarc-mid/backend/internal/gateway"
	"github.com/PortNumber53/payarc-mid/backend/internal/httpserver"
	"github.com/PortNumber53/payarc-mid/backend/internal/linkage"
	"github.com/PortNumber53/payarc-mid/backend/internal/migrations"
	"github.com/PortNumber53/payarc-mid/backend/internal/payarc"
	"github.com/PortNumber53/payarc-mid/backend/internal/store"
)

func main() {
	// Best-effort: load environment variables from .env-style files in local
	// development. These calls are safe to ignore in production environments.
	_ = godotenv.Load(
		"../.env",
		".env",
	)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			TracesSampleRate: 0.2,
			Environment:      gatewayEnvironment(cfg.Gateway),
		}); err != nil {
			log.Printf("sentry init failed: %v", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	logDBTarget("primary", cfg.DatabaseURL)
	configureDB(db)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}

	if err := runMigrationsWithDirtyFix(db, "primary"); err != nil {
		log.Fatalf("failed to apply database migrations: %v", err)
	}

	st, err := store.New(db)
	if err != nil {
		log.Fatalf("failed to create store: %v", err)
	}

	locker, closeLocker := newLocker(ctx, cfg.RedisURL)
	defer closeLocker()

	links := linkage.NewResolver(st, locker)
	client := payarc.NewClient(cfg.Gateway.APIKey(), cfg.Gateway.TestMode, cfg.Gateway.Debug)

	if cfg.Gateway.TransactionType == config.TransactionAuthorize {
		log.Printf("[payarc] transaction type %q is configured but not used; charges run as sale", cfg.Gateway.TransactionType)
	}
	log.Printf("[payarc] gateway enabled=%t environment=%s", cfg.Gateway.Enabled, gatewayEnvironment(cfg.Gateway))
	if cfg.Gateway.WebhookSecret == "" {
		log.Printf("[payarc] PAYARC_WEBHOOK_SECRET is not set; all webhook deliveries will be rejected")
	}

	srv := httpserver.New(cfg, httpserver.Deps{
		DB:          db,
		Recorder:    st,
		Notes:       st,
		Checkout:    gateway.NewCheckout(cfg.Gateway, cfg.StoreURL, st, links, client),
		Provisioner: gateway.NewProvisioner(st, links, client),
		Canceller:   gateway.NewCanceller(st, links, client),
		Reconciler:  gateway.NewReconciler(st, st, st, links),
	})

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-shutdownCtx.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("graceful shutdown failed: %v", err)
		}
	}()

	log.Printf("backend starting on %s", cfg.ServerAddress)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("server exited with error: %v", err)
		os.Exit(1)
	}
}

func configureDB(db *sql.DB) {
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
}

// newLocker returns a Redis-backed linkage lock when redisURL is set. Without
// Redis, creation is only serialised within this process.
func newLocker(ctx context.Context, redisURL string) (linkage.Locker, func()) {
	if redisURL == "" {
		log.Printf("[linkage] REDIS_URL not set; using in-process locking only")
		return linkage.NopLocker{}, func() {}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatalf("invalid REDIS_URL: %v", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to ping redis: %v", err)
	}
	log.Printf("[linkage] using redis lock at %s", opts.Addr)

	return linkage.NewRedisLocker(rdb), func() {
		if err := rdb.Close(); err != nil {
			log.Printf("redis close failed: %v", err)
		}
	}
}

func gatewayEnvironment(gw config.Gateway) string {
	if gw.TestMode {
		return "test"
	}
	return "live"
}

func runMigrationsWithDirtyFix(db *sql.DB, name string) error {
	if err := migrations.Up(db); err != nil {
		log.Printf("migrations(%s): error detected: %v (type: %T)", name, err, err)
		if strings.Contains(err.Error(), "Dirty database version") {
			log.Printf("migrations(%s): dirty database detected, attempting to fix...", name)
			if fixErr := migrations.FixDirtyDatabase(db); fixErr != nil {
				log.Printf("migrations(%s): failed to fix dirty database: %v", name, fixErr)
				return err
			}
			return migrations.Up(db)
		}
		return err
	}
	return nil
}

func logDBTarget(name, dsn string) {
	// Avoid logging secrets: only log hostname + database path.
	u, err := url.Parse(dsn)
	if err != nil {
		log.Printf("db(%s): configured (dsn parse error: %v)", name, err)
		return
	}
	log.Printf("db(%s): host=%s db=%s", name, u.Hostname(), strings.TrimPrefix(u.Path, "/"))
}
