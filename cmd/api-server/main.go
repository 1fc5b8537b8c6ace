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
	"github.com/redis/go-redis/v9"

	"github.com/clinicware/booking-ledger/internal/api"
	"github.com/clinicware/booking-ledger/internal/clinic"
	"github.com/clinicware/booking-ledger/internal/config"
	"github.com/clinicware/booking-ledger/internal/db"
	redisclient "github.com/clinicware/booking-ledger/internal/redis"
	"github.com/clinicware/booking-ledger/internal/store"
)

const version = "0.1.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running in env=%s http_port=%s store=%s", cfg.Env, cfg.HTTPPort, cfg.StoreBackend)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		ledgerStore clinic.Store
		pgPool      *pgxpool.Pool
	)
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pool, err := db.Connect(pgCtx, cfg.PostgresDSN)
		cancelPg()
		if err != nil {
			log.Fatalf("postgres connection error: %v", err)
		}
		defer pool.Close()
		log.Println("connected to Postgres")

		pg := store.NewPgStore(pool)
		if err := pg.EnsureSchema(rootCtx); err != nil {
			log.Fatalf("schema error: %v", err)
		}
		ledgerStore = pg
		pgPool = pool
	case config.BackendMemory:
		ledgerStore = store.NewMemStore(nil, nil)
		log.Println("using in-memory store; state is lost on exit")
	default:
		fs, err := store.NewFileStore(cfg.DataDir)
		if err != nil {
			log.Fatalf("file store error: %v", err)
		}
		ledgerStore = fs
		log.Printf("using flat-file store data_dir=%s", cfg.DataDir)
	}

	var (
		locker clinic.Locker = clinic.NopLocker{}
		rdb    *redis.Client
	)
	if cfg.RedisAddr != "" {
		rdb, err = redisclient.NewClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			log.Fatalf("redis connection error: %v", err)
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Printf("error closing redis: %v", err)
			}
		}()
		locker = redisclient.NewSlotLocker(rdb, cfg.LockTTL)
		log.Println("connected to Redis, slot lock enabled")
	} else {
		log.Println("no Redis configured, slot lock disabled")
	}

	svc := clinic.NewService(ledgerStore, locker)

	router := api.NewRouter(api.RouterConfig{
		Service: svc,
		PgPool:  pgPool,
		Redis:   rdb,
		Env:     cfg.Env,
		Version: version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-rootCtx.Done()
	log.Println("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
