package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"clinic-management-api/internal/config"
	"clinic-management-api/internal/handler"
	mw "clinic-management-api/internal/middleware"
	"clinic-management-api/internal/ratelimit"
	"clinic-management-api/internal/service"
	"clinic-management-api/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if cfg.JWTSecret == "" {
		log.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	var (
		patients     store.PatientStore
		appointments store.AppointmentStore
		users        store.UserStore
	)

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			log.Error("db", "err", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := pool.Ping(context.Background()); err != nil {
			log.Error("db ping", "err", err)
			os.Exit(1)
		}
		log.Info("connected to postgres")

		// run migrations
		if migration, err := os.ReadFile("db/migrations/001_init.sql"); err != nil {
			log.Warn("migration file not found, skipping", "err", err)
		} else if _, err := pool.Exec(context.Background(), string(migration)); err != nil {
			log.Warn("migration", "err", err)
		} else {
			log.Info("migration applied")
		}

		st := store.New(pool)
		patients, appointments, users = st.Patients(), st.Appointments(), st.Users()
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		patients = store.NewMemoryPatientStore()
		appointments = store.NewMemoryAppointmentStore()
		users = store.NewMemoryUserStore()
	}

	// login lockout state: redis when configured, process-local otherwise
	var attempts ratelimit.AttemptStore = ratelimit.NewMemoryAttemptStore()
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Error("redis url", "err", err)
			os.Exit(1)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(context.Background()).Err(); err != nil {
			log.Error("redis ping", "err", err)
			os.Exit(1)
		}
		defer client.Close()
		attempts = ratelimit.NewRedisAttemptStore(client)
		log.Info("connected to redis")
	}
	limiter := ratelimit.NewLimiter(attempts)

	h := handler.New(
		service.NewPatientService(patients, log),
		service.NewAppointmentService(appointments, patients, log),
		service.NewLoginService(users, cfg.JWTSecret, log),
		limiter,
		log,
	)

	throttler := mw.NewThrottler(5, 10)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h.Routes(cfg.JWTSecret, users, throttler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("http listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http", "err", err)
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
