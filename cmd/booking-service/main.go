package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ohhaus/cafe-booking/internal/availability"
	"github.com/ohhaus/cafe-booking/internal/booking"
	"github.com/ohhaus/cafe-booking/internal/cache"
	"github.com/ohhaus/cafe-booking/internal/config"
	"github.com/ohhaus/cafe-booking/internal/httpapi"
	"github.com/ohhaus/cafe-booking/internal/store/postgres"
	"github.com/ohhaus/cafe-booking/internal/telemetry"
	"github.com/ohhaus/cafe-booking/internal/worker"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg := config.Load()

	shutdownTracing := telemetry.Setup("booking-service")
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			log.Printf("tracing shutdown error: %v", err)
		}
	}()

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	st := postgres.NewStore(pool, postgres.Options{
		AutoConfirm:         cfg.AutoConfirm,
		MaxReminderAttempts: cfg.NotifMaxAttempts,
	})

	var c cache.Cache
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(context.Background()); err != nil {
			log.Fatalf("redis connect: %v", err)
		}
		defer redisCache.Close()
		c = redisCache
	} else {
		log.Printf("REDIS_ADDR not set, using in-process availability cache")
		c = cache.NewMemory()
	}

	index := availability.NewIndex(st, c, cfg.AvailabilityTTL)
	service := booking.NewService(st, index, booking.Options{
		DefaultTimezone:     cfg.DefaultTimezone,
		ReminderLeadDays:    cfg.ReminderLeadDays,
		CompletionBatchSize: cfg.CompletionBatchSize,
	})

	handler := httpapi.NewHandler(service)
	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		IPPerMinute:      cfg.RateLimitPerMinute,
		IPBurst:          cfg.RateLimitBurst,
		SessionPerMinute: cfg.SessionRateLimitPerMinute,
		SessionBurst:     cfg.SessionRateLimitBurst,
	})

	routes := httpapi.AuthMiddleware(st, handler.Routes())
	routes = limiter.Middleware(routes)
	routes = httpapi.LoggingMiddleware(routes)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelhttp.NewHandler(routes, "booking-service"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	go func() {
		log.Printf("booking-service listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	go func() {
		if cfg.CompletionInterval <= 0 {
			return
		}
		ticker := time.NewTicker(cfg.CompletionInterval)
		defer ticker.Stop()
		for {
			select {
			case <-rootCtx.Done():
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(rootCtx, 30*time.Second)
				count, err := service.RunCompletionSweep(ctx, time.Now().UTC())
				cancel()
				if err != nil {
					log.Printf("completion sweep error: %v", err)
					continue
				}
				if count > 0 {
					log.Printf("completion sweep closed %d bookings", count)
				}
			}
		}
	}()

	go runReminderSweep(rootCtx, service, cfg)

	notifWorker := worker.New(st, worker.Config{
		BatchSize:     cfg.NotifBatchSize,
		MaxAttempts:   cfg.NotifMaxAttempts,
		EmailProvider: cfg.NotifEmailProvider,
		RetryBackoff:  cfg.NotifRetryBackoff,
	})
	if cfg.NotifPollInterval > 0 {
		go worker.Start(rootCtx, cfg.NotifPollInterval, notifWorker)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	cancelRoot()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

// runReminderSweep fires once per hour and enqueues reminders when the
// configured local hour comes around. EnqueueReminders is idempotent, so
// repeated fires inside the same hour are harmless.
func runReminderSweep(ctx context.Context, service *booking.Service, cfg config.Config) {
	loc, err := time.LoadLocation(cfg.DefaultTimezone)
	if err != nil {
		log.Printf("bad DEFAULT_TIMEZONE %q, using UTC: %v", cfg.DefaultTimezone, err)
		loc = time.UTC
	}

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if now.In(loc).Hour() != cfg.ReminderHour {
				continue
			}
			sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			count, err := service.RunReminderSweep(sweepCtx, now.UTC())
			cancel()
			if err != nil {
				log.Printf("reminder sweep error: %v", err)
				continue
			}
			if count > 0 {
				log.Printf("reminder sweep enqueued %d reminders", count)
			}
		}
	}
}
