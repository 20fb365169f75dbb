package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"nearhelp/internal/audit"
	devicehandler "nearhelp/internal/device/handler"
	deviceservice "nearhelp/internal/device/service"
	devicestore "nearhelp/internal/device/store"
	hrhandler "nearhelp/internal/helprequest/handler"
	hrmetrics "nearhelp/internal/helprequest/metrics"
	hrservice "nearhelp/internal/helprequest/service"
	hrstore "nearhelp/internal/helprequest/store"
	jwttoken "nearhelp/internal/jwt_token"
	"nearhelp/internal/notify"
	"nearhelp/internal/platform/config"
	"nearhelp/internal/platform/httpserver"
	"nearhelp/internal/platform/logger"
	"nearhelp/internal/platform/metrics"
	platformredis "nearhelp/internal/platform/redis"
	"nearhelp/internal/schedule"
	userhandler "nearhelp/internal/user/handler"
	userservice "nearhelp/internal/user/service"
	userstore "nearhelp/internal/user/store"
)

const (
	tokenIssuer    = "nearhelp"
	tokenAudience  = "nearhelp-api"
	auditInboxSize = 1024
)

// main wires stores, services, and handlers together and owns process
// lifecycle. Business logic lives under internal/.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New(logger.LevelFromEnv())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appMetrics := metrics.New()
	helpMetrics := hrmetrics.New()

	// Storage. Postgres and Redis are optional so a dev instance can run
	// with nothing but the binary; production sets both.
	var (
		helpStore hrservice.Store
		userStore interface {
			userservice.Store
			hrservice.UserStore
		}
	)
	if cfg.PostgresDSN != "" {
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		hp := hrstore.NewPostgres(db)
		if err := hp.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("help request schema: %w", err)
		}
		up := userstore.NewPostgres(db)
		if err := up.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("user schema: %w", err)
		}
		helpStore = hp
		userStore = up
		log.Info("using postgres storage")
	} else {
		helpStore = hrstore.NewMemory()
		userStore = userstore.NewMemory()
		log.Warn("POSTGRES_DSN not set, using in-memory storage")
	}

	var deviceStore interface {
		deviceservice.Store
		hrservice.DeviceStore
	}
	redisClient, err := platformredis.New(ctx, cfg.RedisAddr)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		deviceStore = devicestore.NewRedis(redisClient.Client)
		log.Info("using redis device index", "addr", cfg.RedisAddr)
	} else {
		deviceStore = devicestore.NewMemory()
		log.Warn("REDIS_ADDR not set, using in-memory device index")
	}

	// Audit pipeline: handlers emit into a bounded inbox, a worker drains
	// it into every configured sink.
	auditStore := audit.NewInMemoryStore()
	sink := audit.Appender(auditStore)
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(ctx, cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer kafkaSink.Close()
		sink = audit.MultiAppender{auditStore, kafkaSink}
		log.Info("audit events published to kafka", "topic", cfg.AuditTopic)
	}
	inbox := make(chan audit.Event, auditInboxSize)
	auditPublisher := audit.NewPublisher(inbox, audit.WithLogger(log))
	auditWorker := audit.NewWorker(sink, inbox, log)

	gateway := notify.NewGateway(cfg.PushEndpoint, cfg.PushAPIKey)
	notifier := notify.New(gateway, notify.WithLogger(log))

	scheduler := schedule.NewTimers(schedule.WithLogger(log))
	defer scheduler.Close()

	tokens := jwttoken.NewJWTService(cfg.JWTSigningKey, tokenIssuer, tokenAudience)
	validator := jwttoken.NewJWTServiceAdapter(tokens)

	userSvc := userservice.New(userStore,
		userservice.WithLogger(log),
		userservice.WithMetrics(appMetrics),
	)
	deviceSvc := deviceservice.New(deviceStore,
		deviceservice.WithLogger(log),
		deviceservice.WithMetrics(appMetrics),
		deviceservice.WithAuditPublisher(auditPublisher),
	)
	helpSvc := hrservice.New(helpStore, deviceStore, userStore, notifier, scheduler,
		hrservice.WithLogger(log),
		hrservice.WithMetrics(helpMetrics),
		hrservice.WithAuditPublisher(auditPublisher),
	)

	router := chi.NewRouter()
	userhandler.New(userSvc, tokens, log, appMetrics, validator).Register(router)
	devicehandler.New(deviceSvc, tokens, log, appMetrics, validator).Register(router)
	hrhandler.New(helpSvc, log, appMetrics, validator).Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return auditWorker.Run(gctx)
	})
	g.Go(func() error {
		log.Info("starting nearhelp server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("shutdown complete")
	return nil
}
