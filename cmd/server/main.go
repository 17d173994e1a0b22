package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"bizlink/internal/audit"
	identityHandler "bizlink/internal/identity/handler"
	identityService "bizlink/internal/identity/service"
	identityStore "bizlink/internal/identity/store"
	jwttoken "bizlink/internal/jwt_token"
	messagingHandler "bizlink/internal/messaging/handler"
	messagingMetrics "bizlink/internal/messaging/metrics"
	messagingService "bizlink/internal/messaging/service"
	messagingStore "bizlink/internal/messaging/store"
	"bizlink/internal/platform/config"
	"bizlink/internal/platform/httpserver"
	"bizlink/internal/platform/logger"
	"bizlink/internal/platform/metrics"
	"bizlink/internal/platform/postgres"
	platformRedis "bizlink/internal/platform/redis"
	"bizlink/internal/realtime"
	realtimeMetrics "bizlink/internal/realtime/metrics"
	httptransport "bizlink/internal/transport/http"
)

func main() {
	_ = godotenv.Load()

	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// run wires dependencies and owns the process lifecycle. Store selection is
// driven entirely by config: no Postgres URL means in-memory stores, no Redis
// URL means process-local event delivery, no Kafka brokers means an in-memory
// audit trail.
func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores.
	var (
		idStore  identityStore.Store
		msgStore messagingStore.Store
	)
	if cfg.Postgres.URL != "" {
		db, err := postgres.OpenDB(cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer db.Close()

		pool, err := postgres.OpenPool(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()

		idPG := identityStore.NewPostgres(db)
		if err := idPG.EnsureSchema(ctx); err != nil {
			return err
		}
		msgPG := messagingStore.NewPostgres(pool)
		if err := msgPG.EnsureSchema(ctx); err != nil {
			return err
		}
		idStore, msgStore = idPG, msgPG
		log.Info("using postgres stores")
	} else {
		idStore, msgStore = identityStore.NewMemory(), messagingStore.NewMemory()
		log.Warn("POSTGRES_URL not set, using in-memory stores")
	}

	// Identity.
	tokens := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, "bizlink", "bizlink-api")
	validator := jwttoken.NewJWTServiceAdapter(tokens)
	idSvc := identityService.New(idStore, tokens, cfg.Server.TokenTTL)

	// Realtime gateway, optionally bridged through Redis.
	gateway := realtime.NewGateway(log, realtimeMetrics.New())
	var publisher messagingService.EventPublisher = gateway
	var bridge *realtime.Bridge
	redisClient, err := platformRedis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		bridge = realtime.NewBridge(redisClient.Client, gateway, log)
		publisher = bridge
		log.Info("realtime bridge enabled", "channel_backend", "redis")
	}

	// Audit trail.
	var auditSink audit.Store = audit.NewMemoryStore()
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaStore, err := audit.NewKafkaStore(ctx, cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			return err
		}
		defer kafkaStore.Close()
		auditSink = kafkaStore
		log.Info("audit sink enabled", "topic", cfg.Kafka.AuditTopic)
	}
	auditPublisher := audit.NewPublisher(0, log)
	auditWorker := audit.NewWorker(auditSink, auditPublisher.Inbox(), log)

	// Messaging core.
	msgSvc := messagingService.New(msgStore, idSvc, publisher, auditPublisher, log, messagingMetrics.New())

	// HTTP surface.
	httpMetrics := metrics.New()
	router := httptransport.NewRouter(httptransport.Deps{
		Identity:  identityHandler.New(idSvc, log, validator),
		Messaging: messagingHandler.New(msgSvc, log, validator),
		Realtime:  realtime.NewHandler(gateway, validator, log),
		Metrics:   httpMetrics,
		Logger:    log,
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := auditWorker.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if bridge != nil {
		g.Go(func() error {
			err := bridge.Run(gctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		log.Info("starting bizlink server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
