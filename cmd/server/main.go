// Command server runs the order-support chat backend: an HTTP API that
// interprets customer messages with an external model and gates every
// order-affecting action behind independent validation.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"ordergate/internal/audit"
	"ordergate/internal/chat"
	chathandler "ordergate/internal/chat/handler"
	"ordergate/internal/conversation"
	"ordergate/internal/intent"
	"ordergate/internal/intent/cache"
	"ordergate/internal/llm"
	"ordergate/internal/order"
	"ordergate/internal/platform/config"
	"ordergate/internal/platform/httpserver"
	"ordergate/internal/platform/logger"
	"ordergate/internal/platform/postgres"
	platformredis "ordergate/internal/platform/redis"
	transport "ordergate/internal/transport/http"
	"ordergate/internal/validation"
)

func main() {
	_ = godotenv.Load()

	log := logger.New()
	cfg := config.FromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	// Infrastructure. Each backend is optional: without Postgres/Redis the
	// service runs on in-memory stores (dev mode), without Kafka the durable
	// audit append is the only sink.
	db, err := postgres.Open(cfg.Postgres)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Stores.
	var orderStore order.Store
	var auditStore audit.Store
	if db != nil {
		orderStore = order.NewPostgresStore(db)
		auditStore = audit.NewPostgresStore(db)
	} else {
		mem := order.NewInMemoryStore()
		order.Seed(mem)
		orderStore = mem
		auditStore = audit.NewInMemoryStore()
		log.Warn("no DATABASE_URL configured, running on seeded in-memory stores")
	}

	var convStore conversation.Store
	if redisClient != nil {
		convStore = conversation.NewRedisStore(redisClient.Client)
	} else {
		convStore = conversation.NewInMemoryStore()
	}

	// Audit recorder, optionally mirrored to Kafka.
	auditOpts := []audit.Option{audit.WithLogger(log)}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := audit.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			return err
		}
		defer publisher.Close()
		auditOpts = append(auditOpts, audit.WithPublisher(publisher))
	}
	recorder, err := audit.NewRecorder(auditStore, auditOpts...)
	if err != nil {
		return err
	}

	// Pipeline stages.
	llmClient, err := llm.New(ctx, cfg.LLM)
	if err != nil {
		return err
	}
	synth, err := intent.NewSynthesizer(llmClient, cfg.LLM.Timeout, intent.WithLogger(log))
	if err != nil {
		return err
	}

	var cacheBackend *goredis.Client
	if redisClient != nil {
		cacheBackend = redisClient.Client
	}
	intentCache := cache.New(cacheBackend, cache.WithLogger(log), cache.WithTTL(cfg.Limits.CacheTTL))

	history, err := conversation.NewManager(convStore, cfg.Limits.HistoryTurns, conversation.WithLogger(log))
	if err != nil {
		return err
	}

	validator, err := validation.NewService(orderStore, recorder,
		validation.WithLogger(log),
		validation.WithLimits(validation.Limits{
			MaxCancellationsPerDay: cfg.Limits.MaxCancellationsPerDay,
			RateLimitWindow:        cfg.Limits.RateLimitWindow,
			RateLimitMax:           cfg.Limits.RateLimitMax,
		}),
	)
	if err != nil {
		return err
	}

	chatService, err := chat.NewService(orderStore, recorder, validator, synth, history,
		chat.WithLogger(log),
		chat.WithCache(intentCache),
		chat.WithLimits(chat.Limits{
			MaxMessageLen:      cfg.Limits.MaxMessageLen,
			BlockRiskThreshold: cfg.Limits.BlockRiskThreshold,
			HistoryTurns:       cfg.Limits.HistoryTurns,
		}),
	)
	if err != nil {
		return err
	}

	chatHandler, err := chathandler.New(chatService, chathandler.WithLogger(log))
	if err != nil {
		return err
	}

	router := transport.NewRouter(transport.RouterConfig{
		ChatHandler:   chatHandler,
		JWTSigningKey: cfg.JWTSigningKey,
		DB:            db,
		Redis:         redisClient,
		Logger:        log,
	})

	server := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
