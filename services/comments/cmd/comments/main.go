package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/example/comment-platform/internal/platform/auth"
	"github.com/example/comment-platform/internal/platform/config"
	"github.com/example/comment-platform/internal/platform/db"
	"github.com/example/comment-platform/internal/platform/events"
	"github.com/example/comment-platform/internal/platform/httpserver"
	"github.com/example/comment-platform/internal/platform/logging"
	"github.com/example/comment-platform/internal/platform/natsconn"
	"github.com/example/comment-platform/internal/platform/run"
	"github.com/example/comment-platform/internal/platform/tracing"
	"github.com/example/comment-platform/services/comments/internal/grpcapi"
	"github.com/example/comment-platform/services/comments/internal/handlers"
	"github.com/example/comment-platform/services/comments/internal/idempotency"
	"github.com/example/comment-platform/services/comments/internal/metrics"
	"github.com/example/comment-platform/services/comments/internal/migrations"
	"github.com/example/comment-platform/services/comments/internal/store"
	"github.com/example/comment-platform/services/comments/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.ServiceName, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	shutdownTracing, err := tracing.Init(context.Background(), cfg.ServiceName, cfg.Env,
		strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")))
	if err != nil {
		log.Warn("tracing disabled", zap.Error(err))
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownTracing(ctx)
		}()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	repo, pool := initRepository(cfg, log)
	if pool != nil {
		defer pool.Close()
	}
	breaker := store.NewBreakerRepository(repo, store.BreakerSettings{
		FailureThreshold: uint32(config.Int("BREAKER_FAILURE_THRESHOLD", 5)),
		OpenTimeout:      config.Duration("BREAKER_TIMEOUT", 30*time.Second),
		Logger:           log,
	})
	comments := store.New(breaker,
		store.WithReplyLimits(config.Int("REPLIES_DEFAULT_LIMIT", store.DefaultReplyLimit), config.Int("REPLIES_MAX_LIMIT", store.MaxReplyLimit)),
		store.WithThreadLimits(
			config.Int("THREAD_DEFAULT_DEPTH", store.DefaultThreadDepth),
			config.Int("THREAD_MAX_DEPTH", store.MaxThreadDepth),
			config.Duration("THREAD_TIMEOUT", store.ThreadTimeout),
		),
		store.WithMetrics(metrics.NewComments(reg)),
	)

	var rdb *redis.Client
	if dsn := strings.TrimSpace(os.Getenv("REDIS_URL")); dsn != "" {
		rdb = idempotency.NewRedisClient(dsn)
		defer func() { _ = rdb.Close() }()
	}
	idem, err := idempotency.NewStore(rdb, pool, config.Duration("IDEMPOTENCY_TTL", 24*time.Hour), cfg.IsProduction())
	if err != nil {
		log.Error("idempotency store", zap.Error(err))
		_ = log.Sync()
		run.Exit(1)
	}

	// NATS is optional: without it events are dropped and no commands are consumed.
	var js nats.JetStreamContext
	nc, err := natsconn.Connect(natsconn.Options{Name: cfg.ServiceName, Logger: log})
	if err != nil {
		log.Warn("nats unavailable, running without events", zap.Error(err))
	} else {
		defer nc.Close()
		if js, err = nc.JetStream(); err != nil {
			log.Warn("jetstream unavailable", zap.Error(err))
			js = nil
		} else if err := natsconn.EnsureStream(js, events.StreamName, events.StreamSubject,
			config.Duration("NATS_STREAM_MAX_AGE", 72*time.Hour)); err != nil {
			log.Warn("ensure stream", zap.Error(err))
		}
	}
	publisher := events.New(js, log)

	verifier := auth.JWTVerifier{Secret: []byte(strings.TrimSpace(os.Getenv("JWT_SECRET")))}
	limiter := httpserver.NewRateLimiter(
		config.Float("WRITE_RATE_PER_SEC", 5),
		config.Int("WRITE_RATE_BURST", 10),
		handlers.CallerKey,
	)

	r := chi.NewRouter()
	httpserver.SetupRouter(r, httpserver.RouterConfig{
		ReadyFunc: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return comments.Ping(ctx)
		},
		Metrics: metrics.Handler(reg),
		Logger:  log,
	})
	handlers.Routes(r, handlers.Deps{
		Comments:    comments,
		Events:      publisher,
		Idempotency: idem,
		Log:         log,
	}, verifier, limiter)

	srv := httpserver.New(httpserver.Options{
		Addr:        cfg.HTTP.Addr,
		ServiceName: cfg.ServiceName,
		Logger:      log,
		Router:      r,
		Trace:       true,
	})

	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		log.Error("grpc listen", zap.Error(err))
		run.Exit(1)
	}
	grpcSrv := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcapi.UnaryLogger(log)))
	grpcapi.RegisterCommentServiceServer(grpcSrv, &grpcapi.CommentService{Comments: comments, Events: publisher, Log: log})
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)
	healthSrv.SetServingStatus(grpcapi.ServiceName, healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcSrv)
	go func() {
		log.Info("grpc server starting", zap.String("addr", cfg.GRPC.Addr))
		if err := grpcSrv.Serve(lis); err != nil {
			log.Error("grpc serve", zap.Error(err))
		}
	}()

	runner := run.New(log)
	code := runner.WithSignals(func(ctx context.Context) error {
		if js != nil {
			consumer := &worker.Consumer{
				Comments:  comments,
				Dedup:     idem,
				Events:    publisher,
				Log:       log.Named("worker"),
				BatchSize: config.Int("WORKER_BATCH_SIZE", 50),
				MaxWait:   time.Duration(config.Int("WORKER_BATCH_INTERVAL_MS", 2000)) * time.Millisecond,
			}
			go func() {
				if err := consumer.Run(ctx, js); err != nil {
					log.Error("commands consumer stopped", zap.Error(err))
				}
			}()
		}
		go sweepLimiter(ctx, limiter, log)
		return srv.Start(log)
	})

	healthSrv.Shutdown()
	run.StopGRPC(grpcSrv, 10*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	cancel()

	log.Info("exit", zap.Int("code", code))
	_ = log.Sync()
	run.Exit(code)
}

// initRepository selects the storage backend and applies migrations.
// In production (APP_ENV=production) it requires a working Postgres connection
// and terminates the process otherwise.
func initRepository(cfg config.AppConfig, log *zap.Logger) (store.Repository, *pgxpool.Pool) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.Open(ctx, os.Getenv("DATABASE_URL"))
	if err != nil {
		if cfg.IsProduction() {
			log.Error("postgres is required in production but unavailable", zap.Error(err))
			_ = log.Sync()
			os.Exit(1)
		}
		log.Warn("postgres unavailable, using in-memory comment store (development only)", zap.Error(err))
		return devRepository(config.Int("DEV_USERS", 10)), nil
	}

	if err := migrations.Up(ctx, pool, log); err != nil {
		pool.Close()
		log.Error("migrations failed", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}

	log.Info("comments store: postgres")
	return store.NewPostgresRepository(pool), pool
}

// devRepository pre-registers users 1..n so tokens issued for them can post.
func devRepository(n int) *store.InMemoryRepository {
	repo := store.NewInMemoryRepository()
	for i := 1; i <= n; i++ {
		repo.AddUser(int64(i), fmt.Sprintf("dev-user-%d", i))
	}
	return repo
}

func sweepLimiter(ctx context.Context, rl *httpserver.RateLimiter, log *zap.Logger) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := rl.Sweep(10 * time.Minute); n > 0 {
				log.Debug("rate limiter swept", zap.Int("buckets", n))
			}
		}
	}
}
