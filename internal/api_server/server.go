package apiserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/studyhall/solver/internal/attachments"
	"github.com/studyhall/solver/internal/auth"
	"github.com/studyhall/solver/internal/classroom"
	"github.com/studyhall/solver/internal/config"
	"github.com/studyhall/solver/internal/events"
	handlers "github.com/studyhall/solver/internal/handlers/v1alpha1"
	"github.com/studyhall/solver/internal/jobs"
	"github.com/studyhall/solver/internal/llm"
	"github.com/studyhall/solver/internal/service"
	"github.com/studyhall/solver/internal/store"
	"github.com/studyhall/solver/pkg/metrics"
	"github.com/studyhall/solver/pkg/middleware"
)

const gracefulShutdownTimeout = 5 * time.Second

type Server struct {
	cfg      *config.Config
	store    store.Store
	listener net.Listener
}

// New returns a new instance of the solver API server.
func New(cfg *config.Config, store store.Store, listener net.Listener) *Server {
	return &Server{
		cfg:      cfg,
		store:    store,
		listener: listener,
	}
}

func (s *Server) Run(ctx context.Context) error {
	logger := zap.S().Named("api_server")
	logger.Info("Initializing API server")

	authenticator, err := auth.NewAuthenticator(s.cfg.Service.Auth)
	if err != nil {
		return fmt.Errorf("failed to create authenticator: %w", err)
	}

	router := chi.NewRouter()

	metricMiddleware := metrics.NewMiddleware("api_server")
	metricMiddleware.MustRegisterDefault()
	prometheus.MustRegister(metrics.NewStatusCollector(s.store))

	router.Use(
		metricMiddleware.Handler,
		cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.Service.CorsOrigins,
			AllowedMethods:   []string{"GET", "PUT", "POST", "DELETE", "HEAD", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
		authenticator.Authenticator,
		middleware.RequestID,
		middleware.Logger(),
		chiMiddleware.Recoverer,
	)

	eventProducer, err := s.newEventProducer()
	if err != nil {
		return fmt.Errorf("failed to create event producer: %w", err)
	}
	defer func() {
		_ = eventProducer.Close()
	}()

	storage, err := s.newAttachmentStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to create attachment storage: %w", err)
	}

	dbPool, err := s.newPgxPool(ctx)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	invoker, err := s.newInvoker(ctx)
	if err != nil {
		return fmt.Errorf("failed to create invoker: %w", err)
	}

	riverClient, err := jobs.NewClient(dbPool, s.store, invoker, storage, eventProducer,
		s.cfg.Solver.MaxWorkers, s.cfg.Solver.InvokeTimeout)
	if err != nil {
		return fmt.Errorf("failed to create river client: %w", err)
	}

	if err := riverClient.Start(ctx); err != nil {
		return fmt.Errorf("failed to start river: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := riverClient.Stop(stopCtx); err != nil {
			logger.Warnw("failed to stop river client", "error", err)
		}
	}()

	logger.Info("River job queue initialized")

	h := handlers.NewServiceHandler(
		service.NewAssignmentService(s.store, riverClient, eventProducer, storage),
		service.NewSolutionService(s.store),
		service.NewUserService(s.store),
		service.NewClassroomService(s.store, classroom.NewGoogleClient()),
	)
	h.Routes(router)

	srv := http.Server{Addr: s.cfg.Service.Address, Handler: router}

	go func() {
		<-ctx.Done()
		logger.Infof("Shutdown signal received: %s", ctx.Err())
		ctxTimeout, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		srv.SetKeepAlivesEnabled(false)
		_ = srv.Shutdown(ctxTimeout)
		logger.Info("api server terminated")
	}()

	logger.Infof("Listening on %s...", s.listener.Addr().String())
	if err := srv.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) newPgxPool(ctx context.Context) (*pgxpool.Pool, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s port=%s dbname=%s",
		s.cfg.Database.Hostname,
		s.cfg.Database.User,
		s.cfg.Database.Password,
		s.cfg.Database.Port,
		s.cfg.Database.Name,
	)

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pgx config: %w", err)
	}

	// River keeps LISTEN connections open on top of the job workers.
	poolCfg.MaxConns = 20
	poolCfg.MinConns = 5
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	return pool, nil
}

func (s *Server) newInvoker(ctx context.Context) (llm.Invoker, error) {
	if s.cfg.Solver.DryRun || s.cfg.Solver.GeminiAPIKey == "" {
		zap.S().Named("api_server").Warn("no model configured, serving canned solutions")
		return &llm.StaticInvoker{}, nil
	}
	return llm.NewGeminiInvoker(ctx, s.cfg.Solver.GeminiAPIKey, s.cfg.Solver.Model)
}

func (s *Server) newEventProducer() (*events.EventProducer, error) {
	if len(s.cfg.Service.Kafka.Brokers) == 0 {
		return events.NewEventProducer(&events.StdoutWriter{}), nil
	}

	writer, err := events.NewKafkaWriter(s.cfg.Service.Kafka.Brokers, s.cfg.Service.Kafka.SaramaConfig())
	if err != nil {
		return nil, err
	}

	opts := []events.ProducerOptions{}
	if s.cfg.Service.Kafka.Topic != "" {
		opts = append(opts, events.WithOutputTopic(s.cfg.Service.Kafka.Topic))
	}
	return events.NewEventProducer(writer, opts...), nil
}

func (s *Server) newAttachmentStorage(ctx context.Context) (attachments.Storage, error) {
	if s.cfg.Minio.Endpoint == "" {
		return nil, nil
	}

	storage, err := attachments.NewMinioStorage(
		s.cfg.Minio.Endpoint,
		s.cfg.Minio.AccessKey,
		s.cfg.Minio.SecretKey,
		s.cfg.Minio.Bucket,
		s.cfg.Minio.UseSSL,
	)
	if err != nil {
		return nil, err
	}
	if err := storage.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return storage, nil
}
