// Package app provides application-level wiring and dependency injection
// for the membership service.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-redis/redis/v8"

	"github.com/admbtski/miglee-sub001/internal/api"
	"github.com/admbtski/miglee-sub001/internal/config"
	"github.com/admbtski/miglee-sub001/internal/db/repository"
	"github.com/admbtski/miglee-sub001/internal/domain"
	"github.com/admbtski/miglee-sub001/internal/middleware"
	"github.com/admbtski/miglee-sub001/internal/service/membership"
	"github.com/admbtski/miglee-sub001/internal/service/notification"
)

// Deps holds the external dependencies that main() must provide.
type Deps struct {
	Cfg     *config.Config
	WriteDB *sql.DB
	ReadDB  *sql.DB
	Logger  *slog.Logger
	// Validator overrides the token validator built from Cfg.Auth. Tests set it.
	Validator middleware.TokenValidator
}

// App holds the fully-wired application.
type App struct {
	Service *membership.Service
	Emitter *notification.Emitter
	Relay   *notification.Relay
	Inbox   *repository.InboxRepo
	Handler *api.Handler

	validator middleware.TokenValidator
	cfg       *config.Config
	logger    *slog.Logger
	closers   []io.Closer
}

// New wires repositories, the transition engine, the facade and the
// notification pipeline from the provided deps.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Cfg
	logger := deps.Logger

	// === Repositories ===
	groups := repository.NewGroupRepo(deps.WriteDB)
	store := repository.NewMembershipStore(deps.WriteDB)
	outbox := repository.NewOutboxRepo(deps.WriteDB)
	inbox := repository.NewInboxRepo(deps.WriteDB)
	queries := repository.NewMembershipQueryRepo(deps.ReadDB)

	policy, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		return nil, err
	}

	a := &App{Inbox: inbox, cfg: cfg, logger: logger}

	publisher, err := a.buildPublisher(inbox)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	// === Notifications ===
	a.Emitter = notification.NewEmitter(queries, groups, publisher, outbox, nil, logger)
	a.Relay = notification.NewRelay(outbox, a.Emitter, notification.RelayConfig{
		Schedule: cfg.Notify.RelaySchedule,
	}, nil, logger)

	// === Core ===
	engine := membership.NewEngine(store, nil, membership.EngineConfig{
		MaxAttempts: cfg.TxMaxAttempts,
	}, logger)
	a.Service = membership.NewService(engine, groups, queries, policy, a.Emitter, logger)

	var handlerInbox domain.InboxRepository
	if cfg.Notify.Sink == config.SinkInbox {
		handlerInbox = inbox
	}
	a.Handler = api.NewHandler(a.Service, handlerInbox, logger)

	// === Auth ===
	a.validator = deps.Validator
	if a.validator == nil {
		a.validator, err = buildValidator(ctx, cfg.Auth)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	return a, nil
}

func (a *App) buildPublisher(inbox *repository.InboxRepo) (domain.Publisher, error) {
	cfg := a.cfg.Notify

	var sink domain.Publisher
	switch cfg.Sink {
	case config.SinkInbox:
		sink = notification.NewInboxPublisher(inbox, a.logger)
	case config.SinkKafka:
		producer, err := notification.NewKafkaProducer(cfg.KafkaBrokers)
		if err != nil {
			return nil, err
		}
		kp := notification.NewKafkaPublisher(producer, cfg.KafkaTopicPrefix)
		a.closers = append(a.closers, kp)
		sink = kp
	default:
		sink = notification.NewLogPublisher(a.logger)
	}

	if cfg.RedisAddr == "" {
		return sink, nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	a.closers = append(a.closers, rdb)
	a.logger.Info("redis notification dedupe enabled", "addr", cfg.RedisAddr, "ttl", cfg.RedisDedupeTTL)
	return notification.NewDedupePublisher(sink, rdb, cfg.RedisDedupeTTL, a.logger), nil
}

func buildValidator(ctx context.Context, auth config.AuthConfig) (middleware.TokenValidator, error) {
	if auth.OIDCEnabled() {
		v, err := middleware.NewOIDCValidator(ctx, auth.IssuerURL, auth.Audience)
		if err != nil {
			return nil, fmt.Errorf("configure OIDC: %w", err)
		}
		return v, nil
	}
	return middleware.NewHS256Validator(auth.JWTSecret)
}

// Router builds the HTTP router: public health check plus the authenticated
// API under /v1.
func (a *App) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(a.validator, a.logger))
		a.Handler.Routes(r)
	})
	return r
}

// Close releases notification sinks.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
