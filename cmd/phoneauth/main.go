package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/layer-3/phoneauth/adapters/events"
	"github.com/layer-3/phoneauth/adapters/store"
	"github.com/layer-3/phoneauth/adapters/tokenizer"
	"github.com/layer-3/phoneauth/adapters/users"
	"github.com/layer-3/phoneauth/config"
	"github.com/layer-3/phoneauth/ports"
	"github.com/layer-3/phoneauth/service"
	transport "github.com/layer-3/phoneauth/transport/http"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
)

func main() {
	configPath := pflag.StringP("config", "c", os.Getenv("PHONEAUTH_CONFIG"), "path to a YAML config file")
	port := pflag.StringP("port", "p", "", "listen port, overrides config and PORT")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.Port = *port
	}

	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.UsesDevelopmentSecret() {
		logger.Warn("JWT_SECRET is not set, signing tokens with the development key")
	}
	if cfg.CaptchaFixedCode != "" {
		logger.Warn("captcha codes are fixed, do not use this deployment in production")
	}

	var redisClient *redis.Client
	if cfg.NeedsRedis() {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to parse redis url: %w", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			return fmt.Errorf("failed to connect redis: %w", err)
		}
	}

	var challengeStore ports.ChallengeStore
	switch cfg.ChallengeStore {
	case config.BackendRedis:
		challengeStore = store.NewRedisStore(redisClient)
	default:
		challengeStore = store.NewMemoryStore()
	}

	eventPub, closePublisher, err := newEventPublisher(cfg, redisClient, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	var userRepo ports.UserRepository
	if cfg.DatabaseURL != "" {
		pool, err := users.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := users.Migrate(ctx, pool); err != nil {
			return err
		}
		userRepo = users.NewPostgresRepository(pool)
	} else {
		userRepo = users.NewDevelopmentRepository()
	}

	opts := []service.Option{
		service.WithChallengeTTL(cfg.ChallengeTTL),
		service.WithLogger(logger),
	}
	if cfg.CaptchaFixedCode != "" {
		opts = append(opts, service.WithCodeGenerator(service.FixedCode(cfg.CaptchaFixedCode)))
	}

	authService := service.NewAuthService(
		challengeStore,
		tokenizer.NewJWTTokenizer(cfg.JWTSecret, tokenizer.WithTTL(cfg.TokenTTL)),
		userRepo,
		eventPub,
		opts...,
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           transport.SetupRouter(authService, logger, cfg.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("authentication service listening", slog.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newEventPublisher(cfg *config.Config, redisClient *redis.Client, logger *slog.Logger) (ports.EventPublisher, func(), error) {
	wmLogger := watermill.NewSlogLogger(logger)

	var publisher message.Publisher
	switch cfg.Events {
	case config.BackendNone:
		return nil, func() {}, nil
	case config.BackendRedis:
		p, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{
				Client: redisClient,
			},
			wmLogger,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create redis publisher: %w", err)
		}
		publisher = p
	default:
		publisher = gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
	}

	closeFn := func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("failed to close event publisher", slog.Any("error", err))
		}
	}
	return events.NewWatermillPublisher(publisher), closeFn, nil
}
