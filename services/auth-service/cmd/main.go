package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"google.golang.org/grpc"

	"github.com/vasapolrittideah/identity-gateway/services/auth-service/internal/config"
	"github.com/vasapolrittideah/identity-gateway/services/auth-service/internal/handler"
	"github.com/vasapolrittideah/identity-gateway/services/auth-service/internal/notification"
	"github.com/vasapolrittideah/identity-gateway/services/auth-service/internal/repository"
	"github.com/vasapolrittideah/identity-gateway/services/auth-service/internal/usecase"
	"github.com/vasapolrittideah/identity-gateway/shared/discovery"
	"github.com/vasapolrittideah/identity-gateway/shared/logger"
	"github.com/vasapolrittideah/identity-gateway/shared/mailer"
	"github.com/vasapolrittideah/identity-gateway/shared/metrics"
	"github.com/vasapolrittideah/identity-gateway/shared/provider"
	"github.com/vasapolrittideah/identity-gateway/shared/ratelimit"
	"github.com/vasapolrittideah/identity-gateway/shared/security"
	"github.com/vasapolrittideah/identity-gateway/shared/utilities"
	"github.com/vasapolrittideah/identity-gateway/shared/validator"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logger, cfg.Consul.ServiceName)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("auth service stopped with error")
	}
}

func run(cfg *config.AuthServiceConfig, log *zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mongoClient, err := mongo.Connect(options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		return fmt.Errorf("connect to mongo: %w", err)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := mongoClient.Disconnect(disconnectCtx); err != nil {
			log.Error().Err(err).Msg("failed to disconnect from mongo")
		}
	}()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = mongoClient.Ping(pingCtx, nil)
	cancel()
	if err != nil {
		return fmt.Errorf("ping mongo: %w", err)
	}
	db := mongoClient.Database(cfg.Mongo.Database)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}

	mailerCfg, err := mailer.LoadConfig()
	if err != nil {
		return fmt.Errorf("load mailer config: %w", err)
	}
	smtpMailer, err := mailer.NewMailer(mailerCfg)
	if err != nil {
		return fmt.Errorf("create mailer: %w", err)
	}

	clientIPs, err := utilities.NewClientIPResolver(cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("parse trusted proxies: %w", err)
	}

	requestValidator, err := validator.New()
	if err != nil {
		return fmt.Errorf("create validator: %w", err)
	}

	userRepo := repository.NewUserMongoRepository(ctx, log, db)
	orgRepo := repository.NewOrganizationMongoRepository(ctx, log, db)
	tokenRepo := repository.NewAccessTokenMongoRepository(ctx, log, db)

	limiter := ratelimit.New(redisClient, cfg.Redis.KeyPrefix)
	hasher := security.NewPasswordHasher(cfg.Argon2)
	notifier := notification.NewEmailNotifier(smtpMailer, cfg, log)
	providers := newProviderRegistry(cfg.Providers)
	roles := usecase.NewRoleAssigner(userRepo)

	tokenUsecase := usecase.NewTokenUsecase(tokenRepo, userRepo, log)
	inviteUsecase := usecase.NewInviteUsecase(orgRepo, userRepo, log)
	identityUsecase := usecase.NewIdentityUsecase(userRepo, roles, cfg, log)
	authUsecase := usecase.NewAuthUsecase(
		userRepo,
		limiter,
		tokenUsecase,
		inviteUsecase,
		identityUsecase,
		providers,
		notifier,
		hasher,
		roles,
		cfg,
		log,
	)
	passwordResetUsecase := usecase.NewPasswordResetUsecase(userRepo, notifier, hasher, cfg, log)

	authHandler := handler.NewAuthHTTPHandler(
		authUsecase,
		passwordResetUsecase,
		tokenUsecase,
		requestValidator,
		metrics.NewHTTPMetrics("auth"),
		clientIPs,
		log,
	)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           authHandler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthServer := utilities.RegisterHealthServer(grpcServer, cfg.Consul.ServiceName)

	grpcListener, err := net.Listen("tcp", cfg.GRPCHealthAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.GRPCHealthAddr, err)
	}

	errCh := make(chan error, 2)

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Strs("providers", providers.Names()).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("serve http: %w", err)
		}
	}()

	go func() {
		log.Info().Str("addr", cfg.GRPCHealthAddr).Msg("grpc health server listening")
		if err := grpcServer.Serve(grpcListener); err != nil {
			errCh <- fmt.Errorf("serve grpc: %w", err)
		}
	}()

	var registry *discovery.Registry
	if cfg.Consul.Address != "" {
		registry, err = discovery.NewRegistry(cfg.Consul, log)
		if err != nil {
			return err
		}
		if err := registry.Register(cfg.Consul, cfg.HTTPAddr, cfg.GRPCHealthAddr); err != nil {
			return err
		}
	}

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		return err
	}

	if registry != nil {
		if err := registry.Deregister(); err != nil {
			log.Error().Err(err).Msg("failed to deregister service")
		}
	}
	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	grpcServer.GracefulStop()

	log.Info().Msg("auth service stopped")
	return nil
}

func newProviderRegistry(cfg config.ProvidersConfig) *provider.Registry {
	var clients []provider.Client
	if cfg.GitHub.Enabled() {
		clients = append(clients, provider.NewGitHubClient(cfg.GitHub))
	}
	if cfg.Google.Enabled() {
		clients = append(clients, provider.NewGoogleClient(cfg.Google))
	}
	if cfg.Facebook.Enabled() {
		clients = append(clients, provider.NewFacebookClient(cfg.Facebook))
	}
	if cfg.Live.Enabled() {
		clients = append(clients, provider.NewLiveClient(cfg.Live))
	}

	return provider.NewRegistry(clients...)
}
