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

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"chat-api/internal/auth"
	"chat-api/internal/config"
	"chat-api/internal/events"
	apphttp "chat-api/internal/http"
	"chat-api/internal/ratelimit"
	"chat-api/internal/repository"
	"chat-api/internal/repository/postgres"
	"chat-api/internal/repository/sqlite"
	"chat-api/internal/service"
	"chat-api/internal/storage"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warnf("unknown log level %q, using info", cfg.Log.Level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, users, messages, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()
	logger.Infof("using %s store", cfg.Database.Driver)

	tokens, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		logger.Fatalf("token issuer: %v", err)
	}

	var (
		revoker auth.TokenRevoker = auth.NewMemoryTokenRevoker()
		limiter apphttp.Limiter
	)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatalf("connect redis: %v", err)
		}
		revoker = auth.NewRedisTokenRevoker(rdb, cfg.Redis.Prefix)
		window, err := ratelimit.NewWindow(rdb, cfg.Redis.Prefix+":ratelimit", cfg.RateLimit.Limit, cfg.RateLimit.Window)
		if err != nil {
			logger.Fatalf("rate limiter: %v", err)
		}
		limiter = window
		logger.Infof("using redis at %s for token revocation and rate limiting", cfg.Redis.Addr)
	} else {
		logger.Warn("redis not configured: revoked tokens are kept in memory and login is not rate limited")
	}

	var publisher events.Publisher = events.Noop{}
	if cfg.NATS.URL != "" {
		nc, err := events.Connect(cfg.NATS.URL, logger)
		if err != nil {
			logger.Fatalf("nats: %v", err)
		}
		defer nc.Close()
		publisher = events.NewNATSPublisher(nc, cfg.NATS.Subject)
		logger.Infof("publishing events to nats %s under %q", cfg.NATS.URL, cfg.NATS.Subject)
	}

	storageSvc, err := buildStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup storage: %v", err)
	}

	userService := service.NewUserService(
		users,
		auth.NewPasswordHasher(cfg.Auth.BcryptCost),
		tokens,
		revoker,
		publisher,
		service.UserServiceConfig{DefaultAvatar: cfg.Users.DefaultAvatar, Logger: logger},
	)
	messageService := service.NewMessageService(messages, users, publisher, logger)
	var media service.MediaService
	if storageSvc != nil {
		media = service.NewMediaService(storageSvc, cfg.Storage.KeyPrefix)
	}

	gin.SetMode(cfg.Server.Mode)
	router, err := apphttp.NewEngine(cfg.Server.TrustedProxies)
	if err != nil {
		logger.Fatalf("http engine: %v", err)
	}
	handler := apphttp.NewHandler(apphttp.Options{
		Users:        userService,
		Messages:     messageService,
		Media:        media,
		Limiter:      limiter,
		Logger:       logger,
		Ping:         db.PingContext,
		CookieName:   cfg.Auth.CookieName,
		CookieSecure: cfg.Auth.CookieSecure,
		TokenTTL:     tokens.TTL(),
		CORSOrigin:   cfg.CORS.Origin,
	})
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Errorf("server stopped: %v", err)
	}
	logger.Info("bye")
}

func openStore(ctx context.Context, cfg config.Config) (*sql.DB, repository.UserRepository, repository.MessageRepository, error) {
	var (
		db       *sql.DB
		users    repository.UserRepository
		messages repository.MessageRepository
		err      error
	)
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		db, err = postgres.Open(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		users = postgres.NewUserRepository(db)
		messages = postgres.NewMessageRepository(db)
	default:
		db, err = sqlite.Open(cfg.Database.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		users = sqlite.NewUserRepository(db)
		messages = sqlite.NewMessageRepository(db)
	}

	if err := users.Init(ctx); err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("init user repository: %w", err)
	}
	if err := messages.Init(ctx); err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("init message repository: %w", err)
	}
	return db, users, messages, nil
}

func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	if cfg.Storage.Bucket == "" {
		logger.Info("storage bucket not configured: image uploads disabled")
		return nil, nil
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	svc, err := storage.NewS3Service(client, storage.S3Options{
		Bucket:        cfg.Storage.Bucket,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
		PresignExpiry: cfg.Storage.PresignExpiry,
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}
