package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/microbes-potential/conatoc-net/internal/bootstrap"
	"github.com/microbes-potential/conatoc-net/internal/config"
	httptransport "github.com/microbes-potential/conatoc-net/internal/http"
	"github.com/microbes-potential/conatoc-net/internal/http/handler"
	httpmiddleware "github.com/microbes-potential/conatoc-net/internal/http/middleware"
	apimiddleware "github.com/microbes-potential/conatoc-net/internal/middleware"
	"github.com/microbes-potential/conatoc-net/internal/repository"
	"github.com/microbes-potential/conatoc-net/internal/server"
	"github.com/microbes-potential/conatoc-net/internal/service"
	"github.com/microbes-potential/conatoc-net/internal/session"
	"github.com/microbes-potential/conatoc-net/internal/telemetry"
	"github.com/microbes-potential/conatoc-net/internal/token"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newSnowflake,
			newPGXPool,
			newUserRepository,
			newInviteRepository,
			newNewsRepository,
			newChatRepository,
			newPaperRepository,
			newDatasetRepository,
			newSessionStore,
			newTokenCodec,
			newRateLimiter,
			service.NewAuthService,
			service.NewRegistrationService,
			service.NewCommunityService,
			service.NewLibraryService,
			service.NewDirectoryService,
			handler.NewAuthHandler,
			handler.NewCommunityHandler,
			handler.NewLibraryHandler,
			handler.NewAdminHandler,
			newSessionMiddleware,
			httptransport.NewRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(useTelemetry, runMigrations, bootstrap.EnsureAccounts, startHTTPServer),
	)

	app.Run()
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})

	return provider, nil
}

func newSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

func newPGXPool(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})

	return pool, nil
}

func newUserRepository(pool *pgxpool.Pool) repository.UserRepository {
	return repository.NewPostgresUserRepo(pool)
}

func newInviteRepository(pool *pgxpool.Pool) repository.InviteRepository {
	return repository.NewPostgresInviteRepo(pool)
}

func newNewsRepository(pool *pgxpool.Pool) repository.NewsRepository {
	return repository.NewPostgresNewsRepo(pool)
}

func newChatRepository(pool *pgxpool.Pool) repository.ChatRepository {
	return repository.NewPostgresChatRepo(pool)
}

func newPaperRepository(pool *pgxpool.Pool) repository.PaperRepository {
	return repository.NewPostgresPaperRepo(pool)
}

func newDatasetRepository(pool *pgxpool.Pool) repository.DatasetRepository {
	return repository.NewPostgresDatasetRepo(pool)
}

// newSessionStore prefers Redis when configured so sessions survive a
// restart; without Redis the in-process store is used and a restart
// logs everybody out.
func newSessionStore(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (session.Store, error) {
	if cfg.RedisAddr == "" {
		logger.Info("no REDIS_ADDR configured; sessions are kept in process memory")
		return session.NewMemoryStore(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return session.NewRedisStore(client), nil
}

func newTokenCodec(cfg config.Config) (*token.Codec, error) {
	return token.NewCodec(cfg.SecretKey)
}

func newRateLimiter(cfg config.Config) *apimiddleware.RateLimiter {
	return apimiddleware.NewRateLimiter(cfg.RateLimitRPM)
}

func newSessionMiddleware(authService *service.AuthService) *httpmiddleware.Session {
	return &httpmiddleware.Session{Auth: authService}
}

func runMigrations(lc fx.Lifecycle, cfg config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return repository.Migrate(ctx, cfg.DatabaseURL)
		},
	})
}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, cfg config.Config, logger *zap.Logger) {
	addr := ":" + cfg.HTTPPort
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			go func() {
				if err := srv.Run(runCtx, addr); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
				close(done)
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func useTelemetry(*telemetry.Provider) {}
