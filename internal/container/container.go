package container

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	database "github.com/FACorreiaa/sports-card-catalog/app/db"
	"github.com/FACorreiaa/sports-card-catalog/config"
	"github.com/FACorreiaa/sports-card-catalog/internal/api/asset"
	"github.com/FACorreiaa/sports-card-catalog/internal/api/auth"
	"github.com/FACorreiaa/sports-card-catalog/internal/api/card"
	"github.com/FACorreiaa/sports-card-catalog/internal/api/user"
	"github.com/FACorreiaa/sports-card-catalog/internal/router"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *slog.Logger
	Pool         *pgxpool.Pool
	DatabaseURL  string
	MaxConnWait  time.Duration
	Materializer asset.Materializer
	UserHandler  *user.HandlerImpl
	CardHandler  *card.HandlerImpl
}

// NewContainer initializes and returns a new dependency container
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	dbConfig, err := database.NewDatabaseConfig(cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		return nil, err
	}

	pool, err := database.Init(ctx, dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		return nil, err
	}

	store, err := newAssetStore(ctx, cfg.Assets, logger)
	if err != nil {
		pool.Close()
		logger.Error("Failed to initialize asset store", slog.Any("error", err))
		return nil, err
	}
	materializer := asset.NewMaterializer(store, cfg.Assets.PublicPath, logger)

	passwords := auth.NewPasswordService(cfg.Auth.BcryptCost)

	userRepo := user.NewPostgresUserRepo(pool, logger)
	userService := user.NewUserService(userRepo, passwords, logger)
	userHandler := user.NewHandlerImpl(userService, logger)

	cardRepo := card.NewPostgresCardRepo(pool, logger)
	cardService := card.NewCardService(cardRepo, userService, materializer, logger)
	cardHandler := card.NewHandlerImpl(cardService, logger, card.WithMaxBodyBytes(cfg.Server.MaxBodyBytes))

	return &Container{
		Config:       cfg,
		Logger:       logger,
		Pool:         pool,
		DatabaseURL:  dbConfig.ConnectionURL,
		MaxConnWait:  dbConfig.MaxConnWait,
		Materializer: materializer,
		UserHandler:  userHandler,
		CardHandler:  cardHandler,
	}, nil
}

func newAssetStore(ctx context.Context, cfg config.AssetsConfig, logger *slog.Logger) (asset.Store, error) {
	switch cfg.Driver {
	case "", "local":
		logger.Info("Using local asset store", slog.String("dir", cfg.Dir))
		return asset.NewLocalStore(cfg.Dir, logger), nil
	case "s3":
		logger.Info("Using S3 asset store", slog.String("bucket", cfg.S3.Bucket), slog.String("endpoint", cfg.S3.Endpoint))
		return asset.NewS3Store(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown asset driver %q", cfg.Driver)
	}
}

// RouterConfig wires the container's handlers into the HTTP router.
func (c *Container) RouterConfig() *router.Config {
	return &router.Config{
		CardHandler:    c.CardHandler,
		UserHandler:    c.UserHandler,
		Assets:         c.Materializer,
		DB:             c.Pool,
		AssetPath:      c.Config.Assets.PublicPath,
		AllowedOrigins: c.Config.CORS.AllowedOrigins,
		Logger:         c.Logger,
	}
}

// Close releases all resources held by the container
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// WaitForDB waits for the database to be ready
func (c *Container) WaitForDB(ctx context.Context) bool {
	return database.WaitForDBWithin(ctx, c.Pool, c.Logger, c.MaxConnWait)
}

// RunMigrations runs database migrations
func (c *Container) RunMigrations() error {
	return database.RunMigrations(c.DatabaseURL, c.Logger)
}
