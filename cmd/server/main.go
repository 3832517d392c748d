package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/100-hours-a-week/2-teddy-hwang-community-be/internal/auth"
	"github.com/100-hours-a-week/2-teddy-hwang-community-be/internal/config"
	"github.com/100-hours-a-week/2-teddy-hwang-community-be/internal/database"
	"github.com/100-hours-a-week/2-teddy-hwang-community-be/internal/handlers"
	"github.com/100-hours-a-week/2-teddy-hwang-community-be/internal/repositories"
	"github.com/100-hours-a-week/2-teddy-hwang-community-be/internal/services"
	"github.com/100-hours-a-week/2-teddy-hwang-community-be/pkg/utils"
)

func init() {
	logrus.SetOutput(os.Stdout)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	// Read log level from environment variable, default to Info if not set or invalid
	logLevelStr := os.Getenv("LOG_LEVEL")
	if logLevelStr == "" {
		logLevelStr = "info"
	}

	logLevel, err := logrus.ParseLevel(strings.ToLower(logLevelStr))
	if err != nil {
		logrus.Warnf("Invalid LOG_LEVEL environment variable '%s', defaulting to Info", logLevelStr)
		logLevel = logrus.InfoLevel
	}
	logrus.SetLevel(logLevel)
}

// store is the selected persistence backend.
type store struct {
	users  repositories.UserRepository
	tokens repositories.RefreshTokenRepository
	checks map[string]handlers.CheckFunc
	close  func() error
}

func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	if cfg.StorageDriver == config.StorageMemory {
		return &store{
			users:  repositories.NewMemoryUserRepository(),
			tokens: repositories.NewMemoryRefreshTokenRepository(),
			checks: map[string]handlers.CheckFunc{},
			close:  func() error { return nil },
		}, nil
	}

	db, err := database.ConnectDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &store{
		users:  repositories.NewPostgresUserRepository(db),
		tokens: repositories.NewPostgresRefreshTokenRepository(db),
		checks: map[string]handlers.CheckFunc{"database": db.PingContext},
		close:  db.Close,
	}, nil
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found, assuming environment variables are set.")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	if err := run(cfg); err != nil {
		logrus.Fatalf("Server failed: %v", err)
	}
	logrus.Info("Server exited")
}

// run owns every resource it opens and releases them before returning.
func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.StorageDriver, err)
	}
	defer func() {
		if err := st.close(); err != nil {
			logrus.Errorf("Error closing store: %v", err)
		}
	}()

	codec, err := auth.NewCodec(auth.CodecConfig{
		AccessSecret:  []byte(cfg.JWT.AccessSecret),
		RefreshSecret: []byte(cfg.JWT.RefreshSecret),
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to create token codec: %w", err)
	}

	var loginLimiter utils.Limiter = utils.NewMemoryLimiter(cfg.RateLimit.LoginMaxRequests, cfg.RateLimit.LoginWindow)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		loginLimiter = utils.NewRedisLimiter(rdb, "ratelimit:login", cfg.RateLimit.LoginMaxRequests, cfg.RateLimit.LoginWindow)
		st.checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	authService := services.NewAuthService(st.users, st.tokens, codec)
	userService := services.NewUserService(st.users, st.tokens)

	sweeper := services.NewTokenSweeper(st.tokens, cfg.TokenSweepInterval)
	sweeper.Start(ctx)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	cookie := handlers.CookieConfig{Secure: cfg.IsProduction(), MaxAge: cfg.JWT.RefreshTTL}
	router := handlers.NewRouter(handlers.RouterDeps{
		Auth:         handlers.NewAuthHandler(authService, cookie),
		Users:        handlers.NewUserHandler(userService, cookie),
		Health:       handlers.NewHealthHandler(st.checks),
		Sessions:     auth.NewSessionResolver(codec, st.tokens, st.users),
		Codec:        codec,
		LoginLimiter: loginLimiter,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.AppPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logrus.Infof("Server starting on port %s (storage: %s)", cfg.AppPort, cfg.StorageDriver)
		serveErr <- srv.ListenAndServe()
	}()

	var runErr error
	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("server stopped: %w", err)
		}
		stop()
	case <-ctx.Done():
		logrus.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Graceful shutdown failed: %v", err)
	}
	sweeper.Wait()
	return runErr
}
