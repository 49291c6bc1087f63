package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskmanager/internal/analytics"
	"taskmanager/internal/auth"
	"taskmanager/internal/cache"
	"taskmanager/internal/config"
	"taskmanager/internal/handler"
	"taskmanager/internal/middleware"
	"taskmanager/internal/mongostore"
	"taskmanager/internal/ordering"
	"taskmanager/internal/repository"
	"taskmanager/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-multierror"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// taskBackend is everything the task, ordering and analytics layers need from a store
type taskBackend interface {
	service.TaskStore
	ordering.Store
	analytics.Store
}

type Server struct {
	Engine *gin.Engine
	Config *config.Config

	closers []func(context.Context) error
}

// Init connects the configured stores and builds the HTTP routes
func Init(cfg *config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	setupLogging(cfg)
	gin.SetMode(cfg.GinMode)

	s := &Server{Config: cfg}

	tasks, users, err := s.openStore(cfg)
	if err != nil {
		_ = s.Close(context.Background())
		return nil, err
	}

	summaries := s.openCache(cfg)

	taskService := service.NewTaskService(
		tasks,
		ordering.NewService(tasks),
		analytics.NewAggregator(tasks),
		summaries,
	)
	tokens := auth.NewManager(cfg.JWTSecret, cfg.JWTExpiry)

	s.Engine = NewRouter(cfg.JWTSecret, handler.NewTaskHandler(taskService), handler.NewUserHandler(users, tokens))
	return s, nil
}

func (s *Server) openStore(cfg *config.Config) (taskBackend, repository.UserRepositoryInterface, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		store, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		s.closers = append(s.closers, store.Close)
		log.WithField("database", cfg.MongoDatabase).Info("Connected to MongoDB")

		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, nil, err
		}
		return store.Tasks(), store.Users(), nil

	default:
		db, err := gorm.Open(postgres.Open(cfg.PostgresDSN()), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to DB: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		s.closers = append(s.closers, func(context.Context) error { return sqlDB.Close() })
		log.WithField("host", cfg.DBHost).Info("Connected to database")

		if cfg.DBAutoMigrate {
			if err := repository.Migrate(db); err != nil {
				return nil, nil, err
			}
		}
		return repository.NewTaskRepository(db), repository.NewUserRepository(db), nil
	}
}

// openCache returns nil when no Redis is configured or reachable, which
// disables analytics caching.
func (s *Server) openCache(cfg *config.Config) service.SummaryCache {
	if cfg.RedisURL == "" {
		return nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.WithError(err).Warn("invalid REDIS_URL, analytics cache disabled")
		return nil
	}

	client := redis.NewClient(opts)
	s.closers = append(s.closers, func(context.Context) error { return client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.WithError(err).Warn("redis unreachable, analytics will be served from the store until it recovers")
	} else {
		log.WithField("ttl", cfg.AnalyticsCacheTTL).Info("Analytics cache enabled")
	}
	return cache.NewAnalyticsCache(client, cfg.AnalyticsCacheTTL)
}

// NewRouter wires the HTTP routes. Everything under /api/tasks and the
// account routes require a bearer token.
func NewRouter(jwtSecret string, taskHandler *handler.TaskHandler, userHandler *handler.UserHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, handler.MessageResponse{Message: "Task Manager API is running!"})
	})
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	authRoutes := r.Group("/api/auth")
	{
		authRoutes.POST("/register", userHandler.Register)
		authRoutes.POST("/login", userHandler.Login)

		account := authRoutes.Group("")
		account.Use(middleware.JWTAuthMiddleware(jwtSecret))
		account.GET("/me", userHandler.Me)
		account.PATCH("/preferences", userHandler.UpdatePreferences)
	}

	tasks := r.Group("/api/tasks")
	tasks.Use(middleware.JWTAuthMiddleware(jwtSecret))
	{
		tasks.GET("", taskHandler.List)
		tasks.POST("", taskHandler.Create)
		tasks.GET("/analytics", taskHandler.Analytics)
		tasks.PATCH("/reorder", taskHandler.Reorder)
		tasks.GET("/:id", taskHandler.GetByID)
		tasks.PATCH("/:id", taskHandler.Update)
		tasks.DELETE("/:id", taskHandler.Delete)
	}

	return r
}

func (s *Server) Run() {
	srv := &http.Server{
		Addr:    ":" + s.Config.ServerPort,
		Handler: s.Engine,
	}

	go func() {
		log.Infof("Server running on port %s", s.Config.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to listen: %s", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
	if err := s.Close(ctx); err != nil {
		log.WithError(err).Error("Failed to release connections")
	}

	log.Info("Server exited properly")
}

// Close releases every connection opened by Init, newest first
func (s *Server) Close(ctx context.Context) error {
	var result *multierror.Error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			result = multierror.Append(result, err)
		}
	}
	s.closers = nil
	return result.ErrorOrNil()
}

func setupLogging(cfg *config.Config) {
	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithError(err).Warn("unknown LOG_LEVEL, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
