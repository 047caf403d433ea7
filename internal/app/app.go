package app

import (
	"commudev_backend/internal/config"
	"commudev_backend/internal/controller"
	"commudev_backend/internal/repository"
	"commudev_backend/internal/service"
	"commudev_backend/pkg/configwatcher"
	"commudev_backend/pkg/database"
	"commudev_backend/pkg/logger"
	"commudev_backend/pkg/monitoring"
	"commudev_backend/pkg/security"
	"commudev_backend/pkg/tracing"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const configDir = "configs"

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)

	// scopes background work started while building the router
	ctx    context.Context
	cancel context.CancelFunc
}

type repositories struct {
	user         *repository.UserRepository
	friendship   *repository.FriendshipRepository
	chat         *repository.ChatRepository
	post         *repository.PostRepository
	comment      *repository.CommentRepository
	notification *repository.NotificationRepository
}

type services struct {
	notification *service.NotificationService
	friendship   *service.FriendshipService
	chat         *service.ChatService
	community    *service.CommunityService
	chatHub      *service.ChatHub
}

type controllers struct {
	friend       *controller.FriendController
	chat         *controller.ChatController
	community    *controller.CommunityController
	notification *controller.NotificationController
	health       *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client) *repositories {
	return &repositories{
		user:         repository.NewUserRepository(db),
		friendship:   repository.NewFriendshipRepository(db, rdb),
		chat:         repository.NewChatRepository(db),
		post:         repository.NewPostRepository(db),
		comment:      repository.NewCommentRepository(db),
		notification: repository.NewNotificationRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	// the notification service is the synchronous sink every engine reports to
	s.notification = service.NewNotificationService(repos.notification, repos.user)
	s.friendship = service.NewFriendshipService(repos.friendship, repos.user, s.notification)
	s.community = service.NewCommunityService(repos.post, repos.comment, repos.user, s.notification)

	s.chat = service.NewChatService(repos.chat, repos.user)
	s.chat.TypingWindow = cfg.Chat.TypingWindow()

	s.chatHub = service.NewChatHub(cfg, rdb, s.chat, repos.friendship)
	go s.chatHub.Run()

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		friend:       controller.NewFriendController(s.friendship),
		chat:         controller.NewChatController(s.chat, s.chatHub),
		community:    controller.NewCommunityController(s.community),
		notification: controller.NewNotificationController(s.notification),
		health:       controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(a.ctx, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window()))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// New assembles the application around an already opened database. rdb may
// be nil, in which case caching and cross-instance fan-out are off.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *App {
	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}
	app.ctx, app.cancel = context.WithCancel(context.Background())

	repos := app.initRepositories(db, rdb)
	app.services = app.initServices(repos, cfg, rdb)
	controllers := app.initControllers(app.services, db, rdb)

	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	app.RegisterConfigCallback(logger.SetLevel)
	return app
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized", zap.String("level", logger.Level().String()))

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		logger.Log.Fatal("Failed to migrate database", zap.Error(err))
	}
	if cfg.MigrateOnly {
		return &App{Config: cfg, DB: db}
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}

	app := New(cfg, db, rdb)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}
	return app
}

// Close stops the realtime hub and flushes tracing. Safe to call more than once.
func (a *App) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.services != nil && a.services.chatHub != nil {
		a.services.chatHub.Stop()
	}
	if a.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
		a.tracer = nil
	}
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		err := configwatcher.WatchConfig(ctx, configDir, func(cfg *config.Config) {
			for _, cb := range a.configCallbacks {
				cb(cfg)
			}
		})
		if err != nil {
			logger.Log.Warn("Config hot reload disabled", zap.Error(err))
		}
	}()

	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("listen failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Log.Info("Shutting down server...")

	// websocket clients first so their online keys are cleared
	a.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
		os.Exit(1)
	}
	logger.Log.Info("Server exiting")
}
