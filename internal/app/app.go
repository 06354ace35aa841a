package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"teachtrack_backend/internal/config"
	"teachtrack_backend/internal/controller"
	"teachtrack_backend/internal/repository"
	"teachtrack_backend/internal/service"
	"teachtrack_backend/pkg/database"
	"teachtrack_backend/pkg/logger"
	"teachtrack_backend/pkg/monitoring"
	"teachtrack_backend/pkg/security"
	"teachtrack_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user       *repository.UserRepository
	module     *repository.ModuleRepository
	lesson     *repository.LessonRepository
	assessment *repository.AssessmentRepository
	student    *repository.StudentRepository
}

type services struct {
	auth       *service.AuthService
	storage    *service.StorageService
	module     *service.ModuleService
	lesson     *service.LessonService
	assessment *service.AssessmentService
	student    *service.StudentService

	ai                 *service.AIService
	assessmentGen      *service.AssessmentGenerator
	lessonGen          *service.LessonGenerator
	comprehensiveGen   *service.ComprehensiveGenerator
	multimediaGen      *service.MultimediaGenerator
	differentiationGen *service.DifferentiationGenerator
}

type controllers struct {
	auth       *controller.AuthController
	module     *controller.ModuleController
	lesson     *controller.LessonController
	assessment *controller.AssessmentController
	student    *controller.StudentController
	generation *controller.GenerationController
	health     *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// ReloadConfig 配置热加载入口，由configwatcher触发
func (a *App) ReloadConfig(cfg *config.Config) {
	a.Config = cfg
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
	logger.Log.Info("Configuration reloaded")
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:       repository.NewUserRepository(db),
		module:     repository.NewModuleRepository(db),
		lesson:     repository.NewLessonRepository(db),
		assessment: repository.NewAssessmentRepository(db),
		student:    repository.NewStudentRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	s.auth = service.NewAuthService(repos.user, cfg)
	s.module = service.NewModuleService(repos.module)
	s.lesson = service.NewLessonService(repos.lesson, repos.module, s.storage)
	s.assessment = service.NewAssessmentService(repos.assessment, repos.module)
	s.student = service.NewStudentService(repos.student, rdb, logger.Log)

	s.ai = service.NewAIService(cfg.AI)
	s.assessmentGen = service.NewAssessmentGenerator(s.ai, repos.assessment)
	s.lessonGen = service.NewLessonGenerator(s.ai, repos.lesson)
	s.comprehensiveGen = service.NewComprehensiveGenerator(s.ai, repos.lesson)
	s.multimediaGen = service.NewMultimediaGenerator(s.ai, repos.lesson)
	s.differentiationGen = service.NewDifferentiationGenerator(s.ai, repos.lesson, repos.student)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:       controller.NewAuthController(s.auth),
		module:     controller.NewModuleController(s.module),
		lesson:     controller.NewLessonController(s.lesson),
		assessment: controller.NewAssessmentController(s.assessment),
		student:    controller.NewStudentController(s.student),
		generation: controller.NewGenerationController(
			s.module,
			s.lesson,
			s.assessmentGen,
			s.lessonGen,
			s.comprehensiveGen,
			s.multimediaGen,
			s.differentiationGen,
		),
		health: controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	// release模式默认跳过迁移，-migrate/-migrate-only 可强制执行
	migrate := cfg.ForceMigrate || cfg.Server.Mode != "release"
	db, err := database.InitDB(&cfg.Database, migrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	if cfg.MigrateOnly {
		logger.Log.Info("Migration completed, exiting")
		os.Exit(0)
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		// 缓存不可用只降级，不阻止启动
		logger.Log.Warn("Failed to initialize redis, performance report caching disabled", zap.Error(err))
		rdb = nil
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, rdb)
	controllers := app.initControllers(services, db, rdb)

	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("teachtrack-backend", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, repos, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Sync()
	log.Println("Server exiting")
}
