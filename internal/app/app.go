package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz_edu_backend/internal/config"
	"quiz_edu_backend/internal/controller"
	"quiz_edu_backend/internal/repository"
	"quiz_edu_backend/internal/service"
	"quiz_edu_backend/internal/util"
	"quiz_edu_backend/pkg/configwatcher"
	"quiz_edu_backend/pkg/database"
	"quiz_edu_backend/pkg/logger"
	"quiz_edu_backend/pkg/monitoring"
	"quiz_edu_backend/pkg/security"
	"quiz_edu_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user                *repository.UserRepository
	category            *repository.CategoryRepository
	question            *repository.QuestionRepository
	quizSession         *repository.QuizSessionRepository
	attemptHistory      *repository.AttemptHistoryRepository
	leaderboard         *repository.LeaderboardRepository
	codingChallenge     *repository.CodingChallengeRepository
	challengeSubmission *repository.ChallengeSubmissionRepository
	codingSubmission    *repository.CodingSubmissionRepository
}

type services struct {
	auth                *service.AuthService
	user                *service.UserService
	storage             *service.StorageService
	category            *service.CategoryService
	question            *service.QuestionService
	quizSession         *service.QuizSessionService
	attemptHistory      *service.AttemptHistoryService
	codingChallenge     *service.CodingChallengeService
	challengeSubmission *service.ChallengeSubmissionService
	codingSubmission    *service.CodingSubmissionService
}

type controllers struct {
	auth                *controller.AuthController
	user                *controller.UserController
	category            *controller.CategoryController
	question            *controller.QuestionController
	quizSession         *controller.QuizSessionController
	attemptHistory      *controller.AttemptHistoryController
	codingChallenge     *controller.CodingChallengeController
	challengeSubmission *controller.ChallengeSubmissionController
	codingSubmission    *controller.CodingSubmissionController
	health              *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client) *repositories {
	return &repositories{
		user:                repository.NewUserRepository(db),
		category:            repository.NewCategoryRepository(db),
		question:            repository.NewQuestionRepository(db),
		quizSession:         repository.NewQuizSessionRepository(db),
		attemptHistory:      repository.NewAttemptHistoryRepository(db),
		leaderboard:         repository.NewLeaderboardRepository(db, rdb),
		codingChallenge:     repository.NewCodingChallengeRepository(db),
		challengeSubmission: repository.NewChallengeSubmissionRepository(db),
		codingSubmission:    repository.NewCodingSubmissionRepository(db),
	}
}

// newJudge 未配置判题服务地址时返回 nil，相关接口返回判题不可用
func newJudge(cfg config.Judge0Config) service.Judge {
	if cfg.URL == "" {
		return nil
	}
	return service.NewJudge0Client(cfg)
}

func (a *App) initServices(repos *repositories, cfg *config.Config) *services {
	s := &services{}

	s.storage = service.NewStorageService(&cfg.Storage)
	s.auth = service.NewAuthService(repos.user, cfg)
	s.user = service.NewUserService(repos.user)
	s.category = service.NewCategoryService(repos.category, repos.question)
	s.question = service.NewQuestionService(repos.question, repos.category)
	s.attemptHistory = service.NewAttemptHistoryService(repos.attemptHistory, repos.category, repos.leaderboard)
	s.quizSession = service.NewQuizSessionService(
		repos.quizSession,
		repos.question,
		repos.category,
		s.attemptHistory,
		cfg.Quiz,
	)

	judge := newJudge(cfg.Judge0)
	s.codingChallenge = service.NewCodingChallengeService(repos.codingChallenge)
	s.challengeSubmission = service.NewChallengeSubmissionService(
		repos.challengeSubmission,
		repos.codingChallenge,
		judge,
		s.storage,
		cfg.Quiz.AutoGradeOnSubmit,
	)
	s.codingSubmission = service.NewCodingSubmissionService(repos.codingSubmission, repos.question, judge)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:                controller.NewAuthController(s.auth),
		user:                controller.NewUserController(s.user),
		category:            controller.NewCategoryController(s.category),
		question:            controller.NewQuestionController(s.question),
		quizSession:         controller.NewQuizSessionController(s.quizSession),
		attemptHistory:      controller.NewAttemptHistoryController(s.attemptHistory, s.storage),
		codingChallenge:     controller.NewCodingChallengeController(s.codingChallenge),
		challengeSubmission: controller.NewChallengeSubmissionController(s.challengeSubmission),
		codingSubmission:    controller.NewCodingSubmissionController(s.codingSubmission),
		health:              controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(gin.Recovery())
	router.Use(logger.GinLogger())
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// registerConfigCallbacks 配置热更新时同步日志级别、错误脱敏和答题默认参数
func (a *App) registerConfigCallbacks(s *services) {
	a.RegisterConfigCallback(func(cfg *config.Config) {
		logger.SetLevel(cfg)
	})
	a.RegisterConfigCallback(func(cfg *config.Config) {
		util.SetDebug(cfg.IsDebug())
	})
	a.RegisterConfigCallback(func(cfg *config.Config) {
		s.quizSession.UpdateSettings(cfg.Quiz)
		logger.Log.Info("Quiz settings updated",
			zap.Int("default_time_limit", cfg.Quiz.DefaultTimeLimit),
			zap.Int("default_question_count", cfg.Quiz.DefaultQuestionCount),
		)
	})
}

// openRedis Redis 不可用时排行榜退化为数据库聚合
func openRedis(cfg *config.RedisConfig) *redis.Client {
	if cfg.Host == "" {
		logger.Log.Info("Redis not configured, leaderboard falls back to database")
		return nil
	}
	rdb, err := database.InitRedis(cfg)
	if err != nil {
		logger.Log.Warn("Failed to connect redis, leaderboard falls back to database", zap.Error(err))
		return nil
	}
	return rdb
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	app := Build(cfg, db, openRedis(&cfg.Redis))

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("quiz-platform", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	return app
}

// Build 组装路由与各层依赖，测试中可直接传入内存数据库
func Build(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *App {
	util.SetDebug(cfg.IsDebug())
	if err := util.RegisterValidators(); err != nil {
		logger.Log.Fatal("Failed to register validators", zap.Error(err))
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db, rdb)
	services := app.initServices(repos, cfg)
	app.services = services
	controllers := app.initControllers(services, db, rdb)
	app.registerConfigCallbacks(services)

	// 监控初始化
	monitoring.Init()

	if !cfg.IsDebug() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == util.StorageLocal {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	return app
}

func (a *App) Run(configDir string) {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if err := configwatcher.WatchConfig(ctx, configDir, func(cfg *config.Config) {
		for _, cb := range a.configCallbacks {
			cb(cfg)
		}
	}); err != nil {
		logger.Log.Warn("Config hot reload disabled", zap.Error(err))
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("listen", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}

	logger.Log.Info("Server exiting")
	logger.Log.Sync()
}
