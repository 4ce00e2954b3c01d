package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/communityweb/strtracker/internal/config"
	"github.com/communityweb/strtracker/internal/handler"
	"github.com/communityweb/strtracker/internal/middleware"
	"github.com/communityweb/strtracker/internal/migration"
	"github.com/communityweb/strtracker/internal/repository"
	"github.com/communityweb/strtracker/internal/routes"
	"github.com/communityweb/strtracker/internal/service"
	pkgcache "github.com/communityweb/strtracker/pkg/cache"
	"github.com/communityweb/strtracker/pkg/jwt"
	pkglogger "github.com/communityweb/strtracker/pkg/logger"
	"github.com/communityweb/strtracker/pkg/mailer"
	pkgredis "github.com/communityweb/strtracker/pkg/redis"
	pkgstorage "github.com/communityweb/strtracker/pkg/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// @title           STR Tracker API
// @version         1.0
// @description     Software Trouble Report lifecycle service
//
// @host            localhost:8082
// @BasePath        /api/v1
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Authorization header using the Bearer scheme. Example: "Bearer {token}"

func main() {
	env := os.Getenv("APP_ENV")
	dotenvFiles := config.LoadDotEnv(env)

	pkglogger.InitStructured(env)
	pkglogger.Info("APP_ENV=%s, loaded env files: %v", env, dotenvFiles)

	configPath := config.ConfigPath(env)
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	config.LogResolved(cfg)

	if err := handler.RegisterValidators(); err != nil {
		log.Fatalf("Failed to register validators: %v", err)
	}

	db, err := initDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := migration.Run(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	pkglogger.Info("Connected to MySQL")

	redisClient := initRedis(cfg)
	cacheService := pkgcache.NewService(redisClient)

	files, err := initStorage(cfg)
	if err != nil {
		log.Fatalf("Failed to init attachment storage: %v", err)
	}

	var sender mailer.Sender = mailer.LogSender{}
	if cfg.Mail.Enabled {
		sender = mailer.NewSMTPSender(mailer.Config{
			Host:        cfg.Mail.Host,
			Port:        cfg.Mail.Port,
			Username:    cfg.Mail.Username,
			Password:    cfg.Mail.Password,
			FromName:    cfg.Mail.FromName,
			FromAddress: cfg.Mail.FromAddress,
		})
	}

	jwtManager := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.ExpiresIn)

	// Repositories
	reportRepo := repository.NewReportRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	ccRepo := repository.NewCarbonCopyRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Services
	historyService := service.NewHistoryService(historyRepo, files, cfg.Tracker.MaxUploadBytes)
	notifyService := service.NewNotifyService(sender, userRepo, ccRepo, files, service.NotifyConfig{
		SiteURL:         cfg.Tracker.SiteURL,
		ProjectAddress:  cfg.Mail.ProjectAddress,
		NoReplyAddress:  cfg.Mail.NoReplyAddress,
		InlineFileBytes: cfg.Tracker.InlineFileBytes,
	})
	reportService := service.NewReportService(reportRepo, historyService, notifyService, cacheService)
	searchService := service.NewSearchService(reportRepo)
	authService := service.NewAuthService(userRepo, jwtManager)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(corsConfig(cfg)))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.Metrics())
	router.Use(middleware.RequestLogger())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", healthHandler(db, cacheService))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	var limiter *redis.Client
	if !cfg.IsDevelopment() {
		limiter = redisClient
	}
	routes.Setup(router, routes.Handlers{
		Auth:    handler.NewAuthHandler(authService),
		Report:  handler.NewReportHandler(reportService, searchService, historyService, notifyService),
		History: handler.NewHistoryHandler(reportService, historyService),
		Notify:  handler.NewNotifyHandler(reportService, notifyService),
	}, jwtManager, routes.Options{
		// multipart overhead on top of the attachment itself
		BodyLimit:   cfg.Tracker.MaxUploadBytes + 1<<20,
		RedisClient: limiter,
		RateLimit:   middleware.DefaultRateLimitConfig(),
	})

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "not found"}})
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		pkglogger.Info("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go reportDBStats(ctx, db)

	select {
	case <-ctx.Done():
		pkglogger.Info("Shutdown signal received")
	case err := <-serverErr:
		log.Fatalf("Server failed: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		pkglogger.Warn("Server shutdown: %v", err)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	pkglogger.Info("Shutdown complete")
}

// initDB MySQL 연결 초기화
func initDB(cfg *config.Config) (*gorm.DB, error) {
	mysqlCfg, err := mysqldriver.ParseDSN(cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}

	logLevel := gormlogger.Warn
	if cfg.IsDevelopment() {
		logLevel = gormlogger.Info
	}
	db, err := gorm.Open(mysql.Open(mysqlCfg.FormatDSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	return db, nil
}

// initRedis returns nil when redis is disabled or unreachable; the tracker runs without it
func initRedis(cfg *config.Config) *redis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}
	client, err := pkgredis.NewClient(
		cfg.Redis.Host,
		cfg.Redis.Port,
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.Redis.PoolSize,
	)
	if err != nil {
		pkglogger.Warn("Failed to connect to Redis: %v (continuing without cache)", err)
		return nil
	}
	pkglogger.Info("Connected to Redis")
	return client
}

func initStorage(cfg *config.Config) (pkgstorage.FileStore, error) {
	switch cfg.Storage.Driver {
	case "s3":
		store, err := pkgstorage.NewS3Store(pkgstorage.S3Config{
			Endpoint:        cfg.Storage.Endpoint,
			Region:          cfg.Storage.Region,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
			Bucket:          cfg.Storage.Bucket,
			CDNURL:          cfg.Storage.CDNURL,
			BasePath:        cfg.Storage.BasePath,
			ForcePathStyle:  cfg.Storage.ForcePathStyle,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	case "local":
		store, err := pkgstorage.NewLocalStore(cfg.Storage.LocalPath)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func corsConfig(cfg *config.Config) cors.Config {
	origins := []string{}
	for _, o := range strings.Split(cfg.CORS.AllowOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	return cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Remaining", "Retry-After"},
		MaxAge:           12 * time.Hour,
	}
}

func healthHandler(db *gorm.DB, cacheService pkgcache.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		dbState := "ok"
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status = http.StatusServiceUnavailable
			dbState = "down"
		}
		cacheState := "disabled"
		if cacheService.IsAvailable() {
			cacheState = "ok"
			if err := cacheService.Ping(c.Request.Context()); err != nil {
				cacheState = "down"
			}
		}
		c.JSON(status, gin.H{
			"status":  dbState,
			"cache":   cacheState,
			"service": "str-tracker",
			"time":    time.Now().Unix(),
		})
	}
}

// reportDBStats feeds the connection gauge until ctx is done
func reportDBStats(ctx context.Context, db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			middleware.SetDBOpenConnections(sqlDB.Stats().OpenConnections)
		case <-ctx.Done():
			return
		}
	}
}
