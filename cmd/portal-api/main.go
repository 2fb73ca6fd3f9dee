package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/prisma-institute/portal-api/api/swagger"
	"github.com/prisma-institute/portal-api/internal/handler"
	"github.com/prisma-institute/portal-api/internal/middleware"
	"github.com/prisma-institute/portal-api/internal/models"
	"github.com/prisma-institute/portal-api/internal/repository"
	"github.com/prisma-institute/portal-api/internal/service"
	"github.com/prisma-institute/portal-api/pkg/cache"
	"github.com/prisma-institute/portal-api/pkg/config"
	"github.com/prisma-institute/portal-api/pkg/database"
	"github.com/prisma-institute/portal-api/pkg/export"
	"github.com/prisma-institute/portal-api/pkg/logger"
	corsmiddleware "github.com/prisma-institute/portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/prisma-institute/portal-api/pkg/middleware/requestid"
	"github.com/prisma-institute/portal-api/pkg/storage"
)

// @title Prisma Institute Portal API
// @version 1.0.0
// @description Course catalog, enrollments, certificates and verification for the institute portal
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	fileStore, err := storage.NewLocalStorage(cfg.Materials.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init material storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Materials.SignedURLSecret, cfg.Materials.SignedURLTTL)

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	inquiryRepo := repository.NewInquiryRepository(db)
	feeRepo := repository.NewFeeRepository(db)
	materialRepo := repository.NewMaterialRepository(db)

	// Services.
	metricsSvc := service.NewMetricsService()
	var catalogCache, verificationCache *service.CacheService
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		catalogCache = service.NewCacheService(cacheRepo, metricsSvc, cfg.Catalog.CacheTTL, logr, cfg.Catalog.CacheEnabled)
		verificationCache = service.NewCacheService(cacheRepo, metricsSvc, cfg.Verification.CacheTTL, logr, cfg.Verification.CacheEnabled)
	}

	authSvc := service.NewAuthService(userRepo, studentRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "portal-api",
	})
	renderer := export.NewCertificateRenderer(export.IssuerInfo{
		Name:      cfg.Certificates.IssuerName,
		City:      cfg.Certificates.IssuerCity,
		Signatory: cfg.Certificates.SignatoryName,
	})
	certificateSvc := service.NewCertificateService(enrollmentRepo, userRepo, renderer, verificationCache, nil, logr)
	verificationSvc := service.NewVerificationService(enrollmentRepo, verificationCache, cfg.Verification.CacheTTL, logr)
	courseSvc := service.NewCourseService(courseRepo, catalogCache, cfg.Catalog.CacheTTL, nil, logr)
	studentSvc := service.NewStudentService(studentRepo, userRepo, nil, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, studentRepo, courseRepo, nil, logr)
	inquirySvc := service.NewInquiryService(inquiryRepo, courseRepo, nil, logr)
	feeSvc := service.NewFeeService(feeRepo, enrollmentRepo, courseRepo, nil, logr)
	materialSvc := service.NewMaterialService(materialRepo, enrollmentRepo, courseRepo, fileStore, signer, cfg.Materials.MaxFileSizeBytes, nil, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc, certificateSvc)
	certificateHandler := handler.NewCertificateHandler(certificateSvc)
	verificationHandler := handler.NewVerificationHandler(verificationSvc)
	inquiryHandler := handler.NewInquiryHandler(inquirySvc)
	feeHandler := handler.NewFeeHandler(feeSvc)
	materialHandler := handler.NewMaterialHandler(materialSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	// Public surface: catalog, inquiries, verification, signed downloads.
	api.GET("/courses", courseHandler.Catalog)
	api.GET("/courses/:id", courseHandler.CatalogDetail)
	api.POST("/inquiries", inquiryHandler.Submit)
	api.GET("/verify", verificationHandler.Search)
	api.GET("/verify/:id", verificationHandler.Verify)
	api.GET("/materials/download", materialHandler.Download)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
	auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)

	// Student dashboard.
	me := api.Group("/me", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleStudent))
	me.GET("/enrollments", enrollmentHandler.MyEnrollments)
	me.PATCH("/enrollments/:id/progress", enrollmentHandler.UpdateMyProgress)
	me.GET("/enrollments/:id/fees", feeHandler.MyStatement)
	me.GET("/certificates/:id/pdf", certificateHandler.Download)
	me.GET("/courses/:id/materials", materialHandler.ListForStudent)

	// Admin back office.
	admin := api.Group("/admin", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/courses", courseHandler.List)
	admin.POST("/courses", courseHandler.Create)
	admin.GET("/courses/:id", courseHandler.Get)
	admin.PUT("/courses/:id", courseHandler.Update)
	admin.PATCH("/courses/:id/publish", courseHandler.SetPublished)
	admin.GET("/courses/:id/materials", materialHandler.List)
	admin.POST("/courses/:id/materials", materialHandler.Upload)
	admin.DELETE("/materials/:id", materialHandler.Delete)

	admin.GET("/students", studentHandler.List)
	admin.POST("/students", studentHandler.Create)
	admin.GET("/students/:id", studentHandler.Get)
	admin.PUT("/students/:id", studentHandler.Update)
	admin.POST("/students/:id/account", studentHandler.ProvisionAccount)

	admin.GET("/enrollments", enrollmentHandler.List)
	admin.POST("/enrollments", enrollmentHandler.Enroll)
	admin.POST("/enrollments/:id/cancel", enrollmentHandler.Cancel)
	admin.POST("/enrollments/:id/payments", feeHandler.RecordPayment)
	admin.GET("/enrollments/:id/fees", feeHandler.Statement)

	admin.GET("/inquiries", inquiryHandler.List)
	admin.POST("/inquiries/:id/resolve", inquiryHandler.Resolve)

	admin.POST("/certificates/approve", certificateHandler.Approve)
	admin.POST("/certificates/revoke", certificateHandler.Revoke)
	admin.GET("/certificates/:id/pdf", certificateHandler.Preview)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
