package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/supportdeskhq/tenantcore/internal/api"
	"github.com/supportdeskhq/tenantcore/internal/audit"
	"github.com/supportdeskhq/tenantcore/internal/auth"
	"github.com/supportdeskhq/tenantcore/internal/config"
	"github.com/supportdeskhq/tenantcore/internal/cors"
	"github.com/supportdeskhq/tenantcore/internal/gateway"
	"github.com/supportdeskhq/tenantcore/internal/middleware"
	"github.com/supportdeskhq/tenantcore/internal/realtime"
	"github.com/supportdeskhq/tenantcore/internal/repository/postgres"
	"github.com/supportdeskhq/tenantcore/internal/service"
	"github.com/supportdeskhq/tenantcore/internal/storage"
	"github.com/supportdeskhq/tenantcore/internal/tenant"
	"github.com/supportdeskhq/tenantcore/pkg/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found")
	}

	appLogger := logger.NewLogger(os.Getenv("APP_ENV"))

	cfg, err := config.Load()
	if err != nil {
		appLogger.Fatal("Failed to load config", err)
	}

	dbConnections, err := config.NewDatabaseConnections()
	if err != nil {
		appLogger.Fatal("Failed to connect to database", err)
	}
	defer dbConnections.Close()

	appLogger.Info("Database connections established - writer and reader connected")

	osConfig := config.DefaultOpenSearchConfig()
	osClient, err := osConfig.GetClient()
	if err != nil {
		appLogger.Fatal("Failed to connect to OpenSearch", err)
	}

	redisConfig := config.DefaultRedisConfig()
	redisClient, err := redisConfig.GetClient()
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", err)
	}
	defer redisClient.Close()

	sqsConfig := config.DefaultSQSConfig()
	sqsClient, err := sqsConfig.GetClient()
	if err != nil {
		appLogger.Fatal("Failed to connect to SQS", err)
	}
	auditor := audit.NewSQSPublisher(sqsClient, sqsConfig.AuditQueueURL, appLogger)

	s3Config := config.DefaultS3Config()
	s3Client, err := s3Config.GetClient(context.Background())
	if err != nil {
		appLogger.Fatal("Failed to connect to S3", err)
	}

	repo := postgres.NewPostgresRepository(dbConnections)

	// Tenant kernel: registry cache, resolver policy, scoped gateway.
	registry := tenant.NewRegistry(repo.Tenant(),
		time.Duration(cfg.TenantCacheTTLSeconds)*time.Second, appLogger)
	resolverPolicy := tenant.ResolverPolicy{
		AllowQueryTenant:   cfg.AllowQueryTenantResolution && cfg.IsDevelopment(),
		UseDefaultFallback: cfg.UseDefaultTenantFallback,
		FallbackTenantKey:  cfg.DefaultTenantKey,
		SuspendedPolicy:    tenant.SuspendedPolicy(cfg.SubscriptionSuspendedPolicy),
		ReservedSubdomains: []string{"www", "api", "localhost"},
	}
	resolver := tenant.NewResolver(registry, resolverPolicy)
	gw := gateway.New(dbConnections.Writer, dbConnections.Reader, appLogger, auditor)

	tokens := auth.NewTokenService(cfg.JWTSecretKey,
		time.Duration(cfg.JWTExpirationHours)*time.Hour, cfg.AllowLegacyTokens)

	corsPolicy := cors.NewPolicy(registry, repo.Tenant(), appLogger,
		cfg.IsDevelopment(), cfg.CORSDevelopmentOrigins, cfg.CORSMasterOrigins)

	broker := realtime.NewRedisBroker(redisClient, appLogger)
	hub := realtime.NewHub(broker, appLogger, nil)

	keys := storage.NewKeyBuilder(cfg.Environment)
	files := storage.NewService(s3Client, s3Config.BucketName, keys, appLogger)

	tenantService := service.NewTenantService(repo, registry, corsPolicy)
	authService := service.NewAuthService(repo.User(), registry, tokens)
	conversationService := service.NewConversationService(gw, hub, files, appLogger)

	authMW := middleware.NewAuthMiddleware(tokens, repo.User(), auditor, appLogger)
	tenantMW := middleware.NewTenantMiddleware(resolver, auditor, appLogger, cfg.FallbackRoutes)
	corsMW := middleware.NewCORSMiddleware(corsPolicy, registry, auditor, appLogger)
	planMW := middleware.NewPlanLimitMiddleware(redisClient, appLogger)

	server := api.NewServer(
		api.NewAuthHandler(authService, int64(cfg.JWTExpirationHours)*3600),
		api.NewTenantHandler(tenantService, corsPolicy.Stats()),
		api.NewConversationHandler(conversationService),
		api.NewAuditHandler(audit.NewIndexer(osClient)),
		api.NewWebSocketHandler(hub, tokens, registry, repo.User(), auditor, appLogger),
		authMW,
		tenantMW,
		corsMW,
		planMW,
	)

	router := gin.Default()
	apiGroup := router.Group("/api/v1")
	server.SetupRoutes(apiGroup)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Fatal("Server forced to shutdown", err)
	}
	hub.Stop()

	appLogger.Info("Server exiting")
	appLogger.Sync()
}
