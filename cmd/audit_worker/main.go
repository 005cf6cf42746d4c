package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/supportdeskhq/tenantcore/internal/audit"
	"github.com/supportdeskhq/tenantcore/internal/config"
	"github.com/supportdeskhq/tenantcore/pkg/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found")
	}

	appLogger := logger.NewLogger(os.Getenv("APP_ENV"))

	osConfig := config.DefaultOpenSearchConfig()
	osClient, err := osConfig.GetClient()
	if err != nil {
		appLogger.Fatal("Failed to connect to OpenSearch", err)
	}
	indexer := audit.NewIndexer(osClient)

	appLogger.Info("OpenSearch connection established for audit worker")

	sqsConfig := config.DefaultSQSConfig()
	sqsClient, err := sqsConfig.GetClient()
	if err != nil {
		appLogger.Fatal("Failed to connect to SQS", err)
	}
	publisher := audit.NewSQSPublisher(sqsClient, sqsConfig.AuditQueueURL, appLogger)

	appLogger.Info("SQS connection established for audit worker")

	worker := audit.NewWorker(publisher, indexer, appLogger, 2, 5*time.Second)
	worker.Start()
	appLogger.Info("Audit worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down worker...")
	worker.Stop()
	appLogger.Info("Worker stopped")
	appLogger.Sync()
}
