package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"ticketing-attachments/internal/repositories"
	"ticketing-attachments/internal/services"
	"ticketing-attachments/internal/workers"
	"ticketing-attachments/pkg/clamav"
	"ticketing-attachments/pkg/config"
	"ticketing-attachments/pkg/database/postgresql"
	applogger "ticketing-attachments/pkg/logger"
	"ticketing-attachments/pkg/objectstore"
)

// Воркер антивирусной проверки. Несколько экземпляров могут работать
// одновременно против одной базы: координация идет через захват строк.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found or could not be loaded.")
	}

	logger := applogger.NewLogger()
	cfg := config.New()

	dbConn := postgresql.ConnectDB(cfg.Postgres.DSN)
	defer dbConn.Close()

	storage, err := objectstore.NewS3Storage(cfg.S3)
	if err != nil {
		logger.Fatal("не удалось инициализировать хранилище объектов", zap.Error(err))
	}

	attachRepo := repositories.NewAttachmentRepository(dbConn)
	auditRepo := repositories.NewAuditRepository(dbConn)
	scanner := clamav.NewClient(cfg.ClamAV.Host, cfg.ClamAV.Port, cfg.ClamAV.Timeout)

	scanService := services.NewScanService(attachRepo, auditRepo, storage, scanner, cfg.Scanner, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	worker := workers.New("attachment-scanner", cfg.Scanner.PollInterval, scanService.RunOnce, logger)
	worker.Run(ctx)
}
