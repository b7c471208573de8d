package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"ticketing-attachments/internal/repositories"
	"ticketing-attachments/internal/services"
	"ticketing-attachments/internal/workers"
	"ticketing-attachments/pkg/config"
	"ticketing-attachments/pkg/database/postgresql"
	applogger "ticketing-attachments/pkg/logger"
	"ticketing-attachments/pkg/objectstore"
)

// Очистка вложений с истекшим сроком хранения. По умолчанию — разовый
// запуск (для cron); --daemon запускает периодический процесс,
// --dry-run только перечисляет кандидатов.
func main() {
	dryRun := flag.Bool("dry-run", false, "перечислить кандидатов, ничего не удаляя")
	daemon := flag.Bool("daemon", false, "работать постоянно с интервалом из конфигурации")
	flag.Parse()

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
	ticketRepo := repositories.NewTicketRepository(dbConn)
	auditRepo := repositories.NewAuditRepository(dbConn)

	retentionService := services.NewRetentionService(attachRepo, ticketRepo, auditRepo, storage, cfg.Retention, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *daemon {
		worker := workers.New("attachment-cleanup", cfg.Retention.CleanupInterval, func(ctx context.Context) error {
			_, err := retentionService.RunCleanup(ctx, *dryRun)
			return err
		}, logger)
		worker.Run(ctx)
		return
	}

	stats, err := retentionService.RunCleanup(ctx, *dryRun)
	if err != nil {
		logger.Error("очистка завершилась ошибкой", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("очистка выполнена",
		zap.Int("expiredFound", stats.ExpiredFound),
		zap.Int("markedDeleted", stats.MarkedDeleted),
		zap.Int("failed", stats.Failed),
		zap.Bool("dryRun", stats.DryRun))
	if stats.Failed > 0 {
		os.Exit(1)
	}
}
