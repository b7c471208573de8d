package routes

import (
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"ticketing-attachments/internal/authz"
	"ticketing-attachments/internal/controllers"
	"ticketing-attachments/internal/repositories"
	"ticketing-attachments/internal/services"
	"ticketing-attachments/pkg/config"
	"ticketing-attachments/pkg/middleware"
	"ticketing-attachments/pkg/objectstore"
	"ticketing-attachments/pkg/service"
)

func InitRouter(e *echo.Echo, dbConn *pgxpool.Pool, redisClient *redis.Client, jwtSvc service.JWTService, logger *zap.Logger, cfg *config.Config) error {
	logger.Info("InitRouter: Начало создания маршрутов")

	api := e.Group("/api")
	authMW := middleware.NewAuthMiddleware(jwtSvc, logger)

	storage, err := objectstore.NewS3Storage(cfg.S3)
	if err != nil {
		return err
	}

	// --- РЕПОЗИТОРИИ ---
	userRepo := repositories.NewUserRepository(dbConn)
	roleRepo := repositories.NewRoleRepository(dbConn)
	orgUnitRepo := repositories.NewOrgUnitRepository(dbConn)
	ticketRepo := repositories.NewTicketRepository(dbConn)
	attachRepo := repositories.NewAttachmentRepository(dbConn)
	auditRepo := repositories.NewAuditRepository(dbConn)
	cacheRepo := repositories.NewRedisCacheRepository(redisClient)

	// --- СЕРВИСЫ ---
	orgScope := authz.NewOrgScope(orgUnitRepo)
	capabilityService := services.NewCapabilityService(roleRepo, cacheRepo, logger, cfg.Redis.CacheTTL)
	requesterService := services.NewRequesterService(userRepo, capabilityService, logger)
	presignService := services.NewPresignService(attachRepo, ticketRepo, auditRepo, storage, orgScope, cfg.Attachments, logger)
	retentionService := services.NewRetentionService(attachRepo, ticketRepo, auditRepo, storage, cfg.Retention, logger)
	exportService := services.NewExportService(ticketRepo, attachRepo, auditRepo, orgScope, logger)

	// --- КОНТРОЛЛЕРЫ ---
	attachmentCtrl := controllers.NewAttachmentController(presignService, requesterService, logger)
	ticketCtrl := controllers.NewTicketController(retentionService, requesterService, logger)
	exportCtrl := controllers.NewExportController(exportService, requesterService, logger)

	// --- МАРШРУТЫ ---
	tickets := api.Group("/tickets", authMW.Auth)
	tickets.POST("/:ticketID/attachments/presign-upload", attachmentCtrl.PresignUpload)
	tickets.POST("/:ticketID/attachments/:attachmentID/presign-download", attachmentCtrl.PresignDownload)
	tickets.POST("/:ticketID/close", ticketCtrl.Close)
	tickets.GET("/:ticketID/export", exportCtrl.Export)

	logger.Info("InitRouter: Маршруты созданы")
	return nil
}
