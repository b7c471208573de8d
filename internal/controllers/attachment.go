package controllers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"ticketing-attachments/internal/dto"
	"ticketing-attachments/internal/services"
	apperrors "ticketing-attachments/pkg/errors"
	"ticketing-attachments/pkg/utils"
)

type AttachmentController struct {
	presignService   services.PresignServiceInterface
	requesterService services.RequesterServiceInterface
	logger           *zap.Logger
}

func NewAttachmentController(
	presignService services.PresignServiceInterface,
	requesterService services.RequesterServiceInterface,
	logger *zap.Logger,
) *AttachmentController {
	return &AttachmentController{
		presignService:   presignService,
		requesterService: requesterService,
		logger:           logger,
	}
}

// PresignUpload выдает подписанную ссылку на загрузку нового вложения тикета.
func (c *AttachmentController) PresignUpload(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	ticketID, err := parsePathID(ctx, "ticketID")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var payload dto.PresignUploadDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewBadRequestError("Неверный формат запроса"), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	requester, err := c.requesterService.Resolve(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	resp, err := c.presignService.PresignUpload(reqCtx, ticketID, requester, requestMeta(ctx), payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	return utils.SuccessResponse(ctx, resp, "Ссылка на загрузку выдана", http.StatusCreated)
}

// PresignDownload выдает подписанную ссылку на скачивание проверенного вложения.
func (c *AttachmentController) PresignDownload(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	ticketID, err := parsePathID(ctx, "ticketID")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	attachmentID, err := parsePathID(ctx, "attachmentID")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	requester, err := c.requesterService.Resolve(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	resp, err := c.presignService.PresignDownload(reqCtx, ticketID, attachmentID, requester, requestMeta(ctx))
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	return utils.SuccessResponse(ctx, resp, "Ссылка на скачивание выдана", http.StatusOK)
}

func parsePathID(ctx echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.NewBadRequestError("Неверный идентификатор в пути запроса")
	}
	return id, nil
}

func requestMeta(ctx echo.Context) services.RequestMeta {
	return services.RequestMeta{
		IP:        ctx.RealIP(),
		UserAgent: ctx.Request().UserAgent(),
		Path:      ctx.Request().URL.Path,
		Method:    ctx.Request().Method,
	}
}
