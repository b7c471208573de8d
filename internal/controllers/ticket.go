package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"ticketing-attachments/internal/dto"
	"ticketing-attachments/internal/services"
	apperrors "ticketing-attachments/pkg/errors"
	"ticketing-attachments/pkg/utils"
)

type TicketController struct {
	retentionService services.RetentionServiceInterface
	requesterService services.RequesterServiceInterface
	logger           *zap.Logger
}

func NewTicketController(
	retentionService services.RetentionServiceInterface,
	requesterService services.RequesterServiceInterface,
	logger *zap.Logger,
) *TicketController {
	return &TicketController{
		retentionService: retentionService,
		requesterService: requesterService,
		logger:           logger,
	}
}

// Close закрывает тикет и запускает отсчет срока хранения его вложений.
func (c *TicketController) Close(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	ticketID, err := parsePathID(ctx, "ticketID")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var payload dto.CloseTicketDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewBadRequestError("Неверный формат запроса"), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	if _, err := c.requesterService.Resolve(reqCtx); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	if err := c.retentionService.CloseTicketWithRetention(reqCtx, ticketID, payload.RetentionDays); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	return utils.SuccessResponse(ctx, nil, "Тикет закрыт, срок хранения вложений назначен", http.StatusOK)
}
