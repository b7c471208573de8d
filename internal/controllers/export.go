package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"ticketing-attachments/internal/dto"
	"ticketing-attachments/internal/redaction"
	"ticketing-attachments/internal/services"
	"ticketing-attachments/pkg/utils"
)

type ExportController struct {
	exportService    services.ExportServiceInterface
	requesterService services.RequesterServiceInterface
	logger           *zap.Logger
}

func NewExportController(
	exportService services.ExportServiceInterface,
	requesterService services.RequesterServiceInterface,
	logger *zap.Logger,
) *ExportController {
	return &ExportController{
		exportService:    exportService,
		requesterService: requesterService,
		logger:           logger,
	}
}

// Export выгружает пакет тикета. По умолчанию JSON; ?format=xlsx отдает
// файл со сводкой вложений.
func (c *ExportController) Export(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	ticketID, err := parsePathID(ctx, "ticketID")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	requester, err := c.requesterService.Resolve(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	bundle, err := c.exportService.Export(reqCtx, ticketID, requester, requestMeta(ctx))
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	if strings.ToLower(ctx.QueryParam("format")) == "xlsx" {
		return c.respondWithXLSX(ctx, bundle)
	}

	return utils.SuccessResponse(ctx, bundle, "Выгрузка тикета сформирована", http.StatusOK)
}

var exportAttachmentHeaders = []string{
	"ID", "Имя файла", "MIME", "Размер", "Контрольная сумма", "Статус проверки", "Уровень", "Загружено",
}

func attachmentRow(view redaction.AttachmentView) []interface{} {
	var size, checksum, mime string
	if view.Size.Valid {
		size = fmt.Sprintf("%d", view.Size.Int64)
	}
	if view.Checksum.Valid {
		checksum = view.Checksum.String
	}
	if view.Mime.Valid {
		mime = view.Mime.String
	}
	return []interface{}{
		view.ID, view.OriginalFilename, mime, size, checksum,
		view.ScannedStatus, view.SensitivityLevel, view.CreatedAt,
	}
}

func (c *ExportController) respondWithXLSX(ctx echo.Context, bundle *dto.ExportBundleDTO) error {
	f := excelize.NewFile()
	sheet := "Выгрузка тикета"
	f.SetSheetName("Sheet1", sheet)

	f.SetSheetRow(sheet, "A1", &[]interface{}{"Тикет", bundle.TicketID})
	f.SetSheetRow(sheet, "A2", &[]interface{}{"Заголовок", bundle.Title})
	f.SetSheetRow(sheet, "A3", &[]interface{}{"Статус", bundle.Status})
	f.SetSheetRow(sheet, "A4", &[]interface{}{"Выгружено", bundle.ExportedAt.Format("02.01.2006 15:04")})

	f.SetSheetRow(sheet, "A6", &exportAttachmentHeaders)
	style, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	f.SetCellStyle(sheet, "A6", "H6", style)

	for i, view := range bundle.Attachments {
		cell, _ := excelize.CoordinatesToCellName(1, i+7)
		row := attachmentRow(view)
		f.SetSheetRow(sheet, cell, &row)
	}
	f.SetColWidth(sheet, "B", "B", 35)
	f.SetColWidth(sheet, "E", "E", 40)
	f.SetColWidth(sheet, "F", "H", 18)

	fileName := fmt.Sprintf("ticket_%d_%s.xlsx", bundle.TicketID, time.Now().Format("2006-01-02"))
	ctx.Response().Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Response().Header().Set("Content-Disposition", "attachment; filename="+fileName)
	ctx.Response().WriteHeader(http.StatusOK)
	return f.Write(ctx.Response().Writer)
}
