package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger-api/internal/application/dto"
	"github.com/jhoicas/stock-ledger-api/internal/application/report"
)

// ReportHandler maneja la descarga de reportes (protegido).
type ReportHandler struct {
	kardex *report.KardexUseCase
}

// NewReportHandler construye el handler de reportes.
func NewReportHandler(kardex *report.KardexUseCase) *ReportHandler {
	return &ReportHandler{kardex: kardex}
}

// DownloadKardex godoc
// @Summary      Descargar el kardex de un producto en PDF
// @Tags         reports
// @Security     Bearer
// @Produce      application/pdf
// @Param        sku      path   string  true   "SKU"
// @Param        variety  query  string  false  "Variante"
// @Param        from     query  string  false  "Desde (RFC 3339)"
// @Param        to       query  string  false  "Hasta (RFC 3339)"
// @Param        limit    query  int     false  "Máx movimientos (default 200, tope 500)"
// @Param        offset   query  int     false  "Offset de paginación"
// @Success      200  {file}    file
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/reports/kardex/{sku} [get]
func (h *ReportHandler) DownloadKardex(c *fiber.Ctx) error {
	from, err := parseTimeQuery(c.Query("from"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "from inválido, usar RFC 3339"})
	}
	to, err := parseTimeQuery(c.Query("to"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "to inválido, usar RFC 3339"})
	}

	pdfBytes, filename, err := h.kardex.DownloadKardexPDF(
		c.Context(),
		c.Params("sku"), c.Query("variety"),
		from, to,
		c.QueryInt("limit"), c.QueryInt("offset"),
	)
	if err != nil {
		return errorJSON(c, err)
	}

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(pdfBytes)
}

// ListMovements godoc
// @Summary      Historial de movimientos de un producto (kardex en JSON)
// @Tags         reports
// @Security     Bearer
// @Produce      json
// @Param        sku      path   string  true   "SKU"
// @Param        variety  query  string  false  "Variante"
// @Param        from     query  string  false  "Desde (RFC 3339)"
// @Param        to       query  string  false  "Hasta (RFC 3339)"
// @Param        limit    query  int     false  "Máx movimientos (default 50, tope 100)"
// @Param        offset   query  int     false  "Offset de paginación"
// @Success      200  {array}   dto.MovementDTO
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/reports/kardex/{sku}/movements [get]
func (h *ReportHandler) ListMovements(c *fiber.Ctx) error {
	from, err := parseTimeQuery(c.Query("from"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "from inválido, usar RFC 3339"})
	}
	to, err := parseTimeQuery(c.Query("to"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "to inválido, usar RFC 3339"})
	}
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "paginación inválida"})
	}

	out, err := h.kardex.Movements(c.Params("sku"), c.Query("variety"), from, to, page)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(out)
}

// parseTimeQuery parsea un query param de fecha opcional (RFC 3339 o fecha sola).
func parseTimeQuery(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
